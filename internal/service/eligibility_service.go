package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/edubridge/reportcard-api/internal/models"
)

type rosterSource interface {
	ListFacts(ctx context.Context, classID, termID string) ([]models.StudentFacts, error)
}

type cacheMetrics interface {
	RecordCacheOperation(hit bool)
}

// EligibilityConfig tunes fact caching.
type EligibilityConfig struct {
	CacheTTL time.Duration
}

// EligibilityService partitions a class roster into students eligible for a
// report-card batch and students excluded by debt or a missing report.
type EligibilityService struct {
	roster  rosterSource
	redis   *redis.Client
	cfg     EligibilityConfig
	logger  *zap.Logger
	metrics cacheMetrics
}

// NewEligibilityService constructs an EligibilityService. The redis client
// and metrics sink are optional; without redis every load hits the database.
func NewEligibilityService(roster rosterSource, redisClient *redis.Client, metrics cacheMetrics, cfg EligibilityConfig, logger *zap.Logger) *EligibilityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	return &EligibilityService{roster: roster, redis: redisClient, cfg: cfg, logger: logger, metrics: metrics}
}

// Partition splits the given facts into eligible and ineligible sets. Pure:
// eligible means no debt and an existing report; debt takes precedence when
// bucketing exclusions.
func Partition(facts []models.StudentFacts) models.EligibilityPartition {
	partition := models.EligibilityPartition{
		Eligible:   make([]models.StudentFacts, 0, len(facts)),
		Ineligible: make([]models.IneligibleStudent, 0),
	}
	for _, f := range facts {
		switch {
		case f.HasDebt:
			partition.Ineligible = append(partition.Ineligible, models.IneligibleStudent{StudentFacts: f, Reason: models.ReasonOutstandingDebt})
		case !f.ReportExists:
			partition.Ineligible = append(partition.Ineligible, models.IneligibleStudent{StudentFacts: f, Reason: models.ReasonNoReport})
		default:
			partition.Eligible = append(partition.Eligible, f)
		}
	}
	return partition
}

// LoadFacts fetches roster facts for a class+term, serving from cache when
// possible. Facts are read-only for the duration of a batch session.
func (s *EligibilityService) LoadFacts(ctx context.Context, classID, termID string) ([]models.StudentFacts, error) {
	key := factsCacheKey(classID, termID)
	if s.redis != nil {
		if cached, err := s.redis.Get(ctx, key).Bytes(); err == nil {
			var facts []models.StudentFacts
			if err := json.Unmarshal(cached, &facts); err == nil {
				s.recordCache(true)
				return facts, nil
			}
			s.logger.Warn("discarding corrupt roster facts cache entry", zap.String("key", key))
		}
		s.recordCache(false)
	}

	facts, err := s.roster.ListFacts(ctx, classID, termID)
	if err != nil {
		return nil, err
	}

	if s.redis != nil {
		if data, err := json.Marshal(facts); err == nil {
			if err := s.redis.Set(ctx, key, data, s.cfg.CacheTTL).Err(); err != nil {
				s.logger.Warn("failed to cache roster facts", zap.String("key", key), zap.Error(err))
			}
		}
	}
	return facts, nil
}

// LoadPartition loads facts and partitions them in one call.
func (s *EligibilityService) LoadPartition(ctx context.Context, classID, termID string) (models.EligibilityPartition, error) {
	facts, err := s.LoadFacts(ctx, classID, termID)
	if err != nil {
		return models.EligibilityPartition{}, err
	}
	return Partition(facts), nil
}

func (s *EligibilityService) recordCache(hit bool) {
	if s.metrics != nil {
		s.metrics.RecordCacheOperation(hit)
	}
}

func factsCacheKey(classID, termID string) string {
	return fmt.Sprintf("eligibility:facts:%s:%s", classID, termID)
}
