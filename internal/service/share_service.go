package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/edubridge/reportcard-api/internal/models"
	apperrors "github.com/edubridge/reportcard-api/pkg/errors"
	"github.com/edubridge/reportcard-api/pkg/export"
)

type shareLinkStore interface {
	GetByStudentTerm(ctx context.Context, studentID, termID string) (*models.ShareLink, error)
	GetByToken(ctx context.Context, token string) (*models.ShareLink, error)
	Upsert(ctx context.Context, link *models.ShareLink) error
}

type rosterEntrySource interface {
	GetEntry(ctx context.Context, studentID, termID string) (*models.RosterEntry, error)
}

type reportCatalog interface {
	Exists(ctx context.Context, studentID, termID string) (bool, error)
	MarkPublished(ctx context.Context, studentID, termID string) error
}

// ShareConfig tunes link issuance.
type ShareConfig struct {
	PublicBaseURL    string
	DefaultExpiryHrs int
	MaxBulkSelection int
}

// ShareLinkResult is one student's outcome from a bulk issue request. Error
// is empty on success; failures never stop processing of the rest.
type ShareLinkResult struct {
	StudentID string    `json:"student_id"`
	Name      string    `json:"name"`
	URL       string    `json:"url,omitempty"`
	Token     string    `json:"token,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// ShareService issues and resolves public report share links. A live token
// for a (student, term) pair is always reused; a new one is minted only when
// none exists or the previous one expired.
type ShareService struct {
	links   shareLinkStore
	roster  rosterEntrySource
	reports reportCatalog
	cfg     ShareConfig
	logger  *zap.Logger
	now     func() time.Time
}

// NewShareService constructs a ShareService.
func NewShareService(links shareLinkStore, roster rosterEntrySource, reports reportCatalog, cfg ShareConfig, logger *zap.Logger) *ShareService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DefaultExpiryHrs <= 0 {
		cfg.DefaultExpiryHrs = 72
	}
	if cfg.MaxBulkSelection <= 0 {
		cfg.MaxBulkSelection = 200
	}
	return &ShareService{
		links:   links,
		roster:  roster,
		reports: reports,
		cfg:     cfg,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// IssueLinks processes each requested student independently and returns one
// result per student, successes and failures interleaved in request order.
func (s *ShareService) IssueLinks(ctx context.Context, studentIDs []string, termID string, expiryHours int) ([]ShareLinkResult, error) {
	if len(studentIDs) == 0 {
		return nil, apperrors.Clone(apperrors.ErrValidation, "at least one student must be selected")
	}
	if len(studentIDs) > s.cfg.MaxBulkSelection {
		return nil, apperrors.Clone(apperrors.ErrValidation,
			fmt.Sprintf("selection exceeds the limit of %d students", s.cfg.MaxBulkSelection))
	}
	if expiryHours <= 0 {
		expiryHours = s.cfg.DefaultExpiryHrs
	}

	results := make([]ShareLinkResult, 0, len(studentIDs))
	for _, studentID := range studentIDs {
		result := s.issueOne(ctx, studentID, termID, expiryHours)
		if result.Error != "" {
			s.logger.Warn("share link issuance failed",
				zap.String("student_id", studentID),
				zap.String("reason", result.Error))
		}
		results = append(results, result)
	}
	return results, nil
}

func (s *ShareService) issueOne(ctx context.Context, studentID, termID string, expiryHours int) ShareLinkResult {
	result := ShareLinkResult{StudentID: studentID}

	entry, err := s.roster.GetEntry(ctx, studentID, termID)
	if err != nil {
		result.Error = "student not enrolled for the selected term"
		return result
	}
	result.Name = entry.FullName

	// Only students with a stored report get a public link; otherwise the
	// URL would resolve to nothing.
	exists, err := s.reports.Exists(ctx, studentID, termID)
	if err != nil {
		result.Error = "could not verify report availability"
		return result
	}
	if !exists {
		result.Error = "no report found for the selected term"
		return result
	}

	now := s.now()
	link, err := s.links.GetByStudentTerm(ctx, studentID, termID)
	if err != nil || !link.Live(now) {
		token, mintErr := mintToken()
		if mintErr != nil {
			result.Error = "could not mint share token"
			return result
		}
		link = &models.ShareLink{
			StudentID: studentID,
			TermID:    termID,
			Token:     token,
			Slug:      Slugify(entry.FullName),
			ExpiresAt: now.Add(time.Duration(expiryHours) * time.Hour),
			Published: true,
		}
		if err := s.links.Upsert(ctx, link); err != nil {
			result.Error = "could not persist share link"
			return result
		}
		if err := s.reports.MarkPublished(ctx, studentID, termID); err != nil {
			s.logger.Warn("failed to flag report as published",
				zap.String("student_id", studentID), zap.Error(err))
		}
	}

	result.Token = link.Token
	result.ExpiresAt = link.ExpiresAt
	result.URL = s.PublicURL(link)
	return result
}

// PublicURL renders the retrieval URL for a link. The slug is cosmetic only.
func (s *ShareService) PublicURL(link *models.ShareLink) string {
	base := strings.TrimRight(s.cfg.PublicBaseURL, "/")
	return fmt.Sprintf("%s/report/%s/%s", base, link.Token, link.Slug)
}

// Resolve validates a public token and returns the live link. The slug part
// of the URL is never consulted.
func (s *ShareService) Resolve(ctx context.Context, token string) (*models.ShareLink, error) {
	link, err := s.links.GetByToken(ctx, token)
	if err != nil {
		return nil, apperrors.Clone(apperrors.ErrNotFound, "share link not found")
	}
	if !link.Live(s.now()) {
		return nil, apperrors.ErrLinkExpired
	}
	if !link.Published {
		return nil, apperrors.Clone(apperrors.ErrNotFound, "share link not found")
	}
	return link, nil
}

// StudentEntry loads the roster identity behind a resolved link.
func (s *ShareService) StudentEntry(ctx context.Context, link *models.ShareLink) (*models.RosterEntry, error) {
	entry, err := s.roster.GetEntry(ctx, link.StudentID, link.TermID)
	if err != nil {
		return nil, apperrors.Clone(apperrors.ErrNotFound, "student no longer enrolled for this term")
	}
	return entry, nil
}

// ExportCSV renders a bulk issuance result set as CSV for distribution.
func (s *ShareService) ExportCSV(results []ShareLinkResult) ([]byte, error) {
	rows := make([]map[string]string, 0, len(results))
	for _, r := range results {
		status := "issued"
		if r.Error != "" {
			status = r.Error
		}
		expires := ""
		if !r.ExpiresAt.IsZero() {
			expires = r.ExpiresAt.UTC().Format(time.RFC3339)
		}
		rows = append(rows, map[string]string{
			"Student":    r.Name,
			"Link":       r.URL,
			"Expires At": expires,
			"Status":     status,
		})
	}
	dataset := export.Dataset{
		Headers: []string{"Student", "Link", "Expires At", "Status"},
		Rows:    rows,
	}
	return export.NewCSVExporter().Render(dataset)
}

// Slugify maps a display name onto a lowercase URL slug.
func Slugify(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	lastDash := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		return "report"
	}
	return slug
}

func mintToken() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("mint share token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
