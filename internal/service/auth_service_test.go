package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/edubridge/reportcard-api/internal/models"
	apperrors "github.com/edubridge/reportcard-api/pkg/errors"
)

type stubUserRepo struct {
	users     map[string]*models.User
	lastLogin map[string]time.Time
}

func (s *stubUserRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	user, ok := s.users[email]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

func (s *stubUserRepo) FindByID(_ context.Context, id string) (*models.User, error) {
	for _, user := range s.users {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *stubUserRepo) UpdateLastLogin(_ context.Context, id string, ts time.Time) error {
	if s.lastLogin == nil {
		s.lastLogin = map[string]time.Time{}
	}
	s.lastLogin[id] = ts
	return nil
}

func newAuthFixture(t *testing.T) (*AuthService, *stubUserRepo) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret-pass"), bcrypt.MinCost)
	require.NoError(t, err)

	repo := &stubUserRepo{users: map[string]*models.User{
		"admin@school.test": {
			ID:           "u1",
			Email:        "admin@school.test",
			FullName:     "Ada Obi",
			Role:         models.RoleAdmin,
			PasswordHash: string(hash),
			Active:       true,
		},
	}}
	svc := NewAuthService(repo, nil, nil, AuthConfig{
		AccessTokenSecret: "test-secret",
		AccessTokenExpiry: time.Hour,
		Issuer:            "reportcard-api",
		Audience:          []string{"reportcard-clients"},
	})
	return svc, repo
}

func TestLoginIssuesValidToken(t *testing.T) {
	svc, repo := newAuthFixture(t)

	res, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "admin@school.test",
		Password: "s3cret-pass",
	})
	require.NoError(t, err)
	require.NotEmpty(t, res.AccessToken)
	assert.Equal(t, "u1", res.User.ID)
	assert.False(t, repo.lastLogin["u1"].IsZero())

	claims, err := svc.ValidateToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, models.RoleAdmin, claims.Role)
	assert.Equal(t, "reportcard-api", claims.Issuer)
	assert.Equal(t, []string{"reportcard-clients"}, []string(claims.Audience))
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	svc, _ := newAuthFixture(t)

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "admin@school.test",
		Password: "wrong",
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrInvalidCredentials.Code, apperrors.FromError(err).Code)
}

func TestLoginUnknownUserLooksLikeBadCredentials(t *testing.T) {
	svc, _ := newAuthFixture(t)

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "nobody@school.test",
		Password: "s3cret-pass",
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrInvalidCredentials.Code, apperrors.FromError(err).Code)
}

func TestValidateTokenRejectsTampering(t *testing.T) {
	svc, _ := newAuthFixture(t)

	res, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "admin@school.test",
		Password: "s3cret-pass",
	})
	require.NoError(t, err)

	_, err = svc.ValidateToken(res.AccessToken + "x")
	require.Error(t, err)
}
