package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edubridge/reportcard-api/internal/models"
	apperrors "github.com/edubridge/reportcard-api/pkg/errors"
)

type memLinkStore struct {
	byPair  map[string]*models.ShareLink
	byToken map[string]*models.ShareLink
	upserts int
}

func newMemLinkStore() *memLinkStore {
	return &memLinkStore{byPair: map[string]*models.ShareLink{}, byToken: map[string]*models.ShareLink{}}
}

func pairKey(studentID, termID string) string { return studentID + "|" + termID }

func (m *memLinkStore) GetByStudentTerm(_ context.Context, studentID, termID string) (*models.ShareLink, error) {
	link, ok := m.byPair[pairKey(studentID, termID)]
	if !ok {
		return nil, errors.New("sql: no rows in result set")
	}
	copied := *link
	return &copied, nil
}

func (m *memLinkStore) GetByToken(_ context.Context, token string) (*models.ShareLink, error) {
	link, ok := m.byToken[token]
	if !ok {
		return nil, errors.New("sql: no rows in result set")
	}
	copied := *link
	return &copied, nil
}

func (m *memLinkStore) Upsert(_ context.Context, link *models.ShareLink) error {
	m.upserts++
	if old, ok := m.byPair[pairKey(link.StudentID, link.TermID)]; ok {
		delete(m.byToken, old.Token)
	}
	copied := *link
	m.byPair[pairKey(link.StudentID, link.TermID)] = &copied
	m.byToken[link.Token] = &copied
	return nil
}

type stubRoster struct {
	entries map[string]models.RosterEntry
}

func (s *stubRoster) GetEntry(_ context.Context, studentID, _ string) (*models.RosterEntry, error) {
	entry, ok := s.entries[studentID]
	if !ok {
		return nil, errors.New("sql: no rows in result set")
	}
	return &entry, nil
}

type stubCatalog struct {
	missing   map[string]bool
	published map[string]bool
}

func (s *stubCatalog) Exists(_ context.Context, studentID, _ string) (bool, error) {
	return !s.missing[studentID], nil
}

func (s *stubCatalog) MarkPublished(_ context.Context, studentID, _ string) error {
	if s.published == nil {
		s.published = map[string]bool{}
	}
	s.published[studentID] = true
	return nil
}

func newShareFixture() (*ShareService, *memLinkStore, *stubCatalog) {
	links := newMemLinkStore()
	catalog := &stubCatalog{}
	roster := &stubRoster{entries: map[string]models.RosterEntry{
		"s1": {StudentID: "s1", FullName: "Ada Obi", AdmissionNo: "ADM001"},
		"s2": {StudentID: "s2", FullName: "Ben Eze", AdmissionNo: "ADM002"},
	}}
	svc := NewShareService(links, roster, catalog, ShareConfig{
		PublicBaseURL:    "https://portal.example.com",
		DefaultExpiryHrs: 72,
	}, nil)
	return svc, links, catalog
}

func TestShareTokenReuseWithinValidity(t *testing.T) {
	svc, links, catalog := newShareFixture()

	first, err := svc.IssueLinks(context.Background(), []string{"s1"}, "term-1", 48)
	require.NoError(t, err)
	require.Len(t, first, 1)
	require.Empty(t, first[0].Error)
	assert.True(t, catalog.published["s1"])

	second, err := svc.IssueLinks(context.Background(), []string{"s1"}, "term-1", 48)
	require.NoError(t, err)

	assert.Equal(t, first[0].Token, second[0].Token, "live token must be reused")
	assert.Equal(t, first[0].URL, second[0].URL)
	assert.Equal(t, 1, links.upserts, "reuse must not rewrite the link")
}

func TestShareTokenRemintedAfterExpiry(t *testing.T) {
	svc, _, _ := newShareFixture()

	first, err := svc.IssueLinks(context.Background(), []string{"s1"}, "term-1", 1)
	require.NoError(t, err)

	// Jump past the expiry window.
	svc.now = func() time.Time { return time.Now().UTC().Add(2 * time.Hour) }

	second, err := svc.IssueLinks(context.Background(), []string{"s1"}, "term-1", 1)
	require.NoError(t, err)

	assert.NotEqual(t, first[0].Token, second[0].Token, "expired token must be replaced")
}

func TestShareBulkContinuesPastFailures(t *testing.T) {
	svc, _, _ := newShareFixture()

	results, err := svc.IssueLinks(context.Background(), []string{"s1", "missing", "s2"}, "term-1", 0)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Empty(t, results[0].Error)
	assert.Equal(t, "student not enrolled for the selected term", results[1].Error)
	assert.Empty(t, results[2].Error)
	assert.NotEmpty(t, results[2].URL)
}

func TestShareRequiresExistingReport(t *testing.T) {
	svc, links, catalog := newShareFixture()
	catalog.missing = map[string]bool{"s2": true}

	results, err := svc.IssueLinks(context.Background(), []string{"s1", "s2"}, "term-1", 0)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Empty(t, results[0].Error)
	assert.NotEmpty(t, results[0].URL)

	// No report means no link: nothing minted, nothing published.
	assert.Equal(t, "no report found for the selected term", results[1].Error)
	assert.Empty(t, results[1].URL)
	assert.Empty(t, results[1].Token)
	assert.False(t, catalog.published["s2"])
	assert.Equal(t, 1, links.upserts)
}

func TestSharePublicURLShape(t *testing.T) {
	svc, _, _ := newShareFixture()

	results, err := svc.IssueLinks(context.Background(), []string{"s1"}, "term-1", 0)
	require.NoError(t, err)

	url := results[0].URL
	assert.True(t, strings.HasPrefix(url, "https://portal.example.com/report/"), url)
	assert.True(t, strings.HasSuffix(url, "/ada-obi"), url)
}

func TestShareResolve(t *testing.T) {
	svc, links, _ := newShareFixture()

	results, err := svc.IssueLinks(context.Background(), []string{"s1"}, "term-1", 1)
	require.NoError(t, err)
	token := results[0].Token

	link, err := svc.Resolve(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "s1", link.StudentID)

	_, err = svc.Resolve(context.Background(), "no-such-token")
	require.Error(t, err)

	// Expired link resolves to a 410.
	svc.now = func() time.Time { return time.Now().UTC().Add(2 * time.Hour) }
	_, err = svc.Resolve(context.Background(), token)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrLinkExpired.Code, apperrors.FromError(err).Code)

	// Unpublished links behave as missing.
	svc.now = func() time.Time { return time.Now().UTC() }
	stored := links.byToken[token]
	stored.Published = false
	_, err = svc.Resolve(context.Background(), token)
	require.Error(t, err)
}

func TestShareExportCSV(t *testing.T) {
	svc, _, _ := newShareFixture()

	results, err := svc.IssueLinks(context.Background(), []string{"s1", "missing"}, "term-1", 0)
	require.NoError(t, err)

	data, err := svc.ExportCSV(results)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "Student,Link,Expires At,Status")
	assert.Contains(t, text, "Ada Obi")
	assert.Contains(t, text, "student not enrolled for the selected term")
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "ada-obi", Slugify("Ada Obi"))
	assert.Equal(t, "o-brien-sons", Slugify("O'Brien & Sons"))
	assert.Equal(t, "report", Slugify("!!!"))
}
