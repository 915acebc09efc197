package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shulecore/academic-api/internal/models"
	"github.com/shulecore/academic-api/internal/tenancy"
	appErrors "github.com/shulecore/academic-api/pkg/errors"
)

type mockClassSubjectRepo struct {
	bindings  map[string]*models.ClassSubject
	byClass   []models.ClassSubjectDetail
	listCalls int
	created   []*models.ClassSubject
}

func (m *mockClassSubjectRepo) FindByID(ctx context.Context, id string, scope tenancy.Scope) (*models.ClassSubject, error) {
	panic("not used")
}

func (m *mockClassSubjectRepo) ListByClass(ctx context.Context, classID string, category models.SubjectCategory, scope tenancy.Scope) ([]models.ClassSubjectDetail, error) {
	m.listCalls++
	return m.byClass, nil
}

func (m *mockClassSubjectRepo) ListAvailableElectives(ctx context.Context, enrollmentID, classID string, scope tenancy.Scope) ([]models.ClassSubjectDetail, error) {
	return m.byClass, nil
}

func (m *mockClassSubjectRepo) Create(ctx context.Context, binding *models.ClassSubject) error {
	m.created = append(m.created, binding)
	return nil
}

type mockCatalogCache struct {
	entries map[string][]byte
	deleted []string
}

func (m *mockCatalogCache) Get(ctx context.Context, key string, dest interface{}) error {
	payload, ok := m.entries[key]
	if !ok {
		return appErrors.Clone(appErrors.ErrCacheMiss, "cache miss")
	}
	return json.Unmarshal(payload, dest)
}

func (m *mockCatalogCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if m.entries == nil {
		m.entries = make(map[string][]byte)
	}
	m.entries[key] = payload
	return nil
}

func (m *mockCatalogCache) DeleteByPattern(ctx context.Context, pattern string) error {
	m.deleted = append(m.deleted, pattern)
	return nil
}

func newCatalogFixture(t *testing.T, enabled bool) (*CatalogService, *mockClassSubjectRepo, *mockCatalogCache) {
	t.Helper()
	repo := &mockClassSubjectRepo{byClass: []models.ClassSubjectDetail{
		{ClassSubject: models.ClassSubject{ID: "cs-1", SchoolID: "sch-1", ClassID: "cls-1", Category: models.SubjectCategoryCore}, SubjectName: "Mathematics"},
	}}
	cache := &mockCatalogCache{}
	svc := NewCatalogService(repo, cache, zap.NewNop(), nil, time.Minute, enabled)
	return svc, repo, cache
}

func TestCatalogListByClassCachesResult(t *testing.T) {
	svc, repo, cache := newCatalogFixture(t, true)
	scope := tenancy.ForSchool("sch-1")

	first, err := svc.ListByClass(context.Background(), "cls-1", "", scope)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, 1, repo.listCalls)
	assert.Contains(t, cache.entries, "catalog:class_subjects:sch-1:cls-1:ALL")

	second, err := svc.ListByClass(context.Background(), "cls-1", "", scope)
	require.NoError(t, err)
	require.Len(t, second, 1)
	// Served from cache.
	assert.Equal(t, 1, repo.listCalls)
}

func TestCatalogCacheKeysAreTenantScoped(t *testing.T) {
	svc, repo, _ := newCatalogFixture(t, true)

	_, err := svc.ListByClass(context.Background(), "cls-1", "", tenancy.ForSchool("sch-1"))
	require.NoError(t, err)
	_, err = svc.ListByClass(context.Background(), "cls-1", "", tenancy.ForSchool("sch-2"))
	require.NoError(t, err)
	// Different tenants never share a cache entry.
	assert.Equal(t, 2, repo.listCalls)
}

func TestCatalogListByClassCacheDisabled(t *testing.T) {
	svc, repo, cache := newCatalogFixture(t, false)
	scope := tenancy.ForSchool("sch-1")

	_, err := svc.ListByClass(context.Background(), "cls-1", "", scope)
	require.NoError(t, err)
	_, err = svc.ListByClass(context.Background(), "cls-1", "", scope)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.listCalls)
	assert.Empty(t, cache.entries)
}

func TestCatalogListByClassUnknownCategory(t *testing.T) {
	svc, _, _ := newCatalogFixture(t, true)

	_, err := svc.ListByClass(context.Background(), "cls-1", models.SubjectCategory("REMEDIAL"), tenancy.ForSchool("sch-1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCatalogCreateBindingInvalidatesCache(t *testing.T) {
	svc, repo, cache := newCatalogFixture(t, true)
	scope := tenancy.ForSchool("sch-1")

	_, err := svc.ListByClass(context.Background(), "cls-1", "", scope)
	require.NoError(t, err)
	require.NotEmpty(t, cache.entries)

	err = svc.CreateBinding(context.Background(), &models.ClassSubject{
		SchoolID:       "sch-1",
		ClassID:        "cls-1",
		SubjectID:      "sub-1",
		AcademicYearID: "ay-2026",
		Category:       models.SubjectCategoryElective,
	}, scope)
	require.NoError(t, err)
	require.Len(t, repo.created, 1)
	require.Len(t, cache.deleted, 1)
	assert.Equal(t, "catalog:class_subjects:*:cls-1:*", cache.deleted[0])
}

func TestCatalogCreateBindingForeignSchool(t *testing.T) {
	svc, repo, _ := newCatalogFixture(t, true)

	err := svc.CreateBinding(context.Background(), &models.ClassSubject{
		SchoolID:       "sch-2",
		ClassID:        "cls-1",
		SubjectID:      "sub-1",
		AcademicYearID: "ay-2026",
		Category:       models.SubjectCategoryElective,
	}, tenancy.ForSchool("sch-1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrAccessDenied.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.created)
}

func TestCatalogCreateBindingUnknownCategory(t *testing.T) {
	svc, repo, _ := newCatalogFixture(t, true)

	err := svc.CreateBinding(context.Background(), &models.ClassSubject{
		SchoolID:       "sch-1",
		ClassID:        "cls-1",
		SubjectID:      "sub-1",
		AcademicYearID: "ay-2026",
		Category:       models.SubjectCategory("REMEDIAL"),
	}, tenancy.ForSchool("sch-1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.created)
}
