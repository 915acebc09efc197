package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shulecore/academic-api/internal/models"
	"github.com/shulecore/academic-api/internal/tenancy"
	appErrors "github.com/shulecore/academic-api/pkg/errors"
)

type mockSubjectEnrollmentRepo struct {
	records       map[string]*models.SubjectEnrollment
	batches       [][]models.SubjectEnrollment
	upserts       []*models.SubjectEnrollment
	upsertBatches [][]models.SubjectEnrollment
	batchErr      error
	dropped       []string
}

func subjectKey(enrollmentID, classSubjectID string) string {
	return enrollmentID + "/" + classSubjectID
}

func (m *mockSubjectEnrollmentRepo) CreateBatch(ctx context.Context, records []models.SubjectEnrollment) error {
	if m.batchErr != nil {
		return m.batchErr
	}
	m.batches = append(m.batches, records)
	return nil
}

func (m *mockSubjectEnrollmentRepo) Upsert(ctx context.Context, record *models.SubjectEnrollment) error {
	m.upserts = append(m.upserts, record)
	if m.records == nil {
		m.records = make(map[string]*models.SubjectEnrollment)
	}
	cp := *record
	cp.Status = models.SubjectEnrollmentStatusActive
	cp.DroppedAt = nil
	m.records[subjectKey(record.EnrollmentID, record.ClassSubjectID)] = &cp
	return nil
}

func (m *mockSubjectEnrollmentRepo) Find(ctx context.Context, enrollmentID, classSubjectID string, scope tenancy.Scope) (*models.SubjectEnrollment, error) {
	if record, ok := m.records[subjectKey(enrollmentID, classSubjectID)]; ok {
		cp := *record
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockSubjectEnrollmentRepo) Drop(ctx context.Context, enrollmentID, classSubjectID string, scope tenancy.Scope) error {
	key := subjectKey(enrollmentID, classSubjectID)
	record, ok := m.records[key]
	if !ok || record.Status == models.SubjectEnrollmentStatusDropped {
		return sql.ErrNoRows
	}
	now := time.Now()
	record.Status = models.SubjectEnrollmentStatusDropped
	record.DroppedAt = &now
	m.dropped = append(m.dropped, key)
	return nil
}

func (m *mockSubjectEnrollmentRepo) List(ctx context.Context, filter models.SubjectEnrollmentFilter, scope tenancy.Scope) ([]models.SubjectEnrollmentDetail, int, error) {
	return nil, 0, nil
}

func (m *mockSubjectEnrollmentRepo) UpsertBatch(ctx context.Context, records []models.SubjectEnrollment) error {
	if m.batchErr != nil {
		return m.batchErr
	}
	m.upsertBatches = append(m.upsertBatches, records)
	return nil
}

type mockEnrollmentReader struct {
	enrollments map[string]*models.Enrollment
}

func (m *mockEnrollmentReader) FindByID(ctx context.Context, id string, scope tenancy.Scope) (*models.Enrollment, error) {
	if enrollment, ok := m.enrollments[id]; ok {
		if scope.Restricted() && !scope.Allows(enrollment.SchoolID) {
			return nil, sql.ErrNoRows
		}
		cp := *enrollment
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

type mockBindingCatalog struct {
	core      []models.ClassSubjectDetail
	coreErr   error
	bindings  map[string]*models.ClassSubject
	available []models.ClassSubjectDetail
}

func (m *mockBindingCatalog) CoreSubjects(ctx context.Context, classID string, scope tenancy.Scope) ([]models.ClassSubjectDetail, error) {
	if m.coreErr != nil {
		return nil, m.coreErr
	}
	return m.core, nil
}

func (m *mockBindingCatalog) FindBinding(ctx context.Context, id string, scope tenancy.Scope) (*models.ClassSubject, error) {
	if binding, ok := m.bindings[id]; ok {
		cp := *binding
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockBindingCatalog) AvailableElectives(ctx context.Context, enrollmentID, classID string, scope tenancy.Scope) ([]models.ClassSubjectDetail, error) {
	return m.available, nil
}

func coreBinding(id string) models.ClassSubjectDetail {
	return models.ClassSubjectDetail{
		ClassSubject: models.ClassSubject{ID: id, SchoolID: "sch-1", ClassID: "cls-1", Category: models.SubjectCategoryCore},
	}
}

type subjectFixture struct {
	repo    *mockSubjectEnrollmentRepo
	catalog *mockBindingCatalog
	svc     *SubjectEnrollmentService
}

func newSubjectFixture(t *testing.T) *subjectFixture {
	t.Helper()
	repo := &mockSubjectEnrollmentRepo{}
	enrollments := &mockEnrollmentReader{enrollments: map[string]*models.Enrollment{
		"enr-1": {ID: "enr-1", SchoolID: "sch-1", StudentID: "stu-1", ClassID: "cls-1", Status: models.EnrollmentStatusActive},
		"enr-2": {ID: "enr-2", SchoolID: "sch-1", StudentID: "stu-2", ClassID: "cls-1", Status: models.EnrollmentStatusActive},
		"enr-other-class": {ID: "enr-other-class", SchoolID: "sch-1", StudentID: "stu-3", ClassID: "cls-2", Status: models.EnrollmentStatusActive},
	}}
	catalog := &mockBindingCatalog{bindings: map[string]*models.ClassSubject{
		"cs-1": {ID: "cs-1", SchoolID: "sch-1", ClassID: "cls-1", Category: models.SubjectCategoryElective},
		"cs-foreign": {ID: "cs-foreign", SchoolID: "sch-2", ClassID: "cls-1", Category: models.SubjectCategoryElective},
		"cs-wrong-class": {ID: "cs-wrong-class", SchoolID: "sch-1", ClassID: "cls-9", Category: models.SubjectCategoryElective},
	}}
	svc := NewSubjectEnrollmentService(repo, enrollments, catalog, zap.NewNop())
	return &subjectFixture{repo: repo, catalog: catalog, svc: svc}
}

func TestAutoEnrollCore(t *testing.T) {
	f := newSubjectFixture(t)
	f.catalog.core = []models.ClassSubjectDetail{coreBinding("cs-a"), coreBinding("cs-b"), coreBinding("cs-c")}

	attached, err := f.svc.AutoEnrollCore(context.Background(), "enr-1", "cls-1", "sch-1", "stu-1", tenancy.ForSchool("sch-1"))
	require.NoError(t, err)
	assert.Equal(t, 3, attached)
	require.Len(t, f.repo.batches, 1)
	for _, record := range f.repo.batches[0] {
		assert.Equal(t, "enr-1", record.EnrollmentID)
		assert.Equal(t, models.SubjectEnrollmentStatusActive, record.Status)
	}
}

func TestAutoEnrollCoreNoBindings(t *testing.T) {
	f := newSubjectFixture(t)

	attached, err := f.svc.AutoEnrollCore(context.Background(), "enr-1", "cls-1", "sch-1", "stu-1", tenancy.ForSchool("sch-1"))
	require.NoError(t, err)
	assert.Zero(t, attached)
	assert.Empty(t, f.repo.batches)
}

func TestAutoEnrollCoreBatchFailure(t *testing.T) {
	f := newSubjectFixture(t)
	f.catalog.core = []models.ClassSubjectDetail{coreBinding("cs-a")}
	f.repo.batchErr = fmt.Errorf("deadlock detected")

	_, err := f.svc.AutoEnrollCore(context.Background(), "enr-1", "cls-1", "sch-1", "stu-1", tenancy.ForSchool("sch-1"))
	require.Error(t, err)
}

func TestEnrollInSubject(t *testing.T) {
	f := newSubjectFixture(t)

	record, err := f.svc.EnrollInSubject(context.Background(), "stu-1", "cs-1", "enr-1", tenancy.ForSchool("sch-1"))
	require.NoError(t, err)
	assert.Equal(t, models.SubjectEnrollmentStatusActive, record.Status)
	assert.Equal(t, "sch-1", record.SchoolID)
	require.Len(t, f.repo.upserts, 1)
}

func TestEnrollInSubjectConflict(t *testing.T) {
	f := newSubjectFixture(t)
	f.repo.records = map[string]*models.SubjectEnrollment{
		subjectKey("enr-1", "cs-1"): {ID: "se-1", EnrollmentID: "enr-1", ClassSubjectID: "cs-1", Status: models.SubjectEnrollmentStatusActive},
	}

	_, err := f.svc.EnrollInSubject(context.Background(), "stu-1", "cs-1", "enr-1", tenancy.ForSchool("sch-1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestEnrollInSubjectReactivatesDropped(t *testing.T) {
	f := newSubjectFixture(t)
	droppedAt := time.Now()
	f.repo.records = map[string]*models.SubjectEnrollment{
		subjectKey("enr-1", "cs-1"): {
			ID: "se-1", EnrollmentID: "enr-1", ClassSubjectID: "cs-1",
			Status: models.SubjectEnrollmentStatusDropped, DroppedAt: &droppedAt,
		},
	}

	record, err := f.svc.EnrollInSubject(context.Background(), "stu-1", "cs-1", "enr-1", tenancy.ForSchool("sch-1"))
	require.NoError(t, err)
	// The dropped row is reactivated in place, not duplicated.
	assert.Equal(t, "se-1", record.ID)
	assert.Equal(t, models.SubjectEnrollmentStatusActive, record.Status)
	assert.Nil(t, record.DroppedAt)
}

func TestEnrollInSubjectWrongStudent(t *testing.T) {
	f := newSubjectFixture(t)

	_, err := f.svc.EnrollInSubject(context.Background(), "stu-2", "cs-1", "enr-1", tenancy.ForSchool("sch-1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestEnrollInSubjectWrongClass(t *testing.T) {
	f := newSubjectFixture(t)

	_, err := f.svc.EnrollInSubject(context.Background(), "stu-1", "cs-wrong-class", "enr-1", tenancy.ForSchool("sch-1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestEnrollInSubjectForeignBinding(t *testing.T) {
	f := newSubjectFixture(t)

	_, err := f.svc.EnrollInSubject(context.Background(), "stu-1", "cs-foreign", "enr-1", tenancy.ForSchool("sch-1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestAttachElectivesSkipsFailures(t *testing.T) {
	f := newSubjectFixture(t)
	enrollment := &models.Enrollment{ID: "enr-1", SchoolID: "sch-1", StudentID: "stu-1", ClassID: "cls-1"}

	attached, err := f.svc.AttachElectives(context.Background(), enrollment, []string{"cs-1", "cs-missing", "cs-wrong-class"}, tenancy.ForSchool("sch-1"))
	require.NoError(t, err)
	assert.Equal(t, 1, attached)
}

func TestBulkEnroll(t *testing.T) {
	f := newSubjectFixture(t)

	count, err := f.svc.BulkEnroll(context.Background(), []string{"enr-1", "enr-2"}, "cs-1", tenancy.ForSchool("sch-1"))
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	require.Len(t, f.repo.upsertBatches, 1)
	assert.Len(t, f.repo.upsertBatches[0], 2)
}

func TestBulkEnrollClassMismatch(t *testing.T) {
	f := newSubjectFixture(t)

	_, err := f.svc.BulkEnroll(context.Background(), []string{"enr-1", "enr-other-class"}, "cs-1", tenancy.ForSchool("sch-1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, f.repo.upsertBatches)
}

func TestBulkEnrollEmpty(t *testing.T) {
	f := newSubjectFixture(t)

	_, err := f.svc.BulkEnroll(context.Background(), nil, "cs-1", tenancy.ForSchool("sch-1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestDropSubject(t *testing.T) {
	f := newSubjectFixture(t)
	f.repo.records = map[string]*models.SubjectEnrollment{
		subjectKey("enr-1", "cs-1"): {ID: "se-1", EnrollmentID: "enr-1", ClassSubjectID: "cs-1", Status: models.SubjectEnrollmentStatusActive},
	}

	err := f.svc.Drop(context.Background(), "enr-1", "cs-1", tenancy.ForSchool("sch-1"))
	require.NoError(t, err)
	assert.Equal(t, models.SubjectEnrollmentStatusDropped, f.repo.records[subjectKey("enr-1", "cs-1")].Status)
}

func TestDropSubjectNotFound(t *testing.T) {
	f := newSubjectFixture(t)

	err := f.svc.Drop(context.Background(), "enr-1", "cs-1", tenancy.ForSchool("sch-1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestAvailableElectives(t *testing.T) {
	f := newSubjectFixture(t)
	f.catalog.available = []models.ClassSubjectDetail{coreBinding("cs-e1"), coreBinding("cs-e2")}

	bindings, err := f.svc.AvailableElectives(context.Background(), "enr-1", tenancy.ForSchool("sch-1"))
	require.NoError(t, err)
	assert.Len(t, bindings, 2)
}

func TestAvailableElectivesUnknownEnrollment(t *testing.T) {
	f := newSubjectFixture(t)

	_, err := f.svc.AvailableElectives(context.Background(), "enr-missing", tenancy.ForSchool("sch-1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
