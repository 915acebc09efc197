package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shulecore/academic-api/internal/models"
	"github.com/shulecore/academic-api/internal/tenancy"
	appErrors "github.com/shulecore/academic-api/pkg/errors"
)

type mockStudentRepo struct {
	students map[string]*models.Student
	created  []*models.Student
}

func (m *mockStudentRepo) FindByID(ctx context.Context, id string, scope tenancy.Scope) (*models.Student, error) {
	student, ok := m.students[id]
	if !ok || !scope.Allows(student.SchoolID) {
		return nil, sql.ErrNoRows
	}
	return student, nil
}

func (m *mockStudentRepo) List(ctx context.Context, filter models.StudentFilter, scope tenancy.Scope) ([]models.Student, int, error) {
	var out []models.Student
	for _, student := range m.students {
		if scope.Allows(student.SchoolID) {
			out = append(out, *student)
		}
	}
	return out, len(out), nil
}

func (m *mockStudentRepo) Create(ctx context.Context, student *models.Student) error {
	student.ID = "stu-generated"
	m.created = append(m.created, student)
	return nil
}

type mockNumberIssuer struct {
	nextErr error
	issued  int
	kinds   []models.NumberKind
	schools []string
}

func (m *mockNumberIssuer) Next(ctx context.Context, kind models.NumberKind, scope tenancy.Scope, schoolID string, overrides *SequenceConfigOverrides) (string, error) {
	if m.nextErr != nil {
		return "", m.nextErr
	}
	m.issued++
	m.kinds = append(m.kinds, kind)
	m.schools = append(m.schools, schoolID)
	return "ADM/2026/NRB/0042", nil
}

func validStudentRequest() CreateStudentRequest {
	return CreateStudentRequest{
		FullName:  "Amina Odhiambo",
		Gender:    "FEMALE",
		BirthDate: time.Date(2012, 3, 14, 0, 0, 0, 0, time.UTC),
	}
}

func TestStudentServiceCreateMintsAdmissionNumber(t *testing.T) {
	repo := &mockStudentRepo{students: map[string]*models.Student{}}
	issuer := &mockNumberIssuer{}
	svc := NewStudentService(repo, issuer, nil, nil)

	student, err := svc.Create(context.Background(), validStudentRequest(), tenancy.ForSchool("sch-1"))
	require.NoError(t, err)
	assert.Equal(t, "ADM/2026/NRB/0042", student.AdmissionNo)
	assert.Equal(t, "sch-1", student.SchoolID)
	assert.True(t, student.Active)
	require.Len(t, issuer.kinds, 1)
	assert.Equal(t, models.NumberKindAdmission, issuer.kinds[0])
	assert.Equal(t, []string{"sch-1"}, issuer.schools)
}

func TestStudentServiceCreateSuperuserRequiresSchool(t *testing.T) {
	repo := &mockStudentRepo{students: map[string]*models.Student{}}
	svc := NewStudentService(repo, &mockNumberIssuer{}, nil, nil)

	_, err := svc.Create(context.Background(), validStudentRequest(), tenancy.Superuser())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	req := validStudentRequest()
	req.SchoolID = "sch-2"
	student, err := svc.Create(context.Background(), req, tenancy.Superuser())
	require.NoError(t, err)
	assert.Equal(t, "sch-2", student.SchoolID)
}

func TestStudentServiceCreateRejectsForeignSchool(t *testing.T) {
	repo := &mockStudentRepo{students: map[string]*models.Student{}}
	svc := NewStudentService(repo, &mockNumberIssuer{}, nil, nil)

	req := validStudentRequest()
	req.SchoolID = "sch-2"
	_, err := svc.Create(context.Background(), req, tenancy.ForSchool("sch-1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrAccessDenied.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.created)
}

func TestStudentServiceCreateInvalidGender(t *testing.T) {
	repo := &mockStudentRepo{students: map[string]*models.Student{}}
	issuer := &mockNumberIssuer{}
	svc := NewStudentService(repo, issuer, nil, nil)

	req := validStudentRequest()
	req.Gender = "OTHER"
	_, err := svc.Create(context.Background(), req, tenancy.ForSchool("sch-1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Zero(t, issuer.issued)
}

func TestStudentServiceCreateIssuerFailure(t *testing.T) {
	repo := &mockStudentRepo{students: map[string]*models.Student{}}
	issuer := &mockNumberIssuer{nextErr: appErrors.Clone(appErrors.ErrTransient, "sequence contention")}
	svc := NewStudentService(repo, issuer, nil, nil)

	_, err := svc.Create(context.Background(), validStudentRequest(), tenancy.ForSchool("sch-1"))
	require.Error(t, err)
	assert.True(t, appErrors.IsTransient(err))
	assert.Empty(t, repo.created)
}

func TestStudentServiceGetCrossTenant(t *testing.T) {
	repo := &mockStudentRepo{students: map[string]*models.Student{
		"stu-1": {ID: "stu-1", SchoolID: "sch-2", FullName: "Brian Mwangi"},
	}}
	svc := NewStudentService(repo, &mockNumberIssuer{}, nil, nil)

	_, err := svc.Get(context.Background(), "stu-1", tenancy.ForSchool("sch-1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	student, err := svc.Get(context.Background(), "stu-1", tenancy.ForSchool("sch-2"))
	require.NoError(t, err)
	assert.Equal(t, "Brian Mwangi", student.FullName)
}

func TestStudentServiceListDefaultsPagination(t *testing.T) {
	repo := &mockStudentRepo{students: map[string]*models.Student{
		"stu-1": {ID: "stu-1", SchoolID: "sch-1"},
		"stu-2": {ID: "stu-2", SchoolID: "sch-1"},
	}}
	svc := NewStudentService(repo, &mockNumberIssuer{}, nil, nil)

	students, pagination, err := svc.List(context.Background(), models.StudentFilter{}, tenancy.ForSchool("sch-1"))
	require.NoError(t, err)
	assert.Len(t, students, 2)
	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, 20, pagination.PageSize)
	assert.Equal(t, 2, pagination.TotalCount)
}

func TestStudentServiceListFailsClosed(t *testing.T) {
	svc := NewStudentService(&mockStudentRepo{}, &mockNumberIssuer{}, nil, nil)

	_, _, err := svc.List(context.Background(), models.StudentFilter{}, tenancy.Scope{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrAccessDenied.Code, appErrors.FromError(err).Code)
}
