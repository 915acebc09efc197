package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shulecore/academic-api/internal/models"
	"github.com/shulecore/academic-api/internal/tenancy"
	appErrors "github.com/shulecore/academic-api/pkg/errors"
)

type mockSequenceRepo struct {
	values        map[models.SequenceKey]int64
	incrementErrs []error
	increments    int
	resets        []models.SequenceKey
}

func (m *mockSequenceRepo) Increment(ctx context.Context, key models.SequenceKey, prefix string) (int64, error) {
	m.increments++
	if len(m.incrementErrs) > 0 {
		err := m.incrementErrs[0]
		m.incrementErrs = m.incrementErrs[1:]
		if err != nil {
			return 0, err
		}
	}
	if m.values == nil {
		m.values = make(map[models.SequenceKey]int64)
	}
	m.values[key]++
	return m.values[key], nil
}

func (m *mockSequenceRepo) Find(ctx context.Context, key models.SequenceKey) (*models.Sequence, error) {
	if value, ok := m.values[key]; ok {
		return &models.Sequence{Kind: key.Kind, SchoolID: key.SchoolID, Period: key.Period, CurrentValue: value}, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockSequenceRepo) Reset(ctx context.Context, key models.SequenceKey, startValue int64, prefix string) error {
	if m.values == nil {
		m.values = make(map[models.SequenceKey]int64)
	}
	m.values[key] = startValue
	m.resets = append(m.resets, key)
	return nil
}

type mockSchoolReader struct {
	schools map[string]*models.School
}

func (m *mockSchoolReader) FindByID(ctx context.Context, id string) (*models.School, error) {
	if school, ok := m.schools[id]; ok {
		return school, nil
	}
	return nil, sql.ErrNoRows
}

func fixedClock(year int) func() time.Time {
	return func() time.Time {
		return time.Date(year, time.March, 15, 12, 0, 0, 0, time.UTC)
	}
}

func newSequenceFixture(t *testing.T) (*SequenceService, *mockSequenceRepo) {
	t.Helper()
	repo := &mockSequenceRepo{}
	schools := &mockSchoolReader{schools: map[string]*models.School{
		"sch-1": {ID: "sch-1", Code: "NRB"},
	}}
	svc := NewSequenceService(repo, schools, zap.NewNop(), nil, SequenceServiceOptions{
		RetryAttempts: 3,
		RetryBackoff:  time.Millisecond,
	})
	svc.now = fixedClock(2026)
	return svc, repo
}

func TestFormatNumber(t *testing.T) {
	admission, _ := ConfigForKind(models.NumberKindAdmission)
	employee, _ := ConfigForKind(models.NumberKindEmployee)
	receipt, _ := ConfigForKind(models.NumberKindReceipt)

	assert.Equal(t, "ADM/2026/NRB/0007", FormatNumber(admission, 7, 2026, "NRB"))
	assert.Equal(t, "EMP/NRB/0042", FormatNumber(employee, 42, 2026, "NRB"))
	assert.Equal(t, "RCT/2026/000123", FormatNumber(receipt, 123, 2026, ""))

	// Width is a minimum, not a truncation boundary.
	assert.Equal(t, "ADM/2026/NRB/123456", FormatNumber(admission, 123456, 2026, "NRB"))

	// Absent school code drops its segment entirely.
	assert.Equal(t, "ADM/2026/0001", FormatNumber(admission, 1, 2026, ""))
}

func TestSequenceServiceNext(t *testing.T) {
	svc, repo := newSequenceFixture(t)
	scope := tenancy.ForSchool("sch-1")

	first, err := svc.Next(context.Background(), models.NumberKindAdmission, scope, "", nil)
	require.NoError(t, err)
	assert.Equal(t, "ADM/2026/NRB/0001", first)

	second, err := svc.Next(context.Background(), models.NumberKindAdmission, scope, "", nil)
	require.NoError(t, err)
	assert.Equal(t, "ADM/2026/NRB/0002", second)

	// Annual kinds fold the year into the key.
	key := models.SequenceKey{Kind: models.NumberKindAdmission, SchoolID: "sch-1", Period: "2026"}
	assert.Equal(t, int64(2), repo.values[key])
}

func TestSequenceServiceNextPerpetualKey(t *testing.T) {
	svc, repo := newSequenceFixture(t)
	scope := tenancy.ForSchool("sch-1")

	number, err := svc.Next(context.Background(), models.NumberKindEmployee, scope, "", nil)
	require.NoError(t, err)
	assert.Equal(t, "EMP/NRB/0001", number)

	key := models.SequenceKey{Kind: models.NumberKindEmployee, SchoolID: "sch-1"}
	assert.Equal(t, int64(1), repo.values[key])
}

func TestSequenceServiceNextUnknownKind(t *testing.T) {
	svc, _ := newSequenceFixture(t)

	_, err := svc.Next(context.Background(), models.NumberKind("INVOICE"), tenancy.ForSchool("sch-1"), "", nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSequenceServiceNextRecoversAfterConflict(t *testing.T) {
	svc, repo := newSequenceFixture(t)
	repo.incrementErrs = []error{&pq.Error{Code: "40001"}}

	number, err := svc.Next(context.Background(), models.NumberKindAdmission, tenancy.ForSchool("sch-1"), "", nil)
	require.NoError(t, err)
	assert.Equal(t, "ADM/2026/NRB/0001", number)
	assert.Equal(t, 2, repo.increments)
}

func TestSequenceServiceNextExhaustsRetries(t *testing.T) {
	svc, repo := newSequenceFixture(t)
	repo.incrementErrs = []error{
		&pq.Error{Code: "40001"},
		&pq.Error{Code: "40001"},
		&pq.Error{Code: "40001"},
	}

	_, err := svc.Next(context.Background(), models.NumberKindAdmission, tenancy.ForSchool("sch-1"), "", nil)
	require.Error(t, err)
	assert.True(t, appErrors.IsTransient(err))
	assert.Equal(t, 3, repo.increments)
}

func TestSequenceServiceNextNonRetryableError(t *testing.T) {
	svc, repo := newSequenceFixture(t)
	repo.incrementErrs = []error{fmt.Errorf("connection refused")}

	_, err := svc.Next(context.Background(), models.NumberKindAdmission, tenancy.ForSchool("sch-1"), "", nil)
	require.Error(t, err)
	assert.False(t, appErrors.IsTransient(err))
	assert.Equal(t, 1, repo.increments)
}

func TestSequenceServiceNextRejectsForeignSchool(t *testing.T) {
	svc, repo := newSequenceFixture(t)

	_, err := svc.Next(context.Background(), models.NumberKindAdmission, tenancy.ForSchool("sch-1"), "sch-2", nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrAccessDenied.Code, appErrors.FromError(err).Code)
	assert.Zero(t, repo.increments)
}

func TestSequenceServiceNextOverrides(t *testing.T) {
	svc, _ := newSequenceFixture(t)
	prefix := "STU"
	width := 6

	number, err := svc.Next(context.Background(), models.NumberKindAdmission, tenancy.ForSchool("sch-1"), "", &SequenceConfigOverrides{Prefix: &prefix, Width: &width})
	require.NoError(t, err)
	assert.Equal(t, "STU/2026/NRB/000001", number)
}

func TestSequenceServicePeek(t *testing.T) {
	svc, repo := newSequenceFixture(t)
	scope := tenancy.ForSchool("sch-1")

	// Fresh counter previews 1.
	preview, err := svc.Peek(context.Background(), models.NumberKindAdmission, scope, "")
	require.NoError(t, err)
	assert.Equal(t, "ADM/2026/NRB/0001", preview)
	assert.Zero(t, repo.increments)

	issued, err := svc.Next(context.Background(), models.NumberKindAdmission, scope, "", nil)
	require.NoError(t, err)
	assert.Equal(t, preview, issued)

	preview, err = svc.Peek(context.Background(), models.NumberKindAdmission, scope, "")
	require.NoError(t, err)
	assert.Equal(t, "ADM/2026/NRB/0002", preview)
}

func TestSequenceServiceCurrentValue(t *testing.T) {
	svc, _ := newSequenceFixture(t)
	scope := tenancy.ForSchool("sch-1")

	value, err := svc.CurrentValue(context.Background(), models.NumberKindAdmission, scope, "")
	require.NoError(t, err)
	assert.Nil(t, value)

	_, err = svc.Next(context.Background(), models.NumberKindAdmission, scope, "", nil)
	require.NoError(t, err)

	value, err = svc.CurrentValue(context.Background(), models.NumberKindAdmission, scope, "")
	require.NoError(t, err)
	require.NotNil(t, value)
	assert.Equal(t, int64(1), *value)
}

func TestSequenceServiceReset(t *testing.T) {
	svc, repo := newSequenceFixture(t)
	scope := tenancy.ForSchool("sch-1")

	err := svc.Reset(context.Background(), models.NumberKindAdmission, 500, scope, "")
	require.NoError(t, err)
	require.Len(t, repo.resets, 1)

	number, err := svc.Next(context.Background(), models.NumberKindAdmission, scope, "", nil)
	require.NoError(t, err)
	assert.Equal(t, "ADM/2026/NRB/0501", number)

	err = svc.Reset(context.Background(), models.NumberKindAdmission, -1, scope, "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSequenceServiceBatch(t *testing.T) {
	svc, _ := newSequenceFixture(t)
	scope := tenancy.ForSchool("sch-1")

	numbers, err := svc.Batch(context.Background(), models.NumberKindReceipt, 3, scope, "")
	require.NoError(t, err)
	require.Len(t, numbers, 3)
	assert.Equal(t, "RCT/2026/000001", numbers[0])
	assert.Equal(t, "RCT/2026/000003", numbers[2])
}

func TestSequenceServiceBatchCountBounds(t *testing.T) {
	svc, _ := newSequenceFixture(t)
	scope := tenancy.ForSchool("sch-1")

	_, err := svc.Batch(context.Background(), models.NumberKindReceipt, 0, scope, "")
	require.Error(t, err)

	_, err = svc.Batch(context.Background(), models.NumberKindReceipt, 1001, scope, "")
	require.Error(t, err)
}

func TestSequenceServiceBatchPartialFailure(t *testing.T) {
	svc, repo := newSequenceFixture(t)
	repo.incrementErrs = []error{nil, nil, fmt.Errorf("connection refused")}

	numbers, err := svc.Batch(context.Background(), models.NumberKindReceipt, 5, tenancy.ForSchool("sch-1"), "")
	require.Error(t, err)
	// Identifiers issued before the failure stay claimed.
	assert.Len(t, numbers, 2)
}
