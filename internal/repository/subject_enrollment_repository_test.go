package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shulecore/academic-api/internal/models"
	"github.com/shulecore/academic-api/internal/tenancy"
)

func TestSubjectEnrollmentRepositoryCreateBatch(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewSubjectEnrollmentRepository(db)

	records := []models.SubjectEnrollment{
		{SchoolID: "sch-1", EnrollmentID: "enr-1", ClassSubjectID: "cs-1", StudentID: "stu-1"},
		{SchoolID: "sch-1", EnrollmentID: "enr-1", ClassSubjectID: "cs-2", StudentID: "stu-1"},
	}

	mock.ExpectBegin()
	mock.ExpectExec(`(?s)INSERT INTO subject_enrollments .*ON CONFLICT \(enrollment_id, class_subject_id\)`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`(?s)INSERT INTO subject_enrollments .*ON CONFLICT \(enrollment_id, class_subject_id\)`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.CreateBatch(context.Background(), records)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubjectEnrollmentRepositoryCreateBatchEmpty(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewSubjectEnrollmentRepository(db)

	err := repo.CreateBatch(context.Background(), nil)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubjectEnrollmentRepositoryCreateBatchRollsBack(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewSubjectEnrollmentRepository(db)

	records := []models.SubjectEnrollment{
		{SchoolID: "sch-1", EnrollmentID: "enr-1", ClassSubjectID: "cs-1", StudentID: "stu-1"},
		{SchoolID: "sch-1", EnrollmentID: "enr-1", ClassSubjectID: "cs-2", StudentID: "stu-1"},
	}

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO subject_enrollments`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO subject_enrollments`).
		WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	err := repo.CreateBatch(context.Background(), records)
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubjectEnrollmentRepositoryUpsert(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewSubjectEnrollmentRepository(db)

	record := &models.SubjectEnrollment{
		SchoolID:       "sch-1",
		EnrollmentID:   "enr-1",
		ClassSubjectID: "cs-1",
		StudentID:      "stu-1",
	}

	mock.ExpectExec(`(?s)INSERT INTO subject_enrollments .*DO UPDATE SET status = EXCLUDED.status, dropped_at = NULL`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Upsert(context.Background(), record)
	require.NoError(t, err)
	assert.NotEmpty(t, record.ID)
	assert.Equal(t, models.SubjectEnrollmentStatusActive, record.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubjectEnrollmentRepositoryFindScoped(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewSubjectEnrollmentRepository(db)

	rows := sqlmock.NewRows([]string{"id", "school_id", "enrollment_id", "class_subject_id", "student_id", "status", "enrolled_at", "dropped_at"}).
		AddRow("se-1", "sch-1", "enr-1", "cs-1", "stu-1", models.SubjectEnrollmentStatusActive, time.Now(), nil)
	mock.ExpectQuery(`(?s)SELECT .* FROM subject_enrollments WHERE enrollment_id = \$1 AND class_subject_id = \$2 AND school_id = \$3`).
		WithArgs("enr-1", "cs-1", "sch-1").
		WillReturnRows(rows)

	record, err := repo.Find(context.Background(), "enr-1", "cs-1", tenancy.ForSchool("sch-1"))
	require.NoError(t, err)
	assert.Equal(t, "se-1", record.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubjectEnrollmentRepositoryDrop(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewSubjectEnrollmentRepository(db)

	mock.ExpectExec(`UPDATE subject_enrollments SET status = \$1, dropped_at = \$2 WHERE enrollment_id = \$3 AND class_subject_id = \$4 AND school_id = \$5`).
		WithArgs(models.SubjectEnrollmentStatusDropped, sqlmock.AnyArg(), "enr-1", "cs-1", "sch-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Drop(context.Background(), "enr-1", "cs-1", tenancy.ForSchool("sch-1"))
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubjectEnrollmentRepositoryDropNoRows(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewSubjectEnrollmentRepository(db)

	mock.ExpectExec(`UPDATE subject_enrollments SET status`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Drop(context.Background(), "enr-1", "cs-1", tenancy.ForSchool("sch-1"))
	assert.Equal(t, sql.ErrNoRows, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
