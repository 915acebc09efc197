package models

import "time"

// SubjectEnrollmentStatus represents per-subject enrollment state.
type SubjectEnrollmentStatus string

// Possible subject enrollment statuses.
const (
	SubjectEnrollmentStatusActive    SubjectEnrollmentStatus = "ACTIVE"
	SubjectEnrollmentStatusDropped   SubjectEnrollmentStatus = "DROPPED"
	SubjectEnrollmentStatusCompleted SubjectEnrollmentStatus = "COMPLETED"
	SubjectEnrollmentStatusFailed    SubjectEnrollmentStatus = "FAILED"
)

// SubjectEnrollment links one enrollment to one class-subject binding.
// The pair (enrollment_id, class_subject_id) is unique: re-enrolling after a
// drop reactivates the existing row instead of creating a duplicate.
type SubjectEnrollment struct {
	ID             string                  `db:"id" json:"id"`
	SchoolID       string                  `db:"school_id" json:"school_id"`
	EnrollmentID   string                  `db:"enrollment_id" json:"enrollment_id"`
	ClassSubjectID string                  `db:"class_subject_id" json:"class_subject_id"`
	StudentID      string                  `db:"student_id" json:"student_id"`
	Status         SubjectEnrollmentStatus `db:"status" json:"status"`
	EnrolledAt     time.Time               `db:"enrolled_at" json:"enrolled_at"`
	DroppedAt      *time.Time              `db:"dropped_at" json:"dropped_at,omitempty"`
}

// SubjectEnrollmentDetail includes subject info for responses.
type SubjectEnrollmentDetail struct {
	SubjectEnrollment
	SubjectName string          `db:"subject_name" json:"subject_name"`
	SubjectCode string          `db:"subject_code" json:"subject_code"`
	Category    SubjectCategory `db:"category" json:"category"`
}

// SubjectEnrollmentFilter provides filters for listing subject enrollments.
type SubjectEnrollmentFilter struct {
	EnrollmentID   string
	ClassSubjectID string
	Status         SubjectEnrollmentStatus
	Page           int
	PageSize       int
}
