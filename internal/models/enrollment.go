package models

import "time"

// EnrollmentStatus represents the lifecycle of an enrollment.
type EnrollmentStatus string

// Possible enrollment statuses. PROMOTED and TRANSFERRED are terminal for the
// row; the destination class or school gets a fresh enrollment row.
const (
	EnrollmentStatusActive      EnrollmentStatus = "ACTIVE"
	EnrollmentStatusPromoted    EnrollmentStatus = "PROMOTED"
	EnrollmentStatusTransferred EnrollmentStatus = "TRANSFERRED"
)

// Valid reports whether the status is a known value.
func (s EnrollmentStatus) Valid() bool {
	switch s {
	case EnrollmentStatusActive, EnrollmentStatusPromoted, EnrollmentStatusTransferred:
		return true
	}
	return false
}

// Terminal reports whether the status ends the row's lifecycle.
func (s EnrollmentStatus) Terminal() bool {
	return s == EnrollmentStatusPromoted || s == EnrollmentStatusTransferred
}

// Enrollment captures a student's placement in a class/stream for one
// academic year. Rows are never hard-deleted.
type Enrollment struct {
	ID                string           `db:"id" json:"id"`
	SchoolID          string           `db:"school_id" json:"school_id"`
	StudentID         string           `db:"student_id" json:"student_id"`
	ClassID           string           `db:"class_id" json:"class_id"`
	StreamID          *string          `db:"stream_id" json:"stream_id,omitempty"`
	AcademicYearID    string           `db:"academic_year_id" json:"academic_year_id"`
	Status            EnrollmentStatus `db:"status" json:"status"`
	PromotedToClassID *string          `db:"promoted_to_class_id" json:"promoted_to_class_id,omitempty"`
	PromotionDate     *time.Time       `db:"promotion_date" json:"promotion_date,omitempty"`
	TransferDate      *time.Time       `db:"transfer_date" json:"transfer_date,omitempty"`
	TransferReason    *string          `db:"transfer_reason" json:"transfer_reason,omitempty"`
	EnrolledAt        time.Time        `db:"enrolled_at" json:"enrolled_at"`
}

// EnrollmentDetail enriches Enrollment with student and class info.
type EnrollmentDetail struct {
	Enrollment
	StudentName      string `db:"student_name" json:"student_name"`
	StudentAdmission string `db:"student_admission" json:"student_admission"`
	ClassName        string `db:"class_name" json:"class_name"`
	AcademicYearName string `db:"academic_year_name" json:"academic_year_name"`
}

// EnrollmentResult is returned by the enroll operation. CoreSubjectsAttached
// is false when the enrollment itself succeeded but attaching core subjects
// did not (degraded success).
type EnrollmentResult struct {
	Enrollment           Enrollment `json:"enrollment"`
	CoreSubjectsAttached bool       `json:"core_subjects_attached"`
	CoreSubjectCount     int        `json:"core_subject_count"`
}

// EnrollmentFilter provides filters for listing enrollments.
type EnrollmentFilter struct {
	StudentID      string
	ClassID        string
	AcademicYearID string
	Status         EnrollmentStatus
	Page           int
	PageSize       int
	SortBy         string
	SortOrder      string
}
