package models

import "time"

// Class represents an academic class within a school.
type Class struct {
	ID        string    `db:"id" json:"id"`
	SchoolID  string    `db:"school_id" json:"school_id"`
	Name      string    `db:"name" json:"name"`
	Level     string    `db:"level" json:"level"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Stream is a named subdivision of a class.
type Stream struct {
	ID       string `db:"id" json:"id"`
	SchoolID string `db:"school_id" json:"school_id"`
	ClassID  string `db:"class_id" json:"class_id"`
	Name     string `db:"name" json:"name"`
}

// SubjectCategory classifies how a subject is offered within a class.
type SubjectCategory string

// Supported subject categories.
const (
	SubjectCategoryCore      SubjectCategory = "CORE"
	SubjectCategoryElective  SubjectCategory = "ELECTIVE"
	SubjectCategoryOptional  SubjectCategory = "OPTIONAL"
	SubjectCategoryTechnical SubjectCategory = "TECHNICAL"
	SubjectCategoryApplied   SubjectCategory = "APPLIED"
)

// Valid reports whether the category is one of the supported values.
func (c SubjectCategory) Valid() bool {
	switch c {
	case SubjectCategoryCore, SubjectCategoryElective, SubjectCategoryOptional,
		SubjectCategoryTechnical, SubjectCategoryApplied:
		return true
	}
	return false
}

// ClassSubject binds a subject to a class (optionally narrowed to a stream)
// for an academic year, tagged with a category and an optional teacher.
type ClassSubject struct {
	ID             string          `db:"id" json:"id"`
	SchoolID       string          `db:"school_id" json:"school_id"`
	ClassID        string          `db:"class_id" json:"class_id"`
	StreamID       *string         `db:"stream_id" json:"stream_id,omitempty"`
	SubjectID      string          `db:"subject_id" json:"subject_id"`
	AcademicYearID string          `db:"academic_year_id" json:"academic_year_id"`
	Term           *string         `db:"term" json:"term,omitempty"`
	Category       SubjectCategory `db:"category" json:"category"`
	TeacherID      *string         `db:"teacher_id" json:"teacher_id,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
}

// ClassSubjectDetail includes subject info for responses.
type ClassSubjectDetail struct {
	ClassSubject
	SubjectName string `db:"subject_name" json:"subject_name"`
	SubjectCode string `db:"subject_code" json:"subject_code"`
}
