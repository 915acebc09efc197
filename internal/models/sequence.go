package models

import "time"

// NumberKind identifies a counter series. Kinds are a fixed enumeration;
// each maps to a SequenceConfig rather than being dispatched on ad hoc
// strings.
type NumberKind string

// Supported number kinds.
const (
	NumberKindAdmission NumberKind = "ADMISSION"
	NumberKindEmployee  NumberKind = "EMPLOYEE"
	NumberKindReceipt   NumberKind = "RECEIPT"
)

// Valid reports whether the kind is a known series.
func (k NumberKind) Valid() bool {
	switch k {
	case NumberKindAdmission, NumberKindEmployee, NumberKindReceipt:
		return true
	}
	return false
}

// SequenceConfig describes how identifiers of a kind are keyed and formatted.
// Formatting never contributes to uniqueness; only the counter does.
type SequenceConfig struct {
	Prefix            string
	Width             int
	Separator         string
	IncludeYear       bool
	IncludeSchoolCode bool
	AnnualReset       bool
	PerSchool         bool
}

// Sequence is a durable counter row. The composite key is
// (kind, school_id, period); school_id and period are empty strings when the
// kind is global or perpetual, keeping the unique index simple.
type Sequence struct {
	ID              string     `db:"id" json:"id"`
	Kind            NumberKind `db:"kind" json:"kind"`
	SchoolID        string     `db:"school_id" json:"school_id"`
	Period          string     `db:"period" json:"period"`
	CurrentValue    int64      `db:"current_value" json:"current_value"`
	Prefix          string     `db:"prefix" json:"prefix"`
	LastGeneratedAt time.Time  `db:"last_generated_at" json:"last_generated_at"`
}

// SequenceKey identifies one counter region.
type SequenceKey struct {
	Kind     NumberKind
	SchoolID string
	Period   string
}
