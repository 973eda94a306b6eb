package analysis

import (
	"github.com/google/uuid"
)

// InconsistencyType classifies a detected inconsistency.
type InconsistencyType string

const (
	TypeContradiction         InconsistencyType = "CONTRADICTION"
	TypeMissingRequirement    InconsistencyType = "MISSING_REQUIREMENT"
	TypeConflictingDefinition InconsistencyType = "CONFLICTING_DEFINITION"
	TypeInconsistentScope     InconsistencyType = "INCONSISTENT_SCOPE"
	TypeDataMismatch          InconsistencyType = "DATA_MISMATCH"
)

// InconsistencyTypes lists the accepted type tokens in prompt order.
var InconsistencyTypes = []InconsistencyType{
	TypeContradiction,
	TypeMissingRequirement,
	TypeConflictingDefinition,
	TypeInconsistentScope,
	TypeDataMismatch,
}

// Valid reports whether t is one of the accepted tokens.
func (t InconsistencyType) Valid() bool {
	switch t {
	case TypeContradiction, TypeMissingRequirement, TypeConflictingDefinition,
		TypeInconsistentScope, TypeDataMismatch:
		return true
	}
	return false
}

// Severity orders inconsistencies by urgency.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityLow      Severity = "LOW"
)

// SeverityLevels lists the accepted severity tokens from most to least severe.
var SeverityLevels = []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow}

// Valid reports whether s is one of the accepted tokens.
func (s Severity) Valid() bool {
	switch s {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow:
		return true
	}
	return false
}

// Rank returns a comparable order, higher is more severe.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// Location is a character-offset span inside one paragraph text. Offsets come
// from the oracle and are advisory only; values outside [0, len(text)] are
// passed through untouched.
type Location struct {
	StartOffset int `json:"start_offset"`
	EndOffset   int `json:"end_offset"`
}

// Verdict is the validated judgment of the oracle for one inconsistent pair.
type Verdict struct {
	Type           InconsistencyType
	Severity       Severity
	Description    string
	Explanation    string
	Recommendation string
	SourceExcerpt  string
	TargetExcerpt  string
	SourceLocation Location
	TargetLocation Location
}

// Outcome tags a pair judgment. Undetermined means the analysis itself
// failed, which is distinct from a verified-consistent pair.
type Outcome int

const (
	OutcomeConsistent Outcome = iota
	OutcomeInconsistent
	OutcomeUndetermined
)

// Judgment is the tri-state result of judging one candidate pair.
type Judgment struct {
	Outcome Outcome
	Verdict *Verdict // set when Outcome is OutcomeInconsistent
	Reason  string   // set when Outcome is OutcomeUndetermined
}

// Record is the externally reported unit describing one confirmed
// inconsistency between a source and a target paragraph.
type Record struct {
	SourceDocumentID  uuid.UUID
	TargetDocumentID  uuid.UUID
	SourceParagraphID string
	TargetParagraphID string
	Type              InconsistencyType
	Severity          Severity
	Description       string
	Explanation       string
	Recommendation    string
	SourceExcerpt     string
	TargetExcerpt     string
	SourceLocation    Location
	TargetLocation    Location
}

// Result aggregates one analyze-pair run. Records keep source-paragraph-major,
// candidate-rank-minor order. PairsUndetermined counts pairs whose judgment
// failed after retries; those produce no records.
type Result struct {
	Records           []Record
	PairsAnalyzed     int
	PairsUndetermined int
}
