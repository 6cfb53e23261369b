package constants

// IssueType is the closed set of quality issue kinds.
type IssueType string

const (
	IssueSemanticMismatch      IssueType = "semantic_mismatch"
	IssueTemporalInconsistency IssueType = "temporal_inconsistency"
	IssueContextualError       IssueType = "contextual_error"
	IssueFormatError           IssueType = "format_error"
	IssueDataTypeError         IssueType = "data_type_error"
	IssueRangeError            IssueType = "range_error"
	IssueConsistencyError      IssueType = "consistency_error"
	IssueMissingField          IssueType = "missing_field"
	IssueEmptyForm             IssueType = "empty_form"
)

// IsSemantic reports whether fixing the issue needs a re-extraction pass.
func (t IssueType) IsSemantic() bool {
	switch t {
	case IssueSemanticMismatch, IssueTemporalInconsistency, IssueContextualError:
		return true
	}
	return false
}

// IsFormat reports whether the issue can be fixed by re-mapping alone.
func (t IssueType) IsFormat() bool {
	switch t {
	case IssueFormatError, IssueDataTypeError, IssueRangeError:
		return true
	}
	return false
}

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

func (s Severity) rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	}
	return 0
}

// AtLeast reports whether s is as severe as other or more.
func (s Severity) AtLeast(other Severity) bool { return s.rank() >= other.rank() }

// NeedsCorrection is true for medium and above.
func (s Severity) NeedsCorrection() bool { return s.AtLeast(SeverityMedium) }

// RequiresAction is true for high and critical.
func (s Severity) RequiresAction() bool { return s.AtLeast(SeverityHigh) }

// SemanticCategory classifies a reference field by what its label means.
type SemanticCategory string

const (
	CategoryDocumentDate SemanticCategory = "document_date"
	CategoryPersonalDate SemanticCategory = "personal_date"
	CategoryDateGeneral  SemanticCategory = "date_general"
	CategoryPersonalName SemanticCategory = "personal_name"
	CategoryContactInfo  SemanticCategory = "contact_info"
	CategoryAddressInfo  SemanticCategory = "address_info"
	CategoryNumericValue SemanticCategory = "numeric_value"
	CategoryGeneralField SemanticCategory = "general_field"
)

// ValuePattern is the shape of a reference value.
type ValuePattern string

const (
	PatternDateFormat   ValuePattern = "date_format"
	PatternNumericValue ValuePattern = "numeric_value"
	PatternEmailFormat  ValuePattern = "email_format"
	PatternTextValue    ValuePattern = "text_value"
)

// CorrectionState is the router's state machine.
type CorrectionState string

const (
	StateAwaitingAssessment CorrectionState = "awaiting_assessment"
	StateSemanticCorrection CorrectionState = "semantic_correction"
	StateFormatCorrection   CorrectionState = "format_correction"
	StateCompleted          CorrectionState = "completed"
)
