package quality

import (
	"context"
	"fmt"
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/joseph-ayodele/form-filler/constants"
	"github.com/joseph-ayodele/form-filler/internal/entity"
	"github.com/joseph-ayodele/form-filler/internal/fieldvalue"
	"github.com/joseph-ayodele/form-filler/internal/llm"
	"github.com/joseph-ayodele/form-filler/internal/rules"
	"github.com/joseph-ayodele/form-filler/internal/temporal"
)

const (
	maxValueLength     = 1000
	maxNameLength      = 100
	straySymbolMaxLen  = 50
	straySymbols       = "§©®™"
	contextSourceLimit = 20
)

func issue(p entity.ReferencePattern, value string, t constants.IssueType, sev constants.Severity, conf float64, suggestion string) *entity.QualityIssue {
	return &entity.QualityIssue{
		FieldID:      p.FieldID,
		FieldName:    p.Label,
		Type:         t,
		CurrentValue: value,
		Confidence:   conf,
		Suggestion:   suggestion,
		Severity:     sev,
	}
}

// formatSanity catches values that are obviously not form content.
func (e *Engine) formatSanity(p entity.ReferencePattern, v string) *entity.QualityIssue {
	n := utf8.RuneCountInString(v)
	if n > maxValueLength {
		return issue(p, v, constants.IssueFormatError, constants.SeverityMedium, 0.8,
			"Value is unusually long; shorten it to the relevant content")
	}
	if n < straySymbolMaxLen && strings.ContainsAny(v, straySymbols) {
		return issue(p, v, constants.IssueFormatError, constants.SeverityLow, 0.7,
			"Value contains unusual symbols; check for extraction artifacts")
	}
	return nil
}

// basicSemantics compares the value shape with what the field type and label ask for.
// A declared email or phone type wins over the label.
func (e *Engine) basicSemantics(p entity.ReferencePattern, v string) *entity.QualityIssue {
	label := strings.ToLower(p.Label + " " + p.FieldID)
	isEmail := p.FieldType == constants.FieldEmail ||
		(p.FieldType != constants.FieldPhone && e.rules.ContainsAny(rules.EmailField, label))
	isPhone := p.FieldType == constants.FieldPhone ||
		(!isEmail && e.rules.ContainsAny(rules.PhoneField, label))
	switch {
	case isEmail:
		if !strings.Contains(v, "@") {
			return issue(p, v, constants.IssueFormatError, constants.SeverityMedium, 0.8,
				"Email field does not contain an email address")
		}
		return nil
	case isPhone:
		if !strings.ContainsFunc(v, unicode.IsDigit) {
			return issue(p, v, constants.IssueFormatError, constants.SeverityMedium, 0.8,
				"Phone field does not contain a phone number")
		}
		return nil
	}

	isCompany := e.rules.ContainsAny(rules.CompanyField, label)
	isName := !isCompany && (e.rules.ContainsAny(rules.NameField, label) ||
		e.rules.ContainsAny(rules.FirstNameField, label) ||
		e.rules.ContainsAny(rules.LastNameField, label))
	isAddress := e.rules.ContainsAny(rules.AddressField, label)

	if fieldvalue.LooksLikeDate(v) {
		switch {
		case isName:
			return issue(p, v, constants.IssueSemanticMismatch, constants.SeverityHigh, 0.9,
				"Name field contains a date; map the person's name instead")
		case isCompany, isAddress:
			return issue(p, v, constants.IssueSemanticMismatch, constants.SeverityMedium, 0.8,
				"Field appears to be for a name or address but contains a date")
		}
		return nil
	}
	if isName && utf8.RuneCountInString(v) > maxNameLength {
		return issue(p, v, constants.IssueFormatError, constants.SeverityMedium, 0.8,
			"Name is unusually long; use only the name itself")
	}
	return nil
}

// semanticConsistency applies the category rules learned from the reference form.
func (e *Engine) semanticConsistency(a *assessment, p entity.ReferencePattern, v string) *entity.QualityIssue {
	now := e.now()
	switch p.Category {
	case constants.CategoryDocumentDate:
		formatted := fieldvalue.Format(v, constants.FieldDate)
		for _, b := range a.birthDates {
			if fieldvalue.Format(b, constants.FieldDate) == formatted {
				is := issue(p, v, constants.IssueSemanticMismatch, constants.SeverityHigh, 0.85,
					"Document date equals the birth date; use the document or submission date"+exampleOf(p))
				is.ExpectedPattern = "document_submission_date"
				return is
			}
		}
		if d, ok := fieldvalue.ParseDate(v); ok && temporal.DaysOld(d, now) > e.maxDocumentAgeDays {
			return issue(p, v, constants.IssueTemporalInconsistency, constants.SeverityHigh, 0.7,
				fmt.Sprintf("Document date is more than %d days old; use a recent document date", e.maxDocumentAgeDays))
		}
	case constants.CategoryPersonalDate:
		d, ok := fieldvalue.ParseDate(v)
		if !ok {
			return nil
		}
		if temporal.IsFuture(d, now) {
			return issue(p, v, constants.IssueTemporalInconsistency, constants.SeverityCritical, 0.95,
				"Birth date lies in the future")
		}
		if temporal.AgeYears(d, now) > MaxHumanAge {
			return issue(p, v, constants.IssueTemporalInconsistency, constants.SeverityHigh, 0.9,
				fmt.Sprintf("Birth date implies an age above %d years", MaxHumanAge))
		}
	case constants.CategoryPersonalName:
		if utf8.RuneCountInString(v) < 2 || strings.ContainsFunc(v, unicode.IsDigit) {
			return issue(p, v, constants.IssueFormatError, constants.SeverityMedium, 0.8,
				"Name should be at least two letters and contain no digits"+exampleOf(p))
		}
	case constants.CategoryContactInfo:
		if (p.FieldType == constants.FieldEmail || p.ValuePattern == constants.PatternEmailFormat || strings.Contains(v, "@")) &&
			!fieldvalue.Validate(v, constants.FieldEmail) {
			return issue(p, v, constants.IssueFormatError, constants.SeverityHigh, 0.9,
				"Invalid email address"+exampleOf(p))
		}
	case constants.CategoryNumericValue:
		return e.numericRange(p, v)
	}
	return nil
}

func (e *Engine) numericRange(p entity.ReferencePattern, v string) *entity.QualityIssue {
	n, ok := fieldvalue.ParseNumber(v)
	if !ok {
		if p.FieldType == constants.FieldNumber {
			return issue(p, v, constants.IssueDataTypeError, constants.SeverityMedium, 0.9,
				"Expected a numeric value"+exampleOf(p))
		}
		return nil
	}
	switch {
	case e.classifier.IsAgeField(p.Label) && (n < 0 || n > MaxHumanAge):
		return issue(p, v, constants.IssueRangeError, constants.SeverityHigh, 0.9,
			fmt.Sprintf("Age must be between 0 and %d", MaxHumanAge))
	case e.classifier.IsGradeField(p.Label) && (n < MinGrade || n > MaxGrade):
		return issue(p, v, constants.IssueRangeError, constants.SeverityMedium, 0.8,
			fmt.Sprintf("Grade must be between %d and %d", MinGrade, MaxGrade))
	}
	return nil
}

// formatConsistency checks the value keeps the shape of the reference value.
func (e *Engine) formatConsistency(p entity.ReferencePattern, v string) *entity.QualityIssue {
	if p.ValuePattern == constants.PatternDateFormat && !fieldvalue.LooksLikeDate(v) {
		is := issue(p, v, constants.IssueFormatError, constants.SeverityMedium, 0.7,
			"Expected a date in DD.MM.YYYY format"+exampleOf(p))
		is.ExpectedPattern = string(constants.PatternDateFormat)
		return is
	}
	return nil
}

// contextual cross-checks the value against the source data and the rest of the form.
func (e *Engine) contextual(ctx context.Context, a *assessment, p entity.ReferencePattern, v string) *entity.QualityIssue {
	if p.Category != constants.CategoryPersonalDate && fieldvalue.LooksLikeDate(v) {
		formatted := fieldvalue.Format(v, constants.FieldDate)
		for _, b := range a.srcBirths {
			if fieldvalue.Format(b, constants.FieldDate) == formatted {
				return issue(p, v, constants.IssueContextualError, constants.SeverityHigh, 0.85,
					"Value is a birth date from the source documents; use a date that fits this field")
			}
		}
	}
	if e.classifier.IsAgeField(p.Label) {
		if is := e.ageConsistency(a, p, v); is != nil {
			return is
		}
	}
	if p.Category == constants.CategoryDocumentDate && e.completer != nil && len(a.Extracted) > 0 {
		return e.reviewWithLLM(ctx, a, p, v)
	}
	return nil
}

// ageConsistency compares an age value with its related birth date, or with the birth
// date filled in the form when no relationship names one.
func (e *Engine) ageConsistency(a *assessment, p entity.ReferencePattern, v string) *entity.QualityIssue {
	age, ok := fieldvalue.ParseNumber(v)
	if !ok {
		return nil
	}
	var birthValue string
	if id, related := a.birthOf[p.FieldID]; related {
		birthValue = strings.TrimSpace(a.Values[id])
	} else if len(a.birthDates) > 0 {
		birthValue = a.birthDates[0]
	}
	birth, ok := fieldvalue.ParseDate(birthValue)
	if !ok {
		return nil
	}
	expected := temporal.CompletedYears(birth, e.now())
	if math.Abs(age-float64(expected)) > AgeTolerance {
		is := issue(p, v, constants.IssueConsistencyError, constants.SeverityHigh, 0.9,
			fmt.Sprintf("Age %s does not match birth date %s (expected about %d)", v, birthValue, expected))
		is.ExpectedPattern = fmt.Sprintf("%d", expected)
		return is
	}
	return nil
}

// reviewWithLLM asks the completer whether a document date fits the source data.
// Collaborator failures are logged and treated as a pass.
func (e *Engine) reviewWithLLM(ctx context.Context, a *assessment, p entity.ReferencePattern, v string) *entity.QualityIssue {
	source := make(map[string]string, contextSourceLimit)
	for _, k := range sortedKeys(a.Extracted) {
		if len(source) == contextSourceLimit {
			break
		}
		source[k] = a.Extracted[k].Value
	}
	sys, user := llm.BuildContextCheckPrompts(p.FieldID, p.Label, v, source)

	var verdict llm.ContextVerdict
	err := llm.CompleteJSON(ctx, e.completer, sys, user, llm.ContextVerdictSchema(), llm.NormalizeVerdictJSON, &verdict, e.logger)
	if err != nil {
		e.logger.Warn("quality.context_check.failed", "field_id", p.FieldID, "err", err)
		return nil
	}
	if verdict.IsAppropriate {
		return nil
	}
	suggestion := verdict.IssueDescription
	if suggestion == "" {
		suggestion = "Value does not fit the source documents"
	}
	if verdict.SuggestedAlternative != "" {
		suggestion += "; consider " + verdict.SuggestedAlternative
	}
	conf := verdict.Confidence
	if conf <= 0 {
		conf = 0.7
	}
	return issue(p, v, constants.IssueContextualError, constants.SeverityMedium, conf, suggestion)
}

func exampleOf(p entity.ReferencePattern) string {
	if p.Value == "" {
		return ""
	}
	return " (reference example: " + p.Value + ")"
}
