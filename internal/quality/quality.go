// Package quality gates annual series before frequency analysis and grades
// how much confidence their results deserve.
package quality

import (
	"errors"
	"fmt"

	"flood-frequency/internal/series"
)

// MinRecords is the smallest series that can be ranked meaningfully.
const MinRecords = 2

// ErrInsufficientData is returned for series shorter than MinRecords.
var ErrInsufficientData = errors.New("quality: insufficient data")

// InsufficientDataError carries the offending record count.
type InsufficientDataError struct {
	Records int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("quality: insufficient data: %d records, need at least %d", e.Records, MinRecords)
}

func (e *InsufficientDataError) Unwrap() error { return ErrInsufficientData }

// Grade is the coarse confidence class of a series.
type Grade string

const (
	GradeInsufficient Grade = "insufficient"
	GradeAcceptable   Grade = "acceptable"
	GradeGood         Grade = "good"
	GradeExcellent    Grade = "excellent"
)

// GradeFor maps a record count onto a Grade.
func GradeFor(n int) Grade {
	switch {
	case n < MinRecords:
		return GradeInsufficient
	case n < 10:
		return GradeAcceptable
	case n < 30:
		return GradeGood
	default:
		return GradeExcellent
	}
}

// QualityGrade summarises a validated series.
type QualityGrade struct {
	TotalRecords int     `json:"total_records"`
	YearsSpan    int     `json:"years_span"`
	QualityScore float64 `json:"quality_score"`
	Grade        Grade   `json:"grade"`
}

// LowConfidence reports whether results should carry a low-confidence warning.
func (q QualityGrade) LowConfidence() bool {
	return q.Grade == GradeAcceptable || q.Grade == GradeInsufficient
}

// Validate grades s. Series shorter than MinRecords yield an
// *InsufficientDataError alongside an insufficient grade.
func Validate(s series.Series) (QualityGrade, error) {
	q := QualityGrade{
		TotalRecords: s.Len(),
		YearsSpan:    s.YearSpan(),
		Grade:        GradeFor(s.Len()),
	}
	if s.Len() < MinRecords {
		return q, &InsufficientDataError{Records: s.Len()}
	}
	q.QualityScore = Assess(s).QualityScore
	return q, nil
}
