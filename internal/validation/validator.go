// Package validation provides input validation utilities for pipeline stages.
// Validators check schema requirements on loaded DataFrames (column presence,
// numeric types) and shape requirements on training data (length consistency,
// binary labels with both classes present).
package validation

import (
	"fmt"

	"github.com/paveg/returnlab/internal/errors"
)

// Validator interface for input validation
type Validator interface {
	Validate() error
}

// ColumnProvider interface for types that provide column information
type ColumnProvider interface {
	HasColumn(name string) bool
	Columns() []string
	Len() int
	Width() int
}

// NumericProvider is a ColumnProvider that can report column numeric-ness.
type NumericProvider interface {
	ColumnProvider
	IsNumeric(name string) bool
}

// ColumnValidator validates column existence and properties
type ColumnValidator struct {
	df      ColumnProvider
	columns []string
	op      string
}

// NewColumnValidator creates a validator for column operations
func NewColumnValidator(df ColumnProvider, op string, columns ...string) *ColumnValidator {
	return &ColumnValidator{
		df:      df,
		columns: columns,
		op:      op,
	}
}

// Validate checks if all columns exist in the DataFrame
func (v *ColumnValidator) Validate() error {
	for _, column := range v.columns {
		if !v.df.HasColumn(column) {
			return errors.NewColumnNotFoundError(v.op, column)
		}
	}
	return nil
}

// NumericColumnValidator validates that columns exist and hold numbers
type NumericColumnValidator struct {
	df      NumericProvider
	columns []string
	op      string
}

// NewNumericColumnValidator creates a validator for numeric input columns
func NewNumericColumnValidator(df NumericProvider, op string, columns ...string) *NumericColumnValidator {
	return &NumericColumnValidator{
		df:      df,
		columns: columns,
		op:      op,
	}
}

// Validate checks presence first, then type
func (v *NumericColumnValidator) Validate() error {
	if err := NewColumnValidator(v.df, v.op, v.columns...).Validate(); err != nil {
		return err
	}
	for _, column := range v.columns {
		if !v.df.IsNumeric(column) {
			return errors.NewValidationError(v.op, column, "expected a numeric column")
		}
	}
	return nil
}

// LengthValidator validates array length consistency
type LengthValidator struct {
	expected int
	actual   int
	op       string
	context  string
}

// NewLengthValidator creates a validator for length consistency
func NewLengthValidator(expected, actual int, op, context string) *LengthValidator {
	return &LengthValidator{
		expected: expected,
		actual:   actual,
		op:       op,
		context:  context,
	}
}

// Validate checks if lengths match
func (v *LengthValidator) Validate() error {
	if v.expected != v.actual {
		message := fmt.Sprintf("%s: expected length %d, got %d", v.context, v.expected, v.actual)
		return &errors.DataFrameError{Op: v.op, Message: message, Cause: errors.ErrMismatchedLength}
	}
	return nil
}

// BinaryLabelValidator validates a 0/1 label vector
type BinaryLabelValidator struct {
	labels      []int
	requireBoth bool
	op          string
}

// NewBinaryLabelValidator creates a label validator. With requireBoth set,
// a vector holding a single class is rejected.
func NewBinaryLabelValidator(labels []int, requireBoth bool, op string) *BinaryLabelValidator {
	return &BinaryLabelValidator{
		labels:      labels,
		requireBoth: requireBoth,
		op:          op,
	}
}

// Validate checks label values and class presence
func (v *BinaryLabelValidator) Validate() error {
	var pos, neg int
	for i, label := range v.labels {
		switch label {
		case 0:
			neg++
		case 1:
			pos++
		default:
			return errors.NewValidationError(v.op, "",
				fmt.Sprintf("label at row %d is %d, expected 0 or 1", i, label))
		}
	}
	if v.requireBoth && (pos == 0 || neg == 0) {
		return &errors.DataFrameError{
			Op:      v.op,
			Message: fmt.Sprintf("%d positive and %d negative rows", pos, neg),
			Cause:   errors.ErrSingleClass,
		}
	}
	return nil
}

// EmptyDataFrameValidator validates operations on empty DataFrames
type EmptyDataFrameValidator struct {
	df ColumnProvider
	op string
}

// NewEmptyDataFrameValidator creates a validator for empty DataFrame checks
func NewEmptyDataFrameValidator(df ColumnProvider, op string) *EmptyDataFrameValidator {
	return &EmptyDataFrameValidator{
		df: df,
		op: op,
	}
}

// Validate checks if DataFrame is empty when operation requires data
func (v *EmptyDataFrameValidator) Validate() error {
	if v.df.Len() == 0 {
		return &errors.DataFrameError{
			Op:      v.op,
			Message: "operation not supported on empty DataFrame",
			Cause:   errors.ErrEmptyDataFrame,
		}
	}
	return nil
}

// CompoundValidator combines multiple validators
type CompoundValidator struct {
	validators []Validator
}

// NewCompoundValidator creates a validator that checks multiple conditions
func NewCompoundValidator(validators ...Validator) *CompoundValidator {
	return &CompoundValidator{
		validators: validators,
	}
}

// Validate runs all validators and returns the first error encountered
func (v *CompoundValidator) Validate() error {
	for _, validator := range v.validators {
		if err := validator.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Convenience validation functions

// ValidateColumns is a convenience function for column validation
func ValidateColumns(df ColumnProvider, op string, columns ...string) error {
	return NewColumnValidator(df, op, columns...).Validate()
}

// ValidateNumericColumns is a convenience function for numeric column validation
func ValidateNumericColumns(df NumericProvider, op string, columns ...string) error {
	return NewNumericColumnValidator(df, op, columns...).Validate()
}

// ValidateLength is a convenience function for length validation
func ValidateLength(expected, actual int, op, context string) error {
	return NewLengthValidator(expected, actual, op, context).Validate()
}

// ValidateBinaryLabels is a convenience function for label validation
func ValidateBinaryLabels(labels []int, requireBoth bool, op string) error {
	return NewBinaryLabelValidator(labels, requireBoth, op).Validate()
}

// ValidateNotEmpty is a convenience function for empty DataFrame validation
func ValidateNotEmpty(df ColumnProvider, op string) error {
	return NewEmptyDataFrameValidator(df, op).Validate()
}
