package errors_test

import (
	stderrors "errors"
	"testing"

	"github.com/paveg/returnlab/internal/errors"
	"github.com/stretchr/testify/assert"
)

func TestDataFrameError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *errors.DataFrameError
		expected string
	}{
		{
			name: "Error with column",
			err: &errors.DataFrameError{
				Op:      "BindLineItems",
				Column:  "Refunds",
				Message: "column does not exist",
			},
			expected: "BindLineItems operation failed on column 'Refunds': column does not exist",
		},
		{
			name: "Error without column",
			err: &errors.DataFrameError{
				Op:      "Split",
				Message: "mismatched lengths",
			},
			expected: "Split operation failed: mismatched lengths",
		},
		{
			name: "Error with cause",
			err: &errors.DataFrameError{
				Op:      "Load",
				Message: "path \"x.csv\"",
				Cause:   errors.ErrFileNotFound,
			},
			expected: "Load operation failed: path \"x.csv\": file not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestDataFrameError_Unwrap(t *testing.T) {
	cause := stderrors.New("underlying error")
	err := &errors.DataFrameError{
		Op:      "Fit",
		Message: "training failed",
		Cause:   cause,
	}

	assert.Equal(t, cause, err.Unwrap())
	assert.ErrorIs(t, err, cause)
}

func TestDataFrameError_Is(t *testing.T) {
	err1 := errors.NewColumnNotFoundError("BindLineItems", "Date")
	err2 := errors.NewColumnNotFoundError("BindLineItems", "Date")
	err3 := errors.NewColumnNotFoundError("Audit", "Date")

	assert.True(t, err1.Is(err2))
	assert.False(t, err1.Is(err3))
	assert.False(t, err1.Is(stderrors.New("different error")))
}

func TestNewFileNotFoundError(t *testing.T) {
	err := errors.NewFileNotFoundError("Load", "/nope.csv")

	assert.ErrorIs(t, err, errors.ErrFileNotFound)
	assert.Contains(t, err.Error(), "/nope.csv")
}

func TestConstructors(t *testing.T) {
	err := errors.NewUnsupportedTypeError("BindLineItems", "Total Revenue", "bool")
	assert.Equal(t, "Total Revenue", err.Column)
	assert.Equal(t, "unsupported type: bool", err.Message)

	v := errors.NewValidationError("Split", "", "test size must be in (0, 1)")
	assert.Equal(t, "Split operation failed: test size must be in (0, 1)", v.Error())

	in := errors.NewInvalidInputError("Undersample", "not enough negatives")
	assert.Empty(t, in.Column)
}

func TestPredefinedErrors(t *testing.T) {
	assert.Equal(t, "validation", errors.ErrEmptyDataFrame.Op)
	assert.Equal(t, "operation not supported on empty DataFrame", errors.ErrEmptyDataFrame.Message)
	assert.Equal(t, "arrays must have the same length", errors.ErrMismatchedLength.Message)
	assert.Equal(t, "labels must contain both classes", errors.ErrSingleClass.Message)
}
