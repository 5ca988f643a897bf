package validation_test

import (
	"errors"
	"testing"

	dferrors "github.com/paveg/returnlab/internal/errors"
	"github.com/paveg/returnlab/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockColumnProvider implements NumericProvider for testing.
type MockColumnProvider struct {
	columns []string
	numeric map[string]bool
	length  int
}

func (m *MockColumnProvider) HasColumn(name string) bool {
	for _, col := range m.columns {
		if col == name {
			return true
		}
	}
	return false
}

func (m *MockColumnProvider) Columns() []string { return m.columns }
func (m *MockColumnProvider) Len() int          { return m.length }
func (m *MockColumnProvider) Width() int        { return len(m.columns) }

func (m *MockColumnProvider) IsNumeric(name string) bool { return m.numeric[name] }

func newMock() *MockColumnProvider {
	return &MockColumnProvider{
		columns: []string{"Transaction ID", "Refunds", "Category"},
		numeric: map[string]bool{"Refunds": true},
		length:  3,
	}
}

func TestColumnValidator(t *testing.T) {
	df := newMock()

	t.Run("valid columns", func(t *testing.T) {
		require.NoError(t, validation.ValidateColumns(df, "Bind", "Transaction ID", "Refunds"))
	})

	t.Run("missing column", func(t *testing.T) {
		err := validation.ValidateColumns(df, "Bind", "Refunds", "Sales Tax")
		require.Error(t, err)

		var dfErr *dferrors.DataFrameError
		require.ErrorAs(t, err, &dfErr)
		assert.Equal(t, "Bind", dfErr.Op)
		assert.Equal(t, "Sales Tax", dfErr.Column)
	})
}

func TestNumericColumnValidator(t *testing.T) {
	df := newMock()

	require.NoError(t, validation.ValidateNumericColumns(df, "Bind", "Refunds"))

	err := validation.ValidateNumericColumns(df, "Bind", "Category")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected a numeric column")

	err = validation.ValidateNumericColumns(df, "Bind", "Missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "column does not exist")
}

func TestLengthValidator(t *testing.T) {
	require.NoError(t, validation.ValidateLength(3, 3, "Fit", "labels"))

	err := validation.ValidateLength(3, 2, "Fit", "labels")
	require.Error(t, err)
	assert.True(t, errors.Is(err, dferrors.ErrMismatchedLength))
	assert.Contains(t, err.Error(), "labels: expected length 3, got 2")
}

func TestBinaryLabelValidator(t *testing.T) {
	tests := []struct {
		name        string
		labels      []int
		requireBoth bool
		wantErr     error
		wantMsg     string
	}{
		{name: "both classes", labels: []int{0, 1, 1}, requireBoth: true},
		{name: "single class allowed", labels: []int{0, 0}, requireBoth: false},
		{name: "single class rejected", labels: []int{1, 1}, requireBoth: true, wantErr: dferrors.ErrSingleClass},
		{name: "non binary value", labels: []int{0, 2}, wantMsg: "label at row 1 is 2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validation.ValidateBinaryLabels(tt.labels, tt.requireBoth, "Split")
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.wantMsg != "":
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantMsg)
			default:
				require.NoError(t, err)
			}
		})
	}
}

func TestEmptyDataFrameValidator(t *testing.T) {
	require.NoError(t, validation.ValidateNotEmpty(newMock(), "Preprocess"))

	err := validation.ValidateNotEmpty(&MockColumnProvider{}, "Preprocess")
	assert.ErrorIs(t, err, dferrors.ErrEmptyDataFrame)
}

func TestCompoundValidator(t *testing.T) {
	df := newMock()

	ok := validation.NewCompoundValidator(
		validation.NewColumnValidator(df, "Bind", "Refunds"),
		validation.NewEmptyDataFrameValidator(df, "Bind"),
	)
	require.NoError(t, ok.Validate())

	failing := validation.NewCompoundValidator(
		validation.NewColumnValidator(df, "Bind", "Refunds"),
		validation.NewLengthValidator(1, 2, "Bind", "rows"),
		validation.NewColumnValidator(df, "Bind", "Missing"),
	)
	err := failing.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, dferrors.ErrMismatchedLength, "first failure wins")
}
