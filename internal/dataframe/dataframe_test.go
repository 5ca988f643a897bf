package dataframe

import (
	"math"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/returnlab/internal/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestDataFrame(t *testing.T) *DataFrame {
	t.Helper()
	mem := memory.NewGoAllocator()

	ids := series.New("Transaction ID", []string{"1", "1", "2", "1"}, mem)
	qty := series.New("Final Quantity", []int64{1, -1, 2, 1}, mem)
	revenue := series.New("Total Revenue", []float64{100, 0, 200, 100}, mem)

	// DataFrame takes ownership of the series
	return New(ids, qty, revenue)
}

func TestNewDataFrame(t *testing.T) {
	df := createTestDataFrame(t)
	defer df.Release()

	assert.Equal(t, 4, df.Len())
	assert.Equal(t, 3, df.Width())
	assert.Equal(t, []string{"Transaction ID", "Final Quantity", "Total Revenue"}, df.Columns())
	assert.Contains(t, df.String(), "DataFrame[4x3]")
}

func TestEmptyDataFrame(t *testing.T) {
	df := New()
	assert.Equal(t, 0, df.Len())
	assert.Equal(t, []string{}, df.Columns())
	assert.Equal(t, "DataFrame[empty]", df.String())
	assert.Empty(t, df.DuplicateMask())
}

func TestDataFrameColumn(t *testing.T) {
	df := createTestDataFrame(t)
	defer df.Release()

	s, exists := df.Column("Final Quantity")
	assert.True(t, exists)
	assert.Equal(t, 4, s.Len())

	_, exists = df.Column("nonexistent")
	assert.False(t, exists)
	assert.False(t, df.HasColumn("nonexistent"))
}

func TestSelectAndDrop(t *testing.T) {
	df := createTestDataFrame(t)
	defer df.Release()

	assert.Equal(t, []string{"Total Revenue", "Transaction ID"},
		df.Select("Total Revenue", "missing", "Transaction ID").Columns())
	assert.Equal(t, []string{"Transaction ID", "Total Revenue"},
		df.Drop("Final Quantity").Columns())
}

func TestTake(t *testing.T) {
	df := createTestDataFrame(t)
	defer df.Release()

	taken, err := df.Take([]int{2, 0})
	require.NoError(t, err)
	defer taken.Release()

	ids, _, err := taken.StringValues("Transaction ID")
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "1"}, ids)

	rev, err := taken.Float64Values("Total Revenue")
	require.NoError(t, err)
	assert.Equal(t, []float64{200, 100}, rev)

	_, err = df.Take([]int{4})
	require.Error(t, err)
}

func TestTakePreservesNulls(t *testing.T) {
	mem := memory.NewGoAllocator()
	s, err := series.NewWithValidity("Refunds", []float64{1, 0}, []bool{true, false}, mem)
	require.NoError(t, err)
	df := New(s)
	defer df.Release()

	taken, err := df.Take([]int{1, 0})
	require.NoError(t, err)
	defer taken.Release()

	assert.Equal(t, 1, taken.MissingCount("Refunds"))
	vals, err := taken.Float64Values("Refunds")
	require.NoError(t, err)
	assert.True(t, math.IsNaN(vals[0]))
}

func TestDuplicateMask(t *testing.T) {
	df := createTestDataFrame(t)
	defer df.Release()

	assert.Equal(t, []bool{false, false, false, true}, df.DuplicateMask())
}

func TestDuplicateMaskDistinguishesNullFromEmpty(t *testing.T) {
	mem := memory.NewGoAllocator()
	s, err := series.NewWithValidity("Version", []string{"", "", ""}, []bool{true, false, false}, mem)
	require.NoError(t, err)
	df := New(s)
	defer df.Release()

	assert.Equal(t, []bool{false, false, true}, df.DuplicateMask())
}

func TestNumericHelpers(t *testing.T) {
	df := createTestDataFrame(t)
	defer df.Release()

	assert.Equal(t, []string{"Final Quantity", "Total Revenue"}, df.NumericColumns())
	assert.True(t, df.IsNumeric("Final Quantity"))
	assert.False(t, df.IsNumeric("Transaction ID"))

	_, err := df.Float64Values("Transaction ID")
	require.Error(t, err)
	_, err = df.Float64Values("missing")
	require.Error(t, err)
	_, _, err = df.StringValues("missing")
	require.Error(t, err)
}
