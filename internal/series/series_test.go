package series

import (
	"math"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSeries(t *testing.T) {
	mem := memory.NewGoAllocator()

	t.Run("string series", func(t *testing.T) {
		s := New("Category", []string{"A", "B", "A"}, mem)
		defer s.Release()

		assert.Equal(t, "Category", s.Name())
		assert.Equal(t, 3, s.Len())
		assert.Equal(t, []string{"A", "B", "A"}, s.Values())
	})

	t.Run("int64 series", func(t *testing.T) {
		s := New("Year", []int64{2019, 2020}, mem)
		defer s.Release()

		assert.Equal(t, int64(2020), s.Value(1))
		assert.Equal(t, "2019", s.GetAsString(0))
	})

	t.Run("float64 series", func(t *testing.T) {
		s := New("TotalRevenue_sum", []float64{100.5, 0}, mem)
		defer s.Release()

		assert.InDelta(t, 100.5, s.Value(0), 1e-12)
		assert.Equal(t, "100.5", s.GetAsString(0))
	})

	t.Run("out of range returns zero value", func(t *testing.T) {
		s := New("x", []int64{1}, mem)
		defer s.Release()

		assert.Equal(t, int64(0), s.Value(5))
		assert.Equal(t, int64(0), s.Value(-1))
	})
}

func TestNewSafe_UnsupportedType(t *testing.T) {
	_, err := NewSafe("bad", []complex128{1}, memory.NewGoAllocator())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported type")
}

func TestNewWithValidity(t *testing.T) {
	mem := memory.NewGoAllocator()

	s, err := NewWithValidity("Refunds", []float64{1, 0, 3}, []bool{true, false, true}, mem)
	require.NoError(t, err)
	defer s.Release()

	assert.True(t, s.IsNull(1))
	assert.Equal(t, 1, s.NullN())
	assert.Equal(t, "", s.GetAsString(1))

	arr := s.Array()
	defer arr.Release()
	assert.True(t, IsMissing(arr, 1))
	assert.True(t, math.IsNaN(FloatAt(arr, 1)))
	assert.InDelta(t, 3.0, FloatAt(arr, 2), 1e-12)

	_, err = NewWithValidity("x", []int64{1, 2}, []bool{true}, mem)
	require.Error(t, err)
}

func TestIsMissing_NaN(t *testing.T) {
	s := New("v", []float64{math.NaN(), 1}, memory.NewGoAllocator())
	defer s.Release()

	arr := s.Array()
	defer arr.Release()
	assert.True(t, IsMissing(arr, 0))
	assert.False(t, IsMissing(arr, 1))
}
