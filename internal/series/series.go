// Package series provides data structures for column operations
package series

import (
	"fmt"
	"math"
	"reflect"
	"strconv"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/returnlab/internal/errors"
)

// Series represents a typed data column with Apache Arrow backend
type Series[T any] struct {
	name  string
	array arrow.Array
}

// New creates a new Series from a slice of values. It panics on unsupported
// element types; use NewSafe when the type comes from user input.
func New[T any](name string, values []T, mem memory.Allocator) *Series[T] {
	s, err := NewWithValidity(name, values, nil, mem)
	if err != nil {
		panic(err.Error())
	}
	return s
}

// NewSafe creates a new Series and reports unsupported element types as an error.
func NewSafe[T any](name string, values []T, mem memory.Allocator) (*Series[T], error) {
	return NewWithValidity(name, values, nil, mem)
}

// NewWithValidity creates a Series where valid[i] == false marks row i as null.
// A nil validity slice means every row is valid.
func NewWithValidity[T any](name string, values []T, valid []bool, mem memory.Allocator) (*Series[T], error) {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}
	if valid != nil && len(valid) != len(values) {
		return nil, errors.ErrMismatchedLength
	}

	var arr arrow.Array

	switch v := any(values).(type) {
	case []string:
		builder := array.NewStringBuilder(mem)
		defer builder.Release()
		for i, val := range v {
			appendOrNull(builder, valid, i, func() { builder.Append(val) })
		}
		arr = builder.NewArray()
	case []int64:
		builder := array.NewInt64Builder(mem)
		defer builder.Release()
		for i, val := range v {
			appendOrNull(builder, valid, i, func() { builder.Append(val) })
		}
		arr = builder.NewArray()
	case []float64:
		builder := array.NewFloat64Builder(mem)
		defer builder.Release()
		for i, val := range v {
			appendOrNull(builder, valid, i, func() { builder.Append(val) })
		}
		arr = builder.NewArray()
	case []bool:
		builder := array.NewBooleanBuilder(mem)
		defer builder.Release()
		for i, val := range v {
			appendOrNull(builder, valid, i, func() { builder.Append(val) })
		}
		arr = builder.NewArray()
	default:
		return nil, errors.NewUnsupportedTypeError("series creation", name, fmt.Sprintf("%T", values))
	}

	return &Series[T]{
		name:  name,
		array: arr,
	}, nil
}

func appendOrNull(b array.Builder, valid []bool, i int, appendValue func()) {
	if valid != nil && !valid[i] {
		b.AppendNull()
		return
	}
	appendValue()
}

// Name returns the column name
func (s *Series[T]) Name() string {
	return s.name
}

// Len returns the length of the series
func (s *Series[T]) Len() int {
	return s.array.Len()
}

// Values returns the data as a Go slice; null slots hold the zero value
func (s *Series[T]) Values() []T {
	result := make([]T, s.array.Len())
	for i := range result {
		result[i] = s.Value(i)
	}
	return result
}

// Value returns the value at the given index
func (s *Series[T]) Value(index int) T {
	var result T
	if index < 0 || index >= s.array.Len() || s.array.IsNull(index) {
		return result
	}

	switch arr := s.array.(type) {
	case *array.String:
		if v, ok := any(&result).(*string); ok {
			*v = arr.Value(index)
		}
	case *array.Int64:
		if v, ok := any(&result).(*int64); ok {
			*v = arr.Value(index)
		}
	case *array.Float64:
		if v, ok := any(&result).(*float64); ok {
			*v = arr.Value(index)
		}
	case *array.Boolean:
		if v, ok := any(&result).(*bool); ok {
			*v = arr.Value(index)
		}
	}

	return result
}

// DataType returns the Arrow data type
func (s *Series[T]) DataType() arrow.DataType {
	return s.array.DataType()
}

// IsNull checks if the value at index is null
func (s *Series[T]) IsNull(index int) bool {
	return s.array.IsNull(index)
}

// NullN returns the number of null slots
func (s *Series[T]) NullN() int {
	return s.array.NullN()
}

// GetAsString renders the value at index as text; nulls render as "".
func (s *Series[T]) GetAsString(index int) string {
	return FormatValue(s.array, index)
}

// String returns a string representation of the series
func (s *Series[T]) String() string {
	return fmt.Sprintf("Series[%s]: %s (len=%d)",
		reflect.TypeOf(new(T)).Elem().Name(),
		s.name,
		s.Len())
}

// Array returns the underlying Arrow array (retains a reference)
func (s *Series[T]) Array() arrow.Array {
	if s.array != nil {
		s.array.Retain()
		return s.array
	}
	return nil
}

// Release releases the underlying Arrow memory
func (s *Series[T]) Release() {
	if s.array != nil {
		s.array.Release()
	}
}

// FormatValue renders a single slot of an Arrow array as text.
func FormatValue(arr arrow.Array, index int) string {
	if arr.IsNull(index) {
		return ""
	}
	switch typed := arr.(type) {
	case *array.String:
		return typed.Value(index)
	case *array.Int64:
		return strconv.FormatInt(typed.Value(index), 10)
	case *array.Float64:
		return strconv.FormatFloat(typed.Value(index), 'g', -1, 64)
	case *array.Boolean:
		return strconv.FormatBool(typed.Value(index))
	default:
		return ""
	}
}

// FloatAt reads a numeric slot as float64. Nulls and non-numeric arrays yield NaN.
func FloatAt(arr arrow.Array, index int) float64 {
	if arr.IsNull(index) {
		return math.NaN()
	}
	switch typed := arr.(type) {
	case *array.Float64:
		return typed.Value(index)
	case *array.Int64:
		return float64(typed.Value(index))
	case *array.Boolean:
		if typed.Value(index) {
			return 1
		}
		return 0
	default:
		return math.NaN()
	}
}

// IsMissing reports whether a slot is null or a float NaN.
func IsMissing(arr arrow.Array, index int) bool {
	if arr.IsNull(index) {
		return true
	}
	if f, ok := arr.(*array.Float64); ok {
		return math.IsNaN(f.Value(index))
	}
	return false
}
