// Package dataframe provides the Arrow-backed table used by the pipeline.
//
// A DataFrame is an ordered set of equally long typed columns. Row-level helpers
// (Take, DuplicateMask) support the deduplication and partitioning the
// preprocessing and feature stages need; column accessors materialise typed Go
// slices for the numeric work downstream.
package dataframe

import (
	"fmt"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	xxhash "github.com/cespare/xxhash/v2"
	"github.com/paveg/returnlab/internal/errors"
	"github.com/paveg/returnlab/internal/series"
)

// DataFrame represents a table of data with typed columns
type DataFrame struct {
	columns map[string]ISeries
	order   []string // Maintains column order
}

// New creates a new DataFrame from a slice of ISeries
func New(series ...ISeries) *DataFrame {
	columns := make(map[string]ISeries)
	order := make([]string, 0, len(series))

	for _, s := range series {
		name := s.Name()
		columns[name] = s
		order = append(order, name)
	}

	return &DataFrame{
		columns: columns,
		order:   order,
	}
}

// Columns returns the names of all columns in order
func (df *DataFrame) Columns() []string {
	if len(df.order) == 0 {
		return []string{}
	}
	return append([]string(nil), df.order...)
}

// Len returns the number of rows (assumes all columns have same length)
func (df *DataFrame) Len() int {
	if len(df.order) == 0 {
		return 0
	}
	return df.columns[df.order[0]].Len()
}

// Width returns the number of columns
func (df *DataFrame) Width() int {
	return len(df.columns)
}

// Column returns the series for the given column name
func (df *DataFrame) Column(name string) (ISeries, bool) {
	series, exists := df.columns[name]
	return series, exists
}

// HasColumn checks if a column exists
func (df *DataFrame) HasColumn(name string) bool {
	_, exists := df.columns[name]
	return exists
}

// Select returns a new DataFrame with only the specified columns.
// The result shares column storage with df.
func (df *DataFrame) Select(names ...string) *DataFrame {
	selected := make([]ISeries, 0, len(names))
	for _, name := range names {
		if s, exists := df.columns[name]; exists {
			selected = append(selected, s)
		}
	}
	return New(selected...)
}

// Drop returns a new DataFrame without the specified columns.
// The result shares column storage with df.
func (df *DataFrame) Drop(names ...string) *DataFrame {
	dropSet := make(map[string]bool, len(names))
	for _, name := range names {
		dropSet[name] = true
	}

	kept := make([]ISeries, 0, len(df.order))
	for _, name := range df.order {
		if !dropSet[name] {
			kept = append(kept, df.columns[name])
		}
	}
	return New(kept...)
}

// String returns a string representation of the DataFrame
func (df *DataFrame) String() string {
	if len(df.columns) == 0 {
		return "DataFrame[empty]"
	}

	parts := []string{fmt.Sprintf("DataFrame[%dx%d]", df.Len(), df.Width())}
	for _, name := range df.order {
		parts = append(parts, fmt.Sprintf("  %s: %s", name, df.columns[name].DataType().String()))
	}
	return strings.Join(parts, "\n")
}

// Take creates a new DataFrame holding the given rows, in the given order.
// Null slots are carried over. Indices must be within [0, Len()).
func (df *DataFrame) Take(indices []int) (*DataFrame, error) {
	n := df.Len()
	for _, idx := range indices {
		if idx < 0 || idx >= n {
			return nil, errors.NewValidationError("Take", "",
				fmt.Sprintf("index %d out of bounds [0, %d)", idx, n))
		}
	}

	mem := memory.NewGoAllocator()
	taken := make([]ISeries, 0, len(df.order))
	for _, name := range df.order {
		s, err := takeSeries(df.columns[name], indices, mem)
		if err != nil {
			for _, t := range taken {
				t.Release()
			}
			return nil, err
		}
		taken = append(taken, s)
	}
	return New(taken...), nil
}

func takeSeries(s ISeries, indices []int, mem memory.Allocator) (ISeries, error) {
	arr := s.Array()
	defer arr.Release()

	valid := make([]bool, len(indices))
	for i, idx := range indices {
		valid[i] = !arr.IsNull(idx)
	}

	switch typed := arr.(type) {
	case *array.String:
		return series.NewWithValidity(s.Name(), gather(indices, typed.Value), valid, mem)
	case *array.Int64:
		return series.NewWithValidity(s.Name(), gather(indices, typed.Value), valid, mem)
	case *array.Float64:
		return series.NewWithValidity(s.Name(), gather(indices, typed.Value), valid, mem)
	case *array.Boolean:
		return series.NewWithValidity(s.Name(), gather(indices, typed.Value), valid, mem)
	default:
		return nil, errors.NewUnsupportedTypeError("Take", s.Name(), arr.DataType().String())
	}
}

func gather[T any](indices []int, value func(int) T) []T {
	out := make([]T, len(indices))
	for i, idx := range indices {
		out[i] = value(idx)
	}
	return out
}

// DuplicateMask marks every row that repeats an earlier row exactly.
// Hash collisions are resolved by comparing the full row keys.
func (df *DataFrame) DuplicateMask() []bool {
	n := df.Len()
	arrays := df.arrays()
	defer releaseAll(arrays)

	seen := make(map[uint64][]string, n)
	mask := make([]bool, n)
	var buf []byte
	for i := 0; i < n; i++ {
		buf = df.appendRowKey(buf[:0], arrays, i)
		h := xxhash.Sum64(buf)
		key := string(buf)
		dup := false
		for _, k := range seen[h] {
			if k == key {
				dup = true
				break
			}
		}
		if dup {
			mask[i] = true
			continue
		}
		seen[h] = append(seen[h], key)
	}
	return mask
}

func (df *DataFrame) appendRowKey(buf []byte, arrays []arrow.Array, row int) []byte {
	for _, arr := range arrays {
		switch {
		case arr.IsNull(row):
			buf = append(buf, 0x00)
		case series.IsMissing(arr, row):
			buf = append(buf, 0x01)
		default:
			buf = append(buf, 0x02)
			buf = append(buf, series.FormatValue(arr, row)...)
		}
		buf = append(buf, 0x1f)
	}
	return buf
}

func (df *DataFrame) arrays() []arrow.Array {
	arrays := make([]arrow.Array, 0, len(df.order))
	for _, name := range df.order {
		arrays = append(arrays, df.columns[name].Array())
	}
	return arrays
}

func releaseAll(arrays []arrow.Array) {
	for _, a := range arrays {
		a.Release()
	}
}

// Float64Values materialises a numeric column as float64; nulls become NaN.
func (df *DataFrame) Float64Values(name string) ([]float64, error) {
	s, ok := df.columns[name]
	if !ok {
		return nil, errors.NewColumnNotFoundError("Float64Values", name)
	}
	arr := s.Array()
	defer arr.Release()

	switch arr.(type) {
	case *array.Float64, *array.Int64, *array.Boolean:
	default:
		return nil, errors.NewUnsupportedTypeError("Float64Values", name, arr.DataType().String())
	}

	out := make([]float64, arr.Len())
	for i := range out {
		out[i] = series.FloatAt(arr, i)
	}
	return out, nil
}

// StringValues renders any column as text; nulls become "" and valid[i] is false.
func (df *DataFrame) StringValues(name string) (values []string, valid []bool, err error) {
	s, ok := df.columns[name]
	if !ok {
		return nil, nil, errors.NewColumnNotFoundError("StringValues", name)
	}
	arr := s.Array()
	defer arr.Release()

	values = make([]string, arr.Len())
	valid = make([]bool, arr.Len())
	for i := range values {
		valid[i] = !series.IsMissing(arr, i)
		values[i] = series.FormatValue(arr, i)
	}
	return values, valid, nil
}

// IsNumeric reports whether the named column holds int64 or float64 data.
func (df *DataFrame) IsNumeric(name string) bool {
	s, ok := df.columns[name]
	if !ok {
		return false
	}
	switch s.DataType().ID() {
	case arrow.INT64, arrow.FLOAT64:
		return true
	default:
		return false
	}
}

// NumericColumns lists numeric columns in column order.
func (df *DataFrame) NumericColumns() []string {
	var names []string
	for _, name := range df.order {
		if df.IsNumeric(name) {
			names = append(names, name)
		}
	}
	return names
}

// MissingCount counts nulls and NaN values in the named column.
func (df *DataFrame) MissingCount(name string) int {
	s, ok := df.columns[name]
	if !ok {
		return 0
	}
	arr := s.Array()
	defer arr.Release()

	if _, isFloat := arr.(*array.Float64); !isFloat {
		return arr.NullN()
	}
	count := 0
	for i := 0; i < arr.Len(); i++ {
		if series.IsMissing(arr, i) {
			count++
		}
	}
	return count
}

// Release releases all underlying Arrow memory
func (df *DataFrame) Release() {
	for _, series := range df.columns {
		series.Release()
	}
}
