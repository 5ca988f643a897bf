package io_test

import (
	stdio "io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/returnlab/internal/dataframe"
	"github.com/paveg/returnlab/internal/errors"
	"github.com/paveg/returnlab/internal/io"
	"github.com/paveg/returnlab/internal/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVReader(t *testing.T) {
	mem := memory.NewGoAllocator()

	t.Run("reads simple CSV with headers", func(t *testing.T) {
		csvData := `a,b
1,x
2,y`

		df, err := io.NewCSVReader(strings.NewReader(csvData), io.DefaultCSVOptions(), mem).Read()
		require.NoError(t, err)
		defer df.Release()

		assert.Equal(t, 2, df.Len())
		assert.Equal(t, 2, df.Width())
		assert.Equal(t, []string{"a", "b"}, df.Columns())
	})

	t.Run("reads CSV without headers", func(t *testing.T) {
		options := io.DefaultCSVOptions()
		options.Header = false

		df, err := io.NewCSVReader(strings.NewReader("1,2\n3,4"), options, mem).Read()
		require.NoError(t, err)
		defer df.Release()

		assert.Equal(t, []string{"column_0", "column_1"}, df.Columns())
		assert.Equal(t, 2, df.Len())
	})

	t.Run("reads CSV with custom delimiter", func(t *testing.T) {
		options := io.DefaultCSVOptions()
		options.Delimiter = ';'

		df, err := io.NewCSVReader(strings.NewReader("name;qty\nshirt;2"), options, mem).Read()
		require.NoError(t, err)
		defer df.Release()

		assert.Equal(t, []string{"name", "qty"}, df.Columns())
	})

	t.Run("handles empty CSV", func(t *testing.T) {
		df, err := io.NewCSVReader(strings.NewReader(""), io.DefaultCSVOptions(), mem).Read()
		require.NoError(t, err)
		defer df.Release()

		assert.Equal(t, 0, df.Len())
		assert.Equal(t, 0, df.Width())
	})

	t.Run("handles CSV with only headers", func(t *testing.T) {
		df, err := io.NewCSVReader(strings.NewReader("a,b,c"), io.DefaultCSVOptions(), mem).Read()
		require.NoError(t, err)
		defer df.Release()

		assert.Equal(t, 0, df.Len())
		assert.Equal(t, []string{"a", "b", "c"}, df.Columns())
	})

	t.Run("infers column types", func(t *testing.T) {
		csvData := `name,qty,price,active
Alice,25,5.5,true
Bob,-1,6.0,false`

		df, err := io.NewCSVReader(strings.NewReader(csvData), io.DefaultCSVOptions(), mem).Read()
		require.NoError(t, err)
		defer df.Release()

		nameCol, _ := df.Column("name")
		nameArray := nameCol.Array()
		defer nameArray.Release()
		assert.Equal(t, "Alice", nameArray.(*array.String).Value(0))

		qtyCol, _ := df.Column("qty")
		qtyArray := qtyCol.Array()
		defer qtyArray.Release()
		assert.Equal(t, int64(-1), qtyArray.(*array.Int64).Value(1))

		priceCol, _ := df.Column("price")
		priceArray := priceCol.Array()
		defer priceArray.Release()
		assert.InDelta(t, 5.5, priceArray.(*array.Float64).Value(0), 1e-9)

		activeCol, _ := df.Column("active")
		activeArray := activeCol.Array()
		defer activeArray.Release()
		assert.True(t, activeArray.(*array.Boolean).Value(0))
	})

	t.Run("empty cells and NA tokens become nulls", func(t *testing.T) {
		csvData := `Version,Refunds
v1,1.5
,NA
N/A,`

		df, err := io.NewCSVReader(strings.NewReader(csvData), io.DefaultCSVOptions(), mem).Read()
		require.NoError(t, err)
		defer df.Release()

		assert.Equal(t, 2, df.MissingCount("Version"))
		assert.Equal(t, 2, df.MissingCount("Refunds"))
		assert.True(t, df.IsNumeric("Refunds"))
	})

	t.Run("all-empty columns are float", func(t *testing.T) {
		csvData := "Category,Price Reductions,Refunds\nBooks,,\nHome,,NA"

		df, err := io.NewCSVReader(strings.NewReader(csvData), io.DefaultCSVOptions(), mem).Read()
		require.NoError(t, err)
		defer df.Release()

		for _, name := range []string{"Price Reductions", "Refunds"} {
			assert.True(t, df.IsNumeric(name), name)
			assert.Equal(t, 2, df.MissingCount(name), name)
			values, err := df.Float64Values(name)
			require.NoError(t, err)
			assert.True(t, math.IsNaN(values[0]) && math.IsNaN(values[1]), name)
		}
		assert.False(t, df.IsNumeric("Category"))
	})

	t.Run("string columns can be forced", func(t *testing.T) {
		options := io.DefaultCSVOptions()
		options.StringColumns = []string{"Transaction ID"}

		df, err := io.NewCSVReader(strings.NewReader("Transaction ID,qty\n001,1\n002,2"), options, mem).Read()
		require.NoError(t, err)
		defer df.Release()

		ids, _, err := df.StringValues("Transaction ID")
		require.NoError(t, err)
		assert.Equal(t, []string{"001", "002"}, ids)
		assert.False(t, df.IsNumeric("Transaction ID"))
	})

	t.Run("quoted fields with commas newlines and quotes", func(t *testing.T) {
		csvData := "Item Code,Category\n\"A-1, large\",\"multi\nline\"\n\"say \"\"hi\"\"\",plain"

		df, err := io.NewCSVReader(strings.NewReader(csvData), io.DefaultCSVOptions(), mem).Read()
		require.NoError(t, err)
		defer df.Release()

		codes, _, err := df.StringValues("Item Code")
		require.NoError(t, err)
		assert.Equal(t, []string{"A-1, large", `say "hi"`}, codes)

		cats, _, err := df.StringValues("Category")
		require.NoError(t, err)
		assert.Equal(t, "multi\nline", cats[0])
	})

	t.Run("malformed CSV fails", func(t *testing.T) {
		_, err := io.NewCSVReader(strings.NewReader("a,b\n\"unterminated,1"), io.DefaultCSVOptions(), mem).Read()
		require.Error(t, err)
	})
}

func TestCSVWriter(t *testing.T) {
	mem := memory.NewGoAllocator()

	t.Run("writes simple CSV with headers", func(t *testing.T) {
		df := createTestDataFrame(mem)
		defer df.Release()

		var output strings.Builder
		require.NoError(t, io.NewCSVWriter(&output, io.DefaultCSVOptions()).Write(df))

		assert.Equal(t, "name,qty,price\nshirt,1,9.5\nhat,2,\n", output.String())
	})

	t.Run("writes CSV without headers", func(t *testing.T) {
		df := createTestDataFrame(mem)
		defer df.Release()

		options := io.DefaultCSVOptions()
		options.Header = false

		var output strings.Builder
		require.NoError(t, io.NewCSVWriter(&output, options).Write(df))

		assert.Equal(t, "shirt,1,9.5\nhat,2,\n", output.String())
	})

	t.Run("writes CSV with custom delimiter", func(t *testing.T) {
		df := createTestDataFrame(mem)
		defer df.Release()

		options := io.DefaultCSVOptions()
		options.Delimiter = ';'

		var output strings.Builder
		require.NoError(t, io.NewCSVWriter(&output, options).Write(df))

		assert.Equal(t, "name;qty;price\nshirt;1;9.5\nhat;2;\n", output.String())
	})
}

func TestLoadCSV(t *testing.T) {
	mem := memory.NewGoAllocator()

	t.Run("valid file returns matching shape", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "sales.csv")
		require.NoError(t, os.WriteFile(path, []byte("a,b\n1,x\n2,y\n"), 0o600))

		df, err := io.LoadCSV(path, io.DefaultCSVOptions(), mem)
		require.NoError(t, err)
		defer df.Release()

		assert.Equal(t, 2, df.Len())
		assert.Equal(t, []string{"a", "b"}, df.Columns())
	})

	t.Run("missing file reports not found", func(t *testing.T) {
		_, err := io.LoadCSV(filepath.Join(t.TempDir(), "nope.csv"), io.DefaultCSVOptions(), mem)
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrFileNotFound)
		assert.Contains(t, err.Error(), "nope.csv")
	})

	t.Run("round trip through WriteCSVFile", func(t *testing.T) {
		df := createTestDataFrame(mem)
		defer df.Release()

		path := filepath.Join(t.TempDir(), "nested", "out.csv")
		require.NoError(t, io.WriteCSVFile(path, df))

		loaded, err := io.LoadCSV(path, io.DefaultCSVOptions(), mem)
		require.NoError(t, err)
		defer loaded.Release()

		assert.Equal(t, df.Columns(), loaded.Columns())
		assert.Equal(t, 1, loaded.MissingCount("price"))
	})
}

func createTestDataFrame(mem memory.Allocator) *dataframe.DataFrame {
	names, _ := series.NewSafe("name", []string{"shirt", "hat"}, mem)
	qty, _ := series.NewSafe("qty", []int64{1, 2}, mem)
	price, _ := series.NewWithValidity("price", []float64{9.5, 0}, []bool{true, false}, mem)

	return dataframe.New(names, qty, price)
}

func TestReadWriteFile(t *testing.T) {
	mem := memory.NewGoAllocator()
	tsv := io.DefaultCSVOptions()
	tsv.Delimiter = '\t'

	df := createTestDataFrame(mem)
	defer df.Release()

	path := filepath.Join(t.TempDir(), "out.tsv")
	require.NoError(t, io.WriteFile(path, df, func(w stdio.Writer) io.DataWriter {
		return io.NewCSVWriter(w, tsv)
	}))

	loaded, err := io.ReadFile(path, func(r stdio.Reader) io.DataReader {
		return io.NewCSVReader(r, tsv, mem)
	})
	require.NoError(t, err)
	defer loaded.Release()
	assert.Equal(t, df.Columns(), loaded.Columns())
	assert.Equal(t, df.Len(), loaded.Len())

	called := false
	_, err = io.ReadFile(filepath.Join(t.TempDir(), "absent.tsv"), func(r stdio.Reader) io.DataReader {
		called = true
		return io.NewCSVReader(r, tsv, mem)
	})
	assert.ErrorIs(t, err, errors.ErrFileNotFound)
	assert.False(t, called, "the reader is built only for an existing file")
}
