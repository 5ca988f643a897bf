package testutil_test

import (
	"testing"

	"github.com/paveg/returnlab/internal/io"
	"github.com/paveg/returnlab/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupMemoryTest(t *testing.T) {
	mem := testutil.SetupMemoryTest(t)
	defer mem.Release()

	require.NotNil(t, mem.Allocator)

	df := testutil.LineItemFrame(mem.Allocator, testutil.ToyLineItems())
	defer df.Release()

	testutil.AssertDataFrameNotEmpty(t, df)
}

func TestLineItemFrame(t *testing.T) {
	mem := testutil.SetupMemoryTest(t)
	defer mem.Release()

	t.Run("default columns", func(t *testing.T) {
		df := testutil.LineItemFrame(mem.Allocator, testutil.ToyLineItems())
		defer df.Release()

		assert.Equal(t, 3, df.Len())
		assert.Equal(t, testutil.LineItemColumns, df.Columns())
	})

	t.Run("null cells", func(t *testing.T) {
		df := testutil.LineItemFrame(mem.Allocator, testutil.ToyLineItems(),
			testutil.WithNullCells("Version", 0, 2))
		defer df.Release()

		assert.Equal(t, 2, df.MissingCount("Version"))
	})

	t.Run("dropped and passthrough columns", func(t *testing.T) {
		df := testutil.LineItemFrame(mem.Allocator, testutil.ToyLineItems(),
			testutil.WithoutColumn("Refunds"), testutil.WithPassthroughColumn())
		defer df.Release()

		assert.False(t, df.HasColumn("Refunds"))
		assert.True(t, df.HasColumn("Customer ID"))
		assert.Equal(t, len(testutil.LineItemColumns), df.Width())
	})
}

func TestSyntheticLineItems(t *testing.T) {
	a := testutil.SyntheticLineItems(50, 7)
	b := testutil.SyntheticLineItems(50, 7)
	assert.Equal(t, a, b, "same seed must give the same rows")

	c := testutil.SyntheticLineItems(50, 8)
	assert.NotEqual(t, a, c)

	var purchases, refunds int
	for _, r := range a {
		switch {
		case r.Purchased > 0:
			purchases++
		case r.Refunds < 0:
			refunds++
		}
	}
	assert.GreaterOrEqual(t, purchases, 50)
	assert.Positive(t, refunds)
	assert.Less(t, refunds, 50)
}

func TestSyntheticLineItemsReturnsAreMinority(t *testing.T) {
	for _, seed := range []uint64{2, 3, 5, 7, 11} {
		rows := testutil.SyntheticLineItems(240, seed)
		returned := map[string]bool{}
		for _, r := range rows {
			if r.Refunds < 0 {
				returned[r.TransactionID] = true
			}
		}
		rate := float64(len(returned)) / 240
		assert.Greater(t, rate, 0.1, "seed %d", seed)
		assert.Less(t, rate, 0.45, "seed %d: undersampling needs more negatives than positives", seed)
	}
}

func TestWriteLineItemsCSV(t *testing.T) {
	path := testutil.WriteLineItemsCSV(t, t.TempDir(), testutil.ToyLineItems())

	df, err := io.LoadCSV(path, io.DefaultCSVOptions(), nil)
	require.NoError(t, err)
	defer df.Release()

	testutil.AssertDataFrameHasColumns(t, df, testutil.LineItemColumns)
	assert.Equal(t, 3, df.Len())
}
