// Package testutil provides common testing utilities shared by the pipeline packages.
//
// It consolidates the fixtures most tests need:
// - Memory allocator setup and cleanup
// - Line-item DataFrames built from typed rows
// - A seeded synthetic sales generator for end-to-end tests
// - Common DataFrame assertions
package testutil

import (
	"fmt"
	"math"
	"math/rand/v2"
	"path/filepath"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/returnlab/internal/dataframe"
	"github.com/paveg/returnlab/internal/io"
	"github.com/paveg/returnlab/internal/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMemoryContext provides memory allocator with automatic cleanup.
type TestMemoryContext struct {
	Allocator memory.Allocator
	cleanup   func()
}

// Release performs cleanup of the memory context.
func (tmc *TestMemoryContext) Release() {
	if tmc.cleanup != nil {
		tmc.cleanup()
	}
}

// SetupMemoryTest creates a memory allocator with automatic cleanup for tests.
// Returns a TestMemoryContext that should be released with defer.
//
// Example usage:
//
//	mem := testutil.SetupMemoryTest(t)
//	defer mem.Release()
func SetupMemoryTest(tb testing.TB) *TestMemoryContext {
	tb.Helper()
	allocator := memory.NewGoAllocator()

	return &TestMemoryContext{
		Allocator: allocator,
		cleanup: func() {
			// Memory allocator cleanup is handled by Go GC
		},
	}
}

// LineItem is one raw sales row as it appears in the input CSV.
type LineItem struct {
	TransactionID   string
	ItemID          string
	ItemCode        string
	Category        string
	Version         string
	Date            string
	Purchased       int64
	Refunded        float64
	FinalQuantity   int64
	TotalRevenue    float64
	PriceReductions float64
	SalesTax        float64
	Refunds         float64
}

// LineItemColumns is the raw column order produced by LineItemFrame.
var LineItemColumns = []string{
	"Transaction ID", "Item ID", "Item Code", "Category", "Version", "Date",
	"Purchased Item Count", "Refunded Item Count", "Final Quantity",
	"Total Revenue", "Price Reductions", "Sales Tax", "Refunds",
}

// LineItemOption configures line-item DataFrame creation.
type LineItemOption func(*lineItemConfig)

type lineItemConfig struct {
	nulls   map[string]map[int]bool
	dropped map[string]bool
	extra   bool
}

// WithNullCells marks the given rows of column as null.
func WithNullCells(column string, rows ...int) LineItemOption {
	return func(cfg *lineItemConfig) {
		if cfg.nulls[column] == nil {
			cfg.nulls[column] = make(map[int]bool)
		}
		for _, r := range rows {
			cfg.nulls[column][r] = true
		}
	}
}

// WithoutColumn omits a column from the frame.
func WithoutColumn(column string) LineItemOption {
	return func(cfg *lineItemConfig) {
		cfg.dropped[column] = true
	}
}

// WithPassthroughColumn appends an unused "Customer ID" column.
func WithPassthroughColumn() LineItemOption {
	return func(cfg *lineItemConfig) {
		cfg.extra = true
	}
}

// ToyLineItems returns two transactions: T1 bought one item and returned it on
// a separate refund row, T2 bought two units and kept them.
func ToyLineItems() []LineItem {
	return []LineItem{
		{TransactionID: "1", ItemID: "111", ItemCode: "ABC-001", Category: "A", Version: "1", Date: "01/01/2019",
			Purchased: 1, FinalQuantity: 1, TotalRevenue: 100, PriceReductions: -10, SalesTax: 20},
		{TransactionID: "1", ItemID: "111", ItemCode: "ABC-001", Category: "A", Version: "1", Date: "05/01/2019",
			Purchased: 0, Refunded: -1, FinalQuantity: -1, SalesTax: -20, Refunds: -100},
		{TransactionID: "2", ItemID: "222", ItemCode: "XYZ-999", Category: "B", Version: "v2", Date: "02/01/2019",
			Purchased: 2, FinalQuantity: 2, TotalRevenue: 200, SalesTax: 40},
	}
}

// LineItemFrame builds a raw line-item DataFrame from rows.
func LineItemFrame(allocator memory.Allocator, rows []LineItem, opts ...LineItemOption) *dataframe.DataFrame {
	cfg := &lineItemConfig{
		nulls:   make(map[string]map[int]bool),
		dropped: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	text := func(name string, get func(LineItem) string) dataframe.ISeries {
		values := make([]string, len(rows))
		for i, r := range rows {
			values[i] = get(r)
		}
		return mustSeries(name, values, cfg.valid(name, len(rows)), allocator)
	}
	ints := func(name string, get func(LineItem) int64) dataframe.ISeries {
		values := make([]int64, len(rows))
		for i, r := range rows {
			values[i] = get(r)
		}
		return mustSeries(name, values, cfg.valid(name, len(rows)), allocator)
	}
	floats := func(name string, get func(LineItem) float64) dataframe.ISeries {
		values := make([]float64, len(rows))
		for i, r := range rows {
			values[i] = get(r)
		}
		return mustSeries(name, values, cfg.valid(name, len(rows)), allocator)
	}

	all := []dataframe.ISeries{
		text("Transaction ID", func(r LineItem) string { return r.TransactionID }),
		text("Item ID", func(r LineItem) string { return r.ItemID }),
		text("Item Code", func(r LineItem) string { return r.ItemCode }),
		text("Category", func(r LineItem) string { return r.Category }),
		text("Version", func(r LineItem) string { return r.Version }),
		text("Date", func(r LineItem) string { return r.Date }),
		ints("Purchased Item Count", func(r LineItem) int64 { return r.Purchased }),
		floats("Refunded Item Count", func(r LineItem) float64 { return r.Refunded }),
		ints("Final Quantity", func(r LineItem) int64 { return r.FinalQuantity }),
		floats("Total Revenue", func(r LineItem) float64 { return r.TotalRevenue }),
		floats("Price Reductions", func(r LineItem) float64 { return r.PriceReductions }),
		floats("Sales Tax", func(r LineItem) float64 { return r.SalesTax }),
		floats("Refunds", func(r LineItem) float64 { return r.Refunds }),
	}
	if cfg.extra {
		all = append(all, text("Customer ID", func(r LineItem) string { return "C-" + r.TransactionID }))
	}

	kept := make([]dataframe.ISeries, 0, len(all))
	for _, s := range all {
		if cfg.dropped[s.Name()] {
			s.Release()
			continue
		}
		kept = append(kept, s)
	}
	return dataframe.New(kept...)
}

func (cfg *lineItemConfig) valid(column string, n int) []bool {
	valid := make([]bool, n)
	for i := range valid {
		valid[i] = !cfg.nulls[column][i]
	}
	return valid
}

func mustSeries[T any](name string, values []T, valid []bool, allocator memory.Allocator) dataframe.ISeries {
	s, err := series.NewWithValidity(name, values, valid, allocator)
	if err != nil {
		panic(err)
	}
	return s
}

// SyntheticLineItems generates a reproducible sales history of n transactions.
// Roughly a quarter of the transactions are returned; heavily discounted
// purchases and the "Clothing" category are returned more often so that the
// classifiers have signal to learn.
func SyntheticLineItems(n int, seed uint64) []LineItem {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	categories := []string{"Clothing", "Electronics", "Books", "Home"}
	versions := []string{"1", "v2", "v3"}
	prefixes := []string{"ABC", "XYZ", "QRS", "LMN"}
	start := time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)

	var rows []LineItem
	for t := 0; t < n; t++ {
		txID := fmt.Sprintf("T%05d", t)
		date := start.AddDate(0, 0, rng.IntN(3*365)).Format("02/01/2006")
		items := 1 + rng.IntN(3)
		score := -3.0

		var purchases []LineItem
		for k := 0; k < items; k++ {
			category := categories[rng.IntN(len(categories))]
			qty := int64(1 + rng.IntN(3))
			price := 5 + rng.Float64()*95
			revenue := price * float64(qty)
			discount := 0.0
			if rng.Float64() < 0.4 {
				discount = -revenue * (0.1 + 0.4*rng.Float64())
				score += 1.5
			}
			if category == "Clothing" {
				score += 0.8
			}
			purchases = append(purchases, LineItem{
				TransactionID:   txID,
				ItemID:          fmt.Sprintf("%d", 1000+rng.IntN(200)),
				ItemCode:        fmt.Sprintf("%s-%03d", prefixes[rng.IntN(len(prefixes))], rng.IntN(1000)),
				Category:        category,
				Version:         versions[rng.IntN(len(versions))],
				Date:            date,
				Purchased:       qty,
				FinalQuantity:   qty,
				TotalRevenue:    revenue + discount,
				PriceReductions: discount,
				SalesTax:        0.2 * (revenue + discount),
			})
		}
		rows = append(rows, purchases...)

		if rng.Float64() < 1/(1+math.Exp(-score)) {
			p := purchases[0]
			rows = append(rows, LineItem{
				TransactionID: txID,
				ItemID:        p.ItemID,
				ItemCode:      p.ItemCode,
				Category:      p.Category,
				Version:       p.Version,
				Date:          start.AddDate(0, 0, rng.IntN(3*365)).Format("02/01/2006"),
				Refunded:      -1,
				FinalQuantity: -1,
				SalesTax:      -p.SalesTax / float64(p.Purchased),
				Refunds:       -p.TotalRevenue / float64(p.Purchased),
			})
		}
	}
	return rows
}

// WriteLineItemsCSV writes rows to <dir>/sales.csv and returns the path.
func WriteLineItemsCSV(tb testing.TB, dir string, rows []LineItem, opts ...LineItemOption) string {
	tb.Helper()

	df := LineItemFrame(memory.NewGoAllocator(), rows, opts...)
	defer df.Release()

	path := filepath.Join(dir, "sales.csv")
	require.NoError(tb, io.WriteCSVFile(path, df))
	return path
}

// AssertDataFrameHasColumns verifies that a DataFrame has the expected columns.
func AssertDataFrameHasColumns(t *testing.T, df *dataframe.DataFrame, expectedColumns []string) {
	t.Helper()

	require.NotNil(t, df, "DataFrame should not be nil")

	actualColumns := df.Columns()
	assert.Len(t, actualColumns, len(expectedColumns), "column count should match")

	for _, col := range expectedColumns {
		assert.True(t, df.HasColumn(col), "DataFrame should have column %s", col)
	}
}

// AssertDataFrameNotEmpty verifies that a DataFrame is not empty.
func AssertDataFrameNotEmpty(t *testing.T, df *dataframe.DataFrame) {
	t.Helper()

	require.NotNil(t, df, "DataFrame should not be nil")
	assert.Positive(t, df.Len(), "DataFrame should not be empty")
	assert.Positive(t, df.Width(), "DataFrame should have columns")
}
