// Package features turns cleaned line items into the transaction-level table.
//
// The label of a transaction is derived from all of its rows: it is returned
// when any row records a refund. Every feature is derived from the purchase
// rows alone (purchased item count > 0), so nothing produced by the refund
// event reaches the model inputs. Frequency encodings are computed over the
// purchase rows of the current run.
package features

import (
	"math"
	"time"

	"github.com/paveg/returnlab/internal/dataframe"
	"github.com/paveg/returnlab/internal/quality"
)

// BuildOptions tunes BuildTransactionLevel.
type BuildOptions struct {
	// IncludeRefundOnly keeps transactions without any purchase row. They get
	// zero features and their label. By default they are dropped.
	IncludeRefundOnly bool
}

// BuildTransactionLevel deduplicates df, binds it to the line-item schema and
// aggregates it into one row per transaction.
func BuildTransactionLevel(df *dataframe.DataFrame, opts BuildOptions) (*Table, error) {
	deduped, err := quality.RemoveDuplicates(df)
	if err != nil {
		return nil, err
	}
	defer deduped.Release()

	items, err := BindLineItems(deduped)
	if err != nil {
		return nil, err
	}
	return Aggregate(items, opts), nil
}

// Encodings are the frequency maps of one run.
type Encodings struct {
	Category       FrequencyMap
	Version        FrequencyMap
	ItemCodePrefix FrequencyMap
}

// NewEncodings builds the frequency maps over the purchase rows of items.
func NewEncodings(items []LineItem) Encodings {
	var categories, versions, prefixes []Text
	for _, li := range items {
		if !li.IsPurchase() {
			continue
		}
		categories = append(categories, li.Category)
		versions = append(versions, li.Version)
		prefixes = append(prefixes, ItemCodePrefix(li.ItemCode))
	}
	return Encodings{
		Category:       NewFrequencyMap(categories),
		Version:        NewFrequencyMap(versions),
		ItemCodePrefix: NewFrequencyMap(prefixes),
	}
}

type group struct {
	id       string
	earliest time.Time
	dated    bool

	purchased, finalQty, revenue, reductions, tax float64
	items, categories                             map[string]struct{}
	catFreq, verFreq, prefixFreq                  float64
	rows                                          int
}

// Aggregate builds the transaction table from bound line items. Items must
// already be free of exact duplicates. Output rows follow the first appearance
// of each transaction id among the purchase rows.
func Aggregate(items []LineItem, opts BuildOptions) *Table {
	labels := make(map[string]bool)
	var labelOrder []string
	for _, li := range items {
		if !li.TransactionID.Valid {
			continue
		}
		id := li.TransactionID.Value
		seen, ok := labels[id]
		if !ok {
			labelOrder = append(labelOrder, id)
		}
		labels[id] = seen || li.IsRefund()
	}

	enc := NewEncodings(items)

	groups := make(map[string]*group)
	var order []string
	for _, li := range items {
		if !li.IsPurchase() || !li.TransactionID.Valid {
			continue
		}
		id := li.TransactionID.Value
		g, ok := groups[id]
		if !ok {
			g = &group{
				id:         id,
				items:      make(map[string]struct{}),
				categories: make(map[string]struct{}),
			}
			groups[id] = g
			order = append(order, id)
		}
		g.add(li, enc)
	}

	table := &Table{Rows: make([]Transaction, 0, len(order))}
	for _, id := range order {
		tx := groups[id].transaction()
		if labels[id] {
			tx.Returned = 1
		}
		table.Rows = append(table.Rows, tx)
	}

	if opts.IncludeRefundOnly {
		for _, id := range labelOrder {
			if _, ok := groups[id]; ok {
				continue
			}
			tx := Transaction{ID: id}
			if labels[id] {
				tx.Returned = 1
			}
			table.Rows = append(table.Rows, tx)
		}
	}

	return table
}

func (g *group) add(li LineItem, enc Encodings) {
	g.rows++

	if t, ok := ParseDayFirst(li.Date); ok && (!g.dated || t.Before(g.earliest)) {
		g.earliest = t
		g.dated = true
	}

	g.purchased += nanToZero(li.Purchased)
	g.finalQty += nanToZero(li.FinalQuantity)
	g.revenue += nanToZero(li.TotalRevenue)
	g.reductions += nanToZero(li.PriceReductions)
	g.tax += nanToZero(li.SalesTax)

	if li.ItemID.Valid {
		g.items[li.ItemID.Value] = struct{}{}
	}
	if li.Category.Valid {
		g.categories[li.Category.Value] = struct{}{}
	}

	g.catFreq += enc.Category.Lookup(li.Category)
	g.verFreq += enc.Version.Lookup(li.Version)
	g.prefixFreq += enc.ItemCodePrefix.Lookup(ItemCodePrefix(li.ItemCode))
}

func (g *group) transaction() Transaction {
	n := float64(g.rows)
	tx := Transaction{
		ID:                 g.id,
		ItemsPurchasedSum:  g.purchased,
		FinalQuantitySum:   g.finalQty,
		UniqueItems:        float64(len(g.items)),
		UniqueCategories:   float64(len(g.categories)),
		TotalRevenueSum:    g.revenue,
		PriceReductionsSum: g.reductions,
		SalesTaxSum:        g.tax,
		CategoryFreqMean:   g.catFreq / n,
		VersionFreqMean:    g.verFreq / n,
		ItemCodePrefixFreq: g.prefixFreq / n,
		DiscountRatio:      SafeDiv(g.reductions, g.revenue),
		TaxRatio:           SafeDiv(g.tax, g.revenue),
		UnitPrice:          SafeDiv(g.revenue, g.finalQty),
	}
	if g.dated {
		tx.Calendar = CalendarOf(g.earliest)
	}
	tx.sanitize()
	return tx
}

// SafeDiv divides num by den, resolving a zero denominator to 0.
func SafeDiv(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

// sanitize replaces every non-finite float feature with 0.
func (tx *Transaction) sanitize() {
	for _, f := range []*float64{
		&tx.ItemsPurchasedSum, &tx.FinalQuantitySum, &tx.UniqueItems, &tx.UniqueCategories,
		&tx.TotalRevenueSum, &tx.PriceReductionsSum, &tx.SalesTaxSum,
		&tx.CategoryFreqMean, &tx.VersionFreqMean, &tx.ItemCodePrefixFreq,
		&tx.DiscountRatio, &tx.TaxRatio, &tx.UnitPrice,
	} {
		if math.IsNaN(*f) || math.IsInf(*f, 0) {
			*f = 0
		}
	}
}

func nanToZero(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return v
}
