package features

import (
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/returnlab/internal/dataframe"
	"github.com/paveg/returnlab/internal/series"
)

// Transaction table columns.
const (
	ColItemsPurchasedSum  = "ItemsPurchased_sum"
	ColFinalQuantitySum   = "FinalQuantity_sum"
	ColUniqueItems        = "UniqueItems_n"
	ColUniqueCategories   = "UniqueCategories_n"
	ColTotalRevenueSum    = "TotalRevenue_sum"
	ColPriceReductionsSum = "PriceReductions_sum"
	ColSalesTaxSum        = "SalesTax_sum"
	ColCategoryFreqMean   = "Category_freq_mean"
	ColVersionFreqMean    = "Version_freq_mean"
	ColItemCodePrefixFreq = "ItemCodePrefix_freq_mean"
	ColDiscountRatio      = "DiscountRatio"
	ColTaxRatio           = "TaxRatio"
	ColUnitPrice          = "UnitPrice"
	ColYear               = "Year"
	ColMonth              = "Month"
	ColDayOfWeek          = "DayOfWeek"
	ColIsWeekend          = "IsWeekend"
	ColQuarter            = "Quarter"
	ColReturned           = "Returned"
)

// FeatureNames lists the model input columns in table order.
var FeatureNames = []string{
	ColItemsPurchasedSum, ColFinalQuantitySum, ColUniqueItems, ColUniqueCategories,
	ColTotalRevenueSum, ColPriceReductionsSum, ColSalesTaxSum,
	ColCategoryFreqMean, ColVersionFreqMean, ColItemCodePrefixFreq,
	ColDiscountRatio, ColTaxRatio, ColUnitPrice,
	ColYear, ColMonth, ColDayOfWeek, ColIsWeekend, ColQuarter,
}

// floatFeatureCount is the number of leading float64 features; the rest are calendar ints.
const floatFeatureCount = 13

// Transaction is one row of the transaction-level table.
type Transaction struct {
	ID string

	ItemsPurchasedSum  float64
	FinalQuantitySum   float64
	UniqueItems        float64
	UniqueCategories   float64
	TotalRevenueSum    float64
	PriceReductionsSum float64
	SalesTaxSum        float64
	CategoryFreqMean   float64
	VersionFreqMean    float64
	ItemCodePrefixFreq float64
	DiscountRatio      float64
	TaxRatio           float64
	UnitPrice          float64

	Calendar

	Returned int64
}

// Features returns the float feature vector in FeatureNames order.
func (tx Transaction) Features() []float64 {
	return []float64{
		tx.ItemsPurchasedSum, tx.FinalQuantitySum, tx.UniqueItems, tx.UniqueCategories,
		tx.TotalRevenueSum, tx.PriceReductionsSum, tx.SalesTaxSum,
		tx.CategoryFreqMean, tx.VersionFreqMean, tx.ItemCodePrefixFreq,
		tx.DiscountRatio, tx.TaxRatio, tx.UnitPrice,
		float64(tx.Year), float64(tx.Month), float64(tx.DayOfWeek), float64(tx.IsWeekend), float64(tx.Quarter),
	}
}

// Table is the transaction-level output of BuildTransactionLevel.
type Table struct {
	Rows []Transaction
}

// Len returns the number of transactions.
func (t *Table) Len() int {
	return len(t.Rows)
}

// ClassCounts returns the number of returned and kept transactions.
func (t *Table) ClassCounts() (positive, negative int) {
	for _, tx := range t.Rows {
		if tx.Returned == 1 {
			positive++
		} else {
			negative++
		}
	}
	return positive, negative
}

// Find returns the transaction with the given id.
func (t *Table) Find(id string) (Transaction, bool) {
	for _, tx := range t.Rows {
		if tx.ID == id {
			return tx, true
		}
	}
	return Transaction{}, false
}

// ToDataFrame renders the table as an Arrow-backed DataFrame. Calendar
// columns and Returned are int64, the id is text, everything else float64.
func (t *Table) ToDataFrame(mem memory.Allocator) *dataframe.DataFrame {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}
	n := len(t.Rows)

	ids := make([]string, n)
	floats := make([][]float64, floatFeatureCount)
	for j := range floats {
		floats[j] = make([]float64, n)
	}
	ints := make([][]int64, 6)
	for j := range ints {
		ints[j] = make([]int64, n)
	}

	for i, tx := range t.Rows {
		ids[i] = tx.ID
		for j, v := range tx.Features()[:floatFeatureCount] {
			floats[j][i] = v
		}
		ints[0][i] = tx.Year
		ints[1][i] = tx.Month
		ints[2][i] = tx.DayOfWeek
		ints[3][i] = tx.IsWeekend
		ints[4][i] = tx.Quarter
		ints[5][i] = tx.Returned
	}

	cols := []dataframe.ISeries{series.New(ColTransactionID, ids, mem)}
	for j, name := range FeatureNames[:floatFeatureCount] {
		cols = append(cols, series.New(name, floats[j], mem))
	}
	intNames := []string{ColYear, ColMonth, ColDayOfWeek, ColIsWeekend, ColQuarter, ColReturned}
	for j, name := range intNames {
		cols = append(cols, series.New(name, ints[j], mem))
	}
	return dataframe.New(cols...)
}

// TableColumns is the full column order of ToDataFrame.
func TableColumns() []string {
	cols := append([]string{ColTransactionID}, FeatureNames...)
	return append(cols, ColReturned)
}

// Matrix returns the features as a row-major slice of Len() x len(FeatureNames)
// values, together with the labels.
func (t *Table) Matrix() (data []float64, labels []int) {
	width := len(FeatureNames)
	data = make([]float64, 0, len(t.Rows)*width)
	labels = make([]int, len(t.Rows))
	for i, tx := range t.Rows {
		data = append(data, tx.Features()...)
		labels[i] = int(tx.Returned)
	}
	return data, labels
}
