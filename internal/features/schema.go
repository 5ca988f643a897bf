package features

import (
	"github.com/paveg/returnlab/internal/dataframe"
	"github.com/paveg/returnlab/internal/validation"
)

// Raw line-item columns.
const (
	ColTransactionID   = "Transaction ID"
	ColItemID          = "Item ID"
	ColItemCode        = "Item Code"
	ColCategory        = "Category"
	ColVersion         = "Version"
	ColDate            = "Date"
	ColPurchased       = "Purchased Item Count"
	ColRefunded        = "Refunded Item Count"
	ColFinalQuantity   = "Final Quantity"
	ColTotalRevenue    = "Total Revenue"
	ColPriceReductions = "Price Reductions"
	ColSalesTax        = "Sales Tax"
	ColRefunds         = "Refunds"
)

// TextColumns are read as text whatever type the CSV reader inferred.
var TextColumns = []string{ColTransactionID, ColItemID, ColItemCode, ColCategory, ColVersion, ColDate}

// NumericColumns must hold int64 or float64 data.
var NumericColumns = []string{
	ColPurchased, ColRefunded, ColFinalQuantity,
	ColTotalRevenue, ColPriceReductions, ColSalesTax, ColRefunds,
}

// Text is a nullable string cell.
type Text struct {
	Value string
	Valid bool
}

// LineItem is one bound raw row. Missing numeric cells are NaN.
type LineItem struct {
	TransactionID Text
	ItemID        Text
	ItemCode      Text
	Category      Text
	Version       Text
	Date          Text

	Purchased       float64
	Refunded        float64
	FinalQuantity   float64
	TotalRevenue    float64
	PriceReductions float64
	SalesTax        float64
	Refunds         float64
}

// IsRefund reports whether the row records a refund. NaN never compares below zero.
func (li LineItem) IsRefund() bool {
	return li.Refunded < 0 || li.Refunds < 0
}

// IsPurchase reports whether the row belongs to the purchase subset.
func (li LineItem) IsPurchase() bool {
	return li.Purchased > 0
}

// BindLineItems checks df against the line-item schema and materialises typed
// rows. A missing column fails with a column-not-found DataFrameError before
// any row is read; extra columns are ignored.
func BindLineItems(df *dataframe.DataFrame) ([]LineItem, error) {
	const op = "BindLineItems"

	if err := validation.ValidateColumns(df, op, TextColumns...); err != nil {
		return nil, err
	}
	if err := validation.ValidateNumericColumns(df, op, NumericColumns...); err != nil {
		return nil, err
	}

	texts := make(map[string][]Text, len(TextColumns))
	for _, name := range TextColumns {
		values, valid, err := df.StringValues(name)
		if err != nil {
			return nil, err
		}
		col := make([]Text, len(values))
		for i := range values {
			col[i] = Text{Value: values[i], Valid: valid[i]}
		}
		texts[name] = col
	}

	nums := make(map[string][]float64, len(NumericColumns))
	for _, name := range NumericColumns {
		values, err := df.Float64Values(name)
		if err != nil {
			return nil, err
		}
		nums[name] = values
	}

	items := make([]LineItem, df.Len())
	for i := range items {
		items[i] = LineItem{
			TransactionID: texts[ColTransactionID][i],
			ItemID:        texts[ColItemID][i],
			ItemCode:      texts[ColItemCode][i],
			Category:      texts[ColCategory][i],
			Version:       texts[ColVersion][i],
			Date:          texts[ColDate][i],

			Purchased:       nums[ColPurchased][i],
			Refunded:        nums[ColRefunded][i],
			FinalQuantity:   nums[ColFinalQuantity][i],
			TotalRevenue:    nums[ColTotalRevenue][i],
			PriceReductions: nums[ColPriceReductions][i],
			SalesTax:        nums[ColSalesTax][i],
			Refunds:         nums[ColRefunds][i],
		}
	}
	return items, nil
}
