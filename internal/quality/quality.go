// Package quality audits raw line-item tables and removes exact duplicate rows.
//
// An audit counts rows, columns, exact duplicate rows and missing cells. A cell
// is missing when it is an Arrow null (an empty or NA cell in the CSV) or a
// float NaN. Preprocess audits, deduplicates, and audits again.
package quality

import (
	"sort"

	"github.com/paveg/returnlab/internal/dataframe"
	"github.com/rs/zerolog"
)

// topNaNColumns bounds the per-column missing breakdown of a Report.
const topNaNColumns = 10

// ColumnCount is a column name with its missing-cell count.
type ColumnCount struct {
	Column string `json:"column"`
	Count  int    `json:"count"`
}

// Report is a data-quality snapshot.
type Report struct {
	NRows         int           `json:"n_rows"`
	NCols         int           `json:"n_cols"`
	DuplicateRows int           `json:"duplicate_rows"`
	AnyNaN        bool          `json:"any_nan"`
	NaNTotal      int           `json:"nan_total"`
	NaNByColTop10 []ColumnCount `json:"nan_by_col_top10"`
}

// Reports pairs the audits taken before and after cleaning.
type Reports struct {
	Before Report `json:"before"`
	After  Report `json:"after"`
}

// MarshalZerologObject lets a Report be logged with Object().
func (r Report) MarshalZerologObject(e *zerolog.Event) {
	e.Int("n_rows", r.NRows).
		Int("n_cols", r.NCols).
		Int("duplicate_rows", r.DuplicateRows).
		Bool("any_nan", r.AnyNaN).
		Int("nan_total", r.NaNTotal)

	top := zerolog.Dict()
	for _, c := range r.NaNByColTop10 {
		top.Int(c.Column, c.Count)
	}
	e.Dict("nan_by_col_top10", top)
}

// Audit computes a Report for df. df is not modified.
func Audit(df *dataframe.DataFrame) Report {
	report := Report{
		NRows:         df.Len(),
		NCols:         df.Width(),
		NaNByColTop10: []ColumnCount{},
	}

	for _, dup := range df.DuplicateMask() {
		if dup {
			report.DuplicateRows++
		}
	}

	var missing []ColumnCount
	for _, name := range df.Columns() {
		n := df.MissingCount(name)
		report.NaNTotal += n
		if n > 0 {
			missing = append(missing, ColumnCount{Column: name, Count: n})
		}
	}
	report.AnyNaN = report.NaNTotal > 0

	sort.SliceStable(missing, func(i, j int) bool {
		if missing[i].Count != missing[j].Count {
			return missing[i].Count > missing[j].Count
		}
		return missing[i].Column < missing[j].Column
	})
	if len(missing) > topNaNColumns {
		missing = missing[:topNaNColumns]
	}
	if missing != nil {
		report.NaNByColTop10 = missing
	}

	return report
}

// RemoveDuplicates returns a new DataFrame with every row that repeats an
// earlier row removed. The first occurrence is kept and order is preserved.
func RemoveDuplicates(df *dataframe.DataFrame) (*dataframe.DataFrame, error) {
	mask := df.DuplicateMask()
	keep := make([]int, 0, len(mask))
	for i, dup := range mask {
		if !dup {
			keep = append(keep, i)
		}
	}
	return df.Take(keep)
}

// Preprocess audits df, removes duplicates, and audits the result. The input
// is left untouched; the caller owns the returned DataFrame.
func Preprocess(df *dataframe.DataFrame) (*dataframe.DataFrame, Reports, error) {
	before := Audit(df)

	clean, err := RemoveDuplicates(df)
	if err != nil {
		return nil, Reports{}, err
	}

	return clean, Reports{Before: before, After: Audit(clean)}, nil
}
