// Package dataset holds the in-memory design matrix used for training and the
// seeded index splitters that partition it.
package dataset

import (
	"fmt"
	"math/rand/v2"

	"github.com/paveg/returnlab/internal/dataframe"
	"github.com/paveg/returnlab/internal/errors"
	"github.com/paveg/returnlab/internal/features"
	"github.com/paveg/returnlab/internal/validation"
	"gonum.org/v1/gonum/mat"
)

// Dataset is a dense feature matrix with binary labels.
type Dataset struct {
	X            *mat.Dense
	Y            []int
	FeatureNames []string
}

// New validates the shapes and wraps them in a Dataset.
func New(x *mat.Dense, y []int, featureNames []string) (*Dataset, error) {
	const op = "dataset.New"

	rows, cols := x.Dims()
	if err := validation.NewCompoundValidator(
		validation.NewLengthValidator(rows, len(y), op, "labels"),
		validation.NewLengthValidator(cols, len(featureNames), op, "feature names"),
		validation.NewBinaryLabelValidator(y, false, op),
	).Validate(); err != nil {
		return nil, err
	}
	return &Dataset{X: x, Y: y, FeatureNames: featureNames}, nil
}

// FromTable converts the transaction table into a Dataset over FeatureNames.
func FromTable(t *features.Table) (*Dataset, error) {
	if t.Len() == 0 {
		return nil, errors.ErrEmptyDataFrame
	}
	data, labels := t.Matrix()
	names := append([]string(nil), features.FeatureNames...)
	return New(mat.NewDense(t.Len(), len(names), data), labels, names)
}

// FromDataFrame uses every numeric column other than target and drop as a
// feature. Missing values become NaN.
func FromDataFrame(df *dataframe.DataFrame, target string, drop ...string) (*Dataset, error) {
	const op = "dataset.FromDataFrame"

	if err := validation.NewCompoundValidator(
		validation.NewEmptyDataFrameValidator(df, op),
		validation.NewNumericColumnValidator(df, op, target),
	).Validate(); err != nil {
		return nil, err
	}

	skip := map[string]bool{target: true}
	for _, name := range drop {
		skip[name] = true
	}

	var names []string
	for _, name := range df.NumericColumns() {
		if !skip[name] {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return nil, errors.NewInvalidInputError(op, "no numeric feature columns")
	}

	n := df.Len()
	x := mat.NewDense(n, len(names), nil)
	for j, name := range names {
		values, err := df.Float64Values(name)
		if err != nil {
			return nil, err
		}
		x.SetCol(j, values)
	}

	raw, err := df.Float64Values(target)
	if err != nil {
		return nil, err
	}
	y := make([]int, n)
	for i, v := range raw {
		if v != 0 && v != 1 {
			return nil, errors.NewValidationError(op, target, fmt.Sprintf("row %d: label %v is not 0 or 1", i, v))
		}
		y[i] = int(v)
	}
	return New(x, y, names)
}

// Len returns the number of samples.
func (d *Dataset) Len() int {
	return len(d.Y)
}

// NumFeatures returns the number of columns of X.
func (d *Dataset) NumFeatures() int {
	_, c := d.X.Dims()
	return c
}

// ClassCounts returns the number of positive and negative labels.
func (d *Dataset) ClassCounts() (positive, negative int) {
	return CountClasses(d.Y)
}

// ScalePosWeight is negatives / max(positives, 1).
func (d *Dataset) ScalePosWeight() float64 {
	pos, neg := d.ClassCounts()
	return float64(neg) / float64(max(pos, 1))
}

// PositiveRate is the mean label.
func (d *Dataset) PositiveRate() float64 {
	if d.Len() == 0 {
		return 0
	}
	pos, _ := d.ClassCounts()
	return float64(pos) / float64(d.Len())
}

// Subset copies the given rows, in order, into a new Dataset.
func (d *Dataset) Subset(indices []int) *Dataset {
	y := make([]int, len(indices))
	if len(indices) == 0 {
		// gonum rejects zero-sized matrices; an empty Dense reports 0x0.
		return &Dataset{X: &mat.Dense{}, Y: y, FeatureNames: d.FeatureNames}
	}

	x := mat.NewDense(len(indices), d.NumFeatures(), nil)
	for i, idx := range indices {
		x.SetRow(i, d.X.RawRowView(idx))
		y[i] = d.Y[idx]
	}
	return &Dataset{X: x, Y: y, FeatureNames: d.FeatureNames}
}

// CountClasses counts the labels equal to 1 and to 0.
func CountClasses(y []int) (positive, negative int) {
	for _, v := range y {
		if v == 1 {
			positive++
		} else {
			negative++
		}
	}
	return positive, negative
}

// NewRand returns the generator used by every seeded step of the pipeline.
func NewRand(seed int64) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x5851f42d4c957f2d))
}
