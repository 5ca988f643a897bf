// Package metrics scores binary classifiers. Ratio metrics whose denominator
// is zero evaluate to 0.
package metrics

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"
)

// Metric names, in report order.
const (
	NameROCAUC    = "roc_auc"
	NameF1        = "f1"
	NamePrecision = "precision"
	NameRecall    = "recall"
	NameAccuracy  = "accuracy"
)

// Names lists the cross-validated metrics in report order.
var Names = []string{NameROCAUC, NameF1, NamePrecision, NameRecall, NameAccuracy}

// Confusion is a 2x2 confusion matrix indexed [actual][predicted].
type Confusion [2][2]int

// TN is the count of true negatives.
func (c Confusion) TN() int { return c[0][0] }

// FP is the count of false positives.
func (c Confusion) FP() int { return c[0][1] }

// FN is the count of false negatives.
func (c Confusion) FN() int { return c[1][0] }

// TP is the count of true positives.
func (c Confusion) TP() int { return c[1][1] }

// Precision is TP / (TP + FP).
func (c Confusion) Precision() float64 {
	return ratio(c.TP(), c.TP()+c.FP())
}

// Recall is TP / (TP + FN).
func (c Confusion) Recall() float64 {
	return ratio(c.TP(), c.TP()+c.FN())
}

// F1 is the harmonic mean of precision and recall.
func (c Confusion) F1() float64 {
	return ratio(2*c.TP(), 2*c.TP()+c.FP()+c.FN())
}

// Accuracy is the share of correct predictions.
func (c Confusion) Accuracy() float64 {
	return ratio(c.TP()+c.TN(), c.TP()+c.TN()+c.FP()+c.FN())
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

// ConfusionMatrix counts pred against y. Both must have the same length.
func ConfusionMatrix(y, pred []int) Confusion {
	var c Confusion
	for i := range y {
		c[y[i]][pred[i]]++
	}
	return c
}

// Threshold labels every probability >= t as positive.
func Threshold(proba []float64, t float64) []int {
	out := make([]int, len(proba))
	for i, p := range proba {
		if p >= t {
			out[i] = 1
		}
	}
	return out
}

// Scores is the fixed metric set reported for every evaluation.
type Scores struct {
	ROCAUC    float64 `json:"roc_auc"`
	F1        float64 `json:"f1"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	Accuracy  float64 `json:"accuracy"`
}

// Get returns the metric with the given name.
func (s Scores) Get(name string) float64 {
	switch name {
	case NameROCAUC:
		return s.ROCAUC
	case NameF1:
		return s.F1
	case NamePrecision:
		return s.Precision
	case NameRecall:
		return s.Recall
	case NameAccuracy:
		return s.Accuracy
	default:
		return math.NaN()
	}
}

// Score computes Scores from labels, hard predictions and positive-class probabilities.
func Score(y, pred []int, proba []float64) Scores {
	c := ConfusionMatrix(y, pred)
	return Scores{
		ROCAUC:    ROCAUC(y, proba),
		F1:        c.F1(),
		Precision: c.Precision(),
		Recall:    c.Recall(),
		Accuracy:  c.Accuracy(),
	}
}

// Curve is a sequence of (X, Y) points with the threshold that produced each.
type Curve struct {
	X          []float64
	Y          []float64
	Thresholds []float64
}

// sortedByScore returns the scores in ascending order with matching classes.
func sortedByScore(y []int, score []float64) ([]float64, []bool) {
	idx := make([]int, len(score))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return score[idx[a]] < score[idx[b]] })

	s := make([]float64, len(idx))
	classes := make([]bool, len(idx))
	for i, j := range idx {
		s[i] = score[j]
		classes[i] = y[j] == 1
	}
	return s, classes
}

func bothClasses(y []int) bool {
	var pos, neg bool
	for _, v := range y {
		if v == 1 {
			pos = true
		} else {
			neg = true
		}
	}
	return pos && neg
}

// ROCCurve returns false positive rate (X) against true positive rate (Y),
// starting at (0, 0). It is empty when y holds a single class.
func ROCCurve(y []int, score []float64) Curve {
	if !bothClasses(y) {
		return Curve{}
	}
	s, classes := sortedByScore(y, score)
	tpr, fpr, thresh := stat.ROC(nil, s, classes, nil)
	return Curve{X: fpr, Y: tpr, Thresholds: thresh}
}

// ROCAUC is the area under the ROC curve, with tied scores counted as half
// a correct ranking. It is NaN when y holds a single class.
func ROCAUC(y []int, score []float64) float64 {
	c := ROCCurve(y, score)
	if len(c.X) < 2 {
		return math.NaN()
	}
	return integrate.Trapezoidal(c.X, c.Y)
}

// PRCurve returns recall (X) against precision (Y) for every distinct score
// taken as a threshold, from the highest threshold down, prefixed with the
// point (0, 1).
func PRCurve(y []int, score []float64) Curve {
	s, classes := sortedByScore(y, score)
	totalPos := 0
	for _, c := range classes {
		if c {
			totalPos++
		}
	}

	curve := Curve{X: []float64{0}, Y: []float64{1}, Thresholds: []float64{math.Inf(1)}}
	if totalPos == 0 {
		return curve
	}

	tp, fp := 0, 0
	for i := len(s) - 1; i >= 0; i-- {
		if classes[i] {
			tp++
		} else {
			fp++
		}
		if i > 0 && s[i-1] == s[i] {
			continue
		}
		curve.X = append(curve.X, float64(tp)/float64(totalPos))
		curve.Y = append(curve.Y, float64(tp)/float64(tp+fp))
		curve.Thresholds = append(curve.Thresholds, s[i])
	}
	return curve
}

// AveragePrecision summarises the PR curve as the recall-weighted mean of
// precision.
func AveragePrecision(y []int, score []float64) float64 {
	c := PRCurve(y, score)
	ap := 0.0
	for i := 1; i < len(c.X); i++ {
		ap += (c.X[i] - c.X[i-1]) * c.Y[i]
	}
	return ap
}

// Summary is the mean and population standard deviation of one metric over folds.
type Summary struct {
	Name string  `json:"name"`
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
}

// Summarize aggregates per-fold scores for every metric in Names.
func Summarize(folds []Scores) []Summary {
	out := make([]Summary, 0, len(Names))
	values := make([]float64, len(folds))
	for _, name := range Names {
		for i, s := range folds {
			values[i] = s.Get(name)
		}
		mean, std := stat.PopMeanStdDev(values, nil)
		out = append(out, Summary{Name: name, Mean: mean, Std: std})
	}
	return out
}
