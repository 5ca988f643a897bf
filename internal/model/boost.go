package model

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"github.com/paveg/returnlab/internal/config"
	"github.com/paveg/returnlab/internal/dataset"
	"gonum.org/v1/gonum/mat"
)

// maxBins bounds the histogram resolution of every feature.
const maxBins = 256

// minSplitLoss is the smallest gain accepted as a split.
const minSplitLoss = 1e-6

// Boost is a gradient-boosted tree ensemble trained with second-order
// (Newton) steps on the logistic loss over per-feature histograms.
type Boost struct {
	params config.BoostParams

	trees     []*decisionTree
	gain      []float64
	nFeatures int
}

// BoostOption adjusts the parameters NewBoost starts from.
type BoostOption func(*config.BoostParams)

// WithScalePosWeight sets the positive-class weight.
func WithScalePosWeight(w float64) BoostOption {
	return func(p *config.BoostParams) {
		p.ScalePosWeight = w
	}
}

// WithOverride merges a partial parameter set over the base.
func WithOverride(o config.BoostOverride) BoostOption {
	return func(p *config.BoostParams) {
		*p = p.Override(o)
	}
}

// NewBoost builds the boosted-tree model from base with the options applied
// in order, so an override given after a positive-class weight wins.
func NewBoost(base config.BoostParams, opts ...BoostOption) (*Boost, error) {
	params := base
	for _, opt := range opts {
		opt(&params)
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if params.Objective != config.DefaultObjective {
		return nil, fmt.Errorf("unsupported boost objective %q", params.Objective)
	}
	return &Boost{params: params}, nil
}

// MustBoost is NewBoost for parameters already validated by the caller.
func MustBoost(base config.BoostParams, opts ...BoostOption) *Boost {
	b, err := NewBoost(base, opts...)
	if err != nil {
		panic(err)
	}
	return b
}

// Name implements Classifier.
func (m *Boost) Name() string { return "XGBoost" }

// Params returns the effective hyperparameters.
func (m *Boost) Params() config.BoostParams { return m.params }

// Fit implements Classifier.
func (m *Boost) Fit(ctx context.Context, x mat.Matrix, y []int) error {
	n, p, err := checkFit("Boost.Fit", x, y)
	if err != nil {
		return err
	}
	rows := rowsOf(x)
	rng := dataset.NewRand(m.params.RandomState)

	hb := &histBuilder{
		params: m.params,
		grad:   make([]float64, n),
		hess:   make([]float64, n),
		gain:   make([]float64, p),
	}
	hb.binColumns(rows)

	margin := make([]float64, n)
	m.trees = make([]*decisionTree, 0, m.params.NEstimators)
	m.nFeatures = p

	nCols := max(1, int(m.params.ColsampleByTree*float64(p)))
	for t := 0; t < m.params.NEstimators; t++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		for i := range margin {
			prob := sigmoid(margin[i])
			w := 1.0
			if y[i] == 1 {
				w = m.params.ScalePosWeight
			}
			hb.grad[i] = (prob - float64(y[i])) * w
			hb.hess[i] = math.Max(prob*(1-prob), 1e-16) * w
		}

		sample := subsampleRows(rng, n, m.params.Subsample)
		cols := rng.Perm(p)[:nCols]
		sort.Ints(cols)

		tree := hb.fit(sample, cols)
		for i, row := range rows {
			margin[i] += tree.predict(row)
		}
		m.trees = append(m.trees, tree)
	}
	m.gain = hb.gain
	return nil
}

func subsampleRows(rng *rand.Rand, n int, rate float64) []int {
	if rate >= 1 {
		out := make([]int, n)
		for i := range out {
			out[i] = i
		}
		return out
	}
	out := make([]int, 0, int(float64(n)*rate)+1)
	for i := 0; i < n; i++ {
		if rng.Float64() < rate {
			out = append(out, i)
		}
	}
	if len(out) == 0 {
		out = append(out, rng.IntN(n))
	}
	return out
}

// PredictProba implements Classifier.
func (m *Boost) PredictProba(x mat.Matrix) ([]float64, error) {
	if m.trees == nil {
		return nil, ErrNotFitted
	}
	if _, err := checkPredict(x, m.nFeatures); err != nil {
		return nil, err
	}
	rows := rowsOf(x)
	out := make([]float64, len(rows))
	for i, row := range rows {
		margin := 0.0
		for _, t := range m.trees {
			margin += t.predict(row)
		}
		out[i] = sigmoid(margin)
	}
	return out, nil
}

// FeatureImportances implements FeatureImporter as normalised total gain.
func (m *Boost) FeatureImportances() []float64 {
	return normalize(append([]float64(nil), m.gain...))
}

// histBuilder grows depth-wise regression trees on gradient statistics.
type histBuilder struct {
	params config.BoostParams
	grad   []float64
	hess   []float64
	gain   []float64

	cuts [][]float64 // per feature, ascending bin boundaries
	bins [][]uint16  // per feature, bin of every row
	tree *decisionTree
}

// binColumns assigns every value to a quantile bin. Bin k of feature f holds
// values in [cuts[f][k-1], cuts[f][k]).
func (hb *histBuilder) binColumns(rows [][]float64) {
	p := len(rows[0])
	hb.cuts = make([][]float64, p)
	hb.bins = make([][]uint16, p)
	col := make([]float64, len(rows))
	for f := 0; f < p; f++ {
		for i, row := range rows {
			col[i] = row[f]
		}
		cuts := quantileCuts(col)
		bins := make([]uint16, len(rows))
		for i, v := range col {
			bins[i] = uint16(sort.Search(len(cuts), func(k int) bool { return cuts[k] > v }))
		}
		hb.cuts[f] = cuts
		hb.bins[f] = bins
	}
}

func quantileCuts(col []float64) []float64 {
	sorted := append([]float64(nil), col...)
	sort.Float64s(sorted)

	unique := sorted[:0:0]
	for i, v := range sorted {
		if i == 0 || v != sorted[i-1] {
			unique = append(unique, v)
		}
	}
	if len(unique) <= maxBins {
		return unique[1:]
	}

	var cuts []float64
	for q := 1; q < maxBins; q++ {
		v := sorted[q*len(sorted)/maxBins]
		if v == sorted[0] || (len(cuts) > 0 && v == cuts[len(cuts)-1]) {
			continue
		}
		cuts = append(cuts, v)
	}
	return cuts
}

func thresholdL1(g, alpha float64) float64 {
	switch {
	case g > alpha:
		return g - alpha
	case g < -alpha:
		return g + alpha
	default:
		return 0
	}
}

func (hb *histBuilder) score(g, h float64) float64 {
	t := thresholdL1(g, hb.params.RegAlpha)
	return t * t / (h + hb.params.RegLambda)
}

func (hb *histBuilder) leafValue(g, h float64) float64 {
	return -thresholdL1(g, hb.params.RegAlpha) / (h + hb.params.RegLambda) * hb.params.LearningRate
}

func (hb *histBuilder) fit(sample, cols []int) *decisionTree {
	hb.tree = &decisionTree{}
	hb.grow(sample, cols, 0)
	return hb.tree
}

type histSplit struct {
	feature int
	bin     int // rows with bin <= this go left
	gain    float64
	found   bool
}

func (hb *histBuilder) grow(idx, cols []int, depth int) int {
	var g, h float64
	for _, i := range idx {
		g += hb.grad[i]
		h += hb.hess[i]
	}
	if depth >= hb.params.MaxDepth || len(idx) < 2 || h < 2*hb.params.MinChildWeight {
		return hb.tree.addLeaf(hb.leafValue(g, h))
	}

	split := hb.bestSplit(idx, cols, g, h)
	if !split.found {
		return hb.tree.addLeaf(hb.leafValue(g, h))
	}
	hb.gain[split.feature] += split.gain

	bins := hb.bins[split.feature]
	var left, right []int
	for _, i := range idx {
		if int(bins[i]) <= split.bin {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	// Values in bin k are strictly below cuts[k]; the tree compares with <=.
	threshold := math.Nextafter(hb.cuts[split.feature][split.bin], math.Inf(-1))
	node := len(hb.tree.nodes)
	hb.tree.nodes = append(hb.tree.nodes, treeNode{feature: split.feature, threshold: threshold})
	l := hb.grow(left, cols, depth+1)
	r := hb.grow(right, cols, depth+1)
	hb.tree.nodes[node].left = l
	hb.tree.nodes[node].right = r
	return node
}

func (hb *histBuilder) bestSplit(idx, cols []int, g, h float64) histSplit {
	var best histSplit
	parent := hb.score(g, h)
	mcw := hb.params.MinChildWeight

	for _, f := range cols {
		cuts := hb.cuts[f]
		if len(cuts) == 0 {
			continue
		}
		gh := make([]float64, len(cuts)+1)
		hh := make([]float64, len(cuts)+1)
		bins := hb.bins[f]
		for _, i := range idx {
			gh[bins[i]] += hb.grad[i]
			hh[bins[i]] += hb.hess[i]
		}

		var gl, hl float64
		for k := 0; k < len(cuts); k++ {
			gl += gh[k]
			hl += hh[k]
			gr, hr := g-gl, h-hl
			if hl < mcw || hr < mcw {
				continue
			}
			gain := 0.5 * (hb.score(gl, hl) + hb.score(gr, hr) - parent)
			if gain > best.gain && gain > hb.params.Gamma && gain > minSplitLoss {
				best = histSplit{feature: f, bin: k, gain: gain, found: true}
			}
		}
	}
	return best
}
