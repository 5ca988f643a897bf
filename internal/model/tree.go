package model

import (
	"math"
	"math/rand/v2"
	"sort"
)

// leafFeature marks a terminal node.
const leafFeature = -1

type treeNode struct {
	feature     int
	threshold   float64
	left, right int
	value       float64
}

// decisionTree is a binary tree stored as a flat node slice; node 0 is the
// root. A sample goes left when its feature value is <= the threshold.
type decisionTree struct {
	nodes []treeNode
}

func (t *decisionTree) addLeaf(value float64) int {
	t.nodes = append(t.nodes, treeNode{feature: leafFeature, value: value})
	return len(t.nodes) - 1
}

func (t *decisionTree) predict(row []float64) float64 {
	i := 0
	for {
		n := &t.nodes[i]
		if n.feature == leafFeature {
			return n.value
		}
		if row[n.feature] <= n.threshold {
			i = n.left
		} else {
			i = n.right
		}
	}
}

// depth returns the length of the longest root-to-leaf path.
func (t *decisionTree) depth() int {
	var walk func(i int) int
	walk = func(i int) int {
		n := t.nodes[i]
		if n.feature == leafFeature {
			return 0
		}
		return 1 + max(walk(n.left), walk(n.right))
	}
	return walk(0)
}

// cartBuilder grows a Gini classification tree. At every node it inspects
// features in a random order and stops once maxFeatures have been examined
// and at least one valid split was seen.
type cartBuilder struct {
	rows            [][]float64
	y               []int
	maxDepth        int // 0 = unlimited
	minSamplesSplit int
	maxFeatures     int
	rng             *rand.Rand

	total      float64
	importance []float64
	tree       *decisionTree
}

func gini(n, pos float64) float64 {
	if n == 0 {
		return 0
	}
	p := pos / n
	return 2 * p * (1 - p)
}

type cartSplit struct {
	feature   int
	threshold float64
	impurity  float64 // weighted child impurity, nl*gl + nr*gr
	found     bool
}

func (b *cartBuilder) fit(idx []int) *decisionTree {
	b.tree = &decisionTree{}
	b.total = float64(len(idx))
	b.importance = make([]float64, len(b.rows[0]))
	b.grow(idx, 0)
	return b.tree
}

func (b *cartBuilder) grow(idx []int, depth int) int {
	n := float64(len(idx))
	pos := 0.0
	for _, i := range idx {
		pos += float64(b.y[i])
	}

	if pos == 0 || pos == n || len(idx) < b.minSamplesSplit || (b.maxDepth > 0 && depth >= b.maxDepth) {
		return b.tree.addLeaf(pos / n)
	}

	split := b.bestSplit(idx)
	if !split.found {
		return b.tree.addLeaf(pos / n)
	}

	b.importance[split.feature] += (n*gini(n, pos) - split.impurity) / b.total

	var left, right []int
	for _, i := range idx {
		if b.rows[i][split.feature] <= split.threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	node := len(b.tree.nodes)
	b.tree.nodes = append(b.tree.nodes, treeNode{feature: split.feature, threshold: split.threshold})
	l := b.grow(left, depth+1)
	r := b.grow(right, depth+1)
	b.tree.nodes[node].left = l
	b.tree.nodes[node].right = r
	return node
}

func (b *cartBuilder) bestSplit(idx []int) cartSplit {
	best := cartSplit{impurity: math.Inf(1)}
	sorted := make([]int, len(idx))
	n := float64(len(idx))
	totalPos := 0.0
	for _, i := range idx {
		totalPos += float64(b.y[i])
	}

	for visited, f := range b.rng.Perm(len(b.importance)) {
		if visited >= b.maxFeatures && best.found {
			break
		}

		copy(sorted, idx)
		sort.Slice(sorted, func(a, c int) bool { return b.rows[sorted[a]][f] < b.rows[sorted[c]][f] })

		leftPos := 0.0
		for k := 0; k < len(sorted)-1; k++ {
			leftPos += float64(b.y[sorted[k]])
			v, next := b.rows[sorted[k]][f], b.rows[sorted[k+1]][f]
			if v >= next {
				continue
			}
			nl := float64(k + 1)
			nr := n - nl
			impurity := nl*gini(nl, leftPos) + nr*gini(nr, totalPos-leftPos)
			if impurity < best.impurity {
				threshold := v + (next-v)/2
				if threshold >= next {
					threshold = v
				}
				best = cartSplit{feature: f, threshold: threshold, impurity: impurity, found: true}
			}
		}
	}
	return best
}
