package dataset

import (
	"fmt"
	"math"
	"sort"

	"github.com/paveg/returnlab/internal/errors"
	"github.com/paveg/returnlab/internal/validation"
)

// Fold is one train/test partition of sample indices.
type Fold struct {
	Train []int
	Test  []int
}

// classIndices groups sample indices by label, shuffling each group with rng.
func classIndices(y []int, seed int64) [2][]int {
	var groups [2][]int
	for i, v := range y {
		groups[v] = append(groups[v], i)
	}
	rng := NewRand(seed)
	for c := range groups {
		g := groups[c]
		rng.Shuffle(len(g), func(i, j int) { g[i], g[j] = g[j], g[i] })
	}
	return groups
}

// StratifiedSplit partitions the indices of y into train and test sets that
// keep the class proportions. Each class contributes round(testSize * n_c)
// samples to the test set and keeps at least one in each side.
func StratifiedSplit(y []int, testSize float64, seed int64) (train, test []int, err error) {
	const op = "StratifiedSplit"

	if testSize <= 0 || testSize >= 1 {
		return nil, nil, errors.NewInvalidInputError(op, fmt.Sprintf("test size must be in (0, 1), got %v", testSize))
	}
	if err := validation.ValidateBinaryLabels(y, true, op); err != nil {
		return nil, nil, err
	}

	for c, group := range classIndices(y, seed) {
		if len(group) < 2 {
			return nil, nil, errors.NewInvalidInputError(op,
				fmt.Sprintf("class %d has %d member(s), need at least 2", c, len(group)))
		}
		nTest := int(math.Round(testSize * float64(len(group))))
		nTest = min(max(nTest, 1), len(group)-1)
		test = append(test, group[:nTest]...)
		train = append(train, group[nTest:]...)
	}

	rng := NewRand(seed + 1)
	rng.Shuffle(len(train), func(i, j int) { train[i], train[j] = train[j], train[i] })
	rng.Shuffle(len(test), func(i, j int) { test[i], test[j] = test[j], test[i] })
	return train, test, nil
}

// StratifiedKFold shuffles each class with seed and deals its members round
// robin over k folds, continuing the rotation across classes so fold sizes
// differ by at most one. Every fold's test set holds both classes when each
// class has at least k members.
func StratifiedKFold(y []int, k int, seed int64) ([]Fold, error) {
	const op = "StratifiedKFold"

	if k < 2 {
		return nil, errors.NewInvalidInputError(op, fmt.Sprintf("need at least 2 folds, got %d", k))
	}
	if err := validation.ValidateBinaryLabels(y, true, op); err != nil {
		return nil, err
	}

	groups := classIndices(y, seed)
	for c, group := range groups {
		if len(group) < k {
			return nil, errors.NewInvalidInputError(op,
				fmt.Sprintf("class %d has %d member(s), fewer than %d folds", c, len(group), k))
		}
	}

	assign := make([]int, len(y))
	next := 0
	for _, group := range groups {
		for _, idx := range group {
			assign[idx] = next
			next = (next + 1) % k
		}
	}

	folds := make([]Fold, k)
	for i, f := range assign {
		for j := range folds {
			if j == f {
				folds[j].Test = append(folds[j].Test, i)
			} else {
				folds[j].Train = append(folds[j].Train, i)
			}
		}
	}
	for j := range folds {
		sort.Ints(folds[j].Test)
		sort.Ints(folds[j].Train)
	}
	return folds, nil
}

// Undersample keeps every positive and an equal-size sample of negatives
// drawn without replacement, returned in a seeded random order.
func Undersample(y []int, seed int64) ([]int, error) {
	const op = "Undersample"

	var pos, neg []int
	for i, v := range y {
		if v == 1 {
			pos = append(pos, i)
		} else {
			neg = append(neg, i)
		}
	}
	if len(neg) < len(pos) {
		return nil, errors.NewInvalidInputError(op,
			fmt.Sprintf("%d negatives cannot match %d positives", len(neg), len(pos)))
	}

	rng := NewRand(seed)
	perm := rng.Perm(len(neg))
	out := make([]int, 0, 2*len(pos))
	out = append(out, pos...)
	for _, p := range perm[:len(pos)] {
		out = append(out, neg[p])
	}
	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out, nil
}
