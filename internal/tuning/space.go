// Package tuning implements a small sequential hyperparameter search: a
// seeded tree-structured Parzen estimator sampler, a median pruner, and the
// boosted-tree search built on them.
package tuning

import (
	"fmt"
	"math"
	"math/rand/v2"
)

// Param is one search dimension. Integer parameters are sampled on the same
// continuous scale and rounded; log parameters are searched in log space.
type Param struct {
	Name string
	Low  float64
	High float64
	Int  bool
	Log  bool
}

// IntParam is an integer range [low, high].
func IntParam(name string, low, high int) Param {
	return Param{Name: name, Low: float64(low), High: float64(high), Int: true}
}

// FloatParam is a uniform float range [low, high].
func FloatParam(name string, low, high float64) Param {
	return Param{Name: name, Low: low, High: high}
}

// LogFloatParam is a log-uniform float range [low, high]; low must be positive.
func LogFloatParam(name string, low, high float64) Param {
	return Param{Name: name, Low: low, High: high, Log: true}
}

// Validate reports an empty or ill-formed range.
func (p Param) Validate() error {
	switch {
	case p.Name == "":
		return fmt.Errorf("parameter without a name")
	case p.High < p.Low:
		return fmt.Errorf("parameter %s: high %v below low %v", p.Name, p.High, p.Low)
	case p.Log && p.Low <= 0:
		return fmt.Errorf("parameter %s: log range needs a positive low bound", p.Name)
	}
	return nil
}

// bounds returns the range in the internal search scale. Integer ranges are
// widened by half a step so every value has equal mass.
func (p Param) bounds() (lo, hi float64) {
	switch {
	case p.Log:
		return math.Log(p.Low), math.Log(p.High)
	case p.Int:
		return p.Low - 0.5, p.High + 0.5
	default:
		return p.Low, p.High
	}
}

func (p Param) toInternal(v float64) float64 {
	if p.Log {
		return math.Log(v)
	}
	return v
}

func (p Param) fromInternal(v float64) float64 {
	if p.Log {
		v = math.Exp(v)
	}
	if p.Int {
		v = math.Round(v)
	}
	return math.Min(math.Max(v, p.Low), p.High)
}

func (p Param) sampleUniform(rng *rand.Rand) float64 {
	lo, hi := p.bounds()
	return p.fromInternal(lo + rng.Float64()*(hi-lo))
}

// Space is an ordered set of search dimensions.
type Space []Param

// Validate checks every parameter and rejects duplicate names.
func (s Space) Validate() error {
	seen := make(map[string]bool, len(s))
	for _, p := range s {
		if err := p.Validate(); err != nil {
			return err
		}
		if seen[p.Name] {
			return fmt.Errorf("duplicate parameter %s", p.Name)
		}
		seen[p.Name] = true
	}
	return nil
}
