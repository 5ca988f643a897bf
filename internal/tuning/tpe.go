package tuning

import (
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"
)

// TPE defaults
const (
	DefaultStartupTrials = 10
	DefaultCandidates    = 24
	maxGoodTrials        = 25
	priorWeight          = 1.0
)

// TPESampler is a univariate tree-structured Parzen estimator. The first
// StartupTrials draws are uniform; after that the completed trials are split
// into a good set (top 10%, at most 25) and a bad set, each parameter gets a
// truncated-Gaussian mixture per set, and the candidate maximising
// l(x)/g(x) among Candidates draws from the good mixture is proposed.
type TPESampler struct {
	StartupTrials int
	Candidates    int
}

// NewTPESampler returns a sampler with the default startup and candidate counts.
func NewTPESampler() *TPESampler {
	return &TPESampler{StartupTrials: DefaultStartupTrials, Candidates: DefaultCandidates}
}

// Sample implements Sampler.
func (s *TPESampler) Sample(space Space, history []Trial, rng *rand.Rand) map[string]float64 {
	out := make(map[string]float64, len(space))
	if len(history) < s.StartupTrials || len(history) < 2 {
		for _, p := range space {
			out[p.Name] = p.sampleUniform(rng)
		}
		return out
	}

	ranked := append([]Trial(nil), history...)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Value > ranked[j].Value })
	nGood := min(int(math.Ceil(0.1*float64(len(ranked)))), maxGoodTrials)
	good, bad := ranked[:nGood], ranked[nGood:]

	for _, p := range space {
		lo, hi := p.bounds()
		l := newParzen(observations(p, good), lo, hi)
		g := newParzen(observations(p, bad), lo, hi)

		best, bestScore := 0.0, math.Inf(-1)
		for c := 0; c < max(1, s.Candidates); c++ {
			x := l.sample(rng)
			score := l.logPDF(x) - g.logPDF(x)
			if score > bestScore {
				best, bestScore = x, score
			}
		}
		out[p.Name] = p.fromInternal(best)
	}
	return out
}

func observations(p Param, trials []Trial) []float64 {
	obs := make([]float64, 0, len(trials))
	for _, t := range trials {
		if v, ok := t.Params[p.Name]; ok {
			obs = append(obs, p.toInternal(v))
		}
	}
	return obs
}

// parzen is a mixture of Gaussians truncated to [lo, hi]: one per observation
// plus a wide prior component centred on the range.
type parzen struct {
	lo, hi     float64
	components []distuv.Normal
	weights    []float64
}

func newParzen(obs []float64, lo, hi float64) *parzen {
	span := hi - lo
	if span <= 0 {
		span = 1
	}
	pz := &parzen{lo: lo, hi: hi}

	points := append([]float64(nil), obs...)
	sort.Float64s(points)
	minSigma := span / math.Min(100, 1+float64(len(points)))
	for i, mu := range points {
		left, right := mu-lo, hi-mu
		if i > 0 {
			left = mu - points[i-1]
		}
		if i < len(points)-1 {
			right = points[i+1] - mu
		}
		sigma := math.Min(math.Max(math.Max(left, right), minSigma), span)
		pz.components = append(pz.components, distuv.Normal{Mu: mu, Sigma: sigma})
		pz.weights = append(pz.weights, 1)
	}
	pz.components = append(pz.components, distuv.Normal{Mu: lo + span/2, Sigma: span})
	pz.weights = append(pz.weights, priorWeight)

	total := 0.0
	for _, w := range pz.weights {
		total += w
	}
	for i := range pz.weights {
		pz.weights[i] /= total
	}
	return pz
}

func (pz *parzen) sample(rng *rand.Rand) float64 {
	u := rng.Float64()
	k := len(pz.weights) - 1
	for i, w := range pz.weights {
		if u < w {
			k = i
			break
		}
		u -= w
	}
	c := pz.components[k]
	for attempt := 0; attempt < 100; attempt++ {
		x := c.Mu + c.Sigma*rng.NormFloat64()
		if x >= pz.lo && x <= pz.hi {
			return x
		}
	}
	return math.Min(math.Max(c.Mu, pz.lo), pz.hi)
}

func (pz *parzen) logPDF(x float64) float64 {
	density := 0.0
	for i, c := range pz.components {
		mass := c.CDF(pz.hi) - c.CDF(pz.lo)
		if mass <= 0 {
			continue
		}
		density += pz.weights[i] * c.Prob(x) / mass
	}
	if density <= 0 {
		return math.Inf(-1)
	}
	return math.Log(density)
}
