package tuning

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/paveg/returnlab/internal/dataset"
	"github.com/paveg/returnlab/internal/logger"
)

// ErrPruned is returned by Trial.Report when the pruner stops a trial.
var ErrPruned = errors.New("trial pruned")

// ErrNoCompletedTrials is returned by Study.Best before any trial completed.
var ErrNoCompletedTrials = errors.New("no completed trials")

// TrialState is the lifecycle state of a trial.
type TrialState int

// Trial states
const (
	TrialRunning TrialState = iota
	TrialComplete
	TrialPruned
	TrialFailed
)

func (s TrialState) String() string {
	switch s {
	case TrialRunning:
		return "running"
	case TrialComplete:
		return "complete"
	case TrialPruned:
		return "pruned"
	case TrialFailed:
		return "failed"
	default:
		return fmt.Sprintf("TrialState(%d)", int(s))
	}
}

// MarshalText renders the state name in JSON reports.
func (s TrialState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Trial is one evaluation of the objective. Intermediate holds the values
// reported at steps 0, 1, ... in order.
type Trial struct {
	Number       int                `json:"number"`
	Params       map[string]float64 `json:"params"`
	Value        float64            `json:"value"`
	State        TrialState         `json:"state"`
	Intermediate []float64          `json:"intermediate,omitempty"`

	study *Study
}

// Report records the objective value after step and asks the pruner whether
// to continue. It returns ErrPruned when the trial should stop. Steps must be
// reported in order starting at 0.
func (t *Trial) Report(step int, value float64) error {
	if step != len(t.Intermediate) {
		return fmt.Errorf("trial %d: reported step %d, expected %d", t.Number, step, len(t.Intermediate))
	}
	t.Intermediate = append(t.Intermediate, value)
	if t.study.pruner != nil && t.study.pruner.Prune(t, t.study.Completed()) {
		return ErrPruned
	}
	return nil
}

// Int returns an integer parameter value.
func (t *Trial) Int(name string) int {
	return int(t.Params[name])
}

// Float returns a float parameter value.
func (t *Trial) Float(name string) float64 {
	return t.Params[name]
}

// Objective evaluates the parameters of trial; higher is better.
type Objective func(ctx context.Context, trial *Trial) (float64, error)

// Sampler proposes parameter values from the history of a study.
type Sampler interface {
	Sample(space Space, history []Trial, rng *rand.Rand) map[string]float64
}

// Pruner decides whether a running trial should stop at its latest step.
type Pruner interface {
	Prune(trial *Trial, completed []Trial) bool
}

// Study runs a maximising search over a Space.
type Study struct {
	space   Space
	sampler Sampler
	pruner  Pruner
	rng     *rand.Rand

	Trials []Trial
}

// NewStudy creates a study whose sampler draws from a generator seeded with seed.
func NewStudy(space Space, sampler Sampler, pruner Pruner, seed int64) (*Study, error) {
	if err := space.Validate(); err != nil {
		return nil, err
	}
	return &Study{
		space:   space,
		sampler: sampler,
		pruner:  pruner,
		rng:     dataset.NewRand(seed),
	}, nil
}

// Completed returns the trials that finished without pruning.
func (s *Study) Completed() []Trial {
	var out []Trial
	for _, t := range s.Trials {
		if t.State == TrialComplete {
			out = append(out, t)
		}
	}
	return out
}

// Optimize runs n trials one after another. A pruned trial is recorded with
// its last intermediate value; any other objective error aborts the study.
func (s *Study) Optimize(ctx context.Context, n int, objective Objective) error {
	log := logger.WithComponent("tuning")

	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		trial := &Trial{
			Number: len(s.Trials),
			Params: s.sampler.Sample(s.space, s.Completed(), s.rng),
			State:  TrialRunning,
			study:  s,
		}

		value, err := objective(ctx, trial)
		switch {
		case errors.Is(err, ErrPruned):
			trial.State = TrialPruned
			if k := len(trial.Intermediate); k > 0 {
				trial.Value = trial.Intermediate[k-1]
			}
		case err != nil:
			trial.State = TrialFailed
			s.Trials = append(s.Trials, *trial)
			return fmt.Errorf("trial %d: %w", trial.Number, err)
		default:
			trial.State = TrialComplete
			trial.Value = value
		}
		s.Trials = append(s.Trials, *trial)

		log.Info().
			Int("trial", trial.Number).
			Str("state", trial.State.String()).
			Float64("value", trial.Value).
			Interface("params", trial.Params).
			Msg("trial finished")
	}
	return nil
}

// Best returns the completed trial with the highest value; ties keep the
// earliest trial.
func (s *Study) Best() (Trial, error) {
	completed := s.Completed()
	if len(completed) == 0 {
		return Trial{}, ErrNoCompletedTrials
	}
	best := completed[0]
	for _, t := range completed[1:] {
		if t.Value > best.Value {
			best = t
		}
	}
	return best, nil
}
