package config

import "fmt"

// BoostParams holds every hyperparameter of the gradient-boosted tree model.
// The JSON names follow the XGBoost parameter vocabulary so the exported best
// params file can be fed to other tooling unchanged.
type BoostParams struct {
	NEstimators     int     `json:"n_estimators" yaml:"n_estimators"`
	MaxDepth        int     `json:"max_depth" yaml:"max_depth"`
	LearningRate    float64 `json:"learning_rate" yaml:"learning_rate"`
	Subsample       float64 `json:"subsample" yaml:"subsample"`
	ColsampleByTree float64 `json:"colsample_bytree" yaml:"colsample_bytree"`
	MinChildWeight  float64 `json:"min_child_weight" yaml:"min_child_weight"`
	Gamma           float64 `json:"gamma" yaml:"gamma"`
	RegAlpha        float64 `json:"reg_alpha" yaml:"reg_alpha"`
	RegLambda       float64 `json:"reg_lambda" yaml:"reg_lambda"`
	ScalePosWeight  float64 `json:"scale_pos_weight" yaml:"scale_pos_weight"`

	Objective   string `json:"objective" yaml:"objective"`
	EvalMetric  string `json:"eval_metric" yaml:"eval_metric"`
	TreeMethod  string `json:"tree_method" yaml:"tree_method"`
	RandomState int64  `json:"random_state" yaml:"random_state"`
	NJobs       int    `json:"n_jobs" yaml:"n_jobs"`
}

// BoostOverride is a partial BoostParams; nil fields keep the base value.
type BoostOverride struct {
	NEstimators     *int     `json:"n_estimators,omitempty" yaml:"n_estimators,omitempty"`
	MaxDepth        *int     `json:"max_depth,omitempty" yaml:"max_depth,omitempty"`
	LearningRate    *float64 `json:"learning_rate,omitempty" yaml:"learning_rate,omitempty"`
	Subsample       *float64 `json:"subsample,omitempty" yaml:"subsample,omitempty"`
	ColsampleByTree *float64 `json:"colsample_bytree,omitempty" yaml:"colsample_bytree,omitempty"`
	MinChildWeight  *float64 `json:"min_child_weight,omitempty" yaml:"min_child_weight,omitempty"`
	Gamma           *float64 `json:"gamma,omitempty" yaml:"gamma,omitempty"`
	RegAlpha        *float64 `json:"reg_alpha,omitempty" yaml:"reg_alpha,omitempty"`
	RegLambda       *float64 `json:"reg_lambda,omitempty" yaml:"reg_lambda,omitempty"`
	ScalePosWeight  *float64 `json:"scale_pos_weight,omitempty" yaml:"scale_pos_weight,omitempty"`
}

// Default boosted-tree values
const (
	DefaultNEstimators     = 300
	DefaultMaxDepth        = 6
	DefaultLearningRate    = 0.05
	DefaultSubsample       = 0.8
	DefaultColsampleByTree = 0.8
	DefaultMinChildWeight  = 1.0
	DefaultRegLambda       = 1.0
	DefaultScalePosWeight  = 1.0
	DefaultObjective       = "binary:logistic"
	DefaultEvalMetric      = "auc"
	DefaultTreeMethod      = "hist"
	DefaultNJobs           = -1
)

// DefaultBoostParams returns the baseline boosted-tree configuration.
func DefaultBoostParams(seed int64) BoostParams {
	return BoostParams{
		NEstimators:     DefaultNEstimators,
		MaxDepth:        DefaultMaxDepth,
		LearningRate:    DefaultLearningRate,
		Subsample:       DefaultSubsample,
		ColsampleByTree: DefaultColsampleByTree,
		MinChildWeight:  DefaultMinChildWeight,
		Gamma:           0,
		RegAlpha:        0,
		RegLambda:       DefaultRegLambda,
		ScalePosWeight:  DefaultScalePosWeight,
		Objective:       DefaultObjective,
		EvalMetric:      DefaultEvalMetric,
		TreeMethod:      DefaultTreeMethod,
		RandomState:     seed,
		NJobs:           DefaultNJobs,
	}
}

// Override returns a copy of p with every non-nil field of o applied.
func (p BoostParams) Override(o BoostOverride) BoostParams {
	if o.NEstimators != nil {
		p.NEstimators = *o.NEstimators
	}
	if o.MaxDepth != nil {
		p.MaxDepth = *o.MaxDepth
	}
	if o.LearningRate != nil {
		p.LearningRate = *o.LearningRate
	}
	if o.Subsample != nil {
		p.Subsample = *o.Subsample
	}
	if o.ColsampleByTree != nil {
		p.ColsampleByTree = *o.ColsampleByTree
	}
	if o.MinChildWeight != nil {
		p.MinChildWeight = *o.MinChildWeight
	}
	if o.Gamma != nil {
		p.Gamma = *o.Gamma
	}
	if o.RegAlpha != nil {
		p.RegAlpha = *o.RegAlpha
	}
	if o.RegLambda != nil {
		p.RegLambda = *o.RegLambda
	}
	if o.ScalePosWeight != nil {
		p.ScalePosWeight = *o.ScalePosWeight
	}
	return p
}

// WithScalePosWeight returns a copy of p using the given positive-class weight.
func (p BoostParams) WithScalePosWeight(w float64) BoostParams {
	p.ScalePosWeight = w
	return p
}

// Validate reports the first out-of-range parameter.
func (p BoostParams) Validate() error {
	switch {
	case p.NEstimators <= 0:
		return fmt.Errorf("Boost.NEstimators must be positive, got %d", p.NEstimators)
	case p.MaxDepth <= 0:
		return fmt.Errorf("Boost.MaxDepth must be positive, got %d", p.MaxDepth)
	case p.LearningRate <= 0:
		return fmt.Errorf("Boost.LearningRate must be positive, got %f", p.LearningRate)
	case p.Subsample <= 0 || p.Subsample > 1:
		return fmt.Errorf("Boost.Subsample must be in (0, 1], got %f", p.Subsample)
	case p.ColsampleByTree <= 0 || p.ColsampleByTree > 1:
		return fmt.Errorf("Boost.ColsampleByTree must be in (0, 1], got %f", p.ColsampleByTree)
	case p.MinChildWeight < 0:
		return fmt.Errorf("Boost.MinChildWeight must be non-negative, got %f", p.MinChildWeight)
	case p.Gamma < 0:
		return fmt.Errorf("Boost.Gamma must be non-negative, got %f", p.Gamma)
	case p.RegAlpha < 0:
		return fmt.Errorf("Boost.RegAlpha must be non-negative, got %f", p.RegAlpha)
	case p.RegLambda < 0:
		return fmt.Errorf("Boost.RegLambda must be non-negative, got %f", p.RegLambda)
	case p.ScalePosWeight <= 0:
		return fmt.Errorf("Boost.ScalePosWeight must be positive, got %f", p.ScalePosWeight)
	}
	return nil
}

func (p BoostParams) withDefaults(seed int64) BoostParams {
	defaults := DefaultBoostParams(seed)

	if p.NEstimators == 0 {
		p.NEstimators = defaults.NEstimators
	}
	if p.MaxDepth == 0 {
		p.MaxDepth = defaults.MaxDepth
	}
	if p.LearningRate == 0 {
		p.LearningRate = defaults.LearningRate
	}
	if p.Subsample == 0 {
		p.Subsample = defaults.Subsample
	}
	if p.ColsampleByTree == 0 {
		p.ColsampleByTree = defaults.ColsampleByTree
	}
	if p.MinChildWeight == 0 {
		p.MinChildWeight = defaults.MinChildWeight
	}
	if p.RegLambda == 0 {
		p.RegLambda = defaults.RegLambda
	}
	if p.ScalePosWeight == 0 {
		p.ScalePosWeight = defaults.ScalePosWeight
	}
	if p.Objective == "" {
		p.Objective = defaults.Objective
	}
	if p.EvalMetric == "" {
		p.EvalMetric = defaults.EvalMetric
	}
	if p.TreeMethod == "" {
		p.TreeMethod = defaults.TreeMethod
	}
	if p.RandomState == 0 {
		p.RandomState = defaults.RandomState
	}
	if p.NJobs == 0 {
		p.NJobs = defaults.NJobs
	}
	return p
}

// Int returns a pointer to v, for building overrides.
func Int(v int) *int { return &v }

// Float returns a pointer to v, for building overrides.
func Float(v float64) *float64 { return &v }
