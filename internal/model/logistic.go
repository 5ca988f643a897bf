package model

import (
	"context"
	"math"

	"github.com/paveg/returnlab/internal/config"
	"github.com/paveg/returnlab/internal/logger"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"
)

// StandardScaler centres features on their mean and scales to unit
// population variance. Constant features keep a scale of 1.
type StandardScaler struct {
	Mean  []float64
	Scale []float64
}

// Fit learns the column means and standard deviations of x.
func (s *StandardScaler) Fit(x mat.Matrix) {
	r, c := x.Dims()
	s.Mean = make([]float64, c)
	s.Scale = make([]float64, c)
	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, x)
		mean, std := stat.PopMeanStdDev(col, nil)
		if std == 0 || math.IsNaN(std) {
			std = 1
		}
		s.Mean[j] = mean
		s.Scale[j] = std
	}
}

// Transform returns a scaled copy of x.
func (s *StandardScaler) Transform(x mat.Matrix) *mat.Dense {
	r, c := x.Dims()
	out := mat.NewDense(r, c, nil)
	out.Apply(func(_, j int, v float64) float64 {
		return (v - s.Mean[j]) / s.Scale[j]
	}, x)
	return out
}

// LogisticRegression is a standard-scaled, L2-regularised logistic
// regression fitted with L-BFGS. The loss is C times the summed log loss
// plus half the squared norm of the weights; the intercept is not penalised.
type LogisticRegression struct {
	params config.LogRegParams

	scaler    StandardScaler
	coef      []float64
	intercept float64
	fitted    bool
}

// NewLogReg builds the linear baseline.
func NewLogReg(params config.LogRegParams) *LogisticRegression {
	return &LogisticRegression{params: params}
}

// Name implements Classifier.
func (m *LogisticRegression) Name() string { return "LogisticRegression" }

// Coefficients returns the weights in the scaled feature space and the intercept.
func (m *LogisticRegression) Coefficients() ([]float64, float64) {
	return m.coef, m.intercept
}

// Fit implements Classifier.
func (m *LogisticRegression) Fit(ctx context.Context, x mat.Matrix, y []int) error {
	n, p, err := checkFit("LogisticRegression.Fit", x, y)
	if err != nil {
		return err
	}

	m.scaler.Fit(x)
	xs := m.scaler.Transform(x)

	target := make([]float64, n)
	for i, v := range y {
		target[i] = float64(v)
	}

	// The objective is divided by n*C so the gradient threshold does not
	// depend on the sample count; the minimiser is unchanged.
	invN := 1 / float64(n)
	penalty := 1 / (m.params.C * float64(n))
	logits := make([]float64, n)
	residual := make([]float64, n)
	lv := mat.NewVecDense(n, logits)
	rv := mat.NewVecDense(n, residual)

	eval := func(w []float64) {
		lv.MulVec(xs, mat.NewVecDense(p, w[:p]))
		floats.AddConst(w[p], logits)
	}

	problem := optimize.Problem{
		Func: func(w []float64) float64 {
			eval(w)
			loss := 0.0
			for i, z := range logits {
				// log(1 + e^z) - y*z, computed without overflow
				loss += softplus(z) - target[i]*z
			}
			return loss*invN + 0.5*penalty*floats.Dot(w[:p], w[:p])
		},
		Grad: func(grad, w []float64) {
			eval(w)
			for i, z := range logits {
				residual[i] = sigmoid(z) - target[i]
			}
			gv := mat.NewVecDense(p, grad[:p])
			gv.MulVec(xs.T(), rv)
			floats.Scale(invN, grad[:p])
			floats.AddScaled(grad[:p], penalty, w[:p])
			grad[p] = floats.Sum(residual) * invN
		},
	}

	settings := &optimize.Settings{
		MajorIterations:   m.params.MaxIter,
		GradientThreshold: m.params.Tolerance,
	}
	result, err := optimize.Minimize(problem, make([]float64, p+1), settings, &optimize.LBFGS{})
	if result == nil {
		return err
	}
	if err != nil {
		// Line-search failures near the optimum still leave a usable point.
		log := logger.WithComponent("model")
		log.Debug().Err(err).
			Str("status", result.Status.String()).
			Msg("logistic regression stopped early")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.coef = append([]float64(nil), result.X[:p]...)
	m.intercept = result.X[p]
	m.fitted = true
	return nil
}

// PredictProba implements Classifier.
func (m *LogisticRegression) PredictProba(x mat.Matrix) ([]float64, error) {
	if !m.fitted {
		return nil, ErrNotFitted
	}
	n, err := checkPredict(x, len(m.coef))
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return []float64{}, nil
	}
	xs := m.scaler.Transform(x)
	logits := mat.NewVecDense(n, nil)
	logits.MulVec(xs, mat.NewVecDense(len(m.coef), m.coef))

	out := make([]float64, n)
	for i := range out {
		out[i] = sigmoid(logits.AtVec(i) + m.intercept)
	}
	return out, nil
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

func softplus(z float64) float64 {
	if z > 0 {
		return z + math.Log1p(math.Exp(-z))
	}
	return math.Log1p(math.Exp(z))
}
