// Package gaussian implements a robust quadrature Gaussian filter.
//
// Prediction propagates sigma points of the state augmented with process noise
// through the state transition model. Update re-weights sigma points of the
// predicted belief by their observation likelihood and blends the
// likelihood-weighted statistics with the prediction:
//
//	mean = (1-r)*predicted mean + r*weighted mean
//	cov  = (1-r)*predicted cov  + r*weighted cov
//
// where r is the update rate. The re-weighted sigma points always have non-negative
// weights, so the weighted covariance is positive semi-definite for any spread.
package gaussian

import (
	"fmt"
	"math"

	posetrack "github.com/milosgajdos/go-posetrack"
	"github.com/milosgajdos/go-posetrack/estimate"
	"github.com/milosgajdos/go-posetrack/matrix"
	"github.com/milosgajdos/go-posetrack/quadrature"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Config contains filter configuration
type Config struct {
	// UpdateRate blends prediction (0) with likelihood weighted statistics (1)
	UpdateRate float64
}

// Filter is robust quadrature Gaussian filter.
// Filter has no mutable state: Predict and Update are pure functions of their arguments.
type Filter struct {
	// transition is state transition model
	transition posetrack.StateTransition
	// obs is observation model
	obs posetrack.ObservationModel
	// q is quadrature rule
	q *quadrature.Unscented
	// rate is update rate
	rate float64
}

// New creates new robust Gaussian filter and returns it.
// It returns error if any of the models is missing or if invalid config is supplied.
func New(t posetrack.StateTransition, o posetrack.ObservationModel, q *quadrature.Unscented, c *Config) (*Filter, error) {
	if t == nil || o == nil || q == nil {
		return nil, fmt.Errorf("%w: missing filter model", posetrack.ErrConfiguration)
	}

	if c == nil || !(c.UpdateRate >= 0 && c.UpdateRate <= 1) {
		return nil, fmt.Errorf("%w: update rate must be in [0,1]", posetrack.ErrConfiguration)
	}

	nx, nu, nq := t.Dims()
	if nx <= 0 || nu < 0 || nq < 0 {
		return nil, fmt.Errorf("%w: invalid transition dimensions: [%d, %d, %d]", posetrack.ErrConfiguration, nx, nu, nq)
	}

	if o.Dim() <= 0 {
		return nil, fmt.Errorf("%w: invalid observation dimension: %d", posetrack.ErrConfiguration, o.Dim())
	}

	return &Filter{
		transition: t,
		obs:        o,
		q:          q,
		rate:       c.UpdateRate,
	}, nil
}

// Predict propagates belief x to the next step given input u and returns predicted belief.
// It returns error if x has invalid dimension or if the predicted belief is degenerate.
func (f *Filter) Predict(x posetrack.Estimate, u mat.Vector) (posetrack.Estimate, error) {
	m, err := f.predict(x, u)
	if err != nil {
		return nil, err
	}

	return newBelief(m.Mean, m.Cov)
}

// PredictCross propagates belief x like Predict and also returns
// the cross covariance between x and the predicted state.
func (f *Filter) PredictCross(x posetrack.Estimate, u mat.Vector) (*estimate.Belief, *mat.Dense, error) {
	m, err := f.predict(x, u)
	if err != nil {
		return nil, nil, err
	}

	b, err := newBelief(m.Mean, m.Cov)
	if err != nil {
		return nil, nil, err
	}

	nx, _, _ := f.transition.Dims()
	cross := mat.DenseCopyOf(m.CrossCov.Slice(0, nx, 0, nx))

	return b, cross, nil
}

// predict returns moments of sigma points of belief x propagated through the transition model.
func (f *Filter) predict(x posetrack.Estimate, u mat.Vector) (*quadrature.Moments, error) {
	nx, nu, nq := f.transition.Dims()

	val, cov := x.Val(), x.Cov()
	if val.Len() != nx || cov.SymmetricDim() != nx {
		return nil, fmt.Errorf("%w: belief %d, state %d", posetrack.ErrInvalidDimension, val.Len(), nx)
	}

	if u != nil && u.Len() != 0 && u.Len() != nu {
		return nil, fmt.Errorf("%w: input %d, expected %d", posetrack.ErrInvalidDimension, u.Len(), nu)
	}

	// augment the state with process noise unless there is none
	mean, aug := val, cov
	var noise posetrack.Noise
	if nq > 0 {
		noise = f.transition.Noise()
	}
	if noise != nil && matrix.Trace(noise.Cov()) > 0 {
		m := mat.NewVecDense(nx+nq, nil)
		m.SliceVec(0, nx).(*mat.VecDense).CopyVec(val)
		m.SliceVec(nx, nx+nq).(*mat.VecDense).CopyVec(mat.NewVecDense(nq, noise.Mean()))
		mean = m
		aug = matrix.BlockDiag(cov, noise.Cov())
	} else {
		nq = 0
	}

	propagate := func(p *mat.VecDense) (mat.Vector, error) {
		var q mat.Vector
		if nq > 0 {
			q = p.SliceVec(nx, nx+nq)
		}
		return f.transition.Propagate(p.SliceVec(0, nx), u, q)
	}

	m, err := f.q.Transform(mean, aug, propagate)
	if err != nil {
		return nil, fmt.Errorf("failed to propagate sigma points: %w", err)
	}

	if m.Mean.Len() != nx {
		return nil, fmt.Errorf("%w: propagated state %d, expected %d", posetrack.ErrInvalidDimension, m.Mean.Len(), nx)
	}

	return m, nil
}

// Update corrects belief x using the measurement z and returns corrected belief.
// It returns x unchanged if the update rate is zero.
// It returns error if z has invalid dimension or if the corrected belief is degenerate.
func (f *Filter) Update(x posetrack.Estimate, z mat.Vector) (posetrack.Estimate, error) {
	nx, _, _ := f.transition.Dims()

	if z == nil || z.Len() != f.obs.Dim() {
		return nil, fmt.Errorf("%w: measurement vector, expected %d", posetrack.ErrInvalidDimension, f.obs.Dim())
	}

	b, err := estimate.FromEstimate(x)
	if err != nil {
		return nil, err
	}

	if b.Dim() != nx {
		return nil, fmt.Errorf("%w: belief %d, state %d", posetrack.ErrInvalidDimension, b.Dim(), nx)
	}

	if f.rate == 0 {
		return b, nil
	}

	val, cov := b.Val(), b.Cov()

	// re-weighting needs non-negative base weights to keep the weighted covariance PSD
	p, err := f.q.NonNegativePoints(val, cov)
	if err != nil {
		return nil, fmt.Errorf("failed to generate sigma points: %w", err)
	}

	ll, err := f.q.EvalScalar(p, func(x *mat.VecDense) (float64, error) {
		return f.obs.LogLikelihood(x, z)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate likelihood: %w", err)
	}

	w, err := importanceWeights(p.Wm, ll)
	if err != nil {
		return nil, err
	}

	// likelihood weighted statistics of the sigma points
	lmean := mat.NewVecDense(nx, nil)
	for i, v := range w {
		lmean.AddScaledVec(lmean, v, p.X[i])
	}

	lcov := mat.NewSymDense(nx, nil)
	dev := mat.NewVecDense(nx, nil)
	for i, v := range w {
		dev.SubVec(p.X[i], lmean)
		lcov.SymRankOne(lcov, v, dev)
	}

	// blend the prediction with the likelihood weighted statistics
	mean := mat.NewVecDense(nx, nil)
	mean.AddScaledVec(mean, 1-f.rate, val)
	mean.AddScaledVec(mean, f.rate, lmean)

	c := mat.NewSymDense(nx, nil)
	c.ScaleSym(1-f.rate, cov)
	lcov.ScaleSym(f.rate, lcov)
	c.AddSym(c, lcov)

	return newBelief(mean, c)
}

// Run runs one predict-update cycle: it propagates belief x given input u
// and corrects the prediction using the measurement z.
func (f *Filter) Run(x posetrack.Estimate, u, z mat.Vector) (posetrack.Estimate, error) {
	pred, err := f.Predict(x, u)
	if err != nil {
		return nil, fmt.Errorf("failed to predict belief: %w", err)
	}

	est, err := f.Update(pred, z)
	if err != nil {
		return nil, fmt.Errorf("failed to update belief: %w", err)
	}

	return est, nil
}

// UpdateRate returns filter update rate
func (f *Filter) UpdateRate() float64 {
	return f.rate
}

// importanceWeights returns normalized weights wm[i]*exp(ll[i]-max(ll)).
// The maximum is taken over points with positive weight only, so a zero weight
// point with dominant likelihood can't underflow the rest. wm must be non-negative.
func importanceWeights(wm, ll []float64) ([]float64, error) {
	maxLL := math.Inf(-1)
	for i, l := range ll {
		if math.IsNaN(l) || math.IsInf(l, 1) {
			return nil, fmt.Errorf("%w: invalid log likelihood %v of sigma point %d", posetrack.ErrNumericalDegeneracy, l, i)
		}
		if wm[i] < 0 {
			return nil, fmt.Errorf("%w: negative weight %v of sigma point %d", posetrack.ErrNumericalDegeneracy, wm[i], i)
		}
		if wm[i] > 0 && l > maxLL {
			maxLL = l
		}
	}

	if math.IsInf(maxLL, -1) {
		return nil, fmt.Errorf("%w: zero likelihood of all sigma points", posetrack.ErrNumericalDegeneracy)
	}

	w := make([]float64, len(ll))
	for i, l := range ll {
		if wm[i] > 0 {
			w[i] = wm[i] * math.Exp(l-maxLL)
		}
	}

	sum := floats.Sum(w)
	if !(sum > 0) || math.IsInf(sum, 0) {
		return nil, fmt.Errorf("%w: non-positive importance weight sum: %v", posetrack.ErrNumericalDegeneracy, sum)
	}
	floats.Scale(1/sum, w)

	return w, nil
}

// newBelief returns a belief from mean and cov if it is finite and positive semi-definite.
func newBelief(mean mat.Vector, cov mat.Symmetric) (*estimate.Belief, error) {
	b, err := estimate.NewBelief(mean, cov)
	if err != nil {
		return nil, err
	}

	if !b.Valid() {
		return nil, fmt.Errorf("%w: belief is not finite or covariance not positive semi-definite", posetrack.ErrNumericalDegeneracy)
	}

	return b, nil
}
