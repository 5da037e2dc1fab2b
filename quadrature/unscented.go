// Package quadrature implements the unscented (sigma point) quadrature rule.
package quadrature

import (
	"fmt"
	"math"
	"runtime"

	posetrack "github.com/milosgajdos/go-posetrack"
	"github.com/milosgajdos/go-posetrack/matrix"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
)

// Config contains unscented transform [unitless] configuration parameters
type Config struct {
	// Alpha is the sigma point spread (must be positive)
	Alpha float64
	// Beta is beta parameter (2 is optimal choice for Gaussian)
	Beta float64
	// Kappa is kappa parameter (must be non-negative)
	Kappa float64
	// Workers limits the number of concurrent point evaluations.
	// Non-positive value means GOMAXPROCS.
	Workers int
}

// Unscented is the unscented quadrature rule.
// It is safe for concurrent use.
type Unscented struct {
	alpha   float64
	beta    float64
	kappa   float64
	workers int
}

// New creates new unscented quadrature rule and returns it.
// It returns error if invalid config is supplied.
func New(c *Config) (*Unscented, error) {
	if c == nil {
		return nil, fmt.Errorf("%w: missing quadrature config", posetrack.ErrConfiguration)
	}

	if !(c.Alpha > 0) || c.Beta < 0 || c.Kappa < 0 {
		return nil, fmt.Errorf("%w: invalid quadrature config: %+v", posetrack.ErrConfiguration, *c)
	}

	workers := c.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	return &Unscented{
		alpha:   c.Alpha,
		beta:    c.Beta,
		kappa:   c.Kappa,
		workers: workers,
	}, nil
}

// lambda returns the unitless lambda parameter for dimension d
func (u *Unscented) lambda(d int) float64 {
	return u.alpha*u.alpha*(float64(d)+u.kappa) - float64(d)
}

// Weights returns mean and covariance weights of 2d+1 sigma points.
// For d = 0 it returns a single point with weight 1.
func (u *Unscented) Weights(d int) (wm, wc []float64) {
	if d <= 0 {
		return []float64{1}, []float64{1}
	}

	lambda := u.lambda(d)
	n := 2*d + 1

	wm = make([]float64, n)
	wc = make([]float64, n)

	// weight of the mean sigma point
	wm[0] = lambda / (float64(d) + lambda)
	// weight of the mean sigma point covariance
	wc[0] = wm[0] + (1 - u.alpha*u.alpha + u.beta)
	// weight of the rest of sigma points and covariance
	w := 1 / (2 * (float64(d) + lambda))
	for i := 1; i < n; i++ {
		wm[i] = w
		wc[i] = w
	}

	return wm, wc
}

// Points generates sigma points of a Gaussian with the given mean and covariance.
// It returns error if the dimensions don't match or if cov is not finite and positive semi-definite.
func (u *Unscented) Points(mean mat.Vector, cov mat.Symmetric) (*Points, error) {
	if mean == nil {
		return nil, fmt.Errorf("%w: nil mean or covariance", posetrack.ErrInvalidDimension)
	}

	d := mean.Len()
	wm, wc := u.Weights(d)

	return u.points(mean, cov, u.lambda(d), wm, wc)
}

// NonNegativePoints generates sigma points whose weights are all non-negative.
// If the configured spread gives a negative mean point weight, the points are spread
// with lambda = 0 instead. Covariance weights equal the mean weights, so the weighted
// statistics of the points reproduce mean and cov exactly for any spread.
// It returns error under the same conditions as Points.
func (u *Unscented) NonNegativePoints(mean mat.Vector, cov mat.Symmetric) (*Points, error) {
	if mean == nil {
		return nil, fmt.Errorf("%w: nil mean or covariance", posetrack.ErrInvalidDimension)
	}

	d := mean.Len()
	lambda := math.Max(u.lambda(d), 0)

	if d == 0 {
		return u.points(mean, cov, lambda, []float64{1}, []float64{1})
	}

	n := 2*d + 1
	w := make([]float64, n)
	w[0] = lambda / (float64(d) + lambda)
	for i := 1; i < n; i++ {
		w[i] = 1 / (2 * (float64(d) + lambda))
	}

	return u.points(mean, cov, lambda, w, append([]float64(nil), w...))
}

// points generates sigma points spread by lambda with weights wm and wc.
func (u *Unscented) points(mean mat.Vector, cov mat.Symmetric, lambda float64, wm, wc []float64) (*Points, error) {
	if mean == nil || cov == nil {
		return nil, fmt.Errorf("%w: nil mean or covariance", posetrack.ErrInvalidDimension)
	}

	d := mean.Len()
	if cov.SymmetricDim() != d {
		return nil, fmt.Errorf("%w: mean %d, covariance %d", posetrack.ErrInvalidDimension, d, cov.SymmetricDim())
	}

	m := &mat.VecDense{}
	if d > 0 {
		m.CloneFromVec(mean)
	}

	if !matrix.IsFinite(m) {
		return nil, fmt.Errorf("%w: mean is not finite", posetrack.ErrInvalidDimension)
	}

	if !matrix.IsPSD(cov, matrix.DefaultTol) {
		return nil, fmt.Errorf("%w: covariance is not positive semi-definite", posetrack.ErrInvalidDimension)
	}

	if d == 0 {
		return &Points{
			X:    []*mat.VecDense{m},
			Wm:   wm,
			Wc:   wc,
			mean: m,
		}, nil
	}

	var es mat.EigenSym
	if ok := es.Factorize(cov, true); !ok {
		return nil, fmt.Errorf("%w: eigen decomposition failed", posetrack.ErrInvalidDimension)
	}

	// square root scaled by gamma: columns of V * sqrt(diag(vals))
	gamma := math.Sqrt(float64(d) + lambda)
	vals := es.Values(nil)
	for i := range vals {
		vals[i] = gamma * math.Sqrt(math.Max(vals[i], 0))
	}
	sqrt := &mat.Dense{}
	es.VectorsTo(sqrt)
	sqrt.Mul(sqrt, mat.NewDiagDense(d, vals))

	x := make([]*mat.VecDense, 2*d+1)
	x[0] = m
	for j := 0; j < d; j++ {
		pos := mat.NewVecDense(d, nil)
		pos.AddVec(m, sqrt.ColView(j))
		x[1+j] = pos

		neg := mat.NewVecDense(d, nil)
		neg.SubVec(m, sqrt.ColView(j))
		x[1+d+j] = neg
	}

	return &Points{
		X:    x,
		Wm:   wm,
		Wc:   wc,
		mean: m,
	}, nil
}

// Func is a vector valued function evaluated at sigma points.
// It must not modify x.
type Func func(x *mat.VecDense) (mat.Vector, error)

// ScalarFunc is a scalar function evaluated at sigma points.
// It must not modify x.
type ScalarFunc func(x *mat.VecDense) (float64, error)

// Eval evaluates f at every sigma point and returns the results in point order.
// Points are evaluated concurrently; f must be safe for concurrent use.
func (u *Unscented) Eval(p *Points, f Func) ([]mat.Vector, error) {
	ys := make([]mat.Vector, len(p.X))

	var g errgroup.Group
	g.SetLimit(u.workers)
	for i := range p.X {
		g.Go(func() error {
			y, err := f(p.X[i])
			if err != nil {
				return fmt.Errorf("failed to evaluate sigma point %d: %w", i, err)
			}
			ys[i] = y
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return ys, nil
}

// EvalScalar evaluates f at every sigma point and returns the results in point order.
// Points are evaluated concurrently; f must be safe for concurrent use.
func (u *Unscented) EvalScalar(p *Points, f ScalarFunc) ([]float64, error) {
	ys := make([]float64, len(p.X))

	var g errgroup.Group
	g.SetLimit(u.workers)
	for i := range p.X {
		g.Go(func() error {
			y, err := f(p.X[i])
			if err != nil {
				return fmt.Errorf("failed to evaluate sigma point %d: %w", i, err)
			}
			ys[i] = y
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return ys, nil
}

// Transform propagates Gaussian with the given mean and covariance through f.
// It returns moments of the transformed distribution.
func (u *Unscented) Transform(mean mat.Vector, cov mat.Symmetric, f Func) (*Moments, error) {
	p, err := u.Points(mean, cov)
	if err != nil {
		return nil, fmt.Errorf("failed to generate sigma points: %w", err)
	}

	ys, err := u.Eval(p, f)
	if err != nil {
		return nil, err
	}

	return p.Moments(ys)
}
