// Package rts implements unscented Rauch-Tung-Striebel smoother.
package rts

import (
	"fmt"

	posetrack "github.com/milosgajdos/go-posetrack"
	"github.com/milosgajdos/go-posetrack/estimate"
	"github.com/milosgajdos/go-posetrack/gaussian"
	"github.com/milosgajdos/go-posetrack/matrix"
	"github.com/milosgajdos/go-posetrack/smooth"
	"gonum.org/v1/gonum/mat"
)

var _ smooth.RTS = (*RTS)(nil)

// RTS is unscented Rauch-Tung-Striebel smoother.
// It runs backwards over filtered beliefs and re-predicts every belief
// with the sigma point rule of the filter that produced them.
type RTS struct {
	f *gaussian.Filter
}

// New creates new RTS smoother over beliefs produced by filter f and returns it.
// It returns error if f is nil.
func New(f *gaussian.Filter) (*RTS, error) {
	if f == nil {
		return nil, fmt.Errorf("%w: missing filter", posetrack.ErrConfiguration)
	}

	return &RTS{f: f}, nil
}

// Smooth implements Rauch-Tung-Striebel smoothing algorithm.
// est are filtered beliefs in time order. u, if not nil, holds inputs where u[i]
// is the input which propagated belief i-1 to belief i; u[0] is ignored.
// It returns error if est is empty, u has wrong length or smoothing fails.
func (s *RTS) Smooth(est []posetrack.Estimate, u []mat.Vector) ([]posetrack.Estimate, error) {
	if len(est) == 0 {
		return nil, fmt.Errorf("%w: no estimates to smooth", posetrack.ErrInvalidDimension)
	}

	if u != nil && len(u) != len(est) {
		return nil, fmt.Errorf("%w: %d inputs for %d estimates", posetrack.ErrInvalidDimension, len(u), len(est))
	}

	n := len(est)
	dim := est[n-1].Val().Len()
	for i, e := range est {
		if e.Val().Len() != dim {
			return nil, fmt.Errorf("%w: estimate %d has dimension %d, expected %d", posetrack.ErrInvalidDimension, i, e.Val().Len(), dim)
		}
	}

	sx := make([]posetrack.Estimate, n)

	last, err := estimate.FromEstimate(est[n-1])
	if err != nil {
		return nil, err
	}
	sx[n-1] = last

	for i := n - 2; i >= 0; i-- {
		var uk mat.Vector
		if u != nil {
			uk = u[i+1]
		}

		// predicted belief and its cross covariance with belief i
		pred, c, err := s.f.PredictCross(est[i], uk)
		if err != nil {
			return nil, fmt.Errorf("failed to predict belief %d: %w", i, err)
		}

		// smoother gain: G = C * P_(k+1)^-1
		var chol mat.Cholesky
		if ok := chol.Factorize(pred.Cov()); !ok {
			return nil, fmt.Errorf("%w: predicted covariance %d not positive definite", posetrack.ErrNumericalDegeneracy, i)
		}
		gt := &mat.Dense{}
		if err := chol.SolveTo(gt, c.T()); err != nil {
			return nil, fmt.Errorf("%w: smoother gain %d: %v", posetrack.ErrNumericalDegeneracy, i, err)
		}
		g := mat.DenseCopyOf(gt.T())

		// smooth the state: x_k + G*(xs_(k+1) - x_(k+1))
		dx := &mat.VecDense{}
		dx.SubVec(sx[i+1].Val(), pred.Val())
		x := &mat.VecDense{}
		x.MulVec(g, dx)
		x.AddVec(est[i].Val(), x)

		// smooth the covariance: P_k + G*(Ps_(k+1) - P_(k+1))*G'
		dp := &mat.Dense{}
		dp.Sub(sx[i+1].Cov(), pred.Cov())
		pk := &mat.Dense{}
		pk.Product(g, dp, g.T())
		pk.Add(est[i].Cov(), pk)

		b, err := estimate.NewBelief(x, matrix.Symmetrize(pk))
		if err != nil {
			return nil, err
		}

		if !b.Valid() {
			return nil, fmt.Errorf("%w: smoothed belief %d is not finite or positive semi-definite", posetrack.ErrNumericalDegeneracy, i)
		}

		sx[i] = b
	}

	return sx, nil
}
