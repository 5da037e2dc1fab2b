package quadrature

import (
	"fmt"

	posetrack "github.com/milosgajdos/go-posetrack"
	"gonum.org/v1/gonum/mat"
)

// Points is a set of weighted sigma points.
// Points are ordered: mean, positive and then negative sigma points.
type Points struct {
	// X stores sigma points
	X []*mat.VecDense
	// Wm stores mean weights
	Wm []float64
	// Wc stores covariance weights
	Wc []float64
	// mean is the mean the points were generated from
	mean *mat.VecDense
}

// Len returns number of sigma points
func (p *Points) Len() int {
	return len(p.X)
}

// Dim returns sigma point dimension
func (p *Points) Dim() int {
	return p.mean.Len()
}

// Mean returns the mean the points were generated from
func (p *Points) Mean() mat.Vector {
	m := &mat.VecDense{}
	if p.mean.Len() > 0 {
		m.CloneFromVec(p.mean)
	}

	return m
}

// Moments stores moments reconstructed from transformed sigma points.
type Moments struct {
	// Mean is weighted mean of transformed points
	Mean *mat.VecDense
	// Cov is weighted covariance of transformed points
	Cov *mat.SymDense
	// CrossCov is input-output cross covariance; nil for zero dimensional input
	CrossCov *mat.Dense
}

// Moments reconstructs mean, covariance and input-output cross covariance
// from values ys of the sigma points transformed by some function.
// It returns error if ys does not match the points or if the values don't have the same length.
func (p *Points) Moments(ys []mat.Vector) (*Moments, error) {
	if len(ys) != len(p.X) {
		return nil, fmt.Errorf("%w: %d sigma points, %d values", posetrack.ErrInvalidDimension, len(p.X), len(ys))
	}

	dy := 0
	if ys[0] != nil {
		dy = ys[0].Len()
	}
	for i, y := range ys {
		if y == nil || y.Len() != dy {
			return nil, fmt.Errorf("%w: sigma point %d value has wrong dimension", posetrack.ErrInvalidDimension, i)
		}
	}

	if dy == 0 {
		return nil, fmt.Errorf("%w: zero dimensional transform output", posetrack.ErrInvalidDimension)
	}

	mean := mat.NewVecDense(dy, nil)
	for i, y := range ys {
		mean.AddScaledVec(mean, p.Wm[i], y)
	}

	dx := p.Dim()
	cov := mat.NewSymDense(dy, nil)
	var cross *mat.Dense
	if dx > 0 {
		cross = mat.NewDense(dx, dy, nil)
	}

	dev := mat.NewVecDense(dy, nil)
	xdev := &mat.VecDense{}
	if dx > 0 {
		xdev = mat.NewVecDense(dx, nil)
	}
	for i, y := range ys {
		dev.SubVec(y, mean)
		cov.SymRankOne(cov, p.Wc[i], dev)

		if cross != nil {
			xdev.SubVec(p.X[i], p.mean)
			cross.RankOne(cross, p.Wc[i], xdev, dev)
		}
	}

	return &Moments{
		Mean:     mean,
		Cov:      cov,
		CrossCov: cross,
	}, nil
}
