// Package transition implements a per-object random walk state transition model.
package transition

import (
	"fmt"

	posetrack "github.com/milosgajdos/go-posetrack"
	"github.com/milosgajdos/go-posetrack/matrix"
	"github.com/milosgajdos/go-posetrack/model"
	"github.com/milosgajdos/go-posetrack/noise"
	"gonum.org/v1/gonum/mat"
)

// Object contains process noise parameters of a single tracked object.
type Object struct {
	// LinearSigma is position noise std-dev per axis in metres
	LinearSigma [3]float64
	// AngularSigma is orientation noise std-dev per axis in radians
	AngularSigma [3]float64
}

// Cov returns object process noise covariance block
func (o Object) Cov() *mat.SymDense {
	cov := mat.NewSymDense(model.PoseDim, nil)
	for i := 0; i < 3; i++ {
		cov.SetSym(i, i, o.LinearSigma[i]*o.LinearSigma[i])
		cov.SetSym(3+i, 3+i, o.AngularSigma[i]*o.AngularSigma[i])
	}

	return cov
}

// Params are transition model parameters.
type Params struct {
	// Layout is state layout
	Layout model.Layout
	// Objects contains noise parameters of every tracked object
	Objects []Object
	// ScaleSigma is latent log scale noise std-dev
	ScaleSigma float64
	// Seed seeds process noise sampling; zero means time based seed
	Seed uint64
}

// Validate returns error if the parameters are invalid.
func (p Params) Validate() error {
	if p.Layout.Objects <= 0 {
		return fmt.Errorf("%w: invalid object count: %d", posetrack.ErrConfiguration, p.Layout.Objects)
	}

	if len(p.Objects) != p.Layout.Objects {
		return fmt.Errorf("%w: %d object noise blocks for %d objects", posetrack.ErrConfiguration, len(p.Objects), p.Layout.Objects)
	}

	for i, o := range p.Objects {
		for j := 0; j < 3; j++ {
			if o.LinearSigma[j] < 0 || o.AngularSigma[j] < 0 {
				return fmt.Errorf("%w: object %d: negative noise std-dev", posetrack.ErrConfiguration, i)
			}
		}
	}

	if p.ScaleSigma < 0 {
		return fmt.Errorf("%w: negative scale noise std-dev: %f", posetrack.ErrConfiguration, p.ScaleSigma)
	}

	return nil
}

// Model is random walk transition model: every state block is propagated as x' = x + u + q.
// Model has no mutable state and is safe for concurrent use.
type Model struct {
	// layout is state layout
	layout model.Layout
	// noise is process noise
	noise posetrack.Noise
}

// New creates new transition model and returns it.
// It returns error if the parameters are invalid or the process noise can't be created.
func New(p Params) (*Model, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	blocks := make([]mat.Symmetric, 0, len(p.Objects)+1)
	for _, o := range p.Objects {
		blocks = append(blocks, o.Cov())
	}
	if p.Layout.Scale {
		blocks = append(blocks, mat.NewSymDense(1, []float64{p.ScaleSigma * p.ScaleSigma}))
	}
	cov := matrix.BlockDiag(blocks...)

	var (
		q   posetrack.Noise
		err error
	)

	mean := make([]float64, p.Layout.Dim())
	switch {
	case matrix.Trace(cov) == 0:
		q, err = noise.NewZero(p.Layout.Dim())
	case p.Seed != 0:
		q, err = noise.NewGaussianWithSeed(mean, cov, p.Seed)
	default:
		q, err = noise.NewGaussian(mean, cov)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create process noise: %w", err)
	}

	return &Model{
		layout: p.Layout,
		noise:  q,
	}, nil
}

// Propagate propagates state x given input u and process noise sample q.
// Nil or empty u and q are treated as zero vectors.
// Every object block reads only its own part of x, u and q.
func (m *Model) Propagate(x, u, q mat.Vector) (mat.Vector, error) {
	if err := m.layout.Check(x); err != nil {
		return nil, err
	}

	n := m.layout.Dim()
	if u != nil && u.Len() != 0 && u.Len() != n {
		return nil, fmt.Errorf("%w: input vector %d, state %d", posetrack.ErrInvalidDimension, u.Len(), n)
	}

	if q != nil && q.Len() != 0 && q.Len() != n {
		return nil, fmt.Errorf("%w: noise vector %d, state %d", posetrack.ErrInvalidDimension, q.Len(), n)
	}

	out := mat.NewVecDense(n, nil)
	for i := 0; i < m.layout.Objects; i++ {
		off := m.layout.PoseOffset(i)
		m.propagateBlock(out, x, u, q, off, off+model.PoseDim)
	}

	if m.layout.Scale {
		idx := m.layout.ScaleIndex()
		m.propagateBlock(out, x, u, q, idx, idx+1)
	}

	return out, nil
}

// propagateBlock propagates state values in [from, to)
func (m *Model) propagateBlock(out *mat.VecDense, x, u, q mat.Vector, from, to int) {
	for k := from; k < to; k++ {
		v := x.AtVec(k)
		if u != nil && u.Len() != 0 {
			v += u.AtVec(k)
		}
		if q != nil && q.Len() != 0 {
			v += q.AtVec(k)
		}
		out.SetVec(k, v)
	}
}

// Noise returns process noise
func (m *Model) Noise() posetrack.Noise {
	return m.noise
}

// Dims returns state, input and process noise dimensions
func (m *Model) Dims() (nx, nu, nq int) {
	n := m.layout.Dim()

	return n, n, n
}

// Layout returns state layout
func (m *Model) Layout() model.Layout {
	return m.layout
}
