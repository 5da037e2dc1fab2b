package model

import (
	"gonum.org/v1/gonum/mat"
)

// InitCond implements posetrack.InitCond
type InitCond struct {
	state *mat.VecDense
	cov   *mat.SymDense
}

// NewInitCond creates new InitCond and returns it
func NewInitCond(state mat.Vector, cov mat.Symmetric) *InitCond {
	s := &mat.VecDense{}
	s.CloneFromVec(state)

	c := mat.NewSymDense(cov.SymmetricDim(), nil)
	c.CopySym(cov)

	return &InitCond{
		state: s,
		cov:   c,
	}
}

// NewPoseInitCond creates initial condition for poses with diagonal covariance:
// every position has variance linearSigma^2 and every orientation angularSigma^2.
// The latent log scale, if any, starts at logScale with variance scaleSigma^2.
func NewPoseInitCond(l Layout, poses []Pose, logScale float64, linearSigma, angularSigma, scaleSigma float64) (*InitCond, error) {
	x, err := l.Vector(poses, logScale)
	if err != nil {
		return nil, err
	}

	diag := make([]float64, l.Dim())
	for i := 0; i < l.Objects; i++ {
		off := l.PoseOffset(i)
		for j := 0; j < 3; j++ {
			diag[off+j] = linearSigma * linearSigma
			diag[off+3+j] = angularSigma * angularSigma
		}
	}
	if l.Scale {
		diag[l.ScaleIndex()] = scaleSigma * scaleSigma
	}

	cov := mat.NewSymDense(l.Dim(), nil)
	for i, v := range diag {
		cov.SetSym(i, i, v)
	}

	return &InitCond{state: x, cov: cov}, nil
}

// State returns initial state
func (c *InitCond) State() mat.Vector {
	state := mat.NewVecDense(c.state.Len(), nil)
	state.CopyVec(c.state)

	return state
}

// Cov returns initial covariance
func (c *InitCond) Cov() mat.Symmetric {
	cov := mat.NewSymDense(c.cov.SymmetricDim(), nil)
	cov.CopySym(c.cov)

	return cov
}
