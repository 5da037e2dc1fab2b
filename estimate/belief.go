package estimate

import (
	"fmt"

	posetrack "github.com/milosgajdos/go-posetrack"
	"github.com/milosgajdos/go-posetrack/matrix"
	"gonum.org/v1/gonum/mat"
)

// Belief is a Gaussian estimate of the object state: mean and covariance.
// Belief is immutable: accessors return copies.
type Belief struct {
	// val is estimated mean
	val *mat.VecDense
	// cov is estimated covariance
	cov *mat.SymDense
}

// NewBelief returns a new belief with mean val and covariance cov.
// It returns error if val and cov dimensions don't match.
func NewBelief(val mat.Vector, cov mat.Symmetric) (*Belief, error) {
	if val == nil || cov == nil {
		return nil, fmt.Errorf("%w: nil belief mean or covariance", posetrack.ErrInvalidDimension)
	}

	rv := val.Len()
	rc := cov.SymmetricDim()
	if rv == 0 || rv != rc {
		return nil, fmt.Errorf("%w: belief mean %d, covariance %d x %d", posetrack.ErrInvalidDimension, rv, rc, rc)
	}

	v := &mat.VecDense{}
	v.CloneFromVec(val)

	c := mat.NewSymDense(rc, nil)
	c.CopySym(cov)

	return &Belief{
		val: v,
		cov: c,
	}, nil
}

// FromEstimate returns a Belief holding a copy of e.
func FromEstimate(e posetrack.Estimate) (*Belief, error) {
	if b, ok := e.(*Belief); ok {
		return b, nil
	}

	return NewBelief(e.Val(), e.Cov())
}

// Val returns estimated mean
func (b *Belief) Val() mat.Vector {
	v := &mat.VecDense{}
	v.CloneFromVec(b.val)

	return v
}

// Cov returns covariance estimate
func (b *Belief) Cov() mat.Symmetric {
	cov := mat.NewSymDense(b.cov.SymmetricDim(), nil)
	cov.CopySym(b.cov)

	return cov
}

// Dim returns belief dimension
func (b *Belief) Dim() int {
	return b.val.Len()
}

// Trace returns trace of the belief covariance
func (b *Belief) Trace() float64 {
	return matrix.Trace(b.cov)
}

// Valid returns true if the belief is finite and its covariance positive semi-definite.
func (b *Belief) Valid() bool {
	return matrix.IsFinite(b.val) && matrix.IsPSD(b.cov, matrix.DefaultTol)
}

// String implements the Stringer interface.
func (b *Belief) String() string {
	return fmt.Sprintf("Belief{\nVal=%v\nCov=%v\n}",
		mat.Formatted(b.val.T(), mat.Squeeze()),
		mat.Formatted(b.cov, mat.Prefix("    "), mat.Squeeze()))
}
