package matrix

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// DefaultTol is default relative tolerance used for PSD checks.
const DefaultTol = 1e-9

// BlockDiag returns a symmetric block diagonal matrix built from blocks.
// Zero sized blocks are skipped. It returns an empty matrix if all blocks are empty.
func BlockDiag(blocks ...mat.Symmetric) *mat.SymDense {
	n := 0
	for _, b := range blocks {
		if b != nil {
			n += b.SymmetricDim()
		}
	}

	if n == 0 {
		return &mat.SymDense{}
	}

	m := mat.NewSymDense(n, nil)
	off := 0
	for _, b := range blocks {
		if b == nil {
			continue
		}
		size := b.SymmetricDim()
		for i := 0; i < size; i++ {
			for j := i; j < size; j++ {
				m.SetSym(off+i, off+j, b.At(i, j))
			}
		}
		off += size
	}

	return m
}

// Symmetrize returns (m + m') / 2 as a symmetric matrix.
// It panics if m is not square.
func Symmetrize(m mat.Matrix) *mat.SymDense {
	r, c := m.Dims()
	if r != c {
		panic(mat.ErrSquare)
	}

	s := mat.NewSymDense(r, nil)
	for i := 0; i < r; i++ {
		for j := i; j < r; j++ {
			s.SetSym(i, j, 0.5*(m.At(i, j)+m.At(j, i)))
		}
	}

	return s
}

// IsFinite returns true if m contains neither NaN nor Inf values.
func IsFinite(m mat.Matrix) bool {
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := m.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}

	return true
}

// IsPSD returns true if m is finite and positive semi-definite.
// Eigenvalues down to -tol*max(1, |largest eigenvalue|) are tolerated.
func IsPSD(m mat.Symmetric, tol float64) bool {
	if m.SymmetricDim() == 0 {
		return true
	}

	if !IsFinite(m) {
		return false
	}

	var es mat.EigenSym
	if ok := es.Factorize(m, false); !ok {
		return false
	}
	vals := es.Values(nil)

	scale := math.Max(1, math.Max(math.Abs(floats.Max(vals)), math.Abs(floats.Min(vals))))

	return floats.Min(vals) >= -tol*scale
}

// Trace returns trace of a symmetric matrix. Empty matrices have zero trace.
func Trace(m mat.Symmetric) float64 {
	var t float64
	for i := 0; i < m.SymmetricDim(); i++ {
		t += m.At(i, i)
	}

	return t
}
