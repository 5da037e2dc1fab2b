package matrix

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func TestBlockDiag(t *testing.T) {
	assert := assert.New(t)

	a := mat.NewSymDense(2, []float64{1, 0.5, 0.5, 2})
	b := mat.NewSymDense(1, []float64{3})

	m := BlockDiag(a, &mat.SymDense{}, nil, b)
	assert.Equal(3, m.SymmetricDim())

	exp := mat.NewSymDense(3, []float64{
		1, 0.5, 0,
		0.5, 2, 0,
		0, 0, 3,
	})
	assert.True(mat.Equal(exp, m))

	empty := BlockDiag()
	assert.Equal(0, empty.SymmetricDim())
}

func TestSymmetrize(t *testing.T) {
	assert := assert.New(t)

	m := mat.NewDense(2, 2, []float64{1, 2, 4, 3})
	s := Symmetrize(m)
	assert.InDelta(3.0, s.At(0, 1), 1e-12)
	assert.InDelta(3.0, s.At(1, 0), 1e-12)

	assert.Panics(func() { Symmetrize(mat.NewDense(2, 3, nil)) })
}

func TestIsFinite(t *testing.T) {
	assert := assert.New(t)

	assert.True(IsFinite(mat.NewDense(2, 2, []float64{1, 2, 3, 4})))
	assert.False(IsFinite(mat.NewDense(1, 2, []float64{1, math.NaN()})))
	assert.False(IsFinite(mat.NewDense(1, 2, []float64{math.Inf(1), 0})))
}

func TestIsPSD(t *testing.T) {
	assert := assert.New(t)

	for _, test := range []struct {
		m   *mat.SymDense
		psd bool
	}{
		{m: mat.NewSymDense(2, []float64{1, 0, 0, 1}), psd: true},
		{m: mat.NewSymDense(2, []float64{1, 1, 1, 1}), psd: true},
		{m: mat.NewSymDense(2, []float64{0, 0, 0, 0}), psd: true},
		{m: mat.NewSymDense(2, []float64{1, 2, 2, 1}), psd: false},
		{m: mat.NewSymDense(1, []float64{-1}), psd: false},
		{m: mat.NewSymDense(1, []float64{math.NaN()}), psd: false},
		{m: &mat.SymDense{}, psd: true},
	} {
		assert.Equal(test.psd, IsPSD(test.m, DefaultTol))
	}
}

func TestTrace(t *testing.T) {
	assert := assert.New(t)

	assert.InDelta(5.0, Trace(mat.NewSymDense(2, []float64{2, 1, 1, 3})), 1e-12)
	assert.Equal(0.0, Trace(&mat.SymDense{}))
}
