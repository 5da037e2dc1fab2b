package estimate

import (
	"errors"
	"math"
	"testing"

	posetrack "github.com/milosgajdos/go-posetrack"
	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func TestNewBelief(t *testing.T) {
	assert := assert.New(t)

	val := mat.NewVecDense(2, []float64{1, 2})
	cov := mat.NewSymDense(2, []float64{1, 0.5, 0.5, 2})

	b, err := NewBelief(val, cov)
	assert.NotNil(b)
	assert.NoError(err)
	assert.Equal(2, b.Dim())
	assert.InDelta(3.0, b.Trace(), 1e-12)
	assert.True(b.Valid())

	for _, test := range []struct {
		val mat.Vector
		cov mat.Symmetric
	}{
		{val: mat.NewVecDense(3, nil), cov: cov},
		{val: nil, cov: cov},
		{val: val, cov: nil},
	} {
		b, err := NewBelief(test.val, test.cov)
		assert.Nil(b)
		assert.True(errors.Is(err, posetrack.ErrInvalidDimension))
	}
}

func TestBeliefCopies(t *testing.T) {
	assert := assert.New(t)

	val := mat.NewVecDense(2, []float64{1, 2})
	cov := mat.NewSymDense(2, []float64{1, 0, 0, 1})

	b, err := NewBelief(val, cov)
	assert.NoError(err)

	// modifying inputs or returned values must not change the belief
	val.SetVec(0, 100)
	cov.SetSym(0, 0, 100)
	b.Val().(*mat.VecDense).SetVec(1, 100)
	b.Cov().(*mat.SymDense).SetSym(1, 1, 100)

	assert.Equal(1.0, b.Val().AtVec(0))
	assert.Equal(2.0, b.Val().AtVec(1))
	assert.Equal(1.0, b.Cov().At(0, 0))
	assert.Equal(1.0, b.Cov().At(1, 1))
}

func TestBeliefValid(t *testing.T) {
	assert := assert.New(t)

	b, err := NewBelief(mat.NewVecDense(1, []float64{math.NaN()}), mat.NewSymDense(1, []float64{1}))
	assert.NoError(err)
	assert.False(b.Valid())

	b, err = NewBelief(mat.NewVecDense(2, nil), mat.NewSymDense(2, []float64{1, 2, 2, 1}))
	assert.NoError(err)
	assert.False(b.Valid())
}

func TestFromEstimate(t *testing.T) {
	assert := assert.New(t)

	b, err := NewBelief(mat.NewVecDense(1, []float64{3}), mat.NewSymDense(1, []float64{2}))
	assert.NoError(err)

	c, err := FromEstimate(b)
	assert.NoError(err)
	assert.Same(b, c)
}

func TestBeliefString(t *testing.T) {
	assert := assert.New(t)

	b, err := NewBelief(mat.NewVecDense(2, []float64{1, 2}), mat.NewSymDense(2, []float64{1, 0, 0, 1}))
	assert.NoError(err)
	assert.Contains(b.String(), "Belief{")
	assert.Contains(b.String(), "Cov=⎡1  0⎤")
}
