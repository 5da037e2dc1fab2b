package transition

import (
	"errors"
	"testing"

	posetrack "github.com/milosgajdos/go-posetrack"
	"github.com/milosgajdos/go-posetrack/model"
	"github.com/milosgajdos/go-posetrack/noise"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func object(linear, angular float64) Object {
	return Object{
		LinearSigma:  [3]float64{linear, linear, linear},
		AngularSigma: [3]float64{angular, angular, angular},
	}
}

func TestNew(t *testing.T) {
	assert := assert.New(t)

	p := Params{
		Layout:     model.Layout{Objects: 2, Scale: true},
		Objects:    []Object{object(0.01, 0.1), object(0.02, 0.2)},
		ScaleSigma: 0.5,
		Seed:       1,
	}

	m, err := New(p)
	assert.NotNil(m)
	assert.NoError(err)

	nx, nu, nq := m.Dims()
	assert.Equal(13, nx)
	assert.Equal(13, nu)
	assert.Equal(13, nq)

	cov := m.Noise().Cov()
	assert.Equal(13, cov.SymmetricDim())
	assert.InDelta(1e-4, cov.At(0, 0), 1e-15)
	assert.InDelta(1e-2, cov.At(5, 5), 1e-15)
	assert.InDelta(4e-4, cov.At(6, 6), 1e-15)
	assert.InDelta(4e-2, cov.At(11, 11), 1e-15)
	assert.InDelta(0.25, cov.At(12, 12), 1e-15)
	assert.Equal(0.0, cov.At(0, 6))

	_, ok := m.Noise().(*noise.Gaussian)
	assert.True(ok)
}

func TestNewZeroNoise(t *testing.T) {
	assert := assert.New(t)

	m, err := New(Params{
		Layout:  model.Layout{Objects: 1},
		Objects: []Object{{}},
	})
	assert.NoError(err)

	_, ok := m.Noise().(*noise.Zero)
	assert.True(ok)
}

func TestNewInvalid(t *testing.T) {
	assert := assert.New(t)

	for _, p := range []Params{
		{Layout: model.Layout{Objects: 0}},
		{Layout: model.Layout{Objects: 2}, Objects: []Object{object(0.1, 0.1)}},
		{Layout: model.Layout{Objects: 1}, Objects: []Object{object(-0.1, 0.1)}},
		{Layout: model.Layout{Objects: 1, Scale: true}, Objects: []Object{object(0.1, 0.1)}, ScaleSigma: -1},
	} {
		m, err := New(p)
		assert.Nil(m)
		assert.True(errors.Is(err, posetrack.ErrConfiguration))
	}
}

func TestPropagate(t *testing.T) {
	assert := assert.New(t)

	m, err := New(Params{
		Layout:  model.Layout{Objects: 1, Scale: true},
		Objects: []Object{object(0.01, 0.01)},
		Seed:    3,
	})
	require.NoError(t, err)

	x := mat.NewVecDense(7, []float64{1, 2, 3, 0.1, 0.2, 0.3, 0})
	u := mat.NewVecDense(7, []float64{1, 1, 1, 0, 0, 0, 0})
	q := mat.NewVecDense(7, []float64{0, 0, 0, 0.1, 0.1, 0.1, 0.5})

	out, err := m.Propagate(x, u, q)
	assert.NoError(err)
	exp := mat.NewVecDense(7, []float64{2, 3, 4, 0.2, 0.3, 0.4, 0.5})
	assert.True(mat.EqualApprox(exp, out, 1e-12))

	// zero noise and input leave the state unchanged
	for _, test := range []struct {
		u, q mat.Vector
	}{
		{u: nil, q: nil},
		{u: &mat.VecDense{}, q: &mat.VecDense{}},
		{u: mat.NewVecDense(7, nil), q: mat.NewVecDense(7, nil)},
	} {
		out, err := m.Propagate(x, test.u, test.q)
		assert.NoError(err)
		assert.True(mat.Equal(x, out))
	}

	// inputs are not modified
	assert.Equal(1.0, x.AtVec(0))
}

func TestPropagateDeterministic(t *testing.T) {
	assert := assert.New(t)

	m, err := New(Params{
		Layout:  model.Layout{Objects: 1},
		Objects: []Object{object(0.01, 0.01)},
	})
	require.NoError(t, err)

	x := mat.NewVecDense(6, []float64{1, 2, 3, 0.1, 0.2, 0.3})
	a, err := m.Propagate(x, nil, nil)
	assert.NoError(err)
	b, err := m.Propagate(x, nil, nil)
	assert.NoError(err)
	assert.True(mat.Equal(a, b))
}

func TestPropagateObjectIndependence(t *testing.T) {
	assert := assert.New(t)

	m, err := New(Params{
		Layout:  model.Layout{Objects: 2},
		Objects: []Object{object(0.01, 0.01), object(0.01, 0.01)},
	})
	require.NoError(t, err)

	x := mat.NewVecDense(12, []float64{1, 2, 3, 0.1, 0.2, 0.3, 4, 5, 6, 0.4, 0.5, 0.6})
	a, err := m.Propagate(x, nil, nil)
	require.NoError(t, err)

	// changing object B must not change the propagated object A
	x.SetVec(6, 100)
	x.SetVec(11, -100)
	b, err := m.Propagate(x, nil, nil)
	require.NoError(t, err)

	for i := 0; i < model.PoseDim; i++ {
		assert.Equal(a.AtVec(i), b.AtVec(i))
	}
}

func TestPropagateInvalid(t *testing.T) {
	assert := assert.New(t)

	m, err := New(Params{
		Layout:  model.Layout{Objects: 1},
		Objects: []Object{object(0.01, 0.01)},
	})
	require.NoError(t, err)

	x := mat.NewVecDense(6, nil)
	for _, test := range []struct {
		x, u, q mat.Vector
	}{
		{x: mat.NewVecDense(5, nil)},
		{x: x, u: mat.NewVecDense(3, nil)},
		{x: x, q: mat.NewVecDense(7, nil)},
	} {
		out, err := m.Propagate(test.x, test.u, test.q)
		assert.Nil(out)
		assert.True(errors.Is(err, posetrack.ErrInvalidDimension))
	}
}
