package noise

import (
	"testing"

	"github.com/milosgajdos/matrix"
	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func TestNewGaussian(t *testing.T) {
	assert := assert.New(t)
	for _, test := range []struct {
		mean []float64
		cov  *mat.SymDense
	}{
		{
			mean: []float64{2, 3},
			cov:  mat.NewSymDense(2, []float64{1, 0.1, 0.1, 1}),
		},
	} {
		g, err := NewGaussian(test.mean, test.cov)
		assert.NotNil(g)
		assert.NoError(err)
	}
}

func TestMeanCov(t *testing.T) {
	assert := assert.New(t)

	mean := []float64{2, 3}
	cov := mat.NewSymDense(2, []float64{1, 0.1, 0.1, 1})

	for _, test := range []struct {
		mean []float64
		cov  *mat.SymDense
	}{
		{
			mean: mean,
			cov:  cov,
		},
	} {
		g, err := NewGaussian(test.mean, test.cov)
		assert.NotNil(g)
		assert.NoError(err)

		gCov := g.Cov()
		assert.Equal(cov.SymmetricDim(), gCov.SymmetricDim())

		rows, cols := gCov.Dims()
		for r := 0; r < rows; r++ {
			for c := 0; c < cols; c++ {
				if gCov.At(r, c) != cov.At(r, c) {
					t.Errorf("Wrong covariance matrix returned")
				}
			}
		}

		gMean := g.Mean()
		assert.EqualValues(mean, gMean)
	}
}

func TestGaussianSample(t *testing.T) {
	assert := assert.New(t)
	for _, test := range []struct {
		mean []float64
		cov  *mat.SymDense
	}{
		{
			mean: []float64{2, 3},
			cov:  mat.NewSymDense(2, []float64{1, 0.1, 0.1, 1}),
		},
	} {
		g, err := NewGaussian(test.mean, test.cov)
		assert.NotNil(g)
		assert.NoError(err)

		sample := g.Sample()
		r, _ := sample.Dims()
		assert.Equal(r, len(test.mean))
	}
}

func TestGaussianReset(t *testing.T) {
	assert := assert.New(t)
	mean := []float64{2, 3}

	for _, cov := range []*mat.SymDense{
		mat.NewSymDense(2, []float64{1, 0.1, 0.1, 1}),
		mat.NewSymDense(2, []float64{1, 0, 0, 0}),
	} {
		g, err := NewGaussianWithSeed(mean, cov, 42)
		assert.NotNil(g)
		assert.NoError(err)

		sample1 := g.Sample()
		sample2 := g.Sample()
		assert.False(mat.Equal(sample1, sample2))

		err = g.Reset()
		assert.NoError(err)

		sample3 := g.Sample()
		assert.True(mat.Equal(sample1, sample3))
	}
}

func TestGaussianInvalid(t *testing.T) {
	assert := assert.New(t)

	for _, test := range []struct {
		mean []float64
		cov  *mat.SymDense
	}{
		{
			mean: []float64{1},
			cov:  mat.NewSymDense(2, []float64{1, 0, 0, 1}),
		},
		{
			mean: []float64{1, 2},
			cov:  mat.NewSymDense(2, []float64{1, 2, 2, 1}),
		},
		{
			mean: nil,
			cov:  &mat.SymDense{},
		},
	} {
		g, err := NewGaussian(test.mean, test.cov)
		assert.Nil(g)
		assert.Error(err)
	}
}

func TestGaussianSingularSample(t *testing.T) {
	assert := assert.New(t)

	mean := []float64{1, -1}
	cov := mat.NewSymDense(2, []float64{0.5, 0, 0, 0})

	g, err := NewGaussianWithSeed(mean, cov, 7)
	assert.NoError(err)

	n := 2000
	samples := mat.NewDense(2, n, nil)
	for i := 0; i < n; i++ {
		s := g.Sample()
		// zero variance coordinate stays at its mean
		assert.InDelta(-1.0, s.AtVec(1), 1e-12)
		samples.SetCol(i, []float64{s.AtVec(0), s.AtVec(1)})
	}

	// samples are stored in columns
	sc, err := matrix.Cov(samples, "cols")
	assert.NoError(err)
	assert.InDelta(0.5, sc.At(0, 0), 0.1)
	assert.InDelta(0.0, sc.At(1, 1), 1e-12)
}

func TestGaussianString(t *testing.T) {
	assert := assert.New(t)

	str := `Gaussian{
Mean=[2 3]
Cov=⎡  1  0.1⎤
    ⎣0.1    1⎦
}`
	mean := []float64{2, 3}
	cov := mat.NewSymDense(2, []float64{1, 0.1, 0.1, 1})

	g, err := NewGaussian(mean, cov)
	assert.NotNil(g)
	assert.NoError(err)
	assert.Equal(str, g.String())
}
