package rnd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

func TestWithCovN(t *testing.T) {
	assert := assert.New(t)

	data := []float64{1.0, 0.0, 0.0, 1.0}
	covTest := mat.NewSymDense(2, data)
	covR, _ := covTest.Dims()

	// n must be bigger than 1
	nTest := -3
	res, err := WithCovN(covTest, nTest, nil)
	assert.Error(err)
	assert.Nil(res)

	nTest = 1
	res, err = WithCovN(covTest, nTest, nil)
	assert.NoError(err)
	assert.NotNil(res)

	// 2 samples
	nTest = 2
	res, err = WithCovN(covTest, nTest, nil)
	assert.NoError(err)
	assert.NotNil(res)
	r, c := res.Dims()
	assert.Equal(r, covR)
	assert.Equal(c, nTest)

	// empty covariance
	res, err = WithCovN(&mat.SymDense{}, 2, nil)
	assert.Error(err)
	assert.Nil(res)
}

func TestWithCovNSingular(t *testing.T) {
	assert := assert.New(t)

	// second coordinate has no variance
	cov := mat.NewSymDense(2, []float64{4.0, 0.0, 0.0, 0.0})
	src := rand.New(rand.NewSource(42))

	res, err := WithCovN(cov, 100, src)
	assert.NoError(err)
	assert.NotNil(res)

	for c := 0; c < 100; c++ {
		assert.InDelta(0.0, res.At(1, c), 1e-12)
	}
}

func TestWithCovNSeeded(t *testing.T) {
	assert := assert.New(t)

	cov := mat.NewSymDense(2, []float64{1.0, 0.2, 0.2, 1.0})

	a, err := WithCovN(cov, 5, rand.New(rand.NewSource(7)))
	assert.NoError(err)
	b, err := WithCovN(cov, 5, rand.New(rand.NewSource(7)))
	assert.NoError(err)

	assert.True(mat.Equal(a, b))
}
