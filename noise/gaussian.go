package noise

import (
	"fmt"
	"time"

	"github.com/milosgajdos/go-posetrack/matrix"
	"github.com/milosgajdos/go-posetrack/rnd"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
)

// Gaussian is gaussian noise.
// Positive definite covariances are sampled through distmv.Normal;
// singular (positive semi-definite) covariances fall back to SVD based sampling.
type Gaussian struct {
	// dist is a multivariate normal distribution; nil if cov is singular
	dist *distmv.Normal
	// rnd draws samples for singular covariances
	rnd *rand.Rand
	// seed is the seed of the random source
	seed uint64
	// mean is Gaussian mean
	mean []float64
	// cov is Gaussian covariance
	cov *mat.SymDense
}

// NewGaussian creates new Gaussian noise with given mean and covariance.
// The random source is seeded with the current time.
// It returns error if it fails to create Gaussian.
func NewGaussian(mean []float64, cov mat.Symmetric) (*Gaussian, error) {
	return NewGaussianWithSeed(mean, cov, uint64(time.Now().UnixNano()))
}

// NewGaussianWithSeed creates new Gaussian noise whose samples are drawn from a source seeded with seed.
// It returns error if mean and cov dimensions don't match or if cov is not positive semi-definite.
func NewGaussianWithSeed(mean []float64, cov mat.Symmetric, seed uint64) (*Gaussian, error) {
	size := cov.SymmetricDim()
	if size == 0 || len(mean) != size {
		return nil, fmt.Errorf("invalid Gaussian noise dimensions: mean %d, cov %d", len(mean), size)
	}

	if !matrix.IsPSD(cov, matrix.DefaultTol) {
		return nil, fmt.Errorf("invalid Gaussian noise covariance: not positive semi-definite")
	}

	c := mat.NewSymDense(size, nil)
	c.CopySym(cov)

	m := make([]float64, size)
	copy(m, mean)

	g := &Gaussian{
		seed: seed,
		mean: m,
		cov:  c,
	}

	if err := g.Reset(); err != nil {
		return nil, err
	}

	return g, nil
}

// Sample generates a sample from Gaussian noise and returns it.
func (g *Gaussian) Sample() mat.Vector {
	if g.dist != nil {
		r := g.dist.Rand(nil)
		return mat.NewVecDense(len(r), r)
	}

	// cov is PSD and non-empty, so WithCovN does not fail
	x, _ := rnd.WithCovN(g.cov, 1, g.rnd)
	s := mat.NewVecDense(len(g.mean), nil)
	s.AddVec(x.ColView(0), mat.NewVecDense(len(g.mean), g.mean))

	return s
}

// Cov returns covariance matrix of Gaussian noise.
func (g *Gaussian) Cov() mat.Symmetric {
	cov := mat.NewSymDense(g.cov.SymmetricDim(), nil)
	cov.CopySym(g.cov)

	return cov
}

// Mean returns Gaussian mean.
func (g *Gaussian) Mean() []float64 {
	mean := make([]float64, len(g.mean))
	copy(mean, g.mean)

	return mean
}

// Reset resets Gaussian noise: the noise source is reseeded with its initial seed.
func (g *Gaussian) Reset() error {
	src := rand.NewSource(g.seed)

	if dist, ok := distmv.NewNormal(g.mean, g.cov, src); ok {
		g.dist = dist
		g.rnd = nil
		return nil
	}

	// cov is singular: sample through SVD factorization
	g.dist = nil
	g.rnd = rand.New(src)

	return nil
}

// String implements the Stringer interface.
func (g *Gaussian) String() string {
	return fmt.Sprintf("Gaussian{\nMean=%v\nCov=%v\n}", g.mean, mat.Formatted(g.cov, mat.Prefix("    "), mat.Squeeze()))
}
