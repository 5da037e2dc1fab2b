package posetrack

import "gonum.org/v1/gonum/mat"

// Filter is a recursive Bayesian filter over object state.
type Filter interface {
	// Predict propagates the belief to the next step given input u
	Predict(Estimate, mat.Vector) (Estimate, error)
	// Update corrects the belief using measurement z
	Update(Estimate, mat.Vector) (Estimate, error)
}

// Smoother smooths a sequence of filter estimates
type Smoother interface {
	// Smooth returns smoothed estimates of est given inputs u
	Smooth(est []Estimate, u []mat.Vector) ([]Estimate, error)
}

// Propagator propagates internal state of the system to the next step
type Propagator interface {
	// Propagate propagates state x given input u and process noise sample q
	Propagate(x, u, q mat.Vector) (mat.Vector, error)
}

// StateTransition is a state transition model driven by process noise
type StateTransition interface {
	// Propagator propagates state samples
	Propagator
	// Noise returns process noise
	Noise() Noise
	// Dims returns state, input and process noise dimensions
	Dims() (nx, nu, nq int)
}

// Likelihood scores state hypotheses against a measurement
type Likelihood interface {
	// LogLikelihood returns log p(z|x)
	LogLikelihood(x, z mat.Vector) (float64, error)
}

// ObservationModel is a measurement model of the system
type ObservationModel interface {
	// Likelihood scores state samples
	Likelihood
	// Dim returns measurement dimension
	Dim() int
}

// Renderer renders expected depth images for a state hypothesis.
// Pixels which see no surface are reported as +Inf.
// Implementations must be safe for concurrent use.
type Renderer interface {
	// Render returns expected depth of all sensor pixels for state x
	Render(x mat.Vector) ([]float64, error)
}

// InitCond is initial state condition of the filter
type InitCond interface {
	// State returns initial filter state
	State() mat.Vector
	// Cov returns initial state covariance
	Cov() mat.Symmetric
}

// Estimate is a filter estimate a.k.a. belief
type Estimate interface {
	// Val returns estimate value
	Val() mat.Vector
	// Cov returns estimate covariance
	Cov() mat.Symmetric
}

// Noise is dynamical system noise
type Noise interface {
	// Mean returns noise mean
	Mean() []float64
	// Cov returns covariance matrix of the noise
	Cov() mat.Symmetric
	// Sample returns a sample of the noise
	Sample() mat.Vector
	// Reset resets the noise
	Reset() error
}
