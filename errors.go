package posetrack

import "errors"

// Error kinds returned by the tracker packages. Callers inspect them with errors.Is.
var (
	// ErrConfiguration is returned for invalid or inconsistent parameters.
	ErrConfiguration = errors.New("configuration error")
	// ErrResourceNotFound is returned when an object model or camera data can't be resolved.
	ErrResourceNotFound = errors.New("resource not found")
	// ErrCapabilityUnavailable is returned when a renderer backend is not supported by the build.
	ErrCapabilityUnavailable = errors.New("capability unavailable")
	// ErrNumericalDegeneracy is returned when a filter cycle yields a non-PSD or non-finite belief.
	ErrNumericalDegeneracy = errors.New("numerical degeneracy")
	// ErrInvalidDimension is returned for mismatched vector and matrix sizes.
	ErrInvalidDimension = errors.New("invalid dimension")
)
