// Package render renders expected depth images of posed object meshes.
package render

import (
	"fmt"
	"strings"

	posetrack "github.com/milosgajdos/go-posetrack"
	"github.com/milosgajdos/go-posetrack/camera"
	"github.com/milosgajdos/go-posetrack/model"
	"github.com/milosgajdos/go-posetrack/object"
)

// Backend is a renderer backend.
type Backend int

const (
	// CPU renders on the CPU
	CPU Backend = iota
	// GPU renders on the GPU
	GPU
)

// String implements the Stringer interface.
func (b Backend) String() string {
	switch b {
	case CPU:
		return "cpu"
	case GPU:
		return "gpu"
	}

	return fmt.Sprintf("Backend(%d)", int(b))
}

// ParseBackend parses backend name.
func ParseBackend(s string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "cpu":
		return CPU, nil
	case "gpu":
		return GPU, nil
	}

	return 0, fmt.Errorf("%w: unknown renderer backend: %q", posetrack.ErrConfiguration, s)
}

// Factory creates renderer of object model for the given cameras and state layout.
type Factory func(obj *object.Model, cam *camera.Data, l model.Layout) (posetrack.Renderer, error)

// backends are renderer backends available in this build
var backends = map[Backend]Factory{
	CPU: func(obj *object.Model, cam *camera.Data, l model.Layout) (posetrack.Renderer, error) {
		r, err := NewRaycaster(obj, cam, l)
		if err != nil {
			return nil, err
		}
		return r, nil
	},
}

// Supported returns true if backend b is available in this build.
func Supported(b Backend) bool {
	_, ok := backends[b]
	return ok
}

// New creates renderer with backend b.
// It returns error if the backend is not available in this build.
func New(b Backend, obj *object.Model, cam *camera.Data, l model.Layout) (posetrack.Renderer, error) {
	f, ok := backends[b]
	if !ok {
		return nil, fmt.Errorf("%w: renderer backend %s: %w", posetrack.ErrConfiguration, b, posetrack.ErrCapabilityUnavailable)
	}

	return f(obj, cam, l)
}
