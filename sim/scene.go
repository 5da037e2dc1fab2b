// Package sim simulates depth cameras observing moving objects.
package sim

import (
	"fmt"
	"image"
	"math"

	posetrack "github.com/milosgajdos/go-posetrack"
	"github.com/milosgajdos/go-posetrack/camera"
	"github.com/milosgajdos/go-posetrack/model"
	"github.com/milosgajdos/go-posetrack/object"
	"github.com/milosgajdos/go-posetrack/render"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Scene is a set of objects in front of a flat background wall.
type Scene struct {
	renderer *render.Raycaster
	cam      *camera.Data
	layout   model.Layout
	// wall is background wall depth; non-positive means no wall
	wall float64
}

// NewScene creates new scene of objects observed by cameras cam.
// Pixels which see neither an object nor the wall have no valid measurement.
func NewScene(obj *object.Model, cam *camera.Data, l model.Layout, wall float64) (*Scene, error) {
	r, err := render.NewRaycaster(obj, cam, l)
	if err != nil {
		return nil, fmt.Errorf("failed to create scene renderer: %w", err)
	}

	return &Scene{
		renderer: r,
		cam:      cam,
		layout:   l,
		wall:     wall,
	}, nil
}

// Observe returns noise-free depth image of the scene with objects in state x.
func (s *Scene) Observe(x mat.Vector) (*mat.VecDense, error) {
	depth, err := s.renderer.Render(x)
	if err != nil {
		return nil, err
	}

	for i, d := range depth {
		if math.IsInf(d, 1) {
			depth[i] = math.NaN()
			if s.wall > 0 {
				depth[i] = s.wall
			}
		}
	}

	return mat.NewVecDense(len(depth), depth), nil
}

// ObserveNoisy returns depth image of the scene with additive Gaussian noise of std-dev sigma.
func (s *Scene) ObserveNoisy(x mat.Vector, sigma float64, src rand.Source) (*mat.VecDense, error) {
	z, err := s.Observe(x)
	if err != nil {
		return nil, err
	}

	if !(sigma > 0) {
		return nil, fmt.Errorf("%w: invalid measurement noise: %v", posetrack.ErrConfiguration, sigma)
	}

	n := distuv.Normal{Mu: 0, Sigma: sigma, Src: src}
	for i := 0; i < z.Len(); i++ {
		z.SetVec(i, z.AtVec(i)+n.Rand())
	}

	return z, nil
}

// Occlude sets depth of pixels of sensor inside rect to depth.
func (s *Scene) Occlude(z *mat.VecDense, sensor int, rect image.Rectangle, depth float64) {
	sn := s.cam.Sensors[sensor]
	rect = rect.Intersect(image.Rect(0, 0, sn.Width, sn.Height))

	off := s.cam.Offset(sensor)
	for row := rect.Min.Y; row < rect.Max.Y; row++ {
		for col := rect.Min.X; col < rect.Max.X; col++ {
			z.SetVec(off+row*sn.Width+col, depth)
		}
	}
}

// Drop invalidates each pixel of z with probability p.
func Drop(z *mat.VecDense, p float64, src rand.Source) {
	u := distuv.Uniform{Min: 0, Max: 1, Src: src}
	for i := 0; i < z.Len(); i++ {
		if u.Rand() < p {
			z.SetVec(i, math.NaN())
		}
	}
}

// Simulate generates a trajectory of steps states starting at x0.
// Every step the state is propagated by m with input u and a process noise sample.
func Simulate(m posetrack.StateTransition, x0 mat.Vector, u mat.Vector, steps int) ([]*mat.VecDense, error) {
	if steps < 0 {
		return nil, fmt.Errorf("invalid number of steps: %d", steps)
	}

	states := make([]*mat.VecDense, 0, steps)
	x := x0
	for i := 0; i < steps; i++ {
		next, err := m.Propagate(x, u, m.Noise().Sample())
		if err != nil {
			return nil, fmt.Errorf("failed to propagate state %d: %w", i, err)
		}
		v := mat.VecDenseCopyOf(next)
		states = append(states, v)
		x = v
	}

	return states, nil
}
