package model

import (
	"fmt"
	"math"

	posetrack "github.com/milosgajdos/go-posetrack"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// PoseDim is the number of state values per tracked object:
// position [px py pz] followed by rotation vector [rx ry rz].
const PoseDim = 6

// Layout describes how object poses and latent parameters are stored in the state vector.
type Layout struct {
	// Objects is the number of tracked objects
	Objects int
	// Scale appends a latent log scale shared by all objects
	Scale bool
}

// NewLayout returns a new state layout.
// It returns error if objects is not positive.
func NewLayout(objects int, scale bool) (Layout, error) {
	if objects <= 0 {
		return Layout{}, fmt.Errorf("%w: invalid object count: %d", posetrack.ErrConfiguration, objects)
	}

	return Layout{Objects: objects, Scale: scale}, nil
}

// Dim returns state dimension
func (l Layout) Dim() int {
	n := PoseDim * l.Objects
	if l.Scale {
		n++
	}

	return n
}

// PoseOffset returns offset of i-th object pose in the state vector
func (l Layout) PoseOffset(i int) int {
	return PoseDim * i
}

// ScaleIndex returns index of the latent log scale or -1 if the layout has none.
func (l Layout) ScaleIndex() int {
	if !l.Scale {
		return -1
	}

	return PoseDim * l.Objects
}

// ScaleFactor returns the object scale factor encoded in x. It is 1 if the layout has no scale.
func (l Layout) ScaleFactor(x mat.Vector) float64 {
	if !l.Scale {
		return 1
	}

	return math.Exp(x.AtVec(l.ScaleIndex()))
}

// Pose returns pose of i-th object stored in x.
func (l Layout) Pose(x mat.Vector, i int) Pose {
	off := l.PoseOffset(i)

	return Pose{
		Position:    r3.Vec{X: x.AtVec(off), Y: x.AtVec(off + 1), Z: x.AtVec(off + 2)},
		Orientation: r3.Vec{X: x.AtVec(off + 3), Y: x.AtVec(off + 4), Z: x.AtVec(off + 5)},
	}
}

// SetPose stores pose p of i-th object in x.
func (l Layout) SetPose(x *mat.VecDense, i int, p Pose) {
	off := l.PoseOffset(i)
	for j, v := range []float64{
		p.Position.X, p.Position.Y, p.Position.Z,
		p.Orientation.X, p.Orientation.Y, p.Orientation.Z,
	} {
		x.SetVec(off+j, v)
	}
}

// Vector returns state vector from object poses and log scale.
// logScale is ignored if the layout has no scale.
// It returns error if the number of poses does not match the layout.
func (l Layout) Vector(poses []Pose, logScale float64) (*mat.VecDense, error) {
	if len(poses) != l.Objects {
		return nil, fmt.Errorf("%w: expected %d poses, got %d", posetrack.ErrInvalidDimension, l.Objects, len(poses))
	}

	x := mat.NewVecDense(l.Dim(), nil)
	for i, p := range poses {
		l.SetPose(x, i, p)
	}

	if l.Scale {
		x.SetVec(l.ScaleIndex(), logScale)
	}

	return x, nil
}

// Check returns error if x does not have layout dimension.
func (l Layout) Check(x mat.Vector) error {
	if x == nil || x.Len() != l.Dim() {
		n := 0
		if x != nil {
			n = x.Len()
		}
		return fmt.Errorf("%w: state vector %d, layout %d", posetrack.ErrInvalidDimension, n, l.Dim())
	}

	return nil
}
