package model

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Pose is a rigid body pose: position in metres and orientation as a rotation vector in radians.
type Pose struct {
	Position    r3.Vec
	Orientation r3.Vec
}

// Rotation returns the rotation encoded by the pose orientation.
// The second return value is false for a zero rotation vector.
func (p Pose) Rotation() (r3.Rotation, bool) {
	angle := r3.Norm(p.Orientation)
	if angle == 0 {
		return r3.Rotation{}, false
	}

	return r3.NewRotation(angle, r3.Unit(p.Orientation)), true
}

// Apply transforms point v from object frame into camera frame:
// v is scaled, rotated and then translated.
func (p Pose) Apply(v r3.Vec, scale float64) r3.Vec {
	v = r3.Scale(scale, v)
	if rot, ok := p.Rotation(); ok {
		v = rot.Rotate(v)
	}

	return r3.Add(v, p.Position)
}

// Angle returns rotation angle between pose orientations p and q in radians.
func (p Pose) Angle(q Pose) float64 {
	// trace(Rq' Rp) = sum of (Rq e)·(Rp e) over basis vectors e
	ax := [3]r3.Vec{{X: 1}, {Y: 1}, {Z: 1}}
	var tr float64
	for _, e := range ax {
		a := Pose{Orientation: p.Orientation}.Apply(e, 1)
		b := Pose{Orientation: q.Orientation}.Apply(e, 1)
		tr += r3.Dot(a, b)
	}

	c := math.Max(-1, math.Min(1, (tr-1)/2))

	return math.Acos(c)
}

// Distance returns Euclidean distance between positions of p and q.
func (p Pose) Distance(q Pose) float64 {
	return r3.Norm(r3.Sub(p.Position, q.Position))
}
