package render

import (
	"fmt"
	"math"

	posetrack "github.com/milosgajdos/go-posetrack"
	"github.com/milosgajdos/go-posetrack/camera"
	"github.com/milosgajdos/go-posetrack/model"
	"github.com/milosgajdos/go-posetrack/object"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	// near is the near clipping distance in metres
	near = 1e-3
	// eps is ray-triangle parallelism tolerance
	eps = 1e-12
)

// Raycaster is a ray casting depth renderer.
// Object meshes and camera data are shared read-only, so Raycaster is safe for concurrent use.
type Raycaster struct {
	obj    *object.Model
	cam    *camera.Data
	layout model.Layout
	pixels int
}

// NewRaycaster creates new ray casting renderer and returns it.
// It returns error if the object count does not match the layout.
func NewRaycaster(obj *object.Model, cam *camera.Data, l model.Layout) (*Raycaster, error) {
	if err := obj.Validate(); err != nil {
		return nil, err
	}

	if cam == nil || cam.SensorCount() == 0 {
		return nil, fmt.Errorf("%w: missing camera data", posetrack.ErrConfiguration)
	}

	for i, s := range cam.Sensors {
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("sensor %d: %w", i, err)
		}
	}

	if obj.Count() != l.Objects {
		return nil, fmt.Errorf("%w: %d meshes, %d objects in state", posetrack.ErrConfiguration, obj.Count(), l.Objects)
	}

	return &Raycaster{
		obj:    obj,
		cam:    cam,
		layout: l,
		pixels: cam.Pixels(),
	}, nil
}

// Render returns depth of all sensor pixels for state x.
// Pixels with no surface are +Inf.
func (r *Raycaster) Render(x mat.Vector) ([]float64, error) {
	if err := r.layout.Check(x); err != nil {
		return nil, err
	}

	depth := make([]float64, r.pixels)
	for i := range depth {
		depth[i] = math.Inf(1)
	}

	scale := r.layout.ScaleFactor(x)
	for i, mesh := range r.obj.Meshes {
		pose := r.layout.Pose(x, i)

		vertices := make([]r3.Vec, len(mesh.Vertices))
		for j, v := range mesh.Vertices {
			vertices[j] = pose.Apply(v, scale)
		}

		for s, sensor := range r.cam.Sensors {
			img := depth[r.cam.Offset(s) : r.cam.Offset(s)+sensor.Pixels()]
			for _, t := range mesh.Triangles {
				rasterize(img, sensor, vertices[t[0]], vertices[t[1]], vertices[t[2]])
			}
		}
	}

	return depth, nil
}

// rasterize writes nearest depth of triangle (a, b, c) into img.
func rasterize(img []float64, s camera.Sensor, a, b, c r3.Vec) {
	if a.Z <= near || b.Z <= near || c.Z <= near {
		return
	}

	fx, fy := s.Focal()
	cx, cy := s.Center()

	// pixel bounding box of the projected triangle
	minU, maxU := math.Inf(1), math.Inf(-1)
	minV, maxV := math.Inf(1), math.Inf(-1)
	for _, p := range []r3.Vec{a, b, c} {
		u := fx*p.X/p.Z + cx
		v := fy*p.Y/p.Z + cy
		minU, maxU = math.Min(minU, u), math.Max(maxU, u)
		minV, maxV = math.Min(minV, v), math.Max(maxV, v)
	}

	c0 := max(0, int(math.Floor(minU)))
	c1 := min(s.Width-1, int(math.Ceil(maxU)))
	r0 := max(0, int(math.Floor(minV)))
	r1 := min(s.Height-1, int(math.Ceil(maxV)))

	e1 := r3.Sub(b, a)
	e2 := r3.Sub(c, a)
	// ray origin is the camera center
	o := r3.Scale(-1, a)
	for row := r0; row <= r1; row++ {
		for col := c0; col <= c1; col++ {
			dir := r3.Vec{X: (float64(col) - cx) / fx, Y: (float64(row) - cy) / fy, Z: 1}
			if t, ok := intersect(dir, o, e1, e2); ok {
				idx := row*s.Width + col
				if t < img[idx] {
					img[idx] = t
				}
			}
		}
	}
}

// intersect intersects ray with direction dir with a triangle.
// o is ray origin relative to the first triangle vertex and e1, e2 are triangle edges.
// Ray directions have unit z, so the returned distance t is depth.
func intersect(dir, o, e1, e2 r3.Vec) (float64, bool) {
	p := r3.Cross(dir, e2)
	det := r3.Dot(e1, p)
	if math.Abs(det) < eps {
		return 0, false
	}
	inv := 1 / det

	u := r3.Dot(o, p) * inv
	if u < 0 || u > 1 {
		return 0, false
	}

	q := r3.Cross(o, e1)
	v := r3.Dot(dir, q) * inv
	if v < 0 || u+v > 1 {
		return 0, false
	}

	t := r3.Dot(e2, q) * inv
	if t <= near {
		return 0, false
	}

	return t, true
}
