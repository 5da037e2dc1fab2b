// Package object provides rigid object meshes and their loaders.
package object

import (
	"fmt"

	posetrack "github.com/milosgajdos/go-posetrack"
	"gonum.org/v1/gonum/spatial/r3"
)

// Mesh is a triangle mesh in object coordinates.
type Mesh struct {
	// Vertices stores mesh vertices
	Vertices []r3.Vec
	// Triangles stores vertex indices of mesh triangles
	Triangles [][3]int
}

// Validate returns error if the mesh is empty or refers to missing vertices.
func (m Mesh) Validate() error {
	if len(m.Vertices) == 0 || len(m.Triangles) == 0 {
		return fmt.Errorf("%w: empty mesh", posetrack.ErrConfiguration)
	}

	for i, t := range m.Triangles {
		for _, v := range t {
			if v < 0 || v >= len(m.Vertices) {
				return fmt.Errorf("%w: triangle %d refers to vertex %d of %d", posetrack.ErrConfiguration, i, v, len(m.Vertices))
			}
		}
	}

	return nil
}

// Model is a set of rigid object meshes; every mesh is a separately tracked object.
// Model is shared read-only by the renderer.
type Model struct {
	Meshes []Mesh
}

// Count returns number of objects in the model
func (m *Model) Count() int {
	return len(m.Meshes)
}

// Validate returns error if the model has no meshes or any mesh is invalid.
func (m *Model) Validate() error {
	if m == nil || len(m.Meshes) == 0 {
		return fmt.Errorf("%w: object model has no meshes", posetrack.ErrConfiguration)
	}

	for i, mesh := range m.Meshes {
		if err := mesh.Validate(); err != nil {
			return fmt.Errorf("mesh %d: %w", i, err)
		}
	}

	return nil
}

// ResourceID identifies object meshes.
type ResourceID struct {
	// Directory is the mesh directory
	Directory string `mapstructure:"directory" yaml:"directory"`
	// Meshes are mesh names; one object is tracked per mesh
	Meshes []string `mapstructure:"meshes" yaml:"meshes"`
}

// Loader loads object models.
type Loader interface {
	// Load returns model identified by id
	Load(id ResourceID) (*Model, error)
}

// MemLoader loads meshes from memory by name.
type MemLoader map[string]Mesh

// Load returns model with meshes identified by id.
// It returns error if any mesh is missing.
func (l MemLoader) Load(id ResourceID) (*Model, error) {
	meshes := make([]Mesh, 0, len(id.Meshes))
	for _, name := range id.Meshes {
		m, ok := l[name]
		if !ok {
			return nil, fmt.Errorf("%w: mesh %q", posetrack.ErrResourceNotFound, name)
		}
		meshes = append(meshes, m)
	}

	return &Model{Meshes: meshes}, nil
}

// Box returns mesh of a box with the given dimensions centered at the origin.
func Box(w, h, d float64) Mesh {
	x, y, z := w/2, h/2, d/2

	vertices := []r3.Vec{
		{X: -x, Y: -y, Z: -z},
		{X: x, Y: -y, Z: -z},
		{X: x, Y: y, Z: -z},
		{X: -x, Y: y, Z: -z},
		{X: -x, Y: -y, Z: z},
		{X: x, Y: -y, Z: z},
		{X: x, Y: y, Z: z},
		{X: -x, Y: y, Z: z},
	}

	triangles := [][3]int{
		// -z, +z
		{0, 2, 1}, {0, 3, 2},
		{4, 5, 6}, {4, 6, 7},
		// -y, +y
		{0, 1, 5}, {0, 5, 4},
		{3, 6, 2}, {3, 7, 6},
		// -x, +x
		{0, 4, 7}, {0, 7, 3},
		{1, 2, 6}, {1, 6, 5},
	}

	return Mesh{
		Vertices:  vertices,
		Triangles: triangles,
	}
}
