package object

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	posetrack "github.com/milosgajdos/go-posetrack"
	"github.com/udhos/gwob"
	"gonum.org/v1/gonum/spatial/r3"
)

// FileLoader loads Wavefront OBJ meshes from the resource directory.
type FileLoader struct{}

// Load reads every mesh of id from id.Directory.
// It returns error if a mesh file does not exist or can't be parsed.
func (FileLoader) Load(id ResourceID) (*Model, error) {
	meshes := make([]Mesh, 0, len(id.Meshes))
	for _, name := range id.Meshes {
		path := filepath.Join(id.Directory, name)

		f, err := os.Open(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("%w: mesh %s", posetrack.ErrResourceNotFound, path)
			}
			return nil, fmt.Errorf("failed to open mesh %s: %w", path, err)
		}

		m, err := ReadOBJ(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read mesh %s: %w", path, err)
		}

		meshes = append(meshes, *m)
	}

	return &Model{Meshes: meshes}, nil
}

// ReadOBJ parses vertices and faces of a Wavefront OBJ mesh.
// Faces must be triangles or quads; a quad is split in two triangles.
// Vertices are numbered in the order the faces first refer to them.
func ReadOBJ(r io.Reader) (*Mesh, error) {
	var errs []string
	opts := &gwob.ObjParserOptions{
		IgnoreNormals: true,
		// the parser skips malformed lines and reports them here
		Logger: func(msg string) {
			if strings.HasPrefix(msg, "readLines: ") || strings.HasPrefix(msg, "scanLines: ") {
				errs = append(errs, strings.TrimSpace(msg))
			}
		},
	}

	o, err := gwob.NewObjFromReader("mesh", r, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to read obj: %w", err)
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %s", posetrack.ErrConfiguration, errs[0])
	}

	if len(o.Indices)%3 != 0 {
		return nil, fmt.Errorf("%w: %d face indices", posetrack.ErrConfiguration, len(o.Indices))
	}

	m := &Mesh{
		Vertices:  make([]r3.Vec, o.NumberOfElements()),
		Triangles: make([][3]int, 0, len(o.Indices)/3),
	}
	for i := range m.Vertices {
		x, y, z := o.VertexCoordinates(i)
		m.Vertices[i] = r3.Vec{X: float64(x), Y: float64(y), Z: float64(z)}
	}
	for i := 0; i < len(o.Indices); i += 3 {
		m.Triangles = append(m.Triangles, [3]int{o.Indices[i], o.Indices[i+1], o.Indices[i+2]})
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}

	return m, nil
}

// WriteOBJ writes mesh m in Wavefront OBJ format.
// Coordinates are written with micrometre precision.
func WriteOBJ(w io.Writer, m Mesh) error {
	coord := make([]float32, 0, 3*len(m.Vertices))
	for _, v := range m.Vertices {
		coord = append(coord, float32(v.X), float32(v.Y), float32(v.Z))
	}

	indices := make([]int, 0, 3*len(m.Triangles))
	for _, t := range m.Triangles {
		indices = append(indices, t[0], t[1], t[2])
	}

	o, err := gwob.NewObjFromVertex(coord, indices)
	if err != nil {
		return fmt.Errorf("failed to build obj: %w", err)
	}

	bw := bufio.NewWriter(w)
	if err := o.ToWriter(bw); err != nil {
		return err
	}

	return bw.Flush()
}
