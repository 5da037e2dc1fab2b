package object

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	posetrack "github.com/milosgajdos/go-posetrack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestBox(t *testing.T) {
	assert := assert.New(t)

	b := Box(0.2, 0.1, 0.4)
	assert.NoError(b.Validate())
	assert.Len(b.Vertices, 8)
	assert.Len(b.Triangles, 12)

	for _, v := range b.Vertices {
		assert.InDelta(0.1, abs(v.X), 1e-12)
		assert.InDelta(0.05, abs(v.Y), 1e-12)
		assert.InDelta(0.2, abs(v.Z), 1e-12)
	}

	// triangle normals point outwards
	for _, tr := range b.Triangles {
		a, b1, c := b.Vertices[tr[0]], b.Vertices[tr[1]], b.Vertices[tr[2]]
		n := r3.Cross(r3.Sub(b1, a), r3.Sub(c, a))
		center := r3.Scale(1.0/3, r3.Add(a, r3.Add(b1, c)))
		assert.Greater(r3.Dot(n, center), 0.0)
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func TestModelValidate(t *testing.T) {
	assert := assert.New(t)

	m := &Model{Meshes: []Mesh{Box(1, 1, 1)}}
	assert.NoError(m.Validate())
	assert.Equal(1, m.Count())

	for _, m := range []*Model{
		nil,
		{},
		{Meshes: []Mesh{{}}},
		{Meshes: []Mesh{{Vertices: []r3.Vec{{}}, Triangles: [][3]int{{0, 1, 2}}}}},
	} {
		assert.True(errors.Is(m.Validate(), posetrack.ErrConfiguration))
	}
}

func TestMemLoader(t *testing.T) {
	assert := assert.New(t)

	l := MemLoader{"box": Box(1, 1, 1)}

	m, err := l.Load(ResourceID{Meshes: []string{"box", "box"}})
	assert.NoError(err)
	assert.Equal(2, m.Count())

	m, err = l.Load(ResourceID{Meshes: []string{"box", "missing"}})
	assert.Nil(m)
	assert.True(errors.Is(err, posetrack.ErrResourceNotFound))
}

func TestReadOBJ(t *testing.T) {
	assert := assert.New(t)

	data := `# quad
o plane
v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
vn 0 0 1
f 1//1 2//1 3//1 -1//1
`
	m, err := ReadOBJ(strings.NewReader(data))
	assert.NoError(err)
	assert.Len(m.Vertices, 4)
	assert.Equal([][3]int{{0, 1, 2}, {2, 3, 0}}, m.Triangles)

	// homogeneous coordinates and texture references
	data = `v 0 0 0 2
v 2 0 0 2
v 0 2 0 2
vt 0 0
vt 1 0
vt 0 1
f 1/1 2/2 3/3
`
	m, err = ReadOBJ(strings.NewReader(data))
	assert.NoError(err)
	assert.Equal([]r3.Vec{{}, {X: 1}, {Y: 1}}, m.Vertices)
	assert.Equal([][3]int{{0, 1, 2}}, m.Triangles)

	for _, bad := range []string{
		"v 0 0\n",
		"v a 0 0\n",
		"v 0 0 0\nf 1 2\n",
		"v 0 0 0\nf 1 x 1\n",
		"v 0 0 0\nf 1 2 3\n",
		"v 0 0 0\nv 1 0 0\nv 1 1 0\nv 0 1 0\nv 0 2 0\nf 1 2 3 4 5\n",
		"v 0 0 0\nv 1 0 0\nv 1 1 0\nl 1 2\nf 1 2 3\n",
		"",
	} {
		_, err := ReadOBJ(strings.NewReader(bad))
		assert.True(errors.Is(err, posetrack.ErrConfiguration), bad)
	}
}

func TestFileLoader(t *testing.T) {
	assert := assert.New(t)

	dir := t.TempDir()

	var buf bytes.Buffer
	require.NoError(t, WriteOBJ(&buf, Box(0.1, 0.2, 0.3)))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "box.obj"), buf.Bytes(), 0o644))

	m, err := FileLoader{}.Load(ResourceID{Directory: dir, Meshes: []string{"box.obj"}})
	assert.NoError(err)
	assert.Equal(1, m.Count())

	// vertices may be renumbered, the triangles are the same
	box := Box(0.1, 0.2, 0.3)
	got := m.Meshes[0]
	require.Len(t, got.Triangles, len(box.Triangles))
	for i, tri := range box.Triangles {
		for k := range tri {
			want, v := box.Vertices[tri[k]], got.Vertices[got.Triangles[i][k]]
			assert.InDelta(want.X, v.X, 1e-6)
			assert.InDelta(want.Y, v.Y, 1e-6)
			assert.InDelta(want.Z, v.Z, 1e-6)
		}
	}

	_, err = FileLoader{}.Load(ResourceID{Directory: dir, Meshes: []string{"missing.obj"}})
	assert.True(errors.Is(err, posetrack.ErrResourceNotFound))
}
