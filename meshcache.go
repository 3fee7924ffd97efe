package pcache

import (
	"fmt"

	dvec3 "github.com/flywave/go3d/float64/vec3"

	"github.com/flywave/go3d/vec2"
	"github.com/flywave/go3d/vec3"
	"github.com/flywave/go3d/vec4"
)

var defaultColor = vec4.T{1, 1, 1, 1}

// SampledVertex is one sample produced by a Picker. It is either a copy of a
// mesh vertex or a barycentric blend of a triangle's three vertices.
type SampledVertex struct {
	Position vec3.T
	Normal   vec3.T
	Color    vec4.T
	UVs      []vec2.T
}

// HasUV reports whether the sample carries at least one UV channel.
func (s *SampledVertex) HasUV() bool {
	return len(s.UVs) > 0
}

// MeshDataCache holds the static data a picker needs, extracted once per bake.
// It is never mutated after construction.
type MeshDataCache struct {
	mesh       *Mesh
	areas      []float64
	cumulative []float64
	totalArea  float64
}

// NewMeshDataCache validates mesh for the given mode and builds the triangle
// area table. Triangle areas are only computed when the mesh has triangles.
func NewMeshDataCache(mesh *Mesh, mode BakeMode) (*MeshDataCache, error) {
	if mesh == nil {
		return nil, fmt.Errorf("%w: nil mesh", ErrInvalidMesh)
	}
	if len(mesh.Vertices) == 0 {
		return nil, fmt.Errorf("%w: mesh has no vertices", ErrInvalidMesh)
	}
	if mode == BAKE_MODE_TRIANGLE && len(mesh.Triangles) == 0 {
		return nil, fmt.Errorf("%w: mesh has no triangles", ErrInvalidMesh)
	}
	if err := mesh.Validate(); err != nil {
		return nil, err
	}

	c := &MeshDataCache{mesh: mesh}
	c.areas = make([]float64, len(mesh.Triangles))
	c.cumulative = make([]float64, len(mesh.Triangles))
	var sum float64
	for i, t := range mesh.Triangles {
		c.areas[i] = triangleArea(&mesh.Vertices[t[0]], &mesh.Vertices[t[1]], &mesh.Vertices[t[2]])
		sum += c.areas[i]
		c.cumulative[i] = sum
	}
	c.totalArea = sum
	return c, nil
}

func triangleArea(a, b, c *vec3.T) float64 {
	pa := dvec3.T{float64(a[0]), float64(a[1]), float64(a[2])}
	pb := dvec3.T{float64(b[0]), float64(b[1]), float64(b[2])}
	pc := dvec3.T{float64(c[0]), float64(c[1]), float64(c[2])}
	e1 := dvec3.Sub(&pb, &pa)
	e2 := dvec3.Sub(&pc, &pa)
	cro := dvec3.Cross(&e1, &e2)
	return 0.5 * cro.Length()
}

func (c *MeshDataCache) Mesh() *Mesh {
	return c.mesh
}

func (c *MeshDataCache) VertexCount() int {
	return len(c.mesh.Vertices)
}

func (c *MeshDataCache) TriangleCount() int {
	return len(c.mesh.Triangles)
}

func (c *MeshDataCache) Triangle(i int) [3]uint32 {
	return c.mesh.Triangles[i]
}

func (c *MeshDataCache) Area(i int) float64 {
	return c.areas[i]
}

func (c *MeshDataCache) CumulativeArea(i int) float64 {
	return c.cumulative[i]
}

func (c *MeshDataCache) TotalArea() float64 {
	return c.totalArea
}

// Vertex returns vertex i as a sample. Missing normals are zero, missing
// colors are opaque white.
func (c *MeshDataCache) Vertex(i int) SampledVertex {
	m := c.mesh
	s := SampledVertex{Position: m.Vertices[i], Color: defaultColor}
	if m.HasNormals() {
		s.Normal = m.Normals[i]
	}
	if m.HasColors() {
		s.Color = m.Colors[i]
	}
	if len(m.UVs) > 0 {
		s.UVs = make([]vec2.T, len(m.UVs))
		for ch := range m.UVs {
			s.UVs[ch] = m.UVs[ch][i]
		}
	}
	return s
}

// Interpolate blends the three vertices of triangle tri with weights u, v
// and w applied to its first, second and third vertex.
func (c *MeshDataCache) Interpolate(tri int, u, v, w float32) SampledVertex {
	m := c.mesh
	t := m.Triangles[tri]
	a, b, d := t[0], t[1], t[2]

	s := SampledVertex{
		Position: blend3(&m.Vertices[a], &m.Vertices[b], &m.Vertices[d], u, v, w),
		Color:    defaultColor,
	}
	if m.HasNormals() {
		s.Normal = blend3(&m.Normals[a], &m.Normals[b], &m.Normals[d], u, v, w)
	}
	if m.HasColors() {
		s.Color = blend4(&m.Colors[a], &m.Colors[b], &m.Colors[d], u, v, w)
	}
	if len(m.UVs) > 0 {
		s.UVs = make([]vec2.T, len(m.UVs))
		for ch, uvs := range m.UVs {
			s.UVs[ch] = blend2(&uvs[a], &uvs[b], &uvs[d], u, v, w)
		}
	}
	return s
}

func blend2(a, b, c *vec2.T, u, v, w float32) vec2.T {
	return vec2.T{
		a[0]*u + b[0]*v + c[0]*w,
		a[1]*u + b[1]*v + c[1]*w,
	}
}

func blend3(a, b, c *vec3.T, u, v, w float32) vec3.T {
	return vec3.T{
		a[0]*u + b[0]*v + c[0]*w,
		a[1]*u + b[1]*v + c[1]*w,
		a[2]*u + b[2]*v + c[2]*w,
	}
}

func blend4(a, b, c *vec4.T, u, v, w float32) vec4.T {
	return vec4.T{
		a[0]*u + b[0]*v + c[0]*w,
		a[1]*u + b[1]*v + c[1]*w,
		a[2]*u + b[2]*v + c[2]*w,
		a[3]*u + b[3]*v + c[3]*w,
	}
}
