package pcache

import (
	"fmt"
	"math"

	dvec3 "github.com/flywave/go3d/float64/vec3"

	"github.com/flywave/go3d/vec2"
	"github.com/flywave/go3d/vec3"
	"github.com/flywave/go3d/vec4"
)

// Mesh 网格快照
type Mesh struct {
	Vertices  []vec3.T    `json:"vertices"`
	Normals   []vec3.T    `json:"normals,omitempty"`
	Colors    []vec4.T    `json:"colors,omitempty"`
	UVs       [][]vec2.T  `json:"uvs,omitempty"`
	Triangles [][3]uint32 `json:"triangles"`
}

func (m *Mesh) VertexCount() int {
	return len(m.Vertices)
}

func (m *Mesh) TriangleCount() int {
	return len(m.Triangles)
}

func (m *Mesh) HasNormals() bool {
	return len(m.Normals) > 0
}

func (m *Mesh) HasColors() bool {
	return len(m.Colors) > 0
}

// Validate checks that every present per-vertex stream is parallel to the
// vertex stream and that every triangle index is in range.
func (m *Mesh) Validate() error {
	n := len(m.Vertices)
	if len(m.Normals) > 0 && len(m.Normals) != n {
		return fmt.Errorf("%w: %d normals for %d vertices", ErrInvalidMesh, len(m.Normals), n)
	}
	if len(m.Colors) > 0 && len(m.Colors) != n {
		return fmt.Errorf("%w: %d colors for %d vertices", ErrInvalidMesh, len(m.Colors), n)
	}
	for c, uvs := range m.UVs {
		if len(uvs) != n {
			return fmt.Errorf("%w: uv channel %d has %d entries for %d vertices", ErrInvalidMesh, c, len(uvs), n)
		}
	}
	for i, t := range m.Triangles {
		for _, idx := range t {
			if int(idx) >= n {
				return fmt.Errorf("%w: triangle %d references vertex %d of %d", ErrInvalidMesh, i, idx, n)
			}
		}
	}
	return nil
}

// ComputeNormals replaces Normals with area-independent face normals
// accumulated per vertex. Degenerate faces are skipped.
func (m *Mesh) ComputeNormals() {
	normals := make([]vec3.T, len(m.Vertices))
	for _, f := range m.Triangles {
		pt1 := m.Vertices[f[0]]
		pt2 := m.Vertices[f[1]]
		pt3 := m.Vertices[f[2]]

		sub1 := vec3.Sub(&pt2, &pt1)
		sub2 := vec3.Sub(&pt3, &pt1)

		cro := vec3.Cross(&sub1, &sub2)
		l := cro.Length()
		if l == 0 {
			continue
		}
		weightedNormal := cro.Scale(1 / l)

		normals[f[0]].Add(weightedNormal)
		normals[f[1]].Add(weightedNormal)
		normals[f[2]].Add(weightedNormal)
	}

	for i := range normals {
		if normals[i].Length() > 0 {
			normals[i].Normalize()
		}
	}

	m.Normals = normals
}

func (m *Mesh) GetBoundbox() *[6]float64 {
	return boundsOf(m.Vertices)
}

func (m *Mesh) Bounds() dvec3.Box {
	if len(m.Vertices) == 0 {
		return dvec3.Box{}
	}
	bx := m.GetBoundbox()
	return dvec3.Box{
		Min: dvec3.T{bx[0], bx[1], bx[2]},
		Max: dvec3.T{bx[3], bx[4], bx[5]},
	}
}

func boundsOf(pts []vec3.T) *[6]float64 {
	minX := math.MaxFloat64
	minY := math.MaxFloat64
	minZ := math.MaxFloat64
	maxX := -math.MaxFloat64
	maxY := -math.MaxFloat64
	maxZ := -math.MaxFloat64
	for i := range pts {
		minX = math.Min(minX, float64(pts[i][0]))
		minY = math.Min(minY, float64(pts[i][1]))
		minZ = math.Min(minZ, float64(pts[i][2]))

		maxX = math.Max(maxX, float64(pts[i][0]))
		maxY = math.Max(maxY, float64(pts[i][1]))
		maxZ = math.Max(maxZ, float64(pts[i][2]))
	}
	return &[6]float64{minX, minY, minZ, maxX, maxY, maxZ}
}
