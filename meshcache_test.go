package pcache

import (
	"testing"

	"github.com/flywave/go3d/vec2"
	"github.com/flywave/go3d/vec3"
	"github.com/flywave/go3d/vec4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unitQuad 单位正方形，两个三角形，UV等于xy
func unitQuad() *Mesh {
	return &Mesh{
		Vertices: []vec3.T{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}},
		Normals:  []vec3.T{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}, {0, 0, 1}},
		Colors:   []vec4.T{{1, 0, 0, 1}, {0, 1, 0, 1}, {0, 0, 1, 1}, {1, 1, 1, 1}},
		UVs:      [][]vec2.T{{{0, 0}, {1, 0}, {1, 1}, {0, 1}}},
		Triangles: [][3]uint32{
			{0, 1, 2},
			{0, 2, 3},
		},
	}
}

func TestNewMeshDataCacheErrors(t *testing.T) {
	tests := []struct {
		name string
		mesh *Mesh
		mode BakeMode
	}{
		{"nil mesh", nil, BAKE_MODE_VERTEX},
		{"no vertices", &Mesh{}, BAKE_MODE_VERTEX},
		{"triangle mode without triangles", &Mesh{Vertices: []vec3.T{{0, 0, 0}}}, BAKE_MODE_TRIANGLE},
		{"index out of range", &Mesh{
			Vertices:  []vec3.T{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
			Triangles: [][3]uint32{{0, 1, 3}},
		}, BAKE_MODE_TRIANGLE},
		{"normal stream length", &Mesh{
			Vertices: []vec3.T{{0, 0, 0}, {1, 0, 0}},
			Normals:  []vec3.T{{0, 0, 1}},
		}, BAKE_MODE_VERTEX},
		{"uv stream length", &Mesh{
			Vertices: []vec3.T{{0, 0, 0}, {1, 0, 0}},
			UVs:      [][]vec2.T{{{0, 0}}},
		}, BAKE_MODE_VERTEX},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewMeshDataCache(tt.mesh, tt.mode)
			assert.ErrorIs(t, err, ErrInvalidMesh)
		})
	}
}

// TestVertexModeWithoutTriangles 顶点模式允许点云
func TestVertexModeWithoutTriangles(t *testing.T) {
	c, err := NewMeshDataCache(&Mesh{Vertices: []vec3.T{{1, 2, 3}}}, BAKE_MODE_VERTEX)
	require.NoError(t, err)
	assert.Equal(t, 1, c.VertexCount())
	assert.Equal(t, 0, c.TriangleCount())
	assert.Zero(t, c.TotalArea())
}

func TestMeshDataCacheAreas(t *testing.T) {
	c, err := NewMeshDataCache(unitQuad(), BAKE_MODE_TRIANGLE)
	require.NoError(t, err)

	assert.InDelta(t, 0.5, c.Area(0), 1e-9)
	assert.InDelta(t, 0.5, c.Area(1), 1e-9)
	assert.InDelta(t, 0.5, c.CumulativeArea(0), 1e-9)
	assert.InDelta(t, 1.0, c.CumulativeArea(1), 1e-9)
	assert.InDelta(t, 1.0, c.TotalArea(), 1e-9)
	assert.Equal(t, c.CumulativeArea(c.TriangleCount()-1), c.TotalArea())
}

func TestMeshDataCacheVertexDefaults(t *testing.T) {
	m := &Mesh{Vertices: []vec3.T{{1, 2, 3}}}
	c, err := NewMeshDataCache(m, BAKE_MODE_VERTEX)
	require.NoError(t, err)

	s := c.Vertex(0)
	assert.Equal(t, vec3.T{1, 2, 3}, s.Position)
	assert.Equal(t, vec3.T{}, s.Normal)
	assert.Equal(t, vec4.T{1, 1, 1, 1}, s.Color)
	assert.False(t, s.HasUV())
}

func TestMeshDataCacheInterpolate(t *testing.T) {
	c, err := NewMeshDataCache(unitQuad(), BAKE_MODE_TRIANGLE)
	require.NoError(t, err)

	s := c.Interpolate(0, 1, 0, 0)
	assert.Equal(t, vec3.T{0, 0, 0}, s.Position)
	assert.Equal(t, vec4.T{1, 0, 0, 1}, s.Color)

	s = c.Interpolate(0, 0.5, 0.5, 0)
	assert.InDelta(t, 0.5, s.Position[0], 1e-6)
	assert.InDelta(t, 0.0, s.Position[1], 1e-6)
	assert.InDelta(t, 0.5, s.Color[0], 1e-6)
	assert.InDelta(t, 0.5, s.Color[1], 1e-6)
	require.True(t, s.HasUV())
	assert.InDelta(t, 0.5, s.UVs[0][0], 1e-6)
	assert.InDelta(t, 1.0, s.Normal[2], 1e-6)
}

// TestVertexOptionalStreams 缺少颜色和法线时使用默认值
func TestVertexOptionalStreams(t *testing.T) {
	m := unitQuad()
	assert.True(t, m.HasColors())
	assert.True(t, m.HasNormals())
	c, err := NewMeshDataCache(m, BAKE_MODE_VERTEX)
	require.NoError(t, err)
	assert.Equal(t, vec4.T{0, 1, 0, 1}, c.Vertex(1).Color)

	m = unitQuad()
	m.Colors, m.Normals = nil, nil
	assert.False(t, m.HasColors())
	assert.False(t, m.HasNormals())
	c, err = NewMeshDataCache(m, BAKE_MODE_TRIANGLE)
	require.NoError(t, err)
	s := c.Interpolate(0, 0.2, 0.3, 0.5)
	assert.Equal(t, vec4.T{1, 1, 1, 1}, s.Color)
	assert.Equal(t, vec3.T{}, s.Normal)
}
