package pcache

import (
	"bytes"
	"testing"

	"github.com/flywave/go3d/vec3"
	"github.com/flywave/go3d/vec4"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCreateDoc 测试CreateDoc函数是否正确创建GLTF文档
func TestCreateDoc(t *testing.T) {
	doc := CreateDoc()
	require.NotNil(t, doc)
	assert.Equal(t, GLTFVersion, doc.Asset.Version)
	assert.Len(t, doc.Scenes, 1)
	require.NotNil(t, doc.Scene)
	assert.Equal(t, uint32(0), *doc.Scene)
}

func uint32Ptr(v uint32) *uint32 {
	return &v
}

// quadDoc 两个图元组成的单位正方形，第二个图元没有颜色
func quadDoc() *gltf.Document {
	doc := CreateDoc()
	first := &gltf.Primitive{
		Mode:    gltf.PrimitiveTriangles,
		Indices: uint32Ptr(modeler.WriteIndices(doc, []uint16{0, 1, 2})),
		Attributes: gltf.Attribute{
			"POSITION":   modeler.WritePosition(doc, [][3]float32{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}}),
			"NORMAL":     modeler.WriteNormal(doc, [][3]float32{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}}),
			"COLOR_0":    modeler.WriteColor(doc, [][4]uint8{{255, 0, 0, 255}, {255, 0, 0, 255}, {255, 0, 0, 255}}),
			"TEXCOORD_0": modeler.WriteTextureCoord(doc, [][2]float32{{0, 0}, {1, 0}, {1, 1}}),
		},
	}
	second := &gltf.Primitive{
		Mode: gltf.PrimitiveTriangles,
		Attributes: gltf.Attribute{
			"POSITION":   modeler.WritePosition(doc, [][3]float32{{0, 0, 0}, {1, 1, 0}, {0, 1, 0}}),
			"NORMAL":     modeler.WriteNormal(doc, [][3]float32{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}}),
			"TEXCOORD_0": modeler.WriteTextureCoord(doc, [][2]float32{{0, 0}, {1, 1}, {0, 1}}),
		},
	}
	lines := &gltf.Primitive{
		Mode: gltf.PrimitiveLines,
		Attributes: gltf.Attribute{
			"POSITION": modeler.WritePosition(doc, [][3]float32{{5, 5, 5}, {6, 6, 6}}),
		},
	}
	doc.Meshes = []*gltf.Mesh{{Name: "quad", Primitives: []*gltf.Primitive{first, second, lines}}}
	return doc
}

func TestGltfToMesh(t *testing.T) {
	m, err := GltfToMesh(quadDoc())
	require.NoError(t, err)

	assert.Equal(t, 6, m.VertexCount())
	assert.Equal(t, [][3]uint32{{0, 1, 2}, {3, 4, 5}}, m.Triangles)
	require.Len(t, m.Normals, 6)
	require.Len(t, m.Colors, 6)
	require.Len(t, m.UVs, 1)
	assert.Equal(t, vec4.T{1, 0, 0, 1}, m.Colors[0])
	assert.Equal(t, vec4.T{1, 1, 1, 1}, m.Colors[5])
	assert.Equal(t, vec3.T{0, 1, 0}, m.Vertices[5])
}

func TestDecodeGltfMeshBinary(t *testing.T) {
	buf, err := GetGltfBinary(quadDoc(), 4)
	require.NoError(t, err)
	assert.Zero(t, len(buf)%4)

	m, err := DecodeGltfMesh(bytes.NewReader(buf))
	require.NoError(t, err)
	c, err := NewMeshDataCache(m, BAKE_MODE_TRIANGLE)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, c.TotalArea(), 1e-6)
}

func TestGltfToMeshWithoutTriangles(t *testing.T) {
	doc := CreateDoc()
	doc.Meshes = []*gltf.Mesh{{Primitives: []*gltf.Primitive{{
		Mode:       gltf.PrimitiveTriangles,
		Attributes: gltf.Attribute{"NORMAL": modeler.WriteNormal(doc, [][3]float32{{0, 0, 1}})},
	}}}}
	_, err := GltfToMesh(doc)
	assert.ErrorIs(t, err, ErrInvalidMesh)
}

// TestFileToGltf 点缓存导出为POINTS图元
func TestFileToGltf(t *testing.T) {
	f, err := Bake(t.Context(), unitQuad(), uniformRequest(1, 64), nil)
	require.NoError(t, err)

	doc, err := FileToGltf(f, "points")
	require.NoError(t, err)
	require.Len(t, doc.Meshes, 1)
	prim := doc.Meshes[0].Primitives[0]
	assert.Equal(t, gltf.PrimitivePoints, prim.Mode)
	assert.Contains(t, prim.Attributes, "POSITION")
	assert.Contains(t, prim.Attributes, "NORMAL")
	assert.Contains(t, prim.Attributes, "COLOR_0")
	assert.Equal(t, uint32(64), doc.Accessors[prim.Attributes["POSITION"]].Count)
	assert.Equal(t, []uint32{0}, doc.Scenes[0].Nodes)

	buf, err := GetGltfBinary(doc, 4)
	require.NoError(t, err)
	back := new(gltf.Document)
	require.NoError(t, gltf.NewDecoder(bytes.NewReader(buf)).Decode(back))
	pos, err := modeler.ReadPosition(back, back.Accessors[back.Meshes[0].Primitives[0].Attributes["POSITION"]], nil)
	require.NoError(t, err)
	want, err := f.Vector3Data(PROPERTY_POSITION)
	require.NoError(t, err)
	for i := range pos {
		assert.Equal(t, [3]float32(want[i]), pos[i])
	}
}

func TestUnitToByte(t *testing.T) {
	assert.Equal(t, uint8(0), unitToByte(-1))
	assert.Equal(t, uint8(255), unitToByte(2))
	assert.Equal(t, uint8(128), unitToByte(0.5))
}
