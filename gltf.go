package pcache

import (
	"bytes"
	"fmt"
	"io"

	"github.com/flywave/go3d/vec2"
	"github.com/flywave/go3d/vec3"
	"github.com/flywave/go3d/vec4"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

const (
	// GLTFVersion 定义GLTF规范版本
	GLTFVersion = "2.0"
	// PaddingChar 用于二进制填充的字符
	PaddingChar = 0x20
)

// LoadGltfMesh opens a .gltf/.glb file and merges every triangle primitive
// into one mesh snapshot. Node transforms are not applied.
func LoadGltfMesh(path string) (*Mesh, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, err
	}
	return GltfToMesh(doc)
}

// DecodeGltfMesh reads a glTF document from rd, binary or JSON.
func DecodeGltfMesh(rd io.Reader) (*Mesh, error) {
	doc := new(gltf.Document)
	if err := gltf.NewDecoder(rd).Decode(doc); err != nil {
		return nil, fmt.Errorf("%w: decode gltf failed: %v", ErrInvalidMesh, err)
	}
	return GltfToMesh(doc)
}

type gltfPrimitive struct {
	positions [][3]float32
	normals   [][3]float32
	colors    [][4]uint8
	uvs       [][][2]float32
	indices   []uint32
}

// GltfToMesh converts the triangle primitives of doc. Streams missing from
// some primitives are zero filled (colors white) when others carry them.
func GltfToMesh(doc *gltf.Document) (*Mesh, error) {
	var prims []*gltfPrimitive
	hasNormals, hasColors, uvChannels := false, false, 0
	for mi, mh := range doc.Meshes {
		for pi, ps := range mh.Primitives {
			if ps.Mode != gltf.PrimitiveTriangles {
				continue
			}
			p, err := readGltfPrimitive(doc, ps)
			if err != nil {
				return nil, fmt.Errorf("mesh %d primitive %d: %w", mi, pi, err)
			}
			hasNormals = hasNormals || len(p.normals) > 0
			hasColors = hasColors || len(p.colors) > 0
			if len(p.uvs) > uvChannels {
				uvChannels = len(p.uvs)
			}
			prims = append(prims, p)
		}
	}

	m := &Mesh{}
	if uvChannels > 0 {
		m.UVs = make([][]vec2.T, uvChannels)
	}
	for _, p := range prims {
		base := uint32(len(m.Vertices))
		for i, pos := range p.positions {
			m.Vertices = append(m.Vertices, vec3.T(pos))
			if hasNormals {
				var n vec3.T
				if len(p.normals) > 0 {
					n = vec3.T(p.normals[i])
				}
				m.Normals = append(m.Normals, n)
			}
			if hasColors {
				c := defaultColor
				if len(p.colors) > 0 {
					cl := p.colors[i]
					c = vec4.T{float32(cl[0]) / 255, float32(cl[1]) / 255, float32(cl[2]) / 255, float32(cl[3]) / 255}
				}
				m.Colors = append(m.Colors, c)
			}
			for ch := 0; ch < uvChannels; ch++ {
				var uv vec2.T
				if ch < len(p.uvs) {
					uv = vec2.T(p.uvs[ch][i])
				}
				m.UVs[ch] = append(m.UVs[ch], uv)
			}
		}
		for i := 0; i+2 < len(p.indices); i += 3 {
			m.Triangles = append(m.Triangles, [3]uint32{base + p.indices[i], base + p.indices[i+1], base + p.indices[i+2]})
		}
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func readGltfPrimitive(doc *gltf.Document, ps *gltf.Primitive) (*gltfPrimitive, error) {
	p := &gltfPrimitive{}
	idx, ok := ps.Attributes["POSITION"]
	if !ok {
		return nil, fmt.Errorf("%w: primitive has no POSITION", ErrInvalidMesh)
	}
	var err error
	if p.positions, err = modeler.ReadPosition(doc, doc.Accessors[idx], nil); err != nil {
		return nil, fmt.Errorf("read positions failed: %w", err)
	}
	n := len(p.positions)

	if idx, ok := ps.Attributes["NORMAL"]; ok {
		if p.normals, err = modeler.ReadNormal(doc, doc.Accessors[idx], nil); err != nil {
			return nil, fmt.Errorf("read normals failed: %w", err)
		}
		if len(p.normals) != n {
			return nil, fmt.Errorf("%w: %d normals for %d positions", ErrInvalidMesh, len(p.normals), n)
		}
	}
	if idx, ok := ps.Attributes["COLOR_0"]; ok {
		if p.colors, err = modeler.ReadColor(doc, doc.Accessors[idx], nil); err != nil {
			return nil, fmt.Errorf("read colors failed: %w", err)
		}
		if len(p.colors) != n {
			return nil, fmt.Errorf("%w: %d colors for %d positions", ErrInvalidMesh, len(p.colors), n)
		}
	}
	for ch := 0; ; ch++ {
		idx, ok := ps.Attributes[fmt.Sprintf("TEXCOORD_%d", ch)]
		if !ok {
			break
		}
		uv, err := modeler.ReadTextureCoord(doc, doc.Accessors[idx], nil)
		if err != nil {
			return nil, fmt.Errorf("read texcoord %d failed: %w", ch, err)
		}
		if len(uv) != n {
			return nil, fmt.Errorf("%w: %d texcoords for %d positions", ErrInvalidMesh, len(uv), n)
		}
		p.uvs = append(p.uvs, uv)
	}

	if ps.Indices != nil {
		if p.indices, err = modeler.ReadIndices(doc, doc.Accessors[*ps.Indices], nil); err != nil {
			return nil, fmt.Errorf("read indices failed: %w", err)
		}
	} else {
		p.indices = make([]uint32, n)
		for i := range p.indices {
			p.indices[i] = uint32(i)
		}
	}
	return p, nil
}

// CreateDoc 创建一个新的GLTF文档
func CreateDoc() *gltf.Document {
	doc := &gltf.Document{
		Asset: gltf.Asset{
			Version: GLTFVersion,
		},
		Scenes: []*gltf.Scene{{}},
	}
	sceneIndex := uint32(0)
	doc.Scene = &sceneIndex
	return doc
}

// FileToGltf builds a POINTS primitive preview of a baked cache. position is
// required; normal and color are exported when present.
func FileToGltf(f *File, name string) (*gltf.Document, error) {
	positions, err := f.Vector3Data(PROPERTY_POSITION)
	if err != nil {
		return nil, err
	}
	doc := CreateDoc()

	pos := make([][3]float32, len(positions))
	for i := range positions {
		pos[i] = positions[i]
	}
	attrs := gltf.Attribute{
		"POSITION": modeler.WritePosition(doc, pos),
	}

	if _, ok := f.Property(PROPERTY_NORMAL); ok {
		normals, err := f.Vector3Data(PROPERTY_NORMAL)
		if err != nil {
			return nil, err
		}
		nl := make([][3]float32, len(normals))
		for i := range normals {
			nl[i] = normals[i]
		}
		attrs["NORMAL"] = modeler.WriteNormal(doc, nl)
	}
	if _, ok := f.Property(PROPERTY_COLOR); ok {
		colors, err := f.Vector4Data(PROPERTY_COLOR)
		if err != nil {
			return nil, err
		}
		cl := make([][4]uint8, len(colors))
		for i, c := range colors {
			for k := 0; k < 4; k++ {
				cl[i][k] = unitToByte(c[k])
			}
		}
		attrs["COLOR_0"] = modeler.WriteColor(doc, cl)
	}

	doc.Meshes = append(doc.Meshes, &gltf.Mesh{
		Name: name,
		Primitives: []*gltf.Primitive{{
			Mode:       gltf.PrimitivePoints,
			Attributes: attrs,
		}},
	})
	meshID := uint32(len(doc.Meshes) - 1)
	doc.Nodes = append(doc.Nodes, &gltf.Node{Name: name, Mesh: &meshID})
	doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, uint32(len(doc.Nodes)-1))
	return doc, nil
}

func unitToByte(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}

func calcPadding(offset, unit int) int {
	padding := offset % unit
	if padding != 0 {
		padding = unit - padding
	}
	return padding
}

// GetGltfBinary 将GLTF文档编码为二进制格式
func GetGltfBinary(doc *gltf.Document, paddingUnit int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	encoder := gltf.NewEncoder(buf)
	encoder.AsBinary = true
	if err := encoder.Encode(doc); err != nil {
		return nil, err
	}
	padding := calcPadding(buf.Len(), paddingUnit)
	if padding > 0 {
		buf.Write(bytes.Repeat([]byte{PaddingChar}, padding))
	}
	return buf.Bytes(), nil
}
