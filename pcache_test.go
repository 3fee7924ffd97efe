package pcache

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/flywave/go3d/vec2"
	"github.com/flywave/go3d/vec3"
	"github.com/flywave/go3d/vec4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeclareProperty(t *testing.T) {
	f := NewFile()
	require.NoError(t, f.DeclareProperty("position", PROPERTY_TYPE_VECTOR3))

	assert.ErrorIs(t, f.DeclareProperty("position", PROPERTY_TYPE_FLOAT), ErrDuplicateProperty)
	assert.ErrorIs(t, f.DeclareProperty("bad", PropertyType(0)), ErrPropertyType)
	assert.ErrorIs(t, f.DeclareProperty("bad", PropertyType(9)), ErrPropertyType)
	assert.ErrorIs(t, f.DeclareProperty("", PROPERTY_TYPE_FLOAT), ErrUnknownProperty)

	p, ok := f.Property("position")
	require.True(t, ok)
	assert.Equal(t, PROPERTY_TYPE_VECTOR3, p.Type)
	assert.False(t, p.HasData())
	assert.Len(t, f.Properties(), 1)
}

func TestSetData(t *testing.T) {
	newFile := func() *File {
		f := NewFile()
		require.NoError(t, f.DeclareProperty("position", PROPERTY_TYPE_VECTOR3))
		require.NoError(t, f.DeclareProperty("age", PROPERTY_TYPE_FLOAT))
		require.NoError(t, f.DeclareProperty("color", PROPERTY_TYPE_COLOR))
		return f
	}

	t.Run("unknown property", func(t *testing.T) {
		assert.ErrorIs(t, newFile().SetData("missing", []float32{1}), ErrUnknownProperty)
	})

	t.Run("set twice", func(t *testing.T) {
		f := newFile()
		require.NoError(t, f.SetFloatData("age", []float32{1, 2}))
		assert.ErrorIs(t, f.SetFloatData("age", []float32{3, 4}), ErrPropertyDataSet)
	})

	t.Run("partial element", func(t *testing.T) {
		assert.ErrorIs(t, newFile().SetData("position", []float32{1, 2}), ErrPropertyLengthMismatch)
	})

	t.Run("sibling length", func(t *testing.T) {
		f := newFile()
		require.NoError(t, f.SetVector3Data("position", []vec3.T{{1, 2, 3}, {4, 5, 6}}))
		assert.ErrorIs(t, f.SetFloatData("age", []float32{1, 2, 3}), ErrPropertyLengthMismatch)
		assert.NoError(t, f.SetFloatData("age", []float32{1, 2}))
		assert.Equal(t, 2, f.PointCount())
	})

	t.Run("typed setter mismatch", func(t *testing.T) {
		f := newFile()
		assert.ErrorIs(t, f.SetVector4Data("color", []vec4.T{{1, 1, 1, 1}}), ErrPropertyType)
		assert.ErrorIs(t, f.SetVector2Data("position", []vec2.T{{1, 1}}), ErrPropertyType)
		assert.NoError(t, f.SetColorData("color", []vec4.T{{1, 1, 1, 1}}))
	})

	t.Run("missing data on serialize", func(t *testing.T) {
		f := newFile()
		require.NoError(t, f.SetFloatData("age", []float32{1}))
		_, err := f.Bytes(FORMAT_BINARY)
		assert.ErrorIs(t, err, ErrMissingPropertyData)
		_, err = f.Bytes(FORMAT_ASCII)
		assert.ErrorIs(t, err, ErrMissingPropertyData)
	})
}

func TestVectorData(t *testing.T) {
	f := NewFile()
	require.NoError(t, f.DeclareProperty("position", PROPERTY_TYPE_VECTOR3))
	require.NoError(t, f.DeclareProperty("color", PROPERTY_TYPE_COLOR))
	positions := []vec3.T{{1, 2, 3}, {4, 5, 6}}
	colors := []vec4.T{{0.1, 0.2, 0.3, 1}, {1, 1, 1, 0.5}}
	require.NoError(t, f.SetVector3Data("position", positions))
	require.NoError(t, f.SetColorData("color", colors))

	got3, err := f.Vector3Data("position")
	require.NoError(t, err)
	assert.Equal(t, positions, got3)

	got4, err := f.Vector4Data("color")
	require.NoError(t, err)
	assert.Equal(t, colors, got4)

	_, err = f.Vector3Data("color")
	assert.ErrorIs(t, err, ErrPropertyType)
	_, err = f.Vector4Data("position")
	assert.ErrorIs(t, err, ErrPropertyType)
	_, err = f.Vector3Data("nope")
	assert.ErrorIs(t, err, ErrUnknownProperty)
}

func TestPropertyTypeWidth(t *testing.T) {
	tests := map[PropertyType]int{
		PROPERTY_TYPE_FLOAT:   1,
		PROPERTY_TYPE_VECTOR2: 2,
		PROPERTY_TYPE_VECTOR3: 3,
		PROPERTY_TYPE_VECTOR4: 4,
		PROPERTY_TYPE_COLOR:   4,
		PropertyType(0):       0,
	}
	for typ, want := range tests {
		assert.Equal(t, want, typ.Width(), typ.String())
	}
}

// TestZeroValueFile 零值File可直接使用
func TestZeroValueFile(t *testing.T) {
	var f File
	require.NoError(t, f.DeclareProperty("age", PROPERTY_TYPE_FLOAT))
	require.NoError(t, f.SetFloatData("age", []float32{1, 2}))

	buf, err := f.Bytes(FORMAT_BINARY)
	require.NoError(t, err)
	got, err := Deserialize(bytes.NewReader(buf))
	require.NoError(t, err)
	assert.Equal(t, uint32(V1), got.Version)
	assert.Equal(t, 2, got.PointCount())
}

// TestSetDataCopies 调用方之后修改切片不影响文件
func TestSetDataCopies(t *testing.T) {
	f := NewFile()
	require.NoError(t, f.DeclareProperty("age", PROPERTY_TYPE_FLOAT))
	values := []float32{1, 2, 3}
	require.NoError(t, f.SetFloatData("age", values))
	values[0] = 42

	p, _ := f.Property("age")
	assert.Equal(t, []float32{1, 2, 3}, p.Values)
}

func TestDeclarePropertyNameLimit(t *testing.T) {
	f := NewFile()
	assert.ErrorIs(t, f.DeclareProperty(strings.Repeat("n", maxPropertyNameLen+1), PROPERTY_TYPE_FLOAT), ErrConfiguration)
	_, ok := f.Property(strings.Repeat("n", maxPropertyNameLen+1))
	assert.False(t, ok)

	for i := 0; i < maxProperties; i++ {
		require.NoError(t, f.DeclareProperty(fmt.Sprintf("p%d", i), PROPERTY_TYPE_FLOAT))
	}
	assert.ErrorIs(t, f.DeclareProperty("one more", PROPERTY_TYPE_FLOAT), ErrConfiguration)
}
