package pcache

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/flywave/go3d/vec3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPositionMap(t *testing.T) {
	f := NewFile()
	require.NoError(t, f.DeclareProperty(PROPERTY_POSITION, PROPERTY_TYPE_VECTOR3))
	require.NoError(t, f.SetVector3Data(PROPERTY_POSITION, []vec3.T{{0, 5, 2}, {2, 5, 4}, {1, 5, 3}}))

	img, box, err := f.PositionMap()
	require.NoError(t, err)
	assert.Equal(t, 3, img.Bounds().Dx())
	assert.Equal(t, 1, img.Bounds().Dy())
	assert.Equal(t, 0.0, box.Min[0])
	assert.Equal(t, 4.0, box.Max[2])

	c := img.NRGBA64At(0, 0)
	assert.Equal(t, uint16(0), c.R)
	assert.Equal(t, uint16(0), c.G) // zero extent on y
	c = img.NRGBA64At(1, 0)
	assert.Equal(t, uint16(0xffff), c.R)
	assert.Equal(t, uint16(0xffff), c.B)
	c = img.NRGBA64At(2, 0)
	assert.InDelta(t, 0x8000, int(c.R), 1)
}

func TestWritePositionMap(t *testing.T) {
	f := NewFile()
	require.NoError(t, f.DeclareProperty(PROPERTY_POSITION, PROPERTY_TYPE_VECTOR3))
	require.NoError(t, f.SetVector3Data(PROPERTY_POSITION, []vec3.T{{0, 0, 0}, {1, 1, 1}}))

	var buf bytes.Buffer
	_, err := f.WritePositionMap(&buf)
	require.NoError(t, err)
	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 2, img.Bounds().Dx())
}

func TestPositionMapErrors(t *testing.T) {
	_, _, err := NewFile().PositionMap()
	assert.ErrorIs(t, err, ErrUnknownProperty)

	f := NewFile()
	require.NoError(t, f.DeclareProperty(PROPERTY_POSITION, PROPERTY_TYPE_VECTOR3))
	require.NoError(t, f.SetVector3Data(PROPERTY_POSITION, nil))
	_, _, err = f.PositionMap()
	assert.ErrorIs(t, err, ErrMissingPropertyData)
}
