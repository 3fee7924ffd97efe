package pcache

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataTyped(t *testing.T) {
	md := Metadata{}
	md.SetString("name", "quad")
	md.SetInt("seed", 7)

	s, ok := md.String("name")
	assert.True(t, ok)
	assert.Equal(t, "quad", s)

	_, ok = md.Int("name")
	assert.False(t, ok)
	_, ok = md.Float("missing")
	assert.False(t, ok)

	assert.Equal(t, []string{"name", "seed"}, md.Keys())
}

// TestMetadataMarshal 键按字典序写出
func TestMetadataMarshal(t *testing.T) {
	a := Metadata{}
	a.SetBool("b", true)
	a.SetFloat("a", 0.5)
	b := Metadata{}
	b.SetFloat("a", 0.5)
	b.SetBool("b", true)

	var ba, bb bytes.Buffer
	require.NoError(t, MetadataMarshal(&ba, &a))
	require.NoError(t, MetadataMarshal(&bb, &b))
	assert.Equal(t, ba.Bytes(), bb.Bytes())

	got, err := MetadataUnMarshal(&ba)
	require.NoError(t, err)
	assert.Equal(t, a, *got)
}

func TestMetadataUnMarshalCorrupt(t *testing.T) {
	var buf bytes.Buffer
	writeLittleUint32(&buf, 1)
	writeLittleString(&buf, "k")
	writeLittleUint32(&buf, 99)
	_, err := MetadataUnMarshal(&buf)
	assert.ErrorIs(t, err, ErrCorruptCache)

	buf.Reset()
	writeLittleUint32(&buf, maxMetaEntries+1)
	_, err = MetadataUnMarshal(&buf)
	assert.ErrorIs(t, err, ErrCorruptCache)
}
