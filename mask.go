package pcache

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"os"

	"github.com/chewxy/math32"
	"github.com/flywave/go3d/vec2"
	"github.com/flywave/go3d/vec4"
	"github.com/h2non/filetype"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// MaskEvaluator samples a reference image at a UV coordinate.
type MaskEvaluator interface {
	Sample(uv vec2.T) vec4.T
}

// Mask is an in-memory RGBA image sampled with bilinear filtering. UV (0,0)
// is the bottom-left corner unless FlipY is set.
type Mask struct {
	Width    int
	Height   int
	Pixels   []vec4.T
	Repeated bool
	FlipY    bool
}

// NewMask converts img to straight-alpha float texels.
func NewMask(img image.Image, repeated bool) *Mask {
	bd := img.Bounds()
	m := &Mask{
		Width:    bd.Dx(),
		Height:   bd.Dy(),
		Pixels:   make([]vec4.T, bd.Dx()*bd.Dy()),
		Repeated: repeated,
	}
	for y := 0; y < bd.Dy(); y++ {
		for x := 0; x < bd.Dx(); x++ {
			c := color.NRGBAModel.Convert(img.At(bd.Min.X+x, bd.Min.Y+y)).(color.NRGBA)
			m.Pixels[y*m.Width+x] = vec4.T{
				float32(c.R) / 255,
				float32(c.G) / 255,
				float32(c.B) / 255,
				float32(c.A) / 255,
			}
		}
	}
	return m
}

// LoadMask reads and decodes a mask image from disk.
func LoadMask(path string, repeated bool) (*Mask, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return DecodeMask(buf, repeated)
}

// DecodeMask sniffs the image format from content and decodes it.
func DecodeMask(buf []byte, repeated bool) (*Mask, error) {
	kind, err := filetype.Match(buf)
	if err != nil {
		return nil, fmt.Errorf("detect mask format failed: %w", err)
	}
	rd := bytes.NewReader(buf)
	var img image.Image
	switch kind.Extension {
	case "jpg", "jpeg":
		img, err = jpeg.Decode(rd)
	case "png":
		img, err = png.Decode(rd)
	case "gif":
		img, err = gif.Decode(rd)
	case "bmp":
		img, err = bmp.Decode(rd)
	case "tif", "tiff":
		img, err = tiff.Decode(rd)
	default:
		return nil, fmt.Errorf("%w: unknown mask format %q", ErrConfiguration, kind.Extension)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s mask failed: %v", ErrConfiguration, kind.Extension, err)
	}
	return NewMask(img, repeated), nil
}

func (m *Mask) texel(x, y int) vec4.T {
	if m.Repeated {
		x = ((x % m.Width) + m.Width) % m.Width
		y = ((y % m.Height) + m.Height) % m.Height
	} else {
		x = clampInt(x, 0, m.Width-1)
		y = clampInt(y, 0, m.Height-1)
	}
	row := m.Height - 1 - y
	if m.FlipY {
		row = y
	}
	return m.Pixels[row*m.Width+x]
}

// Sample returns the bilinearly filtered color at uv. Texel centers sit at
// half-integer positions.
func (m *Mask) Sample(uv vec2.T) vec4.T {
	if m.Width == 0 || m.Height == 0 {
		return vec4.T{}
	}
	fx := uv[0]*float32(m.Width) - 0.5
	fy := uv[1]*float32(m.Height) - 0.5
	x0 := math32.Floor(fx)
	y0 := math32.Floor(fy)
	tx := fx - x0
	ty := fy - y0
	ix, iy := int(x0), int(y0)

	c00 := m.texel(ix, iy)
	c10 := m.texel(ix+1, iy)
	c01 := m.texel(ix, iy+1)
	c11 := m.texel(ix+1, iy+1)

	var out vec4.T
	for i := 0; i < 4; i++ {
		bottom := c00[i]*(1-tx) + c10[i]*tx
		top := c01[i]*(1-tx) + c11[i]*tx
		out[i] = bottom*(1-ty) + top*ty
	}
	return out
}

// MaskAccepts rejects opaque black and fully transparent colors.
func MaskAccepts(c vec4.T) bool {
	if c[3] <= 0 {
		return false
	}
	const eps = 1e-5
	dr, dg, db, da := c[0], c[1], c[2], c[3]-1
	return dr*dr+dg*dg+db*db+da*da >= eps*eps
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
