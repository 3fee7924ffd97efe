package pcache

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"

	dvec3 "github.com/flywave/go3d/float64/vec3"
)

// PositionMap encodes the position column as a one-row texture, one texel
// per point. Components are normalised into the returned bounds; an axis with
// zero extent encodes as 0.
func (f *File) PositionMap() (*image.NRGBA64, dvec3.Box, error) {
	positions, err := f.Vector3Data(PROPERTY_POSITION)
	if err != nil {
		return nil, dvec3.Box{}, err
	}
	if len(positions) == 0 {
		return nil, dvec3.Box{}, fmt.Errorf("%w: empty position column", ErrMissingPropertyData)
	}
	bx := boundsOf(positions)
	box := dvec3.Box{
		Min: dvec3.T{bx[0], bx[1], bx[2]},
		Max: dvec3.T{bx[3], bx[4], bx[5]},
	}

	img := image.NewNRGBA64(image.Rect(0, 0, len(positions), 1))
	for i, p := range positions {
		var c [3]uint16
		for k := 0; k < 3; k++ {
			extent := box.Max[k] - box.Min[k]
			if extent <= 0 {
				continue
			}
			t := (float64(p[k]) - box.Min[k]) / extent
			c[k] = uint16(t*65535 + 0.5)
		}
		img.SetNRGBA64(i, 0, color.NRGBA64{R: c[0], G: c[1], B: c[2], A: 0xffff})
	}
	return img, box, nil
}

// WritePositionMap encodes the position map as PNG.
func (f *File) WritePositionMap(wt io.Writer) (dvec3.Box, error) {
	img, box, err := f.PositionMap()
	if err != nil {
		return box, err
	}
	return box, png.Encode(wt, img)
}
