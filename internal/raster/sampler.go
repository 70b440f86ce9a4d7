package raster

import (
	"image"
	"image/color"
	"math"
)

// SampleTexture filters tex bilinearly at (u, v), repeating outside [0,1).
// Texel centres sit at half-pixel offsets so a 1×1 texture samples flat.
func SampleTexture(tex *image.NRGBA, u, v float64) color.NRGBA {
	w, h := tex.Rect.Dx(), tex.Rect.Dy()
	if w == 0 || h == 0 {
		return color.NRGBA{}
	}

	fx := (u-math.Floor(u))*float64(w) - 0.5
	fy := (v-math.Floor(v))*float64(h) - 0.5
	x0f, y0f := math.Floor(fx), math.Floor(fy)
	dx, dy := fx-x0f, fy-y0f

	x0 := wrap(int(x0f), w)
	y0 := wrap(int(y0f), h)
	x1 := wrap(x0+1, w)
	y1 := wrap(y0+1, h)

	pix, stride := tex.Pix, tex.Stride
	i00 := y0*stride + x0*4
	i10 := y0*stride + x1*4
	i01 := y1*stride + x0*4
	i11 := y1*stride + x1*4

	w00 := (1 - dx) * (1 - dy)
	w10 := dx * (1 - dy)
	w01 := (1 - dx) * dy
	w11 := dx * dy

	var out [4]uint8
	for c := 0; c < 4; c++ {
		f := float64(pix[i00+c])*w00 + float64(pix[i10+c])*w10 +
			float64(pix[i01+c])*w01 + float64(pix[i11+c])*w11
		out[c] = uint8(f + 0.5)
	}
	return color.NRGBA{R: out[0], G: out[1], B: out[2], A: out[3]}
}

func wrap(i, n int) int {
	i %= n
	if i < 0 {
		i += n
	}
	return i
}
