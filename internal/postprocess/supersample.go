package postprocess

import (
	"image"

	"golang.org/x/image/draw"
)

// Downsample shrinks a supersampled frame to targetSize square. Frames
// already at or below targetSize are returned unchanged.
func Downsample(img *image.NRGBA, targetSize int) *image.NRGBA {
	b := img.Bounds()
	if b.Dx() <= targetSize && b.Dy() <= targetSize {
		return img
	}
	dst := image.NewNRGBA(image.Rect(0, 0, targetSize, targetSize))
	resample(dst, dst.Bounds(), img)
	return dst
}

// resample scales src into r of dst with CatmullRom. Filtering runs on
// premultiplied colour so edge pixels next to transparency keep their hue.
func resample(dst *image.NRGBA, r image.Rectangle, src *image.NRGBA) {
	scaled := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.CatmullRom.Scale(scaled, scaled.Bounds(), premultiply(src), src.Bounds(), draw.Src, nil)
	unpremultiplyInto(dst, r.Min, scaled)
}

func premultiply(img *image.NRGBA) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			si := img.PixOffset(x, y)
			di := out.PixOffset(x, y)
			a := float64(img.Pix[si+3]) / 255.0
			out.Pix[di] = uint8(float64(img.Pix[si])*a + 0.5)
			out.Pix[di+1] = uint8(float64(img.Pix[si+1])*a + 0.5)
			out.Pix[di+2] = uint8(float64(img.Pix[si+2])*a + 0.5)
			out.Pix[di+3] = img.Pix[si+3]
		}
	}
	return out
}

// unpremultiplyInto writes src into dst with its origin at at.
func unpremultiplyInto(dst *image.NRGBA, at image.Point, src *image.RGBA) {
	b := src.Bounds()
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			p := image.Pt(at.X+x, at.Y+y)
			if !p.In(dst.Rect) {
				continue
			}
			si := src.PixOffset(b.Min.X+x, b.Min.Y+y)
			di := dst.PixOffset(p.X, p.Y)
			a := float64(src.Pix[si+3])
			if a > 1 {
				inv := 255.0 / a
				dst.Pix[di] = clamp8(float64(src.Pix[si]) * inv)
				dst.Pix[di+1] = clamp8(float64(src.Pix[si+1]) * inv)
				dst.Pix[di+2] = clamp8(float64(src.Pix[si+2]) * inv)
			}
			dst.Pix[di+3] = src.Pix[si+3]
		}
	}
}

func clamp8(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}
