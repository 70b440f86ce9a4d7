package raster

import (
	"image"
	"math"
)

// FrameBuffer is a square render target. Colour lives directly in an NRGBA
// image so the finished frame needs no copy.
type FrameBuffer struct {
	Width  int
	Height int
	img    *image.NRGBA
	zbuf   []float64 // larger z is closer; starts at -inf
}

// NewFrameBuffer allocates a transparent w×h target.
func NewFrameBuffer(w, h int) *FrameBuffer {
	zbuf := make([]float64, w*h)
	for i := range zbuf {
		zbuf[i] = math.Inf(-1)
	}
	return &FrameBuffer{
		Width:  w,
		Height: h,
		img:    image.NewNRGBA(image.Rect(0, 0, w, h)),
		zbuf:   zbuf,
	}
}

// closer reports whether depth z at pixel index i beats what is stored.
func (fb *FrameBuffer) closer(i int, z float64) bool {
	return z > fb.zbuf[i]
}

// put stores a shaded pixel and its depth.
func (fb *FrameBuffer) put(i int, z float64, r, g, b, a uint8) {
	fb.zbuf[i] = z
	p := fb.img.Pix[i*4 : i*4+4 : i*4+4]
	p[0], p[1], p[2], p[3] = r, g, b, a
}

// Image returns the colour plane. It aliases the buffer.
func (fb *FrameBuffer) Image() *image.NRGBA {
	return fb.img
}
