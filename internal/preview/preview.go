// Package preview turns a renderable mesh into a finished still image.
package preview

import (
	"bytes"
	"fmt"
	"image"
	"io"

	"github.com/HugoSmits86/nativewebp"

	"meshview/internal/mathutil"
	"meshview/internal/mesh"
	"meshview/internal/postprocess"
	"meshview/internal/raster"
)

// Options control preview generation.
type Options struct {
	Size        int
	Supersample int
	FillRatio   float64
	View        mathutil.Mat3 // zero means mathutil.PreviewView
}

// Render rasterizes r, downsamples the supersampled frame, and recenters the
// subject on a transparent square canvas.
func Render(r *mesh.Renderable, opts Options) *image.NRGBA {
	if opts.Size <= 0 {
		opts.Size = 512
	}
	if opts.Supersample < 1 {
		opts.Supersample = 1
	}
	img := raster.Render(r, raster.Options{Size: opts.Size, Supersample: opts.Supersample, View: opts.View})
	if opts.Supersample > 1 {
		img = postprocess.Downsample(img, opts.Size)
	}
	return postprocess.CropAndCenter(img, opts.Size, opts.FillRatio)
}

// EncodeWebP writes img as lossless WebP.
func EncodeWebP(w io.Writer, img image.Image) error {
	if err := nativewebp.Encode(w, img, nil); err != nil {
		return fmt.Errorf("preview: encode webp: %w", err)
	}
	return nil
}

// WebP renders r and returns the encoded bytes.
func WebP(r *mesh.Renderable, opts Options) ([]byte, error) {
	var buf bytes.Buffer
	if err := EncodeWebP(&buf, Render(r, opts)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
