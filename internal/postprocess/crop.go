package postprocess

import (
	"image"
	"math"
)

// DefaultFillRatio is the share of the canvas the subject's longer side fills.
const DefaultFillRatio = 0.85

// CropAndCenter crops to the bounding box of non-transparent pixels, then
// scales the subject to fillRatio of a size x size canvas and centers it.
func CropAndCenter(img *image.NRGBA, size int, fillRatio float64) *image.NRGBA {
	if fillRatio <= 0 || fillRatio > 1 {
		fillRatio = DefaultFillRatio
	}
	cropped, ok := cropAlpha(img)
	if !ok {
		return image.NewNRGBA(image.Rect(0, 0, size, size))
	}
	return scaleAndCenter(cropped, size, fillRatio)
}

// cropAlpha returns the sub-image spanning every non-transparent pixel.
// ok is false when the whole frame is transparent.
func cropAlpha(img *image.NRGBA) (*image.NRGBA, bool) {
	var box image.Rectangle
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		lo, hi := -1, -1
		row := img.Pix[img.PixOffset(b.Min.X, y):]
		for x := 0; x < b.Dx(); x++ {
			if row[x*4+3] == 0 {
				continue
			}
			if lo < 0 {
				lo = x
			}
			hi = x
		}
		if lo >= 0 {
			box = box.Union(image.Rect(b.Min.X+lo, y, b.Min.X+hi+1, y+1))
		}
	}
	if box.Empty() {
		return nil, false
	}
	return img.SubImage(box).(*image.NRGBA), true
}

func scaleAndCenter(img *image.NRGBA, canvasSize int, fillRatio float64) *image.NRGBA {
	canvas := image.NewNRGBA(image.Rect(0, 0, canvasSize, canvasSize))
	b := img.Bounds()
	srcW, srcH := b.Dx(), b.Dy()
	if srcW == 0 || srcH == 0 {
		return canvas
	}

	// Scale to fit within fillRatio of canvas
	maxDim := float64(canvasSize) * fillRatio
	scaleF := maxDim / math.Max(float64(srcW), float64(srcH))
	newW := max(int(float64(srcW)*scaleF+0.5), 1)
	newH := max(int(float64(srcH)*scaleF+0.5), 1)

	offX := (canvasSize - newW) / 2
	offY := (canvasSize - newH) / 2
	resample(canvas, image.Rect(offX, offY, offX+newW, offY+newH), img)
	return canvas
}
