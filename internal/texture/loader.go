package texture

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"path"
	"strings"

	"github.com/ftrvxmtrx/tga"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	"golang.org/x/image/webp"
)

// MaxPixels bounds the decoded size of one texture (4096×4096).
const MaxPixels = 1 << 24

// ErrTooLarge is returned for images whose header declares more than MaxPixels.
var ErrTooLarge = errors.New("texture: image too large")

type format struct {
	decode func(io.Reader) (image.Image, error)
	config func(io.Reader) (image.Config, error)
}

// formats picks a decoder by extension; the tga package registers an
// empty magic string, so format sniffing alone cannot be trusted.
var formats = map[string]format{
	".png":  {png.Decode, png.DecodeConfig},
	".jpg":  {jpeg.Decode, jpeg.DecodeConfig},
	".jpeg": {jpeg.Decode, jpeg.DecodeConfig},
	".gif":  {gif.Decode, gif.DecodeConfig},
	".bmp":  {bmp.Decode, bmp.DecodeConfig},
	".tga":  {tga.Decode, tga.DecodeConfig},
	".tif":  {tiff.Decode, tiff.DecodeConfig},
	".tiff": {tiff.Decode, tiff.DecodeConfig},
	".webp": {webp.Decode, webp.DecodeConfig},
}

// fallbackOrder is tried for mislabelled files. Every entry checks a magic
// number; TGA has none and is only decoded for .tga names.
var fallbackOrder = []string{".png", ".jpg", ".gif", ".bmp", ".webp", ".tiff"}

// Decode turns an image blob into NRGBA. The extension chooses the decoder;
// mislabelled files fall back to the other magic-checked decoders in turn.
func Decode(name string, data []byte) (*image.NRGBA, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("texture: decode %s: empty data", name)
	}
	ext := strings.ToLower(path.Ext(name))
	f, ok := formats[ext]
	var lastErr error
	if ok {
		img, err := f.run(data)
		if err == nil || errors.Is(err, ErrTooLarge) {
			return img, wrapDecode(name, err)
		}
		lastErr = err
	}
	for _, e := range fallbackOrder {
		if ok && sameDecoder(e, ext) {
			continue
		}
		img, err := formats[e].run(data)
		if err == nil || errors.Is(err, ErrTooLarge) {
			return img, wrapDecode(name, err)
		}
		lastErr = err
	}
	return nil, wrapDecode(name, lastErr)
}

// run checks the declared size before decoding. Decoder panics come back
// as errors.
func (f format) run(data []byte) (img *image.NRGBA, err error) {
	defer func() {
		if r := recover(); r != nil {
			img, err = nil, fmt.Errorf("decoder panic: %v", r)
		}
	}()
	cfg, err := f.config(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("invalid size %dx%d", cfg.Width, cfg.Height)
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, fmt.Errorf("%w: %dx%d", ErrTooLarge, cfg.Width, cfg.Height)
	}
	src, err := f.decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return toNRGBA(src), nil
}

func wrapDecode(name string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("texture: decode %s: %w", name, err)
}

func sameDecoder(a, b string) bool {
	canon := func(e string) string {
		switch e {
		case ".jpeg":
			return ".jpg"
		case ".tif":
			return ".tiff"
		}
		return e
	}
	return canon(a) == canon(b)
}

// toNRGBA converts any image to NRGBA format.
func toNRGBA(src image.Image) *image.NRGBA {
	if n, ok := src.(*image.NRGBA); ok {
		return n
	}
	b := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst
}
