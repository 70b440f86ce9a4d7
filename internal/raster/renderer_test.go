package raster

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meshview/internal/material"
	"meshview/internal/mesh"
	"meshview/internal/mtl"
	"meshview/internal/testutil"
	"meshview/internal/texture"
)

func coverage(img *image.NRGBA) int {
	n := 0
	for i := 3; i < len(img.Pix); i += 4 {
		if img.Pix[i] > 0 {
			n++
		}
	}
	return n
}

func TestRenderPlaceholder(t *testing.T) {
	r := mesh.Placeholder("cube", mesh.CanonicalSize)
	img := Render(r, Options{Size: 64, Supersample: 2})

	require.Equal(t, 128, img.Bounds().Dx())
	center := img.NRGBAAt(64, 64)
	assert.Equal(t, uint8(255), center.A)
	assert.Zero(t, img.NRGBAAt(0, 0).A, "corners stay transparent")

	// Gray material shades to a neutral colour.
	assert.InDelta(t, int(center.R), int(center.G), 2)
	assert.InDelta(t, int(center.G), int(center.B), 2)
}

func TestRenderEmpty(t *testing.T) {
	img := Render(nil, Options{Size: 16})
	assert.Equal(t, 16, img.Bounds().Dx())
	assert.Zero(t, coverage(img))
}

func TestRenderTextureTintsSurface(t *testing.T) {
	r := mesh.Placeholder("cube", mesh.CanonicalSize)
	red := testutil.Solid(4, 4, color.NRGBA{255, 0, 0, 255})
	r.Material = material.Compose(nil, &texture.Asset{Name: "red.png", Image: red}, material.Full, material.Auto)

	img := Render(r, Options{Size: 64})
	c := img.NRGBAAt(32, 32)
	assert.Equal(t, uint8(255), c.A)
	assert.Greater(t, c.R, c.G)
	assert.Greater(t, c.R, c.B)
}

func TestRenderTransparentTexture(t *testing.T) {
	r := mesh.Placeholder("cube", mesh.CanonicalSize)
	clear := testutil.Solid(2, 2, color.NRGBA{255, 255, 255, 0})
	r.Material = material.Compose(nil, &texture.Asset{Image: clear}, material.TextureOnly, material.Auto)

	img := Render(r, Options{Size: 32})
	assert.Zero(t, coverage(img))
}

func TestMaterialColorReachesPixels(t *testing.T) {
	r := mesh.Placeholder("cube", mesh.CanonicalSize)
	d := mtl.Default()
	d.Diffuse = mtl.Color{0, 0, 1}
	r.Material = material.Compose(d, nil, material.Full, material.Auto)

	c := Render(r, Options{Size: 64}).NRGBAAt(32, 32)
	assert.Greater(t, c.B, c.R)
	assert.Greater(t, c.B, c.G)
}

func TestSampleTextureWraps(t *testing.T) {
	tex := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	tex.SetNRGBA(0, 0, color.NRGBA{10, 20, 30, 255})
	tex.SetNRGBA(1, 0, color.NRGBA{200, 210, 220, 255})

	// Texel centres sample exactly.
	assert.Equal(t, color.NRGBA{10, 20, 30, 255}, SampleTexture(tex, 0.25, 0.5))
	assert.Equal(t, color.NRGBA{200, 210, 220, 255}, SampleTexture(tex, 0.75, 0.5))

	assert.Equal(t, SampleTexture(tex, 0.25, 0.5), SampleTexture(tex, 1.25, 0.5))
	assert.Equal(t, SampleTexture(tex, 0.25, 0.5), SampleTexture(tex, -0.75, 0.5))

	// Halfway between centres blends both texels.
	mid := SampleTexture(tex, 0.5, 0.5)
	assert.InDelta(t, 105, int(mid.R), 1)
}

func TestSampleTextureSinglePixel(t *testing.T) {
	tex := testutil.Solid(1, 1, color.NRGBA{40, 80, 120, 255})
	for _, uv := range [][2]float64{{0, 0}, {0.5, 0.5}, {0.99, 0.01}, {-3.2, 7.7}} {
		assert.Equal(t, color.NRGBA{40, 80, 120, 255}, SampleTexture(tex, uv[0], uv[1]))
	}
}

func TestForMaterial(t *testing.T) {
	l := StudioLighting().ForMaterial(64, 0.1)
	assert.Equal(t, 64.0, l.Shininess)
	assert.Equal(t, 0.1, l.Specular)

	def := StudioLighting()
	assert.Equal(t, def, def.ForMaterial(0, -1))
}

func TestShadeSpecularOnlyFacingHalfVector(t *testing.T) {
	l := StudioLighting()
	_, spec := l.Shade(l.half)
	assert.InDelta(t, l.Specular, spec, 1e-9)

	d, spec := l.Shade(l.half.Scale(-1))
	assert.Zero(t, spec)
	assert.Greater(t, d, l.Ambient, "diffuse is two-sided")
}
