package raster

import (
	"image"
	"math"

	"meshview/internal/mathutil"
	"meshview/internal/mesh"
)

// Options control a still render.
type Options struct {
	Size        int           // output edge in pixels before supersampling
	Supersample int           // render scale factor, >= 1
	View        mathutil.Mat3 // camera rotation; zero value means PreviewView
	Margin      int           // border in output pixels
}

func (o Options) withDefaults() Options {
	if o.Size <= 0 {
		o.Size = 512
	}
	if o.Supersample < 1 {
		o.Supersample = 1
	}
	if o.View == (mathutil.Mat3{}) {
		o.View = mathutil.PreviewView
	}
	if o.Margin <= 0 {
		o.Margin = 16
	}
	return o
}

// Render rasterizes r at Size*Supersample pixels square. The caller
// downsamples the result.
func Render(r *mesh.Renderable, opts Options) *image.NRGBA {
	opts = opts.withDefaults()
	renderSize := opts.Size * opts.Supersample
	fb := NewFrameBuffer(renderSize, renderSize)
	if r == nil || r.Geometry == nil || len(r.Geometry.Triangles) == 0 {
		return fb.Image()
	}
	g := r.Geometry
	R := opts.View

	// Rotate into view space and take the screen-plane bounds
	view := make([]mathutil.Vec3, len(g.Positions))
	lo := mathutil.Vec3{math.Inf(1), math.Inf(1), math.Inf(1)}
	hi := mathutil.Vec3{math.Inf(-1), math.Inf(-1), math.Inf(-1)}
	for i, p := range g.Positions {
		v := R.MulVec3(p)
		view[i] = v
		lo = lo.Min(v)
		hi = hi.Max(v)
	}

	center := lo.Add(hi).Scale(0.5)
	span := math.Max(hi[0]-lo[0], hi[1]-lo[1])
	if span < 0.001 {
		span = 0.001
	}
	margin := opts.Margin * opts.Supersample
	scale := float64(renderSize-2*margin) / span
	half := float64(renderSize) / 2

	px := make([]float64, len(view))
	py := make([]float64, len(view))
	pz := make([]float64, len(view))
	for i, v := range view {
		px[i] = (v[0]-center[0])*scale + half
		py[i] = half - (v[1]-center[1])*scale
		pz[i] = v[2] - center[2]
	}

	mat := r.Material
	var tex *image.NRGBA
	if mat.Texture.Decoded() {
		tex = mat.Texture.Image
	}
	tint := mathutil.Vec3(mat.Color)
	light := StudioLighting().ForMaterial(mat.Shininess, mat.Specular.Average())

	for i, tri := range g.Triangles {
		RasterizeTriangle(fb, px, py, pz, tri.P, g.TriangleUVs(i), tex, tint, &light)
	}

	return fb.Image()
}
