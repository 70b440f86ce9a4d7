// Package mesh prepares parsed geometry for display: it normalizes placement
// and scale, builds the fallback placeholder, and pairs geometry with a material.
package mesh

import (
	"meshview/internal/geometry"
	"meshview/internal/material"
	"meshview/internal/mathutil"
)

// CanonicalSize is the largest bounding-box dimension after normalization.
const CanonicalSize = 3.0

// Bounds is an axis-aligned bounding box.
type Bounds struct {
	Min, Max mathutil.Vec3
}

// Center returns the midpoint of the box.
func (b Bounds) Center() mathutil.Vec3 {
	return b.Min.Add(b.Max).Scale(0.5)
}

// Size returns the extent along each axis.
func (b Bounds) Size() mathutil.Vec3 {
	return b.Max.Sub(b.Min)
}

// BoundingBox returns the bounds of positions. ok is false for an empty slice.
func BoundingBox(positions []mathutil.Vec3) (b Bounds, ok bool) {
	if len(positions) == 0 {
		return Bounds{}, false
	}
	b.Min, b.Max = positions[0], positions[0]
	for _, p := range positions[1:] {
		b.Min = b.Min.Min(p)
		b.Max = b.Max.Max(p)
	}
	return b, true
}

// Transform maps original coordinates to displayed ones:
// displayed = (original + Translation) * Scale.
type Transform struct {
	Translation mathutil.Vec3
	Scale       float64
}

// Identity leaves coordinates unchanged.
var Identity = Transform{Scale: 1}

// Apply maps one point.
func (t Transform) Apply(p mathutil.Vec3) mathutil.Vec3 {
	return p.Add(t.Translation).Scale(t.Scale)
}

// Normalize centers g on the origin and scales it uniformly so the largest
// bounding-box dimension equals size. Positions are rewritten in place;
// normals survive a uniform scale and are left alone.
func Normalize(g *geometry.RawGeometry, size float64) Transform {
	if g == nil {
		return Identity
	}
	b, ok := BoundingBox(g.Positions)
	if !ok {
		return Identity
	}

	t := Transform{Translation: b.Center().Scale(-1), Scale: 1}
	if extent := b.Size().MaxComponent(); extent > mathutil.Epsilon {
		t.Scale = size / extent
	}
	for i, p := range g.Positions {
		g.Positions[i] = t.Apply(p)
	}
	return t
}

// Renderable is a mesh ready for display.
type Renderable struct {
	ID          string
	Geometry    *geometry.RawGeometry
	Material    material.Material
	Transform   Transform
	Placeholder bool
}

// Bounds returns the displayed bounding box.
func (r *Renderable) Bounds() Bounds {
	if r == nil || r.Geometry == nil {
		return Bounds{}
	}
	b, _ := BoundingBox(r.Geometry.Positions)
	return b
}
