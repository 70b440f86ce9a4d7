package mesh

import (
	"meshview/internal/geometry"
	"meshview/internal/material"
	"meshview/internal/mathutil"
)

// cubeFaces lists the six quads of a unit cube, counter-clockwise from outside.
var cubeFaces = [6][4]int{
	{0, 1, 2, 3}, // -z
	{4, 7, 6, 5}, // +z
	{0, 4, 5, 1}, // -x
	{3, 2, 6, 7}, // +x
	{0, 3, 7, 4}, // -y
	{1, 5, 6, 2}, // +y
}

// PlaceholderGeometry returns a cube centred on the origin with edge length edge.
func PlaceholderGeometry(edge float64) *geometry.RawGeometry {
	h := edge / 2
	g := &geometry.RawGeometry{
		Positions: []mathutil.Vec3{
			{-h, -h, -h}, {-h, h, -h}, {h, h, -h}, {h, -h, -h},
			{-h, -h, h}, {-h, h, h}, {h, h, h}, {h, -h, h},
		},
		UVs: [][2]float64{{0, 0}, {1, 0}, {1, 1}, {0, 1}},
	}
	for _, f := range cubeFaces {
		for _, tri := range geometry.TriangulateFan(4) {
			g.Triangles = append(g.Triangles, geometry.Triangle{
				P: [3]int{f[tri[0]], f[tri[1]], f[tri[2]]},
				T: [3]int{tri[0], tri[1], tri[2]},
			})
		}
	}
	g.ComputeNormals()
	return g
}

// Placeholder returns the fallback renderable shown when no usable geometry
// could be parsed. Its edge is half the canonical size.
func Placeholder(id string, size float64) *Renderable {
	return &Renderable{
		ID:          id,
		Geometry:    PlaceholderGeometry(size * 0.5),
		Material:    material.Flat(),
		Transform:   Identity,
		Placeholder: true,
	}
}
