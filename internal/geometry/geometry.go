// Package geometry turns geometry files into indexed triangle meshes.
package geometry

import (
	"errors"
	"fmt"

	"meshview/internal/mathutil"
)

var (
	// ErrNoGeometry means the archive held no geometry candidates at all.
	ErrNoGeometry = errors.New("geometry: no geometry found")
	// ErrFormatNotImplemented means candidates exist but none has a parser.
	ErrFormatNotImplemented = errors.New("geometry: format not implemented")
	// ErrParseIncomplete means a parser gave up before producing usable triangles.
	ErrParseIncomplete = errors.New("geometry: parse incomplete")
)

// DefaultUVs is substituted for a triangle whose UV references are missing or invalid.
var DefaultUVs = [3][2]float64{{0, 0}, {1, 0}, {1, 1}}

// Triangle references three positions and, optionally, three UVs.
// T[0] < 0 means the triangle uses DefaultUVs.
type Triangle struct {
	P [3]int
	T [3]int
}

// HasUV reports whether the triangle carries its own UV references.
func (t Triangle) HasUV() bool {
	return t.T[0] >= 0
}

// RawGeometry is a parsed mesh. Every index in Triangles is within bounds.
type RawGeometry struct {
	Positions []mathutil.Vec3
	UVs       [][2]float64
	Triangles []Triangle
	Normals   []mathutil.Vec3 // per position, filled by ComputeNormals

	// TextureRefs lists texture names embedded in the geometry file itself (BMD only).
	TextureRefs []string
}

// TriangleUVs returns the three UV coordinates used by triangle i.
func (g *RawGeometry) TriangleUVs(i int) [3][2]float64 {
	t := g.Triangles[i]
	if !t.HasUV() {
		return DefaultUVs
	}
	return [3][2]float64{g.UVs[t.T[0]], g.UVs[t.T[1]], g.UVs[t.T[2]]}
}

// ComputeNormals accumulates unnormalized face normals onto each shared
// position, then normalizes. Area weighting falls out of the cross product.
func (g *RawGeometry) ComputeNormals() {
	normals := make([]mathutil.Vec3, len(g.Positions))
	for _, t := range g.Triangles {
		p0 := g.Positions[t.P[0]]
		e1 := g.Positions[t.P[1]].Sub(p0)
		e2 := g.Positions[t.P[2]].Sub(p0)
		fn := e1.Cross(e2)
		for _, idx := range t.P {
			normals[idx] = normals[idx].Add(fn)
		}
	}
	for i := range normals {
		normals[i] = normals[i].Normalize()
	}
	g.Normals = normals
}

// Validate checks the index-bounds invariant.
func (g *RawGeometry) Validate() error {
	np, nt := len(g.Positions), len(g.UVs)
	for i, t := range g.Triangles {
		for k := 0; k < 3; k++ {
			if t.P[k] < 0 || t.P[k] >= np {
				return fmt.Errorf("geometry: triangle %d position %d out of range [0,%d)", i, t.P[k], np)
			}
			if t.HasUV() && (t.T[k] < 0 || t.T[k] >= nt) {
				return fmt.Errorf("geometry: triangle %d uv %d out of range [0,%d)", i, t.T[k], nt)
			}
		}
	}
	return nil
}

// Diagnostic records a malformed line that was skipped.
type Diagnostic struct {
	Line      int
	Directive string
	Reason    string
}

func (d Diagnostic) String() string {
	if d.Line > 0 {
		return fmt.Sprintf("line %d (%s): %s", d.Line, d.Directive, d.Reason)
	}
	return fmt.Sprintf("%s: %s", d.Directive, d.Reason)
}

// TriangulateFan splits an n-gon into n-2 triangles sharing corner 0.
func TriangulateFan(n int) [][3]int {
	if n < 3 {
		return nil
	}
	out := make([][3]int, 0, n-2)
	for k := 1; k < n-1; k++ {
		out = append(out, [3]int{0, k, k + 1})
	}
	return out
}
