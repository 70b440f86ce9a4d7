package geometry

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"meshview/internal/mathutil"
)

const (
	bmdMaxMeshes   = 100
	bmdTriangleLen = 64
)

// ParseBMD reads an unencrypted BMD model and merges all sub-meshes into one
// geometry. Encrypted versions (12, 15) are reported as a diagnostic with a
// nil geometry.
func ParseBMD(raw []byte) (*RawGeometry, []Diagnostic) {
	if len(raw) < 4 || string(raw[:3]) != "BMD" {
		return nil, []Diagnostic{{Directive: "header", Reason: "missing BMD signature"}}
	}

	version := raw[3]
	switch version {
	case 12, 15:
		return nil, []Diagnostic{{Directive: "header", Reason: fmt.Sprintf("encrypted BMD version %d", version)}}
	}

	r := &bmdReader{data: raw[4:]}
	return r.parse()
}

type bmdReader struct {
	data []byte
	off  int
}

func (r *bmdReader) readStr(n int) string {
	if r.off+n > len(r.data) {
		r.off = len(r.data)
		return ""
	}
	s := r.data[r.off : r.off+n]
	r.off += n
	// Find null terminator
	for i, b := range s {
		if b == 0 {
			return string(s[:i])
		}
	}
	return string(s)
}

func (r *bmdReader) readI16() int16 {
	if r.off+2 > len(r.data) {
		r.off = len(r.data)
		return 0
	}
	v := int16(binary.LittleEndian.Uint16(r.data[r.off:]))
	r.off += 2
	return v
}

func (r *bmdReader) readU16() uint16 {
	if r.off+2 > len(r.data) {
		r.off = len(r.data)
		return 0
	}
	v := binary.LittleEndian.Uint16(r.data[r.off:])
	r.off += 2
	return v
}

func (r *bmdReader) readF32() float32 {
	if r.off+4 > len(r.data) {
		r.off = len(r.data)
		return 0
	}
	v := math.Float32frombits(binary.LittleEndian.Uint32(r.data[r.off:]))
	r.off += 4
	return v
}

func (r *bmdReader) eof() bool {
	return r.off >= len(r.data)
}

func (r *bmdReader) parse() (*RawGeometry, []Diagnostic) {
	_ = r.readStr(32) // model name
	meshCount := int(r.readU16())
	_ = r.readU16() // bones
	_ = r.readU16() // actions

	if meshCount > bmdMaxMeshes {
		return nil, []Diagnostic{{Directive: "header", Reason: fmt.Sprintf("invalid mesh count %d", meshCount)}}
	}

	g := &RawGeometry{}
	var diags []Diagnostic

	for i := 0; i < meshCount; i++ {
		if r.eof() {
			diags = append(diags, Diagnostic{Directive: "mesh", Reason: fmt.Sprintf("truncated before mesh %d", i)})
			break
		}
		nv := int(r.readI16())
		nn := int(r.readI16())
		ntc := int(r.readI16())
		nt := int(r.readI16())
		_ = r.readI16() // texture index
		if nv < 0 || nn < 0 || ntc < 0 || nt < 0 {
			diags = append(diags, Diagnostic{Directive: "mesh", Reason: fmt.Sprintf("negative counts in mesh %d", i)})
			break
		}

		posBase := len(g.Positions)
		uvBase := len(g.UVs)

		// Vertices: 16 bytes each (node:i16, pad:i16, x:f32, y:f32, z:f32)
		for j := 0; j < nv; j++ {
			_ = r.readI16() // node
			_ = r.readI16() // padding
			x := float64(r.readF32())
			y := float64(r.readF32())
			z := float64(r.readF32())
			g.Positions = append(g.Positions, mathutil.Vec3{x, y, z})
		}

		// Normals: 20 bytes each; recomputed later from faces.
		r.off += nn * 20
		if r.off > len(r.data) {
			r.off = len(r.data)
		}

		// TexCoords: 8 bytes each (u:f32, v:f32), already top-left origin.
		for j := 0; j < ntc; j++ {
			u := float64(r.readF32())
			v := float64(r.readF32())
			g.UVs = append(g.UVs, [2]float64{u, v})
		}

		// Triangles: 64 bytes each. Polygon == 4 means quad (0-1-2 and 0-2-3).
		for j := 0; j < nt; j++ {
			base := r.off
			if base+bmdTriangleLen > len(r.data) {
				diags = append(diags, Diagnostic{Directive: "triangle", Reason: fmt.Sprintf("mesh %d truncated at triangle %d", i, j)})
				r.off = len(r.data)
				break
			}
			poly := int(r.data[base])
			var vi, ti [4]int
			for k := 0; k < 4; k++ {
				vi[k] = int(int16(binary.LittleEndian.Uint16(r.data[base+2+k*2:])))
				ti[k] = int(int16(binary.LittleEndian.Uint16(r.data[base+18+k*2:])))
			}
			r.off += bmdTriangleLen

			corners := 3
			if poly == 4 {
				corners = 4
			}
			for _, fan := range TriangulateFan(corners) {
				tri, ok := bmdTriangle(vi, ti, fan, nv, ntc, posBase, uvBase)
				if !ok {
					diags = append(diags, Diagnostic{Directive: "triangle", Reason: fmt.Sprintf("mesh %d triangle %d out of range", i, j)})
					continue
				}
				g.Triangles = append(g.Triangles, tri)
			}
		}

		texPath := strings.ReplaceAll(r.readStr(32), "\\", "/")
		if texPath != "" {
			g.TextureRefs = append(g.TextureRefs, texPath)
		}
	}

	return g, diags
}

func bmdTriangle(vi, ti [4]int, fan [3]int, nv, ntc, posBase, uvBase int) (Triangle, bool) {
	tri := Triangle{T: [3]int{-1, -1, -1}}
	hasUV := true
	for k, c := range fan {
		if vi[c] < 0 || vi[c] >= nv {
			return Triangle{}, false
		}
		tri.P[k] = posBase + vi[c]
		if ti[c] < 0 || ti[c] >= ntc {
			hasUV = false
		}
	}
	if hasUV {
		for k, c := range fan {
			tri.T[k] = uvBase + ti[c]
		}
	}
	return tri, true
}
