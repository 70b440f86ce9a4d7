package geometry

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"meshview/internal/mathutil"
)

// faceRef is one vertex reference of a face, already converted to 0-based.
// -1 marks a missing or unparsable index.
type faceRef struct {
	p, t int
}

// ParseOBJ parses Wavefront OBJ text. Malformed lines and out-of-range
// triangles are skipped and reported as diagnostics; parsing never aborts.
func ParseOBJ(data []byte) (*RawGeometry, []Diagnostic) {
	g := &RawGeometry{}
	var diags []Diagnostic

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		tokens := strings.Fields(scanner.Text())
		if len(tokens) == 0 || strings.HasPrefix(tokens[0], "#") {
			continue
		}

		switch tokens[0] {
		case "v":
			v, err := parseFloats(tokens[1:], 3, 3)
			if err != nil {
				diags = append(diags, Diagnostic{Line: lineNum, Directive: "v", Reason: err.Error()})
				continue
			}
			g.Positions = append(g.Positions, mathutil.Vec3{v[0], v[1], v[2]})
		case "vt":
			v, err := parseFloats(tokens[1:], 1, 2)
			if err != nil {
				diags = append(diags, Diagnostic{Line: lineNum, Directive: "vt", Reason: err.Error()})
				continue
			}
			var rawV float64
			if len(v) > 1 {
				rawV = v[1]
			}
			// Flip to a top-left texture origin.
			g.UVs = append(g.UVs, [2]float64{v[0], 1 - rawV})
		case "f":
			diags = append(diags, g.addFace(lineNum, tokens[1:])...)
		}
	}
	if err := scanner.Err(); err != nil {
		diags = append(diags, Diagnostic{Line: lineNum, Directive: "scan", Reason: err.Error()})
	}

	return g, diags
}

func (g *RawGeometry) addFace(lineNum int, args []string) []Diagnostic {
	if len(args) < 3 {
		return []Diagnostic{{
			Line: lineNum, Directive: "f",
			Reason: fmt.Sprintf("face needs at least 3 vertices, got %d", len(args)),
		}}
	}

	refs := make([]faceRef, len(args))
	for i, arg := range args {
		refs[i] = parseFaceRef(arg, len(g.Positions), len(g.UVs))
	}

	var diags []Diagnostic
	for _, fan := range TriangulateFan(len(refs)) {
		a, b, c := refs[fan[0]], refs[fan[1]], refs[fan[2]]
		if a.p < 0 || b.p < 0 || c.p < 0 {
			diags = append(diags, Diagnostic{
				Line: lineNum, Directive: "f",
				Reason: fmt.Sprintf("triangle (%s %s %s) references a position outside [1,%d]",
					args[fan[0]], args[fan[1]], args[fan[2]], len(g.Positions)),
			})
			continue
		}
		tri := Triangle{P: [3]int{a.p, b.p, c.p}, T: [3]int{-1, -1, -1}}
		if a.t >= 0 && b.t >= 0 && c.t >= 0 {
			tri.T = [3]int{a.t, b.t, c.t}
		}
		g.Triangles = append(g.Triangles, tri)
	}
	return diags
}

// parseFaceRef reads "p", "p/t", "p//n" or "p/t/n". Negative indices count
// back from the end of the list parsed so far.
func parseFaceRef(arg string, numPos, numUV int) faceRef {
	parts := strings.Split(arg, "/")
	ref := faceRef{p: resolveIndex(parts[0], numPos), t: -1}
	if len(parts) > 1 && parts[1] != "" {
		ref.t = resolveIndex(parts[1], numUV)
	}
	return ref
}

func resolveIndex(tok string, count int) int {
	n, err := strconv.Atoi(tok)
	if err != nil || n == 0 {
		return -1
	}
	var idx int
	if n < 0 {
		idx = count + n
	} else {
		idx = n - 1
	}
	if idx < 0 || idx >= count {
		return -1
	}
	return idx
}

// parseFloats reads between min and max leading numbers; trailing tokens
// (vertex colours, w components) are ignored.
func parseFloats(tokens []string, min, max int) ([]float64, error) {
	if len(tokens) < min {
		return nil, fmt.Errorf("expected at least %d values, got %d", min, len(tokens))
	}
	if len(tokens) > max {
		tokens = tokens[:max]
	}
	out := make([]float64, 0, len(tokens))
	for _, tok := range tokens {
		f, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", tok)
		}
		out = append(out, f)
	}
	return out, nil
}
