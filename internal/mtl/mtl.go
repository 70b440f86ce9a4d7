// Package mtl parses Wavefront material libraries into a single material description.
package mtl

import (
	"bufio"
	"bytes"
	"fmt"
	"runtime/debug"
	"strconv"
	"strings"

	"meshview/internal/logging"
)

// Color is an RGB triple with channels in [0,1].
type Color [3]float64

// Average returns the mean of the three channels.
func (c Color) Average() float64 {
	return (c[0] + c[1] + c[2]) / 3
}

// Gray returns a color with all channels set to v.
func Gray(v float64) Color {
	return Color{v, v, v}
}

// Defaults applied when a directive is absent.
const DefaultShininess = 30.0

var (
	DefaultAmbient  = Gray(0.2)
	DefaultDiffuse  = Gray(0.5)
	DefaultSpecular = Gray(0.5)
)

// Description is one material block.
type Description struct {
	Name       string
	Ambient    Color
	Diffuse    Color
	Specular   Color
	Shininess  float64
	DiffuseMap string // texture reference as written, may be empty
}

// Default returns a description with every field at its default.
func Default() *Description {
	return &Description{
		Ambient:   DefaultAmbient,
		Diffuse:   DefaultDiffuse,
		Specular:  DefaultSpecular,
		Shininess: DefaultShininess,
	}
}

// HasTexture reports whether the block references a diffuse texture.
func (d *Description) HasTexture() bool {
	return d != nil && d.DiffuseMap != ""
}

// Diagnostic records a malformed directive that was skipped.
type Diagnostic struct {
	Line      int
	Directive string
	Reason    string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("line %d (%s): %s", d.Line, d.Directive, d.Reason)
}

// Parse reads a material library and returns the last block defined in it.
// It returns nil when the file contains no recognised directive. Parse never panics.
func Parse(data []byte) (desc *Description, diags []Diagnostic) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error("material parser panicked", "panic", r, "stack", string(debug.Stack()))
			diags = append(diags, Diagnostic{Directive: "parser", Reason: fmt.Sprint(r)})
		}
	}()

	var cur *Description
	block := func() *Description {
		// Directives before the first newmtl fill an implicit block.
		if cur == nil {
			cur = Default()
		}
		return cur
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		keyword, rest := splitDirective(line)

		switch strings.ToLower(keyword) {
		case "newmtl":
			cur = Default()
			cur.Name = rest
			desc = cur
		case "ka", "kd", "ks":
			c, err := parseColor(rest)
			if err != nil {
				diags = append(diags, Diagnostic{Line: lineNum, Directive: keyword, Reason: err.Error()})
				continue
			}
			b := block()
			switch strings.ToLower(keyword) {
			case "ka":
				b.Ambient = c
			case "kd":
				b.Diffuse = c
			case "ks":
				b.Specular = c
			}
			desc = b
		case "ns":
			f, err := strconv.ParseFloat(firstField(rest), 64)
			if err != nil {
				diags = append(diags, Diagnostic{Line: lineNum, Directive: keyword, Reason: fmt.Sprintf("invalid shininess %q", rest)})
				continue
			}
			b := block()
			b.Shininess = f
			desc = b
		case "map_kd":
			if rest == "" {
				diags = append(diags, Diagnostic{Line: lineNum, Directive: keyword, Reason: "missing texture name"})
				continue
			}
			b := block()
			b.DiffuseMap = rest
			desc = b
		}
	}
	if err := scanner.Err(); err != nil {
		diags = append(diags, Diagnostic{Line: lineNum, Directive: "scan", Reason: err.Error()})
	}

	for _, d := range diags {
		logging.Debug("material diagnostic", "detail", d.String())
	}
	return desc, diags
}

// splitDirective returns the first word and the trimmed remainder of the line.
func splitDirective(line string) (string, string) {
	idx := strings.IndexAny(line, " \t")
	if idx < 0 {
		return line, ""
	}
	return line[:idx], strings.TrimSpace(line[idx+1:])
}

func firstField(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// parseColor accepts "r g b" or a single grey value "r".
func parseColor(s string) (Color, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return Color{}, fmt.Errorf("missing color values")
	}
	if len(fields) > 3 {
		fields = fields[:3]
	}
	var vals []float64
	for _, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return Color{}, fmt.Errorf("invalid color value %q", f)
		}
		vals = append(vals, v)
	}
	switch len(vals) {
	case 1:
		return Gray(vals[0]), nil
	case 3:
		return Color{vals[0], vals[1], vals[2]}, nil
	default:
		return Color{}, fmt.Errorf("expected 1 or 3 color values, got %d", len(vals))
	}
}
