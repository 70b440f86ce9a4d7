package geometry

import (
	"fmt"
	"runtime/debug"

	"meshview/internal/logging"
)

// Candidate is a geometry file pulled from an archive.
type Candidate struct {
	Path string
	Data []byte
}

// Result is what Parse hands back. Err is one of ErrNoGeometry,
// ErrFormatNotImplemented or ErrParseIncomplete; Geometry is nil whenever Err is set.
type Result struct {
	Geometry    *RawGeometry
	Format      Format
	Source      string
	Diagnostics []Diagnostic
	Err         error
}

// Parse picks the first candidate with a supported format and parses it.
// It never panics: a crashing sub-parser becomes ErrParseIncomplete.
func Parse(candidates []Candidate) (res Result) {
	if len(candidates) == 0 {
		return Result{Err: ErrNoGeometry}
	}

	var chosen *Candidate
	for i := range candidates {
		if Supported(FormatOf(candidates[i].Path)) {
			chosen = &candidates[i]
			break
		}
	}
	if chosen == nil {
		first := candidates[0]
		return Result{
			Format: FormatOf(first.Path),
			Source: first.Path,
			Err:    fmt.Errorf("%w: %s", ErrFormatNotImplemented, first.Path),
		}
	}

	format := FormatOf(chosen.Path)
	defer func() {
		if r := recover(); r != nil {
			logging.Error("geometry parser panicked", "path", chosen.Path, "panic", r, "stack", string(debug.Stack()))
			res = Result{
				Format:      format,
				Source:      chosen.Path,
				Diagnostics: append(res.Diagnostics, Diagnostic{Directive: "parser", Reason: fmt.Sprint(r)}),
				Err:         fmt.Errorf("%w: %s", ErrParseIncomplete, chosen.Path),
			}
		}
	}()

	var (
		g     *RawGeometry
		diags []Diagnostic
	)
	switch format.(type) {
	case OBJ:
		g, diags = ParseOBJ(chosen.Data)
	case BMD:
		g, diags = ParseBMD(chosen.Data)
	}

	res = Result{Format: format, Source: chosen.Path, Diagnostics: diags}
	for _, d := range diags {
		logging.Debug("geometry diagnostic", "path", chosen.Path, "detail", d.String())
	}

	if g == nil || len(g.Triangles) == 0 {
		res.Err = fmt.Errorf("%w: %s has no usable triangles", ErrParseIncomplete, chosen.Path)
		return res
	}
	if err := g.Validate(); err != nil {
		res.Err = fmt.Errorf("%w: %v", ErrParseIncomplete, err)
		return res
	}

	g.ComputeNormals()
	res.Geometry = g
	logging.Debug("parsed geometry",
		"path", chosen.Path,
		"format", format.Name(),
		"positions", len(g.Positions),
		"triangles", len(g.Triangles),
		"diagnostics", len(diags))
	return res
}
