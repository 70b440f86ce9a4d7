package geometry

import (
	"path"
	"strings"
)

// Format is the closed set of geometry encodings the parser knows about.
type Format interface {
	Name() string
	format()
}

// OBJ is the Wavefront text polygon format.
type OBJ struct{}

// BMD is the unencrypted binary model format.
type BMD struct{}

// Unsupported is a recognised geometry extension with no parser.
type Unsupported struct {
	Ext string
}

func (OBJ) Name() string { return "obj" }
func (BMD) Name() string { return "bmd" }
func (u Unsupported) Name() string {
	return strings.TrimPrefix(u.Ext, ".")
}

func (OBJ) format()         {}
func (BMD) format()         {}
func (Unsupported) format() {}

// FormatOf picks a Format from a path's extension, ignoring case.
func FormatOf(p string) Format {
	ext := strings.ToLower(path.Ext(strings.ReplaceAll(p, "\\", "/")))
	switch ext {
	case ".obj":
		return OBJ{}
	case ".bmd":
		return BMD{}
	default:
		return Unsupported{Ext: ext}
	}
}

// Supported reports whether f has a parser.
func Supported(f Format) bool {
	switch f.(type) {
	case OBJ, BMD:
		return true
	default:
		return false
	}
}
