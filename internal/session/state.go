package session

import (
	"fmt"

	"meshview/internal/material"
	"meshview/internal/mesh"
)

// State is the session lifecycle position.
type State int

const (
	Idle State = iota
	Loading
	Loaded
	Error
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	case Error:
		return "error"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Causes reported in events. Only CauseFetch and CauseDecompress ever reach
// the Error state; the others name why a placeholder was shown.
const (
	CauseFetch           = "FetchFailure"
	CauseDecompress      = "DecompressFailure"
	CauseNoGeometry      = "NoGeometryFound"
	CauseFormat          = "FormatNotImplemented"
	CauseParseIncomplete = "ParseIncomplete"
	CauseClosed          = "SessionClosed"
)

// Capabilities tells a UI which material controls are relevant.
type Capabilities struct {
	HasMaterial  bool `json:"has_material"`
	HasTexture   bool `json:"has_texture"`
	TextureCount int  `json:"texture_count"`
}

// Event is one state change published to subscribers.
type Event struct {
	Kind      State
	Token     uint64 // request token that produced the event
	RequestID string
	Label     string

	Mesh         *mesh.Renderable // set when Kind is Loaded
	Capabilities Capabilities
	Fallback     string // placeholder reason, logged rather than surfaced

	Cause     string // set when Kind is Error
	Err       error
	Retryable bool

	Mode  material.Mode
	Blend material.BlendMode
}
