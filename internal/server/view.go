package server

import (
	"meshview/internal/session"
)

// StateView is the JSON form of a session event.
type StateView struct {
	State        string                `json:"state"`
	Token        uint64                `json:"token"`
	RequestID    string                `json:"request_id,omitempty"`
	Label        string                `json:"label,omitempty"`
	MaterialMode string                `json:"material_mode"`
	BlendMode    string                `json:"blend_mode"`
	Capabilities *session.Capabilities `json:"capabilities,omitempty"`
	Mesh         *MeshView             `json:"mesh,omitempty"`
	Cause        string                `json:"cause,omitempty"`
	Error        string                `json:"error,omitempty"`
	Retryable    bool                  `json:"retryable,omitempty"`
}

// MeshView summarizes a loaded mesh without its vertex data.
type MeshView struct {
	ID          string     `json:"id"`
	Vertices    int        `json:"vertices"`
	Triangles   int        `json:"triangles"`
	Placeholder bool       `json:"placeholder"`
	Material    string     `json:"material"`
	Color       [3]float64 `json:"color"`
	Shininess   float64    `json:"shininess"`
	Texture     string     `json:"texture,omitempty"`
	Scale       float64    `json:"scale"`
	Translation [3]float64 `json:"translation"`
}

func viewOf(ev session.Event) StateView {
	v := StateView{
		State:        ev.Kind.String(),
		Token:        ev.Token,
		RequestID:    ev.RequestID,
		Label:        ev.Label,
		MaterialMode: ev.Mode.String(),
		BlendMode:    ev.Blend.String(),
		Cause:        ev.Cause,
		Retryable:    ev.Retryable,
	}
	if ev.Err != nil {
		v.Error = ev.Err.Error()
	}
	if ev.Kind == session.Loaded && ev.Mesh != nil {
		caps := ev.Capabilities
		v.Capabilities = &caps
		m := ev.Mesh
		mv := &MeshView{
			ID:          m.ID,
			Placeholder: m.Placeholder,
			Material:    m.Material.Kind.String(),
			Color:       m.Material.Color,
			Shininess:   m.Material.Shininess,
			Scale:       m.Transform.Scale,
			Translation: m.Transform.Translation,
		}
		if m.Geometry != nil {
			mv.Vertices = len(m.Geometry.Positions)
			mv.Triangles = len(m.Geometry.Triangles)
		}
		if m.Material.Texture != nil {
			mv.Texture = m.Material.Texture.Name
		}
		v.Mesh = mv
	}
	return v
}
