package material

import (
	"fmt"
	"strings"
)

// Mode controls how much of the parsed material data is applied.
type Mode int

const (
	Full Mode = iota
	TextureOnly
	Basic
)

func (m Mode) String() string {
	switch m {
	case Full:
		return "full"
	case TextureOnly:
		return "texture"
	case Basic:
		return "basic"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode accepts full, texture (or texture-only) and basic.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "full", "":
		return Full, nil
	case "texture", "texture-only", "textureonly", "texture_only":
		return TextureOnly, nil
	case "basic":
		return Basic, nil
	default:
		return Full, fmt.Errorf("material: unknown mode %q", s)
	}
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(b []byte) error {
	v, err := ParseMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// BlendMode controls how the MTL diffuse colour combines with a texture.
type BlendMode int

const (
	WhiteBase BlendMode = iota
	MtlTint
	Auto
)

func (b BlendMode) String() string {
	switch b {
	case WhiteBase:
		return "white"
	case MtlTint:
		return "mtl"
	case Auto:
		return "auto"
	default:
		return fmt.Sprintf("blend(%d)", int(b))
	}
}

// ParseBlendMode accepts white (white-base), mtl (mtl-tint) and auto.
func ParseBlendMode(s string) (BlendMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "white", "white-base", "whitebase", "white_base":
		return WhiteBase, nil
	case "mtl", "mtl-tint", "mtltint", "mtl_tint", "tint":
		return MtlTint, nil
	case "auto", "":
		return Auto, nil
	default:
		return Auto, fmt.Errorf("material: unknown blend mode %q", s)
	}
}

func (b BlendMode) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

func (b *BlendMode) UnmarshalText(text []byte) error {
	v, err := ParseBlendMode(string(text))
	if err != nil {
		return err
	}
	*b = v
	return nil
}
