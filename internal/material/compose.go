// Package material combines a parsed material library entry, a resolved
// texture and the session's presentation modes into one renderable material.
package material

import (
	"meshview/internal/mtl"
	"meshview/internal/texture"
)

const (
	// NeutralGray is the flat material used when nothing richer applies.
	NeutralGray = 0.8
	// AutoThreshold is the average diffuse brightness below which Auto lightens the tint.
	AutoThreshold = 0.5
	// AutoBlend is how far Auto moves a dark diffuse colour toward white.
	AutoBlend = 0.5
)

var white = mtl.Gray(1)

// Kind names the row of the decision table that produced a material.
type Kind int

const (
	KindFlat            Kind = iota // light gray, no texture
	KindColor                       // MTL colours, no texture
	KindTextured                    // texture on a neutral base
	KindMaterialTexture             // MTL colours plus texture
)

func (k Kind) String() string {
	switch k {
	case KindColor:
		return "color"
	case KindTextured:
		return "textured"
	case KindMaterialTexture:
		return "material+texture"
	default:
		return "flat"
	}
}

// Material is the composed appearance attached to a mesh.
type Material struct {
	Kind      Kind
	Color     mtl.Color
	Specular  mtl.Color
	Shininess float64
	Texture   *texture.Asset
}

// Textured reports whether a texture is attached.
func (m Material) Textured() bool {
	return m.Texture != nil
}

// Flat returns the light-gray untextured material.
func Flat() Material {
	return Material{
		Kind:      KindFlat,
		Color:     mtl.Gray(NeutralGray),
		Specular:  mtl.DefaultSpecular,
		Shininess: mtl.DefaultShininess,
	}
}

// Compose is pure: identical inputs always give identical output.
func Compose(desc *mtl.Description, tex *texture.Asset, mode Mode, blend BlendMode) Material {
	if mode == Basic {
		return Flat()
	}

	hasMTL := desc != nil
	hasTex := tex != nil

	switch {
	case mode == Full && hasMTL && hasTex:
		return Material{
			Kind:      KindMaterialTexture,
			Color:     BlendColor(desc.Diffuse, blend),
			Specular:  desc.Specular,
			Shininess: desc.Shininess,
			Texture:   tex,
		}
	case hasTex && (mode == Full || mode == TextureOnly):
		return Material{
			Kind:      KindTextured,
			Color:     white,
			Specular:  mtl.DefaultSpecular,
			Shininess: mtl.DefaultShininess,
			Texture:   tex,
		}
	case mode == Full && hasMTL:
		return Material{
			Kind:      KindColor,
			Color:     desc.Diffuse,
			Specular:  desc.Specular,
			Shininess: desc.Shininess,
		}
	default:
		return Flat()
	}
}

// BlendColor resolves the base colour under a texture for the given blend mode.
func BlendColor(diffuse mtl.Color, blend BlendMode) mtl.Color {
	switch blend {
	case WhiteBase:
		return white
	case MtlTint:
		return diffuse
	default:
		if diffuse.Average() < AutoThreshold {
			c := diffuse
			for i := range c {
				c[i] += (1 - c[i]) * AutoBlend
			}
			return c
		}
		return diffuse
	}
}
