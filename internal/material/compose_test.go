package material

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"meshview/internal/mtl"
	"meshview/internal/texture"
)

func woodMTL() *mtl.Description {
	d := mtl.Default()
	d.Name = "wood"
	d.Diffuse = mtl.Color{0.2, 0.1, 0.0}
	d.Specular = mtl.Color{0.3, 0.3, 0.3}
	d.Shininess = 64
	d.DiffuseMap = "wood.jpg"
	return d
}

func TestComposeDecisionTable(t *testing.T) {
	tex := &texture.Asset{Name: "wood.jpg"}
	desc := woodMTL()

	tests := []struct {
		name string
		desc *mtl.Description
		tex  *texture.Asset
		mode Mode
		kind Kind
	}{
		{"full with mtl and texture", desc, tex, Full, KindMaterialTexture},
		{"full texture only", nil, tex, Full, KindTextured},
		{"texture mode ignores mtl", desc, tex, TextureOnly, KindTextured},
		{"full mtl without texture", desc, nil, Full, KindColor},
		{"texture mode without texture", desc, nil, TextureOnly, KindFlat},
		{"nothing", nil, nil, Full, KindFlat},
		{"basic with everything", desc, tex, Basic, KindFlat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := Compose(tt.desc, tt.tex, tt.mode, Auto)
			assert.Equal(t, tt.kind, m.Kind)
		})
	}
}

func TestComposeTextureUsesNeutralBase(t *testing.T) {
	m := Compose(woodMTL(), &texture.Asset{Name: "t.png"}, TextureOnly, MtlTint)
	assert.Equal(t, mtl.Gray(1), m.Color)
	assert.Equal(t, mtl.DefaultShininess, m.Shininess)
	assert.True(t, m.Textured())
}

func TestComposeBasicIgnoresEverything(t *testing.T) {
	for _, blend := range []BlendMode{WhiteBase, MtlTint, Auto} {
		m := Compose(woodMTL(), &texture.Asset{}, Basic, blend)
		assert.Equal(t, Flat(), m)
		assert.False(t, m.Textured())
	}
}

func TestComposeIsDeterministic(t *testing.T) {
	tex := &texture.Asset{Name: "wood.jpg"}
	desc := woodMTL()
	for _, mode := range []Mode{Full, TextureOnly, Basic} {
		for _, blend := range []BlendMode{WhiteBase, MtlTint, Auto} {
			assert.Equal(t, Compose(desc, tex, mode, blend), Compose(desc, tex, mode, blend))
		}
	}
}

func TestComposeDoesNotMutateInput(t *testing.T) {
	desc := woodMTL()
	before := *desc
	Compose(desc, &texture.Asset{}, Full, Auto)
	assert.Equal(t, before, *desc)
}

func TestBlendColor(t *testing.T) {
	dark := mtl.Color{0.2, 0.1, 0.0}
	bright := mtl.Color{0.9, 0.8, 0.7}

	assert.Equal(t, mtl.Gray(1), BlendColor(dark, WhiteBase))
	assert.Equal(t, dark, BlendColor(dark, MtlTint))
	assert.Equal(t, bright, BlendColor(bright, Auto))

	got := BlendColor(dark, Auto)
	assert.InDelta(t, 0.6, got[0], 1e-12)
	assert.InDelta(t, 0.55, got[1], 1e-12)
	assert.InDelta(t, 0.5, got[2], 1e-12)
}

func TestFullWithMTLAndTextureUsesMTLShininess(t *testing.T) {
	m := Compose(woodMTL(), &texture.Asset{}, Full, MtlTint)
	assert.Equal(t, 64.0, m.Shininess)
	assert.Equal(t, mtl.Color{0.2, 0.1, 0.0}, m.Color)
	assert.Equal(t, mtl.Color{0.3, 0.3, 0.3}, m.Specular)
}

func TestParseModes(t *testing.T) {
	m, err := ParseMode("Texture-Only")
	assert.NoError(t, err)
	assert.Equal(t, TextureOnly, m)
	_, err = ParseMode("shiny")
	assert.Error(t, err)

	b, err := ParseBlendMode("mtl-tint")
	assert.NoError(t, err)
	assert.Equal(t, MtlTint, b)
	_, err = ParseBlendMode("sepia")
	assert.Error(t, err)

	var mode Mode
	assert.NoError(t, mode.UnmarshalText([]byte("basic")))
	assert.Equal(t, Basic, mode)
	text, _ := Auto.MarshalText()
	assert.Equal(t, "auto", string(text))
}
