package raster

import (
	"math"

	"meshview/internal/mathutil"
)

// Lighting is a key light, a rim light and a sky/ground fill, all in view
// space. Diffuse terms use |N·L| so open meshes shade on both sides.
type Lighting struct {
	Key      mathutil.Vec3
	Rim      mathutil.Vec3
	half     mathutil.Vec3 // Blinn-Phong half vector for Key
	Ambient  float64
	Fill     float64
	KeyGain  float64
	RimGain  float64
	Exposure float64

	// Specular highlight, added on top of the albedo term.
	Specular  float64
	Shininess float64
}

// StudioLighting returns the rig used for previews.
func StudioLighting() Lighting {
	key := mathutil.Vec3{180, 260, 140}.Normalize()
	view := mathutil.Vec3{0, -110, -400}.Normalize()
	return Lighting{
		Key:       key,
		Rim:       mathutil.Vec3{-160, 130, -210}.Normalize(),
		half:      key.Sub(view).Normalize(),
		Ambient:   0.55,
		Fill:      0.50,
		KeyGain:   1.50,
		RimGain:   0.60,
		Exposure:  1.05,
		Specular:  0.45,
		Shininess: 12,
	}
}

// ForMaterial tunes the highlight to an MTL Ns exponent and Ks intensity.
// Non-positive shininess and negative specular keep the rig defaults.
func (l Lighting) ForMaterial(shininess, specular float64) Lighting {
	if shininess > 0 {
		l.Shininess = shininess
	}
	if specular >= 0 {
		l.Specular = specular
	}
	return l
}

// Shade returns the diffuse multiplier and the additive specular term for a
// unit face normal, both in linear light before exposure.
func (l *Lighting) Shade(n mathutil.Vec3) (diffuse, spec float64) {
	fill := ((1-math.Abs(n[1]))*0.5 + 0.5) * l.Fill
	diffuse = l.Ambient + fill +
		math.Abs(n.Dot(l.Key))*l.KeyGain +
		math.Abs(n.Dot(l.Rim))*l.RimGain
	if ndh := n.Dot(l.half); ndh > 0 {
		spec = math.Pow(ndh, l.Shininess) * l.Specular
	}
	return diffuse, spec
}

const invGamma = 1 / 2.2

// srgbToLinear maps 8-bit sRGB to linear light.
var srgbToLinear [256]float64

func init() {
	for i := range srgbToLinear {
		srgbToLinear[i] = math.Pow(float64(i)/255.0, 2.2)
	}
}

// ACESTonemap applies the ACES filmic curve to a linear value.
func ACESTonemap(x float64) float64 {
	return (x * (2.51*x + 0.03)) / (x*(2.43*x+0.59) + 0.14)
}

// encode tone maps a linear channel and quantizes it back to sRGB.
func encode(x float64) uint8 {
	return clamp255(math.Pow(ACESTonemap(x), invGamma) * 255)
}

// linearize converts an sRGB channel in [0,1] to linear light.
func linearize(c float64) float64 {
	if c <= 0 {
		return 0
	}
	return math.Pow(c, 2.2)
}
