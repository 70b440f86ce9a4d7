package mathutil

import "math"

// Default preview camera angles in degrees.
const (
	DefaultYaw   = 35.0
	DefaultPitch = -20.0
)

// Orbit returns the view rotation for a camera circling the origin:
// yaw about Y first, then pitch about X. Angles are in degrees.
func Orbit(yaw, pitch float64) Mat3 {
	cy, sy := math.Cos(yaw*math.Pi/180), math.Sin(yaw*math.Pi/180)
	cp, sp := math.Cos(pitch*math.Pi/180), math.Sin(pitch*math.Pi/180)
	rx := Mat3{
		1, 0, 0,
		0, cp, -sp,
		0, sp, cp,
	}
	ry := Mat3{
		cy, 0, sy,
		0, 1, 0,
		-sy, 0, cy,
	}
	return Mat3Mul(rx, ry)
}
