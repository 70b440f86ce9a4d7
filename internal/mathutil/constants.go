package mathutil

// PreviewView is the three-quarter camera used for still previews,
// looking down -Z with Y up.
var PreviewView = Orbit(DefaultYaw, DefaultPitch)

// Epsilon is the tolerance used when comparing normalized geometry.
const Epsilon = 1e-9
