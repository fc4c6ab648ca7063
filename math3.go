package friendly

import "math"

// Vec3 is a 3D vector used for cell positions, offsets, and directions.
type Vec3 struct {
	X, Y, Z float64
}

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

// Sub returns v - o.
func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z}
}

// Scale returns v scaled by s.
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{v.X * s, v.Y * s, v.Z * s}
}

// Dot returns the dot product of v and o.
func (v Vec3) Dot(o Vec3) float64 {
	return v.X*o.X + v.Y*o.Y + v.Z*o.Z
}

// Cross returns the cross product v × o.
func (v Vec3) Cross(o Vec3) Vec3 {
	return Vec3{
		v.Y*o.Z - v.Z*o.Y,
		v.Z*o.X - v.X*o.Z,
		v.X*o.Y - v.Y*o.X,
	}
}

// Length returns the Euclidean length of v.
func (v Vec3) Length() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Normalize returns v scaled to unit length. A zero-length or non-finite
// vector normalizes to the zero vector so degenerate geometry never produces
// NaNs downstream.
func (v Vec3) Normalize() Vec3 {
	l := v.Length()
	if l == 0 || math.IsNaN(l) || math.IsInf(l, 0) {
		return Vec3{}
	}
	return Vec3{v.X / l, v.Y / l, v.Z / l}
}

// IsZero reports whether all components are exactly zero.
func (v Vec3) IsZero() bool {
	return v.X == 0 && v.Y == 0 && v.Z == 0
}

// finite reports whether all components are finite numbers.
func (v Vec3) finite() bool {
	return !math.IsNaN(v.X) && !math.IsInf(v.X, 0) &&
		!math.IsNaN(v.Y) && !math.IsInf(v.Y, 0) &&
		!math.IsNaN(v.Z) && !math.IsInf(v.Z, 0)
}

// rotateX rotates v about the X axis by a radians.
func rotateX(v Vec3, a float64) Vec3 {
	sin, cos := math.Sincos(a)
	return Vec3{
		v.X,
		v.Y*cos - v.Z*sin,
		v.Y*sin + v.Z*cos,
	}
}

// rotateY rotates v about the Y axis by a radians.
func rotateY(v Vec3, a float64) Vec3 {
	sin, cos := math.Sincos(a)
	return Vec3{
		v.X*cos + v.Z*sin,
		v.Y,
		-v.X*sin + v.Z*cos,
	}
}

// orient transforms a model-space vector into world space using the sphere's
// accumulated orientation (X rotation applied first, then Y).
func orient(v Vec3, rotX, rotY float64) Vec3 {
	return rotateY(rotateX(v, rotX), rotY)
}

// unorient is the inverse of orient: it transforms a world-space vector back
// into the sphere's model space.
func unorient(v Vec3, rotX, rotY float64) Vec3 {
	return rotateX(rotateY(v, -rotY), -rotX)
}

// lerp linearly interpolates between a and b by t.
func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// clamp limits x to the range [lo, hi].
func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// clamp01 limits x to [0, 1].
func clamp01(x float64) float64 {
	return clamp(x, 0, 1)
}

// moveToward moves current toward target by at most maxDelta, without
// overshooting.
func moveToward(current, target, maxDelta float64) float64 {
	d := target - current
	if math.Abs(d) <= maxDelta {
		return target
	}
	if d > 0 {
		return current + maxDelta
	}
	return current - maxDelta
}
