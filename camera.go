package friendly

import (
	"math"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// fitFill is the fraction of the tighter viewport half-extent the sphere
// radius is fitted to on resize, leaving headroom for lift and explode
// displacement.
const fitFill = 0.62

// Camera is a fixed perspective camera on the +Z axis looking at the origin,
// where the sphere lives. Only the distance animates (dolly); orientation
// changes are applied to the sphere, not the camera, which keeps hit-testing
// a single inverse rotation.
type Camera struct {
	Dist   float64 // distance from the sphere center
	FOV    float64 // vertical field of view in radians
	Width  float64 // viewport width in pixels
	Height float64 // viewport height in pixels

	dolly *gween.Tween
}

// NewCamera creates a camera for the given viewport.
func NewCamera(width, height, fovDegrees, dist float64) *Camera {
	return &Camera{
		Dist:   dist,
		FOV:    fovDegrees * math.Pi / 180,
		Width:  width,
		Height: height,
	}
}

// Position returns the camera's world-space position.
func (c *Camera) Position() Vec3 {
	return Vec3{0, 0, c.Dist}
}

// focal returns pixels per world unit on the origin plane.
func (c *Camera) focal() float64 {
	return (c.Height / 2) / math.Tan(c.FOV/2)
}

// Project maps a world-space point to screen pixels plus camera-space depth.
// ok is false for points at or behind the camera plane.
func (c *Camera) Project(v Vec3) (x, y, depth float64, ok bool) {
	depth = c.Dist - v.Z
	if depth <= 1e-6 {
		return 0, 0, depth, false
	}
	s := c.focal() / depth
	return c.Width/2 + v.X*s, c.Height/2 - v.Y*s, depth, true
}

// PixelScale returns pixels per world unit at the given camera-space depth.
func (c *Camera) PixelScale(depth float64) float64 {
	if depth <= 1e-6 {
		return 0
	}
	return c.focal() / depth
}

// ScreenRay returns the world-space ray through the given screen pixel.
func (c *Camera) ScreenRay(px, py float64) (origin, dir Vec3) {
	f := c.focal()
	dir = Vec3{
		X: (px - c.Width/2) / f,
		Y: -(py - c.Height/2) / f,
		Z: -1,
	}.Normalize()
	return c.Position(), dir
}

// FitRadius derives the sphere radius that fills the viewport for this
// camera, bounded below by min. Recomputed on every resize.
func (c *Camera) FitRadius(min float64) float64 {
	halfV := c.Dist * math.Tan(c.FOV/2)
	halfH := halfV
	if c.Height > 0 {
		halfH = halfV * c.Width / c.Height
	}
	r := fitFill * math.Min(halfV, halfH)
	return math.Max(r, min)
}

// Resize updates the viewport dimensions.
func (c *Camera) Resize(width, height float64) {
	c.Width = width
	c.Height = height
}

// DollyTo animates the camera distance over duration seconds.
func (c *Camera) DollyTo(dist float64, duration float32, fn ease.TweenFunc) {
	c.dolly = gween.New(float32(c.Dist), float32(dist), duration, fn)
}

// Update advances any dolly animation.
func (c *Camera) Update(dt float64) {
	if c.dolly == nil {
		return
	}
	v, done := c.dolly.Update(float32(dt))
	c.Dist = float64(v)
	if done {
		c.dolly = nil
	}
}
