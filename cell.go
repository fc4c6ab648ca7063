package friendly

import "math"

// Cell holds per-cell animation state. Cells live in a contiguous arena on
// Sphere — a flat array of fixed-size records, no per-cell allocation — so
// the per-frame sweep stays cache-friendly at a few thousand cells.
//
// Placement fields (Position, Normal, U, V) are immutable after generation.
// Everything else is owned by Sphere.Step; other components only read.
type Cell struct {
	Position Vec3
	Normal   Vec3
	U, V     float64

	state CellState

	// Spring-driven outward displacement.
	offset       Vec3
	targetOffset Vec3
	offsetVel    Vec3

	// Single-axis rotation about the cell's horizontal tangent.
	angle       float64 // current rotation in radians
	targetAngle float64
	maxAngle    float64 // trailing cap, proportional to prior intensity
	trailSpin   float64 // angular velocity at trailing entry
	flip        float64 // normalized rotation progress in [0, 1]

	opacity       float64
	targetOpacity float64

	intensity float64 // last activation intensity (linear falloff)

	trailTimer   float64
	returnTimer  float64
	explodeTimer float64
	delayTimer   float64 // reveal stagger; gates opacity easing while positive

	explodeDir       Vec3
	explodeIntensity float64

	touched bool // activated this frame; consumed and cleared by Step

	// Texture view installed by the Scheduler: a pixel sub-rectangle of the
	// active frame, plus the job generation it belongs to.
	srcX, srcY, srcW, srcH float32
	texGen                 uint32
}

// State returns the cell's current animation state.
func (c *Cell) State() CellState { return c.state }

// Opacity returns the cell's current front-face opacity in [0, 1].
func (c *Cell) Opacity() float64 { return c.opacity }

// Flip returns the cell's normalized rotation progress in [0, 1].
func (c *Cell) Flip() float64 { return c.flip }

// Offset returns the cell's current displacement from its original position.
func (c *Cell) Offset() Vec3 { return c.offset }

// Sphere owns the cell arena and the global orientation accumulated from
// dragging and idle auto-rotation. It is rebuilt on viewport resize.
type Sphere struct {
	Cells  []Cell
	Radius float64

	// Orientation: X rotation applied first, then Y (see orient/unorient).
	RotX, RotY float64

	phys PhysicsConfig
}

// NewSphere generates the cell field for the given radius and wraps it in a
// Sphere at rest.
func NewSphere(radius float64, geo SphereConfig, phys PhysicsConfig) *Sphere {
	placements := GenerateCells(radius, geo.CellSize, geo.Rings, geo.MinPerRing)
	cells := make([]Cell, len(placements))
	for i, p := range placements {
		cells[i] = Cell{
			Position:      p.Position,
			Normal:        p.Normal,
			U:             p.U,
			V:             p.V,
			opacity:       1,
			targetOpacity: 1,
		}
	}
	return &Sphere{
		Cells:  cells,
		Radius: radius,
		phys:   phys,
	}
}

// Activate applies pointer influence at the model-space point hit, with the
// smoothed pointer speed in pixels per second. Cells within the influence
// radius become (or stay) Active with linear distance falloff; an Active cell
// under a pointer moving faster than the explode threshold bursts.
//
// Activation refreshes the offset, rotation, and opacity targets every frame
// the pointer stays in range; Step performs the actual integration.
func (s *Sphere) Activate(hit Vec3, speed float64) {
	if !hit.finite() {
		return
	}
	p := s.phys
	for i := range s.Cells {
		c := &s.Cells[i]
		if c.state == CellExploding {
			continue // bursts run to completion
		}
		d := c.Position.Sub(hit).Length()
		if d > p.InfluenceRadius {
			continue
		}
		intensity := 1 - d/p.InfluenceRadius

		c.touched = true
		c.state = CellActive
		c.intensity = intensity
		c.targetOffset = c.Normal.Scale(intensity * p.MaxLift)
		c.targetAngle = intensity * p.MaxFlipAngle
		c.targetOpacity = 1 - 0.35*intensity

		if speed > p.ExplodeThreshold && p.ExplodeThreshold > 0 {
			c.state = CellExploding
			c.explodeTimer = 0
			c.explodeDir = c.Normal
			c.explodeIntensity = clamp(speed/p.ExplodeThreshold, 1, 2)
			c.offsetVel = Vec3{}
		}
	}
}

// Reveal staggers a fade-in across the sphere, top ring first. Used after the
// first texture lands and after a resize rebuild.
func (s *Sphere) Reveal(spread float64) {
	for i := range s.Cells {
		c := &s.Cells[i]
		c.delayTimer = c.V * spread
		c.opacity = 0
		c.targetOpacity = 1
	}
}

// Step advances every cell by dt seconds: state transitions first, then the
// spring, rotation, and opacity integration for that state. Non-finite or
// non-positive dt skips the frame entirely rather than poisoning the arena.
func (s *Sphere) Step(dt float64) {
	if dt <= 0 || math.IsNaN(dt) || math.IsInf(dt, 0) {
		return
	}
	p := s.phys
	flipSpeed := p.MaxFlipAngle / p.FlipDuration

	for i := range s.Cells {
		c := &s.Cells[i]

		switch c.state {
		case CellIdle:
			c.targetOffset = Vec3{}
			c.targetAngle = 0
			c.targetOpacity = 1
			c.stepSpring(p, dt)
			c.angle = moveToward(c.angle, 0, flipSpeed*dt)

		case CellActive:
			if !c.touched {
				// Pointer left the influence radius this frame.
				if c.angle > 0 || !c.offset.IsZero() {
					c.state = CellTrailing
					c.trailTimer = 0
					c.trailSpin = c.intensity * flipSpeed
					c.maxAngle = c.intensity * p.MaxFlipAngle
				} else {
					c.rest()
				}
			}
			c.stepSpring(p, dt)
			c.angle = moveToward(c.angle, c.targetAngle, flipSpeed*dt)

		case CellTrailing:
			c.trailTimer += dt
			t := c.trailTimer / p.TrailDuration
			if t >= 1 {
				c.state = CellReturning
				c.returnTimer = 0
				c.targetOffset = Vec3{}
				c.targetAngle = 0
			} else {
				// Angular velocity decays linearly to zero over the window.
				c.angle += c.trailSpin * (1 - t) * dt
				if c.angle > c.maxAngle {
					c.angle = c.maxAngle
				}
				c.stepSpring(p, dt)
			}

		case CellExploding:
			c.explodeTimer += dt
			t := c.explodeTimer / p.ExplodeDuration
			if t >= 1 {
				c.state = CellReturning
				c.returnTimer = 0
				c.targetOffset = Vec3{}
				c.targetAngle = 0
				c.targetOpacity = 1
				c.offsetVel = Vec3{}
			} else {
				// Half-sine envelope: out fast, back before returning starts.
				env := math.Sin(math.Pi * t)
				reach := p.ExplodeDistance * env * (c.explodeIntensity / 2)
				c.offset = c.explodeDir.Scale(reach)
				c.angle += flipSpeed * 3 * dt
				c.opacity = clamp01(1 - 0.5*env)
			}

		case CellReturning:
			c.returnTimer += dt
			if c.returnTimer >= p.ReturnDuration {
				c.rest()
			} else {
				c.targetOffset = Vec3{}
				c.targetOpacity = 1
				c.angle = moveToward(c.angle, 0, (p.MaxFlipAngle/p.ReturnDuration)*dt)
				c.stepSpring(p, dt)
			}
		}

		// Opacity easing at a fixed rate, gated by the reveal stagger.
		// Exploding writes opacity directly from its envelope.
		if c.state != CellExploding {
			if c.delayTimer > 0 {
				c.delayTimer -= dt
			} else {
				c.opacity = moveToward(c.opacity, c.targetOpacity, p.OpacityRate*dt)
			}
		}

		c.opacity = clamp01(c.opacity)
		if c.angle < 0 {
			c.angle = 0
		}
		c.flip = clamp01(c.angle / p.MaxFlipAngle)
		c.touched = false
	}
}

// stepSpring integrates the damped spring toward the target offset with an
// explicit Euler step. A non-finite displacement error skips the update
// (degenerate input is recovered silently, never propagated).
func (c *Cell) stepSpring(p PhysicsConfig, dt float64) {
	err := c.targetOffset.Sub(c.offset)
	if !err.finite() {
		return
	}
	accel := err.Scale(p.Stiffness).Sub(c.offsetVel.Scale(p.Damping))
	c.offsetVel = c.offsetVel.Add(accel.Scale(dt))
	c.offset = c.offset.Add(c.offsetVel.Scale(dt))
}

// rest hard-resets all transient fields to the Idle rest pose.
func (c *Cell) rest() {
	c.state = CellIdle
	c.offset = Vec3{}
	c.targetOffset = Vec3{}
	c.offsetVel = Vec3{}
	c.angle = 0
	c.targetAngle = 0
	c.maxAngle = 0
	c.trailSpin = 0
	c.flip = 0
	c.opacity = 1
	c.targetOpacity = 1
	c.intensity = 0
	c.trailTimer = 0
	c.returnTimer = 0
	c.explodeTimer = 0
	c.explodeIntensity = 0
	c.touched = false
}
