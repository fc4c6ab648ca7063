package friendly

import (
	"math"
	"math/rand/v2"
	"testing"
)

func testPhysics() PhysicsConfig {
	return PhysicsConfig{
		InfluenceRadius:  2.0,
		MaxLift:          1.0,
		Stiffness:        120,
		Damping:          14,
		MaxFlipAngle:     math.Pi,
		FlipDuration:     0.3,
		OpacityRate:      4,
		TrailDuration:    0.4,
		ReturnDuration:   0.6,
		ExplodeDuration:  0.3,
		ExplodeDistance:  2.0,
		ExplodeThreshold: 1000,
	}
}

// singleCellSphere builds a one-cell arena at the sphere's front pole.
func singleCellSphere() *Sphere {
	return &Sphere{
		Cells: []Cell{{
			Position:      Vec3{0, 0, 5},
			Normal:        Vec3{0, 0, 1},
			opacity:       1,
			targetOpacity: 1,
		}},
		Radius: 5,
		phys:   testPhysics(),
	}
}

func TestActivationFalloff(t *testing.T) {
	s := singleCellSphere()
	c := &s.Cells[0]

	s.Activate(c.Position, 0)
	if c.state != CellActive {
		t.Fatalf("state = %v, want Active", c.state)
	}
	want := c.Normal.Scale(s.phys.MaxLift)
	if !vecNear(c.targetOffset, want, 1e-9) {
		t.Errorf("full-intensity target offset = %v, want %v", c.targetOffset, want)
	}

	// Re-entrant activation at half the influence radius refreshes targets.
	s.Activate(c.Position.Add(Vec3{1, 0, 0}), 0) // d = r/2
	want = c.Normal.Scale(0.5 * s.phys.MaxLift)
	if !vecNear(c.targetOffset, want, 1e-9) {
		t.Errorf("half-intensity target offset = %v, want %v", c.targetOffset, want)
	}
	if c.state != CellActive {
		t.Errorf("state = %v, want Active (re-entrant)", c.state)
	}
}

func TestActivationOutsideRadiusIgnored(t *testing.T) {
	s := singleCellSphere()
	s.Activate(Vec3{0, 0, -5}, 0) // opposite pole
	if s.Cells[0].state != CellIdle {
		t.Errorf("state = %v, want Idle", s.Cells[0].state)
	}
}

func TestActiveSettlesToIdle(t *testing.T) {
	s := singleCellSphere()
	c := &s.Cells[0]
	p := s.phys
	dt := 1.0 / 60

	// Hover for a quarter second.
	for i := 0; i < 15; i++ {
		s.Activate(c.Position, 0)
		s.Step(dt)
	}
	if c.state != CellActive {
		t.Fatalf("state after hover = %v, want Active", c.state)
	}
	if c.offset.IsZero() {
		t.Fatal("expected nonzero offset while active")
	}

	// No further activation: Trailing then Returning then Idle.
	budget := p.TrailDuration + p.ReturnDuration + 4*dt
	for elapsed := 0.0; elapsed < budget; elapsed += dt {
		s.Step(dt)
	}

	if c.state != CellIdle {
		t.Fatalf("state = %v, want Idle after trail+return", c.state)
	}
	if c.offset.Length() > 1e-9 {
		t.Errorf("offset length = %g, want ~0", c.offset.Length())
	}
	if math.Abs(c.opacity-1) > 1e-9 {
		t.Errorf("opacity = %f, want 1", c.opacity)
	}
	if c.angle != 0 || c.flip != 0 {
		t.Errorf("angle = %f flip = %f, want 0", c.angle, c.flip)
	}
}

func TestActiveToTrailingKeepsResidualMotion(t *testing.T) {
	s := singleCellSphere()
	c := &s.Cells[0]
	dt := 1.0 / 60

	for i := 0; i < 10; i++ {
		s.Activate(c.Position, 0)
		s.Step(dt)
	}
	s.Step(dt) // first untouched frame
	if c.state != CellTrailing {
		t.Fatalf("state = %v, want Trailing", c.state)
	}

	// The trailing cap is proportional to the last activation intensity.
	maxAngle := c.maxAngle
	if math.Abs(maxAngle-s.phys.MaxFlipAngle) > 1e-9 {
		t.Errorf("maxAngle = %f, want %f at full intensity", maxAngle, s.phys.MaxFlipAngle)
	}
	for i := 0; i < 20; i++ {
		s.Step(dt)
		if c.state != CellTrailing {
			break
		}
		if c.angle > maxAngle+1e-9 {
			t.Fatalf("trailing angle %f exceeds cap %f", c.angle, maxAngle)
		}
	}
}

func TestExplodeScenario(t *testing.T) {
	s := singleCellSphere()
	c := &s.Cells[0]
	p := s.phys
	dt := 1.0 / 60

	// Warm up into Active, then cross the velocity threshold.
	s.Activate(c.Position, 0)
	s.Step(dt)
	s.Activate(c.Position, 2*p.ExplodeThreshold)
	if c.state != CellExploding {
		t.Fatalf("state = %v, want Exploding", c.state)
	}
	if !vecNear(c.explodeDir, c.Normal, 1e-9) {
		t.Errorf("explode direction = %v, want outward normal %v", c.explodeDir, c.Normal)
	}

	var maxReach float64
	budget := p.ExplodeDuration + p.ReturnDuration + 4*dt
	for elapsed := 0.0; elapsed < budget; elapsed += dt {
		s.Step(dt)
		if r := c.offset.Length(); r > maxReach {
			maxReach = r
		}
	}

	if maxReach <= 0.1 {
		t.Errorf("max displacement = %f, expected a visible burst", maxReach)
	}
	if maxReach > p.ExplodeDistance+1e-9 {
		t.Errorf("max displacement = %f exceeds explodeDistance %f", maxReach, p.ExplodeDistance)
	}
	if c.state != CellIdle {
		t.Errorf("state = %v, want Idle after explode+return", c.state)
	}
}

func TestExplodeDipsOpacity(t *testing.T) {
	s := singleCellSphere()
	c := &s.Cells[0]
	p := s.phys
	dt := 1.0 / 60

	s.Activate(c.Position, 2*p.ExplodeThreshold)
	minOpacity := 1.0
	for elapsed := 0.0; elapsed < p.ExplodeDuration; elapsed += dt {
		s.Step(dt)
		if c.opacity < minOpacity {
			minOpacity = c.opacity
		}
	}
	if minOpacity >= 0.9 {
		t.Errorf("opacity never dipped during burst (min %f)", minOpacity)
	}
	if minOpacity < 0.45 {
		t.Errorf("opacity dipped to %f, below the envelope floor", minOpacity)
	}
}

func TestBoundedStateRandomized(t *testing.T) {
	geo := SphereConfig{Rings: 8, CellSize: 0.6, MinPerRing: 4}
	s := NewSphere(4, geo, testPhysics())
	rng := rand.New(rand.NewPCG(7, 11))

	for step := 0; step < 500; step++ {
		if rng.Float64() < 0.7 {
			hit := Vec3{
				X: (rng.Float64() - 0.5) * 10,
				Y: (rng.Float64() - 0.5) * 10,
				Z: (rng.Float64() - 0.5) * 10,
			}
			speed := rng.Float64() * 3000
			s.Activate(hit, speed)
		}
		dt := rng.Float64() * 0.05
		s.Step(dt)

		for i := range s.Cells {
			c := &s.Cells[i]
			if c.opacity < 0 || c.opacity > 1 {
				t.Fatalf("step %d: cell %d opacity %f out of [0,1]", step, i, c.opacity)
			}
			if c.flip < 0 || c.flip > 1 {
				t.Fatalf("step %d: cell %d flip %f out of [0,1]", step, i, c.flip)
			}
		}
	}
}

func TestDegenerateInputsAreSkipped(t *testing.T) {
	s := singleCellSphere()
	c := &s.Cells[0]

	s.Activate(Vec3{math.NaN(), 0, 0}, 500)
	if c.state != CellIdle {
		t.Errorf("NaN hit point activated the cell")
	}

	s.Activate(c.Position, 0)
	before := *c
	s.Step(math.NaN())
	if c.offset != before.offset || c.angle != before.angle {
		t.Error("NaN dt mutated cell state")
	}
	s.Step(math.Inf(1))
	if c.offset != before.offset {
		t.Error("Inf dt mutated cell state")
	}
	s.Step(-1)
	if c.offset != before.offset {
		t.Error("negative dt mutated cell state")
	}
}

func TestRevealStaggersByRing(t *testing.T) {
	s := &Sphere{
		Cells: []Cell{
			{Position: Vec3{0, 5, 0}, Normal: Vec3{0, 1, 0}, V: 0.1, opacity: 1, targetOpacity: 1},
			{Position: Vec3{0, -5, 0}, Normal: Vec3{0, -1, 0}, V: 0.9, opacity: 1, targetOpacity: 1},
		},
		Radius: 5,
		phys:   testPhysics(),
	}
	s.Reveal(1.0)

	if s.Cells[0].opacity != 0 || s.Cells[1].opacity != 0 {
		t.Fatal("reveal should zero opacity")
	}

	// After 0.3s the top cell (delay 0.1) is fading; the bottom (delay 0.9)
	// is still gated.
	for i := 0; i < 18; i++ {
		s.Step(1.0 / 60)
	}
	if s.Cells[0].opacity == 0 {
		t.Error("top ring cell never started fading in")
	}
	if s.Cells[1].opacity != 0 {
		t.Errorf("bottom ring cell faded early (opacity %f)", s.Cells[1].opacity)
	}
}

func TestSphereRebuildMatchesRadius(t *testing.T) {
	geo := SphereConfig{Rings: 10, CellSize: 0.5, MinPerRing: 4}
	s := NewSphere(6, geo, testPhysics())
	if s.Radius != 6 {
		t.Errorf("radius = %f, want 6", s.Radius)
	}
	for i := range s.Cells {
		if s.Cells[i].state != CellIdle {
			t.Fatalf("cell %d not at rest after build", i)
		}
		if s.Cells[i].opacity != 1 {
			t.Fatalf("cell %d opacity = %f, want 1", i, s.Cells[i].opacity)
		}
	}
}
