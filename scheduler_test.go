package friendly

import "testing"

func testSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		BatchSize:       10,
		FacingWeight:    0.7,
		ProximityWeight: 0.3,
		CellUVSpan:      0.12,
	}
}

func schedSphere() *Sphere {
	geo := SphereConfig{Rings: 12, CellSize: 0.5, MinPerRing: 4}
	return NewSphere(5, geo, testPhysics())
}

func TestBeginPrioritizesFacingCells(t *testing.T) {
	s := &Sphere{
		Cells: []Cell{
			{Position: Vec3{0, 0, -5}, Normal: Vec3{0, 0, -1}}, // back pole
			{Position: Vec3{0, 0, 5}, Normal: Vec3{0, 0, 1}},   // facing the camera
			{Position: Vec3{5, 0, 0}, Normal: Vec3{1, 0, 0}},   // limb
		},
		Radius: 5,
		phys:   testPhysics(),
	}
	cam := NewCamera(800, 600, 50, 16)
	ts := NewScheduler(testSchedulerConfig())

	ts.Begin(s, cam, 512, 512)

	if ts.order[0] != 1 {
		t.Errorf("highest priority cell = %d, want the camera-facing cell 1", ts.order[0])
	}
	if ts.order[2] != 0 {
		t.Errorf("lowest priority cell = %d, want the back-pole cell 0", ts.order[2])
	}
}

func TestBeginAccountsForRotation(t *testing.T) {
	s := &Sphere{
		Cells: []Cell{
			{Position: Vec3{0, 0, -5}, Normal: Vec3{0, 0, -1}},
			{Position: Vec3{0, 0, 5}, Normal: Vec3{0, 0, 1}},
		},
		Radius: 5,
		phys:   testPhysics(),
	}
	s.RotY = 3.14159265 // half turn: the back pole now faces the camera
	cam := NewCamera(800, 600, 50, 16)
	ts := NewScheduler(testSchedulerConfig())

	ts.Begin(s, cam, 512, 512)
	if ts.order[0] != 0 {
		t.Errorf("highest priority cell = %d, want the rotated-to-front cell 0", ts.order[0])
	}
}

func TestStepDrainsInBatches(t *testing.T) {
	s := schedSphere()
	cam := NewCamera(800, 600, 50, 16)
	ts := NewScheduler(testSchedulerConfig())

	ts.Begin(s, cam, 256, 128)

	n := len(s.Cells)
	wantSteps := (n + 9) / 10
	steps := 0
	for !ts.Step(s) {
		steps++
		if steps > n {
			t.Fatal("job never drained")
		}
	}
	steps++
	if steps != wantSteps {
		t.Errorf("drained in %d steps, want %d for %d cells", steps, wantSteps, n)
	}
	if ts.Pending() != 0 {
		t.Errorf("Pending = %d after drain, want 0", ts.Pending())
	}
}

func TestStepInstallsViews(t *testing.T) {
	s := schedSphere()
	cam := NewCamera(800, 600, 50, 16)
	ts := NewScheduler(testSchedulerConfig())
	const texW, texH = 256, 128

	ts.Begin(s, cam, texW, texH)
	for !ts.Step(s) {
	}

	span := testSchedulerConfig().CellUVSpan
	for i := range s.Cells {
		c := &s.Cells[i]
		if c.texGen != ts.Generation() {
			t.Fatalf("cell %d generation %d, want %d", i, c.texGen, ts.Generation())
		}
		if c.srcW != float32(span*texW) || c.srcH != float32(span*texH) {
			t.Fatalf("cell %d view %fx%f, want %fx%f", i, c.srcW, c.srcH, span*texW, span*texH)
		}
		if c.srcX < 0 || float64(c.srcX+c.srcW) > texW+1e-3 {
			t.Fatalf("cell %d x-view [%f, %f] outside texture width %d", i, c.srcX, c.srcX+c.srcW, texW)
		}
		if c.srcY < 0 || float64(c.srcY+c.srcH) > texH+1e-3 {
			t.Fatalf("cell %d y-view [%f, %f] outside texture height %d", i, c.srcY, c.srcY+c.srcH, texH)
		}
	}
}

func TestPartialJobLeavesStaleViews(t *testing.T) {
	s := schedSphere()
	cam := NewCamera(800, 600, 50, 16)
	ts := NewScheduler(testSchedulerConfig())

	ts.Begin(s, cam, 256, 256)
	ts.Step(s) // one batch only

	fresh := 0
	for i := range s.Cells {
		if s.Cells[i].texGen == ts.Generation() {
			fresh++
		}
	}
	if fresh != 10 {
		t.Errorf("%d cells updated after one batch, want 10", fresh)
	}
	if got := ts.Pending(); got != len(s.Cells)-10 {
		t.Errorf("Pending = %d, want %d", got, len(s.Cells)-10)
	}
}

func TestNewJobReplacesInFlightJob(t *testing.T) {
	s := schedSphere()
	cam := NewCamera(800, 600, 50, 16)
	ts := NewScheduler(testSchedulerConfig())

	ts.Begin(s, cam, 256, 256)
	gen1 := ts.Generation()
	ts.Step(s)

	ts.Begin(s, cam, 512, 512)
	if ts.Generation() != gen1+1 {
		t.Errorf("generation = %d, want %d", ts.Generation(), gen1+1)
	}
	if ts.Pending() != len(s.Cells) {
		t.Errorf("Pending = %d after restart, want %d", ts.Pending(), len(s.Cells))
	}
}

func TestStepSurvivesSphereRebuild(t *testing.T) {
	s := schedSphere()
	cam := NewCamera(800, 600, 50, 16)
	ts := NewScheduler(testSchedulerConfig())

	ts.Begin(s, cam, 256, 256)

	// A resize shrinks the field mid-job; stale indices must be skipped.
	smaller := &Sphere{Cells: s.Cells[:4], Radius: s.Radius, phys: s.phys}
	for !ts.Step(smaller) {
	}
}

func TestSchedulerDefaultsDegenerateConfig(t *testing.T) {
	ts := NewScheduler(SchedulerConfig{BatchSize: 0, CellUVSpan: 2})
	if ts.cfg.BatchSize < 1 {
		t.Errorf("batch size = %d, want a positive default", ts.cfg.BatchSize)
	}
	if ts.cfg.CellUVSpan <= 0 || ts.cfg.CellUVSpan > 1 {
		t.Errorf("uv span = %f, want a sane default", ts.cfg.CellUVSpan)
	}
}
