package friendly

import "sort"

// Scheduler reassigns a newly ready texture across the cell field without a
// single large synchronous stall: cells are scored by visibility, sorted
// best-first, and updated a fixed-size batch per tick until the job drains.
// Cells not yet reached keep rendering their previous texture view.
type Scheduler struct {
	cfg SchedulerConfig

	order  []int
	scores []float64
	cursor int
	gen    uint32

	texW, texH int
}

// NewScheduler creates a scheduler with the given batching policy.
func NewScheduler(cfg SchedulerConfig) *Scheduler {
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 25
	}
	if cfg.CellUVSpan <= 0 || cfg.CellUVSpan > 1 {
		cfg.CellUVSpan = 0.12
	}
	return &Scheduler{cfg: cfg}
}

// Begin starts a reassignment job for a texture of the given pixel size.
// Priority is a composite of facing alignment (dot of the world-space
// outward normal with the to-camera direction, clamped at zero) and camera
// proximity, so the closest, most visible cells refresh first. A new job
// replaces any job still in flight.
func (ts *Scheduler) Begin(s *Sphere, cam *Camera, texW, texH int) {
	n := len(s.Cells)
	if cap(ts.order) < n {
		ts.order = make([]int, n)
		ts.scores = make([]float64, n)
	}
	ts.order = ts.order[:n]
	ts.scores = ts.scores[:n]

	camPos := cam.Position()
	for i := range s.Cells {
		c := &s.Cells[i]
		wpos := orient(c.Position, s.RotX, s.RotY)
		wn := orient(c.Normal, s.RotX, s.RotY)
		toCam := camPos.Sub(wpos)
		dist := toCam.Length()

		facing := wn.Dot(toCam.Normalize())
		if facing < 0 {
			facing = 0
		}
		ts.scores[i] = ts.cfg.FacingWeight*facing + ts.cfg.ProximityWeight/(1+dist)
		ts.order[i] = i
	}
	sort.Slice(ts.order, func(a, b int) bool {
		return ts.scores[ts.order[a]] > ts.scores[ts.order[b]]
	})

	ts.cursor = 0
	ts.gen++
	ts.texW, ts.texH = texW, texH
	debugf("texture job %d: %d cells, batch %d", ts.gen, n, ts.cfg.BatchSize)
}

// Step applies one batch of the current job: each cell gets a fresh
// sub-rectangle view of the shared texture at its own UV offset. Returns
// true when the job is drained (or no job is active).
func (ts *Scheduler) Step(s *Sphere) bool {
	if ts.cursor >= len(ts.order) {
		return true
	}
	end := ts.cursor + ts.cfg.BatchSize
	if end > len(ts.order) {
		end = len(ts.order)
	}

	span := ts.cfg.CellUVSpan
	w := span * float64(ts.texW)
	h := span * float64(ts.texH)
	for _, idx := range ts.order[ts.cursor:end] {
		if idx >= len(s.Cells) {
			continue // sphere rebuilt mid-job; Begin follows shortly
		}
		c := &s.Cells[idx]
		c.srcX = float32(c.U * (1 - span) * float64(ts.texW))
		c.srcY = float32(c.V * (1 - span) * float64(ts.texH))
		c.srcW = float32(w)
		c.srcH = float32(h)
		c.texGen = ts.gen
	}
	ts.cursor = end
	return ts.cursor >= len(ts.order)
}

// Pending returns how many cells the current job has not yet updated.
func (ts *Scheduler) Pending() int {
	if ts.cursor >= len(ts.order) {
		return 0
	}
	return len(ts.order) - ts.cursor
}

// Generation returns the current job generation. The renderer compares it
// with each cell's installed view to decide which texture the cell samples.
func (ts *Scheduler) Generation() uint32 {
	return ts.gen
}
