package friendly

import (
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/tanema/gween/ease"
)

// Engine drives the sphere field: interaction sampling, media pool updates,
// batched texture reassignment, physics integration, and rendering, in that
// order every tick. It implements [ebiten.Game].
//
// All engine state is mutated on the tick; asynchronous load completions are
// queued by the pool and applied here, so nothing needs a lock.
type Engine struct {
	// OnAdvance fires when a scroll gesture is detected over the render
	// surface. Consumed by embedding navigation logic.
	OnAdvance func()

	cfg    Config
	cam    *Camera
	sphere *Sphere
	pool   *Pool
	sched  *Scheduler
	ctrl   *Controller

	current *MediaResource // active texture
	prev    *MediaResource // still referenced by stale cell views mid-job
	prevGen uint32         // scheduler generation the prev views belong to

	clock        func() time.Time
	start        time.Time
	lastTick     time.Time
	pendingWheel float64

	w, h     int
	revealed bool
	disposed bool

	pulse      float64 // placeholder brightness in [0.55, 1]
	pulseTween pulseAnim
	fps        *fpsOverlay

	// Render scratch, reused across frames.
	quads   []cellQuad
	vertBuf []ebiten.Vertex
	indBuf  []uint16
}

// NewEngine creates an engine over the given ordered media identifiers.
// resolve maps identifiers to loadable addresses; pass nil if the
// identifiers are already absolute. Preloading starts immediately; the
// first texture to decode becomes the initial active source.
func NewEngine(cfg Config, mediaIDs []string, resolve Resolver) *Engine {
	cam := NewCamera(1280, 720, cfg.Sphere.FOVDegrees, cfg.Sphere.CameraDist*1.5)
	sphere := NewSphere(cam.FitRadius(cfg.Sphere.MinRadius), cfg.Sphere, cfg.Physics)
	pool := NewPool(cfg.Pool, mediaIDs, resolve)

	e := &Engine{
		cfg:    cfg,
		cam:    cam,
		sphere: sphere,
		pool:   pool,
		sched:  NewScheduler(cfg.Scheduler),
		ctrl:   newController(cam, sphere, pool, cfg.Loop),
		clock:  time.Now,
		w:      1280,
		h:      720,
		pulse:  1,
	}
	pool.OnApply = e.onApply
	pool.OnExhausted = func() {
		debugf("all media blacklisted; placeholder material active")
	}
	e.ctrl.onAdvance = func() {
		if e.OnAdvance != nil {
			e.OnAdvance()
		}
	}
	if cfg.Loop.ShowFPS {
		e.fps = newFPSOverlay()
	}

	pool.Preload()
	cam.DollyTo(cfg.Sphere.CameraDist, 1.2, ease.OutCubic)
	return e
}

// Pool exposes the media pool, e.g. to call Reset after exhaustion.
func (e *Engine) Pool() *Pool {
	return e.pool
}

// Sphere returns the current cell field. Rebuilt on resize; do not retain
// across frames.
func (e *Engine) Sphere() *Sphere {
	return e.sphere
}

// onApply installs a newly active texture: the previous one keeps serving
// cells the scheduler hasn't reached yet, and the first texture triggers the
// staggered reveal.
func (e *Engine) onApply(res *MediaResource) {
	e.prev = e.current
	e.prevGen = e.sched.Generation()
	e.current = res
	e.sched.Begin(e.sphere, e.cam, res.Width, res.Height)
	if !e.revealed {
		e.revealed = true
		e.sphere.Reveal(0.8)
	}
}

// targetInterval is the adaptive update budget: full rate while dragging,
// half rate otherwise.
func (e *Engine) targetInterval() time.Duration {
	tps := e.cfg.Loop.IdleTPS
	if e.ctrl.Dragging() {
		tps = e.cfg.Loop.ActiveTPS
	}
	if tps < 1 {
		tps = 30
	}
	return time.Second / time.Duration(tps)
}

// Update implements ebiten.Game. Ticks under the adaptive interval skip all
// work; the integration step after a stall is clamped so physics stays
// stable when the tab was backgrounded.
func (e *Engine) Update() error {
	if e.disposed {
		return nil
	}

	// Wheel deltas are per-tick; accumulate them across skipped ticks so a
	// scroll gesture is never lost to rate adaptation.
	_, wy := ebiten.Wheel()
	e.pendingWheel += wy

	now := e.clock()
	if e.lastTick.IsZero() {
		e.start = now
		e.lastTick = now
		return nil
	}
	elapsed := now.Sub(e.lastTick)
	if elapsed < e.targetInterval() {
		return nil
	}
	e.lastTick = now
	if elapsed > e.cfg.Loop.MaxStep {
		elapsed = e.cfg.Loop.MaxStep
	}

	cx, cy := ebiten.CursorPosition()
	in := PointerInput{
		X:       float64(cx),
		Y:       float64(cy),
		Pressed: ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft),
		WheelY:  e.pendingWheel,
		Now:     now.Sub(e.start).Seconds(),
	}
	e.pendingWheel = 0

	e.step(in, elapsed.Seconds())
	return nil
}

// step is one engine tick. Ordering within a frame: interaction sampling,
// then async completion application, then texture batches, then physics.
func (e *Engine) step(in PointerInput, dt float64) {
	e.ctrl.Step(in)
	e.pool.Update(dt)
	e.sched.Step(e.sphere)
	e.sphere.Step(dt)

	if !e.ctrl.Dragging() {
		e.sphere.RotX += e.cfg.Loop.IdleSpinX
		e.sphere.RotY += e.cfg.Loop.IdleSpinY
	}

	e.cam.Update(dt)
	e.pulseTween.update(&e.pulse, dt)
	if e.fps != nil {
		e.fps.update(dt)
	}
}

// Draw implements ebiten.Game.
func (e *Engine) Draw(screen *ebiten.Image) {
	if e.disposed {
		return
	}
	e.drawScene(screen)
	if e.fps != nil {
		e.fps.draw(screen)
	}
}

// Layout implements ebiten.Game. A size change rebuilds the sphere for the
// recomputed target radius and reapplies the active texture.
func (e *Engine) Layout(outsideWidth, outsideHeight int) (int, int) {
	if outsideWidth != e.w || outsideHeight != e.h {
		e.resize(outsideWidth, outsideHeight)
	}
	return outsideWidth, outsideHeight
}

func (e *Engine) resize(w, h int) {
	if w < 1 || h < 1 {
		return
	}
	e.w, e.h = w, h
	e.cam.Resize(float64(w), float64(h))

	old := e.sphere
	s := NewSphere(e.cam.FitRadius(e.cfg.Sphere.MinRadius), e.cfg.Sphere, e.cfg.Physics)
	s.RotX, s.RotY = old.RotX, old.RotY // orientation survives the rebuild
	e.sphere = s
	e.ctrl.setSphere(s)

	// Fresh cells carry no texture views; the previous texture has nothing
	// valid to serve.
	e.prev = nil
	if e.current.Ready() {
		e.sched.Begin(s, e.cam, e.current.Width, e.current.Height)
		if e.revealed {
			s.Reveal(0.4)
		}
	}
	debugf("resize %dx%d: radius %.2f, %d cells", w, h, s.Radius, len(s.Cells))
}

// Dispose tears the engine down: pending loads are cancelled, every texture
// handle is released, and later Update/Draw calls become no-ops so nothing
// mutates disposed state.
func (e *Engine) Dispose() {
	if e.disposed {
		return
	}
	e.disposed = true
	e.pool.Dispose()
	e.current = nil
	e.prev = nil
	e.OnAdvance = nil
}

// RunConfig configures the window created by Run.
type RunConfig struct {
	Title         string
	Width, Height int
	Fullscreen    bool
}

// Run creates a resizable window and runs the engine until the window
// closes, then disposes it. For full control implement ebiten.Game yourself
// and delegate to the Engine methods.
func Run(e *Engine, cfg RunConfig) error {
	if cfg.Width <= 0 {
		cfg.Width = 1280
	}
	if cfg.Height <= 0 {
		cfg.Height = 720
	}
	ebiten.SetWindowTitle(cfg.Title)
	ebiten.SetWindowSize(cfg.Width, cfg.Height)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetFullscreen(cfg.Fullscreen)
	ebiten.SetTPS(e.cfg.Loop.ActiveTPS)

	defer e.Dispose()
	return ebiten.RunGame(e)
}
