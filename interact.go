package friendly

import (
	"math"
	"math/rand/v2"
)

// velocityWindow bounds the pointer history used for velocity smoothing.
const velocityWindow = 5

// pointerSample is one timestamped pointer position.
type pointerSample struct {
	x, y, t float64
}

// Controller translates pointer input into per-cell activation and global
// sphere rotation. Hit-testing is done against an invisible collision sphere
// of the field radius; hits are rotated into the sphere's model space before
// any distance comparison, so activation stays correct under arbitrary
// accumulated rotation.
type Controller struct {
	cam    *Camera
	sphere *Sphere
	pool   *Pool
	cfg    LoopConfig

	pressed        bool
	dragging       bool
	pressX, pressY float64
	lastX, lastY   float64

	samples     [velocityWindow]pointerSample
	sampleLen   int
	sampleAt    int
	lastSampleT float64

	lastHit Vec3
	hasHit  bool

	wheelAccum float64
	onAdvance  func()

	pick func(n int) int // candidate selection; swapped out in tests
}

func newController(cam *Camera, sphere *Sphere, pool *Pool, cfg LoopConfig) *Controller {
	return &Controller{
		cam:    cam,
		sphere: sphere,
		pool:   pool,
		cfg:    cfg,
		pick:   rand.IntN,
	}
}

// setSphere repoints the controller after a resize rebuild.
func (ic *Controller) setSphere(s *Sphere) {
	ic.sphere = s
}

// Dragging reports whether a drag is in progress. The engine uses this to
// pick its update rate.
func (ic *Controller) Dragging() bool {
	return ic.dragging
}

// Step processes one frame of pointer input: velocity sampling, drag/hover
// disambiguation, activation, click, and the advance gesture, in that order.
func (ic *Controller) Step(in PointerInput) {
	ic.sample(in)

	ic.wheelAccum += in.WheelY
	if math.Abs(ic.wheelAccum) >= ic.cfg.WheelAdvance {
		ic.wheelAccum = 0
		if ic.onAdvance != nil {
			ic.onAdvance()
		}
	}

	switch {
	case in.Pressed && !ic.pressed:
		ic.pressed = true
		ic.dragging = false
		ic.pressX, ic.pressY = in.X, in.Y

	case in.Pressed:
		if !ic.dragging {
			dx := in.X - ic.pressX
			dy := in.Y - ic.pressY
			if dx*dx+dy*dy > ic.cfg.DragDeadZone*ic.cfg.DragDeadZone {
				ic.dragging = true
			}
		}
		if ic.dragging {
			// Proportional mapping, no inertia.
			ic.sphere.RotY += (in.X - ic.lastX) * ic.cfg.DragFactor
			ic.sphere.RotX += (in.Y - ic.lastY) * ic.cfg.DragFactor
		}

	case ic.pressed:
		ic.pressed = false
		if !ic.dragging {
			ic.click()
		}
		ic.dragging = false
	}

	// Hover activation is suppressed while the button is held.
	if !in.Pressed {
		if hit, ok := ic.hitTest(in.X, in.Y); ok {
			ic.lastHit = hit
			ic.hasHit = true
			ic.sphere.Activate(hit, ic.speed())
		} else {
			ic.hasHit = false
		}
	}

	ic.lastX, ic.lastY = in.X, in.Y
}

// sample records the pointer position into the bounded history, rate-limited
// so velocity smoothing stays cheap regardless of event frequency.
func (ic *Controller) sample(in PointerInput) {
	if ic.cfg.SampleHz <= 0 {
		return
	}
	if ic.sampleLen > 0 && in.Now-ic.lastSampleT < 1/ic.cfg.SampleHz {
		return
	}
	ic.lastSampleT = in.Now
	ic.samples[ic.sampleAt] = pointerSample{x: in.X, y: in.Y, t: in.Now}
	ic.sampleAt = (ic.sampleAt + 1) % velocityWindow
	if ic.sampleLen < velocityWindow {
		ic.sampleLen++
	}
}

// speed returns the smoothed pointer speed in pixels per second: total path
// length over the sample window divided by its time span.
func (ic *Controller) speed() float64 {
	if ic.sampleLen < 2 {
		return 0
	}
	oldest := (ic.sampleAt - ic.sampleLen + velocityWindow*2) % velocityWindow
	var dist float64
	prev := ic.samples[oldest]
	first := prev
	var last pointerSample
	for i := 1; i < ic.sampleLen; i++ {
		cur := ic.samples[(oldest+i)%velocityWindow]
		dx := cur.x - prev.x
		dy := cur.y - prev.y
		dist += math.Sqrt(dx*dx + dy*dy)
		prev = cur
		last = cur
	}
	span := last.t - first.t
	if span <= 0 {
		return 0
	}
	return dist / span
}

// hitTest casts a ray through the screen pixel against the collision sphere
// and returns the hit point in the sphere's model space.
func (ic *Controller) hitTest(px, py float64) (Vec3, bool) {
	o, d := ic.cam.ScreenRay(px, py)
	r := ic.sphere.Radius

	// |o + t*d|² = r², with d unit length.
	b := o.Dot(d)
	c := o.Dot(o) - r*r
	disc := b*b - c
	if disc < 0 {
		return Vec3{}, false
	}
	t := -b - math.Sqrt(disc)
	if t < 0 {
		return Vec3{}, false
	}
	world := o.Add(d.Scale(t))
	return unorient(world, ic.sphere.RotX, ic.sphere.RotY), true
}

// click requests a media switch: a Ready candidate different from the active
// source swaps instantly; otherwise a random not-yet-blacklisted identifier
// (different from the current one when more than one exists) is loaded and
// applied on completion.
func (ic *Controller) click() {
	cands := ic.pool.Candidates()
	if len(cands) == 0 {
		return
	}
	active := ic.pool.ActiveID()

	ready := cands[:0:0]
	others := cands[:0:0]
	for _, id := range cands {
		if id == active {
			continue
		}
		others = append(others, id)
		if ic.pool.Peek(id).Ready() {
			ready = append(ready, id)
		}
	}

	switch {
	case len(ready) > 0:
		ic.pool.SwitchTo(ready[ic.pick(len(ready))])
	case len(others) > 0:
		ic.pool.SwitchTo(others[ic.pick(len(others))])
	default:
		// Single known source: re-request it rather than doing nothing.
		ic.pool.SwitchTo(cands[0])
	}
}
