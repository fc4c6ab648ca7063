package friendly

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/gif"
	"io"
	"net/http"
	"time"

	_ "image/jpeg"
	_ "image/png"

	"github.com/hajimehoshi/ebiten/v2"
	"golang.org/x/sync/semaphore"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// Failure taxonomy. Decode and format errors are permanent; everything else
// (connection failures, short reads, timeouts under the default policy) is
// transient and retried with linear backoff.
var (
	ErrLoadTimeout       = errors.New("friendly: media load timed out")
	ErrDecode            = errors.New("friendly: media decode failed")
	ErrUnsupportedFormat = errors.New("friendly: unsupported media format")
)

// Resolver maps an opaque media identifier to a loadable address.
// Already-absolute URLs should pass through unchanged.
type Resolver func(id string) string

// Fetcher retrieves the bytes behind a resolved address. The default fetcher
// issues an HTTP GET; tests and embedded-asset callers substitute their own.
type Fetcher func(ctx context.Context, url string) (io.ReadCloser, error)

func httpFetch(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("friendly: fetch %s: status %s", url, resp.Status)
	}
	return resp.Body, nil
}

// MediaResource is one streamable texture source. Stills carry a single
// frame; animated GIFs carry the full frame sequence with per-frame delays
// and play while active.
type MediaResource struct {
	ID    string
	State LoadState

	Frames []*ebiten.Image
	Delays []time.Duration
	Width  int
	Height int

	playhead  int
	playAccum float64
	playing   bool

	retries     int
	lastAttempt time.Time
}

// Ready reports whether decoded frames are available.
func (m *MediaResource) Ready() bool {
	return m != nil && m.State == LoadReady
}

// CurrentFrame returns the frame at the playhead, or nil if not Ready.
func (m *MediaResource) CurrentFrame() *ebiten.Image {
	if !m.Ready() || len(m.Frames) == 0 {
		return nil
	}
	return m.Frames[m.playhead]
}

func (m *MediaResource) start() {
	m.playing = true
}

func (m *MediaResource) stop() {
	m.playing = false
	m.playhead = 0
	m.playAccum = 0
}

// advance moves the playhead according to per-frame delays.
func (m *MediaResource) advance(dt float64) {
	if !m.playing || len(m.Frames) < 2 {
		return
	}
	m.playAccum += dt
	for {
		delay := m.Delays[m.playhead].Seconds()
		if delay <= 0 {
			delay = 0.1
		}
		if m.playAccum < delay {
			return
		}
		m.playAccum -= delay
		m.playhead = (m.playhead + 1) % len(m.Frames)
	}
}

// deallocate releases every frame's texture memory.
func (m *MediaResource) deallocate() {
	for _, f := range m.Frames {
		if f != nil {
			f.Deallocate()
		}
	}
	m.Frames = nil
	m.Delays = nil
}

// pendingLoad is a queued load start, staggered by notBefore.
type pendingLoad struct {
	id        string
	notBefore time.Time
}

// loadResult is posted by loader goroutines and applied on the engine tick.
// Frames are decoded standard-library images; conversion to GPU textures
// happens in Update, on the single logical thread that owns the pool.
type loadResult struct {
	id     string
	frames []image.Image
	delays []time.Duration
	err    error
}

// Pool manages async loading, caching, retry, and eviction of media sources.
//
// All mutation happens on the engine tick: loader goroutines only fetch and
// decode, then post a loadResult that Update applies. User-gesture paths
// (SwitchTo) and completion application therefore never race.
type Pool struct {
	// OnApply fires when a resource becomes the active texture (either a
	// synchronous switch or a completed load-then-apply).
	OnApply func(*MediaResource)
	// OnExhausted fires when the last known identifier is blacklisted.
	OnExhausted func()

	cfg     PoolConfig
	ids     []string // candidate universe, in caller order
	resolve Resolver
	fetch   Fetcher
	clock   func() time.Time

	resources    map[string]*MediaResource
	queue        []pendingLoad
	blacklist    map[string]struct{}
	active       string
	pendingApply string
	lastSwitch   time.Time

	results  chan loadResult
	sem      *semaphore.Weighted
	ctx      context.Context
	cancel   context.CancelFunc
	disposed bool
}

// NewPool creates a pool over the given ordered identifier list. Nothing is
// loaded until Preload or Request is called.
func NewPool(cfg PoolConfig, ids []string, resolve Resolver) *Pool {
	if cfg.MaxConcurrent < 1 {
		cfg.MaxConcurrent = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		cfg:       cfg,
		ids:       append([]string(nil), ids...),
		resolve:   resolve,
		fetch:     httpFetch,
		clock:     time.Now,
		resources: make(map[string]*MediaResource),
		blacklist: make(map[string]struct{}),
		results:   make(chan loadResult, len(ids)+8),
		sem:       semaphore.NewWeighted(cfg.MaxConcurrent),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// SetFetcher replaces the byte-source used for loads. Queued loads only
// start inside Update, so calling this right after construction is safe.
func (p *Pool) SetFetcher(f Fetcher) {
	p.fetch = f
}

// Preload enqueues every known identifier with a fixed inter-item stagger so
// a cold start does not saturate the network.
func (p *Pool) Preload() {
	at := p.clock()
	for _, id := range p.ids {
		if p.Request(id) != nil {
			// Request enqueued it for "now"; push the start back to its
			// stagger slot.
			p.retime(id, at)
		}
		at = at.Add(p.cfg.StaggerDelay)
	}
}

// Request returns the resource for id, creating and enqueueing it on first
// reference. Requesting an id that is already Loading or queued never starts
// a second load; a blacklisted id returns nil.
func (p *Pool) Request(id string) *MediaResource {
	if p.disposed {
		return nil
	}
	if _, bad := p.blacklist[id]; bad {
		return nil
	}
	if res, ok := p.resources[id]; ok {
		return res
	}
	res := &MediaResource{ID: id}
	p.resources[id] = res
	p.enqueue(id, p.clock())
	return res
}

// Peek returns the resource for id without creating or enqueueing anything.
func (p *Pool) Peek(id string) *MediaResource {
	return p.resources[id]
}

// Invalidate marks a Ready resource as Unloaded and releases its frames so a
// later Request reloads it. Ready resources are never re-queued otherwise.
func (p *Pool) Invalidate(id string) {
	res, ok := p.resources[id]
	if !ok {
		return
	}
	res.deallocate()
	res.State = LoadUnloaded
	res.retries = 0
	p.enqueue(id, p.clock())
}

// SwitchTo makes id the active texture. A Ready target swaps instantly:
// previous playback stops, the new resource starts, and OnApply fires for
// texture reassignment. Otherwise the load is (re)requested and applied when
// it completes. Requests inside the debounce window are dropped, not queued.
// Returns whether a synchronous swap happened.
func (p *Pool) SwitchTo(id string) bool {
	now := p.clock()
	if !p.lastSwitch.IsZero() && now.Sub(p.lastSwitch) < p.cfg.SwitchDebounce {
		return false
	}
	res := p.Request(id)
	if res == nil {
		return false
	}
	p.lastSwitch = now
	if res.Ready() {
		p.apply(res)
		return true
	}
	p.pendingApply = id
	return false
}

// Active returns the currently applied resource, or nil.
func (p *Pool) Active() *MediaResource {
	if p.active == "" {
		return nil
	}
	return p.resources[p.active]
}

// ActiveID returns the identifier of the active resource ("" if none).
func (p *Pool) ActiveID() string {
	return p.active
}

// Candidates returns the identifiers not yet blacklisted, in caller order.
func (p *Pool) Candidates() []string {
	out := make([]string, 0, len(p.ids))
	for _, id := range p.ids {
		if _, bad := p.blacklist[id]; !bad {
			out = append(out, id)
		}
	}
	return out
}

// Exhausted reports total failure: every known identifier is blacklisted.
// The caller should fall back to the placeholder material; Reset recovers.
func (p *Pool) Exhausted() bool {
	return len(p.ids) > 0 && len(p.blacklist) >= len(p.ids)
}

// Reset clears the blacklist and failed states so loading can be retried
// after total exhaustion (e.g. on a user-initiated retry gesture).
func (p *Pool) Reset() {
	p.blacklist = make(map[string]struct{})
	at := p.clock()
	for _, id := range p.ids {
		if res, ok := p.resources[id]; ok && res.State == LoadFailed {
			res.State = LoadUnloaded
			res.retries = 0
			p.enqueue(id, at)
			at = at.Add(p.cfg.StaggerDelay)
		}
	}
}

// Update is the pool's single per-tick entry point: it applies completed
// loads, starts due queued loads within the concurrency bound, and advances
// active playback. Call once per engine tick.
func (p *Pool) Update(dt float64) {
	if p.disposed {
		return
	}

drain:
	for {
		select {
		case r := <-p.results:
			p.applyResult(r)
		default:
			break drain
		}
	}

	p.startDue()

	if a := p.Active(); a != nil {
		a.advance(dt)
	}
}

// Dispose cancels in-flight loads, releases every texture, and detaches the
// pool. No handle outlives it; further calls are no-ops.
func (p *Pool) Dispose() {
	if p.disposed {
		return
	}
	p.disposed = true
	p.cancel()
	for _, res := range p.resources {
		res.deallocate()
	}
	p.resources = make(map[string]*MediaResource)
	p.queue = nil
	p.OnApply = nil
	p.OnExhausted = nil
}

// --- internals ---

func (p *Pool) apply(res *MediaResource) {
	if prev := p.Active(); prev != nil && prev != res {
		prev.stop()
	}
	res.start()
	p.active = res.ID
	p.pendingApply = ""
	if p.OnApply != nil {
		p.OnApply(res)
	}
}

func (p *Pool) enqueue(id string, notBefore time.Time) {
	if _, bad := p.blacklist[id]; bad {
		return
	}
	if res, ok := p.resources[id]; ok && (res.State == LoadReady || res.State == LoadLoading) {
		return
	}
	for _, q := range p.queue {
		if q.id == id {
			return
		}
	}
	p.queue = append(p.queue, pendingLoad{id: id, notBefore: notBefore})
}

// retime pushes an already-queued id's start to notBefore.
func (p *Pool) retime(id string, notBefore time.Time) {
	for i := range p.queue {
		if p.queue[i].id == id {
			p.queue[i].notBefore = notBefore
			return
		}
	}
}

// startDue launches loads whose stagger slot has arrived, bounded by the
// concurrency semaphore. Entries that can't acquire a slot stay queued.
func (p *Pool) startDue() {
	now := p.clock()
	remaining := p.queue[:0]
	for _, q := range p.queue {
		res, ok := p.resources[q.id]
		if !ok || res.State != LoadUnloaded {
			continue // blacklisted or invalidated away in the meantime
		}
		if now.Before(q.notBefore) || !p.sem.TryAcquire(1) {
			remaining = append(remaining, q)
			continue
		}
		res.State = LoadLoading
		res.lastAttempt = now
		go p.load(q.id)
	}
	p.queue = remaining
}

// load runs in a goroutine: fetch, read, decode, post. No pool state is
// touched here beyond the results channel.
func (p *Pool) load(id string) {
	defer p.sem.Release(1)

	ctx, cancel := context.WithTimeout(p.ctx, p.cfg.LoadTimeout)
	defer cancel()

	frames, delays, err := p.fetchAndDecode(ctx, id)
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		err = ErrLoadTimeout
	}

	select {
	case p.results <- loadResult{id: id, frames: frames, delays: delays, err: err}:
	case <-p.ctx.Done():
	}
}

func (p *Pool) fetchAndDecode(ctx context.Context, id string) ([]image.Image, []time.Duration, error) {
	url := id
	if p.resolve != nil {
		url = p.resolve(id)
	}
	rc, err := p.fetch(ctx, url)
	if err != nil {
		return nil, nil, err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, nil, err
	}
	return decodeFrames(data)
}

// applyResult applies a completed load on the tick. Idempotency guards: a
// second completion for an id already Ready or blacklisted is ignored.
func (p *Pool) applyResult(r loadResult) {
	res, ok := p.resources[r.id]
	if !ok {
		return
	}
	if _, bad := p.blacklist[r.id]; bad {
		return
	}
	if res.State == LoadReady {
		return
	}

	if r.err != nil {
		p.fail(res, r.err)
		return
	}

	res.Frames = make([]*ebiten.Image, len(r.frames))
	for i, f := range r.frames {
		res.Frames[i] = ebiten.NewImageFromImage(f)
	}
	res.Delays = r.delays
	if len(r.frames) > 0 {
		b := r.frames[0].Bounds()
		res.Width, res.Height = b.Dx(), b.Dy()
	}
	res.State = LoadReady
	debugf("media %q ready (%d frame(s), %dx%d, %d retries)",
		res.ID, len(res.Frames), res.Width, res.Height, res.retries)

	if p.pendingApply == res.ID {
		p.apply(res)
	} else if p.active == "" && p.pendingApply == "" {
		// First texture to land becomes the initial active source.
		p.apply(res)
	}
}

// fail classifies a load error: permanent failures blacklist the identifier;
// transient ones retry with linear backoff up to the configured limit.
func (p *Pool) fail(res *MediaResource, err error) {
	permanent := errors.Is(err, ErrDecode) || errors.Is(err, ErrUnsupportedFormat)
	if errors.Is(err, ErrLoadTimeout) && !p.cfg.RetryTimeouts {
		permanent = true
	}

	if !permanent && res.retries < p.cfg.MaxRetries {
		res.retries++
		res.State = LoadUnloaded
		backoff := time.Duration(res.retries) * p.cfg.RetryBackoff
		p.enqueue(res.ID, p.clock().Add(backoff))
		debugf("media %q failed (%v), retry %d/%d in %v",
			res.ID, err, res.retries, p.cfg.MaxRetries, backoff)
		return
	}

	res.State = LoadFailed
	p.blacklist[res.ID] = struct{}{}
	if p.pendingApply == res.ID {
		p.pendingApply = ""
	}
	// Invariant: an id is never in both the queue and the blacklist.
	remaining := p.queue[:0]
	for _, q := range p.queue {
		if q.id != res.ID {
			remaining = append(remaining, q)
		}
	}
	p.queue = remaining
	debugf("media %q blacklisted: %v", res.ID, err)

	if p.Exhausted() && p.OnExhausted != nil {
		p.OnExhausted()
	}
}

// decodeFrames decodes a media payload. Animated GIFs become composited
// multi-frame sequences; everything else decodes as a single still.
func decodeFrames(data []byte) ([]image.Image, []time.Duration, error) {
	if len(data) > 3 && bytes.HasPrefix(data, []byte("GIF8")) {
		g, err := gif.DecodeAll(bytes.NewReader(data))
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrDecode, err)
		}
		return compositeGIF(g)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil, nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
		}
		return nil, nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return []image.Image{img}, []time.Duration{0}, nil
}

// compositeGIF flattens GIF frames onto a shared canvas so partial-frame
// encodings render correctly.
func compositeGIF(g *gif.GIF) ([]image.Image, []time.Duration, error) {
	if len(g.Image) == 0 {
		return nil, nil, fmt.Errorf("%w: gif has no frames", ErrDecode)
	}
	bounds := image.Rect(0, 0, g.Config.Width, g.Config.Height)
	if bounds.Empty() {
		bounds = g.Image[0].Bounds()
	}
	canvas := image.NewRGBA(bounds)
	frames := make([]image.Image, 0, len(g.Image))
	delays := make([]time.Duration, 0, len(g.Image))
	for i, src := range g.Image {
		draw.Draw(canvas, src.Bounds(), src, src.Bounds().Min, draw.Over)
		frame := image.NewRGBA(bounds)
		copy(frame.Pix, canvas.Pix)
		frames = append(frames, frame)
		delay := time.Duration(g.Delay[i]) * 10 * time.Millisecond
		delays = append(delays, delay)
	}
	return frames, delays, nil
}
