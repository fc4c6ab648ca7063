package friendly

import (
	"image/color"
	"math"
	"sort"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

var worldUp = Vec3{0, 1, 0}

// backfaceCull drops cells whose outward normal points this far away from
// the camera (normalized dot). Slightly past the horizon so lifted cells on
// the rim stay visible.
const backfaceCull = -0.2

// shadeColor is the fixed material of a cell's non-front faces: when a flip
// shows the cell's back, this is what renders, unanimated and fully opaque.
var shadeColor = Color{R: 0.13, G: 0.14, B: 0.17, A: 1}

// placeholderColor is the flat material of the no-texture fallback sphere.
var placeholderColor = Color{R: 0.52, G: 0.56, B: 0.64, A: 1}

// whitePixel singleton for untextured quads (no sync.Once — friendly is
// single-threaded).
var whitePixelImage *ebiten.Image

func ensureWhitePixel() *ebiten.Image {
	if whitePixelImage == nil {
		whitePixelImage = ebiten.NewImage(1, 1)
		whitePixelImage.Fill(color.RGBA{R: 255, G: 255, B: 255, A: 255})
	}
	return whitePixelImage
}

// cellQuad is one projected cell ready for submission, batched by source
// image after the painter sort.
type cellQuad struct {
	verts [4]ebiten.Vertex
	img   *ebiten.Image
	depth float64
}

// pulseAnim ping-pongs the placeholder brightness with an eased tween.
type pulseAnim struct {
	tw   *gween.Tween
	down bool
}

func (a *pulseAnim) update(v *float64, dt float64) {
	if a.tw == nil {
		a.tw = gween.New(1, 0.55, 1.6, ease.InOutSine)
		a.down = true
	}
	val, done := a.tw.Update(float32(dt))
	*v = float64(val)
	if done {
		if a.down {
			a.tw = gween.New(0.55, 1, 1.6, ease.InOutSine)
		} else {
			a.tw = gween.New(1, 0.55, 1.6, ease.InOutSine)
		}
		a.down = !a.down
	}
}

// drawScene projects every cell, sorts back-to-front, and submits textured
// quads in batches grouped by source image.
func (e *Engine) drawScene(screen *ebiten.Image) {
	var stats drawStats
	var t0 time.Time
	if globalDebug {
		t0 = time.Now()
	}

	s := e.sphere
	cam := e.cam
	camPos := cam.Position()
	gen := e.sched.Generation()

	placeholder := e.pool.Exhausted() || !e.current.Ready()
	var curFrame, prevFrame *ebiten.Image
	if !placeholder {
		curFrame = e.current.CurrentFrame()
		if e.prev.Ready() {
			prevFrame = e.prev.CurrentFrame()
		}
	}

	half := e.cfg.Sphere.CellSize / 2
	e.quads = e.quads[:0]

	for i := range s.Cells {
		c := &s.Cells[i]
		stats.cellCount++

		center := orient(c.Position.Add(c.offset), s.RotX, s.RotY)
		normal := orient(c.Normal, s.RotX, s.RotY)
		toCam := camPos.Sub(center).Normalize()

		if normal.Dot(toCam) < backfaceCull {
			stats.culledCount++
			continue
		}

		// Tangent frame: t1 is the flip axis, t2 spans the cell vertically.
		t1 := worldUp.Cross(normal).Normalize()
		if t1.IsZero() {
			t1 = Vec3{1, 0, 0} // polar cell: any horizontal axis works
		}
		t2 := normal.Cross(t1)

		// Rotate the face about t1 by the cell's flip angle.
		sinA, cosA := math.Sincos(c.angle)
		t2f := t2.Scale(cosA).Add(normal.Scale(sinA))
		faceNormal := normal.Scale(cosA).Sub(t2.Scale(sinA))
		front := faceNormal.Dot(toCam) > 0

		a := t1.Scale(half)
		b := t2f.Scale(half)
		corners := [4]Vec3{
			center.Sub(a).Add(b), // top-left
			center.Add(a).Add(b), // top-right
			center.Add(a).Sub(b), // bottom-right
			center.Sub(a).Sub(b), // bottom-left
		}

		var q cellQuad
		ok := true
		for j, corner := range corners {
			x, y, _, pOK := cam.Project(corner)
			if !pOK {
				ok = false
				break
			}
			q.verts[j].DstX = float32(x)
			q.verts[j].DstY = float32(y)
		}
		if !ok {
			stats.culledCount++
			continue
		}
		_, _, q.depth, _ = cam.Project(center)

		var tint Color
		alpha := 1.0
		switch {
		case placeholder:
			// Flat fallback sphere: lambert-ish shade times the soft pulse,
			// so it still reads as a lit, breathing volume.
			facing := math.Max(0, normal.Dot(toCam))
			shade := e.pulse * (0.35 + 0.65*facing)
			tint = Color{
				R: placeholderColor.R * shade,
				G: placeholderColor.G * shade,
				B: placeholderColor.B * shade,
				A: 1,
			}
			alpha = c.opacity
			q.img = ensureWhitePixel()
			setQuadUV(&q, 0, 0, 1, 1)

		case !front:
			// The cell shows its back: fixed shade material, opacity does
			// not apply (only the front face animates opacity).
			tint = shadeColor
			q.img = ensureWhitePixel()
			setQuadUV(&q, 0, 0, 1, 1)

		case c.texGen == gen && curFrame != nil:
			tint = ColorWhite
			alpha = c.opacity
			q.img = curFrame
			setQuadUV(&q, c.srcX, c.srcY, c.srcW, c.srcH)

		case prevFrame != nil && c.texGen == e.prevGen && c.texGen != 0:
			// Not yet reached by the current reassignment job: keep the
			// last-good view instead of flashing.
			tint = ColorWhite
			alpha = c.opacity
			q.img = prevFrame
			setQuadUV(&q, c.srcX, c.srcY, c.srcW, c.srcH)

		default:
			// No valid view yet (fresh sphere, first job in flight).
			facing := math.Max(0, normal.Dot(toCam))
			shade := 0.35 + 0.65*facing
			tint = Color{
				R: placeholderColor.R * shade,
				G: placeholderColor.G * shade,
				B: placeholderColor.B * shade,
				A: 1,
			}
			alpha = c.opacity
			q.img = ensureWhitePixel()
			setQuadUV(&q, 0, 0, 1, 1)
		}

		// Premultiplied vertex colors, alpha baked in.
		cr := float32(tint.R * alpha)
		cg := float32(tint.G * alpha)
		cb := float32(tint.B * alpha)
		ca := float32(tint.A * alpha)
		for j := range q.verts {
			q.verts[j].ColorR = cr
			q.verts[j].ColorG = cg
			q.verts[j].ColorB = cb
			q.verts[j].ColorA = ca
		}

		e.quads = append(e.quads, q)
	}

	// Painter's order: far cells first so near cells composite over them.
	sort.Slice(e.quads, func(a, b int) bool {
		return e.quads[a].depth > e.quads[b].depth
	})

	if globalDebug {
		stats.projectTime = time.Since(t0)
		t0 = time.Now()
	}

	e.submitQuads(screen)

	if globalDebug {
		stats.submitTime = time.Since(t0)
		stats.quadCount = len(e.quads)
		stats.log()
	}
}

// setQuadUV assigns source texel coordinates to the quad's corners in
// top-left, top-right, bottom-right, bottom-left order.
func setQuadUV(q *cellQuad, sx, sy, sw, sh float32) {
	q.verts[0].SrcX, q.verts[0].SrcY = sx, sy
	q.verts[1].SrcX, q.verts[1].SrcY = sx+sw, sy
	q.verts[2].SrcX, q.verts[2].SrcY = sx+sw, sy+sh
	q.verts[3].SrcX, q.verts[3].SrcY = sx, sy+sh
}

// submitQuads flushes the sorted quads in runs that share a source image,
// one DrawTriangles call per run.
func (e *Engine) submitQuads(screen *ebiten.Image) {
	e.vertBuf = e.vertBuf[:0]
	e.indBuf = e.indBuf[:0]

	var runImg *ebiten.Image
	flush := func() {
		if len(e.indBuf) == 0 || runImg == nil {
			return
		}
		screen.DrawTriangles(e.vertBuf, e.indBuf, runImg, &ebiten.DrawTrianglesOptions{})
		e.vertBuf = e.vertBuf[:0]
		e.indBuf = e.indBuf[:0]
	}

	for i := range e.quads {
		q := &e.quads[i]
		if q.img != runImg {
			flush()
			runImg = q.img
		}
		base := uint16(len(e.vertBuf))
		e.vertBuf = append(e.vertBuf, q.verts[0], q.verts[1], q.verts[2], q.verts[3])
		e.indBuf = append(e.indBuf, base, base+1, base+2, base, base+2, base+3)
	}
	flush()
}
