package friendly

import (
	"math"
	"testing"

	"github.com/tanema/gween/ease"
)

func TestProjectCenter(t *testing.T) {
	cam := NewCamera(800, 600, 50, 16)
	x, y, depth, ok := cam.Project(Vec3{})
	if !ok {
		t.Fatal("origin did not project")
	}
	if x != 400 || y != 300 {
		t.Errorf("origin projects to (%f, %f), want (400, 300)", x, y)
	}
	if depth != 16 {
		t.Errorf("depth = %f, want 16", depth)
	}
}

func TestProjectAxes(t *testing.T) {
	cam := NewCamera(800, 600, 50, 16)
	x, _, _, ok := cam.Project(Vec3{X: 1})
	if !ok || x <= 400 {
		t.Errorf("+x projects to screen x %f, want > 400", x)
	}
	_, y, _, ok := cam.Project(Vec3{Y: 1})
	if !ok || y >= 300 {
		t.Errorf("+y projects to screen y %f, want < 300 (screen y grows down)", y)
	}
}

func TestProjectBehindCamera(t *testing.T) {
	cam := NewCamera(800, 600, 50, 16)
	if _, _, _, ok := cam.Project(Vec3{Z: 17}); ok {
		t.Error("point behind the camera projected")
	}
	if _, _, _, ok := cam.Project(Vec3{Z: 16}); ok {
		t.Error("point on the camera plane projected")
	}
}

func TestProjectDepthScaling(t *testing.T) {
	cam := NewCamera(800, 600, 50, 16)
	nearX, _, _, _ := cam.Project(Vec3{X: 1, Z: 4})
	farX, _, _, _ := cam.Project(Vec3{X: 1, Z: -4})
	if nearX-400 <= farX-400 {
		t.Errorf("near offset %f not larger than far offset %f", nearX-400, farX-400)
	}
}

func TestScreenRayCenter(t *testing.T) {
	cam := NewCamera(800, 600, 50, 16)
	o, d := cam.ScreenRay(400, 300)
	if !vecNear(o, Vec3{0, 0, 16}, 1e-12) {
		t.Errorf("origin = %v, want (0,0,16)", o)
	}
	if !vecNear(d, Vec3{0, 0, -1}, 1e-12) {
		t.Errorf("center ray = %v, want -z", d)
	}
	if math.Abs(d.Length()-1) > 1e-12 {
		t.Errorf("ray not unit length: %f", d.Length())
	}
}

func TestScreenRayProjectRoundTrip(t *testing.T) {
	cam := NewCamera(800, 600, 50, 16)
	p := Vec3{1.5, -2.0, 3.0}
	px, py, _, ok := cam.Project(p)
	if !ok {
		t.Fatal("point did not project")
	}
	o, d := cam.ScreenRay(px, py)
	// The ray through the projected pixel must pass through the point.
	toP := p.Sub(o)
	if cross := toP.Cross(d); cross.Length() > 1e-9 {
		t.Errorf("ray misses the original point, cross length %g", cross.Length())
	}
}

func TestFitRadius(t *testing.T) {
	cam := NewCamera(800, 600, 50, 16)
	r := cam.FitRadius(1)
	halfV := 16 * math.Tan(cam.FOV/2)
	want := fitFill * halfV // landscape: vertical is the tighter extent
	if math.Abs(r-want) > 1e-9 {
		t.Errorf("FitRadius = %f, want %f", r, want)
	}

	cam.Resize(300, 600)
	if portrait := cam.FitRadius(1); portrait >= r {
		t.Errorf("portrait fit %f not tighter than landscape %f", portrait, r)
	}

	if got := cam.FitRadius(100); got != 100 {
		t.Errorf("FitRadius floor = %f, want 100", got)
	}
}

func TestDollyConverges(t *testing.T) {
	cam := NewCamera(800, 600, 50, 24)
	cam.DollyTo(16, 1.2, ease.OutCubic)

	for i := 0; i < 90; i++ { // 1.5s at 60Hz
		cam.Update(1.0 / 60)
	}
	if math.Abs(cam.Dist-16) > 1e-4 {
		t.Errorf("Dist = %f, want 16", cam.Dist)
	}
	if cam.dolly != nil {
		t.Error("dolly tween not released after completion")
	}
}

func TestPixelScale(t *testing.T) {
	cam := NewCamera(800, 600, 50, 16)
	if s := cam.PixelScale(8); s <= 0 {
		t.Errorf("PixelScale(8) = %f, want > 0", s)
	}
	if s := cam.PixelScale(0); s != 0 {
		t.Errorf("PixelScale(0) = %f, want 0", s)
	}
	if near, far := cam.PixelScale(4), cam.PixelScale(12); near <= far {
		t.Errorf("near scale %f not larger than far scale %f", near, far)
	}
}
