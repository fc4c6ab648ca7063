package friendly

// CellState identifies the animation phase of a cell. Transitions are
// performed exclusively by Sphere.Step; every other component reads it.
type CellState uint8

const (
	CellIdle      CellState = iota // at rest: zero offset, zero angle, full opacity
	CellActive                     // under direct pointer influence
	CellTrailing                   // pointer left the influence radius; residual spin decaying
	CellReturning                  // spring-damped recovery toward rest
	CellExploding                  // high-velocity burst displacement
)

// String returns the state name for debug output.
func (s CellState) String() string {
	switch s {
	case CellIdle:
		return "Idle"
	case CellActive:
		return "Active"
	case CellTrailing:
		return "Trailing"
	case CellReturning:
		return "Returning"
	case CellExploding:
		return "Exploding"
	default:
		return "Unknown"
	}
}

// LoadState identifies where a media resource is in its load lifecycle.
type LoadState uint8

const (
	LoadUnloaded LoadState = iota // known but never started
	LoadLoading                   // a load is in flight
	LoadReady                     // decoded frames are available
	LoadFailed                    // permanently failed (blacklisted)
)

// String returns the load state name for debug output.
func (s LoadState) String() string {
	switch s {
	case LoadUnloaded:
		return "Unloaded"
	case LoadLoading:
		return "Loading"
	case LoadReady:
		return "Ready"
	case LoadFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Color represents an RGBA color with components in [0, 1]. Not premultiplied.
// Premultiplication occurs at render submission time.
type Color struct {
	R, G, B, A float64
}

// ColorWhite is the default tint (no color modification).
var ColorWhite = Color{1, 1, 1, 1}

// PointerInput is one frame of sampled pointer state, in screen pixels.
// The engine fills it from the Ebitengine device each tick; tests construct
// it directly to drive the interaction controller.
type PointerInput struct {
	X, Y    float64
	Pressed bool    // primary button held
	WheelY  float64 // scroll delta this frame
	Now     float64 // monotonic time in seconds
}
