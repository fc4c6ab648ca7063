package friendly

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every tunable policy of the engine. All thresholds here are
// policy, not contract: embedders are expected to tune them per deployment.
type Config struct {
	Sphere    SphereConfig    `yaml:"sphere"`
	Physics   PhysicsConfig   `yaml:"physics"`
	Pool      PoolConfig      `yaml:"pool"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Loop      LoopConfig      `yaml:"loop"`
}

// SphereConfig controls geometry generation and the camera.
type SphereConfig struct {
	Rings      int     `yaml:"rings"`        // polar bands
	CellSize   float64 `yaml:"cell_size"`    // cell edge length in world units
	MinPerRing int     `yaml:"min_per_ring"` // density floor per ring (doubled at the poles)
	MinRadius  float64 `yaml:"min_radius"`   // lower bound for the resize-derived radius
	FOVDegrees float64 `yaml:"fov_degrees"`  // vertical camera field of view
	CameraDist float64 `yaml:"camera_dist"`  // camera distance from the sphere center
}

// PhysicsConfig controls the per-cell animation model.
type PhysicsConfig struct {
	InfluenceRadius  float64 `yaml:"influence_radius"`  // model-space activation distance
	MaxLift          float64 `yaml:"max_lift"`          // outward offset cap at full intensity
	Stiffness        float64 `yaml:"stiffness"`         // spring constant toward the target offset
	Damping          float64 `yaml:"damping"`           // velocity damping coefficient
	MaxFlipAngle     float64 `yaml:"max_flip_angle"`    // radians at full intensity
	FlipDuration     float64 `yaml:"flip_duration"`     // seconds for a full flip at fixed angular speed
	OpacityRate      float64 `yaml:"opacity_rate"`      // opacity units per second toward target
	TrailDuration    float64 `yaml:"trail_duration"`    // seconds of decaying residual spin
	ReturnDuration   float64 `yaml:"return_duration"`   // seconds of spring recovery before hard reset
	ExplodeDuration  float64 `yaml:"explode_duration"`  // seconds of the burst envelope
	ExplodeDistance  float64 `yaml:"explode_distance"`  // outward displacement cap during a burst
	ExplodeThreshold float64 `yaml:"explode_threshold"` // pointer speed (px/s) that triggers a burst
}

// PoolConfig controls media loading, retry, and switching.
//
// RetryTimeouts is the reviewed severity assumption from the original
// behavior: when true, a load timeout counts as transient (retried like a
// network error); when false it blacklists immediately.
type PoolConfig struct {
	MaxConcurrent  int64         `yaml:"max_concurrent"`  // simultaneous in-flight loads
	LoadTimeout    time.Duration `yaml:"load_timeout"`    // upper bound per load attempt
	StaggerDelay   time.Duration `yaml:"stagger_delay"`   // fixed delay between queued batch starts
	MaxRetries     int           `yaml:"max_retries"`     // transient retries before blacklisting
	RetryBackoff   time.Duration `yaml:"retry_backoff"`   // linear backoff unit (attempt n waits n units)
	SwitchDebounce time.Duration `yaml:"switch_debounce"` // minimum interval between accepted switches
	RetryTimeouts  bool          `yaml:"retry_timeouts"`
}

// SchedulerConfig controls batched texture reassignment.
type SchedulerConfig struct {
	BatchSize       int     `yaml:"batch_size"`       // cells updated per tick
	FacingWeight    float64 `yaml:"facing_weight"`    // weight of camera-facing alignment
	ProximityWeight float64 `yaml:"proximity_weight"` // weight of camera proximity
	CellUVSpan      float64 `yaml:"cell_uv_span"`     // fraction of the texture each cell samples
}

// LoopConfig controls the adaptive render loop and interaction sampling.
type LoopConfig struct {
	ActiveTPS     int           `yaml:"active_tps"`      // update rate while dragging
	IdleTPS       int           `yaml:"idle_tps"`        // update rate otherwise
	MaxStep       time.Duration `yaml:"max_step"`        // physics dt clamp after a stall
	IdleSpinX     float64       `yaml:"idle_spin_x"`     // radians per tick of idle auto-rotation
	IdleSpinY     float64       `yaml:"idle_spin_y"`     // radians per tick of idle auto-rotation
	DragFactor    float64       `yaml:"drag_factor"`     // radians of rotation per pixel of drag
	DragDeadZone  float64       `yaml:"drag_dead_zone"`  // pixels of movement before a press becomes a drag
	SampleHz      float64       `yaml:"sample_hz"`       // pointer velocity sampling rate
	WheelAdvance  float64       `yaml:"wheel_advance"`   // wheel delta that fires the advance signal
	ShowFPS       bool          `yaml:"show_fps"`        // draw the FPS overlay
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		Sphere: SphereConfig{
			Rings:      24,
			CellSize:   0.55,
			MinPerRing: 4,
			MinRadius:  4.0,
			FOVDegrees: 50,
			CameraDist: 16.0,
		},
		Physics: PhysicsConfig{
			InfluenceRadius:  1.6,
			MaxLift:          0.9,
			Stiffness:        120,
			Damping:          12,
			MaxFlipAngle:     3.14159265,
			FlipDuration:     0.45,
			OpacityRate:      2.5,
			TrailDuration:    0.6,
			ReturnDuration:   0.8,
			ExplodeDuration:  0.35,
			ExplodeDistance:  2.2,
			ExplodeThreshold: 1400,
		},
		Pool: PoolConfig{
			MaxConcurrent:  3,
			LoadTimeout:    15 * time.Second,
			StaggerDelay:   120 * time.Millisecond,
			MaxRetries:     2,
			RetryBackoff:   400 * time.Millisecond,
			SwitchDebounce: 300 * time.Millisecond,
			RetryTimeouts:  true,
		},
		Scheduler: SchedulerConfig{
			BatchSize:       25,
			FacingWeight:    0.7,
			ProximityWeight: 0.3,
			CellUVSpan:      0.12,
		},
		Loop: LoopConfig{
			ActiveTPS:    60,
			IdleTPS:      30,
			MaxStep:      33 * time.Millisecond,
			IdleSpinX:    0.0004,
			IdleSpinY:    0.0011,
			DragFactor:   0.006,
			DragDeadZone: 4.0,
			SampleHz:     30,
			WheelAdvance: 2.0,
		},
	}
}

// LoadConfig reads a YAML config file layered over DefaultConfig. Fields
// absent from the file keep their defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("friendly: reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("friendly: parsing config %s: %w", path, err)
	}
	return cfg, nil
}
