package tether

import (
	"fmt"
	"os"

	"github.com/go-gl/mathgl/mgl32"
	"gopkg.in/yaml.v3"
)

const (
	DefaultMaxStepDelta       = 0.1
	DefaultSleepThreshold     = 0.05
	DefaultSleepTime          = 1.0
	DefaultBroadphaseCellSize = 2.0
	DefaultFriction           = 0.5
	DefaultRestitution        = 0.0
	DefaultDensity            = 1.0
)

// WorldConfig tunes a World and its built-in backend.
type WorldConfig struct {
	Gravity            mgl32.Vec3 `yaml:"gravity"`
	MaxStepDelta       float32    `yaml:"max_step_delta"`
	SleepThreshold     float32    `yaml:"sleep_threshold"`
	SleepTime          float32    `yaml:"sleep_time"`
	BroadphaseCellSize float32    `yaml:"broadphase_cell_size"`
	DefaultFriction    float32    `yaml:"default_friction"`
	DefaultRestitution float32    `yaml:"default_restitution"`
	DefaultDensity     float32    `yaml:"default_density"`
}

func DefaultWorldConfig() WorldConfig {
	return WorldConfig{
		Gravity:            mgl32.Vec3{0, -9.81, 0},
		MaxStepDelta:       DefaultMaxStepDelta,
		SleepThreshold:     DefaultSleepThreshold,
		SleepTime:          DefaultSleepTime,
		BroadphaseCellSize: DefaultBroadphaseCellSize,
		DefaultFriction:    DefaultFriction,
		DefaultRestitution: DefaultRestitution,
		DefaultDensity:     DefaultDensity,
	}
}

// worldConfigYAML is the parse-side shadow of WorldConfig. Pointer fields
// distinguish an omitted key from an explicit zero, so zero-valid
// tunables (sleep_threshold, default_friction, default_restitution) can
// be set to zero without the default kicking back in.
type worldConfigYAML struct {
	Gravity            *mgl32.Vec3 `yaml:"gravity"`
	MaxStepDelta       *float32    `yaml:"max_step_delta"`
	SleepThreshold     *float32    `yaml:"sleep_threshold"`
	SleepTime          *float32    `yaml:"sleep_time"`
	BroadphaseCellSize *float32    `yaml:"broadphase_cell_size"`
	DefaultFriction    *float32    `yaml:"default_friction"`
	DefaultRestitution *float32    `yaml:"default_restitution"`
	DefaultDensity     *float32    `yaml:"default_density"`
}

// apply overlays the keys present in the document onto cfg.
func (y worldConfigYAML) apply(cfg *WorldConfig) {
	if y.Gravity != nil {
		cfg.Gravity = *y.Gravity
	}
	if y.MaxStepDelta != nil {
		cfg.MaxStepDelta = *y.MaxStepDelta
	}
	if y.SleepThreshold != nil {
		cfg.SleepThreshold = *y.SleepThreshold
	}
	if y.SleepTime != nil {
		cfg.SleepTime = *y.SleepTime
	}
	if y.BroadphaseCellSize != nil {
		cfg.BroadphaseCellSize = *y.BroadphaseCellSize
	}
	if y.DefaultFriction != nil {
		cfg.DefaultFriction = *y.DefaultFriction
	}
	if y.DefaultRestitution != nil {
		cfg.DefaultRestitution = *y.DefaultRestitution
	}
	if y.DefaultDensity != nil {
		cfg.DefaultDensity = *y.DefaultDensity
	}
}

func (c WorldConfig) Validate() error {
	if c.MaxStepDelta <= 0 {
		return fmt.Errorf("config: max_step_delta must be positive, got %v", c.MaxStepDelta)
	}
	if c.SleepThreshold < 0 {
		return fmt.Errorf("config: sleep_threshold must not be negative, got %v", c.SleepThreshold)
	}
	if c.SleepTime <= 0 {
		return fmt.Errorf("config: sleep_time must be positive, got %v", c.SleepTime)
	}
	if c.BroadphaseCellSize <= 0 {
		return fmt.Errorf("config: broadphase_cell_size must be positive, got %v", c.BroadphaseCellSize)
	}
	if c.DefaultFriction < 0 || c.DefaultFriction > 1 {
		return fmt.Errorf("config: default_friction must be in [0,1], got %v", c.DefaultFriction)
	}
	if c.DefaultRestitution < 0 || c.DefaultRestitution > 1 {
		return fmt.Errorf("config: default_restitution must be in [0,1], got %v", c.DefaultRestitution)
	}
	if c.DefaultDensity <= 0 {
		return fmt.Errorf("config: default_density must be positive, got %v", c.DefaultDensity)
	}
	return nil
}

// LoadWorldConfig reads a YAML world config. Omitted tunables take the
// defaults; omitted gravity means zero-g.
func LoadWorldConfig(path string) (WorldConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return WorldConfig{}, fmt.Errorf("config: %w", err)
	}
	return ParseWorldConfig(data)
}

func ParseWorldConfig(data []byte) (WorldConfig, error) {
	var raw worldConfigYAML
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return WorldConfig{}, fmt.Errorf("config: %w", err)
	}
	cfg := DefaultWorldConfig()
	cfg.Gravity = mgl32.Vec3{}
	raw.apply(&cfg)
	if err := cfg.Validate(); err != nil {
		return WorldConfig{}, err
	}
	return cfg, nil
}

// PresetWorldConfig returns a named baseline: "earth", "moon" or
// "zero-g".
func PresetWorldConfig(name string) (WorldConfig, bool) {
	cfg := DefaultWorldConfig()
	switch name {
	case "earth":
	case "moon":
		cfg.Gravity = mgl32.Vec3{0, -1.62, 0}
	case "zero-g":
		cfg.Gravity = mgl32.Vec3{}
	default:
		return WorldConfig{}, false
	}
	return cfg, true
}
