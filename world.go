package tether

import (
	"errors"

	"github.com/go-gl/mathgl/mgl32"
)

// World owns the engine backend for its whole lifetime: created once,
// closed on shutdown, never shared across threads. Every call is a thin
// pass-through plus the policy decisions the backend should not care
// about (step clamping, logging).
//
// Stepping policy: the render loop's variable frame delta is used as the
// simulation tick, clamped to MaxStepDelta so a frame hitch cannot
// teleport bodies. There is no fixed-step accumulator, so physics results
// are frame-rate dependent; hosts that need determinism can feed Step a
// constant dt.
type World struct {
	engine Engine
	cfg    WorldConfig
	log    Logger
	closed bool
}

// NewWorld initializes a world over the built-in IslandEngine backend.
// Failures surface as EngineInitError.
func NewWorld(cfg WorldConfig, log Logger) (*World, error) {
	engine, err := NewIslandEngine(cfg)
	if err != nil {
		return nil, &EngineInitError{Err: err}
	}
	return NewWorldWithEngine(engine, cfg, log)
}

// NewWorldWithEngine wraps an externally constructed backend. The world
// takes ownership: Close closes the engine.
func NewWorldWithEngine(engine Engine, cfg WorldConfig, log Logger) (*World, error) {
	if engine == nil {
		return nil, &EngineInitError{Err: errors.New("nil engine backend")}
	}
	if err := cfg.Validate(); err != nil {
		return nil, &EngineInitError{Err: err}
	}
	w := &World{
		engine: engine,
		cfg:    cfg,
		log:    orNopLogger(log),
	}
	w.log.Infof("world up: gravity=%v maxStepDelta=%v", cfg.Gravity, cfg.MaxStepDelta)
	return w, nil
}

func (w *World) Gravity() mgl32.Vec3 { return w.cfg.Gravity }

// Step advances the simulation by the given frame delta (seconds),
// clamped to the configured maximum. Contact transitions for this tick
// are queued in the backend until the next DrainContactEvents.
func (w *World) Step(dt float32) {
	if w.closed || dt <= 0 {
		return
	}
	if dt > w.cfg.MaxStepDelta {
		w.log.Debugf("step delta %v clamped to %v", dt, w.cfg.MaxStepDelta)
		dt = w.cfg.MaxStepDelta
	}
	w.engine.Step(dt)
}

func (w *World) CreateBody(desc BodyDesc) (Handle, error) {
	return w.engine.CreateBody(desc)
}

func (w *World) RemoveBody(h Handle) {
	w.engine.RemoveBody(h)
}

func (w *World) CreateCollider(desc ColliderDesc, parent Handle) (Handle, error) {
	return w.engine.CreateCollider(desc, parent)
}

func (w *World) RemoveCollider(h Handle) {
	w.engine.RemoveCollider(h)
}

// ForEachActiveBody visits every body that is neither asleep nor static
// with its post-step pose.
func (w *World) ForEachActiveBody(fn func(h Handle, pose Pose)) {
	w.engine.ForEachActiveBody(fn)
}

// DrainContactEvents empties the backend's contact queue. Call exactly
// once per Step; the frame stepper does.
func (w *World) DrainContactEvents(fn func(a, b Handle, started bool)) {
	w.engine.DrainContactEvents(fn)
}

func (w *World) BodyPose(h Handle) (Pose, bool) {
	return w.engine.BodyPose(h)
}

func (w *World) SetBodyPose(h Handle, pose Pose) {
	w.engine.SetBodyPose(h, pose)
}

// bodyMover is the optional backend capability for velocity-driven
// control. IslandEngine implements it.
type bodyMover interface {
	SetBodyVelocity(h Handle, vel mgl32.Vec3)
	ApplyImpulse(h Handle, impulse mgl32.Vec3)
}

// SetBodyVelocity drives a dynamic or kinematic-velocity body, when the
// backend supports it.
func (w *World) SetBodyVelocity(h Handle, vel mgl32.Vec3) bool {
	mover, ok := w.engine.(bodyMover)
	if !ok {
		return false
	}
	mover.SetBodyVelocity(h, vel)
	return true
}

// ApplyImpulse kicks a dynamic body, when the backend supports it.
func (w *World) ApplyImpulse(h Handle, impulse mgl32.Vec3) bool {
	mover, ok := w.engine.(bodyMover)
	if !ok {
		return false
	}
	mover.ApplyImpulse(h, impulse)
	return true
}

// RaycastHit reports the nearest collider along a ray.
type RaycastHit struct {
	Collider Handle
	Body     Handle // NoHandle for free-standing colliders
	Point    mgl32.Vec3
	Distance float32
}

type rayCaster interface {
	Raycast(origin, dir mgl32.Vec3, maxDist float32) (RaycastHit, bool)
}

// Raycast queries the backend for the nearest hit, false when the backend
// has no ray support or nothing was hit.
func (w *World) Raycast(origin, dir mgl32.Vec3, maxDist float32) (RaycastHit, bool) {
	caster, ok := w.engine.(rayCaster)
	if !ok {
		return RaycastHit{}, false
	}
	return caster.Raycast(origin, dir, maxDist)
}

// Close shuts the backend down. Subsequent Step calls are no-ops.
func (w *World) Close() {
	if w.closed {
		return
	}
	w.closed = true
	w.engine.Close()
	w.log.Infof("world closed")
}
