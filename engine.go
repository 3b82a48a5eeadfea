package tether

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Handle identifies a simulation entity (body or collider) inside an engine
// backend. Handles are issued by the backend and may be recycled after the
// entity is removed; a body handle and a collider handle can collide
// numerically, so lookups always pair a handle with its entity kind.
type Handle uint32

// NoHandle is the zero handle. Backends never issue it, which lets it double
// as the "no parent body" marker for free-standing colliders.
const NoHandle Handle = 0

type EntityKind int

const (
	KindBody EntityKind = iota
	KindCollider
)

func (k EntityKind) String() string {
	switch k {
	case KindBody:
		return "body"
	case KindCollider:
		return "collider"
	}
	return "unknown"
}

// Pose is a rigid transform: position plus orientation.
type Pose struct {
	Position mgl32.Vec3
	Rotation mgl32.Quat
}

func IdentityPose() Pose {
	return Pose{Rotation: mgl32.QuatIdent()}
}

// BodyKind classifies a rigid body's motion authority.
type BodyKind int

const (
	// BodyDynamic is fully simulated: forces, impulses and contacts move it.
	BodyDynamic BodyKind = iota
	// BodyStatic never moves.
	BodyStatic
	// BodyKinematicVelocity is driven by an externally set velocity. It
	// pushes dynamic bodies but is not pushed back.
	BodyKinematicVelocity
	// BodyKinematicPosition is driven by externally written poses.
	BodyKinematicPosition
)

func (k BodyKind) String() string {
	switch k {
	case BodyDynamic:
		return "dynamic"
	case BodyStatic:
		return "static"
	case BodyKinematicVelocity:
		return "kinematic-velocity"
	case BodyKinematicPosition:
		return "kinematic-position"
	}
	return "unknown"
}

// BodyDesc is the creation description handed to an engine backend.
type BodyDesc struct {
	Kind BodyKind
	Pose Pose
}

type ShapeKind int

const (
	ShapeBox ShapeKind = iota
	ShapeSphere
	ShapeCylinder
	ShapeCapsule
	ShapeCone
	ShapeConvexHull
	ShapeConvexMesh
	ShapeTrimesh
	ShapeHeightfield
)

func (s ShapeKind) String() string {
	switch s {
	case ShapeBox:
		return "box"
	case ShapeSphere:
		return "sphere"
	case ShapeCylinder:
		return "cylinder"
	case ShapeCapsule:
		return "capsule"
	case ShapeCone:
		return "cone"
	case ShapeConvexHull:
		return "convex-hull"
	case ShapeConvexMesh:
		return "convex-mesh"
	case ShapeTrimesh:
		return "trimesh"
	case ShapeHeightfield:
		return "heightfield"
	}
	return "unknown"
}

// ColliderDesc is a fully resolved collision shape description: shape
// parameters, local offset pose, material parameters and the contact-event
// flag. Build one through the shape descriptor constructors in shapes.go
// rather than by hand; the constructors handle unit conversion and option
// resolution.
//
// Material fields are optional. A nil pointer means "use the engine
// default".
type ColliderDesc struct {
	Shape ShapeKind

	// Box.
	HalfExtents mgl32.Vec3

	// Sphere, cylinder, capsule, cone.
	Radius float32
	// Cylinder, capsule, cone.
	HalfHeight float32

	// Convex hull (vertices only), convex mesh and trimesh. The vertex
	// buffer is passed through to the backend unmodified; for a hull the
	// backend computes the hull itself.
	Vertices []mgl32.Vec3
	Indices  []uint32

	// Heightfield.
	Field *HeightfieldGrid

	// Local offset relative to the parent body (or world origin for a
	// free-standing collider).
	Offset Pose

	Friction    *float32
	Restitution *float32
	Density     *float32

	// Events asks the backend to record contact begin/end transitions for
	// this shape.
	Events bool

	// Collision callbacks, consumed at attach time by the collider
	// lifecycle; backends ignore them.
	OnBegin func(CollisionEvent)
	OnEnd   func(CollisionEvent)
}

// ContactEvent is one begin/end transition recorded by an engine backend.
type ContactEvent struct {
	A, B    Handle
	Started bool
}

// Engine is the physics-engine collaborator consumed by SimulationWorld.
// Implementations own the actual simulation state and issue handles that
// stay valid until explicitly removed; removed handles may be recycled.
//
// All methods are single-threaded: they are called from the host loop's
// thread only.
type Engine interface {
	// CreateBody creates a rigid body at the described pose.
	CreateBody(desc BodyDesc) (Handle, error)
	// RemoveBody removes a body and any colliders attached to it, waking
	// sleeping bodies it was in contact with.
	RemoveBody(h Handle)

	// CreateCollider creates a collision shape. parent is the owning body
	// handle, or NoHandle for a free-standing (environment) collider.
	CreateCollider(desc ColliderDesc, parent Handle) (Handle, error)
	// RemoveCollider removes a collider, waking sleeping bodies it was in
	// contact with.
	RemoveCollider(h Handle)

	// Step advances the simulation by dt seconds and records contact
	// transitions for the tick just computed.
	Step(dt float32)

	// ForEachActiveBody visits every body that is neither asleep nor
	// static, in an order that is stable within a tick.
	ForEachActiveBody(fn func(h Handle, pose Pose))

	// DrainContactEvents delivers every contact transition recorded since
	// the previous drain, oldest first, then clears the queue. Transitions
	// are never dropped or delivered twice.
	DrainContactEvents(fn func(a, b Handle, started bool))

	// BodyPose reports the current pose of a body, false if the handle is
	// not live.
	BodyPose(h Handle) (Pose, bool)
	// SetBodyPose teleports a body. Used for kinematic-position bodies and
	// the one-time initial pose sync at attach.
	SetBodyPose(h Handle, pose Pose)

	// Close releases backend resources. The engine is unusable afterwards.
	Close()
}
