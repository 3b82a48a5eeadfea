package tether

import (
	"github.com/go-gl/mathgl/mgl32"
)

// ColliderOptions carries the optional per-collider attach parameters.
// All fields default to "unset". If both Quaternion and Rotation are
// supplied, the explicit quaternion wins; Rotation is XYZ euler angles in
// radians. Unset material fields fall back to the engine defaults.
type ColliderOptions struct {
	Position   *mgl32.Vec3
	Rotation   *mgl32.Vec3
	Quaternion *mgl32.Quat

	Friction    *float32
	Restitution *float32
	Density     *float32

	// Collision callbacks. Presence of either marks the collider as a
	// contact-event source.
	OnCollideBegin func(CollisionEvent)
	OnCollideEnd   func(CollisionEvent)
}

// resolveOffset turns the option's position/rotation fields into the
// descriptor's local offset pose.
func (o ColliderOptions) resolveOffset() Pose {
	pose := IdentityPose()
	if o.Position != nil {
		pose.Position = *o.Position
	}
	switch {
	case o.Quaternion != nil:
		pose.Rotation = o.Quaternion.Normalize()
	case o.Rotation != nil:
		pose.Rotation = mgl32.AnglesToQuat(o.Rotation.X(), o.Rotation.Y(), o.Rotation.Z(), mgl32.XYZ)
	}
	return pose
}

func (o ColliderOptions) apply(desc *ColliderDesc) *ColliderDesc {
	desc.Offset = o.resolveOffset()
	desc.Friction = o.Friction
	desc.Restitution = o.Restitution
	desc.Density = o.Density
	desc.OnBegin = o.OnCollideBegin
	desc.OnEnd = o.OnCollideEnd
	desc.Events = o.OnCollideBegin != nil || o.OnCollideEnd != nil
	return desc
}

// BoxDescriptor builds a box collider from full edge lengths; the engine
// works in half-extents. Returns nil for degenerate dimensions.
func BoxDescriptor(size mgl32.Vec3, opts ColliderOptions) *ColliderDesc {
	if size.X() <= 0 || size.Y() <= 0 || size.Z() <= 0 {
		return nil
	}
	return opts.apply(&ColliderDesc{
		Shape:       ShapeBox,
		HalfExtents: size.Mul(0.5),
	})
}

func SphereDescriptor(radius float32, opts ColliderOptions) *ColliderDesc {
	if radius <= 0 {
		return nil
	}
	return opts.apply(&ColliderDesc{
		Shape:  ShapeSphere,
		Radius: radius,
	})
}

// CylinderDescriptor builds a cylinder from full height and radius.
func CylinderDescriptor(height, radius float32, opts ColliderOptions) *ColliderDesc {
	if height <= 0 || radius <= 0 {
		return nil
	}
	return opts.apply(&ColliderDesc{
		Shape:      ShapeCylinder,
		Radius:     radius,
		HalfHeight: height * 0.5,
	})
}

// CapsuleDescriptor builds a capsule. height is the cylindrical segment's
// full length, excluding the hemispherical caps.
func CapsuleDescriptor(height, radius float32, opts ColliderOptions) *ColliderDesc {
	if height <= 0 || radius <= 0 {
		return nil
	}
	return opts.apply(&ColliderDesc{
		Shape:      ShapeCapsule,
		Radius:     radius,
		HalfHeight: height * 0.5,
	})
}

func ConeDescriptor(height, radius float32, opts ColliderOptions) *ColliderDesc {
	if height <= 0 || radius <= 0 {
		return nil
	}
	return opts.apply(&ColliderDesc{
		Shape:      ShapeCone,
		Radius:     radius,
		HalfHeight: height * 0.5,
	})
}

// ConvexHullDescriptor passes the raw vertex buffer through unmodified;
// the engine computes the hull itself.
func ConvexHullDescriptor(vertices []mgl32.Vec3, opts ColliderOptions) *ColliderDesc {
	if len(vertices) == 0 {
		return nil
	}
	return opts.apply(&ColliderDesc{
		Shape:    ShapeConvexHull,
		Vertices: vertices,
	})
}

// ConvexMeshDescriptor describes an already-convex triangle mesh.
func ConvexMeshDescriptor(vertices []mgl32.Vec3, indices []uint32, opts ColliderOptions) *ColliderDesc {
	if len(vertices) == 0 || len(indices) == 0 || len(indices)%3 != 0 {
		return nil
	}
	return opts.apply(&ColliderDesc{
		Shape:    ShapeConvexMesh,
		Vertices: vertices,
		Indices:  indices,
	})
}

// TrimeshDescriptor describes an arbitrary (typically static) triangle
// mesh.
func TrimeshDescriptor(vertices []mgl32.Vec3, indices []uint32, opts ColliderOptions) *ColliderDesc {
	if len(vertices) == 0 || len(indices) == 0 || len(indices)%3 != 0 {
		return nil
	}
	return opts.apply(&ColliderDesc{
		Shape:    ShapeTrimesh,
		Vertices: vertices,
		Indices:  indices,
	})
}

func HeightfieldDescriptor(grid *HeightfieldGrid, opts ColliderOptions) *ColliderDesc {
	if grid == nil {
		return nil
	}
	return opts.apply(&ColliderDesc{
		Shape: ShapeHeightfield,
		Field: grid,
	})
}

// boundingHalfExtents computes a conservative axis-aligned half-extent box
// around the descriptor's shape in its local frame (offset not applied).
// Backends use it for broadphase bounds.
func boundingHalfExtents(desc *ColliderDesc) mgl32.Vec3 {
	switch desc.Shape {
	case ShapeBox:
		return desc.HalfExtents
	case ShapeSphere:
		r := desc.Radius
		return mgl32.Vec3{r, r, r}
	case ShapeCylinder, ShapeCone:
		return mgl32.Vec3{desc.Radius, desc.HalfHeight, desc.Radius}
	case ShapeCapsule:
		return mgl32.Vec3{desc.Radius, desc.HalfHeight + desc.Radius, desc.Radius}
	case ShapeConvexHull, ShapeConvexMesh, ShapeTrimesh:
		var ext mgl32.Vec3
		for _, v := range desc.Vertices {
			for a := 0; a < 3; a++ {
				if abs := abs32(v[a]); abs > ext[a] {
					ext[a] = abs
				}
			}
		}
		return ext
	case ShapeHeightfield:
		if desc.Field == nil {
			return mgl32.Vec3{}
		}
		scale := desc.Field.Scale()
		minH, maxH := desc.Field.heightBounds()
		y := abs32(minH * scale.Y())
		if top := abs32(maxH * scale.Y()); top > y {
			y = top
		}
		return mgl32.Vec3{abs32(scale.X()) * 0.5, y, abs32(scale.Z()) * 0.5}
	}
	return mgl32.Vec3{}
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
