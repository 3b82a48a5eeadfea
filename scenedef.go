package tether

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// ShapeDef is the declarative, tagged-variant form of a collider shape.
// Only the fields for the chosen kind matter; Size is full edge lengths
// and Height the full height, converted by the descriptor factories.
type ShapeDef struct {
	Kind     ShapeKind
	Size     mgl32.Vec3
	Radius   float32
	Height   float32
	Vertices []mgl32.Vec3
	Indices  []uint32
	Grid     *HeightfieldGrid
}

func (d ShapeDef) descriptor(opts ColliderOptions) (*ColliderDesc, error) {
	switch d.Kind {
	case ShapeBox:
		return BoxDescriptor(d.Size, opts), nil
	case ShapeSphere:
		return SphereDescriptor(d.Radius, opts), nil
	case ShapeCylinder:
		return CylinderDescriptor(d.Height, d.Radius, opts), nil
	case ShapeCapsule:
		return CapsuleDescriptor(d.Height, d.Radius, opts), nil
	case ShapeCone:
		return ConeDescriptor(d.Height, d.Radius, opts), nil
	case ShapeConvexHull:
		return ConvexHullDescriptor(d.Vertices, opts), nil
	case ShapeConvexMesh:
		return ConvexMeshDescriptor(d.Vertices, d.Indices, opts), nil
	case ShapeTrimesh:
		return TrimeshDescriptor(d.Vertices, d.Indices, opts), nil
	case ShapeHeightfield:
		return HeightfieldDescriptor(d.Grid, opts), nil
	}
	return nil, fmt.Errorf("scene def: unknown shape kind %d", int(d.Kind))
}

// ColliderDef declares one collider of a body.
type ColliderDef struct {
	Shape   ShapeDef
	Options ColliderOptions
}

// BodyDef declares a physics-enabled scene node: a body kind, the node it
// synchronizes, its colliders and an optional body-level collision
// listener.
type BodyDef struct {
	Kind      BodyKind
	Node      SceneNode
	Colliders []ColliderDef
	OnBegin   func(CollisionEvent)
	OnEnd     func(CollisionEvent)
}

// FreeColliderDef declares a collider with no parent body, e.g. static
// environment geometry.
type FreeColliderDef struct {
	Shape   ShapeDef
	Options ColliderOptions
	Node    SceneNode
}

// SceneDef defines the initial physics state of a scene.
type SceneDef struct {
	Bodies        []BodyDef
	FreeColliders []FreeColliderDef
}

// SpawnScene attaches everything a SceneDef declares and returns the body
// handles in declaration order. On any failure it detaches whatever it
// had already attached, so a failed spawn leaves no simulation footprint.
func (b *Bridge) SpawnScene(def *SceneDef) ([]Handle, error) {
	if def == nil {
		return nil, nil
	}

	var bodies []Handle
	var colliders []Handle
	rollback := func() {
		for _, h := range colliders {
			b.DetachCollider(h)
		}
		for _, h := range bodies {
			b.DetachBody(h)
		}
	}

	for i, bodyDef := range def.Bodies {
		h, err := b.AttachBody(bodyDef.Kind, bodyDef.Node)
		if err != nil {
			rollback()
			return nil, fmt.Errorf("scene def: body %d: %w", i, err)
		}
		bodies = append(bodies, h)

		// Subscribe before the colliders attach so their event flags
		// pick the body listener up.
		b.OnBodyCollision(h, EventListener{OnBegin: bodyDef.OnBegin, OnEnd: bodyDef.OnEnd})

		for j, colDef := range bodyDef.Colliders {
			desc, err := colDef.Shape.descriptor(colDef.Options)
			if err != nil {
				rollback()
				return nil, fmt.Errorf("scene def: body %d collider %d: %w", i, j, err)
			}
			ch, err := b.AttachCollider(desc, h, bodyDef.Node)
			if err != nil {
				rollback()
				return nil, fmt.Errorf("scene def: body %d collider %d: %w", i, j, err)
			}
			if ch == NoHandle {
				b.log.Warnf("scene def: body %d collider %d degenerate, skipped", i, j)
			}
		}
	}

	for i, colDef := range def.FreeColliders {
		desc, err := colDef.Shape.descriptor(colDef.Options)
		if err != nil {
			rollback()
			return nil, fmt.Errorf("scene def: free collider %d: %w", i, err)
		}
		ch, err := b.AttachCollider(desc, NoHandle, colDef.Node)
		if err != nil {
			rollback()
			return nil, fmt.Errorf("scene def: free collider %d: %w", i, err)
		}
		if ch == NoHandle {
			b.log.Warnf("scene def: free collider %d degenerate, skipped", i)
		} else {
			colliders = append(colliders, ch)
		}
	}

	return bodies, nil
}
