package tether

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// WireMesh is a line-list wireframe: pairs of indices into Vertices form
// segments. It is the hook for debug-visualization layers; the bridge
// itself never renders.
type WireMesh struct {
	Vertices []mgl32.Vec3
	Indices  []uint32
}

const debugCircleSegments = 24

// DebugWireMesh builds a wireframe outline for a collider descriptor in
// the collider's local frame (offset applied). Shapes without a cheap
// outline (convex hull/mesh, trimesh) render their raw edges; returns nil
// for a nil descriptor.
func DebugWireMesh(desc *ColliderDesc) *WireMesh {
	if desc == nil {
		return nil
	}
	var mesh *WireMesh
	switch desc.Shape {
	case ShapeBox:
		mesh = wireBox(desc.HalfExtents)
	case ShapeSphere:
		mesh = wireSphere(desc.Radius)
	case ShapeCylinder, ShapeCapsule, ShapeCone:
		half := boundingHalfExtents(desc)
		mesh = wireBox(half)
	case ShapeConvexHull, ShapeConvexMesh, ShapeTrimesh:
		mesh = wireTriangles(desc.Vertices, desc.Indices)
	case ShapeHeightfield:
		vertices, indices := BuildHeightfieldMesh(desc.Field)
		mesh = wireTriangles(vertices, indices)
	default:
		return nil
	}
	if mesh == nil {
		return nil
	}
	applyPose(mesh, desc.Offset)
	return mesh
}

func wireBox(half mgl32.Vec3) *WireMesh {
	x, y, z := half.X(), half.Y(), half.Z()
	return &WireMesh{
		Vertices: []mgl32.Vec3{
			{-x, -y, -z}, {x, -y, -z}, {x, y, -z}, {-x, y, -z},
			{-x, -y, z}, {x, -y, z}, {x, y, z}, {-x, y, z},
		},
		Indices: []uint32{
			0, 1, 1, 2, 2, 3, 3, 0, // back face
			4, 5, 5, 6, 6, 7, 7, 4, // front face
			0, 4, 1, 5, 2, 6, 3, 7, // connecting edges
		},
	}
}

// wireSphere draws three orthogonal great circles.
func wireSphere(radius float32) *WireMesh {
	mesh := &WireMesh{}
	for plane := 0; plane < 3; plane++ {
		base := uint32(len(mesh.Vertices))
		for s := 0; s < debugCircleSegments; s++ {
			angle := 2 * math.Pi * float64(s) / debugCircleSegments
			c := radius * float32(math.Cos(angle))
			n := radius * float32(math.Sin(angle))
			var v mgl32.Vec3
			switch plane {
			case 0:
				v = mgl32.Vec3{c, n, 0}
			case 1:
				v = mgl32.Vec3{c, 0, n}
			case 2:
				v = mgl32.Vec3{0, c, n}
			}
			mesh.Vertices = append(mesh.Vertices, v)
		}
		for s := 0; s < debugCircleSegments; s++ {
			mesh.Indices = append(mesh.Indices, base+uint32(s), base+uint32((s+1)%debugCircleSegments))
		}
	}
	return mesh
}

// wireTriangles converts a triangle list into its edge list. Shared edges
// are drawn once.
func wireTriangles(vertices []mgl32.Vec3, indices []uint32) *WireMesh {
	if len(vertices) == 0 || len(indices) < 3 {
		return nil
	}
	type edge struct{ a, b uint32 }
	seen := make(map[edge]struct{})
	mesh := &WireMesh{Vertices: append([]mgl32.Vec3(nil), vertices...)}

	addEdge := func(a, b uint32) {
		if a > b {
			a, b = b, a
		}
		key := edge{a, b}
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		mesh.Indices = append(mesh.Indices, a, b)
	}

	for t := 0; t+2 < len(indices); t += 3 {
		addEdge(indices[t], indices[t+1])
		addEdge(indices[t+1], indices[t+2])
		addEdge(indices[t+2], indices[t])
	}
	return mesh
}

func applyPose(mesh *WireMesh, pose Pose) {
	identity := pose.Position == (mgl32.Vec3{}) &&
		(pose.Rotation == mgl32.QuatIdent() || pose.Rotation.Len() == 0)
	if identity {
		return
	}
	rot := pose.Rotation
	if rot.Len() == 0 {
		rot = mgl32.QuatIdent()
	}
	for i, v := range mesh.Vertices {
		mesh.Vertices[i] = pose.Position.Add(rot.Rotate(v))
	}
}
