package tether

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func vecNear(t *testing.T, got, want mgl32.Vec3, eps float64, label string) {
	t.Helper()
	for axis := 0; axis < 3; axis++ {
		if math.Abs(float64(got[axis]-want[axis])) > eps {
			t.Fatalf("%s = %v, want %v", label, got, want)
			return
		}
	}
}

func TestNodeWorldPositionTranslation(t *testing.T) {
	root := NewNode("root")
	root.Position = mgl32.Vec3{10, 0, 0}
	child := NewNode("child")
	child.Position = mgl32.Vec3{0, 2, 0}
	root.AddChild(child)

	vecNear(t, child.WorldPosition(), mgl32.Vec3{10, 2, 0}, 1e-6, "child world position")

	grandchild := NewNode("grandchild")
	grandchild.Position = mgl32.Vec3{0, 0, 3}
	child.AddChild(grandchild)
	vecNear(t, grandchild.WorldPosition(), mgl32.Vec3{10, 2, 3}, 1e-6, "grandchild world position")
}

func TestNodeWorldPositionScaled(t *testing.T) {
	root := NewNode("root")
	root.Scale = mgl32.Vec3{2, 2, 2}
	child := NewNode("child")
	child.Position = mgl32.Vec3{1, 0, 0}
	root.AddChild(child)

	vecNear(t, child.WorldPosition(), mgl32.Vec3{2, 0, 0}, 1e-6, "scaled child position")
}

func TestNodeWorldPositionRotatedParent(t *testing.T) {
	root := NewNode("root")
	root.Rotation = mgl32.QuatRotate(float32(math.Pi/2), mgl32.Vec3{0, 1, 0})
	child := NewNode("child")
	child.Position = mgl32.Vec3{1, 0, 0}
	root.AddChild(child)

	// +90 degrees about Y carries +X into -Z.
	vecNear(t, child.WorldPosition(), mgl32.Vec3{0, 0, -1}, 1e-5, "rotated child position")
}

func TestNodeWorldRotationComposes(t *testing.T) {
	root := NewNode("root")
	root.Rotation = mgl32.QuatRotate(float32(math.Pi/2), mgl32.Vec3{0, 1, 0})
	child := NewNode("child")
	child.Rotation = mgl32.QuatRotate(float32(math.Pi/2), mgl32.Vec3{0, 1, 0})
	root.AddChild(child)

	// Two quarter turns: +X ends up at -X.
	rotated := child.WorldRotation().Rotate(mgl32.Vec3{1, 0, 0})
	vecNear(t, rotated, mgl32.Vec3{-1, 0, 0}, 1e-5, "composed rotation of +X")
}

func TestNodeWorldScaleComposes(t *testing.T) {
	root := NewNode("root")
	root.Scale = mgl32.Vec3{2, 2, 2}
	child := NewNode("child")
	child.Scale = mgl32.Vec3{0.5, 3, -1}
	root.AddChild(child)

	vecNear(t, child.WorldScale(), mgl32.Vec3{1, 6, -2}, 1e-6, "composed scale")
}

func TestNodeReparenting(t *testing.T) {
	a := NewNode("a")
	b := NewNode("b")
	child := NewNode("child")

	a.AddChild(child)
	if child.Parent() != a {
		t.Fatal("child not parented to a")
	}
	b.AddChild(child)
	if child.Parent() != b {
		t.Fatal("reparenting did not move the child")
	}
	if len(a.Children()) != 0 {
		t.Fatalf("old parent still lists %d children", len(a.Children()))
	}

	b.RemoveChild(child)
	if child.Parent() != nil {
		t.Fatal("removed child still has a parent")
	}
}

func TestNodeChildrenIsACopy(t *testing.T) {
	root := NewNode("root")
	root.AddChild(NewNode("a"))

	kids := root.Children()
	kids[0] = nil
	if root.Children()[0] == nil {
		t.Fatal("Children() exposed internal storage")
	}
}

func TestNodeSetLocalPose(t *testing.T) {
	node := NewNode("n")
	rot := mgl32.QuatRotate(1, mgl32.Vec3{0, 0, 1})
	node.SetLocalPosition(mgl32.Vec3{1, 2, 3})
	node.SetLocalRotation(rot)

	if node.Position != (mgl32.Vec3{1, 2, 3}) {
		t.Errorf("position = %v", node.Position)
	}
	if node.Rotation != rot {
		t.Errorf("rotation = %v", node.Rotation)
	}
}

func TestNodeIdentity(t *testing.T) {
	a := NewNode("a")
	b := NewNode("b")
	if a.ID() == b.ID() {
		t.Fatal("distinct nodes share an ID")
	}
	if a.Name() != "a" {
		t.Errorf("name = %q", a.Name())
	}
}
