package tether

import (
	"slices"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

// SceneNode is the capability the bridge needs from a renderable object:
// read its world pose at attach time, write its local pose during per-tick
// synchronization. The bridge never creates or destroys the underlying
// object and holds only non-owning references to it.
type SceneNode interface {
	WorldPosition() mgl32.Vec3
	WorldRotation() mgl32.Quat
	SetLocalPosition(pos mgl32.Vec3)
	SetLocalRotation(rot mgl32.Quat)
}

// Node is a retained hierarchical scene node. Renderers layered on top of
// the bridge can embed or wrap it; the bridge itself only sees the
// SceneNode capability set.
type Node struct {
	id       uuid.UUID
	name     string
	parent   *Node
	children []*Node

	Position mgl32.Vec3
	Rotation mgl32.Quat
	Scale    mgl32.Vec3
}

func NewNode(name string) *Node {
	return &Node{
		id:       uuid.New(),
		name:     name,
		Rotation: mgl32.QuatIdent(),
		Scale:    mgl32.Vec3{1, 1, 1},
	}
}

func (n *Node) ID() uuid.UUID { return n.id }
func (n *Node) Name() string  { return n.name }
func (n *Node) Parent() *Node { return n.parent }

func (n *Node) Children() []*Node {
	return slices.Clone(n.children)
}

// AddChild reparents child under n. Cycles are the caller's problem, like
// in any scene graph.
func (n *Node) AddChild(child *Node) {
	if child == nil || child == n {
		return
	}
	if child.parent != nil {
		child.parent.RemoveChild(child)
	}
	child.parent = n
	n.children = append(n.children, child)
}

func (n *Node) RemoveChild(child *Node) {
	for i, c := range n.children {
		if c == child {
			n.children = append(n.children[:i], n.children[i+1:]...)
			child.parent = nil
			return
		}
	}
}

// WorldPosition walks up the parent chain:
// worldPos = parentPos + parentRot * (parentScale * localPos).
func (n *Node) WorldPosition() mgl32.Vec3 {
	if n.parent == nil {
		return n.Position
	}
	parentPos := n.parent.WorldPosition()
	parentRot := n.parent.WorldRotation()
	parentScale := n.parent.WorldScale()
	scaled := mgl32.Vec3{
		n.Position.X() * parentScale.X(),
		n.Position.Y() * parentScale.Y(),
		n.Position.Z() * parentScale.Z(),
	}
	return parentPos.Add(parentRot.Rotate(scaled))
}

func (n *Node) WorldRotation() mgl32.Quat {
	if n.parent == nil {
		return n.Rotation
	}
	return n.parent.WorldRotation().Mul(n.Rotation).Normalize()
}

// WorldScale multiplies scales componentwise down the chain. Scale signs
// are preserved so reflections survive.
func (n *Node) WorldScale() mgl32.Vec3 {
	if n.parent == nil {
		return n.Scale
	}
	parentScale := n.parent.WorldScale()
	return mgl32.Vec3{
		parentScale.X() * n.Scale.X(),
		parentScale.Y() * n.Scale.Y(),
		parentScale.Z() * n.Scale.Z(),
	}
}

func (n *Node) SetLocalPosition(pos mgl32.Vec3) { n.Position = pos }
func (n *Node) SetLocalRotation(rot mgl32.Quat) { n.Rotation = rot }

// worldPoseOf snapshots a node's world transform as a Pose.
func worldPoseOf(node SceneNode) Pose {
	return Pose{
		Position: node.WorldPosition(),
		Rotation: node.WorldRotation(),
	}
}
