package tether

import (
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEngine is a scripted Engine backend for bridge tests: it records
// every call and replays whatever poses and contact transitions the test
// loads into it.
type fakeEngine struct {
	nextHandle Handle
	bodies     map[Handle]BodyDesc
	colliders  map[Handle]ColliderDesc
	parents    map[Handle]Handle

	stepDeltas []float32
	active     map[Handle]Pose
	pending    []ContactEvent

	// When non-zero, CreateBody keeps issuing this handle. Used to force
	// the duplicate-registration path.
	fixedBody Handle

	closed bool
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		nextHandle: 1,
		bodies:     make(map[Handle]BodyDesc),
		colliders:  make(map[Handle]ColliderDesc),
		parents:    make(map[Handle]Handle),
		active:     make(map[Handle]Pose),
	}
}

func (f *fakeEngine) alloc() Handle {
	h := f.nextHandle
	f.nextHandle++
	return h
}

func (f *fakeEngine) CreateBody(desc BodyDesc) (Handle, error) {
	h := f.fixedBody
	if h == NoHandle {
		h = f.alloc()
	}
	f.bodies[h] = desc
	return h, nil
}

func (f *fakeEngine) RemoveBody(h Handle) {
	delete(f.bodies, h)
	delete(f.active, h)
	for ch, parent := range f.parents {
		if parent == h {
			delete(f.colliders, ch)
			delete(f.parents, ch)
		}
	}
}

func (f *fakeEngine) CreateCollider(desc ColliderDesc, parent Handle) (Handle, error) {
	h := f.alloc()
	f.colliders[h] = desc
	f.parents[h] = parent
	return h, nil
}

func (f *fakeEngine) RemoveCollider(h Handle) {
	delete(f.colliders, h)
	delete(f.parents, h)
}

func (f *fakeEngine) Step(dt float32) {
	f.stepDeltas = append(f.stepDeltas, dt)
}

func (f *fakeEngine) ForEachActiveBody(fn func(h Handle, pose Pose)) {
	for h, pose := range f.active {
		fn(h, pose)
	}
}

func (f *fakeEngine) DrainContactEvents(fn func(a, b Handle, started bool)) {
	events := f.pending
	f.pending = nil
	for _, ev := range events {
		fn(ev.A, ev.B, ev.Started)
	}
}

func (f *fakeEngine) BodyPose(h Handle) (Pose, bool) {
	desc, ok := f.bodies[h]
	return desc.Pose, ok
}

func (f *fakeEngine) SetBodyPose(h Handle, pose Pose) {
	if desc, ok := f.bodies[h]; ok {
		desc.Pose = pose
		f.bodies[h] = desc
	}
}

func (f *fakeEngine) Close() { f.closed = true }

func newTestBridge(t *testing.T) (*Bridge, *fakeEngine) {
	t.Helper()
	engine := newFakeEngine()
	world, err := NewWorldWithEngine(engine, DefaultWorldConfig(), nil)
	require.NoError(t, err)
	return NewBridge(world, nil), engine
}

func TestAttachBodyUsesNodeWorldPose(t *testing.T) {
	bridge, engine := newTestBridge(t)

	parent := NewNode("rig")
	parent.Position = mgl32.Vec3{10, 0, 0}
	child := NewNode("crate")
	child.Position = mgl32.Vec3{0, 2, 0}
	parent.AddChild(child)

	h, err := bridge.AttachBody(BodyDynamic, child)
	require.NoError(t, err)
	require.NotEqual(t, NoHandle, h)

	desc := engine.bodies[h]
	assert.Equal(t, BodyDynamic, desc.Kind)
	assert.Equal(t, mgl32.Vec3{10, 2, 0}, desc.Pose.Position)
	assert.Equal(t, 1, bridge.Entities().BodyCount())
}

func TestAttachBodyRejectsUnknownKind(t *testing.T) {
	bridge, engine := newTestBridge(t)

	_, err := bridge.AttachBody(BodyKind(99), NewNode("x"))
	require.Error(t, err)
	assert.IsType(t, &UnsupportedBodyKindError{}, err)
	assert.Empty(t, engine.bodies, "rejected attach must not touch the engine")

	_, err = bridge.AttachBody(BodyDynamic, nil)
	require.Error(t, err)
}

func TestAttachBodyRollsBackOnDuplicateHandle(t *testing.T) {
	bridge, engine := newTestBridge(t)

	engine.fixedBody = 7
	_, err := bridge.AttachBody(BodyDynamic, NewNode("first"))
	require.NoError(t, err)

	// Backend misbehaves and reissues handle 7. The bridge must refuse
	// the registration and remove the body it just created.
	_, err = bridge.AttachBody(BodyDynamic, NewNode("second"))
	require.Error(t, err)
	assert.IsType(t, &DuplicateRegistrationError{}, err)
	assert.Empty(t, engine.bodies)
	assert.Equal(t, 1, bridge.Entities().BodyCount())
}

func TestTickPropagatesActivePoses(t *testing.T) {
	bridge, engine := newTestBridge(t)

	node := NewNode("ball")
	h, err := bridge.AttachBody(BodyDynamic, node)
	require.NoError(t, err)

	rot := mgl32.QuatRotate(1, mgl32.Vec3{0, 1, 0})
	engine.active[h] = Pose{Position: mgl32.Vec3{1, 2, 3}, Rotation: rot}

	bridge.Tick(0.016)

	assert.Equal(t, mgl32.Vec3{1, 2, 3}, node.Position)
	assert.Equal(t, rot, node.Rotation)
	require.Len(t, engine.stepDeltas, 1)
	assert.InDelta(t, 0.016, float64(engine.stepDeltas[0]), 1e-6)
}

func TestTickAutoUsesClockDelta(t *testing.T) {
	bridge, engine := newTestBridge(t)

	time.Sleep(2 * time.Millisecond)
	bridge.TickAuto()

	require.Len(t, engine.stepDeltas, 1)
	assert.Greater(t, engine.stepDeltas[0], float32(0))
	assert.LessOrEqual(t, engine.stepDeltas[0], DefaultWorldConfig().MaxStepDelta)
}

func TestTickSkipsUnregisteredBodies(t *testing.T) {
	bridge, engine := newTestBridge(t)

	node := NewNode("ghost")
	h, err := bridge.AttachBody(BodyDynamic, node)
	require.NoError(t, err)

	// Pose reported for a handle the bridge no longer knows about.
	bridge.Entities().UnregisterBody(h)
	engine.active[h] = Pose{Position: mgl32.Vec3{9, 9, 9}, Rotation: mgl32.QuatIdent()}

	bridge.Tick(0.016)
	assert.Equal(t, mgl32.Vec3{}, node.Position, "unregistered body must not move its old node")
}

func TestContactDispatchBothDirections(t *testing.T) {
	bridge, engine := newTestBridge(t)

	nodeA := NewNode("a")
	nodeB := NewNode("b")
	bodyA, err := bridge.AttachBody(BodyDynamic, nodeA)
	require.NoError(t, err)
	bodyB, err := bridge.AttachBody(BodyDynamic, nodeB)
	require.NoError(t, err)

	var beginsA, beginsB, endsA int
	var otherSeenByA SceneNode
	colA, err := bridge.AttachCollider(SphereDescriptor(1, ColliderOptions{
		OnCollideBegin: func(ev CollisionEvent) {
			beginsA++
			otherSeenByA = ev.Other
		},
		OnCollideEnd: func(CollisionEvent) { endsA++ },
	}), bodyA, nodeA)
	require.NoError(t, err)
	colB, err := bridge.AttachCollider(SphereDescriptor(1, ColliderOptions{
		OnCollideBegin: func(CollisionEvent) { beginsB++ },
	}), bodyB, nodeB)
	require.NoError(t, err)

	engine.pending = []ContactEvent{{A: colA, B: colB, Started: true}}
	bridge.Tick(0.016)

	assert.Equal(t, 1, beginsA, "each side hears a begin exactly once")
	assert.Equal(t, 1, beginsB)
	assert.Equal(t, 0, endsA)
	assert.Same(t, nodeB, otherSeenByA)

	engine.pending = []ContactEvent{{A: colA, B: colB, Started: false}}
	bridge.Tick(0.016)
	assert.Equal(t, 1, endsA)
	assert.Equal(t, 1, beginsA, "end must not re-fire begin")
}

func TestBodyLevelListenerHearsColliderContacts(t *testing.T) {
	bridge, engine := newTestBridge(t)

	nodeA := NewNode("player")
	bodyA, err := bridge.AttachBody(BodyDynamic, nodeA)
	require.NoError(t, err)

	var bodyBegins int
	var target SceneNode
	bridge.OnBodyCollision(bodyA, EventListener{
		OnBegin: func(ev CollisionEvent) {
			bodyBegins++
			target = ev.Target
		},
	})

	// No per-collider callbacks; the body subscription alone must widen
	// the descriptor's event flag.
	colA, err := bridge.AttachCollider(SphereDescriptor(1, ColliderOptions{}), bodyA, nodeA)
	require.NoError(t, err)
	assert.True(t, engine.colliders[colA].Events, "body subscription widens the collider's event flag")

	nodeB := NewNode("wall")
	colB, err := bridge.AttachCollider(BoxDescriptor(mgl32.Vec3{1, 1, 1}, ColliderOptions{}), NoHandle, nodeB)
	require.NoError(t, err)

	engine.pending = []ContactEvent{{A: colA, B: colB, Started: true}}
	bridge.Tick(0.016)

	assert.Equal(t, 1, bodyBegins)
	assert.Same(t, nodeA, target)
}

func TestAttachColliderNilDescriptor(t *testing.T) {
	bridge, engine := newTestBridge(t)

	h, err := bridge.AttachCollider(nil, NoHandle, NewNode("x"))
	require.NoError(t, err)
	assert.Equal(t, NoHandle, h)
	assert.Empty(t, engine.colliders)
}

func TestDetachBodyCascades(t *testing.T) {
	bridge, engine := newTestBridge(t)

	node := NewNode("crate")
	body, err := bridge.AttachBody(BodyDynamic, node)
	require.NoError(t, err)
	col, err := bridge.AttachCollider(BoxDescriptor(mgl32.Vec3{1, 1, 1}, ColliderOptions{
		OnCollideBegin: func(CollisionEvent) {},
	}), body, node)
	require.NoError(t, err)
	bridge.OnBodyCollision(body, EventListener{OnBegin: func(CollisionEvent) {}})

	bridge.DetachBody(body)

	assert.Equal(t, 0, bridge.Entities().BodyCount())
	assert.Equal(t, 0, bridge.Entities().ColliderCount())
	assert.Equal(t, 0, bridge.Events().Len())
	assert.Empty(t, engine.bodies)
	assert.Empty(t, engine.colliders)
	assert.False(t, bridge.Events().Has(KindCollider, col))

	// Detach again: nothing to do, nothing to panic over.
	bridge.DetachBody(body)
}

func TestDetachColliderIdempotent(t *testing.T) {
	bridge, engine := newTestBridge(t)

	node := NewNode("crate")
	body, err := bridge.AttachBody(BodyDynamic, node)
	require.NoError(t, err)
	col, err := bridge.AttachCollider(SphereDescriptor(1, ColliderOptions{}), body, node)
	require.NoError(t, err)

	bridge.DetachCollider(col)
	assert.Equal(t, 0, bridge.Entities().ColliderCount())
	assert.Empty(t, engine.colliders)

	bridge.DetachCollider(col)
	assert.Equal(t, 0, bridge.Entities().ColliderCount())

	// Parent body survives its collider's detach.
	assert.Equal(t, 1, bridge.Entities().BodyCount())
}

func TestRegistryCountsTrackAttachDetach(t *testing.T) {
	bridge, _ := newTestBridge(t)

	node := NewNode("rig")
	var bodies []Handle
	for i := 0; i < 5; i++ {
		h, err := bridge.AttachBody(BodyDynamic, node)
		require.NoError(t, err)
		bodies = append(bodies, h)
		_, err = bridge.AttachCollider(SphereDescriptor(1, ColliderOptions{}), h, node)
		require.NoError(t, err)
	}
	assert.Equal(t, 5, bridge.Entities().BodyCount())
	assert.Equal(t, 5, bridge.Entities().ColliderCount())

	for _, h := range bodies[:2] {
		bridge.DetachBody(h)
	}
	assert.Equal(t, 3, bridge.Entities().BodyCount())
	assert.Equal(t, 3, bridge.Entities().ColliderCount())
}

func TestContactEventForDetachedOtherSide(t *testing.T) {
	bridge, engine := newTestBridge(t)

	nodeA := NewNode("a")
	bodyA, err := bridge.AttachBody(BodyDynamic, nodeA)
	require.NoError(t, err)

	var others []SceneNode
	colA, err := bridge.AttachCollider(SphereDescriptor(1, ColliderOptions{
		OnCollideEnd: func(ev CollisionEvent) { others = append(others, ev.Other) },
	}), bodyA, nodeA)
	require.NoError(t, err)

	// The other collider was detached before the end event drained; the
	// callback still fires, with a nil Other.
	engine.pending = []ContactEvent{{A: colA, B: 99, Started: false}}
	bridge.Tick(0.016)

	require.Len(t, others, 1)
	assert.Nil(t, others[0])
}
