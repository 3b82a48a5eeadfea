package tether

// Bridge is the synchronization context between one World and a scene:
// the handle/node registries, the listener registry and the per-frame
// stepper all hang off it. It is the only mutator of the registries, and
// everything on it runs on the host loop's thread.
type Bridge struct {
	world    *World
	entities *EntityRegistry
	events   *EventRegistry
	log      Logger
	clock    *Clock

	// Collider parentage, needed to route collider-sourced contacts to
	// body-level subscribers and to cascade body detach.
	colliderParent map[Handle]Handle
	bodyColliders  map[Handle][]Handle
}

func NewBridge(world *World, log Logger) *Bridge {
	return &Bridge{
		world:          world,
		entities:       NewEntityRegistry(),
		events:         NewEventRegistry(),
		log:            orNopLogger(log),
		clock:          NewClock(),
		colliderParent: make(map[Handle]Handle),
		bodyColliders:  make(map[Handle][]Handle),
	}
}

func (b *Bridge) World() *World             { return b.world }
func (b *Bridge) Entities() *EntityRegistry { return b.entities }
func (b *Bridge) Events() *EventRegistry    { return b.events }

// Tick runs one frame of synchronization with the render loop's delta:
// advance the simulation, copy active body poses into their scene nodes,
// then drain and dispatch contact events. The three phases run strictly
// in that order so collision callbacks observe post-step, pre-next-step
// world state.
func (b *Bridge) Tick(dt float32) {
	b.world.Step(dt)

	b.world.ForEachActiveBody(func(h Handle, pose Pose) {
		node, ok := b.entities.LookupBody(h)
		if !ok {
			// Detached while the step ran its course; nobody is
			// interested in this pose anymore.
			return
		}
		node.SetLocalPosition(pose.Position)
		node.SetLocalRotation(pose.Rotation)
	})

	b.world.DrainContactEvents(func(a, other Handle, started bool) {
		b.dispatchContact(a, other, started)
		b.dispatchContact(other, a, started)
	})
}

// TickAuto runs Tick with the frame delta measured by the bridge's own
// clock, for hosts without their own frame timing. The first call steps
// by the time elapsed since NewBridge, clamped like any other delta.
func (b *Bridge) TickAuto() {
	b.Tick(b.clock.Delta())
}

// dispatchContact routes one side of a contact transition: first to the
// collider's own subscription, then to its parent body's subscription so
// body-level listeners hear events from any of the body's colliders.
func (b *Bridge) dispatchContact(self, other Handle, started bool) {
	phase := ContactEnd
	if started {
		phase = ContactBegin
	}

	targetNode, _ := b.entities.LookupCollider(self)
	otherNode, _ := b.entities.LookupCollider(other)
	ev := CollisionEvent{Target: targetNode, Other: otherNode}

	b.events.Dispatch(KindCollider, self, phase, ev)

	parent, ok := b.colliderParent[self]
	if !ok || parent == NoHandle {
		return
	}
	bodyNode, ok := b.entities.LookupBody(parent)
	if !ok {
		return
	}
	b.events.Dispatch(KindBody, parent, phase, CollisionEvent{Target: bodyNode, Other: otherNode})
}

// OnBodyCollision subscribes (or replaces) the body-level listener for a
// handle. Contacts from any collider attached to the body are delivered.
func (b *Bridge) OnBodyCollision(h Handle, listener EventListener) {
	if listener.empty() {
		b.events.Unsubscribe(KindBody, h)
		return
	}
	b.events.Subscribe(KindBody, h, listener)
}

// OnColliderCollision subscribes (or replaces) the collider-level
// listener for a handle.
func (b *Bridge) OnColliderCollision(h Handle, listener EventListener) {
	if listener.empty() {
		b.events.Unsubscribe(KindCollider, h)
		return
	}
	b.events.Subscribe(KindCollider, h, listener)
}
