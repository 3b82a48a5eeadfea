package tether

// EntityRegistry maps live simulation handles to the scene nodes that own
// them, bodies and colliders independently. It is mutated only by the
// lifecycle managers (attach/detach) and read by the frame stepper; the
// scene-node references are non-owning back-references.
type EntityRegistry struct {
	bodies    map[Handle]SceneNode
	colliders map[Handle]SceneNode
}

func NewEntityRegistry() *EntityRegistry {
	return &EntityRegistry{
		bodies:    make(map[Handle]SceneNode),
		colliders: make(map[Handle]SceneNode),
	}
}

// RegisterBody associates a body handle with its scene node. Registering a
// handle that is already mapped is a lifecycle bug and fails with
// DuplicateRegistrationError.
func (r *EntityRegistry) RegisterBody(h Handle, node SceneNode) error {
	if _, ok := r.bodies[h]; ok {
		return &DuplicateRegistrationError{Kind: KindBody, Handle: h}
	}
	r.bodies[h] = node
	return nil
}

// UnregisterBody removes the mapping for a body handle. Unknown handles are
// a no-op so detach stays idempotent.
func (r *EntityRegistry) UnregisterBody(h Handle) {
	delete(r.bodies, h)
}

func (r *EntityRegistry) LookupBody(h Handle) (SceneNode, bool) {
	node, ok := r.bodies[h]
	return node, ok
}

func (r *EntityRegistry) RegisterCollider(h Handle, node SceneNode) error {
	if _, ok := r.colliders[h]; ok {
		return &DuplicateRegistrationError{Kind: KindCollider, Handle: h}
	}
	r.colliders[h] = node
	return nil
}

func (r *EntityRegistry) UnregisterCollider(h Handle) {
	delete(r.colliders, h)
}

func (r *EntityRegistry) LookupCollider(h Handle) (SceneNode, bool) {
	node, ok := r.colliders[h]
	return node, ok
}

func (r *EntityRegistry) BodyCount() int     { return len(r.bodies) }
func (r *EntityRegistry) ColliderCount() int { return len(r.colliders) }

// ContactPhase distinguishes the two collision transitions.
type ContactPhase int

const (
	ContactBegin ContactPhase = iota
	ContactEnd
)

// CollisionEvent is handed to listener callbacks during contact dispatch.
// Target is the scene node whose subscription fired; Other is the node on
// the far side of the contact, nil when that entity is no longer
// registered.
type CollisionEvent struct {
	Target SceneNode
	Other  SceneNode
}

// EventListener is an optional pair of begin/end callbacks. Either field
// may be nil.
type EventListener struct {
	OnBegin func(CollisionEvent)
	OnEnd   func(CollisionEvent)
}

func (l EventListener) empty() bool {
	return l.OnBegin == nil && l.OnEnd == nil
}

type eventKey struct {
	kind   EntityKind
	handle Handle
}

// EventRegistry maps (kind, handle) keys to collision listeners. At most
// one listener entry exists per key; a later Subscribe for the same key
// replaces the earlier one, which is how callback identity changes across
// re-declaration.
type EventRegistry struct {
	listeners map[eventKey]EventListener
}

func NewEventRegistry() *EventRegistry {
	return &EventRegistry{listeners: make(map[eventKey]EventListener)}
}

func (r *EventRegistry) Subscribe(kind EntityKind, h Handle, listener EventListener) {
	if listener.empty() {
		return
	}
	r.listeners[eventKey{kind, h}] = listener
}

func (r *EventRegistry) Unsubscribe(kind EntityKind, h Handle) {
	delete(r.listeners, eventKey{kind, h})
}

// Has reports whether a listener is subscribed for the key.
func (r *EventRegistry) Has(kind EntityKind, h Handle) bool {
	_, ok := r.listeners[eventKey{kind, h}]
	return ok
}

// Dispatch invokes the subscribed callback for the key and phase. A
// missing subscription or a nil callback for the phase is a no-op: during
// scene teardown events for freshly detached entities are expected and
// simply skipped.
func (r *EventRegistry) Dispatch(kind EntityKind, h Handle, phase ContactPhase, ev CollisionEvent) {
	listener, ok := r.listeners[eventKey{kind, h}]
	if !ok {
		return
	}
	switch phase {
	case ContactBegin:
		if listener.OnBegin != nil {
			listener.OnBegin(ev)
		}
	case ContactEnd:
		if listener.OnEnd != nil {
			listener.OnEnd(ev)
		}
	}
}

func (r *EventRegistry) Len() int { return len(r.listeners) }
