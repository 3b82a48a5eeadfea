package tether

// AttachBody creates a rigid body for a scene node and registers the
// association. The body's initial pose is the node's world transform at
// attach time; after that the simulation is authoritative and poses flow
// simulation to node only. The four body kinds map onto the engine's
// corresponding creation variants; anything else fails with
// UnsupportedBodyKindError before touching the engine.
func (b *Bridge) AttachBody(kind BodyKind, node SceneNode) (Handle, error) {
	switch kind {
	case BodyDynamic, BodyStatic, BodyKinematicVelocity, BodyKinematicPosition:
	default:
		return NoHandle, &UnsupportedBodyKindError{Kind: kind}
	}
	if node == nil {
		return NoHandle, &UnsupportedBodyKindError{Kind: kind}
	}

	desc := BodyDesc{
		Kind: kind,
		Pose: worldPoseOf(node), // one-time initial pose sync
	}
	h, err := b.world.CreateBody(desc)
	if err != nil {
		return NoHandle, err
	}
	if err := b.entities.RegisterBody(h, node); err != nil {
		// Attach failed after the body existed: tear it down so the
		// simulation footprint cannot outlive the failed attach.
		b.world.RemoveBody(h)
		return NoHandle, err
	}
	b.log.Debugf("attached %s body %d", kind, h)
	return h, nil
}

// DetachBody removes a body, its colliders, its registry entries and any
// listener subscriptions. Idempotent: detaching an unknown or
// already-detached handle is a no-op.
func (b *Bridge) DetachBody(h Handle) {
	// Colliders attached to this body die with it; clean their bridge
	// state before the engine recycles their handles.
	for _, ch := range append([]Handle(nil), b.bodyColliders[h]...) {
		b.DetachCollider(ch)
	}
	delete(b.bodyColliders, h)

	if _, registered := b.entities.LookupBody(h); registered {
		b.world.RemoveBody(h)
		b.log.Debugf("detached body %d", h)
	}
	b.entities.UnregisterBody(h)
	b.events.Unsubscribe(KindBody, h)
}

// SyncInitialPose rewrites the body's simulation pose from the node's
// current world transform. AttachBody already does this once; the
// explicit call exists for kinematic-position bodies that are driven by
// scene-side movement.
func (b *Bridge) SyncInitialPose(h Handle, node SceneNode) {
	if node == nil {
		return
	}
	b.world.SetBodyPose(h, worldPoseOf(node))
}
