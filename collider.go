package tether

// AttachCollider creates a collision shape from a built descriptor,
// optionally attached to a parent body, and registers it against the
// scene node it belongs to (typically the same node as the parent body's
// visual).
//
// A nil descriptor is the factories' way of flagging degenerate input; it
// attaches nothing and returns NoHandle with no error.
//
// The descriptor's contact-event flag is widened here: if the parent body
// already has a collision subscriber, events are enabled for this shape
// even without its own OnCollide callbacks, because a body-level
// subscriber must hear contacts sourced from any of the body's colliders.
func (b *Bridge) AttachCollider(desc *ColliderDesc, parent Handle, node SceneNode) (Handle, error) {
	if desc == nil {
		return NoHandle, nil
	}

	resolved := *desc
	if parent != NoHandle && b.events.Has(KindBody, parent) {
		resolved.Events = true
	}

	h, err := b.world.CreateCollider(resolved, parent)
	if err != nil {
		return NoHandle, err
	}
	if err := b.entities.RegisterCollider(h, node); err != nil {
		b.world.RemoveCollider(h)
		return NoHandle, err
	}

	b.colliderParent[h] = parent
	if parent != NoHandle {
		b.bodyColliders[parent] = append(b.bodyColliders[parent], h)
	}
	if resolved.OnBegin != nil || resolved.OnEnd != nil {
		b.events.Subscribe(KindCollider, h, EventListener{
			OnBegin: resolved.OnBegin,
			OnEnd:   resolved.OnEnd,
		})
	}
	b.log.Debugf("attached %s collider %d (parent body %d)", resolved.Shape, h, parent)
	return h, nil
}

// DetachCollider removes a collider and every trace of it in the bridge.
// Idempotent.
func (b *Bridge) DetachCollider(h Handle) {
	if parent, ok := b.colliderParent[h]; ok {
		if parent != NoHandle {
			siblings := b.bodyColliders[parent]
			for i, ch := range siblings {
				if ch == h {
					b.bodyColliders[parent] = append(siblings[:i], siblings[i+1:]...)
					break
				}
			}
		}
		b.world.RemoveCollider(h)
		b.log.Debugf("detached collider %d", h)
	}
	delete(b.colliderParent, h)
	b.entities.UnregisterCollider(h)
	b.events.Unsubscribe(KindCollider, h)
}
