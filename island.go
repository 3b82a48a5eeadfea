package tether

import (
	"fmt"
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl32"
)

// IslandEngine is the built-in Engine backend. It integrates bodies with
// semi-implicit Euler, finds candidate pairs through a spatial hash,
// resolves sphere and AABB overlap by minimum translation, puts idle
// dynamic bodies to sleep and records contact begin/end transitions into
// the drain-once queue. Hosts that need a full solver plug their own
// backend in through NewWorldWithEngine.
type IslandEngine struct {
	cfg     WorldConfig
	gravity mgl32.Vec3

	bodies    map[Handle]*islandBody
	colliders map[Handle]*islandCollider

	// Insertion-order handle lists; iteration over these keeps active-body
	// visits and contact detection stable within a tick.
	bodyOrder     []Handle
	colliderOrder []Handle

	nextBody      Handle
	nextCollider  Handle
	freeBodies    []Handle
	freeColliders []Handle

	grid      *spatialHash
	prevPairs map[pairKey]struct{}
	queue     []ContactEvent
}

type islandBody struct {
	kind      BodyKind
	pose      Pose
	velocity  mgl32.Vec3
	sleeping  bool
	idleTime  float32
	colliders []Handle
}

type islandCollider struct {
	desc   ColliderDesc
	parent Handle // NoHandle for free-standing colliders
	half   mgl32.Vec3
}

// pairKey is an order-normalized collider pair (smaller handle first).
type pairKey struct {
	a, b Handle
}

func makePairKey(a, b Handle) pairKey {
	if a > b {
		a, b = b, a
	}
	return pairKey{a, b}
}

func NewIslandEngine(cfg WorldConfig) (*IslandEngine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &IslandEngine{
		cfg:       cfg,
		gravity:   cfg.Gravity,
		bodies:    make(map[Handle]*islandBody),
		colliders: make(map[Handle]*islandCollider),
		grid:      newSpatialHash(cfg.BroadphaseCellSize),
		prevPairs: make(map[pairKey]struct{}),
	}, nil
}

func (e *IslandEngine) CreateBody(desc BodyDesc) (Handle, error) {
	switch desc.Kind {
	case BodyDynamic, BodyStatic, BodyKinematicVelocity, BodyKinematicPosition:
	default:
		return NoHandle, &UnsupportedBodyKindError{Kind: desc.Kind}
	}
	h := e.allocBody()
	e.bodies[h] = &islandBody{kind: desc.Kind, pose: normalizePose(desc.Pose)}
	e.bodyOrder = append(e.bodyOrder, h)
	return h, nil
}

func (e *IslandEngine) RemoveBody(h Handle) {
	body, ok := e.bodies[h]
	if !ok {
		return
	}
	// Child colliders go down with the body.
	for _, ch := range append([]Handle(nil), body.colliders...) {
		e.RemoveCollider(ch)
	}
	delete(e.bodies, h)
	e.bodyOrder = removeHandle(e.bodyOrder, h)
	e.freeBodies = append(e.freeBodies, h)
}

func (e *IslandEngine) CreateCollider(desc ColliderDesc, parent Handle) (Handle, error) {
	if parent != NoHandle {
		if _, ok := e.bodies[parent]; !ok {
			return NoHandle, fmt.Errorf("create collider: unknown parent body %d", parent)
		}
	}
	h := e.allocCollider()
	e.colliders[h] = &islandCollider{
		desc:   desc,
		parent: parent,
		half:   boundingHalfExtents(&desc),
	}
	e.colliderOrder = append(e.colliderOrder, h)
	if parent != NoHandle {
		body := e.bodies[parent]
		body.colliders = append(body.colliders, h)
		e.wakeBody(body)
	}
	return h, nil
}

func (e *IslandEngine) RemoveCollider(h Handle) {
	col, ok := e.colliders[h]
	if !ok {
		return
	}
	// Closing contacts end now, and whoever was resting on this collider
	// wakes up.
	for pair := range e.prevPairs {
		if pair.a != h && pair.b != h {
			continue
		}
		other := pair.b
		if other == h {
			other = pair.a
		}
		if e.pairEmitsEvents(pair) {
			e.queue = append(e.queue, ContactEvent{A: pair.a, B: pair.b, Started: false})
		}
		if oc, ok := e.colliders[other]; ok && oc.parent != NoHandle {
			if body, ok := e.bodies[oc.parent]; ok {
				e.wakeBody(body)
			}
		}
		delete(e.prevPairs, pair)
	}
	if col.parent != NoHandle {
		if body, ok := e.bodies[col.parent]; ok {
			for i, ch := range body.colliders {
				if ch == h {
					body.colliders = append(body.colliders[:i], body.colliders[i+1:]...)
					break
				}
			}
		}
	}
	delete(e.colliders, h)
	e.colliderOrder = removeHandle(e.colliderOrder, h)
	e.freeColliders = append(e.freeColliders, h)
}

func (e *IslandEngine) BodyPose(h Handle) (Pose, bool) {
	body, ok := e.bodies[h]
	if !ok {
		return Pose{}, false
	}
	return body.pose, true
}

func (e *IslandEngine) SetBodyPose(h Handle, pose Pose) {
	body, ok := e.bodies[h]
	if !ok {
		return
	}
	body.pose = normalizePose(pose)
	e.wakeBody(body)
}

// SetBodyVelocity drives a dynamic or kinematic-velocity body.
func (e *IslandEngine) SetBodyVelocity(h Handle, vel mgl32.Vec3) {
	body, ok := e.bodies[h]
	if !ok {
		return
	}
	body.velocity = vel
	e.wakeBody(body)
}

// ApplyImpulse adds to a dynamic body's velocity and wakes it.
func (e *IslandEngine) ApplyImpulse(h Handle, impulse mgl32.Vec3) {
	body, ok := e.bodies[h]
	if !ok || body.kind != BodyDynamic {
		return
	}
	body.velocity = body.velocity.Add(impulse)
	e.wakeBody(body)
}

func (e *IslandEngine) wakeBody(body *islandBody) {
	body.sleeping = false
	body.idleTime = 0
}

func (e *IslandEngine) Step(dt float32) {
	if dt <= 0 {
		return
	}

	// 1. Integrate.
	e.forEachLiveBody(func(h Handle, body *islandBody) {
		if body.sleeping {
			return
		}
		switch body.kind {
		case BodyDynamic:
			body.velocity = body.velocity.Add(e.gravity.Mul(dt))
			body.pose.Position = body.pose.Position.Add(body.velocity.Mul(dt))
		case BodyKinematicVelocity:
			body.pose.Position = body.pose.Position.Add(body.velocity.Mul(dt))
		}
	})

	// 2. Broadphase.
	e.grid.clear()
	for _, h := range e.colliderOrder {
		col, ok := e.colliders[h]
		if !ok {
			continue
		}
		e.grid.insert(h, e.colliderAABB(h, col))
	}

	// 3. Narrowphase over broadphase candidates.
	contacts := e.collectContacts()

	// 4. Resolution: awake dynamic bodies get pushed out and bounced.
	for _, c := range contacts {
		e.resolveContact(c)
	}

	// 5. Sleeping.
	e.forEachLiveBody(func(h Handle, body *islandBody) {
		if body.kind != BodyDynamic || body.sleeping {
			return
		}
		if body.velocity.Len() < e.cfg.SleepThreshold {
			body.idleTime += dt
			if body.idleTime > e.cfg.SleepTime {
				body.sleeping = true
				body.velocity = mgl32.Vec3{}
			}
		} else {
			body.idleTime = 0
		}
	})

	// 6. Contact transitions: diff this tick's pair set against the last.
	current := make(map[pairKey]struct{}, len(contacts))
	for _, c := range contacts {
		current[c.pair] = struct{}{}
	}
	for _, c := range contacts {
		if _, existed := e.prevPairs[c.pair]; !existed && e.pairEmitsEvents(c.pair) {
			e.queue = append(e.queue, ContactEvent{A: c.pair.a, B: c.pair.b, Started: true})
		}
	}
	// Ended pairs, sorted so delivery order is deterministic.
	var ended []pairKey
	for pair := range e.prevPairs {
		if _, still := current[pair]; !still && e.pairEmitsEvents(pair) {
			ended = append(ended, pair)
		}
	}
	sort.Slice(ended, func(i, j int) bool {
		if ended[i].a != ended[j].a {
			return ended[i].a < ended[j].a
		}
		return ended[i].b < ended[j].b
	})
	for _, pair := range ended {
		e.queue = append(e.queue, ContactEvent{A: pair.a, B: pair.b, Started: false})
	}
	e.prevPairs = current
}

type islandContact struct {
	pair   pairKey
	a, b   Handle // collider handles, a equals pair.a
	normal mgl32.Vec3
	depth  float32
}

// collectContacts runs the narrowphase for every overlapping candidate
// pair, including pairs between sleeping bodies so resting contacts do not
// flicker into end/begin transitions.
func (e *IslandEngine) collectContacts() []islandContact {
	var contacts []islandContact
	seen := make(map[pairKey]struct{})

	for _, ha := range e.colliderOrder {
		ca, ok := e.colliders[ha]
		if !ok {
			continue
		}
		boxA := e.colliderAABB(ha, ca)
		for _, hb := range e.grid.queryAABB(boxA) {
			if hb == ha {
				continue
			}
			cb, ok := e.colliders[hb]
			if !ok {
				continue
			}
			if ca.parent != NoHandle && ca.parent == cb.parent {
				continue // same body
			}
			if e.colliderImmovable(ca) && e.colliderImmovable(cb) {
				continue // static vs static never transitions
			}
			pair := makePairKey(ha, hb)
			if _, dup := seen[pair]; dup {
				continue
			}
			seen[pair] = struct{}{}

			if contact, hit := e.testOverlap(pair, ha, ca, hb, cb); hit {
				contacts = append(contacts, contact)
			}
		}
	}
	return contacts
}

// testOverlap is sphere-exact for sphere/sphere pairs and AABB-based for
// everything else. Normal points from b toward a.
func (e *IslandEngine) testOverlap(pair pairKey, ha Handle, ca *islandCollider, hb Handle, cb *islandCollider) (islandContact, bool) {
	if ca.desc.Shape == ShapeSphere && cb.desc.Shape == ShapeSphere {
		centerA := e.colliderCenter(ca)
		centerB := e.colliderCenter(cb)
		diff := centerA.Sub(centerB)
		dist := diff.Len()
		minDist := ca.desc.Radius + cb.desc.Radius
		if dist >= minDist || dist < 1e-6 {
			return islandContact{}, false
		}
		normal := diff.Mul(1 / dist)
		if pair.a != ha {
			normal = normal.Mul(-1)
		}
		return islandContact{pair: pair, a: pair.a, b: pair.b, normal: normal, depth: minDist - dist}, true
	}

	boxA := e.colliderAABB(ha, ca)
	boxB := e.colliderAABB(hb, cb)
	if !boxA.overlaps(boxB) {
		return islandContact{}, false
	}

	// Minimum translation axis between the two AABBs.
	centerA := boxA.Min.Add(boxA.Max).Mul(0.5)
	centerB := boxB.Min.Add(boxB.Max).Mul(0.5)
	halfA := boxA.Max.Sub(boxA.Min).Mul(0.5)
	halfB := boxB.Max.Sub(boxB.Min).Mul(0.5)

	var normal mgl32.Vec3
	depth := float32(math.MaxFloat32)
	for axis := 0; axis < 3; axis++ {
		overlap := halfA[axis] + halfB[axis] - abs32(centerA[axis]-centerB[axis])
		if overlap <= 0 {
			return islandContact{}, false
		}
		if overlap < depth {
			depth = overlap
			normal = mgl32.Vec3{}
			if centerA[axis] >= centerB[axis] {
				normal[axis] = 1
			} else {
				normal[axis] = -1
			}
		}
	}
	if pair.a != ha {
		normal = normal.Mul(-1)
	}
	return islandContact{pair: pair, a: pair.a, b: pair.b, normal: normal, depth: depth}, true
}

// resolveContact pushes dynamic bodies out of penetration and updates
// their velocities with restitution and friction.
func (e *IslandEngine) resolveContact(c islandContact) {
	ca := e.colliders[c.a]
	cb := e.colliders[c.b]
	bodyA := e.ownerBody(ca)
	bodyB := e.ownerBody(cb)

	dynA := bodyA != nil && bodyA.kind == BodyDynamic && !bodyA.sleeping
	dynB := bodyB != nil && bodyB.kind == BodyDynamic && !bodyB.sleeping
	if !dynA && !dynB {
		return
	}

	restitution := e.materialRestitution(ca, cb)
	friction := e.materialFriction(ca, cb)

	switch {
	case dynA && dynB:
		half := c.normal.Mul(c.depth * 0.5)
		bodyA.pose.Position = bodyA.pose.Position.Add(half)
		bodyB.pose.Position = bodyB.pose.Position.Sub(half)

		relVel := bodyA.velocity.Sub(bodyB.velocity)
		velAlongNormal := relVel.Dot(c.normal)
		if velAlongNormal < 0 {
			impulse := c.normal.Mul(-(1 + restitution) * velAlongNormal * 0.5)
			bodyA.velocity = bodyA.velocity.Add(impulse)
			bodyB.velocity = bodyB.velocity.Sub(impulse)
		}
	case dynA:
		e.resolveAgainstImmovable(bodyA, bodyB, c.normal, c.depth, restitution, friction)
	default:
		e.resolveAgainstImmovable(bodyB, bodyA, c.normal.Mul(-1), c.depth, restitution, friction)
	}

	// A touched sleeper wakes if the contact carries real velocity.
	e.wakeOnContact(bodyA, bodyB)
}

// resolveAgainstImmovable pushes body fully out along the normal. other is
// the static/kinematic side (nil for free colliders); a kinematic pusher
// transfers its normal velocity.
func (e *IslandEngine) resolveAgainstImmovable(body, other *islandBody, normal mgl32.Vec3, depth float32, restitution, friction float32) {
	body.pose.Position = body.pose.Position.Add(normal.Mul(depth))

	velAlongNormal := body.velocity.Dot(normal)
	if velAlongNormal < 0 {
		// Reflect the normal component, damp the tangential ones.
		reflected := normal.Mul(-(1 + restitution) * velAlongNormal)
		body.velocity = body.velocity.Add(reflected)
		for axis := 0; axis < 3; axis++ {
			if normal[axis] == 0 {
				body.velocity[axis] *= 1 - friction
			}
		}
		deadzone := float32(0.01)
		for axis := 0; axis < 3; axis++ {
			if abs32(body.velocity[axis]) < deadzone {
				body.velocity[axis] = 0
			}
		}
	}

	if other != nil && other.kind == BodyKinematicVelocity {
		push := other.velocity.Dot(normal)
		if push > 0 {
			body.velocity = body.velocity.Add(normal.Mul(push))
		}
	}
}

func (e *IslandEngine) wakeOnContact(a, b *islandBody) {
	var relVel mgl32.Vec3
	switch {
	case a != nil && b != nil:
		relVel = a.velocity.Sub(b.velocity)
	case a != nil:
		relVel = a.velocity
	case b != nil:
		relVel = b.velocity
	}
	if relVel.Len() <= e.cfg.SleepThreshold*2 {
		return
	}
	if a != nil && a.sleeping {
		e.wakeBody(a)
	}
	if b != nil && b.sleeping {
		e.wakeBody(b)
	}
}

func (e *IslandEngine) ForEachActiveBody(fn func(h Handle, pose Pose)) {
	e.forEachLiveBody(func(h Handle, body *islandBody) {
		if body.kind == BodyStatic || body.sleeping {
			return
		}
		fn(h, body.pose)
	})
}

func (e *IslandEngine) DrainContactEvents(fn func(a, b Handle, started bool)) {
	pending := e.queue
	e.queue = nil
	for _, ev := range pending {
		fn(ev.A, ev.B, ev.Started)
	}
}

// Raycast walks every collider and reports the nearest hit within maxDist.
// Spheres get an exact test, everything else its broadphase AABB.
func (e *IslandEngine) Raycast(origin, dir mgl32.Vec3, maxDist float32) (RaycastHit, bool) {
	if dir.Len() < 1e-6 || maxDist <= 0 {
		return RaycastHit{}, false
	}
	dir = dir.Normalize()

	best := RaycastHit{Distance: maxDist}
	found := false
	for _, h := range e.colliderOrder {
		col, ok := e.colliders[h]
		if !ok {
			continue
		}
		var dist float32
		var hit bool
		if col.desc.Shape == ShapeSphere {
			dist, hit = raySphere(origin, dir, e.colliderCenter(col), col.desc.Radius)
		} else {
			dist, hit = rayAABB(origin, dir, e.colliderAABB(h, col))
		}
		if hit && dist <= maxDist && (!found || dist < best.Distance) {
			best = RaycastHit{
				Collider: h,
				Body:     col.parent,
				Point:    origin.Add(dir.Mul(dist)),
				Distance: dist,
			}
			found = true
		}
	}
	return best, found
}

func (e *IslandEngine) Close() {
	e.bodies = nil
	e.colliders = nil
	e.bodyOrder = nil
	e.colliderOrder = nil
	e.prevPairs = nil
	e.queue = nil
}

// --- helpers ---

func (e *IslandEngine) allocBody() Handle {
	if n := len(e.freeBodies); n > 0 {
		h := e.freeBodies[n-1]
		e.freeBodies = e.freeBodies[:n-1]
		return h
	}
	e.nextBody++
	return e.nextBody
}

func (e *IslandEngine) allocCollider() Handle {
	if n := len(e.freeColliders); n > 0 {
		h := e.freeColliders[n-1]
		e.freeColliders = e.freeColliders[:n-1]
		return h
	}
	e.nextCollider++
	return e.nextCollider
}

// removeHandle drops one handle from an order slice. The order slices
// must never hold a removed handle: a recycled handle would otherwise
// appear twice and be visited twice per tick.
func removeHandle(order []Handle, h Handle) []Handle {
	for i, v := range order {
		if v == h {
			return append(order[:i], order[i+1:]...)
		}
	}
	return order
}

func (e *IslandEngine) forEachLiveBody(fn func(h Handle, body *islandBody)) {
	for _, h := range e.bodyOrder {
		if body, ok := e.bodies[h]; ok {
			fn(h, body)
		}
	}
}

func (e *IslandEngine) ownerBody(col *islandCollider) *islandBody {
	if col == nil || col.parent == NoHandle {
		return nil
	}
	return e.bodies[col.parent]
}

func (e *IslandEngine) colliderImmovable(col *islandCollider) bool {
	body := e.ownerBody(col)
	return body == nil || body.kind == BodyStatic
}

func (e *IslandEngine) pairEmitsEvents(pair pairKey) bool {
	if ca, ok := e.colliders[pair.a]; ok && ca.desc.Events {
		return true
	}
	if cb, ok := e.colliders[pair.b]; ok && cb.desc.Events {
		return true
	}
	return false
}

// colliderCenter is the collider's world-space center: owner pose composed
// with the local offset.
func (e *IslandEngine) colliderCenter(col *islandCollider) mgl32.Vec3 {
	body := e.ownerBody(col)
	if body == nil {
		return col.desc.Offset.Position
	}
	return body.pose.Position.Add(body.pose.Rotation.Rotate(col.desc.Offset.Position))
}

func (e *IslandEngine) colliderAABB(h Handle, col *islandCollider) aabb {
	center := e.colliderCenter(col)
	rot := col.desc.Offset.Rotation
	if body := e.ownerBody(col); body != nil {
		rot = body.pose.Rotation.Mul(col.desc.Offset.Rotation)
	}
	return aabbFromCenter(center, rotatedHalfExtents(rot, col.half))
}

// rotatedHalfExtents bounds a rotated box with an axis-aligned one: each
// world axis takes the absolute row of the rotation matrix times the local
// half extents.
func rotatedHalfExtents(rot mgl32.Quat, half mgl32.Vec3) mgl32.Vec3 {
	m := rot.Mat4()
	var out mgl32.Vec3
	for row := 0; row < 3; row++ {
		out[row] = abs32(m.At(row, 0))*half.X() +
			abs32(m.At(row, 1))*half.Y() +
			abs32(m.At(row, 2))*half.Z()
	}
	return out
}

func (e *IslandEngine) materialFriction(a, b *islandCollider) float32 {
	return (e.colliderFriction(a) + e.colliderFriction(b)) / 2
}

func (e *IslandEngine) materialRestitution(a, b *islandCollider) float32 {
	return (e.colliderRestitution(a) + e.colliderRestitution(b)) / 2
}

func (e *IslandEngine) colliderFriction(c *islandCollider) float32 {
	if c.desc.Friction != nil {
		return *c.desc.Friction
	}
	return e.cfg.DefaultFriction
}

func (e *IslandEngine) colliderRestitution(c *islandCollider) float32 {
	if c.desc.Restitution != nil {
		return *c.desc.Restitution
	}
	return e.cfg.DefaultRestitution
}

func normalizePose(p Pose) Pose {
	if p.Rotation.Len() == 0 {
		p.Rotation = mgl32.QuatIdent()
	} else {
		p.Rotation = p.Rotation.Normalize()
	}
	return p
}

// rayAABB is the classic slab test; returns entry distance.
func rayAABB(origin, dir mgl32.Vec3, box aabb) (float32, bool) {
	tMin := float32(0)
	tMax := float32(math.MaxFloat32)
	for axis := 0; axis < 3; axis++ {
		if abs32(dir[axis]) < 1e-8 {
			if origin[axis] < box.Min[axis] || origin[axis] > box.Max[axis] {
				return 0, false
			}
			continue
		}
		inv := 1 / dir[axis]
		t1 := (box.Min[axis] - origin[axis]) * inv
		t2 := (box.Max[axis] - origin[axis]) * inv
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		if t1 > tMin {
			tMin = t1
		}
		if t2 < tMax {
			tMax = t2
		}
		if tMin > tMax {
			return 0, false
		}
	}
	return tMin, true
}

func raySphere(origin, dir, center mgl32.Vec3, radius float32) (float32, bool) {
	oc := origin.Sub(center)
	b := oc.Dot(dir)
	c := oc.Dot(oc) - radius*radius
	disc := b*b - c
	if disc < 0 {
		return 0, false
	}
	t := -b - float32(math.Sqrt(float64(disc)))
	if t < 0 {
		t = -b + float32(math.Sqrt(float64(disc)))
	}
	if t < 0 {
		return 0, false
	}
	return t, true
}
