package tether

import "fmt"

// EngineInitError wraps a backend initialization failure. It is fatal:
// nothing in the bridge retries world creation.
type EngineInitError struct {
	Err error
}

func (e *EngineInitError) Error() string {
	return fmt.Sprintf("physics engine init: %v", e.Err)
}

func (e *EngineInitError) Unwrap() error { return e.Err }

// UnsupportedBodyKindError reports an attach call with a body kind outside
// the known enumeration. This is a caller bug and fails fast.
type UnsupportedBodyKindError struct {
	Kind BodyKind
}

func (e *UnsupportedBodyKindError) Error() string {
	return fmt.Sprintf("unsupported body kind %d", int(e.Kind))
}

// DuplicateRegistrationError reports a registry insert for a (kind, handle)
// key that is already mapped. It indicates an attach/detach pairing bug and
// is surfaced instead of silently overwriting the old association.
type DuplicateRegistrationError struct {
	Kind   EntityKind
	Handle Handle
}

func (e *DuplicateRegistrationError) Error() string {
	return fmt.Sprintf("%s handle %d already registered", e.Kind, e.Handle)
}
