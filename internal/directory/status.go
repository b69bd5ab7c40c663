package directory

import "time"

// State is a loader lifecycle state.
type State int

// Loader states. StateIdle exists only before the first mount and is
// reported as StateLoading.
const (
	StateIdle State = iota
	StateLoading
	StateLoaded
	StateFailed
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Status is the externally observable loader status. Exactly one of the
// three shapes is ever reported:
//
//   - Loading: no message, no snapshot
//   - Failed: Message set, no snapshot
//   - Loaded: Snapshot set (possibly empty), no message
//
// Snapshot is shared with the loader and must be treated as read-only.
type Status struct {
	State    State
	Message  string
	Snapshot []Entity
	LoadedAt time.Time
}

// Loading reports whether the collection is still being obtained.
func (s Status) Loading() bool { return s.State == StateLoading }

// Failed reports whether the last load failed.
func (s Status) Failed() bool { return s.State == StateFailed }

// Loaded reports whether a snapshot is available.
func (s Status) Loaded() bool { return s.State == StateLoaded }
