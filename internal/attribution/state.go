package attribution

import "sync/atomic"

// State is the phase the engine is in. It advances monotonically through a
// run and is readable lock-free at any time.
type State uint32

const (
	// Idle means no run has started, or a new run is being prepared.
	Idle State = iota

	// Walking covers loading and ordering the commit graph.
	Walking

	// Diffing covers the start of per-commit tree comparison.
	Diffing

	// Blaming covers provenance updates across the walk.
	Blaming

	// Classifying covers language detection and line classification of the
	// final snapshot.
	Classifying

	// Aggregated marks the merge of worker partitions into the store.
	Aggregated

	// Ready means the query surface serves results.
	Ready

	// Failed is terminal for the run; FailureKind carries the cause.
	Failed
)

// String names the state for logs and error messages.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Walking:
		return "walking"
	case Diffing:
		return "diffing"
	case Blaming:
		return "blaming"
	case Classifying:
		return "classifying"
	case Aggregated:
		return "aggregated"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// FailureKind classifies why a run reached Failed.
type FailureKind uint32

const (
	// FailureNone means the engine has not failed.
	FailureNone FailureKind = iota

	// FailureCancelled marks a run aborted by context cancellation.
	FailureCancelled

	// FailureTimeout marks a run aborted by a deadline or store timeout.
	FailureTimeout

	// FailureCorruptHistory marks an unresolvable or cyclic commit graph.
	FailureCorruptHistory

	// FailureInternal marks any other fatal error.
	FailureInternal
)

// String names the failure kind.
func (k FailureKind) String() string {
	switch k {
	case FailureNone:
		return "none"
	case FailureCancelled:
		return "cancelled"
	case FailureTimeout:
		return "timeout"
	case FailureCorruptHistory:
		return "corrupt-history"
	case FailureInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// machine holds the lock-free state pair.
type machine struct {
	state   atomic.Uint32
	failure atomic.Uint32
}

func (m *machine) set(s State) {
	m.state.Store(uint32(s))
}

// reset rewinds to Idle and clears any recorded failure.
func (m *machine) reset() {
	m.failure.Store(uint32(FailureNone))
	m.state.Store(uint32(Idle))
}

func (m *machine) fail(kind FailureKind) {
	m.failure.Store(uint32(kind))
	m.state.Store(uint32(Failed))
}

func (m *machine) current() State {
	return State(m.state.Load())
}

func (m *machine) failureKind() FailureKind {
	return FailureKind(m.failure.Load())
}
