package generate

// State is the generation state of one cache key.
type State int

// Generation states.
const (
	// StateAbsent means no artifact exists and no build is known to run.
	StateAbsent State = iota

	// StateLocked means the lock is held and the artifact was missing.
	StateLocked

	// StateBuilding means the build is running.
	StateBuilding

	// StatePresent means the artifact is published.
	StatePresent

	// StateFailed means the last in-process attempt failed. The next
	// request builds again.
	StateFailed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateAbsent:
		return "absent"
	case StateLocked:
		return "locked"
	case StateBuilding:
		return "building"
	case StatePresent:
		return "present"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// InProgress reports whether a build for the key holds the lock.
func (s State) InProgress() bool {
	return s == StateLocked || s == StateBuilding
}
