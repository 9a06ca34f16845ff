package monitor

// Status tracks a job through one sweep. State is derived from filesystem
// observation; nothing is persisted between passes, so a skipped candidate
// simply starts over as a candidate next time.
type Status int

const (
	// StatusCandidate is a discovered file not yet checked for stability.
	StatusCandidate Status = iota
	// StatusStable is a file whose size held steady across the sample delay.
	StatusStable
	// StatusInFlight is a job whose generation call is running.
	StatusInFlight
	// StatusCompleted is a job renamed with the .complete suffix.
	StatusCompleted
	// StatusFailed is a job renamed with the .error suffix.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusCandidate:
		return "candidate"
	case StatusStable:
		return "stable"
	case StatusInFlight:
		return "in-flight"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Job is one prompt file moving through a sweep. A job has no identity
// beyond its path; terminal state is encoded on disk by the rename suffix.
type Job struct {
	Path   string
	Status Status
}
