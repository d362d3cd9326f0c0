package shadows

// CommitState is the terminal state of an object shadow commit.
type CommitState int

const (
	// StateCreated means the commit created a new registry object.
	StateCreated CommitState = iota

	// StateReused means the commit bound to an existing registry object.
	StateReused

	// StateSkipped means the shadow was marked skipped: the commit only
	// unpublished whatever object the query resolved to, if any.
	StateSkipped
)

// String returns the state name for logging.
func (s CommitState) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateReused:
		return "reused"
	case StateSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// CommitResult summarises one object shadow commit.
type CommitResult struct {
	// ObjectID is the registry object the shadow resolved to. Empty when a
	// skipped shadow found nothing to unpublish.
	ObjectID string

	// State is the terminal state of the commit.
	State CommitState

	// FilesCreated and FilesReused count the file shadow outcomes.
	FilesCreated int
	FilesReused  int

	// OrphansDeleted counts registry files removed because no shadow
	// referenced them.
	OrphansDeleted int

	// DuplicatesUnpublished counts non-canonical query matches that were
	// unpublished from the configured accesspoints.
	DuplicatesUnpublished int
}

// File shadow status values, reported in the commit summary line.
const (
	FileStatusCreated = "created"
	FileStatusReused  = "reused"
)
