package ime

// State is the composition state of an InputController.
type State int

const (
	// EmptyState has no readings and no syllable in progress.
	EmptyState State = iota
	// InputtingState shows the best path for a non-empty buffer.
	InputtingState
	// ChoosingCandidateState has the candidate window open.
	ChoosingCandidateState
	// MarkingState has a reading range marked for a new user phrase.
	MarkingState
	// CommittingState is entered while the commit text is delivered.
	CommittingState
)

func (s State) String() string {
	switch s {
	case EmptyState:
		return "empty"
	case InputtingState:
		return "inputting"
	case ChoosingCandidateState:
		return "choosing_candidate"
	case MarkingState:
		return "marking"
	case CommittingState:
		return "committing"
	default:
		return "unknown"
	}
}
