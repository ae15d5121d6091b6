package ime

// EditOp is a named editing operation understood by the composition
// engine.
type EditOp int

const (
	EditBackspace EditOp = iota
	EditDelete
	EditEnter
	EditLeft
	EditRight
)

func (op EditOp) String() string {
	switch op {
	case EditBackspace:
		return "backspace"
	case EditDelete:
		return "delete"
	case EditEnter:
		return "enter"
	case EditLeft:
		return "left"
	case EditRight:
		return "right"
	default:
		return "unknown"
	}
}

// Engine is the phonetic composition engine. The session owns one
// Engine for its whole lifetime.
//
// Strings returned by the engine are copies; callers may hold them
// across further engine calls.
type Engine interface {
	// Reset clears the composition buffer and any open candidate list.
	Reset()

	// Handle applies a named editing operation.
	Handle(op EditOp)

	// HandleDefault feeds a printable character.
	HandleDefault(r rune)

	// OpenCandidates opens the candidate list for the phrase at the
	// cursor.
	OpenCandidates()

	// CloseCandidates closes the candidate list.
	CloseCandidates()

	// CandidateTotal returns the number of candidates in the current
	// list.
	CandidateTotal() int

	// CandidatesPerPage returns the page size used for display.
	CandidatesPerPage() int

	// CandidateHasNext reports whether a further list (of a different
	// phrase length) exists.
	CandidateHasNext() bool

	// CandidateNext advances to the next list.
	CandidateNext()

	// CandidateFirst returns to the first list.
	CandidateFirst()

	// ChooseCandidate selects the candidate at index in the current
	// list.
	ChooseCandidate(index int)

	// CandidateString returns the candidate at index in the current
	// list.
	CandidateString(index int) string

	// BufferString returns the converted text awaiting commit.
	BufferString() string

	// PhoneticString returns the unconverted phonetic symbols.
	PhoneticString() string

	// Cursor returns the cursor position within the buffer, counted in
	// characters.
	Cursor() int

	// HasPendingCommit reports whether an editing operation produced
	// text ready to commit that has not been taken yet.
	HasPendingCommit() bool

	// PendingCommit returns that text and clears the pending state.
	PendingCommit() string

	// Close releases the engine.
	Close() error
}
