package ime

import "fmt"

// Mode is the input mode derived from session state.
type Mode int

const (
	Composing Mode = iota
	CandidateSelect
	Forwarding
)

func (m Mode) String() string {
	switch m {
	case Composing:
		return "composing"
	case CandidateSelect:
		return "candidate-select"
	case Forwarding:
		return "forwarding"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode parses the names produced by Mode.String. "chinese" and
// "english" are accepted as aliases for composing and forwarding.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "composing", "chinese":
		return Composing, nil
	case "candidate-select":
		return CandidateSelect, nil
	case "forwarding", "english":
		return Forwarding, nil
	default:
		return 0, fmt.Errorf("unknown mode %q", s)
	}
}
