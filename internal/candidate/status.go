package candidate

import "fmt"

// MaxFailures is the saturation point of probe and convert failure counters.
const MaxFailures = 9

// State names a Candidate lifecycle state.
type State uint8

const (
	StateUnprobed State = iota
	StateProbeFailed
	StateProbed
	StateSelected
	StateInProgress
	StateConvertedOK
	StateConvertedShort
	StateConvertFailed
)

var stateNames = map[State]string{
	StateUnprobed:       "UNPROBED",
	StateProbeFailed:    "PROBE_FAILED",
	StateProbed:         "PROBED",
	StateSelected:       "SELECTED",
	StateInProgress:     "IN_PROGRESS",
	StateConvertedOK:    "CONVERTED_OK",
	StateConvertedShort: "CONVERTED_SHORT",
	StateConvertFailed:  "CONVERT_FAILED",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

// Status is a tagged state. Count is meaningful only for PROBE_FAILED and
// CONVERT_FAILED.
type Status struct {
	State State
	Count int
}

func (s Status) String() string {
	switch s.State {
	case StateProbeFailed, StateConvertFailed:
		return fmt.Sprintf("%s(%d)", s.State, s.Count)
	case StateConvertedShort:
		return s.State.String() + "(insufficient-shrink)"
	}
	return s.State.String()
}

// Short renders a compact status label for tables.
func (s Status) Short() string {
	switch s.State {
	case StateUnprobed:
		return "..."
	case StateProbeFailed:
		return fmt.Sprintf("PF%d", s.Count)
	case StateProbed:
		return "[ ]"
	case StateSelected:
		return "[X]"
	case StateInProgress:
		return "IP"
	case StateConvertedOK:
		return "OK"
	case StateConvertedShort:
		return "SHRT"
	case StateConvertFailed:
		return fmt.Sprintf("ERR%d", s.Count)
	}
	return "?"
}

func saturate(n int) int {
	return min(MaxFailures, max(0, n))
}
