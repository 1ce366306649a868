package session

import "fmt"

// State is the session lifecycle state. Transitions are validated: an illegal
// transition is a defect in the caller, not a race to be papered over.
type State int

const (
	Disconnected State = iota
	Authenticating
	Ready
	Sending
	AwaitingOutput
	Closed
	Failed
)

var stateNames = map[State]string{
	Disconnected:   "disconnected",
	Authenticating: "authenticating",
	Ready:          "ready",
	Sending:        "sending",
	AwaitingOutput: "awaiting-output",
	Closed:         "closed",
	Failed:         "failed",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// transitions is the legal next-state set per state. Failed and Closed are
// reachable from anywhere (error transition and teardown respectively) and
// are handled outside this table.
var transitions = map[State][]State{
	Disconnected:   {Authenticating},
	Authenticating: {Ready},
	Ready:          {Sending},
	Sending:        {AwaitingOutput},
	AwaitingOutput: {Ready},
}

// TransitionError reports an illegal state transition, e.g. sending a command
// while still awaiting output.
type TransitionError struct {
	From, To State
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("illegal session transition %s -> %s", e.From, e.To)
}

func legal(from, to State) bool {
	if to == Failed || to == Closed {
		return true
	}
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
