package asyncfsm

import "fmt"

// Transition describes a state change. While one is executing it doubles as
// the machine's transition lock.
type Transition struct {
	From StateID
	To   StateID
}

func (t Transition) String() string {
	return fmt.Sprintf("%s -> %s", t.From, t.To)
}

// request is a follow-up transition waiting in an active machine's slot
type request struct {
	to      StateID
	payload []any
	future  *Future
}
