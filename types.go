package asyncfsm

import "log/slog"

// StateID is a unique identifier for a state
type StateID string

// Mode selects how a machine treats transitions requested while another
// transition is in flight
type Mode string

const (
	// ModePassive rejects every transition requested while one is in flight
	ModePassive Mode = "passive"
	// ModeActive queues exactly one follow-up transition and runs it right
	// after the in-flight one completes
	ModeActive Mode = "active"
)

// Event name prefixes used on the machine's EventBus
const (
	enterPrefix = "enterState:"
	leavePrefix = "leaveState:"
)

// EnterEvent returns the bus event fired after the machine enters state
func EnterEvent(state StateID) string { return enterPrefix + string(state) }

// LeaveEvent returns the bus event fired before the machine leaves state
func LeaveEvent(state StateID) string { return leavePrefix + string(state) }

// Logger is the default logger used when none is provided
var Logger = slog.Default()
