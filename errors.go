package asyncfsm

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNoStates            = errors.New("state set is empty")
	ErrEmptyStateID        = errors.New("state id cannot be empty")
	ErrDuplicateState      = errors.New("duplicate state")
	ErrUnknownInitialState = errors.New("initial state is not in the state set")
	ErrModeRequired        = errors.New("machine mode must be set explicitly")
	ErrInvalidConfig       = errors.New("invalid machine config")

	ErrEmptyConfiguration = errors.New("variant factory has no candidates")
	ErrInvalidCandidate   = errors.New("variant candidate needs both a predicate and a constructor")
	ErrNoMatch            = errors.New("no variant predicate matched the arguments")

	// ErrSelfWait is returned when a handler makes its completion depend on a
	// transition of its own machine that cannot finish before the handler does.
	ErrSelfWait      = errors.New("handler waits on a transition of its own machine")
	ErrListenerPanic = errors.New("event handler panicked")
)

// InvalidStateError indicates a transition to a label outside the state set
type InvalidStateError struct {
	State StateID
	Valid []StateID
}

func (e *InvalidStateError) Error() string {
	valid := make([]string, len(e.Valid))
	for i, s := range e.Valid {
		valid[i] = string(s)
	}
	return fmt.Sprintf("'%s' is not a valid state, valid ones are %s", e.State, strings.Join(valid, ","))
}

// ConcurrentTransitionError indicates a transition requested while another
// one was executing
type ConcurrentTransitionError struct {
	InFlight  Transition
	Requested Transition
}

func (e *ConcurrentTransitionError) Error() string {
	return fmt.Sprintf("tried to switch (%s) while already switching (%s)", e.Requested, e.InFlight)
}

// AmbiguousTransitionError indicates a second follow-up requested while one
// is already scheduled
type AmbiguousTransitionError struct {
	InFlight  Transition
	Scheduled StateID
	Requested StateID
}

func (e *AmbiguousTransitionError) Error() string {
	return fmt.Sprintf("ambiguous state change while switching (%s): requested %s while already scheduled %s",
		e.InFlight, e.Requested, e.Scheduled)
}

// HandlerFailureError indicates a leave or enter handler failed
type HandlerFailureError struct {
	Event      string
	Transition Transition
	Err        error
}

func (e *HandlerFailureError) Error() string {
	return fmt.Sprintf("handler for %s failed during (%s): %v", e.Event, e.Transition, e.Err)
}

func (e *HandlerFailureError) Unwrap() error { return e.Err }

// FollowUpAbortedError is returned to the caller of a queued follow-up when
// the transition it was waiting behind failed
type FollowUpAbortedError struct {
	Requested StateID
	Cause     error
}

func (e *FollowUpAbortedError) Error() string {
	return fmt.Sprintf("scheduled switch to %s aborted: %v", e.Requested, e.Cause)
}

func (e *FollowUpAbortedError) Unwrap() error { return e.Cause }

// IsInvalidStateError reports whether err carries an *InvalidStateError
func IsInvalidStateError(err error) bool {
	var e *InvalidStateError
	return errors.As(err, &e)
}

// IsConcurrentTransitionError reports whether a transition was rejected because another held the lock
func IsConcurrentTransitionError(err error) bool {
	var e *ConcurrentTransitionError
	return errors.As(err, &e)
}

// IsAmbiguousTransitionError reports whether a follow-up was rejected because one was already queued
func IsAmbiguousTransitionError(err error) bool {
	var e *AmbiguousTransitionError
	return errors.As(err, &e)
}

// IsHandlerFailureError reports whether a transition failed in one of its handlers
func IsHandlerFailureError(err error) bool {
	var e *HandlerFailureError
	return errors.As(err, &e)
}

// IsFollowUpAbortedError reports whether a queued follow-up was dropped
// because the transition ahead of it failed
func IsFollowUpAbortedError(err error) bool {
	var e *FollowUpAbortedError
	return errors.As(err, &e)
}
