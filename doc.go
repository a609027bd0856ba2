// Package asyncfsm provides an in-process finite-state machine whose
// transitions wait for asynchronous handlers.
//
// A machine holds one state out of a fixed, ordered set. SetState leaves the
// current state, switches, and enters the new one:
//
//  1. every "leave" handler of the current state runs and its *Future settles
//  2. the current state changes
//  3. every "enter" handler of the new state runs and its *Future settles
//
// Handlers run synchronously, in registration order, when their event fires.
// A handler that has nothing to wait for returns nil; otherwise it returns a
// *Future (see Go and NewDeferred) and the transition resumes once it settles.
//
// # Modes
//
// While a transition is executing it holds the machine's transition lock.
//
// A passive Machine rejects every transition requested under the lock with a
// *ConcurrentTransitionError, including requests made by the handlers of that
// transition. No handler can decide on its own what happens next.
//
// An ActiveMachine accepts exactly one such request, queues it and starts it
// as soon as the current transition completes. This covers the common "on
// entering X do some work, then move to Y" case. A second request while one
// is queued fails with *AmbiguousTransitionError.
//
//	m, _ := asyncfsm.NewDefinition().
//	    State("idle", "work", "done").
//	    Active().
//	    Build()
//
//	m.OnEnter("work", func(payload ...any) *asyncfsm.Future {
//	    return asyncfsm.Go(func() error {
//	        defer m.SetState("done")
//	        return process(payload...)
//	    })
//	})
//
//	err := m.SetState("work", job).Wait()
//
// The mode has no default; Definition.Build and New fail with ErrModeRequired
// when it is not set.
//
// # Failures
//
// A failing handler fails the transition with a *HandlerFailureError. By
// default the lock is released and the machine stays usable; with
// WithBlockOnFailure it stays locked and every later request is rejected.
// A follow-up queued behind a failed transition is rejected with
// *FollowUpAbortedError.
//
// A handler must not make its own completion depend on a transition of its
// machine that cannot start before the handler finishes. Returning such a
// future directly is detected and fails the handler with ErrSelfWait.
//
// # Variants
//
// Factory picks one of several constructors based on predicates over the
// construction arguments. Extend derives a factory for a type that embeds
// the selected variant and overrides some of its methods.
package asyncfsm
