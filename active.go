package asyncfsm

// ActiveMachine is an FSM that lets exactly one transition be requested
// while another is executing, typically by a handler of that transition.
// The request is queued and started as soon as the current one completes.
// A second request before the queued one has started is rejected.
type ActiveMachine struct {
	*Machine

	// guarded by Machine.mu
	pending *request
}

// NewActiveMachine creates an active machine over states
func NewActiveMachine(states []StateID, opts ...MachineOption) (*ActiveMachine, error) {
	m, err := NewMachine(states, opts...)
	if err != nil {
		return nil, err
	}
	a := &ActiveMachine{Machine: m}
	m.dequeue = a.takePending
	return a, nil
}

// SetState starts a transition to to, or queues it if one is in flight.
// The future of a queued request settles when that transition finishes.
func (a *ActiveMachine) SetState(to StateID, payload ...any) *Future {
	return a.request(to, payload, a.enqueue)
}

// Pending returns the target of the queued follow-up, if any
func (a *ActiveMachine) Pending() (StateID, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.pending == nil {
		return "", false
	}
	return a.pending.to, true
}

func (a *ActiveMachine) enqueue(inflight Transition, to StateID, payload []any) *Future {
	if a.pending != nil {
		return Rejected(&AmbiguousTransitionError{
			InFlight:  inflight,
			Scheduled: a.pending.to,
			Requested: to,
		})
	}
	a.pending = &request{
		to:      to,
		payload: payload,
		future:  a.ownedFuture(),
	}
	a.logger.Debug("follow-up queued", "inflight", inflight.String(), "next", to)
	return a.pending.future
}

func (a *ActiveMachine) takePending() *request {
	r := a.pending
	a.pending = nil
	return r
}
