package asyncfsm

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// FSM is the surface shared by passive and active machines
type FSM interface {
	Name() string
	CurrentState() StateID
	States() []StateID
	IsValid(state StateID) bool
	InFlight() (Transition, bool)
	LastTransitionAt() time.Time

	SetState(to StateID, payload ...any) *Future

	OnEnter(state StateID, h Handler) ListenerID
	OffEnter(state StateID, id ListenerID) bool
	OnLeave(state StateID, h Handler) ListenerID
	OffLeave(state StateID, id ListenerID) bool
}

// Machine is a passive FSM: any transition requested while another is
// executing is rejected.
type Machine struct {
	name    string
	states  []StateID
	index   map[StateID]struct{}
	initial StateID
	bus     *EventBus
	logger  *slog.Logger
	clock   func() time.Time

	blockOnFailure bool

	mu        sync.Mutex
	current   StateID
	changedAt time.Time
	inflight  *Transition
	blocked   bool

	// dequeue is consulted with mu held when a transition finishes
	dequeue func() *request
}

// MachineOption is a functional option for configuring a Machine
type MachineOption func(*Machine)

// WithInitialState sets the state the machine starts in. Defaults to the
// first state of the set.
func WithInitialState(state StateID) MachineOption {
	return func(m *Machine) {
		m.initial = state
	}
}

// WithLogger sets the logger for the machine
func WithLogger(logger *slog.Logger) MachineOption {
	return func(m *Machine) {
		m.logger = logger
	}
}

// WithName names the machine in log records. Defaults to a random UUID.
func WithName(name string) MachineOption {
	return func(m *Machine) {
		m.name = name
	}
}

// WithClock overrides the time source for transition timestamps
func WithClock(now func() time.Time) MachineOption {
	return func(m *Machine) {
		m.clock = now
	}
}

// WithBlockOnFailure keeps the transition lock held after a handler fails,
// so every later transition is rejected until the machine is recreated.
func WithBlockOnFailure() MachineOption {
	return func(m *Machine) {
		m.blockOnFailure = true
	}
}

// NewMachine creates a passive machine over states
func NewMachine(states []StateID, opts ...MachineOption) (*Machine, error) {
	if len(states) == 0 {
		return nil, ErrNoStates
	}

	m := &Machine{
		states: slices.Clone(states),
		index:  make(map[StateID]struct{}, len(states)),
		bus:    NewEventBus(),
		logger: Logger,
		clock:  time.Now,
	}
	for _, s := range states {
		if s == "" {
			return nil, ErrEmptyStateID
		}
		if _, ok := m.index[s]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateState, s)
		}
		m.index[s] = struct{}{}
	}

	for _, opt := range opts {
		opt(m)
	}

	if m.initial == "" {
		m.initial = states[0]
	}
	if !m.IsValid(m.initial) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownInitialState, m.initial)
	}
	if m.name == "" {
		m.name = uuid.NewString()
	}
	m.logger = m.logger.With("machine", m.name)

	m.current = m.initial
	m.changedAt = m.clock()
	return m, nil
}

// Name returns the machine's name
func (m *Machine) Name() string {
	return m.name
}

// CurrentState returns the current state
func (m *Machine) CurrentState() StateID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// States returns a copy of the allowed states in declaration order
func (m *Machine) States() []StateID {
	return slices.Clone(m.states)
}

// IsValid reports whether state belongs to the machine's state set
func (m *Machine) IsValid(state StateID) bool {
	_, ok := m.index[state]
	return ok
}

// InFlight returns the transition currently holding the lock
func (m *Machine) InFlight() (Transition, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.inflight == nil {
		return Transition{}, false
	}
	return *m.inflight, true
}

// LastTransitionAt returns when the state last changed, or the construction
// time if it never did
func (m *Machine) LastTransitionAt() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.changedAt
}

// SetState leaves the current state and enters to, passing payload to every
// leave and enter handler. The future settles once all handlers have.
func (m *Machine) SetState(to StateID, payload ...any) *Future {
	return m.request(to, payload, m.rejectBusy)
}

// OnEnter registers h to run after the machine enters state
func (m *Machine) OnEnter(state StateID, h Handler) ListenerID {
	return m.bus.On(EnterEvent(state), m.guard(EnterEvent(state), h))
}

// OffEnter removes an enter handler
func (m *Machine) OffEnter(state StateID, id ListenerID) bool {
	return m.bus.RemoveListener(EnterEvent(state), id)
}

// OnLeave registers h to run before the machine leaves state
func (m *Machine) OnLeave(state StateID, h Handler) ListenerID {
	return m.bus.On(LeaveEvent(state), m.guard(LeaveEvent(state), h))
}

// OffLeave removes a leave handler
func (m *Machine) OffLeave(state StateID, id ListenerID) bool {
	return m.bus.RemoveListener(LeaveEvent(state), id)
}

// request validates to and either starts the transition or, if one is in
// flight, hands over to busy. busy runs with mu held.
func (m *Machine) request(to StateID, payload []any, busy func(inflight Transition, to StateID, payload []any) *Future) *Future {
	if !m.IsValid(to) {
		return Rejected(&InvalidStateError{State: to, Valid: m.States()})
	}

	payload = slices.Clone(payload)

	m.mu.Lock()
	if m.blocked {
		f := m.rejectBusy(*m.inflight, to, payload)
		m.mu.Unlock()
		return f
	}
	if m.inflight != nil {
		f := busy(*m.inflight, to, payload)
		m.mu.Unlock()
		return f
	}
	f := m.ownedFuture()
	t := m.beginLocked(to)
	m.mu.Unlock()

	m.run(t, payload, f)
	return f
}

func (m *Machine) rejectBusy(inflight Transition, to StateID, _ []any) *Future {
	requested := Transition{From: m.current, To: to}
	m.logger.Debug("transition rejected", "transition", requested.String(), "inflight", inflight.String())
	return Rejected(&ConcurrentTransitionError{InFlight: inflight, Requested: requested})
}

func (m *Machine) ownedFuture() *Future {
	f := newFuture()
	f.owner = m
	return f
}

// beginLocked takes the transition lock. mu must be held.
func (m *Machine) beginLocked(to StateID) Transition {
	t := Transition{From: m.current, To: to}
	m.inflight = &t
	return t
}

// drive belongs to one call of step. A transition that completes before its
// step returns leaves the started follow-up here for run to pick up.
type drive struct {
	returned bool

	next     *request
	nextT    Transition
	finished *Future
}

// run drives t and every follow-up handed back by a synchronous finish.
// Follow-ups are looped over, not nested, so the stack stays flat.
func (m *Machine) run(t Transition, payload []any, f *Future) {
	var prev *Future
	for {
		d := &drive{}
		m.step(t, payload, f, d)

		m.mu.Lock()
		d.returned = true
		m.mu.Unlock()

		// the finished transition settles once its follow-up has started
		if prev != nil {
			prev.settle(nil)
		}
		if d.next == nil {
			return
		}
		t, payload, f, prev = d.nextT, d.next.payload, d.next.future, d.finished
	}
}

// step emits leave -> mutate -> enter for t and hands over to finish
func (m *Machine) step(t Transition, payload []any, f *Future, d *drive) {
	m.logger.Debug("transition started", "transition", t.String())

	leave := LeaveEvent(t.From)
	m.bus.Emit(leave, payload...).OnSettle(func(err error) {
		if err != nil {
			m.finish(t, f, &HandlerFailureError{Event: leave, Transition: t, Err: err}, d)
			return
		}

		m.mu.Lock()
		m.current = t.To
		m.changedAt = m.clock()
		m.mu.Unlock()

		enter := EnterEvent(t.To)
		m.bus.Emit(enter, payload...).OnSettle(func(err error) {
			if err != nil {
				m.finish(t, f, &HandlerFailureError{Event: enter, Transition: t, Err: err}, d)
				return
			}
			m.finish(t, f, nil, d)
		})
	})
}

// finish releases the lock (unless blocking on failure), starts a queued
// follow-up under the same lock hold, and settles f. If step is still on the
// stack the follow-up is left in d instead and run settles f.
func (m *Machine) finish(t Transition, f *Future, err error, d *drive) {
	m.mu.Lock()
	if err != nil && m.blockOnFailure {
		m.blocked = true
	} else {
		m.inflight = nil
	}
	var queued *request
	if m.dequeue != nil {
		queued = m.dequeue()
	}
	var next Transition
	start := queued != nil && err == nil
	handoff := false
	if start {
		next = m.beginLocked(queued.to)
		if !d.returned {
			d.next, d.nextT, d.finished = queued, next, f
			handoff = true
		}
	}
	m.mu.Unlock()

	if err != nil {
		m.logger.Warn("transition failed", "transition", t.String(), "error", err, "blocked", m.blockOnFailure)
	} else {
		m.logger.Debug("transition completed", "transition", t.String())
	}

	if queued != nil && !start {
		queued.future.settle(&FollowUpAbortedError{Requested: queued.to, Cause: err})
	}
	if handoff {
		return
	}
	if start {
		m.run(next, queued.payload, queued.future)
	}
	f.settle(err)
}

// guard wraps h so that returning a pending future owned by this machine
// fails the handler instead of deadlocking the transition it runs under.
func (m *Machine) guard(event string, h Handler) Handler {
	return func(payload ...any) *Future {
		f := h(payload...)
		if f != nil && f.owner == m && !f.IsComplete() {
			m.logger.Error("handler waits on its own machine", "event", event)
			return Rejected(fmt.Errorf("%w: %s", ErrSelfWait, event))
		}
		return f
	}
}
