package asyncfsm

import (
	"fmt"
)

// Definition holds the FSM structure before building a machine
type Definition struct {
	states         []StateID
	initial        StateID
	mode           Mode
	name           string
	blockOnFailure bool
}

// NewDefinition creates a new FSM definition builder
func NewDefinition() *Definition {
	return &Definition{}
}

// State appends states to the definition, in order
func (d *Definition) State(ids ...StateID) *Definition {
	d.states = append(d.states, ids...)
	return d
}

// Initial sets the initial state. Defaults to the first state.
func (d *Definition) Initial(id StateID) *Definition {
	d.initial = id
	return d
}

// Mode sets the machine mode. There is no default.
func (d *Definition) Mode(m Mode) *Definition {
	d.mode = m
	return d
}

// Passive selects ModePassive
func (d *Definition) Passive() *Definition {
	return d.Mode(ModePassive)
}

// Active selects ModeActive
func (d *Definition) Active() *Definition {
	return d.Mode(ModeActive)
}

// Name names the built machine
func (d *Definition) Name(name string) *Definition {
	d.name = name
	return d
}

// BlockOnFailure makes the built machine keep its lock after a handler fails
func (d *Definition) BlockOnFailure() *Definition {
	d.blockOnFailure = true
	return d
}

// Validate checks the definition for errors
func (d *Definition) Validate() error {
	if len(d.states) == 0 {
		return ErrNoStates
	}

	seen := make(map[StateID]bool, len(d.states))
	for _, s := range d.states {
		if s == "" {
			return ErrEmptyStateID
		}
		if seen[s] {
			return fmt.Errorf("%w: %q", ErrDuplicateState, s)
		}
		seen[s] = true
	}

	if d.initial != "" && !seen[d.initial] {
		return fmt.Errorf("%w: %q", ErrUnknownInitialState, d.initial)
	}

	if d.mode == "" {
		return ErrModeRequired
	}

	return nil
}

// buildArgs are the construction arguments the variant predicates see
type buildArgs struct {
	states []StateID
	mode   Mode
	opts   []MachineOption
}

var machineVariants = MustFactory(
	When(func(a buildArgs) bool { return a.mode == ModePassive }, func(a buildArgs) (FSM, error) {
		m, err := NewMachine(a.states, a.opts...)
		if err != nil {
			return nil, err
		}
		return m, nil
	}),
	When(func(a buildArgs) bool { return a.mode == ModeActive }, func(a buildArgs) (FSM, error) {
		m, err := NewActiveMachine(a.states, a.opts...)
		if err != nil {
			return nil, err
		}
		return m, nil
	}),
)

// Build creates a passive or active machine from the definition. opts are
// applied after the definition's own settings.
func (d *Definition) Build(opts ...MachineOption) (FSM, error) {
	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("invalid definition: %w", err)
	}

	var base []MachineOption
	if d.initial != "" {
		base = append(base, WithInitialState(d.initial))
	}
	if d.name != "" {
		base = append(base, WithName(d.name))
	}
	if d.blockOnFailure {
		base = append(base, WithBlockOnFailure())
	}

	m, err := machineVariants.Build(buildArgs{
		states: d.states,
		mode:   d.mode,
		opts:   append(base, opts...),
	})
	if err != nil {
		return nil, fmt.Errorf("mode %q: %w", d.mode, err)
	}
	return m, nil
}
