package asyncfsm

import "fmt"

// Candidate pairs a predicate over construction arguments with the
// constructor used when it matches
type Candidate[A, T any] struct {
	Match func(args A) bool
	New   func(args A) (T, error)
}

// When is shorthand for building a Candidate
func When[A, T any](match func(args A) bool, ctor func(args A) (T, error)) Candidate[A, T] {
	return Candidate[A, T]{Match: match, New: ctor}
}

// Factory constructs the first candidate whose predicate matches the
// arguments. Think cond, with constructors instead of actions.
type Factory[A, T any] struct {
	candidates []Candidate[A, T]
}

// NewFactory creates a factory over candidates, tried in order
func NewFactory[A, T any](candidates ...Candidate[A, T]) (*Factory[A, T], error) {
	if len(candidates) == 0 {
		return nil, ErrEmptyConfiguration
	}
	for i, c := range candidates {
		if c.Match == nil || c.New == nil {
			return nil, fmt.Errorf("candidate %d: %w", i, ErrInvalidCandidate)
		}
	}
	return &Factory[A, T]{candidates: append([]Candidate[A, T](nil), candidates...)}, nil
}

// MustFactory is like NewFactory but panics on error
func MustFactory[A, T any](candidates ...Candidate[A, T]) *Factory[A, T] {
	f, err := NewFactory(candidates...)
	if err != nil {
		panic(fmt.Sprintf("failed to create variant factory: %v", err))
	}
	return f
}

// Build constructs the variant selected by args
func (f *Factory[A, T]) Build(args A) (T, error) {
	for _, c := range f.candidates {
		if c.Match(args) {
			return c.New(args)
		}
	}
	var zero T
	return zero, fmt.Errorf("%w (%d candidates)", ErrNoMatch, len(f.candidates))
}

// Extend derives a factory for a type built on top of the selected variant.
// wrap receives whatever base selects; an S that embeds T keeps its own
// methods and falls through to the variant for everything else.
func Extend[A, T, S any](base *Factory[A, T], wrap func(T) S) *Factory[A, S] {
	derived := make([]Candidate[A, S], len(base.candidates))
	for i, c := range base.candidates {
		derived[i] = Candidate[A, S]{
			Match: c.Match,
			New: func(args A) (S, error) {
				v, err := c.New(args)
				if err != nil {
					var zero S
					return zero, err
				}
				return wrap(v), nil
			},
		}
	}
	return &Factory[A, S]{candidates: derived}
}
