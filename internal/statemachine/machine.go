package statemachine

import (
	"context"
	"errors"
	"fmt"
)

// ErrIllegalTransition is matched by every IllegalTransitionError.
var ErrIllegalTransition = errors.New("illegal transition")

// IllegalTransitionError reports a requested state pair that has no handler.
type IllegalTransitionError struct {
	Entity string
	From   any
	To     any
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("%s: illegal transition from %v to %v", e.Entity, e.From, e.To)
}

// Is reports whether target is ErrIllegalTransition.
func (e *IllegalTransitionError) Is(target error) bool {
	return target == ErrIllegalTransition
}

// Handler applies a transition. It owns every mutation, persistence and
// cascade the transition implies.
type Handler[E any, S comparable, C any] func(ctx context.Context, c C, entity E, from, to S) error

// Transition is one row of a transition table.
type Transition[E any, S comparable, C any] struct {
	From    S
	To      S
	Handler Handler[E, S, C]
}

// Edge is a (from, to) pair without its handler.
type Edge[S comparable] struct {
	From S
	To   S
}

// Observer is called once after every handler invocation with the handler's
// result.
type Observer[E any, S comparable, C any] func(ctx context.Context, c C, entity E, from, to S, err error)

// Machine dispatches transitions through a static table.
type Machine[E any, S comparable, C any] struct {
	name     string
	state    func(E) S
	states   []S
	order    []Edge[S]
	handlers map[Edge[S]]Handler[E, S, C]
	observer Observer[E, S, C]
}

// Option customizes a Machine.
type Option[E any, S comparable, C any] func(*Machine[E, S, C])

// WithObserver registers fn to run after every handler call.
func WithObserver[E any, S comparable, C any](fn Observer[E, S, C]) Option[E, S, C] {
	return func(m *Machine[E, S, C]) {
		m.observer = fn
	}
}

// New builds a Machine for the named entity kind. state reads an entity's
// current state, states enumerates every valid state, and table lists the
// legal transitions. Endpoints outside states, duplicate pairs and nil
// handlers are rejected.
func New[E any, S comparable, C any](name string, state func(E) S, states []S, table []Transition[E, S, C], opts ...Option[E, S, C]) (*Machine[E, S, C], error) {
	if state == nil {
		return nil, fmt.Errorf("%s: state accessor is required", name)
	}
	known := make(map[S]struct{}, len(states))
	for _, s := range states {
		if _, dup := known[s]; dup {
			return nil, fmt.Errorf("%s: state %v listed twice", name, s)
		}
		known[s] = struct{}{}
	}

	m := &Machine[E, S, C]{
		name:     name,
		state:    state,
		states:   append([]S(nil), states...),
		order:    make([]Edge[S], 0, len(table)),
		handlers: make(map[Edge[S]]Handler[E, S, C], len(table)),
	}
	for _, t := range table {
		if _, ok := known[t.From]; !ok {
			return nil, fmt.Errorf("%s: transition source %v is not a known state", name, t.From)
		}
		if _, ok := known[t.To]; !ok {
			return nil, fmt.Errorf("%s: transition target %v is not a known state", name, t.To)
		}
		if t.Handler == nil {
			return nil, fmt.Errorf("%s: transition %v -> %v has no handler", name, t.From, t.To)
		}
		edge := Edge[S]{From: t.From, To: t.To}
		if _, dup := m.handlers[edge]; dup {
			return nil, fmt.Errorf("%s: transition %v -> %v declared twice", name, t.From, t.To)
		}
		m.handlers[edge] = t.Handler
		m.order = append(m.order, edge)
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// MustNew is New that panics on an invalid table.
func MustNew[E any, S comparable, C any](name string, state func(E) S, states []S, table []Transition[E, S, C], opts ...Option[E, S, C]) *Machine[E, S, C] {
	m, err := New(name, state, states, table, opts...)
	if err != nil {
		panic(err)
	}
	return m
}

// Name returns the entity kind the machine governs.
func (m *Machine[E, S, C]) Name() string { return m.name }

// Transition moves entity to the requested state. When no handler exists for
// the current state and to, it returns an *IllegalTransitionError and calls
// nothing.
func (m *Machine[E, S, C]) Transition(ctx context.Context, c C, entity E, to S) error {
	from := m.state(entity)
	handler, ok := m.handlers[Edge[S]{From: from, To: to}]
	if !ok {
		return &IllegalTransitionError{Entity: m.name, From: from, To: to}
	}
	err := handler(ctx, c, entity, from, to)
	if m.observer != nil {
		m.observer(ctx, c, entity, from, to, err)
	}
	return err
}

// Can reports whether a transition from the entity's state to to exists.
func (m *Machine[E, S, C]) Can(entity E, to S) bool {
	_, ok := m.handlers[Edge[S]{From: m.state(entity), To: to}]
	return ok
}

// Allowed lists the states reachable from the entity's current state in
// table order. Terminal and unknown states yield an empty slice.
func (m *Machine[E, S, C]) Allowed(entity E) []S {
	return m.From(m.state(entity))
}

// From lists the targets declared for state.
func (m *Machine[E, S, C]) From(state S) []S {
	targets := []S{}
	for _, edge := range m.order {
		if edge.From == state {
			targets = append(targets, edge.To)
		}
	}
	return targets
}

// Terminal reports whether state has no outgoing transitions.
func (m *Machine[E, S, C]) Terminal(state S) bool {
	for _, edge := range m.order {
		if edge.From == state {
			return false
		}
	}
	return true
}

// States returns the full state enumeration.
func (m *Machine[E, S, C]) States() []S {
	return append([]S(nil), m.states...)
}

// Transitions enumerates the table in declaration order.
func (m *Machine[E, S, C]) Transitions() []Edge[S] {
	return append([]Edge[S](nil), m.order...)
}
