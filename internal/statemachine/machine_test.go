package statemachine_test

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"editorial/internal/statemachine"
)

type light struct {
	state string
	log   []string
}

type actor struct{ name string }

func lightMachine(t *testing.T, opts ...statemachine.Option[*light, string, *actor]) *statemachine.Machine[*light, string, *actor] {
	t.Helper()
	move := func(ctx context.Context, a *actor, l *light, from, to string) error {
		who := "nobody"
		if a != nil {
			who = a.name
		}
		l.log = append(l.log, who+":"+from+">"+to)
		l.state = to
		return nil
	}
	m, err := statemachine.New("light",
		func(l *light) string { return l.state },
		[]string{"red", "green", "yellow", "off"},
		[]statemachine.Transition[*light, string, *actor]{
			{From: "red", To: "green", Handler: move},
			{From: "green", To: "yellow", Handler: move},
			{From: "yellow", To: "red", Handler: move},
			{From: "red", To: "off", Handler: move},
		},
		opts...,
	)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return m
}

func TestTransitionInvokesHandler(t *testing.T) {
	m := lightMachine(t)
	l := &light{state: "red"}

	if err := m.Transition(context.Background(), &actor{name: "ed"}, l, "green"); err != nil {
		t.Fatalf("Transition returned error: %v", err)
	}
	if l.state != "green" {
		t.Fatalf("expected green, got %s", l.state)
	}
	if !reflect.DeepEqual(l.log, []string{"ed:red>green"}) {
		t.Fatalf("unexpected handler log %v", l.log)
	}
}

func TestTransitionToleratesNilContext(t *testing.T) {
	m := lightMachine(t)
	l := &light{state: "red"}
	if err := m.Transition(context.Background(), nil, l, "off"); err != nil {
		t.Fatalf("Transition returned error: %v", err)
	}
	if l.log[0] != "nobody:red>off" {
		t.Fatalf("unexpected handler log %v", l.log)
	}
}

func TestIllegalTransitionRunsNothing(t *testing.T) {
	var observed int
	m := lightMachine(t, statemachine.WithObserver(func(context.Context, *actor, *light, string, string, error) {
		observed++
	}))

	for _, state := range m.States() {
		allowed := map[string]bool{}
		for _, to := range m.From(state) {
			allowed[to] = true
		}
		for _, to := range m.States() {
			if allowed[to] {
				continue
			}
			l := &light{state: state}
			err := m.Transition(context.Background(), nil, l, to)
			if !errors.Is(err, statemachine.ErrIllegalTransition) {
				t.Fatalf("%s -> %s: expected ErrIllegalTransition, got %v", state, to, err)
			}
			var illegal *statemachine.IllegalTransitionError
			if !errors.As(err, &illegal) || illegal.From != state || illegal.To != to {
				t.Fatalf("%s -> %s: unexpected error detail %#v", state, to, err)
			}
			if l.state != state || len(l.log) != 0 {
				t.Fatalf("%s -> %s: entity mutated: %#v", state, to, l)
			}
		}
	}
	if observed != 0 {
		t.Fatalf("observer called %d times for illegal transitions", observed)
	}
}

func TestAllowedAndTerminal(t *testing.T) {
	m := lightMachine(t)

	if got := m.Allowed(&light{state: "red"}); !reflect.DeepEqual(got, []string{"green", "off"}) {
		t.Fatalf("Allowed(red) = %v", got)
	}
	if got := m.Allowed(&light{state: "off"}); got == nil || len(got) != 0 {
		t.Fatalf("Allowed(off) = %#v, want empty slice", got)
	}
	if got := m.Allowed(&light{state: "blinking"}); len(got) != 0 {
		t.Fatalf("Allowed(unknown) = %v, want empty", got)
	}
	if !m.Terminal("off") || m.Terminal("red") {
		t.Fatal("unexpected Terminal results")
	}
	if !m.Can(&light{state: "yellow"}, "red") || m.Can(&light{state: "yellow"}, "green") {
		t.Fatal("unexpected Can results")
	}
	if len(m.Transitions()) != 4 {
		t.Fatalf("expected 4 transitions, got %d", len(m.Transitions()))
	}
}

func TestObserverSeesHandlerError(t *testing.T) {
	boom := errors.New("boom")
	var seen []error
	m := statemachine.MustNew("door",
		func(s *string) string { return *s },
		[]string{"open", "closed"},
		[]statemachine.Transition[*string, string, struct{}]{
			{From: "open", To: "closed", Handler: func(context.Context, struct{}, *string, string, string) error { return boom }},
		},
		statemachine.WithObserver(func(_ context.Context, _ struct{}, _ *string, from, to string, err error) {
			seen = append(seen, err)
		}),
	)

	door := "open"
	if err := m.Transition(context.Background(), struct{}{}, &door, "closed"); !errors.Is(err, boom) {
		t.Fatalf("expected handler error, got %v", err)
	}
	if len(seen) != 1 || !errors.Is(seen[0], boom) {
		t.Fatalf("expected one observation carrying the error, got %v", seen)
	}
}

func TestNewRejectsInvalidTables(t *testing.T) {
	noop := func(context.Context, struct{}, *string, string, string) error { return nil }
	state := func(s *string) string { return *s }
	states := []string{"a", "b"}

	cases := map[string][]statemachine.Transition[*string, string, struct{}]{
		"unknown source": {{From: "z", To: "a", Handler: noop}},
		"unknown target": {{From: "a", To: "z", Handler: noop}},
		"duplicate":      {{From: "a", To: "b", Handler: noop}, {From: "a", To: "b", Handler: noop}},
		"nil handler":    {{From: "a", To: "b"}},
	}
	for name, table := range cases {
		if _, err := statemachine.New("bad", state, states, table); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}

	defer func() {
		if recover() == nil {
			t.Fatal("expected MustNew to panic")
		}
	}()
	statemachine.MustNew("bad", state, states, cases["duplicate"])
}
