// Package lifecycle defines the thesis states and the table of transitions
// allowed between them. Services must call Check before persisting a state change.
package lifecycle

import (
	"errors"
	"fmt"
)

// State is the lifecycle state of a thesis
type State string

const (
	Unassigned       State = "Unassigned"
	UnderAssignment  State = "UnderAssignment"
	Active           State = "Active"
	UnderExamination State = "UnderExamination"
	Completed        State = "Completed"
	Canceled         State = "Canceled"
)

// Trigger identifies who (or what) causes a transition
type Trigger string

const (
	ByInstructor Trigger = "instructor"
	BySecretary  Trigger = "secretary"
	// ByCommittee is the automatic transition fired when the second member accepts.
	ByCommittee Trigger = "committee"
)

var (
	ErrInvalidTransition = errors.New("transition not allowed")
	ErrTriggerNotAllowed = errors.New("actor may not trigger this transition")
	ErrUnknownState      = errors.New("unknown thesis state")
)

// Transition is one edge of the thesis state machine
type Transition struct {
	From     State
	To       State
	Triggers []Trigger
}

var transitions = []Transition{
	{From: Unassigned, To: UnderAssignment, Triggers: []Trigger{ByInstructor}},
	{From: UnderAssignment, To: Unassigned, Triggers: []Trigger{ByInstructor}},
	{From: UnderAssignment, To: Active, Triggers: []Trigger{ByCommittee}},
	{From: Active, To: UnderExamination, Triggers: []Trigger{ByInstructor, BySecretary}},
	{From: UnderExamination, To: Completed, Triggers: []Trigger{BySecretary}},
	{From: UnderAssignment, To: Canceled, Triggers: []Trigger{BySecretary}},
	{From: Active, To: Canceled, Triggers: []Trigger{BySecretary}},
}

var allStates = []State{Unassigned, UnderAssignment, Active, UnderExamination, Completed, Canceled}

// Parse converts a stored state value into a State
func Parse(s string) (State, error) {
	for _, st := range allStates {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownState, s)
}

// Valid reports whether s is one of the known states
func (s State) Valid() bool {
	_, err := Parse(string(s))
	return err == nil
}

// Terminal reports whether no transition leaves s
func (s State) Terminal() bool {
	for _, t := range transitions {
		if t.From == s {
			return false
		}
	}
	return true
}

// Cancelable reports whether a secretary may cancel a thesis in state s
func (s State) Cancelable() bool {
	return Allowed(s, Canceled)
}

// Allowed reports whether the table contains an edge from -> to
func Allowed(from, to State) bool {
	return find(from, to) != nil
}

// Check validates that trigger may move a thesis from one state to another.
// The returned error wraps ErrInvalidTransition or ErrTriggerNotAllowed.
func Check(from, to State, trigger Trigger) error {
	t := find(from, to)
	if t == nil {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	for _, allowed := range t.Triggers {
		if allowed == trigger {
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s by %s", ErrTriggerNotAllowed, from, to, trigger)
}

// Next lists the states reachable from s
func Next(s State) []State {
	var next []State
	for _, t := range transitions {
		if t.From == s {
			next = append(next, t.To)
		}
	}
	return next
}

func find(from, to State) *Transition {
	for i := range transitions {
		if transitions[i].From == from && transitions[i].To == to {
			return &transitions[i]
		}
	}
	return nil
}
