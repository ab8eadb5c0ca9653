package statemachine

import (
	"fmt"
	"strings"

	"cafe-ordering/models"
)

// PaymentState is the payment status of an order
type PaymentState string

const (
	Unpaid PaymentState = "UNPAID"
	Paid   PaymentState = "PAID"
)

// StateOf maps the stored paid flag to a PaymentState
func StateOf(paid bool) PaymentState {
	if paid {
		return Paid
	}
	return Unpaid
}

// Transition defines a valid state change and who can perform it
type Transition struct {
	From  PaymentState
	To    PaymentState
	Actor models.UserRole
}

// validTransitions is the authoritative payment lifecycle. PAID is terminal.
var validTransitions = []Transition{
	{From: Unpaid, To: Paid, Actor: models.RoleEmployee},
	{From: Unpaid, To: Paid, Actor: models.RoleManager},
}

type transitionKey struct {
	From  PaymentState
	To    PaymentState
	Actor models.UserRole
}

var transitionMap = func() map[transitionKey]bool {
	m := make(map[transitionKey]bool)
	for _, t := range validTransitions {
		m[transitionKey{t.From, t.To, t.Actor}] = true
	}
	return m
}()

// IsTerminal reports whether no transition leaves the state.
func IsTerminal(state PaymentState) bool {
	return len(ValidTransitionsFrom(state)) == 0
}

// ValidTransitionsFrom returns all valid next states from a given state
func ValidTransitionsFrom(state PaymentState) []PaymentState {
	var nexts []PaymentState
	seen := map[PaymentState]bool{}
	for _, t := range validTransitions {
		if t.From == state && !seen[t.To] {
			nexts = append(nexts, t.To)
			seen[t.To] = true
		}
	}
	return nexts
}

// CanTransition checks if a given actor role can move from one state to another
func CanTransition(from, to PaymentState, actor models.UserRole) error {
	if transitionMap[transitionKey{From: from, To: to, Actor: actor}] {
		return nil
	}
	return fmt.Errorf("invalid transition: %s -> %s is not allowed for %s; allowed roles: %s",
		from, to, actor, describeActors(from, to))
}

func describeActors(from, to PaymentState) string {
	var roles []string
	for _, t := range validTransitions {
		if t.From == from && t.To == to {
			roles = append(roles, string(t.Actor))
		}
	}
	if len(roles) == 0 {
		return "none"
	}
	return strings.Join(roles, ", ")
}
