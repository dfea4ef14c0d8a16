package checkout

import (
	"fmt"
	"slices"
)

// State is where the buyer's checkout currently stands, as seen by the client.
type State string

const (
	StateIdle                 State = "idle"
	StateInitiating           State = "initiating"
	StateRedirectedToProvider State = "redirected_to_provider"
	StateAwaitingScanPayment  State = "awaiting_scan_payment"
	StatePollingResult        State = "polling_result"
	StateSuccess              State = "success"
	StateFailed               State = "failed"
	StateTimedOut             State = "timed_out"
)

var validNext = map[State][]State{
	StateIdle:                 {StateInitiating},
	StateInitiating:           {StateRedirectedToProvider, StateAwaitingScanPayment, StateFailed},
	StateRedirectedToProvider: {StatePollingResult},
	StateAwaitingScanPayment:  {StatePollingResult},
	StatePollingResult:        {StateSuccess, StateFailed, StateTimedOut},
	// "Try payment again" re-initiates the same order.
	StateFailed: {StateInitiating},
	// "Check back later" resumes polling; the order is untouched.
	StateTimedOut: {StatePollingResult},
}

func (s State) CanTransition(to State) bool {
	return slices.Contains(validNext[s], to)
}

func (s State) Terminal() bool {
	return s == StateSuccess || s == StateFailed || s == StateTimedOut
}

type TransitionError struct {
	From, To State
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("checkout: cannot move from %s to %s", e.From, e.To)
}
