package entity

import (
	"errors"
	"fmt"
)

type PaymentState string

const (
	StateCheckout   PaymentState = "checkout"
	StateBalanceDue PaymentState = "balance_due"
	StateProcessing PaymentState = "processing"
	StatePending    PaymentState = "pending"
	StateCompleted  PaymentState = "completed"
	StateFailed     PaymentState = "failed"
	StateVoid       PaymentState = "void"
	StateInvalid    PaymentState = "invalid"
)

type PaymentEvent string

const (
	EventStartedProcessing PaymentEvent = "started_processing"
	EventPend              PaymentEvent = "pend"
	EventComplete          PaymentEvent = "complete"
	EventFailure           PaymentEvent = "failure"
	EventVoid              PaymentEvent = "void"
	EventInvalidate        PaymentEvent = "invalidate"
	EventRecover           PaymentEvent = "recover"
)

var ErrInvalidTransition = errors.New("invalid payment state transition")

type TransitionError struct {
	From  PaymentState
	Event PaymentEvent
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s a payment in state %s", e.Event, e.From)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

type transition struct {
	from []PaymentState
	to   PaymentState
}

// completed -> processing is legal: re-running an already captured payment is intended.
var transitions = map[PaymentEvent]transition{
	EventStartedProcessing: {
		from: []PaymentState{StateCheckout, StateBalanceDue, StatePending, StateCompleted, StateProcessing},
		to:   StateProcessing,
	},
	EventPend: {
		from: []PaymentState{StateCheckout, StateBalanceDue, StateProcessing},
		to:   StatePending,
	},
	EventComplete: {
		from: []PaymentState{StateCheckout, StateBalanceDue, StateProcessing, StatePending},
		to:   StateCompleted,
	},
	EventFailure: {
		from: []PaymentState{StatePending, StateProcessing},
		to:   StateFailed,
	},
	EventVoid: {
		from: []PaymentState{StateCheckout, StateBalanceDue, StatePending, StateProcessing, StateCompleted},
		to:   StateVoid,
	},
	EventInvalidate: {
		from: []PaymentState{StateCheckout, StateBalanceDue, StatePending},
		to:   StateInvalid,
	},
}

func NextState(from PaymentState, event PaymentEvent) (PaymentState, error) {
	t, ok := transitions[event]
	if !ok {
		return from, &TransitionError{From: from, Event: event}
	}
	for _, candidate := range t.from {
		if candidate == from {
			return t.to, nil
		}
	}
	return from, &TransitionError{From: from, Event: event}
}

func CanTransition(from PaymentState, event PaymentEvent) bool {
	_, err := NextState(from, event)
	return err == nil
}

func ParsePaymentState(raw string) (PaymentState, bool) {
	state := PaymentState(raw)
	switch state {
	case StateCheckout, StateBalanceDue, StateProcessing, StatePending,
		StateCompleted, StateFailed, StateVoid, StateInvalid:
		return state, true
	default:
		return "", false
	}
}

// Terminal states never accept started_processing.
func (s PaymentState) Terminal() bool {
	switch s {
	case StateFailed, StateVoid, StateInvalid:
		return true
	default:
		return false
	}
}

func restartable(s PaymentState) bool {
	return s != StateProcessing && CanTransition(s, EventStartedProcessing)
}
