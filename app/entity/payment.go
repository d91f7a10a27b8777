package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

type Payment struct {
	ID     uint64
	Number string

	OrderID uint64

	Amount   decimal.Decimal
	Currency string

	State PaymentState

	ResponseCode       *string
	AVSResponse        *string
	CVVResponseCode    *string
	CVVResponseMessage *string

	SourceID *uint64
	Source   *PaymentSource

	PaymentMethodID *uint64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Transition applies event if the state table allows it from the current state.
func (p *Payment) Transition(event PaymentEvent) error {
	next, err := NextState(p.State, event)
	if err != nil {
		return err
	}
	p.State = next
	return nil
}

// Recover moves a payment out of processing back to the state it held before
// processing started.
func (p *Payment) Recover(previous PaymentState) error {
	if p.State != StateProcessing || !restartable(previous) {
		return &TransitionError{From: p.State, Event: EventRecover}
	}
	p.State = previous
	return nil
}

// TokenBased reports whether the source is identified by a gateway-stored profile.
func (p *Payment) TokenBased() bool {
	return p.Source != nil && p.Source.TokenBased()
}
