package entity

import "time"

// PaymentStateEvent is the audit row written for every persisted state transition.
type PaymentStateEvent struct {
	ID uint64

	PaymentID     uint64
	PaymentNumber string

	EventType string

	OldState *PaymentState
	NewState PaymentState

	CreatedAt time.Time
}
