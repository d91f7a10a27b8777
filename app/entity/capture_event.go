package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

type CaptureEvent struct {
	ID        uint64
	PaymentID uint64
	Amount    decimal.Decimal
	CreatedAt time.Time
}
