package entity

import "time"

// LogEntry keeps the raw serialization of one gateway response.
type LogEntry struct {
	ID        uint64
	PaymentID uint64
	Details   string
	CreatedAt time.Time
}
