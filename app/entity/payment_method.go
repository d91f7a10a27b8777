package entity

import "time"

type PaymentMethod struct {
	ID          uint64
	Name        string
	Gateway     string
	AutoCapture bool
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
