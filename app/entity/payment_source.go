package entity

import (
	"strings"
	"time"
)

const (
	SourceTypeCreditCard  = "credit_card"
	SourceTypeStoreCredit = "store_credit"
	SourceTypeCheck       = "check"
)

type PaymentSource struct {
	ID   uint64
	Type string

	Name       string
	LastDigits string
	Month      int32
	Year       int32
	Brand      string

	GatewayCustomerProfileID *string
	GatewayPaymentProfileID  *string

	Address *Address

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (s *PaymentSource) TokenBased() bool {
	return s != nil && s.GatewayPaymentProfileID != nil && strings.TrimSpace(*s.GatewayPaymentProfileID) != ""
}
