package entity

import "github.com/shopspring/decimal"

// Order is read from the checkout system; this service never writes it.
type Order struct {
	ID     uint64
	Number string

	Email         string
	UserID        *uint64
	LastIPAddress string

	Currency string

	ItemTotal          decimal.Decimal
	ShipTotal          decimal.Decimal
	AdditionalTaxTotal decimal.Decimal
	PromoTotal         decimal.Decimal

	BillAddress *Address
	ShipAddress *Address
}

type Address struct {
	ID        uint64
	FirstName string
	LastName  string
	Company   string
	Address1  string
	Address2  string
	City      string
	State     string
	Zipcode   string
	Country   string
	Phone     string
}

func (a *Address) FullName() string {
	if a == nil {
		return ""
	}
	switch {
	case a.FirstName == "":
		return a.LastName
	case a.LastName == "":
		return a.FirstName
	default:
		return a.FirstName + " " + a.LastName
	}
}
