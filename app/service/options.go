package service

import (
	"context"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/vibast-solutions/ms-go-payment-processing/app/entity"
	"github.com/vibast-solutions/ms-go-payment-processing/app/gateway"
	"github.com/vibast-solutions/ms-go-payment-processing/app/money"
)

// gatewayOptions reloads the order so totals are never stale.
func (s *PaymentService) gatewayOptions(ctx context.Context, payment *entity.Payment) (gateway.Options, error) {
	order, err := s.repos.Orders.FindByID(ctx, payment.OrderID)
	if err != nil {
		return gateway.Options{}, err
	}
	if order == nil {
		return gateway.Options{}, ErrOrderNotFound
	}
	return buildGatewayOptions(order, payment), nil
}

func buildGatewayOptions(order *entity.Order, payment *entity.Payment) gateway.Options {
	currency := money.NormalizeCurrency(payment.Currency)

	opts := gateway.Options{
		Email:    order.Email,
		Customer: order.Email,
		IP:       order.LastIPAddress,
		OrderID:  order.Number + "-" + payment.Number,
		Shipping: minorUnits(order.ShipTotal, currency),
		Tax:      minorUnits(order.AdditionalTaxTotal, currency),
		Subtotal: minorUnits(order.ItemTotal, currency),
		Discount: minorUnits(order.PromoTotal, currency),
		Currency: currency,
	}
	if order.UserID != nil {
		opts.CustomerID = strconv.FormatUint(*order.UserID, 10)
	}

	billing := order.BillAddress
	if payment.Source != nil && payment.Source.Address != nil {
		billing = payment.Source.Address
	}
	opts.BillingAddress = gatewayAddress(billing)
	opts.ShippingAddress = gatewayAddress(order.ShipAddress)

	return opts
}

func minorUnits(amount decimal.Decimal, currency string) int64 {
	m, err := money.New(amount, currency)
	if err != nil {
		return amount.Shift(2).Round(0).IntPart()
	}
	return m.MinorUnits()
}

func gatewayAddress(address *entity.Address) *gateway.Address {
	if address == nil {
		return nil
	}
	return &gateway.Address{
		Name:     address.FullName(),
		Company:  address.Company,
		Address1: address.Address1,
		Address2: address.Address2,
		City:     address.City,
		State:    address.State,
		Zip:      address.Zipcode,
		Country:  address.Country,
		Phone:    address.Phone,
	}
}
