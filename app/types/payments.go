package types

import (
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

const (
	defaultListLimit = int32(100)
	maxListLimit     = int32(500)
	maxNumberLength  = 32
)

var validStates = map[string]struct{}{
	"checkout":    {},
	"balance_due": {},
	"processing":  {},
	"pending":     {},
	"completed":   {},
	"failed":      {},
	"void":        {},
	"invalid":     {},
}

func NewCreatePaymentRequestFromContext(ctx echo.Context) (*CreatePaymentRequest, error) {
	var body CreatePaymentRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	body.Currency = strings.ToUpper(strings.TrimSpace(body.Currency))
	body.State = strings.ToLower(strings.TrimSpace(body.State))

	return &body, nil
}

func (r *CreatePaymentRequest) Validate() error {
	if r.GetOrderId() == 0 {
		return errors.New("order_id is required")
	}
	if r.GetAmountCents() <= 0 {
		return errors.New("amount_cents must be > 0")
	}
	if currency := strings.TrimSpace(r.GetCurrency()); currency != "" && len(currency) != 3 {
		return errors.New("currency must be 3 letters")
	}
	if state := r.GetState(); state != "" && state != "checkout" && state != "balance_due" {
		return errors.New("state must be checkout or balance_due")
	}
	return nil
}

func NewPaymentIDRequestFromContext(ctx echo.Context) (*PaymentIDRequest, error) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		return nil, err
	}
	return &PaymentIDRequest{Id: id}, nil
}

func (r *PaymentIDRequest) Validate() error {
	if r.GetId() == 0 {
		return errors.New("invalid payment id")
	}
	return nil
}

func NewPaymentNumberRequestFromContext(ctx echo.Context) (*PaymentNumberRequest, error) {
	return &PaymentNumberRequest{Number: strings.TrimSpace(ctx.Param("number"))}, nil
}

func (r *PaymentNumberRequest) Validate() error {
	number := strings.TrimSpace(r.GetNumber())
	if number == "" || len(number) > maxNumberLength {
		return errors.New("invalid payment number")
	}
	return nil
}

// NewCapturePaymentRequestFromContext accepts an empty body: no amount captures the
// whole outstanding amount.
func NewCapturePaymentRequestFromContext(ctx echo.Context) (*CapturePaymentRequest, error) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		return nil, err
	}

	var body CapturePaymentRequest
	if err = ctx.Bind(&body); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	body.Id = id

	return &body, nil
}

func (r *CapturePaymentRequest) Validate() error {
	if r.GetId() == 0 {
		return errors.New("invalid payment id")
	}
	if amount := r.GetAmountCents(); amount != nil && *amount <= 0 {
		return errors.New("amount_cents must be > 0")
	}
	return nil
}

func NewListPaymentsRequestFromContext(ctx echo.Context) (*ListPaymentsRequest, error) {
	req := &ListPaymentsRequest{
		Limit:  defaultListLimit,
		Offset: 0,
	}

	if orderRaw := strings.TrimSpace(ctx.QueryParam("order_id")); orderRaw != "" {
		orderID, err := strconv.ParseUint(orderRaw, 10, 64)
		if err != nil {
			return nil, err
		}
		req.OrderId = orderID
	}

	if stateRaw := strings.ToLower(strings.TrimSpace(ctx.QueryParam("state"))); stateRaw != "" {
		req.HasState = true
		req.State = stateRaw
	}

	if limitRaw := strings.TrimSpace(ctx.QueryParam("limit")); limitRaw != "" {
		limit, err := strconv.ParseInt(limitRaw, 10, 32)
		if err != nil {
			return nil, err
		}
		req.Limit = int32(limit)
	}

	if offsetRaw := strings.TrimSpace(ctx.QueryParam("offset")); offsetRaw != "" {
		offset, err := strconv.ParseInt(offsetRaw, 10, 32)
		if err != nil {
			return nil, err
		}
		req.Offset = int32(offset)
	}

	return req, nil
}

func (r *ListPaymentsRequest) Validate() error {
	if r.Limit == 0 {
		r.Limit = defaultListLimit
	}
	if r.GetLimit() <= 0 || r.GetLimit() > maxListLimit {
		return errors.New("limit must be between 1 and 500")
	}
	if r.GetOffset() < 0 {
		return errors.New("offset must be >= 0")
	}
	if r.GetHasState() {
		if _, ok := validStates[r.GetState()]; !ok {
			return errors.New("invalid state")
		}
	}
	return nil
}
