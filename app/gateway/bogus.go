package gateway

import (
	"context"
	"errors"
	"strings"

	"github.com/vibast-solutions/ms-go-payment-processing/app/entity"
)

const (
	BogusCode          = "bogus"
	BogusAuthorization = "12345"

	bogusSuccessMessage = "Bogus Gateway: Forced success"
	bogusFailureMessage = "Bogus Gateway: Forced failure"
	bogusProfilePrefix  = "BGS-"

	// Cards ending in this digit group simulate a gateway that never answers.
	BogusConnectionFailureDigits = "0119"
)

var bogusValidDigits = map[string]struct{}{
	"1111": {},
	"1881": {},
	"2222": {},
	"4242": {},
}

var errBogusTimeout = errors.New("bogus gateway: read timeout")

// BogusGateway is the development and test gateway. It never leaves the process.
type BogusGateway struct {
	ProfilesSupported bool
}

func NewBogusGateway(profilesSupported bool) *BogusGateway {
	return &BogusGateway{ProfilesSupported: profilesSupported}
}

func (g *BogusGateway) Code() string {
	return BogusCode
}

func (g *BogusGateway) Authorize(_ context.Context, _ int64, source *entity.PaymentSource, _ Options) (*Response, error) {
	return g.charge(ActionAuthorize, source)
}

func (g *BogusGateway) Purchase(_ context.Context, _ int64, source *entity.PaymentSource, _ Options) (*Response, error) {
	return g.charge(ActionPurchase, source)
}

func (g *BogusGateway) Capture(_ context.Context, _ int64, authorization string, _ Options) (*Response, error) {
	if strings.TrimSpace(authorization) == BogusAuthorization {
		return bogusSuccess(), nil
	}
	return bogusFailure(), nil
}

func (g *BogusGateway) Void(_ context.Context, _ string, _ *entity.PaymentSource, _ Options) (*Response, error) {
	return bogusSuccess(), nil
}

func (g *BogusGateway) Cancel(_ context.Context, _ string) (*Response, error) {
	return bogusSuccess(), nil
}

func (g *BogusGateway) SupportsSource(source *entity.PaymentSource) bool {
	return source != nil && source.Type == entity.SourceTypeCreditCard
}

func (g *BogusGateway) SourceRequired() bool {
	return true
}

func (g *BogusGateway) PaymentProfilesSupported() bool {
	return g.ProfilesSupported
}

func (g *BogusGateway) charge(action string, source *entity.PaymentSource) (*Response, error) {
	if source == nil {
		return bogusFailure(), nil
	}
	if source.TokenBased() {
		if strings.HasPrefix(strings.TrimSpace(*source.GatewayPaymentProfileID), bogusProfilePrefix) {
			return bogusSuccess(), nil
		}
		return bogusFailure(), nil
	}

	digits := strings.TrimSpace(source.LastDigits)
	if digits == BogusConnectionFailureDigits {
		return nil, &ConnectionError{Gateway: BogusCode, Action: action, Err: errBogusTimeout}
	}
	if _, ok := bogusValidDigits[digits]; ok {
		return bogusSuccess(), nil
	}
	return bogusFailure(), nil
}

func bogusSuccess() *Response {
	return &Response{
		Success:       true,
		Message:       bogusSuccessMessage,
		Authorization: BogusAuthorization,
		AVSResultCode: "D",
		CVVResultCode: "M",
		CVVResultMsg:  "CVV2 Match",
		Test:          true,
		Params:        map[string]any{"message": bogusSuccessMessage},
	}
}

func bogusFailure() *Response {
	return &Response{
		Success: false,
		Message: bogusFailureMessage,
		Test:    true,
		Params: map[string]any{
			"message":              bogusFailureMessage,
			"response_reason_text": "card declined",
		},
	}
}
