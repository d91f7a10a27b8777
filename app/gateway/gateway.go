package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vibast-solutions/ms-go-payment-processing/app/entity"
)

const (
	ActionAuthorize = "authorize"
	ActionPurchase  = "purchase"
	ActionCapture   = "capture"
	ActionVoid      = "void"
	ActionCancel    = "cancel"
)

type Address struct {
	Name     string `json:"name,omitempty"`
	Company  string `json:"company,omitempty"`
	Address1 string `json:"address1,omitempty"`
	Address2 string `json:"address2,omitempty"`
	City     string `json:"city,omitempty"`
	State    string `json:"state,omitempty"`
	Zip      string `json:"zip,omitempty"`
	Country  string `json:"country,omitempty"`
	Phone    string `json:"phone,omitempty"`
}

// Options is the request context sent with every gateway call. Amounts are minor units.
type Options struct {
	Email      string
	Customer   string
	CustomerID string
	IP         string
	// OrderID is "{order number}-{payment number}"; some gateways deduplicate on it.
	OrderID string

	Shipping int64
	Tax      int64
	Subtotal int64
	Discount int64
	Currency string

	BillingAddress  *Address
	ShippingAddress *Address
}

type Response struct {
	Success       bool           `json:"success"`
	Message       string         `json:"message,omitempty"`
	Authorization string         `json:"authorization,omitempty"`
	AVSResultCode string         `json:"avs_result_code,omitempty"`
	CVVResultCode string         `json:"cvv_result_code,omitempty"`
	CVVResultMsg  string         `json:"cvv_result_message,omitempty"`
	Test          bool           `json:"test,omitempty"`
	Params        map[string]any `json:"params,omitempty"`
}

// Param returns a string-valued entry from the raw gateway params.
func (r *Response) Param(key string) string {
	if r == nil || r.Params == nil {
		return ""
	}
	switch v := r.Params[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case fmt.Stringer:
		return strings.TrimSpace(v.String())
	default:
		return ""
	}
}

func (r *Response) Serialize() string {
	encoded, err := json.Marshal(r)
	if err != nil {
		return fmt.Sprintf(`{"success":%t,"message":%q}`, r.Success, r.Message)
	}
	return string(encoded)
}

// ConnectionError marks a transport-level failure: the gateway outcome is unknown.
type ConnectionError struct {
	Gateway string
	Action  string
	Err     error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("%s %s: connection failed: %v", e.Gateway, e.Action, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

type Gateway interface {
	Code() string

	Authorize(ctx context.Context, amountCents int64, source *entity.PaymentSource, opts Options) (*Response, error)
	Purchase(ctx context.Context, amountCents int64, source *entity.PaymentSource, opts Options) (*Response, error)
	Capture(ctx context.Context, amountCents int64, authorization string, opts Options) (*Response, error)
	// Void receives the source only when PaymentProfilesSupported is true.
	Void(ctx context.Context, authorization string, source *entity.PaymentSource, opts Options) (*Response, error)
	Cancel(ctx context.Context, authorization string) (*Response, error)

	SupportsSource(source *entity.PaymentSource) bool
	SourceRequired() bool
	PaymentProfilesSupported() bool
}
