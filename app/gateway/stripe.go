package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/vibast-solutions/ms-go-payment-processing/app/entity"
)

const (
	StripeCode           = "stripe"
	defaultStripeBaseURL = "https://api.stripe.com"
)

var errStripeNotConfigured = errors.New("stripe secret key is not configured")

type StripeConfig struct {
	SecretKey   string
	BaseURL     string
	HTTPTimeout time.Duration
}

// StripeGateway drives PaymentIntents. It only charges tokenized sources.
type StripeGateway struct {
	cfg    StripeConfig
	client *http.Client
}

func NewStripeGateway(cfg StripeConfig) *StripeGateway {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultStripeBaseURL
	}

	return &StripeGateway{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

func (g *StripeGateway) Code() string {
	return StripeCode
}

func (g *StripeGateway) Authorize(ctx context.Context, amountCents int64, source *entity.PaymentSource, opts Options) (*Response, error) {
	return g.createIntent(ctx, ActionAuthorize, amountCents, source, opts, "manual", "requires_capture")
}

func (g *StripeGateway) Purchase(ctx context.Context, amountCents int64, source *entity.PaymentSource, opts Options) (*Response, error) {
	return g.createIntent(ctx, ActionPurchase, amountCents, source, opts, "automatic", "succeeded")
}

func (g *StripeGateway) Capture(ctx context.Context, amountCents int64, authorization string, _ Options) (*Response, error) {
	values := url.Values{}
	values.Set("amount_to_capture", strconv.FormatInt(amountCents, 10))
	values.Add("expand[]", "latest_charge")
	return g.intentAction(ctx, ActionCapture, "/v1/payment_intents/"+url.PathEscape(authorization)+"/capture", values, "succeeded")
}

func (g *StripeGateway) Void(ctx context.Context, authorization string, _ *entity.PaymentSource, _ Options) (*Response, error) {
	values := url.Values{}
	values.Set("cancellation_reason", "requested_by_customer")
	return g.intentAction(ctx, ActionVoid, "/v1/payment_intents/"+url.PathEscape(authorization)+"/cancel", values, "canceled")
}

// Cancel refunds a captured intent and cancels an uncaptured one.
func (g *StripeGateway) Cancel(ctx context.Context, authorization string) (*Response, error) {
	body, status, err := g.do(ctx, ActionCancel, http.MethodGet, "/v1/payment_intents/"+url.PathEscape(authorization), nil)
	if err != nil {
		return nil, err
	}
	if status >= 400 {
		return stripeErrorResponse(body, status), nil
	}

	var intent stripeIntent
	if err := json.Unmarshal(body, &intent); err != nil {
		return nil, err
	}
	if intent.Status != "succeeded" {
		return g.Void(ctx, authorization, nil, Options{})
	}

	values := url.Values{}
	values.Set("payment_intent", authorization)
	body, status, err = g.do(ctx, ActionCancel, http.MethodPost, "/v1/refunds", values)
	if err != nil {
		return nil, err
	}
	if status >= 400 {
		return stripeErrorResponse(body, status), nil
	}

	var refund struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(body, &refund); err != nil {
		return nil, err
	}
	params := rawParams(body)
	if refund.Status != "succeeded" && refund.Status != "pending" {
		return &Response{
			Success: false,
			Message: fmt.Sprintf("refund status %s", refund.Status),
			Params:  params,
		}, nil
	}
	return &Response{
		Success:       true,
		Message:       "Transaction approved",
		Authorization: strings.TrimSpace(refund.ID),
		Params:        params,
	}, nil
}

func (g *StripeGateway) SupportsSource(source *entity.PaymentSource) bool {
	return source != nil && source.Type == entity.SourceTypeCreditCard && source.TokenBased()
}

func (g *StripeGateway) SourceRequired() bool {
	return true
}

func (g *StripeGateway) PaymentProfilesSupported() bool {
	return true
}

func (g *StripeGateway) createIntent(
	ctx context.Context,
	action string,
	amountCents int64,
	source *entity.PaymentSource,
	opts Options,
	captureMethod string,
	successStatus string,
) (*Response, error) {
	if !source.TokenBased() {
		return &Response{Success: false, Message: "stripe requires a tokenized payment source"}, nil
	}

	values := url.Values{}
	values.Set("amount", strconv.FormatInt(amountCents, 10))
	values.Set("currency", strings.ToLower(opts.Currency))
	values.Set("capture_method", captureMethod)
	values.Set("confirm", "true")
	values.Set("off_session", "true")
	values.Set("payment_method", strings.TrimSpace(*source.GatewayPaymentProfileID))
	if source.GatewayCustomerProfileID != nil && strings.TrimSpace(*source.GatewayCustomerProfileID) != "" {
		values.Set("customer", strings.TrimSpace(*source.GatewayCustomerProfileID))
	}
	if opts.OrderID != "" {
		values.Set("description", opts.OrderID)
		values.Set("metadata[order_id]", opts.OrderID)
	}
	if opts.Email != "" {
		values.Set("receipt_email", opts.Email)
	}
	if opts.IP != "" {
		values.Set("metadata[ip]", opts.IP)
	}
	if addr := opts.ShippingAddress; addr != nil {
		values.Set("shipping[name]", addr.Name)
		values.Set("shipping[phone]", addr.Phone)
		values.Set("shipping[address][line1]", addr.Address1)
		values.Set("shipping[address][line2]", addr.Address2)
		values.Set("shipping[address][city]", addr.City)
		values.Set("shipping[address][state]", addr.State)
		values.Set("shipping[address][postal_code]", addr.Zip)
		values.Set("shipping[address][country]", addr.Country)
	}
	values.Add("expand[]", "latest_charge")

	return g.intentAction(ctx, action, "/v1/payment_intents", values, successStatus)
}

func (g *StripeGateway) intentAction(ctx context.Context, action, path string, values url.Values, successStatus string) (*Response, error) {
	body, status, err := g.do(ctx, action, http.MethodPost, path, values)
	if err != nil {
		return nil, err
	}
	if status >= 400 {
		return stripeErrorResponse(body, status), nil
	}

	var intent stripeIntent
	if err := json.Unmarshal(body, &intent); err != nil {
		return nil, err
	}

	result := &Response{
		Authorization: strings.TrimSpace(intent.ID),
		Params:        rawParams(body),
	}
	if intent.Status != successStatus {
		result.Message = fmt.Sprintf("payment intent status %s", intent.Status)
		return result, nil
	}

	result.Success = true
	result.Message = "Transaction approved"
	if charge := intent.LatestCharge; charge != nil {
		checks := charge.PaymentMethodDetails.Card.Checks
		result.AVSResultCode = avsCode(checks.AddressLine1Check, checks.AddressPostalCodeCheck)
		result.CVVResultCode, result.CVVResultMsg = cvvResult(checks.CVCCheck)
	}
	return result, nil
}

func (g *StripeGateway) do(ctx context.Context, action, method, path string, values url.Values) ([]byte, int, error) {
	if strings.TrimSpace(g.cfg.SecretKey) == "" {
		return nil, 0, errStripeNotConfigured
	}

	var reader io.Reader
	if values != nil {
		reader = strings.NewReader(values.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, g.cfg.BaseURL+path, reader)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Authorization", "Bearer "+g.cfg.SecretKey)
	if values != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, 0, &ConnectionError{Gateway: StripeCode, Action: action, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, &ConnectionError{Gateway: StripeCode, Action: action, Err: err}
	}
	return body, resp.StatusCode, nil
}

type stripeIntent struct {
	ID           string        `json:"id"`
	Status       string        `json:"status"`
	LatestCharge *stripeCharge `json:"latest_charge"`
}

type stripeCharge struct {
	PaymentMethodDetails struct {
		Card struct {
			Checks struct {
				AddressLine1Check      string `json:"address_line1_check"`
				AddressPostalCodeCheck string `json:"address_postal_code_check"`
				CVCCheck               string `json:"cvc_check"`
			} `json:"checks"`
		} `json:"card"`
	} `json:"payment_method_details"`
}

// latest_charge is an id unless expanded.
func (c *stripeCharge) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		return nil
	}
	type plain stripeCharge
	return json.Unmarshal(data, (*plain)(c))
}

func stripeErrorResponse(body []byte, status int) *Response {
	var payload struct {
		Error struct {
			Type          string `json:"type"`
			Code          string `json:"code"`
			DeclineCode   string `json:"decline_code"`
			Message       string `json:"message"`
			PaymentIntent struct {
				ID string `json:"id"`
			} `json:"payment_intent"`
		} `json:"error"`
	}
	params := map[string]any{"http_status": status}
	if json.Unmarshal(body, &payload) == nil {
		params["message"] = payload.Error.Message
		params["type"] = payload.Error.Type
		params["code"] = payload.Error.Code
		if payload.Error.DeclineCode != "" {
			params["response_reason_text"] = payload.Error.DeclineCode
		}
	}
	message := strings.TrimSpace(payload.Error.Message)
	if message == "" {
		message = fmt.Sprintf("stripe request failed: status=%d", status)
	}
	return &Response{
		Success:       false,
		Message:       message,
		Authorization: strings.TrimSpace(payload.Error.PaymentIntent.ID),
		Params:        params,
	}
}

func rawParams(body []byte) map[string]any {
	var params map[string]any
	if json.Unmarshal(body, &params) != nil {
		return map[string]any{}
	}
	return params
}

func avsCode(line1, postal string) string {
	switch {
	case line1 == "pass" && postal == "pass":
		return "Y"
	case line1 == "pass" && postal == "fail":
		return "A"
	case line1 == "fail" && postal == "pass":
		return "Z"
	case line1 == "fail" && postal == "fail":
		return "N"
	case line1 == "" && postal == "":
		return ""
	default:
		return "U"
	}
}

func cvvResult(check string) (string, string) {
	switch check {
	case "pass":
		return "M", "CVV2 Match"
	case "fail":
		return "N", "CVV2 No Match"
	case "unavailable":
		return "U", "Issuer unable to process request"
	case "unchecked":
		return "P", "Not processed"
	default:
		return "", ""
	}
}
