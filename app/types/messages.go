package types

// Request and response messages shared by the HTTP and gRPC transports. Getters are
// nil-safe so services can depend on small interfaces instead of these structs.

type HealthResponse struct {
	Status string `json:"status"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

type CreatePaymentRequest struct {
	OrderId         uint64 `json:"order_id"`
	AmountCents     int64  `json:"amount_cents"`
	Currency        string `json:"currency"`
	SourceId        uint64 `json:"source_id"`
	PaymentMethodId uint64 `json:"payment_method_id"`
	State           string `json:"state"`
}

func (r *CreatePaymentRequest) GetOrderId() uint64 {
	if r == nil {
		return 0
	}
	return r.OrderId
}

func (r *CreatePaymentRequest) GetAmountCents() int64 {
	if r == nil {
		return 0
	}
	return r.AmountCents
}

func (r *CreatePaymentRequest) GetCurrency() string {
	if r == nil {
		return ""
	}
	return r.Currency
}

func (r *CreatePaymentRequest) GetSourceId() uint64 {
	if r == nil {
		return 0
	}
	return r.SourceId
}

func (r *CreatePaymentRequest) GetPaymentMethodId() uint64 {
	if r == nil {
		return 0
	}
	return r.PaymentMethodId
}

func (r *CreatePaymentRequest) GetState() string {
	if r == nil {
		return ""
	}
	return r.State
}

// PaymentIDRequest addresses one payment: get, process, authorize, purchase, void,
// cancel and the log entry and capture event listings.
type PaymentIDRequest struct {
	Id uint64 `json:"id"`
}

func (r *PaymentIDRequest) GetId() uint64 {
	if r == nil {
		return 0
	}
	return r.Id
}

type PaymentNumberRequest struct {
	Number string `json:"number"`
}

func (r *PaymentNumberRequest) GetNumber() string {
	if r == nil {
		return ""
	}
	return r.Number
}

type CapturePaymentRequest struct {
	Id          uint64 `json:"id"`
	AmountCents *int64 `json:"amount_cents,omitempty"`
}

func (r *CapturePaymentRequest) GetId() uint64 {
	if r == nil {
		return 0
	}
	return r.Id
}

// GetAmountCents returns nil when the whole outstanding amount should be captured.
func (r *CapturePaymentRequest) GetAmountCents() *int64 {
	if r == nil {
		return nil
	}
	return r.AmountCents
}

type ListPaymentsRequest struct {
	OrderId  uint64 `json:"order_id"`
	HasState bool   `json:"has_state"`
	State    string `json:"state"`
	Limit    int32  `json:"limit"`
	Offset   int32  `json:"offset"`
}

func (r *ListPaymentsRequest) GetOrderId() uint64 {
	if r == nil {
		return 0
	}
	return r.OrderId
}

func (r *ListPaymentsRequest) GetHasState() bool {
	if r == nil {
		return false
	}
	return r.HasState
}

func (r *ListPaymentsRequest) GetState() string {
	if r == nil {
		return ""
	}
	return r.State
}

func (r *ListPaymentsRequest) GetLimit() int32 {
	if r == nil {
		return 0
	}
	return r.Limit
}

func (r *ListPaymentsRequest) GetOffset() int32 {
	if r == nil {
		return 0
	}
	return r.Offset
}

type PaymentSource struct {
	Id         uint64 `json:"id"`
	Type       string `json:"type"`
	Name       string `json:"name,omitempty"`
	LastDigits string `json:"last_digits,omitempty"`
	Month      int32  `json:"month,omitempty"`
	Year       int32  `json:"year,omitempty"`
	Brand      string `json:"brand,omitempty"`
	TokenBased bool   `json:"token_based"`
}

type Payment struct {
	Id                 uint64         `json:"id"`
	Number             string         `json:"number"`
	OrderId            uint64         `json:"order_id"`
	Amount             string         `json:"amount"`
	AmountCents        int64          `json:"amount_cents"`
	Currency           string         `json:"currency"`
	State              string         `json:"state"`
	ResponseCode       string         `json:"response_code,omitempty"`
	AvsResponse        string         `json:"avs_response,omitempty"`
	CvvResponseCode    string         `json:"cvv_response_code,omitempty"`
	CvvResponseMessage string         `json:"cvv_response_message,omitempty"`
	SourceId           uint64         `json:"source_id,omitempty"`
	PaymentMethodId    uint64         `json:"payment_method_id,omitempty"`
	Source             *PaymentSource `json:"source,omitempty"`
	CreatedAt          string         `json:"created_at"`
	UpdatedAt          string         `json:"updated_at"`
}

type PaymentEnvelopeResponse struct {
	Payment *Payment `json:"payment"`
}

type ListPaymentsResponse struct {
	Payments []*Payment `json:"payments"`
}

type LogEntry struct {
	Id        uint64 `json:"id"`
	PaymentId uint64 `json:"payment_id"`
	Details   string `json:"details"`
	CreatedAt string `json:"created_at"`
}

type ListLogEntriesResponse struct {
	LogEntries []*LogEntry `json:"log_entries"`
}

type CaptureEvent struct {
	Id          uint64 `json:"id"`
	PaymentId   uint64 `json:"payment_id"`
	Amount      string `json:"amount"`
	AmountCents int64  `json:"amount_cents"`
	CreatedAt   string `json:"created_at"`
}

type ListCaptureEventsResponse struct {
	CaptureEvents  []*CaptureEvent `json:"capture_events"`
	CapturedAmount string          `json:"captured_amount"`
}
