package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vibast-solutions/ms-go-payment-processing/app/entity"
	"github.com/vibast-solutions/ms-go-payment-processing/app/gateway"
	"github.com/vibast-solutions/ms-go-payment-processing/app/repository"
	"github.com/vibast-solutions/ms-go-payment-processing/app/service"
	"github.com/vibast-solutions/ms-go-payment-processing/app/types"
	"github.com/vibast-solutions/ms-go-payment-processing/config"
)

const (
	testOrderID       = uint64(10)
	testMethodID      = uint64(1)
	testAutoMethodID  = uint64(2)
	testCardID        = uint64(5)
	testDeclinedID    = uint64(6)
	testUnreachableID = uint64(7)
)

type controllerPaymentRepo struct {
	items  map[uint64]*entity.Payment
	nextID uint64
}

func (r *controllerPaymentRepo) Create(_ context.Context, payment *entity.Payment) error {
	r.nextID++
	payment.ID = r.nextID
	copyItem := *payment
	r.items[payment.ID] = &copyItem
	return nil
}

func (r *controllerPaymentRepo) Update(_ context.Context, payment *entity.Payment) error {
	if _, ok := r.items[payment.ID]; !ok {
		return repository.ErrPaymentNotFound
	}
	copyItem := *payment
	r.items[payment.ID] = &copyItem
	return nil
}

func (r *controllerPaymentRepo) FindByID(_ context.Context, id uint64) (*entity.Payment, error) {
	item, ok := r.items[id]
	if !ok {
		return nil, nil
	}
	copyItem := *item
	return &copyItem, nil
}

func (r *controllerPaymentRepo) FindByNumber(_ context.Context, number string) (*entity.Payment, error) {
	for _, item := range r.items {
		if item.Number == number {
			copyItem := *item
			return &copyItem, nil
		}
	}
	return nil, nil
}

func (r *controllerPaymentRepo) List(_ context.Context, filter repository.PaymentFilter) ([]*entity.Payment, error) {
	result := make([]*entity.Payment, 0, len(r.items))
	for id := uint64(1); id <= r.nextID; id++ {
		item, ok := r.items[id]
		if !ok || (filter.HasState && item.State != filter.State) {
			continue
		}
		result = append(result, item)
	}
	return result, nil
}

func (r *controllerPaymentRepo) ListStaleProcessing(context.Context, time.Time, int32) ([]*entity.Payment, error) {
	return nil, nil
}

type controllerEventRepo struct{}

func (r *controllerEventRepo) Create(context.Context, *entity.PaymentStateEvent) error {
	return nil
}

type controllerCaptureRepo struct {
	items []*entity.CaptureEvent
}

func (r *controllerCaptureRepo) Create(_ context.Context, event *entity.CaptureEvent) error {
	event.ID = uint64(len(r.items) + 1)
	r.items = append(r.items, event)
	return nil
}

func (r *controllerCaptureRepo) ListByPayment(_ context.Context, paymentID uint64) ([]*entity.CaptureEvent, error) {
	result := make([]*entity.CaptureEvent, 0)
	for _, item := range r.items {
		if item.PaymentID == paymentID {
			result = append(result, item)
		}
	}
	return result, nil
}

func (r *controllerCaptureRepo) SumByPayment(ctx context.Context, paymentID uint64) (decimal.Decimal, error) {
	items, _ := r.ListByPayment(ctx, paymentID)
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Amount)
	}
	return total, nil
}

type controllerLogRepo struct {
	items []*entity.LogEntry
}

func (r *controllerLogRepo) Create(_ context.Context, entry *entity.LogEntry) error {
	entry.ID = uint64(len(r.items) + 1)
	r.items = append(r.items, entry)
	return nil
}

func (r *controllerLogRepo) ListByPayment(_ context.Context, paymentID uint64) ([]*entity.LogEntry, error) {
	result := make([]*entity.LogEntry, 0)
	for _, item := range r.items {
		if item.PaymentID == paymentID {
			result = append(result, item)
		}
	}
	return result, nil
}

type controllerMethodRepo struct{}

func (r *controllerMethodRepo) FindByID(_ context.Context, id uint64) (*entity.PaymentMethod, error) {
	switch id {
	case testMethodID:
		return &entity.PaymentMethod{ID: id, Name: "Card", Gateway: gateway.BogusCode, Active: true}, nil
	case testAutoMethodID:
		return &entity.PaymentMethod{ID: id, Name: "Card", Gateway: gateway.BogusCode, AutoCapture: true, Active: true}, nil
	}
	return nil, nil
}

type controllerSourceRepo struct{}

func (r *controllerSourceRepo) FindByID(_ context.Context, id uint64) (*entity.PaymentSource, error) {
	digits := map[uint64]string{
		testCardID:        "1111",
		testDeclinedID:    "9999",
		testUnreachableID: gateway.BogusConnectionFailureDigits,
	}
	value, ok := digits[id]
	if !ok {
		return nil, nil
	}
	return &entity.PaymentSource{ID: id, Type: entity.SourceTypeCreditCard, Name: "Jane Doe", LastDigits: value}, nil
}

type controllerOrderRepo struct{}

func (r *controllerOrderRepo) FindByID(_ context.Context, id uint64) (*entity.Order, error) {
	if id != testOrderID {
		return nil, nil
	}
	return &entity.Order{ID: id, Number: "R200", Email: "jane@example.com", Currency: "USD"}, nil
}

type controllerFixture struct {
	ctrl     *PaymentController
	payments *controllerPaymentRepo
	logs     *controllerLogRepo
}

func newControllerForTest() *controllerFixture {
	f := &controllerFixture{
		payments: &controllerPaymentRepo{items: map[uint64]*entity.Payment{}},
		logs:     &controllerLogRepo{},
	}
	paymentService := service.NewPaymentService(
		service.Repositories{
			Payments:      f.payments,
			Events:        &controllerEventRepo{},
			CaptureEvents: &controllerCaptureRepo{},
			LogEntries:    f.logs,
			Methods:       &controllerMethodRepo{},
			Sources:       &controllerSourceRepo{},
			Orders:        &controllerOrderRepo{},
		},
		gateway.NewRegistry(gateway.NewBogusGateway(false)),
		nil,
		nil,
		config.ProcessingConfig{LockTTL: time.Minute, JobBatchSize: 10},
	)
	f.ctrl = NewPaymentController(paymentService)
	return f
}

func (f *controllerFixture) seed(t *testing.T, state entity.PaymentState, methodID, sourceID uint64) uint64 {
	t.Helper()
	payment := &entity.Payment{
		Number:          "PSEED",
		OrderID:         testOrderID,
		Amount:          decimal.RequireFromString("25.00"),
		Currency:        "USD",
		State:           state,
		SourceID:        &sourceID,
		PaymentMethodID: &methodID,
	}
	require.NoError(t, f.payments.Create(context.Background(), payment))
	return payment.ID
}

func newIDContext(method, path, id string, body []byte) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	req.Header.Set("X-Request-ID", "req-test")
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)
	if id != "" {
		ctx.SetParamNames("id")
		ctx.SetParamValues(id)
	}
	return ctx, rec
}

func decodePayment(t *testing.T, rec *httptest.ResponseRecorder) *types.Payment {
	t.Helper()
	var resp types.PaymentEnvelopeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Payment)
	return resp.Payment
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) types.ErrorResponse {
	t.Helper()
	var resp types.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestCreatePaymentBadBody(t *testing.T) {
	f := newControllerForTest()
	ctx, rec := newIDContext(http.MethodPost, "/payments", "", []byte("{bad json"))

	_ = f.ctrl.CreatePayment(ctx)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreatePaymentValidation(t *testing.T) {
	f := newControllerForTest()
	ctx, rec := newIDContext(http.MethodPost, "/payments", "", []byte(`{"order_id":10,"amount_cents":0}`))

	_ = f.ctrl.CreatePayment(ctx)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreatePaymentUnknownOrder(t *testing.T) {
	f := newControllerForTest()
	ctx, rec := newIDContext(http.MethodPost, "/payments", "", []byte(`{"order_id":99,"amount_cents":500}`))

	_ = f.ctrl.CreatePayment(ctx)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreatePaymentSuccess(t *testing.T) {
	f := newControllerForTest()
	body := []byte(`{"order_id":10,"amount_cents":1999,"source_id":5,"payment_method_id":1}`)
	ctx, rec := newIDContext(http.MethodPost, "/payments", "", body)

	_ = f.ctrl.CreatePayment(ctx)
	require.Equal(t, http.StatusCreated, rec.Code)

	payment := decodePayment(t, rec)
	assert.Equal(t, "checkout", payment.State)
	assert.Equal(t, "19.99", payment.Amount)
	assert.Equal(t, "USD", payment.Currency)
	require.NotNil(t, payment.Source)
	assert.Equal(t, "1111", payment.Source.LastDigits)
}

func TestGetPaymentNotFound(t *testing.T) {
	f := newControllerForTest()
	ctx, rec := newIDContext(http.MethodGet, "/payments/9", "9", nil)

	_ = f.ctrl.GetPayment(ctx)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetPaymentInvalidID(t *testing.T) {
	f := newControllerForTest()
	ctx, rec := newIDContext(http.MethodGet, "/payments/abc", "abc", nil)

	_ = f.ctrl.GetPayment(ctx)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetPaymentByNumber(t *testing.T) {
	f := newControllerForTest()
	id := f.seed(t, entity.StatePending, testMethodID, testCardID)

	ctx, rec := newIDContext(http.MethodGet, "/payments/by-number/PSEED", "", nil)
	ctx.SetParamNames("number")
	ctx.SetParamValues("PSEED")
	_ = f.ctrl.GetPaymentByNumber(ctx)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, id, decodePayment(t, rec).Id)

	ctx, rec = newIDContext(http.MethodGet, "/payments/by-number/PNONE", "", nil)
	ctx.SetParamNames("number")
	ctx.SetParamValues("PNONE")
	_ = f.ctrl.GetPaymentByNumber(ctx)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	ctx, rec = newIDContext(http.MethodGet, "/payments/by-number/", "", nil)
	_ = f.ctrl.GetPaymentByNumber(ctx)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListPaymentsSuccess(t *testing.T) {
	f := newControllerForTest()
	f.seed(t, entity.StateCheckout, testMethodID, testCardID)
	f.seed(t, entity.StateCompleted, testMethodID, testCardID)

	ctx, rec := newIDContext(http.MethodGet, "/payments?state=completed", "", nil)
	_ = f.ctrl.ListPayments(ctx)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp types.ListPaymentsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Payments, 1)
	assert.Equal(t, "completed", resp.Payments[0].State)
}

func TestListPaymentsInvalidState(t *testing.T) {
	f := newControllerForTest()
	ctx, rec := newIDContext(http.MethodGet, "/payments?state=refunded", "", nil)

	_ = f.ctrl.ListPayments(ctx)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProcessPaymentAuthorizes(t *testing.T) {
	f := newControllerForTest()
	id := f.seed(t, entity.StateCheckout, testMethodID, testCardID)

	ctx, rec := newIDContext(http.MethodPost, "/payments/1/process", "1", nil)
	_ = f.ctrl.ProcessPayment(ctx)
	require.Equal(t, http.StatusOK, rec.Code)

	payment := decodePayment(t, rec)
	assert.Equal(t, id, payment.Id)
	assert.Equal(t, "pending", payment.State)
	assert.Equal(t, gateway.BogusAuthorization, payment.ResponseCode)
}

func TestProcessPaymentDeclined(t *testing.T) {
	f := newControllerForTest()
	f.seed(t, entity.StateCheckout, testMethodID, testDeclinedID)

	ctx, rec := newIDContext(http.MethodPost, "/payments/1/process", "1", nil)
	_ = f.ctrl.ProcessPayment(ctx)
	require.Equal(t, http.StatusPaymentRequired, rec.Code)
	assert.Equal(t, "gateway_decline", decodeError(t, rec).Kind)

	stored, _ := f.payments.FindByID(context.Background(), 1)
	assert.Equal(t, entity.StateFailed, stored.State)
}

func TestProcessPaymentUnreachableGateway(t *testing.T) {
	f := newControllerForTest()
	f.seed(t, entity.StateCheckout, testMethodID, testUnreachableID)

	ctx, rec := newIDContext(http.MethodPost, "/payments/1/process", "1", nil)
	_ = f.ctrl.ProcessPayment(ctx)
	require.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "gateway_connection", decodeError(t, rec).Kind)

	stored, _ := f.payments.FindByID(context.Background(), 1)
	assert.Equal(t, entity.StateCheckout, stored.State)
}

func TestPurchaseThenListCaptureEvents(t *testing.T) {
	f := newControllerForTest()
	f.seed(t, entity.StateCheckout, testAutoMethodID, testCardID)

	ctx, rec := newIDContext(http.MethodPost, "/payments/1/purchase", "1", nil)
	_ = f.ctrl.PurchasePayment(ctx)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "completed", decodePayment(t, rec).State)

	ctx, rec = newIDContext(http.MethodGet, "/payments/1/capture-events", "1", nil)
	_ = f.ctrl.ListCaptureEvents(ctx)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp types.ListCaptureEventsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.CaptureEvents, 1)
	assert.Equal(t, "25.00", resp.CapturedAmount)
	assert.Equal(t, int64(2500), resp.CaptureEvents[0].AmountCents)
}

func TestCapturePaymentPartial(t *testing.T) {
	f := newControllerForTest()
	f.seed(t, entity.StatePending, testMethodID, testCardID)
	stored, _ := f.payments.FindByID(context.Background(), 1)
	code := gateway.BogusAuthorization
	stored.ResponseCode = &code
	require.NoError(t, f.payments.Update(context.Background(), stored))

	ctx, rec := newIDContext(http.MethodPost, "/payments/1/capture", "1", []byte(`{"amount_cents":1000}`))
	_ = f.ctrl.CapturePayment(ctx)
	require.Equal(t, http.StatusOK, rec.Code)

	payment := decodePayment(t, rec)
	assert.Equal(t, "completed", payment.State)
	assert.Equal(t, "10.00", payment.Amount)

	remainder, _ := f.payments.FindByID(context.Background(), 2)
	require.NotNil(t, remainder)
	assert.Equal(t, entity.StatePending, remainder.State)
	assert.Equal(t, "15.00", remainder.Amount.StringFixed(2))
}

func TestCapturePaymentInvalidAmount(t *testing.T) {
	f := newControllerForTest()
	ctx, rec := newIDContext(http.MethodPost, "/payments/1/capture", "1", []byte(`{"amount_cents":-5}`))

	_ = f.ctrl.CapturePayment(ctx)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVoidFailedPaymentIsConflict(t *testing.T) {
	f := newControllerForTest()
	f.seed(t, entity.StateFailed, testMethodID, testCardID)

	ctx, rec := newIDContext(http.MethodPost, "/payments/1/void", "1", nil)
	_ = f.ctrl.VoidPayment(ctx)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "invalid_transition", decodeError(t, rec).Kind)
}

func TestCancelPaymentNotFound(t *testing.T) {
	f := newControllerForTest()
	ctx, rec := newIDContext(http.MethodPost, "/payments/9/cancel", "9", nil)

	_ = f.ctrl.CancelPayment(ctx)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListLogEntriesAfterDecline(t *testing.T) {
	f := newControllerForTest()
	f.seed(t, entity.StateCheckout, testMethodID, testDeclinedID)

	ctx, _ := newIDContext(http.MethodPost, "/payments/1/authorize", "1", nil)
	_ = f.ctrl.AuthorizePayment(ctx)

	ctx, rec := newIDContext(http.MethodGet, "/payments/1/log-entries", "1", nil)
	_ = f.ctrl.ListLogEntries(ctx)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp types.ListLogEntriesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.LogEntries)
}
