package service

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vibast-solutions/ms-go-payment-processing/app/entity"
	"github.com/vibast-solutions/ms-go-payment-processing/app/gateway"
	"github.com/vibast-solutions/ms-go-payment-processing/app/lock"
	"github.com/vibast-solutions/ms-go-payment-processing/app/repository"
	"github.com/vibast-solutions/ms-go-payment-processing/config"
)

const (
	fakeGatewayCode  = "fake"
	testOrderID      = uint64(42)
	testSourceID     = uint64(3)
	testMethodID     = uint64(2)
	testAuthCode     = "12345"
	testOrderNumber  = "R100"
	testPaymentTotal = "50.00"
)

type servicePaymentRepo struct {
	payments  map[uint64]*entity.Payment
	nextID    uint64
	updates   int
	createErr error
}

func newServicePaymentRepo() *servicePaymentRepo {
	return &servicePaymentRepo{payments: map[uint64]*entity.Payment{}, nextID: 1}
}

func (r *servicePaymentRepo) Create(_ context.Context, payment *entity.Payment) error {
	if r.createErr != nil {
		return r.createErr
	}
	for _, item := range r.payments {
		if item.Number == payment.Number {
			return repository.ErrPaymentAlreadyExists
		}
	}
	id := r.nextID
	r.nextID++
	payment.ID = id
	copyItem := *payment
	copyItem.Source = nil
	r.payments[id] = &copyItem
	return nil
}

func (r *servicePaymentRepo) Update(_ context.Context, payment *entity.Payment) error {
	if _, ok := r.payments[payment.ID]; !ok {
		return repository.ErrPaymentNotFound
	}
	r.updates++
	copyItem := *payment
	copyItem.Source = nil
	r.payments[payment.ID] = &copyItem
	return nil
}

func (r *servicePaymentRepo) FindByID(_ context.Context, id uint64) (*entity.Payment, error) {
	item, ok := r.payments[id]
	if !ok {
		return nil, nil
	}
	copyItem := *item
	return &copyItem, nil
}

func (r *servicePaymentRepo) FindByNumber(_ context.Context, number string) (*entity.Payment, error) {
	for _, item := range r.payments {
		if item.Number == number {
			copyItem := *item
			return &copyItem, nil
		}
	}
	return nil, nil
}

func (r *servicePaymentRepo) List(_ context.Context, filter repository.PaymentFilter) ([]*entity.Payment, error) {
	items := make([]*entity.Payment, 0)
	for _, item := range r.payments {
		if filter.OrderID > 0 && item.OrderID != filter.OrderID {
			continue
		}
		if filter.HasState && item.State != filter.State {
			continue
		}
		copyItem := *item
		items = append(items, &copyItem)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

func (r *servicePaymentRepo) ListStaleProcessing(_ context.Context, before time.Time, limit int32) ([]*entity.Payment, error) {
	items := make([]*entity.Payment, 0)
	for _, item := range r.payments {
		if item.State == entity.StateProcessing && !item.UpdatedAt.After(before) {
			copyItem := *item
			items = append(items, &copyItem)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	if int32(len(items)) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (r *servicePaymentRepo) byOrder(orderID uint64) []*entity.Payment {
	items, _ := r.List(context.Background(), repository.PaymentFilter{OrderID: orderID})
	return items
}

type serviceEventRepo struct {
	events []*entity.PaymentStateEvent
}

func (r *serviceEventRepo) Create(_ context.Context, event *entity.PaymentStateEvent) error {
	r.events = append(r.events, event)
	return nil
}

func (r *serviceEventRepo) eventTypes(paymentID uint64) []string {
	out := make([]string, 0)
	for _, event := range r.events {
		if event.PaymentID == paymentID {
			out = append(out, event.EventType)
		}
	}
	return out
}

// writeJournal records the order in which log entries and capture events are written.
type writeJournal struct {
	writes []string
}

func (j *writeJournal) add(kind string) {
	if j != nil {
		j.writes = append(j.writes, kind)
	}
}

type serviceCaptureRepo struct {
	events    []*entity.CaptureEvent
	createErr error
	journal   *writeJournal
}

func (r *serviceCaptureRepo) Create(_ context.Context, event *entity.CaptureEvent) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.journal.add("capture")
	event.ID = uint64(len(r.events) + 1)
	r.events = append(r.events, event)
	return nil
}

func (r *serviceCaptureRepo) ListByPayment(_ context.Context, paymentID uint64) ([]*entity.CaptureEvent, error) {
	out := make([]*entity.CaptureEvent, 0)
	for _, event := range r.events {
		if event.PaymentID == paymentID {
			out = append(out, event)
		}
	}
	return out, nil
}

func (r *serviceCaptureRepo) SumByPayment(ctx context.Context, paymentID uint64) (decimal.Decimal, error) {
	total := decimal.Zero
	items, _ := r.ListByPayment(ctx, paymentID)
	for _, event := range items {
		total = total.Add(event.Amount)
	}
	return total, nil
}

type serviceLogRepo struct {
	entries   []*entity.LogEntry
	createErr error
	journal   *writeJournal
}

func (r *serviceLogRepo) Create(_ context.Context, entry *entity.LogEntry) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.journal.add("log")
	entry.ID = uint64(len(r.entries) + 1)
	r.entries = append(r.entries, entry)
	return nil
}

func (r *serviceLogRepo) ListByPayment(_ context.Context, paymentID uint64) ([]*entity.LogEntry, error) {
	out := make([]*entity.LogEntry, 0)
	for _, entry := range r.entries {
		if entry.PaymentID == paymentID {
			out = append(out, entry)
		}
	}
	return out, nil
}

type serviceMethodRepo struct {
	methods map[uint64]*entity.PaymentMethod
}

func (r *serviceMethodRepo) FindByID(_ context.Context, id uint64) (*entity.PaymentMethod, error) {
	item, ok := r.methods[id]
	if !ok {
		return nil, nil
	}
	copyItem := *item
	return &copyItem, nil
}

type serviceSourceRepo struct {
	sources map[uint64]*entity.PaymentSource
}

func (r *serviceSourceRepo) FindByID(_ context.Context, id uint64) (*entity.PaymentSource, error) {
	item, ok := r.sources[id]
	if !ok {
		return nil, nil
	}
	copyItem := *item
	return &copyItem, nil
}

type serviceOrderRepo struct {
	orders map[uint64]*entity.Order
	finds  int
}

func (r *serviceOrderRepo) FindByID(_ context.Context, id uint64) (*entity.Order, error) {
	r.finds++
	item, ok := r.orders[id]
	if !ok {
		return nil, nil
	}
	copyItem := *item
	return &copyItem, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []*entity.PaymentStateEvent
}

func (p *recordingPublisher) PublishTransition(_ context.Context, event *entity.PaymentStateEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

type gatewayCall struct {
	action        string
	amountCents   int64
	authorization string
	source        *entity.PaymentSource
	opts          gateway.Options
}

type fakeGateway struct {
	respond           func(action string) (*gateway.Response, error)
	supportsSource    bool
	sourceRequired    bool
	profilesSupported bool
	calls             []gatewayCall
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{supportsSource: true, sourceRequired: true}
}

func (g *fakeGateway) Code() string { return fakeGatewayCode }

func (g *fakeGateway) Authorize(_ context.Context, amountCents int64, source *entity.PaymentSource, opts gateway.Options) (*gateway.Response, error) {
	return g.record(gatewayCall{action: gateway.ActionAuthorize, amountCents: amountCents, source: source, opts: opts})
}

func (g *fakeGateway) Purchase(_ context.Context, amountCents int64, source *entity.PaymentSource, opts gateway.Options) (*gateway.Response, error) {
	return g.record(gatewayCall{action: gateway.ActionPurchase, amountCents: amountCents, source: source, opts: opts})
}

func (g *fakeGateway) Capture(_ context.Context, amountCents int64, authorization string, opts gateway.Options) (*gateway.Response, error) {
	return g.record(gatewayCall{action: gateway.ActionCapture, amountCents: amountCents, authorization: authorization, opts: opts})
}

func (g *fakeGateway) Void(_ context.Context, authorization string, source *entity.PaymentSource, opts gateway.Options) (*gateway.Response, error) {
	return g.record(gatewayCall{action: gateway.ActionVoid, authorization: authorization, source: source, opts: opts})
}

func (g *fakeGateway) Cancel(_ context.Context, authorization string) (*gateway.Response, error) {
	return g.record(gatewayCall{action: gateway.ActionCancel, authorization: authorization})
}

func (g *fakeGateway) SupportsSource(*entity.PaymentSource) bool { return g.supportsSource }

func (g *fakeGateway) SourceRequired() bool { return g.sourceRequired }

func (g *fakeGateway) PaymentProfilesSupported() bool { return g.profilesSupported }

func (g *fakeGateway) record(call gatewayCall) (*gateway.Response, error) {
	g.calls = append(g.calls, call)
	if g.respond != nil {
		return g.respond(call.action)
	}
	return successResponse(), nil
}

func (g *fakeGateway) actions() []string {
	out := make([]string, 0, len(g.calls))
	for _, call := range g.calls {
		out = append(out, call.action)
	}
	return out
}

func successResponse() *gateway.Response {
	return &gateway.Response{
		Success:       true,
		Message:       "ok",
		Authorization: testAuthCode,
		AVSResultCode: "D",
		CVVResultCode: "M",
		CVVResultMsg:  "CVV2 Match",
	}
}

func declineResponse() *gateway.Response {
	return &gateway.Response{
		Success: false,
		Message: "Transaction declined",
		Params: map[string]any{
			"message":              "Card was declined",
			"response_reason_text": "insufficient funds",
		},
	}
}

type serviceFixture struct {
	svc       *PaymentService
	payments  *servicePaymentRepo
	events    *serviceEventRepo
	captures  *serviceCaptureRepo
	logs      *serviceLogRepo
	methods   *serviceMethodRepo
	sources   *serviceSourceRepo
	orders    *serviceOrderRepo
	gateway   *fakeGateway
	publisher *recordingPublisher
	locker    *lock.LocalLocker
	journal   *writeJournal
	now       time.Time
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	profileID := "cus_1"
	journal := &writeJournal{}
	f := &serviceFixture{
		payments: newServicePaymentRepo(),
		events:   &serviceEventRepo{},
		captures: &serviceCaptureRepo{journal: journal},
		logs:     &serviceLogRepo{journal: journal},
		journal:  journal,
		methods: &serviceMethodRepo{methods: map[uint64]*entity.PaymentMethod{
			testMethodID: {ID: testMethodID, Name: "Card", Gateway: fakeGatewayCode, Active: true},
		}},
		sources: &serviceSourceRepo{sources: map[uint64]*entity.PaymentSource{
			testSourceID: {
				ID:                       testSourceID,
				Type:                     entity.SourceTypeCreditCard,
				Name:                     "Jane Doe",
				LastDigits:               "1111",
				GatewayCustomerProfileID: &profileID,
			},
		}},
		orders: &serviceOrderRepo{orders: map[uint64]*entity.Order{
			testOrderID: {
				ID:                 testOrderID,
				Number:             testOrderNumber,
				Email:              "jane@example.com",
				UserID:             uint64Ptr(77),
				LastIPAddress:      "10.0.0.1",
				Currency:           "USD",
				ItemTotal:          decimal.RequireFromString("40.00"),
				ShipTotal:          decimal.RequireFromString("5.00"),
				AdditionalTaxTotal: decimal.RequireFromString("3.25"),
				PromoTotal:         decimal.RequireFromString("-2.50"),
				BillAddress:        &entity.Address{ID: 1, FirstName: "Bill", LastName: "Payer", City: "Springfield"},
				ShipAddress:        &entity.Address{ID: 2, FirstName: "Ship", LastName: "Receiver", City: "Shelbyville"},
			},
		}},
		gateway:   newFakeGateway(),
		publisher: &recordingPublisher{},
		locker:    lock.NewLocalLocker(),
		now:       time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	f.svc = NewPaymentService(
		Repositories{
			Payments:      f.payments,
			Events:        f.events,
			CaptureEvents: f.captures,
			LogEntries:    f.logs,
			Methods:       f.methods,
			Sources:       f.sources,
			Orders:        f.orders,
		},
		gateway.NewRegistry(f.gateway),
		f.locker,
		f.publisher,
		config.ProcessingConfig{LockTTL: time.Minute, StaleProcessingAfter: 15 * time.Minute, JobBatchSize: 10},
	)
	f.svc.now = func() time.Time { return f.now }

	return f
}

// seedPayment stores a card payment for the fixture order with the fixture method.
func (f *serviceFixture) seedPayment(t *testing.T, state entity.PaymentState, amount string) *entity.Payment {
	t.Helper()
	payment := &entity.Payment{
		Number:          "P" + string(rune('A'+len(f.payments.payments))) + "000001",
		OrderID:         testOrderID,
		Amount:          decimal.RequireFromString(amount),
		Currency:        "USD",
		State:           state,
		SourceID:        uint64Ptr(testSourceID),
		PaymentMethodID: uint64Ptr(testMethodID),
		CreatedAt:       f.now,
		UpdatedAt:       f.now,
	}
	if state == entity.StatePending || state == entity.StateCompleted {
		payment.ResponseCode = stringPtr(testAuthCode)
	}
	if err := f.payments.Create(context.Background(), payment); err != nil {
		t.Fatalf("seed payment: %v", err)
	}
	return payment
}

func (f *serviceFixture) stored(t *testing.T, id uint64) *entity.Payment {
	t.Helper()
	payment, _ := f.payments.FindByID(context.Background(), id)
	if payment == nil {
		t.Fatalf("payment %d not stored", id)
	}
	return payment
}

func uint64Ptr(v uint64) *uint64 {
	return &v
}

func int64Ptr(v int64) *int64 {
	return &v
}
