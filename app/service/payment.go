package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-payment-processing/app/entity"
	"github.com/vibast-solutions/ms-go-payment-processing/app/factory"
	"github.com/vibast-solutions/ms-go-payment-processing/app/gateway"
	"github.com/vibast-solutions/ms-go-payment-processing/app/lock"
	"github.com/vibast-solutions/ms-go-payment-processing/app/metrics"
	"github.com/vibast-solutions/ms-go-payment-processing/app/money"
	"github.com/vibast-solutions/ms-go-payment-processing/app/publisher"
	"github.com/vibast-solutions/ms-go-payment-processing/app/repository"
	"github.com/vibast-solutions/ms-go-payment-processing/config"
)

const (
	defaultListLimit = int32(100)
	defaultBatchSize = int32(100)
	defaultLockTTL   = 2 * time.Minute

	createNumberAttempts = 3
)

type createPaymentRequest interface {
	GetOrderId() uint64
	GetAmountCents() int64
	GetCurrency() string
	GetSourceId() uint64
	GetPaymentMethodId() uint64
	GetState() string
}

type listPaymentsRequest interface {
	GetOrderId() uint64
	GetHasState() bool
	GetState() string
	GetLimit() int32
	GetOffset() int32
}

type paymentRepository interface {
	Create(ctx context.Context, payment *entity.Payment) error
	Update(ctx context.Context, payment *entity.Payment) error
	FindByID(ctx context.Context, id uint64) (*entity.Payment, error)
	FindByNumber(ctx context.Context, number string) (*entity.Payment, error)
	List(ctx context.Context, filter repository.PaymentFilter) ([]*entity.Payment, error)
	ListStaleProcessing(ctx context.Context, before time.Time, limit int32) ([]*entity.Payment, error)
}

type paymentEventRepository interface {
	Create(ctx context.Context, event *entity.PaymentStateEvent) error
}

type captureEventRepository interface {
	Create(ctx context.Context, event *entity.CaptureEvent) error
	ListByPayment(ctx context.Context, paymentID uint64) ([]*entity.CaptureEvent, error)
	SumByPayment(ctx context.Context, paymentID uint64) (decimal.Decimal, error)
}

type logEntryRepository interface {
	Create(ctx context.Context, entry *entity.LogEntry) error
	ListByPayment(ctx context.Context, paymentID uint64) ([]*entity.LogEntry, error)
}

type paymentMethodRepository interface {
	FindByID(ctx context.Context, id uint64) (*entity.PaymentMethod, error)
}

type paymentSourceRepository interface {
	FindByID(ctx context.Context, id uint64) (*entity.PaymentSource, error)
}

type orderRepository interface {
	FindByID(ctx context.Context, id uint64) (*entity.Order, error)
}

type gatewayRegistry interface {
	Get(code string) (gateway.Gateway, error)
}

type Repositories struct {
	Payments      paymentRepository
	Events        paymentEventRepository
	CaptureEvents captureEventRepository
	LogEntries    logEntryRepository
	Methods       paymentMethodRepository
	Sources       paymentSourceRepository
	Orders        orderRepository
}

type PaymentService struct {
	repos     Repositories
	gateways  gatewayRegistry
	locker    lock.Locker
	publisher publisher.Publisher
	cfg       config.ProcessingConfig
	logger    logrus.FieldLogger
	now       func() time.Time
}

func NewPaymentService(
	repos Repositories,
	gateways gatewayRegistry,
	locker lock.Locker,
	pub publisher.Publisher,
	cfg config.ProcessingConfig,
) *PaymentService {
	if locker == nil {
		locker = lock.NewLocalLocker()
	}
	if pub == nil {
		pub = publisher.NoopPublisher{}
	}

	return &PaymentService{
		repos:     repos,
		gateways:  gateways,
		locker:    locker,
		publisher: pub,
		cfg:       cfg,
		logger:    factory.NewModuleLogger("payment-service"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *PaymentService) CreatePayment(ctx context.Context, req createPaymentRequest) (*entity.Payment, error) {
	if req.GetOrderId() == 0 || req.GetAmountCents() <= 0 {
		return nil, ErrInvalidRequest
	}

	state := entity.StateCheckout
	if raw := strings.TrimSpace(req.GetState()); raw != "" {
		parsed, ok := entity.ParsePaymentState(raw)
		if !ok || (parsed != entity.StateCheckout && parsed != entity.StateBalanceDue) {
			return nil, fmt.Errorf("%w: initial state must be checkout or balance_due", ErrInvalidRequest)
		}
		state = parsed
	}

	order, err := s.repos.Orders.FindByID(ctx, req.GetOrderId())
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}

	currency := money.NormalizeCurrency(req.GetCurrency())
	if currency == "" {
		currency = money.NormalizeCurrency(order.Currency)
	}
	amount, err := money.FromMinorUnits(req.GetAmountCents(), currency)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	payment := &entity.Payment{
		OrderID:  order.ID,
		Amount:   amount.Amount(),
		Currency: amount.Currency(),
		State:    state,
	}

	if methodID := req.GetPaymentMethodId(); methodID > 0 {
		method, err := s.repos.Methods.FindByID(ctx, methodID)
		if err != nil {
			return nil, err
		}
		if method == nil || !method.Active {
			return nil, fmt.Errorf("%w: payment method %d is not available", ErrInvalidRequest, methodID)
		}
		if _, err := s.gateways.Get(method.Gateway); err != nil {
			return nil, ErrGatewayUnsupported
		}
		payment.PaymentMethodID = &methodID
	}

	if sourceID := req.GetSourceId(); sourceID > 0 {
		source, err := s.repos.Sources.FindByID(ctx, sourceID)
		if err != nil {
			return nil, err
		}
		if source == nil {
			return nil, fmt.Errorf("%w: payment source %d not found", ErrInvalidRequest, sourceID)
		}
		payment.SourceID = &sourceID
		payment.Source = source
	}

	if err := s.insertPayment(ctx, payment); err != nil {
		return nil, err
	}
	return payment, nil
}

func (s *PaymentService) GetPayment(ctx context.Context, id uint64) (*entity.Payment, error) {
	payment, err := s.repos.Payments.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, ErrPaymentNotFound
	}
	if err := s.loadSource(ctx, payment); err != nil {
		return nil, err
	}
	return payment, nil
}

func (s *PaymentService) GetPaymentByNumber(ctx context.Context, number string) (*entity.Payment, error) {
	number = strings.TrimSpace(number)
	if number == "" {
		return nil, fmt.Errorf("%w: payment number is required", ErrInvalidRequest)
	}

	payment, err := s.repos.Payments.FindByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, ErrPaymentNotFound
	}
	if err := s.loadSource(ctx, payment); err != nil {
		return nil, err
	}
	return payment, nil
}

func (s *PaymentService) ListPayments(ctx context.Context, req listPaymentsRequest) ([]*entity.Payment, error) {
	limit := req.GetLimit()
	if limit <= 0 {
		limit = defaultListLimit
	}

	filter := repository.PaymentFilter{
		OrderID: req.GetOrderId(),
		Limit:   limit,
		Offset:  req.GetOffset(),
	}
	if req.GetHasState() {
		state, ok := entity.ParsePaymentState(strings.TrimSpace(req.GetState()))
		if !ok {
			return nil, fmt.Errorf("%w: unknown state %q", ErrInvalidRequest, req.GetState())
		}
		filter.HasState = true
		filter.State = state
	}

	return s.repos.Payments.List(ctx, filter)
}

func (s *PaymentService) ListLogEntries(ctx context.Context, paymentID uint64) ([]*entity.LogEntry, error) {
	if err := s.ensurePaymentExists(ctx, paymentID); err != nil {
		return nil, err
	}
	return s.repos.LogEntries.ListByPayment(ctx, paymentID)
}

func (s *PaymentService) ListCaptureEvents(ctx context.Context, paymentID uint64) ([]*entity.CaptureEvent, error) {
	if err := s.ensurePaymentExists(ctx, paymentID); err != nil {
		return nil, err
	}
	return s.repos.CaptureEvents.ListByPayment(ctx, paymentID)
}

// CapturedAmount is the sum of the payment's capture events.
func (s *PaymentService) CapturedAmount(ctx context.Context, paymentID uint64) (decimal.Decimal, error) {
	if err := s.ensurePaymentExists(ctx, paymentID); err != nil {
		return decimal.Zero, err
	}
	return s.repos.CaptureEvents.SumByPayment(ctx, paymentID)
}

func (s *PaymentService) ensurePaymentExists(ctx context.Context, id uint64) error {
	payment, err := s.repos.Payments.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if payment == nil {
		return ErrPaymentNotFound
	}
	return nil
}

func (s *PaymentService) loadSource(ctx context.Context, payment *entity.Payment) error {
	if payment.SourceID == nil || payment.Source != nil {
		return nil
	}
	source, err := s.repos.Sources.FindByID(ctx, *payment.SourceID)
	if err != nil {
		return err
	}
	payment.Source = source
	return nil
}

// insertPayment assigns a fresh number and persists the payment with its creation event.
func (s *PaymentService) insertPayment(ctx context.Context, payment *entity.Payment) error {
	now := s.now()
	payment.CreatedAt = now
	payment.UpdatedAt = now

	var err error
	for attempt := 0; attempt < createNumberAttempts; attempt++ {
		payment.Number = newPaymentNumber()
		err = s.repos.Payments.Create(ctx, payment)
		if !errors.Is(err, repository.ErrPaymentAlreadyExists) {
			break
		}
	}
	if err != nil {
		if errors.Is(err, repository.ErrPaymentAlreadyExists) {
			return ErrPaymentAlreadyExists
		}
		return err
	}

	s.recordStateEvent(ctx, payment, nil, "created")
	return nil
}

func (s *PaymentService) batchSize() int32 {
	if s.cfg.JobBatchSize > 0 {
		return s.cfg.JobBatchSize
	}
	return defaultBatchSize
}

func (s *PaymentService) lockTTL() time.Duration {
	if s.cfg.LockTTL > 0 {
		return s.cfg.LockTTL
	}
	return defaultLockTTL
}

// withPaymentLock runs fn while holding the payment's exclusive lock.
func (s *PaymentService) withPaymentLock(ctx context.Context, id uint64, fn func() error) error {
	release, err := s.locker.Acquire(ctx, fmt.Sprintf("payment:%d", id), s.lockTTL())
	if err != nil {
		if errors.Is(err, lock.ErrLocked) {
			return ErrPaymentLocked
		}
		return err
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			s.logger.WithError(err).WithField("payment_id", id).Warn("payment_lock_release_failed")
		}
	}()

	return fn()
}

// transition applies event to payment and persists the result.
func (s *PaymentService) transition(ctx context.Context, payment *entity.Payment, event entity.PaymentEvent) error {
	oldState := payment.State
	if err := payment.Transition(event); err != nil {
		return transitionError(err)
	}
	return s.persistTransition(ctx, payment, oldState, string(event))
}

func (s *PaymentService) recoverState(ctx context.Context, payment *entity.Payment, previous entity.PaymentState) error {
	oldState := payment.State
	if err := payment.Recover(previous); err != nil {
		return transitionError(err)
	}
	return s.persistTransition(ctx, payment, oldState, string(entity.EventRecover))
}

func (s *PaymentService) persistTransition(ctx context.Context, payment *entity.Payment, oldState entity.PaymentState, eventType string) error {
	payment.UpdatedAt = s.now()
	if err := s.repos.Payments.Update(ctx, payment); err != nil {
		if errors.Is(err, repository.ErrPaymentNotFound) {
			return ErrPaymentNotFound
		}
		return err
	}

	s.recordStateEvent(ctx, payment, &oldState, eventType)
	return nil
}

// recordStateEvent writes the audit row, publishes it and counts it. None of these
// fail the operation: the payment row is already persisted.
func (s *PaymentService) recordStateEvent(ctx context.Context, payment *entity.Payment, oldState *entity.PaymentState, eventType string) {
	event := &entity.PaymentStateEvent{
		PaymentID:     payment.ID,
		PaymentNumber: payment.Number,
		EventType:     eventType,
		OldState:      oldState,
		NewState:      payment.State,
		CreatedAt:     s.now(),
	}

	_ = s.repos.Events.Create(ctx, event)
	if err := s.publisher.PublishTransition(ctx, event); err != nil {
		s.logger.WithError(err).
			WithField("payment_number", payment.Number).
			WithField("event", eventType).
			Warn("payment_transition_publish_failed")
	}
	metrics.RecordTransition(eventType, string(payment.State))
}

func newPaymentNumber() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "P" + strings.ToUpper(id[:10])
}
