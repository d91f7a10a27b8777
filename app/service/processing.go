package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/vibast-solutions/ms-go-payment-processing/app/entity"
	"github.com/vibast-solutions/ms-go-payment-processing/app/gateway"
	"github.com/vibast-solutions/ms-go-payment-processing/app/money"
)

// processingRun is a payment loaded with everything needed to talk to its gateway.
// method and gw are nil when the payment has no payment method.
type processingRun struct {
	payment *entity.Payment
	method  *entity.PaymentMethod
	gw      gateway.Gateway
}

// Process authorizes the payment, or purchases it when its method auto-captures.
func (s *PaymentService) Process(ctx context.Context, id uint64) (*entity.Payment, error) {
	return s.runLocked(ctx, id, s.process)
}

func (s *PaymentService) Authorize(ctx context.Context, id uint64) (*entity.Payment, error) {
	return s.runLocked(ctx, id, s.authorize)
}

func (s *PaymentService) Purchase(ctx context.Context, id uint64) (*entity.Payment, error) {
	return s.runLocked(ctx, id, s.purchase)
}

// Capture captures amountCents, or the whole uncaptured remainder when nil.
func (s *PaymentService) Capture(ctx context.Context, id uint64, amountCents *int64) (*entity.Payment, error) {
	return s.runLocked(ctx, id, func(ctx context.Context, run *processingRun) error {
		return s.capture(ctx, run, amountCents)
	})
}

func (s *PaymentService) Void(ctx context.Context, id uint64) (*entity.Payment, error) {
	return s.runLocked(ctx, id, s.voidTransaction)
}

func (s *PaymentService) Cancel(ctx context.Context, id uint64) (*entity.Payment, error) {
	return s.runLocked(ctx, id, s.cancel)
}

func (s *PaymentService) runLocked(
	ctx context.Context,
	id uint64,
	op func(ctx context.Context, run *processingRun) error,
) (*entity.Payment, error) {
	var payment *entity.Payment
	err := s.withPaymentLock(ctx, id, func() error {
		run, err := s.loadRun(ctx, id)
		if err != nil {
			return err
		}
		payment = run.payment
		return op(ctx, run)
	})
	if err != nil {
		return payment, err
	}
	return payment, nil
}

func (s *PaymentService) loadRun(ctx context.Context, id uint64) (*processingRun, error) {
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

	run := &processingRun{payment: payment}
	if payment.PaymentMethodID == nil {
		return run, nil
	}

	method, err := s.repos.Methods.FindByID(ctx, *payment.PaymentMethodID)
	if err != nil {
		return nil, err
	}
	if method == nil {
		return run, nil
	}

	gw, err := s.gateways.Get(method.Gateway)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrGatewayUnsupported, method.Gateway)
	}
	run.method = method
	run.gw = gw
	return run, nil
}

func (s *PaymentService) process(ctx context.Context, run *processingRun) error {
	if run.method == nil {
		return nil
	}
	if run.method.AutoCapture {
		return s.purchase(ctx, run)
	}
	if run.payment.State == entity.StatePending {
		return nil
	}
	return s.authorize(ctx, run)
}

func (s *PaymentService) authorize(ctx context.Context, run *processingRun) error {
	proceed, err := s.checkPreconditions(ctx, run)
	if err != nil || !proceed {
		return err
	}
	return s.gatewayAction(ctx, run, gateway.ActionAuthorize, entity.EventPend)
}

func (s *PaymentService) purchase(ctx context.Context, run *processingRun) error {
	proceed, err := s.checkPreconditions(ctx, run)
	if err != nil || !proceed {
		return err
	}
	if err := s.gatewayAction(ctx, run, gateway.ActionPurchase, entity.EventComplete); err != nil {
		return err
	}
	return s.recordCapture(ctx, run.payment, run.payment.Amount)
}

// gatewayAction runs authorize or purchase for the full payment amount.
func (s *PaymentService) gatewayAction(ctx context.Context, run *processingRun, action string, successEvent entity.PaymentEvent) error {
	payment := run.payment
	amount, err := money.New(payment.Amount, payment.Currency)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	previous := payment.State
	if err := s.transition(ctx, payment, entity.EventStartedProcessing); err != nil {
		return err
	}

	opts, err := s.gatewayOptions(ctx, payment)
	if err != nil {
		s.restoreAfterAbort(ctx, payment, previous)
		return err
	}

	var resp *gateway.Response
	switch action {
	case gateway.ActionPurchase:
		resp, err = run.gw.Purchase(ctx, amount.MinorUnits(), payment.Source, opts)
	default:
		resp, err = run.gw.Authorize(ctx, amount.MinorUnits(), payment.Source, opts)
	}
	if err != nil {
		return s.handleGatewayError(ctx, run, action, previous, err)
	}

	return s.handleResponse(ctx, run, action, resp, successEvent, entity.EventFailure)
}

func (s *PaymentService) capture(ctx context.Context, run *processingRun, amountCents *int64) error {
	payment := run.payment
	if payment.State == entity.StateCompleted {
		return nil
	}
	if run.gw == nil {
		return preconditionError(msgPaymentMethodMissing)
	}

	captured, err := s.repos.CaptureEvents.SumByPayment(ctx, payment.ID)
	if err != nil {
		return err
	}
	total, err := money.New(payment.Amount, payment.Currency)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	capturedSoFar, err := money.New(captured, payment.Currency)
	if err != nil {
		return err
	}
	remaining, err := total.Sub(capturedSoFar)
	if err != nil {
		return err
	}

	cents := remaining.MinorUnits()
	if amountCents != nil {
		cents = *amountCents
	}
	if cents <= 0 || cents > remaining.MinorUnits() {
		return preconditionError(fmt.Sprintf("capture amount must be between 1 and %d minor units", remaining.MinorUnits()))
	}
	captureAmount, err := money.FromMinorUnits(cents, payment.Currency)
	if err != nil {
		return err
	}

	previous := payment.State
	if err := s.transition(ctx, payment, entity.EventStartedProcessing); err != nil {
		return err
	}

	opts, err := s.gatewayOptions(ctx, payment)
	if err != nil {
		s.restoreAfterAbort(ctx, payment, previous)
		return err
	}

	resp, err := run.gw.Capture(ctx, cents, stringValue(payment.ResponseCode), opts)
	if err != nil {
		return s.handleGatewayError(ctx, run, gateway.ActionCapture, previous, err)
	}

	logErr := s.recordResponse(ctx, payment, resp)
	if !resp.Success {
		return s.failResponse(ctx, run, gateway.ActionCapture, resp, entity.EventFailure, logErr)
	}

	// The remainder payment keeps the original authorization. The gateway has moved
	// the money, so the payment completes even when this bookkeeping cannot be written.
	recordErr := s.recordCaptureSplit(ctx, payment, total, capturedSoFar, captureAmount)
	applyResponseFields(payment, resp)
	if err := s.transition(ctx, payment, entity.EventComplete); err != nil {
		return err
	}
	if recordErr != nil {
		s.logger.WithError(recordErr).
			WithField("payment_number", payment.Number).
			WithField("amount", captureAmount.String()).
			Error("payment_capture_record_failed")
		return fmt.Errorf("record capture for payment %s: %w", payment.Number, recordErr)
	}
	return nil
}

// recordCaptureSplit appends the capture event and moves any uncaptured amount to a
// new pending payment.
func (s *PaymentService) recordCaptureSplit(ctx context.Context, payment *entity.Payment, total, capturedSoFar, captureAmount money.Money) error {
	if err := s.recordCapture(ctx, payment, captureAmount.Amount()); err != nil {
		return err
	}
	newTotal, err := capturedSoFar.Add(captureAmount)
	if err != nil {
		return err
	}
	return s.splitUncapturedAmount(ctx, payment, total, newTotal)
}

// splitUncapturedAmount moves whatever was not captured into a new pending payment
// and shrinks this payment to the captured total.
func (s *PaymentService) splitUncapturedAmount(ctx context.Context, payment *entity.Payment, total, captured money.Money) error {
	remainder, err := total.Sub(captured)
	if err != nil {
		return err
	}
	if !remainder.IsPositive() {
		return nil
	}

	sibling := &entity.Payment{
		OrderID:            payment.OrderID,
		Amount:             remainder.Amount(),
		Currency:           payment.Currency,
		State:              entity.StatePending,
		ResponseCode:       payment.ResponseCode,
		AVSResponse:        payment.AVSResponse,
		CVVResponseCode:    payment.CVVResponseCode,
		CVVResponseMessage: payment.CVVResponseMessage,
		SourceID:           payment.SourceID,
		Source:             payment.Source,
		PaymentMethodID:    payment.PaymentMethodID,
	}
	if err := s.insertPayment(ctx, sibling); err != nil {
		return err
	}

	s.logger.WithField("payment_number", payment.Number).
		WithField("remainder_payment_number", sibling.Number).
		WithField("remainder", remainder.String()).
		Info("payment_uncaptured_amount_split")

	payment.Amount = captured.Amount()
	return nil
}

func (s *PaymentService) voidTransaction(ctx context.Context, run *processingRun) error {
	payment := run.payment
	if payment.State == entity.StateVoid {
		return nil
	}
	if run.gw == nil {
		return preconditionError(msgPaymentMethodMissing)
	}
	if !entity.CanTransition(payment.State, entity.EventVoid) {
		return transitionError(&entity.TransitionError{From: payment.State, Event: entity.EventVoid})
	}

	opts, err := s.gatewayOptions(ctx, payment)
	if err != nil {
		return err
	}

	var source *entity.PaymentSource
	if run.gw.PaymentProfilesSupported() {
		source = payment.Source
	}

	resp, err := run.gw.Void(ctx, stringValue(payment.ResponseCode), source, opts)
	if err != nil {
		return s.handleGatewayError(ctx, run, gateway.ActionVoid, "", err)
	}
	return s.handleVoidResponse(ctx, run, gateway.ActionVoid, resp)
}

func (s *PaymentService) cancel(ctx context.Context, run *processingRun) error {
	payment := run.payment
	if run.gw == nil {
		return preconditionError(msgPaymentMethodMissing)
	}
	if !entity.CanTransition(payment.State, entity.EventVoid) {
		return transitionError(&entity.TransitionError{From: payment.State, Event: entity.EventVoid})
	}

	resp, err := run.gw.Cancel(ctx, stringValue(payment.ResponseCode))
	if err != nil {
		return s.handleGatewayError(ctx, run, gateway.ActionCancel, "", err)
	}
	return s.handleVoidResponse(ctx, run, gateway.ActionCancel, resp)
}

func (s *PaymentService) recordCapture(ctx context.Context, payment *entity.Payment, amount decimal.Decimal) error {
	return s.repos.CaptureEvents.Create(ctx, &entity.CaptureEvent{
		PaymentID: payment.ID,
		Amount:    amount,
		CreatedAt: s.now(),
	})
}

func stringValue(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
