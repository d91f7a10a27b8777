package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/vibast-solutions/ms-go-payment-processing/app/entity"
	"github.com/vibast-solutions/ms-go-payment-processing/app/gateway"
)

// handleResponse records resp and applies successEvent or failureEvent. A failed
// response is persisted as failed before the decline error is returned.
func (s *PaymentService) handleResponse(
	ctx context.Context,
	run *processingRun,
	action string,
	resp *gateway.Response,
	successEvent entity.PaymentEvent,
	failureEvent entity.PaymentEvent,
) error {
	logErr := s.recordResponse(ctx, run.payment, resp)
	if !resp.Success {
		return s.failResponse(ctx, run, action, resp, failureEvent, logErr)
	}
	applyResponseFields(run.payment, resp)
	return s.transition(ctx, run.payment, successEvent)
}

// failResponse applies failureEvent and returns the decline error for an already
// recorded response.
func (s *PaymentService) failResponse(
	ctx context.Context,
	run *processingRun,
	action string,
	resp *gateway.Response,
	failureEvent entity.PaymentEvent,
	logErr error,
) error {
	if err := s.transition(ctx, run.payment, failureEvent); err != nil {
		s.logger.WithError(err).
			WithField("payment_number", run.payment.Number).
			Error("payment_failure_transition_failed")
	}
	return s.declineError(run, action, resp, logErr)
}

func applyResponseFields(payment *entity.Payment, resp *gateway.Response) {
	if resp.Authorization != "" {
		payment.ResponseCode = stringPtr(resp.Authorization)
	}
	if resp.AVSResultCode != "" {
		payment.AVSResponse = stringPtr(resp.AVSResultCode)
	}
	if resp.CVVResultCode != "" {
		payment.CVVResponseCode = stringPtr(resp.CVVResultCode)
		payment.CVVResponseMessage = stringPtr(resp.CVVResultMsg)
	}
}

// handleVoidResponse is the reduced variant used by void and cancel: failure leaves
// the state untouched.
func (s *PaymentService) handleVoidResponse(ctx context.Context, run *processingRun, action string, resp *gateway.Response) error {
	payment := run.payment
	logErr := s.recordResponse(ctx, payment, resp)

	if !resp.Success {
		return s.declineError(run, action, resp, logErr)
	}

	if resp.Authorization != "" {
		payment.ResponseCode = stringPtr(resp.Authorization)
	}
	return s.transition(ctx, payment, entity.EventVoid)
}

// handleGatewayError covers calls that produced no response at all. The attempt is
// logged and, when previous is set, the payment goes back to the state it held
// before processing.
func (s *PaymentService) handleGatewayError(
	ctx context.Context,
	run *processingRun,
	action string,
	previous entity.PaymentState,
	callErr error,
) error {
	payment := run.payment
	connection := gateway.IsConnectionError(callErr)

	message := callErr.Error()
	kind := KindGatewayDecline
	if connection {
		message = msgUnableToConnect
		kind = KindGatewayConnection
	}

	logErr := s.recordResponse(ctx, payment, &gateway.Response{
		Success: false,
		Message: message,
		Params:  map[string]any{"error": callErr.Error()},
	})

	if previous != "" {
		s.restoreAfterAbort(ctx, payment, previous)
	}

	s.logger.WithError(callErr).
		WithField("payment_number", payment.Number).
		WithField("gateway", run.gw.Code()).
		WithField("action", action).
		WithField("connection", connection).
		Error("gateway_error")

	return &PaymentError{Kind: kind, Message: message, Err: errors.Join(callErr, logErr)}
}

func (s *PaymentService) restoreAfterAbort(ctx context.Context, payment *entity.Payment, previous entity.PaymentState) {
	if err := s.recoverState(ctx, payment, previous); err != nil {
		s.logger.WithError(err).
			WithField("payment_number", payment.Number).
			WithField("previous_state", string(previous)).
			Error("payment_recover_failed")
	}
}

// declineError builds the decline for resp. A log entry that could not be written
// is carried as the wrapped cause.
func (s *PaymentService) declineError(run *processingRun, action string, resp *gateway.Response, logErr error) error {
	message := responseMessage(resp)
	s.logger.WithField("payment_number", run.payment.Number).
		WithField("gateway", run.gw.Code()).
		WithField("action", action).
		WithField("response", resp.Serialize()).
		Error("gateway_error")
	return &PaymentError{Kind: KindGatewayDecline, Message: message, Err: logErr}
}

// recordResponse appends the raw response to the payment's log. The gateway call has
// already happened, so callers keep applying the response when the write fails.
func (s *PaymentService) recordResponse(ctx context.Context, payment *entity.Payment, resp *gateway.Response) error {
	entry := &entity.LogEntry{
		PaymentID: payment.ID,
		Details:   resp.Serialize(),
		CreatedAt: s.now(),
	}
	if err := s.repos.LogEntries.Create(ctx, entry); err != nil {
		s.logger.WithError(err).
			WithField("payment_number", payment.Number).
			Error("payment_log_entry_failed")
		return fmt.Errorf("record gateway response for payment %s: %w", payment.Number, err)
	}
	return nil
}

func responseMessage(resp *gateway.Response) string {
	if message := resp.Param("message"); message != "" {
		return message
	}
	if reason := resp.Param("response_reason_text"); reason != "" {
		return reason
	}
	if resp.Message != "" {
		return resp.Message
	}
	return msgProcessingFailed
}

func stringPtr(v string) *string {
	return &v
}
