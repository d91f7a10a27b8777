package service

import (
	"context"

	"github.com/vibast-solutions/ms-go-payment-processing/app/entity"
)

// checkPreconditions decides whether authorize or purchase may call the gateway.
// proceed=false with a nil error is a deliberate no-op.
func (s *PaymentService) checkPreconditions(ctx context.Context, run *processingRun) (bool, error) {
	payment := run.payment
	if run.method == nil || run.gw == nil {
		return false, nil
	}
	if payment.State.Terminal() {
		return false, transitionError(&entity.TransitionError{From: payment.State, Event: entity.EventStartedProcessing})
	}
	if !run.gw.SourceRequired() {
		return true, nil
	}
	if payment.State == entity.StateProcessing {
		return false, nil
	}

	if payment.Source == nil {
		return false, preconditionError(msgProcessingFailed)
	}
	if run.gw.SupportsSource(payment.Source) || payment.TokenBased() {
		return true, nil
	}

	if entity.CanTransition(payment.State, entity.EventInvalidate) {
		if err := s.transition(ctx, payment, entity.EventInvalidate); err != nil {
			return false, err
		}
	}
	return false, preconditionError(msgMethodNotSupported)
}
