package service

import (
	"context"
	"errors"

	"github.com/vibast-solutions/ms-go-payment-processing/app/entity"
	"github.com/vibast-solutions/ms-go-payment-processing/app/gateway"
)

const abandonedProcessingMessage = "processing abandoned without a gateway response"

// RunRecoverProcessingBatch fails payments left in processing past the stale cutoff,
// typically by a worker that died mid-call. Their gateway outcome is unknown.
func (s *PaymentService) RunRecoverProcessingBatch(ctx context.Context) error {
	if s.cfg.StaleProcessingAfter <= 0 {
		return nil
	}

	cutoff := s.now().Add(-s.cfg.StaleProcessingAfter)
	items, err := s.repos.Payments.ListStaleProcessing(ctx, cutoff, s.batchSize())
	if err != nil {
		return err
	}

	var firstErr error
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return keepFirstErr(firstErr, err)
		}
		if item == nil {
			continue
		}

		err := s.withPaymentLock(ctx, item.ID, func() error {
			payment, err := s.repos.Payments.FindByID(ctx, item.ID)
			if err != nil {
				return err
			}
			if payment == nil || payment.State != entity.StateProcessing || payment.UpdatedAt.After(cutoff) {
				return nil
			}

			if err := s.recordResponse(ctx, payment, &gateway.Response{Success: false, Message: abandonedProcessingMessage}); err != nil {
				return err
			}
			if err := s.transition(ctx, payment, entity.EventFailure); err != nil {
				return err
			}

			s.logger.WithField("payment_number", payment.Number).Warn("stale_processing_payment_failed")
			return nil
		})
		if errors.Is(err, ErrPaymentLocked) {
			continue
		}
		firstErr = keepFirstErr(firstErr, err)
	}

	return firstErr
}
