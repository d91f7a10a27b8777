package publisher

import (
	"context"

	"github.com/vibast-solutions/ms-go-payment-processing/app/entity"
)

type Publisher interface {
	PublishTransition(ctx context.Context, event *entity.PaymentStateEvent) error
}

type NoopPublisher struct{}

func (NoopPublisher) PublishTransition(context.Context, *entity.PaymentStateEvent) error {
	return nil
}
