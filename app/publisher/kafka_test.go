package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/require"
	"github.com/vibast-solutions/ms-go-payment-processing/app/entity"
)

func TestKafkaPublisherSendsTransition(t *testing.T) {
	producer := mocks.NewSyncProducer(t, sarama.NewConfig())
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(value []byte) error {
		var msg TransitionMessage
		if err := json.Unmarshal(value, &msg); err != nil {
			return err
		}
		if msg.PaymentNumber != "P123" || msg.OldState != "processing" || msg.NewState != "completed" {
			return errors.New("unexpected message")
		}
		return nil
	})

	old := entity.StateProcessing
	p := NewKafkaPublisher(producer, "payments.transitions")
	err := p.PublishTransition(context.Background(), &entity.PaymentStateEvent{
		PaymentID:     7,
		PaymentNumber: "P123",
		EventType:     string(entity.EventComplete),
		OldState:      &old,
		NewState:      entity.StateCompleted,
		CreatedAt:     time.Now(),
	})
	require.NoError(t, err)
	require.NoError(t, p.Close())
}

func TestKafkaPublisherReturnsSendError(t *testing.T) {
	producer := mocks.NewSyncProducer(t, sarama.NewConfig())
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	p := NewKafkaPublisher(producer, "payments.transitions")
	err := p.PublishTransition(context.Background(), &entity.PaymentStateEvent{PaymentNumber: "P1", NewState: entity.StateVoid})
	require.ErrorIs(t, err, sarama.ErrOutOfBrokers)
	require.NoError(t, p.Close())
}
