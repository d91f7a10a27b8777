package mapper

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vibast-solutions/ms-go-payment-processing/app/entity"
)

func TestPaymentToProto(t *testing.T) {
	profile := "BGS-1"
	code := "12345"
	sourceID := uint64(3)
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("CET", 3600))

	item := &entity.Payment{
		ID:           9,
		Number:       "PABCDEF1234",
		OrderID:      42,
		Amount:       decimal.RequireFromString("20"),
		Currency:     "USD",
		State:        entity.StateCompleted,
		ResponseCode: &code,
		SourceID:     &sourceID,
		Source: &entity.PaymentSource{
			ID:                      sourceID,
			Type:                    entity.SourceTypeCreditCard,
			LastDigits:              "1111",
			GatewayPaymentProfileID: &profile,
		},
		CreatedAt: created,
		UpdatedAt: created,
	}

	out := PaymentToProto(item)
	require.NotNil(t, out)
	assert.Equal(t, "20.00", out.Amount)
	assert.Equal(t, int64(2000), out.AmountCents)
	assert.Equal(t, "completed", out.State)
	assert.Equal(t, "12345", out.ResponseCode)
	assert.Equal(t, uint64(3), out.SourceId)
	assert.Zero(t, out.PaymentMethodId)
	require.NotNil(t, out.Source)
	assert.True(t, out.Source.TokenBased)
	assert.Equal(t, "2026-03-01T11:00:00Z", out.CreatedAt)

	assert.Nil(t, PaymentToProto(nil))
}

func TestCaptureEventsToProtoAndTotal(t *testing.T) {
	items := []*entity.CaptureEvent{
		{ID: 1, PaymentID: 9, Amount: decimal.RequireFromString("12.5")},
		{ID: 2, PaymentID: 9, Amount: decimal.RequireFromString("7.5")},
	}

	out := CaptureEventsToProto(items, "USD")
	require.Len(t, out, 2)
	assert.Equal(t, "12.50", out[0].Amount)
	assert.Equal(t, int64(750), out[1].AmountCents)
	assert.Equal(t, "20.00", CapturedAmount(items, "USD"))
	assert.Equal(t, "0", CapturedAmount(nil, "JPY"))
}
