package mapper

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/vibast-solutions/ms-go-payment-processing/app/entity"
	"github.com/vibast-solutions/ms-go-payment-processing/app/money"
	"github.com/vibast-solutions/ms-go-payment-processing/app/types"
)

func PaymentToProto(item *entity.Payment) *types.Payment {
	if item == nil {
		return nil
	}

	return &types.Payment{
		Id:                 item.ID,
		Number:             item.Number,
		OrderId:            item.OrderID,
		Amount:             formatAmount(item.Amount, item.Currency),
		AmountCents:        minorUnits(item.Amount, item.Currency),
		Currency:           item.Currency,
		State:              string(item.State),
		ResponseCode:       derefString(item.ResponseCode),
		AvsResponse:        derefString(item.AVSResponse),
		CvvResponseCode:    derefString(item.CVVResponseCode),
		CvvResponseMessage: derefString(item.CVVResponseMessage),
		SourceId:           derefUint64(item.SourceID),
		PaymentMethodId:    derefUint64(item.PaymentMethodID),
		Source:             SourceToProto(item.Source),
		CreatedAt:          item.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:          item.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func PaymentsToProto(items []*entity.Payment) []*types.Payment {
	result := make([]*types.Payment, 0, len(items))
	for _, item := range items {
		result = append(result, PaymentToProto(item))
	}
	return result
}

// SourceToProto never exposes gateway profile identifiers.
func SourceToProto(item *entity.PaymentSource) *types.PaymentSource {
	if item == nil {
		return nil
	}
	return &types.PaymentSource{
		Id:         item.ID,
		Type:       item.Type,
		Name:       item.Name,
		LastDigits: item.LastDigits,
		Month:      item.Month,
		Year:       item.Year,
		Brand:      item.Brand,
		TokenBased: item.TokenBased(),
	}
}

func LogEntriesToProto(items []*entity.LogEntry) []*types.LogEntry {
	result := make([]*types.LogEntry, 0, len(items))
	for _, item := range items {
		result = append(result, &types.LogEntry{
			Id:        item.ID,
			PaymentId: item.PaymentID,
			Details:   item.Details,
			CreatedAt: item.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return result
}

func CaptureEventsToProto(items []*entity.CaptureEvent, currency string) []*types.CaptureEvent {
	result := make([]*types.CaptureEvent, 0, len(items))
	for _, item := range items {
		result = append(result, &types.CaptureEvent{
			Id:          item.ID,
			PaymentId:   item.PaymentID,
			Amount:      formatAmount(item.Amount, currency),
			AmountCents: minorUnits(item.Amount, currency),
			CreatedAt:   item.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return result
}

// CapturedAmount sums capture events the same way the repository does.
func CapturedAmount(items []*entity.CaptureEvent, currency string) string {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Amount)
	}
	return formatAmount(total, currency)
}

func formatAmount(amount decimal.Decimal, currency string) string {
	m, err := money.New(amount, currency)
	if err != nil {
		return amount.String()
	}
	return m.Amount().StringFixed(m.Exponent())
}

func minorUnits(amount decimal.Decimal, currency string) int64 {
	m, err := money.New(amount, currency)
	if err != nil {
		return 0
	}
	return m.MinorUnits()
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func derefUint64(v *uint64) uint64 {
	if v == nil {
		return 0
	}
	return *v
}
