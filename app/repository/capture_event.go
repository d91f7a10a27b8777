package repository

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/vibast-solutions/ms-go-payment-processing/app/entity"
)

type CaptureEventRepository struct {
	db DBTX
}

func NewCaptureEventRepository(db DBTX) *CaptureEventRepository {
	return &CaptureEventRepository{db: db}
}

func (r *CaptureEventRepository) Create(ctx context.Context, event *entity.CaptureEvent) error {
	query := `
		INSERT INTO payment_capture_events (payment_id, amount, created_at)
		VALUES (?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query, event.PaymentID, event.Amount, event.CreatedAt)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	event.ID = uint64(id)

	return nil
}

func (r *CaptureEventRepository) ListByPayment(ctx context.Context, paymentID uint64) ([]*entity.CaptureEvent, error) {
	query := `
		SELECT id, payment_id, amount, created_at
		FROM payment_capture_events
		WHERE payment_id = ?
		ORDER BY id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, paymentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]*entity.CaptureEvent, 0)
	for rows.Next() {
		event := &entity.CaptureEvent{}
		if err := rows.Scan(&event.ID, &event.PaymentID, &event.Amount, &event.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, event)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// SumByPayment returns the total captured so far, zero when nothing was captured.
func (r *CaptureEventRepository) SumByPayment(ctx context.Context, paymentID uint64) (decimal.Decimal, error) {
	query := `SELECT COALESCE(SUM(amount), 0) FROM payment_capture_events WHERE payment_id = ?`

	var total decimal.Decimal
	if err := r.db.QueryRowContext(ctx, query, paymentID).Scan(&total); err != nil {
		return decimal.Zero, err
	}
	return total, nil
}
