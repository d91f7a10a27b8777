package repository

import (
	"context"
	"database/sql"

	"github.com/vibast-solutions/ms-go-payment-processing/app/entity"
)

type PaymentEventRepository struct {
	db DBTX
}

func NewPaymentEventRepository(db DBTX) *PaymentEventRepository {
	return &PaymentEventRepository{db: db}
}

func (r *PaymentEventRepository) Create(ctx context.Context, event *entity.PaymentStateEvent) error {
	query := `
		INSERT INTO payment_state_events (
			payment_id, event_type, old_state, new_state, created_at
		)
		VALUES (?, ?, ?, ?, ?)
	`

	var oldState interface{}
	if event.OldState != nil {
		oldState = string(*event.OldState)
	}

	result, err := r.db.ExecContext(ctx, query,
		event.PaymentID,
		event.EventType,
		oldState,
		string(event.NewState),
		event.CreatedAt,
	)
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

func (r *PaymentEventRepository) ListByPayment(ctx context.Context, paymentID uint64) ([]*entity.PaymentStateEvent, error) {
	query := `
		SELECT id, payment_id, event_type, old_state, new_state, created_at
		FROM payment_state_events
		WHERE payment_id = ?
		ORDER BY id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, paymentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]*entity.PaymentStateEvent, 0)
	for rows.Next() {
		var (
			event    entity.PaymentStateEvent
			oldState sql.NullString
			newState string
		)
		if err := rows.Scan(&event.ID, &event.PaymentID, &event.EventType, &oldState, &newState, &event.CreatedAt); err != nil {
			return nil, err
		}
		if oldState.Valid {
			s := entity.PaymentState(oldState.String)
			event.OldState = &s
		}
		event.NewState = entity.PaymentState(newState)
		items = append(items, &event)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
