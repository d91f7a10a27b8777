package repository

import (
	"context"

	"github.com/vibast-solutions/ms-go-payment-processing/app/entity"
)

type LogEntryRepository struct {
	db DBTX
}

func NewLogEntryRepository(db DBTX) *LogEntryRepository {
	return &LogEntryRepository{db: db}
}

func (r *LogEntryRepository) Create(ctx context.Context, entry *entity.LogEntry) error {
	query := `
		INSERT INTO payment_log_entries (payment_id, details, created_at)
		VALUES (?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query, entry.PaymentID, entry.Details, entry.CreatedAt)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	entry.ID = uint64(id)

	return nil
}

func (r *LogEntryRepository) ListByPayment(ctx context.Context, paymentID uint64) ([]*entity.LogEntry, error) {
	query := `
		SELECT id, payment_id, details, created_at
		FROM payment_log_entries
		WHERE payment_id = ?
		ORDER BY id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, paymentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]*entity.LogEntry, 0)
	for rows.Next() {
		entry := &entity.LogEntry{}
		if err := rows.Scan(&entry.ID, &entry.PaymentID, &entry.Details, &entry.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
