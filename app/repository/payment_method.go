package repository

import (
	"context"
	"database/sql"

	"github.com/vibast-solutions/ms-go-payment-processing/app/entity"
)

type PaymentMethodRepository struct {
	db DBTX
}

func NewPaymentMethodRepository(db DBTX) *PaymentMethodRepository {
	return &PaymentMethodRepository{db: db}
}

func (r *PaymentMethodRepository) FindByID(ctx context.Context, id uint64) (*entity.PaymentMethod, error) {
	query := `
		SELECT id, name, gateway, auto_capture, active, created_at, updated_at
		FROM payment_methods
		WHERE id = ?
	`

	method := &entity.PaymentMethod{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&method.ID,
		&method.Name,
		&method.Gateway,
		&method.AutoCapture,
		&method.Active,
		&method.CreatedAt,
		&method.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return method, nil
}
