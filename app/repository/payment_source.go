package repository

import (
	"context"
	"database/sql"

	"github.com/vibast-solutions/ms-go-payment-processing/app/entity"
)

type PaymentSourceRepository struct {
	db DBTX
}

func NewPaymentSourceRepository(db DBTX) *PaymentSourceRepository {
	return &PaymentSourceRepository{db: db}
}

func (r *PaymentSourceRepository) FindByID(ctx context.Context, id uint64) (*entity.PaymentSource, error) {
	query := `
		SELECT s.id, s.type, s.name, s.last_digits, s.month, s.year, s.brand,
			s.gateway_customer_profile_id, s.gateway_payment_profile_id,
			s.created_at, s.updated_at, ` + addressColumns("a") + `
		FROM payment_sources s
		LEFT JOIN addresses a ON a.id = s.address_id
		WHERE s.id = ?
	`

	var (
		source            entity.PaymentSource
		customerProfileID sql.NullString
		paymentProfileID  sql.NullString
		address           nullAddress
	)

	dest := []interface{}{
		&source.ID,
		&source.Type,
		&source.Name,
		&source.LastDigits,
		&source.Month,
		&source.Year,
		&source.Brand,
		&customerProfileID,
		&paymentProfileID,
		&source.CreatedAt,
		&source.UpdatedAt,
	}
	dest = append(dest, address.dest()...)

	err := r.db.QueryRowContext(ctx, query, id).Scan(dest...)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	source.GatewayCustomerProfileID = stringPtrFromNull(customerProfileID)
	source.GatewayPaymentProfileID = stringPtrFromNull(paymentProfileID)
	source.Address = address.toEntity()

	return &source, nil
}
