package repository

import (
	"context"
	"database/sql"

	"github.com/vibast-solutions/ms-go-payment-processing/app/entity"
)

type OrderRepository struct {
	db DBTX
}

func NewOrderRepository(db DBTX) *OrderRepository {
	return &OrderRepository{db: db}
}

// FindByID always reads the current row; callers rely on it for fresh totals.
func (r *OrderRepository) FindByID(ctx context.Context, id uint64) (*entity.Order, error) {
	query := `
		SELECT o.id, o.number, o.email, o.user_id, o.last_ip_address, o.currency,
			o.item_total, o.ship_total, o.additional_tax_total, o.promo_total,
			` + addressColumns("ba") + `, ` + addressColumns("sa") + `
		FROM orders o
		LEFT JOIN addresses ba ON ba.id = o.bill_address_id
		LEFT JOIN addresses sa ON sa.id = o.ship_address_id
		WHERE o.id = ?
	`

	var (
		order       entity.Order
		userID      sql.NullInt64
		lastIP      sql.NullString
		billAddress nullAddress
		shipAddress nullAddress
	)

	dest := []interface{}{
		&order.ID,
		&order.Number,
		&order.Email,
		&userID,
		&lastIP,
		&order.Currency,
		&order.ItemTotal,
		&order.ShipTotal,
		&order.AdditionalTaxTotal,
		&order.PromoTotal,
	}
	dest = append(dest, billAddress.dest()...)
	dest = append(dest, shipAddress.dest()...)

	err := r.db.QueryRowContext(ctx, query, id).Scan(dest...)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	order.UserID = uint64PtrFromNull(userID)
	order.LastIPAddress = lastIP.String
	order.BillAddress = billAddress.toEntity()
	order.ShipAddress = shipAddress.toEntity()

	return &order, nil
}
