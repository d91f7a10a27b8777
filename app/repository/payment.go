package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/vibast-solutions/ms-go-payment-processing/app/entity"
)

var (
	ErrPaymentNotFound      = errors.New("payment not found")
	ErrPaymentAlreadyExists = errors.New("payment already exists")
)

const paymentColumns = `
	id, number, order_id, amount, currency, state,
	response_code, avs_response, cvv_response_code, cvv_response_message,
	source_id, payment_method_id, created_at, updated_at`

type PaymentFilter struct {
	OrderID  uint64
	HasState bool
	State    entity.PaymentState
	Limit    int32
	Offset   int32
}

type PaymentRepository struct {
	db DBTX
}

func NewPaymentRepository(db DBTX) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Create(ctx context.Context, payment *entity.Payment) error {
	query := `
		INSERT INTO payments (
			number, order_id, amount, currency, state,
			response_code, avs_response, cvv_response_code, cvv_response_message,
			source_id, payment_method_id, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		payment.Number,
		payment.OrderID,
		payment.Amount,
		payment.Currency,
		string(payment.State),
		nullableStringValue(payment.ResponseCode),
		nullableStringValue(payment.AVSResponse),
		nullableStringValue(payment.CVVResponseCode),
		nullableStringValue(payment.CVVResponseMessage),
		nullableUint64Value(payment.SourceID),
		nullableUint64Value(payment.PaymentMethodID),
		payment.CreatedAt,
		payment.UpdatedAt,
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrPaymentAlreadyExists
		}
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	payment.ID = uint64(id)
	return nil
}

func (r *PaymentRepository) Update(ctx context.Context, payment *entity.Payment) error {
	query := `
		UPDATE payments SET
			amount = ?,
			currency = ?,
			state = ?,
			response_code = ?,
			avs_response = ?,
			cvv_response_code = ?,
			cvv_response_message = ?,
			source_id = ?,
			payment_method_id = ?,
			updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		payment.Amount,
		payment.Currency,
		string(payment.State),
		nullableStringValue(payment.ResponseCode),
		nullableStringValue(payment.AVSResponse),
		nullableStringValue(payment.CVVResponseCode),
		nullableStringValue(payment.CVVResponseMessage),
		nullableUint64Value(payment.SourceID),
		nullableUint64Value(payment.PaymentMethodID),
		payment.UpdatedAt,
		payment.ID,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrPaymentNotFound
	}

	return nil
}

func (r *PaymentRepository) FindByID(ctx context.Context, id uint64) (*entity.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = ?`
	return r.findOne(ctx, query, id)
}

func (r *PaymentRepository) FindByNumber(ctx context.Context, number string) (*entity.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE number = ?`
	return r.findOne(ctx, query, strings.TrimSpace(number))
}

func (r *PaymentRepository) List(ctx context.Context, filter PaymentFilter) ([]*entity.Payment, error) {
	clauses := make([]string, 0, 2)
	args := make([]interface{}, 0, 4)

	if filter.OrderID > 0 {
		clauses = append(clauses, "order_id = ?")
		args = append(args, filter.OrderID)
	}
	if filter.HasState {
		clauses = append(clauses, "state = ?")
		args = append(args, string(filter.State))
	}

	query := `SELECT ` + paymentColumns + ` FROM payments`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY id ASC LIMIT ? OFFSET ?"
	args = append(args, filter.Limit, filter.Offset)

	return r.findMany(ctx, query, args...)
}

// ListStaleProcessing returns payments stuck in processing since before the cutoff.
func (r *PaymentRepository) ListStaleProcessing(ctx context.Context, before time.Time, limit int32) ([]*entity.Payment, error) {
	query := `SELECT ` + paymentColumns + `
		FROM payments
		WHERE state = ? AND updated_at <= ?
		ORDER BY updated_at ASC
		LIMIT ?`
	return r.findMany(ctx, query, string(entity.StateProcessing), before, limit)
}

func (r *PaymentRepository) findOne(ctx context.Context, query string, args ...interface{}) (*entity.Payment, error) {
	payment := &entity.Payment{}
	if err := scanPayment(r.db.QueryRowContext(ctx, query, args...), payment); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return payment, nil
}

func (r *PaymentRepository) findMany(ctx context.Context, query string, args ...interface{}) ([]*entity.Payment, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]*entity.Payment, 0)
	for rows.Next() {
		payment := &entity.Payment{}
		if err := scanPayment(rows, payment); err != nil {
			return nil, err
		}
		items = append(items, payment)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func scanPayment(scanner rowScanner, payment *entity.Payment) error {
	var (
		state              string
		responseCode       sql.NullString
		avsResponse        sql.NullString
		cvvResponseCode    sql.NullString
		cvvResponseMessage sql.NullString
		sourceID           sql.NullInt64
		paymentMethodID    sql.NullInt64
	)

	if err := scanner.Scan(
		&payment.ID,
		&payment.Number,
		&payment.OrderID,
		&payment.Amount,
		&payment.Currency,
		&state,
		&responseCode,
		&avsResponse,
		&cvvResponseCode,
		&cvvResponseMessage,
		&sourceID,
		&paymentMethodID,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	); err != nil {
		return err
	}

	payment.State = entity.PaymentState(state)
	payment.ResponseCode = stringPtrFromNull(responseCode)
	payment.AVSResponse = stringPtrFromNull(avsResponse)
	payment.CVVResponseCode = stringPtrFromNull(cvvResponseCode)
	payment.CVVResponseMessage = stringPtrFromNull(cvvResponseMessage)
	payment.SourceID = uint64PtrFromNull(sourceID)
	payment.PaymentMethodID = uint64PtrFromNull(paymentMethodID)

	return nil
}
