package database

import (
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/andesviajes/tours-backend/internal/models"
)

// PaymentRepository handles database operations for the payments table
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository creates a new PaymentRepository
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

const paymentColumns = `id, booking_id, amount, commission_amount, operator_amount,
	   method, status, gateway_transaction_id, card_last4, bank_name, wallet_phone,
	   failure_reason, refunded_at, created_at, updated_at`

// Create inserts a payment record inside the caller's transaction
func (r *PaymentRepository) Create(q sqlx.Ext, payment *models.Payment) error {
	query := `
		INSERT INTO payments (
			id, booking_id, amount, commission_amount, operator_amount,
			method, status, gateway_transaction_id, card_last4, bank_name, wallet_phone,
			failure_reason
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
		)
		RETURNING created_at, updated_at
	`

	if payment.ID == "" {
		payment.ID = uuid.New().String()
	}

	return q.QueryRowx(
		query,
		payment.ID, payment.BookingID, payment.Amount,
		payment.CommissionAmount, payment.OperatorAmount,
		payment.Method, payment.Status, payment.GatewayTransactionID,
		payment.CardLast4, payment.BankName, payment.WalletPhone,
		payment.FailureReason,
	).Scan(&payment.CreatedAt, &payment.UpdatedAt)
}

// GetByID retrieves a payment by ID
func (r *PaymentRepository) GetByID(paymentID string) (*models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`
	return r.scanPayment(r.db.QueryRow(query, paymentID))
}

// GetByBookingID retrieves all payment attempts for a booking, newest first
func (r *PaymentRepository) GetByBookingID(bookingID string) ([]models.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE booking_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.Query(query, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := []models.Payment{}
	for rows.Next() {
		payment, err := r.scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, *payment)
	}

	return payments, rows.Err()
}

// GetCompletedByBookingID retrieves the live charge for a booking, if any
func (r *PaymentRepository) GetCompletedByBookingID(bookingID string) (*models.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE booking_id = $1 AND status = 'completed'
		ORDER BY created_at DESC
		LIMIT 1
	`
	return r.scanPayment(r.db.QueryRow(query, bookingID))
}

// MarkRefunded transitions a completed payment to refunded
func (r *PaymentRepository) MarkRefunded(q sqlx.Ext, paymentID string) error {
	result, err := q.Exec(`
		UPDATE payments
		SET status = 'refunded', refunded_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = 'completed'`,
		paymentID,
	)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return sql.ErrNoRows
	}

	return nil
}

func (r *PaymentRepository) scanPayment(row scanner) (*models.Payment, error) {
	payment := &models.Payment{}
	var gatewayTransactionID sql.NullString
	var cardLast4 sql.NullString
	var bankName sql.NullString
	var walletPhone sql.NullString
	var failureReason sql.NullString
	var refundedAt sql.NullTime

	err := row.Scan(
		&payment.ID, &payment.BookingID, &payment.Amount,
		&payment.CommissionAmount, &payment.OperatorAmount,
		&payment.Method, &payment.Status, &gatewayTransactionID,
		&cardLast4, &bankName, &walletPhone,
		&failureReason, &refundedAt, &payment.CreatedAt, &payment.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if gatewayTransactionID.Valid {
		payment.GatewayTransactionID = &gatewayTransactionID.String
	}
	if cardLast4.Valid {
		payment.CardLast4 = &cardLast4.String
	}
	if bankName.Valid {
		payment.BankName = &bankName.String
	}
	if walletPhone.Valid {
		payment.WalletPhone = &walletPhone.String
	}
	if failureReason.Valid {
		payment.FailureReason = &failureReason.String
	}
	if refundedAt.Valid {
		payment.RefundedAt = &refundedAt.Time
	}

	return payment, nil
}
