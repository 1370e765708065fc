package services

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/andesviajes/tours-backend/internal/config"
	"github.com/andesviajes/tours-backend/internal/database"
	"github.com/andesviajes/tours-backend/internal/models"
)

func newPaymentService(db *sqlx.DB) *PaymentService {
	svc := NewPaymentService(database.NewPaymentRepository(db), config.PaymentConfig{Environment: "sandbox"}, testLogger())
	svc.now = func() time.Time { return time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC) }
	return svc
}

func chargeableBooking() *models.Booking {
	return &models.Booking{
		ID:               "book-1",
		BookingNumber:    "TB-20260901-ABC123",
		TotalAmount:      300.0,
		CommissionAmount: 45.0,
		Status:           models.BookingStatusConfirmed,
	}
}

func TestCharge(t *testing.T) {
	t.Run("Card Payment", func(t *testing.T) {
		db, mock := newMockDB(t)
		svc := newPaymentService(db)

		mock.ExpectQuery(`INSERT INTO payments`).
			WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(time.Now(), time.Now()))

		payment, err := svc.Charge(db, chargeableBooking(), models.PaymentMethodCreditCard, models.PaymentDetails{
			CardNumber:  "4111111111111111",
			CardHolder:  "Ana Quispe",
			CVV:         "123",
			ExpiryMonth: 11,
			ExpiryYear:  2028,
		})
		require.NoError(t, err)

		assert.Equal(t, models.TransactionStatusCompleted, payment.Status)
		assert.Equal(t, 300.0, payment.Amount)
		assert.Equal(t, 45.0, payment.CommissionAmount)
		assert.Equal(t, 255.0, payment.OperatorAmount)
		require.NotNil(t, payment.CardLast4)
		assert.Equal(t, "1111", *payment.CardLast4)
		require.NotNil(t, payment.GatewayTransactionID)
		assert.Contains(t, *payment.GatewayTransactionID, "PAY-")

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("QR Payment", func(t *testing.T) {
		db, mock := newMockDB(t)
		svc := newPaymentService(db)

		mock.ExpectQuery(`INSERT INTO payments`).
			WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(time.Now(), time.Now()))

		payment, err := svc.Charge(db, chargeableBooking(), models.PaymentMethodQR, models.PaymentDetails{
			WalletPhone: "+59171234567",
		})
		require.NoError(t, err)

		require.NotNil(t, payment.WalletPhone)
		assert.Equal(t, "+59171234567", *payment.WalletPhone)
		assert.Nil(t, payment.CardLast4)
	})

	t.Run("Unsupported Method", func(t *testing.T) {
		db, mock := newMockDB(t)
		svc := newPaymentService(db)

		_, err := svc.Charge(db, chargeableBooking(), models.PaymentMethod("crypto"), models.PaymentDetails{})
		require.Error(t, err)

		domainErr, ok := models.AsDomainError(err)
		require.True(t, ok)
		assert.Equal(t, models.ErrUnsupportedPaymentMethod, domainErr.Kind)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Missing Card Details", func(t *testing.T) {
		db, _ := newMockDB(t)
		svc := newPaymentService(db)

		_, err := svc.Charge(db, chargeableBooking(), models.PaymentMethodCreditCard, models.PaymentDetails{
			CardHolder: "Ana Quispe",
		})
		require.Error(t, err)

		domainErr, ok := models.AsDomainError(err)
		require.True(t, ok)
		assert.Equal(t, models.ErrInvalidInput, domainErr.Kind)
	})

	t.Run("Missing Wallet Phone", func(t *testing.T) {
		db, _ := newMockDB(t)
		svc := newPaymentService(db)

		_, err := svc.Charge(db, chargeableBooking(), models.PaymentMethodQR, models.PaymentDetails{})
		require.Error(t, err)

		domainErr, ok := models.AsDomainError(err)
		require.True(t, ok)
		assert.Equal(t, models.ErrInvalidInput, domainErr.Kind)
	})

	t.Run("Foreign Wallet Phone", func(t *testing.T) {
		db, _ := newMockDB(t)
		svc := newPaymentService(db)

		_, err := svc.Charge(db, chargeableBooking(), models.PaymentMethodQR, models.PaymentDetails{
			WalletPhone: "+14155550123",
		})
		require.Error(t, err)

		domainErr, ok := models.AsDomainError(err)
		require.True(t, ok)
		assert.Equal(t, models.ErrInvalidInput, domainErr.Kind)
	})

	t.Run("Missing Bank Details", func(t *testing.T) {
		db, _ := newMockDB(t)
		svc := newPaymentService(db)

		_, err := svc.Charge(db, chargeableBooking(), models.PaymentMethodBankTransfer, models.PaymentDetails{
			BankName: "Banco Union",
		})
		require.Error(t, err)

		domainErr, ok := models.AsDomainError(err)
		require.True(t, ok)
		assert.Equal(t, models.ErrInvalidInput, domainErr.Kind)
	})
}

func TestRefund(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		db, mock := newMockDB(t)
		svc := newPaymentService(db)

		payment := &models.Payment{
			ID:        "pay-1",
			BookingID: "book-1",
			Amount:    300.0,
			Status:    models.TransactionStatusCompleted,
		}

		mock.ExpectExec(`UPDATE payments`).
			WithArgs("pay-1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, svc.Refund(db, payment))

		assert.Equal(t, models.TransactionStatusRefunded, payment.Status)
		require.NotNil(t, payment.RefundedAt)
		assert.Equal(t, time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC), *payment.RefundedAt)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Already Refunded", func(t *testing.T) {
		db, mock := newMockDB(t)
		svc := newPaymentService(db)

		payment := &models.Payment{ID: "pay-1", Status: models.TransactionStatusRefunded}

		err := svc.Refund(db, payment)
		require.Error(t, err)

		domainErr, ok := models.AsDomainError(err)
		require.True(t, ok)
		assert.Equal(t, models.ErrNotRefundable, domainErr.Kind)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Failed Payment", func(t *testing.T) {
		db, _ := newMockDB(t)
		svc := newPaymentService(db)

		payment := &models.Payment{ID: "pay-1", Status: models.TransactionStatusFailed}

		err := svc.Refund(db, payment)
		require.Error(t, err)

		domainErr, ok := models.AsDomainError(err)
		require.True(t, ok)
		assert.Equal(t, models.ErrNotRefundable, domainErr.Kind)
	})
}
