package services

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/andesviajes/tours-backend/internal/config"
	"github.com/andesviajes/tours-backend/internal/database"
	"github.com/andesviajes/tours-backend/internal/models"
	"github.com/andesviajes/tours-backend/pkg/validator"
)

// QR wallets are tied to Bolivian mobile numbers
var walletPhoneValidator = validator.NewPhoneValidator()

// PaymentService is the payment gateway stub. It validates method-specific
// details, simulates authorization, and records the commission/operator
// split of every charge. No real gateway is contacted in sandbox mode.
type PaymentService struct {
	paymentRepo *database.PaymentRepository
	config      config.PaymentConfig
	logger      *logrus.Logger
	now         func() time.Time
}

// NewPaymentService creates a new payment service
func NewPaymentService(paymentRepo *database.PaymentRepository, cfg config.PaymentConfig, logger *logrus.Logger) *PaymentService {
	return &PaymentService{
		paymentRepo: paymentRepo,
		config:      cfg,
		logger:      logger,
		now:         time.Now,
	}
}

// Charge validates and records a payment for a booking inside the caller's
// transaction. The split reuses the commission amount already computed on
// the booking so ledger and gateway never disagree.
func (s *PaymentService) Charge(q sqlx.Ext, booking *models.Booking, method models.PaymentMethod, details models.PaymentDetails) (*models.Payment, error) {
	if !method.IsValid() {
		return nil, models.NewDomainError(models.ErrUnsupportedPaymentMethod, "payment method %q is not supported", method)
	}

	if err := validateDetails(method, details); err != nil {
		return nil, err
	}

	transactionID, err := generateTransactionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate transaction id: %w", err)
	}

	payment := &models.Payment{
		BookingID:            booking.ID,
		Amount:               booking.TotalAmount,
		CommissionAmount:     booking.CommissionAmount,
		OperatorAmount:       roundMoney(booking.TotalAmount - booking.CommissionAmount),
		Method:               method,
		Status:               models.TransactionStatusCompleted,
		GatewayTransactionID: &transactionID,
	}

	switch {
	case method.IsCard():
		payment.CardLast4 = details.CardLast4()
	case method == models.PaymentMethodBankTransfer:
		bankName := details.BankName
		payment.BankName = &bankName
	case method == models.PaymentMethodQR:
		walletPhone := details.WalletPhone
		payment.WalletPhone = &walletPhone
	}

	if err := s.paymentRepo.Create(q, payment); err != nil {
		return nil, fmt.Errorf("failed to record payment: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"payment_id":      payment.ID,
		"booking_id":      booking.ID,
		"method":          method,
		"amount":          payment.Amount,
		"operator_amount": payment.OperatorAmount,
		"environment":     s.config.Environment,
	}).Info("Payment authorized")

	return payment, nil
}

// Refund reverses a completed charge inside the caller's transaction
func (s *PaymentService) Refund(q sqlx.Ext, payment *models.Payment) error {
	if !payment.CanBeRefunded() {
		return models.NewDomainError(models.ErrNotRefundable, "payment is %s, only completed payments can be refunded", payment.Status)
	}

	if err := s.paymentRepo.MarkRefunded(q, payment.ID); err != nil {
		return fmt.Errorf("failed to refund payment: %w", err)
	}

	refundedAt := s.now()
	payment.Status = models.TransactionStatusRefunded
	payment.RefundedAt = &refundedAt

	s.logger.WithFields(logrus.Fields{
		"payment_id": payment.ID,
		"booking_id": payment.BookingID,
		"amount":     payment.Amount,
	}).Info("Payment refunded")

	return nil
}

// GetPayment retrieves a payment by ID
func (s *PaymentService) GetPayment(paymentID string) (*models.Payment, error) {
	payment, err := s.paymentRepo.GetByID(paymentID)
	if err != nil {
		return nil, models.NewDomainError(models.ErrNotFound, "payment not found")
	}
	return payment, nil
}

// ListByBooking retrieves all payment attempts of a booking
func (s *PaymentService) ListByBooking(bookingID string) ([]models.Payment, error) {
	return s.paymentRepo.GetByBookingID(bookingID)
}

// validateDetails checks the method-specific required fields
func validateDetails(method models.PaymentMethod, details models.PaymentDetails) error {
	switch method {
	case models.PaymentMethodCreditCard, models.PaymentMethodDebitCard:
		number := strings.TrimSpace(details.CardNumber)
		if len(number) < 12 {
			return models.NewDomainError(models.ErrInvalidInput, "card_number is required")
		}
		if details.CardHolder == "" {
			return models.NewDomainError(models.ErrInvalidInput, "card_holder is required")
		}
		if len(details.CVV) < 3 {
			return models.NewDomainError(models.ErrInvalidInput, "cvv is required")
		}
		if details.ExpiryMonth < 1 || details.ExpiryMonth > 12 {
			return models.NewDomainError(models.ErrInvalidInput, "expiry_month must be between 1 and 12")
		}
	case models.PaymentMethodBankTransfer:
		if details.BankName == "" {
			return models.NewDomainError(models.ErrInvalidInput, "bank_name is required")
		}
		if details.AccountNumber == "" {
			return models.NewDomainError(models.ErrInvalidInput, "account_number is required")
		}
	case models.PaymentMethodQR:
		if details.WalletPhone == "" {
			return models.NewDomainError(models.ErrInvalidInput, "wallet_phone is required")
		}
		if _, err := walletPhoneValidator.Validate(details.WalletPhone); err != nil {
			return models.NewDomainError(models.ErrInvalidInput, "wallet_phone: %s", err.Error())
		}
	}

	return nil
}

// generateTransactionID builds an opaque gateway reference.
// Format: PAY-XXXXXXXXXXXXXXXX (16 char hex)
func generateTransactionID() (string, error) {
	randomBytes := make([]byte, 8)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", err
	}
	return "PAY-" + strings.ToUpper(hex.EncodeToString(randomBytes)), nil
}
