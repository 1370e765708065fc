package models

import (
	"errors"
	"strings"
	"time"
)

// PaymentMethod identifies how a booking is paid
type PaymentMethod string

const (
	PaymentMethodCreditCard   PaymentMethod = "credit_card"
	PaymentMethodDebitCard    PaymentMethod = "debit_card"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodQR           PaymentMethod = "qr"
)

// IsCard reports whether the method requires card details
func (m PaymentMethod) IsCard() bool {
	return m == PaymentMethodCreditCard || m == PaymentMethodDebitCard
}

// IsValid reports whether the method is supported by the gateway
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCreditCard, PaymentMethodDebitCard, PaymentMethodBankTransfer, PaymentMethodQR:
		return true
	}
	return false
}

// TransactionStatus represents the state of a payment attempt
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed"
	TransactionStatusRefunded  TransactionStatus = "refunded"
)

// Payment records one payment attempt against a booking. A booking may
// accumulate several rows across retries and refunds, but at most one
// completed row represents the live charge.
type Payment struct {
	ID                   string            `json:"id" db:"id"`
	BookingID            string            `json:"booking_id" db:"booking_id"`
	Amount               float64           `json:"amount" db:"amount"`
	CommissionAmount     float64           `json:"commission_amount" db:"commission_amount"`
	OperatorAmount       float64           `json:"operator_amount" db:"operator_amount"`
	Method               PaymentMethod     `json:"method" db:"method"`
	Status               TransactionStatus `json:"status" db:"status"`
	GatewayTransactionID *string           `json:"gateway_transaction_id,omitempty" db:"gateway_transaction_id"`
	CardLast4            *string           `json:"card_last4,omitempty" db:"card_last4"`
	BankName             *string           `json:"bank_name,omitempty" db:"bank_name"`
	WalletPhone          *string           `json:"wallet_phone,omitempty" db:"wallet_phone"`
	FailureReason        *string           `json:"failure_reason,omitempty" db:"failure_reason"`
	RefundedAt           *time.Time        `json:"refunded_at,omitempty" db:"refunded_at"`
	CreatedAt            time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time         `json:"updated_at" db:"updated_at"`
}

// CanBeRefunded reports whether the payment holds a refundable charge
func (p *Payment) CanBeRefunded() bool {
	return p.Status == TransactionStatusCompleted
}

// PaymentDetails carries the method-specific fields of a payment request.
// Modelled as explicit typed fields rather than a free-form map so the
// gateway can validate presence per method.
type PaymentDetails struct {
	CardNumber    string `json:"card_number,omitempty"`
	CardHolder    string `json:"card_holder,omitempty"`
	CVV           string `json:"cvv,omitempty"`
	ExpiryMonth   int    `json:"expiry_month,omitempty"`
	ExpiryYear    int    `json:"expiry_year,omitempty"`
	BankName      string `json:"bank_name,omitempty"`
	AccountNumber string `json:"account_number,omitempty"`
	AccountHolder string `json:"account_holder,omitempty"`
	WalletPhone   string `json:"wallet_phone,omitempty"`
}

// CardLast4 returns the last four digits of the card number, if present
func (d *PaymentDetails) CardLast4() *string {
	digits := strings.TrimSpace(d.CardNumber)
	if len(digits) < 4 {
		return nil
	}
	last4 := digits[len(digits)-4:]
	return &last4
}

// ProcessPaymentRequest represents the request to pay for a booking
type ProcessPaymentRequest struct {
	Method  string         `json:"method" binding:"required"`
	Details PaymentDetails `json:"details"`
}

// Validate validates the process payment request
func (r *ProcessPaymentRequest) Validate() error {
	if r.Method == "" {
		return errors.New("method is required")
	}

	return nil
}
