package domain

import (
	"fmt"
	"time"

	"github.com/lawbid/lawbid_backend/internal/apperrors"
	"github.com/shopspring/decimal"
)

// TransactionStatus is the escrow ledger state of a captured payment.
// held is the only state settlement operates on; released/refunded/cancelled
// are terminal and a transaction is never re-opened.
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusHeld      TransactionStatus = "held"
	TransactionStatusReleased  TransactionStatus = "released"
	TransactionStatusRefunded  TransactionStatus = "refunded"
	TransactionStatusCancelled TransactionStatus = "cancelled"
)

// ErrInvalidTransactionState rejects settlement on anything but a held transaction.
var ErrInvalidTransactionState = fmt.Errorf("%w: transaction is not in a settleable state", apperrors.ErrConflict)

// FeeBreakdown is the three additive surcharges computed from the base amount,
// all in minor currency units.
type FeeBreakdown struct {
	Platform decimal.Decimal `json:"platform"`
	VAT      decimal.Decimal `json:"vat"`
	Payment  decimal.Decimal `json:"payment"`
}

// Total is the sum of the surcharges (without the base amount).
func (f FeeBreakdown) Total() decimal.Decimal {
	return f.Platform.Add(f.VAT).Add(f.Payment)
}

// Transaction is an escrow ledger entry: captured funds held by the platform
// between payment and release/refund. At most one non-terminal transaction
// exists per request at any time.
type Transaction struct {
	TransactionID string            `json:"transactionID"`
	RequestID     string            `json:"requestID"`
	ClientID      string            `json:"clientID"`
	LawyerID      string            `json:"lawyerID"`
	Amount        decimal.Decimal   `json:"amount"` // base amount, minor units
	Fees          FeeBreakdown      `json:"fees"`
	Status        TransactionStatus `json:"status"`
	PaymentMethod string            `json:"paymentMethod"`
	PaymentID     string            `json:"paymentID"` // external gateway charge reference
	Currency      string            `json:"currency"`
	EscrowRelease *time.Time        `json:"escrowReleaseDate,omitempty"`
	AuditFields
}

// TotalCharged is the full amount captured from the client:
// base + platform fee + VAT + payment fee.
func (t *Transaction) TotalCharged() decimal.Decimal {
	return t.Amount.Add(t.Fees.Total())
}

// Payout is the amount transferred to the lawyer on release: the base amount
// less the retained platform fee. VAT and the payment fee were consumed by
// the charge itself and never enter the payout.
func (t *Transaction) Payout() decimal.Decimal {
	return t.Amount.Sub(t.Fees.Platform)
}

// Validate enforces the ledger entry invariants.
func (t *Transaction) Validate() error {
	if !t.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if t.Fees.Platform.IsNegative() || t.Fees.VAT.IsNegative() || t.Fees.Payment.IsNegative() {
		return ErrInvalidAmount
	}
	if t.RequestID == "" || t.ClientID == "" || t.LawyerID == "" {
		return fmt.Errorf("%w: transaction is missing a party reference", apperrors.ErrValidation)
	}
	if t.PaymentID == "" {
		return fmt.Errorf("%w: transaction has no external payment reference", apperrors.ErrValidation)
	}
	return nil
}

// CanSettle gates release and refund on the held state.
func (t *Transaction) CanSettle() error {
	if t.Status != TransactionStatusHeld {
		return ErrInvalidTransactionState
	}
	return nil
}
