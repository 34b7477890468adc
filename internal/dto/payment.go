package dto

import (
	"time"

	"github.com/lawbid/lawbid_backend/internal/core/domain"
	"github.com/shopspring/decimal"
)

// CreatePaymentIntentRequest initiates a charge for an accepted request.
type CreatePaymentIntentRequest struct {
	RequestID string `json:"requestID" binding:"required,uuid"`
}

// CapturePaymentRequest confirms a charge after the gateway reports success.
type CapturePaymentRequest struct {
	RequestID string `json:"requestID" binding:"required,uuid"`
	PaymentID string `json:"paymentID" binding:"required"`
}

// RefundRequest reverses a held transaction.
type RefundRequest struct {
	Reason string `json:"reason"`
}

// ChargeBreakdownResponse itemizes the total charge.
type ChargeBreakdownResponse struct {
	BaseAmount  decimal.Decimal `json:"baseAmount"`
	PlatformFee decimal.Decimal `json:"platformFee"`
	VAT         decimal.Decimal `json:"vat"`
	PaymentFee  decimal.Decimal `json:"paymentFee"`
	Total       decimal.Decimal `json:"total"`
}

// PaymentIntentResponse is returned from intent creation; the client secret
// is handed to the payment page to complete the charge.
type PaymentIntentResponse struct {
	PaymentID    string                  `json:"paymentID"`
	ClientSecret string                  `json:"clientSecret"`
	Currency     string                  `json:"currency"`
	Breakdown    ChargeBreakdownResponse `json:"breakdown"`
}

// TransactionResponse is the read-only projection of a ledger entry.
type TransactionResponse struct {
	TransactionID     string          `json:"transactionID"`
	RequestID         string          `json:"requestID"`
	ClientID          string          `json:"clientID"`
	LawyerID          string          `json:"lawyerID"`
	Amount            decimal.Decimal `json:"amount"`
	PlatformFee       decimal.Decimal `json:"platformFee"`
	VAT               decimal.Decimal `json:"vat"`
	PaymentFee        decimal.Decimal `json:"paymentFee"`
	TotalCharged      decimal.Decimal `json:"totalCharged"`
	Status            string          `json:"status"`
	Currency          string          `json:"currency"`
	PaymentID         string          `json:"paymentID"`
	EscrowReleaseDate *time.Time      `json:"escrowReleaseDate,omitempty"`
	CreatedAt         time.Time       `json:"createdAt"`
}

// ToTransactionResponse converts a domain.Transaction to its projection.
func ToTransactionResponse(t *domain.Transaction) TransactionResponse {
	return TransactionResponse{
		TransactionID:     t.TransactionID,
		RequestID:         t.RequestID,
		ClientID:          t.ClientID,
		LawyerID:          t.LawyerID,
		Amount:            t.Amount,
		PlatformFee:       t.Fees.Platform,
		VAT:               t.Fees.VAT,
		PaymentFee:        t.Fees.Payment,
		TotalCharged:      t.TotalCharged(),
		Status:            string(t.Status),
		Currency:          t.Currency,
		PaymentID:         t.PaymentID,
		EscrowReleaseDate: t.EscrowRelease,
		CreatedAt:         t.CreatedAt,
	}
}
