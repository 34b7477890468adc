package services

import (
	"context"

	"github.com/lawbid/lawbid_backend/internal/core/domain"
	"github.com/lawbid/lawbid_backend/internal/dto"
)

// SettlementSvcFacade drives the cross-aggregate state machine:
// accept -> capture -> release/refund.
type SettlementSvcFacade interface {
	// CreatePaymentIntent computes the fee breakdown for the accepted bid and
	// initiates a gateway charge for the total. No local state changes.
	CreatePaymentIntent(ctx context.Context, requestID, clientID string) (*dto.PaymentIntentResponse, error)

	// CapturePayment verifies the charge with the gateway and, only on a
	// confirmed success for the exact total, records the held transaction and
	// moves the request to in_progress.
	CapturePayment(ctx context.Context, requestID, clientID, paymentID string) (*domain.Transaction, error)

	// GetTransaction returns a ledger entry projection.
	GetTransaction(ctx context.Context, transactionID string) (*domain.Transaction, error)

	// ListTransactionsByRequest returns the ledger entries recorded for one
	// request, oldest first.
	ListTransactionsByRequest(ctx context.Context, requestID string) ([]domain.Transaction, error)

	// ReleaseEscrow pays the lawyer (amount minus platform fee) and completes
	// the request. Only the paying client or an admin may release. On gateway
	// failure the transaction stays held for retry.
	ReleaseEscrow(ctx context.Context, transactionID, callerID, callerRole string) (*domain.Transaction, error)

	// Refund reverses the original charge and cancels the request. On gateway
	// failure the transaction stays held for retry.
	Refund(ctx context.Context, transactionID, callerID, reason string) (*domain.Transaction, error)
}
