package repositories

import (
	"context"
	"time"

	"github.com/lawbid/lawbid_backend/internal/core/domain"
)

// TransactionReader defines read operations for escrow ledger entries.
type TransactionReader interface {
	// FindTransactionByID retrieves a single ledger entry.
	FindTransactionByID(ctx context.Context, transactionID string) (*domain.Transaction, error)

	// FindTransactionsByRequestID lists all ledger entries for a request,
	// oldest first.
	FindTransactionsByRequestID(ctx context.Context, requestID string) ([]domain.Transaction, error)
}

// TransactionWriter defines the settlement state transitions. Each method is
// a single atomic unit over the transaction and its request; the request row
// is locked for the duration so settlement serializes with bid mutations.
type TransactionWriter interface {
	// SaveCaptured records a confirmed charge: inserts the held transaction
	// and moves the request from pending_payment to in_progress in one DB
	// transaction. Fails with domain.ErrRequestNotOpen-style conflicts if the
	// request is not awaiting payment, and with apperrors.ErrDuplicate if an
	// active transaction already exists for the request.
	SaveCaptured(ctx context.Context, txn domain.Transaction) error

	// MarkReleased flips held -> released (setting the release date) and the
	// request to completed. A transaction that is not held surfaces
	// domain.ErrInvalidTransactionState; a lost conditional update surfaces
	// domain.ErrConcurrentModification.
	MarkReleased(ctx context.Context, transactionID string, releasedAt time.Time, updatedBy string) (*domain.Transaction, error)

	// MarkRefunded flips held -> refunded and the request to cancelled.
	MarkRefunded(ctx context.Context, transactionID string, now time.Time, updatedBy string) (*domain.Transaction, error)
}

// TransactionRepositoryFacade combines all transaction repository interfaces.
type TransactionRepositoryFacade interface {
	TransactionReader
	TransactionWriter
}
