package pgsql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lawbid/lawbid_backend/internal/apperrors"
	"github.com/lawbid/lawbid_backend/internal/core/domain"
	portsrepo "github.com/lawbid/lawbid_backend/internal/core/ports/repositories"
)

// PgxTransactionRepository persists escrow ledger entries. Settlement
// transitions lock the owning request row first so they serialize with bid
// mutations on the same request, and flip the transaction itself with a
// conditional UPDATE on the held status.
type PgxTransactionRepository struct {
	BaseRepository
}

// newPgxTransactionRepository creates a new repository for escrow transactions.
func newPgxTransactionRepository(pool *pgxpool.Pool) portsrepo.TransactionRepositoryFacade {
	return &PgxTransactionRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.TransactionRepositoryFacade = (*PgxTransactionRepository)(nil)

const transactionColumns = `transaction_id, request_id, client_id, lawyer_id, amount,
	platform_fee, vat_fee, payment_fee, status, payment_method, payment_id, currency,
	escrow_release_date, created_at, created_by, last_updated_at, last_updated_by`

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var t domain.Transaction
	err := row.Scan(
		&t.TransactionID, &t.RequestID, &t.ClientID, &t.LawyerID, &t.Amount,
		&t.Fees.Platform, &t.Fees.VAT, &t.Fees.Payment, &t.Status,
		&t.PaymentMethod, &t.PaymentID, &t.Currency, &t.EscrowRelease,
		&t.CreatedAt, &t.CreatedBy, &t.LastUpdatedAt, &t.LastUpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// FindTransactionByID retrieves a single ledger entry.
func (r *PgxTransactionRepository) FindTransactionByID(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	row := r.Pool.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE transaction_id = $1`, transactionID)
	txn, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("transaction %s: %w", transactionID, apperrors.ErrNotFound)
		}
		return nil, apperrors.NewAppError(500, "failed to find transaction "+transactionID, err)
	}
	return txn, nil
}

// FindTransactionsByRequestID lists all ledger entries for a request.
func (r *PgxTransactionRepository) FindTransactionsByRequestID(ctx context.Context, requestID string) ([]domain.Transaction, error) {
	rows, err := r.Pool.Query(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE request_id = $1 ORDER BY created_at`, requestID)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query transactions for request "+requestID, err)
	}
	defer rows.Close()

	var txns []domain.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan transaction row", err)
		}
		txns = append(txns, *txn)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating transaction rows", err)
	}
	return txns, nil
}

// SaveCaptured records a confirmed charge: the held transaction row and the
// request's pending_payment -> in_progress transition commit together. The
// request row is locked first; a partial unique index on non-terminal
// transactions backstops the one-active-transaction-per-request invariant.
func (r *PgxTransactionRepository) SaveCaptured(ctx context.Context, txn domain.Transaction) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	var status domain.RequestStatus
	err = tx.QueryRow(ctx, `SELECT status FROM requests WHERE request_id = $1 FOR UPDATE`, txn.RequestID).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("request %s: %w", txn.RequestID, apperrors.ErrNotFound)
		}
		return apperrors.NewAppError(500, "failed to lock request "+txn.RequestID, err)
	}
	if status != domain.RequestStatusPendingPayment {
		return fmt.Errorf("%w: request %s is not awaiting payment (status=%s)", apperrors.ErrConflict, txn.RequestID, status)
	}

	query := `
		INSERT INTO transactions (
			transaction_id, request_id, client_id, lawyer_id, amount,
			platform_fee, vat_fee, payment_fee, status, payment_method, payment_id, currency,
			created_at, created_by, last_updated_at, last_updated_by
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16);
	`
	_, err = tx.Exec(ctx, query,
		txn.TransactionID, txn.RequestID, txn.ClientID, txn.LawyerID, txn.Amount,
		txn.Fees.Platform, txn.Fees.VAT, txn.Fees.Payment, txn.Status,
		txn.PaymentMethod, txn.PaymentID, txn.Currency,
		txn.CreatedAt, txn.CreatedBy, txn.LastUpdatedAt, txn.LastUpdatedBy,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			return fmt.Errorf("%w: request %s already has an active transaction", apperrors.ErrDuplicate, txn.RequestID)
		}
		return apperrors.NewAppError(500, "failed to insert transaction "+txn.TransactionID, err)
	}

	_, err = tx.Exec(ctx,
		`UPDATE requests SET status = $2, last_updated_at = $3, last_updated_by = $4 WHERE request_id = $1`,
		txn.RequestID, domain.RequestStatusInProgress, txn.LastUpdatedAt, txn.LastUpdatedBy,
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to advance request "+txn.RequestID, err)
	}

	return r.Commit(ctx, tx)
}

// settle flips held -> terminal for one transaction and moves its request to
// the given status inside one DB transaction.
func (r *PgxTransactionRepository) settle(ctx context.Context, transactionID string, toStatus domain.TransactionStatus, requestStatus domain.RequestStatus, releasedAt *time.Time, now time.Time, updatedBy string) (*domain.Transaction, error) {
	tx, err := r.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer r.Rollback(ctx, tx)

	// Lock the owning request first so settlement serializes with any other
	// operation on the same request.
	var requestID string
	err = tx.QueryRow(ctx, `SELECT request_id FROM transactions WHERE transaction_id = $1`, transactionID).Scan(&requestID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("transaction %s: %w", transactionID, apperrors.ErrNotFound)
		}
		return nil, apperrors.NewAppError(500, "failed to resolve transaction "+transactionID, err)
	}
	if _, err := tx.Exec(ctx, `SELECT 1 FROM requests WHERE request_id = $1 FOR UPDATE`, requestID); err != nil {
		return nil, apperrors.NewAppError(500, "failed to lock request "+requestID, err)
	}

	tag, err := tx.Exec(ctx,
		`UPDATE transactions
		 SET status = $2, escrow_release_date = $3, last_updated_at = $4, last_updated_by = $5
		 WHERE transaction_id = $1 AND status = $6`,
		transactionID, toStatus, releasedAt, now, updatedBy, domain.TransactionStatusHeld,
	)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to settle transaction "+transactionID, err)
	}
	if tag.RowsAffected() == 0 {
		// Distinguish a terminal transaction from a lost race on a held one.
		var current domain.TransactionStatus
		if err := tx.QueryRow(ctx, `SELECT status FROM transactions WHERE transaction_id = $1`, transactionID).Scan(&current); err != nil {
			return nil, apperrors.NewAppError(500, "failed to re-read transaction "+transactionID, err)
		}
		if current == domain.TransactionStatusHeld {
			return nil, domain.ErrConcurrentModification
		}
		return nil, fmt.Errorf("transaction %s (status=%s): %w", transactionID, current, domain.ErrInvalidTransactionState)
	}

	_, err = tx.Exec(ctx,
		`UPDATE requests SET status = $2, last_updated_at = $3, last_updated_by = $4 WHERE request_id = $1`,
		requestID, requestStatus, now, updatedBy,
	)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to advance request "+requestID, err)
	}

	txn, err := scanTransaction(tx.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE transaction_id = $1`, transactionID))
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to re-read transaction "+transactionID, err)
	}

	if err := r.Commit(ctx, tx); err != nil {
		return nil, err
	}
	return txn, nil
}

// MarkReleased flips held -> released and completes the request.
func (r *PgxTransactionRepository) MarkReleased(ctx context.Context, transactionID string, releasedAt time.Time, updatedBy string) (*domain.Transaction, error) {
	return r.settle(ctx, transactionID, domain.TransactionStatusReleased, domain.RequestStatusCompleted, &releasedAt, releasedAt, updatedBy)
}

// MarkRefunded flips held -> refunded and cancels the request.
func (r *PgxTransactionRepository) MarkRefunded(ctx context.Context, transactionID string, now time.Time, updatedBy string) (*domain.Transaction, error) {
	return r.settle(ctx, transactionID, domain.TransactionStatusRefunded, domain.RequestStatusCancelled, nil, now, updatedBy)
}
