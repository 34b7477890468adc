package pgsql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/lawbid/lawbid_backend/internal/apperrors"
	"github.com/lawbid/lawbid_backend/internal/core/domain"
	portsrepo "github.com/lawbid/lawbid_backend/internal/core/ports/repositories"
)

// PgxRequestRepository persists requests and their embedded bids. All write
// operations on an existing request run inside one DB transaction that takes
// SELECT ... FOR UPDATE on the request row, making each request a
// single-writer critical section. The domain rules re-run under that lock,
// which is what makes exactly-one-acceptance hold across processes.
type PgxRequestRepository struct {
	BaseRepository
}

// newPgxRequestRepository creates a new repository for request and bid data.
func newPgxRequestRepository(pool *pgxpool.Pool) portsrepo.RequestRepositoryFacade {
	return &PgxRequestRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.RequestRepositoryFacade = (*PgxRequestRepository)(nil)

const requestColumns = `request_id, client_id, title, description, category, budget_min, budget_max,
	deadline, urgency, language, status, selected_bid_id, selected_lawyer_id, final_amount,
	created_at, created_by, last_updated_at, last_updated_by`

const bidColumns = `bid_id, request_id, lawyer_id, amount, proposal, timeframe_days, proposed_deadline,
	status, created_at, created_by, last_updated_at, last_updated_by`

type requestQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func scanRequest(row pgx.Row) (*domain.Request, error) {
	var (
		r           domain.Request
		selectedBid sql.NullString
		selectedLaw sql.NullString
		finalAmount decimal.NullDecimal
	)
	err := row.Scan(
		&r.RequestID, &r.ClientID, &r.Title, &r.Description, &r.Category,
		&r.Budget.Min, &r.Budget.Max, &r.Deadline, &r.Urgency, &r.Language,
		&r.Status, &selectedBid, &selectedLaw, &finalAmount,
		&r.CreatedAt, &r.CreatedBy, &r.LastUpdatedAt, &r.LastUpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	if selectedBid.Valid {
		r.SelectedBidID = selectedBid.String
	}
	if selectedLaw.Valid {
		r.SelectedLawyerID = selectedLaw.String
	}
	if finalAmount.Valid {
		r.FinalAmount = finalAmount.Decimal
	}
	return &r, nil
}

func (r *PgxRequestRepository) loadBids(ctx context.Context, q requestQuerier, requestID string) ([]domain.Bid, error) {
	rows, err := q.Query(ctx, `SELECT `+bidColumns+` FROM bids WHERE request_id = $1 ORDER BY created_at, bid_id`, requestID)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query bids for request "+requestID, err)
	}
	defer rows.Close()

	var bids []domain.Bid
	for rows.Next() {
		var b domain.Bid
		if err := rows.Scan(
			&b.BidID, &b.RequestID, &b.LawyerID, &b.Amount, &b.Proposal,
			&b.TimeframeDays, &b.ProposedDeadline, &b.Status,
			&b.CreatedAt, &b.CreatedBy, &b.LastUpdatedAt, &b.LastUpdatedBy,
		); err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan bid row", err)
		}
		bids = append(bids, b)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating bid rows", err)
	}
	return bids, nil
}

// findRequest loads the request header (optionally locked) plus its bids.
func (r *PgxRequestRepository) findRequest(ctx context.Context, q requestQuerier, requestID string, forUpdate bool) (*domain.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM requests WHERE request_id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	request, err := scanRequest(q.QueryRow(ctx, query, requestID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("request %s: %w", requestID, apperrors.ErrNotFound)
		}
		return nil, apperrors.NewAppError(500, "failed to find request "+requestID, err)
	}
	bids, err := r.loadBids(ctx, q, requestID)
	if err != nil {
		return nil, err
	}
	request.Bids = bids
	return request, nil
}

// SaveRequest persists a newly created request.
func (r *PgxRequestRepository) SaveRequest(ctx context.Context, request domain.Request) error {
	query := `
		INSERT INTO requests (
			request_id, client_id, title, description, category, budget_min, budget_max,
			deadline, urgency, language, status,
			created_at, created_by, last_updated_at, last_updated_by
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15);
	`
	_, err := r.Pool.Exec(ctx, query,
		request.RequestID, request.ClientID, request.Title, request.Description, request.Category,
		request.Budget.Min, request.Budget.Max, request.Deadline, request.Urgency, request.Language,
		request.Status, request.CreatedAt, request.CreatedBy, request.LastUpdatedAt, request.LastUpdatedBy,
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to insert request "+request.RequestID, err)
	}
	return nil
}

// FindRequestByID retrieves a request with its full bid list.
func (r *PgxRequestRepository) FindRequestByID(ctx context.Context, requestID string) (*domain.Request, error) {
	return r.findRequest(ctx, r.Pool, requestID, false)
}

// ListRequests retrieves a paginated list of requests (bids not loaded).
func (r *PgxRequestRepository) ListRequests(ctx context.Context, filter portsrepo.RequestListFilter, limit int, offset int) ([]domain.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM requests WHERE 1=1`
	args := []any{}
	argPos := 1

	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argPos)
		args = append(args, filter.Status)
		argPos++
	}
	if filter.Category != "" {
		query += fmt.Sprintf(" AND category = $%d", argPos)
		args = append(args, filter.Category)
		argPos++
	}
	if filter.ClientID != "" {
		query += fmt.Sprintf(" AND client_id = $%d", argPos)
		args = append(args, filter.ClientID)
		argPos++
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC, request_id LIMIT $%d OFFSET $%d", argPos, argPos+1)
	args = append(args, limit, offset)

	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to list requests", err)
	}
	defer rows.Close()

	var requests []domain.Request
	for rows.Next() {
		request, err := scanRequest(rows)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan request row", err)
		}
		requests = append(requests, *request)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating request rows", err)
	}
	return requests, nil
}

// touchRequest bumps the request audit columns inside the transaction.
func (r *PgxRequestRepository) touchRequest(ctx context.Context, tx pgx.Tx, requestID, userID string, now time.Time) error {
	_, err := tx.Exec(ctx,
		`UPDATE requests SET last_updated_at = $2, last_updated_by = $3 WHERE request_id = $1`,
		requestID, now, userID,
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to touch request "+requestID, err)
	}
	return nil
}

// AddBid appends a pending bid. The open/budget checks re-run on the locked
// row; racing submissions against a just-accepted request fail here with
// domain.ErrRequestNotOpen no matter what the earlier unlocked read saw.
func (r *PgxRequestRepository) AddBid(ctx context.Context, requestID string, bid domain.Bid) (*domain.Request, error) {
	tx, err := r.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer r.Rollback(ctx, tx)

	request, err := r.findRequest(ctx, tx, requestID, true)
	if err != nil {
		return nil, err
	}
	if err := request.AppendBid(bid); err != nil {
		return nil, err
	}

	query := `
		INSERT INTO bids (
			bid_id, request_id, lawyer_id, amount, proposal, timeframe_days, proposed_deadline,
			status, created_at, created_by, last_updated_at, last_updated_by
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12);
	`
	_, err = tx.Exec(ctx, query,
		bid.BidID, requestID, bid.LawyerID, bid.Amount, bid.Proposal, bid.TimeframeDays,
		bid.ProposedDeadline, domain.BidStatusPending,
		bid.CreatedAt, bid.CreatedBy, bid.LastUpdatedAt, bid.LastUpdatedBy,
	)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to insert bid "+bid.BidID, err)
	}

	if err := r.touchRequest(ctx, tx, requestID, bid.LawyerID, bid.LastUpdatedAt); err != nil {
		return nil, err
	}
	if err := r.Commit(ctx, tx); err != nil {
		return nil, err
	}
	return request, nil
}

// UpdateBid replaces the mutable fields of the lawyer's own bid under the
// request lock.
func (r *PgxRequestRepository) UpdateBid(ctx context.Context, requestID, bidID, lawyerID string, amount decimal.Decimal, proposal string, timeframeDays int, proposedDeadline time.Time, now time.Time) (*domain.Request, *domain.Bid, error) {
	tx, err := r.Begin(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer r.Rollback(ctx, tx)

	request, err := r.findRequest(ctx, tx, requestID, true)
	if err != nil {
		return nil, nil, err
	}
	bid, err := request.ReplaceBid(bidID, lawyerID, amount, proposal, timeframeDays, proposedDeadline, now)
	if err != nil {
		return nil, nil, err
	}

	query := `
		UPDATE bids
		SET amount = $2, proposal = $3, timeframe_days = $4, proposed_deadline = $5,
			last_updated_at = $6, last_updated_by = $7
		WHERE bid_id = $1;
	`
	_, err = tx.Exec(ctx, query, bidID, bid.Amount, bid.Proposal, bid.TimeframeDays, bid.ProposedDeadline, now, lawyerID)
	if err != nil {
		return nil, nil, apperrors.NewAppError(500, "failed to update bid "+bidID, err)
	}

	if err := r.Commit(ctx, tx); err != nil {
		return nil, nil, err
	}
	return request, bid, nil
}

// AcceptBid atomically selects the winning bid and moves the request to
// pending_payment. The status precondition is checked on the locked row, so
// of N racing acceptances exactly one commits.
func (r *PgxRequestRepository) AcceptBid(ctx context.Context, requestID, bidID, clientID string, now time.Time) (*domain.Request, *domain.Bid, error) {
	tx, err := r.Begin(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer r.Rollback(ctx, tx)

	request, err := r.findRequest(ctx, tx, requestID, true)
	if err != nil {
		return nil, nil, err
	}
	bid, err := request.Accept(bidID, clientID, now)
	if err != nil {
		return nil, nil, err
	}

	query := `
		UPDATE requests
		SET status = $2, selected_bid_id = $3, selected_lawyer_id = $4, final_amount = $5,
			deadline = $6, last_updated_at = $7, last_updated_by = $8
		WHERE request_id = $1;
	`
	_, err = tx.Exec(ctx, query,
		requestID, request.Status, request.SelectedBidID, request.SelectedLawyerID,
		request.FinalAmount, request.Deadline, now, clientID,
	)
	if err != nil {
		return nil, nil, apperrors.NewAppError(500, "failed to update request "+requestID, err)
	}

	_, err = tx.Exec(ctx,
		`UPDATE bids SET status = $2, last_updated_at = $3, last_updated_by = $4 WHERE bid_id = $1`,
		bidID, domain.BidStatusAccepted, now, clientID,
	)
	if err != nil {
		return nil, nil, apperrors.NewAppError(500, "failed to mark bid accepted "+bidID, err)
	}

	if err := r.Commit(ctx, tx); err != nil {
		return nil, nil, err
	}
	return request, bid, nil
}

// CancelRequest soft-cancels an uncaptured request owned by clientID. The
// row lock serializes this against a racing capture: whichever commits first
// wins and the other fails its status precondition.
func (r *PgxRequestRepository) CancelRequest(ctx context.Context, requestID, clientID string, now time.Time) (*domain.Request, error) {
	tx, err := r.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer r.Rollback(ctx, tx)

	request, err := r.findRequest(ctx, tx, requestID, true)
	if err != nil {
		return nil, err
	}
	if err := request.Cancel(clientID, now); err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx,
		`UPDATE requests SET status = $2, last_updated_at = $3, last_updated_by = $4 WHERE request_id = $1`,
		requestID, request.Status, now, clientID,
	)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to cancel request "+requestID, err)
	}

	if err := r.Commit(ctx, tx); err != nil {
		return nil, err
	}
	return request, nil
}
