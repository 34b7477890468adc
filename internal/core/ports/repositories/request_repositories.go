package repositories

import (
	"context"
	"time"

	"github.com/lawbid/lawbid_backend/internal/core/domain"
	"github.com/shopspring/decimal"
)

// RequestListFilter narrows ListRequests. Zero values mean "no filter".
type RequestListFilter struct {
	Status   domain.RequestStatus
	Category string
	ClientID string
}

// RequestReader defines read operations for requests and their bids.
type RequestReader interface {
	// FindRequestByID retrieves a request with its full bid list.
	FindRequestByID(ctx context.Context, requestID string) (*domain.Request, error)

	// ListRequests retrieves a paginated list of requests (bids not loaded).
	ListRequests(ctx context.Context, filter RequestListFilter, limit int, offset int) ([]domain.Request, error)
}

// RequestWriter defines write operations for requests. Every method that
// mutates an existing request runs as a single-writer critical section keyed
// by requestID: implementations take a row lock on the request, re-check the
// status preconditions under that lock via the domain rules, and commit
// atomically. Domain rule violations surface as the domain sentinel errors.
type RequestWriter interface {
	// SaveRequest persists a newly created request.
	SaveRequest(ctx context.Context, request domain.Request) error

	// AddBid appends a pending bid after re-checking, under the request lock,
	// that the request is open and the amount is within budget.
	AddBid(ctx context.Context, requestID string, bid domain.Bid) (*domain.Request, error)

	// UpdateBid replaces the mutable fields of the lawyer's own bid.
	UpdateBid(ctx context.Context, requestID, bidID, lawyerID string, amount decimal.Decimal, proposal string, timeframeDays int, proposedDeadline time.Time, now time.Time) (*domain.Request, *domain.Bid, error)

	// AcceptBid atomically selects the winning bid and moves the request to
	// pending_payment. Exactly one of N racing calls succeeds; the rest get
	// domain.ErrRequestNotOpen.
	AcceptBid(ctx context.Context, requestID, bidID, clientID string, now time.Time) (*domain.Request, *domain.Bid, error)

	// CancelRequest soft-cancels an uncaptured request owned by clientID.
	CancelRequest(ctx context.Context, requestID, clientID string, now time.Time) (*domain.Request, error)
}

// RequestRepositoryFacade combines all request repository interfaces.
type RequestRepositoryFacade interface {
	RequestReader
	RequestWriter
}
