package services

import (
	"context"

	"github.com/lawbid/lawbid_backend/internal/core/domain"
	"github.com/lawbid/lawbid_backend/internal/dto"
)

// RequestSvcFacade exposes the request/bid aggregate operations.
type RequestSvcFacade interface {
	// CreateRequest posts a new open request for the calling client.
	CreateRequest(ctx context.Context, clientID string, req dto.CreateRequestRequest) (*domain.Request, error)

	// GetRequest returns a request with its bid list.
	GetRequest(ctx context.Context, requestID string) (*domain.Request, error)

	// ListRequests returns a paginated projection of requests.
	ListRequests(ctx context.Context, params dto.ListRequestsParams) ([]domain.Request, error)

	// SubmitBid appends a pending bid by the calling lawyer.
	SubmitBid(ctx context.Context, requestID, lawyerID string, req dto.PlaceBidRequest) (*domain.Bid, error)

	// UpdateBid replaces the mutable fields of the lawyer's own bid.
	UpdateBid(ctx context.Context, requestID, bidID, lawyerID string, req dto.PlaceBidRequest) (*domain.Bid, error)

	// AcceptBid selects the winning bid; exactly one acceptance can succeed
	// per request.
	AcceptBid(ctx context.Context, requestID, bidID, clientID string) (*domain.Request, error)

	// CancelRequest withdraws a request before its payment is captured.
	CancelRequest(ctx context.Context, requestID, clientID string) (*domain.Request, error)
}
