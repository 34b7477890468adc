package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/lawbid/lawbid_backend/internal/apperrors"
	"github.com/lawbid/lawbid_backend/internal/core/domain"
	portsrepo "github.com/lawbid/lawbid_backend/internal/core/ports/repositories"
	"github.com/lawbid/lawbid_backend/internal/core/ports/realtime"
	portssvc "github.com/lawbid/lawbid_backend/internal/core/ports/services"
	"github.com/lawbid/lawbid_backend/internal/dto"
	"github.com/lawbid/lawbid_backend/internal/middleware"
)

// requestService owns the request/bid aggregate operations.
type requestService struct {
	requestRepo portsrepo.RequestRepositoryFacade
	broadcaster realtime.Broadcaster
}

// NewRequestService creates a new RequestService.
func NewRequestService(requestRepo portsrepo.RequestRepositoryFacade, broadcaster realtime.Broadcaster) portssvc.RequestSvcFacade {
	return &requestService{
		requestRepo: requestRepo,
		broadcaster: broadcaster,
	}
}

var _ portssvc.RequestSvcFacade = (*requestService)(nil)

// publish fans an event out to the request's channel. Publish failures are
// logged and dropped: the mutation is already committed and fan-out is
// best effort.
func (s *requestService) publish(ctx context.Context, eventType domain.EventType, requestID string, payload map[string]any) {
	event := domain.Event{
		EventID:    uuid.NewString(),
		Type:       eventType,
		RequestID:  requestID,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
	if err := s.broadcaster.Publish(ctx, requestID, event); err != nil {
		middleware.GetLoggerFromCtx(ctx).Warn("Failed to publish event",
			slog.String("event_type", string(eventType)),
			slog.String("request_id", requestID),
			slog.String("error", err.Error()))
	}
}

// CreateRequest posts a new open request for the calling client.
func (s *requestService) CreateRequest(ctx context.Context, clientID string, req dto.CreateRequestRequest) (*domain.Request, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	budget := domain.BudgetRange{Min: req.BudgetMin, Max: req.BudgetMax}
	if err := budget.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	request := domain.Request{
		RequestID:   uuid.NewString(),
		ClientID:    clientID,
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Budget:      budget,
		Deadline:    req.Deadline,
		Urgency:     defaultString(req.Urgency, "medium"),
		Language:    defaultString(req.Language, "ar"),
		Status:      domain.RequestStatusOpen,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     clientID,
			LastUpdatedAt: now,
			LastUpdatedBy: clientID,
		},
	}

	if err := s.requestRepo.SaveRequest(ctx, request); err != nil {
		logger.Error("Failed to save request", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to save request: %w", err)
	}

	logger.Info("Request created", slog.String("request_id", request.RequestID))
	return &request, nil
}

// GetRequest returns a request with its bid list.
func (s *requestService) GetRequest(ctx context.Context, requestID string) (*domain.Request, error) {
	request, err := s.requestRepo.FindRequestByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	return request, nil
}

// ListRequests returns a paginated projection of requests.
func (s *requestService) ListRequests(ctx context.Context, params dto.ListRequestsParams) ([]domain.Request, error) {
	limit := params.Limit
	if limit <= 0 {
		limit = 20
	}
	filter := portsrepo.RequestListFilter{
		Status:   domain.RequestStatus(params.Status),
		Category: params.Category,
		ClientID: params.ClientID,
	}
	return s.requestRepo.ListRequests(ctx, filter, limit, params.Offset)
}

// SubmitBid appends a pending bid by the calling lawyer. The budget and open
// checks run here for a fast failure and again inside the repository's
// critical section, which is the authoritative one.
func (s *requestService) SubmitBid(ctx context.Context, requestID, lawyerID string, req dto.PlaceBidRequest) (*domain.Bid, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	request, err := s.requestRepo.FindRequestByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if err := request.ValidateBidAmount(req.Amount); err != nil {
		return nil, err
	}
	if err := request.CanAcceptBids(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	bid := domain.Bid{
		BidID:            uuid.NewString(),
		RequestID:        requestID,
		LawyerID:         lawyerID,
		Amount:           req.Amount,
		Proposal:         req.Proposal,
		TimeframeDays:    req.TimeframeDays,
		ProposedDeadline: req.ProposedDeadline,
		Status:           domain.BidStatusPending,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     lawyerID,
			LastUpdatedAt: now,
			LastUpdatedBy: lawyerID,
		},
	}

	updated, err := s.requestRepo.AddBid(ctx, requestID, bid)
	if err != nil {
		logger.Warn("Failed to add bid", slog.String("request_id", requestID), slog.String("error", err.Error()))
		return nil, err
	}

	saved, ok := updated.FindBid(bid.BidID)
	if !ok {
		return nil, fmt.Errorf("bid %s missing after save: %w", bid.BidID, apperrors.ErrNotFound)
	}

	logger.Info("Bid submitted", slog.String("request_id", requestID), slog.String("bid_id", bid.BidID))
	s.publish(ctx, domain.EventBidSubmitted, requestID, map[string]any{
		"bid": dto.ToBidResponse(updated, saved),
	})
	return saved, nil
}

// UpdateBid replaces the mutable fields of the lawyer's own bid.
func (s *requestService) UpdateBid(ctx context.Context, requestID, bidID, lawyerID string, req dto.PlaceBidRequest) (*domain.Bid, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	now := time.Now().UTC()
	updated, bid, err := s.requestRepo.UpdateBid(ctx, requestID, bidID, lawyerID, req.Amount, req.Proposal, req.TimeframeDays, req.ProposedDeadline, now)
	if err != nil {
		logger.Warn("Failed to update bid", slog.String("request_id", requestID), slog.String("bid_id", bidID), slog.String("error", err.Error()))
		return nil, err
	}

	logger.Info("Bid updated", slog.String("request_id", requestID), slog.String("bid_id", bidID))
	s.publish(ctx, domain.EventBidUpdated, requestID, map[string]any{
		"bid": dto.ToBidResponse(updated, bid),
	})
	return bid, nil
}

// AcceptBid selects the winning bid. The repository performs the transition
// atomically under the request lock; of N racing calls exactly one succeeds.
func (s *requestService) AcceptBid(ctx context.Context, requestID, bidID, clientID string) (*domain.Request, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	now := time.Now().UTC()
	updated, bid, err := s.requestRepo.AcceptBid(ctx, requestID, bidID, clientID, now)
	if err != nil {
		logger.Warn("Failed to accept bid", slog.String("request_id", requestID), slog.String("bid_id", bidID), slog.String("error", err.Error()))
		return nil, err
	}

	logger.Info("Bid accepted",
		slog.String("request_id", requestID),
		slog.String("bid_id", bidID),
		slog.String("lawyer_id", bid.LawyerID),
		slog.String("final_amount", updated.FinalAmount.String()))
	s.publish(ctx, domain.EventBidAccepted, requestID, map[string]any{
		"bid":         dto.ToBidResponse(updated, bid),
		"finalAmount": updated.FinalAmount,
	})
	return updated, nil
}

// CancelRequest withdraws a request before its payment is captured.
// Cancellation of a funded engagement must go through the refund path.
func (s *requestService) CancelRequest(ctx context.Context, requestID, clientID string) (*domain.Request, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	now := time.Now().UTC()
	updated, err := s.requestRepo.CancelRequest(ctx, requestID, clientID, now)
	if err != nil {
		logger.Warn("Failed to cancel request", slog.String("request_id", requestID), slog.String("error", err.Error()))
		return nil, err
	}

	logger.Info("Request cancelled", slog.String("request_id", requestID))
	s.publish(ctx, domain.EventRequestCancelled, requestID, nil)
	return updated, nil
}

func defaultString(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
