package dto

import (
	"time"

	"github.com/lawbid/lawbid_backend/internal/core/domain"
	"github.com/shopspring/decimal"
)

// PlaceBidRequest is the payload for submitting or updating a bid.
type PlaceBidRequest struct {
	Amount           decimal.Decimal `json:"amount" binding:"required"`
	Proposal         string          `json:"proposal" binding:"required"`
	TimeframeDays    int             `json:"timeframeDays" binding:"required,min=1"`
	ProposedDeadline time.Time       `json:"proposedDeadline" binding:"required"`
}

// BidResponse is the read-only projection of a bid. Status is the derived
// status: losing bids read as rejected once another bid was accepted.
type BidResponse struct {
	BidID            string          `json:"bidID"`
	RequestID        string          `json:"requestID"`
	LawyerID         string          `json:"lawyerID"`
	Amount           decimal.Decimal `json:"amount"`
	Proposal         string          `json:"proposal"`
	TimeframeDays    int             `json:"timeframeDays"`
	ProposedDeadline time.Time       `json:"proposedDeadline"`
	Status           string          `json:"status"`
	CreatedAt        time.Time       `json:"createdAt"`
}

// ToBidResponse converts one bid in the context of its request.
func ToBidResponse(r *domain.Request, b *domain.Bid) BidResponse {
	return BidResponse{
		BidID:            b.BidID,
		RequestID:        b.RequestID,
		LawyerID:         b.LawyerID,
		Amount:           b.Amount,
		Proposal:         b.Proposal,
		TimeframeDays:    b.TimeframeDays,
		ProposedDeadline: b.ProposedDeadline,
		Status:           string(b.EffectiveStatus(r)),
		CreatedAt:        b.CreatedAt,
	}
}

// ToBidResponses converts all bids of a request.
func ToBidResponses(r *domain.Request) []BidResponse {
	responses := make([]BidResponse, len(r.Bids))
	for i := range r.Bids {
		responses[i] = ToBidResponse(r, &r.Bids[i])
	}
	return responses
}
