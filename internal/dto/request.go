package dto

import (
	"time"

	"github.com/lawbid/lawbid_backend/internal/core/domain"
	"github.com/shopspring/decimal"
)

// CreateRequestRequest is the payload for posting a new service request.
// Budget amounts are minor currency units. BudgetMin <= BudgetMax is enforced
// by the registered struct validation (see validation.go) and again by the
// domain on creation.
type CreateRequestRequest struct {
	Title       string          `json:"title" binding:"required,min=5"`
	Description string          `json:"description" binding:"required"`
	Category    string          `json:"category" binding:"required"`
	BudgetMin   decimal.Decimal `json:"budgetMin" binding:"required"`
	BudgetMax   decimal.Decimal `json:"budgetMax" binding:"required"`
	Deadline    time.Time       `json:"deadline" binding:"required"`
	Urgency     string          `json:"urgency" binding:"omitempty,oneof=low medium high"`
	Language    string          `json:"language" binding:"omitempty,oneof=ar en both"`
}

// ListRequestsParams are the optional filters and paging for listing requests.
type ListRequestsParams struct {
	Status   string `form:"status" binding:"omitempty,oneof=open pending_payment in_progress completed cancelled"`
	Category string `form:"category"`
	ClientID string `form:"clientID"`
	Limit    int    `form:"limit,default=20" binding:"omitempty,min=1,max=100"`
	Offset   int    `form:"offset,default=0" binding:"omitempty,min=0"`
}

// BudgetRangeResponse mirrors domain.BudgetRange for display.
type BudgetRangeResponse struct {
	Min decimal.Decimal `json:"min"`
	Max decimal.Decimal `json:"max"`
}

// RequestResponse is the read-only projection of a request.
type RequestResponse struct {
	RequestID        string              `json:"requestID"`
	ClientID         string              `json:"clientID"`
	Title            string              `json:"title"`
	Description      string              `json:"description"`
	Category         string              `json:"category"`
	Budget           BudgetRangeResponse `json:"budget"`
	Deadline         time.Time           `json:"deadline"`
	Urgency          string              `json:"urgency"`
	Language         string              `json:"language"`
	Status           string              `json:"status"`
	SelectedBidID    string              `json:"selectedBidID,omitempty"`
	SelectedLawyerID string              `json:"selectedLawyerID,omitempty"`
	FinalAmount      *decimal.Decimal    `json:"finalAmount,omitempty"`
	Bids             []BidResponse       `json:"bids,omitempty"`
	CreatedAt        time.Time           `json:"createdAt"`
}

// ToRequestResponse converts a domain.Request (with bids) to its projection.
func ToRequestResponse(r *domain.Request) RequestResponse {
	resp := RequestResponse{
		RequestID:        r.RequestID,
		ClientID:         r.ClientID,
		Title:            r.Title,
		Description:      r.Description,
		Category:         r.Category,
		Budget:           BudgetRangeResponse{Min: r.Budget.Min, Max: r.Budget.Max},
		Deadline:         r.Deadline,
		Urgency:          r.Urgency,
		Language:         r.Language,
		Status:           string(r.Status),
		SelectedBidID:    r.SelectedBidID,
		SelectedLawyerID: r.SelectedLawyerID,
		CreatedAt:        r.CreatedAt,
	}
	if !r.FinalAmount.IsZero() {
		amount := r.FinalAmount
		resp.FinalAmount = &amount
	}
	if len(r.Bids) > 0 {
		resp.Bids = ToBidResponses(r)
	}
	return resp
}

// ToRequestResponses converts a slice of requests (bids typically not loaded).
func ToRequestResponses(requests []domain.Request) []RequestResponse {
	responses := make([]RequestResponse, len(requests))
	for i := range requests {
		responses[i] = ToRequestResponse(&requests[i])
	}
	return responses
}
