package domain

import (
	"fmt"
	"time"

	"github.com/lawbid/lawbid_backend/internal/apperrors"
	"github.com/shopspring/decimal"
)

// RequestStatus indicates where a service request is in its lifecycle.
// Transitions only move forward: open -> pending_payment -> in_progress -> completed,
// with cancelled reachable by client withdrawal before capture or via refund.
type RequestStatus string

const (
	RequestStatusOpen           RequestStatus = "open"
	RequestStatusPendingPayment RequestStatus = "pending_payment"
	RequestStatusInProgress     RequestStatus = "in_progress"
	RequestStatusCompleted      RequestStatus = "completed"
	RequestStatusCancelled      RequestStatus = "cancelled"
)

// BidStatus is the stored status of a bid. Losing bids are NOT stored as
// rejected; rejection is derived at read time, see Bid.EffectiveStatus.
type BidStatus string

const (
	BidStatusPending  BidStatus = "pending"
	BidStatusAccepted BidStatus = "accepted"
	BidStatusRejected BidStatus = "rejected"
)

// Domain rule errors, joined onto the apperrors taxonomy so handlers can map
// them to a status with a single errors.Is on the kind.
var (
	ErrRequestNotOpen  = fmt.Errorf("%w: request is not open", apperrors.ErrConflict)
	ErrBudgetExceeded  = fmt.Errorf("%w: bid amount exceeds request budget", apperrors.ErrValidation)
	ErrBudgetInverted  = fmt.Errorf("%w: minimum budget cannot be greater than maximum budget", apperrors.ErrValidation)
	ErrInvalidAmount   = fmt.Errorf("%w: amount must be a positive whole number of minor units", apperrors.ErrValidation)
	ErrBidNotFound     = fmt.Errorf("%w: bid not found", apperrors.ErrNotFound)
	ErrNotRequestOwner = fmt.Errorf("%w: caller does not own this request", apperrors.ErrForbidden)
	ErrNotBidOwner     = fmt.Errorf("%w: caller did not create this bid", apperrors.ErrForbidden)
	// ErrConcurrentModification surfaces a lost conditional update; the caller
	// may retry once after re-reading current state.
	ErrConcurrentModification = fmt.Errorf("%w: concurrent modification detected", apperrors.ErrConflict)
)

// BudgetRange is the client's acceptable price band in minor currency units.
// Immutable after creation.
type BudgetRange struct {
	Min decimal.Decimal `json:"min"`
	Max decimal.Decimal `json:"max"`
}

// Validate enforces min <= max and positive bounds.
func (b BudgetRange) Validate() error {
	if !b.Min.IsPositive() || !b.Max.IsPositive() {
		return ErrInvalidAmount
	}
	if b.Min.GreaterThan(b.Max) {
		return ErrBudgetInverted
	}
	return nil
}

// Bid is a lawyer's priced, timed proposal against an open request. Bids are
// owned by exactly one request and are not independently addressable.
type Bid struct {
	BidID            string          `json:"bidID"`
	RequestID        string          `json:"requestID"`
	LawyerID         string          `json:"lawyerID"`
	Amount           decimal.Decimal `json:"amount"` // minor currency units
	Proposal         string          `json:"proposal"`
	TimeframeDays    int             `json:"timeframeDays"`
	ProposedDeadline time.Time       `json:"proposedDeadline"`
	Status           BidStatus       `json:"status"`
	AuditFields
}

// EffectiveStatus derives the externally visible status of the bid. Once a
// request leaves open with a different bid selected, all other bids read as
// rejected without a stored transition per loser.
func (b *Bid) EffectiveStatus(r *Request) BidStatus {
	if b.Status == BidStatusAccepted {
		return BidStatusAccepted
	}
	if r.Status != RequestStatusOpen && r.SelectedBidID != "" && r.SelectedBidID != b.BidID {
		return BidStatusRejected
	}
	return b.Status
}

// Request is the aggregate root: a client's posted need with a budget,
// deadline and an append-mostly ordered list of bids.
type Request struct {
	RequestID   string        `json:"requestID"`
	ClientID    string        `json:"clientID"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Category    string        `json:"category"` // opaque to the engine
	Budget      BudgetRange   `json:"budget"`
	Deadline    time.Time     `json:"deadline"`
	Urgency     string        `json:"urgency"`
	Language    string        `json:"language"`
	Status      RequestStatus `json:"status"`

	// Set only by acceptance.
	SelectedBidID    string          `json:"selectedBidID,omitempty"`
	SelectedLawyerID string          `json:"selectedLawyerID,omitempty"`
	FinalAmount      decimal.Decimal `json:"finalAmount"`

	Bids []Bid `json:"bids"`
	AuditFields
}

// FindBid returns the bid with the given id, if present.
func (r *Request) FindBid(bidID string) (*Bid, bool) {
	for i := range r.Bids {
		if r.Bids[i].BidID == bidID {
			return &r.Bids[i], true
		}
	}
	return nil, false
}

// ValidateBidAmount enforces bid amount rules. The budget ceiling is checked
// before the status so an over-budget bid always reports the budget violation,
// whatever state the request is in.
func (r *Request) ValidateBidAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if amount.GreaterThan(r.Budget.Max) {
		return ErrBudgetExceeded
	}
	return nil
}

// CanAcceptBids reports whether the request still takes bid mutations.
func (r *Request) CanAcceptBids() error {
	if r.Status != RequestStatusOpen {
		return ErrRequestNotOpen
	}
	return nil
}

// AppendBid validates and appends a new pending bid. Must be invoked inside
// the request's critical section.
func (r *Request) AppendBid(bid Bid) error {
	if err := r.ValidateBidAmount(bid.Amount); err != nil {
		return err
	}
	if err := r.CanAcceptBids(); err != nil {
		return err
	}
	bid.RequestID = r.RequestID
	bid.Status = BidStatusPending
	r.Bids = append(r.Bids, bid)
	return nil
}

// ReplaceBid updates the mutable fields of an existing bid owned by lawyerID.
// Failure precedence: ownership, then request status, then the amount rules.
func (r *Request) ReplaceBid(bidID, lawyerID string, amount decimal.Decimal, proposal string, timeframeDays int, proposedDeadline time.Time, now time.Time) (*Bid, error) {
	bid, ok := r.FindBid(bidID)
	if !ok {
		return nil, ErrBidNotFound
	}
	if bid.LawyerID != lawyerID {
		return nil, ErrNotBidOwner
	}
	if err := r.CanAcceptBids(); err != nil {
		return nil, err
	}
	if err := r.ValidateBidAmount(amount); err != nil {
		return nil, err
	}
	bid.Amount = amount
	bid.Proposal = proposal
	bid.TimeframeDays = timeframeDays
	bid.ProposedDeadline = proposedDeadline
	bid.LastUpdatedAt = now
	bid.LastUpdatedBy = lawyerID
	return bid, nil
}

// Accept selects the winning bid and moves the request to pending_payment.
// This is the serialization point for exactly-one-acceptance: of two racing
// calls, only the one that observes status=open inside the critical section
// succeeds; the other gets ErrRequestNotOpen.
func (r *Request) Accept(bidID, clientID string, now time.Time) (*Bid, error) {
	if r.ClientID != clientID {
		return nil, ErrNotRequestOwner
	}
	bid, ok := r.FindBid(bidID)
	if !ok {
		return nil, ErrBidNotFound
	}
	if r.Status != RequestStatusOpen {
		return nil, ErrRequestNotOpen
	}
	r.Status = RequestStatusPendingPayment
	r.SelectedBidID = bid.BidID
	r.SelectedLawyerID = bid.LawyerID
	r.FinalAmount = bid.Amount
	r.Deadline = bid.ProposedDeadline
	r.LastUpdatedAt = now
	r.LastUpdatedBy = clientID
	bid.Status = BidStatusAccepted
	bid.LastUpdatedAt = now
	bid.LastUpdatedBy = clientID
	return bid, nil
}

// Cancel soft-cancels a request whose payment has not been captured yet.
// No transaction exists before capture (capture records it and moves the
// request to in_progress in one step), so open and pending_payment both
// qualify; once funds are held, cancellation goes through the refund path.
func (r *Request) Cancel(clientID string, now time.Time) error {
	if r.ClientID != clientID {
		return ErrNotRequestOwner
	}
	if r.Status != RequestStatusOpen && r.Status != RequestStatusPendingPayment {
		return ErrRequestNotOpen
	}
	r.Status = RequestStatusCancelled
	r.LastUpdatedAt = now
	r.LastUpdatedBy = clientID
	return nil
}
