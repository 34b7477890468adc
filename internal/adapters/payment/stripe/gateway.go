// Package stripe adapts the Stripe API to the payments.Gateway port. Every
// call is bounded by a configured timeout; a timed-out call is reported as an
// external failure, never as success.
package stripe

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	stripeapi "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"

	"github.com/lawbid/lawbid_backend/internal/apperrors"
	"github.com/lawbid/lawbid_backend/internal/core/ports/payments"
)

// Gateway talks to Stripe payment intents, transfers and refunds.
type Gateway struct {
	api     *client.API
	timeout time.Duration
}

// NewGateway builds a Stripe-backed gateway with the given secret key and
// per-call timeout.
func NewGateway(secretKey string, timeout time.Duration) *Gateway {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &Gateway{api: api, timeout: timeout}
}

var _ payments.Gateway = (*Gateway)(nil)

func (g *Gateway) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, g.timeout)
}

// CreateCharge opens a payment intent for the full amount (base plus fees).
func (g *Gateway) CreateCharge(ctx context.Context, params payments.ChargeParams) (*payments.Charge, error) {
	ctx, cancel := g.bound(ctx)
	defer cancel()

	piParams := &stripeapi.PaymentIntentParams{
		Amount:             stripeapi.Int64(params.Amount.IntPart()),
		Currency:           stripeapi.String(params.Currency),
		PaymentMethodTypes: stripeapi.StringSlice([]string{"card", "mada"}),
	}
	piParams.Context = ctx
	for k, v := range params.Metadata {
		piParams.AddMetadata(k, v)
	}

	pi, err := g.api.PaymentIntents.New(piParams)
	if err != nil {
		return nil, fmt.Errorf("%w: stripe create payment intent: %v", apperrors.ErrExternal, err)
	}
	return chargeFromIntent(pi), nil
}

// GetCharge re-reads a payment intent so the caller can verify its status and
// amount against Stripe rather than trusting client input.
func (g *Gateway) GetCharge(ctx context.Context, chargeID string) (*payments.Charge, error) {
	ctx, cancel := g.bound(ctx)
	defer cancel()

	piParams := &stripeapi.PaymentIntentParams{}
	piParams.Context = ctx

	pi, err := g.api.PaymentIntents.Get(chargeID, piParams)
	if err != nil {
		return nil, fmt.Errorf("%w: stripe get payment intent %s: %v", apperrors.ErrExternal, chargeID, err)
	}
	return chargeFromIntent(pi), nil
}

// Transfer pays the lawyer's connected account, grouped under the request so
// Stripe reconciliation ties the payout back to the original charge.
func (g *Gateway) Transfer(ctx context.Context, params payments.TransferParams) (*payments.Transfer, error) {
	ctx, cancel := g.bound(ctx)
	defer cancel()

	tParams := &stripeapi.TransferParams{
		Amount:        stripeapi.Int64(params.Amount.IntPart()),
		Currency:      stripeapi.String(params.Currency),
		Destination:   stripeapi.String(params.DestinationAccount),
		TransferGroup: stripeapi.String(params.GroupID),
	}
	tParams.Context = ctx

	tr, err := g.api.Transfers.New(tParams)
	if err != nil {
		return nil, fmt.Errorf("%w: stripe transfer: %v", apperrors.ErrExternal, err)
	}
	return &payments.Transfer{ID: tr.ID}, nil
}

// Refund reverses the original payment intent in full.
func (g *Gateway) Refund(ctx context.Context, params payments.RefundParams) (*payments.Refund, error) {
	ctx, cancel := g.bound(ctx)
	defer cancel()

	rParams := &stripeapi.RefundParams{
		PaymentIntent: stripeapi.String(params.ChargeID),
		Reason:        stripeapi.String(params.Reason),
	}
	rParams.Context = ctx

	rf, err := g.api.Refunds.New(rParams)
	if err != nil {
		return nil, fmt.Errorf("%w: stripe refund %s: %v", apperrors.ErrExternal, params.ChargeID, err)
	}
	return &payments.Refund{ID: rf.ID}, nil
}

func chargeFromIntent(pi *stripeapi.PaymentIntent) *payments.Charge {
	charge := &payments.Charge{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Amount:       decimal.NewFromInt(pi.Amount),
		Currency:     string(pi.Currency),
		Status:       chargeStatus(pi.Status),
		Metadata:     pi.Metadata,
	}
	if pi.PaymentMethod != nil {
		charge.PaymentMethod = pi.PaymentMethod.ID
	}
	return charge
}

func chargeStatus(s stripeapi.PaymentIntentStatus) payments.ChargeStatus {
	switch s {
	case stripeapi.PaymentIntentStatusSucceeded:
		return payments.ChargeStatusSucceeded
	case stripeapi.PaymentIntentStatusCanceled:
		return payments.ChargeStatusFailed
	default:
		return payments.ChargeStatusPending
	}
}
