// Package payments defines the narrow capability contract the settlement
// engine consumes from the external payment gateway. The engine treats
// anything other than an explicit success as failure; timeouts are failures.
package payments

import (
	"context"

	"github.com/shopspring/decimal"
)

// ChargeStatus is the gateway-reported state of a charge.
type ChargeStatus string

const (
	ChargeStatusSucceeded ChargeStatus = "succeeded"
	ChargeStatusPending   ChargeStatus = "pending"
	ChargeStatusFailed    ChargeStatus = "failed"
)

// Charge is the gateway's view of a capture attempt. Amount is the total
// charged (base plus fees) in minor currency units. Metadata echoes the
// key/value pairs attached at creation.
type Charge struct {
	ID            string
	ClientSecret  string
	Amount        decimal.Decimal
	Currency      string
	PaymentMethod string
	Status        ChargeStatus
	Metadata      map[string]string
}

// ChargeParams initiates a charge for the total amount.
type ChargeParams struct {
	Amount   decimal.Decimal
	Currency string
	Metadata map[string]string
}

// TransferParams moves a payout to the lawyer's registered account.
type TransferParams struct {
	Amount             decimal.Decimal
	Currency           string
	DestinationAccount string
	GroupID            string
}

// Transfer is a completed payout reference.
type Transfer struct {
	ID string
}

// RefundParams reverses an original charge.
type RefundParams struct {
	ChargeID string
	Reason   string
}

// Refund is a completed refund reference.
type Refund struct {
	ID string
}

// Gateway is the injected payment adapter. All calls are bounded by the
// caller-supplied context; implementations must not report success unless the
// external service confirmed the operation.
type Gateway interface {
	CreateCharge(ctx context.Context, params ChargeParams) (*Charge, error)
	GetCharge(ctx context.Context, chargeID string) (*Charge, error)
	Transfer(ctx context.Context, params TransferParams) (*Transfer, error)
	Refund(ctx context.Context, params RefundParams) (*Refund, error)
}
