package services

import (
	"github.com/lawbid/lawbid_backend/internal/core/domain"
	"github.com/shopspring/decimal"
)

// Fee rates are a hard platform contract, not configuration: 5% platform fee
// on the base, 15% VAT levied on base-plus-platform-fee (not on base alone,
// not on the post-VAT total), 2.5% payment processing fee on the base.
var (
	platformFeeRate = decimal.RequireFromString("0.05")
	vatRate         = decimal.RequireFromString("0.15")
	paymentFeeRate  = decimal.RequireFromString("0.025")
)

// ChargeBreakdown is the result of the fee computation, all values in minor
// currency units.
type ChargeBreakdown struct {
	Base        decimal.Decimal
	PlatformFee decimal.Decimal
	VAT         decimal.Decimal
	PaymentFee  decimal.Decimal
	Total       decimal.Decimal
}

// Fees converts the breakdown into the ledger's fee record.
func (c ChargeBreakdown) Fees() domain.FeeBreakdown {
	return domain.FeeBreakdown{Platform: c.PlatformFee, VAT: c.VAT, Payment: c.PaymentFee}
}

// ComputeCharge computes the full charge for a base amount. Pure and
// deterministic; each component is rounded to the nearest minor unit (half
// away from zero) in the contract order, then summed. Fails only on a
// non-positive base.
func ComputeCharge(base decimal.Decimal) (ChargeBreakdown, error) {
	if !base.IsPositive() {
		return ChargeBreakdown{}, domain.ErrInvalidAmount
	}
	platformFee := base.Mul(platformFeeRate).Round(0)
	vat := base.Add(platformFee).Mul(vatRate).Round(0)
	paymentFee := base.Mul(paymentFeeRate).Round(0)
	return ChargeBreakdown{
		Base:        base,
		PlatformFee: platformFee,
		VAT:         vat,
		PaymentFee:  paymentFee,
		Total:       base.Add(platformFee).Add(vat).Add(paymentFee),
	}, nil
}
