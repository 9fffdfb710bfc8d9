// Package fee holds the processing fee schedule applied to sales.
package fee

import (
	"github.com/shopspring/decimal"
	"github.com/todaysales-settlement/internal/domain/sale"
)

var (
	rateCard         = decimal.RequireFromString("0.025")
	rateCash         = decimal.Zero
	rateBankTransfer = decimal.RequireFromString("0.01")
	ratePoint        = decimal.RequireFromString("0.02")
	rateDefault      = decimal.RequireFromString("0.03")
)

// Rate returns the fee rate for a payment method. Methods without an explicit rate,
// including mobile pay and vouchers, use the default rate.
func Rate(method sale.PaymentMethod) decimal.Decimal {
	switch method {
	case sale.PaymentCard:
		return rateCard
	case sale.PaymentCash:
		return rateCash
	case sale.PaymentBankTransfer:
		return rateBankTransfer
	case sale.PaymentPoint:
		return ratePoint
	default:
		return rateDefault
	}
}

// ComputeFee returns amount * rate rounded half-up to 2 decimal places.
func ComputeFee(amount decimal.Decimal, method sale.PaymentMethod) decimal.Decimal {
	return amount.Mul(Rate(method)).Round(2)
}
