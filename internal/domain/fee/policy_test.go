package fee

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/todaysales-settlement/internal/domain/sale"
)

func TestComputeFee(t *testing.T) {
	tests := []struct {
		name   string
		amount string
		method sale.PaymentMethod
		want   string
	}{
		{"card", "10000", sale.PaymentCard, "250.00"},
		{"cash", "10000", sale.PaymentCash, "0.00"},
		{"bank transfer", "10000", sale.PaymentBankTransfer, "100.00"},
		{"point", "10000", sale.PaymentPoint, "200.00"},
		{"mobile pay uses default", "10000", sale.PaymentMobilePay, "300.00"},
		{"voucher uses default", "10000", sale.PaymentVoucher, "300.00"},
		{"unknown uses default", "10000", sale.PaymentMethod("GIFT"), "300.00"},
		{"half up rounding", "0.30", sale.PaymentCard, "0.01"},
		{"half up at boundary", "1.10", sale.PaymentCard, "0.03"},
		{"round down", "0.90", sale.PaymentCard, "0.02"},
		{"small cash", "0.01", sale.PaymentCash, "0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeFee(decimal.RequireFromString(tt.amount), tt.method)
			assert.Equal(t, tt.want, got.StringFixed(2))
		})
	}
}

func TestComputeFee_Deterministic(t *testing.T) {
	amount := decimal.RequireFromString("12345.67")
	first := ComputeFee(amount, sale.PaymentCard)
	for i := 0; i < 10; i++ {
		assert.True(t, first.Equal(ComputeFee(amount, sale.PaymentCard)))
	}
	assert.False(t, first.IsNegative())
}
