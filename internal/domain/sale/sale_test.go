package sale

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSale(t *testing.T) {
	txTime := time.Date(2024, 3, 14, 12, 0, 0, 0, time.UTC)

	t.Run("SuccessfulCreation", func(t *testing.T) {
		s, err := NewSale("store-1", "ORD-1", decimal.NewFromInt(10000), PaymentCard, ChannelOffline, txTime, decimal.NewFromInt(250))
		require.NoError(t, err)

		assert.Equal(t, StatusCompleted, s.Status)
		assert.True(t, s.NetAmount.Equal(decimal.NewFromInt(9750)))
		assert.Nil(t, s.SettlementID)
		assert.False(t, s.Settled)
		assert.True(t, s.Unsettled())
	})

	t.Run("Validation", func(t *testing.T) {
		_, err := NewSale("", "ORD-1", decimal.NewFromInt(1), PaymentCash, ChannelOffline, txTime, decimal.Zero)
		assert.ErrorIs(t, err, ErrEmptyStoreID)

		_, err = NewSale("store-1", " ", decimal.NewFromInt(1), PaymentCash, ChannelOffline, txTime, decimal.Zero)
		assert.ErrorIs(t, err, ErrEmptyOrderNumber)

		_, err = NewSale("store-1", "ORD-1", decimal.Zero, PaymentCash, ChannelOffline, txTime, decimal.Zero)
		assert.ErrorIs(t, err, ErrInvalidAmount)

		_, err = NewSale("store-1", "ORD-1", decimal.NewFromInt(1), PaymentCash, ChannelOffline, txTime, decimal.NewFromInt(-1))
		assert.ErrorIs(t, err, ErrNegativeFee)
	})

	t.Run("AmountScale", func(t *testing.T) {
		_, err := NewSale("store-1", "ORD-1", decimal.RequireFromString("0.995"), PaymentCard, ChannelOffline, txTime, decimal.RequireFromString("0.02"))
		assert.ErrorIs(t, err, ErrAmountScale)

		s, err := NewSale("store-1", "ORD-1", decimal.RequireFromString("12.500"), PaymentCard, ChannelOffline, txTime, decimal.RequireFromString("0.31"))
		require.NoError(t, err, "trailing zeros fit the column")
		assert.Equal(t, "12.19", s.NetAmount.StringFixed(2))
	})
}

func TestCheckTransactionTime(t *testing.T) {
	now := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		txTime  time.Time
		wantErr bool
	}{
		{name: "past", txTime: now.Add(-24 * time.Hour)},
		{name: "now", txTime: now},
		{name: "within skew", txTime: now.Add(MaxClockSkew)},
		{name: "beyond skew", txTime: now.Add(MaxClockSkew + time.Second), wantErr: true},
		{name: "tomorrow", txTime: now.Add(24 * time.Hour), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckTransactionTime(tt.txTime, now)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrFutureTransaction)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSale_Claim(t *testing.T) {
	at := time.Date(2024, 3, 15, 2, 0, 0, 0, time.UTC)
	s, err := NewSale("store-1", "ORD-2", decimal.NewFromInt(10000), PaymentBankTransfer, ChannelOnline, at.Add(-time.Hour), decimal.NewFromInt(300))
	require.NoError(t, err)
	s.ID = 7

	require.NoError(t, s.Claim(42, decimal.NewFromInt(100), at))

	require.NotNil(t, s.SettlementID)
	assert.Equal(t, int64(42), *s.SettlementID)
	assert.True(t, s.Settled)
	assert.True(t, s.Fee.Equal(decimal.NewFromInt(100)), "settlement fee overwrites the provisional fee")
	assert.True(t, s.NetAmount.Equal(s.Amount.Sub(s.Fee)))
	assert.Equal(t, at, s.UpdatedAt)

	err = s.Claim(43, decimal.NewFromInt(100), at)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSaleAlreadyClaimed{}))
	assert.Equal(t, int64(42), *s.SettlementID)
}

func TestParsePaymentMethod(t *testing.T) {
	tests := []struct {
		in      string
		want    PaymentMethod
		wantErr bool
	}{
		{"card", PaymentCard, false},
		{"bank-transfer", PaymentBankTransfer, false},
		{" MOBILE_PAY ", PaymentMobilePay, false},
		{"voucher", PaymentVoucher, false},
		{"crypto", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePaymentMethod(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownPaymentMethod)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseChannel(t *testing.T) {
	c, err := ParseChannel("")
	require.NoError(t, err)
	assert.Equal(t, ChannelOffline, c)

	c, err = ParseChannel("mobile-app")
	require.NoError(t, err)
	assert.Equal(t, ChannelMobileApp, c)

	_, err = ParseChannel("kiosk")
	assert.ErrorIs(t, err, ErrUnknownChannel)
}

func TestErrorMatching(t *testing.T) {
	assert.True(t, errors.Is(ErrSaleNotFound{ID: 3}, ErrSaleNotFound{}))
	assert.False(t, errors.Is(ErrSaleNotFound{ID: 3}, ErrSaleNotFound{ID: 4}))
	assert.True(t, errors.Is(ErrDuplicateOrderNumber{OrderNumber: "A"}, ErrDuplicateOrderNumber{}))
}
