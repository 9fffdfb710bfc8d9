package sale

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount        = errors.New("amount must be positive")
	ErrAmountScale          = errors.New("amount must have at most 2 decimal places")
	ErrFutureTransaction    = errors.New("transaction time cannot be in the future")
	ErrEmptyOrderNumber     = errors.New("order number cannot be empty")
	ErrEmptyStoreID         = errors.New("store id cannot be empty")
	ErrUnknownPaymentMethod = errors.New("unknown payment method")
	ErrUnknownChannel       = errors.New("unknown sale channel")
	ErrNegativeFee          = errors.New("fee must not be negative")
)

// MaxClockSkew is how far ahead of the server clock a point of sale may stamp a sale.
const MaxClockSkew = 5 * time.Minute

// CheckTransactionTime rejects sales stamped later than now plus MaxClockSkew.
func CheckTransactionTime(txTime, now time.Time) error {
	if txTime.After(now.Add(MaxClockSkew)) {
		return ErrFutureTransaction
	}
	return nil
}

// PaymentMethod is how a sale was paid for.
type PaymentMethod string

const (
	PaymentCard         PaymentMethod = "CARD"
	PaymentCash         PaymentMethod = "CASH"
	PaymentBankTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentMobilePay    PaymentMethod = "MOBILE_PAY"
	PaymentPoint        PaymentMethod = "POINT"
	PaymentVoucher      PaymentMethod = "VOUCHER"
)

// ParsePaymentMethod normalises user input such as "card" or "bank-transfer".
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	m := PaymentMethod(strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_")))
	switch m {
	case PaymentCard, PaymentCash, PaymentBankTransfer, PaymentMobilePay, PaymentPoint, PaymentVoucher:
		return m, nil
	}
	return "", ErrUnknownPaymentMethod
}

// Channel is where a sale happened.
type Channel string

const (
	ChannelOffline   Channel = "OFFLINE"
	ChannelOnline    Channel = "ONLINE"
	ChannelMobileApp Channel = "MOBILE_APP"
	ChannelDelivery  Channel = "DELIVERY"
	ChannelTakeout   Channel = "TAKEOUT"
)

// ParseChannel normalises a channel name; empty input means offline.
func ParseChannel(s string) (Channel, error) {
	if strings.TrimSpace(s) == "" {
		return ChannelOffline, nil
	}
	c := Channel(strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_")))
	switch c {
	case ChannelOffline, ChannelOnline, ChannelMobileApp, ChannelDelivery, ChannelTakeout:
		return c, nil
	}
	return "", ErrUnknownChannel
}

// Status is the lifecycle state of a sale.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
	StatusRefunded  Status = "REFUNDED"
)

// Sale is a single completed transaction. SettlementID is the back-reference to the
// settlement that claimed it; a sale is claimed at most once.
type Sale struct {
	ID              int64           `json:"id"`
	StoreID         string          `json:"store_id"`
	StoreName       string          `json:"store_name,omitempty"`
	TransactionTime time.Time       `json:"transaction_time"`
	Amount          decimal.Decimal `json:"amount"`
	PaymentMethod   PaymentMethod   `json:"payment_method"`
	Channel         Channel         `json:"channel"`
	OrderNumber     string          `json:"order_number"`
	Fee             decimal.Decimal `json:"fee"`
	NetAmount       decimal.Decimal `json:"net_amount"`
	Status          Status          `json:"status"`
	SettlementID    *int64          `json:"settlement_id,omitempty"`
	Settled         bool            `json:"settled"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// NewSale builds a completed, unsettled sale. The fee passed in is provisional until
// the sale is claimed by a settlement.
func NewSale(storeID, orderNumber string, amount decimal.Decimal, method PaymentMethod, channel Channel, txTime time.Time, fee decimal.Decimal) (*Sale, error) {
	if strings.TrimSpace(storeID) == "" {
		return nil, ErrEmptyStoreID
	}
	if strings.TrimSpace(orderNumber) == "" {
		return nil, ErrEmptyOrderNumber
	}
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	// amounts are stored as NUMERIC(15,2)
	if !amount.Equal(amount.Round(2)) {
		return nil, ErrAmountScale
	}
	if fee.IsNegative() {
		return nil, ErrNegativeFee
	}

	return &Sale{
		StoreID:         storeID,
		TransactionTime: txTime,
		Amount:          amount,
		PaymentMethod:   method,
		Channel:         channel,
		OrderNumber:     orderNumber,
		Fee:             fee,
		NetAmount:       amount.Sub(fee),
		Status:          StatusCompleted,
		CreatedAt:       txTime,
		UpdatedAt:       txTime,
	}, nil
}

// Unsettled reports whether the sale can still be claimed.
func (s *Sale) Unsettled() bool {
	return s.Status == StatusCompleted && !s.Settled && s.SettlementID == nil
}

// Claim applies the authoritative fee and binds the sale to a settlement.
func (s *Sale) Claim(settlementID int64, fee decimal.Decimal, at time.Time) error {
	if !s.Unsettled() {
		return ErrSaleAlreadyClaimed{SaleID: s.ID}
	}
	if fee.IsNegative() {
		return ErrNegativeFee
	}
	id := settlementID
	s.Fee = fee
	s.NetAmount = s.Amount.Sub(fee)
	s.SettlementID = &id
	s.Settled = true
	s.UpdatedAt = at
	return nil
}
