package sale

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// Repository defines sale persistence operations
type Repository interface {
	Create(ctx context.Context, s *Sale) error
	GetByID(ctx context.Context, id int64) (*Sale, error)

	// FindUnsettled returns completed, unclaimed sales with start <= transaction_time < end.
	FindUnsettled(ctx context.Context, start, end time.Time) ([]*Sale, error)

	// LockUnsettled is FindUnsettled with row locks, for use inside a settlement run.
	LockUnsettled(ctx context.Context, start, end time.Time) ([]*Sale, error)

	// Claim persists fee, net amount and the settlement reference. It fails with
	// ErrSaleAlreadyClaimed if another settlement got there first.
	Claim(ctx context.Context, s *Sale) error

	// ReleaseBySettlement clears every claim held by a settlement and returns how many were released.
	ReleaseBySettlement(ctx context.Context, settlementID int64) (int64, error)

	FindBySettlement(ctx context.Context, settlementID int64) ([]*Sale, error)
	WithTx(tx pgx.Tx) Repository
}

// ErrSaleNotFound indicates a missing sale
type ErrSaleNotFound struct {
	ID int64
}

func (e ErrSaleNotFound) Error() string {
	return fmt.Sprintf("sale not found: %d", e.ID)
}

func (e ErrSaleNotFound) Is(target error) bool {
	t, ok := target.(ErrSaleNotFound)
	return ok && (t.ID == 0 || t.ID == e.ID)
}

// ErrSaleAlreadyClaimed indicates the sale already belongs to a settlement
type ErrSaleAlreadyClaimed struct {
	SaleID int64
}

func (e ErrSaleAlreadyClaimed) Error() string {
	return fmt.Sprintf("sale %d is already claimed by a settlement", e.SaleID)
}

func (e ErrSaleAlreadyClaimed) Is(target error) bool {
	t, ok := target.(ErrSaleAlreadyClaimed)
	return ok && (t.SaleID == 0 || t.SaleID == e.SaleID)
}

// ErrDuplicateOrderNumber indicates order number uniqueness violation
type ErrDuplicateOrderNumber struct {
	OrderNumber string
}

func (e ErrDuplicateOrderNumber) Error() string {
	return "sale with order number already exists: " + e.OrderNumber
}

func (e ErrDuplicateOrderNumber) Is(target error) bool {
	t, ok := target.(ErrDuplicateOrderNumber)
	return ok && (t.OrderNumber == "" || t.OrderNumber == e.OrderNumber)
}
