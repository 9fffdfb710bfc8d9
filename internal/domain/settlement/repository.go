package settlement

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// Repository defines settlement persistence operations. The store enforces at most
// one settlement per date.
type Repository interface {
	// Create inserts the settlement and assigns its ID. A second settlement for the
	// same date fails with ErrDuplicateSettlement.
	Create(ctx context.Context, s *Settlement) error
	ExistsByDate(ctx context.Context, date time.Time) (bool, error)
	GetByID(ctx context.Context, id int64) (*Settlement, error)
	GetByDate(ctx context.Context, date time.Time) (*Settlement, error)

	// LockByID reads the settlement under a row lock for the rest of the transaction.
	LockByID(ctx context.Context, id int64) (*Settlement, error)

	// Update writes totals, status, note and completion time.
	Update(ctx context.Context, s *Settlement) error
	Delete(ctx context.Context, id int64) error
	ListByDateRange(ctx context.Context, from, to time.Time) ([]*Settlement, error)
	WithTx(tx pgx.Tx) Repository
}

// ErrDuplicateSettlement indicates a settlement already exists for the date
type ErrDuplicateSettlement struct {
	Date time.Time
}

func (e ErrDuplicateSettlement) Error() string {
	return "settlement already exists for date: " + FormatDate(e.Date)
}

func (e ErrDuplicateSettlement) Is(target error) bool {
	t, ok := target.(ErrDuplicateSettlement)
	return ok && (t.Date.IsZero() || Day(t.Date).Equal(Day(e.Date)))
}

// ErrSettlementNotFound indicates a missing settlement
type ErrSettlementNotFound struct {
	ID   int64
	Date time.Time
}

func (e ErrSettlementNotFound) Error() string {
	if e.ID == 0 && !e.Date.IsZero() {
		return "settlement not found for date: " + FormatDate(e.Date)
	}
	return fmt.Sprintf("settlement not found: %d", e.ID)
}

func (e ErrSettlementNotFound) Is(target error) bool {
	_, ok := target.(ErrSettlementNotFound)
	return ok
}

// ErrInvalidState indicates an operation the settlement's status does not allow
type ErrInvalidState struct {
	ID     int64
	Status Status
	Wanted Status
}

func (e ErrInvalidState) Error() string {
	if e.Wanted == "" {
		return fmt.Sprintf("settlement %d is in state %s", e.ID, e.Status)
	}
	return fmt.Sprintf("settlement %d cannot move from %s to %s", e.ID, e.Status, e.Wanted)
}

func (e ErrInvalidState) Is(target error) bool {
	_, ok := target.(ErrInvalidState)
	return ok
}
