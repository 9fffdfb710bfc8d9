package settlement

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/todaysales-settlement/internal/domain/sale"
)

// NoteNoSales is recorded on a settlement for a day without unsettled sales.
const NoteNoSales = "No sales to settle"

// DateLayout is the wire and URL format of a settlement date.
const DateLayout = "2006-01-02"

// Status is the lifecycle state of a settlement.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
	StatusCancelled  Status = "CANCELLED"
)

// allowed transitions; completed, failed and cancelled are terminal
var transitions = map[Status][]Status{
	StatusPending:    {StatusProcessing, StatusFailed, StatusCancelled},
	StatusProcessing: {StatusCompleted, StatusFailed},
}

// CanTransitionTo reports whether moving from s to next keeps the status monotonic.
func (s Status) CanTransitionTo(next Status) bool {
	for _, candidate := range transitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return len(transitions[s]) == 0
}

// Settlement is the daily aggregate of claimed sales. It owns its sales by id only;
// each sale carries the back-reference.
type Settlement struct {
	ID               int64           `json:"id"`
	SettlementDate   time.Time       `json:"settlement_date"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	TotalFee         decimal.Decimal `json:"total_fee"`
	NetAmount        decimal.Decimal `json:"net_amount"`
	TransactionCount int             `json:"transaction_count"`
	Status           Status          `json:"status"`
	Note             string          `json:"note,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	CompletedAt      *time.Time      `json:"completed_at,omitempty"`
	SaleIDs          []int64         `json:"sale_ids,omitempty"`
}

// Day truncates t to its calendar date, expressed as midnight UTC. This is the
// canonical form of a settlement date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD settlement date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid settlement date %q: %w", s, err)
	}
	return t, nil
}

// FormatDate renders a settlement date as YYYY-MM-DD.
func FormatDate(date time.Time) string {
	return date.Format(DateLayout)
}

// Window returns the half-open interval [start, end) covering date in loc.
func Window(date time.Time, loc *time.Location) (time.Time, time.Time) {
	y, m, d := date.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}

// New returns a pending settlement with zero totals.
func New(date time.Time, now time.Time) *Settlement {
	return &Settlement{
		SettlementDate: Day(date),
		TotalAmount:    decimal.Zero,
		TotalFee:       decimal.Zero,
		NetAmount:      decimal.Zero,
		Status:         StatusPending,
		CreatedAt:      now,
	}
}

// NewFailed returns a zeroed failed shell carrying a diagnostic note.
func NewFailed(date time.Time, note string, now time.Time) *Settlement {
	s := New(date, now)
	s.Status = StatusFailed
	s.Note = note
	s.CompletedAt = &now
	return s
}

func (s *Settlement) transition(next Status) error {
	if !s.Status.CanTransitionTo(next) {
		return ErrInvalidState{ID: s.ID, Status: s.Status, Wanted: next}
	}
	s.Status = next
	return nil
}

// Start moves a pending settlement into processing.
func (s *Settlement) Start() error {
	return s.transition(StatusProcessing)
}

// Include claims a sale for this settlement with the authoritative fee and
// accumulates it into the running totals.
func (s *Settlement) Include(sl *sale.Sale, fee decimal.Decimal, now time.Time) error {
	if s.Status != StatusProcessing {
		return ErrInvalidState{ID: s.ID, Status: s.Status, Wanted: StatusProcessing}
	}
	if err := sl.Claim(s.ID, fee, now); err != nil {
		return err
	}
	s.TotalAmount = s.TotalAmount.Add(sl.Amount)
	s.TotalFee = s.TotalFee.Add(sl.Fee)
	s.TransactionCount++
	s.SaleIDs = append(s.SaleIDs, sl.ID)
	return nil
}

// Complete derives the net amount and finalizes the settlement.
func (s *Settlement) Complete(now time.Time) error {
	if err := s.transition(StatusCompleted); err != nil {
		return err
	}
	s.NetAmount = s.TotalAmount.Sub(s.TotalFee)
	if s.TransactionCount == 0 {
		s.Note = NoteNoSales
	}
	s.CompletedAt = &now
	return nil
}

// Fail marks the settlement failed with a diagnostic note.
func (s *Settlement) Fail(note string, now time.Time) error {
	if s.Status == StatusFailed {
		s.Note = note
		return nil
	}
	if err := s.transition(StatusFailed); err != nil {
		return err
	}
	s.Note = note
	s.CompletedAt = &now
	return nil
}

// CanReprocess reports whether the settlement may be deleted and run again.
func (s *Settlement) CanReprocess() bool {
	return s.Status == StatusFailed
}

// Balanced checks net == total - fee.
func (s *Settlement) Balanced() bool {
	return s.NetAmount.Equal(s.TotalAmount.Sub(s.TotalFee))
}
