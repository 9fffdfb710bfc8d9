package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/todaysales-settlement/internal/domain/settlement"
)

// PersistenceError reports a settlement run whose unit of work was rolled back. The
// failure has been handed to the FailureRecorder by the time the caller sees it.
type PersistenceError struct {
	Date time.Time
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("settlement processing failed for date %s: %v", settlement.FormatDate(e.Date), e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// ErrInvalidDateRange is returned for a listing whose start lies after its end.
var ErrInvalidDateRange = errors.New("from date must not be after to date")
