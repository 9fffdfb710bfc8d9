// Package store describes the merchants sales are recorded for.
package store

import (
	"context"
	"fmt"
	"time"
)

// Status is the lifecycle state of a store. Only active stores take new sales.
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusInactive  Status = "INACTIVE"
	StatusSuspended Status = "SUSPENDED"
	StatusClosed    Status = "CLOSED"
)

type Store struct {
	ID        string    `json:"store_id"`
	Name      string    `json:"store_name"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s *Store) Active() bool {
	return s.Status == StatusActive
}

// Repository defines store lookups
type Repository interface {
	GetByID(ctx context.Context, id string) (*Store, error)
}

// ErrStoreNotFound indicates a sale for a store that does not exist
type ErrStoreNotFound struct {
	ID string
}

func (e ErrStoreNotFound) Error() string {
	return "store not found: " + e.ID
}

func (e ErrStoreNotFound) Is(target error) bool {
	t, ok := target.(ErrStoreNotFound)
	return ok && (t.ID == "" || t.ID == e.ID)
}

// ErrStoreInactive indicates a sale for a store that is not accepting sales
type ErrStoreInactive struct {
	ID     string
	Status Status
}

func (e ErrStoreInactive) Error() string {
	return fmt.Sprintf("store %s is not active (status %s)", e.ID, e.Status)
}

func (e ErrStoreInactive) Is(target error) bool {
	t, ok := target.(ErrStoreInactive)
	return ok && (t.ID == "" || t.ID == e.ID)
}
