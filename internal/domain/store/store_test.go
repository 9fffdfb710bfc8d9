package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStore_Active(t *testing.T) {
	for _, status := range []Status{StatusInactive, StatusSuspended, StatusClosed} {
		assert.False(t, (&Store{Status: status}).Active(), status)
	}
	assert.True(t, (&Store{Status: StatusActive}).Active())
}

func TestErrors_MatchByZeroValue(t *testing.T) {
	notFound := fmt.Errorf("record sale: %w", ErrStoreNotFound{ID: "store-9"})
	assert.True(t, errors.Is(notFound, ErrStoreNotFound{}))
	assert.False(t, errors.Is(notFound, ErrStoreNotFound{ID: "store-1"}))

	inactive := ErrStoreInactive{ID: "store-2", Status: StatusClosed}
	assert.True(t, errors.Is(inactive, ErrStoreInactive{}))
	assert.Contains(t, inactive.Error(), "CLOSED")
}
