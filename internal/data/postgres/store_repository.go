package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/todaysales-settlement/internal/domain/store"
	"github.com/todaysales-settlement/internal/platform/persistence"
)

// StoreRepository implements store.Repository for PostgreSQL
type StoreRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewStoreRepository(logger *slog.Logger, db *persistence.PostgresDB) store.Repository {
	return &StoreRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

func (r *StoreRepository) GetByID(ctx context.Context, id string) (*store.Store, error) {
	query := `SELECT store_id, store_name, status, created_at, updated_at FROM stores WHERE store_id = $1`

	var (
		s      store.Store
		status string
	)
	err := r.querier.QueryRow(ctx, query, id).Scan(&s.ID, &s.Name, &status, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrStoreNotFound{ID: id}
		}
		r.logger.Error("Failed to get store", "store_id", id, "error", err)
		return nil, fmt.Errorf("failed to get store: %w", err)
	}
	s.Status = store.Status(status)
	return &s, nil
}
