// Package postgres provides PostgreSQL implementations of the domain repositories.
// Every repository can be bound to a transaction with WithTx so that a settlement
// run reads, claims and writes inside one unit of work.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/todaysales-settlement/internal/domain/settlement"
	"github.com/todaysales-settlement/internal/platform/persistence"
)

const settlementDateConstraint = "uq_settlements_date"

const settlementColumns = `id, settlement_date, total_amount, total_fee, net_amount, transaction_count, status, note, created_at, completed_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// SettlementRepository implements settlement.Repository for PostgreSQL
type SettlementRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

func NewSettlementRepository(logger *slog.Logger, db *persistence.PostgresDB) settlement.Repository {
	return &SettlementRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

func (r *SettlementRepository) WithTx(tx pgx.Tx) settlement.Repository {
	return &SettlementRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create inserts the settlement and sets its generated ID. The unique constraint on
// settlement_date turns a lost race into ErrDuplicateSettlement.
func (r *SettlementRepository) Create(ctx context.Context, s *settlement.Settlement) error {
	query := `
		INSERT INTO settlements (settlement_date, total_amount, total_fee, net_amount, transaction_count, status, note, created_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`

	err := r.querier.QueryRow(ctx, query,
		s.SettlementDate,
		s.TotalAmount,
		s.TotalFee,
		s.NetAmount,
		s.TransactionCount,
		string(s.Status),
		s.Note,
		s.CreatedAt,
		s.CompletedAt,
	).Scan(&s.ID)
	if err != nil {
		if persistence.IsUniqueViolation(err, settlementDateConstraint) {
			return settlement.ErrDuplicateSettlement{Date: s.SettlementDate}
		}
		r.logger.Error("Failed to create settlement", "settlement_date", settlement.FormatDate(s.SettlementDate), "error", err)
		return fmt.Errorf("failed to create settlement: %w", err)
	}

	return nil
}

func (r *SettlementRepository) ExistsByDate(ctx context.Context, date time.Time) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM settlements WHERE settlement_date = $1)`

	var exists bool
	if err := r.querier.QueryRow(ctx, query, settlement.Day(date)).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check settlement existence: %w", err)
	}
	return exists, nil
}

func (r *SettlementRepository) GetByID(ctx context.Context, id int64) (*settlement.Settlement, error) {
	query := `
		SELECT ` + settlementColumns + `,
			ARRAY(SELECT sa.id FROM sales sa WHERE sa.settlement_id = settlements.id ORDER BY sa.id)
		FROM settlements
		WHERE id = $1
	`

	s, err := scanSettlementWithSales(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, settlement.ErrSettlementNotFound{ID: id}
		}
		r.logger.Error("Failed to get settlement", "settlement_id", id, "error", err)
		return nil, fmt.Errorf("failed to get settlement: %w", err)
	}
	return s, nil
}

func (r *SettlementRepository) GetByDate(ctx context.Context, date time.Time) (*settlement.Settlement, error) {
	query := `
		SELECT ` + settlementColumns + `,
			ARRAY(SELECT sa.id FROM sales sa WHERE sa.settlement_id = settlements.id ORDER BY sa.id)
		FROM settlements
		WHERE settlement_date = $1
	`

	day := settlement.Day(date)
	s, err := scanSettlementWithSales(r.querier.QueryRow(ctx, query, day))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, settlement.ErrSettlementNotFound{Date: day}
		}
		return nil, fmt.Errorf("failed to get settlement by date: %w", err)
	}
	return s, nil
}

// LockByID must run inside a transaction; the lock is held until it ends.
func (r *SettlementRepository) LockByID(ctx context.Context, id int64) (*settlement.Settlement, error) {
	query := `
		SELECT ` + settlementColumns + `
		FROM settlements
		WHERE id = $1
		FOR UPDATE
	`

	s, err := scanSettlement(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, settlement.ErrSettlementNotFound{ID: id}
		}
		return nil, fmt.Errorf("failed to lock settlement: %w", err)
	}
	return s, nil
}

func (r *SettlementRepository) Update(ctx context.Context, s *settlement.Settlement) error {
	query := `
		UPDATE settlements
		SET total_amount = $1, total_fee = $2, net_amount = $3, transaction_count = $4,
			status = $5, note = $6, completed_at = $7
		WHERE id = $8
	`

	result, err := r.querier.Exec(ctx, query,
		s.TotalAmount,
		s.TotalFee,
		s.NetAmount,
		s.TransactionCount,
		string(s.Status),
		s.Note,
		s.CompletedAt,
		s.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update settlement", "settlement_id", s.ID, "error", err)
		return fmt.Errorf("failed to update settlement: %w", err)
	}
	if result.RowsAffected() == 0 {
		return settlement.ErrSettlementNotFound{ID: s.ID}
	}
	return nil
}

func (r *SettlementRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.querier.Exec(ctx, `DELETE FROM settlements WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("Failed to delete settlement", "settlement_id", id, "error", err)
		return fmt.Errorf("failed to delete settlement: %w", err)
	}
	if result.RowsAffected() == 0 {
		return settlement.ErrSettlementNotFound{ID: id}
	}
	return nil
}

// ListByDateRange returns settlements with from <= date <= to, oldest first.
func (r *SettlementRepository) ListByDateRange(ctx context.Context, from, to time.Time) ([]*settlement.Settlement, error) {
	query := `
		SELECT ` + settlementColumns + `
		FROM settlements
		WHERE settlement_date BETWEEN $1 AND $2
		ORDER BY settlement_date
	`

	rows, err := r.querier.Query(ctx, query, settlement.Day(from), settlement.Day(to))
	if err != nil {
		return nil, fmt.Errorf("failed to list settlements: %w", err)
	}
	defer rows.Close()

	var settlements []*settlement.Settlement
	for rows.Next() {
		s, err := scanSettlement(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan settlement: %w", err)
		}
		settlements = append(settlements, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate settlements: %w", err)
	}
	return settlements, nil
}

func scanSettlement(row rowScanner) (*settlement.Settlement, error) {
	var s settlement.Settlement
	var status string
	if err := row.Scan(
		&s.ID,
		&s.SettlementDate,
		&s.TotalAmount,
		&s.TotalFee,
		&s.NetAmount,
		&s.TransactionCount,
		&status,
		&s.Note,
		&s.CreatedAt,
		&s.CompletedAt,
	); err != nil {
		return nil, err
	}
	s.Status = settlement.Status(status)
	return &s, nil
}

func scanSettlementWithSales(row rowScanner) (*settlement.Settlement, error) {
	var s settlement.Settlement
	var status string
	if err := row.Scan(
		&s.ID,
		&s.SettlementDate,
		&s.TotalAmount,
		&s.TotalFee,
		&s.NetAmount,
		&s.TransactionCount,
		&status,
		&s.Note,
		&s.CreatedAt,
		&s.CompletedAt,
		&s.SaleIDs,
	); err != nil {
		return nil, err
	}
	s.Status = settlement.Status(status)
	return &s, nil
}
