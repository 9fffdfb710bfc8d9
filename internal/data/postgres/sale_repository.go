package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/todaysales-settlement/internal/domain/sale"
	"github.com/todaysales-settlement/internal/platform/persistence"
)

const orderNumberConstraint = "uq_sales_order_number"

const saleColumns = `id, store_id, store_name, transaction_time, amount, payment_method, channel, order_number,
	fee, net_amount, status, settlement_id, is_settled, created_at, updated_at`

// SaleRepository implements sale.Repository for PostgreSQL
type SaleRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewSaleRepository(logger *slog.Logger, db *persistence.PostgresDB) sale.Repository {
	return &SaleRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

func (r *SaleRepository) WithTx(tx pgx.Tx) sale.Repository {
	return &SaleRepository{
		querier: tx,
		logger:  r.logger,
	}
}

func (r *SaleRepository) Create(ctx context.Context, s *sale.Sale) error {
	query := `
		INSERT INTO sales (store_id, store_name, transaction_time, amount, payment_method, channel, order_number,
			fee, net_amount, status, is_settled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id
	`

	err := r.querier.QueryRow(ctx, query,
		s.StoreID,
		s.StoreName,
		s.TransactionTime,
		s.Amount,
		string(s.PaymentMethod),
		string(s.Channel),
		s.OrderNumber,
		s.Fee,
		s.NetAmount,
		string(s.Status),
		s.Settled,
		s.CreatedAt,
		s.UpdatedAt,
	).Scan(&s.ID)
	if err != nil {
		if persistence.IsUniqueViolation(err, orderNumberConstraint) {
			return sale.ErrDuplicateOrderNumber{OrderNumber: s.OrderNumber}
		}
		r.logger.Error("Failed to create sale", "order_number", s.OrderNumber, "error", err)
		return fmt.Errorf("failed to create sale: %w", err)
	}
	return nil
}

func (r *SaleRepository) GetByID(ctx context.Context, id int64) (*sale.Sale, error) {
	query := `SELECT ` + saleColumns + ` FROM sales WHERE id = $1`

	s, err := scanSale(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sale.ErrSaleNotFound{ID: id}
		}
		return nil, fmt.Errorf("failed to get sale: %w", err)
	}
	return s, nil
}

func (r *SaleRepository) FindUnsettled(ctx context.Context, start, end time.Time) ([]*sale.Sale, error) {
	query := `
		SELECT ` + saleColumns + `
		FROM sales
		WHERE status = 'COMPLETED' AND is_settled = FALSE AND settlement_id IS NULL
			AND transaction_time >= $1 AND transaction_time < $2
		ORDER BY transaction_time, id
	`
	return r.querySales(ctx, query, start, end)
}

// LockUnsettled holds row locks on the returned sales until the transaction ends.
func (r *SaleRepository) LockUnsettled(ctx context.Context, start, end time.Time) ([]*sale.Sale, error) {
	query := `
		SELECT ` + saleColumns + `
		FROM sales
		WHERE status = 'COMPLETED' AND is_settled = FALSE AND settlement_id IS NULL
			AND transaction_time >= $1 AND transaction_time < $2
		ORDER BY transaction_time, id
		FOR UPDATE
	`
	return r.querySales(ctx, query, start, end)
}

func (r *SaleRepository) FindBySettlement(ctx context.Context, settlementID int64) ([]*sale.Sale, error) {
	query := `SELECT ` + saleColumns + ` FROM sales WHERE settlement_id = $1 ORDER BY id`
	return r.querySales(ctx, query, settlementID)
}

// Claim only succeeds on a sale nobody has claimed yet.
func (r *SaleRepository) Claim(ctx context.Context, s *sale.Sale) error {
	if s.SettlementID == nil {
		return fmt.Errorf("sale %d has no settlement to be claimed by", s.ID)
	}

	query := `
		UPDATE sales
		SET fee = $1, net_amount = $2, settlement_id = $3, is_settled = TRUE, updated_at = $4
		WHERE id = $5 AND settlement_id IS NULL AND is_settled = FALSE
	`

	result, err := r.querier.Exec(ctx, query, s.Fee, s.NetAmount, *s.SettlementID, s.UpdatedAt, s.ID)
	if err != nil {
		r.logger.Error("Failed to claim sale", "sale_id", s.ID, "settlement_id", *s.SettlementID, "error", err)
		return fmt.Errorf("failed to claim sale: %w", err)
	}
	if result.RowsAffected() == 0 {
		return sale.ErrSaleAlreadyClaimed{SaleID: s.ID}
	}
	return nil
}

func (r *SaleRepository) ReleaseBySettlement(ctx context.Context, settlementID int64) (int64, error) {
	query := `
		UPDATE sales
		SET settlement_id = NULL, is_settled = FALSE, updated_at = NOW()
		WHERE settlement_id = $1
	`

	result, err := r.querier.Exec(ctx, query, settlementID)
	if err != nil {
		return 0, fmt.Errorf("failed to release sales of settlement %d: %w", settlementID, err)
	}
	return result.RowsAffected(), nil
}

func (r *SaleRepository) querySales(ctx context.Context, query string, args ...interface{}) ([]*sale.Sale, error) {
	rows, err := r.querier.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sales: %w", err)
	}
	defer rows.Close()

	var sales []*sale.Sale
	for rows.Next() {
		s, err := scanSale(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sale: %w", err)
		}
		sales = append(sales, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sales: %w", err)
	}
	return sales, nil
}

func scanSale(row rowScanner) (*sale.Sale, error) {
	var s sale.Sale
	var method, channel, status string
	if err := row.Scan(
		&s.ID,
		&s.StoreID,
		&s.StoreName,
		&s.TransactionTime,
		&s.Amount,
		&method,
		&channel,
		&s.OrderNumber,
		&s.Fee,
		&s.NetAmount,
		&status,
		&s.SettlementID,
		&s.Settled,
		&s.CreatedAt,
		&s.UpdatedAt,
	); err != nil {
		return nil, err
	}
	s.PaymentMethod = sale.PaymentMethod(method)
	s.Channel = sale.Channel(channel)
	s.Status = sale.Status(status)
	return &s, nil
}
