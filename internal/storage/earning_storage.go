package storage

import (
	"context"
	"fmt"

	"github.com/agamariel/marketpay/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresEarningStorage реализует EarningStorage для PostgreSQL.
// Начисления - append-only журнал: строки никогда не обновляются.
type PostgresEarningStorage struct {
	pool *pgxpool.Pool
}

// NewPostgresEarningStorage создаёт новый экземпляр.
func NewPostgresEarningStorage(pool *pgxpool.Pool) *PostgresEarningStorage {
	return &PostgresEarningStorage{pool: pool}
}

// CreateTx создаёт начисление в рамках переданной транзакции.
func (s *PostgresEarningStorage) CreateTx(ctx context.Context, tx pgx.Tx, earning *models.Earning) error {
	if earning.ID == uuid.Nil {
		earning.ID = uuid.New()
	}

	query := `
		INSERT INTO earnings (id, seller_id, order_id, order_item_id, amount, platform_fee, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
	`

	_, err := tx.Exec(ctx, query,
		earning.ID,
		earning.SellerID,
		earning.OrderID,
		earning.OrderItemID,
		earning.Amount,
		earning.PlatformFee,
	)
	if err != nil {
		return fmt.Errorf("failed to create earning: %w", err)
	}

	return nil
}

// GetBySellerID возвращает начисления продавца, новые первыми.
func (s *PostgresEarningStorage) GetBySellerID(ctx context.Context, sellerID uuid.UUID) ([]*models.Earning, error) {
	query := `
		SELECT id, seller_id, order_id, order_item_id, amount, platform_fee, created_at
		FROM earnings
		WHERE seller_id = $1
		ORDER BY created_at DESC
	`

	rows, err := s.pool.Query(ctx, query, sellerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query earnings: %w", err)
	}
	defer rows.Close()

	return scanEarnings(rows)
}

// GetByOrderID возвращает все начисления по заказу.
func (s *PostgresEarningStorage) GetByOrderID(ctx context.Context, orderID string) ([]*models.Earning, error) {
	query := `
		SELECT id, seller_id, order_id, order_item_id, amount, platform_fee, created_at
		FROM earnings
		WHERE order_id = $1
		ORDER BY created_at
	`

	rows, err := s.pool.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query earnings: %w", err)
	}
	defer rows.Close()

	return scanEarnings(rows)
}

func scanEarnings(rows pgx.Rows) ([]*models.Earning, error) {
	var earnings []*models.Earning
	for rows.Next() {
		var e models.Earning
		if err := rows.Scan(&e.ID, &e.SellerID, &e.OrderID, &e.OrderItemID, &e.Amount, &e.PlatformFee, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan earning: %w", err)
		}
		earnings = append(earnings, &e)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("rows error: %w", rows.Err())
	}

	return earnings, nil
}
