package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/agamariel/marketpay/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrPayoutNotFound      = errors.New("payout request not found")
	ErrPayoutStateConflict = errors.New("payout request is in a conflicting state")
)

// PostgresPayoutStorage реализует PayoutStorage для PostgreSQL.
type PostgresPayoutStorage struct {
	pool *pgxpool.Pool
}

// NewPostgresPayoutStorage создаёт новый экземпляр.
func NewPostgresPayoutStorage(pool *pgxpool.Pool) *PostgresPayoutStorage {
	return &PostgresPayoutStorage{pool: pool}
}

// Create создаёт заявку на выплату со статусом pending.
func (s *PostgresPayoutStorage) Create(ctx context.Context, payout *models.PayoutRequest) error {
	if payout.ID == uuid.Nil {
		payout.ID = uuid.New()
	}
	if payout.Status == "" {
		payout.Status = models.PayoutStatusPending
	}

	query := `
		INSERT INTO payout_requests (id, seller_id, amount, status, method, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING created_at
	`

	err := s.pool.QueryRow(ctx, query,
		payout.ID,
		payout.SellerID,
		payout.Amount,
		payout.Status,
		payout.Method,
	).Scan(&payout.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create payout request: %w", err)
	}

	return nil
}

// GetByID возвращает заявку по идентификатору.
func (s *PostgresPayoutStorage) GetByID(ctx context.Context, id uuid.UUID) (*models.PayoutRequest, error) {
	query := `
		SELECT id, seller_id, amount, status, method, created_at, processed_at
		FROM payout_requests
		WHERE id = $1
	`

	payout := &models.PayoutRequest{}
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&payout.ID,
		&payout.SellerID,
		&payout.Amount,
		&payout.Status,
		&payout.Method,
		&payout.CreatedAt,
		&payout.ProcessedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPayoutNotFound
		}
		return nil, fmt.Errorf("failed to get payout request: %w", err)
	}

	return payout, nil
}

// GetBySellerID возвращает заявки продавца, новые первыми.
func (s *PostgresPayoutStorage) GetBySellerID(ctx context.Context, sellerID uuid.UUID) ([]*models.PayoutRequest, error) {
	query := `
		SELECT id, seller_id, amount, status, method, created_at, processed_at
		FROM payout_requests
		WHERE seller_id = $1
		ORDER BY created_at DESC
	`

	rows, err := s.pool.Query(ctx, query, sellerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query payout requests: %w", err)
	}
	defer rows.Close()

	var payouts []*models.PayoutRequest
	for rows.Next() {
		var p models.PayoutRequest
		if err := rows.Scan(&p.ID, &p.SellerID, &p.Amount, &p.Status, &p.Method, &p.CreatedAt, &p.ProcessedAt); err != nil {
			return nil, fmt.Errorf("failed to scan payout request: %w", err)
		}
		payouts = append(payouts, &p)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("rows error: %w", rows.Err())
	}

	return payouts, nil
}

// UpdateStatus переводит заявку из одного из допустимых статусов в новый.
// Условие по статусу в WHERE делает переход атомарным: конкурирующее
// изменение приводит к ErrPayoutStateConflict, а не к потерянному апдейту.
func (s *PostgresPayoutStorage) UpdateStatus(ctx context.Context, id uuid.UUID, from []models.PayoutStatus, to models.PayoutStatus) error {
	query := `
		UPDATE payout_requests
		SET status = $1
		WHERE id = $2 AND status = ANY($3)
	`

	result, err := s.pool.Exec(ctx, query, to, id, statusStrings(from))
	if err != nil {
		return fmt.Errorf("failed to update payout status: %w", err)
	}

	if result.RowsAffected() == 0 {
		// Либо заявки нет, либо она уже в другом статусе
		if _, err := s.GetByID(ctx, id); err != nil {
			return err
		}
		return ErrPayoutStateConflict
	}

	return nil
}

// MarkPaidTx переводит заявку в paid в рамках переданной транзакции.
// Допустимые исходные статусы: pending и approved.
func (s *PostgresPayoutStorage) MarkPaidTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, processedAt time.Time) error {
	query := `
		UPDATE payout_requests
		SET status = $1, processed_at = $2
		WHERE id = $3 AND status = ANY($4)
	`

	from := statusStrings([]models.PayoutStatus{models.PayoutStatusPending, models.PayoutStatusApproved})
	result, err := tx.Exec(ctx, query, models.PayoutStatusPaid, processedAt, id, from)
	if err != nil {
		return fmt.Errorf("failed to mark payout paid: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrPayoutStateConflict
	}

	return nil
}

func statusStrings(statuses []models.PayoutStatus) []string {
	out := make([]string, 0, len(statuses))
	for _, st := range statuses {
		out = append(out, string(st))
	}
	return out
}
