package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/agamariel/marketpay/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrPaymentNotFound = errors.New("payment not found")
	ErrSessionExists   = errors.New("payment for session already exists")
	ErrPaymentNotPayable = errors.New("payment is not in a payable state")
)

// PostgresPaymentStorage реализует PaymentStorage для PostgreSQL.
type PostgresPaymentStorage struct {
	pool *pgxpool.Pool
}

// NewPostgresPaymentStorage создаёт новый экземпляр PostgresPaymentStorage.
func NewPostgresPaymentStorage(pool *pgxpool.Pool) *PostgresPaymentStorage {
	return &PostgresPaymentStorage{pool: pool}
}

// Create создаёт платёж со статусом created.
func (s *PostgresPaymentStorage) Create(ctx context.Context, payment *models.Payment) error {
	query := `
		INSERT INTO payments (id, session_id, order_id, amount, currency, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		RETURNING created_at, updated_at
	`

	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	if payment.OrderID == "" {
		payment.OrderID = models.PendingOrderID
	}
	if payment.Status == "" {
		payment.Status = models.PaymentStatusCreated
	}

	err := s.pool.QueryRow(ctx, query,
		payment.ID,
		payment.SessionID,
		payment.OrderID,
		payment.Amount,
		payment.Currency,
		payment.Status,
	).Scan(&payment.CreatedAt, &payment.UpdatedAt)

	if err != nil {
		// Ссылка на сессию провайдера уникальна
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			return ErrSessionExists
		}
		return fmt.Errorf("failed to create payment: %w", err)
	}

	return nil
}

// GetBySessionID ищет платёж по ссылке на сессию провайдера.
func (s *PostgresPaymentStorage) GetBySessionID(ctx context.Context, sessionID string) (*models.Payment, error) {
	query := `
		SELECT id, session_id, order_id, amount, currency, status, created_at, updated_at
		FROM payments
		WHERE session_id = $1
	`

	payment := &models.Payment{}
	err := s.pool.QueryRow(ctx, query, sessionID).Scan(
		&payment.ID,
		&payment.SessionID,
		&payment.OrderID,
		&payment.Amount,
		&payment.Currency,
		&payment.Status,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("failed to get payment by session id: %w", err)
	}

	return payment, nil
}

// GetBySessionIDForUpdateTx блокирует и возвращает платёж в рамках транзакции.
// Блокировка строки сериализует конкурентные доставки одного события.
func (s *PostgresPaymentStorage) GetBySessionIDForUpdateTx(ctx context.Context, tx pgx.Tx, sessionID string) (*models.Payment, error) {
	query := `
		SELECT id, session_id, order_id, amount, currency, status, created_at, updated_at
		FROM payments
		WHERE session_id = $1
		FOR UPDATE
	`

	payment := &models.Payment{}
	err := tx.QueryRow(ctx, query, sessionID).Scan(
		&payment.ID,
		&payment.SessionID,
		&payment.OrderID,
		&payment.Amount,
		&payment.Currency,
		&payment.Status,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("failed to lock payment: %w", err)
	}

	return payment, nil
}

// MarkPaidTx переводит платёж created -> paid и привязывает заказ.
// Условие по статусу делает переход compare-and-swap: повторный вызов
// не проходит и возвращает ErrPaymentNotPayable.
func (s *PostgresPaymentStorage) MarkPaidTx(ctx context.Context, tx pgx.Tx, sessionID string, orderID string) error {
	query := `
		UPDATE payments
		SET status = $1, order_id = $2, updated_at = NOW()
		WHERE session_id = $3 AND status = $4
	`

	result, err := tx.Exec(ctx, query, models.PaymentStatusPaid, orderID, sessionID, models.PaymentStatusCreated)
	if err != nil {
		return fmt.Errorf("failed to mark payment paid: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrPaymentNotPayable
	}

	return nil
}

// ExpireCreatedBefore помечает устаревшие платежи created -> failed.
// Возвращает число затронутых строк.
func (s *PostgresPaymentStorage) ExpireCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `
		UPDATE payments
		SET status = $1, updated_at = NOW()
		WHERE status = $2 AND created_at < $3
	`

	result, err := s.pool.Exec(ctx, query, models.PaymentStatusFailed, models.PaymentStatusCreated, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to expire payments: %w", err)
	}

	return result.RowsAffected(), nil
}
