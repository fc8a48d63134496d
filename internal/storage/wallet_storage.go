package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/agamariel/marketpay/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrInsufficientBalance = errors.New("insufficient balance")
)

// PostgresWalletStorage реализует WalletStorage для PostgreSQL.
type PostgresWalletStorage struct {
	pool *pgxpool.Pool
}

// NewPostgresWalletStorage создаёт новый экземпляр PostgresWalletStorage.
func NewPostgresWalletStorage(pool *pgxpool.Pool) *PostgresWalletStorage {
	return &PostgresWalletStorage{pool: pool}
}

// GetBySellerID возвращает кошелёк продавца.
func (s *PostgresWalletStorage) GetBySellerID(ctx context.Context, sellerID uuid.UUID) (*models.SellerWallet, error) {
	query := `
		SELECT id, seller_id, balance, total_earned, total_withdrawn, created_at, updated_at
		FROM seller_wallets
		WHERE seller_id = $1
	`

	wallet := &models.SellerWallet{}
	err := s.pool.QueryRow(ctx, query, sellerID).Scan(
		&wallet.ID,
		&wallet.SellerID,
		&wallet.Balance,
		&wallet.TotalEarned,
		&wallet.TotalWithdrawn,
		&wallet.CreatedAt,
		&wallet.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}

	return wallet, nil
}

// CreditTx начисляет сумму на кошелёк продавца в рамках транзакции.
// Upsert создаёт кошелёк при первом начислении атомарно, без отдельного
// read-then-write get-or-create.
func (s *PostgresWalletStorage) CreditTx(ctx context.Context, tx pgx.Tx, sellerID uuid.UUID, amount decimal.Decimal) error {
	query := `
		INSERT INTO seller_wallets (id, seller_id, balance, total_earned, total_withdrawn, created_at, updated_at)
		VALUES ($1, $2, $3, $3, 0, NOW(), NOW())
		ON CONFLICT (seller_id) DO UPDATE
		SET balance = seller_wallets.balance + EXCLUDED.balance,
		    total_earned = seller_wallets.total_earned + EXCLUDED.total_earned,
		    updated_at = NOW()
	`

	_, err := tx.Exec(ctx, query, uuid.New(), sellerID, amount)
	if err != nil {
		return fmt.Errorf("failed to credit wallet: %w", err)
	}

	return nil
}

// DebitTx списывает сумму с кошелька в рамках переданной транзакции.
// Строка кошелька блокируется, баланс проверяется под блокировкой.
func (s *PostgresWalletStorage) DebitTx(ctx context.Context, tx pgx.Tx, sellerID uuid.UUID, amount decimal.Decimal) error {
	var currentBalance decimal.Decimal
	checkQuery := `SELECT balance FROM seller_wallets WHERE seller_id = $1 FOR UPDATE`
	err := tx.QueryRow(ctx, checkQuery, sellerID).Scan(&currentBalance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrWalletNotFound
		}
		return fmt.Errorf("failed to check balance: %w", err)
	}

	if currentBalance.LessThan(amount) {
		return ErrInsufficientBalance
	}

	updateQuery := `
		UPDATE seller_wallets
		SET balance = balance - $1, total_withdrawn = total_withdrawn + $1, updated_at = NOW()
		WHERE seller_id = $2
	`
	_, err = tx.Exec(ctx, updateQuery, amount, sellerID)
	if err != nil {
		return fmt.Errorf("failed to debit wallet: %w", err)
	}

	return nil
}
