package services

import (
	"context"
	"time"

	"github.com/agamariel/marketpay/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// TxBeginner открывает транзакции базы данных. Реализуется pgxpool.Pool.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PaymentStorage определяет интерфейс для работы с платежами.
type PaymentStorage interface {
	Create(ctx context.Context, payment *models.Payment) error
	GetBySessionID(ctx context.Context, sessionID string) (*models.Payment, error)
	GetBySessionIDForUpdateTx(ctx context.Context, tx pgx.Tx, sessionID string) (*models.Payment, error)
	MarkPaidTx(ctx context.Context, tx pgx.Tx, sessionID string, orderID string) error
	ExpireCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// EarningStorage определяет интерфейс для работы с начислениями.
type EarningStorage interface {
	CreateTx(ctx context.Context, tx pgx.Tx, earning *models.Earning) error
	GetBySellerID(ctx context.Context, sellerID uuid.UUID) ([]*models.Earning, error)
	GetByOrderID(ctx context.Context, orderID string) ([]*models.Earning, error)
}

// WalletStorage определяет интерфейс для работы с кошельками продавцов.
type WalletStorage interface {
	GetBySellerID(ctx context.Context, sellerID uuid.UUID) (*models.SellerWallet, error)
	CreditTx(ctx context.Context, tx pgx.Tx, sellerID uuid.UUID, amount decimal.Decimal) error
	DebitTx(ctx context.Context, tx pgx.Tx, sellerID uuid.UUID, amount decimal.Decimal) error
}

// PayoutStorage определяет интерфейс для работы с заявками на выплату.
type PayoutStorage interface {
	Create(ctx context.Context, payout *models.PayoutRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.PayoutRequest, error)
	GetBySellerID(ctx context.Context, sellerID uuid.UUID) ([]*models.PayoutRequest, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from []models.PayoutStatus, to models.PayoutStatus) error
	MarkPaidTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, processedAt time.Time) error
}
