package storage

import (
	"context"

	"github.com/agamariel/marketpay/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// MockWalletStorage - мок для тестирования (экспортируемый для использования в других пакетах)
type MockWalletStorage struct {
	GetBySellerIDFunc func(ctx context.Context, sellerID uuid.UUID) (*models.SellerWallet, error)
	CreditFunc        func(ctx context.Context, tx pgx.Tx, sellerID uuid.UUID, amount decimal.Decimal) error
	DebitFunc         func(ctx context.Context, tx pgx.Tx, sellerID uuid.UUID, amount decimal.Decimal) error
}

func (m *MockWalletStorage) GetBySellerID(ctx context.Context, sellerID uuid.UUID) (*models.SellerWallet, error) {
	if m.GetBySellerIDFunc != nil {
		return m.GetBySellerIDFunc(ctx, sellerID)
	}
	return nil, ErrWalletNotFound
}

func (m *MockWalletStorage) CreditTx(ctx context.Context, tx pgx.Tx, sellerID uuid.UUID, amount decimal.Decimal) error {
	if m.CreditFunc != nil {
		return m.CreditFunc(ctx, tx, sellerID, amount)
	}
	return nil
}

func (m *MockWalletStorage) DebitTx(ctx context.Context, tx pgx.Tx, sellerID uuid.UUID, amount decimal.Decimal) error {
	if m.DebitFunc != nil {
		return m.DebitFunc(ctx, tx, sellerID, amount)
	}
	return nil
}
