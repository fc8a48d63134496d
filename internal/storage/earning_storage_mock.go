package storage

import (
	"context"

	"github.com/agamariel/marketpay/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// MockEarningStorage - мок для тестирования (экспортируемый для использования в других пакетах)
type MockEarningStorage struct {
	CreateFunc        func(ctx context.Context, tx pgx.Tx, earning *models.Earning) error
	GetBySellerIDFunc func(ctx context.Context, sellerID uuid.UUID) ([]*models.Earning, error)
	GetByOrderIDFunc  func(ctx context.Context, orderID string) ([]*models.Earning, error)
}

func (m *MockEarningStorage) CreateTx(ctx context.Context, tx pgx.Tx, earning *models.Earning) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, earning)
	}
	return nil
}

func (m *MockEarningStorage) GetBySellerID(ctx context.Context, sellerID uuid.UUID) ([]*models.Earning, error) {
	if m.GetBySellerIDFunc != nil {
		return m.GetBySellerIDFunc(ctx, sellerID)
	}
	return []*models.Earning{}, nil
}

func (m *MockEarningStorage) GetByOrderID(ctx context.Context, orderID string) ([]*models.Earning, error) {
	if m.GetByOrderIDFunc != nil {
		return m.GetByOrderIDFunc(ctx, orderID)
	}
	return []*models.Earning{}, nil
}
