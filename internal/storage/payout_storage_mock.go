package storage

import (
	"context"
	"time"

	"github.com/agamariel/marketpay/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// MockPayoutStorage - мок для тестирования (экспортируемый для использования в других пакетах)
type MockPayoutStorage struct {
	CreateFunc        func(ctx context.Context, payout *models.PayoutRequest) error
	GetByIDFunc       func(ctx context.Context, id uuid.UUID) (*models.PayoutRequest, error)
	GetBySellerIDFunc func(ctx context.Context, sellerID uuid.UUID) ([]*models.PayoutRequest, error)
	UpdateStatusFunc  func(ctx context.Context, id uuid.UUID, from []models.PayoutStatus, to models.PayoutStatus) error
	MarkPaidFunc      func(ctx context.Context, tx pgx.Tx, id uuid.UUID, processedAt time.Time) error
}

func (m *MockPayoutStorage) Create(ctx context.Context, payout *models.PayoutRequest) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, payout)
	}
	return nil
}

func (m *MockPayoutStorage) GetByID(ctx context.Context, id uuid.UUID) (*models.PayoutRequest, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, ErrPayoutNotFound
}

func (m *MockPayoutStorage) GetBySellerID(ctx context.Context, sellerID uuid.UUID) ([]*models.PayoutRequest, error) {
	if m.GetBySellerIDFunc != nil {
		return m.GetBySellerIDFunc(ctx, sellerID)
	}
	return []*models.PayoutRequest{}, nil
}

func (m *MockPayoutStorage) UpdateStatus(ctx context.Context, id uuid.UUID, from []models.PayoutStatus, to models.PayoutStatus) error {
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, id, from, to)
	}
	return nil
}

func (m *MockPayoutStorage) MarkPaidTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, processedAt time.Time) error {
	if m.MarkPaidFunc != nil {
		return m.MarkPaidFunc(ctx, tx, id, processedAt)
	}
	return nil
}
