package storage

import (
	"context"
	"time"

	"github.com/agamariel/marketpay/internal/models"
	"github.com/jackc/pgx/v5"
)

// MockPaymentStorage - мок для тестирования (экспортируемый для использования в других пакетах)
type MockPaymentStorage struct {
	CreateFunc                   func(ctx context.Context, payment *models.Payment) error
	GetBySessionIDFunc           func(ctx context.Context, sessionID string) (*models.Payment, error)
	GetBySessionIDForUpdateFunc  func(ctx context.Context, tx pgx.Tx, sessionID string) (*models.Payment, error)
	MarkPaidFunc                 func(ctx context.Context, tx pgx.Tx, sessionID string, orderID string) error
	ExpireCreatedBeforeFunc      func(ctx context.Context, cutoff time.Time) (int64, error)
}

func (m *MockPaymentStorage) Create(ctx context.Context, payment *models.Payment) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, payment)
	}
	return nil
}

func (m *MockPaymentStorage) GetBySessionID(ctx context.Context, sessionID string) (*models.Payment, error) {
	if m.GetBySessionIDFunc != nil {
		return m.GetBySessionIDFunc(ctx, sessionID)
	}
	return nil, ErrPaymentNotFound
}

func (m *MockPaymentStorage) GetBySessionIDForUpdateTx(ctx context.Context, tx pgx.Tx, sessionID string) (*models.Payment, error) {
	if m.GetBySessionIDForUpdateFunc != nil {
		return m.GetBySessionIDForUpdateFunc(ctx, tx, sessionID)
	}
	return nil, ErrPaymentNotFound
}

func (m *MockPaymentStorage) MarkPaidTx(ctx context.Context, tx pgx.Tx, sessionID string, orderID string) error {
	if m.MarkPaidFunc != nil {
		return m.MarkPaidFunc(ctx, tx, sessionID, orderID)
	}
	return nil
}

func (m *MockPaymentStorage) ExpireCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	if m.ExpireCreatedBeforeFunc != nil {
		return m.ExpireCreatedBeforeFunc(ctx, cutoff)
	}
	return 0, nil
}
