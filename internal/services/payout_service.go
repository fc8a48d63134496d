package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/agamariel/marketpay/internal/models"
	"github.com/agamariel/marketpay/internal/storage"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidPayoutAmount = errors.New("payout amount must be positive")
)

// Способ выплаты по умолчанию.
const defaultPayoutMethod = "manual"

// PayoutService описывает жизненный цикл заявок на выплату и запросы
// продавца к своему кошельку.
type PayoutService interface {
	RequestPayout(ctx context.Context, sellerID uuid.UUID, amount decimal.Decimal, method string) (*models.PayoutRequest, error)
	Approve(ctx context.Context, requestID uuid.UUID) error
	Reject(ctx context.Context, requestID uuid.UUID) error
	MarkPaid(ctx context.Context, requestID uuid.UUID) error
	GetWallet(ctx context.Context, sellerID uuid.UUID) (*models.WalletResponse, error)
	GetEarnings(ctx context.Context, sellerID uuid.UUID) ([]*models.Earning, error)
	GetPayouts(ctx context.Context, sellerID uuid.UUID) ([]*models.PayoutRequest, error)
}

// PayoutServiceImpl реализует PayoutService.
type PayoutServiceImpl struct {
	pool           TxBeginner
	walletStorage  WalletStorage
	earningStorage EarningStorage
	payoutStorage  PayoutStorage
}

// NewPayoutService создаёт сервис выплат.
func NewPayoutService(pool TxBeginner, walletStorage WalletStorage, earningStorage EarningStorage, payoutStorage PayoutStorage) *PayoutServiceImpl {
	return &PayoutServiceImpl{
		pool:           pool,
		walletStorage:  walletStorage,
		earningStorage: earningStorage,
		payoutStorage:  payoutStorage,
	}
}

// RequestPayout создаёт заявку на выплату.
// Проверка баланса здесь предварительная, без резервирования: окончательная
// проверка выполняется в MarkPaid под блокировкой кошелька.
func (s *PayoutServiceImpl) RequestPayout(ctx context.Context, sellerID uuid.UUID, amount decimal.Decimal, method string) (*models.PayoutRequest, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidPayoutAmount
	}

	wallet, err := s.walletStorage.GetBySellerID(ctx, sellerID)
	if err != nil {
		if errors.Is(err, storage.ErrWalletNotFound) {
			// Кошелёк создаётся лениво при первом начислении: нет кошелька - нет средств
			return nil, storage.ErrInsufficientBalance
		}
		return nil, fmt.Errorf("get wallet: %w", err)
	}

	if amount.GreaterThan(wallet.Balance) {
		return nil, storage.ErrInsufficientBalance
	}

	if method == "" {
		method = defaultPayoutMethod
	}

	payout := &models.PayoutRequest{
		SellerID: sellerID,
		Amount:   amount,
		Status:   models.PayoutStatusPending,
		Method:   method,
	}
	if err := s.payoutStorage.Create(ctx, payout); err != nil {
		return nil, fmt.Errorf("create payout request: %w", err)
	}

	return payout, nil
}

// Approve одобряет заявку. Допустим только переход pending -> approved.
func (s *PayoutServiceImpl) Approve(ctx context.Context, requestID uuid.UUID) error {
	return s.payoutStorage.UpdateStatus(ctx, requestID,
		[]models.PayoutStatus{models.PayoutStatusPending}, models.PayoutStatusApproved)
}

// Reject отклоняет заявку. Допустим только переход pending -> rejected,
// баланс не затрагивается.
func (s *PayoutServiceImpl) Reject(ctx context.Context, requestID uuid.UUID) error {
	return s.payoutStorage.UpdateStatus(ctx, requestID,
		[]models.PayoutStatus{models.PayoutStatusPending}, models.PayoutStatusRejected)
}

// MarkPaid помечает заявку выплаченной и списывает средства.
// Баланс перепроверяется под блокировкой: с момента создания заявки он мог
// уменьшиться. Списание и смена статуса - одна транзакция.
func (s *PayoutServiceImpl) MarkPaid(ctx context.Context, requestID uuid.UUID) error {
	payout, err := s.payoutStorage.GetByID(ctx, requestID)
	if err != nil {
		return err
	}

	if payout.Status != models.PayoutStatusPending && payout.Status != models.PayoutStatusApproved {
		return storage.ErrPayoutStateConflict
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// Списание под блокировкой строки кошелька
	if err := s.walletStorage.DebitTx(ctx, tx, payout.SellerID, payout.Amount); err != nil {
		return err
	}

	if err := s.payoutStorage.MarkPaidTx(ctx, tx, requestID, time.Now()); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetWallet возвращает состояние кошелька продавца.
// Для продавца без начислений возвращаются нули.
func (s *PayoutServiceImpl) GetWallet(ctx context.Context, sellerID uuid.UUID) (*models.WalletResponse, error) {
	wallet, err := s.walletStorage.GetBySellerID(ctx, sellerID)
	if err != nil {
		if errors.Is(err, storage.ErrWalletNotFound) {
			return &models.WalletResponse{}, nil
		}
		return nil, fmt.Errorf("get wallet: %w", err)
	}

	balance, _ := wallet.Balance.Float64()
	earned, _ := wallet.TotalEarned.Float64()
	withdrawn, _ := wallet.TotalWithdrawn.Float64()

	return &models.WalletResponse{
		Balance:        balance,
		TotalEarned:    earned,
		TotalWithdrawn: withdrawn,
	}, nil
}

// GetEarnings возвращает начисления продавца.
func (s *PayoutServiceImpl) GetEarnings(ctx context.Context, sellerID uuid.UUID) ([]*models.Earning, error) {
	list, err := s.earningStorage.GetBySellerID(ctx, sellerID)
	if err != nil {
		return nil, err
	}

	return list, nil
}

// GetPayouts возвращает историю заявок продавца.
func (s *PayoutServiceImpl) GetPayouts(ctx context.Context, sellerID uuid.UUID) ([]*models.PayoutRequest, error) {
	list, err := s.payoutStorage.GetBySellerID(ctx, sellerID)
	if err != nil {
		return nil, err
	}

	return list, nil
}
