package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/agamariel/marketpay/internal/checkout"
	"github.com/agamariel/marketpay/internal/models"
	"github.com/agamariel/marketpay/internal/orders"
	"github.com/agamariel/marketpay/internal/storage"
	"github.com/agamariel/marketpay/internal/utils"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidSignature = errors.New("invalid webhook signature")
	// ErrPaymentConflict возвращается, когда событие завершения приходит
	// для платежа в терминальном статусе (failed/refunded).
	ErrPaymentConflict = errors.New("payment is in a terminal state")
)

// Допуск на возраст метки времени в подписи вебхука.
const signatureTolerance = 5 * time.Minute

// SettlementService обрабатывает события завершения оплаты.
type SettlementService interface {
	Settle(ctx context.Context, payload []byte, signatureHeader string) error
}

// SettlementServiceImpl реализует SettlementService.
type SettlementServiceImpl struct {
	pool           TxBeginner
	paymentStorage PaymentStorage
	earningStorage EarningStorage
	walletStorage  WalletStorage
	orderClient    orders.Client
	webhookSecret  string
	feeRate        decimal.Decimal // доля комиссии площадки, например 0.10
	logger         *log.Logger
}

// NewSettlementService создаёт сервис расчётов.
// feePercent - комиссия площадки в процентах (10 означает 10%).
func NewSettlementService(
	pool TxBeginner,
	paymentStorage PaymentStorage,
	earningStorage EarningStorage,
	walletStorage WalletStorage,
	orderClient orders.Client,
	webhookSecret string,
	feePercent decimal.Decimal,
	logger *log.Logger,
) *SettlementServiceImpl {
	if logger == nil {
		logger = log.Default()
	}
	return &SettlementServiceImpl{
		pool:           pool,
		paymentStorage: paymentStorage,
		earningStorage: earningStorage,
		walletStorage:  walletStorage,
		orderClient:    orderClient,
		webhookSecret:  webhookSecret,
		feeRate:        feePercent.Div(decimal.NewFromInt(100)),
		logger:         logger,
	}
}

// Settle обрабатывает входящее событие вебхука ровно один раз.
// Провайдер доставляет события как минимум однажды, поэтому повторная
// доставка должна быть no-op: проверка статуса платежа выполняется под
// блокировкой строки, распределение - в той же транзакции.
func (s *SettlementServiceImpl) Settle(ctx context.Context, payload []byte, signatureHeader string) error {
	if !utils.VerifySignature(payload, signatureHeader, s.webhookSecret, signatureTolerance) {
		return ErrInvalidSignature
	}

	event, err := checkout.ParseEvent(payload)
	if err != nil {
		return fmt.Errorf("parse webhook event: %w", err)
	}

	// Прочие типы событий подтверждаем без обработки
	if event.Type != checkout.EventTypeSessionCompleted {
		return nil
	}

	sessionID := event.Data.Object.ID
	if sessionID == "" {
		return fmt.Errorf("event without session id")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	payment, err := s.paymentStorage.GetBySessionIDForUpdateTx(ctx, tx, sessionID)
	if err != nil {
		if errors.Is(err, storage.ErrPaymentNotFound) {
			// Событие для неизвестной сессии подтверждаем: повторять его бессмысленно
			s.logger.Printf("settlement: unknown session %s, acknowledged", sessionID)
			return nil
		}
		return err
	}

	// Идемпотентный барьер: платёж уже рассчитан
	if payment.Status == models.PaymentStatusPaid {
		s.logger.Printf("settlement: session %s already paid, skipping", sessionID)
		return nil
	}
	if payment.Status != models.PaymentStatusCreated {
		// Завершение по failed/refunded платежу требует внимания оператора
		return fmt.Errorf("%w: session %s has status %s", ErrPaymentConflict, sessionID, payment.Status)
	}

	cartItems, err := parseCartSnapshot(event.Data.Object.Metadata)
	if err != nil {
		return fmt.Errorf("parse cart snapshot for session %s: %w", sessionID, err)
	}
	buyerID := event.Data.Object.Metadata["user_id"]

	// Привязка заказа, если он ещё не создан
	orderID := payment.OrderID
	if orderID == models.PendingOrderID {
		orderID, err = s.orderClient.CreateOrder(ctx, buyerID, payment.Amount)
		if err != nil {
			return fmt.Errorf("create order: %w", err)
		}
	}

	if err := s.paymentStorage.MarkPaidTx(ctx, tx, sessionID, orderID); err != nil {
		return err
	}

	if err := s.distributeEarnings(ctx, tx, orderID, cartItems); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	s.logger.Printf("settlement: session %s settled, order %s", sessionID, orderID)
	return nil
}

// distributeEarnings создаёт начисления по позициям и кредитует кошельки.
// Округление до минорных единиц выполняется по каждой позиции отдельно,
// половина округляется вверх (Decimal.Round).
func (s *SettlementServiceImpl) distributeEarnings(ctx context.Context, tx pgx.Tx, orderID string, items []models.CartItem) error {
	sellerTotals := make(map[uuid.UUID]decimal.Decimal)

	for _, it := range items {
		gross := it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))).Round(2)
		platformFee := gross.Mul(s.feeRate).Round(2)
		sellerAmount := gross.Sub(platformFee)

		earning := &models.Earning{
			SellerID:    it.SellerID,
			OrderID:     orderID,
			OrderItemID: it.ProductID,
			Amount:      sellerAmount,
			PlatformFee: platformFee,
		}

		if it.SellerID == nil {
			// Позиция без продавца: вся сумма - доход площадки
			earning.Amount = decimal.Zero
			earning.PlatformFee = gross
			s.logger.Printf("settlement: order %s item %s has no seller, recorded as platform revenue %s", orderID, it.ProductID, gross.String())
		}

		if err := s.earningStorage.CreateTx(ctx, tx, earning); err != nil {
			return err
		}

		if it.SellerID != nil {
			sellerID := *it.SellerID
			sellerTotals[sellerID] = sellerTotals[sellerID].Add(sellerAmount)
		}
	}

	// Один кредит на продавца вместо множества мелких обновлений
	for sellerID, amount := range sellerTotals {
		if err := s.walletStorage.CreditTx(ctx, tx, sellerID, amount); err != nil {
			return err
		}
	}

	return nil
}

// parseCartSnapshot восстанавливает снимок корзины из metadata события.
func parseCartSnapshot(metadata map[string]string) ([]models.CartItem, error) {
	raw, ok := metadata["cart_json"]
	if !ok || raw == "" {
		return nil, errors.New("cart snapshot missing in metadata")
	}

	var items []models.CartItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, err
	}

	return items, nil
}
