package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/agamariel/marketpay/internal/checkout"
	"github.com/agamariel/marketpay/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrEmptyCart       = errors.New("cart is empty")
	ErrInvalidCartItem = errors.New("cart item has invalid price or quantity")
)

// CheckoutService описывает создание checkout-сессий.
type CheckoutService interface {
	CreateSession(ctx context.Context, buyerID uuid.UUID, items []models.CartItem) (*models.CheckoutResponse, error)
}

// CheckoutServiceImpl реализует CheckoutService.
type CheckoutServiceImpl struct {
	paymentStorage PaymentStorage
	provider       checkout.Client
	currency       string
	publishableKey string
	successURL     string
	cancelURL      string
}

// NewCheckoutService создаёт сервис оформления оплаты.
func NewCheckoutService(paymentStorage PaymentStorage, provider checkout.Client, currency, publishableKey, successURL, cancelURL string) *CheckoutServiceImpl {
	return &CheckoutServiceImpl{
		paymentStorage: paymentStorage,
		provider:       provider,
		currency:       currency,
		publishableKey: publishableKey,
		successURL:     successURL,
		cancelURL:      cancelURL,
	}
}

// CreateSession создаёт сессию у провайдера и сохраняет платёж.
// Сначала внешний вызов, затем запись: при недоступности провайдера
// не остаётся частично созданного платежа.
func (s *CheckoutServiceImpl) CreateSession(ctx context.Context, buyerID uuid.UUID, items []models.CartItem) (*models.CheckoutResponse, error) {
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	lineItems := make([]checkout.LineItem, 0, len(items))
	total := decimal.Zero
	for _, it := range items {
		if it.Quantity <= 0 || it.Price.LessThanOrEqual(decimal.Zero) {
			return nil, ErrInvalidCartItem
		}
		// Цена позиции в минорных единицах валюты
		unitAmount := it.Price.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
		lineItems = append(lineItems, checkout.LineItem{
			Name:       it.Name,
			UnitAmount: unitAmount,
			Quantity:   it.Quantity,
		})
		total = total.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}

	// Снимок корзины с привязкой продавцов уходит в metadata и
	// возвращается провайдером в событии завершения
	cartJSON, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("marshal cart snapshot: %w", err)
	}

	session, err := s.provider.CreateSession(ctx, &checkout.CreateSessionRequest{
		Mode:       "payment",
		LineItems:  lineItems,
		Currency:   s.currency,
		SuccessURL: s.successURL,
		CancelURL:  s.cancelURL,
		Metadata: map[string]string{
			"user_id":   buyerID.String(),
			"cart_json": string(cartJSON),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create provider session: %w", err)
	}

	payment := &models.Payment{
		SessionID: session.ID,
		OrderID:   models.PendingOrderID,
		Amount:    total,
		Currency:  s.currency,
		Status:    models.PaymentStatusCreated,
	}
	if err := s.paymentStorage.Create(ctx, payment); err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}

	// Провайдер может не возвращать публичный ключ в ответе,
	// тогда используется ключ из конфигурации
	publishableKey := session.PublishableKey
	if publishableKey == "" {
		publishableKey = s.publishableKey
	}

	return &models.CheckoutResponse{
		SessionID:      session.ID,
		PublishableKey: publishableKey,
	}, nil
}
