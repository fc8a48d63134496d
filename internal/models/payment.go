package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentStatus описывает статус платежа.
type PaymentStatus string

const (
	PaymentStatusCreated  PaymentStatus = "created"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// PendingOrderID - значение order_id до привязки заказа при расчёте.
const PendingOrderID = "pending"

// Payment представляет платёж по одной попытке оформления заказа.
type Payment struct {
	ID        uuid.UUID       `db:"id"`
	SessionID string          `db:"session_id"`
	OrderID   string          `db:"order_id"`
	Amount    decimal.Decimal `db:"amount"`
	Currency  string          `db:"currency"`
	Status    PaymentStatus   `db:"status"`
	CreatedAt time.Time       `db:"created_at"`
	UpdatedAt time.Time       `db:"updated_at"`
}

// CheckoutResponse - ответ на создание checkout-сессии.
type CheckoutResponse struct {
	SessionID      string `json:"id"`
	PublishableKey string `json:"publishableKey"`
}
