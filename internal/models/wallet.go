package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SellerWallet представляет кошелёк продавца.
// Инвариант: Balance = TotalEarned - TotalWithdrawn, Balance >= 0.
type SellerWallet struct {
	ID             uuid.UUID       `db:"id"`
	SellerID       uuid.UUID       `db:"seller_id"`
	Balance        decimal.Decimal `db:"balance"`
	TotalEarned    decimal.Decimal `db:"total_earned"`
	TotalWithdrawn decimal.Decimal `db:"total_withdrawn"`
	CreatedAt      time.Time       `db:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at"`
}

// WalletResponse - ответ с состоянием кошелька продавца.
type WalletResponse struct {
	Balance        float64 `json:"current"`
	TotalEarned    float64 `json:"total_earned"`
	TotalWithdrawn float64 `json:"withdrawn"`
}
