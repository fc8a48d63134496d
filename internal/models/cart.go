package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartItem - позиция корзины, передаваемая провайдеру в metadata.
// SellerID может отсутствовать, если товар не привязан к продавцу.
type CartItem struct {
	ProductID string          `json:"id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	SellerID  *uuid.UUID      `json:"seller_id"`
}

// CheckoutRequest - запрос на создание checkout-сессии.
type CheckoutRequest struct {
	Items []CartItem `json:"items"`
}
