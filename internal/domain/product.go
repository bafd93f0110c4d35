package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID                  string          `json:"id"`
	Name                string          `json:"name"`
	Description         string          `json:"description,omitempty"`
	Price               decimal.Decimal `json:"price"`
	Stock               int             `json:"stock"`
	// HasStock is false when the payload carried no stock field at all.
	HasStock            bool            `json:"-"`
	SKU                 string          `json:"sku,omitempty"`
	ImageURL            string          `json:"image_url,omitempty"`
	MaxPurchaseQuantity int             `json:"max_purchase_quantity,omitempty"`
	CategoryID          string          `json:"category_id,omitempty"`
	HasVariations       bool            `json:"has_variations"`
	Wishlisted          bool            `json:"wishlisted"`
}

type Category struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	ImageURL string     `json:"image_url,omitempty"`
	ParentID string     `json:"parent_id,omitempty"`
	Children []Category `json:"children,omitempty"`
}

type OrderItem struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	ImageURL    string          `json:"image_url,omitempty"`
}

type Order struct {
	ID          string          `json:"id"`
	Status      string          `json:"status"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Currency    string          `json:"currency,omitempty"`
	Items       []OrderItem     `json:"items"`
	CreatedAt   time.Time       `json:"created_at"`
}

type Profile struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}
