package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartLineItem is one line of the client-side cart. Lines are unique per
// (ProductID, VariantFingerprint).
type CartLineItem struct {
	ID                   string          `json:"id"`
	ProductID            string          `json:"product_id"`
	VariationID          string          `json:"variation_id,omitempty"`
	VariantFingerprint   string          `json:"variant_fingerprint"`
	Name                 string          `json:"name"`
	UnitPrice            decimal.Decimal `json:"unit_price"`
	Quantity             int             `json:"quantity"`
	ImageURL             string          `json:"image_url,omitempty"`
	SKU                  string          `json:"sku,omitempty"`
	VariationDisplayName string          `json:"variation_display_name,omitempty"`
	AddedAt              time.Time       `json:"added_at"`
}

// Subtotal is UnitPrice * Quantity.
func (i CartLineItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type CartSummary struct {
	Items       []CartLineItem  `json:"items"`
	ItemCount   int             `json:"item_count"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// Candidate is a fully resolved purchase: either the base product or a leaf
// variation.
type Candidate struct {
	ProductID            string            `json:"product_id"`
	VariationID          string            `json:"variation_id,omitempty"`
	Name                 string            `json:"name"`
	Price                decimal.Decimal   `json:"price"`
	Stock                int               `json:"stock"`
	SKU                  string            `json:"sku,omitempty"`
	MaxPurchaseQuantity  int               `json:"max_purchase_quantity,omitempty"`
	VariationDisplayName string            `json:"variation_display_name,omitempty"`
	ImageURL             string            `json:"image_url,omitempty"`
	Attributes           map[string]string `json:"attributes,omitempty"`
}

// IsVariation reports whether the candidate is a leaf variation rather than
// the base product.
func (c Candidate) IsVariation() bool {
	return c.VariationID != ""
}

// Addable is the add-to-cart gate.
func (c Candidate) Addable() bool {
	return c.Stock > 0
}
