package domain

import "github.com/shopspring/decimal"

// VariationOption is one node of a product's variation tree. Price is only
// meaningful on leaves; HasChildren stays nil until the children lookup for
// the node has completed.
type VariationOption struct {
	ID                  string           `json:"id"`
	Label               string           `json:"label"`
	AttributeName       string           `json:"attribute_name,omitempty"`
	Stock               int              `json:"stock"`
	Price               *decimal.Decimal `json:"price,omitempty"`
	SKU                 string           `json:"sku,omitempty"`
	MaxPurchaseQuantity int              `json:"max_purchase_quantity,omitempty"`
	HasChildren         *bool            `json:"has_children,omitempty"`
}

type VariationAttributeLevel struct {
	AttributeIndex int               `json:"attribute_index"`
	AttributeName  string            `json:"attribute_name"`
	Options        []VariationOption `json:"options"`
}

// FindOption returns the option with the given id.
func (l VariationAttributeLevel) FindOption(id string) (VariationOption, bool) {
	for _, o := range l.Options {
		if o.ID == id {
			return o, true
		}
	}
	return VariationOption{}, false
}
