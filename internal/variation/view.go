package variation

import (
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/shopspring/decimal"
)

type State int

const (
	Uninitialized State = iota
	BaseProductOnly
	LevelReady
	Closed
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case BaseProductOnly:
		return "base_product_only"
	case LevelReady:
		return "level_ready"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// View is the state a product detail screen renders.
type View struct {
	ProductID            string                           `json:"product_id"`
	State                State                            `json:"state"`
	AvailableLevels      []domain.VariationAttributeLevel `json:"available_levels"`
	Selections           map[int]domain.VariationOption   `json:"selections"`
	CurrentVariation     *domain.VariationOption          `json:"current_variation,omitempty"`
	EnableAddToCart      bool                             `json:"enable_add_to_cart"`
	VariationDisplayName string                           `json:"variation_display_name,omitempty"`
	Quantity             int                              `json:"quantity"`
	Price                decimal.Decimal                  `json:"price"`
	Stock                int                              `json:"stock"`
}

// Level returns the options visible at index.
func (v View) Level(index int) (domain.VariationAttributeLevel, bool) {
	for _, l := range v.AvailableLevels {
		if l.AttributeIndex == index {
			return l, true
		}
	}
	return domain.VariationAttributeLevel{}, false
}

// MaxSelectedIndex returns the deepest selected attribute index, or -1.
func (v View) MaxSelectedIndex() int {
	max := -1
	for k := range v.Selections {
		if k > max {
			max = k
		}
	}
	return max
}
