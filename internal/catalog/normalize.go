package catalog

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/shopspring/decimal"
)

// The commerce API is not consistent about field names across endpoints.
// Each normalizer lists the accepted names in order of preference; the first
// non-empty value wins.

var imageKeys = []string{"cover", "image", "image_url", "thumbnail", "images"}

func NormalizeProduct(m map[string]any) domain.Product {
	p := domain.Product{
		ID:                  firstString(m, "id", "product_id", "_id"),
		Name:                firstString(m, "name", "title", "product_name"),
		Description:         firstString(m, "description", "desc", "summary"),
		Price:               firstDecimal(m, "price", "unit_price", "amount"),
		SKU:                 firstString(m, "sku", "code"),
		ImageURL:            firstString(m, imageKeys...),
		MaxPurchaseQuantity: firstInt(m, "max_purchase_quantity", "max_quantity", "purchase_limit"),
		CategoryID:          firstString(m, "category_id", "category"),
		Wishlisted:          firstBool(m, "wishlisted", "is_wishlisted", "in_wishlist"),
	}
	p.Stock, p.HasStock = lookupInt(m, "stock", "stock_quantity", "quantity", "inventory")
	if b, ok := lookupBool(m, "has_variations", "has_variants"); ok {
		p.HasVariations = b
	} else if vs, ok := m["variations"].([]any); ok {
		p.HasVariations = len(vs) > 0
	}
	return p
}

// NormalizeCategory converts one category and its nested children.
func NormalizeCategory(m map[string]any) domain.Category {
	c := domain.Category{
		ID:       firstString(m, "id", "category_id", "_id"),
		Name:     firstString(m, "name", "title"),
		ImageURL: firstString(m, append([]string{"icon"}, imageKeys...)...),
		ParentID: firstString(m, "parent_id", "parent"),
	}
	for _, key := range []string{"children", "subcategories", "sub_categories"} {
		children, ok := m[key].([]any)
		if !ok || len(children) == 0 {
			continue
		}
		for _, child := range children {
			if cm, ok := child.(map[string]any); ok {
				nested := NormalizeCategory(cm)
				if nested.ParentID == "" {
					nested.ParentID = c.ID
				}
				c.Children = append(c.Children, nested)
			}
		}
		break
	}
	return c
}

func NormalizeOrder(m map[string]any) domain.Order {
	o := domain.Order{
		ID:          firstString(m, "id", "order_id", "order_number", "_id"),
		Status:      strings.ToLower(firstString(m, "status", "order_status", "state")),
		TotalAmount: firstDecimal(m, "total_amount", "total", "amount", "grand_total"),
		Currency:    firstString(m, "currency", "currency_code"),
		CreatedAt:   firstTime(m, "created_at", "createdAt", "date", "placed_at"),
		Items:       []domain.OrderItem{},
	}
	for _, key := range []string{"items", "order_items", "line_items"} {
		items, ok := m[key].([]any)
		if !ok {
			continue
		}
		for _, it := range items {
			if im, ok := it.(map[string]any); ok {
				o.Items = append(o.Items, normalizeOrderItem(im))
			}
		}
		break
	}
	return o
}

func normalizeOrderItem(m map[string]any) domain.OrderItem {
	item := domain.OrderItem{
		ProductID:   firstString(m, "product_id", "id"),
		ProductName: firstString(m, "product_name", "name", "title"),
		Quantity:    firstInt(m, "quantity", "qty"),
		Price:       firstDecimal(m, "price", "unit_price", "amount"),
		ImageURL:    firstString(m, imageKeys...),
	}
	if product, ok := m["product"].(map[string]any); ok {
		p := NormalizeProduct(product)
		if item.ProductID == "" {
			item.ProductID = p.ID
		}
		if item.ProductName == "" {
			item.ProductName = p.Name
		}
		if item.ImageURL == "" {
			item.ImageURL = p.ImageURL
		}
		if item.Price.IsZero() {
			item.Price = p.Price
		}
	}
	return item
}

// NormalizeVariationOption keeps Price and HasChildren nil when the payload
// does not carry them.
func NormalizeVariationOption(m map[string]any) domain.VariationOption {
	o := domain.VariationOption{
		ID:                  firstString(m, "id", "variation_id", "option_id", "_id"),
		Label:               firstString(m, "label", "option_label", "value", "name"),
		AttributeName:       firstString(m, "attribute_name", "attribute", "attribute_label"),
		Stock:               firstInt(m, "stock", "stock_quantity", "quantity"),
		SKU:                 firstString(m, "sku", "code"),
		MaxPurchaseQuantity: firstInt(m, "max_purchase_quantity", "max_quantity", "purchase_limit"),
	}
	if d, ok := lookupDecimal(m, "price", "unit_price"); ok {
		o.Price = &d
	}
	if b, ok := lookupBool(m, "has_children", "has_child"); ok {
		o.HasChildren = &b
	}
	return o
}

func NormalizeProfile(m map[string]any) domain.Profile {
	p := domain.Profile{
		ID:        firstString(m, "id", "user_id", "_id"),
		Name:      firstString(m, "name", "full_name", "display_name"),
		Email:     firstString(m, "email", "email_address"),
		Phone:     firstString(m, "phone", "phone_number", "mobile"),
		AvatarURL: firstString(m, "avatar", "avatar_url", "photo", "image"),
	}
	if p.Name == "" {
		p.Name = strings.TrimSpace(firstString(m, "first_name") + " " + firstString(m, "last_name"))
	}
	return p
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s := asString(m[k]); s != "" {
			return s
		}
	}
	return ""
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case []any:
		if len(t) > 0 {
			return asString(t[0])
		}
	case map[string]any:
		// nested objects such as {"category": {"id": 3}} or {"image": {"url": ...}}
		return firstString(t, "url", "src", "id")
	}
	return ""
}

func lookupDecimal(m map[string]any, keys ...string) (decimal.Decimal, bool) {
	for _, k := range keys {
		switch t := m[k].(type) {
		case json.Number:
			if d, err := decimal.NewFromString(t.String()); err == nil {
				return d, true
			}
		case float64:
			return decimal.NewFromFloat(t), true
		case string:
			if d, err := decimal.NewFromString(strings.TrimSpace(t)); err == nil {
				return d, true
			}
		}
	}
	return decimal.Decimal{}, false
}

func firstDecimal(m map[string]any, keys ...string) decimal.Decimal {
	d, _ := lookupDecimal(m, keys...)
	return d
}

func lookupInt(m map[string]any, keys ...string) (int, bool) {
	for _, k := range keys {
		switch t := m[k].(type) {
		case json.Number:
			if n, err := t.Int64(); err == nil {
				return int(n), true
			}
			if f, err := t.Float64(); err == nil {
				return int(f), true
			}
		case float64:
			return int(t), true
		case string:
			if n, err := strconv.Atoi(strings.TrimSpace(t)); err == nil {
				return n, true
			}
		}
	}
	return 0, false
}

func firstInt(m map[string]any, keys ...string) int {
	n, _ := lookupInt(m, keys...)
	return n
}

func lookupBool(m map[string]any, keys ...string) (bool, bool) {
	for _, k := range keys {
		switch t := m[k].(type) {
		case bool:
			return t, true
		case string:
			if b, err := strconv.ParseBool(t); err == nil {
				return b, true
			}
		case json.Number:
			return t.String() != "0", true
		case float64:
			return t != 0, true
		}
	}
	return false, false
}

func firstBool(m map[string]any, keys ...string) bool {
	b, _ := lookupBool(m, keys...)
	return b
}

func firstTime(m map[string]any, keys ...string) time.Time {
	for _, k := range keys {
		s, ok := m[k].(string)
		if !ok || s == "" {
			continue
		}
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, s); err == nil {
				return t
			}
		}
	}
	return time.Time{}
}
