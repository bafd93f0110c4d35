package catalog

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, s string) map[string]any {
	t.Helper()
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()
	var m map[string]any
	require.NoError(t, dec.Decode(&m))
	return m
}

func TestNormalizeProduct_ImageFallbackChain(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"cover wins", `{"cover":"c.png","image":"i.png","thumbnail":"t.png"}`, "c.png"},
		{"image", `{"image":"i.png","image_url":"u.png"}`, "i.png"},
		{"image_url", `{"image":"","image_url":"u.png"}`, "u.png"},
		{"thumbnail", `{"thumbnail":"t.png"}`, "t.png"},
		{"first of images", `{"images":["a.png","b.png"]}`, "a.png"},
		{"image object", `{"images":[{"id":9,"url":"o.png"}]}`, "o.png"},
		{"none", `{"name":"x"}`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeProduct(decode(t, tt.body)).ImageURL)
		})
	}
}

func TestNormalizeProduct_Fields(t *testing.T) {
	p := NormalizeProduct(decode(t, `{
		"product_id": 17,
		"title": "Desk",
		"unit_price": 120.25,
		"stock": "4",
		"category": {"id": 3, "name": "Furniture"},
		"max_quantity": 2,
		"variations": [{"id": "v1"}],
		"is_wishlisted": true
	}`))

	assert.Equal(t, "17", p.ID)
	assert.Equal(t, "Desk", p.Name)
	assert.Equal(t, "120.25", p.Price.String())
	assert.Equal(t, 4, p.Stock)
	assert.True(t, p.HasStock)
	assert.Equal(t, "3", p.CategoryID)
	assert.Equal(t, 2, p.MaxPurchaseQuantity)
	assert.True(t, p.HasVariations)
	assert.True(t, p.Wishlisted)
}

func TestNormalizeProduct_MissingStock(t *testing.T) {
	p := NormalizeProduct(decode(t, `{"id":"p1","name":"Lamp","price":"10"}`))
	assert.Equal(t, 0, p.Stock)
	assert.False(t, p.HasStock)

	zero := NormalizeProduct(decode(t, `{"id":"p1","stock":0}`))
	assert.True(t, zero.HasStock)
}

func TestNormalizeVariationOption_OptionalFields(t *testing.T) {
	o := NormalizeVariationOption(decode(t, `{"id":"red","name":"Red","attribute_name":"Color"}`))
	assert.Equal(t, "Red", o.Label)
	assert.Nil(t, o.Price)
	assert.Nil(t, o.HasChildren)

	leaf := NormalizeVariationOption(decode(t, `{"variation_id":5,"option_label":"128GB","price":"549.00","has_children":false,"stock":0}`))
	assert.Equal(t, "5", leaf.ID)
	assert.Equal(t, "128GB", leaf.Label)
	require.NotNil(t, leaf.Price)
	assert.Equal(t, "549", leaf.Price.String())
	require.NotNil(t, leaf.HasChildren)
	assert.False(t, *leaf.HasChildren)
}

func TestNormalizeOrder(t *testing.T) {
	o := NormalizeOrder(decode(t, `{
		"order_number": "A-100",
		"status": "DELIVERED",
		"total": "59.80",
		"created_at": "2026-03-01T10:00:00Z",
		"line_items": [
			{"qty": 2, "price": 29.9, "product": {"id": "p1", "name": "Mug", "thumbnail": "m.png"}}
		]
	}`))

	assert.Equal(t, "A-100", o.ID)
	assert.Equal(t, "delivered", o.Status)
	assert.Equal(t, "59.8", o.TotalAmount.String())
	assert.Equal(t, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), o.CreatedAt)
	require.Len(t, o.Items, 1)
	assert.Equal(t, "p1", o.Items[0].ProductID)
	assert.Equal(t, "Mug", o.Items[0].ProductName)
	assert.Equal(t, "m.png", o.Items[0].ImageURL)
	assert.Equal(t, 2, o.Items[0].Quantity)
}

func TestNormalizeOrder_NoItems(t *testing.T) {
	o := NormalizeOrder(decode(t, `{"id":"1"}`))
	assert.NotNil(t, o.Items)
	assert.Empty(t, o.Items)
}

func TestNormalizeCategory_NestedChildren(t *testing.T) {
	c := NormalizeCategory(decode(t, `{
		"id": 1, "name": "Clothing",
		"subcategories": [
			{"id": 2, "name": "Shirts", "children": [{"id": 4, "title": "Polo"}]},
			{"id": 3, "name": "Shoes", "icon": "s.svg"}
		]
	}`))

	require.Len(t, c.Children, 2)
	assert.Equal(t, "1", c.Children[0].ParentID)
	assert.Equal(t, "s.svg", c.Children[1].ImageURL)
	require.Len(t, c.Children[0].Children, 1)
	assert.Equal(t, "Polo", c.Children[0].Children[0].Name)
	assert.Equal(t, "2", c.Children[0].Children[0].ParentID)
}

func TestNormalizeProfile_NameFromParts(t *testing.T) {
	p := NormalizeProfile(decode(t, `{"user_id":8,"first_name":"Ada","last_name":"Lovelace","email_address":"ada@example.com","avatar_url":"a.png"}`))
	assert.Equal(t, "8", p.ID)
	assert.Equal(t, "Ada Lovelace", p.Name)
	assert.Equal(t, "ada@example.com", p.Email)
	assert.Equal(t, "a.png", p.AvatarURL)
}
