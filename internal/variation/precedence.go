package variation

import "github.com/shopspring/decimal"

// Every value below resolves in the same order: the selected leaf variation,
// then the product snapshot fetched by Initialize, then the listed product.
// Listed values can be stale; the snapshot and the variation are fetched
// fresh for this session.

func (r *Resolver) priceLocked() decimal.Decimal {
	if r.current != nil && r.current.Price != nil {
		return *r.current.Price
	}
	if r.snapshot != nil && !r.snapshot.Price.IsZero() {
		return r.snapshot.Price
	}
	return r.listed.Price
}

func (r *Resolver) stockLocked() int {
	if r.current != nil {
		return r.current.Stock
	}
	if r.snapshot != nil && r.snapshot.HasStock {
		return r.snapshot.Stock
	}
	return r.listed.Stock
}

func (r *Resolver) maxPurchaseLocked() int {
	if r.current != nil && r.current.MaxPurchaseQuantity > 0 {
		return r.current.MaxPurchaseQuantity
	}
	if r.snapshot != nil && r.snapshot.MaxPurchaseQuantity > 0 {
		return r.snapshot.MaxPurchaseQuantity
	}
	return r.listed.MaxPurchaseQuantity
}

func (r *Resolver) skuLocked() string {
	if r.current != nil && r.current.SKU != "" {
		return r.current.SKU
	}
	if r.snapshot != nil && r.snapshot.SKU != "" {
		return r.snapshot.SKU
	}
	return r.listed.SKU
}

func (r *Resolver) nameLocked() string {
	if r.snapshot != nil && r.snapshot.Name != "" {
		return r.snapshot.Name
	}
	return r.listed.Name
}

func (r *Resolver) imageLocked() string {
	if r.snapshot != nil && r.snapshot.ImageURL != "" {
		return r.snapshot.ImageURL
	}
	return r.listed.ImageURL
}
