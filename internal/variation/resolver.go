// Package variation drives the attribute selection for one product detail
// session: it walks the variation tree level by level, asking the backend for
// the children of each chosen option, until it reaches a purchasable leaf.
package variation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"go.uber.org/zap"
)

// DefaultMaxPurchaseQuantity caps the quantity selector when neither the
// variation nor the product carries its own limit.
const DefaultMaxPurchaseQuantity = 100

const displaySeparator = " • "

var (
	ErrClosed            = errors.New("variation resolver closed")
	ErrLevelNotAvailable = errors.New("attribute level not available")
	ErrUnknownOption     = errors.New("option not available at this level")
	ErrNotAddable        = errors.New("no purchasable selection")
)

// Lookup is the backend the resolver walks. ChildVariations returns an empty
// slice for leaves.
type Lookup interface {
	InitialVariations(ctx context.Context, productID string) ([]domain.VariationOption, error)
	ChildVariations(ctx context.Context, productID, optionID string) ([]domain.VariationOption, error)
	VariationAncestors(ctx context.Context, productID, optionID string) (string, error)
	ProductSnapshot(ctx context.Context, productID string) (domain.Product, error)
}

// CartAdder is the part of the cart the resolver hands candidates to.
type CartAdder interface {
	AddItem(c domain.Candidate, quantity int) domain.CartLineItem
}

type Option func(*Resolver)

func WithLogger(log *zap.Logger) Option {
	return func(r *Resolver) { r.log = log }
}

// Resolver holds the selection state of one product. Lookups run without the
// lock held; every lookup carries a token and only the response for the
// latest token is applied.
type Resolver struct {
	mu     sync.Mutex
	lookup Lookup
	log    *zap.Logger

	listed   domain.Product
	snapshot *domain.Product

	state       State
	initial     []domain.VariationOption
	unresolved  bool
	levels      map[int][]domain.VariationOption
	selections  map[int]domain.VariationOption
	current     *domain.VariationOption
	displayName string
	quantity    int
	token       uint64

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a resolver for product. product carries the listed values the
// UI already had when the detail view was opened.
func New(product domain.Product, lookup Lookup, opts ...Option) *Resolver {
	ctx, cancel := context.WithCancel(context.Background())
	r := &Resolver{
		lookup:     lookup,
		log:        zap.NewNop(),
		listed:     product,
		state:      Uninitialized,
		levels:     make(map[int][]domain.VariationOption),
		selections: make(map[int]domain.VariationOption),
		quantity:   1,
		ctx:        ctx,
		cancel:     cancel,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.log = r.log.With(zap.String("product_id", product.ID))
	return r
}

func (r *Resolver) ProductID() string {
	return r.listed.ID
}

// Initialize fetches the product snapshot and the first attribute level.
// A failed first-level lookup degrades to a product without variations,
// unless the product is known to have some; the resolver then stays
// Uninitialized with nothing addable and Initialize may be called again.
func (r *Resolver) Initialize(ctx context.Context) (View, error) {
	r.mu.Lock()
	if r.state == Closed {
		r.mu.Unlock()
		return View{}, ErrClosed
	}
	r.token++
	token := r.token
	r.mu.Unlock()

	ctx, cancel := r.scoped(ctx)
	defer cancel()

	snapshot, snapErr := r.lookup.ProductSnapshot(ctx, r.listed.ID)
	if snapErr != nil {
		r.log.Warn("product snapshot fetch failed", zap.Error(snapErr))
	}
	hasVariations := r.listed.HasVariations || (snapErr == nil && snapshot.HasVariations)
	options, err := r.lookup.InitialVariations(ctx, r.listed.ID)
	if err != nil {
		if hasVariations {
			r.log.Warn("initial variations fetch failed, product stays unresolved", zap.Error(err))
		} else {
			r.log.Warn("initial variations fetch failed, treating product as having none", zap.Error(err))
		}
		options = nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if token != r.token || r.state == Closed {
		return r.viewLocked(), nil
	}
	if snapErr == nil {
		r.snapshot = &snapshot
	}
	r.initial = options
	r.unresolved = err != nil && hasVariations
	r.resetLocked()
	return r.viewLocked(), nil
}

// SelectOption chooses optionID at attributeIndex and resolves whether the
// path continues or ends at a leaf.
func (r *Resolver) SelectOption(ctx context.Context, attributeIndex int, optionID string) (View, error) {
	r.mu.Lock()
	if r.state == Closed {
		r.mu.Unlock()
		return View{}, ErrClosed
	}
	options, ok := r.levels[attributeIndex]
	if !ok {
		v := r.viewLocked()
		r.mu.Unlock()
		return v, fmt.Errorf("%w: %d", ErrLevelNotAvailable, attributeIndex)
	}
	level := domain.VariationAttributeLevel{AttributeIndex: attributeIndex, Options: options}
	option, ok := level.FindOption(optionID)
	if !ok {
		v := r.viewLocked()
		r.mu.Unlock()
		return v, fmt.Errorf("%w: %s", ErrUnknownOption, optionID)
	}

	r.selections[attributeIndex] = option
	r.pruneLocked(attributeIndex)
	r.current = nil
	r.displayName = ""
	r.token++
	token := r.token
	labels := r.selectedLabelsLocked()
	r.mu.Unlock()

	ctx, cancel := r.scoped(ctx)
	defer cancel()

	children, err := r.lookup.ChildVariations(ctx, r.listed.ID, option.ID)
	if err != nil {
		if r.ctx.Err() != nil {
			return r.View(), ErrClosed
		}
		// caller deadlines fail open too
		r.log.Warn("children lookup failed, treating option as leaf",
			zap.String("option_id", option.ID), zap.Error(err))
		children = nil
	}
	if len(children) > 0 {
		return r.applyChildren(token, attributeIndex, option, children), nil
	}

	display, err := r.lookup.VariationAncestors(ctx, r.listed.ID, option.ID)
	if err != nil {
		r.log.Warn("ancestors lookup failed", zap.String("option_id", option.ID), zap.Error(err))
	}
	if err != nil || display == "" {
		display = strings.Join(labels, displaySeparator)
	}
	return r.applyLeaf(token, attributeIndex, option, display), nil
}

func (r *Resolver) applyChildren(token uint64, index int, option domain.VariationOption, children []domain.VariationOption) View {
	r.mu.Lock()
	defer r.mu.Unlock()
	if token != r.token || r.state == Closed {
		r.log.Debug("discarding stale children response", zap.String("option_id", option.ID))
		return r.viewLocked()
	}

	option.HasChildren = boolPtr(true)
	r.markOptionLocked(index, option)
	r.selections[index] = option
	r.levels[index+1] = children
	r.pruneLocked(index + 1)
	return r.viewLocked()
}

func (r *Resolver) applyLeaf(token uint64, index int, option domain.VariationOption, display string) View {
	r.mu.Lock()
	defer r.mu.Unlock()
	if token != r.token || r.state == Closed {
		r.log.Debug("discarding stale leaf response", zap.String("option_id", option.ID))
		return r.viewLocked()
	}

	option.HasChildren = boolPtr(false)
	r.markOptionLocked(index, option)
	r.selections[index] = option
	r.current = &option
	r.displayName = display
	r.pruneLocked(index)
	r.clampQuantityLocked()
	return r.viewLocked()
}

// ResolveCandidate returns the leaf variation when one is selected, the base
// product when the product has no variations, and false otherwise.
func (r *Resolver) ResolveCandidate() (domain.Candidate, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.candidateLocked()
}

// Reset returns to the first attribute level using the options fetched by
// Initialize and puts the quantity back to 1. In-flight lookups are dropped.
func (r *Resolver) Reset() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == Closed {
		return ErrClosed
	}
	r.token++
	r.resetLocked()
	return nil
}

// Close tears the resolver down. Lookups in flight are cancelled and their
// responses ignored.
func (r *Resolver) Close() {
	r.mu.Lock()
	r.state = Closed
	r.token++
	r.mu.Unlock()
	r.cancel()
}

// AddToCart hands the resolved candidate to cart with the selected quantity.
// After a variation is added the selection starts over.
func (r *Resolver) AddToCart(cart CartAdder) (domain.CartLineItem, error) {
	r.mu.Lock()
	if r.state == Closed {
		r.mu.Unlock()
		return domain.CartLineItem{}, ErrClosed
	}
	candidate, ok := r.candidateLocked()
	if !ok || !r.enableLocked() {
		r.mu.Unlock()
		return domain.CartLineItem{}, ErrNotAddable
	}
	r.clampQuantityLocked()
	quantity := r.quantity
	token := r.token
	r.mu.Unlock()

	line := cart.AddItem(candidate, quantity)

	r.mu.Lock()
	defer r.mu.Unlock()
	if token == r.token && r.state != Closed {
		if candidate.IsVariation() {
			r.token++
			r.resetLocked()
		} else {
			r.quantity = 1
		}
	}
	return line, nil
}

func (r *Resolver) IncrementQuantity() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.quantity < r.maxQuantityLocked() {
		r.quantity++
	}
	return r.quantity
}

func (r *Resolver) DecrementQuantity() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.quantity > 1 {
		r.quantity--
	}
	return r.quantity
}

func (r *Resolver) Quantity() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.quantity
}

func (r *Resolver) View() View {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.viewLocked()
}

// scoped derives a lookup context that also ends when the resolver closes.
func (r *Resolver) scoped(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(r.ctx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

func (r *Resolver) resetLocked() {
	r.levels = make(map[int][]domain.VariationOption)
	r.selections = make(map[int]domain.VariationOption)
	r.current = nil
	r.displayName = ""
	r.quantity = 1
	if len(r.initial) == 0 {
		if r.unresolved {
			r.state = Uninitialized
			return
		}
		r.state = BaseProductOnly
		return
	}
	r.levels[0] = r.initial
	r.state = LevelReady
}

// pruneLocked drops selections and levels deeper than index.
func (r *Resolver) pruneLocked(index int) {
	for k := range r.selections {
		if k > index {
			delete(r.selections, k)
		}
	}
	for k := range r.levels {
		if k > index {
			delete(r.levels, k)
		}
	}
}

// markOptionLocked records what was learned about an option in its level.
func (r *Resolver) markOptionLocked(index int, option domain.VariationOption) {
	options := r.levels[index]
	updated := make([]domain.VariationOption, len(options))
	copy(updated, options)
	for i := range updated {
		if updated[i].ID == option.ID {
			updated[i].HasChildren = option.HasChildren
		}
	}
	r.levels[index] = updated
}

func (r *Resolver) selectedIndexesLocked() []int {
	idx := make([]int, 0, len(r.selections))
	for k := range r.selections {
		idx = append(idx, k)
	}
	sort.Ints(idx)
	return idx
}

func (r *Resolver) selectedLabelsLocked() []string {
	var labels []string
	for _, i := range r.selectedIndexesLocked() {
		labels = append(labels, r.selections[i].Label)
	}
	return labels
}

func (r *Resolver) attributesLocked() map[string]string {
	attrs := make(map[string]string, len(r.selections))
	for _, i := range r.selectedIndexesLocked() {
		opt := r.selections[i]
		name := opt.AttributeName
		if name == "" {
			name = fmt.Sprintf("attribute_%d", i)
		}
		attrs[name] = opt.Label
	}
	return attrs
}

func (r *Resolver) enableLocked() bool {
	switch {
	case r.state == Closed:
		return false
	case r.current != nil:
		return r.current.Stock > 0
	case r.state == BaseProductOnly:
		return r.stockLocked() > 0
	default:
		return false
	}
}

func (r *Resolver) candidateLocked() (domain.Candidate, bool) {
	if r.state == Closed || (r.current == nil && r.state != BaseProductOnly) {
		return domain.Candidate{}, false
	}
	c := domain.Candidate{
		ProductID:           r.listed.ID,
		Name:                r.nameLocked(),
		Price:               r.priceLocked(),
		Stock:               r.stockLocked(),
		SKU:                 r.skuLocked(),
		MaxPurchaseQuantity: r.maxPurchaseLocked(),
		ImageURL:            r.imageLocked(),
	}
	if r.current != nil {
		c.VariationID = r.current.ID
		c.VariationDisplayName = r.displayName
		c.Attributes = r.attributesLocked()
	}
	return c, true
}

func (r *Resolver) maxQuantityLocked() int {
	limit := r.maxPurchaseLocked()
	if limit <= 0 {
		limit = DefaultMaxPurchaseQuantity
	}
	if stock := r.stockLocked(); stock < limit {
		limit = stock
	}
	return limit
}

// clampQuantityLocked keeps the selector within the limit of the current
// candidate, never below 1.
func (r *Resolver) clampQuantityLocked() {
	if limit := r.maxQuantityLocked(); r.quantity > limit {
		r.quantity = max(limit, 1)
	}
}

func (r *Resolver) viewLocked() View {
	v := View{
		ProductID:            r.listed.ID,
		State:                r.state,
		Selections:           make(map[int]domain.VariationOption, len(r.selections)),
		EnableAddToCart:      r.enableLocked(),
		VariationDisplayName: r.displayName,
		Quantity:             r.quantity,
		Price:                r.priceLocked(),
		Stock:                r.stockLocked(),
	}
	for k, o := range r.selections {
		v.Selections[k] = o
	}
	if r.current != nil {
		cur := *r.current
		v.CurrentVariation = &cur
	}

	idx := make([]int, 0, len(r.levels))
	for k := range r.levels {
		idx = append(idx, k)
	}
	sort.Ints(idx)
	for _, i := range idx {
		options := make([]domain.VariationOption, len(r.levels[i]))
		copy(options, r.levels[i])
		v.AvailableLevels = append(v.AvailableLevels, domain.VariationAttributeLevel{
			AttributeIndex: i,
			AttributeName:  levelName(options),
			Options:        options,
		})
	}
	return v
}

func levelName(options []domain.VariationOption) string {
	for _, o := range options {
		if o.AttributeName != "" {
			return o.AttributeName
		}
	}
	return ""
}

func boolPtr(b bool) *bool { return &b }
