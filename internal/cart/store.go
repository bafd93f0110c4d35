package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/kvstore"
	"github.com/fjod/go_cart/storefront/internal/notice"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CacheKey is the key the cart snapshot is saved under in the local store.
const CacheKey = "cart"

type Option func(*Store)

func WithLogger(log *zap.Logger) Option {
	return func(s *Store) { s.log = log }
}

func WithNotifier(n notice.Notifier) Option {
	return func(s *Store) { s.notifier = n }
}

// WithCache saves a snapshot to kv after every mutation. Failures are logged
// and otherwise ignored.
func WithCache(kv kvstore.Store) Option {
	return func(s *Store) { s.cache = kv }
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Store is the in-memory cart. One instance is shared by every screen of the
// app; construct it once and pass it around.
type Store struct {
	mu       sync.RWMutex
	items    []domain.CartLineItem
	version  uint64
	subs     map[int]func(domain.CartSummary)
	nextSub  int
	notifier notice.Notifier
	log      *zap.Logger
	now      func() time.Time

	cache     kvstore.Store
	persistMu sync.Mutex
	persisted uint64
}

func NewStore(opts ...Option) *Store {
	s := &Store{
		subs:     make(map[int]func(domain.CartSummary)),
		notifier: notice.Discard{},
		log:      zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddItem merges into the line with the same product and variant, or creates
// a new line. Stock limits are the caller's concern.
func (s *Store) AddItem(c domain.Candidate, quantity int) domain.CartLineItem {
	if quantity < 1 {
		quantity = 1
	}
	fp := Fingerprint(c.Attributes)

	s.mu.Lock()
	var line domain.CartLineItem
	merged := false
	for i := range s.items {
		if s.items[i].ProductID == c.ProductID && s.items[i].VariantFingerprint == fp {
			s.items[i].Quantity += quantity
			line = s.items[i]
			merged = true
			break
		}
	}
	if !merged {
		now := s.now()
		line = domain.CartLineItem{
			ID:                   newLineID(c.ProductID, fp, now),
			ProductID:            c.ProductID,
			VariationID:          c.VariationID,
			VariantFingerprint:   fp,
			Name:                 c.Name,
			UnitPrice:            c.Price,
			Quantity:             quantity,
			ImageURL:             c.ImageURL,
			SKU:                  c.SKU,
			VariationDisplayName: c.VariationDisplayName,
			AddedAt:              now,
		}
		s.items = append(s.items, line)
	}
	summary, version := s.commitLocked()
	s.mu.Unlock()

	s.log.Debug("cart item added",
		zap.String("product_id", c.ProductID),
		zap.String("fingerprint", fp),
		zap.Bool("merged", merged),
		zap.Int("quantity", line.Quantity))
	s.notifier.Notify(notice.Success(fmt.Sprintf("%s added to cart", displayName(c))))
	s.publish(summary, version)
	return line
}

func (s *Store) RemoveItem(id string) {
	s.mu.Lock()
	idx := s.indexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return
	}
	s.items = append(s.items[:idx], s.items[idx+1:]...)
	summary, version := s.commitLocked()
	s.mu.Unlock()

	s.publish(summary, version)
}

// UpdateQuantity sets the quantity of a line; zero or less removes it.
func (s *Store) UpdateQuantity(id string, quantity int) {
	if quantity <= 0 {
		s.RemoveItem(id)
		return
	}

	s.mu.Lock()
	idx := s.indexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return
	}
	s.items[idx].Quantity = quantity
	summary, version := s.commitLocked()
	s.mu.Unlock()

	s.publish(summary, version)
}

func (s *Store) ClearCart() {
	s.mu.Lock()
	s.items = nil
	summary, version := s.commitLocked()
	s.mu.Unlock()

	s.publish(summary, version)
}

func (s *Store) GetItemByID(id string) (domain.CartLineItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := s.indexLocked(id)
	if idx < 0 {
		return domain.CartLineItem{}, false
	}
	return s.items[idx], true
}

func (s *Store) Items() []domain.CartLineItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.copyItemsLocked()
}

func (s *Store) ItemCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return itemCount(s.items)
}

func (s *Store) TotalAmount() decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return totalAmount(s.items)
}

func (s *Store) Summary() domain.CartSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.summaryLocked()
}

// Subscribe registers fn to receive a fresh summary after every mutation.
func (s *Store) Subscribe(fn func(domain.CartSummary)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Restore loads the cached snapshot, replacing the in-memory lines. A missing
// or unreadable snapshot leaves the cart empty.
func (s *Store) Restore(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	raw, err := s.cache.Get(ctx, CacheKey)
	if errors.Is(err, kvstore.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("cart cache get failed: %w", err)
	}

	var items []domain.CartLineItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return fmt.Errorf("unmarshal cart failed: %w", err)
	}

	s.mu.Lock()
	s.items = s.items[:0]
	for _, it := range items {
		if it.Quantity >= 1 {
			s.items = append(s.items, it)
		}
	}
	summary, _ := s.commitLocked()
	s.mu.Unlock()

	for _, fn := range s.subscribers() {
		fn(summary)
	}
	return nil
}

// commitLocked bumps the version and returns the summary to publish.
func (s *Store) commitLocked() (domain.CartSummary, uint64) {
	s.version++
	return s.summaryLocked(), s.version
}

func (s *Store) publish(summary domain.CartSummary, version uint64) {
	for _, fn := range s.subscribers() {
		fn(summary)
	}
	s.persist(summary.Items, version)
}

func (s *Store) subscribers() []func(domain.CartSummary) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]func(domain.CartSummary), 0, len(s.subs))
	for _, fn := range s.subs {
		out = append(out, fn)
	}
	return out
}

// persist writes the snapshot unless a newer one has already been written.
func (s *Store) persist(items []domain.CartLineItem, version uint64) {
	if s.cache == nil {
		return
	}
	s.persistMu.Lock()
	defer s.persistMu.Unlock()
	if version <= s.persisted {
		return
	}

	data, err := json.Marshal(items)
	if err != nil {
		s.log.Warn("marshal cart failed", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Set(ctx, CacheKey, string(data)); err != nil {
		s.log.Warn("cart cache set failed", zap.Error(err))
		return
	}
	s.persisted = version
}

func (s *Store) indexLocked(id string) int {
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) copyItemsLocked() []domain.CartLineItem {
	out := make([]domain.CartLineItem, len(s.items))
	copy(out, s.items)
	return out
}

func (s *Store) summaryLocked() domain.CartSummary {
	return domain.CartSummary{
		Items:       s.copyItemsLocked(),
		ItemCount:   itemCount(s.items),
		TotalAmount: totalAmount(s.items),
	}
}

func itemCount(items []domain.CartLineItem) int {
	n := 0
	for _, it := range items {
		n += it.Quantity
	}
	return n
}

func totalAmount(items []domain.CartLineItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Subtotal())
	}
	return total
}

func displayName(c domain.Candidate) string {
	if c.VariationDisplayName != "" {
		return fmt.Sprintf("%s (%s)", c.Name, c.VariationDisplayName)
	}
	if c.Name == "" {
		return "Item"
	}
	return c.Name
}
