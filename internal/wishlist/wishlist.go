package wishlist

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/fjod/go_cart/storefront/internal/notice"
	"go.uber.org/zap"
)

// Remote records the wishlist state on the server.
type Remote interface {
	ToggleWishlist(ctx context.Context, productID string, state bool) error
}

// Cache keeps the wishlist between runs.
type Cache interface {
	Wishlist(ctx context.Context) ([]string, error)
	SetWishlist(ctx context.Context, ids []string) error
}

type Service struct {
	mu       sync.Mutex
	ids      map[string]struct{}
	saveMu   sync.Mutex
	gen      map[string]uint64
	remote   Remote
	cache    Cache
	notifier notice.Notifier
	log      *zap.Logger
}

func NewService(remote Remote, cache Cache, notifier notice.Notifier, log *zap.Logger) *Service {
	if notifier == nil {
		notifier = notice.Discard{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		ids:      make(map[string]struct{}),
		gen:      make(map[string]uint64),
		remote:   remote,
		cache:    cache,
		notifier: notifier,
		log:      log,
	}
}

// Load replaces the in-memory set with the cached one.
func (s *Service) Load(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	ids, err := s.cache.Wishlist(ctx)
	if err != nil {
		return fmt.Errorf("load wishlist: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = make(map[string]struct{}, len(ids))
	for _, id := range ids {
		s.ids[id] = struct{}{}
	}
	return nil
}

// Toggle flips productID right away and then tells the server. If the server
// call fails the flip is undone, unless the product was toggled again in the
// meantime. The returned bool is the state after the call.
func (s *Service) Toggle(ctx context.Context, productID string) (bool, error) {
	s.mu.Lock()
	_, had := s.ids[productID]
	desired := !had
	s.setLocked(productID, desired)
	s.gen[productID]++
	gen := s.gen[productID]
	s.mu.Unlock()

	s.persist(ctx)

	err := s.remote.ToggleWishlist(ctx, productID, desired)
	if err == nil {
		return desired, nil
	}

	s.log.Warn("wishlist toggle failed",
		zap.String("product_id", productID),
		zap.Bool("desired", desired),
		zap.Error(err))

	s.mu.Lock()
	reverted := s.gen[productID] == gen
	if reverted {
		s.setLocked(productID, had)
	}
	_, now := s.ids[productID]
	s.mu.Unlock()

	if reverted {
		s.persist(context.WithoutCancel(ctx))
		s.notifier.Notify(notice.Warning("Couldn't update your wishlist. Please try again."))
	}
	return now, fmt.Errorf("toggle wishlist %s: %w", productID, err)
}

func (s *Service) Contains(productID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.ids[productID]
	return ok
}

// IDs returns the wishlisted product ids in sorted order.
func (s *Service) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.idsLocked()
}

func (s *Service) setLocked(productID string, on bool) {
	if on {
		s.ids[productID] = struct{}{}
		return
	}
	delete(s.ids, productID)
}

func (s *Service) idsLocked() []string {
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// persist writes the current set. Writes are serialized so the last one
// always carries the latest state.
func (s *Service) persist(ctx context.Context) {
	if s.cache == nil {
		return
	}
	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	ids := s.IDs()
	if err := s.cache.SetWishlist(ctx, ids); err != nil {
		s.log.Warn("wishlist cache write failed", zap.Error(err))
	}
}
