package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/kvstore"
)

const (
	KeyAuthToken = "auth_token"
	KeyWishlist  = "wishlist"
	KeyTheme     = "theme"
	KeyProfile   = "user_profile"
)

type Theme string

const (
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
	ThemeSystem Theme = "system"
)

var ErrInvalidTheme = errors.New("invalid theme")

// Session exposes the typed values the app keeps in the local key-value
// store. Missing keys read as zero values.
type Session struct {
	store kvstore.Store
}

func New(store kvstore.Store) *Session {
	return &Session{store: store}
}

func (s *Session) AuthToken(ctx context.Context) (string, error) {
	return s.get(ctx, KeyAuthToken)
}

func (s *Session) SetAuthToken(ctx context.Context, token string) error {
	return s.store.Set(ctx, KeyAuthToken, token)
}

// ClearAuthToken logs the user out locally. The cached profile goes with it.
func (s *Session) ClearAuthToken(ctx context.Context) error {
	if err := s.store.Remove(ctx, KeyAuthToken); err != nil {
		return err
	}
	return s.store.Remove(ctx, KeyProfile)
}

func (s *Session) Theme(ctx context.Context) (Theme, error) {
	v, err := s.get(ctx, KeyTheme)
	if err != nil {
		return ThemeSystem, err
	}
	switch Theme(v) {
	case ThemeLight, ThemeDark:
		return Theme(v), nil
	default:
		return ThemeSystem, nil
	}
}

func (s *Session) SetTheme(ctx context.Context, theme Theme) error {
	switch theme {
	case ThemeLight, ThemeDark, ThemeSystem:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidTheme, theme)
	}
	return s.store.Set(ctx, KeyTheme, string(theme))
}

// Profile returns the cached profile, or nil if none is cached.
func (s *Session) Profile(ctx context.Context) (*domain.Profile, error) {
	var p domain.Profile
	ok, err := s.getJSON(ctx, KeyProfile, &p)
	if err != nil || !ok {
		return nil, err
	}
	return &p, nil
}

func (s *Session) SetProfile(ctx context.Context, p domain.Profile) error {
	return s.setJSON(ctx, KeyProfile, p)
}

// Wishlist returns the cached wishlisted product ids.
func (s *Session) Wishlist(ctx context.Context) ([]string, error) {
	var ids []string
	if _, err := s.getJSON(ctx, KeyWishlist, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *Session) SetWishlist(ctx context.Context, ids []string) error {
	if ids == nil {
		ids = []string{}
	}
	return s.setJSON(ctx, KeyWishlist, ids)
}

func (s *Session) get(ctx context.Context, key string) (string, error) {
	v, err := s.store.Get(ctx, key)
	if errors.Is(err, kvstore.ErrNotFound) {
		return "", nil
	}
	return v, err
}

func (s *Session) getJSON(ctx context.Context, key string, dst any) (bool, error) {
	raw, err := s.get(ctx, key)
	if err != nil || raw == "" {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return false, fmt.Errorf("unmarshal %s failed: %w", key, err)
	}
	return true, nil
}

func (s *Session) setJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s failed: %w", key, err)
	}
	return s.store.Set(ctx, key, string(data))
}
