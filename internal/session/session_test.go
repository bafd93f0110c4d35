package session

import (
	"context"
	"testing"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/kvstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthToken_RoundTripAndClear(t *testing.T) {
	kv := kvstore.NewMemoryStore()
	s := New(kv)
	ctx := context.Background()

	token, err := s.AuthToken(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)

	require.NoError(t, s.SetAuthToken(ctx, "jwt"))
	require.NoError(t, s.SetProfile(ctx, domain.Profile{ID: "u1", Name: "Ann"}))

	token, err = s.AuthToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "jwt", token)

	require.NoError(t, s.ClearAuthToken(ctx))
	token, _ = s.AuthToken(ctx)
	assert.Empty(t, token)

	p, err := s.Profile(ctx)
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestTheme(t *testing.T) {
	s := New(kvstore.NewMemoryStore())
	ctx := context.Background()

	theme, err := s.Theme(ctx)
	require.NoError(t, err)
	assert.Equal(t, ThemeSystem, theme)

	require.NoError(t, s.SetTheme(ctx, ThemeDark))
	theme, _ = s.Theme(ctx)
	assert.Equal(t, ThemeDark, theme)

	assert.ErrorIs(t, s.SetTheme(ctx, "neon"), ErrInvalidTheme)
}

func TestProfile_Cached(t *testing.T) {
	s := New(kvstore.NewMemoryStore())
	ctx := context.Background()

	require.NoError(t, s.SetProfile(ctx, domain.Profile{ID: "u1", Email: "a@b.c"}))
	p, err := s.Profile(ctx)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "a@b.c", p.Email)
}

func TestProfile_Corrupt(t *testing.T) {
	kv := kvstore.NewMemoryStore()
	s := New(kv)
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, KeyProfile, "{not json"))
	_, err := s.Profile(ctx)
	assert.ErrorContains(t, err, "unmarshal user_profile failed")
}

func TestWishlist(t *testing.T) {
	s := New(kvstore.NewMemoryStore())
	ctx := context.Background()

	ids, err := s.Wishlist(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)

	require.NoError(t, s.SetWishlist(ctx, []string{"p1", "p2"}))
	ids, err = s.Wishlist(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p2"}, ids)
}
