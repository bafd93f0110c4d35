package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/kvstore"
	"github.com/fjod/go_cart/storefront/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupClient(t *testing.T, handler http.HandlerFunc) (*Client, *session.Session) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	sess := session.New(kvstore.NewMemoryStore())
	return NewClient(srv.URL, sess, WithHTTPClient(srv.Client())), sess
}

func TestProduct_UnwrapsEnvelopeAndSendsToken(t *testing.T) {
	var gotAuth string
	client, sess := setupClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		assert.Equal(t, "/products/42", r.URL.Path)
		_, _ = w.Write([]byte(`{"data":{"id":42,"title":"Lamp","price":"19.90","stock_quantity":3,"images":["a.png","b.png"]}}`))
	})
	require.NoError(t, sess.SetAuthToken(context.Background(), "tok"))

	p, err := client.Product(context.Background(), "42")
	require.NoError(t, err)

	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Equal(t, "42", p.ID)
	assert.Equal(t, "Lamp", p.Name)
	assert.Equal(t, "19.9", p.Price.String())
	assert.Equal(t, 3, p.Stock)
	assert.Equal(t, "a.png", p.ImageURL)
}

func TestProducts_NoTokenNoHeader(t *testing.T) {
	client, _ := setupClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`[{"id":"1","name":"A"},{"id":"2","name":"B"}]`))
	})

	products, err := client.Products(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "B", products[1].Name)
}

func TestProduct_NotFound(t *testing.T) {
	client, _ := setupClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"no such product"}`))
	})

	_, err := client.Product(context.Background(), "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "no such product", apiErr.Message)
}

func TestCircuitBreaker_OpensOnServerErrors(t *testing.T) {
	var hits atomic.Int32
	client, _ := setupClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := client.Profile(ctx)
		assert.ErrorIs(t, err, ErrUnavailable)
	}
	_, err := client.Profile(ctx)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, int32(5), hits.Load(), "open breaker must not reach the server")
}

func TestCircuitBreaker_IgnoresClientErrors(t *testing.T) {
	var hits atomic.Int32
	client, _ := setupClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	})

	for i := 0; i < 8; i++ {
		_, err := client.Orders(context.Background())
		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
	}
	assert.Equal(t, int32(8), hits.Load())
}

func TestGet_CollapsesConcurrentIdenticalRequests(t *testing.T) {
	var hits atomic.Int32
	release := make(chan struct{})
	client, _ := setupClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		<-release
		_, _ = w.Write([]byte(`[{"id":"c1","name":"Shoes"}]`))
	})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cats, err := client.Categories(context.Background())
			assert.NoError(t, err)
			assert.Len(t, cats, 1)
		}()
	}
	require.Eventually(t, func() bool { return hits.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), hits.Load())
}

func TestGet_CancelledCallerDoesNotFailJoinedCallers(t *testing.T) {
	var hits atomic.Int32
	release := make(chan struct{})
	client, _ := setupClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		<-release
		_, _ = w.Write([]byte(`[{"id":"c1","name":"Shoes"}]`))
	})

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := client.Categories(firstCtx)
		first <- err
	}()
	require.Eventually(t, func() bool { return hits.Load() == 1 }, time.Second, 5*time.Millisecond)

	type result struct {
		cats []domain.Category
		err  error
	}
	second := make(chan result, 1)
	go func() {
		cats, err := client.Categories(context.Background())
		second <- result{cats, err}
	}()
	time.Sleep(100 * time.Millisecond)

	cancelFirst()
	assert.ErrorIs(t, <-first, context.Canceled)

	close(release)
	res := <-second
	require.NoError(t, res.err)
	assert.Len(t, res.cats, 1)
	assert.Equal(t, int32(1), hits.Load())
}

func TestVariations_Endpoints(t *testing.T) {
	client, _ := setupClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/products/p1/variations":
			_, _ = w.Write([]byte(`{"data":[{"id":"red","option_label":"Red","attribute_name":"Color"}]}`))
		case "/products/p1/variations/red/children":
			_, _ = w.Write([]byte(`{"data":[{"id":"red-64","label":"64GB","attribute":"Storage","stock":"3","price":499.5,"sku":"R64"}]}`))
		case "/products/p1/variations/red-64/children":
			_, _ = w.Write([]byte(`{"data":[]}`))
		case "/products/p1/variations/red-64/ancestors":
			_, _ = w.Write([]byte(`{"data":[{"label":"Red"},{"label":"64GB"}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	ctx := context.Background()

	first, err := client.InitialVariations(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, "Red", first[0].Label)
	assert.Nil(t, first[0].Price)

	children, err := client.ChildVariations(ctx, "p1", "red")
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, "Storage", children[0].AttributeName)
	assert.Equal(t, 3, children[0].Stock)
	require.NotNil(t, children[0].Price)
	assert.Equal(t, "499.5", children[0].Price.String())

	leaf, err := client.ChildVariations(ctx, "p1", "red-64")
	require.NoError(t, err)
	assert.Empty(t, leaf)

	name, err := client.VariationAncestors(ctx, "p1", "red-64")
	require.NoError(t, err)
	assert.Equal(t, "Red • 64GB", name)
}

func TestToggleWishlist_PostsDesiredState(t *testing.T) {
	var got wishlistToggleRequest
	client, _ := setupClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/wishlist/toggle", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, client.ToggleWishlist(context.Background(), "p7", true))
	assert.Equal(t, wishlistToggleRequest{ProductID: "p7", State: true}, got)
}

func TestDecodeAncestors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"string", `"Blue • 256GB"`, "Blue • 256GB"},
		{"labels", `["Blue","256GB"]`, "Blue • 256GB"},
		{"object", `{"display_name":"Blue • 256GB"}`, "Blue • 256GB"},
		{"nested list", `{"ancestors":[{"name":"Blue"},{"name":"256GB"}]}`, "Blue • 256GB"},
		{"null", `null`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeAncestors([]byte(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUnwrapData_LeavesPlainBodies(t *testing.T) {
	assert.Equal(t, `{"id":1}`, string(unwrapData([]byte(`{"id":1}`))))
	assert.Equal(t, `[1,2]`, string(unwrapData([]byte(`[1,2]`))))
	assert.Equal(t, `{"x":1}`, string(unwrapData([]byte(`{"data":{"x":1}}`))))
}
