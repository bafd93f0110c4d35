package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fjod/go_cart/storefront/internal/cart"
	"github.com/fjod/go_cart/storefront/internal/catalog"
	"github.com/fjod/go_cart/storefront/internal/config"
	h "github.com/fjod/go_cart/storefront/internal/http"
	"github.com/fjod/go_cart/storefront/internal/kvstore"
	"github.com/fjod/go_cart/storefront/internal/logger"
	"github.com/fjod/go_cart/storefront/internal/notice"
	"github.com/fjod/go_cart/storefront/internal/poller"
	"github.com/fjod/go_cart/storefront/internal/session"
	"github.com/fjod/go_cart/storefront/internal/wishlist"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zl, err := logger.New(cfg.LogLevel, cfg.Development)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zl.Sync()
	zap.ReplaceGlobals(zl)

	ctx := context.Background()
	store, closeStore, err := openStore(ctx, cfg, zl)
	if err != nil {
		zl.Fatal("failed to open key-value store", zap.String("backend", cfg.StorageBackend), zap.Error(err))
	}
	defer closeStore()

	notices := notice.NewBuffer(50, notice.NewLogNotifier(zl))
	sess := session.New(store)

	cartStore := cart.NewStore(
		cart.WithLogger(zl.Named("cart")),
		cart.WithNotifier(notices),
		cart.WithCache(store),
	)
	if err := cartStore.Restore(ctx); err != nil {
		zl.Warn("cart restore failed, starting empty", zap.Error(err))
	}

	api := catalog.NewClient(cfg.APIBaseURL, sess,
		catalog.WithLogger(zl.Named("catalog")),
		catalog.WithTimeout(cfg.RequestTimeout))

	wl := wishlist.NewService(api, sess, notices, zl.Named("wishlist"))
	if err := wl.Load(ctx); err != nil {
		zl.Warn("wishlist load failed", zap.Error(err))
	}

	variations := h.NewVariationHandler(api, cartStore, cfg.RequestTimeout, zl.Named("variation"))
	router := h.NewRouter(h.Handlers{
		Cart:       h.NewCartHandler(cartStore),
		Variations: variations,
		Wishlist:   h.NewWishlistHandler(wl, cfg.RequestTimeout),
		Notices:    h.NewNoticeHandler(notices),
	}, cfg.RequestTimeout, zl.Named("http"))

	pollCtx, stopPoller := context.WithCancel(ctx)
	defer stopPoller()
	if len(cfg.KafkaBrokers) > 0 {
		p := poller.NewPoller(poller.Config{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.CheckoutTopic,
			GroupID: cfg.CheckoutGroupID,
			UserID:  cfg.UserID,
		}, cartStore, notices, zl)
		defer p.Close()
		go p.Run(pollCtx)
		zl.Info("checkout poller started", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.CheckoutTopic))
	}

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		zl.Info("storefront starting", zap.String("port", cfg.HTTPPort), zap.String("storage", cfg.StorageBackend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zl.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Error("server forced to shutdown", zap.Error(err))
	}
	stopPoller()
	variations.CloseAll()
	zl.Info("server exited")
}

// openStore connects the configured key-value backend and returns a function
// that releases it.
func openStore(ctx context.Context, cfg *config.Config, zl *zap.Logger) (kvstore.Store, func(), error) {
	switch cfg.StorageBackend {
	case config.BackendRedis:
		client, err := kvstore.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			return nil, nil, err
		}
		zl.Info("connected to redis", zap.String("addr", cfg.RedisAddr))
		return kvstore.NewRedisStore(client), func() { client.Close() }, nil
	case config.BackendMongo:
		db, err := kvstore.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDBName)
		if err != nil {
			return nil, nil, err
		}
		store := kvstore.NewMongoStore(db)
		if err := store.CreateIndexes(ctx); err != nil {
			zl.Warn("mongo index creation failed", zap.Error(err))
		}
		zl.Info("connected to mongodb", zap.String("db", cfg.MongoDBName))
		return store, func() { db.Client().Disconnect(context.Background()) }, nil
	default:
		return kvstore.NewMemoryStore(), func() {}, nil
	}
}
