package poller

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_cart/storefront/internal/notice"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	EventCheckoutCompleted = "checkout_completed"
	// EventCheckout is the type the checkout service outbox writes.
	EventCheckout   = "checkout"
	eventTypeHeader = "event_type"
)

// CartClearer is the part of the cart the poller needs.
type CartClearer interface {
	ClearCart()
}

type Config struct {
	Brokers []string
	Topic   string
	GroupID string
	// UserID selects whose checkouts clear this cart.
	UserID string
}

// Poller consumes the checkout outbox and empties the local cart once an
// order for this user has been placed.
type Poller struct {
	reader   *kafka.Reader
	cart     CartClearer
	notifier notice.Notifier
	userID   string
	log      *zap.Logger
}

func NewPoller(cfg Config, cart CartClearer, notifier notice.Notifier, log *zap.Logger) *Poller {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MaxBytes: 10e6, // 10MB
	})
	return newPoller(reader, cfg.UserID, cart, notifier, log)
}

func newPoller(reader *kafka.Reader, userID string, cart CartClearer, notifier notice.Notifier, log *zap.Logger) *Poller {
	if notifier == nil {
		notifier = notice.Discard{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Poller{
		reader:   reader,
		cart:     cart,
		notifier: notifier,
		userID:   userID,
		log:      log.With(zap.String("component", "checkout-poller")),
	}
}

func (p *Poller) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		if err := p.poll(ctx); err != nil && ctx.Err() == nil {
			p.log.Warn("error reading message", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
		}
	}
}

func (p *Poller) Close() {
	if err := p.reader.Close(); err != nil {
		p.log.Warn("error closing reader", zap.Error(err))
	}
}

func (p *Poller) poll(ctx context.Context) error {
	m, err := p.reader.ReadMessage(ctx)
	if err != nil {
		return err
	}
	if _, err := p.handle(m); err != nil {
		p.log.Warn("skipping message",
			zap.Int64("offset", m.Offset),
			zap.String("key", string(m.Key)),
			zap.Error(err))
	}
	return nil
}

var (
	errMalformed   = errors.New("malformed checkout event")
	errMissingUser = errors.New("missing or invalid user_id")
)

// handle applies one outbox message. It reports whether the cart was
// cleared.
func (p *Poller) handle(m kafka.Message) (bool, error) {
	var payload map[string]interface{}
	dec := json.NewDecoder(bytes.NewReader(m.Value))
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		return false, fmt.Errorf("%w: %v", errMalformed, err)
	}

	eventType := headerValue(m, eventTypeHeader)
	if eventType == "" {
		eventType, _ = payload["event_type"].(string)
	}
	if eventType != "" && eventType != EventCheckoutCompleted && eventType != EventCheckout {
		return false, nil
	}

	var userID string
	switch v := payload["user_id"].(type) {
	case string:
		userID = v
	case json.Number:
		userID = v.String()
	}
	if userID == "" {
		return false, errMissingUser
	}
	if p.userID != "" && userID != p.userID {
		return false, nil
	}

	checkoutID, _ := payload["checkout_id"].(string)
	p.cart.ClearCart()
	p.log.Info("cart cleared after checkout",
		zap.String("checkout_id", checkoutID),
		zap.String("user_id", userID))
	p.notifier.Notify(notice.Info("Your order has been placed"))
	return true, nil
}

func headerValue(m kafka.Message, key string) string {
	for _, h := range m.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
