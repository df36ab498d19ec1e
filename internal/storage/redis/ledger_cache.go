// Package redis caches property ledgers so availability listings skip the
// database. Commit and cancel invalidate a (property, date) key; booking
// decisions never read from here.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ganapathi9191/farmhouse-backend/internal/domain"
	"github.com/go-redis/redis/v8"
)

const DefaultTTL = 5 * time.Minute

type LedgerCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

type Option func(*LedgerCache)

func WithTTL(ttl time.Duration) Option {
	return func(c *LedgerCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithPrefix namespaces keys, e.g. per environment.
func WithPrefix(prefix string) Option {
	return func(c *LedgerCache) {
		c.prefix = prefix
	}
}

func NewLedgerCache(client *redis.Client, opts ...Option) *LedgerCache {
	c := &LedgerCache{client: client, ttl: DefaultTTL, prefix: "farmhouse"}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewClient parses a redis:// URL, or a bare host:port.
func NewClient(addr string) (*redis.Client, error) {
	if addr == "" {
		return nil, errors.New("redis address required")
	}
	opts, err := redis.ParseURL(addr)
	if err != nil {
		opts = &redis.Options{Addr: addr}
	}
	return redis.NewClient(opts), nil
}

func (c *LedgerCache) key(propertyID string, date domain.Date) string {
	return fmt.Sprintf("%s:ledger:%s:%s", c.prefix, propertyID, date)
}

func (c *LedgerCache) GetLedger(ctx context.Context, propertyID string, date domain.Date) ([]domain.LedgerEntry, bool, error) {
	raw, err := c.client.Get(ctx, c.key(propertyID, date)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get ledger: %w", err)
	}
	entries, err := decodeLedger(raw)
	if err != nil {
		return nil, false, err
	}
	return entries, true, nil
}

func (c *LedgerCache) SetLedger(ctx context.Context, propertyID string, date domain.Date, entries []domain.LedgerEntry) error {
	raw, err := encodeLedger(entries)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, c.key(propertyID, date), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("set ledger: %w", err)
	}
	return nil
}

func (c *LedgerCache) InvalidateLedger(ctx context.Context, propertyID string, date domain.Date) error {
	if err := c.client.Del(ctx, c.key(propertyID, date)).Err(); err != nil {
		return fmt.Errorf("invalidate ledger: %w", err)
	}
	return nil
}

func (c *LedgerCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

type cachedEntry struct {
	ReservationID string      `json:"reservation_id"`
	PropertyID    string      `json:"property_id"`
	UserID        string      `json:"user_id"`
	Date          domain.Date `json:"date"`
	Label         string      `json:"label"`
	StartMinute   int         `json:"start_minute"`
	EndMinute     int         `json:"end_minute"`
	CheckIn       time.Time   `json:"check_in"`
	CheckOut      time.Time   `json:"check_out"`
	BookedAt      time.Time   `json:"booked_at"`
}

func encodeLedger(entries []domain.LedgerEntry) ([]byte, error) {
	out := make([]cachedEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, cachedEntry{
			ReservationID: e.ReservationID,
			PropertyID:    e.PropertyID,
			UserID:        e.UserID,
			Date:          e.Date,
			Label:         e.Label,
			StartMinute:   e.Timing.StartMinute,
			EndMinute:     e.Timing.EndMinute,
			CheckIn:       e.CheckIn,
			CheckOut:      e.CheckOut,
			BookedAt:      e.BookedAt,
		})
	}
	raw, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("encode ledger: %w", err)
	}
	return raw, nil
}

func decodeLedger(raw []byte) ([]domain.LedgerEntry, error) {
	var in []cachedEntry
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, fmt.Errorf("decode ledger: %w", err)
	}
	entries := make([]domain.LedgerEntry, 0, len(in))
	for _, e := range in {
		entries = append(entries, domain.LedgerEntry{
			ReservationID: e.ReservationID,
			PropertyID:    e.PropertyID,
			UserID:        e.UserID,
			Date:          e.Date,
			Label:         e.Label,
			Timing:        domain.TimeRange{StartMinute: e.StartMinute, EndMinute: e.EndMinute},
			CheckIn:       e.CheckIn,
			CheckOut:      e.CheckOut,
			BookedAt:      e.BookedAt,
		})
	}
	return entries, nil
}
