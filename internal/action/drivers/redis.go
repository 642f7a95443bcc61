package drivers

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sctg-development/photoacoustic-core/internal/action"
)

// RedisMode selects whether a RedisDriver publishes to a pub/sub
// channel or writes a key with a TTL.
type RedisMode int

const (
	RedisModePubSub RedisMode = iota
	RedisModeKeyValue
)

// RedisDriver fans out measurements/alerts through either Redis
// pub/sub (real-time streaming consumers) or a TTL'd key-value write
// (last-known-value lookups), matching the two Redis-backed sink
// shapes the original driver set offers.
type RedisDriver struct {
	addr     string
	password string
	db       int
	mode     RedisMode
	channel  string
	keyspace string
	ttl      time.Duration

	mu     sync.RWMutex
	client *redis.Client
}

// NewRedisPubSubDriver builds a RedisDriver that publishes JSON
// payloads to channel.
func NewRedisPubSubDriver(addr, password string, db int, channel string) *RedisDriver {
	return &RedisDriver{addr: addr, password: password, db: db, mode: RedisModePubSub, channel: channel}
}

// NewRedisKeyValueDriver builds a RedisDriver that writes JSON
// payloads under keys prefixed with keyspace, expiring after ttl (0
// disables expiration).
func NewRedisKeyValueDriver(addr, password string, db int, keyspace string, ttl time.Duration) *RedisDriver {
	return &RedisDriver{addr: addr, password: password, db: db, mode: RedisModeKeyValue, keyspace: keyspace, ttl: ttl}
}

func (d *RedisDriver) Initialize(ctx context.Context) error {
	client := redis.NewClient(&redis.Options{Addr: d.addr, Password: d.password, DB: d.db})
	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis driver: connecting to %s: %w", d.addr, err)
	}
	d.mu.Lock()
	d.client = client
	d.mu.Unlock()
	return nil
}

func (d *RedisDriver) publish(ctx context.Context, key string, payload any) error {
	d.mu.RLock()
	client := d.client
	d.mu.RUnlock()
	if client == nil {
		return fmt.Errorf("redis driver: not initialized")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("redis driver: marshaling payload: %w", err)
	}

	switch d.mode {
	case RedisModePubSub:
		return client.Publish(ctx, d.channel, body).Err()
	case RedisModeKeyValue:
		return client.Set(ctx, d.keyspace+":"+key, body, d.ttl).Err()
	default:
		return fmt.Errorf("redis driver: unknown mode")
	}
}

func (d *RedisDriver) UpdateAction(ctx context.Context, data action.MeasurementData) error {
	return d.publish(ctx, "update", map[string]any{
		"concentration_ppm": data.ConcentrationPPM,
		"peak_frequency_hz": data.PeakFrequencyHz,
		"peak_amplitude":    data.PeakAmplitude,
		"source":            data.Source,
		"timestamp":         data.Timestamp.UTC(),
	})
}

func (d *RedisDriver) ShowAlert(ctx context.Context, alert action.AlertData) error {
	return d.publish(ctx, "alert", map[string]any{
		"type":      alert.Type,
		"severity":  alert.Severity,
		"message":   alert.Message,
		"timestamp": alert.Timestamp.UTC(),
		"meta":      alert.Meta,
	})
}

func (d *RedisDriver) ClearAction(ctx context.Context) error {
	return d.publish(ctx, "clear", map[string]any{"event": "clear"})
}

func (d *RedisDriver) GetStatus(ctx context.Context) (map[string]any, error) {
	d.mu.RLock()
	client := d.client
	d.mu.RUnlock()
	connected := client != nil && client.Ping(ctx).Err() == nil
	return map[string]any{
		"driver_type": d.DriverType(),
		"addr":        d.addr,
		"connected":   connected,
	}, nil
}

func (d *RedisDriver) DriverType() string { return "redis" }

func (d *RedisDriver) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.client == nil {
		return nil
	}
	err := d.client.Close()
	d.client = nil
	return err
}
