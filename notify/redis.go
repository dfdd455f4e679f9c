package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/linesmerrill/custody-ledger-api/custody"
	"github.com/linesmerrill/custody-ledger-api/models"
)

// DefaultChannel is the pub/sub channel API instances share
const DefaultChannel = "custody:record-events"

const (
	defaultRetryMin = 500 * time.Millisecond
	defaultRetryMax = 30 * time.Second
)

var errSubscriptionClosed = errors.New("subscription closed")

type envelope struct {
	Origin string             `json:"origin"`
	Event  models.ChangeEvent `json:"event"`
}

// RedisRelay shares change events between API instances over Redis pub/sub.
// Publish sends local events out; Run delivers events from other instances
// to the local sinks.
type RedisRelay struct {
	client  *redis.Client
	channel string
	origin  string
	log     *zap.SugaredLogger

	retryMin time.Duration
	retryMax time.Duration
}

// NewRedisRelay connects to the redis:// URL
func NewRedisRelay(url, channel string) (*RedisRelay, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return NewRedisRelayWithClient(redis.NewClient(opts), channel), nil
}

// NewRedisRelayWithClient wraps an existing client
func NewRedisRelayWithClient(client *redis.Client, channel string) *RedisRelay {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisRelay{
		client:  client,
		channel: channel,
		origin:   uuid.NewString(),
		log:      zap.S(),
		retryMin: defaultRetryMin,
		retryMax: defaultRetryMax,
	}
}

// Publish implements custody.Notifier
func (r *RedisRelay) Publish(ctx context.Context, ev models.ChangeEvent) error {
	data, err := json.Marshal(envelope{Origin: r.origin, Event: ev})
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, r.channel, data).Err()
}

// Run relays events published by other instances to local until ctx is
// done. A failed or dropped subscription is retried with capped exponential
// backoff, so a relay started while redis is down catches up once it is back.
func (r *RedisRelay) Run(ctx context.Context, local custody.Notifier) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.retryMin
	b.MaxInterval = r.retryMax
	b.MaxElapsedTime = 0
	b.Reset()

	for {
		err := r.relay(ctx, local, b.Reset)
		if ctx.Err() != nil {
			return
		}
		wait := b.NextBackOff()
		r.log.Warnw("redis relay subscription failed, retrying",
			"channel", r.channel,
			"retryIn", wait,
			"error", err,
		)
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
	}
}

// relay runs one subscription. subscribed is called once redis confirms it.
func (r *RedisRelay) relay(ctx context.Context, local custody.Notifier, subscribed func()) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	// wait for the subscription to be confirmed before reading
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", r.channel, err)
	}
	subscribed()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return errSubscriptionClosed
			}
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				r.log.Warnw("dropping malformed relay message", "error", err)
				continue
			}
			if env.Origin == r.origin {
				continue
			}
			if err := local.Publish(ctx, env.Event); err != nil {
				r.log.Warnw("relayed event not delivered",
					"type", env.Event.Type,
					"recordId", env.Event.RecordID,
					"error", err,
				)
			}
		}
	}
}

// Ping checks the redis server is reachable
func (r *RedisRelay) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the redis client
func (r *RedisRelay) Close() error {
	return r.client.Close()
}

// unlockScript deletes the lock only while owner still holds it
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func lockKey(name string) string {
	return "custody:lock:" + name
}

// TryLock takes the named lock for owner unless another owner holds it
func (r *RedisRelay) TryLock(ctx context.Context, name, owner string, ttl time.Duration) (bool, error) {
	return r.client.SetNX(ctx, lockKey(name), owner, ttl).Result()
}

// Unlock releases the named lock if owner holds it
func (r *RedisRelay) Unlock(ctx context.Context, name, owner string) error {
	return unlockScript.Run(ctx, r.client, []string{lockKey(name)}, owner).Err()
}
