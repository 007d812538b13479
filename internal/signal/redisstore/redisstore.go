// Package redisstore provides a Redis implementation of signal.Store. Every
// Set publishes the changed key on a channel so that readers in other
// processes refresh without waiting for their next poll.
package redisstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/linnemanlabs/bloomwatch/internal/signal"
)

var tracer = otel.Tracer("github.com/linnemanlabs/bloomwatch/internal/signal/redisstore")

// DefaultPrefix namespaces keys and the change channel.
const DefaultPrefix = "bloomwatch:signal:"

// Store persists signals in Redis.
type Store struct {
	client *redis.Client
	prefix string
}

// New returns a Store over client. An empty prefix uses DefaultPrefix.
func New(client *redis.Client, prefix string) *Store {
	if client == nil {
		panic("redisstore: redis client cannot be nil")
	}
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{client: client, prefix: prefix}
}

// Get returns the value stored under key.
func (s *Store) Get(ctx context.Context, key signal.Key) ([]byte, bool, error) {
	ctx, span := tracer.Start(ctx, "redisstore.Get", trace.WithAttributes(
		attribute.String("db.system", "redis"),
		attribute.String("bloomwatch.signal.key", string(key)),
	))
	defer span.End()

	b, err := s.client.Get(ctx, s.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, false, fmt.Errorf("redisstore: get %s: %w", key, err)
	}
	return b, true, nil
}

// Set stores value and publishes key on the change channel in one transaction.
func (s *Store) Set(ctx context.Context, key signal.Key, value []byte) error {
	ctx, span := tracer.Start(ctx, "redisstore.Set", trace.WithAttributes(
		attribute.String("db.system", "redis"),
		attribute.String("bloomwatch.signal.key", string(key)),
	))
	defer span.End()

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(key), value, 0)
		pipe.Publish(ctx, s.channel(), string(key))
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("redisstore: set %s: %w", key, err)
	}
	return nil
}

// Subscribe listens on the change channel. The subscription is confirmed
// before Subscribe returns, so no write made afterwards is missed. The
// returned channel is closed when ctx is done or the connection drops.
func (s *Store) Subscribe(ctx context.Context) (<-chan signal.Key, error) {
	ps := s.client.Subscribe(ctx, s.channel())
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("redisstore: subscribe: %w", err)
	}

	out := make(chan signal.Key, 16)
	msgs := ps.Channel()

	go func() {
		defer close(out)
		defer func() { _ = ps.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-msgs:
				if !ok {
					return
				}
				select {
				case out <- signal.Key(m.Payload):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

func (s *Store) key(k signal.Key) string {
	return s.prefix + string(k)
}

func (s *Store) channel() string {
	return s.prefix + "changes"
}
