// Package redisstore shares the credential pair between processes through Redis.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jrsteele09/appo-client/token"
	"github.com/redis/go-redis/v9"
)

var _ token.Storage = (*Store)(nil)

type Store struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

type Option func(*Store)

// WithPrefix namespaces every key, e.g. "appo:" + "appo_access_token".
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// WithTTL expires stored tokens. Zero keeps them until removed.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

func New(client *redis.Client, options ...Option) *Store {
	s := &Store{client: client}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// Connect dials Redis and verifies the connection with a PING.
func Connect(ctx context.Context, addr, password string, db int, options ...Option) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return New(client, options...), nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.client.Get(ctx, s.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return v, true, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, s.prefix+key, value, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (s *Store) Remove(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}
