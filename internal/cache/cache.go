// Package cache keeps computed sweep results in Redis, keyed by a hash of
// the request that produced them.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"
	"github.com/san-kum/bridgesim/internal/analysis"
)

var ErrMiss = errors.New("cache: entry not found")

const DefaultPrefix = "bridgesim:sweep:"

type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type Option func(*Store)

// WithTTL sets the expiration for cached entries. Zero keeps them forever.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New connects to the Redis server at address.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: DefaultPrefix,
		ttl:    time.Hour,
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// Key hashes the JSON encoding of request. Requests that encode equally
// share a key.
func Key(request any) (string, error) {
	data, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("cache: encode request: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

func (s *Store) key(k string) string {
	return s.prefix + k
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// GetSweep returns the cached results for key or ErrMiss.
func (s *Store) GetSweep(ctx context.Context, key string) ([]analysis.SweepResult, error) {
	val, err := s.client.Get(ctx, s.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("cache: get %s: %w", key, err)
	}

	var results []analysis.SweepResult
	if err := json.Unmarshal(val, &results); err != nil {
		return nil, fmt.Errorf("cache: decode %s: %w", key, err)
	}
	return results, nil
}

func (s *Store) PutSweep(ctx context.Context, key string, results []analysis.SweepResult) error {
	data, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("cache: encode results: %w", err)
	}
	if err := s.client.Set(ctx, s.key(key), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("cache: set %s: %w", key, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.key(key)).Err()
}

func (s *Store) Close() error {
	return s.client.Close()
}
