package tokenstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/user-management-service/internal/config"
	"github.com/spec-kit/user-management-service/internal/domain"
)

var (
	// ErrTokenNotFound is returned when a partition holds no record for the role.
	ErrTokenNotFound = errors.New("token record not found")
	// ErrStoreTimeout marks a store call that exceeded its bounded timeout.
	// Callers must treat it as a store failure, never as a missing token.
	ErrStoreTimeout = errors.New("token store timeout")
	// ErrStoreWrite marks a failed cache mutation.
	ErrStoreWrite = errors.New("token store write failed")
	// ErrStoreUnavailable marks a failed cache read.
	ErrStoreUnavailable = errors.New("token store unavailable")
)

// serializer converts a partition's record type to and from its wire form.
// Each partition configures its own instance.
type serializer[T any] interface {
	Marshal(T) ([]byte, error)
	Unmarshal([]byte) (T, error)
}

// jsonSerializer is the JSON wire format used by both partitions.
type jsonSerializer[T any] struct{}

func (jsonSerializer[T]) Marshal(v T) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonSerializer[T]) Unmarshal(data []byte) (T, error) {
	var v T
	err := json.Unmarshal(data, &v)
	return v, err
}

// partition is an isolated keyspace with its own serializer and TTL policy.
type partition[T any] struct {
	client    *redis.Client
	codec     serializer[T]
	prefix    string
	ttl       time.Duration
	opTimeout time.Duration
}

func (p *partition[T]) key(role domain.TokenRole) string {
	return p.prefix + ":" + string(role)
}

func (p *partition[T]) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, p.opTimeout)
}

func (p *partition[T]) get(ctx context.Context, role domain.TokenRole) (T, error) {
	var zero T

	ctx, cancel := p.bound(ctx)
	defer cancel()

	data, err := p.client.Get(ctx, p.key(role)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return zero, ErrTokenNotFound
		}
		return zero, mapStoreErr(err, ErrStoreUnavailable)
	}

	record, err := p.codec.Unmarshal(data)
	if err != nil {
		return zero, fmt.Errorf("%w: decode record: %v", ErrStoreUnavailable, err)
	}
	return record, nil
}

func (p *partition[T]) put(ctx context.Context, role domain.TokenRole, record T) error {
	data, err := p.codec.Marshal(record)
	if err != nil {
		return fmt.Errorf("%w: encode record: %v", ErrStoreWrite, err)
	}

	ctx, cancel := p.bound(ctx)
	defer cancel()

	if err := p.client.Set(ctx, p.key(role), data, p.ttl).Err(); err != nil {
		return mapStoreErr(err, ErrStoreWrite)
	}
	return nil
}

func (p *partition[T]) delete(ctx context.Context, role domain.TokenRole) error {
	ctx, cancel := p.bound(ctx)
	defer cancel()

	if err := p.client.Del(ctx, p.key(role)).Err(); err != nil {
		return mapStoreErr(err, ErrStoreWrite)
	}
	return nil
}

func mapStoreErr(err error, fallback error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrStoreTimeout, err)
	}
	return fmt.Errorf("%w: %v", fallback, err)
}

// Store is the role-partitioned token cache. The access and refresh
// partitions carry independent serializers, key prefixes, and TTLs, so a
// role's access entry can expire while its refresh entry lives on.
// All operations are best-effort cache mutations; re-putting the same
// record for a role is a no-op in effect.
type Store struct {
	access  partition[domain.AccessRecord]
	refresh partition[domain.RefreshRecord]
}

// New builds the store on top of an established Redis client.
func New(client *redis.Client, cfg config.TokenStoreConfig) *Store {
	return &Store{
		access: partition[domain.AccessRecord]{
			client:    client,
			codec:     jsonSerializer[domain.AccessRecord]{},
			prefix:    cfg.AccessPrefix,
			ttl:       cfg.AccessTTL(),
			opTimeout: cfg.OpTimeout(),
		},
		refresh: partition[domain.RefreshRecord]{
			client:    client,
			codec:     jsonSerializer[domain.RefreshRecord]{},
			prefix:    cfg.RefreshPrefix,
			ttl:       cfg.RefreshTTL(),
			opTimeout: cfg.OpTimeout(),
		},
	}
}

// GetAccess returns the live access record for the role, or ErrTokenNotFound.
func (s *Store) GetAccess(ctx context.Context, role domain.TokenRole) (*domain.AccessRecord, error) {
	record, err := s.access.get(ctx, role)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// PutAccess replaces the role's access record, applying the access TTL.
func (s *Store) PutAccess(ctx context.Context, role domain.TokenRole, record domain.AccessRecord) error {
	return s.access.put(ctx, role, record)
}

// DeleteAccess removes the role's access record.
func (s *Store) DeleteAccess(ctx context.Context, role domain.TokenRole) error {
	return s.access.delete(ctx, role)
}

// GetRefresh returns the live refresh record for the role, or ErrTokenNotFound.
func (s *Store) GetRefresh(ctx context.Context, role domain.TokenRole) (*domain.RefreshRecord, error) {
	record, err := s.refresh.get(ctx, role)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// PutRefresh replaces the role's refresh record, applying the refresh TTL.
func (s *Store) PutRefresh(ctx context.Context, role domain.TokenRole, record domain.RefreshRecord) error {
	return s.refresh.put(ctx, role, record)
}

// DeleteRefresh removes the role's refresh record.
func (s *Store) DeleteRefresh(ctx context.Context, role domain.TokenRole) error {
	return s.refresh.delete(ctx, role)
}
