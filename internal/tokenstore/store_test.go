package tokenstore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/user-management-service/internal/config"
	"github.com/spec-kit/user-management-service/internal/domain"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := config.TokenStoreConfig{
		AccessPrefix:     "tokens:access",
		RefreshPrefix:    "tokens:refresh",
		AccessTTLMinutes: 1,
		RefreshTTLHours:  1,
		OpTimeoutMillis:  5000,
	}
	return New(client, cfg), mr
}

func TestAccessPartitionRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	record := domain.AccessRecord{
		Username:    "alice",
		Role:        domain.RoleSubscriber,
		AccessToken: "token-a",
	}
	require.NoError(t, store.PutAccess(ctx, domain.RoleSubscriber, record))

	got, err := store.GetAccess(ctx, domain.RoleSubscriber)
	require.NoError(t, err)
	assert.Equal(t, record, *got)

	require.NoError(t, store.DeleteAccess(ctx, domain.RoleSubscriber))
	_, err = store.GetAccess(ctx, domain.RoleSubscriber)
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestMissingRecord(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.GetAccess(ctx, domain.RolePublisher)
	assert.ErrorIs(t, err, ErrTokenNotFound)

	_, err = store.GetRefresh(ctx, domain.RolePublisher)
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestPartitionsExpireIndependently(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.PutAccess(ctx, domain.RolePublisher, domain.AccessRecord{
		Username:    "alice",
		Role:        domain.RolePublisher,
		AccessToken: "short-lived",
	}))
	require.NoError(t, store.PutRefresh(ctx, domain.RolePublisher, domain.RefreshRecord{
		Username:     "alice",
		Role:         domain.RolePublisher,
		RefreshToken: "long-lived",
	}))

	mr.FastForward(2 * time.Minute)

	_, err := store.GetAccess(ctx, domain.RolePublisher)
	assert.ErrorIs(t, err, ErrTokenNotFound)

	refresh, err := store.GetRefresh(ctx, domain.RolePublisher)
	require.NoError(t, err)
	assert.Equal(t, "long-lived", refresh.RefreshToken)
}

func TestRolesAreIsolated(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.PutAccess(ctx, domain.RolePublisher, domain.AccessRecord{
		Username:    "alice",
		Role:        domain.RolePublisher,
		AccessToken: "publisher-token",
	}))

	_, err := store.GetAccess(ctx, domain.RoleSubscriber)
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestRepeatedPutIsIdempotent(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	record := domain.AccessRecord{
		Username:    "alice",
		Role:        domain.RoleSubscriber,
		AccessToken: "token-a",
	}
	require.NoError(t, store.PutAccess(ctx, domain.RoleSubscriber, record))
	require.NoError(t, store.PutAccess(ctx, domain.RoleSubscriber, record))

	got, err := store.GetAccess(ctx, domain.RoleSubscriber)
	require.NoError(t, err)
	assert.Equal(t, record, *got)
}

func TestCanceledContextIsTimeoutNotMiss(t *testing.T) {
	store, _ := newTestStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.GetAccess(ctx, domain.RoleSubscriber)
	assert.ErrorIs(t, err, ErrStoreTimeout)
	assert.NotErrorIs(t, err, ErrTokenNotFound)

	err = store.PutAccess(ctx, domain.RoleSubscriber, domain.AccessRecord{})
	assert.ErrorIs(t, err, ErrStoreTimeout)
}

func TestUnreachableStore(t *testing.T) {
	store, mr := newTestStore(t)
	mr.Close()

	ctx := context.Background()

	_, err := store.GetAccess(ctx, domain.RoleSubscriber)
	assert.ErrorIs(t, err, ErrStoreUnavailable)

	err = store.PutAccess(ctx, domain.RoleSubscriber, domain.AccessRecord{AccessToken: "t"})
	assert.ErrorIs(t, err, ErrStoreWrite)
}
