package auth_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/user-management-service/internal/auth"
	"github.com/spec-kit/user-management-service/internal/config"
	"github.com/spec-kit/user-management-service/internal/domain"
	"github.com/spec-kit/user-management-service/internal/events"
	"github.com/spec-kit/user-management-service/internal/observability"
	"github.com/spec-kit/user-management-service/internal/service"
	"github.com/spec-kit/user-management-service/internal/tokenstore"
)

const gateTestSecret = "gate-test-secret"

type stubUserRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{users: make(map[string]*domain.User)}
}

func (s *stubUserRepo) add(username string) *domain.User {
	hash, _ := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	user := &domain.User{
		ID:           username + "-id",
		Email:        username + "@example.com",
		Username:     username,
		PasswordHash: string(hash),
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[username] = user
	return user
}

func (s *stubUserRepo) remove(username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, username)
}

func (s *stubUserRepo) Create(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.Username] = user
	return nil
}

func (s *stubUserRepo) Update(context.Context, *domain.User) error { return nil }
func (s *stubUserRepo) Delete(context.Context, string) error       { return nil }

func (s *stubUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (s *stubUserRepo) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user, ok := s.users[username]; ok {
		return user, nil
	}
	return nil, pgx.ErrNoRows
}

func (s *stubUserRepo) GetByEmail(context.Context, string) (*domain.User, error) {
	return nil, pgx.ErrNoRows
}

func (s *stubUserRepo) CheckUserToken(context.Context, string, string) (*domain.User, error) {
	return nil, pgx.ErrNoRows
}

func (s *stubUserRepo) SetToken(context.Context, string, string) error { return nil }

// failingWrites fails every access write while leaving reads intact.
type failingWrites struct {
	service.TokenStore
}

func (f failingWrites) PutAccess(context.Context, domain.TokenRole, domain.AccessRecord) error {
	return tokenstore.ErrStoreWrite
}

type gateEnv struct {
	app     *fiber.App
	repo    *stubUserRepo
	store   *tokenstore.Store
	codec   *auth.TokenCodec
	metrics *observability.Metrics
}

func newGateEnv(t *testing.T, wrapStore func(service.TokenStore) service.TokenStore) *gateEnv {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := tokenstore.New(client, config.TokenStoreConfig{
		AccessPrefix:     "tokens:access",
		RefreshPrefix:    "tokens:refresh",
		AccessTTLMinutes: 15,
		RefreshTTLHours:  24,
		OpTimeoutMillis:  5000,
	})

	var svcStore service.TokenStore = store
	if wrapStore != nil {
		svcStore = wrapStore(store)
	}

	codec := auth.NewTokenCodec(gateTestSecret, 15*time.Minute, 24*time.Hour)
	repo := newStubUserRepo()
	metrics := observability.NewMetrics()

	svc := service.NewAuthService(config.AuthConfig{
		JWTSecret:             gateTestSecret,
		BcryptCost:            bcrypt.MinCost,
		PersistTimeoutSeconds: 2,
	}, service.AuthDependencies{
		UserRepo:   repo,
		Store:      svcStore,
		Codec:      codec,
		Dispatcher: events.NewInMemoryDispatcher(),
		Logger:     zap.NewNop(),
		Metrics:    metrics,
	})

	gate := auth.NewRequestGate(svc, codec, zap.NewNop(), metrics)

	app := fiber.New()
	app.Get("/authenticate/validate", gate.Handle, func(c *fiber.Ctx) error {
		principal, ok := auth.PrincipalFromContext(c)
		if !ok {
			return fiber.NewError(http.StatusInternalServerError, "principal missing")
		}
		return c.JSON(fiber.Map{"username": principal.Username, "role": principal.Role})
	})
	// an unguarded route to show the gate only binds to the validation path
	app.Get("/health/live", func(c *fiber.Ctx) error {
		return c.SendString("alive")
	})

	return &gateEnv{app: app, repo: repo, store: store, codec: codec, metrics: metrics}
}

func (e *gateEnv) validate(t *testing.T, header string) (*http.Response, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/authenticate/validate", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	_ = resp.Body.Close()
	return resp, string(body)
}

func (e *gateEnv) seedAccess(t *testing.T, username string, role domain.TokenRole) string {
	t.Helper()
	token, _, err := e.codec.Issue(username)
	require.NoError(t, err)
	require.NoError(t, e.store.PutAccess(context.Background(), role, domain.AccessRecord{
		Username:    username,
		Role:        role,
		AccessToken: token,
	}))
	return token
}

func (e *gateEnv) seedRefresh(t *testing.T, username string, role domain.TokenRole) string {
	t.Helper()
	token, _, err := e.codec.IssueRefresh(username)
	require.NoError(t, err)
	require.NoError(t, e.store.PutRefresh(context.Background(), role, domain.RefreshRecord{
		Username:     username,
		Role:         role,
		RefreshToken: token,
	}))
	return token
}

func expiredToken(t *testing.T, username string) string {
	t.Helper()
	short := auth.NewTokenCodec(gateTestSecret, time.Millisecond, 24*time.Hour)
	token, _, err := short.Issue(username)
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)
	return token
}

func TestGateRejectsMissingHeader(t *testing.T) {
	env := newGateEnv(t, nil)

	resp, body := env.validate(t, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Unauthorized", body)
	assert.Equal(t, int64(1), env.metrics.UnauthorizedCount("/authenticate/validate"))
}

func TestGateRejectsNonBearerScheme(t *testing.T) {
	env := newGateEnv(t, nil)

	resp, body := env.validate(t, "Basic dXNlcjpwYXNz")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Unauthorized", body)
}

func TestGateRejectsGarbageToken(t *testing.T) {
	env := newGateEnv(t, nil)
	env.repo.add("alice")

	resp, body := env.validate(t, "Bearer not-a-token")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Unauthorized", body)
}

func TestGateAcceptsValidToken(t *testing.T) {
	env := newGateEnv(t, nil)
	env.repo.add("alice")
	token := env.seedAccess(t, "alice", domain.RoleSubscriber)

	resp, body := env.validate(t, "Bearer "+token)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "alice")
	assert.Contains(t, body, "subscriber")
}

func TestGateRejectsValidTokenWithNoStoreRecord(t *testing.T) {
	env := newGateEnv(t, nil)
	env.repo.add("alice")

	token, _, err := env.codec.Issue("alice")
	require.NoError(t, err)

	resp, _ := env.validate(t, "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestGateRejectsWhenUserMissing(t *testing.T) {
	env := newGateEnv(t, nil)
	env.repo.add("alice")
	token := env.seedAccess(t, "alice", domain.RoleSubscriber)
	env.repo.remove("alice")

	resp, _ := env.validate(t, "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestGateRefreshesExpiredToken(t *testing.T) {
	env := newGateEnv(t, nil)
	env.repo.add("alice")
	env.seedRefresh(t, "alice", domain.RoleSubscriber)
	stale := expiredToken(t, "alice")

	resp, body := env.validate(t, "Bearer "+stale)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "alice")
	assert.Contains(t, body, "subscriber")
	assert.Equal(t, int64(1), env.metrics.TokenRefreshCount("subscriber"))

	// the write-behind persistence eventually lands a fresh token
	require.Eventually(t, func() bool {
		record, err := env.store.GetAccess(context.Background(), domain.RoleSubscriber)
		return err == nil && record.AccessToken != stale && record.Username == "alice"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestGateRejectsExpiredTokenWithoutRefresh(t *testing.T) {
	env := newGateEnv(t, nil)
	env.repo.add("alice")

	resp, body := env.validate(t, "Bearer "+expiredToken(t, "alice"))
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Unauthorized", body)
}

func TestGateCompletesWhenPersistenceFails(t *testing.T) {
	env := newGateEnv(t, func(s service.TokenStore) service.TokenStore {
		return failingWrites{s}
	})
	env.repo.add("alice")
	env.seedRefresh(t, "alice", domain.RoleSubscriber)

	// the freshly minted token authorizes this request even though the
	// opportunistic store write can never succeed
	resp, body := env.validate(t, "Bearer "+expiredToken(t, "alice"))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "alice")
}

func TestGateDoesNotGuardOtherPaths(t *testing.T) {
	env := newGateEnv(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
