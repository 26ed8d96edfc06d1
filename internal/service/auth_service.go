package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/user-management-service/internal/auth"
	"github.com/spec-kit/user-management-service/internal/config"
	"github.com/spec-kit/user-management-service/internal/domain"
	"github.com/spec-kit/user-management-service/internal/events"
	"github.com/spec-kit/user-management-service/internal/observability"
	"github.com/spec-kit/user-management-service/internal/repository"
	"github.com/spec-kit/user-management-service/internal/tokenstore"
)

var (
	// ErrUnknownPrincipal is returned when a token matches no store record.
	ErrUnknownPrincipal = errors.New("unknown principal")
	// ErrNoRefreshToken is returned when no live refresh token exists for
	// the expired access token's subject. Terminal for that session.
	ErrNoRefreshToken = errors.New("no refresh token on record")
	// ErrUserNotFound is returned when the username resolves to no account.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidCredentials covers bad username/password pairs.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidRole rejects roles outside the known partitions.
	ErrInvalidRole = errors.New("invalid token role")
)

// TokenStore is the slice of the role-partitioned cache the service needs.
type TokenStore interface {
	GetAccess(ctx context.Context, role domain.TokenRole) (*domain.AccessRecord, error)
	PutAccess(ctx context.Context, role domain.TokenRole, record domain.AccessRecord) error
	DeleteAccess(ctx context.Context, role domain.TokenRole) error
	GetRefresh(ctx context.Context, role domain.TokenRole) (*domain.RefreshRecord, error)
	PutRefresh(ctx context.Context, role domain.TokenRole, record domain.RefreshRecord) error
	DeleteRefresh(ctx context.Context, role domain.TokenRole) error
}

// AuthService orchestrates token lookups against the store and the user
// collaborator, and performs the refresh-token exchange.
type AuthService struct {
	users          repository.UserRepository
	store          TokenStore
	codec          *auth.TokenCodec
	dispatcher     events.Dispatcher
	logger         *zap.Logger
	metrics        *observability.Metrics
	bcryptCost     int
	persistTimeout time.Duration
}

// AuthDependencies encapsulates collaborator requirements for the service.
type AuthDependencies struct {
	UserRepo   repository.UserRepository
	Store      TokenStore
	Codec      *auth.TokenCodec
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Metrics    *observability.Metrics
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, deps AuthDependencies) *AuthService {
	return &AuthService{
		users:          deps.UserRepo,
		store:          deps.Store,
		codec:          deps.Codec,
		dispatcher:     deps.Dispatcher,
		logger:         deps.Logger,
		metrics:        deps.Metrics,
		bcryptCost:     cfg.BcryptCost,
		persistTimeout: cfg.PersistTimeout(),
	}
}

// GetRoleFromToken resolves the role whose access slot holds this token.
func (s *AuthService) GetRoleFromToken(ctx context.Context, accessToken string) (domain.TokenRole, error) {
	if _, err := s.codec.ParseSubject(accessToken); err != nil {
		return "", err
	}

	for _, role := range domain.Roles {
		record, err := s.store.GetAccess(ctx, role)
		if err != nil {
			if errors.Is(err, tokenstore.ErrTokenNotFound) {
				continue
			}
			return "", err
		}
		if record.AccessToken == accessToken {
			return role, nil
		}
	}
	return "", ErrUnknownPrincipal
}

// GetRefreshToken retrieves the live refresh token for the subject of an
// access token that failed validation due to expiry. A refresh token that
// has itself expired does not count.
func (s *AuthService) GetRefreshToken(ctx context.Context, expiredAccessToken string) (string, error) {
	subject, err := s.codec.ExpiredSubject(expiredAccessToken)
	if err != nil {
		return "", err
	}

	for _, role := range domain.Roles {
		record, err := s.store.GetRefresh(ctx, role)
		if err != nil {
			if errors.Is(err, tokenstore.ErrTokenNotFound) {
				continue
			}
			return "", err
		}
		if record.Username != subject {
			continue
		}
		if _, err := s.codec.ParseSubject(record.RefreshToken); err != nil {
			continue
		}
		return record.RefreshToken, nil
	}
	return "", ErrNoRefreshToken
}

// GetRoleByRefreshToken resolves the role whose refresh slot holds this token.
func (s *AuthService) GetRoleByRefreshToken(ctx context.Context, refreshToken string) (domain.TokenRole, error) {
	for _, role := range domain.Roles {
		record, err := s.store.GetRefresh(ctx, role)
		if err != nil {
			if errors.Is(err, tokenstore.ErrTokenNotFound) {
				continue
			}
			return "", err
		}
		if record.RefreshToken == refreshToken {
			return role, nil
		}
	}
	return "", ErrUnknownPrincipal
}

// LoadUserByUsername delegates to the user collaborator.
func (s *AuthService) LoadUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// UpdateToken persists a freshly minted access token under the resolved
// role. The write runs behind the request on a detached bounded context:
// the caller already holds a valid token, so a failed or slow cache write
// must never gate request completion. Failures are logged and published,
// not returned.
func (s *AuthService) UpdateToken(accessToken string, role domain.TokenRole) {
	username, err := s.codec.ParseSubject(accessToken)
	if err != nil {
		s.logger.Warn("refusing to persist unverifiable token", zap.Error(err))
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.persistTimeout)
		defer cancel()

		record := domain.AccessRecord{Username: username, Role: role, AccessToken: accessToken}
		if err := s.store.PutAccess(ctx, role, record); err != nil {
			s.logger.Error("write-behind token persistence failed",
				zap.String("role", string(role)),
				zap.String("username", username),
				zap.Error(err))
			s.metrics.RecordPersistFailure()
			s.publish(ctx, events.EventTokenPersistFailed, username,
				events.TokenPersistFailedPayload{Role: role, Reason: err.Error()})
			return
		}

		s.publish(ctx, events.EventTokenRefreshed, username,
			events.TokenRefreshedPayload{Role: role})
	}()
}

// Login authenticates a user, issues an access/refresh token pair, and
// seeds both store partitions for the requested role.
func (s *AuthService) Login(ctx context.Context, username, password string, role domain.TokenRole) (*domain.User, string, string, time.Time, error) {
	if !role.Valid() {
		return nil, "", "", time.Time{}, ErrInvalidRole
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", "", time.Time{}, ErrInvalidCredentials
		}
		return nil, "", "", time.Time{}, err
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, "", "", time.Time{}, ErrInvalidCredentials
	}

	accessToken, expiresAt, err := s.codec.Issue(username)
	if err != nil {
		return nil, "", "", time.Time{}, err
	}
	refreshToken, _, err := s.codec.IssueRefresh(username)
	if err != nil {
		return nil, "", "", time.Time{}, err
	}

	if err := s.store.PutAccess(ctx, role, domain.AccessRecord{
		Username:    username,
		Role:        role,
		AccessToken: accessToken,
	}); err != nil {
		return nil, "", "", time.Time{}, err
	}
	if err := s.store.PutRefresh(ctx, role, domain.RefreshRecord{
		Username:     username,
		Role:         role,
		RefreshToken: refreshToken,
	}); err != nil {
		return nil, "", "", time.Time{}, err
	}

	if err := s.users.SetToken(ctx, user.ID, accessToken); err != nil {
		s.logger.Warn("failed to record issued token on user", zap.Error(err))
	}
	user.Token = accessToken

	s.publish(ctx, events.EventUserLoggedIn, username, events.UserLoggedInPayload{Role: role})
	return user, accessToken, refreshToken, expiresAt, nil
}

// Register creates a new account with a hashed password.
func (s *AuthService) Register(ctx context.Context, email, username, password string) (*domain.User, error) {
	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		return nil, errors.New("username already registered")
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Email:        email,
		Username:     username,
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.publish(ctx, events.EventUserRegistered, username, nil)
	return user, nil
}

// Codec exposes the token codec for the request gate.
func (s *AuthService) Codec() *auth.TokenCodec {
	return s.codec
}

func (s *AuthService) publish(ctx context.Context, eventType events.EventType, username string, payload interface{}) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Username:  username,
		Timestamp: time.Now(),
		Payload:   payload,
	})
}
