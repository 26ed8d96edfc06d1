package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/user-management-service/internal/domain"
	"github.com/spec-kit/user-management-service/internal/observability"
	apperrors "github.com/spec-kit/user-management-service/pkg/util"
)

const (
	principalKey = "auth_principal"
	bearerPrefix = "Bearer "
)

// Authenticator is the slice of the authentication service the gate needs.
type Authenticator interface {
	GetRoleFromToken(ctx context.Context, accessToken string) (domain.TokenRole, error)
	GetRefreshToken(ctx context.Context, expiredAccessToken string) (string, error)
	GetRoleByRefreshToken(ctx context.Context, refreshToken string) (domain.TokenRole, error)
	LoadUserByUsername(ctx context.Context, username string) (*domain.User, error)
	UpdateToken(accessToken string, role domain.TokenRole)
}

// RequestGate validates bearer tokens on the guarded path, silently
// refreshing expired access tokens when a live refresh token exists. It is
// stateless across requests; the authenticated principal lives in the
// request locals, never in process-wide state.
type RequestGate struct {
	auth    Authenticator
	codec   *TokenCodec
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewRequestGate constructs the gate with explicit collaborators.
func NewRequestGate(authenticator Authenticator, codec *TokenCodec, logger *zap.Logger, metrics *observability.Metrics) *RequestGate {
	return &RequestGate{auth: authenticator, codec: codec, logger: logger, metrics: metrics}
}

// Handle enforces authentication for the guarded route.
func (g *RequestGate) Handle(c *fiber.Ctx) error {
	header := c.Get(fiber.HeaderAuthorization)
	if !strings.HasPrefix(header, bearerPrefix) {
		g.logger.Warn("authorization header missing or not bearer")
		return g.reject(c)
	}

	ctx := c.UserContext()
	token := header[len(bearerPrefix):]

	var (
		username string
		role     domain.TokenRole
	)

	subject, err := g.codec.ParseSubject(token)
	switch {
	case err == nil:
		username = subject
		role, err = g.auth.GetRoleFromToken(ctx, token)
		if err != nil {
			// a valid token that no partition recognizes is terminal, and so
			// is a store failure on a read the decision depends on
			g.logger.Warn("role lookup failed", zap.Error(err))
			return g.reject(c)
		}

	case errors.Is(err, ErrTokenExpired):
		g.logger.Debug("access token expired, attempting refresh")

		refreshToken, rerr := g.auth.GetRefreshToken(ctx, token)
		if rerr != nil {
			g.logger.Warn("refresh token unavailable", zap.Error(rerr))
			break
		}
		refreshSubject, rerr := g.codec.ParseSubject(refreshToken)
		if rerr != nil {
			g.logger.Warn("stored refresh token unusable", zap.Error(rerr))
			break
		}
		refreshRole, rerr := g.auth.GetRoleByRefreshToken(ctx, refreshToken)
		if rerr != nil {
			g.logger.Warn("refresh role lookup failed", zap.Error(rerr))
			break
		}

		minted, _, merr := g.codec.Issue(refreshSubject)
		if merr != nil {
			return apperrors.NewInternalError(merr)
		}

		// the minted token authorizes this request immediately; persistence
		// runs behind the request and must not gate it
		g.auth.UpdateToken(minted, refreshRole)
		g.metrics.RecordTokenRefresh(string(refreshRole))

		token = minted
		username = refreshSubject
		role = refreshRole

	default:
		g.logger.Warn("unable to decode bearer token")
	}

	if username != "" && role != "" {
		if principal, ok := PrincipalFromContext(c); ok && principal != nil {
			// authentication already established for this request; forward as-is
			return c.Next()
		}

		user, uerr := g.auth.LoadUserByUsername(ctx, username)
		if uerr != nil {
			g.logger.Warn("user lookup failed", zap.String("username", username), zap.Error(uerr))
			return g.reject(c)
		}
		if !g.codec.Validate(token, user) {
			g.logger.Warn("token failed validation against user details", zap.String("username", username))
			return g.reject(c)
		}

		c.Locals(principalKey, &domain.Principal{Username: username, Role: role})
		return c.Next()
	}

	return g.reject(c)
}

func (g *RequestGate) reject(c *fiber.Ctx) error {
	g.metrics.RecordUnauthorized(c.Path())
	return c.Status(http.StatusUnauthorized).SendString("Unauthorized")
}

// PrincipalFromContext retrieves the authenticated principal, if any.
func PrincipalFromContext(c *fiber.Ctx) (*domain.Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*domain.Principal)
	return principal, ok
}
