package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/classhub/subject-service/internal/domain"
	"github.com/classhub/subject-service/internal/events"
	"github.com/classhub/subject-service/internal/repository"
	apperrors "github.com/classhub/subject-service/pkg/util"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller. It is built from token
// claims alone, a point-in-time projection of the account at login; no
// database lookup happens on the request path.
type Principal struct {
	AccountID string
	Username  string
	Role      domain.Role
	ExpiresAt time.Time
	Token     string
}

// AuthMiddleware validates bearer tokens and attaches the caller identity.
type AuthMiddleware struct {
	tokens     *TokenManager
	denylist   repository.TokenDenylist
	dispatcher events.Dispatcher
}

// NewAuthMiddleware constructs middleware. The denylist and dispatcher are
// optional; a nil denylist disables revocation checks.
func NewAuthMiddleware(tokens *TokenManager, denylist repository.TokenDenylist, dispatcher events.Dispatcher) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, denylist: denylist, dispatcher: dispatcher}
}

// Handle enforces authentication for protected routes. Every rejection
// renders the same unauthenticated response; the concrete reason is kept
// for the audit trail only.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return apperrors.NewUnauthenticated("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthenticated("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(parts[1])
	if err != nil {
		m.publishRejected(c, rejectReason(err))
		return apperrors.NewUnauthenticated("invalid token")
	}

	if m.denylist != nil {
		revoked, err := m.denylist.IsRevoked(c.UserContext(), parts[1])
		if err != nil {
			// Unknown revocation state counts as revoked.
			m.publishRejected(c, "denylist_unavailable")
			return apperrors.NewUnauthenticated("invalid token")
		}
		if revoked {
			m.publishRejected(c, "revoked")
			return apperrors.NewUnauthenticated("invalid token")
		}
	}

	c.Locals(principalKey, &Principal{
		AccountID: claims.AccountID(),
		Username:  claims.Username,
		Role:      claims.Role,
		ExpiresAt: claims.ExpiresAt.Time,
		Token:     parts[1],
	})
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated caller.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}

func (m *AuthMiddleware) publishRejected(c *fiber.Ctx, reason string) {
	if m.dispatcher == nil {
		return
	}
	_ = m.dispatcher.Publish(c.UserContext(), events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventTokenRejected,
		Timestamp: time.Now(),
		Payload: events.TokenRejectedPayload{
			Reason: reason,
			Method: c.Method(),
			Path:   c.Path(),
		},
	})
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, ErrTokenMalformed):
		return "malformed"
	case errors.Is(err, ErrTokenSignature):
		return "bad_signature"
	case errors.Is(err, ErrTokenExpired):
		return "expired"
	default:
		return "invalid"
	}
}
