package auth

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/classhub/subject-service/internal/domain"
	apperrors "github.com/classhub/subject-service/pkg/util"
)

// Authorization outcomes. ErrUnauthenticated means no verified identity was
// established; ErrForbidden means the identity lacks a required role. The
// HTTP layer maps them to 401 and 403 so a client can tell "log in" apart
// from "you lack permission".
var (
	ErrUnauthenticated = errors.New("auth: unauthenticated")
	ErrForbidden       = errors.New("auth: forbidden")
)

// Authorize is the single authorization decision point. A nil principal is
// rejected before any role comparison happens. An empty requirement admits
// any authenticated caller; otherwise the principal's role must be one of
// the required ones.
func Authorize(principal *Principal, required ...domain.Role) error {
	if principal == nil {
		return ErrUnauthenticated
	}
	if len(required) == 0 {
		return nil
	}
	for _, role := range required {
		if principal.Role == role {
			return nil
		}
	}
	return ErrForbidden
}

// RequireRole declares the roles allowed on the routes behind it. The set
// is fixed at route registration; every request then goes through the same
// Authorize decision.
func RequireRole(required ...domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, _ := PrincipalFromContext(c)
		err := Authorize(principal, required...)
		switch {
		case err == nil:
			return c.Next()
		case errors.Is(err, ErrUnauthenticated):
			return apperrors.NewUnauthenticated("authentication required")
		default:
			return apperrors.NewForbidden("insufficient role")
		}
	}
}
