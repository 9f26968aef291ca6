package middleware

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/mathieu-neron/modelmart/modelmart-go/internal/apperr"
	"github.com/mathieu-neron/modelmart/modelmart-go/internal/auth"
)

const identityKey = "identity"

// TokenVerifier turns a raw bearer token into a verified identity.
type TokenVerifier interface {
	Verify(ctx context.Context, raw string) (*auth.Identity, error)
}

// RequireAuth rejects requests without a valid "Authorization: Bearer" ID
// token and stores the verified identity for handlers.
func RequireAuth(v TokenVerifier) fiber.Handler {
	return func(c fiber.Ctx) error {
		token, ok := bearerToken(c.Get(fiber.HeaderAuthorization))
		if !ok {
			return ErrorResponse(c, fiber.StatusUnauthorized, "UNAUTHENTICATED", "Missing bearer token")
		}

		id, err := v.Verify(c.Context(), token)
		if err != nil {
			if ae, ok := apperr.As(err); ok && ae.Cause != nil {
				Logger.Debug().Err(ae.Cause).Msg("auth: token rejected")
			}
			return ErrorResponse(c, fiber.StatusUnauthorized, "UNAUTHENTICATED", "Invalid or expired token")
		}

		c.Locals(identityKey, id)
		return c.Next()
	}
}

// IdentityFrom returns the identity stored by RequireAuth, or nil.
func IdentityFrom(c fiber.Ctx) *auth.Identity {
	id, _ := c.Locals(identityKey).(*auth.Identity)
	return id
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
