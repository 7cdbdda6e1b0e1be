package middleware

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/pharma-chain/pharma_chain/internal/gateway"
)

const identityLocal = "identity"

// IdentitySource returns the identity of the current session.
type IdentitySource interface {
	Identity() *gateway.User
}

// RequireSession rejects requests while the session has no identity and
// stores the identity in the request locals otherwise.
func RequireSession(sessions IdentitySource) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := sessions.Identity()
		if user == nil {
			return fiber.NewError(http.StatusUnauthorized, "login required")
		}
		c.Locals(identityLocal, user)
		return c.Next()
	}
}

// IdentityFrom returns the identity stored by RequireSession.
func IdentityFrom(c *fiber.Ctx) *gateway.User {
	user, _ := c.Locals(identityLocal).(*gateway.User)
	return user
}
