package auth

import (
	"crypto/subtle"
	"strings"

	"github.com/contre95/m3ushelf/src/features/config"
	"github.com/gofiber/fiber/v2"
)

// Anonymous is the principal used when authentication is disabled.
const Anonymous = "anonymous"

const principalKey = "principal"

// Principal is the authenticated caller of a request.
type Principal struct {
	User string
}

// ExtractToken reads the API token from the Authorization bearer header or X-API-Token.
func ExtractToken(c *fiber.Ctx) string {
	if h := c.Get(fiber.HeaderAuthorization); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(h[len("Bearer "):])
	}
	return strings.TrimSpace(c.Get("X-API-Token"))
}

// Authenticate returns the user owning token. Every configured token is
// compared in constant time.
func Authenticate(tokens []config.APIToken, token string) (string, bool) {
	if token == "" {
		return "", false
	}
	user, found := "", false
	for _, t := range tokens {
		if strings.TrimSpace(t.Token) == "" {
			continue
		}
		if subtle.ConstantTimeCompare([]byte(token), []byte(t.Token)) == 1 && !found {
			user, found = t.User, true
		}
	}
	return user, found
}

// FromCtx returns the principal stored by the middleware.
func FromCtx(c *fiber.Ctx) Principal {
	if p, ok := c.Locals(principalKey).(Principal); ok {
		return p
	}
	return Principal{User: Anonymous}
}
