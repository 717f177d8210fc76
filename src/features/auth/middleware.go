package auth

import (
	"log/slog"

	"github.com/contre95/m3ushelf/src/features/config"
	"github.com/gofiber/fiber/v2"
)

// Middleware rejects requests without a valid API token and stores the
// caller as the request principal.
func Middleware(cfg *config.Manager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authCfg := cfg.Get().Auth
		if !authCfg.Enabled {
			c.Locals(principalKey, Principal{User: Anonymous})
			return c.Next()
		}

		user, ok := Authenticate(authCfg.Tokens, ExtractToken(c))
		if !ok {
			slog.Warn("Rejected unauthenticated request", "method", c.Method(), "path", c.Path(), "ip", c.IP())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing or invalid API token",
			})
		}

		c.Locals(principalKey, Principal{User: user})
		return c.Next()
	}
}
