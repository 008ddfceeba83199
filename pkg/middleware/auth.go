package middleware

import (
	"github.com/Ibraz94/fleetbold-expenses/pkg/auth"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ActorMiddleware resolves the acting user from the Authorization header and
// stores it in request locals for created_by and audit attribution.
func ActorMiddleware(jwtManager *auth.JWTManager, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Get("Authorization")
		if token == "" {
			logger.Warn("Missing authorization token")
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Authorization token required",
			})
		}

		if len(token) > 7 && token[:7] == "Bearer " {
			token = token[7:]
		}

		claims, err := jwtManager.ValidateToken(token)
		if err != nil {
			logger.Warn("Invalid token", zap.Error(err))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired token",
			})
		}

		c.Locals("actor", claims.Actor)
		c.Locals("email", claims.Email)

		return c.Next()
	}
}
