package auth

import (
	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/adoption-service/pkg/util/errorutil"
)

// RequireAuthenticated ensures a principal was attached by AuthMiddleware.
func RequireAuthenticated() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := PrincipalFromContext(c); !ok {
			return apperrors.NewUnauthorized("Not authorized, no token provided")
		}
		return c.Next()
	}
}

// RequireAdmin ensures the caller holds the admin role.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("Not authorized, no token provided")
		}
		if !principal.IsAdmin() {
			return apperrors.NewForbidden("Access denied, admin only")
		}
		return c.Next()
	}
}
