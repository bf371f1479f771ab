package middleware

import (
	"github.com/gofiber/fiber/v2"

	"blood-donation/internal/domain"
)

// RequireRole lets through active users holding required or a higher role.
func RequireRole(required domain.Role) fiber.Handler {
	return RequireAnyRole(required)
}

func RequireAnyRole(roles ...domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := GetCurrentUser(c)
		if user == nil {
			return Unauthorized("User not found")
		}
		if user.IsBlocked() {
			return domain.ErrUserBlocked
		}

		for _, role := range roles {
			if user.HasRole(role) {
				return c.Next()
			}
		}
		return Forbidden("Insufficient permissions for this operation")
	}
}

func GetCurrentUserRole(c *fiber.Ctx) domain.Role {
	user := GetCurrentUser(c)
	if user == nil {
		return domain.RoleGuest
	}
	return user.Actor().Role
}

func IsModerator(c *fiber.Ctx) bool {
	return GetCurrentUserRole(c).IsModerator()
}
