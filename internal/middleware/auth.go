package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"blood-donation/internal/domain"
	"blood-donation/internal/service/auth"
)

const (
	UserContextKey   = "user"
	UserIDContextKey = "user_id"
	MetaContextKey   = "request_meta"
)

// AuthRequired rejects requests without a valid bearer token. Blocked users
// pass through; their Actor is a guest, so every gated action refuses them.
func AuthRequired(authService auth.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, ok := bearerToken(c)
		if !ok {
			return Unauthorized("Missing or invalid authorization header")
		}

		if err := authenticate(c, authService, token); err != nil {
			return err
		}
		return c.Next()
	}
}

// OptionalAuth resolves the user when a token is present and otherwise lets
// the request continue as a guest.
func OptionalAuth(authService auth.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, ok := bearerToken(c)
		if !ok {
			return c.Next()
		}
		if err := authenticate(c, authService, token); err != nil {
			return err
		}
		return c.Next()
	}
}

func bearerToken(c *fiber.Ctx) (string, bool) {
	parts := strings.SplitN(c.Get(fiber.HeaderAuthorization), " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func authenticate(c *fiber.Ctx, authService auth.Service, token string) error {
	claims, err := authService.ValidateAccessToken(token)
	if err != nil {
		return Unauthorized("Invalid or expired token")
	}

	user, err := authService.ResolveUser(c.UserContext(), claims)
	if err != nil || user == nil {
		return Unauthorized("User not found")
	}

	c.Locals(UserContextKey, user)
	c.Locals(UserIDContextKey, user.ID)
	return nil
}

func GetCurrentUser(c *fiber.Ctx) *domain.User {
	user, ok := c.Locals(UserContextKey).(*domain.User)
	if !ok {
		return nil
	}
	return user
}

func GetCurrentUserID(c *fiber.Ctx) uuid.UUID {
	userID, ok := c.Locals(UserIDContextKey).(uuid.UUID)
	if !ok {
		return uuid.Nil
	}
	return userID
}

// RequestInfo captures the caller's address and user agent for audit rows.
// Cloudflare's CF-Connecting-IP wins over the socket address.
func RequestInfo() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ip := c.Get("CF-Connecting-IP")
		if ip == "" {
			if ips := c.IPs(); len(ips) > 0 {
				ip = ips[0]
			} else {
				ip = c.IP()
			}
		}
		c.Locals(MetaContextKey, domain.RequestMeta{
			IPAddress: ip,
			UserAgent: c.Get(fiber.HeaderUserAgent),
		})
		return c.Next()
	}
}

func GetRequestMeta(c *fiber.Ctx) domain.RequestMeta {
	meta, _ := c.Locals(MetaContextKey).(domain.RequestMeta)
	return meta
}
