package api

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/viper"
)

// authMiddleware picks the internal user identity off the request. The
// deployment fronts this service with its session layer and forwards
// the resolved user id.
func authMiddleware(c *fiber.Ctx) error {
	raw := c.Get("X-User-Id")
	if raw == "" {
		return fiber.NewError(fiber.StatusUnauthorized, "user identity missing")
	}
	userID, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return fiber.NewError(fiber.StatusUnauthorized, "malformed user identity")
	}
	c.Locals("userId", uint(userID))
	return c.Next()
}

// permitMiddleware allows the lookup helpers only from the configured
// addresses. An empty permit list means everyone.
func permitMiddleware(c *fiber.Ctx) error {
	permitted := viper.GetString("lookup.permit_ips")
	if strings.TrimSpace(permitted) == "" {
		return c.Next()
	}
	for _, ip := range strings.Split(permitted, ",") {
		if strings.TrimSpace(ip) == c.IP() {
			return c.Next()
		}
	}
	return fiber.NewError(fiber.StatusForbidden, "address not permitted")
}
