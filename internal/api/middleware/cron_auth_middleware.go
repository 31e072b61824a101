package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"postpilot/internal/service"
	"postpilot/internal/transfer"
)

type CronAuthMiddleware struct {
	s service.SecurityService
}

func NewCronAuthMiddleware(s service.SecurityService) *CronAuthMiddleware {
	return &CronAuthMiddleware{s: s}
}

// CronAuth gates the scheduler trigger behind the shared-secret bearer
// check. Any rejection answers 401 with a machine-readable violation
// classification; the scheduler below never runs.
func (m *CronAuthMiddleware) CronAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		header, hasHeader := c.GetReqHeaders()[fiber.HeaderAuthorization]

		var headerValue string
		if hasHeader && len(header) > 0 {
			headerValue = header[0]
		}

		result := m.s.ValidateCronAuth(headerValue, hasHeader, transfer.RequestMeta{
			IP:        c.IP(),
			UserAgent: c.Get(fiber.HeaderUserAgent),
			Method:    c.Method(),
			Path:      c.Path(),
		})

		if !result.IsValid {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error":          result.ErrorMessage,
				"violation_type": result.ViolationType,
				"timestamp":      time.Now().UTC().Format(time.RFC3339),
			})
		}

		return c.Next()
	}
}
