package handlers

import (
	"github.com/gofiber/fiber/v2"

	"postpilot/internal/service"
)

type CronHandler struct {
	s service.SchedulerService
}

func NewCronHandler(s service.SchedulerService) *CronHandler {
	return &CronHandler{s: s}
}

// TriggerPublish runs one scheduler execution. The service guarantees a
// result, so the response is always 200 with the run outcome in the body,
// including runs that recorded errors.
func (h *CronHandler) TriggerPublish(c *fiber.Ctx) error {
	result := h.s.ExecuteScheduledPublishing(c.Context())
	return c.Status(fiber.StatusOK).JSON(result)
}

// Healthz is a liveness probe.
func Healthz(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
}
