package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/areti-alliance/crm-gateway/internal/auth"
	"github.com/areti-alliance/crm-gateway/internal/repository"
	"github.com/areti-alliance/crm-gateway/internal/service"
)

// DriversHandler exposes the driver roster and the sync job trigger.
type DriversHandler struct {
	drivers repository.DriverRepository
	roster  *service.RosterService
}

// NewDriversHandler constructs handler.
func NewDriversHandler(drivers repository.DriverRepository, roster *service.RosterService) *DriversHandler {
	return &DriversHandler{drivers: drivers, roster: roster}
}

// List handles GET /api/drivers.
func (h *DriversHandler) List(c *fiber.Ctx) error {
	limit, err := strconv.Atoi(c.Query("limit", "50"))
	if err != nil || limit <= 0 || limit > 200 {
		limit = 50
	}
	offset, err := strconv.Atoi(c.Query("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	drivers, err := h.drivers.List(c.UserContext(), limit, offset)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": drivers})
}

// Sync handles POST /api/drivers/sync. Admin only; the route guard enforces
// the role before this handler runs.
func (h *DriversHandler) Sync(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
	}

	result, err := h.roster.Sync(c.UserContext(), principal.Identity.Subject)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "result": result})
}
