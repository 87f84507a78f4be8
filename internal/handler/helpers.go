package handler

import (
	"errors"

	"go-production-ws/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Helpers to pull user info from the JWT context (set by auth middleware)
func getUserID(c *fiber.Ctx) string {
	userID := c.Locals("user_id")
	if userID == nil {
		return "system" // Shouldn't happen on protected routes
	}
	return userID.(string)
}

func getUserRole(c *fiber.Ctx) string {
	role := c.Locals("user_role")
	if role == nil {
		return ""
	}
	return role.(string)
}

// actorFromCtx builds the workflow actor for workstation calls.
func actorFromCtx(c *fiber.Ctx) (service.Actor, error) {
	id, err := uuid.Parse(getUserID(c))
	if err != nil {
		return service.Actor{}, err
	}
	return service.Actor{ID: id, RoleCode: getUserRole(c)}, nil
}

func parseUUID(id string) (uuid.UUID, error) {
	return uuid.Parse(id)
}

// workflowStatus maps the service error taxonomy onto HTTP statuses.
func workflowStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, service.ErrAccessDenied), errors.Is(err, service.ErrForbidden):
		return fiber.StatusForbidden
	case errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrAlreadyTerminal),
		errors.Is(err, service.ErrNoPreviousStage),
		errors.Is(err, service.ErrCatalogFrozen):
		return fiber.StatusConflict
	case errors.Is(err, service.ErrDataIntegrity):
		return fiber.StatusInternalServerError
	case errors.Is(err, service.ErrTransient):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusBadRequest
	}
}

func workflowError(c *fiber.Ctx, err error) error {
	return c.Status(workflowStatus(err)).JSON(fiber.Map{"error": err.Error()})
}
