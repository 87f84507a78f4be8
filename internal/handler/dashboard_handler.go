package handler

import (
	"go-production-ws/internal/service"

	"github.com/gofiber/fiber/v2"
)

type DashboardHandler struct {
	service service.DashboardService
}

func NewDashboardHandler(s service.DashboardService) *DashboardHandler {
	return &DashboardHandler{service: s}
}

func (h *DashboardHandler) GetFloorStats(c *fiber.Ctx) error {
	stats, err := h.service.GetFloorStats()
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to fetch dashboard stats"})
	}
	return c.JSON(stats)
}

func (h *DashboardHandler) GetAppData(c *fiber.Ctx) error {
	data, err := h.service.GetAppData()
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to fetch application data"})
	}
	return c.JSON(data)
}
