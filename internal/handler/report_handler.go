package handler

import (
	"time"

	"go-production-ws/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type ReportHandler struct {
	service service.ReportService
}

func NewReportHandler(s service.ReportService) *ReportHandler {
	return &ReportHandler{service: s}
}

// parseDateRange reads optional start_date/end_date query params (YYYY-MM-DD).
// The end date is inclusive: it is pushed to the end of that day.
func parseDateRange(c *fiber.Ctx) (*time.Time, *time.Time, error) {
	var startDate, endDate *time.Time

	if raw := c.Query("start_date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return nil, nil, err
		}
		startDate = &parsed
	}
	if raw := c.Query("end_date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return nil, nil, err
		}
		endOfDay := parsed.Add(24*time.Hour - time.Nanosecond)
		endDate = &endOfDay
	}
	return startDate, endDate, nil
}

func (h *ReportHandler) JobCompletion(c *fiber.Ctx) error {
	startDate, endDate, err := parseDateRange(c)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid date format, use YYYY-MM-DD"})
	}

	entries, err := h.service.JobCompletion(startDate, endDate)
	if err != nil {
		return workflowError(c, err)
	}
	return c.JSON(entries)
}

func (h *ReportHandler) FailureAnalysis(c *fiber.Ctx) error {
	startDate, endDate, err := parseDateRange(c)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid date format, use YYYY-MM-DD"})
	}

	rows, err := h.service.FailureAnalysis(startDate, endDate)
	if err != nil {
		return workflowError(c, err)
	}
	return c.JSON(rows)
}

func (h *ReportHandler) TechnicianPerformance(c *fiber.Ctx) error {
	startDate, endDate, err := parseDateRange(c)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid date format, use YYYY-MM-DD"})
	}

	var userID *uuid.UUID
	if raw := c.Query("user_id"); raw != "" {
		parsed, err := parseUUID(raw)
		if err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "Invalid user_id"})
		}
		userID = &parsed
	}

	entries, err := h.service.TechnicianPerformance(startDate, endDate, userID)
	if err != nil {
		return workflowError(c, err)
	}
	return c.JSON(entries)
}
