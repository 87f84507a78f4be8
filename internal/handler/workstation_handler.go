package handler

import (
	"go-production-ws/internal/model"
	"go-production-ws/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type WorkstationHandler struct {
	service service.WorkstationService
}

func NewWorkstationHandler(s service.WorkstationService) *WorkstationHandler {
	return &WorkstationHandler{service: s}
}

type batchRequest struct {
	ProductIDs []uuid.UUID `json:"product_ids"`
	StageID    uuid.UUID   `json:"stage_id"`
}

type failRequest struct {
	ProductID uuid.UUID `json:"product_id"`
	StageID   uuid.UUID `json:"stage_id"`
	Reasons   []string  `json:"reasons"`
	Detail    string    `json:"detail"`
}

type reworkRequest struct {
	ProductID uuid.UUID `json:"product_id"`
}

type moveRequest struct {
	ProductID     uuid.UUID `json:"product_id"`
	TargetStageID uuid.UUID `json:"target_stage_id"`
}

type scrapRequest struct {
	ProductID uuid.UUID `json:"product_id"`
	Notes     string    `json:"notes"`
}

type scanRequest struct {
	ScanInput string    `json:"scan_input"`
	StageID   uuid.UUID `json:"stage_id"`
}

func (h *WorkstationHandler) Start(c *fiber.Ctx) error {
	var req batchRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}
	if len(req.ProductIDs) == 0 || req.StageID == uuid.Nil {
		return c.Status(400).JSON(fiber.Map{"error": "product_ids and stage_id are required"})
	}

	actor, err := actorFromCtx(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"error": "Invalid user identity"})
	}

	if err := h.service.Start(req.ProductIDs, req.StageID, actor); err != nil {
		return workflowError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Work started"})
}

func (h *WorkstationHandler) Pass(c *fiber.Ctx) error {
	var req batchRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}
	if len(req.ProductIDs) == 0 || req.StageID == uuid.Nil {
		return c.Status(400).JSON(fiber.Map{"error": "product_ids and stage_id are required"})
	}

	actor, err := actorFromCtx(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"error": "Invalid user identity"})
	}

	if err := h.service.Pass(req.ProductIDs, req.StageID, actor); err != nil {
		return workflowError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Products passed"})
}

func (h *WorkstationHandler) Fail(c *fiber.Ctx) error {
	var req failRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}
	if req.ProductID == uuid.Nil || req.StageID == uuid.Nil {
		return c.Status(400).JSON(fiber.Map{"error": "product_id and stage_id are required"})
	}

	actor, err := actorFromCtx(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"error": "Invalid user identity"})
	}

	notes := model.FailureNotes{Reasons: req.Reasons, Detail: req.Detail}
	if err := h.service.Fail(req.ProductID, req.StageID, actor, notes); err != nil {
		return workflowError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Product marked as failed"})
}

func (h *WorkstationHandler) Rework(c *fiber.Ctx) error {
	var req reworkRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}
	if req.ProductID == uuid.Nil {
		return c.Status(400).JSON(fiber.Map{"error": "product_id is required"})
	}

	actor, err := actorFromCtx(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"error": "Invalid user identity"})
	}

	if err := h.service.Rework(req.ProductID, actor); err != nil {
		return workflowError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Product sent for rework"})
}

func (h *WorkstationHandler) Move(c *fiber.Ctx) error {
	var req moveRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}
	if req.ProductID == uuid.Nil || req.TargetStageID == uuid.Nil {
		return c.Status(400).JSON(fiber.Map{"error": "product_id and target_stage_id are required"})
	}

	actor, err := actorFromCtx(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"error": "Invalid user identity"})
	}

	if err := h.service.Move(req.ProductID, req.TargetStageID, actor); err != nil {
		return workflowError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Product moved"})
}

func (h *WorkstationHandler) Scrap(c *fiber.Ctx) error {
	var req scrapRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}
	if req.ProductID == uuid.Nil {
		return c.Status(400).JSON(fiber.Map{"error": "product_id is required"})
	}

	actor, err := actorFromCtx(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"error": "Invalid user identity"})
	}

	if err := h.service.Scrap(req.ProductID, actor, req.Notes); err != nil {
		return workflowError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Product scrapped"})
}

func (h *WorkstationHandler) Scan(c *fiber.Ctx) error {
	var req scanRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}
	if req.ScanInput == "" || req.StageID == uuid.Nil {
		return c.Status(400).JSON(fiber.Map{"error": "scan_input and stage_id are required"})
	}

	actor, err := actorFromCtx(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"error": "Invalid user identity"})
	}

	result, err := h.service.Scan(req.ScanInput, req.StageID, actor)
	if err != nil {
		return workflowError(c, err)
	}
	return c.JSON(result)
}

func (h *WorkstationHandler) StationData(c *fiber.Ctx) error {
	jobID, err := parseUUID(c.Query("job_id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid job_id"})
	}
	stageID, err := parseUUID(c.Query("stage_id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid stage_id"})
	}
	userID, err := parseUUID(c.Query("user_id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid user_id"})
	}

	data, err := h.service.StationData(jobID, stageID, userID)
	if err != nil {
		return workflowError(c, err)
	}
	return c.JSON(data)
}
