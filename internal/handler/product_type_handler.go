package handler

import (
	"go-production-ws/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ProductTypeHandler struct {
	service service.ProductTypeService
}

func NewProductTypeHandler(s service.ProductTypeService) *ProductTypeHandler {
	return &ProductTypeHandler{service: s}
}

func (h *ProductTypeHandler) CreateProductType(c *fiber.Ctx) error {
	var req service.CreateProductTypeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	pt, err := h.service.CreateProductType(&req, getUserID(c))
	if err != nil {
		return workflowError(c, err)
	}
	return c.Status(201).JSON(fiber.Map{"message": "Product type created", "data": pt})
}

func (h *ProductTypeHandler) GetProductTypes(c *fiber.Ctx) error {
	types, err := h.service.GetAllProductTypes()
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Internal Server Error"})
	}
	return c.JSON(types)
}

func (h *ProductTypeHandler) GetProductType(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid product type ID"})
	}

	pt, err := h.service.GetProductType(id)
	if err != nil {
		return workflowError(c, err)
	}
	return c.JSON(pt)
}

func (h *ProductTypeHandler) UpdateStage(c *fiber.Ctx) error {
	stageID, err := parseUUID(c.Params("stageId"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid stage ID"})
	}

	var req service.UpdateStageRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	stage, err := h.service.UpdateStage(stageID, &req, getUserID(c))
	if err != nil {
		return workflowError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Stage updated", "data": stage})
}

func (h *ProductTypeHandler) DeleteStage(c *fiber.Ctx) error {
	stageID, err := parseUUID(c.Params("stageId"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid stage ID"})
	}

	if err := h.service.DeleteStage(stageID); err != nil {
		return workflowError(c, err)
	}
	return c.SendStatus(204)
}
