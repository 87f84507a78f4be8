package handler

import (
	"go-production-ws/internal/repository"
	"go-production-ws/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ProductHandler struct {
	productRepo repository.ProductRepository
	eventRepo   repository.StageEventRepository
	workstation service.WorkstationService
}

func NewProductHandler(productRepo repository.ProductRepository, eventRepo repository.StageEventRepository, workstation service.WorkstationService) *ProductHandler {
	return &ProductHandler{
		productRepo: productRepo,
		eventRepo:   eventRepo,
		workstation: workstation,
	}
}

func (h *ProductHandler) GetProducts(c *fiber.Ctx) error {
	products, err := h.productRepo.FindAll()
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Internal Server Error"})
	}
	return c.JSON(products)
}

// GetLocation exposes the location resolver: the event-log-derived truth that
// Product.status caches.
func (h *ProductHandler) GetLocation(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid product ID"})
	}

	location, err := h.workstation.ResolveLocation(id)
	if err != nil {
		return workflowError(c, err)
	}
	return c.JSON(location)
}

// GetHistory returns the product's traveler: every ledger event in order.
func (h *ProductHandler) GetHistory(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid product ID"})
	}

	if _, err := h.productRepo.FindByID(nil, id); err != nil {
		return c.Status(404).JSON(fiber.Map{"error": "Product not found"})
	}

	events, err := h.eventRepo.HistoryForProduct(id)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Internal Server Error"})
	}
	return c.JSON(events)
}
