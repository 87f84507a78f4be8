package handler

import (
	"go-production-ws/internal/service"

	"github.com/gofiber/fiber/v2"
)

type JobHandler struct {
	service service.JobService
}

func NewJobHandler(s service.JobService) *JobHandler {
	return &JobHandler{service: s}
}

func (h *JobHandler) CreateJob(c *fiber.Ctx) error {
	var req service.CreateJobRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	actor, err := actorFromCtx(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"error": "Invalid user identity"})
	}

	job, err := h.service.CreateJob(&req, actor)
	if err != nil {
		return workflowError(c, err)
	}
	return c.Status(201).JSON(fiber.Map{"message": "Job created", "data": job})
}

func (h *JobHandler) GetJobs(c *fiber.Ctx) error {
	jobs, err := h.service.GetAllJobs()
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Internal Server Error"})
	}
	return c.JSON(jobs)
}

func (h *JobHandler) GetJob(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid job ID"})
	}

	detail, err := h.service.GetJobDetail(id)
	if err != nil {
		return workflowError(c, err)
	}
	return c.JSON(detail)
}

func (h *JobHandler) AddProduct(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid job ID"})
	}

	actor, err := actorFromCtx(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"error": "Invalid user identity"})
	}

	product, err := h.service.AddProduct(id, actor)
	if err != nil {
		return workflowError(c, err)
	}
	return c.Status(201).JSON(fiber.Map{"message": "Product added", "data": product})
}

func (h *JobHandler) CreateAssignment(c *fiber.Ctx) error {
	var req service.AssignmentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	assignment, err := h.service.Assign(&req)
	if err != nil {
		return workflowError(c, err)
	}
	return c.Status(201).JSON(assignment)
}

func (h *JobHandler) DeleteAssignment(c *fiber.Ctx) error {
	var req service.AssignmentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	if err := h.service.Unassign(req.JobID, req.ProductionStageID, req.UserID); err != nil {
		return workflowError(c, err)
	}
	return c.SendStatus(204)
}

func (h *JobHandler) GetAssignments(c *fiber.Ctx) error {
	jobID, err := parseUUID(c.Params("jobId"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid job ID"})
	}

	assignments, err := h.service.AssignmentsForJob(jobID)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Internal Server Error"})
	}
	return c.JSON(assignments)
}
