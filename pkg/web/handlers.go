package web

import (
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/weftwork/weft/pkg/engine"
	"github.com/weftwork/weft/pkg/models"
	"github.com/weftwork/weft/pkg/registry"
	"github.com/weftwork/weft/pkg/store"
)

type APIHandlers struct {
	store    store.Store
	engine   *engine.Engine
	registry *registry.Registry
	validate *validator.Validate
}

func NewAPIHandlers(st store.Store, eng *engine.Engine, reg *registry.Registry) *APIHandlers {
	return &APIHandlers{
		store:    st,
		engine:   eng,
		registry: reg,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Register mounts every route on the given app.
func (h *APIHandlers) Register(app *fiber.App) {
	flows := app.Group("/flows")
	flows.Get("/", h.ListFlows)
	flows.Post("/", h.CreateFlow)
	flows.Get("/:id", h.GetFlow)
	flows.Patch("/:id", h.UpdateFlow)
	flows.Delete("/:id", h.DeleteFlow)
	flows.Post("/:id/publish", h.PublishFlow)
	flows.Get("/:id/executions", h.ListExecutions)
	flows.Post("/:id/executions", h.StartExecution)

	executions := app.Group("/executions")
	executions.Get("/:id", h.GetExecution)
	executions.Post("/:id/cancel", h.CancelExecution)
	executions.Post("/:id/resume", h.ResumeExecution)
	executions.Post("/:id/forms/:nodeId", h.SubmitForm)

	approvals := app.Group("/approvals")
	approvals.Get("/pending", h.ListPendingApprovals)
	approvals.Get("/:id", h.GetApproval)
	approvals.Post("/:id/decide", h.DecideApproval)

	app.Get("/components", h.ListComponents)
	app.Get("/health", h.HealthCheck)
}

func (h *APIHandlers) ListFlows(c fiber.Ctx) error {
	flows, err := h.store.Flows(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{"flows": flows, "count": len(flows)})
}

func (h *APIHandlers) GetFlow(c fiber.Ctx) error {
	flow, err := h.store.FlowByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(flow)
}

func (h *APIHandlers) CreateFlow(c fiber.Ctx) error {
	var req CreateFlowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "invalid JSON body")
	}

	if err := h.validate.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	now := time.Now().UTC()
	flow := &models.Flow{
		ID:          uuid.New().String(),
		Name:        req.Name,
		Description: req.Description,
		Status:      models.FlowStatusDraft,
		Nodes:       req.Nodes,
		Connections: req.Connections,
		Variables:   req.Variables,
		Metadata:    req.Metadata,
		Owner:       req.Owner,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := h.store.SaveFlow(c.Context(), flow); err != nil {
		return internalError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(flow)
}

func (h *APIHandlers) UpdateFlow(c fiber.Ctx) error {
	var req UpdateFlowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "invalid JSON body")
	}

	if err := h.validate.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	flow, err := h.store.FlowByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	if req.Name != nil {
		flow.Name = *req.Name
	}

	if req.Description != nil {
		flow.Description = *req.Description
	}

	if req.Variables != nil {
		flow.Variables = req.Variables
	}

	if req.Metadata != nil {
		flow.Metadata = req.Metadata
	}

	if req.Nodes != nil {
		flow.Nodes = req.Nodes
	}

	if req.Connections != nil {
		flow.Connections = req.Connections
	}

	flow.UpdatedAt = time.Now().UTC()

	if err := h.store.SaveFlow(c.Context(), flow); err != nil {
		return internalError(c, err)
	}

	return c.JSON(flow)
}

func (h *APIHandlers) DeleteFlow(c fiber.Ctx) error {
	if err := h.store.DeleteFlow(c.Context(), c.Params("id")); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// PublishFlow validates the full graph and marks the flow executable.
func (h *APIHandlers) PublishFlow(c fiber.Ctx) error {
	flow, err := h.store.FlowByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	flow.Status = models.FlowStatusPublished
	if err := h.validate.Struct(flow); err != nil {
		return badRequest(c, err.Error())
	}

	for _, node := range flow.Nodes {
		if !h.registry.IsNodeRegistered(node.Type) {
			return badRequest(c, "unknown node type: "+node.Type)
		}
	}

	flow.UpdatedAt = time.Now().UTC()

	if err := h.store.SaveFlow(c.Context(), flow); err != nil {
		return internalError(c, err)
	}

	return c.JSON(flow)
}

func (h *APIHandlers) StartExecution(c fiber.Ctx) error {
	var req StartExecutionRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "invalid JSON body")
		}
	}

	// Route params are backed by fasthttp's reusable request buffer; clone
	// before handing them to the engine, which stores them past this request.
	executionID, err := h.engine.StartExecution(c.Context(), strings.Clone(c.Params("id")), req.UserID, req.Input)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"execution_id": executionID})
}

func (h *APIHandlers) ListExecutions(c fiber.Ctx) error {
	executions, err := h.store.ExecutionsByFlow(c.Context(), c.Params("id"))
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{"executions": executions, "count": len(executions)})
}

func (h *APIHandlers) GetExecution(c fiber.Ctx) error {
	execution, err := h.store.ExecutionByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(execution)
}

func (h *APIHandlers) CancelExecution(c fiber.Ctx) error {
	var req CancelRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "invalid JSON body")
		}
	}

	if err := h.engine.Cancel(c.Context(), c.Params("id"), req.Reason, req.CancelledBy); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusAccepted)
}

func (h *APIHandlers) ResumeExecution(c fiber.Ctx) error {
	var req ResumeRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "invalid JSON body")
		}
	}

	if err := h.engine.Resume(c.Context(), c.Params("id"), req.ResumeData); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusAccepted)
}

func (h *APIHandlers) GetApproval(c fiber.Ctx) error {
	request, err := h.store.RequestByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(request)
}

func (h *APIHandlers) ListPendingApprovals(c fiber.Ctx) error {
	requests, err := h.store.PendingRequests(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{"approvals": requests, "count": len(requests)})
}

// DecideApproval records a vote. When the vote resolves the request, the
// paused execution is resumed with the outcome.
func (h *APIHandlers) DecideApproval(c fiber.Ctx) error {
	var req DecisionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "invalid JSON body")
	}

	if err := h.validate.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	request, err := h.store.Decide(c.Context(), c.Params("id"), req.Approver, *req.Approve, req.Comment)
	if err != nil {
		return handleServiceError(c, err)
	}

	if request.Resolved() {
		resumeData := map[string]any{
			"approvalStatus": string(request.Status),
			"approvalId":     request.ID,
			"comment":        request.Comment,
		}

		err := h.engine.Resume(c.Context(), request.ExecutionID, resumeData)
		if err != nil && !errors.Is(err, engine.ErrExecutionNotPaused) {
			return handleServiceError(c, err)
		}
	}

	return c.JSON(request)
}

// SubmitForm stores the submission and resumes the waiting execution with
// the form data.
func (h *APIHandlers) SubmitForm(c fiber.Ctx) error {
	var req FormSubmitRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "invalid JSON body")
	}

	if err := h.validate.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	// Cloned for the same reason as StartExecution: the submission outlives
	// the request buffer backing the params.
	executionID := strings.Clone(c.Params("id"))

	if _, err := h.store.ExecutionByID(c.Context(), executionID); err != nil {
		return handleServiceError(c, err)
	}

	submission := &models.FormSubmission{
		ExecutionID: executionID,
		NodeID:      strings.Clone(c.Params("nodeId")),
		Data:        req.Data,
		SubmittedBy: req.SubmittedBy,
	}

	if err := h.store.Submit(c.Context(), submission); err != nil {
		return internalError(c, err)
	}

	resumeData := map[string]any{
		"formData":    submission.Data,
		"submittedAt": submission.SubmittedAt.Format(time.RFC3339),
	}

	err := h.engine.Resume(c.Context(), executionID, resumeData)
	if err != nil && !errors.Is(err, engine.ErrExecutionNotPaused) {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(submission)
}

func (h *APIHandlers) ListComponents(c fiber.Ctx) error {
	components := h.registry.Components()

	return c.JSON(fiber.Map{"components": components, "count": len(components)})
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	if err := h.store.HealthCheck(c.Context()); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"status": "unhealthy",
			"error":  err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
	})
}
