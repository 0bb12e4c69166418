package web

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"
	"github.com/weftwork/weft/pkg/engine"
	"github.com/weftwork/weft/pkg/store"
)

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func notFound(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(404).
		WithInstance(c.Path()).
		WithType("not_found").
		WithDetail(detail)

	return c.Status(fiber.StatusNotFound).JSON(problem)
}

func conflict(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(409).
		WithInstance(c.Path()).
		WithType("conflict").
		WithDetail(detail)

	return c.Status(fiber.StatusConflict).JSON(problem)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

// handleServiceError maps store and engine sentinels onto problem responses.
func handleServiceError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, store.ErrFlowNotFound):
		return notFound(c, "flow not found")
	case errors.Is(err, store.ErrExecutionNotFound):
		return notFound(c, "execution not found")
	case errors.Is(err, store.ErrApprovalNotFound):
		return notFound(c, "approval request not found")
	case errors.Is(err, store.ErrApprovalResolved):
		return conflict(c, "approval request already resolved")
	case errors.Is(err, engine.ErrExecutionNotPaused):
		return conflict(c, "execution is not paused")
	case errors.Is(err, engine.ErrExecutionTerminal):
		return conflict(c, "execution already finished")
	case errors.Is(err, engine.ErrFlowNotExecutable):
		return badRequest(c, err.Error())
	default:
		return internalError(c, err)
	}
}
