package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/parm-bits/stress-admin-backend/internal/engine"
	"github.com/parm-bits/stress-admin-backend/internal/logic"
	"github.com/parm-bits/stress-admin-backend/pkg/response"
)

// fail maps logic errors onto the response envelope.
func fail(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, logic.ErrUseCaseNotFound),
		errors.Is(err, logic.ErrSessionNotFound),
		errors.Is(err, logic.ErrConfigurationNotFound):
		return response.NotFound(c, err.Error())
	default:
		return response.Error(c, err.Error())
	}
}

// UseCaseCreate registers a use case.
// POST /api/usecases
func UseCaseCreate(c *fiber.Ctx) error {
	var req logic.CreateUseCaseReq
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "invalid request body")
	}
	if req.Name == "" {
		return response.Error(c, "name is required")
	}
	if req.JmxPath == "" {
		return response.Error(c, "jmxPath is required")
	}

	uc, err := logic.NewUseCaseLogic(c.UserContext()).Create(&req)
	if err != nil {
		return fail(c, err)
	}
	return response.Success(c, uc)
}

// UseCaseList pages through use cases.
// GET /api/usecases
func UseCaseList(c *fiber.Ctx) error {
	var req logic.UseCaseListReq
	if err := c.QueryParser(&req); err != nil {
		return response.Error(c, "invalid query parameters")
	}

	items, total, err := logic.NewUseCaseLogic(c.UserContext()).List(&req)
	if err != nil {
		return fail(c, err)
	}
	return response.Page(c, items, total, req.Page, req.PageSize)
}

// UseCaseGetByID returns one use case.
// GET /api/usecases/:id
func UseCaseGetByID(c *fiber.Ctx) error {
	uc, err := logic.NewUseCaseLogic(c.UserContext()).GetByID(c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return response.Success(c, uc)
}

// UseCaseUpdate edits a use case.
// PUT /api/usecases/:id
func UseCaseUpdate(c *fiber.Ctx) error {
	var req logic.UpdateUseCaseReq
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "invalid request body")
	}

	uc, err := logic.NewUseCaseLogic(c.UserContext()).Update(c.Params("id"), &req)
	if err != nil {
		return fail(c, err)
	}
	return response.Success(c, uc)
}

// UseCaseDelete removes a use case.
// DELETE /api/usecases/:id
func UseCaseDelete(c *fiber.Ctx) error {
	if err := logic.NewUseCaseLogic(c.UserContext()).Delete(c.Params("id")); err != nil {
		return fail(c, err)
	}
	return response.Success(c, nil)
}

// UseCaseStart launches the use case run. The users query parameter assigns
// the worker count for this run; absent, the stored count is used.
// POST /api/usecases/:id/start?users=50
func UseCaseStart(c *fiber.Ctx) error {
	users := c.QueryInt("users", 0)
	if users < 0 || users > 10000 {
		return response.Error(c, "users must be between 1 and 10000")
	}

	uc, err := logic.NewUseCaseLogic(c.UserContext()).StartRun(c.Params("id"), users)
	if err != nil {
		if errors.Is(err, engine.ErrAlreadyRunning) {
			return response.Error(c, err.Error())
		}
		return fail(c, err)
	}
	return response.SuccessWithMessage(c, "test started", uc)
}

// UseCaseStatus reports run progress for polling clients.
// GET /api/usecases/:id/status
func UseCaseStatus(c *fiber.Ctx) error {
	view, err := logic.NewUseCaseLogic(c.UserContext()).RunStatus(c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return response.Success(c, view)
}

// UseCaseStop cancels the use case run.
// POST /api/usecases/:id/stop
func UseCaseStop(c *fiber.Ctx) error {
	uc, err := logic.NewUseCaseLogic(c.UserContext()).StopRun(c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return response.SuccessWithMessage(c, "test stopped", uc)
}
