package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/parm-bits/stress-admin-backend/internal/logic"
	"github.com/parm-bits/stress-admin-backend/pkg/response"
)

// SessionCreate groups use cases into a test session.
// POST /api/sessions
func SessionCreate(c *fiber.Ctx) error {
	var req logic.CreateSessionReq
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "invalid request body")
	}
	if req.Name == "" {
		return response.Error(c, "name is required")
	}
	if len(req.UseCaseIDs) == 0 {
		return response.Error(c, "useCaseIds is required")
	}

	sess, err := logic.NewSessionLogic(c.UserContext()).Create(&req)
	if err != nil {
		return fail(c, err)
	}
	return response.Success(c, sess)
}

// SessionList pages through sessions.
// GET /api/sessions
func SessionList(c *fiber.Ctx) error {
	var req logic.SessionListReq
	if err := c.QueryParser(&req); err != nil {
		return response.Error(c, "invalid query parameters")
	}

	items, total, err := logic.NewSessionLogic(c.UserContext()).List(&req)
	if err != nil {
		return fail(c, err)
	}
	return response.Page(c, items, total, req.Page, req.PageSize)
}

// SessionListRunning lists sessions currently running.
// GET /api/sessions/running
func SessionListRunning(c *fiber.Ctx) error {
	items, err := logic.NewSessionLogic(c.UserContext()).ListRunning()
	if err != nil {
		return fail(c, err)
	}
	return response.Success(c, items)
}

// SessionGetByID returns one session.
// GET /api/sessions/:id
func SessionGetByID(c *fiber.Ctx) error {
	sess, err := logic.NewSessionLogic(c.UserContext()).GetByID(c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return response.Success(c, sess)
}

// SessionStatus returns the session with per-member progress.
// GET /api/sessions/:id/status
func SessionStatus(c *fiber.Ctx) error {
	view, err := logic.NewSessionLogic(c.UserContext()).Status(c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return response.Success(c, view)
}

// SessionStart launches every member of the session.
// POST /api/sessions/:id/start
func SessionStart(c *fiber.Ctx) error {
	sess, err := logic.NewSessionLogic(c.UserContext()).Start(c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return response.SuccessWithMessage(c, "session started", sess)
}

// SessionStop cancels a running session.
// POST /api/sessions/:id/stop
func SessionStop(c *fiber.Ctx) error {
	sess, stopped, err := logic.NewSessionLogic(c.UserContext()).Stop(c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	if !stopped {
		return response.SuccessWithMessage(c, "session is not running", sess)
	}
	return response.SuccessWithMessage(c, "session stopped", sess)
}
