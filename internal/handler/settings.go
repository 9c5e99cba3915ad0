package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/parm-bits/stress-admin-backend/internal/logic"
	"github.com/parm-bits/stress-admin-backend/pkg/response"
)

// SettingsEngineGet shows how the engine executable currently resolves.
// GET /api/settings/engine
func SettingsEngineGet(c *fiber.Ctx) error {
	return response.Success(c, logic.NewSettingsLogic(c.UserContext()).Get())
}

// SettingsEngineUpdate repoints the engine executable.
// PUT /api/settings/engine
func SettingsEngineUpdate(c *fiber.Ctx) error {
	var req logic.UpdateEnginePathReq
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "invalid request body")
	}
	if req.Path == "" {
		return response.Error(c, "path is required")
	}

	settings, err := logic.NewSettingsLogic(c.UserContext()).UpdateEnginePath(&req)
	if err != nil {
		return fail(c, err)
	}
	return response.SuccessWithMessage(c, "engine path updated", settings)
}
