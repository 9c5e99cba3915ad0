package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/parm-bits/stress-admin-backend/internal/logic"
	"github.com/parm-bits/stress-admin-backend/pkg/response"
)

// ConfigurationCreate registers stored artifacts as a configuration.
// POST /api/configurations
func ConfigurationCreate(c *fiber.Ctx) error {
	var req logic.CreateTestConfigurationReq
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "invalid request body")
	}
	if req.Name == "" {
		return response.Error(c, "name is required")
	}
	if req.JmxPath == "" {
		return response.Error(c, "jmxPath is required")
	}

	tc, err := logic.NewTestConfigurationLogic(c.UserContext()).Create(&req)
	if err != nil {
		return fail(c, err)
	}
	return response.Success(c, tc)
}

// ConfigurationList lists active configurations.
// GET /api/configurations
func ConfigurationList(c *fiber.Ctx) error {
	items, err := logic.NewTestConfigurationLogic(c.UserContext()).List()
	if err != nil {
		return fail(c, err)
	}
	return response.Success(c, items)
}

// ConfigurationGetByID returns one configuration.
// GET /api/configurations/:id
func ConfigurationGetByID(c *fiber.Ctx) error {
	tc, err := logic.NewTestConfigurationLogic(c.UserContext()).GetByID(c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return response.Success(c, tc)
}

// ConfigurationDelete deactivates a configuration.
// DELETE /api/configurations/:id
func ConfigurationDelete(c *fiber.Ctx) error {
	if err := logic.NewTestConfigurationLogic(c.UserContext()).Delete(c.Params("id")); err != nil {
		return fail(c, err)
	}
	return response.Success(c, nil)
}

// ConfigurationCreateUseCase derives a use case from a configuration.
// POST /api/configurations/:id/usecases
func ConfigurationCreateUseCase(c *fiber.Ctx) error {
	var req logic.CreateUseCaseFromConfigReq
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "invalid request body")
	}
	if req.Name == "" {
		return response.Error(c, "name is required")
	}

	uc, err := logic.NewTestConfigurationLogic(c.UserContext()).CreateUseCase(c.Params("id"), &req)
	if err != nil {
		return fail(c, err)
	}
	return response.Success(c, uc)
}
