package handler

import (
	"os"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/parm-bits/stress-admin-backend/internal/engine"
	"github.com/parm-bits/stress-admin-backend/internal/svc"
	"github.com/parm-bits/stress-admin-backend/pkg/response"
)

// Health is the liveness probe.
// GET /health
func Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "ok",
		"app":       svc.Ctx.Config.App.Name,
		"timestamp": time.Now().UnixMilli(),
	})
}

// HealthSystem reports whether the engine and the storage layout are usable.
// GET /api/health/system
func HealthSystem(c *fiber.Ctx) error {
	enginePath, engineErr := engine.ResolveEngine(svc.Ctx.Supervisor.EngineConfig())

	storageOK := true
	for _, dir := range []string{
		svc.Ctx.Store.JmxDir(),
		svc.Ctx.Store.CsvDir(),
		svc.Ctx.Store.ResultsDir(),
		svc.Ctx.Store.ReportsDir(),
	} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			storageOK = false
			break
		}
	}

	return response.Success(c, fiber.Map{
		"engineAvailable": engineErr == nil,
		"enginePath":      enginePath,
		"storageOk":       storageOK,
		"storageBaseDir":  svc.Ctx.Store.BaseDir(),
		"runningCount":    svc.Ctx.Supervisor.RunningCount(),
	})
}
