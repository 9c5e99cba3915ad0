package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/parm-bits/stress-admin-backend/internal/handler"
	"github.com/parm-bits/stress-admin-backend/internal/middleware"
)

// Setup registers middleware and all API routes. reportsDir is served
// statically so the dashboards the engine renders are reachable at the
// URLs stored on finished runs.
func Setup(app *fiber.App, reportsDir string) {
	app.Use(middleware.Recover(), middleware.CORS(), middleware.RequestID(), middleware.RequestLogger())

	app.Get("/health", handler.Health)

	app.Static("/reports", reportsDir)

	api := app.Group("/api")
	api.Get("/health/system", handler.HealthSystem)

	// Use case CRUD and run control.
	uc := api.Group("/usecases")
	uc.Post("", handler.UseCaseCreate)
	uc.Get("", handler.UseCaseList)
	uc.Get("/:id", handler.UseCaseGetByID)
	uc.Put("/:id", handler.UseCaseUpdate)
	uc.Delete("/:id", handler.UseCaseDelete)
	uc.Post("/:id/start", handler.UseCaseStart)
	uc.Post("/:id/stop", handler.UseCaseStop)
	uc.Get("/:id/status", handler.UseCaseStatus)

	// Test sessions group use cases into one concurrent run.
	s := api.Group("/sessions")
	s.Post("", handler.SessionCreate)
	s.Get("", handler.SessionList)
	s.Get("/running", handler.SessionListRunning)
	s.Get("/:id", handler.SessionGetByID)
	s.Get("/:id/status", handler.SessionStatus)
	s.Post("/:id/start", handler.SessionStart)
	s.Post("/:id/stop", handler.SessionStop)

	// Reusable plan + data file pairings.
	cfg := api.Group("/configurations")
	cfg.Post("", handler.ConfigurationCreate)
	cfg.Get("", handler.ConfigurationList)
	cfg.Get("/:id", handler.ConfigurationGetByID)
	cfg.Delete("/:id", handler.ConfigurationDelete)
	cfg.Post("/:id/usecases", handler.ConfigurationCreateUseCase)

	// Engine settings.
	st := api.Group("/settings")
	st.Get("/engine", handler.SettingsEngineGet)
	st.Put("/engine", handler.SettingsEngineUpdate)

	// Live execution views.
	ex := api.Group("/executions")
	ex.Get("/running", handler.ExecutionListRunning)
	ex.Get("/stats", handler.ExecutionStats)
	ex.Get("/stream", handler.ExecutionStream)
}
