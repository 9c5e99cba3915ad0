package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/parm-bits/stress-admin-backend/internal/config"
	"github.com/parm-bits/stress-admin-backend/internal/engine"
	"github.com/parm-bits/stress-admin-backend/internal/model"
	"github.com/parm-bits/stress-admin-backend/internal/router"
	"github.com/parm-bits/stress-admin-backend/internal/storage"
	"github.com/parm-bits/stress-admin-backend/internal/svc"
	"github.com/parm-bits/stress-admin-backend/pkg/database"
	"github.com/parm-bits/stress-admin-backend/pkg/logger"
	"github.com/parm-bits/stress-admin-backend/pkg/utils"
)

const modifiedPlanMaxAge = 24 * time.Hour

func main() {
	cfg, err := config.LoadConfig("config/config.yml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger.Init(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		FilePath:   cfg.Log.FilePath,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
	})
	defer logger.Sync()

	if err := database.Init(&database.Config{
		Driver:          cfg.Database.Driver,
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		Username:        cfg.Database.Username,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.Database,
		Charset:         cfg.Database.Charset,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}); err != nil {
		log.Fatalf("init database: %v", err)
	}
	defer database.Close()
	db := database.GetDB()

	if err := db.AutoMigrate(&model.UseCase{}, &model.TestSession{}, &model.TestConfiguration{}); err != nil {
		log.Fatalf("migrate schema: %v", err)
	}

	store := storage.New(cfg.Storage.BaseDir)
	if err := store.Init(); err != nil {
		log.Fatalf("init storage: %v", err)
	}

	supervisor := engine.NewSupervisor(cfg.Engine, store)
	svc.Init(cfg, db, store, supervisor)

	// Modified plan documents from crashed or interrupted runs pile up in
	// the results directory; sweep them at startup and then daily.
	sweepModifiedPlans(store)
	utils.SafeGoWithName("plan-sweeper", func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			sweepModifiedPlans(store)
		}
	})

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  0,
		WriteTimeout: 0,
	})

	router.Setup(app, store.ReportsDir())

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	go func() {
		log.Printf("server listening on http://%s", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")

	// Engine processes outlive the server unless stopped here.
	for _, run := range supervisor.ListRunning() {
		supervisor.Stop(run.UseCaseID)
	}

	if err := app.Shutdown(); err != nil {
		log.Printf("shutdown: %v", err)
	}
	log.Println("server stopped")
}

func sweepModifiedPlans(store *storage.Store) {
	removed, err := store.CleanupModifiedPlans(modifiedPlanMaxAge)
	if err != nil {
		logger.Warn("plan sweep failed", zap.Error(err))
		return
	}
	if removed > 0 {
		logger.Info("removed stale modified plans", zap.Int("count", removed))
	}
}
