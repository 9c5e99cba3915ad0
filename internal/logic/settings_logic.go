package logic

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/parm-bits/stress-admin-backend/internal/engine"
	"github.com/parm-bits/stress-admin-backend/internal/svc"
	"github.com/parm-bits/stress-admin-backend/pkg/logger"
)

// SettingsLogic reads and adjusts engine settings at run time.
type SettingsLogic struct {
	ctx context.Context
}

func NewSettingsLogic(ctx context.Context) *SettingsLogic {
	return &SettingsLogic{ctx: ctx}
}

// EngineSettings is the operator view of engine resolution.
type EngineSettings struct {
	ConfiguredPath string   `json:"configuredPath"`
	AlternatePaths []string `json:"alternatePaths"`
	ResolvedPath   string   `json:"resolvedPath"`
	Usable         bool     `json:"usable"`
	RemoteEnabled  bool     `json:"remoteEnabled"`
	RemoteHost     string   `json:"remoteHost"`
}

// UpdateEnginePathReq points the platform at a different engine executable.
type UpdateEnginePathReq struct {
	Path string `json:"path" validate:"required"`
}

// Get resolves the engine with the settings currently in effect.
func (l *SettingsLogic) Get() EngineSettings {
	cfg := svc.Ctx.Supervisor.EngineConfig()
	resolved, err := engine.ResolveEngine(cfg)
	return EngineSettings{
		ConfiguredPath: cfg.Path,
		AlternatePaths: cfg.AlternatePaths,
		ResolvedPath:   resolved,
		Usable:         err == nil,
		RemoteEnabled:  cfg.RemoteEnabled,
		RemoteHost:     cfg.RemoteHost,
	}
}

// UpdateEnginePath validates the executable and repoints the supervisor.
// Live runs keep the process they already have.
func (l *SettingsLogic) UpdateEnginePath(req *UpdateEnginePathReq) (EngineSettings, error) {
	info, err := os.Stat(req.Path)
	if err != nil || info.IsDir() {
		return l.Get(), fmt.Errorf("%w: %s", engine.ErrEngineNotFound, req.Path)
	}

	svc.Ctx.Supervisor.SetEnginePath(req.Path)
	svc.Ctx.Config.Engine.Path = req.Path
	logger.Info("engine path updated", zap.String("path", req.Path))
	return l.Get(), nil
}
