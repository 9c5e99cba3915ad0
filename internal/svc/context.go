package svc

import (
	"gorm.io/gorm"

	"github.com/parm-bits/stress-admin-backend/internal/config"
	"github.com/parm-bits/stress-admin-backend/internal/engine"
	"github.com/parm-bits/stress-admin-backend/internal/storage"
)

// ServiceContext is the global service context.
type ServiceContext struct {
	Config     *config.Config
	DB         *gorm.DB
	Store      *storage.Store
	Supervisor *engine.Supervisor
}

var Ctx *ServiceContext

// Init wires the global service context.
func Init(cfg *config.Config, db *gorm.DB, store *storage.Store, supervisor *engine.Supervisor) {
	Ctx = &ServiceContext{
		Config:     cfg,
		DB:         db,
		Store:      store,
		Supervisor: supervisor,
	}
}
