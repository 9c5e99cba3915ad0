package logic

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gorm.io/gorm"

	"github.com/parm-bits/stress-admin-backend/internal/engine"
	"github.com/parm-bits/stress-admin-backend/internal/model"
	"github.com/parm-bits/stress-admin-backend/internal/svc"
)

// TestConfigurationLogic manages reusable artifact registrations: a plan
// document plus an optional data file, referenced by use cases.
type TestConfigurationLogic struct {
	ctx context.Context
}

func NewTestConfigurationLogic(ctx context.Context) *TestConfigurationLogic {
	return &TestConfigurationLogic{ctx: ctx}
}

// CreateTestConfigurationReq registers stored artifacts as a configuration.
type CreateTestConfigurationReq struct {
	Name        string `json:"name" validate:"required,max=255"`
	Description string `json:"description" validate:"max=1000"`
	JmxPath     string `json:"jmxPath" validate:"required"`
	CsvPath     string `json:"csvPath"`
}

// CreateUseCaseFromConfigReq derives a runnable use case from a
// configuration's artifacts.
type CreateUseCaseFromConfigReq struct {
	Name              string `json:"name" validate:"required,max=200"`
	Description       string `json:"description"`
	ThreadGroupConfig string `json:"threadGroupConfig"`
	ServerConfig      string `json:"serverConfig"`
	UserCount         int    `json:"userCount"`
	Priority          *int   `json:"priority"`
	UserID            string `json:"userId"`
}

// Create validates that the artifacts exist and records the configuration.
func (l *TestConfigurationLogic) Create(req *CreateTestConfigurationReq) (*model.TestConfiguration, error) {
	jmxPath := svc.Ctx.Store.ResolveJmx(req.JmxPath)
	jmxInfo, err := os.Stat(jmxPath)
	if err != nil || jmxInfo.IsDir() {
		return nil, fmt.Errorf("%w: plan document %q", engine.ErrMissingArtifact, req.JmxPath)
	}

	tc := &model.TestConfiguration{
		Name:        req.Name,
		Description: req.Description,
		JmxPath:     jmxPath,
		JmxFileName: filepath.Base(jmxPath),
		JmxFileSize: jmxInfo.Size(),
		IsActive:    true,
	}

	if req.CsvPath != "" {
		csvPath := svc.Ctx.Store.ResolveCsv(req.CsvPath)
		csvInfo, err := os.Stat(csvPath)
		if err != nil || csvInfo.IsDir() {
			return nil, fmt.Errorf("%w: data file %q", engine.ErrMissingArtifact, req.CsvPath)
		}
		tc.CsvPath = csvPath
		tc.CsvFileName = filepath.Base(csvPath)
		tc.CsvFileSize = csvInfo.Size()
	}

	if err := svc.Ctx.DB.WithContext(l.ctx).Create(tc).Error; err != nil {
		return nil, err
	}
	return tc, nil
}

// GetByID loads one active configuration.
func (l *TestConfigurationLogic) GetByID(id string) (*model.TestConfiguration, error) {
	var tc model.TestConfiguration
	err := svc.Ctx.DB.WithContext(l.ctx).
		First(&tc, "id = ? AND is_active = ?", id, true).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrConfigurationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &tc, nil
}

// List returns the active configurations, newest first.
func (l *TestConfigurationLogic) List() ([]model.TestConfiguration, error) {
	var items []model.TestConfiguration
	err := svc.Ctx.DB.WithContext(l.ctx).
		Where("is_active = ?", true).
		Order("created_at DESC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// Delete deactivates a configuration. Use cases created from it keep their
// artifact paths.
func (l *TestConfigurationLogic) Delete(id string) error {
	res := svc.Ctx.DB.WithContext(l.ctx).Model(&model.TestConfiguration{}).
		Where("id = ? AND is_active = ?", id, true).
		Update("is_active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConfigurationNotFound
	}
	return nil
}

// CreateUseCase derives a use case from the configuration's artifacts.
func (l *TestConfigurationLogic) CreateUseCase(configID string, req *CreateUseCaseFromConfigReq) (*model.UseCase, error) {
	tc, err := l.GetByID(configID)
	if err != nil {
		return nil, err
	}

	return NewUseCaseLogic(l.ctx).Create(&CreateUseCaseReq{
		Name:              req.Name,
		Description:       req.Description,
		JmxPath:           tc.JmxPath,
		CsvPath:           tc.CsvPath,
		RequiresCsv:       tc.CsvPath != "",
		ThreadGroupConfig: req.ThreadGroupConfig,
		ServerConfig:      req.ServerConfig,
		UserCount:         req.UserCount,
		Priority:          req.Priority,
		UserID:            req.UserID,
	})
}
