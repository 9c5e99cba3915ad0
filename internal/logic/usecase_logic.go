package logic

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/parm-bits/stress-admin-backend/internal/engine"
	"github.com/parm-bits/stress-admin-backend/internal/model"
	"github.com/parm-bits/stress-admin-backend/internal/svc"
	"github.com/parm-bits/stress-admin-backend/pkg/logger"
	"github.com/parm-bits/stress-admin-backend/pkg/types"
	"github.com/parm-bits/stress-admin-backend/pkg/utils"
)

// UseCaseLogic drives single use case runs and their records.
type UseCaseLogic struct {
	ctx context.Context
}

func NewUseCaseLogic(ctx context.Context) *UseCaseLogic {
	return &UseCaseLogic{ctx: ctx}
}

// CreateUseCaseReq creates a use case around stored artifacts.
type CreateUseCaseReq struct {
	Name              string `json:"name" validate:"required,max=200"`
	Description       string `json:"description" validate:"max=1000"`
	JmxPath           string `json:"jmxPath" validate:"required"`
	CsvPath           string `json:"csvPath"`
	RequiresCsv       bool   `json:"requiresCsv"`
	ThreadGroupConfig string `json:"threadGroupConfig"`
	ServerConfig      string `json:"serverConfig"`
	UserCount         int    `json:"userCount"`
	Priority          *int   `json:"priority"`
	UserID            string `json:"userId"`
}

// UpdateUseCaseReq updates mutable use case fields. Zero values are left
// unchanged except Priority, which is applied when the pointer is set.
type UpdateUseCaseReq struct {
	Name              string `json:"name" validate:"max=200"`
	Description       string `json:"description" validate:"max=1000"`
	CsvPath           string `json:"csvPath"`
	ThreadGroupConfig string `json:"threadGroupConfig"`
	ServerConfig      string `json:"serverConfig"`
	UserCount         int    `json:"userCount"`
	Priority          *int   `json:"priority"`
}

// UseCaseListReq filters the use case listing.
type UseCaseListReq struct {
	Page     int    `query:"page" validate:"min=1"`
	PageSize int    `query:"pageSize" validate:"min=1,max=100"`
	Status   string `query:"status"`
	Name     string `query:"name"`
}

// Create registers a new use case.
func (l *UseCaseLogic) Create(req *CreateUseCaseReq) (*model.UseCase, error) {
	uc := &model.UseCase{
		Name:              req.Name,
		Description:       req.Description,
		JmxPath:           req.JmxPath,
		CsvPath:           req.CsvPath,
		RequiresCsv:       req.RequiresCsv,
		ThreadGroupConfig: req.ThreadGroupConfig,
		ServerConfig:      req.ServerConfig,
		UserCount:         req.UserCount,
		Priority:          req.Priority,
		UserID:            req.UserID,
	}
	if uc.UserCount < 1 {
		uc.UserCount = 1
	}
	warnOnMalformedConfig(uc.Name, uc.ThreadGroupConfig, uc.ServerConfig)
	if err := svc.Ctx.DB.WithContext(l.ctx).Create(uc).Error; err != nil {
		return nil, err
	}
	return uc, nil
}

// warnOnMalformedConfig flags configuration JSON that the run will skip.
// The record is stored either way; run behavior tolerates malformed JSON by
// leaving that configuration unapplied.
func warnOnMalformedConfig(ref, threadGroupJSON, serverJSON string) {
	if utils.IsNotEmpty(threadGroupJSON) && !utils.ValidString(threadGroupJSON) {
		logger.Warn("thread group config is not valid JSON and will not be applied on runs",
			zap.String("useCase", ref))
	}
	if utils.IsNotEmpty(serverJSON) && !utils.ValidString(serverJSON) {
		logger.Warn("server config is not valid JSON and will not be applied on runs",
			zap.String("useCase", ref))
	}
}

// GetByID loads one use case.
func (l *UseCaseLogic) GetByID(id string) (*model.UseCase, error) {
	var uc model.UseCase
	err := svc.Ctx.DB.WithContext(l.ctx).First(&uc, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUseCaseNotFound
	}
	if err != nil {
		return nil, err
	}
	return &uc, nil
}

// List pages through use cases, newest first.
func (l *UseCaseLogic) List(req *UseCaseListReq) ([]model.UseCase, int64, error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.PageSize < 1 || req.PageSize > 100 {
		req.PageSize = 20
	}

	q := svc.Ctx.DB.WithContext(l.ctx).Model(&model.UseCase{})
	if req.Status != "" {
		q = q.Where("status = ?", req.Status)
	}
	if req.Name != "" {
		q = q.Where("name LIKE ?", "%"+req.Name+"%")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []model.UseCase
	err := q.Order("created_at DESC").
		Offset((req.Page - 1) * req.PageSize).
		Limit(req.PageSize).
		Find(&items).Error
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// Update edits a use case. Editing is refused while a run is live.
func (l *UseCaseLogic) Update(id string, req *UpdateUseCaseReq) (*model.UseCase, error) {
	uc, err := l.GetByID(id)
	if err != nil {
		return nil, err
	}
	if svc.Ctx.Supervisor.IsRunning(id) {
		return nil, ErrUseCaseRunning
	}

	warnOnMalformedConfig(id, req.ThreadGroupConfig, req.ServerConfig)

	updates := map[string]any{}
	if utils.IsNotEmpty(req.Name) {
		updates["name"] = req.Name
	}
	if utils.IsNotEmpty(req.Description) {
		updates["description"] = req.Description
	}
	if utils.IsNotEmpty(req.CsvPath) {
		updates["csv_path"] = req.CsvPath
	}
	if utils.IsNotEmpty(req.ThreadGroupConfig) {
		updates["thread_group_config"] = req.ThreadGroupConfig
	}
	if utils.IsNotEmpty(req.ServerConfig) {
		updates["server_config"] = req.ServerConfig
	}
	if req.UserCount > 0 {
		updates["user_count"] = req.UserCount
	}
	if req.Priority != nil {
		updates["priority"] = *req.Priority
	}
	if len(updates) == 0 {
		return uc, nil
	}

	err = svc.Ctx.DB.WithContext(l.ctx).Model(&model.UseCase{}).
		Where("id = ?", id).Updates(updates).Error
	if err != nil {
		return nil, err
	}
	return l.GetByID(id)
}

// Delete removes a use case. Deletion is refused while a run is live.
func (l *UseCaseLogic) Delete(id string) error {
	if svc.Ctx.Supervisor.IsRunning(id) {
		return ErrUseCaseRunning
	}
	res := svc.Ctx.DB.WithContext(l.ctx).Delete(&model.UseCase{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrUseCaseNotFound
	}
	return nil
}

// StartRun launches the use case's engine run with users workers; zero means
// the stored count. The record moves to RUNNING only once a process exists;
// validation failures land it in FAILED without a running interval.
func (l *UseCaseLogic) StartRun(id string, users int) (*model.UseCase, error) {
	uc, err := l.GetByID(id)
	if err != nil {
		return nil, err
	}
	if uc.Status == model.UseCaseStatusRunning || svc.Ctx.Supervisor.IsRunning(id) {
		return nil, engine.ErrAlreadyRunning
	}
	if users > 0 {
		uc.UserCount = users
	}

	results, err := svc.Ctx.Supervisor.Start(uc)
	if err != nil {
		// A lost start race must not fail the record of the run that won it.
		if !errors.Is(err, engine.ErrAlreadyRunning) {
			l.markRunRejected(id, err)
		}
		return nil, err
	}

	now := types.Now()
	expected := engine.PlannedDuration(uc.ThreadGroupConfig)
	updates := map[string]any{
		"status":                    model.UseCaseStatusRunning,
		"user_count":                uc.UserCount,
		"test_started_at":           now,
		"test_completed_at":         nil,
		"test_duration_seconds":     nil,
		"expected_duration_seconds": expected,
		"last_run_at":               now,
	}
	if err := svc.Ctx.DB.WithContext(l.ctx).Model(&model.UseCase{}).
		Where("id = ?", id).Updates(updates).Error; err != nil {
		return nil, err
	}

	utils.SafeGoWithName("run-complete-"+id, func() {
		applyRunResult(<-results)
	})
	return l.GetByID(id)
}

// RunStatusView is the polling view of one use case's run.
type RunStatusView struct {
	ID                      string              `json:"id"`
	Status                  model.UseCaseStatus `json:"status"`
	Running                 bool                `json:"running"`
	LastRunAt               *types.DateTime     `json:"lastRunAt"`
	LastReportURL           string              `json:"lastReportUrl"`
	TestStartedAt           *types.DateTime     `json:"testStartedAt"`
	TestCompletedAt         *types.DateTime     `json:"testCompletedAt"`
	TestDurationSeconds     *int64              `json:"testDurationSeconds"`
	ExpectedDurationSeconds *int64              `json:"expectedDurationSeconds"`
	ElapsedSeconds          int64               `json:"elapsedSeconds"`
}

// RunStatus reports where the use case's run currently stands. Elapsed time
// is filled in only while a run is live.
func (l *UseCaseLogic) RunStatus(id string) (*RunStatusView, error) {
	uc, err := l.GetByID(id)
	if err != nil {
		return nil, err
	}

	view := &RunStatusView{
		ID:                      uc.ID,
		Status:                  uc.Status,
		Running:                 svc.Ctx.Supervisor.IsRunning(id),
		LastRunAt:               uc.LastRunAt,
		LastReportURL:           uc.LastReportURL,
		TestStartedAt:           uc.TestStartedAt,
		TestCompletedAt:         uc.TestCompletedAt,
		TestDurationSeconds:     uc.TestDurationSeconds,
		ExpectedDurationSeconds: uc.ExpectedDurationSeconds,
	}
	if view.Running && uc.TestStartedAt != nil {
		view.ElapsedSeconds = int64(time.Since(uc.TestStartedAt.Time()).Seconds())
	}
	return view, nil
}

// StopRun cancels a live run. A use case without one still lands in
// STOPPED: the record may say RUNNING after a restart lost the handle, and
// repeating a stop must answer the same way as the first call.
func (l *UseCaseLogic) StopRun(id string) (*model.UseCase, error) {
	uc, err := l.GetByID(id)
	if err != nil {
		return nil, err
	}

	out := svc.Ctx.Supervisor.Stop(id)
	if !out.Found && uc.Status == model.UseCaseStatusStopped {
		return uc, nil
	}

	now := types.Now()
	updates := map[string]any{
		"status": model.UseCaseStatusStopped,
	}
	switch {
	case out.Found:
		updates["test_completed_at"] = now
		updates["test_duration_seconds"] = int64(out.Duration.Seconds())
	case uc.Status == model.UseCaseStatusRunning:
		// Stale RUNNING record with no live process; close it out from its
		// own start stamp.
		updates["test_completed_at"] = now
		if uc.TestStartedAt != nil {
			updates["test_duration_seconds"] = int64(now.Time().Sub(uc.TestStartedAt.Time()).Seconds())
		}
	}
	if err := svc.Ctx.DB.WithContext(l.ctx).Model(&model.UseCase{}).
		Where("id = ?", id).Updates(updates).Error; err != nil {
		return nil, err
	}
	logger.Info("use case run stopped", zap.String("useCaseId", id))
	return l.GetByID(id)
}

// markRunRejected records a run that never produced a process.
func (l *UseCaseLogic) markRunRejected(id string, cause error) {
	err := svc.Ctx.DB.WithContext(l.ctx).Model(&model.UseCase{}).
		Where("id = ?", id).Update("status", model.UseCaseStatusFailed).Error
	if err != nil {
		logger.Error("cannot record rejected run", zap.String("useCaseId", id), zap.Error(err))
	}
	logger.Warn("run rejected before start", zap.String("useCaseId", id), zap.Error(cause))
}

// applyRunResult persists a naturally finished run. Stopped runs are owned
// by the stop path and skipped here.
func applyRunResult(res engine.RunResult) {
	if res.Status == model.UseCaseStatusStopped {
		return
	}

	now := types.Now()
	updates := map[string]any{
		"status":                res.Status,
		"test_completed_at":     now,
		"test_duration_seconds": int64(res.Duration.Seconds()),
	}
	if res.ReportURL != "" {
		updates["last_report_url"] = res.ReportURL
	}

	err := svc.Ctx.DB.Model(&model.UseCase{}).
		Where("id = ?", res.UseCaseID).Updates(updates).Error
	if err != nil {
		logger.Error("cannot persist run result",
			zap.String("useCaseId", res.UseCaseID),
			zap.String("status", string(res.Status)),
			zap.Error(err))
	}
}
