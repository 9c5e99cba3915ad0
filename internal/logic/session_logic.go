package logic

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/parm-bits/stress-admin-backend/internal/engine"
	"github.com/parm-bits/stress-admin-backend/internal/model"
	"github.com/parm-bits/stress-admin-backend/internal/svc"
	"github.com/parm-bits/stress-admin-backend/pkg/logger"
	"github.com/parm-bits/stress-admin-backend/pkg/types"
	"github.com/parm-bits/stress-admin-backend/pkg/utils"
)

// SessionLogic coordinates sessions of use cases run concurrently.
type SessionLogic struct {
	ctx context.Context
}

func NewSessionLogic(ctx context.Context) *SessionLogic {
	return &SessionLogic{ctx: ctx}
}

// CreateSessionReq groups existing use cases into a session. UserCounts
// assigns workers per member; omitted, each member's stored count is used.
type CreateSessionReq struct {
	Name        string         `json:"name" validate:"required,max=255"`
	Description string         `json:"description" validate:"max=1000"`
	UseCaseIDs  []string       `json:"useCaseIds" validate:"required,min=1"`
	UserCounts  map[string]int `json:"userCounts"`
	UserID      string         `json:"userId"`
}

// SessionListReq pages the session listing.
type SessionListReq struct {
	Page     int    `query:"page" validate:"min=1"`
	PageSize int    `query:"pageSize" validate:"min=1,max=100"`
	Status   string `query:"status"`
}

// SessionStatusView is the detailed session state for polling clients.
type SessionStatusView struct {
	Session *model.TestSession             `json:"session"`
	Members []model.UseCase                `json:"members"`
	Status  map[string]model.UseCaseStatus `json:"memberStatuses"`
	Reports map[string]string              `json:"memberReportUrls"`
}

// Create validates that every member exists and records the session in IDLE
// with the aggregate worker total. An explicit worker assignment must cover
// every member with a positive count.
func (l *SessionLogic) Create(req *CreateSessionReq) (*model.TestSession, error) {
	ids := utils.SliceUnique(req.UseCaseIDs)
	if len(ids) == 0 {
		return nil, ErrSessionEmpty
	}

	var members []model.UseCase
	if err := svc.Ctx.DB.WithContext(l.ctx).Where("id IN ?", ids).Find(&members).Error; err != nil {
		return nil, err
	}
	if len(members) != len(ids) {
		return nil, ErrUseCaseNotFound
	}

	total := 0
	counts := make(map[string]int, len(members))
	for _, m := range members {
		n := m.UserCount
		if len(req.UserCounts) > 0 {
			assigned, ok := req.UserCounts[m.ID]
			if !ok || assigned <= 0 {
				return nil, fmt.Errorf("%w: %s", ErrWorkerCountInvalid, m.ID)
			}
			n = assigned
		}
		total += n
		counts[m.ID] = n
	}

	sess := &model.TestSession{
		Name:         req.Name,
		Description:  req.Description,
		Status:       model.SessionStatusIdle,
		TotalUsers:   total,
		UseCaseCount: len(members),
		UserID:       req.UserID,
	}
	sess.SetMemberIDs(ids)
	sess.SetWorkerCounts(counts)

	if err := svc.Ctx.DB.WithContext(l.ctx).Create(sess).Error; err != nil {
		return nil, err
	}
	return sess, nil
}

// GetByID loads one session.
func (l *SessionLogic) GetByID(id string) (*model.TestSession, error) {
	var sess model.TestSession
	err := svc.Ctx.DB.WithContext(l.ctx).First(&sess, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

// List pages through sessions, newest first.
func (l *SessionLogic) List(req *SessionListReq) ([]model.TestSession, int64, error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.PageSize < 1 || req.PageSize > 100 {
		req.PageSize = 20
	}

	q := svc.Ctx.DB.WithContext(l.ctx).Model(&model.TestSession{})
	if req.Status != "" {
		q = q.Where("status = ?", req.Status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []model.TestSession
	err := q.Order("created_at DESC").
		Offset((req.Page - 1) * req.PageSize).
		Limit(req.PageSize).
		Find(&items).Error
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// ListRunning returns every session currently running.
func (l *SessionLogic) ListRunning() ([]model.TestSession, error) {
	var items []model.TestSession
	err := svc.Ctx.DB.WithContext(l.ctx).
		Where("status = ?", model.SessionStatusRunning).
		Order("started_at DESC").
		Find(&items).Error
	return items, err
}

// Status returns the session with its members and per-member progress.
func (l *SessionLogic) Status(id string) (*SessionStatusView, error) {
	sess, err := l.GetByID(id)
	if err != nil {
		return nil, err
	}

	var members []model.UseCase
	ids := sess.MemberIDs()
	if len(ids) > 0 {
		if err := svc.Ctx.DB.WithContext(l.ctx).Where("id IN ?", ids).Find(&members).Error; err != nil {
			return nil, err
		}
	}

	return &SessionStatusView{
		Session: sess,
		Members: members,
		Status:  sess.MemberStatuses(),
		Reports: sess.MemberReportURLs(),
	}, nil
}

// Start launches every member concurrently. Members spawn in priority order
// (lowest number first, unprioritized last) and the session aggregates their
// terminal outcomes. Only an IDLE session can start.
func (l *SessionLogic) Start(id string) (*model.TestSession, error) {
	sess, err := l.GetByID(id)
	if err != nil {
		return nil, err
	}
	if sess.Status != model.SessionStatusIdle {
		return nil, ErrSessionNotIdle
	}

	ids := sess.MemberIDs()
	if len(ids) == 0 {
		return nil, ErrSessionEmpty
	}
	var members []model.UseCase
	if err := svc.Ctx.DB.WithContext(l.ctx).Where("id IN ?", ids).Find(&members).Error; err != nil {
		return nil, err
	}
	if len(members) != len(ids) {
		return nil, ErrUseCaseNotFound
	}

	// The session's worker assignment overrides each member's stored count
	// for this run.
	counts := sess.WorkerCounts()
	for i := range members {
		if n, ok := counts[members[i].ID]; ok && n > 0 {
			members[i].UserCount = n
		}
	}
	sortMembersByPriority(members)

	now := types.Now()
	res := svc.Ctx.DB.WithContext(l.ctx).Model(&model.TestSession{}).
		Where("id = ? AND status = ?", id, model.SessionStatusIdle).
		Updates(map[string]any{
			"status":        model.SessionStatusRunning,
			"started_at":    now,
			"success_count": 0,
			"failure_count": 0,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrSessionNotIdle
	}

	logger.Info("test session starting",
		zap.String("sessionId", id),
		zap.Int("members", len(members)),
		zap.Int("totalUsers", sess.TotalUsers))

	utils.SafeGoWithName("session-"+id, func() {
		runSession(id, members)
	})
	return l.GetByID(id)
}

// Stop cancels a running session: the aggregate is frozen in FAILED first
// so member completions landing during the stop keep that classification,
// then every member with a live process goes through the supervisor's
// termination ladder and its record is failed. An explicit stop is a
// full-session failure, never PARTIAL_SUCCESS. Stopping a session that is
// not running reports false.
func (l *SessionLogic) Stop(id string) (*model.TestSession, bool, error) {
	sess, err := l.GetByID(id)
	if err != nil {
		return nil, false, err
	}
	if sess.Status != model.SessionStatusRunning {
		return sess, false, nil
	}

	agg := lookupSessionAggregator(id)
	if agg != nil {
		agg.stopAll()
	}

	var members []model.UseCase
	ids := sess.MemberIDs()
	if len(ids) > 0 {
		if err := svc.Ctx.DB.WithContext(l.ctx).Where("id IN ?", ids).Find(&members).Error; err != nil {
			return nil, false, err
		}
	}

	now := types.Now()
	for i := range members {
		m := &members[i]
		if svc.Ctx.Supervisor.IsRunning(m.ID) {
			out := svc.Ctx.Supervisor.Stop(m.ID)
			logger.Info("session member stopped",
				zap.String("sessionId", id),
				zap.String("useCaseId", m.ID),
				zap.Duration("ranFor", out.Duration))
		}
		if m.Status != model.UseCaseStatusRunning {
			continue
		}
		updates := map[string]any{
			"status":            model.UseCaseStatusFailed,
			"test_completed_at": now,
		}
		if m.TestStartedAt != nil {
			updates["test_duration_seconds"] = int64(now.Time().Sub(m.TestStartedAt.Time()).Seconds())
		}
		uerr := svc.Ctx.DB.WithContext(l.ctx).Model(&model.UseCase{}).
			Where("id = ? AND status = ?", m.ID, model.UseCaseStatusRunning).
			Updates(updates).Error
		if uerr != nil {
			logger.Error("cannot fail stopped session member",
				zap.String("sessionId", id), zap.String("useCaseId", m.ID), zap.Error(uerr))
		}
	}

	// Without a live aggregator the session row was left RUNNING by an
	// earlier process; land it in FAILED directly.
	if agg == nil {
		l.failSessionRecord(sess, members, now)
	}

	sess, err = l.GetByID(id)
	return sess, true, err
}

// failSessionRecord lands a stale RUNNING session row in FAILED, marking
// every member that was still running as failed in the progress map.
func (l *SessionLogic) failSessionRecord(sess *model.TestSession, members []model.UseCase, now types.DateTime) {
	statuses := sess.MemberStatuses()
	if statuses == nil {
		statuses = map[string]model.UseCaseStatus{}
	}
	for i := range members {
		if members[i].Status == model.UseCaseStatusRunning {
			statuses[members[i].ID] = model.UseCaseStatusFailed
		}
	}
	statusJSON, err := utils.MarshalString(statuses)
	if err != nil {
		logger.Error("cannot encode session statuses", zap.String("sessionId", sess.ID), zap.Error(err))
		return
	}

	err = svc.Ctx.DB.WithContext(l.ctx).Model(&model.TestSession{}).
		Where("id = ? AND status = ?", sess.ID, model.SessionStatusRunning).
		Updates(map[string]any{
			"status":            model.SessionStatusFailed,
			"completed_at":      now,
			"use_case_statuses": statusJSON,
			"failure_count":     gorm.Expr("use_case_count - success_count"),
		}).Error
	if err != nil {
		logger.Error("cannot record session stop", zap.String("sessionId", sess.ID), zap.Error(err))
	}
}

// sortMembersByPriority orders members for dispatch: explicit priorities
// ascending, members without one after them, ties kept in input order.
func sortMembersByPriority(members []model.UseCase) {
	sort.SliceStable(members, func(i, j int) bool {
		pi, pj := members[i].Priority, members[j].Priority
		switch {
		case pi == nil:
			return false
		case pj == nil:
			return true
		default:
			return *pi < *pj
		}
	})
}

// sessionOutcome folds final member counts into the session status.
func sessionOutcome(success, failure int) model.SessionStatus {
	switch {
	case failure == 0:
		return model.SessionStatusSuccess
	case success == 0:
		return model.SessionStatusFailed
	default:
		return model.SessionStatusPartialSuccess
	}
}

// countsAsFailure classifies a member's terminal status for aggregation.
// A stopped member did not deliver its planned load, so it counts against
// the session.
func countsAsFailure(st model.UseCaseStatus) bool {
	return st != model.UseCaseStatusSuccess
}

// runSession fans the members out and waits for all of them. Runs detached
// from the request context.
func runSession(sessionID string, members []model.UseCase) {
	agg := newSessionAggregator(sessionID, len(members))
	registerSessionAggregator(agg)
	defer unregisterSessionAggregator(sessionID)

	var wg sync.WaitGroup
	for i := range members {
		member := members[i]
		wg.Add(1)
		utils.SafeGoWithName("session-member-"+member.ID, func() {
			defer wg.Done()
			runSessionMember(sessionID, &member, agg)
		})
	}
	wg.Wait()

	agg.finalize()
}

// runSessionMember drives one member to a terminal state and reports it to
// the aggregator.
func runSessionMember(sessionID string, uc *model.UseCase, agg *sessionAggregator) {
	db := svc.Ctx.DB

	results, err := svc.Ctx.Supervisor.Start(uc)
	if err != nil {
		logger.Warn("session member rejected",
			zap.String("sessionId", sessionID),
			zap.String("useCaseId", uc.ID),
			zap.Error(err))
		uerr := db.Model(&model.UseCase{}).Where("id = ?", uc.ID).
			Updates(map[string]any{
				"status":          model.UseCaseStatusFailed,
				"test_session_id": sessionID,
			}).Error
		if uerr != nil {
			logger.Error("cannot mark rejected member", zap.String("useCaseId", uc.ID), zap.Error(uerr))
		}
		agg.apply(uc.ID, model.UseCaseStatusFailed, "")
		return
	}

	// A session stop that raced this launch has already run its registry
	// sweep; stop the fresh process here so it does not outlive the
	// stopped session.
	if agg.stopRequested() {
		svc.Ctx.Supervisor.Stop(uc.ID)
	}

	now := types.Now()
	uerr := db.Model(&model.UseCase{}).Where("id = ?", uc.ID).
		Updates(map[string]any{
			"status":                    model.UseCaseStatusRunning,
			"test_session_id":           sessionID,
			"user_count":                uc.UserCount,
			"test_started_at":           now,
			"test_completed_at":         nil,
			"test_duration_seconds":     nil,
			"expected_duration_seconds": engine.PlannedDuration(uc.ThreadGroupConfig),
			"last_run_at":               now,
		}).Error
	if uerr != nil {
		logger.Error("cannot mark running member", zap.String("useCaseId", uc.ID), zap.Error(uerr))
	}
	agg.markRunning(uc.ID)

	res := <-results
	switch {
	case res.Status != model.UseCaseStatusStopped:
		applyRunResult(res)
	case agg.stopRequested():
		// The stop loop may have read this member's row before it turned
		// RUNNING; close it out the way the loop would have.
		uerr := db.Model(&model.UseCase{}).
			Where("id = ? AND status = ?", uc.ID, model.UseCaseStatusRunning).
			Updates(map[string]any{
				"status":            model.UseCaseStatusFailed,
				"test_completed_at": types.Now(),
			}).Error
		if uerr != nil {
			logger.Error("cannot fail stopped session member",
				zap.String("sessionId", sessionID), zap.String("useCaseId", uc.ID), zap.Error(uerr))
		}
	}
	agg.apply(uc.ID, res.Status, res.ReportURL)
}
