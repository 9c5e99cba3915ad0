package logic

import (
	"sync"

	"go.uber.org/zap"

	"github.com/parm-bits/stress-admin-backend/internal/model"
	"github.com/parm-bits/stress-admin-backend/internal/svc"
	"github.com/parm-bits/stress-admin-backend/pkg/logger"
	"github.com/parm-bits/stress-admin-backend/pkg/types"
	"github.com/parm-bits/stress-admin-backend/pkg/utils"
)

// Live aggregators by session id, so an explicit stop can reach the
// aggregate of a session that is mid-flight.
var (
	liveSessionsMu sync.Mutex
	liveSessions   = map[string]*sessionAggregator{}
)

func registerSessionAggregator(a *sessionAggregator) {
	liveSessionsMu.Lock()
	defer liveSessionsMu.Unlock()
	liveSessions[a.sessionID] = a
}

func unregisterSessionAggregator(sessionID string) {
	liveSessionsMu.Lock()
	defer liveSessionsMu.Unlock()
	delete(liveSessions, sessionID)
}

func lookupSessionAggregator(sessionID string) *sessionAggregator {
	liveSessionsMu.Lock()
	defer liveSessionsMu.Unlock()
	return liveSessions[sessionID]
}

// sessionAggregator folds member outcomes into the session record. Every
// member goroutine reports through one aggregator, so counter updates and
// the JSON progress maps never interleave. The first terminal status
// recorded for a member wins; each member is counted exactly once.
type sessionAggregator struct {
	mu        sync.Mutex
	sessionID string
	total     int
	success   int
	failure   int
	stopped   bool
	statuses  map[string]model.UseCaseStatus
	reports   map[string]string

	// persist writes updates to the session row and reports how many rows
	// were hit. onlyWhileRunning guards the write to a still-RUNNING row so
	// a terminal status is never overwritten.
	persist func(updates map[string]any, onlyWhileRunning bool) int64
}

func newSessionAggregator(sessionID string, total int) *sessionAggregator {
	a := &sessionAggregator{
		sessionID: sessionID,
		total:     total,
		statuses:  make(map[string]model.UseCaseStatus, total),
		reports:   make(map[string]string, total),
	}
	a.persist = a.persistToDB
	return a
}

func (a *sessionAggregator) persistToDB(updates map[string]any, onlyWhileRunning bool) int64 {
	q := svc.Ctx.DB.Model(&model.TestSession{})
	if onlyWhileRunning {
		q = q.Where("id = ? AND status = ?", a.sessionID, model.SessionStatusRunning)
	} else {
		q = q.Where("id = ?", a.sessionID)
	}
	res := q.Updates(updates)
	if res.Error != nil {
		logger.Error("cannot persist session progress",
			zap.String("sessionId", a.sessionID), zap.Error(res.Error))
		return 0
	}
	return res.RowsAffected
}

// markRunning records a member entering its run.
func (a *sessionAggregator) markRunning(useCaseID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.statuses[useCaseID].IsTerminal() {
		return
	}
	a.statuses[useCaseID] = model.UseCaseStatusRunning
	a.persistProgressLocked(nil)
}

// apply records a member's terminal outcome. A member cancelled while the
// whole session was being stopped is recorded as a failure of the session,
// not as an isolated stop.
func (a *sessionAggregator) apply(useCaseID string, st model.UseCaseStatus, reportURL string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.statuses[useCaseID].IsTerminal() {
		return
	}
	if a.stopped && st == model.UseCaseStatusStopped {
		st = model.UseCaseStatusFailed
	}

	a.statuses[useCaseID] = st
	if reportURL != "" {
		a.reports[useCaseID] = reportURL
	}
	if countsAsFailure(st) {
		a.failure++
	} else {
		a.success++
	}
	a.persistProgressLocked(map[string]any{
		"success_count": a.success,
		"failure_count": a.failure,
	})
}

// stopRequested reports whether an explicit stop has frozen the aggregate.
// Member launches landing after the freeze consult it so their fresh
// process does not outlive the stopped session.
func (a *sessionAggregator) stopRequested() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stopped
}

// stopAll fails every member still running in the aggregate and lands the
// session in FAILED with a stamped completion. Completions arriving after
// the stop keep the failure classification. The session status flips only
// while still RUNNING, so a session that finished a moment earlier keeps
// its aggregate outcome.
func (a *sessionAggregator) stopAll() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.stopped = true
	for id, st := range a.statuses {
		if st == model.UseCaseStatusRunning {
			a.statuses[id] = model.UseCaseStatusFailed
			a.failure++
		}
	}

	statusJSON, _ := utils.MarshalString(a.statuses)
	reportJSON, _ := utils.MarshalString(a.reports)
	a.persist(map[string]any{
		"use_case_statuses":    statusJSON,
		"use_case_report_urls": reportJSON,
		"success_count":        a.success,
		"failure_count":        a.failure,
		"status":               model.SessionStatusFailed,
		"completed_at":         types.Now(),
	}, true)
}

// persistProgressLocked writes the progress maps plus any extra columns to
// the session row. Callers hold the lock.
func (a *sessionAggregator) persistProgressLocked(extra map[string]any) {
	statusJSON, _ := utils.MarshalString(a.statuses)
	reportJSON, _ := utils.MarshalString(a.reports)
	updates := map[string]any{
		"use_case_statuses":    statusJSON,
		"use_case_report_urls": reportJSON,
	}
	for k, v := range extra {
		updates[k] = v
	}
	a.persist(updates, false)
}

// finalize lands the session in its aggregate terminal status. The update
// applies only while the session is still RUNNING, so an external stop that
// already failed it is left alone. Calling finalize again changes nothing.
func (a *sessionAggregator) finalize() {
	a.mu.Lock()
	success, failure := a.success, a.failure
	a.mu.Unlock()

	outcome := sessionOutcome(success, failure)
	hit := a.persist(map[string]any{
		"status":       outcome,
		"completed_at": types.Now(),
	}, true)
	if hit > 0 {
		logger.Info("test session finished",
			zap.String("sessionId", a.sessionID),
			zap.String("status", string(outcome)),
			zap.Int("success", success),
			zap.Int("failure", failure))
	}
}
