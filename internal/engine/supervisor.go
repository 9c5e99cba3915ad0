// Package engine supervises load-engine processes. It resolves the engine
// executable, prepares per-run artifacts, applies the run configuration to
// the plan document, spawns the non-GUI run and watches it to a terminal
// state. Stops go through an escalating termination ladder.
package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/parm-bits/stress-admin-backend/internal/config"
	"github.com/parm-bits/stress-admin-backend/internal/jmx"
	"github.com/parm-bits/stress-admin-backend/internal/model"
	"github.com/parm-bits/stress-admin-backend/internal/storage"
	"github.com/parm-bits/stress-admin-backend/pkg/logger"
	"github.com/parm-bits/stress-admin-backend/pkg/types"
	"github.com/parm-bits/stress-admin-backend/pkg/utils"
)

// Supervisor owns the live-run registry and everything needed to take a use
// case from record to running process and back. Persistence stays with the
// caller; the supervisor reports outcomes through result channels.
type Supervisor struct {
	mu      sync.RWMutex
	cfg     config.EngineConfig
	store   *storage.Store
	mutator *jmx.Mutator
	reg     *registry
	stats   *RunStats
}

func NewSupervisor(cfg config.EngineConfig, store *storage.Store) *Supervisor {
	return &Supervisor{
		cfg:     cfg,
		store:   store,
		mutator: jmx.NewMutator(store.CsvDir()),
		reg:     newRegistry(),
		stats:   NewRunStats(),
	}
}

// EngineConfig returns the engine settings currently in effect.
func (s *Supervisor) EngineConfig() config.EngineConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// SetEnginePath repoints the supervisor at a different engine executable.
// Live runs keep the process they already have.
func (s *Supervisor) SetEnginePath(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.Path = path
}

// RunResult is the terminal outcome of one run. Exactly one is delivered
// per started run.
type RunResult struct {
	UseCaseID string
	Status    model.UseCaseStatus
	ReportURL string
	Duration  time.Duration
	Err       error
}

// RunningProcess describes one live run.
type RunningProcess struct {
	UseCaseID      string         `json:"useCaseId"`
	PID            int            `json:"pid"`
	StartedAt      types.DateTime `json:"startedAt"`
	ElapsedSeconds int64          `json:"elapsedSeconds"`
}

// Start validates the run, spawns the engine and begins watching it. The
// returned channel delivers exactly one RunResult when the run reaches a
// terminal state. On a validation or spawn error no watched process exists
// and the channel is nil.
func (s *Supervisor) Start(uc *model.UseCase) (<-chan RunResult, error) {
	if _, running := s.reg.get(uc.ID); running {
		return nil, ErrAlreadyRunning
	}

	cfg := s.EngineConfig()
	executable, err := ResolveEngine(cfg)
	if err != nil {
		return nil, err
	}

	planPath := s.store.ResolveJmx(uc.JmxPath)
	if planPath == "" || !fileExists(planPath) {
		return nil, fmt.Errorf("%w: plan document %q", ErrMissingArtifact, uc.JmxPath)
	}

	dataPath := s.store.ResolveCsv(uc.CsvPath)
	if uc.RequiresCsv && (dataPath == "" || !fileExists(dataPath)) {
		return nil, fmt.Errorf("%w: data file %q", ErrMissingArtifact, uc.CsvPath)
	}
	if dataPath != "" && !fileExists(dataPath) {
		logger.Warn("optional data file missing, running without it",
			zap.String("useCaseId", uc.ID), zap.String("csvPath", uc.CsvPath))
		dataPath = ""
	}

	stamp := time.Now().UnixMilli()
	planForRun := s.preparePlan(uc, planPath, dataPath, stamp)

	users := uc.UserCount
	if users < 1 {
		users = 1
	}
	duration := PlannedDuration(uc.ThreadGroupConfig)
	resultFile := filepath.Join(s.store.ResultsDir(), fmt.Sprintf("result_%s_%d.jtl", uc.ID, stamp))
	reportDir := filepath.Join(s.store.ReportsDir(), fmt.Sprintf("report_%s_%d", uc.ID, stamp))

	cmd := buildCommand(executable, engineArgs(planForRun, resultFile, reportDir, users, duration, dataPath, cfg))
	cmd.Dir = filepath.Dir(executable)

	logPath := filepath.Join(s.store.ResultsDir(), fmt.Sprintf("jmeter_exec_%s_%d.log", uc.ID, stamp))
	logFile, err := os.Create(logPath)
	if err != nil {
		return nil, fmt.Errorf("create execution log: %w", err)
	}
	cmd.Stdout = logFile
	cmd.Stderr = logFile

	h := &handle{cmd: cmd, startedAt: time.Now(), done: make(chan struct{})}
	if !s.reg.add(uc.ID, h) {
		logFile.Close()
		return nil, ErrAlreadyRunning
	}

	if err := cmd.Start(); err != nil {
		s.reg.remove(uc.ID)
		logFile.Close()
		s.writeErrorArtifact(uc.ID, executable, err)
		return nil, fmt.Errorf("%w: %v", ErrSpawn, err)
	}
	h.pid = cmd.Process.Pid

	logger.Info("engine process started",
		zap.String("useCaseId", uc.ID),
		zap.Int("pid", h.pid),
		zap.String("executable", executable),
		zap.String("plan", planForRun),
		zap.Int("users", users))

	results := make(chan RunResult, 1)
	utils.SafeGoWithName("engine-run-"+uc.ID, func() {
		s.watch(uc.ID, h, planPath, planForRun, stamp, logFile, results)
	})
	return results, nil
}

// preparePlan writes a mutated copy of the plan for this run and returns its
// path. Any failure falls back to the original document so a run is never
// blocked by plan preparation.
func (s *Supervisor) preparePlan(uc *model.UseCase, planPath, dataPath string, stamp int64) string {
	doc, err := os.ReadFile(planPath)
	if err != nil {
		logger.Warn("cannot read plan for mutation, using it as stored",
			zap.String("useCaseId", uc.ID), zap.Error(err))
		return planPath
	}

	mutated := s.mutator.Mutate(string(doc), jmx.Config{
		ThreadGroupJSON: uc.ThreadGroupConfig,
		ServerJSON:      uc.ServerConfig,
		DataFilePath:    dataPath,
	})

	modified := filepath.Join(s.store.ResultsDir(), fmt.Sprintf("modified_%s_%d.jmx", uc.ID, stamp))
	if err := os.WriteFile(modified, []byte(mutated), 0o644); err != nil {
		logger.Warn("cannot write mutated plan, using it as stored",
			zap.String("useCaseId", uc.ID), zap.Error(err))
		return planPath
	}
	return modified
}

// watch reaps the engine process and classifies the outcome. Runs past the
// configured limit are force killed. The mutated plan copy is removed once
// the run is over.
func (s *Supervisor) watch(id string, h *handle, originalPlan, planForRun string, stamp int64, logFile *os.File, results chan<- RunResult) {
	timeout := time.Duration(s.EngineConfig().RunTimeoutMinutes) * time.Minute
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}

	waitCh := make(chan error, 1)
	go func() { waitCh <- h.cmd.Wait() }()

	var runErr error
	timedOut := false
	select {
	case runErr = <-waitCh:
	case <-time.After(timeout):
		timedOut = true
		_ = h.cmd.Process.Kill()
		runErr = <-waitCh
	}
	close(h.done)
	logFile.Close()

	elapsed := time.Since(h.startedAt)
	s.stats.Record(elapsed)

	if planForRun != originalPlan {
		if err := os.Remove(planForRun); err != nil && !os.IsNotExist(err) {
			logger.Warn("cannot remove mutated plan", zap.String("path", planForRun), zap.Error(err))
		}
	}

	res := RunResult{UseCaseID: id, Duration: elapsed}
	switch {
	case h.stopRequested.Load():
		// The stop path owns the registry entry and the terminal status.
		res.Status = model.UseCaseStatusStopped
	case timedOut:
		s.reg.remove(id)
		res.Status = model.UseCaseStatusFailed
		res.Err = fmt.Errorf("%w (%s)", ErrRunTimeout, timeout)
	case runErr == nil:
		s.reg.remove(id)
		res.Status = model.UseCaseStatusSuccess
		res.ReportURL = fmt.Sprintf("/reports/report_%s_%d/index.html", id, stamp)
	default:
		s.reg.remove(id)
		res.Status = model.UseCaseStatusFailed
		res.Err = runErr
	}

	logger.Info("engine run finished",
		zap.String("useCaseId", id),
		zap.String("status", string(res.Status)),
		zap.Duration("elapsed", elapsed),
		zap.Error(res.Err))
	results <- res
}

// writeErrorArtifact leaves a spawn failure trace next to the run results.
func (s *Supervisor) writeErrorArtifact(id, executable string, spawnErr error) {
	path := filepath.Join(s.store.ResultsDir(), fmt.Sprintf("error_%s_%d.log", id, time.Now().UnixMilli()))
	body := fmt.Sprintf("engine process failed to start\nuse case: %s\nexecutable: %s\ntime: %s\nerror: %v\n",
		id, executable, time.Now().Format(time.RFC3339), spawnErr)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		logger.Error("cannot write error artifact", zap.String("useCaseId", id), zap.Error(err))
	}
}

// IsRunning reports whether the use case has a live engine process.
func (s *Supervisor) IsRunning(useCaseID string) bool {
	_, ok := s.reg.get(useCaseID)
	return ok
}

// RunningCount returns the number of live runs.
func (s *Supervisor) RunningCount() int {
	return s.reg.size()
}

// ListRunning snapshots the live runs.
func (s *Supervisor) ListRunning() []RunningProcess {
	snap := s.reg.snapshot()
	out := make([]RunningProcess, 0, len(snap))
	now := time.Now()
	for id, h := range snap {
		out = append(out, RunningProcess{
			UseCaseID:      id,
			PID:            h.pid,
			StartedAt:      types.NewDateTime(h.startedAt),
			ElapsedSeconds: int64(now.Sub(h.startedAt).Seconds()),
		})
	}
	return out
}

// Stats returns the run duration distribution recorded so far.
func (s *Supervisor) Stats() RunStatsSnapshot {
	return s.stats.Snapshot()
}
