package engine

import (
	"errors"
	"os/exec"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/parm-bits/stress-admin-backend/pkg/logger"
)

// StopOutcome reports what stopping a run did.
type StopOutcome struct {
	// Found is false when no live process existed for the use case.
	Found bool
	// Duration is the elapsed run time of the stopped process.
	Duration time.Duration
}

// Stop cancels the live run of a use case. Repeated stops are safe.
// Termination escalates: a polite signal first, then a kill, then a sweep
// over every process whose command line matches the configured engine
// signature. A stop with no registered handle still sweeps for orphaned
// engine processes (a handle is lost across restarts), unless other tracked
// runs are live and would be hit by the signature match.
func (s *Supervisor) Stop(useCaseID string) StopOutcome {
	h, ok := s.reg.get(useCaseID)
	if !ok {
		if s.reg.size() == 0 {
			s.sweepOrphans(useCaseID)
		}
		return StopOutcome{}
	}

	h.stopRequested.Store(true)
	s.escalate(useCaseID, h)
	s.reg.remove(useCaseID)

	return StopOutcome{Found: true, Duration: time.Since(h.startedAt)}
}

// sweepOrphans kills engine processes that are running without a handle.
func (s *Supervisor) sweepOrphans(id string) {
	pattern := s.EngineConfig().ProcessPattern
	if !patternAlive(pattern) {
		return
	}
	logger.Warn("stopping orphaned engine processes",
		zap.String("useCaseId", id), zap.String("pattern", pattern))
	sweepAndVerify(id, pattern)
}

func (s *Supervisor) escalate(id string, h *handle) {
	if h.exited() {
		return
	}
	cfg := s.EngineConfig()
	graceful := time.Duration(cfg.GracefulWaitSeconds) * time.Second
	force := time.Duration(cfg.ForceWaitSeconds) * time.Second

	if h.cmd.Process != nil {
		_ = h.cmd.Process.Signal(syscall.SIGTERM)
	}
	if h.awaitExit(graceful) {
		logger.Info("engine stopped on request", zap.String("useCaseId", id), zap.Int("pid", h.pid))
		return
	}

	logger.Warn("engine ignored the termination signal, killing",
		zap.String("useCaseId", id), zap.Int("pid", h.pid))
	if h.cmd.Process != nil {
		_ = h.cmd.Process.Kill()
	}
	if h.awaitExit(force) {
		return
	}

	// The direct child is stuck or the engine handed work to processes of
	// its own; fall back to the command-line signature.
	logger.Warn("kill did not reap the engine, sweeping by signature",
		zap.String("useCaseId", id), zap.String("pattern", cfg.ProcessPattern))
	sweepAndVerify(id, cfg.ProcessPattern)
}

// sweepAndVerify kills by signature, probes whether anything survived, and
// retries the sweep once before giving up.
func sweepAndVerify(id, pattern string) {
	sweepByPattern(pattern)
	if !patternAlive(pattern) {
		return
	}
	sweepByPattern(pattern)
	if patternAlive(pattern) {
		logger.Error("engine processes survived the full termination ladder, manual cleanup needed",
			zap.String("useCaseId", id), zap.String("pattern", pattern))
	}
}

// sweepByPattern force kills every process whose command line matches
// pattern. pkill exits 1 when nothing matched; that is not a failure.
func sweepByPattern(pattern string) {
	if pattern == "" {
		return
	}
	err := exec.Command("pkill", "-9", "-f", pattern).Run()
	if err == nil {
		return
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
		return
	}
	logger.Warn("process sweep failed", zap.String("pattern", pattern), zap.Error(err))
}

// patternAlive reports whether any process command line still matches
// pattern.
func patternAlive(pattern string) bool {
	if pattern == "" {
		return false
	}
	return exec.Command("pgrep", "-f", pattern).Run() == nil
}
