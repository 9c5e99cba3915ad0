package engine

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parm-bits/stress-admin-backend/internal/config"
	"github.com/parm-bits/stress-admin-backend/internal/model"
	"github.com/parm-bits/stress-admin-backend/internal/storage"
)

const testPlan = `<?xml version="1.0"?>
<jmeterTestPlan>
  <hashTree>
    <ThreadGroup testname="Main">
      <intProp name="ThreadGroup.num_threads">1</intProp>
    </ThreadGroup>
  </hashTree>
</jmeterTestPlan>
`

// newTestSupervisor wires a supervisor to a temp storage tree and a fake
// engine script, and returns a ready-to-run use case.
func newTestSupervisor(t *testing.T, script string) (*Supervisor, *model.UseCase) {
	t.Helper()

	store := storage.New(t.TempDir())
	require.NoError(t, store.Init())

	enginePath := filepath.Join(store.BaseDir(), "engine.sh")
	require.NoError(t, os.WriteFile(enginePath, []byte(script), 0o755))

	planPath := filepath.Join(store.JmxDir(), "plan.jmx")
	require.NoError(t, os.WriteFile(planPath, []byte(testPlan), 0o644))

	cfg := config.EngineConfig{
		Path:                enginePath,
		RunTimeoutMinutes:   30,
		GracefulWaitSeconds: 2,
		ForceWaitSeconds:    1,
		ProcessPattern:      "stress-admin-test-sentinel",
	}
	uc := &model.UseCase{
		ID:        "uc-test-1",
		Name:      "checkout",
		JmxPath:   planPath,
		UserCount: 3,
	}
	return NewSupervisor(cfg, store), uc
}

func awaitResult(t *testing.T, ch <-chan RunResult) RunResult {
	t.Helper()
	select {
	case res := <-ch:
		return res
	case <-time.After(15 * time.Second):
		t.Fatal("no run result delivered")
		return RunResult{}
	}
}

func TestStartRunsToSuccess(t *testing.T) {
	s, uc := newTestSupervisor(t, "#!/bin/sh\nexit 0\n")

	ch, err := s.Start(uc)
	require.NoError(t, err)

	res := awaitResult(t, ch)
	assert.Equal(t, model.UseCaseStatusSuccess, res.Status)
	assert.Equal(t, uc.ID, res.UseCaseID)
	assert.Contains(t, res.ReportURL, "/reports/report_uc-test-1_")
	assert.NoError(t, res.Err)
	assert.False(t, s.IsRunning(uc.ID))

	// The mutated plan copy is cleaned up, the execution log stays.
	leftover, _ := filepath.Glob(filepath.Join(s.store.ResultsDir(), "modified_*.jmx"))
	assert.Empty(t, leftover)
	logs, _ := filepath.Glob(filepath.Join(s.store.ResultsDir(), "jmeter_exec_*.log"))
	assert.NotEmpty(t, logs)
}

func TestStartClassifiesNonZeroExitAsFailure(t *testing.T) {
	s, uc := newTestSupervisor(t, "#!/bin/sh\nexit 3\n")

	ch, err := s.Start(uc)
	require.NoError(t, err)

	res := awaitResult(t, ch)
	assert.Equal(t, model.UseCaseStatusFailed, res.Status)
	assert.Error(t, res.Err)
	assert.False(t, s.IsRunning(uc.ID))
}

func TestStartFailsFastWithoutEngine(t *testing.T) {
	s, uc := newTestSupervisor(t, "#!/bin/sh\nexit 0\n")
	s.cfg.Path = filepath.Join(s.store.BaseDir(), "missing.sh")
	s.cfg.AlternatePaths = nil

	ch, err := s.Start(uc)
	assert.ErrorIs(t, err, ErrEngineNotFound)
	assert.Nil(t, ch)
	assert.False(t, s.IsRunning(uc.ID))
}

func TestStartFailsFastWithoutPlan(t *testing.T) {
	s, uc := newTestSupervisor(t, "#!/bin/sh\nexit 0\n")
	uc.JmxPath = filepath.Join(s.store.JmxDir(), "missing.jmx")

	_, err := s.Start(uc)
	assert.ErrorIs(t, err, ErrMissingArtifact)
}

func TestStartFailsFastWithoutRequiredDataFile(t *testing.T) {
	s, uc := newTestSupervisor(t, "#!/bin/sh\nexit 0\n")
	uc.RequiresCsv = true
	uc.CsvPath = filepath.Join(s.store.CsvDir(), "missing.csv")

	_, err := s.Start(uc)
	assert.ErrorIs(t, err, ErrMissingArtifact)
}

func TestStartRejectsSecondRun(t *testing.T) {
	s, uc := newTestSupervisor(t, "#!/bin/sh\nsleep 30\n")

	ch, err := s.Start(uc)
	require.NoError(t, err)

	_, err = s.Start(uc)
	assert.ErrorIs(t, err, ErrAlreadyRunning)

	out := s.Stop(uc.ID)
	assert.True(t, out.Found)
	awaitResult(t, ch)
}

func TestStartLeavesErrorArtifactOnSpawnFailure(t *testing.T) {
	s, uc := newTestSupervisor(t, "#!/bin/sh\nexit 0\n")

	// A non-executable engine without a script suffix is run directly and
	// fails to start.
	blocked := filepath.Join(s.store.BaseDir(), "engine-blocked")
	require.NoError(t, os.WriteFile(blocked, []byte("binary"), 0o644))
	s.cfg.Path = blocked

	ch, err := s.Start(uc)
	assert.ErrorIs(t, err, ErrSpawn)
	assert.Nil(t, ch)
	assert.False(t, s.IsRunning(uc.ID))

	artifacts, _ := filepath.Glob(filepath.Join(s.store.ResultsDir(), "error_*.log"))
	assert.NotEmpty(t, artifacts)
}

func TestStopTerminatesLiveRun(t *testing.T) {
	s, uc := newTestSupervisor(t, "#!/bin/sh\nsleep 30\n")

	ch, err := s.Start(uc)
	require.NoError(t, err)
	require.True(t, s.IsRunning(uc.ID))

	out := s.Stop(uc.ID)
	assert.True(t, out.Found)
	assert.Greater(t, out.Duration, time.Duration(0))
	assert.False(t, s.IsRunning(uc.ID))

	res := awaitResult(t, ch)
	assert.Equal(t, model.UseCaseStatusStopped, res.Status)
}

func TestStopWithoutLiveRunIsNoOp(t *testing.T) {
	s, _ := newTestSupervisor(t, "#!/bin/sh\nexit 0\n")

	out := s.Stop("ghost")
	assert.False(t, out.Found)
}

func TestListRunning(t *testing.T) {
	s, uc := newTestSupervisor(t, "#!/bin/sh\nsleep 30\n")

	ch, err := s.Start(uc)
	require.NoError(t, err)

	running := s.ListRunning()
	require.Len(t, running, 1)
	assert.Equal(t, uc.ID, running[0].UseCaseID)
	assert.NotZero(t, running[0].PID)
	assert.Equal(t, 1, s.RunningCount())

	s.Stop(uc.ID)
	awaitResult(t, ch)
	assert.Zero(t, s.RunningCount())
}

func TestStatsRecordFinishedRuns(t *testing.T) {
	s, uc := newTestSupervisor(t, "#!/bin/sh\nexit 0\n")

	assert.Zero(t, s.Stats().Count)

	ch, err := s.Start(uc)
	require.NoError(t, err)
	awaitResult(t, ch)

	snap := s.Stats()
	assert.Equal(t, int64(1), snap.Count)
	assert.GreaterOrEqual(t, snap.MaxMs, int64(1))
}

func TestRegistryRejectsDuplicateID(t *testing.T) {
	r := newRegistry()
	assert.True(t, r.add("a", &handle{done: make(chan struct{})}))
	assert.False(t, r.add("a", &handle{done: make(chan struct{})}))
	r.remove("a")
	assert.True(t, r.add("a", &handle{done: make(chan struct{})}))
}

func TestRunStatsClampsOutliers(t *testing.T) {
	st := NewRunStats()
	st.Record(0)
	st.Record(48 * time.Hour)

	snap := st.Snapshot()
	assert.Equal(t, int64(2), snap.Count)
	assert.LessOrEqual(t, snap.MaxMs, int64(maxTrackableMs))
	assert.LessOrEqual(t, snap.P99Ms, int64(maxTrackableMs))
	assert.LessOrEqual(t, snap.P50Ms, int64(maxTrackableMs))
}

func TestPatternHelpersWithUnknownSignature(t *testing.T) {
	assert.False(t, patternAlive("stress-admin-no-such-process-signature"))
	assert.NotPanics(t, func() { sweepByPattern("stress-admin-no-such-process-signature") })
}
