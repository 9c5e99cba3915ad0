package engine

import "errors"

var (
	// ErrEngineNotFound means no engine executable exists at the configured
	// path, any alternate, or the conventional install locations.
	ErrEngineNotFound = errors.New("load engine executable not found")

	// ErrMissingArtifact means the plan document or a required data file is
	// absent, so no process was started.
	ErrMissingArtifact = errors.New("required test artifact missing")

	// ErrAlreadyRunning means the use case has a live engine process.
	ErrAlreadyRunning = errors.New("use case is already running")

	// ErrSpawn wraps the OS error from a failed process start.
	ErrSpawn = errors.New("engine process failed to start")

	// ErrRunTimeout marks a run that was force killed after exceeding the
	// configured time limit.
	ErrRunTimeout = errors.New("run exceeded the time limit")
)
