package logic

import "errors"

var (
	ErrUseCaseNotFound       = errors.New("use case not found")
	ErrSessionNotFound       = errors.New("test session not found")
	ErrConfigurationNotFound = errors.New("test configuration not found")

	// ErrUseCaseRunning blocks deleting or editing a use case while its
	// engine process is live.
	ErrUseCaseRunning = errors.New("use case has a live run")

	// ErrSessionNotIdle means the session has already been started.
	ErrSessionNotIdle = errors.New("test session has already run")

	// ErrSessionEmpty means a session was created without members.
	ErrSessionEmpty = errors.New("test session needs at least one use case")

	// ErrWorkerCountInvalid means a session's per-member worker assignment
	// is missing a member or not positive.
	ErrWorkerCountInvalid = errors.New("worker count must be positive for every member")
)
