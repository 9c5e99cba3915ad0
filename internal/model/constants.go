package model

// UseCaseStatus is the lifecycle state of a use case run.
type UseCaseStatus string

const (
	UseCaseStatusIdle    UseCaseStatus = "IDLE"
	UseCaseStatusRunning UseCaseStatus = "RUNNING"
	UseCaseStatusSuccess UseCaseStatus = "SUCCESS"
	UseCaseStatusFailed  UseCaseStatus = "FAILED"
	UseCaseStatusStopped UseCaseStatus = "STOPPED"
)

// IsTerminal reports whether the status is a final run outcome.
func (s UseCaseStatus) IsTerminal() bool {
	switch s {
	case UseCaseStatusSuccess, UseCaseStatusFailed, UseCaseStatusStopped:
		return true
	default:
		return false
	}
}

// SessionStatus is the lifecycle state of a test session.
type SessionStatus string

const (
	SessionStatusIdle           SessionStatus = "IDLE"
	SessionStatusRunning        SessionStatus = "RUNNING"
	SessionStatusSuccess        SessionStatus = "SUCCESS"
	SessionStatusFailed         SessionStatus = "FAILED"
	SessionStatusPartialSuccess SessionStatus = "PARTIAL_SUCCESS"
)

// IsTerminal reports whether the session has finished.
func (s SessionStatus) IsTerminal() bool {
	switch s {
	case SessionStatusSuccess, SessionStatusFailed, SessionStatusPartialSuccess:
		return true
	default:
		return false
	}
}
