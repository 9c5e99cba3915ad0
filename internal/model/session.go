package model

import (
	"github.com/parm-bits/stress-admin-backend/pkg/types"
	"github.com/parm-bits/stress-admin-backend/pkg/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TestSession groups use cases run concurrently with an aggregated outcome.
// Member ids, per-member worker counts, statuses and report locations are
// stored as JSON text columns and accessed through the typed helpers below.
type TestSession struct {
	ID          string `gorm:"primarykey;size:36" json:"id"`
	Name        string `gorm:"size:255;not null" json:"name"`
	Description string `gorm:"size:1000" json:"description"`

	UseCaseIDs        string `gorm:"type:text" json:"-"`
	UserCounts        string `gorm:"type:text" json:"-"`
	UseCaseStatuses   string `gorm:"type:text" json:"-"`
	UseCaseReportURLs string `gorm:"type:text" json:"-"`

	Status       SessionStatus `gorm:"size:20;default:IDLE" json:"status"`
	TotalUsers   int           `json:"totalUsers"`
	UseCaseCount int           `json:"useCaseCount"`
	SuccessCount int           `json:"successCount"`
	FailureCount int           `json:"failureCount"`

	UserID      string          `gorm:"size:36;index" json:"userId"`
	CreatedAt   types.DateTime  `json:"createdAt"`
	UpdatedAt   types.DateTime  `json:"updatedAt"`
	StartedAt   *types.DateTime `json:"startedAt"`
	CompletedAt *types.DateTime `json:"completedAt"`
}

// TableName sets the table name.
func (TestSession) TableName() string {
	return "test_sessions"
}

// BeforeCreate assigns a UUID when none is given.
func (s *TestSession) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.Status == "" {
		s.Status = SessionStatusIdle
	}
	return nil
}

// MemberIDs returns the ordered member use-case ids.
func (s *TestSession) MemberIDs() []string {
	ids, err := utils.FromJSON[[]string](s.UseCaseIDs)
	if err != nil {
		return nil
	}
	return ids
}

// SetMemberIDs stores the ordered member use-case ids.
func (s *TestSession) SetMemberIDs(ids []string) {
	s.UseCaseIDs, _ = utils.MarshalString(ids)
}

// WorkerCounts returns the per-member assigned worker counts.
func (s *TestSession) WorkerCounts() map[string]int {
	m, err := utils.FromJSON[map[string]int](s.UserCounts)
	if err != nil || m == nil {
		return map[string]int{}
	}
	return m
}

// SetWorkerCounts stores the per-member assigned worker counts.
func (s *TestSession) SetWorkerCounts(counts map[string]int) {
	s.UserCounts, _ = utils.MarshalString(counts)
}

// MemberStatuses returns the per-member status map.
func (s *TestSession) MemberStatuses() map[string]UseCaseStatus {
	m, err := utils.FromJSON[map[string]UseCaseStatus](s.UseCaseStatuses)
	if err != nil || m == nil {
		return map[string]UseCaseStatus{}
	}
	return m
}

// SetMemberStatuses stores the per-member status map.
func (s *TestSession) SetMemberStatuses(m map[string]UseCaseStatus) {
	s.UseCaseStatuses, _ = utils.MarshalString(m)
}

// MemberReportURLs returns the per-member report location map.
func (s *TestSession) MemberReportURLs() map[string]string {
	m, err := utils.FromJSON[map[string]string](s.UseCaseReportURLs)
	if err != nil || m == nil {
		return map[string]string{}
	}
	return m
}

// SetMemberReportURLs stores the per-member report location map.
func (s *TestSession) SetMemberReportURLs(m map[string]string) {
	s.UseCaseReportURLs, _ = utils.MarshalString(m)
}
