package model

import (
	"github.com/parm-bits/stress-admin-backend/pkg/types"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UseCase is one independently runnable load-test unit: a plan document,
// an optional data file, and the declared thread/server configuration
// applied to the document before each run.
type UseCase struct {
	ID          string `gorm:"primarykey;size:36" json:"id"`
	Name        string `gorm:"size:255;not null" json:"name"`
	Description string `gorm:"size:1000" json:"description"`

	JmxPath     string `gorm:"size:500;not null" json:"jmxPath"`
	CsvPath     string `gorm:"size:500" json:"csvPath"`
	RequiresCsv bool   `json:"requiresCsv"`

	// JSON objects as entered per case; parsed leniently at run time.
	ThreadGroupConfig string `gorm:"type:text" json:"threadGroupConfig"`
	ServerConfig      string `gorm:"type:text" json:"serverConfig"`

	Status        UseCaseStatus `gorm:"size:20;default:IDLE" json:"status"`
	UserCount     int           `json:"userCount"`
	Priority      *int          `json:"priority"`
	TestSessionID string        `gorm:"size:36;index" json:"testSessionId"`

	LastReportURL           string          `gorm:"size:500" json:"lastReportUrl"`
	LastRunAt               *types.DateTime `json:"lastRunAt"`
	TestStartedAt           *types.DateTime `json:"testStartedAt"`
	TestCompletedAt         *types.DateTime `json:"testCompletedAt"`
	TestDurationSeconds     *int64          `json:"testDurationSeconds"`
	ExpectedDurationSeconds *int64          `json:"expectedDurationSeconds"`

	UserID    string         `gorm:"size:36;index" json:"userId"`
	CreatedAt types.DateTime `json:"createdAt"`
	UpdatedAt types.DateTime `json:"updatedAt"`
}

// TableName sets the table name.
func (UseCase) TableName() string {
	return "use_cases"
}

// BeforeCreate assigns a UUID when none is given.
func (u *UseCase) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Status == "" {
		u.Status = UseCaseStatusIdle
	}
	return nil
}
