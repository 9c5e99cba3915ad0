package model

import (
	"github.com/parm-bits/stress-admin-backend/pkg/types"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TestConfiguration is a reusable plan/data template a use case can be
// created from.
type TestConfiguration struct {
	ID          string `gorm:"primarykey;size:36" json:"id"`
	Name        string `gorm:"size:255;not null" json:"name"`
	Description string `gorm:"size:1000" json:"description"`

	JmxPath     string `gorm:"size:500;not null" json:"jmxPath"`
	CsvPath     string `gorm:"size:500" json:"csvPath"`
	JmxFileName string `gorm:"size:255" json:"jmxFileName"`
	CsvFileName string `gorm:"size:255" json:"csvFileName"`
	JmxFileSize int64  `json:"jmxFileSize"`
	CsvFileSize int64  `json:"csvFileSize"`

	IsActive bool `gorm:"default:true" json:"isActive"`

	CreatedAt types.DateTime `json:"createdAt"`
	UpdatedAt types.DateTime `json:"updatedAt"`
}

// TableName sets the table name.
func (TestConfiguration) TableName() string {
	return "test_configurations"
}

// BeforeCreate assigns a UUID when none is given.
func (c *TestConfiguration) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}
