package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UUIDModel gives an entity a string UUID primary key assigned on insert.
type UUIDModel struct {
	ID string `gorm:"primaryKey;size:36" json:"id"`
}

// BeforeCreate assigns a fresh UUID when the caller did not provide one.
func (m *UUIDModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// DateLayout is the storage format of calendar-day columns.
const DateLayout = "2006-01-02"
