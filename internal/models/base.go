package models

import (
	"time"

	"gorm.io/gorm"
)

// Base replaces gorm.Model so records serialize as id/createdAt/updatedAt
type Base struct {
	ID        uint           `json:"id" gorm:"primarykey"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}
