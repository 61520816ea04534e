package models

import (
	"time"

	"gorm.io/gorm"
)

type Notification struct {
	gorm.Model
	UserID uint   `gorm:"index;not null"`
	Type   string // payment, level_change, announcement
	Title  string `gorm:"not null"`
	Body   string
	ReadAt *time.Time
}
