package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	RoleStudent    = "student"
	RoleMaintainer = "maintainer"
	RoleAdmin      = "admin"
)

type User struct {
	gorm.Model
	Username     string `gorm:"not null"`
	Email        string `gorm:"unique;not null"`
	PasswordHash string `gorm:"not null" json:"-"`
	Role         string `gorm:"default:student"` // student, maintainer, admin
	Niveau       string // academic year, e.g. "DCEM2"
	Semestre     string // "S1", "S2" or "" for the whole year
	Faculty      string
	Subscribed   bool `gorm:"default:false"`
}

// UserSession is one issued JWT. Logout revokes the session; the auth
// middleware rejects tokens whose session row is revoked or gone.
type UserSession struct {
	gorm.Model
	UserID    uint   `gorm:"index;not null"`
	TokenID   string `gorm:"uniqueIndex;not null"` // jti claim
	UserAgent string
	IP        string
	ExpiresAt time.Time
	RevokedAt *time.Time
}

type LevelChangeRequest struct {
	gorm.Model
	UserID          uint `gorm:"index;not null"`
	CurrentNiveau   string
	RequestedNiveau string `gorm:"not null"`
	Reason          string
	Status          string `gorm:"default:pending"` // pending, approved, rejected
	DecidedBy       uint
}
