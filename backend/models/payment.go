package models

import (
	"time"

	"gorm.io/gorm"
)

type Payment struct {
	gorm.Model
	UserID     uint    `gorm:"index;not null"`
	Amount     float64 `gorm:"not null"`
	Currency   string  `gorm:"default:TND"`
	Method     string  // bank_transfer, d17, cash
	Plan       string  // semester, annual
	CouponCode string
	Reference  string // transfer/receipt reference entered by the student
	Status     string `gorm:"default:pending"` // pending, verified, rejected
	VerifiedBy uint
	VerifiedAt *time.Time
	Note       string
}

type ReductionCoupon struct {
	gorm.Model
	Code      string `gorm:"unique;not null"`
	Percent   int    `gorm:"not null;check:percent > 0 AND percent <= 100"`
	MaxUses   int    `gorm:"default:0"` // 0 = unlimited
	Uses      int    `gorm:"default:0"`
	ExpiresAt *time.Time
}

// PricingSettings is a single-row table; the newest row wins.
type PricingSettings struct {
	gorm.Model
	SemesterPrice float64 `gorm:"not null"`
	AnnualPrice   float64 `gorm:"not null"`
	Currency      string  `gorm:"default:TND"`
}
