package utils

import (
	"fmt"

	"carabin/backend/config"
	"carabin/backend/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// InitDB opens the Postgres connection and migrates the schema.
func InitDB(cfg *config.Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.UserSession{},
		&models.LevelChangeRequest{},
		&models.Payment{},
		&models.ReductionCoupon{},
		&models.PricingSettings{},
		&models.Lecture{},
		&models.Question{},
		&models.UserLectureProgress{},
		&models.Notification{},
		&models.AiValidationJob{},
	)
}
