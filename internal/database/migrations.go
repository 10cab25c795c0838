package database

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/calebmorten/shiftrelief/internal/models"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.WorkerProfile{},
		&models.ShiftTemplate{},
		&models.Recurrence{},
		&models.SubstituteRequest{},
		&models.VolunteerOffer{},
		&models.AvailabilityEntry{},
		&models.Notification{},
	)
}

// SeedData ensures a bootstrap admin account exists on an empty installation.
func SeedData(db *gorm.DB) error {
	if db == nil {
		return errors.New("nil database handle")
	}

	var count int64
	if err := db.Model(&models.User{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("changeme"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	admin := models.User{
		Username:          "admin",
		Email:             "admin@localhost",
		Password:          string(hash),
		FirstName:         "Site",
		LastName:          "Admin",
		PreferredLanguage: "en",
		IsAdmin:           true,
		IsActive:          true,
	}
	return db.Create(&admin).Error
}
