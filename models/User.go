package models

import "gorm.io/gorm"

// User represents a merchant account that can authenticate with the service.
type User struct {
	gorm.Model
	Email        string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
	Name         string
}
