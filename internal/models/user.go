package models

import (
	"time"
)

// User is the internal owner record. One row per external identity.
type User struct {
	ID          uint64    `gorm:"primarykey" json:"id"`
	ExternalID  string    `gorm:"type:varchar(128);uniqueIndex;not null" json:"external_id"`
	DisplayName string    `gorm:"type:varchar(255)" json:"display_name"`
	Email       string    `gorm:"type:varchar(255);index" json:"email"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Relations
	Tasks         []Task         `gorm:"foreignKey:UserID" json:"-"`
	Notifications []Notification `gorm:"foreignKey:UserID" json:"-"`
}

// AuthAccount is a locally managed credential. It belongs to the identity
// provider side and only knows the external id it hands out.
type AuthAccount struct {
	ID           uint64    `gorm:"primarykey" json:"id"`
	ExternalID   string    `gorm:"type:varchar(128);uniqueIndex;not null" json:"external_id"`
	Username     string    `gorm:"type:varchar(50);uniqueIndex;not null" json:"username"`
	Email        string    `gorm:"type:varchar(255)" json:"email"`
	DisplayName  string    `gorm:"type:varchar(255)" json:"display_name"`
	PasswordHash string    `gorm:"type:varchar(255);not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
