package model

import "time"

// Admin is a tenant account. Every other resource row is owned by an admin through user_id.
type Admin struct {
	ID           uint       `json:"id" gorm:"primarykey"`
	Name         string     `json:"name" gorm:"type:varchar(100);not null"`
	LastName     string     `json:"last_name" gorm:"type:varchar(100)"`
	Email        string     `json:"email" gorm:"type:varchar(255);uniqueIndex;not null"`
	Contact      string     `json:"contact" gorm:"type:varchar(50)"`
	Company      string     `json:"company" gorm:"type:varchar(255)"`
	Address      string     `json:"address" gorm:"type:text"`
	Role         string     `json:"role" gorm:"type:varchar(50)"`
	Password     string     `json:"-" gorm:"type:varchar(255);not null"`
	Image        string     `json:"image" gorm:"type:varchar(500)"`
	Logo         string     `json:"logo" gorm:"type:varchar(500)"`
	OTP          *string    `json:"-" gorm:"column:otp;type:varchar(64)"`
	OTPExpiresAt *time.Time `json:"-" gorm:"column:otp_expires_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// TableName keeps the singular table name used by existing databases.
func (Admin) TableName() string {
	return "admin"
}
