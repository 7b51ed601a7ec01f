package model

import "time"

// Employee belongs to one admin tenant and can sign in with its own credentials.
type Employee struct {
	ID         uint      `json:"id" gorm:"primarykey"`
	UserID     uint      `json:"user_id" gorm:"index;not null"`
	EmployeeID string    `json:"employee_id" gorm:"type:varchar(100);not null"`
	Name       string    `json:"name" gorm:"type:varchar(255);not null"`
	Email      string    `json:"email" gorm:"type:varchar(255);index;not null"`
	Contact    string    `json:"contact" gorm:"type:varchar(50)"`
	Department string    `json:"department" gorm:"type:varchar(100)"`
	Role       string    `json:"role" gorm:"type:varchar(100)"`
	Status     string    `json:"status" gorm:"type:varchar(50)"`
	Password   string    `json:"-" gorm:"type:varchar(255);not null"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
