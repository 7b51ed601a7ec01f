package model

import "time"

type Customer struct {
	ID         uint      `json:"id" gorm:"primarykey"`
	UserID     uint      `json:"user_id" gorm:"index;not null"`
	CustomerID string    `json:"customer_id" gorm:"type:varchar(100);not null"`
	Name       string    `json:"name" gorm:"type:varchar(255);not null"`
	Delivery   string    `json:"delivery" gorm:"type:text"`
	Email      string    `json:"email" gorm:"type:varchar(255)"`
	Contact    string    `json:"contact" gorm:"type:varchar(50)"`
	Status     string    `json:"status" gorm:"type:varchar(50)"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
