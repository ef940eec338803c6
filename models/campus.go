package models

import "time"

type Campus struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"not null"`
	City      string    `json:"city" gorm:"not null;index"`
	CreatedAt time.Time `json:"createdAt" gorm:"autoCreateTime"`
}

// Theme tags publications ("vie étudiante", "sport", ...). Slug is derived
// from the label on creation.
type Theme struct {
	ID    string `json:"id" gorm:"primaryKey"`
	Label string `json:"label" gorm:"not null"`
	Slug  string `json:"slug" gorm:"uniqueIndex;not null"`
}
