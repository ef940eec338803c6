package models

import "time"

// InstitutionalNews is authored by staff; featured items are pinned to the
// top of the feed slice.
type InstitutionalNews struct {
	ID          string    `json:"id" gorm:"primaryKey"`
	Title       string    `json:"title" gorm:"not null"`
	Excerpt     string    `json:"excerpt"`
	ContentHTML string    `json:"contentHtml" gorm:"type:text"`
	IsFeatured  bool      `json:"isFeatured" gorm:"default:false"`
	PublishedAt time.Time `json:"publishedAt" gorm:"index"`
	UpdatedAt   time.Time `json:"updatedAt" gorm:"autoUpdateTime"`
}

// CityNews rows are mirrored from an external source by the sync worker.
// ExternalID keeps the upsert idempotent across polls.
type CityNews struct {
	ID          string    `json:"id" gorm:"primaryKey"`
	ExternalID  string    `json:"externalId" gorm:"uniqueIndex;not null"`
	City        string    `json:"city" gorm:"not null;index"`
	Title       string    `json:"title" gorm:"not null"`
	Excerpt     string    `json:"excerpt"`
	Source      string    `json:"source"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"publishedAt" gorm:"index"`
	UpdatedAt   time.Time `json:"updatedAt" gorm:"autoUpdateTime"`
}
