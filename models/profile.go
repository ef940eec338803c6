package models

import "time"

const (
	LastNameFull    = "FULL"
	LastNameInitial = "INITIAL"
	LastNameHidden  = "HIDDEN"
)

// UserProfile is the optional extended profile; a user without a row gets
// defaults on read.
type UserProfile struct {
	ID     string `json:"id" gorm:"primaryKey"`
	UserID string `json:"userId" gorm:"uniqueIndex;not null"`

	FirstName          string `json:"firstName"`
	LastName           string `json:"lastName"`
	LastNameVisibility string `json:"lastNameVisibility" gorm:"default:'FULL'"`

	Bio        string `json:"bio" gorm:"type:text"`
	City       string `json:"city"`
	AvatarText string `json:"avatarText"`
	AvatarURL  string `json:"avatarUrl"`

	ShowEmail   bool `json:"showEmail" gorm:"default:false"`
	ShowSocials bool `json:"showSocials" gorm:"default:true"`

	InstagramHandle string `json:"instagramHandle"`
	LinkedinURL     string `json:"linkedinUrl"`
	WebsiteURL      string `json:"websiteUrl"`

	CreatedAt time.Time `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"autoUpdateTime"`
}
