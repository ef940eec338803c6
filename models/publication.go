package models

import "time"

const (
	PublicationTypePost  = "POST"
	PublicationTypeEvent = "EVENT"
)

const (
	VisibilityPublic     = "PUBLIC"
	VisibilityCampusOnly = "CAMPUS_ONLY"
	VisibilityPrivate    = "PRIVATE"
)

type Publication struct {
	ID           string     `json:"id" gorm:"primaryKey"`
	Type         string     `json:"type" gorm:"default:'POST'"`
	Title        string     `json:"title" gorm:"not null"`
	ContentHTML  string     `json:"contentHtml" gorm:"type:text"`
	Visibility   string     `json:"visibility" gorm:"default:'PUBLIC';index"`
	AuthorUserID string     `json:"authorUserId" gorm:"not null;index"`
	CampusID     *string    `json:"campusId,omitempty" gorm:"index"`
	ThemeID      *string    `json:"themeId,omitempty" gorm:"index"`
	EventStartAt *time.Time `json:"eventStartAt,omitempty"`
	EventEndAt   *time.Time `json:"eventEndAt,omitempty"`
	PublishAt    *time.Time `json:"publishAt,omitempty"` // future: held back until the scheduler flips it
	PublishedAt  *time.Time `json:"publishedAt,omitempty" gorm:"index"`
	UpdatedAt    time.Time  `json:"updatedAt" gorm:"autoUpdateTime"`

	Author *User   `json:"author,omitempty" gorm:"foreignKey:AuthorUserID"`
	Campus *Campus `json:"campus,omitempty" gorm:"foreignKey:CampusID"`
	Theme  *Theme  `json:"theme,omitempty" gorm:"foreignKey:ThemeID"`
}

type PublicationReport struct {
	ID             string    `json:"id" gorm:"primaryKey"`
	PublicationID  string    `json:"publicationId" gorm:"not null;index"`
	ReporterUserID *string   `json:"reporterUserId,omitempty"`
	Reason         *string   `json:"reason,omitempty"`
	CreatedAt      time.Time `json:"createdAt" gorm:"autoCreateTime"`
}
