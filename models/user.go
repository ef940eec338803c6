package models

import (
	"time"
)

type User struct {
	ID           string    `json:"id" gorm:"primaryKey"`
	Email        string    `json:"email" gorm:"uniqueIndex;not null"`
	PasswordHash string    `json:"-" gorm:"not null"`
	DisplayName  string    `json:"displayName" gorm:"not null"`
	CampusID     *string   `json:"campusId,omitempty" gorm:"index"`
	CreatedAt    time.Time `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt    time.Time `json:"updatedAt" gorm:"autoUpdateTime"`

	Roles []Role `json:"roles,omitempty" gorm:"many2many:user_roles"`
}

type Role struct {
	ID    string `json:"id" gorm:"primaryKey"`
	Code  string `json:"code" gorm:"uniqueIndex;not null"`
	Label string `json:"label"`

	Permissions []Permission `json:"permissions,omitempty" gorm:"many2many:role_permissions"`
}

type Permission struct {
	ID  string `json:"id" gorm:"primaryKey"`
	Key string `json:"key" gorm:"uniqueIndex;not null"`
}

// UserFollow feeds the FOLLOWING visibility filter.
type UserFollow struct {
	ID             string    `json:"id" gorm:"primaryKey"`
	FollowerUserID string    `json:"followerUserId" gorm:"not null;index;uniqueIndex:idx_follower_followed"`
	FollowedUserID string    `json:"followedUserId" gorm:"not null;index;uniqueIndex:idx_follower_followed"`
	CreatedAt      time.Time `json:"createdAt" gorm:"autoCreateTime"`
}

// Me is the resolved identity attached to every authenticated request:
// the user row plus the flattened role codes and permission keys.
type Me struct {
	ID          string   `json:"id"`
	Email       string   `json:"email"`
	DisplayName string   `json:"displayName"`
	CampusID    *string  `json:"campusId,omitempty"`
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
}

func (m *Me) HasPermission(key string) bool {
	for _, p := range m.Permissions {
		if p == key {
			return true
		}
	}
	return false
}
