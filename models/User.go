package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// User mirrors an account at the external identity provider. Rows are created
// or refreshed by the sync endpoint on first sight of a subject; they are
// never deleted.
type User struct {
	gorm.Model
	ExternalID string `json:"externalID" gorm:"size:191;uniqueIndex;not null"`
	Name       string `json:"name" gorm:"size:256"`
	Email      string `json:"email" gorm:"size:256"`
	AvatarURL  string `json:"avatarURL" gorm:"size:512"`

	// IsOnline is a write-only hint from the client. Listings recompute
	// online state from LastSeen against the configured threshold.
	IsOnline bool      `json:"isOnline"`
	LastSeen time.Time `json:"lastSeen"`

	PushTokens datatypes.JSON `json:"-"`
}
