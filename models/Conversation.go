package models

import "time"

// Conversation is a DM or a group chat. For DMs, DMKey is "dm:<minID>:<maxID>"
// over the two member ids; its unique index guarantees at most one DM per
// unordered pair even under concurrent creation.
type Conversation struct {
	ID          uint    `json:"id" gorm:"primaryKey"`
	IsGroup     bool    `json:"isGroup"`
	Name        string  `json:"name,omitempty" gorm:"size:256"`
	Description string  `json:"description,omitempty" gorm:"size:1024"`
	AdminID     *uint   `json:"adminID,omitempty" gorm:"index"`
	DMKey       *string `json:"-" gorm:"size:64;uniqueIndex"`

	// Denormalized pointer to the newest message, maintained in the same
	// transaction as the insert.
	LastMessageID *uint `json:"lastMessageID,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

type ConversationMember struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	ConversationID uint      `json:"conversationID" gorm:"not null;uniqueIndex:idx_member_conversation_user"`
	UserID         uint      `json:"userID" gorm:"not null;uniqueIndex:idx_member_conversation_user;index"`
	JoinedAt       time.Time `json:"joinedAt"`

	User User `json:"user" gorm:"foreignKey:UserID"`
}
