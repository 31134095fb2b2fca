package models

import "time"

const (
	MessageTypeText  = "text"
	MessageTypeImage = "image"
	MessageTypeFile  = "file"

	// DeletedPlaceholder replaces the content of a soft-deleted message.
	DeletedPlaceholder = "This message was deleted"
	// ImagePlaceholder / FilePlaceholder fill in when an attachment is sent
	// with empty text.
	ImagePlaceholder = "📷 Image"
	FilePlaceholder  = "📄 File"
)

// Message is append-only per conversation. Edits and soft deletes mutate the
// row in place; CreatedAt (with ID as tiebreaker) is the sole ordering key.
type Message struct {
	ID             uint   `json:"id" gorm:"primaryKey"`
	ConversationID uint   `json:"conversationID" gorm:"not null;index:idx_message_conversation_created"`
	SenderID       uint   `json:"senderID" gorm:"not null;index"`
	Content        string `json:"content" gorm:"type:text"`
	Type           string `json:"type" gorm:"size:16;default:text"` // text|image|file

	// StorageID is the opaque handle returned by the media store; resolved to
	// a fetchable URL at read time, best-effort.
	StorageID string `json:"storageID,omitempty" gorm:"size:256"`

	// ReplyToID must reference a message in the same conversation.
	ReplyToID *uint `json:"replyToID,omitempty" gorm:"index"`

	IsDeleted bool `json:"isDeleted"`
	IsEdited  bool `json:"isEdited"`

	CreatedAt time.Time `json:"createdAt" gorm:"index:idx_message_conversation_created"`

	Sender User `json:"-" gorm:"foreignKey:SenderID"`
}

// HiddenMessage is a per-user overlay: hiding removes a message from that
// user's view only, without touching the row, counters, or the last-message
// pointer.
type HiddenMessage struct {
	ID        uint `json:"id" gorm:"primaryKey"`
	MessageID uint `json:"messageID" gorm:"not null;uniqueIndex:idx_hidden_message_user"`
	UserID    uint `json:"userID" gorm:"not null;uniqueIndex:idx_hidden_message_user;index"`
}
