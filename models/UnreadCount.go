package models

// UnreadCount tracks unseen messages per (conversation, user). Incremented by
// exactly one per send for every member except the sender, zeroed on read.
type UnreadCount struct {
	ID             uint `json:"id" gorm:"primaryKey"`
	ConversationID uint `json:"conversationID" gorm:"not null;uniqueIndex:idx_unread_conversation_user"`
	UserID         uint `json:"userID" gorm:"not null;uniqueIndex:idx_unread_conversation_user;index"`
	Count          int  `json:"count" gorm:"not null;default:0"`
}
