package models

// MessageReaction holds one emoji reaction. The toggle endpoint keeps at most
// one row per (message, user); legacy duplicates are collapsed opportunistically.
type MessageReaction struct {
	ID        uint   `json:"id" gorm:"primaryKey"`
	MessageID uint   `json:"messageID" gorm:"not null;index"`
	UserID    uint   `json:"userID" gorm:"not null;index"`
	Emoji     string `json:"emoji" gorm:"size:32;not null"`
}
