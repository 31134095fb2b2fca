package services

import (
	"context"
	"encoding/json"
	"log"

	"whatsapp-clone-server/storage"
)

var bgContext = context.Background()

// Event is the compact change notification published for the subscription
// transport. Consumers re-run their queries on receipt; the payload only says
// what changed, never carries authoritative data.
type Event struct {
	Type           string `json:"type"` // message|message_edited|message_deleted|reaction|read
	ConversationID uint   `json:"conversationID"`
	MessageID      uint   `json:"messageID,omitempty"`
	ActorID        uint   `json:"actorID,omitempty"`
}

// PublishEvent fans a change event out on the conversation's channel.
// Best-effort: delivery failures are logged and swallowed, the committed
// mutation stands regardless.
func PublishEvent(ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}
	if storage.Redis == nil {
		return
	}
	if err := storage.Redis.Publish(bgContext, storage.ConversationChannel(ev.ConversationID), payload).Err(); err != nil {
		log.Printf("realtime: publish %s for conversation %d: %v", ev.Type, ev.ConversationID, err)
	}
}
