package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"whatsapp-clone-server/models"
	"whatsapp-clone-server/storage"
)

const expoPushEndpoint = "https://exp.host/--/api/v2/push/send"

// NotificationService handles push notification fan-out for new messages.
type NotificationService struct {
	client *http.Client
}

func NewNotificationService() *NotificationService {
	return &NotificationService{client: &http.Client{Timeout: 10 * time.Second}}
}

type expoPushMessage struct {
	To    []string          `json:"to"`
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

// getUserPushTokens loads the registered Expo tokens for a user.
func (ns *NotificationService) getUserPushTokens(userID uint) ([]string, error) {
	var user models.User
	if err := storage.DB.First(&user, userID).Error; err != nil {
		return nil, fmt.Errorf("user not found: %w", err)
	}
	if user.PushTokens == nil {
		return nil, nil
	}
	var tokens []string
	if err := json.Unmarshal(user.PushTokens, &tokens); err != nil {
		return nil, fmt.Errorf("unmarshal push tokens: %w", err)
	}
	return tokens, nil
}

// SendMessageNotification pushes a "new message" alert to one recipient.
// Called in a goroutine after the send transaction commits; failures are
// logged, never surfaced to the sender.
func (ns *NotificationService) SendMessageNotification(recipientID uint, senderName, preview string, conversationID uint) {
	tokens, err := ns.getUserPushTokens(recipientID)
	if err != nil || len(tokens) == 0 {
		return
	}

	msg := expoPushMessage{
		To:    tokens,
		Title: senderName,
		Body:  preview,
		Data: map[string]string{
			"type":           "message",
			"conversationID": fmt.Sprintf("%d", conversationID),
		},
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}

	res, err := ns.client.Post(expoPushEndpoint, "application/json", bytes.NewReader(payload))
	if err != nil {
		log.Printf("notifications: push to user %d failed: %v", recipientID, err)
		return
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		log.Printf("notifications: push to user %d returned status %d", recipientID, res.StatusCode)
	}
}
