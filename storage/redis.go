package storage

import (
	"fmt"
	"log"
	"os"

	"github.com/go-redis/redis/v8"
)

var Redis *redis.Client

// Redis backs the ephemeral, best-effort state: typing-indicator keys with a
// TTL equal to the liveness window, and the pub/sub channels the subscription
// transport listens on.
func InitializeRedis() {
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		redisURL = "localhost:6379"
		log.Println("REDIS_URL not set, using localhost:6379 (development mode)")
	}

	Redis = redis.NewClient(&redis.Options{
		Addr:     redisURL,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       0,
	})
}

// TypingKey names the liveness key for one member of one conversation.
func TypingKey(conversationID uint, userID uint) string {
	return fmt.Sprintf("typing:conv:%d:user:%d", conversationID, userID)
}

// ConversationChannel is the pub/sub channel carrying change events for a
// conversation. The push transport re-queries on every event; payload timing
// carries no guarantees.
func ConversationChannel(conversationID uint) string {
	return fmt.Sprintf("conversation:%d", conversationID)
}
