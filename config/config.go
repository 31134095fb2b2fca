package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds the tunables that clients and server must agree on.
// TypingWindow is the server-side liveness window for typing indicators; a
// typing signal older than this is stale. TypingClientWindow is the tighter
// effective window clients apply for snappier UI — it is documented here and
// exposed via /api/health so web clients can read it instead of hardcoding.
type Config struct {
	Port               string
	TypingWindow       time.Duration
	TypingClientWindow time.Duration
	OnlineThreshold    time.Duration
	DefaultPageSize    int
	MaxPageSize        int
}

// C is the process-wide configuration, populated by Init.
var C = defaults()

func defaults() Config {
	return Config{
		Port:               "4000",
		TypingWindow:       3 * time.Second,
		TypingClientWindow: 2 * time.Second,
		OnlineThreshold:    60 * time.Second,
		DefaultPageSize:    30,
		MaxPageSize:        100,
	}
}

// Init reads overrides from the environment. Call after godotenv.Load.
func Init() {
	c := defaults()
	if v := os.Getenv("PORT"); v != "" {
		c.Port = v
	}
	if d := envSeconds("TYPING_WINDOW_SECONDS"); d > 0 {
		c.TypingWindow = d
	}
	if d := envSeconds("TYPING_CLIENT_WINDOW_SECONDS"); d > 0 {
		c.TypingClientWindow = d
	}
	if d := envSeconds("ONLINE_THRESHOLD_SECONDS"); d > 0 {
		c.OnlineThreshold = d
	}
	if n := envInt("MESSAGE_PAGE_SIZE"); n > 0 {
		c.DefaultPageSize = n
	}
	if n := envInt("MESSAGE_PAGE_SIZE_MAX"); n > 0 {
		c.MaxPageSize = n
	}
	C = c
}

func envSeconds(key string) time.Duration {
	return time.Duration(envInt(key)) * time.Second
}

func envInt(key string) int {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}
