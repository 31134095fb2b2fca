package routes

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"os"
	"strconv"
	"testing"
	"time"

	"whatsapp-clone-server/config"
	"whatsapp-clone-server/models"
	"whatsapp-clone-server/storage"
	"whatsapp-clone-server/utils"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/go-playground/validator/v10"
	goredis "github.com/go-redis/redis/v8"
	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
	"gorm.io/gorm"
)

const testSecret = "testsecret"

// buildTestApp wires the full API surface against an in-memory database and
// Redis, mirroring the parties main.go registers.
func buildTestApp(t *testing.T) (*iris.Application, *miniredis.Miniredis) {
	t.Helper()
	os.Setenv("IDENTITY_TOKEN_SECRET", testSecret)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.Conversation{},
		&models.ConversationMember{},
		&models.Message{},
		&models.MessageReaction{},
		&models.HiddenMessage{},
		&models.UnreadCount{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	storage.DB = db

	mr := miniredis.RunT(t)
	storage.Redis = goredis.NewClient(&goredis.Options{Addr: mr.Addr()})

	config.C = config.Config{
		TypingWindow:       3 * time.Second,
		TypingClientWindow: 2 * time.Second,
		OnlineThreshold:    60 * time.Second,
		DefaultPageSize:    30,
		MaxPageSize:        100,
	}

	app := iris.New()
	app.Validator = validator.New()
	identity := utils.HSVerifier([]byte(testSecret))

	user := app.Party("/api/user", identity)
	{
		user.Post("/sync", SyncUser)
		user.Get("/me", GetMe)
		user.Get("/search", GetUsers)
		user.Patch("/status", UpdateStatus)
		user.Patch("/pushtoken", AlterPushToken)
	}
	conversation := app.Party("/api/conversation", identity)
	{
		conversation.Post("/direct", GetOrCreateDirectConversation)
		conversation.Post("/group", CreateGroup)
		conversation.Get("/", GetConversations)
		conversation.Post("/{id:uint}/read", MarkRead)
		conversation.Post("/{id:uint}/typing", SetTyping)
		conversation.Get("/{id:uint}/typing", GetTyping)
	}
	messages := app.Party("/api/messages", identity)
	{
		messages.Post("/", CreateMessage)
		messages.Get("/", ListMessages)
		messages.Patch("/{id:uint}", EditMessage)
		messages.Delete("/{id:uint}", DeleteMessage)
		messages.Post("/{id:uint}/hide", HideMessage)
		messages.Post("/{id:uint}/reaction", ToggleReaction)
	}

	if err := app.Build(); err != nil {
		t.Fatalf("build app: %v", err)
	}
	return app, mr
}

// signIdentity returns a signed HS256 identity token for the given subject.
func signIdentity(t *testing.T, subject, name string) string {
	t.Helper()
	signer := jwt.NewSigner(jwt.HS256, testSecret, time.Hour)
	token, err := signer.Sign(utils.IdentityToken{
		Subject: subject,
		Name:    name,
		Email:   subject + "@example.com",
	})
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return string(token)
}

func doJSON(t *testing.T, app *iris.Application, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

// mustSync creates (or refreshes) a user through the sync endpoint and
// returns its internal id.
func mustSync(t *testing.T, app *iris.Application, subject, name string) uint {
	t.Helper()
	token := signIdentity(t, subject, name)
	rec := doJSON(t, app, "POST", "/api/user/sync", token, iris.Map{
		"name":  name,
		"email": subject + "@example.com",
	})
	if rec.Code != 200 {
		t.Fatalf("sync %s: status %d body %s", subject, rec.Code, rec.Body.String())
	}
	var u models.User
	decodeBody(t, rec, &u)
	if u.ID == 0 {
		t.Fatalf("sync %s: zero user id", subject)
	}
	return u.ID
}

// mustDirect opens (or finds) the DM between the caller and participant.
func mustDirect(t *testing.T, app *iris.Application, token string, participantID uint) uint {
	t.Helper()
	rec := doJSON(t, app, "POST", "/api/conversation/direct", token, iris.Map{"participantID": participantID})
	if rec.Code != 200 {
		t.Fatalf("direct conversation: status %d body %s", rec.Code, rec.Body.String())
	}
	var out struct {
		ConversationID uint `json:"conversationID"`
	}
	decodeBody(t, rec, &out)
	return out.ConversationID
}

// mustSend appends a message and returns it.
func mustSend(t *testing.T, app *iris.Application, token string, conversationID uint, content string) models.Message {
	t.Helper()
	rec := doJSON(t, app, "POST", "/api/messages", token, iris.Map{
		"conversationID": conversationID,
		"content":        content,
		"type":           "text",
	})
	if rec.Code != 201 {
		t.Fatalf("send: status %d body %s", rec.Code, rec.Body.String())
	}
	var msg models.Message
	decodeBody(t, rec, &msg)
	return msg
}

// timeNowRounded strips the monotonic reading so cursor round trips compare
// with Equal.
func timeNowRounded() time.Time {
	return time.Unix(0, time.Now().UnixNano())
}

func itoa(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}

func unreadCount(t *testing.T, conversationID, userID uint) int {
	t.Helper()
	var row models.UnreadCount
	err := storage.DB.Where("conversation_id = ? AND user_id = ?", conversationID, userID).First(&row).Error
	if err != nil {
		return 0
	}
	return row.Count
}
