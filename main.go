package main

import (
	"fmt"
	"log"
	"os"

	"whatsapp-clone-server/config"
	"whatsapp-clone-server/routes"
	"whatsapp-clone-server/storage"
	"whatsapp-clone-server/utils"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kataras/iris/v12"
)

func main() {
	godotenv.Load()
	config.Init()
	storage.InitializeDB()
	storage.InitializeRedis()

	app := iris.New()
	app.Validator = validator.New()

	// CORS for the web client
	app.AllowMethods(iris.MethodOptions)
	app.UseRouter(func(ctx iris.Context) {
		ctx.Header("Access-Control-Allow-Origin", ctx.GetHeader("Origin"))
		ctx.Header("Vary", "Origin")
		ctx.Header("Access-Control-Allow-Credentials", "true")
		ctx.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Requested-With")
		ctx.Header("Access-Control-Allow-Methods", "GET,POST,PATCH,PUT,DELETE,OPTIONS")
		if ctx.Method() == iris.MethodOptions {
			ctx.StatusCode(iris.StatusNoContent)
			return
		}
		ctx.Next()
	})

	app.Use(iris.Compression)

	// Identity verification: production verifies the provider's RS256 tokens
	// against its JWKS endpoint; development and tests run on a shared HS256
	// secret.
	var identityMiddleware iris.Handler
	if jwksURL := os.Getenv("IDENTITY_JWKS_URL"); jwksURL != "" {
		m, err := utils.JWKSVerifier(jwksURL)
		if err != nil {
			log.Fatalf("identity: jwks init: %v", err)
		}
		identityMiddleware = m
	} else {
		secret := os.Getenv("IDENTITY_TOKEN_SECRET")
		if secret == "" {
			log.Fatal("IDENTITY_JWKS_URL or IDENTITY_TOKEN_SECRET is required")
		}
		identityMiddleware = utils.HSVerifier([]byte(secret))
	}

	// Health also exposes the shared liveness windows so clients can pick
	// them up instead of hardcoding.
	app.Get("/api/health", func(ctx iris.Context) {
		ctx.JSON(iris.Map{
			"status":               "ok",
			"typingWindowMs":       config.C.TypingWindow.Milliseconds(),
			"typingClientWindowMs": config.C.TypingClientWindow.Milliseconds(),
			"onlineThresholdMs":    config.C.OnlineThreshold.Milliseconds(),
		})
	})

	user := app.Party("/api/user", identityMiddleware)
	{
		user.Post("/sync", routes.SyncUser)
		user.Get("/me", routes.GetMe)
		user.Get("/search", routes.GetUsers)
		user.Patch("/status", routes.UpdateStatus)
		user.Patch("/pushtoken", routes.AlterPushToken)
	}

	conversation := app.Party("/api/conversation", identityMiddleware)
	{
		conversation.Post("/direct", routes.GetOrCreateDirectConversation)
		conversation.Post("/group", routes.CreateGroup)
		conversation.Get("/", routes.GetConversations)
		conversation.Post("/{id:uint}/read", routes.MarkRead)
		conversation.Post("/{id:uint}/typing", routes.SetTyping)
		conversation.Get("/{id:uint}/typing", routes.GetTyping)
	}

	messages := app.Party("/api/messages", identityMiddleware)
	{
		messages.Post("/", routes.CreateMessage)
		messages.Get("/", routes.ListMessages)
		messages.Patch("/{id:uint}", routes.EditMessage)
		messages.Delete("/{id:uint}", routes.DeleteMessage)
		messages.Post("/{id:uint}/hide", routes.HideMessage)
		messages.Post("/{id:uint}/reaction", routes.ToggleReaction)
	}

	upload := app.Party("/api/upload", identityMiddleware)
	{
		upload.Post("/", routes.UploadAttachment)
	}

	addr := ":" + config.C.Port
	fmt.Println("🚀 Starting server on", addr)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
}
