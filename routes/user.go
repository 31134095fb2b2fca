package routes

import (
	"encoding/json"
	"strings"
	"time"

	"whatsapp-clone-server/config"
	"whatsapp-clone-server/models"
	"whatsapp-clone-server/storage"
	"whatsapp-clone-server/utils"

	"github.com/kataras/iris/v12"
	"golang.org/x/exp/slices"
	"gorm.io/datatypes"
	"gorm.io/gorm/clause"
)

// currentUser resolves the verified identity subject to its internal user
// row. Returns nil when the request carries no identity or the subject has
// never been synced.
func currentUser(ctx iris.Context) *models.User {
	identity := utils.GetIdentity(ctx)
	if identity == nil || identity.Subject == "" {
		return nil
	}
	var user models.User
	if err := storage.DB.Where("external_id = ?", identity.Subject).First(&user).Error; err != nil {
		return nil
	}
	return &user
}

type syncUserInput struct {
	Name      string `json:"name" validate:"required,lt=256"`
	Email     string `json:"email" validate:"required,email"`
	AvatarURL string `json:"avatarURL" validate:"lt=512"`
}

// SyncUser upserts the caller's user row keyed on the identity subject. The
// client calls it right after sign-in, so syncing also marks the user online.
func SyncUser(ctx iris.Context) {
	identity := utils.GetIdentity(ctx)
	if identity == nil || identity.Subject == "" {
		utils.CreateUnauthenticated(ctx)
		return
	}

	var input syncUserInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	now := time.Now()
	user := models.User{
		ExternalID: identity.Subject,
		Name:       input.Name,
		Email:      strings.ToLower(input.Email),
		AvatarURL:  input.AvatarURL,
		IsOnline:   true,
		LastSeen:   now,
	}
	err := storage.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "external_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "email", "avatar_url", "is_online", "last_seen", "updated_at"}),
	}).Create(&user).Error
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	// Re-read so the response carries the canonical row (the upsert does not
	// populate the id on the conflict path everywhere).
	if err := storage.DB.Where("external_id = ?", identity.Subject).First(&user).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	ctx.JSON(user)
}

func GetMe(ctx iris.Context) {
	user := currentUser(ctx)
	if user == nil {
		utils.CreateUnauthenticated(ctx)
		return
	}
	ctx.JSON(user)
}

// GetUsers lists everyone except the caller, optionally filtered by a
// case-insensitive name search.
func GetUsers(ctx iris.Context) {
	user := currentUser(ctx)
	if user == nil {
		utils.CreateUnauthenticated(ctx)
		return
	}

	q := ctx.URLParamDefault("q", "")
	query := storage.DB.Where("id <> ?", user.ID)
	if q != "" {
		query = query.Where("lower(name) LIKE lower(?)", "%"+q+"%")
	}
	var users []models.User
	if err := query.Order("name ASC").Find(&users).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	ctx.JSON(iris.Map{"users": users})
}

type updateStatusInput struct {
	IsOnline bool `json:"isOnline"`
}

// UpdateStatus records an online/offline heartbeat. Best-effort: an unknown
// caller is a silent no-op, never an error — presence is a liveness signal,
// not a transactional commitment. The stored flag is a hint; readers derive
// online state from LastSeen against config.C.OnlineThreshold.
func UpdateStatus(ctx iris.Context) {
	var input updateStatusInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	user := currentUser(ctx)
	if user == nil {
		ctx.StatusCode(iris.StatusNoContent)
		return
	}

	storage.DB.Model(user).Updates(map[string]interface{}{
		"is_online": input.IsOnline,
		"last_seen": time.Now(),
	})
	ctx.StatusCode(iris.StatusNoContent)
}

type alterPushTokenInput struct {
	Token  string `json:"token" validate:"required,lt=512"`
	Remove bool   `json:"remove"`
}

// AlterPushToken registers or removes an Expo push token for the caller.
func AlterPushToken(ctx iris.Context) {
	user := currentUser(ctx)
	if user == nil {
		utils.CreateUnauthenticated(ctx)
		return
	}

	var input alterPushTokenInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	var tokens []string
	if user.PushTokens != nil {
		json.Unmarshal(user.PushTokens, &tokens)
	}
	if input.Remove {
		if i := slices.Index(tokens, input.Token); i >= 0 {
			tokens = slices.Delete(tokens, i, i+1)
		}
	} else if !slices.Contains(tokens, input.Token) {
		tokens = append(tokens, input.Token)
	}

	raw, err := json.Marshal(tokens)
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	if err := storage.DB.Model(user).Update("push_tokens", datatypes.JSON(raw)).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	ctx.StatusCode(iris.StatusNoContent)
}

// derivedOnline recomputes presence from the last heartbeat instead of
// trusting the stored flag.
func derivedOnline(u *models.User) bool {
	return time.Since(u.LastSeen) < config.C.OnlineThreshold
}
