package routes

import (
	"whatsapp-clone-server/config"
	"whatsapp-clone-server/models"
	"whatsapp-clone-server/storage"
	"whatsapp-clone-server/utils"

	"github.com/kataras/iris/v12"
)

// SetTyping upserts the caller's typing liveness key. The key expires after
// config.C.TypingWindow, so stale indicators vanish without a reaper; clients
// re-send at most every couple of seconds while composing. Best-effort: an
// unknown caller or non-member is a silent no-op.
func SetTyping(ctx iris.Context) {
	conversationID, err := ctx.Params().GetUint("id")
	if err != nil {
		ctx.StatusCode(iris.StatusNoContent)
		return
	}
	user := currentUser(ctx)
	if user == nil || !isMember(conversationID, user.ID) {
		ctx.StatusCode(iris.StatusNoContent)
		return
	}

	storage.Redis.Set(ctx.Request().Context(), storage.TypingKey(conversationID, user.ID), "1", config.C.TypingWindow)
	ctx.StatusCode(iris.StatusNoContent)
}

// GetTyping returns the other members whose typing key is still live. The
// caller is always excluded from the result.
func GetTyping(ctx iris.Context) {
	conversationID, err := ctx.Params().GetUint("id")
	if err != nil {
		ctx.StopWithStatus(iris.StatusBadRequest)
		return
	}
	user := currentUser(ctx)
	if user == nil {
		utils.CreateUnauthenticated(ctx)
		return
	}
	if !isMember(conversationID, user.ID) {
		utils.CreateForbidden(ctx)
		return
	}

	var members []models.ConversationMember
	if err := storage.DB.Where("conversation_id = ?", conversationID).Preload("User").Find(&members).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	typing := []iris.Map{}
	for _, m := range members {
		if m.UserID == user.ID {
			continue
		}
		key := storage.TypingKey(conversationID, m.UserID)
		if val, err := storage.Redis.Get(ctx.Request().Context(), key).Result(); err == nil && val == "1" {
			typing = append(typing, iris.Map{"userID": m.UserID, "name": m.User.Name})
		}
	}
	ctx.JSON(iris.Map{"typing": typing})
}
