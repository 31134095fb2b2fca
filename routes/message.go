package routes

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"whatsapp-clone-server/config"
	"whatsapp-clone-server/models"
	"whatsapp-clone-server/services"
	"whatsapp-clone-server/storage"
	"whatsapp-clone-server/utils"

	"github.com/kataras/iris/v12"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type sendMessageInput struct {
	ConversationID uint   `json:"conversationID" validate:"required"`
	Content        string `json:"content" validate:"lt=5000"`
	Type           string `json:"type" validate:"omitempty,oneof=text image file"`
	StorageID      string `json:"storageID" validate:"lt=256"`
	ReplyToID      *uint  `json:"replyToID"`
}

// CreateMessage appends a message and, in the same transaction, moves the
// conversation's last-message pointer and bumps every other member's unread
// counter by exactly one (creating it at 1). A failure rolls the whole unit
// back, so clients may retry blindly.
func CreateMessage(ctx iris.Context) {
	user := currentUser(ctx)
	if user == nil {
		utils.CreateUnauthenticated(ctx)
		return
	}

	var input sendMessageInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}
	if !isMember(input.ConversationID, user.ID) {
		utils.CreateForbidden(ctx)
		return
	}

	msgType := input.Type
	if msgType == "" {
		msgType = models.MessageTypeText
	}

	content := strings.TrimSpace(input.Content)
	if content == "" && input.StorageID != "" {
		if msgType == models.MessageTypeImage {
			content = models.ImagePlaceholder
		} else {
			content = models.FilePlaceholder
		}
	}
	if content == "" {
		utils.CreateError(iris.StatusBadRequest, "Validation Error", "message content is empty", ctx)
		return
	}

	if input.ReplyToID != nil {
		var target models.Message
		if err := storage.DB.First(&target, *input.ReplyToID).Error; err != nil {
			utils.CreateNotFound(ctx)
			return
		}
		if target.ConversationID != input.ConversationID {
			utils.CreateError(iris.StatusBadRequest, "Validation Error", "reply target belongs to a different conversation", ctx)
			return
		}
	}

	var message models.Message
	err := storage.DB.Transaction(func(tx *gorm.DB) error {
		message = models.Message{
			ConversationID: input.ConversationID,
			SenderID:       user.ID,
			Content:        content,
			Type:           msgType,
			StorageID:      input.StorageID,
			ReplyToID:      input.ReplyToID,
			IsDeleted:      false,
		}
		if err := tx.Create(&message).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.Conversation{}).
			Where("id = ?", input.ConversationID).
			Update("last_message_id", message.ID).Error; err != nil {
			return err
		}

		var members []models.ConversationMember
		if err := tx.Where("conversation_id = ? AND user_id <> ?", input.ConversationID, user.ID).
			Find(&members).Error; err != nil {
			return err
		}
		if len(members) == 0 {
			return nil
		}
		counters := make([]models.UnreadCount, 0, len(members))
		for _, m := range members {
			counters = append(counters, models.UnreadCount{
				ConversationID: input.ConversationID,
				UserID:         m.UserID,
				Count:          1,
			})
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "conversation_id"}, {Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"count": gorm.Expr("count + 1")}),
		}).Create(&counters).Error
	})
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	services.PublishEvent(services.Event{Type: "message", ConversationID: message.ConversationID, MessageID: message.ID, ActorID: user.ID})
	notifyRecipients(user, &message)

	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(message)
}

// notifyRecipients pushes a preview to every other member, off the request
// path.
func notifyRecipients(sender *models.User, message *models.Message) {
	var members []models.ConversationMember
	if err := storage.DB.Where("conversation_id = ? AND user_id <> ?", message.ConversationID, sender.ID).
		Find(&members).Error; err != nil {
		return
	}
	ns := services.NewNotificationService()
	for _, m := range members {
		go ns.SendMessageNotification(m.UserID, sender.Name, message.Content, message.ConversationID)
	}
}

type messageListItem struct {
	models.Message
	Reactions []models.MessageReaction `json:"reactions"`
	FileURL   *string                  `json:"fileURL"`
	ReplyTo   *models.Message          `json:"replyTo"`
}

// ListMessages returns a page of the conversation in strict
// (created_at, id) descending order. The cursor is opaque and positional:
// concurrent inserts land after it and can never skip or repeat anything
// strictly before it. Messages hidden by the caller are filtered out.
//
// GET /api/messages?conversationID=...&cursor=...&limit=...
func ListMessages(ctx iris.Context) {
	user := currentUser(ctx)
	if user == nil {
		utils.CreateUnauthenticated(ctx)
		return
	}

	conversationID, err := ctx.URLParamInt("conversationID")
	if err != nil || conversationID <= 0 {
		utils.CreateError(iris.StatusBadRequest, "Validation Error", "conversationID is required", ctx)
		return
	}
	if !isMember(uint(conversationID), user.ID) {
		utils.CreateForbidden(ctx)
		return
	}

	limit := ctx.URLParamIntDefault("limit", config.C.DefaultPageSize)
	if limit <= 0 {
		limit = config.C.DefaultPageSize
	}
	if limit > config.C.MaxPageSize {
		limit = config.C.MaxPageSize
	}

	q := storage.DB.Where("conversation_id = ?", conversationID)
	if cursor := ctx.URLParamDefault("cursor", ""); cursor != "" {
		ts, id, err := decodeCursor(cursor)
		if err != nil {
			utils.CreateError(iris.StatusBadRequest, "Validation Error", "malformed cursor", ctx)
			return
		}
		q = q.Where("created_at < ? OR (created_at = ? AND id < ?)", ts, ts, id)
	}
	q = q.Where("id NOT IN (?)", storage.DB.Model(&models.HiddenMessage{}).
		Select("message_id").Where("user_id = ?", user.ID))

	var msgs []models.Message
	if err := q.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&msgs).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	items := make([]messageListItem, 0, len(msgs))
	for _, msg := range msgs {
		item := messageListItem{Message: msg, Reactions: []models.MessageReaction{}}

		storage.DB.Where("message_id = ?", msg.ID).Find(&item.Reactions)

		if msg.StorageID != "" {
			if url := storage.ResolveAttachmentURL(msg.StorageID); url != "" {
				item.FileURL = &url
			}
		}

		if msg.ReplyToID != nil {
			var replyTo models.Message
			// deleted targets still resolve; their content already carries
			// the placeholder
			if err := storage.DB.First(&replyTo, *msg.ReplyToID).Error; err == nil {
				item.ReplyTo = &replyTo
			}
		}

		items = append(items, item)
	}

	nextCursor := ""
	if len(msgs) == limit {
		last := msgs[len(msgs)-1]
		nextCursor = encodeCursor(last.CreatedAt, last.ID)
	}
	ctx.JSON(iris.Map{
		"messages":   items,
		"nextCursor": nextCursor,
		"isDone":     len(msgs) < limit,
	})
}

func encodeCursor(t time.Time, id uint) string {
	return base64.RawURLEncoding.EncodeToString([]byte(fmt.Sprintf("%d:%d", t.UnixNano(), id)))
}

func decodeCursor(s string) (time.Time, uint, error) {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return time.Time{}, 0, err
	}
	parts := strings.SplitN(string(raw), ":", 2)
	if len(parts) != 2 {
		return time.Time{}, 0, fmt.Errorf("cursor: expected two fields")
	}
	ns, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return time.Time{}, 0, err
	}
	id, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		return time.Time{}, 0, err
	}
	return time.Unix(0, ns), uint(id), nil
}

type editMessageInput struct {
	Content string `json:"content" validate:"required,lt=5000"`
}

// EditMessage rewrites the content in place, sender only. Editing a
// soft-deleted message fails with 409; deletion is terminal.
func EditMessage(ctx iris.Context) {
	messageID, err := ctx.Params().GetUint("id")
	if err != nil {
		ctx.StopWithStatus(iris.StatusBadRequest)
		return
	}
	user := currentUser(ctx)
	if user == nil {
		utils.CreateUnauthenticated(ctx)
		return
	}

	var input editMessageInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	var message models.Message
	if err := storage.DB.First(&message, messageID).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}
	if message.SenderID != user.ID {
		utils.CreateForbidden(ctx)
		return
	}
	if message.IsDeleted {
		utils.CreateError(iris.StatusConflict, "Conflict", "cannot edit a deleted message", ctx)
		return
	}

	if err := storage.DB.Model(&message).Updates(map[string]interface{}{
		"content":   input.Content,
		"is_edited": true,
	}).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	services.PublishEvent(services.Event{Type: "message_edited", ConversationID: message.ConversationID, MessageID: message.ID, ActorID: user.ID})
	ctx.JSON(message)
}

// DeleteMessage soft-deletes: the row survives with the fixed placeholder and
// IsDeleted set, so history and reply links keep resolving. Irreversible,
// sender only.
func DeleteMessage(ctx iris.Context) {
	messageID, err := ctx.Params().GetUint("id")
	if err != nil {
		ctx.StopWithStatus(iris.StatusBadRequest)
		return
	}
	user := currentUser(ctx)
	if user == nil {
		utils.CreateUnauthenticated(ctx)
		return
	}

	var message models.Message
	if err := storage.DB.First(&message, messageID).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}
	if message.SenderID != user.ID {
		utils.CreateForbidden(ctx)
		return
	}

	if err := storage.DB.Model(&message).Updates(map[string]interface{}{
		"content":    models.DeletedPlaceholder,
		"is_deleted": true,
	}).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	services.PublishEvent(services.Event{Type: "message_deleted", ConversationID: message.ConversationID, MessageID: message.ID, ActorID: user.ID})
	ctx.StatusCode(iris.StatusNoContent)
}

// HideMessage inserts the caller's hide marker, idempotently. Other members'
// view, unread counters, and the last-message pointer are untouched.
func HideMessage(ctx iris.Context) {
	messageID, err := ctx.Params().GetUint("id")
	if err != nil {
		ctx.StopWithStatus(iris.StatusBadRequest)
		return
	}
	user := currentUser(ctx)
	if user == nil {
		utils.CreateUnauthenticated(ctx)
		return
	}

	var message models.Message
	if err := storage.DB.First(&message, messageID).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	hide := models.HiddenMessage{MessageID: message.ID, UserID: user.ID}
	if err := storage.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&hide).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	ctx.StatusCode(iris.StatusNoContent)
}
