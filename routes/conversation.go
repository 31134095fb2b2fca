package routes

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"whatsapp-clone-server/models"
	"whatsapp-clone-server/services"
	"whatsapp-clone-server/storage"
	"whatsapp-clone-server/utils"

	"github.com/kataras/iris/v12"
	"golang.org/x/exp/slices"
	"gorm.io/gorm"
)

// dmKey is the unique key for a non-group pair, order-insensitive.
func dmKey(a, b uint) string {
	if b < a {
		a, b = b, a
	}
	return fmt.Sprintf("dm:%d:%d", a, b)
}

// isMember reports membership of user in conversation.
func isMember(conversationID, userID uint) bool {
	var membership models.ConversationMember
	err := storage.DB.Where("conversation_id = ? AND user_id = ?", conversationID, userID).First(&membership).Error
	return err == nil
}

type createDirectInput struct {
	ParticipantID uint `json:"participantID" validate:"required"`
}

// GetOrCreateDirectConversation returns the existing DM for the pair or
// creates it. Idempotent under races: the DMKey unique index makes a losing
// concurrent creator fall back to reading the winner's row.
func GetOrCreateDirectConversation(ctx iris.Context) {
	user := currentUser(ctx)
	if user == nil {
		utils.CreateUnauthenticated(ctx)
		return
	}

	var input createDirectInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}
	if input.ParticipantID == user.ID {
		utils.CreateError(iris.StatusBadRequest, "Self Conversation", "cannot start a conversation with yourself", ctx)
		return
	}

	var participant models.User
	if err := storage.DB.First(&participant, input.ParticipantID).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	key := dmKey(user.ID, participant.ID)
	var conv models.Conversation
	err := storage.DB.Where("dm_key = ?", key).First(&conv).Error
	if err == nil {
		ctx.JSON(iris.Map{"conversationID": conv.ID})
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		utils.CreateInternalServerError(ctx)
		return
	}

	err = storage.DB.Transaction(func(tx *gorm.DB) error {
		conv = models.Conversation{IsGroup: false, DMKey: &key}
		if err := tx.Create(&conv).Error; err != nil {
			return err
		}
		now := time.Now()
		members := []models.ConversationMember{
			{ConversationID: conv.ID, UserID: user.ID, JoinedAt: now},
			{ConversationID: conv.ID, UserID: participant.ID, JoinedAt: now},
		}
		return tx.Create(&members).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// lost the race, the pair's DM exists now
		if err := storage.DB.Where("dm_key = ?", key).First(&conv).Error; err != nil {
			utils.CreateInternalServerError(ctx)
			return
		}
	} else if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{"conversationID": conv.ID})
}

type createGroupInput struct {
	Name           string `json:"name" validate:"required,lt=256"`
	ParticipantIDs []uint `json:"participantIDs" validate:"required,min=1"`
	Description    string `json:"description" validate:"lt=1024"`
}

// CreateGroup creates a group conversation with the caller as admin. The
// participant list is de-duplicated and always includes the caller.
func CreateGroup(ctx iris.Context) {
	user := currentUser(ctx)
	if user == nil {
		utils.CreateUnauthenticated(ctx)
		return
	}

	var input createGroupInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	participants := []uint{user.ID}
	for _, id := range input.ParticipantIDs {
		if !slices.Contains(participants, id) {
			participants = append(participants, id)
		}
	}

	var conv models.Conversation
	err := storage.DB.Transaction(func(tx *gorm.DB) error {
		adminID := user.ID
		conv = models.Conversation{
			IsGroup:     true,
			Name:        input.Name,
			Description: input.Description,
			AdminID:     &adminID,
		}
		if err := tx.Create(&conv).Error; err != nil {
			return err
		}
		now := time.Now()
		members := make([]models.ConversationMember, 0, len(participants))
		for _, id := range participants {
			members = append(members, models.ConversationMember{ConversationID: conv.ID, UserID: id, JoinedAt: now})
		}
		return tx.Create(&members).Error
	})
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(iris.Map{"conversationID": conv.ID})
}

type conversationListItem struct {
	models.Conversation
	OtherUser   *models.User    `json:"otherUser"`
	LastMessage *models.Message `json:"lastMessage"`
	UnreadCount int             `json:"unreadCount"`
}

// GetConversations lists the caller's conversations, newest activity first.
// DM entries carry the other member with presence derived from LastSeen; the
// unread count defaults to 0 when no counter row exists.
func GetConversations(ctx iris.Context) {
	user := currentUser(ctx)
	if user == nil {
		utils.CreateUnauthenticated(ctx)
		return
	}

	var memberships []models.ConversationMember
	if err := storage.DB.Where("user_id = ?", user.ID).Find(&memberships).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	items := make([]conversationListItem, 0, len(memberships))
	for _, membership := range memberships {
		var conv models.Conversation
		if err := storage.DB.First(&conv, membership.ConversationID).Error; err != nil {
			continue
		}

		item := conversationListItem{Conversation: conv}

		if !conv.IsGroup {
			var other models.ConversationMember
			err := storage.DB.Where("conversation_id = ? AND user_id <> ?", conv.ID, user.ID).
				Preload("User").First(&other).Error
			if err == nil {
				u := other.User
				u.IsOnline = derivedOnline(&u)
				item.OtherUser = &u
			}
		}

		if conv.LastMessageID != nil {
			var last models.Message
			if err := storage.DB.First(&last, *conv.LastMessageID).Error; err == nil {
				item.LastMessage = &last
			}
		}

		var unread models.UnreadCount
		if err := storage.DB.Where("conversation_id = ? AND user_id = ?", conv.ID, user.ID).
			First(&unread).Error; err == nil {
			item.UnreadCount = unread.Count
		}

		items = append(items, item)
	}

	activity := func(it conversationListItem) time.Time {
		if it.LastMessage != nil {
			return it.LastMessage.CreatedAt
		}
		return it.CreatedAt
	}
	sort.Slice(items, func(i, j int) bool {
		a, b := activity(items[i]), activity(items[j])
		if a.Equal(b) {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		}
		return a.After(b)
	})

	ctx.JSON(items)
}

// MarkRead zeroes the caller's unread counter for the conversation. A missing
// counter, an unknown caller, or a conversation the caller never joined are
// all silent no-ops; reads are optional liveness signals.
func MarkRead(ctx iris.Context) {
	conversationID, err := ctx.Params().GetUint("id")
	if err != nil {
		ctx.StatusCode(iris.StatusNoContent)
		return
	}
	user := currentUser(ctx)
	if user == nil {
		ctx.StatusCode(iris.StatusNoContent)
		return
	}

	res := storage.DB.Model(&models.UnreadCount{}).
		Where("conversation_id = ? AND user_id = ?", conversationID, user.ID).
		Update("count", 0)
	if res.Error == nil && res.RowsAffected > 0 {
		services.PublishEvent(services.Event{Type: "read", ConversationID: conversationID, ActorID: user.ID})
	}
	ctx.StatusCode(iris.StatusNoContent)
}
