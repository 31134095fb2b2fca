package routes

import (
	"whatsapp-clone-server/models"
	"whatsapp-clone-server/services"
	"whatsapp-clone-server/storage"
	"whatsapp-clone-server/utils"

	"github.com/kataras/iris/v12"
	"gorm.io/gorm"
)

type toggleReactionInput struct {
	Emoji string `json:"emoji" validate:"required,lt=32"`
}

// ToggleReaction enforces the one-reaction-per-user invariant on a message:
// same emoji toggles off, a different emoji replaces, none inserts. Legacy
// duplicate rows are collapsed on the way — the first row is canonical and
// the rest are deleted. After the call, zero or one row exists for the pair.
func ToggleReaction(ctx iris.Context) {
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

	var input toggleReactionInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	var message models.Message
	if err := storage.DB.First(&message, messageID).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	err = storage.DB.Transaction(func(tx *gorm.DB) error {
		var existing []models.MessageReaction
		if err := tx.Where("message_id = ? AND user_id = ?", message.ID, user.ID).
			Order("id ASC").Find(&existing).Error; err != nil {
			return err
		}

		if len(existing) == 0 {
			return tx.Create(&models.MessageReaction{
				MessageID: message.ID,
				UserID:    user.ID,
				Emoji:     input.Emoji,
			}).Error
		}

		for _, r := range existing {
			if r.Emoji == input.Emoji {
				// exact match: toggle off, sweeping duplicates with it
				ids := make([]uint, 0, len(existing))
				for _, d := range existing {
					ids = append(ids, d.ID)
				}
				return tx.Delete(&models.MessageReaction{}, ids).Error
			}
		}

		// different emoji: retarget the canonical row, drop the rest
		if err := tx.Model(&existing[0]).Update("emoji", input.Emoji).Error; err != nil {
			return err
		}
		if len(existing) > 1 {
			rest := make([]uint, 0, len(existing)-1)
			for _, d := range existing[1:] {
				rest = append(rest, d.ID)
			}
			return tx.Delete(&models.MessageReaction{}, rest).Error
		}
		return nil
	})
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	services.PublishEvent(services.Event{Type: "reaction", ConversationID: message.ConversationID, MessageID: message.ID, ActorID: user.ID})
	ctx.StatusCode(iris.StatusNoContent)
}
