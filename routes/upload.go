package routes

import (
	"whatsapp-clone-server/storage"
	"whatsapp-clone-server/utils"

	"github.com/kataras/iris/v12"
)

type uploadInput struct {
	Data     string `json:"data" validate:"required"` // base64 data URL or raw base64
	PublicID string `json:"publicID" validate:"lt=128"`
}

// UploadAttachment pushes a base64 payload to the media store and returns the
// opaque storage handle to embed in a send, plus the immediate delivery URL.
// The server never inspects the bytes.
func UploadAttachment(ctx iris.Context) {
	if utils.GetIdentity(ctx) == nil {
		utils.CreateUnauthenticated(ctx)
		return
	}

	var input uploadInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	publicID := input.PublicID
	if publicID == "" {
		publicID = utils.GenerateShortToken(12)
	}

	handle, url := storage.UploadAttachment(input.Data, publicID)
	if handle == "" {
		utils.CreateError(iris.StatusBadRequest, "Upload Failed", "the media store rejected the payload", ctx)
		return
	}
	ctx.JSON(iris.Map{"storageID": handle, "url": url})
}
