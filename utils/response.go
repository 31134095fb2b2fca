package utils

import (
	"github.com/go-playground/validator/v10"
	"github.com/kataras/iris/v12"
)

func CreateError(statusCode int, title string, detail string, ctx iris.Context) {
	ctx.StopWithJSON(statusCode, iris.Map{"error": title, "message": detail})
}

func CreateInternalServerError(ctx iris.Context) {
	CreateError(iris.StatusInternalServerError, "Internal Server Error", "an unexpected error occurred", ctx)
}

func CreateNotFound(ctx iris.Context) {
	CreateError(iris.StatusNotFound, "Not Found", "the requested resource does not exist", ctx)
}

func CreateForbidden(ctx iris.Context) {
	CreateError(iris.StatusForbidden, "Forbidden", "you are not allowed to perform this action", ctx)
}

func CreateUnauthenticated(ctx iris.Context) {
	CreateError(iris.StatusUnauthorized, "Unauthenticated", "no resolvable caller identity", ctx)
}

type validationError struct {
	Field string `json:"field"`
	Tag   string `json:"tag"`
}

// HandleValidationErrors reports ReadJSON/validator failures as a 400 with a
// per-field breakdown when available.
func HandleValidationErrors(err error, ctx iris.Context) {
	if errs, ok := err.(validator.ValidationErrors); ok {
		fields := make([]validationError, 0, len(errs))
		for _, e := range errs {
			fields = append(fields, validationError{Field: e.Field(), Tag: e.Tag()})
		}
		ctx.StopWithJSON(iris.StatusBadRequest, iris.Map{"error": "Validation Error", "fields": fields})
		return
	}
	ctx.StopWithJSON(iris.StatusBadRequest, iris.Map{"error": "Validation Error", "message": "invalid payload"})
}
