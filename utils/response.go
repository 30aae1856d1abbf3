package utils

import (
	"github.com/kataras/iris/v12"
)

// Error kinds returned in the "error" field of failure responses.
const (
	KindValidation = "validation_error"
	KindConflict   = "conflict"
	KindNotFound   = "not_found"
	KindBackend    = "backend_error"
)

func JSONError(ctx iris.Context, status int, code, message string) {
	ctx.StatusCode(status)
	ctx.JSON(iris.Map{"error": code, "message": message})
}
