package utils

import (
	"crypto/subtle"
	"strings"

	"github.com/kataras/iris/v12"
)

// SharedTokenMiddleware gates routes behind a single shared bearer
// credential. This is possession-based access, not real auth: everyone in
// a group carries the same token. An empty configured token disables the
// check (development mode).
func SharedTokenMiddleware(token string) iris.Handler {
	return func(ctx iris.Context) {
		if token == "" {
			ctx.Next()
			return
		}

		header := ctx.GetHeader("Authorization")
		presented, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
			JSONError(ctx, iris.StatusUnauthorized, "unauthorized", "missing or invalid bearer token")
			return
		}
		ctx.Next()
	}
}
