package main

import (
	"fmt"
	"log"
	"os"

	"github.com/aryeetea/SyncSpaceScheduling/routes"
	"github.com/aryeetea/SyncSpaceScheduling/storage"
	"github.com/aryeetea/SyncSpaceScheduling/utils"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kataras/iris/v12"
)

func main() {
	godotenv.Load()
	storage.InitializeRedis()
	routes.Store = storage.NewGroupStore(storage.NewRedisKV(storage.Redis))

	app := iris.New()
	app.Validator = validator.New()

	// CORS: the web client is served from a different origin
	app.AllowMethods(iris.MethodOptions)
	app.UseRouter(func(ctx iris.Context) {
		ctx.Header("Access-Control-Allow-Origin", "*")
		ctx.Header("Access-Control-Allow-Headers", "Authorization, Content-Type")
		ctx.Header("Access-Control-Allow-Methods", "GET,POST,PUT,OPTIONS")
		if ctx.Method() == iris.MethodOptions {
			ctx.StatusCode(iris.StatusNoContent)
			return
		}
		ctx.Next()
	})

	app.Get("/health", routes.Health)

	sharedToken := utils.SharedTokenMiddleware(os.Getenv("SYNC_ACCESS_TOKEN"))
	groups := app.Party("/groups", sharedToken)
	{
		groups.Post("/", routes.CreateGroup)
		groups.Post("/{code}/join", routes.JoinGroup)
		groups.Get("/{code}", routes.GetGroup)
		groups.Put("/{code}/availability", routes.UpdateAvailability)
	}

	// Get port from environment
	port := os.Getenv("PORT")
	if port == "" {
		port = "4000"
	}
	addr := "0.0.0.0:" + port

	fmt.Printf("🚀 Server starting on %s\n", addr)

	if err := app.Listen(addr); err != nil {
		log.Fatalf("❌ Server failed: %v", err)
	}
}
