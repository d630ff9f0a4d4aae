package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/NiranjanBhat123/what-connects/handlers"
	"github.com/NiranjanBhat123/what-connects/middleware"
	"github.com/NiranjanBhat123/what-connects/services"
	"github.com/NiranjanBhat123/what-connects/store"
	"github.com/NiranjanBhat123/what-connects/utils"
)

// Setup builds the router: REST surface under /api, websocket endpoint
// under /ws.
func Setup(st store.Store, hub *services.Hub, registry *services.Registry, logger *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.RequestLogger(logger))
	router.Use(middleware.CORS())

	playerHandler := handlers.NewPlayerHandler(st, logger)
	roomHandler := handlers.NewRoomHandler(st, registry, logger)
	wsHandler := handlers.NewWSHandler(hub, registry, st, logger)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	{
		api.POST("/players", playerHandler.CreatePlayer)
		api.GET("/players/:id", playerHandler.GetPlayer)

		api.POST("/rooms", roomHandler.CreateRoom)
		api.GET("/rooms/:code", roomHandler.GetRoom)
		api.POST("/rooms/:code/join", roomHandler.JoinRoom)
		api.POST("/rooms/:code/leave", roomHandler.LeaveRoom)
		api.POST("/rooms/:code/ready", roomHandler.SetReady)
		api.POST("/rooms/:code/start", roomHandler.StartGame)
		api.POST("/rooms/:code/advance", roomHandler.AdvanceQuestion)
		api.GET("/rooms/:code/results", roomHandler.GetResults)
	}

	router.GET("/ws/:code", wsHandler.Serve)

	return router
}
