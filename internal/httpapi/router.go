package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/suPer8Hu/im-archive/internal/common"
	"github.com/suPer8Hu/im-archive/internal/httpapi/handlers"
	"github.com/suPer8Hu/im-archive/internal/httpapi/middleware"
)

func NewRouter(h *handlers.Handler) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Logger())
	r.Use(middleware.Recovery())

	r.NoRoute(func(c *gin.Context) {
		common.Fail(c, http.StatusNotFound, 40400, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		common.Fail(c, http.StatusMethodNotAllowed, 40500, "method not allowed")
	})

	r.Use(middleware.RequestID())

	r.GET("/ping", h.Ping)
	r.GET("/healthz", h.Healthz)

	// Reads
	r.GET("/sessions/:id", h.GetSession)
	r.GET("/sessions/:id/participations", h.GetParticipations)
	r.GET("/sessions/:id/transcript", h.GetTranscript)

	// Lifecycle events (JWT required)
	authGroup := r.Group("/")
	authGroup.Use(middleware.AuthRequired(h.Cfg.JWTSecret))
	authGroup.POST("/sessions", h.CreatePairSession)
	authGroup.POST("/sessions/room", h.CreateRoomSession)
	authGroup.POST("/sessions/:id/messages", h.MessageReceived)
	authGroup.POST("/sessions/:id/joins", h.ParticipantJoined)
	authGroup.POST("/sessions/:id/leaves", h.ParticipantLeft)
	authGroup.POST("/sessions/:id/end", h.EndSession)

	return r
}
