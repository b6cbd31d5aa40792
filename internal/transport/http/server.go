package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/roomrelay/internal/config"
	"github.com/vovakirdan/roomrelay/internal/core"
)

// NewServer builds the HTTP server: health, WebSocket endpoint, room snapshot API
// and, when metricsHandler is non-nil, Prometheus metrics.
func NewServer(hub *core.Hub, cfg *config.Config, logger *zerolog.Logger, metricsHandler stdhttp.Handler) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", healthHandler)
	router.GET("/ws", gin.WrapH(NewWSHandler(hub, cfg, logger)))
	if metricsHandler != nil {
		router.GET("/metrics", gin.WrapH(metricsHandler))
	}

	rooms := NewRoomHandlers(hub, logger)
	api := router.Group("/api")
	api.Use(LoggerMiddleware(logger))
	{
		api.GET("/rooms", rooms.ListRooms)
		api.GET("/rooms/:name", rooms.GetRoom)
	}

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
