package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"pixelcast/handlers"
)

// Routes mounts the websocket endpoint and the read-only HTTP views.
// Displays may connect on "/" or "/ws".
func (s *Server) Routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, handlers.HealthResponse{Status: "ok"})
	})
	r.GET("/clients", func(ctx *gin.Context) {
		names := s.Names()
		ctx.JSON(http.StatusOK, handlers.RosterResponse{Count: len(names), Clients: names})
	})

	ws := gin.WrapF(s.HandleConnections)
	r.GET("/", ws)
	r.GET("/ws", ws)
	return r
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()
		s.log.Debug().
			Str("method", ctx.Request.Method).
			Str("path", ctx.Request.URL.Path).
			Int("status", ctx.Writer.Status()).
			Dur("took", time.Since(start)).
			Str("ip", ctx.ClientIP()).
			Msg("HTTP request")
	}
}
