package router

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/poultrypro/backend/internal/auth"
	"github.com/poultrypro/backend/internal/server/handlers"
)

// Handlers groups the handler set the router mounts.
type Handlers struct {
	Batches *handlers.BatchHandler
	Events  *handlers.EventHandler
	Reports *handlers.ReportHandler
	Advisor *handlers.AdvisorHandler
}

// New wires the Gin engine with required routes and middlewares. Every
// /api route requires a verified bearer token.
func New(h Handlers, tokens *auth.TokenManager, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(zapLoggerMiddleware(logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	api.Use(requireAuth(tokens, logger))
	{
		api.POST("/batches", h.Batches.Create)
		api.GET("/batches", h.Batches.List)
		api.GET("/batches/:id", h.Batches.Get)
		api.PATCH("/batches/:id/count", h.Batches.AdjustCount)

		api.POST("/batches/:id/events/:kind", h.Events.Create)
		api.GET("/batches/:id/events/:kind", h.Events.List)
		api.PUT("/events/:kind/:id", h.Events.Edit)
		api.DELETE("/events/:kind/:id", h.Events.Delete)

		api.GET("/reports/financial", h.Reports.Financial)
		api.POST("/advisor", h.Advisor.Ask)
	}

	if logger != nil {
		logger.Info("router initialized")
	}

	return r
}

// requireAuth verifies the bearer token and threads the resulting actor
// through the request context.
func requireAuth(tokens *auth.TokenManager, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if len(header) < 8 || !strings.EqualFold(header[:7], "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		actor, err := tokens.Verify(header[7:])
		if err != nil {
			logger.Warn("token verification failed", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Request = c.Request.WithContext(auth.WithActor(c.Request.Context(), actor))
		c.Next()
	}
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}
