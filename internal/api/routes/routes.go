package routes

import (
	"net/http"
	"time"

	_ "rack-service/docs"
	"rack-service/internal/api/handlers"
	"rack-service/internal/api/middleware"
	"rack-service/internal/auth"
	"rack-service/internal/websocket"

	"github.com/gin-gonic/gin"
	gorillaws "github.com/gorilla/websocket"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Options tunes the HTTP surface.
type Options struct {
	AllowedOrigins     []string
	HandshakeRateLimit int
	HandshakeWindow    time.Duration
	Operators          []string
}

type Router struct {
	engine             *gin.Engine
	wsHandler          *handlers.WSHandler
	diagnosticsHandler *handlers.DiagnosticsHandler
	rateLimitMW        *middleware.RateLimitMiddleware
	authMW             *middleware.AuthMiddleware
	opts               Options
}

// NewRouter builds the engine. limiter may be nil to disable handshake rate
// limiting.
func NewRouter(
	hub *websocket.Hub,
	registry *websocket.Registry,
	upgrader *gorillaws.Upgrader,
	authenticator *auth.Authenticator,
	limiter middleware.RateLimiter,
	opts Options,
) *Router {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(gin.Recovery())
	engine.Use(middleware.CORS(opts.AllowedOrigins))
	engine.Use(middleware.LogApi())

	return &Router{
		engine:             engine,
		wsHandler:          handlers.NewWSHandler(hub, upgrader),
		diagnosticsHandler: handlers.NewDiagnosticsHandler(registry, hub.Metrics()),
		rateLimitMW:        middleware.NewRateLimitMiddleware(limiter),
		authMW:             middleware.NewAuthMiddleware(authenticator),
		opts:               opts,
	}
}

func (r *Router) SetupRoutes() {
	r.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := r.engine.Group("/api/v1")

	// Authentication happens before the upgrade; failures are plain 401s.
	api.GET("/ws",
		r.rateLimitMW.WebSocketRateLimit(r.opts.HandshakeRateLimit, r.opts.HandshakeWindow),
		r.authMW.RequireAuth(),
		r.wsHandler.HandleWebSocket,
	)

	internal := r.engine.Group("/internal")
	internal.Use(r.authMW.RequireAuth(), middleware.RequireOperator(r.opts.Operators))
	{
		internal.GET("/connections", r.diagnosticsHandler.GetConnections)
	}
}

func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
