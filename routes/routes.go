package routes

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"studx/handlers"
	"studx/middleware"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Deps struct {
	Logger      zerolog.Logger
	JWTSecret   []byte
	CORSOrigins []string
	RateLimiter *middleware.IPRateLimiter
	Database    Pinger

	Auth          *handlers.AuthHandler
	Users         *handlers.UserHandler
	Conversations *handlers.ConversationHandler
	Messages      *handlers.MessageHandler
	Push          *handlers.PushHandler
}

func SetupRouter(d Deps) *gin.Engine {
	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.Logging(d.Logger),
		middleware.Metrics(),
	)

	router.Use(cors.New(cors.Config{
		AllowOrigins:     d.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Requested-With", "X-Request-Id"},
		ExposeHeaders:    []string{"Content-Length", "Content-Type", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	health := healthHandler(d.Database)
	router.GET("/health", health)
	router.GET("/api/health", health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	if d.RateLimiter != nil {
		api.Use(middleware.RateLimit(d.RateLimiter))
	}

	// Public routes
	authGroup := api.Group("/auth")
	authGroup.POST("/register", d.Auth.Register)
	authGroup.POST("/verify-otp", d.Auth.VerifyOTP)
	authGroup.POST("/resend-otp", d.Auth.ResendOTP)
	authGroup.POST("/login", d.Auth.Login)
	api.GET("/push/vapid-public-key", d.Push.VAPIDPublicKey)

	protected := api.Group("")
	protected.Use(middleware.JWTAuth(d.JWTSecret))

	// Profile
	protected.GET("/users/me", d.Users.GetMe)
	protected.PUT("/users/me", d.Users.UpdateMe)
	protected.POST("/users/me/avatar", d.Users.UploadAvatar)
	protected.GET("/users/:id", d.Users.GetUser)

	// Conversations and messages
	protected.GET("/messages/conversations", d.Conversations.List)
	protected.POST("/messages/conversations", d.Conversations.Create)
	protected.GET("/messages/conversations/:id", d.Messages.List)
	protected.POST("/messages/conversations/:id", d.Messages.Send)
	protected.DELETE("/messages/conversations/:id", d.Conversations.Delete)

	// Push subscriptions
	protected.POST("/push/subscribe", d.Push.Subscribe)

	router.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api") {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Endpoint not found",
				"path":  c.Request.URL.Path,
			})
			return
		}
		c.Status(http.StatusNotFound)
	})

	return router
}

func healthHandler(db Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := gin.H{
			"status": "ok",
			"time":   time.Now().Unix(),
		}
		if db != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := db.Ping(ctx); err != nil {
				status["status"] = "degraded"
				status["database"] = "unreachable"
				c.JSON(http.StatusServiceUnavailable, status)
				return
			}
			status["database"] = "ok"
		}
		c.JSON(http.StatusOK, status)
	}
}
