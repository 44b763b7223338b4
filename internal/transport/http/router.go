package httptransport

import (
	"net/http"
	"time"

	gincors "github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"secrethobby/backend/internal/auth"
	"secrethobby/backend/internal/config"
	"secrethobby/backend/internal/health"
	"secrethobby/backend/internal/logger"
	"secrethobby/backend/internal/middleware"
	"secrethobby/backend/internal/monitoring"
	"secrethobby/backend/internal/service"
)

// RouterDependencies 路由器依赖项
type RouterDependencies struct {
	Config   *config.Config
	Binder   *auth.Binder
	Listings *service.ListingService
	Requests *service.RequestService
	Logger   *zap.Logger

	// 可选，为 nil 时不暴露 /metrics 与探针
	Metrics *monitoring.Metrics
	Health  *health.HealthChecker
}

// NewRouter 创建并返回 Gin 路由实例。
func NewRouter(deps RouterDependencies) *gin.Engine {
	log := logger.OrNop(deps.Logger)
	router := gin.New()

	monitor := middleware.NewMonitoringMiddleware(deps.Metrics, log)
	router.Use(monitor.PanicRecovery())
	router.Use(middleware.RequestLogger(log))
	router.Use(monitor.HTTPMetrics())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.BodySizeLimit(middleware.DefaultBodyLimit))

	corsConfig := gincors.Config{
		AllowOrigins:     deps.Config.CORS.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	// 如果允许所有来源，则需清空凭证支持。
	for _, origin := range corsConfig.AllowOrigins {
		if origin == "*" {
			corsConfig.AllowCredentials = false
			break
		}
	}
	if len(corsConfig.AllowOrigins) > 0 {
		router.Use(gincors.New(corsConfig))
	}

	sessionAuth := middleware.NewSessionAuth(deps.Binder, log)
	authHandler := NewAuthHandler(deps.Binder, deps.Config.Session.SecureCookie, log)
	listingHandler := NewListingHandler(deps.Listings, log)
	requestHandler := NewRequestHandler(deps.Requests, log)

	// 健康检查
	router.GET("/health", func(c *gin.Context) {
		if deps.Health == nil {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
			return
		}
		results, healthy := deps.Health.CheckHealth(c.Request.Context())
		status := http.StatusOK
		if !healthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"healthy": healthy, "checks": results})
	})
	if deps.Health != nil {
		router.GET("/health/live", gin.WrapF(deps.Health.LiveEndpoint))
		router.GET("/health/ready", gin.WrapF(deps.Health.ReadyEndpoint))
	}
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics.HTTPHandler()))
	}

	// V1 API
	v1 := router.Group("/v1")
	v1.Use(middleware.ValidateContentType("application/json"))
	{
		authGroup := v1.Group("/auth")
		authGroup.POST("/signup", authHandler.SignUp)
		authGroup.POST("/signin", authHandler.SignIn)
		authGroup.POST("/signout", sessionAuth.OptionalAuth(), authHandler.SignOut)
		authGroup.GET("/me", sessionAuth.RequireAuth(), authHandler.Me)

		v1.GET("/me/listings", sessionAuth.RequireAuth(), listingHandler.Mine)

		listings := v1.Group("/listings")
		listings.GET("", sessionAuth.OptionalAuth(), listingHandler.List)
		listings.GET("/:id", sessionAuth.OptionalAuth(), listingHandler.Get)
		listings.POST("", sessionAuth.RequireAuth(), listingHandler.Create)
		listings.PATCH("/:id/mystery", sessionAuth.RequireAuth(), listingHandler.SetMysteryMode)
		listings.POST("/:id/requests", sessionAuth.RequireAuth(), requestHandler.Submit)

		v1.GET("/inbox", sessionAuth.RequireAuth(), requestHandler.Inbox)

		requests := v1.Group("/requests", sessionAuth.RequireAuth())
		requests.POST("/:id/accept", requestHandler.Accept)
		requests.POST("/:id/decline", requestHandler.Decline)
	}

	router.NoRoute(func(c *gin.Context) {
		NotFound(c, "接口不存在")
	})

	return router
}
