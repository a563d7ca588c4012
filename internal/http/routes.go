package http

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/unsaidapp/unsaid/internal/config"
	"github.com/unsaidapp/unsaid/internal/metrics"
	"github.com/unsaidapp/unsaid/internal/ws"
)

// SetupRoutes configures all application routes and middleware.
func SetupRoutes(router *gin.Engine, env *Env, conf *config.Config) {

	// --- Middleware ---

	router.Use(gin.Recovery())
	router.Use(RequestLoggerMiddleware(env.Log))
	router.Use(metrics.Middleware(env.Metrics))
	router.Use(SecurityHeadersMiddleware())
	router.Use(BodyLimitMiddleware())

	corsOrigin := conf.Server.CORSOrigin
	if corsOrigin == "" {
		corsOrigin = "*" // allow all for local dev
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{corsOrigin},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Admin-Token"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	// --- Rate Limiter Setup ---

	limiter := NewIPRateLimiter(rate.Limit(rateLimitRPS), rateLimitBurst)
	go func() {
		for range time.Tick(10 * time.Minute) {
			limiter.evictIdle(10 * time.Minute)
		}
	}()

	// --- API Routes ---

	api := router.Group("/api")
	{
		api.GET("/confessions", env.GetConfessions)
		api.GET("/trending", env.GetTrending)
		api.GET("/tags/trending", env.GetTrendingTags)
		api.POST("/confessions", RateLimitMiddleware(limiter), env.CreateConfession)
		api.PATCH("/confessions/:id", env.PatchConfession)
		api.DELETE("/confessions/:id", AdminAuthMiddleware(conf.Server.AdminToken, env.Log), env.HideConfession)
	}

	// --- Operational Routes ---

	router.GET("/health", env.Health)
	if conf.Metrics.Enabled {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}
	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"app": conf.AppName})
	})

	// --- WebSocket Route ---

	router.GET("/ws", func(c *gin.Context) {
		ws.ServeWs(env.Hub, c.Writer, c.Request)
	})
}
