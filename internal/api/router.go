package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"clinic-call-backend/config"
	"clinic-call-backend/internal/mw"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(cfg *config.ServerConfig, handler *Handler) *gin.Engine {
	r := gin.Default()

	r.Use(mw.RequestID())
	r.Use(cors.New(cors.Config{
		AllowOrigins:  cfg.CORSAllowOrigins,
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", mw.RequestIDHeader},
		ExposeHeaders: []string{mw.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}))

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst)

	// The current call is never cached: displays poll it every few seconds
	// and must see a new call on the next tick.
	var caching gin.HandlerFunc = func(c *gin.Context) { c.Next() }
	if !cfg.DisableResponseCache {
		handler.cache = mw.NewResponseCache(time.Duration(cfg.CacheTTLSeconds) * time.Second)
		caching = handler.cache.Middleware()
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.POST("/call", handler.PostCall)
		api.GET("/current-call", handler.GetCurrentCall)

		api.POST("/video", handler.PostVideo)
		api.GET("/video", caching, handler.GetVideo)

		api.GET("/queue", handler.ListQueue)
		api.POST("/queue", handler.AddPatient)
		api.POST("/queue/:id/call", handler.CallPatient)
		api.POST("/queue/:id/attend", handler.AttendPatient)
		api.DELETE("/queue/:id", handler.DeletePatient)

		api.GET("/subscriptions", handler.GetSubscription)
		api.PUT("/subscriptions", handler.PutSubscription)
		api.DELETE("/subscriptions", handler.DeleteSubscription)
		api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)
	}

	return r
}
