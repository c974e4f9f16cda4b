package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"rentme/internal/infra/config"
	"rentme/internal/infra/obs"
)

type PropertyHTTP interface {
	Create(c *gin.Context)
	Get(c *gin.Context)
	UpdatePricing(c *gin.Context)
}

type PricingHTTP interface {
	Quote(c *gin.Context)
	ListRules(c *gin.Context)
	AddRule(c *gin.Context)
	RemoveRule(c *gin.Context)
}

type AvailabilityHTTP interface {
	Calendar(c *gin.Context)
	Block(c *gin.Context)
	Unblock(c *gin.Context)
	SyncFeed(c *gin.Context)
}

type BookingHTTP interface {
	Create(c *gin.Context)
	Get(c *gin.Context)
	Confirm(c *gin.Context)
	Cancel(c *gin.Context)
	Complete(c *gin.Context)
}

type MeHTTP interface {
	ListBookings(c *gin.Context)
}

type HostHTTP interface {
	ListBookings(c *gin.Context)
	Earnings(c *gin.Context)
}

type Handlers struct {
	Property     PropertyHTTP
	Pricing      PricingHTTP
	Availability AvailabilityHTTP
	Booking      BookingHTTP
	Me           MeHTTP
	Host         HostHTTP
	Identity     gin.HandlerFunc
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}
	return &http.Server{Addr: cfg.HTTPAddr, Handler: NewRouter(obsMW, health, h), ReadHeaderTimeout: 10 * time.Second}
}

// NewRouter registers every route present in h.
func NewRouter(obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.LoggerMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", "Idempotency-Key", headerUserID, headerUserRoles},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			"X-Request-ID",
		},
		MaxAge: 12 * time.Hour,
	}))
	if h.Identity != nil {
		router.Use(h.Identity)
	}

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)

	api := router.Group("/api/v1")
	if h.Property != nil {
		api.POST("/properties", h.Property.Create)
		api.GET("/properties/:id", h.Property.Get)
		api.PUT("/properties/:id/pricing", h.Property.UpdatePricing)
	}
	if h.Pricing != nil {
		api.GET("/properties/:id/quote", h.Pricing.Quote)
		api.GET("/properties/:id/seasonal-rules", h.Pricing.ListRules)
		api.POST("/properties/:id/seasonal-rules", h.Pricing.AddRule)
		api.DELETE("/properties/:id/seasonal-rules/:ruleId", h.Pricing.RemoveRule)
	}
	if h.Availability != nil {
		api.GET("/properties/:id/calendar", h.Availability.Calendar)
		api.POST("/properties/:id/blocks", h.Availability.Block)
		api.DELETE("/properties/:id/blocks/:blockId", h.Availability.Unblock)
		api.POST("/properties/:id/calendar/sync", h.Availability.SyncFeed)
	}
	if h.Booking != nil {
		api.POST("/bookings", h.Booking.Create)
		api.GET("/bookings/:id", h.Booking.Get)
		api.POST("/bookings/:id/confirm", h.Booking.Confirm)
		api.POST("/bookings/:id/cancel", h.Booking.Cancel)
		api.POST("/bookings/:id/complete", h.Booking.Complete)
	}
	if h.Me != nil {
		api.GET("/me/bookings", h.Me.ListBookings)
	}
	if h.Host != nil {
		api.GET("/host/bookings", h.Host.ListBookings)
		api.GET("/host/earnings", h.Host.Earnings)
	}
	return router
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}
