package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	handlers "github.com/oksasatya/organizer-billing/internal/interface/http"
	"github.com/oksasatya/organizer-billing/internal/interface/middleware"
	"github.com/oksasatya/organizer-billing/pkg/helpers"
)

// BillingModule wires the billing onboarding routes. Every route needs an
// authenticated organizer.
// GET  /api/billing-settings
// POST /api/billing-settings (multipart)
// POST /api/billing-accounts/:id/{activate,deactivate,preferred}
type BillingModule struct {
	Handler *handlers.BillingHandler
	JWT     *helpers.JWTManager
	// Redis backs rate limiting and, when Sessions is set, the session check.
	Redis    *redis.Client
	Sessions bool
}

func NewBillingModule(h *handlers.BillingHandler, jwt *helpers.JWTManager, rdb *redis.Client, sessions bool) *BillingModule {
	return &BillingModule{Handler: h, JWT: jwt, Redis: rdb, Sessions: sessions}
}

func (m *BillingModule) Register(rg *gin.RouterGroup) {
	var sessions *redis.Client
	if m.Sessions {
		sessions = m.Redis
	}

	auth := rg.Group("/")
	auth.Use(middleware.Auth(sessions, m.JWT))
	auth.Use(
		middleware.RateLimit(m.Redis, 300, time.Minute, middleware.KeyByIP(), nil),
		middleware.RateLimit(m.Redis, 120, time.Minute, middleware.KeyByUserID(), nil),
	)
	{
		// submissions upload up to three files; keep them rarer
		submitLimiter := middleware.RateLimit(m.Redis, 10, time.Minute, middleware.KeyByUserID(), nil)

		auth.GET("/billing-settings", m.Handler.Snapshot)
		auth.POST("/billing-settings", submitLimiter, m.Handler.Submit)

		accounts := auth.Group("/billing-accounts/:id")
		accounts.POST("/activate", m.Handler.Activate)
		accounts.POST("/deactivate", m.Handler.Deactivate)
		accounts.POST("/preferred", m.Handler.SetPreferred)
	}
}
