package api

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/charlesng35/teamseats/internal/app"
	iauth "github.com/charlesng35/teamseats/internal/auth"
	"github.com/charlesng35/teamseats/internal/cache"
	"github.com/charlesng35/teamseats/internal/handlers"
	"github.com/charlesng35/teamseats/internal/middleware"
	"github.com/charlesng35/teamseats/internal/notify"
)

// NewRouter builds the Gin engine, wires middleware and registers every route.
// cacheStore backs rate limiting and the dashboard cache; it may be nil.
func NewRouter(db *gorm.DB, jwt *iauth.JWTService, cfg *app.Config, cacheStore cache.Store, dispatcher notify.Dispatcher) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if jwt == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}
	if dispatcher == nil {
		return nil, fmt.Errorf("notification dispatcher must be provided")
	}

	svc, err := newServiceSet(db, cfg, cacheStore, dispatcher)
	if err != nil {
		return nil, err
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowedOrigins...))
	if cfg.Server.RateLimit.Enabled {
		r.Use(middleware.RateLimit(middleware.NewCacheRateStore(cacheStore), cfg.Server.RateLimit.Requests, cfg.Server.RateLimit.Window))
	}

	registerHealthRoutes(r, cfg, db, cacheStore)

	invitationHandler, err := handlers.NewInvitationHandler(svc.invitations, svc.dashboard, cfg.Server.AppURL)
	if err != nil {
		return nil, err
	}
	dashboardHandler, err := handlers.NewDashboardHandler(svc.dashboard)
	if err != nil {
		return nil, err
	}

	// Public invitation links
	registerInvitationLinkRoutes(r, invitationHandler)

	// Protected routes
	api := r.Group("/api")
	api.Use(middleware.Auth(jwt))

	registerInvitationRoutes(api, invitationHandler)
	registerDashboardRoutes(api, dashboardHandler)

	if cfg.Monitoring.Prometheus.Enabled {
		endpoint := strings.TrimSpace(cfg.Monitoring.Prometheus.Endpoint)
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}

	// NotFound fallback
	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}
