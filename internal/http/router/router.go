package router

import (
	"time"

	apphttp "lead_pipeline_backend/internal/http"
	"lead_pipeline_backend/platform/httpkit"
	"lead_pipeline_backend/platform/metrics"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// New builds the gin engine and mounts every module.
func New(app *apphttp.App) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(httpkit.RequestID())
	engine.Use(httpkit.SecurityHeaders())
	engine.Use(httpkit.RequestLogger(app.Logger))
	engine.Use(metrics.GinMiddleware())

	cfg := app.Config
	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "X-API-Key", "X-Lead-Source", "X-Request-ID"},
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: cfg.GetCORSAllowCreds(),
		MaxAge:           12 * time.Hour,
	}
	if cfg.GetCORSAllowAll() {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.GetCORSOrigins()
	}
	engine.Use(cors.New(corsCfg))

	engine.GET("/metrics", metrics.Handler())

	api := engine.Group("/api")
	v1 := api.Group("/v1")
	protected := v1.Group("")
	protected.Use(httpkit.APIKeyRequired(cfg))

	limiter := httpkit.NewIPRateLimiter(rate.Limit(cfg.GetRateLimitRPS()), cfg.GetRateLimitBurst(), app.Logger)

	routerCtx := &apphttp.RouterContext{
		Engine:         engine,
		API:            api,
		Webhooks:       api.Group("/webhooks"),
		Protected:      protected,
		CaptureLimiter: limiter,
	}
	for _, module := range app.Modules {
		app.Logger.Debug("registering module routes", "module", module.Name())
		module.RegisterRoutes(routerCtx)
	}

	return engine
}
