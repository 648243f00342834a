// Package httpapi wires the HTTP transport (Gin) to the bot dispatcher and
// the public gallery API. It centralizes cross-cutting concerns such as
// tracing, correlation IDs, logging, panic recovery, metrics, CORS, security
// headers, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/devyouns/martyrs-gallery-bot/internal/config"
	"github.com/devyouns/martyrs-gallery-bot/internal/domain"
	"github.com/devyouns/martyrs-gallery-bot/internal/http/handlers"
	"github.com/devyouns/martyrs-gallery-bot/internal/http/middleware"
	"github.com/devyouns/martyrs-gallery-bot/internal/repo"
	"github.com/devyouns/martyrs-gallery-bot/internal/services"
)

// WebhookPath is where Telegram deliveries are received.
const WebhookPath = "/webhook"

// galleryRepoShim adapts the repository free functions to the
// services.GalleryRepo interface expected by GalleryService. This keeps
// services decoupled from the concrete repo package while reusing existing
// functions.
type galleryRepoShim struct{}

// GetMartyr proxies repo.GetMartyr.
func (galleryRepoShim) GetMartyr(ctx context.Context, db *gorm.DB, id string) (*domain.Martyr, error) {
	return repo.GetMartyr(ctx, db, id)
}

// ListMartyrsPage proxies repo.ListMartyrsPage.
func (galleryRepoShim) ListMartyrsPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.Martyr, error) {
	return repo.ListMartyrsPage(ctx, db, offset, limit)
}

// CountMartyrs proxies repo.CountMartyrs.
func (galleryRepoShim) CountMartyrs(ctx context.Context, db *gorm.DB) (int64, error) {
	return repo.CountMartyrs(ctx, db)
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine: the Telegram webhook, the versioned public gallery API, health,
// and metrics.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Logger: structured access logs
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Webhook rate-limit bypass (per-sender abuse guard covers it already)
//  8. Rate limiter (per user/IP)
//  9. CORS and security headers
func RegisterRoutes(r *gin.Engine, db *gorm.DB, dispatcher handlers.UpdateDispatcher, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured access logging
	r.Use(middleware.Logger())

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Telegram retries a delivery until it gets a 2xx; dropping retries at
	// the edge would only multiply traffic. The per-sender abuse guard
	// throttles webhook updates instead.
	markBypass := middleware.MarkRateBypass()
	r.Use(func(c *gin.Context) {
		if c.Request.URL.Path == WebhookPath {
			markBypass(c)
			return
		}
		c.Next()
	})

	// 8) Token-bucket rate limiter per user/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())

	// 9) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// Telegram webhook
	wh := handlers.NewWebhookHandler(dispatcher)
	r.POST(WebhookPath, wh.Receive)

	// Public gallery API (read-only, compressed)
	gallerySvc := services.NewGalleryService(db, galleryRepoShim{})
	h := handlers.New(gallerySvc)

	api := groupWithPrefix(r, cfg.APIBasePath)
	api.Use(gzip.Gzip(gzip.DefaultCompression))
	{
		api.GET("/martyrs", h.ListMartyrs)
		api.GET("/martyrs/:id", h.GetMartyr)
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the
// cap will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
