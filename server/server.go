// Package server exposes the storefront over HTTP with gin. Long-running
// flows (notifications, assistant replies, documentation jobs) are streamed
// as server-sent events.
package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gemfashion/storefront/assistant"
	"github.com/gemfashion/storefront/core"
	"github.com/gemfashion/storefront/docgen"
	"github.com/gemfashion/storefront/storefront"
	"github.com/gemfashion/storefront/telemetry"
)

// HealthCheck reports whether a backing dependency is usable
type HealthCheck func(ctx context.Context) error

// Deps are the services the HTTP layer routes to
type Deps struct {
	Stores    *storefront.Registry
	Sessions  *assistant.Store
	Docs      *docgen.Jobs
	Limiter   Limiter
	Health    map[string]HealthCheck
	Logger    core.Logger
	Telemetry core.Telemetry
}

// Server owns the gin engine and the underlying http.Server
type Server struct {
	cfg     *core.Config
	deps    Deps
	engine  *gin.Engine
	handler http.Handler
	logger  core.Logger

	mu      sync.Mutex
	server  *http.Server
	started bool
}

// New builds the router. cfg must already be validated.
func New(cfg *core.Config, deps Deps) *Server {
	if cfg.Development.Enabled {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	if deps.Telemetry == nil {
		deps.Telemetry = &core.NoOpTelemetry{}
	}
	if deps.Limiter == nil {
		deps.Limiter = NewWindowLimiter(cfg.Assistant.RequestsPerMinute, time.Minute)
	}

	s := &Server{
		cfg:    cfg,
		deps:   deps,
		engine: gin.New(),
		logger: core.ForComponent(deps.Logger, "storefront/server"),
	}
	s.engine.Use(gin.Recovery())
	s.routes()

	var h http.Handler = s.engine
	h = core.CORSMiddleware(&cfg.HTTP.CORS)(h)
	h = core.LoggingMiddleware(s.logger, cfg.Development.Enabled)(h)
	h = core.RequestIDMiddleware()(h)
	if cfg.Telemetry.Enabled && cfg.Telemetry.TracingEnabled {
		h = telemetry.TracingMiddleware(serviceName(cfg), "/health")(h)
	}
	s.handler = h
	return s
}

func serviceName(cfg *core.Config) string {
	if cfg.Telemetry.ServiceName != "" {
		return cfg.Telemetry.ServiceName
	}
	return cfg.Name
}

// Handler returns the fully wrapped HTTP handler
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() {
	r := s.engine
	r.GET("/health", s.health)

	api := r.Group("/api")

	catalogAPI := api.Group("/catalog")
	catalogAPI.GET("/products", s.listProducts)
	catalogAPI.GET("/products/:id", s.getProduct)
	catalogAPI.GET("/categories", s.listCategories)
	catalogAPI.GET("/offers", s.listOffers)
	catalogAPI.GET("/slides", s.listSlides)
	catalogAPI.GET("/price-bounds", s.priceBounds)

	client := api.Group("", s.clientID())

	client.GET("/cart", s.getCart)
	client.POST("/cart/items", s.addCartItem)
	client.PUT("/cart/items/:id", s.updateCartItem)
	client.DELETE("/cart/items/:id", s.removeCartItem)
	client.DELETE("/cart", s.clearCart)

	client.GET("/wishlist", s.getWishlist)
	client.POST("/wishlist/:id/toggle", s.toggleWishlist)

	client.GET("/theme", s.getTheme)
	client.POST("/theme/toggle", s.toggleTheme)

	client.GET("/filters", s.getFilters)
	client.PUT("/filters/category", s.selectCategory)
	client.PUT("/filters/search", s.setSearch)
	client.PUT("/filters/price", s.setPrice)
	client.DELETE("/filters/price", s.resetPrice)
	client.GET("/filters/products", s.filteredProducts)

	client.GET("/notifications", s.listNotifications)
	client.DELETE("/notifications/:id", s.dismissNotification)
	client.GET("/notifications/stream", s.streamNotifications)

	client.GET("/checkout", s.getCheckout)
	client.POST("/checkout/open", s.openCheckout)
	client.POST("/checkout/close", s.closeCheckout)
	client.POST("/checkout/proceed", s.proceedCheckout)
	client.POST("/checkout/back", s.backCheckout)
	client.POST("/checkout/pay", s.pay)

	client.POST("/newsletter", s.subscribe)

	client.POST("/assistant/sessions", s.createSession)
	client.GET("/assistant/sessions/:id", s.getSession)
	client.POST("/assistant/sessions/:id/messages", s.rateLimit(), s.sendMessage)

	api.POST("/docs", s.generateDocs)
	api.GET("/docs/:id", s.getDoc)
	api.GET("/docs/:id/html", s.getDocHTML)
}

func (s *Server) health(c *gin.Context) {
	status := http.StatusOK
	checks := make(map[string]string, len(s.deps.Health))
	for name, check := range s.deps.Health {
		if err := check(c.Request.Context()); err != nil {
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	state := "healthy"
	if status != http.StatusOK {
		state = "degraded"
	}
	c.JSON(status, gin.H{
		"status":      state,
		"service":     s.cfg.Name,
		"version":     core.Version,
		"api_version": core.APIVersion,
		"commit":      core.GitCommit,
		"checks":      checks,
	})
}

// Start listens on the configured address and blocks until the server stops.
// It returns nil after a graceful Shutdown.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return errors.New("server already started")
	}
	s.server = &http.Server{
		Addr:        s.cfg.ListenAddr(),
		Handler:     s.handler,
		ReadTimeout: s.cfg.HTTP.ReadTimeout,
		// zero keeps event streams open
		WriteTimeout: s.cfg.HTTP.WriteTimeout,
		IdleTimeout:  s.cfg.HTTP.IdleTimeout,
	}
	s.started = true
	srv := s.server
	s.mu.Unlock()

	s.logger.Info("Starting HTTP server", map[string]interface{}{
		"address": srv.Addr,
		"cors":    s.cfg.HTTP.CORS.Enabled,
	})

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests,
// bounded by the configured shutdown timeout
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()
	if srv == nil {
		return nil
	}

	if s.cfg.HTTP.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.HTTP.ShutdownTimeout)
		defer cancel()
	}
	s.logger.Info("Shutting down HTTP server", nil)
	return srv.Shutdown(ctx)
}
