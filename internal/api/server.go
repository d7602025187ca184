// Package api exposes the settlement engine over REST plus a websocket event
// feed. It is a facade: all settlement logic lives in the keeper, and the
// discovery endpoints read from the mirrored store, never the other way
// around.
package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/time/rate"

	"github.com/agora-market/agora/internal/cache"
	"github.com/agora-market/agora/internal/discovery"
	"github.com/agora-market/agora/internal/events"
	"github.com/agora-market/agora/internal/market/keeper"
	"github.com/agora-market/agora/pkg/logger"
)

var (
	apiRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agora_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	apiRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "agora_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)
)

// Config holds API server configuration.
type Config struct {
	Host            string
	Port            int
	RateLimit       int
	CORSOrigins     []string
	JWTSecret       string
	EnableWebSocket bool
}

// Server is the REST facade over the engine and its read mirror.
type Server struct {
	config  Config
	engine  *keeper.Keeper
	store   discovery.Store
	cache   *cache.RedisCache
	bus     *events.Bus
	auth    *AuthManager
	log     *logger.Logger
	router  *gin.Engine
	server  *http.Server
	limiter *rate.Limiter
}

// NewServer wires routes and middleware. cache may be nil (reads fall
// through to the store); bus may be nil (no websocket feed).
func NewServer(
	cfg Config,
	engine *keeper.Keeper,
	store discovery.Store,
	redisCache *cache.RedisCache,
	bus *events.Bus,
	log *logger.Logger,
) *Server {
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 100
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		config:  cfg,
		engine:  engine,
		store:   store,
		cache:   redisCache,
		bus:     bus,
		auth:    NewAuthManager(cfg.JWTSecret),
		log:     log,
		router:  router,
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimit*2),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}
		for _, allowed := range s.config.CORSOrigins {
			if allowed == "*" || allowed == origin {
				c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
				c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
				c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
				break
			}
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	s.router.Use(func(c *gin.Context) {
		if !s.limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	})

	s.router.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unknown"
		}
		apiRequestsTotal.WithLabelValues(
			c.Request.Method, endpoint, strconv.Itoa(c.Writer.Status()),
		).Inc()
		apiRequestDuration.WithLabelValues(c.Request.Method, endpoint).
			Observe(time.Since(start).Seconds())
	})
}

func (s *Server) setupRoutes() {
	v1 := s.router.Group("/v1")

	// Registry
	v1.POST("/listings", s.handleRegisterListing)
	v1.PUT("/listings/:id", s.handleUpdateListing)
	v1.POST("/listings/:id/deactivate", s.handleDeactivateListing)
	v1.GET("/listings/:id", s.handleGetListing)
	v1.GET("/listings", s.handleListActive)
	v1.POST("/listings/batch", s.handleBatchListings)

	// Escrow ledger
	v1.POST("/requests", s.handleCreateRequest)
	v1.POST("/requests/:id/complete", s.handleMarkComplete)
	v1.POST("/requests/:id/confirm", s.handleConfirmCompletion)
	v1.POST("/requests/:id/claim", s.handleClaimAfterTimeout)
	v1.POST("/requests/:id/cancel", s.handleCancelRequest)
	v1.GET("/requests/:id", s.handleGetRequest)
	v1.GET("/requests/:id/timeout", s.handleTimeoutStatus)

	// Reputation and aggregate queries
	v1.GET("/reputation/:provider", s.handleGetReputation)
	v1.GET("/totals", s.handleTotals)
	v1.GET("/health", s.handleHealth)

	if s.config.EnableWebSocket && s.bus != nil {
		v1.GET("/events/ws", s.handleEventFeed)
	}

	admin := v1.Group("/admin")
	admin.Use(s.auth.Middleware())
	admin.POST("/pause", s.handlePause)
	admin.POST("/unpause", s.handleUnpause)
	admin.POST("/withdraw", s.handleEmergencyWithdraw)
	admin.GET("/invariants", s.handleInvariants)
}

// Start begins serving; it blocks until the listener fails or Stop is called.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.config.Host, s.config.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.log.Info("api server listening", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router exposes the gin engine for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "paused": s.engine.Paused()})
}
