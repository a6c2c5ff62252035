package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/02loveslollipop/snow-cannon-viewer/services/api/config"
	"github.com/02loveslollipop/snow-cannon-viewer/services/api/observability"
	"github.com/02loveslollipop/snow-cannon-viewer/services/internal/cannon"
	"github.com/02loveslollipop/snow-cannon-viewer/services/internal/geo"
	"github.com/02loveslollipop/snow-cannon-viewer/services/internal/log"
)

const readinessTimeout = 2 * time.Second

// Store is the read side of the cannon repository.
type Store interface {
	ListCannons(ctx context.Context, f cannon.Filter) ([]cannon.EnrichedCannon, error)
	GetCannon(ctx context.Context, id int) (*cannon.EnrichedCannon, error)
	Ping(ctx context.Context) error
}

// Server bundles router and dependencies for the REST API.
type Server struct {
	cfg     config.Config
	store   Store
	layer   geo.Source
	metrics *observability.Metrics
	clock   clockwork.Clock
	logger  *zap.SugaredLogger
	engine  *gin.Engine
}

// Option customizes a Server.
type Option func(*Server)

// WithClock sets the clock used for response timestamps and request timing.
func WithClock(clock clockwork.Clock) Option {
	return func(s *Server) { s.clock = clock }
}

// WithLogger overrides the package-level logger.
func WithLogger(logger *zap.SugaredLogger) Option {
	return func(s *Server) { s.logger = logger }
}

// New constructs a server with routes and middleware. layer provides the
// static GeoJSON collection, normally a *geo.Cache.
func New(cfg config.Config, store Store, layer geo.Source, metrics *observability.Metrics, opts ...Option) *Server {
	gin.SetMode(gin.ReleaseMode)
	registerValidators()

	server := &Server{
		cfg:     cfg,
		store:   store,
		layer:   layer,
		metrics: metrics,
		clock:   clockwork.NewRealClock(),
		logger:  log.Named("http"),
	}
	for _, opt := range opts {
		opt(server)
	}
	if server.metrics == nil {
		server.metrics = observability.NewMetricsForTesting()
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestIDMiddleware())
	engine.Use(requestLogMiddleware(server.logger, server.clock))
	engine.Use(metricsMiddleware(server.metrics, server.clock))
	engine.Use(corsMiddleware(cfg.CORSOrigin))
	server.engine = engine

	server.registerRoutes()
	server.registerV1Routes()
	return server
}

// Engine exposes the underlying gin engine (for tests).
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// ServeHTTP lets the server be driven directly by httptest.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.engine.ServeHTTP(w, r)
}

// Run starts the HTTP server and blocks until shutdown.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.ListenAddr(),
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) registerRoutes() {
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	s.engine.GET("/readyz", s.handleReadyz)
	s.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.metrics.Gatherer, promhttp.HandlerOpts{})))

	s.engine.GET("/snowCannons", s.handleListCannons)
	s.engine.GET("/snowCannons/geojson", s.handleGeoJSON)
	s.engine.GET("/snowCannons/:id", s.handleGetCannon)
}

func (s *Server) handleReadyz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
	defer cancel()

	if err := s.store.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// internalError logs err against the request and answers 500.
func (s *Server) internalError(c *gin.Context, err error) {
	s.logger.Errorw("request failed",
		"route", c.FullPath(),
		"request_id", requestID(c),
		"error", err,
	)
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
