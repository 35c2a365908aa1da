// Package http serves the dashboard API, the live update stream, and the
// health, readiness, and metrics endpoints.
package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/resqlink/early-warning-service/internal/domain"
)

// ReadinessChecker reports whether a dependency is ready to serve traffic.
type ReadinessChecker = sharedobs.ReadinessChecker

// readiness reports ready only when every checker does.
type readiness []ReadinessChecker

func (rs readiness) CheckReadiness(ctx context.Context) error {
	errs := make([]error, 0, len(rs))
	for _, c := range rs {
		errs = append(errs, c.CheckReadiness(ctx))
	}
	return errors.Join(errs...)
}

// Dashboard is the service behind the /api routes.
type Dashboard interface {
	SensorPanel(ctx context.Context, r domain.DataRange) (domain.SensorPanel, error)
	MessageFeed(ctx context.Context) (domain.MessageFeed, error)
	SOSFeed(ctx context.Context) (domain.SOSFeed, error)
	Weather(ctx context.Context, lat, lon float64) (domain.Conditions, error)
	WeatherByPlace(ctx context.Context, name string) (domain.Conditions, error)
	MonitoredWeather(ctx context.Context) ([]domain.LocationWeather, error)
	MapConfig() domain.MapConfig
	Tile(ctx context.Context, layer string, z, x, y int) (domain.Tile, error)
	TriggerAlert(ctx context.Context, target string) (domain.AlertResult, error)
}

// Predictions serves the prediction card.
type Predictions interface {
	Current(ctx context.Context) (domain.Prediction, error)
}

// Stream hands out live update subscriptions.
type Stream interface {
	Subscribe(topics ...domain.Topic) (<-chan domain.Update, func())
}

// Options configures a Server. Auth, when set, guards alert triggering.
type Options struct {
	Addr           string
	AllowedOrigins []string
	Dashboard      Dashboard
	Predictions    Predictions
	Stream         Stream
	Ready          []ReadinessChecker
	Auth           func(http.Handler) http.Handler
	KeepAlive      time.Duration
	Logger         *slog.Logger
}

// Server is the dashboard HTTP server.
type Server struct {
	httpServer  *http.Server
	dashboard   Dashboard
	predictions Predictions
	stream      Stream
	keepAlive   time.Duration
	logger      *slog.Logger

	// closed on Shutdown so open streams end and connections can drain.
	done chan struct{}
}

// NewServer builds the router and wraps it in CORS handling.
func NewServer(opts Options) *Server {
	if opts.KeepAlive <= 0 {
		opts.KeepAlive = 15 * time.Second
	}

	s := &Server{
		dashboard:   opts.Dashboard,
		predictions: opts.Predictions,
		stream:      opts.Stream,
		keepAlive:   opts.KeepAlive,
		logger:      opts.Logger,
		done:        make(chan struct{}),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", sharedobs.LivenessHandler())
	r.Get("/readyz", sharedobs.ReadinessHandler(readiness(opts.Ready)))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/sensors", s.handleSensors)
		r.Get("/messages", s.handleMessages)
		r.Get("/sos", s.handleSOS)
		r.Get("/weather", s.handleWeather)
		r.Get("/weather/monitored", s.handleMonitoredWeather)
		r.Get("/map", s.handleMap)
		r.Get("/tiles/{layer}/{z}/{x}/{y}.png", s.handleTile)
		r.Get("/prediction", s.handlePrediction)
		r.Get("/stream", s.handleStream)
		r.Group(func(r chi.Router) {
			if opts.Auth != nil {
				r.Use(opts.Auth)
			}
			r.Post("/alerts", s.handleAlert)
		})
	})

	c := cors.New(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})

	s.httpServer = &http.Server{
		Addr:              opts.Addr,
		Handler:           c.Handler(r),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	s.httpServer.RegisterOnShutdown(func() { close(s.done) })
	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
