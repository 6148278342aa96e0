package http

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"

	apicontract "github.com/tuanvumaihuynh/inventory-service/api-contract"
	"github.com/tuanvumaihuynh/inventory-service/internal/apperr"
	"github.com/tuanvumaihuynh/inventory-service/internal/config"
	"github.com/tuanvumaihuynh/inventory-service/internal/http/apierr"
	"github.com/tuanvumaihuynh/inventory-service/internal/http/metric"
	"github.com/tuanvumaihuynh/inventory-service/internal/http/middleware"
	"github.com/tuanvumaihuynh/inventory-service/internal/http/swagger"
	"github.com/tuanvumaihuynh/inventory-service/internal/service"
	"github.com/tuanvumaihuynh/inventory-service/pkg/validator"
)

var tracer = otel.Tracer("internal/http")

// HealthChecker reports whether the backing store is reachable.
type HealthChecker interface {
	IsHealthy(ctx context.Context) (bool, error)
}

// Service represents the HTTP service.
type Service struct {
	cfg      config.HTTP
	appCfg   config.App
	logger   *slog.Logger
	registry *prometheus.Registry
	metrics  *metric.Metrics
	apiDoc   *openapi3.T

	productSvc service.ProductService
	health     HealthChecker
	validator  validator.Validator
}

type CleanupFunc func(ctx context.Context) error

func New(
	cfg config.HTTP,
	appCfg config.App,
	log *slog.Logger,
	productSvc service.ProductService,
	health HealthChecker,
) (*Service, error) {
	v, err := validator.NewDefaultValidator()
	if err != nil {
		return nil, fmt.Errorf("create validator: %w", err)
	}

	var apiDoc *openapi3.T
	if cfg.Swagger {
		apiDoc, err = apicontract.Load(context.Background())
		if err != nil {
			return nil, fmt.Errorf("load api contract: %w", err)
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Service{
		cfg:        cfg,
		appCfg:     appCfg,
		logger:     log.With(slog.String("service", "http")),
		registry:   registry,
		metrics:    metric.New(registry),
		apiDoc:     apiDoc,
		productSvc: productSvc,
		health:     health,
		validator:  v,
	}, nil
}

// Handler builds the router with every middleware and route.
func (s *Service) Handler() http.Handler {
	r := chi.NewRouter()
	s.RegisterMiddlewares(r)

	r.NotFound(s.handle(func(http.ResponseWriter, *http.Request) error {
		return apperr.RouteNotFoundErr
	}))
	r.MethodNotAllowed(s.handle(func(http.ResponseWriter, *http.Request) error {
		return apperr.MethodNotAllowedErr
	}))

	if s.apiDoc != nil {
		if err := swagger.Register(r, s.apiDoc); err != nil {
			s.logger.Error("error registering swagger routes", slog.Any("error", err))
		}
	}

	s.RegisterHandlers(r)

	return r
}

// Run starts serving in the background. errChan receives the error of a
// server that stops on its own.
func (s *Service) Run(ctx context.Context, errChan chan<- error) (CleanupFunc, error) {
	return s.RunWithServer(ctx, s.Handler(), errChan)
}

func (s *Service) RunWithServer(ctx context.Context, handler http.Handler, errChan chan<- error) (CleanupFunc, error) {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           handler,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 16, // 64 KB
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", srv.Addr, err)
	}

	s.logger.InfoContext(ctx, "http server listening", slog.String("addr", ln.Addr().String()))

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server: %w", err)
		}
	}()

	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}, nil
}

func (s *Service) RegisterMiddlewares(r chi.Router) {
	r.Use(
		middleware.Recoverer(s.logger, func(w http.ResponseWriter, r *http.Request, err error) {
			s.handleResponseError(w, r, apperr.InternalErr.WrapParent(err))
		}),
		middleware.Trace(tracer),
		middleware.Metrics(s.metrics),
		middleware.CorrelationID(),
		middleware.Cors(s.cfg.CorsAllowedOrigins),
		middleware.Logging(s.logger),
	)
}

// RegisterHandlers mounts the API behind the per-IP rate limit. Health
// checks and scrapes stay outside it.
func (s *Service) RegisterHandlers(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(s.cfg.RateLimitRequests, s.cfg.RateLimitWindow, s.handle(
			func(http.ResponseWriter, *http.Request) error {
				return apperr.RateLimitedErr
			},
		)))
		newProductHandler(s, s.productSvc, s.validator).register(r)
	})

	r.Get("/health", s.handle(s.Health))

	r.Handle(middleware.MetricsPath, promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{
		ErrorLog: log.Default(),
	}))
}

// handlerFunc is an http.HandlerFunc that leaves error responses to the
// service.
type handlerFunc func(w http.ResponseWriter, r *http.Request) error

func (s *Service) handle(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h(w, r); err != nil {
			s.handleResponseError(w, r, err)
		}
	}
}

func (s *Service) handleResponseError(w http.ResponseWriter, r *http.Request, err error) {
	res := apierr.New(err)
	if s.appCfg.IsDevelopment() {
		res = res.WithStack(err)
	}

	logLevel := slog.LevelInfo
	if res.StatusCode >= 500 {
		logLevel = slog.LevelError
	} else if res.StatusCode >= 400 {
		logLevel = slog.LevelWarn
	}
	s.logger.Log(r.Context(), logLevel, "http response error",
		slog.Int("status", res.StatusCode),
		slog.String("code", res.Code),
		slog.Any("error", err),
	)

	s.writeJSON(w, r, res.StatusCode, res)
}

func (s *Service) Health(w http.ResponseWriter, r *http.Request) error {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if ok, err := s.health.IsHealthy(ctx); !ok || err != nil {
		return apperr.StoreUnavailableErr.WrapParent(err)
	}

	s.writeSuccess(w, r, http.StatusOK, "Service is healthy", map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
	return nil
}
