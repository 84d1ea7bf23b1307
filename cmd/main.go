package main

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"marketplace-storefront/internal/api"
	"marketplace-storefront/internal/client"
	"marketplace-storefront/internal/config"
	"marketplace-storefront/internal/format"
	"marketplace-storefront/internal/layout"
	"marketplace-storefront/internal/logging"
	"marketplace-storefront/internal/metrics"
	"marketplace-storefront/internal/store"
	"marketplace-storefront/internal/workspace"
)

const (
	defaultAppName = "MarketplaceStorefront"
)

// pinger is implemented by the backends that hold a network connection.
type pinger interface {
	Ping(ctx context.Context) error
}

func main() {
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found or failed to load, relying on system environment")
	}

	// --- Configuration Loading ---
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Error loading configuration")
	}
	logger := logging.New(cfg.LogLevel, cfg.IsDevelopment())
	logger.WithFields(logrus.Fields{
		"app":       defaultAppName,
		"app_env":   cfg.AppEnv,
		"log_level": cfg.LogLevel,
		"backend":   cfg.Session.Backend,
	}).Info("Starting service...")

	// --- Session Store ---
	startCtx, cancelStart := context.WithTimeout(context.Background(), 15*time.Second)
	sessionStore, err := store.Open(startCtx, cfg)
	cancelStart()
	if err != nil {
		logger.WithError(err).Fatal("Failed to open session store")
	}
	logger.WithField("backend", cfg.Session.Backend).Info("Session store ready")

	// --- Display settings ---
	homeLayout, err := layout.Load(cfg.LayoutFile)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load home layout")
	}
	currency, err := format.NewCurrencyFormatter(cfg.Format.Locale, cfg.Format.CurrencySymbol)
	if err != nil {
		logger.WithError(err).Fatal("Invalid currency settings")
	}

	// --- Workspaces and API Handlers ---
	manager := workspace.NewManager(workspace.Options{
		Client: client.Config{
			BaseURL:   cfg.Upstream.BaseURL,
			Timeout:   cfg.Upstream.Timeout,
			LoginPath: cfg.Upstream.LoginPath,
		},
		StaleTime:         cfg.Cache.StaleTime,
		WishlistStaleTime: cfg.Cache.WishlistStaleTime,
		Retry:             cfg.Cache.Retry,
		IdleTTL:           cfg.Session.IdleTTL,
		MaxWorkspaces:     cfg.Session.MaxWorkspaces,
	}, sessionStore, logger)

	httpAPIHandler := api.NewHTTPHandler(api.Options{
		Workspaces: manager,
		Layout:     homeLayout,
		Currency:   currency,
		Images: format.ImageResolver{
			UploadPrefix: cfg.Format.UploadPrefix,
			Placeholder:  cfg.Format.PlaceholderImage,
		},
		Cookie: api.CookieSettings{
			Name:   cfg.Session.CookieName,
			Secure: cfg.Session.CookieSecure,
			MaxAge: cfg.Session.IdleTTL,
		},
		LoginPath: cfg.Upstream.LoginPath,
		RateLimit: api.RateLimitSettings{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		},
		Logger: logger,
	})

	// --- Setup & Start HTTP Server ---
	httpRouter := chi.NewRouter()
	setupBaseMiddleware(httpRouter, logger, cfg.IsDevelopment())
	registerHealthCheck(httpRouter, logger, sessionStore)
	httpRouter.Method(http.MethodGet, "/metrics", metrics.Handler())
	httpAPIHandler.RegisterRoutes(httpRouter)

	httpServer := &http.Server{
		Addr:         ":" + cfg.HttpServer.Port,
		Handler:      httpRouter,
		ReadTimeout:  cfg.HttpServer.TimeoutRead,
		WriteTimeout: cfg.HttpServer.TimeoutWrite,
		IdleTimeout:  cfg.HttpServer.TimeoutIdle,
	}

	go func() {
		logger.Infof("HTTP server listening on port %s", cfg.HttpServer.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("HTTP server ListenAndServe error")
		}
		logger.Info("HTTP server has stopped.")
	}()

	// --- Setup & Start gRPC Server ---
	grpcServer, healthServer := setupGRPCServer(logger)
	grpcListener, err := net.Listen("tcp", ":"+cfg.GrpcServer.Port)
	if err != nil {
		logger.WithError(err).Fatalf("Failed to listen for gRPC on port %s", cfg.GrpcServer.Port)
	}

	go func() {
		logger.Infof("gRPC server listening on port %s", cfg.GrpcServer.Port)
		if err := grpcServer.Serve(grpcListener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			logger.WithError(err).Fatal("gRPC server Serve error")
		}
		logger.Info("gRPC server has stopped.")
	}()

	// --- Graceful Shutdown ---
	shutdownComplete := make(chan struct{})
	go waitForShutdown(logger, httpServer, grpcServer, healthServer, sessionStore, shutdownComplete)

	<-shutdownComplete
	logger.Info("Service shutdown sequence finished.")
}

func setupBaseMiddleware(router *chi.Mux, logger *logrus.Logger, development bool) {
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{Logger: logger, NoColor: !development}))
	router.Use(middleware.Recoverer)
	router.Use(metrics.InstrumentHandler)
	router.Use(middleware.Timeout(60 * time.Second))
	logger.Debug("Base HTTP middleware registered.")
}

func registerHealthCheck(router *chi.Mux, logger logrus.FieldLogger, st store.Store) {
	healthPath := "/api/v1/healthz"
	router.Get(healthPath, healthHandler(logger, st))
	logger.WithField("path", healthPath).Debug("HTTP health check registered")
}

// healthHandler reports the service and session store state. A store that
// fails its ping makes the whole service unhealthy and answers 503.
func healthHandler(logger logrus.FieldLogger, st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		storeStatus := "healthy"
		if p, ok := st.(pinger); ok {
			if err := p.Ping(ctx); err != nil {
				storeStatus = "unhealthy"
				logger.WithError(err).Warn("Health check store ping failed")
			}
		}

		code := http.StatusOK
		if storeStatus != "healthy" {
			code = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status":       storeStatus,
			"serviceName":  defaultAppName,
			"timestamp":    time.Now().UTC().Format(time.RFC3339),
			"sessionStore": storeStatus,
		})
	}
}

// setupGRPCServer exposes the gRPC health protocol and reflection so that
// orchestrators can probe the service over gRPC as well as HTTP.
func setupGRPCServer(logger logrus.FieldLogger) (*grpc.Server, *health.Server) {
	s := grpc.NewServer()

	healthServer := health.NewServer()
	healthServer.SetServingStatus(defaultAppName, grpc_health_v1.HealthCheckResponse_SERVING)
	grpc_health_v1.RegisterHealthServer(s, healthServer)
	logger.Debug("gRPC health check service registered.")

	reflection.Register(s)
	logger.Debug("gRPC reflection service registered.")

	return s, healthServer
}

func waitForShutdown(
	logger logrus.FieldLogger,
	httpServer *http.Server,
	grpcServer *grpc.Server,
	healthServer *health.Server,
	st store.Store,
	shutdownComplete chan struct{},
) {
	defer close(shutdownComplete)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	receivedSignal := <-sigChan
	logger.WithField("signal", receivedSignal.String()).Info("Starting graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	healthServer.Shutdown()
	stoppedGrpc := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(stoppedGrpc)
	}()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("HTTP server graceful shutdown failed")
	} else {
		logger.Info("HTTP server gracefully shut down.")
	}

	select {
	case <-stoppedGrpc:
		logger.Info("gRPC server gracefully shut down.")
	case <-shutdownCtx.Done():
		logger.WithError(shutdownCtx.Err()).Warn("gRPC server graceful shutdown timed out, forcing stop")
		grpcServer.Stop()
	}

	if st != nil {
		if err := st.Close(); err != nil {
			logger.WithError(err).Warn("Error closing session store")
		}
	}

	logger.Info("Graceful shutdown sequence completed.")
}
