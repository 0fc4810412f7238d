package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"agency-admin/internal/audit"
	"agency-admin/internal/auth"
	"agency-admin/internal/config"
	costapp "agency-admin/internal/coststandard/application"
	coststandard "agency-admin/internal/coststandard/domain"
	costmemory "agency-admin/internal/coststandard/infrastructure/memory"
	costpostgres "agency-admin/internal/coststandard/infrastructure/postgres"
	costhttp "agency-admin/internal/coststandard/interfaces/http"
	forecast "agency-admin/internal/forecast/application"
	forecasthttp "agency-admin/internal/forecast/interfaces/http"
	"agency-admin/internal/observability/logger"
	"agency-admin/internal/observability/metrics"
)

type costRepository interface {
	coststandard.Repository
	metrics.RecordCounter
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logger.New(logger.Config{})
		boot.Fatal().Err(err).Msg("config error")
	}
	log := logger.New(logger.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})

	loc, err := cfg.Location()
	if err != nil {
		log.Fatal().Err(err).Msg("timezone error")
	}

	var (
		repo     costRepository
		auditLog audit.Logger
	)
	if cfg.InMemory {
		repo = costmemory.NewRepository()
		auditLog = audit.NewMemoryLog()
		log.Warn().Msg("running with in-memory storage")
	} else {
		db, err := sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("db open error")
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			log.Fatal().Err(err).Msg("db ping error")
		}
		repo = costpostgres.NewRepository(db)
		auditLog = audit.NewRepository(db)
	}

	metrics.Init(repo, func(err error) {
		log.Warn().Err(err).Msg("cost standard count failed")
	})

	costService, err := costapp.NewService(repo, cfg.TenantID,
		costapp.WithLocation(loc),
		costapp.WithCurrency(cfg.Currency),
		costapp.WithLogger(logger.Component(log, "coststandard")),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("cost standard service error")
	}
	costHandler, err := costhttp.NewHandler(costService, cfg.StatusLabels, auditLog, logger.Component(log, "coststandard.http"),
		costhttp.WithPDFFont(cfg.PDFFontPath))
	if err != nil {
		log.Fatal().Err(err).Msg("cost standard handler error")
	}

	estimator, err := forecast.NewEstimator(forecast.ServiceRates(costService))
	if err != nil {
		log.Fatal().Err(err).Msg("estimator error")
	}
	forecastHandler, err := forecasthttp.NewHandler(estimator, logger.Component(log, "forecast.http"))
	if err != nil {
		log.Fatal().Err(err).Msg("forecast handler error")
	}

	policy := auth.NewDefaultPolicy([]string{"/healthz", "/metrics"}, nil)
	authMiddleware := auth.NewMiddleware([]byte(cfg.JWTSecret), policy)

	mux := http.NewServeMux()
	mux.Handle("/api/v1/cost-standards", costHandler)
	mux.Handle("/api/v1/cost-standards/", costHandler)
	mux.Handle("/api/v1/forecasts/staffing", forecastHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      loggingMiddleware(authMiddleware.Wrap(mux), logger.Component(log, "http")),
		ReadTimeout:  time.Duration(cfg.ReadTimeout),
		WriteTimeout: time.Duration(cfg.WriteTimeout),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("http shutdown error")
		}
	}()

	log.Info().
		Str("addr", cfg.HTTPAddr).
		Str("tenant_id", cfg.TenantID).
		Str("timezone", loc.String()).
		Msg("http listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("http server error")
	}
	log.Info().Msg("http server stopped")
}

func loggingMiddleware(next http.Handler, log zerolog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		elapsed := time.Since(start)
		metrics.ObserveHTTP(r.Method, resp.status, elapsed)
		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", resp.status).
			Dur("duration", elapsed).
			Msg("http request")
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
