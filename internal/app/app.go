package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/larder/internal/domain/availability"
	"github.com/xenking/larder/internal/domain/client"
	"github.com/xenking/larder/internal/domain/fulfillment"
	"github.com/xenking/larder/internal/domain/history"
	"github.com/xenking/larder/internal/domain/menu"
	"github.com/xenking/larder/internal/domain/stock"
	"github.com/xenking/larder/internal/handler"
	"github.com/xenking/larder/internal/storage/postgres"
	"github.com/xenking/larder/pkg/health"
	"github.com/xenking/larder/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// PostgreSQL pool + migrations.
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	srv, err := newServer(lg, cfg, pool, m.TracerProvider(), m.MeterProvider())
	if err != nil {
		return err
	}
	healthSvc := srv.health

	g, ctx := errgroup.WithContext(ctx)
	if srv.limiter != nil {
		g.Go(func() error { return srv.limiter.Run(ctx) })
	}

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler:           srv.handler,
	}

	g.Go(func() error {
		return healthSvc.Run(ctx, 10*time.Second)
	})
	// Graceful shutdown: wait for context cancellation, drain, then stop.
	g.Go(func() error {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "shutdown")
		}
		return nil
	})
	g.Go(func() error {
		healthSvc.SetReady(true)
		lg.Info("Server listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server")
		}
		return nil
	})
	return g.Wait()
}

// apiServer is the HTTP surface without its listener.
type apiServer struct {
	handler http.Handler
	health  *health.Health
	// limiter is nil when rate limiting is disabled.
	limiter *httpmiddleware.Limiter
}

func newServer(lg *zap.Logger, cfg *Config, pool *pgxpool.Pool, tp trace.TracerProvider, mp metric.MeterProvider) (*apiServer, error) {
	healthSvc := health.New()
	healthSvc.Register(health.Readiness, "postgres", health.PingCheck(pool), health.WithTimeout(5*time.Second))
	healthSvc.Register(health.Liveness, "goroutines", health.GoroutineCountCheck(10000))

	// Domain services.
	store := postgres.NewStore(pool)
	coordinator, err := fulfillment.NewCoordinator(store, fulfillment.Config{
		TxTimeout:      cfg.Fulfillment.TxTimeout,
		MeterProvider:  mp,
		TracerProvider: tp,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create coordinator")
	}

	h := handler.New(handler.Deps{
		Stock:        stock.NewService(store),
		Menu:         menu.NewService(store),
		Availability: availability.NewService(store.Recipes(), store.Ingredients()),
		Coordinator:  coordinator,
		History:      history.NewService(store.Orders()),
		Clients:      client.NewService(store.Clients()),
		Auth:         handler.NewAuthenticator(postgres.NewAPIKeyRepository(pool), []byte(cfg.APIKeyPepper)),
	})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("GET /readyz", healthSvc.ReadyEndpoint)
	h.Register(mux)

	middlewares := []httpmiddleware.Middleware{
		httpmiddleware.InjectLogger(lg),
		httpmiddleware.RequestID(),
		httpmiddleware.Recovery(),
		httpmiddleware.Instrument("larder-api", tp, mp),
		httpmiddleware.CORS(httpmiddleware.CORSConfig{
			AllowOrigins: cfg.CORS.Origins,
			AllowHeaders: []string{"Content-Type", "X-API-Key", "api_key", httpmiddleware.HeaderRequestID},
			MaxAge:       86400,
		}),
		httpmiddleware.LogRequests(),
	}

	srv := &apiServer{health: healthSvc}
	if cfg.RateLimit.Max > 0 {
		srv.limiter = httpmiddleware.NewLimiter(cfg.RateLimit.Max, cfg.RateLimit.Window)
		middlewares = append(middlewares, httpmiddleware.RateLimit(srv.limiter, httpmiddleware.KeyByAPIKey))
	}
	srv.handler = httpmiddleware.Wrap(mux, middlewares...)
	return srv, nil
}
