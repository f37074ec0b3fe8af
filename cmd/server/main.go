package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mmynk/chitfund/internal/auth"
	"github.com/mmynk/chitfund/internal/config"
	"github.com/mmynk/chitfund/internal/ledger"
	"github.com/mmynk/chitfund/internal/metrics"
	"github.com/mmynk/chitfund/internal/middleware"
	"github.com/mmynk/chitfund/internal/sequence"
	"github.com/mmynk/chitfund/internal/service"
	"github.com/mmynk/chitfund/internal/storage"
	"github.com/mmynk/chitfund/internal/storage/mongo"
	"github.com/mmynk/chitfund/internal/storage/redis"
	"github.com/mmynk/chitfund/internal/storage/sqlite"
	"github.com/mmynk/chitfund/internal/users"
	"github.com/mmynk/chitfund/pkg/api"
	"github.com/mmynk/chitfund/pkg/logging"
)

func main() {
	logging.Setup()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// Counters and chit locks move to Redis when it is configured, so several
	// instances can share one store.
	var sequences storage.SequenceStore = store
	var locker ledger.Locker = ledger.NewKeyedLocker()
	if cfg.RedisAddr != "" {
		client, err := redis.Connect(ctx, cfg.RedisAddr)
		if err != nil {
			return err
		}
		defer client.Close()
		redisSequences := redis.NewSequences(client)
		if err := seedSequences(ctx, store, redisSequences); err != nil {
			return err
		}
		sequences = redisSequences
		locker = redis.NewLocker(client, redis.DefaultLockOptions())
		slog.Info("Redis counters and locks enabled", "address", cfg.RedisAddr)
	}

	counter := sequence.NewCounter(sequences, m)
	directory := users.NewDirectory(store)
	authn := auth.NewPasswordAuthenticator(store, counter, auth.WithDefaultPassword(cfg.DefaultUserPassword))
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL)

	engineOpts := []ledger.EngineOption{
		ledger.WithLocker(locker),
		ledger.WithMetrics(m),
		ledger.WithMaxRetries(cfg.AllocateMaxRetries),
	}
	if cfg.StrictSplit {
		engineOpts = append(engineOpts, ledger.WithStrictSplit())
	}
	chits := ledger.NewChits(store, counter, m)
	engine := ledger.NewEngine(store, directory, engineOpts...)

	if err := bootstrapAdmin(ctx, cfg, authn); err != nil {
		return err
	}

	interceptors := connect.WithInterceptors(
		middleware.LoggingInterceptor(),
		middleware.MetricsInterceptor(m),
		middleware.RequireAuth(jwtManager, api.AuthServiceLoginProcedure),
		middleware.TimeoutInterceptor(cfg.StoreTimeout),
	)

	mux := http.NewServeMux()
	mux.Handle(api.NewChitServiceHandler(service.NewChitService(chits, engine), interceptors))
	mux.Handle(api.NewUserServiceHandler(service.NewUserService(authn, directory), interceptors))
	mux.Handle(api.NewAuthServiceHandler(service.NewAuthService(authn, jwtManager), interceptors))
	mux.Handle(api.NewSequenceServiceHandler(service.NewSequenceService(counter), interceptors))
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// Wrap with h2c for HTTP/2 without TLS (required for Connect)
	h2cHandler := h2c.NewHandler(loggingMiddleware(corsMiddleware(mux)), &http2.Server{})

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           h2cHandler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Connect server starting", "address", addr, "url", fmt.Sprintf("http://localhost%s", addr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func openStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	switch cfg.StoreBackend {
	case config.BackendMongo:
		store, err := mongo.New(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize mongo storage: %w", err)
		}
		slog.Info("Storage initialized", "backend", cfg.StoreBackend, "database", cfg.MongoDatabase)
		return store, nil
	default:
		store, err := sqlite.New(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize sqlite storage: %w", err)
		}
		slog.Info("Storage initialized", "backend", cfg.StoreBackend, "database", cfg.DBPath)
		return store, nil
	}
}

// bootstrapAdmin creates the configured admin user on first start so there is
// someone who can log in and add members. An admin left on the default
// password by an earlier failed start gets the configured one now.
func bootstrapAdmin(ctx context.Context, cfg *config.Config, authn *auth.PasswordAuthenticator) error {
	if cfg.AdminNumber == "" {
		return nil
	}
	admin, err := authn.EnsureUser(ctx, auth.UserSpec{
		Number:    cfg.AdminNumber,
		FirstName: "Admin",
		LastName:  "User",
		UserType:  "admin",
	}, cfg.AdminPassword)
	if err != nil {
		return fmt.Errorf("failed to set up admin user: %w", err)
	}
	slog.Info("Admin user ready", "user_id", admin.ID, "user_number", admin.Number)
	return nil
}

// seedSequences raises the Redis counters above the IDs already stored, so
// moving counters to Redis on an existing database never reissues an ID.
func seedSequences(ctx context.Context, store storage.Store, seqs *redis.Sequences) error {
	maxChit, err := store.MaxChitID(ctx)
	if err != nil {
		return err
	}
	maxUser, err := store.MaxUserID(ctx)
	if err != nil {
		return err
	}
	for name, floor := range map[string]int64{
		sequence.ChitSequence: maxChit,
		sequence.UserSequence: maxUser,
	} {
		value, err := seqs.EnsureAtLeast(ctx, name, floor)
		if err != nil {
			return err
		}
		slog.Debug("Sequence seeded", "counter", name, "value", value)
	}
	return nil
}

// loggingMiddleware logs all incoming requests
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Debug("Request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// corsMiddleware adds CORS headers for browser access
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-Id, Connect-Protocol-Version, Connect-Timeout-Ms")
		w.Header().Set("Access-Control-Expose-Headers", "X-Request-Id, X-Error-Code, Connect-Protocol-Version, Connect-Timeout-Ms")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
