package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/curaplan/clinicops/libs/cachex"
	"github.com/curaplan/clinicops/libs/config"
	"github.com/curaplan/clinicops/libs/db"
	"github.com/curaplan/clinicops/libs/httpx"
	"github.com/curaplan/clinicops/libs/kafkax"
	otelx "github.com/curaplan/clinicops/libs/otel"
	"github.com/curaplan/clinicops/libs/runtime"
	"github.com/curaplan/clinicops/services/scheduling-service/internal/audit"
	"github.com/curaplan/clinicops/services/scheduling-service/internal/catalog"
	"github.com/curaplan/clinicops/services/scheduling-service/internal/directory"
	"github.com/curaplan/clinicops/services/scheduling-service/internal/handlers"
	"github.com/curaplan/clinicops/services/scheduling-service/internal/hours"
	"github.com/curaplan/clinicops/services/scheduling-service/internal/scheduling"
	"github.com/curaplan/clinicops/services/scheduling-service/internal/storage"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func main() {
	service := config.String("SERVICE_NAME", "scheduling-service")
	port, err := config.Port("PORT", "8084")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	pool, err := db.Open(ctx, dbURL)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	readyChecks := []runtime.ReadyCheck{
		{Name: "db", Check: db.ReadyCheck(pool)},
	}

	// Cache: Redis primary with a process-local fallback. Without a
	// configured Redis address the service runs cache-local only.
	var rdb *redis.Client
	var primary cachex.Cache
	if addr := config.String("REDIS_ADDR", ""); addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: addr})
		redisCache := cachex.NewRedis(rdb)
		primary = redisCache
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "redis", Check: redisCache.ReadyCheck()})
	}
	cache := cachex.NewFailover(primary, nil, logger)

	// Directories: platform directory service over gRPC when configured,
	// otherwise straight from the shared CRUD tables.
	patients, practitioners, err := directory.NewGRPC(config.String("DIRECTORY_GRPC_ADDR", ""))
	if err != nil {
		logger.Error("directory grpc dial failed; falling back to postgres", "err", err)
		patients, practitioners = nil, nil
	}
	if patients == nil {
		patients = directory.NewPostgresPatients(pool)
	}
	if practitioners == nil {
		practitioners = directory.NewPostgresPractitioners(pool)
	}

	staticHours, err := hours.NewStatic(
		config.String("BUSINESS_OPEN", "09:00"),
		config.String("BUSINESS_CLOSE", "17:00"),
		config.String("BUSINESS_TZ", ""),
	)
	if err != nil {
		panic(err)
	}
	hoursProvider := hours.NewPostgres(pool, staticHours)

	brokers := config.String("KAFKA_BROKERS", "")
	outboxRepo := audit.NewOutboxRepository(pool)
	auditPublisher := audit.NewPublisher(pool, outboxRepo, logger, audit.PublisherConfig{
		Brokers:   brokers,
		PollEvery: config.Duration("AUDIT_POLL_EVERY", 2*time.Second),
		BatchSize: config.Int("AUDIT_BATCH_SIZE", 50),
	})
	go auditPublisher.Run(ctx)
	if brokers != "" {
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)})
	}

	repo := storage.NewAppointmentRepository(pool)
	svc := scheduling.New(
		repo,
		cache,
		patients,
		practitioners,
		hoursProvider,
		catalog.NewStatic(),
		audit.NewOutboxSink(outboxRepo, logger),
		logger,
		scheduling.Config{
			DetailTTL: config.Duration("CACHE_DETAIL_TTL", scheduling.DefaultDetailTTL),
			ListTTL:   config.Duration("CACHE_LIST_TTL", scheduling.DefaultListTTL),
		},
	)
	apptHandler := handlers.NewAppointmentHandler(svc, logger)

	// The public slots endpoint is unauthenticated; rate limit it. The
	// Redis limiter keeps the window shared across replicas.
	var slotsLimit httpx.Middleware
	limit := config.Int("SLOTS_RATE_LIMIT", 120)
	window := config.Duration("SLOTS_RATE_WINDOW", time.Minute)
	if rdb != nil {
		slotsLimit = httpx.NewRedisRateLimiter(rdb, limit, window, "slots").Middleware(logger, true)
	} else {
		slotsLimit = httpx.NewRateLimiter(limit, window).Middleware()
	}

	mux := runtime.NewBaseMuxWithReady(readyChecks...)
	mux.HandleFunc("/api/v1/appointments", apptHandler.List)
	mux.HandleFunc("/api/v1/appointments/get", apptHandler.Get)
	mux.HandleFunc("/api/v1/appointments/book", apptHandler.Create)
	mux.HandleFunc("/api/v1/appointments/update", apptHandler.Update)
	mux.HandleFunc("/api/v1/appointments/cancel", apptHandler.Cancel)
	mux.HandleFunc("/api/v1/appointments/delete", apptHandler.Delete)
	mux.Handle("/api/v1/public/slots", slotsLimit(http.HandlerFunc(apptHandler.Slots)))

	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(int64(config.Int("MAX_BODY_BYTES", 1<<20))),
		httpx.WithTimeout(config.Duration("REQUEST_TIMEOUT", 15*time.Second)),
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins: splitList(config.String("CORS_ALLOWED_ORIGINS", "")),
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
			AllowedHeaders: []string{"Content-Type", "X-Tenant-Id", "X-Request-Id"},
			MaxAge:         10 * time.Minute,
		}),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "scheduling")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}
