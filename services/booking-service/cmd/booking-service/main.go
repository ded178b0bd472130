package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
	"time"

	"github.com/md-rashed-zaman/barbershop/libs/config"
	"github.com/md-rashed-zaman/barbershop/libs/db"
	"github.com/md-rashed-zaman/barbershop/libs/httpx"
	"github.com/md-rashed-zaman/barbershop/libs/kafkax"
	"github.com/md-rashed-zaman/barbershop/libs/metrics"
	otelx "github.com/md-rashed-zaman/barbershop/libs/otel"
	"github.com/md-rashed-zaman/barbershop/libs/runtime"
	"github.com/md-rashed-zaman/barbershop/services/booking-service/internal/adminauth"
	"github.com/md-rashed-zaman/barbershop/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/barbershop/services/booking-service/internal/events"
	"github.com/md-rashed-zaman/barbershop/services/booking-service/internal/handlers"
	"github.com/md-rashed-zaman/barbershop/services/booking-service/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		panic(err)
	}
	service := config.String("SERVICE_NAME", "booking-service")
	port, err := config.Port("PORT", "8080")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service, config.String("LOG_LEVEL", "info"))

	ctx, stop := runtime.SignalContext()
	defer stop()

	loc, err := config.Location("BOOKING_TIMEZONE")
	if err != nil {
		logger.Error("invalid timezone", "err", err)
		panic(err)
	}

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service,
		attribute.String("barbershop.timezone", loc.String()),
		attribute.String("barbershop.store", storeKind()),
	))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	store, storeCheck, closeStore, err := openStore(ctx, logger)
	if err != nil {
		logger.Error("store init failed", "err", err)
		panic(err)
	}
	defer closeStore()

	brokers := config.String("KAFKA_BROKERS", "")
	publisher := events.NewKafkaPublisher(logger, events.KafkaConfig{
		Brokers: brokers,
		Timeout: config.Duration("KAFKA_PUBLISH_TIMEOUT", 5*time.Second),
	})
	defer func() { _ = publisher.Close() }()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	bookingMetrics := metrics.NewBookingMetrics(registry)

	svc, err := booking.NewService(store, publisher, bookingMetrics, logger, booking.Config{Location: loc})
	if err != nil {
		logger.Error("booking service init failed", "err", err)
		panic(err)
	}

	secret, err := adminSecret(logger)
	if err != nil {
		logger.Error("admin token secret missing", "err", err)
		panic(err)
	}
	authn, err := adminauth.New(adminauth.Config{
		Username: config.String("ADMIN_USER", "admin"),
		Password: config.String("ADMIN_PASSWORD", "1234"),
		Secret:   secret,
		TTL:      config.Duration("ADMIN_SESSION_TTL", adminauth.DefaultTTL),
	}, bookingMetrics)
	if err != nil {
		logger.Error("admin auth init failed", "err", err)
		panic(err)
	}

	rateLimitMW, redisCheck, closeRedis := rateLimiter(logger)
	defer closeRedis()

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "store", Check: storeCheck},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)},
		runtime.ReadyCheck{Name: "redis", Check: redisCheck},
	)
	mux.Handle("/metrics", metrics.Handler(registry))

	bookingHandler := handlers.NewBookingHandler(svc, logger)
	adminHandler := handlers.NewAdminHandler(svc, authn, bookingMetrics, logger)
	mux.HandleFunc("/api/v1/public/catalog", bookingHandler.Catalog)
	mux.HandleFunc("/api/v1/public/slots", bookingHandler.Slots)
	mux.HandleFunc("/api/v1/public/bookings", bookingHandler.Create)
	mux.HandleFunc("/api/v1/admin/login", adminHandler.Login)
	mux.Handle("/api/v1/admin/bookings", authn.RequireAdmin(http.HandlerFunc(adminHandler.List)))
	mux.Handle("/api/v1/admin/bookings/export", authn.RequireAdmin(http.HandlerFunc(adminHandler.Export)))

	httpHandler := httpx.Chain(mux,
		httpx.WithCORS(corsPolicy()),
		httpx.WithRequestID,
		httpx.WithAccessLog(logger, "/healthz", "/readyz", "/metrics"),
		httpx.WithBodyLimit(int64(config.Int("REQUEST_BODY_LIMIT_BYTES", 64<<10))),
		httpx.WithTimeout(config.Duration("REQUEST_TIMEOUT", 10*time.Second)),
		rateLimitMW,
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "booking")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("booking service ready", "timezone", loc.String())
	if err := runtime.Serve(ctx, srv, logger, 10*time.Second); err != nil {
		logger.Error("booking service exiting", "err", err)
	}
}

// corsPolicy lets the shop's site embed the public widget. The admin routes
// are same-origin unless CORS_ADMIN_ORIGINS lists the back-office host, and
// only they expose Content-Disposition so a browser can name the CSV download.
func corsPolicy() httpx.CORSPolicy {
	return httpx.CORSPolicy{
		MaxAge: config.Duration("CORS_MAX_AGE", 10*time.Minute),
		Rules: []httpx.CORSRule{
			{
				PathPrefix:     "/api/v1/public/",
				AllowedOrigins: config.List("CORS_ALLOWED_ORIGINS", ""),
				AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
				AllowedHeaders: []string{"Content-Type", httpx.RequestIDHeader},
				ExposedHeaders: []string{httpx.RequestIDHeader, "Retry-After"},
			},
			{
				PathPrefix:     "/api/v1/admin/",
				AllowedOrigins: config.List("CORS_ADMIN_ORIGINS", ""),
				AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
				AllowedHeaders: []string{"Authorization", "Content-Type", httpx.RequestIDHeader},
				ExposedHeaders: []string{"Content-Disposition", httpx.RequestIDHeader, "Retry-After"},
			},
		},
	}
}

func storeKind() string {
	if config.String("DATABASE_URL", "") != "" {
		return "postgres"
	}
	return "file"
}

// openStore picks Postgres when DATABASE_URL is set and the JSON file store
// otherwise.
func openStore(ctx context.Context, logger *slog.Logger) (storage.Store, func(context.Context) error, func(), error) {
	if storeKind() == "postgres" {
		dbURL := config.String("DATABASE_URL", "")
		pool, err := db.Open(ctx, dbURL, db.Options{
			MaxConns: int32(config.Int("DB_MAX_CONNS", 4)),
			MinConns: int32(config.Int("DB_MIN_CONNS", 1)),
		})
		if err != nil {
			return nil, nil, func() {}, err
		}
		store := storage.NewPostgresStore(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, func() {}, err
		}
		logger.Info("using postgres store")
		return store, db.ReadyCheck(pool), pool.Close, nil
	}

	store := storage.NewFileStore(config.String("BOOKINGS_FILE", "data/bookings.json"), logger)
	logger.Info("using file store", "path", store.Path())
	return store, store.Ping, func() {}, nil
}

// rateLimiter guards the two write routes. Logins get a tighter allowance than
// bookings; each route is bucketed separately per client.
func rateLimiter(logger *slog.Logger) (httpx.Middleware, func(context.Context) error, func()) {
	bookingLimit := config.Int("RATE_LIMIT_PER_MINUTE", 20)
	loginLimit := config.Int("RATE_LIMIT_LOGIN_PER_MINUTE", 5)

	var bookings, logins httpx.Middleware
	var check func(context.Context) error
	closeFn := func() {}

	if addr := config.String("REDIS_ADDR", ""); addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: config.String("REDIS_PASSWORD", ""),
			DB:       config.Int("REDIS_DB", 0),
		})
		prefix := config.String("RATE_LIMIT_PREFIX", "")
		failOpen := config.Bool("RATE_LIMIT_FAIL_OPEN", true)
		bookingRL := httpx.NewRedisRateLimiter(rdb, bookingLimit, time.Minute, prefix)
		loginRL := httpx.NewRedisRateLimiter(rdb, loginLimit, time.Minute, prefix)
		bookings = bookingRL.Middleware(logger, failOpen)
		logins = loginRL.Middleware(logger, failOpen)
		check = bookingRL.Ping
		closeFn = func() { _ = rdb.Close() }
		logger.Info("rate limiting enabled (redis)", "bookings_per_minute", bookingLimit, "logins_per_minute", loginLimit, "redis_addr", addr)
	} else {
		bookings = httpx.NewRateLimiter(bookingLimit, time.Minute).Middleware()
		logins = httpx.NewRateLimiter(loginLimit, time.Minute).Middleware()
		logger.Info("rate limiting enabled (in-memory)", "bookings_per_minute", bookingLimit, "logins_per_minute", loginLimit)
	}

	bookings = httpx.OnlyPaths(bookings, "/api/v1/public/bookings")
	logins = httpx.OnlyPaths(logins, "/api/v1/admin/login")
	return func(next http.Handler) http.Handler {
		return bookings(logins(next))
	}, check, closeFn
}

// adminSecret reads ADMIN_TOKEN_SECRET. With ADMIN_REQUIRE_SECRET set the
// variable is mandatory; otherwise a random per-process secret is used.
func adminSecret(logger *slog.Logger) (string, error) {
	if config.Bool("ADMIN_REQUIRE_SECRET", false) {
		return config.RequiredString("ADMIN_TOKEN_SECRET")
	}
	if secret := config.String("ADMIN_TOKEN_SECRET", ""); secret != "" {
		return secret, nil
	}
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	logger.Warn("ADMIN_TOKEN_SECRET not set; admin sessions will not survive a restart")
	return hex.EncodeToString(buf), nil
}
