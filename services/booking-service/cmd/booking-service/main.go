package main

import (
	"context"
	"net/http"
	"time"

	"github.com/md-rashed-zaman/elevacare/libs/config"
	"github.com/md-rashed-zaman/elevacare/libs/db"
	"github.com/md-rashed-zaman/elevacare/libs/httpx"
	"github.com/md-rashed-zaman/elevacare/libs/kafkax"
	otelx "github.com/md-rashed-zaman/elevacare/libs/otel"
	"github.com/md-rashed-zaman/elevacare/libs/outbox"
	"github.com/md-rashed-zaman/elevacare/libs/runtime"
	"github.com/md-rashed-zaman/elevacare/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/elevacare/services/booking-service/internal/calendar"
	"github.com/md-rashed-zaman/elevacare/services/booking-service/internal/consumer"
	"github.com/md-rashed-zaman/elevacare/services/booking-service/internal/handlers"
	"github.com/md-rashed-zaman/elevacare/services/booking-service/internal/inbox"
	"github.com/md-rashed-zaman/elevacare/services/booking-service/internal/metrics"
	"github.com/md-rashed-zaman/elevacare/services/booking-service/internal/scheduling"
	"github.com/md-rashed-zaman/elevacare/services/booking-service/internal/storage"
	"github.com/md-rashed-zaman/elevacare/services/booking-service/migrations"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/oauth2"
)

var googleEndpoint = oauth2.Endpoint{
	AuthURL:  "https://accounts.google.com/o/oauth2/auth",
	TokenURL: "https://oauth2.googleapis.com/token",
}

func main() {
	_ = config.LoadDotenv()
	service := config.String("SERVICE_NAME", "booking-service")
	port, err := config.Port("PORT", "8083")
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
	if config.Bool("MIGRATE_ON_START", true) {
		if err := db.Migrate(dbURL, migrations.FS, "booking_schema_migrations", logger); err != nil {
			logger.Error("migrations failed", "err", err)
			panic(err)
		}
	}
	pool, err := db.Open(ctx, dbURL)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	rdb := redis.NewClient(&redis.Options{Addr: config.String("REDIS_ADDR", "localhost:6379")})
	defer func() { _ = rdb.Close() }()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewBookingMetrics(reg)

	upstream, conn, err := scheduling.Dial(ctx, config.String("SCHEDULING_GRPC_ADDR", "localhost:9092"))
	if err != nil {
		logger.Error("scheduling client init failed", "err", err)
		panic(err)
	}
	defer func() { _ = conn.Close() }()
	schedulingProvider := scheduling.NewCachedProvider(upstream, rdb, config.Duration("SCHEDULE_CACHE_TTL", scheduling.DefaultCacheTTL), logger)

	repo := storage.NewBookingRepository(pool)
	health := calendar.NewHealthMonitor(rdb, config.Duration("CALENDAR_HEALTH_WINDOW", 15*time.Minute))

	var external calendar.BusySource
	if config.Bool("GOOGLE_CALENDAR_ENABLED", false) {
		googleCfg := calendar.GoogleConfig{
			Endpoint: config.String("CALENDAR_API_ENDPOINT", ""),
			Timeout:  config.Duration("CALENDAR_TIMEOUT", 5*time.Second),
		}
		if clientID := config.String("GOOGLE_CLIENT_ID", ""); clientID != "" {
			googleCfg.OAuth = &oauth2.Config{
				ClientID:     clientID,
				ClientSecret: config.String("GOOGLE_CLIENT_SECRET", ""),
				Endpoint:     googleEndpoint,
			}
		}
		external = calendar.NewGoogleSource(googleCfg, storage.NewCalendarTokenRepository(pool), logger)
	}
	busy := calendar.NewCombined(calendar.NewBookingSource(repo), external, health, m, logger)

	brokers := config.String("KAFKA_BROKERS", "")
	outboxRepo := outbox.NewRepository()
	publisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   brokers,
		PollEvery: config.Duration("OUTBOX_POLL_INTERVAL", 2*time.Second),
		BatchSize: config.Int("OUTBOX_BATCH_SIZE", 50),
	})
	go publisher.Run(ctx)

	if len(kafkax.SplitBrokers(brokers)) > 0 {
		scheduleConsumer := consumer.New(logger, inbox.NewRepository(pool), consumer.Config{
			Brokers: brokers,
			GroupID: config.String("KAFKA_GROUP_ID", "booking-service"),
			Topic:   config.String("KAFKA_SCHEDULE_TOPIC", outbox.EventScheduleUpdated),
		}, consumer.ScheduleUpdated(schedulingProvider, logger))
		go scheduleConsumer.Run(ctx)
	} else {
		logger.Warn("kafka brokers not set; schedule cache relies on ttl expiry")
	}

	bookingHandler := handlers.NewBookingHandler(repo, outboxRepo, schedulingProvider, busy, m, logger, handlers.Config{
		Step:          config.Duration("SLOT_STEP", availability.DefaultStep),
		HorizonMonths: config.Int("SLOT_HORIZON_MONTHS", availability.DefaultHorizonMonths),
	})

	checks := []runtime.ReadyCheck{
		{Name: "db", Check: db.ReadyCheck(pool)},
		{Name: "redis", Check: func(ctx context.Context) error { return rdb.Ping(ctx).Err() }},
	}
	if len(kafkax.SplitBrokers(brokers)) > 0 {
		checks = append(checks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)})
	}
	mux := runtime.NewBaseMuxWithReady(checks...)
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/debug/calendar-health", handlers.CalendarHealth(health))
	mux.HandleFunc("/api/v1/public/slots", bookingHandler.Slots)
	mux.HandleFunc("/api/v1/public/book", bookingHandler.Create)
	mux.HandleFunc("/api/v1/appointments", bookingHandler.List)
	mux.HandleFunc("/api/v1/appointments/cancel", bookingHandler.Cancel)

	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "booking")
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
