package main

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/md-rashed-zaman/elevacare/libs/config"
	"github.com/md-rashed-zaman/elevacare/libs/db"
	"github.com/md-rashed-zaman/elevacare/libs/grpcx"
	"github.com/md-rashed-zaman/elevacare/libs/httpx"
	"github.com/md-rashed-zaman/elevacare/libs/kafkax"
	otelx "github.com/md-rashed-zaman/elevacare/libs/otel"
	"github.com/md-rashed-zaman/elevacare/libs/outbox"
	"github.com/md-rashed-zaman/elevacare/libs/runtime"
	"github.com/md-rashed-zaman/elevacare/services/scheduling-service/internal/grpcserver"
	"github.com/md-rashed-zaman/elevacare/services/scheduling-service/internal/handlers"
	"github.com/md-rashed-zaman/elevacare/services/scheduling-service/internal/metrics"
	"github.com/md-rashed-zaman/elevacare/services/scheduling-service/internal/storage"
	"github.com/md-rashed-zaman/elevacare/services/scheduling-service/migrations"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	_ = config.LoadDotenv()
	service := config.String("SERVICE_NAME", "scheduling-service")
	port, err := config.Port("PORT", "8082")
	if err != nil {
		panic(err)
	}
	grpcPort, err := config.Port("GRPC_PORT", "9092")
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
		if err := db.Migrate(dbURL, migrations.FS, "scheduling_schema_migrations", logger); err != nil {
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

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewSchedulingMetrics(reg)

	outboxRepo := outbox.NewRepository()
	repo := storage.NewRepository(pool, outboxRepo)

	brokers := config.String("KAFKA_BROKERS", "")
	publisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   brokers,
		PollEvery: config.Duration("OUTBOX_POLL_INTERVAL", 2*time.Second),
		BatchSize: config.Int("OUTBOX_BATCH_SIZE", 50),
	})
	go publisher.Run(ctx)

	checks := []runtime.ReadyCheck{{Name: "db", Check: db.ReadyCheck(pool)}}
	if len(kafkax.SplitBrokers(brokers)) > 0 {
		checks = append(checks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)})
	}
	mux := runtime.NewBaseMuxWithReady(checks...)
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.Handle("/api/v1/", handlers.New(repo, logger, m).Routes())

	handler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
	)
	handler = otelhttp.NewHandler(handler, "scheduling")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	lis, err := net.Listen("tcp", ":"+grpcPort)
	if err != nil {
		logger.Error("grpc listen failed", "err", err)
		panic(err)
	}
	grpcSrv := grpcx.NewServer()
	grpcserver.Register(grpcSrv, repo, m)

	go func() {
		logger.Info("grpc server starting", "addr", lis.Addr().String())
		if err := grpcSrv.Serve(lis); err != nil {
			logger.Error("grpc server error", "err", err)
		}
	}()
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
	grpcSrv.GracefulStop()
	logger.Info("servers stopped")
}
