package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"google.golang.org/grpc"

	"github.com/rl1809/zoo-retail/internal/adapter/auth"
	"github.com/rl1809/zoo-retail/internal/adapter/events"
	"github.com/rl1809/zoo-retail/internal/adapter/handler"
	"github.com/rl1809/zoo-retail/internal/adapter/storage"
	"github.com/rl1809/zoo-retail/internal/config"
	"github.com/rl1809/zoo-retail/internal/core/service"
	"github.com/rl1809/zoo-retail/internal/jobs"
	"github.com/rl1809/zoo-retail/internal/metrics"
	"github.com/rl1809/zoo-retail/internal/port"
	"github.com/rl1809/zoo-retail/internal/telemetry"
)

type closablePublisher interface {
	port.EventPublisher
	Close() error
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.Load()

	shutdownTracing, err := telemetry.Setup(cfg.Tracing)
	if err != nil {
		log.Fatalf("failed to set up tracing: %v", err)
	}

	// Initialize catalog and ledger store
	db, err := storage.Open(ctx, cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		log.Fatalf("failed to connect %s: %v", cfg.DBDriver, err)
	}
	log.Printf("connected to %s", cfg.DBDriver)

	store := storage.NewSQLAdapter(db)
	if err := store.Migrate(ctx); err != nil {
		log.Fatalf("failed to migrate: %v", err)
	}

	if cfg.SeedFile != "" {
		outlets, err := storage.LoadSeedFile(cfg.SeedFile)
		if err != nil {
			log.Fatalf("failed to load seed file: %v", err)
		}
		n, err := store.Seed(ctx, outlets)
		if err != nil {
			log.Fatalf("failed to seed catalog: %v", err)
		}
		log.Printf("seeded %d new items from %s", n, cfg.SeedFile)
	}

	// Initialize Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		PoolSize: 100,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to connect redis: %v", err)
	}
	log.Println("connected to redis")
	cache := storage.NewRedisAdapter(rdb, cfg.CheckoutGuardTTL, cfg.SnapshotTTL)

	var publisher closablePublisher = events.NopPublisher{}
	if brokers := events.ParseBrokers(cfg.KafkaBrokers); len(brokers) > 0 {
		publisher = events.NewKafkaPublisher(brokers, cfg.KafkaTopic)
		log.Printf("publishing sale events to %s on %v", cfg.KafkaTopic, brokers)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// Initialize services
	catalogService := service.NewCatalogService(store, cache)
	checkoutService := service.NewCheckoutService(store, store,
		service.WithCheckoutGuard(cache),
		service.WithEventPublisher(publisher),
		service.WithCheckoutMetrics(metrics.NewCheckoutMetrics(registry)),
		service.WithCheckoutTimeout(cfg.RequestTimeout),
	)
	cartService := service.NewCartService(catalogService, checkoutService)
	identity := auth.NewJWTProvider(cfg.JWTSecret, 0)

	if _, err := catalogService.Refresh(ctx); err != nil {
		log.Fatalf("failed to load catalog snapshot: %v", err)
	}

	scheduler, err := jobs.NewLowStockJob(catalogService, publisher).Schedule(cfg.LowStockInterval)
	if err != nil {
		log.Fatalf("failed to start low stock job: %v", err)
	}
	log.Printf("low stock sweep every %s", cfg.LowStockInterval)

	// Initialize gRPC server
	grpcServer := grpc.NewServer()
	handler.NewGRPCHandler(cartService, catalogService, identity).Register(grpcServer)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		log.Fatalf("failed to listen: %v", err)
	}

	go func() {
		log.Printf("gRPC server listening on %s", cfg.GRPCAddr)
		if err := grpcServer.Serve(lis); err != nil {
			log.Printf("gRPC server error: %v", err)
		}
	}()

	// Initialize HTTP server
	httpHandler := handler.NewHTTPHandler(cartService, catalogService, checkoutService, identity,
		handler.WithHTTPMetrics(metrics.NewServerMetrics(registry, "http"), registry),
		handler.WithRequestTimeout(cfg.RequestTimeout),
	)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           otelhttp.NewHandler(httpHandler.Router(), "zoo-retail"),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("HTTP server listening on %s", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("HTTP server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
	log.Println("HTTP server stopped")

	grpcServer.GracefulStop()
	log.Println("gRPC server stopped")

	scheduler.Stop()
	log.Printf("low stock job stopped, %d carts left open", cartService.Sessions())

	if err := publisher.Close(); err != nil {
		log.Printf("failed to close event publisher: %v", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Printf("failed to flush traces: %v", err)
	}

	rdb.Close()
	store.Close()
	log.Println("connections closed")
}
