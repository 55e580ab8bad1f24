package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/nepsetrack/portfolio-service/internal/api"
	"github.com/nepsetrack/portfolio-service/internal/auth"
	"github.com/nepsetrack/portfolio-service/internal/config"
	"github.com/nepsetrack/portfolio-service/internal/database"
	"github.com/nepsetrack/portfolio-service/internal/kafka"
	"github.com/nepsetrack/portfolio-service/internal/market"
	"github.com/nepsetrack/portfolio-service/internal/portfolio"
)

const migrationsDir = "db/migrations"

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()

	db, err := database.New(cfg.Database.ConnectionString())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Migrate(migrationsDir); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	cache := market.NewCache(rdb)
	source := market.NewSource(cache, db)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Feed.PollEnabled {
		poller := market.NewPoller(market.NewClient(cfg.Feed.ProxyURL), cache, db, cfg.Feed.PollInterval)
		go poller.Run(ctx)
	}

	if cfg.Kafka.ConsumeEnabled {
		consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.FeedTopic, cfg.Kafka.FeedGroupID, cache, db)
		go func() {
			if err := consumer.Start(ctx); err != nil {
				log.Printf("Kafka consumer stopped: %v", err)
			}
		}()
	}

	producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.EventsTopic)
	defer producer.Close()

	verifier := auth.NewCachingVerifier(
		auth.NewProviderClient(cfg.Auth.ProviderURL, cfg.Auth.APIKey),
		cfg.Auth.CacheTTL,
	)

	ledger := portfolio.NewLedger(db, source)
	handler := api.NewHandler(ledger, db, source, producer)
	router := api.SetupRoutes(handler, verifier)

	addr := net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("HTTP server listening on %s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown failed: %v", err)
	}
	log.Println("HTTP server stopped")
}
