package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/sewcraft/machines-backend/internal/catalog"
	"github.com/sewcraft/machines-backend/internal/clock"
	"github.com/sewcraft/machines-backend/internal/config"
	kafkax "github.com/sewcraft/machines-backend/internal/kafka"
	"github.com/sewcraft/machines-backend/internal/postgres"
	"github.com/sewcraft/machines-backend/internal/pricing"
	"github.com/sewcraft/machines-backend/internal/redisx"
)

func mustAtoi(s, def string) int {
	if s == "" {
		s = def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return 1
	}
	return i
}

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	loc := cfg.Location()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producer for price events
	prod := kafkax.NewProducer(cfg.KafkaBrokers, catalog.TopicPriceUpdated, 1024)
	prod.Start(ctx)

	// Pricing core
	products := &catalog.ProductRepo{DB: db}
	carts := &catalog.CartRepo{DB: db}
	notifier := &pricing.PubSubNotifier{Producer: prod, Redis: rdb, Service: cfg.ServiceName + "-sweeper"}
	syncer := &pricing.Synchronizer{Products: products, Carts: carts, Notify: notifier}
	engine := &pricing.Engine{
		Products: products,
		Carts:    syncer,
		Notify:   notifier,
		Clock:    clock.Real{Loc: loc},
		Cache:    rdb,
	}

	// Sweep trigger
	trigger := pricing.NewTrigger(engine, cfg.SweepInterval, loc)
	trigger.Start(ctx)

	// Audit consumer: records every price transition the sweep (or any
	// lazy evaluation in the api) produced.
	auditor := &pricing.Auditor{
		Events: &catalog.PriceEventRepo{DB: db},
		Redis:  rdb,
	}
	group := getenv("AUDIT_GROUP", "price-audit")
	workers := mustAtoi(os.Getenv("AUDIT_WORKERS"), "4")
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, group, catalog.TopicPriceUpdated, workers)
	go func() {
		log.Printf("audit consumer started: group=%s topic=%s workers=%d", group, catalog.TopicPriceUpdated, workers)
		if err := cons.Start(ctx, auditor.HandlePriceEvent); err != nil {
			log.Printf("audit consumer exit: %v", err)
			cancel()
		}
	}()

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	log.Println("shutting down sweeper...")
	trigger.Stop()
	cancel()
	time.Sleep(500 * time.Millisecond)
	prod.Close()
	prod.WaitClosed()
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
