package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"

	"github.com/sewcraft/machines-backend/internal/catalog"
	"github.com/sewcraft/machines-backend/internal/clock"
	"github.com/sewcraft/machines-backend/internal/config"
	"github.com/sewcraft/machines-backend/internal/httpx"
	kafkax "github.com/sewcraft/machines-backend/internal/kafka"
	"github.com/sewcraft/machines-backend/internal/postgres"
	"github.com/sewcraft/machines-backend/internal/pricing"
	"github.com/sewcraft/machines-backend/internal/push"
	"github.com/sewcraft/machines-backend/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	loc := cfg.Location()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producer for price events
	prod := kafkax.NewProducer(cfg.KafkaBrokers, catalog.TopicPriceUpdated, 1024)
	prod.Start(ctx)

	// Repos
	products := &catalog.ProductRepo{DB: db}
	carts := &catalog.CartRepo{DB: db}
	favorites := &catalog.FavoriteRepo{DB: db}
	events := &catalog.PriceEventRepo{DB: db}

	// Pricing core: same engine serves every lazy read path.
	notifier := &pricing.PubSubNotifier{Producer: prod, Redis: rdb, Service: cfg.ServiceName}
	syncer := &pricing.Synchronizer{Products: products, Carts: carts, Notify: notifier}
	engine := &pricing.Engine{
		Products: products,
		Carts:    syncer,
		Notify:   notifier,
		Clock:    clock.Real{Loc: loc},
		Cache:    rdb,
	}

	// Handlers
	router := httpx.NewRouter()
	ph := &httpx.ProductsHandler{Repo: products, Events: events, Engine: engine, Redis: rdb, Loc: loc}
	ch := &httpx.CartHandler{Carts: carts, Products: products, Favorites: favorites, Engine: engine}
	router.Group(func(r chi.Router) {
		r.Use(httpx.APITimeout())
		ph.Register(r)
		ch.Register(r)
	})
	// SSE streams live outside the request timeout.
	sh := &httpx.PushHandler{Stream: &push.Stream{Redis: rdb}}
	sh.Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	// graceful shutdown
	go func() {
		log.Printf("HTTP listening at %s (zone %s)", cfg.HTTPAddr, loc)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	prod.Close() // close inbox -> flush & close writer
	cancel()
	prod.WaitClosed()
}
