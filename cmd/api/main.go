package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/kevin11236029/order-3/internal/config"
	"github.com/kevin11236029/order-3/internal/events"
	"github.com/kevin11236029/order-3/internal/hub"
	"github.com/kevin11236029/order-3/internal/httpx"
	"github.com/kevin11236029/order-3/internal/memstore"
	"github.com/kevin11236029/order-3/internal/orders"
	"github.com/kevin11236029/order-3/internal/pgstore"
	"github.com/kevin11236029/order-3/internal/postgres"
	"github.com/kevin11236029/order-3/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Storage: Postgres when a DSN is configured, process memory otherwise.
	var (
		inventory orders.InventoryStore
		ledger    orders.OrderLedger
		counter   orders.SequenceCounter
	)
	if cfg.PostgresDSN != "" {
		db, err := postgres.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Fatalf("db connect: %v", err)
		}
		defer db.Close()
		inventory = &pgstore.Inventory{DB: db}
		ledger = &pgstore.Ledger{DB: db}
		counter = &pgstore.Counter{DB: db}
	} else {
		log.Println("POSTGRES_DSN empty, using in-memory stores")
		inventory = memstore.NewInventory()
		ledger = memstore.NewLedger()
		counter = memstore.NewCounter()
	}

	// Redis (admin sessions)
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producers, optional
	var created, completed *events.Producer
	if len(cfg.KafkaBrokers) > 0 {
		created = events.NewProducer(cfg.KafkaBrokers, events.TopicOrderCreated, cfg.ServiceName, 1024)
		created.Start(ctx)
		completed = events.NewProducer(cfg.KafkaBrokers, events.TopicOrderCompleted, cfg.ServiceName, 1024)
		completed.Start(ctx)
	}

	broadcaster := hub.New()
	svc := &orders.Service{
		Inventory: inventory,
		Ledger:    ledger,
		Counter:   counter,
		Hub:       broadcaster,
	}

	router := httpx.NewRouter()
	h := &httpx.Handler{
		Service:         svc,
		Hub:             broadcaster,
		Sessions:        &redisx.Sessions{RDB: rdb},
		Password:        cfg.AdminPassword,
		CreatedEvents:   created,
		CompletedEvents: completed,
	}
	h.Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Printf("HTTP listening at %s", cfg.HTTPAddr)
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
	created.Close()
	completed.Close()
	created.WaitClosed()
	completed.WaitClosed()
}
