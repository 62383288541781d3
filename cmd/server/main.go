package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	blobmemory "github.com/paylite/wallet-ledger/internal/blob/memory"
	blobpostgres "github.com/paylite/wallet-ledger/internal/blob/postgres"
	"github.com/paylite/wallet-ledger/internal/config"
	"github.com/paylite/wallet-ledger/internal/events"
	"github.com/paylite/wallet-ledger/internal/events/kafka"
	"github.com/paylite/wallet-ledger/internal/handler"
	interfaces "github.com/paylite/wallet-ledger/internal/interfaces"
	"github.com/paylite/wallet-ledger/internal/ledger"
	storememory "github.com/paylite/wallet-ledger/internal/storage/memory"
	storepostgres "github.com/paylite/wallet-ledger/internal/storage/postgres"
)

func main() {
	cfg := config.Load()

	var store interfaces.DocumentStore
	var blobs interfaces.BlobStore

	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Database connection failed: %v", err)
		}
		defer db.Close()

		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)

		if err := db.Ping(); err != nil {
			log.Fatalf("Database ping failed: %v", err)
		}

		pgStore := storepostgres.NewPostgresDocumentStore(db)
		if err := pgStore.RunMigrations(context.Background()); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
		store = pgStore
		blobs = blobpostgres.NewPostgresBlobStore(db)
		log.Println("Using postgres stores")
	} else {
		store = storememory.NewMemoryDocumentStore()
		blobs = blobmemory.NewMemoryBlobStore()
		log.Println("DATABASE_URL not set, using in-memory stores")
	}

	var pub interfaces.EventPublisher = events.NoopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPub := kafka.NewPublisher(cfg.KafkaBrokers)
		defer kafkaPub.Close()
		pub = kafkaPub
		log.Printf("Publishing transaction events to %v", cfg.KafkaBrokers)
	}

	ledgerService := ledger.NewLedger(store, blobs, pub, cfg.DemoOTP)
	walletHandler := handler.NewWalletHandler(ledgerService)

	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: walletHandler.Routes(),
	}

	go func() {
		log.Printf("Starting server on %s", cfg.ListenAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}
	log.Println("Server exiting")
}
