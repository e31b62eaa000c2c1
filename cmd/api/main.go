package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shipfabric/shipfabric/internal/config"
	"github.com/shipfabric/shipfabric/internal/database"
	"github.com/shipfabric/shipfabric/internal/delivery"
	"github.com/shipfabric/shipfabric/internal/delivery/dhl"
	"github.com/shipfabric/shipfabric/internal/delivery/gls"
	"github.com/shipfabric/shipfabric/internal/delivery/packeta"
	"github.com/shipfabric/shipfabric/internal/handlers"
	"github.com/shipfabric/shipfabric/internal/models"
	deliveryService "github.com/shipfabric/shipfabric/internal/services/delivery"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// 2. Initialize database (detects embedded vs external automatically)
	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// 3. Auto-migrate schema
	log.Println("Synchronizing database schema...")
	if err := db.AutoMigrate(
		&models.UserAuth{},
		&models.ShipmentRecord{},
		&models.ParcelRecord{},
		&models.CarrierResourceRecord{},
		&models.LabelFileRecord{},
		&models.TrackingEventRecord{},
	); err != nil {
		log.Printf("Migration warning: %v", err)
	} else {
		log.Println("Schema synchronized successfully")
	}

	// 4. Register carrier adapters
	registry := delivery.NewRegistry()

	dhlAdapter := dhl.New(dhl.Config{
		BaseURL:        cfg.DHL.BaseURL,
		APIKey:         cfg.DHL.APIKey,
		AccountingCode: cfg.DHL.AccountingCode,
		UseTestAPI:     cfg.UseTestAPI,
		Debug:          cfg.HTTPDebug,
		DebugFull:      cfg.HTTPDebugFull,
	})
	if err := registry.Register(dhlAdapter); err != nil {
		log.Printf("Delivery: failed to register dhl: %v", err)
	}

	glsAdapter := gls.New(gls.Config{
		BaseURL:      cfg.GLS.BaseURL,
		Username:     cfg.GLS.Username,
		Password:     cfg.GLS.Password,
		ClientID:     cfg.GLS.ClientID,
		ClientSecret: cfg.GLS.ClientSecret,
		TokenURL:     cfg.GLS.TokenURL,
		UseTestAPI:   cfg.UseTestAPI,
		Debug:        cfg.HTTPDebug,
		DebugFull:    cfg.HTTPDebugFull,
	})
	if err := registry.Register(glsAdapter); err != nil {
		log.Printf("Delivery: failed to register gls: %v", err)
	}

	packetaAdapter := packeta.New(packeta.Config{
		BaseURL:    cfg.Packeta.BaseURL,
		APIKey:     cfg.Packeta.APIKey,
		UseTestAPI: cfg.UseTestAPI,
		Debug:      cfg.HTTPDebug,
		DebugFull:  cfg.HTTPDebugFull,
	})
	if err := registry.Register(packetaAdapter); err != nil {
		log.Printf("Delivery: failed to register packeta: %v", err)
	}
	log.Println("Delivery: carrier adapters registered")

	// 5. Wire the persistence-backed orchestration flow
	store := deliveryService.NewGormStore(db)
	flow := deliveryService.NewFlow(registry, store)

	// 6. Set up HTTP router
	router := handlers.NewRouter(db, registry, flow)

	// 7. Start server with graceful shutdown
	port := cfg.Port
	server := &http.Server{
		Addr:    ":" + port,
		Handler: router.Handler(),
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		log.Printf("Server starting on port %s [prefix: %q]", port, cfg.PathPrefix)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	sig := <-shutdown
	log.Printf("Received signal: %v. Shutting down gracefully...", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	log.Println("Closing database connection...")
	if err := db.Close(); err != nil {
		log.Printf("Database close error: %v", err)
	}

	log.Println("Shutdown complete")
}
