package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"contactos/internal/config"
	"contactos/internal/database"
	"contactos/internal/metrics"
	"contactos/internal/server"
)

const (
	shutdownTimeout = 30 * time.Second
	readTimeout     = 15 * time.Second
	writeTimeout    = 15 * time.Second
	idleTimeout     = 60 * time.Second
)

func main() {
	log.SetPrefix("[API] ")
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := checkSecret(cfg); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	log.Printf("Starting %s v%s", cfg.App.Name, cfg.App.Version)
	log.Printf("Environment: debug=%v, port=%s, host=%s, language=%s, time_zone=%s",
		cfg.App.Debug, cfg.App.Port, cfg.App.Host, cfg.App.LanguageCode, cfg.App.TimeZone)

	log.Println("Initializing database connection...")
	if err := database.Init(&cfg.Database); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	db := database.GetDB()
	defer func() {
		log.Println("Closing database connections...")
		if err := database.Close(db); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()
	if err := metrics.InstrumentGorm(db); err != nil {
		log.Printf("Warning: failed to instrument database queries: %v", err)
	}

	srv, err := server.New(cfg, db)
	if err != nil {
		log.Fatalf("Failed to build server: %v", err)
	}

	addr := fmt.Sprintf("%s:%s", cfg.App.Host, cfg.App.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      srv.Handler(),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
		ErrorLog:     log.New(os.Stderr, "[HTTP] ", log.LstdFlags),
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Printf("Server listening on %s", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- fmt.Errorf("server error: %w", err)
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		log.Fatalf("Server failed to start: %v", err)
	case sig := <-shutdown:
		log.Printf("Received signal: %v. Starting graceful shutdown...", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("Error during graceful shutdown: %v", err)
		if errors.Is(err, context.DeadlineExceeded) {
			log.Println("Shutdown timeout exceeded, forcing close...")
			_ = httpServer.Close()
		}
	}

	log.Println("Server shutdown complete")
}

// checkSecret refuses the placeholder SECRET_KEY outside debug mode.
func checkSecret(cfg *config.Config) error {
	if cfg.Auth.HasDefaultSecret() {
		if !cfg.App.Debug {
			return fmt.Errorf("SECRET_KEY must be changed from its default value")
		}
		log.Println("Warning: using the default SECRET_KEY; set SECRET_KEY before deploying")
	}
	if len(cfg.Auth.SecretKey) < 32 && !cfg.App.Debug {
		return fmt.Errorf("SECRET_KEY must be at least 32 characters")
	}
	return nil
}
