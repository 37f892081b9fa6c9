package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/pevans/newsmith/articles"
	"github.com/pevans/newsmith/logger"
)

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	_ = godotenv.Load()

	dbPath := flag.String("db", getEnv("NEWSMITH_STORE_DSN", "articles.db"), "Path to article database (NEWSMITH_STORE_DSN)")
	addr := flag.String("addr", getEnv("NEWSMITH_STORE_ADDR", "localhost:8080"), "Listen address (NEWSMITH_STORE_ADDR)")
	level := flag.String("log-level", getEnv("NEWSMITH_LOG_LEVEL", "info"), "Log level (NEWSMITH_LOG_LEVEL)")
	flag.Parse()

	log, err := logger.New(logger.Config{Level: *level})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(log, *dbPath, *addr); err != nil {
		log.Error("article store stopped", logger.Error(err))
		os.Exit(1)
	}
}

func run(log logger.Logger, dbPath, addr string) error {
	store, err := articles.NewStore(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open article store: %w", err)
	}
	defer store.Close()

	gin.SetMode(gin.ReleaseMode)
	router := articles.NewAPIServer(store).SetupRouter()

	server := &http.Server{
		Addr:              addr,
		Handler:           corsMiddleware(router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 1)
	go func() {
		log.Info("article store listening",
			logger.String("addr", addr),
			logger.String("db", dbPath),
		)
		errChan <- server.ListenAndServe()
	}()

	select {
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		log.Info("shutting down gracefully")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}

// corsMiddleware allows browser tools to read the store.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
