package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/agentmint-dev/agentmint/internal/console"
	"github.com/agentmint-dev/agentmint/internal/handlers"
	"github.com/agentmint-dev/agentmint/internal/logger"
	"github.com/agentmint-dev/agentmint/internal/state"
)

func main() {
	// Configuration from environment
	logLevel := getEnv("LOG_LEVEL", "info")
	logPretty := getEnv("LOG_PRETTY", "false") == "true"
	bindAddr := getEnv("BIND_ADDR", "0.0.0.0:3000")
	dbPath := getEnv("DB_PATH", "agentmint.db")

	logger.Initialize(logLevel, logPretty)

	st, err := state.Build(dbPath)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("failed to build state")
	}
	defer st.AuditLog.Close()

	router := handlers.NewRouter(st)
	console.Banner(bindAddr, st.OIDC != nil, st.WebAuthn != nil)
	logger.Log.Info().Str("addr", bindAddr).Msg("starting agentmint")

	server := &http.Server{
		Addr:         bindAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Log.Error().Err(err).Msg("forced shutdown")
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
