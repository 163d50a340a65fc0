/*
Package main is the entry point for the room relay server.

It loads configuration (optionally from a local .env file), initializes the
global logger, wires the room registry and dispatcher into the HTTP router,
and shuts the server down gracefully on SIGINT or SIGTERM.
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"roomrelay/internal/app/chat"
	"roomrelay/internal/configs"
	"roomrelay/internal/handler"
	"roomrelay/internal/pkg/logx"
)

func main() {
	// Local development convenience; a missing .env is not an error.
	_ = godotenv.Load()

	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logx.InitGlobalLogger(cfg.IsDevelopment())
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Str("static_dir", cfg.StaticDir).
		Int("send_queue_size", cfg.SendQueueSize).
		Float64("frame_rate", cfg.FrameRate).
		Msg("Configuration loaded successfully")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dispatcher := chat.NewDispatcher(chat.NewRegistry())

	router := handler.Router(ctx, &handler.AppDeps{
		Dispatcher: dispatcher,
		Config:     cfg,
	})

	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:              serverAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logx.Info("Room relay listening", "addr", serverAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logx.Fatal(err, "Server failed to start")
		}
	}()

	<-ctx.Done()
	logx.Info("Received shutdown signal. Starting graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Error(err, "Server forced to shutdown")
	}

	// Hijacked WebSocket connections are not covered by server.Shutdown.
	dispatcher.Shutdown()

	logx.Info("Server gracefully stopped.")
}
