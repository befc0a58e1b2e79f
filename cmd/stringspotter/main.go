// stringspotter turns user-supplied text into transparent-background
// PNG images over HTTP, rendering with built-in or user-uploaded
// fonts.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kurinobu/StringSpotter/font"
	"github.com/kurinobu/StringSpotter/server"
)

func main() {
	addr := flag.String("addr", envOr("STRINGSPOTTER_ADDR", ":8080"), "listen address")
	fontsDir := flag.String("fonts", envOr("FONTS_FOLDER", "fonts"), "directory for uploaded fonts")
	renderTimeout := flag.Duration("render-timeout", 10*time.Second, "per-request render deadline (0 disables)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)
	server.SetLogger(logger)

	registry, err := font.NewRegistry(*fontsDir, logger)
	if err != nil {
		logger.Error("registry initialization failed", "error", err)
		os.Exit(1)
	}
	logger.Info("font registry ready", "dir", *fontsDir, "fonts", len(registry.IDs()))

	handler := server.NewHandler(registry, *renderTimeout)
	srv := server.New(server.Config{
		Addr:    *addr,
		Handler: handler.Routes(),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", "error", err)
			os.Exit(1)
		}
	}
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
