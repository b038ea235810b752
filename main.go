package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"commerce/api"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	// .env 不存在時直接使用環境變數
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("fail to load .env", slog.Any("error", err))
	}

	args, err := ParseArgs()
	if err != nil {
		logger.Error("invalid arguments", slog.Any("error", err))
		os.Exit(1)
	}
	if err := args.Validate(); err != nil {
		logger.Error("missing arguments", slog.Any("error", err))
		os.Exit(1)
	}
	server, err := api.NewServer(args.ServerConfig, api.WithLogger(logger))
	if err != nil {
		logger.Error("fail to create server", slog.Any("error", err))
		os.Exit(1)
	}
	defer server.Close()
	if err := server.Start(); err != nil {
		logger.Error("fail to start server", slog.Any("error", err))
		return
	}

	httpServer := &http.Server{
		Addr:              args.ServerURL,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		logger.Info("server listening", slog.String("addr", args.ServerURL))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("fail to shutdown server", slog.Any("error", err))
	}
}
