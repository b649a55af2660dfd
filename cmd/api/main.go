package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/civibot-ba/backend/internal/config"
	"github.com/civibot-ba/backend/internal/handler"
	"github.com/civibot-ba/backend/internal/service/assistant"
	"github.com/civibot-ba/backend/internal/service/booking"
	"github.com/civibot-ba/backend/internal/service/chat"
	"github.com/civibot-ba/backend/internal/service/records"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	recordsClient := records.NewClient(cfg.Records.BaseURL)
	assistantClient := assistant.NewClient(assistant.Config{
		URL:          cfg.Assistant.URL,
		Timeout:      cfg.Assistant.Timeout,
		GreetTimeout: cfg.Assistant.GreetTimeout,
		RetryExtra:   cfg.Assistant.RetryExtra,
	})

	chatService := chat.NewService(assistantClient, recordsClient)
	bookingService := booking.NewService(recordsClient, chatService)

	log.Printf("assistant webhook: %s", cfg.Assistant.URL)
	log.Printf("records API: %s", cfg.Records.BaseURL)

	router := handler.NewRouter(chatService, bookingService)

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("CiviBot backend listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
