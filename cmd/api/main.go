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

	"github.com/lumichat/backend/internal/config"
	"github.com/lumichat/backend/internal/handler"
	"github.com/lumichat/backend/internal/hub"
	authservice "github.com/lumichat/backend/internal/service/auth"
	chatservice "github.com/lumichat/backend/internal/service/chat"
	"github.com/lumichat/backend/internal/service/presence"
	"github.com/lumichat/backend/internal/store"
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

	db, err := store.Open(cfg.Store.Path)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}

	chatSvc := chatservice.NewService(db)
	authSvc := authservice.NewService(db, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	tracker := presence.NewTracker()

	coordinator := hub.New(chatSvc, tracker, authSvc, cfg.Hub.RequireAdminToken)
	if !cfg.Hub.RequireAdminToken {
		log.Println("warning: admin socket events are not token-gated (WS_REQUIRE_ADMIN_TOKEN=false)")
	}

	router := handler.NewRouter(chatSvc, authSvc, coordinator)

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("Lumichat hub listening on %s", serverCfg.Addr)
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
