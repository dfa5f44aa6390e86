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

	"github.com/explainer-ai/backend/internal/config"
	"github.com/explainer-ai/backend/internal/handler"
	"github.com/explainer-ai/backend/internal/service/ai"
	"github.com/explainer-ai/backend/internal/service/chat"
	"github.com/explainer-ai/backend/internal/service/user"
	"github.com/explainer-ai/backend/internal/store/anonymous"
	"github.com/explainer-ai/backend/internal/store/sqlite"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	db, err := sqlite.Open(ctx, cfg.Storage.DBPath)
	if err != nil {
		log.Fatalf("failed to open database %s: %v", cfg.Storage.DBPath, err)
	}
	defer db.Close()
	log.Printf("database ready at %s", cfg.Storage.DBPath)

	blob, closeBlob, err := openAnonymousBlob(cfg.Storage)
	if err != nil {
		log.Fatalf("failed to open anonymous history store: %v", err)
	}
	defer closeBlob()

	chatService := chat.NewService(db, anonymous.New(blob))
	userService := user.NewService(db)
	responder := ai.NewResponder(ctx, cfg.AI)

	router := handler.NewRouter(chatService, userService, responder, handler.Options{
		MetricsEnabled: cfg.Server.MetricsEnabled,
	})

	startServer(ctx, cfg.Server, router)
}

// openAnonymousBlob selects where the shared guest history document lives.
func openAnonymousBlob(cfg config.StorageConfig) (anonymous.Blob, func(), error) {
	if cfg.AnonStore != config.AnonStoreRedis {
		log.Printf("anonymous history file: %s", cfg.HistoryFile)
		return anonymous.NewFileBlob(cfg.HistoryFile), func() {}, nil
	}

	blob, err := anonymous.NewRedisBlob(anonymous.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		Key:      cfg.RedisKey,
	})
	if err != nil {
		return nil, nil, err
	}
	log.Printf("anonymous history in redis %s key=%s", cfg.RedisAddr, cfg.RedisKey)
	return blob, func() {
		if err := blob.Close(); err != nil {
			log.Printf("warning: failed to close redis client: %v", err)
		}
	}, nil
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("ExplAiner backend listening on %s", addr)
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
