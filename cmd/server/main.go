package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"facet.views/config"
	"facet.views/internal/api"
	"facet.views/internal/crypto"
	"facet.views/internal/models"
	"facet.views/internal/store"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("config error", slog.Any("error", err))
		os.Exit(1)
	}

	st := initStore(cfg)
	defer st.Close()

	if err := bootstrapOwner(cfg, st); err != nil {
		slog.Error("owner bootstrap failed", slog.Any("error", err))
		os.Exit(1)
	}

	router := api.SetupRouter(st, cfg, logger)

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	slog.Info("server starting",
		slog.String("addr", cfg.Addr()),
		slog.String("base_url", cfg.Server.BaseURL),
		slog.String("store", cfg.Store.Type),
	)

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt)
		<-sig

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func initStore(cfg *config.Config) store.Store {
	switch cfg.Store.Type {
	case "redis":
		st, err := store.NewRedisStore(&redis.Options{
			Addr:     cfg.Store.Redis.Addr,
			Password: cfg.Store.Redis.Password,
			DB:       cfg.Store.Redis.DB,
		})
		if err != nil {
			slog.Error("redis connection failed", slog.Any("error", err))
			os.Exit(1)
		}
		return st
	default:
		return store.NewMemoryStore()
	}
}

// bootstrapOwner seeds one management credential from config so a fresh
// deployment can create views without touching the store directly.
func bootstrapOwner(cfg *config.Config, st store.Store) error {
	if cfg.Auth.OwnerKey == "" {
		return nil
	}

	ownerID := cfg.Auth.OwnerID
	if ownerID == "" {
		ownerID = uuid.NewString()
	}

	codec := crypto.NewCodec(cfg.Auth.Secret)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return st.SaveOwner(ctx, &models.Owner{
		ID:        ownerID,
		KeyDigest: codec.Digest(cfg.Auth.OwnerKey),
		CreatedAt: time.Now(),
	})
}
