package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/classpad/boardsync/internal/config"
	"github.com/classpad/boardsync/internal/storage"
	mongostore "github.com/classpad/boardsync/internal/storage/mongo"
)

// Run starts the relay and blocks.
func Run(cfg config.Config, logger *slog.Logger) error {
	snapshots := storage.SnapshotStore(storage.Noop{})
	if cfg.MongoURI != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		ms, err := mongostore.New(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return fmt.Errorf("snapshot store: %w", err)
		}
		snapshots = ms
		logger.Info("snapshots backed by mongo", "db", cfg.MongoDB)
	}

	s := NewServer(snapshots, logger)

	srv := &http.Server{
		Handler: s.Router(),
		Addr:    fmt.Sprintf("%s:%d", cfg.Addr, cfg.Port),
		// Good practice: enforce timeouts for servers you create!
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
	}

	logger.Info("boardsync relay listening", "addr", srv.Addr)
	return srv.ListenAndServe()
}
