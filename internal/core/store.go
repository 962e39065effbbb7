// AngelaMos | 2026
// store.go

package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/zacanbrcom/auditorium-booking/internal/config"
	"github.com/zacanbrcom/auditorium-booking/internal/kv"
	"github.com/zacanbrcom/auditorium-booking/internal/store"
)

// NewStore opens the configured engine and wraps it in a store handle.
// The engine is pinged before the handle is returned.
func NewStore(
	ctx context.Context,
	cfg config.StoreConfig,
	logger *slog.Logger,
) (*store.DB, error) {
	engine, err := kv.Open(cfg.Driver, cfg.Path, kv.Options{
		OpenTimeout: cfg.OpenTimeout,
		NoSync:      cfg.NoSync,
	})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	db := store.New(engine, store.Options{
		Logger:    logger.With("component", "store"),
		ScanBatch: cfg.ScanBatch,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.Ping(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping store: %w", err)
	}

	return db, nil
}
