package repository

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/joseph-ayodele/fan-ledger/internal/common"
)

// OpenStore builds the sheet store selected by cfg.Backend.
func OpenStore(ctx context.Context, cfg common.StoreConfig, logger *slog.Logger) (Sheets, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch cfg.Backend {
	case "", "xlsx":
		return NewXLSXStore(cfg.Path, logger), nil
	case "sqlite":
		drv, err := OpenSQLite(cfg.Path, logger)
		if err != nil {
			return nil, err
		}
		lockPath := ""
		if cfg.Path != ":memory:" {
			lockPath = filepath.Clean(cfg.Path) + ".lock"
		}
		store, err := NewSQLStore(ctx, drv, nil, lockPath, logger)
		if err != nil {
			_ = drv.Close()
			return nil, err
		}
		return store, nil
	case "postgres":
		drv, pool, err := Open(ctx, ConfigFrom(cfg), logger)
		if err != nil {
			return nil, err
		}
		if err := HealthCheck(ctx, drv, common.Seconds(cfg.DialTimeout), logger); err != nil {
			Close(drv, pool, logger)
			return nil, err
		}
		store, err := NewSQLStore(ctx, drv, pool, "", logger)
		if err != nil {
			Close(drv, pool, logger)
			return nil, err
		}
		return store, nil
	default:
		return nil, common.NewAppError(common.CodeConfig, fmt.Sprintf("unknown store backend %q", cfg.Backend), common.ErrInvalidInput)
	}
}
