package storage

import (
	"context"
	"fmt"

	"github.com/annel0/mmo-tiles/internal/config"
	"github.com/annel0/mmo-tiles/internal/logging"
)

// NewPositionRepo выбирает хранилище позиций по конфигурации.
// Если внешнее хранилище недоступно, используется память.
func NewPositionRepo(ctx context.Context, cfg config.StorageConfig) PositionRepo {
	repo, err := openPositionRepo(ctx, cfg)
	if err != nil {
		logging.Warn("⚠️ Хранилище позиций %s недоступно: %v. Используется память", cfg.Positions, err)
		return NewMemoryPositionRepo()
	}
	logging.Info("📍 Хранилище позиций: %s", cfg.Positions)
	return repo
}

func openPositionRepo(ctx context.Context, cfg config.StorageConfig) (PositionRepo, error) {
	switch cfg.Positions {
	case "", "memory":
		return NewMemoryPositionRepo(), nil
	case "redis":
		rc := DefaultRedisConfig()
		rc.Addr = cfg.GetRedisAddr()
		return NewRedisPositionRepo(ctx, rc)
	case "maria":
		dsn := cfg.GetMariaDSN()
		if dsn == "" {
			return nil, fmt.Errorf("не задан DSN MariaDB")
		}
		return NewMariaPositionRepo(dsn)
	case "badger":
		return NewBadgerPositionRepo(cfg.BadgerPath)
	case "bolt":
		return NewBoltPositionRepo(cfg.BoltPath)
	default:
		return nil, fmt.Errorf("неизвестное хранилище %q", cfg.Positions)
	}
}
