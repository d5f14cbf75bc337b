package auth

import (
	"context"
	"fmt"

	"github.com/annel0/mmo-tiles/internal/config"
	"github.com/annel0/mmo-tiles/internal/logging"
)

// NewAccountRepo выбирает хранилище учётных записей по конфигурации.
// Память получает учётные записи разработчика (SeedDevAccounts).
// Недоступная база заменяется памятью.
func NewAccountRepo(ctx context.Context, login config.LoginConfig, storage config.StorageConfig) (AccountRepository, error) {
	repo, err := openAccountRepo(ctx, login.Accounts, storage)
	if err != nil {
		logging.Warn("⚠️ Хранилище учётных записей %s недоступно: %v. Используется память", login.Accounts, err)
		repo = NewMemoryAccountRepo()
	}
	if mem, ok := repo.(*MemoryAccountRepo); ok {
		if err := SeedDevAccounts(ctx, mem); err != nil {
			return nil, fmt.Errorf("учётные записи разработчика: %w", err)
		}
		logging.Info("👤 Учётные записи в памяти: test/test, admin/admin")
		return mem, nil
	}
	logging.Info("👤 Хранилище учётных записей: %s", login.Accounts)
	return repo, nil
}

func openAccountRepo(ctx context.Context, kind string, storage config.StorageConfig) (AccountRepository, error) {
	switch kind {
	case "", "memory":
		return NewMemoryAccountRepo(), nil
	case "maria":
		dsn := storage.GetMariaDSN()
		if dsn == "" {
			return nil, fmt.Errorf("не задан DSN MariaDB")
		}
		return NewMariaAccountRepo(dsn)
	case "mongo":
		return NewMongoAccountRepo(ctx, MongoConfig{URI: storage.GetMongoURI(), Database: storage.MongoDB})
	default:
		return nil, fmt.Errorf("неизвестное хранилище %q", kind)
	}
}
