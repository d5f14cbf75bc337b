package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/annel0/mmo-tiles/internal/logging"
	"github.com/annel0/mmo-tiles/internal/vec"
	"github.com/go-redis/redis/v8"
)

// RedisPositionRepo хранит позиции персонажей в Redis.
// Значения упакованы msgpack (см. codec.go).
type RedisPositionRepo struct {
	client    redis.UniversalClient
	keyPrefix string
	ttl       time.Duration
}

// RedisConfig содержит настройки подключения к Redis
type RedisConfig struct {
	Addr      string        // Адрес Redis сервера
	Password  string        // Пароль (пустой если не требуется)
	DB        int           // Номер базы данных
	KeyPrefix string        // Префикс для ключей
	TTL       time.Duration // Время жизни записей, 0 без ограничения
}

// DefaultRedisConfig возвращает конфигурацию по умолчанию
func DefaultRedisConfig() *RedisConfig {
	return &RedisConfig{
		Addr:      "localhost:6379",
		KeyPrefix: "tiles:pos:",
	}
}

// NewRedisPositionRepo подключается к Redis и проверяет соединение
func NewRedisPositionRepo(ctx context.Context, config *RedisConfig) (*RedisPositionRepo, error) {
	if config == nil {
		config = DefaultRedisConfig()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("не удалось подключиться к Redis: %w", err)
	}

	logging.Info("🔴 Подключено к Redis %s", config.Addr)
	return NewRedisPositionRepoWithClient(client, config.KeyPrefix, config.TTL), nil
}

// NewRedisPositionRepoWithClient использует готовый клиент
func NewRedisPositionRepoWithClient(client redis.UniversalClient, keyPrefix string, ttl time.Duration) *RedisPositionRepo {
	if keyPrefix == "" {
		keyPrefix = DefaultRedisConfig().KeyPrefix
	}
	return &RedisPositionRepo{client: client, keyPrefix: keyPrefix, ttl: ttl}
}

// Save сохраняет позицию персонажа
func (r *RedisPositionRepo) Save(ctx context.Context, characterID uint64, pos vec.Position) error {
	if err := validate(characterID, pos); err != nil {
		return err
	}
	data, err := encodeRecord(pos)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, recordKey(r.keyPrefix, characterID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("ошибка сохранения позиции персонажа %d: %w", characterID, err)
	}
	return nil
}

// Load загружает позицию персонажа
func (r *RedisPositionRepo) Load(ctx context.Context, characterID uint64) (vec.Position, bool, error) {
	if err := validateID(characterID); err != nil {
		return vec.Position{}, false, err
	}

	data, err := r.client.Get(ctx, recordKey(r.keyPrefix, characterID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return vec.Position{}, false, nil
	}
	if err != nil {
		return vec.Position{}, false, fmt.Errorf("ошибка загрузки позиции персонажа %d: %w", characterID, err)
	}

	rec, err := decodeRecord(data)
	if err != nil {
		return vec.Position{}, false, err
	}
	return rec.Position, true, nil
}

// Delete удаляет позицию персонажа
func (r *RedisPositionRepo) Delete(ctx context.Context, characterID uint64) error {
	if err := validateID(characterID); err != nil {
		return err
	}
	n, err := r.client.Del(ctx, recordKey(r.keyPrefix, characterID)).Result()
	if err != nil {
		return fmt.Errorf("ошибка удаления позиции персонажа %d: %w", characterID, err)
	}
	if n == 0 {
		return fmt.Errorf("персонаж %d: %w", characterID, ErrPositionNotFound)
	}
	return nil
}

// BatchSave записывает позиции одним пайплайном
func (r *RedisPositionRepo) BatchSave(ctx context.Context, positions map[uint64]vec.Position) error {
	if len(positions) == 0 {
		return nil
	}

	pipe := r.client.TxPipeline()
	for id, pos := range positions {
		if err := validate(id, pos); err != nil {
			return fmt.Errorf("batch: %w", err)
		}
		data, err := encodeRecord(pos)
		if err != nil {
			return err
		}
		pipe.Set(ctx, recordKey(r.keyPrefix, id), data, r.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("ошибка выполнения batch: %w", err)
	}
	return nil
}

// Count количество сохранённых позиций (SCAN по префиксу)
func (r *RedisPositionRepo) Count(ctx context.Context) (int64, error) {
	var count int64
	iter := r.client.Scan(ctx, 0, r.keyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		count++
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта позиций: %w", err)
	}
	return count, nil
}

// Close закрывает соединение с Redis
func (r *RedisPositionRepo) Close() error {
	return r.client.Close()
}
