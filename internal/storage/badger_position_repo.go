package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/annel0/mmo-tiles/internal/vec"
	"github.com/dgraph-io/badger/v3"
)

const badgerKeyPrefix = "pos:"

// BadgerPositionRepo встроенное хранилище позиций на BadgerDB.
// Подходит для одиночного сервера без внешних БД.
type BadgerPositionRepo struct {
	db     *badger.DB
	mu     sync.RWMutex
	closed bool
}

// NewBadgerPositionRepo открывает базу в каталоге path.
// Пустой path открывает базу в памяти (для тестов).
func NewBadgerPositionRepo(path string) (*BadgerPositionRepo, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil // Отключаем логирование BadgerDB

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть BadgerDB: %w", err)
	}
	return &BadgerPositionRepo{db: db}, nil
}

func (r *BadgerPositionRepo) ready() error {
	if r.closed {
		return fmt.Errorf("хранилище закрыто")
	}
	return nil
}

// Save сохраняет позицию персонажа
func (r *BadgerPositionRepo) Save(ctx context.Context, characterID uint64, pos vec.Position) error {
	return r.BatchSave(ctx, map[uint64]vec.Position{characterID: pos})
}

// Load загружает позицию персонажа
func (r *BadgerPositionRepo) Load(ctx context.Context, characterID uint64) (vec.Position, bool, error) {
	if err := validateID(characterID); err != nil {
		return vec.Position{}, false, err
	}
	if err := ctx.Err(); err != nil {
		return vec.Position{}, false, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if err := r.ready(); err != nil {
		return vec.Position{}, false, err
	}

	var rec positionRecord
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(recordKey(badgerKeyPrefix, characterID)))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			rec, err = decodeRecord(val)
			return err
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return vec.Position{}, false, nil
	}
	if err != nil {
		return vec.Position{}, false, fmt.Errorf("ошибка загрузки позиции персонажа %d: %w", characterID, err)
	}
	return rec.Position, true, nil
}

// Delete удаляет позицию персонажа
func (r *BadgerPositionRepo) Delete(ctx context.Context, characterID uint64) error {
	if err := validateID(characterID); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if err := r.ready(); err != nil {
		return err
	}

	key := []byte(recordKey(badgerKeyPrefix, characterID))
	err := r.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key); err != nil {
			return err
		}
		return txn.Delete(key)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("персонаж %d: %w", characterID, ErrPositionNotFound)
	}
	if err != nil {
		return fmt.Errorf("ошибка удаления позиции персонажа %d: %w", characterID, err)
	}
	return nil
}

// BatchSave сохраняет позиции в одной транзакции
func (r *BadgerPositionRepo) BatchSave(ctx context.Context, positions map[uint64]vec.Position) error {
	if len(positions) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	for id, pos := range positions {
		if err := validate(id, pos); err != nil {
			return fmt.Errorf("batch: %w", err)
		}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if err := r.ready(); err != nil {
		return err
	}

	err := r.db.Update(func(txn *badger.Txn) error {
		for id, pos := range positions {
			data, err := encodeRecord(pos)
			if err != nil {
				return err
			}
			if err := txn.Set([]byte(recordKey(badgerKeyPrefix, id)), data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("ошибка сохранения в BadgerDB: %w", err)
	}
	return nil
}

// Close закрывает базу
func (r *BadgerPositionRepo) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	return r.db.Close()
}
