package storage

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/annel0/mmo-tiles/internal/vec"
	bolt "github.com/coreos/bbolt"
)

var positionsBucket = []byte("positions")

// BoltPositionRepo хранилище позиций в одном файле bolt
type BoltPositionRepo struct {
	db *bolt.DB
}

// NewBoltPositionRepo открывает (или создаёт) файл базы
func NewBoltPositionRepo(path string) (*BoltPositionRepo, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть bolt %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(positionsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("создание bucket positions: %w", err)
	}
	return &BoltPositionRepo{db: db}, nil
}

func boltKey(characterID uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, characterID)
	return key
}

// Save сохраняет позицию персонажа
func (r *BoltPositionRepo) Save(ctx context.Context, characterID uint64, pos vec.Position) error {
	return r.BatchSave(ctx, map[uint64]vec.Position{characterID: pos})
}

// Load загружает позицию персонажа
func (r *BoltPositionRepo) Load(ctx context.Context, characterID uint64) (vec.Position, bool, error) {
	if err := validateID(characterID); err != nil {
		return vec.Position{}, false, err
	}
	if err := ctx.Err(); err != nil {
		return vec.Position{}, false, err
	}

	var (
		rec   positionRecord
		found bool
	)
	err := r.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(positionsBucket).Get(boltKey(characterID))
		if data == nil {
			return nil
		}
		found = true
		var err error
		rec, err = decodeRecord(data)
		return err
	})
	if err != nil {
		return vec.Position{}, false, fmt.Errorf("ошибка загрузки позиции персонажа %d: %w", characterID, err)
	}
	return rec.Position, found, nil
}

// Delete удаляет позицию персонажа
func (r *BoltPositionRepo) Delete(ctx context.Context, characterID uint64) error {
	if err := validateID(characterID); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	return r.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(positionsBucket)
		key := boltKey(characterID)
		if bucket.Get(key) == nil {
			return fmt.Errorf("персонаж %d: %w", characterID, ErrPositionNotFound)
		}
		return bucket.Delete(key)
	})
}

// BatchSave сохраняет позиции в одной транзакции
func (r *BoltPositionRepo) BatchSave(ctx context.Context, positions map[uint64]vec.Position) error {
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

	err := r.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(positionsBucket)
		for id, pos := range positions {
			data, err := encodeRecord(pos)
			if err != nil {
				return err
			}
			if err := bucket.Put(boltKey(id), data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("ошибка сохранения в bolt: %w", err)
	}
	return nil
}

// Close закрывает файл базы
func (r *BoltPositionRepo) Close() error {
	return r.db.Close()
}
