package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/annel0/mmo-tiles/internal/vec"
)

// MemoryPositionRepo реализует PositionRepo в памяти.
// Используется как fallback, когда внешние хранилища недоступны,
// или для CI/локальной разработки без БД.
// ВНИМАНИЕ: Данные теряются при перезапуске сервера!
type MemoryPositionRepo struct {
	mu   sync.RWMutex
	data map[uint64]vec.Position
}

// NewMemoryPositionRepo создает новый репозиторий позиций в памяти.
func NewMemoryPositionRepo() *MemoryPositionRepo {
	return &MemoryPositionRepo{
		data: make(map[uint64]vec.Position),
	}
}

// Save сохраняет позицию персонажа в памяти.
func (r *MemoryPositionRepo) Save(ctx context.Context, characterID uint64, pos vec.Position) error {
	if err := validate(characterID, pos); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[characterID] = pos
	return nil
}

// Load загружает позицию персонажа из памяти.
func (r *MemoryPositionRepo) Load(ctx context.Context, characterID uint64) (vec.Position, bool, error) {
	if err := validateID(characterID); err != nil {
		return vec.Position{}, false, err
	}
	if err := ctx.Err(); err != nil {
		return vec.Position{}, false, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	pos, exists := r.data[characterID]
	return pos, exists, nil
}

// Delete удаляет сохраненную позицию персонажа из памяти.
func (r *MemoryPositionRepo) Delete(ctx context.Context, characterID uint64) error {
	if err := validateID(characterID); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.data[characterID]; !exists {
		return fmt.Errorf("персонаж %d: %w", characterID, ErrPositionNotFound)
	}
	delete(r.data, characterID)
	return nil
}

// BatchSave сохраняет позиции нескольких персонажей. Записи проверяются до
// сохранения: одна ошибка отменяет весь батч.
func (r *MemoryPositionRepo) BatchSave(ctx context.Context, positions map[uint64]vec.Position) error {
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

	r.mu.Lock()
	defer r.mu.Unlock()
	for id, pos := range positions {
		r.data[id] = pos
	}
	return nil
}

// Count возвращает количество сохраненных позиций (для отладки).
func (r *MemoryPositionRepo) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.data)
}

// Close ничего не делает
func (r *MemoryPositionRepo) Close() error { return nil }
