package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/annel0/mmo-tiles/internal/vec"
)

// ErrPositionNotFound позиция персонажа не сохранялась
var ErrPositionNotFound = errors.New("позиция не найдена")

// PositionRepo определяет интерфейс для сохранения и загрузки позиций персонажей.
// Позиция записывается при выходе из игры и читается при входе; первый вход
// персонажа (found == false) ставит его в храм.
type PositionRepo interface {
	// Save сохраняет позицию персонажа
	Save(ctx context.Context, characterID uint64, pos vec.Position) error

	// Load загружает позицию. found == false означает первый вход.
	Load(ctx context.Context, characterID uint64) (pos vec.Position, found bool, err error)

	// Delete удаляет сохранённую позицию; ErrPositionNotFound если её не было
	Delete(ctx context.Context, characterID uint64) error

	// BatchSave сохраняет позиции нескольких персонажей (автосохранение онлайна)
	BatchSave(ctx context.Context, positions map[uint64]vec.Position) error

	Close() error
}

// validate общая проверка входных данных всех реализаций
func validate(characterID uint64, pos vec.Position) error {
	if characterID == 0 {
		return fmt.Errorf("недействительный characterID: %d", characterID)
	}
	if pos.Z > vec.MaxFloor {
		return fmt.Errorf("недействительный этаж: %d (должен быть 0-%d)", pos.Z, vec.MaxFloor)
	}
	return nil
}

func validateID(characterID uint64) error {
	if characterID == 0 {
		return fmt.Errorf("недействительный characterID: %d", characterID)
	}
	return nil
}
