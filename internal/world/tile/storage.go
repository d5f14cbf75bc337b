package tile

import (
	"fmt"

	"github.com/annel0/mmo-tiles/internal/world/creature"
)

// storage закрытый вариант хранения содержимого клетки.
// Реализуется только dynamicStorage и staticStorage этого пакета.
type storage interface {
	variant() Flag
}

// dynamicStorage выделяет список предметов и существ вместе с клеткой.
// Используется для проходимых клеток, содержимое которых часто меняется.
type dynamicStorage struct {
	items     ItemList
	creatures []*creature.Creature
}

func (*dynamicStorage) variant() Flag { return FlagDynamicTile }

// staticStorage выделяет память только при первой записи и не освобождает её.
// Используется для массы статичных клеток (скалы, пустота).
type staticStorage struct {
	items     *ItemList
	creatures *[]*creature.Creature
}

func (*staticStorage) variant() Flag { return 0 }

func (t *Tile) dynamic() *dynamicStorage {
	s, ok := t.store.(*dynamicStorage)
	if !ok {
		panic(fmt.Sprintf("tile %s: флаг динамической клетки не совпадает с хранилищем %T", t.pos, t.store))
	}
	return s
}

func (t *Tile) static() *staticStorage {
	s, ok := t.store.(*staticStorage)
	if !ok {
		panic(fmt.Sprintf("tile %s: флаг статичной клетки не совпадает с хранилищем %T", t.pos, t.store))
	}
	return s
}

// itemList возвращает список предметов; для статичной клетки может быть nil
func (t *Tile) itemList() *ItemList {
	if t.HasFlag(FlagDynamicTile) {
		return &t.dynamic().items
	}
	return t.static().items
}

// makeItemList возвращает список, выделяя его при необходимости
func (t *Tile) makeItemList() *ItemList {
	if t.HasFlag(FlagDynamicTile) {
		return &t.dynamic().items
	}
	s := t.static()
	if s.items == nil {
		s.items = &ItemList{}
	}
	return s.items
}

// creatureList возвращает существ клетки; для статичной клетки может быть nil
func (t *Tile) creatureList() []*creature.Creature {
	if t.HasFlag(FlagDynamicTile) {
		return t.dynamic().creatures
	}
	s := t.static()
	if s.creatures == nil {
		return nil
	}
	return *s.creatures
}

// makeCreatureList возвращает указатель на срез существ, выделяя его при необходимости
func (t *Tile) makeCreatureList() *[]*creature.Creature {
	if t.HasFlag(FlagDynamicTile) {
		return &t.dynamic().creatures
	}
	s := t.static()
	if s.creatures == nil {
		list := make([]*creature.Creature, 0, 1)
		s.creatures = &list
	}
	return s.creatures
}

// IsDynamic клетка создана с немедленным выделением хранилища
func (t *Tile) IsDynamic() bool { return t.HasFlag(FlagDynamicTile) }

// ItemsAllocated выделен ли список предметов (всегда true для динамической клетки)
func (t *Tile) ItemsAllocated() bool { return t.itemList() != nil }

// CreaturesAllocated выделен ли список существ (всегда true для динамической клетки)
func (t *Tile) CreaturesAllocated() bool {
	if t.HasFlag(FlagDynamicTile) {
		return true
	}
	return t.static().creatures != nil
}
