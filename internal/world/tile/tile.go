// Package tile реализует клетку карты: землю, стопку предметов, существ
// и битовую сводку состояния, выводимую из содержимого.
package tile

import (
	"github.com/annel0/mmo-tiles/internal/vec"
	"github.com/annel0/mmo-tiles/internal/world/creature"
	"github.com/annel0/mmo-tiles/internal/world/item"
	"github.com/annel0/mmo-tiles/internal/world/thing"
)

// MaxItems предельное количество предметов в стопке клетки
const MaxItems = 0xFFFF

// Tile клетка карты.
// Владеет землёй и предметами; на существ только ссылается.
// Не синхронизирована: все изменения выполняются одним писателем.
type Tile struct {
	pos    vec.Position
	ground *item.Item
	store  storage
	flags  Flag
	host   Host
}

// NewDynamicTile создаёт клетку с немедленно выделенным хранилищем
func NewDynamicTile(pos vec.Position, host Host) *Tile {
	if host == nil {
		host = detachedHost{}
	}
	return &Tile{
		pos:   pos,
		store: &dynamicStorage{},
		flags: FlagDynamicTile,
		host:  host,
	}
}

// NewStaticTile создаёт клетку, выделяющую хранилище при первой записи
func NewStaticTile(pos vec.Position, host Host) *Tile {
	if host == nil {
		host = detachedHost{}
	}
	return &Tile{
		pos:   pos,
		store: &staticStorage{},
		host:  host,
	}
}

// Position позиция клетки
func (t *Tile) Position() vec.Position { return t.pos }

// Parent у клетки нет родителя
func (t *Tile) Parent() thing.Cylinder { return nil }

// IsRemoved клетки живут всё время работы мира
func (t *Tile) IsRemoved() bool { return false }

// ThrowRange клетку нельзя бросить
func (t *Tile) ThrowRange() int { return 0 }

// IsPushable клетку нельзя толкнуть
func (t *Tile) IsPushable() bool { return false }

// Flags текущая битовая сводка
func (t *Tile) Flags() Flag { return t.flags }

// HasFlag проверяет, что установлен хотя бы один из битов f
func (t *Tile) HasFlag(f Flag) bool { return t.flags&f != 0 }

// SetZoneFlags выставляет биты зон и домов (используется загрузчиком карты)
func (t *Tile) SetZoneFlags(f Flag) {
	t.flags |= f & ZoneFlags
}

// ResetZoneFlags снимает биты зон и домов
func (t *Tile) ResetZoneFlags(f Flag) {
	t.flags &^= f & ZoneFlags
}

// Zone классификация клетки с фиксированным приоритетом:
// защищённая > без PvP > PvP > без выхода > обычная
func (t *Tile) Zone() Zone { return zoneOf(t.flags) }

// FloorChange клетка переводит на другой этаж
func (t *Tile) FloorChange() bool { return t.HasFlag(FlagFloorChange) }

// FloorChangeDown клетка ведёт вниз
func (t *Tile) FloorChangeDown() bool { return t.HasFlag(FlagFloorChangeDown) }

// FloorChangeTo клетка ведёт на другой этаж в указанном направлении
func (t *Tile) FloorChangeTo(dir vec.Direction) bool {
	f := floorChangeFlag(dir)
	return f != 0 && t.HasFlag(f)
}

// PositionChange клетка переносит существ (телепорт)
func (t *Tile) PositionChange() bool { return t.HasFlag(FlagTeleport) }

// Ground предмет земли или nil
func (t *Tile) Ground() *item.Item { return t.ground }

// Items стопка предметов (nil для статичной клетки без записей).
// Возвращаемый список нельзя менять снаружи пакета.
func (t *Tile) Items() *ItemList { return t.itemList() }

// Creatures существа на клетке, первое - верхнее.
func (t *Tile) Creatures() []*creature.Creature { return t.creatureList() }

// ThingCount земля + предметы + существа
func (t *Tile) ThingCount() int {
	n := 0
	if t.ground != nil {
		n++
	}
	return n + t.itemList().Len() + len(t.creatureList())
}

// CreatureCount количество существ
func (t *Tile) CreatureCount() int { return len(t.creatureList()) }

// ItemCount количество предметов в стопке (без земли)
func (t *Tile) ItemCount() int { return t.itemList().Len() }

// TopItemCount количество верхних предметов
func (t *Tile) TopItemCount() int { return t.itemList().TopCount() }

// DownItemCount количество нижних предметов
func (t *Tile) DownItemCount() int { return t.itemList().DownCount() }

// TopCreature первое существо стека
func (t *Tile) TopCreature() *creature.Creature {
	list := t.creatureList()
	if len(list) == 0 {
		return nil
	}
	return list[0]
}

// BottomCreature последнее существо стека
func (t *Tile) BottomCreature() *creature.Creature {
	list := t.creatureList()
	if len(list) == 0 {
		return nil
	}
	return list[len(list)-1]
}

// TopVisibleCreature первое существо, которое видит viewer (nil viewer видит всех, кроме невидимых)
func (t *Tile) TopVisibleCreature(viewer *creature.Creature) *creature.Creature {
	for _, c := range t.creatureList() {
		if viewer == nil {
			if !c.IsGhost() {
				return c
			}
			continue
		}
		if viewer.CanSee(c) {
			return c
		}
	}
	return nil
}

// TopTopItem верхний предмет, который рисуется последним
func (t *Tile) TopTopItem() *item.Item { return t.itemList().TopTopItem() }

// TopDownItem первый нижний предмет
func (t *Tile) TopDownItem() *item.Item { return t.itemList().TopDownItem() }

func (t *Tile) findItem(match func(*item.Item) bool) *item.Item {
	if t.ground != nil && match(t.ground) {
		return t.ground
	}
	for _, it := range t.itemList().All() {
		if match(it) {
			return it
		}
	}
	return nil
}

// FieldItem магическое поле среди нижних предметов
func (t *Tile) FieldItem() *item.Item {
	if !t.HasFlag(FlagMagicField) {
		return nil
	}
	for _, it := range t.itemList().DownItems() {
		if it.IsMagicField() {
			return it
		}
	}
	return nil
}

// TeleportItem телепорт на клетке
func (t *Tile) TeleportItem() *item.Item {
	if !t.HasFlag(FlagTeleport) {
		return nil
	}
	return t.findItem(func(it *item.Item) bool { return it.Type().IsTeleport() })
}

// TrashHolder мусорная корзина на клетке
func (t *Tile) TrashHolder() *item.Item {
	if !t.HasFlag(FlagTrashHolder) {
		return nil
	}
	return t.findItem(func(it *item.Item) bool { return it.Type().IsTrashHolder() })
}

// Mailbox почтовый ящик на клетке
func (t *Tile) Mailbox() *item.Item {
	if !t.HasFlag(FlagMailbox) {
		return nil
	}
	return t.findItem(func(it *item.Item) bool { return it.Type().IsMailbox() })
}

// BedItem кровать на клетке
func (t *Tile) BedItem() *item.Item {
	if !t.HasFlag(FlagBed) {
		return nil
	}
	return t.findItem(func(it *item.Item) bool { return it.Type().IsBed() })
}

// HasProperty свойство есть у земли или у одного из предметов
func (t *Tile) HasProperty(p item.Property) bool {
	return t.HasPropertyExcept(nil, p)
}

// HasPropertyExcept то же, что HasProperty, но без учёта exclude
func (t *Tile) HasPropertyExcept(exclude *item.Item, p item.Property) bool {
	return t.findItem(func(it *item.Item) bool {
		return it != exclude && it.HasProperty(p)
	}) != nil
}

// IsMoveableBlocking клетку нельзя занять сдвигом (нет земли или она заблокирована)
func (t *Tile) IsMoveableBlocking() bool {
	return t.ground == nil || t.HasFlag(FlagBlockSolid)
}

// HasHeight на клетке не меньше n предметов с высотой
func (t *Tile) HasHeight(n int) bool {
	height := 0
	if t.ground != nil {
		if t.ground.HasProperty(item.PropHasHeight) {
			height++
		}
		if n == height {
			return true
		}
	}
	for _, it := range t.itemList().All() {
		if it.HasProperty(item.PropHasHeight) {
			height++
		}
		if n == height {
			return true
		}
	}
	return false
}

// ThingIndex порядковый индекс: земля=0, нижние предметы, существа, верхние предметы.
// Возвращает -1, если объекта на клетке нет.
func (t *Tile) ThingIndex(th thing.Thing) int {
	n := 0
	if t.ground != nil {
		if it, ok := th.(*item.Item); ok && it == t.ground {
			return 0
		}
		n++
	}

	list := t.itemList()
	switch v := th.(type) {
	case *item.Item:
		pos := list.IndexOf(v)
		if pos == -1 {
			return -1
		}
		if pos < list.DownCount() {
			return n + pos
		}
		return n + len(t.creatureList()) + pos
	case *creature.Creature:
		for i, c := range t.creatureList() {
			if c == v {
				return n + list.DownCount() + i
			}
		}
	}
	return -1
}

// ThingAt обратное к ThingIndex отображение; nil вне диапазона
func (t *Tile) ThingAt(index int) thing.Thing {
	if index < 0 {
		return nil
	}
	if t.ground != nil {
		if index == 0 {
			return t.ground
		}
		index--
	}

	list := t.itemList()
	if index < list.DownCount() {
		return list.At(index)
	}
	index -= list.DownCount()

	creatures := t.creatureList()
	if index < len(creatures) {
		return creatures[index]
	}
	index -= len(creatures)

	if index < list.TopCount() {
		return list.At(list.DownCount() + index)
	}
	return nil
}

// FirstIndex первый порядковый индекс
func (t *Tile) FirstIndex() int { return 0 }

// LastIndex индекс за последним объектом
func (t *Tile) LastIndex() int { return t.ThingCount() }

// ItemTypeCount количество предметов вида id с подтипом subType (-1 - любой)
func (t *Tile) ItemTypeCount(id uint16, subType int) uint32 {
	var count uint32
	if t.ground != nil && t.ground.ID() == id {
		count += t.ground.CountByType(subType)
	}
	for _, it := range t.itemList().All() {
		if it.ID() == id {
			count += it.CountByType(subType)
		}
	}
	return count
}

// Close освобождает принадлежащие клетке предметы
func (t *Tile) Close() {
	if t.ground != nil {
		t.ground.SetParent(nil)
		t.ground = nil
	}
	if list := t.itemList(); list != nil {
		for _, it := range list.All() {
			it.SetParent(nil)
		}
		list.clear()
	}
	if list := t.creatureList(); len(list) > 0 {
		for _, c := range list {
			if c.Parent() == thing.Cylinder(t) {
				c.SetParent(nil)
			}
		}
		*t.makeCreatureList() = (*t.makeCreatureList())[:0]
	}
	t.flags &^= itemFlags
}

// String для логов
func (t *Tile) String() string { return "tile" + t.pos.String() }
