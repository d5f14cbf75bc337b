package item

import (
	"fmt"

	"github.com/annel0/mmo-tiles/internal/vec"
	"github.com/annel0/mmo-tiles/internal/world/thing"
)

// MaxStackCount предельный размер стопки
const MaxStackCount = 100

// Дальность броска для поднимаемых и прочих предметов
const (
	pickupableThrowRange = 15
	defaultThrowRange    = 2
)

// Item экземпляр предмета в мире.
// Принадлежит ровно одному контейнеру; parent очищается при извлечении.
type Item struct {
	typ    *ItemType
	count  uint16
	parent thing.Cylinder

	fluidType   uint8
	actionID    uint16
	uniqueID    uint16
	text        string
	destination vec.Position
}

// New создаёт предмет. Для не-стекируемых предметов count всегда 1.
func New(t *ItemType, count uint16) *Item {
	it := &Item{typ: t, count: 1}
	if t.Stackable {
		it.SetCount(uint32(count))
	}
	return it
}

// Type возвращает вид предмета
func (i *Item) Type() *ItemType { return i.typ }

// ID возвращает идентификатор вида
func (i *Item) ID() uint16 { return i.typ.ID }

// Name возвращает имя вида
func (i *Item) Name() string { return i.typ.Name }

// Count количество предметов в стопке (1 для не-стекируемых)
func (i *Item) Count() uint32 {
	if !i.typ.Stackable {
		return 1
	}
	return uint32(i.count)
}

// SetCount устанавливает размер стопки, обрезая его до [1, лимит]
func (i *Item) SetCount(n uint32) {
	if !i.typ.Stackable {
		i.count = 1
		return
	}
	limit := uint32(i.typ.StackLimit())
	if n > limit {
		n = limit
	}
	if n == 0 {
		n = 1
	}
	i.count = uint16(n)
}

// SubType подтип предмета: тип жидкости, размер стопки или 0
func (i *Item) SubType() int {
	switch {
	case i.typ.Group == GroupFluid || i.typ.IsSplash():
		return int(i.fluidType)
	case i.typ.Stackable:
		return int(i.count)
	default:
		return 0
	}
}

// CountByType количество с учётом фильтра подтипа (-1 - любой подтип)
func (i *Item) CountByType(subType int) uint32 {
	if subType == -1 || subType == i.SubType() {
		return i.Count()
	}
	return 0
}

// FluidType тип жидкости в луже или сосуде
func (i *Item) FluidType() uint8 { return i.fluidType }

// SetFluidType задаёт тип жидкости
func (i *Item) SetFluidType(t uint8) { i.fluidType = t }

// ActionID возвращает action id скриптов
func (i *Item) ActionID() uint16 { return i.actionID }

// SetActionID задаёт action id
func (i *Item) SetActionID(id uint16) { i.actionID = id }

// UniqueID возвращает unique id; предметы с ним нельзя сдвинуть
func (i *Item) UniqueID() uint16 { return i.uniqueID }

// SetUniqueID задаёт unique id предмету вне карты (загрузчик, новый предмет).
// Для предмета на клетке вызывайте tile.Tile.SetUniqueID, иначе флаги клетки устареют.
func (i *Item) SetUniqueID(id uint16) { i.uniqueID = id }

// Text надпись на предмете
func (i *Item) Text() string { return i.text }

// SetText задаёт надпись
func (i *Item) SetText(s string) { i.text = s }

// Destination возвращает точку назначения телепорта
func (i *Item) Destination() (vec.Position, bool) {
	if !i.typ.IsTeleport() || i.destination.IsZero() {
		return vec.Position{}, false
	}
	return i.destination, true
}

// SetDestination задаёт точку назначения телепорта
func (i *Item) SetDestination(p vec.Position) { i.destination = p }

// Parent реализует thing.Thing
func (i *Item) Parent() thing.Cylinder { return i.parent }

// SetParent реализует thing.Thing
func (i *Item) SetParent(c thing.Cylinder) { i.parent = c }

// Position возвращает позицию контейнера или нулевую позицию
func (i *Item) Position() vec.Position {
	if i.parent == nil {
		return vec.Position{}
	}
	return i.parent.Position()
}

// IsRemoved предмет не лежит ни в одном контейнере мира
func (i *Item) IsRemoved() bool {
	if i.parent == nil {
		return true
	}
	return i.parent.IsRemoved()
}

// ThrowRange дальность броска
func (i *Item) ThrowRange() int {
	if i.typ.Pickupable {
		return pickupableThrowRange
	}
	return defaultThrowRange
}

// IsPushable предмет можно толкать, если его можно двигать
func (i *Item) IsPushable() bool { return i.IsMoveable() }

// IsMoveable учитывает unique id
func (i *Item) IsMoveable() bool {
	return i.typ.Moveable() && i.uniqueID == 0
}

// IsBlocking предмет блокирует проход
func (i *Item) IsBlocking() bool { return i.typ.BlockSolid }

// IsStackable стопка
func (i *Item) IsStackable() bool { return i.typ.Stackable }

// IsAlwaysOnTop верхний предмет клетки
func (i *Item) IsAlwaysOnTop() bool { return i.typ.AlwaysOnTop }

// IsTop предмет лежит в верхнем диапазоне клетки
func (i *Item) IsTop() bool { return i.typ.IsTop() }

// Transform меняет вид предмета (превращение на месте)
func (i *Item) Transform(t *ItemType) {
	i.typ = t
	if !t.Stackable {
		i.count = 1
	}
}

// IsGround предмет земли
func (i *Item) IsGround() bool { return i.typ.IsGround() }

// IsPickupable можно поднять
func (i *Item) IsPickupable() bool { return i.typ.Pickupable }

// IsHangable можно повесить на стену
func (i *Item) IsHangable() bool { return i.typ.Hangable }

// IsMagicField магическое поле
func (i *Item) IsMagicField() bool { return i.typ.IsMagicField() }

// Equals совпадают вид и атрибуты (используется при слиянии стопок)
func (i *Item) Equals(other *Item) bool {
	if other == nil {
		return false
	}
	return i.typ.ID == other.typ.ID &&
		i.fluidType == other.fluidType &&
		i.actionID == other.actionID &&
		i.uniqueID == other.uniqueID &&
		i.text == other.text
}

// Clone копирует предмет без привязки к контейнеру
func (i *Item) Clone() *Item {
	c := *i
	c.parent = nil
	return &c
}

// String для логов
func (i *Item) String() string {
	if i.typ.Stackable {
		return fmt.Sprintf("%s#%d x%d", i.typ.Name, i.typ.ID, i.count)
	}
	return fmt.Sprintf("%s#%d", i.typ.Name, i.typ.ID)
}
