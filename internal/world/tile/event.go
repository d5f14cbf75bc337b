package tile

import (
	"github.com/annel0/mmo-tiles/internal/vec"
	"github.com/annel0/mmo-tiles/internal/world/item"
	"github.com/annel0/mmo-tiles/internal/world/thing"
)

// EventKind вид изменения клетки
type EventKind uint8

const (
	EventAdded EventKind = iota
	EventRemoved
	EventUpdated
)

// String имя вида события
func (k EventKind) String() string {
	switch k {
	case EventAdded:
		return "added"
	case EventRemoved:
		return "removed"
	case EventUpdated:
		return "updated"
	default:
		return "unknown"
	}
}

// Event значение, которое клетка кладёт в очередь хоста после изменения.
// Наблюдатели получают события в порядке постановки.
type Event struct {
	Kind     EventKind
	Tile     *Tile
	Position vec.Position
	Thing    thing.Thing
	Index    int
	// Other прежний (для Added) или новый (для Removed) контейнер объекта
	Other thing.Cylinder
	Link  thing.Link
	// Состояние предмета на момент постановки в очередь
	ItemID uint16
	Count  uint32
	Name   string
}

// enqueue фиксирует вид, имя и количество предмета и ставит событие в очередь хоста
func (t *Tile) enqueue(ev Event) {
	if it, ok := ev.Thing.(*item.Item); ok && it != nil {
		ev.ItemID = it.ID()
		ev.Count = it.Count()
		ev.Name = it.Name()
	}
	t.host.Enqueue(ev)
}

// Host окружение клетки: карта, каталог предметов и очередь событий
type Host interface {
	// TileAt возвращает клетку или nil, если её нет
	TileAt(pos vec.Position) *Tile
	ItemType(id uint16) (*item.ItemType, bool)
	Enqueue(ev Event)
}

// detachedHost используется клетками вне карты
type detachedHost struct{}

func (detachedHost) TileAt(vec.Position) *Tile { return nil }

func (detachedHost) ItemType(uint16) (*item.ItemType, bool) { return nil, false }

func (detachedHost) Enqueue(Event) {}
