package tile

import (
	"github.com/annel0/mmo-tiles/internal/vec"
	"github.com/annel0/mmo-tiles/internal/world/creature"
	"github.com/annel0/mmo-tiles/internal/world/item"
)

// testHost минимальная карта для тестов клетки
type testHost struct {
	tiles   map[vec.Position]*Tile
	catalog *item.Catalog
	events  []Event
}

func newTestHost() *testHost {
	return &testHost{
		tiles:   make(map[vec.Position]*Tile),
		catalog: item.DefaultCatalog(),
	}
}

func (h *testHost) TileAt(pos vec.Position) *Tile { return h.tiles[pos] }

func (h *testHost) ItemType(id uint16) (*item.ItemType, bool) { return h.catalog.Get(id) }

func (h *testHost) Enqueue(ev Event) { h.events = append(h.events, ev) }

// floor создаёт динамическую клетку с травой
func (h *testHost) floor(x, y uint16, z uint8) *Tile {
	pos := vec.NewPosition(x, y, z)
	t := NewDynamicTile(pos, h)
	t.InternalAddThing(0, h.item(item.GrassID, 1))
	h.tiles[pos] = t
	return t
}

// rock создаёт статичную клетку без содержимого
func (h *testHost) rock(x, y uint16, z uint8) *Tile {
	pos := vec.NewPosition(x, y, z)
	t := NewStaticTile(pos, h)
	h.tiles[pos] = t
	return t
}

func (h *testHost) item(id uint16, count uint16) *item.Item {
	return h.catalog.MustCreate(id, count)
}

func player(name string) *creature.Creature {
	return creature.New(creature.KindPlayer, creature.Options{Name: name, Health: 100, Speed: 220})
}

func monster(name string, opts creature.Options) *creature.Creature {
	opts.Name = name
	if opts.Speed == 0 {
		opts.Speed = 100
	}
	return creature.New(creature.KindMonster, opts)
}
