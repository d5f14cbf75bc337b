package world

import (
	"sort"

	"github.com/annel0/mmo-tiles/internal/vec"
	"github.com/annel0/mmo-tiles/internal/world/item"
	"github.com/annel0/mmo-tiles/internal/world/tile"
)

// ChunkSize сторона чанка в клетках
const ChunkSize = 16

// ChunkKey координаты чанка: X и Y клетки, делённые на ChunkSize, и этаж
type ChunkKey struct {
	X, Y uint16
	Z    uint8
}

// chunk участок этажа 16x16. Пустые ячейки означают отсутствие клетки.
type chunk struct {
	key   ChunkKey
	tiles [ChunkSize][ChunkSize]*tile.Tile
	count int
}

func chunkKeyOf(pos vec.Position) ChunkKey {
	return ChunkKey{X: pos.X / ChunkSize, Y: pos.Y / ChunkSize, Z: pos.Z}
}

// Map сетка клеток всех этажей. Реализует tile.Host: клетки получают через неё
// соседей, виды предметов и очередь событий.
//
// Map не синхронизирована, все изменения выполняет один поток (Dispatcher).
type Map struct {
	catalog *item.Catalog
	chunks  map[ChunkKey]*chunk
	queue   []tile.Event
	temple  vec.Position
	closed  bool
}

var _ tile.Host = (*Map)(nil)

// NewMap создаёт пустую карту с каталогом предметов
func NewMap(catalog *item.Catalog) *Map {
	return &Map{
		catalog: catalog,
		chunks:  make(map[ChunkKey]*chunk),
	}
}

// Catalog каталог видов предметов карты
func (m *Map) Catalog() *item.Catalog { return m.catalog }

// TileAt возвращает клетку или nil
func (m *Map) TileAt(pos vec.Position) *tile.Tile {
	if pos.Z > vec.MaxFloor {
		return nil
	}
	c := m.chunks[chunkKeyOf(pos)]
	if c == nil {
		return nil
	}
	return c.tiles[pos.X%ChunkSize][pos.Y%ChunkSize]
}

// ItemType ищет вид предмета в каталоге
func (m *Map) ItemType(id uint16) (*item.ItemType, bool) {
	return m.catalog.Get(id)
}

// Enqueue ставит событие клетки в очередь. Очередь разбирает World.FlushEvents.
func (m *Map) Enqueue(ev tile.Event) {
	m.queue = append(m.queue, ev)
}

// Pending количество неразобранных событий
func (m *Map) Pending() int { return len(m.queue) }

// drain забирает накопленные события в порядке постановки
func (m *Map) drain() []tile.Event {
	events := m.queue
	m.queue = nil
	return events
}

// CreateTile создаёт клетку в позиции. Динамическое хранилище выбирают для клеток,
// содержимое которых часто меняется; статическое выделяет память при первой записи.
// Если клетка уже есть, возвращается существующая.
func (m *Map) CreateTile(pos vec.Position, dynamic bool) *tile.Tile {
	if pos.Z > vec.MaxFloor {
		return nil
	}
	key := chunkKeyOf(pos)
	c := m.chunks[key]
	if c == nil {
		c = &chunk{key: key}
		m.chunks[key] = c
	}

	x, y := pos.X%ChunkSize, pos.Y%ChunkSize
	if existing := c.tiles[x][y]; existing != nil {
		return existing
	}

	var t *tile.Tile
	if dynamic {
		t = tile.NewDynamicTile(pos, m)
	} else {
		t = tile.NewStaticTile(pos, m)
	}
	c.tiles[x][y] = t
	c.count++
	return t
}

// Temple позиция появления новых персонажей
func (m *Map) Temple() vec.Position { return m.temple }

// SetTemple задаёт позицию храма
func (m *Map) SetTemple(pos vec.Position) { m.temple = pos }

// ForEachTile обходит клетки по чанкам в детерминированном порядке
func (m *Map) ForEachTile(fn func(t *tile.Tile)) {
	keys := make([]ChunkKey, 0, len(m.chunks))
	for key := range m.chunks {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.Z != b.Z {
			return a.Z < b.Z
		}
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.X < b.X
	})

	for _, key := range keys {
		c := m.chunks[key]
		for y := 0; y < ChunkSize; y++ {
			for x := 0; x < ChunkSize; x++ {
				if t := c.tiles[x][y]; t != nil {
					fn(t)
				}
			}
		}
	}
}

// MapStats сводка по карте
type MapStats struct {
	Chunks       int `json:"chunks"`
	DynamicTiles int `json:"dynamic_tiles"`
	StaticTiles  int `json:"static_tiles"`
	// StaticAllocated статичные клетки, уже выделившие список предметов
	StaticAllocated int `json:"static_allocated"`
	Items           int `json:"items"`
	Creatures       int `json:"creatures"`
}

// Stats считает клетки по видам хранилища
func (m *Map) Stats() MapStats {
	stats := MapStats{Chunks: len(m.chunks)}
	for _, c := range m.chunks {
		for x := 0; x < ChunkSize; x++ {
			for y := 0; y < ChunkSize; y++ {
				t := c.tiles[x][y]
				if t == nil {
					continue
				}
				if t.IsDynamic() {
					stats.DynamicTiles++
				} else {
					stats.StaticTiles++
					if t.ItemsAllocated() {
						stats.StaticAllocated++
					}
				}
				stats.Items += t.ItemCount()
				if t.Ground() != nil {
					stats.Items++
				}
				stats.Creatures += t.CreatureCount()
			}
		}
	}
	return stats
}

// Close разбирает все клетки: предметы освобождаются, существа отвязываются
func (m *Map) Close() {
	if m.closed {
		return
	}
	m.closed = true
	for _, c := range m.chunks {
		for x := 0; x < ChunkSize; x++ {
			for y := 0; y < ChunkSize; y++ {
				if t := c.tiles[x][y]; t != nil {
					t.Close()
				}
			}
		}
	}
	m.queue = nil
}
