package world

import (
	"context"
	"math/rand"
	"time"

	"github.com/annel0/mmo-tiles/internal/eventbus"
	"github.com/annel0/mmo-tiles/internal/logging"
	"github.com/annel0/mmo-tiles/internal/vec"
	"github.com/annel0/mmo-tiles/internal/world/creature"
	"github.com/annel0/mmo-tiles/internal/world/tile"
)

var logger = logging.Component(logging.ComponentWorld)

// Observer получает события клеток, которые видит существо
type Observer interface {
	OnTileEvent(ev tile.Event)
}

// ObserverFunc адаптер функции к Observer
type ObserverFunc func(ev tile.Event)

// OnTileEvent вызывает f(ev)
func (f ObserverFunc) OnTileEvent(ev tile.Event) { f(ev) }

// Options параметры мира
type Options struct {
	// Bus шина, в которую публикуются события клеток (может быть nil)
	Bus eventbus.EventBus
	// Metrics метрики мира (может быть nil)
	Metrics *Metrics
	// Seed зерно случайного выбора клеток при размещении существ
	Seed int64
	// Source имя источника в конвертах событий
	Source string
}

// World связывает карту, реестр существ и доставку событий.
// Все методы вызываются из одного потока (Dispatcher).
type World struct {
	m          *Map
	creatures  *creature.Registry
	spectators *SpectatorIndex
	observers  map[uint32]Observer
	bus        eventbus.EventBus
	metrics    *Metrics
	rng        *rand.Rand
	source     string
}

// New создаёт мир поверх готовой карты
func New(m *Map, creatures *creature.Registry, opts Options) *World {
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	source := opts.Source
	if source == "" {
		source = "world"
	}
	if creatures == nil {
		creatures = creature.NewRegistry()
	}

	return &World{
		m:          m,
		creatures:  creatures,
		spectators: NewSpectatorIndex(ChunkSize),
		observers:  make(map[uint32]Observer),
		bus:        opts.Bus,
		metrics:    opts.Metrics,
		rng:        rand.New(rand.NewSource(seed)),
		source:     source,
	}
}

// Map карта мира
func (w *World) Map() *Map { return w.m }

// Creatures реестр существ
func (w *World) Creatures() *creature.Registry { return w.creatures }

// Spectators индекс зрителей
func (w *World) Spectators() *SpectatorIndex { return w.spectators }

// TileAt клетка карты или nil
func (w *World) TileAt(pos vec.Position) *tile.Tile { return w.m.TileAt(pos) }

// Attach подписывает существо на события видимых клеток
func (w *World) Attach(creatureID uint32, o Observer) {
	w.observers[creatureID] = o
}

// Detach отписывает существо
func (w *World) Detach(creatureID uint32) {
	delete(w.observers, creatureID)
}

// Stats сводка по карте; заодно обновляет метрики
func (w *World) Stats() MapStats {
	stats := w.m.Stats()
	w.metrics.observeMap(stats, w.creatures)
	return stats
}

// Close разбирает карту
func (w *World) Close() {
	w.m.Close()
	logger.Info("🗺️ Карта закрыта")
}

// Run периодически разбирает очередь событий, пока ctx не отменён.
// post выполняет функцию в потоке-писателе (обычно Dispatcher.Add).
func (w *World) Run(ctx context.Context, interval time.Duration, post func(func())) {
	if interval <= 0 {
		interval = 50 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			post(func() { w.FlushEvents(ctx) })
		}
	}
}
