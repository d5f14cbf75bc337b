package world

import (
	"context"
	"sync"

	"github.com/annel0/mmo-tiles/internal/eventbus"
	"github.com/annel0/mmo-tiles/internal/vec"
	"github.com/annel0/mmo-tiles/internal/world/creature"
	"github.com/annel0/mmo-tiles/internal/world/item"
	"github.com/annel0/mmo-tiles/internal/world/tile"
)

func newTestWorld() (*World, *Map) {
	m := NewMap(item.DefaultCatalog())
	w := New(m, creature.NewRegistry(), Options{Seed: 7, Metrics: NewMetrics(nil)})
	return w, m
}

// floor создаёт динамическую клетку с травой
func floor(m *Map, x, y uint16, z uint8) *tile.Tile {
	t := m.CreateTile(vec.NewPosition(x, y, z), true)
	if t.Ground() == nil {
		t.InternalAddThing(0, m.Catalog().MustCreate(item.GrassID, 1))
	}
	return t
}

// area заполняет прямоугольник травой
func area(m *Map, x0, y0, x1, y1 uint16, z uint8) {
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			floor(m, x, y, z)
		}
	}
}

func put(m *Map, t *tile.Tile, id uint16, count uint16) *item.Item {
	it := m.Catalog().MustCreate(id, count)
	t.InternalAddThing(0, it)
	return it
}

func newPlayer(name string) *creature.Creature {
	return creature.New(creature.KindPlayer, creature.Options{Name: name, Health: 100, Speed: 220})
}

// recorder наблюдатель, запоминающий события
type recorder struct {
	events []tile.Event
}

func (r *recorder) OnTileEvent(ev tile.Event) { r.events = append(r.events, ev) }

func (r *recorder) kinds() []tile.EventKind {
	kinds := make([]tile.EventKind, 0, len(r.events))
	for _, ev := range r.events {
		kinds = append(kinds, ev.Kind)
	}
	return kinds
}

// fakeBus синхронная шина для проверки публикации
type fakeBus struct {
	mu        sync.Mutex
	envelopes []*eventbus.Envelope
}

func (b *fakeBus) Publish(_ context.Context, ev *eventbus.Envelope) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.envelopes = append(b.envelopes, ev)
	return nil
}

func (b *fakeBus) Subscribe(context.Context, eventbus.Filter, eventbus.Handler) (eventbus.Subscription, error) {
	return nil, nil
}

func (b *fakeBus) Metrics() eventbus.Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return eventbus.Stats{Published: uint64(len(b.envelopes))}
}
