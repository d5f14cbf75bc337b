package world

import (
	"context"
	"encoding/json"
	"time"

	"github.com/annel0/mmo-tiles/internal/eventbus"
	"github.com/annel0/mmo-tiles/internal/vec"
	"github.com/annel0/mmo-tiles/internal/world/creature"
	"github.com/annel0/mmo-tiles/internal/world/item"
	"github.com/annel0/mmo-tiles/internal/world/thing"
	"github.com/annel0/mmo-tiles/internal/world/tile"
	"github.com/google/uuid"
)

// Типы событий клеток в шине
const (
	EventTypeTileAdded   = "TileAdded"
	EventTypeTileRemoved = "TileRemoved"
	EventTypeTileUpdated = "TileUpdated"
)

// EventTypes все типы событий клеток
var EventTypes = []string{EventTypeTileAdded, EventTypeTileRemoved, EventTypeTileUpdated}

// EventType имя события клетки в шине
func EventType(kind tile.EventKind) string {
	switch kind {
	case tile.EventAdded:
		return EventTypeTileAdded
	case tile.EventRemoved:
		return EventTypeTileRemoved
	default:
		return EventTypeTileUpdated
	}
}

// ThingInfo описание объекта для внешних потребителей
type ThingInfo struct {
	Type  string `json:"type"`
	ID    uint32 `json:"id"`
	Name  string `json:"name"`
	Count uint32 `json:"count,omitempty"`
}

// DescribeThing описывает предмет или существо
func DescribeThing(th thing.Thing) ThingInfo {
	switch v := th.(type) {
	case *item.Item:
		return ThingInfo{Type: "item", ID: uint32(v.ID()), Name: v.Name(), Count: v.Count()}
	case *creature.Creature:
		return ThingInfo{Type: "creature", ID: v.ID(), Name: v.Name()}
	default:
		return ThingInfo{Type: "unknown"}
	}
}

// TileEventPayload полезная нагрузка события клетки в шине (JSON)
type TileEventPayload struct {
	Kind     string       `json:"kind"`
	Position vec.Position `json:"position"`
	Index    int          `json:"index"`
	Link     string       `json:"link"`
	Thing    ThingInfo    `json:"thing"`
}

// DescribeEvent описывает объект события. Для предметов берётся состояние,
// зафиксированное при постановке события в очередь.
func DescribeEvent(ev tile.Event) ThingInfo {
	if _, ok := ev.Thing.(*item.Item); ok && ev.ItemID != 0 {
		return ThingInfo{Type: "item", ID: uint32(ev.ItemID), Name: ev.Name, Count: ev.Count}
	}
	return DescribeThing(ev.Thing)
}

// NewTileEventPayload переводит событие клетки в полезную нагрузку
func NewTileEventPayload(ev tile.Event) TileEventPayload {
	return TileEventPayload{
		Kind:     ev.Kind.String(),
		Position: ev.Position,
		Index:    ev.Index,
		Link:     ev.Link.String(),
		Thing:    DescribeEvent(ev),
	}
}

// FlushEvents разбирает очередь событий в порядке постановки. Каждое событие
// сначала доставляется зрителям и публикуется в шину, затем выполняется роль
// клетки (мусорка). Новые события от ролей разбираются в этом же вызове.
// Возвращает количество разобранных событий.
func (w *World) FlushEvents(ctx context.Context) int {
	processed := 0
	for w.m.Pending() > 0 {
		for _, ev := range w.m.drain() {
			delivered := w.deliver(ev)
			w.publish(ctx, ev)
			w.applySideEffects(ev)
			w.metrics.observeEvent(ev.Kind.String(), delivered)
			processed++
		}
	}
	return processed
}

// applySideEffects роли клеток: мусорка уничтожает предметы, положенные на неё
func (w *World) applySideEffects(ev tile.Event) {
	if ev.Kind != tile.EventAdded || ev.Link != thing.LinkOwner || ev.Tile == nil {
		return
	}
	if !ev.Tile.HasFlag(tile.FlagTrashHolder) {
		return
	}
	it, ok := ev.Thing.(*item.Item)
	if !ok || it.Parent() != ev.Tile || it.IsGround() || !it.IsMoveable() || it.Type().IsTrashHolder() {
		return
	}
	if rv := w.RemoveItem(it, it.Count(), false); rv != thing.NoError {
		logger.Warn("Мусорка %s не смогла уничтожить %s: %s", ev.Position, it, rv)
	}
}

// deliver отдаёт событие наблюдателям, которые видят клетку
func (w *World) deliver(ev tile.Event) int {
	if len(w.observers) == 0 {
		return 0
	}
	delivered := 0
	for _, spectator := range w.spectators.Spectators(ev.Position, true) {
		observer, ok := w.observers[spectator.ID()]
		if !ok {
			continue
		}
		if c, isCreature := ev.Thing.(*creature.Creature); isCreature && !spectator.CanSee(c) {
			continue
		}
		observer.OnTileEvent(ev)
		delivered++
	}
	return delivered
}

func (w *World) publish(ctx context.Context, ev tile.Event) {
	if w.bus == nil {
		return
	}
	payload, err := json.Marshal(NewTileEventPayload(ev))
	if err != nil {
		logger.Error("Ошибка сериализации события клетки: %v", err)
		return
	}

	priority := 3
	if _, isCreature := ev.Thing.(*creature.Creature); isCreature {
		priority = 5
	}

	envelope := &eventbus.Envelope{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Source:    w.source,
		EventType: EventType(ev.Kind),
		Version:   1,
		Priority:  priority,
		Payload:   payload,
		Metadata: map[string]string{
			"position": ev.Position.String(),
		},
	}
	if err := w.bus.Publish(ctx, envelope); err != nil {
		logger.Warn("Ошибка публикации события %s: %v", envelope.EventType, err)
	}
}
