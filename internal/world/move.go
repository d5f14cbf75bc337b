package world

import (
	"errors"
	"fmt"

	"github.com/annel0/mmo-tiles/internal/vec"
	"github.com/annel0/mmo-tiles/internal/world/creature"
	"github.com/annel0/mmo-tiles/internal/world/item"
	"github.com/annel0/mmo-tiles/internal/world/thing"
	"github.com/annel0/mmo-tiles/internal/world/tile"
)

// maxRedirects ограничивает цепочку QueryDestination числом этажей
const maxRedirects = vec.MaxFloor + 1

// ErrCannotPlace рядом с позицией нет свободной клетки
var ErrCannotPlace = errors.New("нет свободной клетки для размещения")

// resolveDestination проходит цепочку перенаправлений контейнера.
// После первого перехода флаги сбрасываются.
func resolveDestination(to thing.Cylinder, index *int, th thing.Thing, flags *thing.Flags) (thing.Cylinder, thing.Thing) {
	var dest thing.Thing
	for hops := 0; ; {
		sub, destThing := to.QueryDestination(index, th, flags)
		dest = destThing
		if sub == to {
			break
		}
		to = sub
		*flags = 0
		hops++
		if hops >= maxRedirects {
			break
		}
	}
	return to, dest
}

// MoveItem перемещает count предметов it из from в to.
//
// Возвращает предмет, который теперь лежит в получателе (перенесённый, его копию
// для остатка стопки или стопку, с которой он слился). Сумма количеств предметов
// в источнике и получателе сохраняется.
func (w *World) MoveItem(from, to thing.Cylinder, index int, it *item.Item, count uint32, flags thing.Flags, actor thing.Thing) (moved *item.Item, rv thing.ReturnValue) {
	defer func() { w.metrics.observeMove("item", rv) }()

	if from == nil || to == nil || it == nil || it.Parent() != from {
		return nil, thing.NotPossible
	}

	to, dest := resolveDestination(to, &index, it, &flags)
	toItem, _ := dest.(*item.Item)
	if toItem == it {
		return it, thing.NoError
	}

	rv = to.QueryAdd(index, it, count, flags, actor)
	if rv == thing.NeedExchange {
		rv = w.exchange(from, to, index, it, count, flags, actor)
		toItem = nil
	}
	if rv != thing.NoError {
		return nil, rv
	}

	maxCount, rvMax := to.QueryMaxCount(index, it, count, flags)
	if rvMax != thing.NoError && maxCount == 0 {
		return nil, rvMax
	}

	m := maxCount
	if it.IsStackable() && count < maxCount {
		m = count
	}

	if rv = from.QueryRemove(it, m, flags); rv != thing.NoError {
		return nil, rv
	}

	itemIndex := from.ThingIndex(it)
	whole := !it.IsStackable() || m >= it.Count()
	from.RemoveThing(it, m)

	moving := it
	var updated *item.Item
	if it.IsStackable() {
		var n uint32
		if toItem != nil && it.Equals(toItem) {
			limit := uint32(toItem.Type().StackLimit())
			if toItem.Count() < limit {
				n = minUint32(limit-toItem.Count(), m)
				to.UpdateThing(toItem, toItem.ID(), toItem.Count()+n)
				updated = toItem
			}
		}

		switch rest := m - n; {
		case rest == 0:
			moving = nil
		case whole:
			it.SetCount(rest)
		default:
			moving = it.Clone()
			moving.SetCount(rest)
		}
	}

	if moving != nil {
		to.AddThing(index, moving)
	}

	// Частичное снятие стопки уже сообщено клеткой как обновление
	if whole && itemIndex != -1 {
		from.PostRemoveNotification(it, to, itemIndex, thing.LinkOwner)
	}
	if moving != nil {
		if idx := to.ThingIndex(moving); idx != -1 {
			to.PostAddNotification(moving, from, idx, thing.LinkOwner)
		}
		moved = moving
	} else {
		moved = updated
	}

	if it.IsStackable() && maxCount < count {
		return moved, rvMax
	}
	return moved, thing.NoError
}

// exchange освобождает место для подвешиваемого предмета: висящий в получателе
// предмет переносится в источник, после чего запрос к получателю повторяется.
func (w *World) exchange(from, to thing.Cylinder, index int, it *item.Item, count uint32, flags thing.Flags, actor thing.Thing) thing.ReturnValue {
	swap := hangingItem(to, it)
	if swap == nil {
		return thing.NotPossible
	}

	if rv := from.QueryAdd(from.ThingIndex(it), swap, swap.Count(), 0, actor); rv != thing.NoError {
		return rv
	}
	if maxCount, rv := from.QueryMaxCount(thing.IndexWherever, swap, swap.Count(), 0); rv != thing.NoError && maxCount == 0 {
		return rv
	}
	if rv := to.QueryRemove(swap, swap.Count(), flags); rv != thing.NoError {
		return rv
	}

	oldIndex := to.ThingIndex(swap)
	to.RemoveThing(swap, swap.Count())
	from.AddThing(thing.IndexWherever, swap)
	if oldIndex != -1 {
		to.PostRemoveNotification(swap, from, oldIndex, thing.LinkOwner)
	}
	if newIndex := from.ThingIndex(swap); newIndex != -1 {
		from.PostAddNotification(swap, to, newIndex, thing.LinkOwner)
	}

	return to.QueryAdd(index, it, count, flags, actor)
}

func hangingItem(c thing.Cylinder, except *item.Item) *item.Item {
	for i := c.FirstIndex(); i < c.LastIndex(); i++ {
		if other, ok := c.ThingAt(i).(*item.Item); ok && other != except && other.IsHangable() {
			return other
		}
	}
	return nil
}

// AddItem кладёт новый предмет в контейнер, сливая его со стопкой получателя.
// При test ничего не меняется. Возвращает количество, которое не удалось положить.
func (w *World) AddItem(to thing.Cylinder, it *item.Item, index int, flags thing.Flags, test bool) (remainder uint32, rv thing.ReturnValue) {
	defer func() {
		if !test {
			w.metrics.observeMove("add", rv)
		}
	}()

	if to == nil || it == nil || it.Parent() != nil {
		return 0, thing.NotPossible
	}

	target := to
	to, dest := resolveDestination(to, &index, it, &flags)
	toItem, _ := dest.(*item.Item)

	if rv = to.QueryAdd(index, it, it.Count(), flags, nil); rv != thing.NoError {
		return 0, rv
	}

	// Сколько поместится, спрашиваем у исходного получателя: перенаправленный
	// контейнер может вместить только часть
	maxCount, rv := target.QueryMaxCount(thing.IndexWherever, it, it.Count(), flags)
	if rv != thing.NoError {
		return 0, rv
	}
	if test {
		return 0, thing.NoError
	}

	if it.IsStackable() && toItem != nil && it.Equals(toItem) {
		m := minUint32(it.Count(), maxCount)
		var n uint32
		if limit := uint32(toItem.Type().StackLimit()); toItem.Count() < limit {
			n = minUint32(limit-toItem.Count(), m)
			to.UpdateThing(toItem, toItem.ID(), toItem.Count()+n)
		}

		rest := m - n
		if rest == 0 {
			return 0, thing.NoError
		}
		if n > 0 {
			it.SetCount(rest)
			left, rvRest := w.AddItem(target, it, thing.IndexWherever, flags, false)
			if rvRest != thing.NoError {
				return rest, thing.NoError
			}
			return left, thing.NoError
		}
	}

	to.AddThing(index, it)
	if idx := to.ThingIndex(it); idx != -1 {
		to.PostAddNotification(it, nil, idx, thing.LinkOwner)
	}
	return 0, thing.NoError
}

// RemoveItem убирает count предметов из их контейнера; count == 0 означает всю стопку.
// Неподвижность предмета не учитывается.
func (w *World) RemoveItem(it *item.Item, count uint32, test bool) (rv thing.ReturnValue) {
	defer func() {
		if !test {
			w.metrics.observeMove("remove", rv)
		}
	}()

	if it == nil {
		return thing.NotPossible
	}
	parent := it.Parent()
	if parent == nil {
		return thing.NotPossible
	}
	if count == 0 {
		count = it.Count()
	}

	if rv = parent.QueryRemove(it, count, thing.FlagIgnoreNotMoveable); rv != thing.NoError {
		return rv
	}
	if test {
		return thing.NoError
	}

	index := parent.ThingIndex(it)
	parent.RemoveThing(it, count)
	if it.Parent() == nil && index != -1 {
		parent.PostRemoveNotification(it, nil, index, thing.LinkOwner)
	}
	return thing.NoError
}

// Смещения для поиска клетки рядом с занятой позицией
var (
	normalRelList = [][2]int{
		{-1, -1}, {0, -1}, {1, -1},
		{-1, 0}, {1, 0},
		{-1, 1}, {0, 1}, {1, 1},
	}
	extendedRelList = [][2]int{
		{0, -2},
		{-1, -1}, {0, -1}, {1, -1},
		{-2, 0}, {-1, 0}, {1, 0}, {2, 0},
		{-1, 1}, {0, 1}, {1, 1},
		{0, 2},
	}
)

// PlaceCreature ставит существо на карту (вход в игру, появление монстра).
// Незарегистрированное существо получает ID в реестре после выбора клетки.
// Если центральная клетка занята, перебираются соседние в случайном порядке
// (extended - радиус 2).
// forced размещает на центральной клетке без проверок.
func (w *World) PlaceCreature(c *creature.Creature, pos vec.Position, extended, forced bool) error {
	if c.Parent() != nil {
		return fmt.Errorf("%s уже на карте в %s", c, c.Position())
	}

	target := w.findPlace(c, pos, extended, forced)
	if target == nil {
		w.metrics.observeMove("place", thing.NotPossible)
		return fmt.Errorf("%s в %s: %w", c.Name(), pos, ErrCannotPlace)
	}

	if c.ID() == 0 {
		if _, err := w.creatures.Add(c); err != nil {
			return fmt.Errorf("регистрация %s: %w", c.Name(), err)
		}
	}

	index := 0
	var flags thing.Flags
	dest, _ := target.QueryDestination(&index, c, &flags)
	destTile, ok := dest.(*tile.Tile)
	if !ok {
		destTile = target
	}

	destTile.InternalAddThing(thing.IndexWherever, c)
	w.spectators.Insert(c, destTile.Position())
	destTile.PostAddNotification(c, nil, destTile.ThingIndex(c), thing.LinkOwner)
	w.metrics.observeMove("place", thing.NoError)

	logger.Debug("%s появился в %s", c, destTile.Position())
	return nil
}

func (w *World) findPlace(c *creature.Creature, center vec.Position, extended, forced bool) *tile.Tile {
	placeInPZ := false
	if t := w.m.TileAt(center); t != nil {
		placeInPZ = t.HasFlag(tile.FlagProtectionZone)
		if forced || t.QueryAdd(0, c, 1, thing.FlagIgnoreBlockItem, nil) == thing.NoError {
			return t
		}
	}

	var relList [][2]int
	if extended {
		relList = append(relList, extendedRelList...)
		// ближнее кольцо перебирается раньше дальнего
		w.shuffle(relList[:4])
		w.shuffle(relList[4:])
	} else {
		relList = append(relList, normalRelList...)
		w.shuffle(relList)
	}

	for _, rel := range relList {
		t := w.m.TileAt(center.Offset(rel[0], rel[1], 0))
		if t == nil || (placeInPZ && !t.HasFlag(tile.FlagProtectionZone)) {
			continue
		}
		if t.QueryAdd(0, c, 1, 0, nil) == thing.NoError {
			return t
		}
	}
	return nil
}

func (w *World) shuffle(list [][2]int) {
	w.rng.Shuffle(len(list), func(i, j int) { list[i], list[j] = list[j], list[i] })
}

// moveCreature переносит существо между клетками без проверок и ставит события
func (w *World) moveCreature(c *creature.Creature, from, to *tile.Tile) {
	oldPos, newPos := from.Position(), to.Position()
	teleport := to.Ground() == nil || oldPos.Z != newPos.Z ||
		oldPos.DistanceX(newPos) > 1 || oldPos.DistanceY(newPos) > 1

	oldIndex := from.ThingIndex(c)
	from.RemoveThing(c, 0)
	to.AddThing(thing.IndexWherever, c)

	if !teleport {
		if oldPos.Y > newPos.Y {
			c.SetDirection(vec.North)
		} else if oldPos.Y < newPos.Y {
			c.SetDirection(vec.South)
		}
		if oldPos.X < newPos.X {
			c.SetDirection(vec.East)
		} else if oldPos.X > newPos.X {
			c.SetDirection(vec.West)
		}
	}

	w.spectators.Update(c, newPos)
	if oldIndex != -1 {
		from.PostRemoveNotification(c, to, oldIndex, thing.LinkOwner)
	}
	to.PostAddNotification(c, from, to.ThingIndex(c), thing.LinkOwner)
}

// MoveCreature переводит существо на клетку toTile с учётом смены этажа и телепортов
func (w *World) MoveCreature(c *creature.Creature, toTile *tile.Tile, flags thing.Flags) (rv thing.ReturnValue) {
	defer func() { w.metrics.observeMove("creature", rv) }()

	from, ok := c.Parent().(*tile.Tile)
	if !ok || toTile == nil {
		return thing.NotPossible
	}

	if rv = toTile.QueryAdd(0, c, 1, flags, nil); rv != thing.NoError {
		return rv
	}
	w.moveCreature(c, from, toTile)

	var prev *tile.Tile
	cur := toTile
	index := 0
	for hops := 0; ; {
		sub, _ := cur.QueryDestination(&index, c, &flags)
		next, isTile := sub.(*tile.Tile)
		if !isTile || next == cur {
			break
		}
		w.moveCreature(c, cur, next)
		prev, cur = cur, next
		flags = 0
		hops++
		if hops >= maxRedirects {
			break
		}
	}

	// после лестницы или пандуса существо смотрит туда, куда сместилось
	if prev != nil {
		fromPos, toPos := prev.Position(), cur.Position()
		if fromPos.Z != toPos.Z && (fromPos.X != toPos.X || fromPos.Y != toPos.Y) {
			if dir := vec.DirectionTo(fromPos, toPos); !dir.IsDiagonal() && dir != vec.NoDirection {
				c.SetDirection(dir)
			}
		}
	}
	return thing.NoError
}

// MoveCreatureDir делает шаг в направлении dir. Игрок может подняться на
// соседнюю клетку этажом выше, стоя на высокой стопке, и спуститься на
// клетку этажом ниже, если у соседней клетки нет пола.
func (w *World) MoveCreatureDir(c *creature.Creature, dir vec.Direction, flags thing.Flags) thing.ReturnValue {
	current := c.Position()
	currentTile, ok := c.Parent().(*tile.Tile)
	if !ok {
		w.metrics.observeMove("creature", thing.NotPossible)
		return thing.NotPossible
	}
	dest := current.Step(dir)

	if c.IsPlayer() && !dir.IsDiagonal() {
		// подъём
		if current.Z != vec.SeaFloor+1 && current.Z > 0 && currentTile.HasHeight(3) {
			above := w.m.TileAt(current.Offset(0, 0, -1))
			if above == nil || (above.Ground() == nil && !above.HasFlag(tile.FlagBlockSolid)) {
				target := w.m.TileAt(dest.Offset(0, 0, -1))
				if target != nil && target.Ground() != nil && !target.HasFlag(tile.FlagImmovableBlockSolid) {
					flags |= thing.FlagIgnoreBlockItem | thing.FlagIgnoreBlockCreature
					if !target.HasFlag(tile.FlagFloorChange) {
						c.SetDirection(dir)
						dest = dest.Offset(0, 0, -1)
					}
				}
			}
		}

		// спуск
		if current.Z != vec.SeaFloor && current.Z == dest.Z && dest.Z < vec.MaxFloor {
			next := w.m.TileAt(dest)
			if next == nil || (next.Ground() == nil && !next.HasFlag(tile.FlagBlockSolid)) {
				below := w.m.TileAt(dest.Offset(0, 0, 1))
				if below != nil && below.HasHeight(3) && !below.HasFlag(tile.FlagImmovableBlockSolid) {
					flags |= thing.FlagIgnoreBlockItem | thing.FlagIgnoreBlockCreature
					c.SetDirection(dir)
					dest = dest.Offset(0, 0, 1)
				}
			}
		}
	}

	toTile := w.m.TileAt(dest)
	if toTile == nil {
		w.metrics.observeMove("creature", thing.NotPossible)
		return thing.NotPossible
	}
	return w.MoveCreature(c, toTile, flags)
}

// RemoveCreature снимает существо с карты и удаляет его из реестра
func (w *World) RemoveCreature(c *creature.Creature) bool {
	if t, ok := c.Parent().(*tile.Tile); ok {
		index := t.ThingIndex(c)
		t.RemoveThing(c, 0)
		if index != -1 {
			t.PostRemoveNotification(c, nil, index, thing.LinkOwner)
		}
	}
	w.spectators.Remove(c.ID())
	delete(w.observers, c.ID())
	return w.creatures.Remove(c.ID())
}

func minUint32(a, b uint32) uint32 {
	if a < b {
		return a
	}
	return b
}
