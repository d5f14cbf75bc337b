package tile

import (
	"fmt"

	"github.com/annel0/mmo-tiles/internal/vec"
	"github.com/annel0/mmo-tiles/internal/world/creature"
	"github.com/annel0/mmo-tiles/internal/world/item"
	"github.com/annel0/mmo-tiles/internal/world/thing"
)

var _ thing.Cylinder = (*Tile)(nil)

// QueryAdd проверяет, можно ли положить объект на клетку. Состояние не меняется.
func (t *Tile) QueryAdd(index int, th thing.Thing, count uint32, flags thing.Flags, actor thing.Thing) thing.ReturnValue {
	switch v := th.(type) {
	case *creature.Creature:
		return t.queryAddCreature(v, flags)
	case *item.Item:
		return t.queryAddItem(v, flags)
	default:
		return thing.NotPossible
	}
}

func (t *Tile) queryAddCreature(c *creature.Creature, flags thing.Flags) thing.ReturnValue {
	if flags.Has(thing.FlagNoLimit) {
		return thing.NoError
	}
	if flags.Has(thing.FlagPathFinding) && t.HasFlag(FlagFloorChange|FlagTeleport) {
		return thing.NotPossible
	}
	if t.ground == nil {
		return thing.NotPossible
	}

	creatures := t.creatureList()

	if c.IsMonster() {
		if t.HasFlag(FlagProtectionZone | FlagFloorChange | FlagTeleport) {
			return thing.NotPossible
		}

		if c.CanPushCreatures() && !c.IsSummon() {
			for _, other := range creatures {
				if other.IsPlayer() && other.IsGhost() {
					continue
				}
				if !other.IsMonster() || !other.IsPushable() ||
					(other.IsSummon() && other.Master().IsPlayer()) {
					return thing.NotPossible
				}
			}
		} else {
			for _, other := range creatures {
				if !other.IsGhost() {
					return thing.NotEnoughRoom
				}
			}
		}

		if t.HasFlag(FlagImmovableBlockSolid) {
			return thing.NotPossible
		}
		if flags.Has(thing.FlagPathFinding) && t.HasFlag(FlagImmovableNoFieldBlockPath) {
			return thing.NotPossible
		}
		if t.HasFlag(FlagBlockSolid) || (flags.Has(thing.FlagPathFinding) && t.HasFlag(FlagNoFieldBlockPath)) {
			if !(c.CanPushItems() || flags.Has(thing.FlagIgnoreBlockItem)) {
				return thing.NotPossible
			}
		}

		field := t.FieldItem()
		if field == nil || field.IsBlocking() || field.Type().FieldDamage == 0 {
			return thing.NoError
		}
		combat := field.Type().CombatType
		if !c.IsImmune(combat) {
			if !flags.Has(thing.FlagIgnoreFieldDamage) {
				return thing.NotPossible
			}
			if !(c.CanWalkOnField(combat) || c.IsIgnoringFieldDamage()) {
				return thing.NotPossible
			}
		}
		return thing.NoError
	}

	if c.IsPlayer() {
		if len(creatures) > 0 && !flags.Has(thing.FlagIgnoreBlockCreature) && !c.IsAccessPlayer() {
			for _, other := range creatures {
				if !t.canWalkThrough(other) {
					return thing.NotPossible
				}
			}
		}

		// Parent == nil означает вход в игру
		if c.Parent() == nil && t.HasFlag(FlagNoLogout) {
			return thing.NotPossible
		}

		if current, ok := c.Parent().(*Tile); ok && c.IsPzLocked() {
			if rv := pzLockCheck(current, t); rv != thing.NoError {
				return rv
			}
		}
	} else if len(creatures) > 0 && !flags.Has(thing.FlagIgnoreBlockCreature) {
		for _, other := range creatures {
			if !other.IsGhost() {
				return thing.NotEnoughRoom
			}
		}
	}

	if !flags.Has(thing.FlagIgnoreBlockItem) {
		if t.HasFlag(FlagBlockSolid) {
			return thing.NotEnoughRoom
		}
		return thing.NoError
	}

	// С FlagIgnoreBlockItem мешают только неподвижные блокирующие предметы
	blocker := t.findItem(func(it *item.Item) bool {
		return it.HasProperty(item.PropImmovableBlockSolid)
	})
	if blocker != nil {
		return thing.NotPossible
	}
	return thing.NoError
}

// canWalkThrough игрок проходит сквозь невидимых и сквозь игроков в защищённой зоне
func (t *Tile) canWalkThrough(other *creature.Creature) bool {
	if other.IsGhost() {
		return true
	}
	return other.IsPlayer() && t.HasFlag(FlagProtectionZone)
}

func pzLockCheck(from, to *Tile) thing.ReturnValue {
	if !from.HasFlag(FlagPvpZone) {
		if to.HasFlag(FlagPvpZone) {
			return thing.PlayerIsPzLockedEnterPvpZone
		}
	} else if !to.HasFlag(FlagPvpZone) {
		return thing.PlayerIsPzLockedLeavePvpZone
	}

	if (!from.HasFlag(FlagNoPvpZone) && to.HasFlag(FlagNoPvpZone)) ||
		(!from.HasFlag(FlagProtectionZone) && to.HasFlag(FlagProtectionZone)) {
		return thing.PlayerIsPzLocked
	}
	return thing.NoError
}

func (t *Tile) queryAddItem(it *item.Item, flags thing.Flags) thing.ReturnValue {
	list := t.itemList()
	if list.Len() >= MaxItems {
		return thing.NotPossible
	}
	if thing.IsAncestor(it, t) {
		return thing.ThisIsImpossible
	}
	if it.IsMagicField() {
		if field := t.FieldItem(); field != nil && !field.Type().Replaceable {
			return thing.NotPossible
		}
	}
	if flags.Has(thing.FlagNoLimit) {
		return thing.NoError
	}

	if it.IsGround() {
		if t.ground != nil {
			return thing.NotEnoughRoom
		}
		return thing.NoError
	}

	hangable := it.IsHangable()
	if t.ground == nil && !hangable {
		return thing.NotPossible
	}

	if it.IsBlocking() && !flags.Has(thing.FlagIgnoreBlockCreature) {
		for _, c := range t.creatureList() {
			if !c.IsGhost() {
				return thing.NotEnoughRoom
			}
		}
	}

	if hangable && t.HasFlag(FlagSupportsHangable) {
		for _, other := range list.All() {
			if other.IsHangable() {
				return thing.NeedExchange
			}
		}
		return thing.NoError
	}

	if t.ground != nil {
		if rv := blockerRefuses(t.ground, it); rv != thing.NoError {
			return rv
		}
	}
	for _, other := range list.All() {
		if rv := blockerRefuses(other, it); rv != thing.NoError {
			return rv
		}
	}
	return thing.NoError
}

// blockerRefuses решает, пускает ли блокирующий предмет blocker новый предмет it.
// Поднимаемые предметы можно класть на блокирующую мебель с высотой (стол),
// а allow_pickupable блокеры пропускают любые неблокирующие предметы, кроме полей.
func blockerRefuses(blocker, it *item.Item) thing.ReturnValue {
	bt := blocker.Type()
	if !bt.BlockSolid {
		return thing.NoError
	}
	if bt.AllowPickupable && !it.IsMagicField() && !it.IsBlocking() {
		return thing.NoError
	}
	if !it.IsPickupable() {
		return thing.NotEnoughRoom
	}
	if !bt.HasHeight || bt.Pickupable || bt.IsBed() {
		return thing.NotEnoughRoom
	}
	return thing.NoError
}

// QueryMaxCount клетка принимает сколько угодно
func (t *Tile) QueryMaxCount(index int, th thing.Thing, count uint32, flags thing.Flags) (uint32, thing.ReturnValue) {
	if count < 1 {
		return 1, thing.NoError
	}
	return count, thing.NoError
}

// QueryRemove проверяет, можно ли забрать count предметов
func (t *Tile) QueryRemove(th thing.Thing, count uint32, flags thing.Flags) thing.ReturnValue {
	if t.ThingIndex(th) == -1 {
		return thing.NotPossible
	}
	it, ok := th.(*item.Item)
	if !ok {
		return thing.NotPossible
	}
	if count == 0 || (it.IsStackable() && count > it.Count()) {
		return thing.NotPossible
	}
	if !it.IsMoveable() && !flags.Has(thing.FlagIgnoreNotMoveable) {
		return thing.NotMoveable
	}
	return thing.NoError
}

// QueryDestination перенаправляет вставку на соседний этаж или к цели телепорта.
// Любое перенаправление добавляет FlagNoLimit.
func (t *Tile) QueryDestination(index *int, th thing.Thing, flags *thing.Flags) (thing.Cylinder, thing.Thing) {
	dest := t.resolveDestination()
	if dest == nil {
		dest = t
	} else if flags != nil {
		*flags |= thing.FlagNoLimit
	}

	if top := dest.TopDownItem(); top != nil {
		return dest, top
	}
	return dest, nil
}

func (t *Tile) resolveDestination() *Tile {
	x, y, z := int(t.pos.X), int(t.pos.Y), int(t.pos.Z)

	switch {
	case t.FloorChangeDown():
		if z >= vec.MaxFloor {
			return nil
		}
		z++
		if south := t.tileAt(x, y-1, z); south != nil && south.FloorChangeTo(vec.SouthAlt) {
			return t.tileAt(x, y-2, z)
		}
		if east := t.tileAt(x-1, y, z); east != nil && east.FloorChangeTo(vec.EastAlt) {
			return t.tileAt(x-2, y, z)
		}
		down := t.tileAt(x, y, z)
		if down == nil {
			return nil
		}
		if down.FloorChangeTo(vec.North) {
			y++
		}
		if down.FloorChangeTo(vec.South) {
			y--
		}
		if down.FloorChangeTo(vec.SouthAlt) {
			y -= 2
		}
		if down.FloorChangeTo(vec.East) {
			x--
		}
		if down.FloorChangeTo(vec.EastAlt) {
			x -= 2
		}
		if down.FloorChangeTo(vec.West) {
			x++
		}
		return t.tileAt(x, y, z)

	case t.FloorChange():
		if z == 0 {
			return nil
		}
		z--
		if t.FloorChangeTo(vec.North) {
			y--
		}
		if t.FloorChangeTo(vec.South) {
			y++
		}
		if t.FloorChangeTo(vec.East) {
			x++
		}
		if t.FloorChangeTo(vec.West) {
			x--
		}
		if t.FloorChangeTo(vec.SouthAlt) {
			y += 2
		}
		if t.FloorChangeTo(vec.EastAlt) {
			x += 2
		}
		return t.tileAt(x, y, z)

	case t.PositionChange():
		portal := t.TeleportItem()
		if portal == nil {
			return nil
		}
		target, ok := portal.Destination()
		if !ok || target == t.pos {
			return nil
		}
		return t.host.TileAt(target)
	}
	return nil
}

func (t *Tile) tileAt(x, y, z int) *Tile {
	if x < 0 || y < 0 || z < 0 || x > 0xFFFF || y > 0xFFFF || z > vec.MaxFloor {
		return nil
	}
	return t.host.TileAt(vec.NewPosition(uint16(x), uint16(y), uint8(z)))
}

// AddThing кладёт объект на клетку. Вызывается только после успешного QueryAdd.
func (t *Tile) AddThing(index int, th thing.Thing) {
	switch v := th.(type) {
	case *creature.Creature:
		list := t.makeCreatureList()
		*list = append(*list, nil)
		copy((*list)[1:], *list)
		(*list)[0] = v
		v.SetParent(t)
	case *item.Item:
		t.addItem(v)
	default:
		panic(fmt.Sprintf("tile %s: неизвестный тип объекта %T", t.pos, th))
	}
}

func (t *Tile) addItem(it *item.Item) {
	it.SetParent(t)

	if it.IsGround() {
		old := t.ground
		t.ground = it
		if old != nil {
			old.SetParent(nil)
			t.rescanFlags(flagsOf(old))
			t.enqueue(Event{Kind: EventRemoved, Tile: t, Position: t.pos, Thing: old, Index: 0, Link: thing.LinkOwner})
		}
		t.flags |= flagsOf(it)
		return
	}

	list := t.makeItemList()
	switch {
	case it.IsAlwaysOnTop():
		if it.Type().IsSplash() {
			for pos, other := range list.TopItems() {
				if other.Type().IsSplash() {
					t.releaseAt(list, list.DownCount()+pos)
					break
				}
			}
		}
		list.InsertAt(list.DownCount(), it)
	case it.IsTop():
		list.InsertAt(list.Len(), it)
	default:
		if it.IsMagicField() {
			for pos, other := range list.DownItems() {
				if other.IsMagicField() {
					t.releaseAt(list, pos)
					break
				}
			}
		}
		list.InsertAt(list.DownCount(), it)
	}
	t.flags |= flagsOf(it)
}

// releaseAt вытесняет предмет из стопки и сообщает об этом наблюдателям
func (t *Tile) releaseAt(list *ItemList, pos int) {
	old := list.At(pos)
	index := t.ThingIndex(old)
	list.RemoveAt(pos)
	old.SetParent(nil)
	t.rescanFlags(flagsOf(old))
	t.enqueue(Event{Kind: EventRemoved, Tile: t, Position: t.pos, Thing: old, Index: index, Link: thing.LinkOwner})
}

// rescanFlags пересчитывает биты, которые вносил удалённый предмет
func (t *Tile) rescanFlags(removed Flag) {
	removed &= itemFlags
	if removed == 0 {
		return
	}
	var remaining Flag
	if t.ground != nil {
		remaining |= flagsOf(t.ground)
	}
	for _, it := range t.itemList().All() {
		remaining |= flagsOf(it)
	}
	t.flags = (t.flags &^ removed) | (remaining & removed)
}

// SetUniqueID задаёт unique id предмету клетки. Подвижность предмета меняется,
// поэтому флаги immovable блокировки пересчитываются.
func (t *Tile) SetUniqueID(it *item.Item, id uint16) {
	if it.Parent() != thing.Cylinder(t) {
		panic(fmt.Sprintf("tile %s: %s лежит не на этой клетке", t.pos, it))
	}
	before := flagsOf(it)
	it.SetUniqueID(id)
	t.rescanFlags(before)
	t.flags |= flagsOf(it)
}

// InternalAddThing вставка при загрузке карты: без проверок и событий
func (t *Tile) InternalAddThing(index int, th thing.Thing) {
	switch v := th.(type) {
	case *creature.Creature:
		list := t.makeCreatureList()
		*list = append([]*creature.Creature{v}, *list...)
		v.SetParent(t)
	case *item.Item:
		v.SetParent(t)
		if v.IsGround() {
			if t.ground == nil {
				t.ground = v
				t.flags |= flagsOf(v)
			}
			return
		}
		list := t.makeItemList()
		if v.IsTop() {
			list.InsertAt(list.Len(), v)
		} else {
			list.InsertAt(list.DownCount(), v)
		}
		t.flags |= flagsOf(v)
	}
}

// UpdateThing превращает предмет в другой вид и/или меняет размер стопки
func (t *Tile) UpdateThing(th thing.Thing, itemID uint16, count uint32) {
	it, ok := th.(*item.Item)
	if !ok {
		return
	}
	index := t.ThingIndex(it)
	if index == -1 {
		return
	}

	if it.ID() != itemID {
		typ, found := t.host.ItemType(itemID)
		if !found {
			panic(fmt.Sprintf("tile %s: неизвестный вид предмета %d", t.pos, itemID))
		}
		old := flagsOf(it)
		it.Transform(typ)
		t.rescanFlags(old)
		t.flags |= flagsOf(it)
	}
	it.SetCount(count)

	t.enqueue(Event{Kind: EventUpdated, Tile: t, Position: t.pos, Thing: it, Index: index, Link: thing.LinkOwner})
}

// ReplaceThing ставит предмет на место объекта с индексом index.
// Заменить существо или выйти за диапазон - ошибка программы.
func (t *Tile) ReplaceThing(index int, th thing.Thing) {
	it, ok := th.(*item.Item)
	if !ok {
		panic(fmt.Sprintf("tile %s: заменять можно только предметом", t.pos))
	}

	var old *item.Item
	pos := index
	if t.ground != nil {
		if pos == 0 {
			old = t.ground
			t.ground = it
		}
		pos--
	}

	list := t.itemList()
	if old == nil {
		switch {
		case pos >= 0 && pos < list.DownCount():
			old = list.ReplaceAt(pos, it)
		case pos >= list.DownCount()+len(t.creatureList()) && pos < list.DownCount()+len(t.creatureList())+list.TopCount():
			old = list.ReplaceAt(pos-len(t.creatureList()), it)
		default:
			panic(fmt.Sprintf("tile %s: индекс %d нельзя заменить", t.pos, index))
		}
	}

	it.SetParent(t)
	old.SetParent(nil)
	t.rescanFlags(flagsOf(old))
	t.flags |= flagsOf(it)

	t.enqueue(Event{Kind: EventUpdated, Tile: t, Position: t.pos, Thing: it, Index: index, Link: thing.LinkOwner})
}

// RemoveThing забирает объект. Стопка уменьшается на месте, если забирают не всё,
// в любом диапазоне клетки.
func (t *Tile) RemoveThing(th thing.Thing, count uint32) {
	switch v := th.(type) {
	case *creature.Creature:
		if len(t.creatureList()) == 0 {
			return
		}
		list := t.makeCreatureList()
		for i, c := range *list {
			if c == v {
				*list = append((*list)[:i], (*list)[i+1:]...)
				v.SetParent(nil)
				return
			}
		}
	case *item.Item:
		if index := t.ThingIndex(v); index != -1 && v.IsStackable() && count < v.Count() {
			v.SetCount(v.Count() - count)
			t.enqueue(Event{Kind: EventUpdated, Tile: t, Position: t.pos, Thing: v, Index: index, Link: thing.LinkOwner})
			return
		}
		if v == t.ground {
			t.ground = nil
			v.SetParent(nil)
			t.rescanFlags(flagsOf(v))
			return
		}

		list := t.itemList()
		pos := list.IndexOf(v)
		if pos == -1 {
			return
		}
		list.RemoveAt(pos)
		v.SetParent(nil)
		t.rescanFlags(flagsOf(v))
	}
}

// PostAddNotification ставит в очередь событие о появлении объекта
func (t *Tile) PostAddNotification(th thing.Thing, oldParent thing.Cylinder, index int, link thing.Link) {
	t.enqueue(Event{
		Kind:     EventAdded,
		Tile:     t,
		Position: t.pos,
		Thing:    th,
		Index:    index,
		Other:    oldParent,
		Link:     link,
	})
}

// PostRemoveNotification ставит в очередь событие об исчезновении объекта
func (t *Tile) PostRemoveNotification(th thing.Thing, newParent thing.Cylinder, index int, link thing.Link) {
	t.enqueue(Event{
		Kind:     EventRemoved,
		Tile:     t,
		Position: t.pos,
		Thing:    th,
		Index:    index,
		Other:    newParent,
		Link:     link,
	})
}
