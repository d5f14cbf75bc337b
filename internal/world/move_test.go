package world

import (
	"testing"

	"github.com/annel0/mmo-tiles/internal/vec"
	"github.com/annel0/mmo-tiles/internal/world/item"
	"github.com/annel0/mmo-tiles/internal/world/thing"
	"github.com/annel0/mmo-tiles/internal/world/tile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoveItem_ConservesCounts(t *testing.T) {
	w, m := newTestWorld()
	src := floor(m, 10, 10, 7)
	dst := floor(m, 11, 10, 7)
	coins := put(m, src, item.GoldCoinID, 30)

	total := func() uint32 {
		return src.ItemTypeCount(item.GoldCoinID, -1) + dst.ItemTypeCount(item.GoldCoinID, -1)
	}

	moved, rv := w.MoveItem(src, dst, thing.IndexWherever, coins, 10, 0, nil)
	require.Equal(t, thing.NoError, rv)
	require.NotNil(t, moved)
	assert.NotSame(t, coins, moved, "Часть стопки переносится копией")
	assert.Equal(t, uint32(20), coins.Count())
	assert.Equal(t, uint32(10), moved.Count())
	assert.Equal(t, uint32(30), total(), "Количество монет должно сохраниться")

	merged, rv := w.MoveItem(src, dst, thing.IndexWherever, coins, 20, 0, nil)
	require.Equal(t, thing.NoError, rv)
	assert.Same(t, moved, merged, "Вся стопка сливается с монетами получателя")
	assert.Equal(t, uint32(30), merged.Count())
	assert.Nil(t, coins.Parent(), "Слитая стопка освобождается")
	assert.Equal(t, 0, src.ItemCount())
	assert.Equal(t, uint32(30), total())
}

func TestMoveItem_StackOverflowCreatesSecondStack(t *testing.T) {
	w, m := newTestWorld()
	src := floor(m, 10, 10, 7)
	dst := floor(m, 11, 10, 7)
	coins := put(m, src, item.GoldCoinID, 30)
	existing := put(m, dst, item.GoldCoinID, 90)

	moved, rv := w.MoveItem(src, dst, thing.IndexWherever, coins, 30, 0, nil)
	require.Equal(t, thing.NoError, rv)

	assert.Equal(t, uint32(item.MaxStackCount), existing.Count(), "Стопка получателя заполняется до предела")
	assert.Same(t, coins, moved, "Остаток переносится тем же предметом")
	assert.Equal(t, uint32(20), moved.Count())
	assert.Equal(t, 2, dst.DownItemCount())
	assert.Equal(t, uint32(120), dst.ItemTypeCount(item.GoldCoinID, -1))
	assert.Equal(t, uint32(0), src.ItemTypeCount(item.GoldCoinID, -1))
}

func TestMoveItem_RespectsTypeStackLimit(t *testing.T) {
	w, m := newTestWorld()
	src := floor(m, 10, 10, 7)
	dst := floor(m, 11, 10, 7)
	arrows := put(m, src, item.ArrowID, 20)
	existing := put(m, dst, item.ArrowID, 45)

	_, rv := w.MoveItem(src, dst, thing.IndexWherever, arrows, 20, 0, nil)
	require.Equal(t, thing.NoError, rv)
	assert.Equal(t, uint32(50), existing.Count(), "Стрелы складываются не больше 50")
	assert.Equal(t, uint32(65), dst.ItemTypeCount(item.ArrowID, -1))
}

func TestMoveItem_OntoItselfIsNoop(t *testing.T) {
	w, m := newTestWorld()
	src := floor(m, 10, 10, 7)
	coins := put(m, src, item.GoldCoinID, 5)

	moved, rv := w.MoveItem(src, src, thing.IndexWherever, coins, 5, 0, nil)
	assert.Equal(t, thing.NoError, rv)
	assert.Same(t, coins, moved)
	assert.Equal(t, uint32(5), coins.Count())
	assert.Zero(t, m.Pending(), "Перемещение на себя не порождает событий")
}

func TestMoveItem_Refusals(t *testing.T) {
	w, m := newTestWorld()
	src := floor(m, 10, 10, 7)
	dst := floor(m, 11, 10, 7)
	walled := floor(m, 12, 10, 7)
	put(m, walled, item.StoneWallID, 1)

	counter := put(m, src, item.CounterID, 1)
	_, rv := w.MoveItem(src, dst, thing.IndexWherever, counter, 1, 0, nil)
	assert.Equal(t, thing.NotMoveable, rv)

	sword := put(m, src, item.SwordID, 1)
	_, rv = w.MoveItem(src, walled, thing.IndexWherever, sword, 1, 0, nil)
	assert.Equal(t, thing.NotEnoughRoom, rv, "Стена не принимает предметы")
	assert.Same(t, thing.Cylinder(src), sword.Parent())

	_, rv = w.MoveItem(dst, src, thing.IndexWherever, sword, 1, 0, nil)
	assert.Equal(t, thing.NotPossible, rv, "Источник должен владеть предметом")

	coins := put(m, src, item.GoldCoinID, 5)
	_, rv = w.MoveItem(src, dst, thing.IndexWherever, coins, 0, 0, nil)
	assert.Equal(t, thing.NotPossible, rv, "Нулевое количество не снимается со стопки")
	assert.Equal(t, uint32(5), coins.Count())
}

func TestMoveItem_NeedExchangeSwapsHangable(t *testing.T) {
	w, m := newTestWorld()
	src := floor(m, 10, 10, 7)
	wall := floor(m, 11, 10, 7)
	put(m, wall, item.StoneWallID, 1)
	hanging := put(m, wall, item.TorchID, 1)
	torch := put(m, src, item.TorchID, 1)

	require.Equal(t, thing.NeedExchange, wall.QueryAdd(thing.IndexWherever, torch, 1, 0, nil))

	moved, rv := w.MoveItem(src, wall, thing.IndexWherever, torch, 1, 0, nil)
	require.Equal(t, thing.NoError, rv)
	assert.Same(t, torch, moved)
	assert.Same(t, thing.Cylinder(wall), torch.Parent(), "Новый факел висит на стене")
	assert.Same(t, thing.Cylinder(src), hanging.Parent(), "Старый факел перенесён на место нового")
}

func TestMoveItem_FallsThroughHole(t *testing.T) {
	w, m := newTestWorld()
	src := floor(m, 9, 10, 7)
	hole := floor(m, 10, 10, 7)
	put(m, hole, item.HoleID, 1)
	below := floor(m, 10, 10, 8)
	sword := put(m, src, item.SwordID, 1)

	_, rv := w.MoveItem(src, hole, thing.IndexWherever, sword, 1, 0, nil)
	require.Equal(t, thing.NoError, rv)
	assert.Same(t, thing.Cylinder(below), sword.Parent(), "Предмет падает на этаж ниже")
	assert.Equal(t, vec.NewPosition(10, 10, 8), sword.Position())
}

func TestMoveItem_QueuesNotifications(t *testing.T) {
	w, m := newTestWorld()
	src := floor(m, 10, 10, 7)
	dst := floor(m, 11, 10, 7)
	sword := put(m, src, item.SwordID, 1)
	coins := put(m, src, item.GoldCoinID, 10)

	_, rv := w.MoveItem(src, dst, thing.IndexWherever, sword, 1, 0, nil)
	require.Equal(t, thing.NoError, rv)
	_, rv = w.MoveItem(src, dst, thing.IndexWherever, coins, 4, 0, nil)
	require.Equal(t, thing.NoError, rv)

	events := m.drain()
	require.Len(t, events, 4)
	assert.Equal(t, tile.EventRemoved, events[0].Kind)
	assert.Same(t, src, events[0].Tile)
	assert.Equal(t, tile.EventAdded, events[1].Kind)
	assert.Same(t, dst, events[1].Tile)
	assert.Equal(t, thing.Cylinder(src), events[1].Other)
	assert.Equal(t, tile.EventUpdated, events[2].Kind, "Частичное снятие стопки сообщается обновлением")
	assert.Same(t, coins, events[2].Thing)
	assert.Equal(t, tile.EventAdded, events[3].Kind)
}

func TestAddItem_MergesAndKeepsRemainder(t *testing.T) {
	w, m := newTestWorld()
	dst := floor(m, 10, 10, 7)
	existing := put(m, dst, item.GoldCoinID, 95)

	probe := m.Catalog().MustCreate(item.GoldCoinID, 10)
	left, rv := w.AddItem(dst, probe, thing.IndexWherever, 0, true)
	require.Equal(t, thing.NoError, rv)
	assert.Zero(t, left)
	assert.Equal(t, uint32(95), existing.Count(), "Проверочный режим ничего не меняет")

	left, rv = w.AddItem(dst, probe, thing.IndexWherever, 0, false)
	require.Equal(t, thing.NoError, rv)
	assert.Zero(t, left)
	assert.Equal(t, uint32(100), existing.Count())
	assert.Equal(t, uint32(5), probe.Count())
	assert.Same(t, thing.Cylinder(dst), probe.Parent())
	assert.Equal(t, uint32(105), dst.ItemTypeCount(item.GoldCoinID, -1))
}

func TestAddItem_Refusals(t *testing.T) {
	w, m := newTestWorld()
	dst := floor(m, 10, 10, 7)
	void := m.CreateTile(vec.NewPosition(11, 10, 7), false)

	_, rv := w.AddItem(dst, m.Catalog().MustCreate(item.StoneFloorID, 1), thing.IndexWherever, 0, false)
	assert.Equal(t, thing.NotEnoughRoom, rv, "Вторая земля не кладётся")

	_, rv = w.AddItem(void, m.Catalog().MustCreate(item.SwordID, 1), thing.IndexWherever, 0, false)
	assert.Equal(t, thing.NotPossible, rv, "Без земли предмет не кладётся")
	assert.False(t, void.ItemsAllocated(), "Отказ не выделяет память статичной клетке")

	placed := put(m, dst, item.SwordID, 1)
	_, rv = w.AddItem(dst, placed, thing.IndexWherever, 0, false)
	assert.Equal(t, thing.NotPossible, rv, "Предмет уже лежит в контейнере")
}

func TestRemoveItem(t *testing.T) {
	w, m := newTestWorld()
	src := floor(m, 10, 10, 7)
	coins := put(m, src, item.GoldCoinID, 10)
	counter := put(m, src, item.CounterID, 1)

	assert.Equal(t, thing.NoError, w.RemoveItem(coins, 4, true))
	assert.Equal(t, uint32(10), coins.Count())

	require.Equal(t, thing.NoError, w.RemoveItem(coins, 4, false))
	assert.Equal(t, uint32(6), coins.Count())
	assert.Same(t, thing.Cylinder(src), coins.Parent())

	require.Equal(t, thing.NoError, w.RemoveItem(coins, 0, false))
	assert.Nil(t, coins.Parent())
	assert.Equal(t, thing.NotPossible, w.RemoveItem(coins, 0, false), "Снятый предмет не удаляется повторно")

	require.Equal(t, thing.NoError, w.RemoveItem(counter, 0, false), "Удаление игнорирует неподвижность")
	assert.Equal(t, 0, src.ItemCount())

	events := m.drain()
	require.Len(t, events, 3)
	assert.Equal(t, []tile.EventKind{tile.EventUpdated, tile.EventRemoved, tile.EventRemoved},
		[]tile.EventKind{events[0].Kind, events[1].Kind, events[2].Kind})
}

func TestPlaceCreature(t *testing.T) {
	w, m := newTestWorld()
	area(m, 9, 9, 11, 11, 7)
	center := vec.NewPosition(10, 10, 7)

	first := newPlayer("Alice")
	require.NoError(t, w.PlaceCreature(first, center, false, false))
	assert.NotZero(t, first.ID(), "Существо регистрируется при размещении")
	assert.Equal(t, center, first.Position())

	second := newPlayer("Bob")
	require.NoError(t, w.PlaceCreature(second, center, false, false))
	assert.NotEqual(t, center, second.Position(), "Занятая клетка уступает соседней")
	assert.Equal(t, 1, second.Position().Distance(center))

	got, ok := w.Creatures().Get(second.ID())
	require.True(t, ok)
	assert.Same(t, second, got)
	assert.Equal(t, 2, w.Spectators().Count())

	assert.Error(t, w.PlaceCreature(first, center, false, false), "Повторное размещение запрещено")
}

func TestPlaceCreature_ProtectionZoneAndForce(t *testing.T) {
	w, m := newTestWorld()
	area(m, 9, 9, 11, 11, 7)
	center := vec.NewPosition(10, 10, 7)
	m.TileAt(center).SetZoneFlags(tile.FlagProtectionZone | tile.FlagNoLogout)

	c := newPlayer("Carol")
	err := w.PlaceCreature(c, center, false, false)
	require.ErrorIs(t, err, ErrCannotPlace, "Рядом с защищённой клеткой нет других защищённых")
	assert.Zero(t, c.ID(), "Неразмещённое существо не регистрируется")
	assert.Zero(t, w.Creatures().Count(c.Kind()))

	require.NoError(t, w.PlaceCreature(c, center, false, true))
	assert.Equal(t, center, c.Position(), "Принудительный вход ставит на центр")
}

func TestPlaceCreature_Extended(t *testing.T) {
	w, m := newTestWorld()
	floor(m, 10, 10, 7)
	floor(m, 12, 10, 7)
	center := vec.NewPosition(10, 10, 7)

	require.NoError(t, w.PlaceCreature(newPlayer("A"), center, false, false))

	c := newPlayer("B")
	require.ErrorIs(t, w.PlaceCreature(c, center, false, false), ErrCannotPlace)
	require.NoError(t, w.PlaceCreature(c, center, true, false))
	assert.Equal(t, vec.NewPosition(12, 10, 7), c.Position(), "Расширенный поиск смотрит на две клетки")
}

func TestMoveCreatureDir(t *testing.T) {
	w, m := newTestWorld()
	area(m, 9, 9, 11, 11, 7)
	put(m, m.TileAt(vec.NewPosition(11, 10, 7)), item.StoneWallID, 1)

	c := newPlayer("Walker")
	require.NoError(t, w.PlaceCreature(c, vec.NewPosition(10, 10, 7), false, false))

	assert.Equal(t, thing.NoError, w.MoveCreatureDir(c, vec.North, 0))
	assert.Equal(t, vec.NewPosition(10, 9, 7), c.Position())
	assert.Equal(t, vec.North, c.Direction())

	assert.Equal(t, thing.NoError, w.MoveCreatureDir(c, vec.South, 0))
	assert.Equal(t, thing.NotEnoughRoom, w.MoveCreatureDir(c, vec.East, 0), "Стена не пропускает")
	assert.Equal(t, vec.NewPosition(10, 10, 7), c.Position())

	c2 := newPlayer("Other")
	require.NoError(t, w.PlaceCreature(c2, vec.NewPosition(9, 10, 7), false, false))
	assert.Equal(t, thing.NotPossible, w.MoveCreatureDir(c, vec.West, 0), "Игрок не проходит сквозь игрока")

	assert.Equal(t, thing.NoError, w.MoveCreatureDir(c, vec.SouthWest, 0))
	assert.Equal(t, thing.NotPossible, w.MoveCreatureDir(c, vec.South, 0), "За краем карты клеток нет")
}

func TestMoveCreature_FloorChanges(t *testing.T) {
	w, m := newTestWorld()
	area(m, 9, 9, 11, 12, 7)
	area(m, 9, 9, 11, 12, 6)
	area(m, 9, 9, 11, 12, 8)

	put(m, m.TileAt(vec.NewPosition(10, 10, 7)), item.RampID, 1)
	put(m, m.TileAt(vec.NewPosition(11, 9, 7)), item.HoleID, 1)

	c := newPlayer("Climber")
	require.NoError(t, w.PlaceCreature(c, vec.NewPosition(10, 9, 7), false, false))

	require.Equal(t, thing.NoError, w.MoveCreatureDir(c, vec.South, 0))
	assert.Equal(t, vec.NewPosition(10, 11, 6), c.Position(), "Пандус поднимает на этаж выше со сдвигом на юг")
	assert.Equal(t, vec.South, c.Direction())

	require.Equal(t, thing.NoError, w.MoveCreature(c, m.TileAt(vec.NewPosition(10, 9, 7)), 0))
	require.Equal(t, thing.NoError, w.MoveCreatureDir(c, vec.East, 0))
	assert.Equal(t, vec.NewPosition(11, 9, 8), c.Position(), "Дыра опускает на этаж ниже")
	assert.Nil(t, m.TileAt(vec.NewPosition(11, 9, 7)).TopCreature())
}

func TestMoveCreature_Teleport(t *testing.T) {
	w, m := newTestWorld()
	area(m, 9, 9, 11, 11, 7)
	target := floor(m, 30, 30, 7)
	portal := put(m, m.TileAt(vec.NewPosition(11, 10, 7)), item.PortalID, 1)
	portal.SetDestination(target.Position())

	c := newPlayer("Traveler")
	require.NoError(t, w.PlaceCreature(c, vec.NewPosition(10, 10, 7), false, false))

	require.Equal(t, thing.NoError, w.MoveCreatureDir(c, vec.East, 0))
	assert.Equal(t, target.Position(), c.Position())
	assert.Same(t, c, target.TopCreature())

	spectators := w.Spectators().Spectators(target.Position(), false)
	require.Len(t, spectators, 1, "Индекс зрителей следует за существом")
	assert.Same(t, c, spectators[0])
}

func TestRemoveCreature(t *testing.T) {
	w, m := newTestWorld()
	area(m, 9, 9, 11, 11, 7)

	c := newPlayer("Leaver")
	require.NoError(t, w.PlaceCreature(c, vec.NewPosition(10, 10, 7), false, false))
	from := m.TileAt(c.Position())
	m.drain()

	assert.True(t, w.RemoveCreature(c))
	assert.Nil(t, c.Parent())
	assert.Zero(t, from.CreatureCount())
	assert.Zero(t, w.Spectators().Count())
	_, ok := w.Creatures().Get(c.ID())
	assert.False(t, ok)

	events := m.drain()
	require.Len(t, events, 1)
	assert.Equal(t, tile.EventRemoved, events[0].Kind)
	assert.Same(t, c, events[0].Thing)

	assert.False(t, w.RemoveCreature(c), "Повторное удаление ничего не делает")
}

func TestMoveItem_PartialTopStackConservesCounts(t *testing.T) {
	catalog := item.DefaultCatalog()
	require.NoError(t, catalog.Register(item.ItemType{ID: 400, Name: "dust", Stackable: true, Pickupable: true, Top: true}))
	m := NewMap(catalog)
	w := New(m, nil, Options{Seed: 1})
	src := floor(m, 10, 10, 7)
	dst := floor(m, 11, 10, 7)
	dust := put(m, src, 400, 10)
	require.Equal(t, 1, src.TopItemCount())

	moved, rv := w.MoveItem(src, dst, thing.IndexWherever, dust, 3, 0, nil)
	require.Equal(t, thing.NoError, rv)
	require.NotNil(t, moved)
	assert.Same(t, thing.Cylinder(src), dust.Parent(), "Остаток верхней стопки остаётся на месте")
	assert.Equal(t, uint32(7), dust.Count())
	assert.Equal(t, uint32(3), moved.Count())
	assert.Equal(t, uint32(10), src.ItemTypeCount(400, -1)+dst.ItemTypeCount(400, -1), "Пыль не должна пропадать")

	events := m.drain()
	require.NotEmpty(t, events)
	assert.Equal(t, tile.EventUpdated, events[0].Kind, "Частичное снятие сообщается обновлением")
	assert.Equal(t, uint32(7), events[0].Count)
}
