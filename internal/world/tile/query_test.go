package tile

import (
	"testing"

	"github.com/annel0/mmo-tiles/internal/vec"
	"github.com/annel0/mmo-tiles/internal/world/creature"
	"github.com/annel0/mmo-tiles/internal/world/item"
	"github.com/annel0/mmo-tiles/internal/world/thing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryAdd_Monster(t *testing.T) {
	h := newTestHost()

	rat := monster("Rat", creature.Options{Pushable: true})

	pz := h.floor(1, 1, 7)
	pz.SetZoneFlags(FlagProtectionZone)
	assert.Equal(t, thing.NotPossible, pz.QueryAdd(0, rat, 1, 0, nil), "Монстры не входят в защищённую зону")

	stairs := h.floor(2, 1, 7)
	stairs.AddThing(thing.IndexWherever, h.item(item.LadderID, 1))
	assert.Equal(t, thing.NotPossible, stairs.QueryAdd(0, rat, 1, 0, nil), "Монстры не меняют этаж")

	occupied := h.floor(3, 1, 7)
	occupied.AddThing(thing.IndexWherever, player("Alice"))
	assert.Equal(t, thing.NotEnoughRoom, occupied.QueryAdd(0, rat, 1, 0, nil))

	pusher := monster("Troll", creature.Options{CanPushCreatures: true})
	assert.Equal(t, thing.NotPossible, occupied.QueryAdd(0, pusher, 1, 0, nil), "Игрока вытолкнуть нельзя")

	withRat := h.floor(4, 1, 7)
	withRat.AddThing(thing.IndexWherever, rat)
	assert.Equal(t, thing.NoError, withRat.QueryAdd(0, pusher, 1, 0, nil), "Толкаемого монстра можно вытеснить")

	blocked := h.floor(5, 1, 7)
	blocked.AddThing(thing.IndexWherever, h.item(item.BarrelID, 1))
	cat := monster("Cat", creature.Options{})
	assert.Equal(t, thing.NotPossible, blocked.QueryAdd(0, cat, 1, 0, nil))
	assert.Equal(t, thing.NoError, blocked.QueryAdd(0, cat, 1, thing.FlagIgnoreBlockItem, nil))
	assert.Equal(t, thing.NoError, blocked.QueryAdd(0, monster("Bear", creature.Options{CanPushItems: true}), 1, 0, nil))

	walled := h.floor(6, 1, 7)
	walled.AddThing(thing.IndexWherever, h.item(item.MailboxID, 1))
	assert.Equal(t, thing.NotPossible, walled.QueryAdd(0, monster("Bear", creature.Options{CanPushItems: true}), 1, 0, nil),
		"Неподвижный блокирующий предмет не сдвинуть")
}

func TestQueryAdd_MonsterAndFields(t *testing.T) {
	h := newTestHost()
	burning := h.floor(1, 1, 7)
	burning.AddThing(thing.IndexWherever, h.item(item.FireFieldID, 1))

	cat := monster("Cat", creature.Options{})
	assert.Equal(t, thing.NotPossible, burning.QueryAdd(0, cat, 1, 0, nil), "Монстр обходит опасное поле")
	assert.Equal(t, thing.NotPossible, burning.QueryAdd(0, cat, 1, thing.FlagIgnoreFieldDamage, nil))

	demon := monster("Demon", creature.Options{Immunities: []string{"fire"}})
	assert.Equal(t, thing.NoError, burning.QueryAdd(0, demon, 1, 0, nil), "Невосприимчивый монстр проходит")

	imp := monster("Imp", creature.Options{WalkOnFields: []string{"fire"}})
	assert.Equal(t, thing.NotPossible, burning.QueryAdd(0, imp, 1, 0, nil), "Без флага поле обходится")
	assert.Equal(t, thing.NoError, burning.QueryAdd(0, imp, 1, thing.FlagIgnoreFieldDamage, nil))

	cat.SetIgnoringFieldDamage(true)
	assert.Equal(t, thing.NoError, burning.QueryAdd(0, cat, 1, thing.FlagIgnoreFieldDamage, nil), "Атакованный монстр игнорирует урон")

	walledIn := h.floor(2, 1, 7)
	walledIn.AddThing(thing.IndexWherever, h.item(item.MagicWallID, 1))
	assert.Equal(t, thing.NotPossible, walledIn.QueryAdd(0, demon, 1, 0, nil), "Магическая стена непроходима")
}

func TestQueryAdd_Player(t *testing.T) {
	h := newTestHost()

	occupied := h.floor(1, 1, 7)
	occupied.AddThing(thing.IndexWherever, player("Bob"))

	alice := player("Alice")
	assert.Equal(t, thing.NotPossible, occupied.QueryAdd(0, alice, 1, 0, nil), "Сквозь игроков вне защищённой зоны не пройти")
	assert.Equal(t, thing.NoError, occupied.QueryAdd(0, alice, 1, thing.FlagIgnoreBlockCreature, nil))

	gm := creature.New(creature.KindPlayer, creature.Options{Name: "GM", AccessPlayer: true})
	assert.Equal(t, thing.NoError, occupied.QueryAdd(0, gm, 1, 0, nil), "Администратор проходит сквозь игроков")

	temple := h.floor(2, 1, 7)
	temple.SetZoneFlags(FlagProtectionZone)
	temple.AddThing(thing.IndexWherever, player("Carl"))
	assert.Equal(t, thing.NoError, temple.QueryAdd(0, alice, 1, 0, nil), "В защищённой зоне игроки проходят друг сквозь друга")

	haunted := h.floor(3, 1, 7)
	haunted.AddThing(thing.IndexWherever, creature.New(creature.KindPlayer, creature.Options{Name: "Ghost", Ghost: true}))
	assert.Equal(t, thing.NoError, haunted.QueryAdd(0, alice, 1, 0, nil))

	blocked := h.floor(4, 1, 7)
	blocked.AddThing(thing.IndexWherever, h.item(item.BarrelID, 1))
	assert.Equal(t, thing.NotEnoughRoom, blocked.QueryAdd(0, alice, 1, 0, nil))
	assert.Equal(t, thing.NoError, blocked.QueryAdd(0, alice, 1, thing.FlagIgnoreBlockItem, nil), "Бочку можно сдвинуть")

	postOffice := h.floor(5, 1, 7)
	postOffice.AddThing(thing.IndexWherever, h.item(item.MailboxID, 1))
	assert.Equal(t, thing.NotPossible, postOffice.QueryAdd(0, alice, 1, thing.FlagIgnoreBlockItem, nil))

	void := h.rock(6, 1, 7)
	assert.Equal(t, thing.NotPossible, void.QueryAdd(0, alice, 1, 0, nil), "Без земли стоять нельзя")
	assert.Equal(t, thing.NoError, void.QueryAdd(0, alice, 1, thing.FlagNoLimit, nil))

	hole := h.floor(7, 1, 7)
	hole.AddThing(thing.IndexWherever, h.item(item.HoleID, 1))
	assert.Equal(t, thing.NoError, hole.QueryAdd(0, alice, 1, 0, nil))
	assert.Equal(t, thing.NotPossible, hole.QueryAdd(0, alice, 1, thing.FlagPathFinding, nil), "Поиск пути обходит смену этажа")
}

func TestQueryAdd_NoLogoutAndPzLock(t *testing.T) {
	h := newTestHost()

	arena := h.floor(1, 1, 7)
	arena.SetZoneFlags(FlagNoLogout)

	alice := player("Alice")
	assert.Equal(t, thing.NotPossible, arena.QueryAdd(0, alice, 1, 0, nil), "Нельзя войти в игру на клетке без выхода")

	start := h.floor(2, 1, 7)
	start.AddThing(thing.IndexWherever, alice)
	assert.Equal(t, thing.NoError, arena.QueryAdd(0, alice, 1, 0, nil), "Войти на клетку шагом можно")

	alice.SetPzLocked(true)

	pvp := h.floor(3, 1, 7)
	pvp.SetZoneFlags(FlagPvpZone)
	assert.Equal(t, thing.PlayerIsPzLockedEnterPvpZone, pvp.QueryAdd(0, alice, 1, 0, nil))

	pz := h.floor(4, 1, 7)
	pz.SetZoneFlags(FlagProtectionZone)
	assert.Equal(t, thing.PlayerIsPzLocked, pz.QueryAdd(0, alice, 1, 0, nil))

	noPvp := h.floor(5, 1, 7)
	noPvp.SetZoneFlags(FlagNoPvpZone)
	assert.Equal(t, thing.PlayerIsPzLocked, noPvp.QueryAdd(0, alice, 1, 0, nil))

	normal := h.floor(6, 1, 7)
	assert.Equal(t, thing.NoError, normal.QueryAdd(0, alice, 1, 0, nil))

	start.RemoveThing(alice, 1)
	pvp.AddThing(thing.IndexWherever, alice)
	assert.Equal(t, thing.PlayerIsPzLockedLeavePvpZone, normal.QueryAdd(0, alice, 1, 0, nil))

	otherPvp := h.floor(7, 1, 7)
	otherPvp.SetZoneFlags(FlagPvpZone)
	assert.Equal(t, thing.NoError, otherPvp.QueryAdd(0, alice, 1, 0, nil))
}

func TestQueryAdd_OtherCreatures(t *testing.T) {
	h := newTestHost()
	tl := h.floor(1, 1, 7)
	tl.AddThing(thing.IndexWherever, monster("Rat", creature.Options{}))

	sam := creature.New(creature.KindNpc, creature.Options{Name: "Sam"})
	assert.Equal(t, thing.NotEnoughRoom, tl.QueryAdd(0, sam, 1, 0, nil))
	assert.Equal(t, thing.NoError, tl.QueryAdd(0, sam, 1, thing.FlagIgnoreBlockCreature, nil))
}

func TestQueryDestination_FloorChange(t *testing.T) {
	h := newTestHost()
	sword := h.item(item.SwordID, 1)

	hole := h.floor(10, 10, 7)
	hole.AddThing(thing.IndexWherever, h.item(item.HoleID, 1))
	below := h.floor(10, 10, 8)

	var flags thing.Flags
	index := 0
	dest, destItem := hole.QueryDestination(&index, sword, &flags)
	assert.Same(t, below, dest, "Дыра ведёт на клетку под собой")
	assert.Nil(t, destItem)
	assert.True(t, flags.Has(thing.FlagNoLimit), "Перенаправление снимает ограничения")

	// Лестница внизу сдвигает точку выхода на север
	below.AddThing(thing.IndexWherever, h.item(item.LadderID, 1))
	exit := h.floor(10, 11, 8)
	coins := h.item(item.GoldCoinID, 5)
	exit.AddThing(thing.IndexWherever, coins)

	flags = 0
	dest, destItem = hole.QueryDestination(&index, sword, &flags)
	assert.Same(t, exit, dest)
	assert.Same(t, coins, destItem, "Возвращается первый нижний предмет для слияния")

	// Длинный пандус южнее точки спуска
	longHole := h.floor(30, 30, 7)
	longHole.AddThing(thing.IndexWherever, h.item(item.HoleID, 1))
	ramp := h.floor(30, 29, 8)
	ramp.AddThing(thing.IndexWherever, h.item(item.LongRampID, 1))
	landing := h.floor(30, 28, 8)

	flags = 0
	dest, _ = longHole.QueryDestination(&index, sword, &flags)
	assert.Same(t, landing, dest)

	eastHole := h.floor(40, 40, 7)
	eastHole.AddThing(thing.IndexWherever, h.item(item.HoleID, 1))
	eastRamp := h.floor(39, 40, 8)
	eastRamp.AddThing(thing.IndexWherever, h.item(item.LongEastRampID, 1))
	eastLanding := h.floor(38, 40, 8)

	dest, _ = eastHole.QueryDestination(&index, sword, &flags)
	assert.Same(t, eastLanding, dest)
}

func TestQueryDestination_FloorChangeUp(t *testing.T) {
	h := newTestHost()
	alice := player("Alice")

	ramp := h.floor(20, 20, 8)
	ramp.AddThing(thing.IndexWherever, h.item(item.RampID, 1))
	top := h.floor(20, 21, 7)

	var flags thing.Flags
	index := 0
	dest, _ := ramp.QueryDestination(&index, alice, &flags)
	assert.Same(t, top, dest, "Пандус на юг поднимает на клетку южнее")
	assert.True(t, flags.Has(thing.FlagNoLimit))

	longRamp := h.floor(50, 50, 8)
	longRamp.AddThing(thing.IndexWherever, h.item(item.LongEastRampID, 1))
	far := h.floor(52, 50, 7)

	dest, _ = longRamp.QueryDestination(&index, alice, &flags)
	assert.Same(t, far, dest)

	dangling := h.floor(60, 60, 8)
	dangling.AddThing(thing.IndexWherever, h.item(item.EastRampID, 1))
	flags = 0
	dest, _ = dangling.QueryDestination(&index, alice, &flags)
	assert.Same(t, dangling, dest, "Без клетки назначения объект остаётся на месте")
	assert.False(t, flags.Has(thing.FlagNoLimit))

	plain := h.floor(70, 70, 7)
	dest, _ = plain.QueryDestination(&index, alice, &flags)
	assert.Same(t, plain, dest)
}

func TestQueryDestination_Teleport(t *testing.T) {
	h := newTestHost()
	sword := h.item(item.SwordID, 1)

	gate := h.floor(5, 5, 7)
	portal := h.item(item.PortalID, 1)
	gate.AddThing(thing.IndexWherever, portal)

	var flags thing.Flags
	index := 0
	dest, _ := gate.QueryDestination(&index, sword, &flags)
	assert.Same(t, gate, dest, "Телепорт без назначения не перенаправляет")

	target := h.floor(50, 50, 6)
	portal.SetDestination(target.Position())
	dest, _ = gate.QueryDestination(&index, sword, &flags)
	assert.Same(t, target, dest)
	assert.True(t, flags.Has(thing.FlagNoLimit))

	portal.SetDestination(vec.NewPosition(999, 999, 7))
	flags = 0
	dest, _ = gate.QueryDestination(&index, sword, &flags)
	assert.Same(t, gate, dest, "Назначение вне карты игнорируется")
	require.False(t, flags.Has(thing.FlagNoLimit))
}
