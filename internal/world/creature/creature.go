// Package creature описывает существ мира: игроков, монстров и NPC.
package creature

import (
	"fmt"

	"github.com/annel0/mmo-tiles/internal/vec"
	"github.com/annel0/mmo-tiles/internal/world/thing"
)

// Kind вид существа
type Kind uint8

const (
	KindPlayer Kind = iota
	KindMonster
	KindNpc
)

// String возвращает имя вида
func (k Kind) String() string {
	switch k {
	case KindPlayer:
		return "player"
	case KindMonster:
		return "monster"
	case KindNpc:
		return "npc"
	default:
		return "unknown"
	}
}

// Options параметры создания существа
type Options struct {
	Name      string
	Health    int32
	MaxHealth int32
	Speed     uint16
	Direction vec.Direction

	// Поведение монстров
	Pushable          bool
	CanPushItems      bool
	CanPushCreatures  bool
	Immunities        []string
	WalkOnFields      []string
	IgnoreFieldDamage bool
	Master            *Creature

	// Игроки
	AccountID    int64
	AccessPlayer bool
	Ghost        bool
}

// Creature существо в мире.
// Клетка хранит только ссылку; владелец существа - Registry.
type Creature struct {
	id        uint32
	kind      Kind
	name      string
	parent    thing.Cylinder
	direction vec.Direction
	health    int32
	maxHealth int32
	speed     uint16

	pushable          bool
	canPushItems      bool
	canPushCreatures  bool
	immunities        map[string]bool
	walkOnFields      map[string]bool
	ignoreFieldDamage bool
	master            *Creature

	accountID    int64
	accessPlayer bool
	ghost        bool
	pzLocked     bool
}

// New создаёт существо без идентификатора; ID назначает Registry.Add
func New(kind Kind, opts Options) *Creature {
	c := &Creature{
		kind:              kind,
		name:              opts.Name,
		direction:         opts.Direction,
		health:            opts.Health,
		maxHealth:         opts.MaxHealth,
		speed:             opts.Speed,
		pushable:          opts.Pushable,
		canPushItems:      opts.CanPushItems,
		canPushCreatures:  opts.CanPushCreatures,
		immunities:        toSet(opts.Immunities),
		walkOnFields:      toSet(opts.WalkOnFields),
		ignoreFieldDamage: opts.IgnoreFieldDamage,
		master:            opts.Master,
		accountID:         opts.AccountID,
		accessPlayer:      opts.AccessPlayer,
		ghost:             opts.Ghost,
	}
	if c.maxHealth < c.health {
		c.maxHealth = c.health
	}
	return c
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}

// ID идентификатор существа (0 до регистрации)
func (c *Creature) ID() uint32 { return c.id }

// Kind вид существа
func (c *Creature) Kind() Kind { return c.kind }

// Name имя существа
func (c *Creature) Name() string { return c.name }

// IsPlayer игрок
func (c *Creature) IsPlayer() bool { return c.kind == KindPlayer }

// IsMonster монстр
func (c *Creature) IsMonster() bool { return c.kind == KindMonster }

// IsNpc неигровой персонаж
func (c *Creature) IsNpc() bool { return c.kind == KindNpc }

// Parent реализует thing.Thing
func (c *Creature) Parent() thing.Cylinder { return c.parent }

// SetParent реализует thing.Thing
func (c *Creature) SetParent(p thing.Cylinder) { c.parent = p }

// Position позиция клетки, на которой стоит существо
func (c *Creature) Position() vec.Position {
	if c.parent == nil {
		return vec.Position{}
	}
	return c.parent.Position()
}

// IsRemoved существо не стоит ни на одной клетке
func (c *Creature) IsRemoved() bool { return c.parent == nil }

// ThrowRange существа бросить нельзя дальше соседней клетки
func (c *Creature) ThrowRange() int { return 1 }

// IsPushable можно ли вытолкнуть существо с клетки
func (c *Creature) IsPushable() bool {
	if c.kind == KindPlayer {
		return !c.accessPlayer
	}
	return c.pushable && c.speed != 0
}

// Direction направление взгляда
func (c *Creature) Direction() vec.Direction { return c.direction }

// SetDirection поворачивает существо
func (c *Creature) SetDirection(d vec.Direction) { c.direction = d }

// Health текущее здоровье
func (c *Creature) Health() int32 { return c.health }

// MaxHealth максимальное здоровье
func (c *Creature) MaxHealth() int32 { return c.maxHealth }

// Speed скорость передвижения
func (c *Creature) Speed() uint16 { return c.speed }

// CanPushItems монстр раздвигает предметы на пути
func (c *Creature) CanPushItems() bool { return c.canPushItems }

// CanPushCreatures монстр выталкивает других существ
func (c *Creature) CanPushCreatures() bool { return c.canPushCreatures }

// IsImmune невосприимчив к типу урона
func (c *Creature) IsImmune(combatType string) bool { return c.immunities[combatType] }

// CanWalkOnField ходит по полю этого типа добровольно
func (c *Creature) CanWalkOnField(combatType string) bool { return c.walkOnFields[combatType] }

// IsIgnoringFieldDamage монстр атакован и игнорирует урон полей
func (c *Creature) IsIgnoringFieldDamage() bool { return c.ignoreFieldDamage }

// SetIgnoringFieldDamage включает игнорирование урона полей
func (c *Creature) SetIgnoringFieldDamage(v bool) { c.ignoreFieldDamage = v }

// Master хозяин призванного существа
func (c *Creature) Master() *Creature { return c.master }

// IsSummon призванное существо
func (c *Creature) IsSummon() bool { return c.master != nil }

// AccountID аккаунт игрока
func (c *Creature) AccountID() int64 { return c.accountID }

// IsAccessPlayer игрок с правами администратора
func (c *Creature) IsAccessPlayer() bool { return c.accessPlayer }

// IsGhost невидимое существо
func (c *Creature) IsGhost() bool { return c.ghost }

// SetGhost включает режим невидимости
func (c *Creature) SetGhost(v bool) { c.ghost = v }

// IsPzLocked игрок недавно атаковал другого игрока
func (c *Creature) IsPzLocked() bool { return c.pzLocked }

// SetPzLocked задаёт блокировку входа в защищённые зоны
func (c *Creature) SetPzLocked(v bool) { c.pzLocked = v }

// CanSee видит ли существо другое существо
func (c *Creature) CanSee(other *Creature) bool {
	if other == nil {
		return false
	}
	return !other.ghost || c.accessPlayer || c == other
}

// String для логов
func (c *Creature) String() string {
	return fmt.Sprintf("%s %q#%d", c.kind, c.name, c.id)
}
