package item

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Group категория предмета, определяющая его роль на клетке
type Group uint8

const (
	GroupNone Group = iota
	GroupGround
	GroupContainer
	GroupSplash
	GroupFluid
	GroupTeleport
	GroupMagicField
	GroupMailbox
	GroupTrashHolder
	GroupBed
	GroupDepot
)

var groupNames = map[Group]string{
	GroupNone:        "none",
	GroupGround:      "ground",
	GroupContainer:   "container",
	GroupSplash:      "splash",
	GroupFluid:       "fluid",
	GroupTeleport:    "teleport",
	GroupMagicField:  "magic_field",
	GroupMailbox:     "mailbox",
	GroupTrashHolder: "trash_holder",
	GroupBed:         "bed",
	GroupDepot:       "depot",
}

// String возвращает имя группы, как оно записано в каталоге
func (g Group) String() string {
	if name, ok := groupNames[g]; ok {
		return name
	}
	return fmt.Sprintf("group(%d)", uint8(g))
}

// ParseGroup разбирает имя группы из каталога
func ParseGroup(name string) (Group, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return GroupNone, nil
	}
	for g, n := range groupNames {
		if n == name {
			return g, nil
		}
	}
	return GroupNone, fmt.Errorf("неизвестная группа предмета %q", name)
}

// UnmarshalYAML позволяет писать группу строкой
func (g *Group) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := ParseGroup(value.Value)
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}

// FloorChange набор направлений смены этажа, которые задаёт предмет
type FloorChange uint8

const (
	FloorChangeDown FloorChange = 1 << iota
	FloorChangeNorth
	FloorChangeSouth
	FloorChangeEast
	FloorChangeWest
	FloorChangeSouthAlt
	FloorChangeEastAlt
)

var floorChangeNames = map[string]FloorChange{
	"down":      FloorChangeDown,
	"north":     FloorChangeNorth,
	"south":     FloorChangeSouth,
	"east":      FloorChangeEast,
	"west":      FloorChangeWest,
	"south_alt": FloorChangeSouthAlt,
	"east_alt":  FloorChangeEastAlt,
}

// UnmarshalYAML принимает одно направление или список направлений
func (f *FloorChange) UnmarshalYAML(value *yaml.Node) error {
	var names []string
	switch value.Kind {
	case yaml.ScalarNode:
		names = []string{value.Value}
	case yaml.SequenceNode:
		if err := value.Decode(&names); err != nil {
			return err
		}
	default:
		return fmt.Errorf("floor_change: ожидалась строка или список")
	}

	var result FloorChange
	for _, name := range names {
		bit, ok := floorChangeNames[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return fmt.Errorf("неизвестное направление смены этажа %q", name)
		}
		result |= bit
	}
	*f = result
	return nil
}

// ItemType статическое описание вида предмета из каталога.
// Экземпляры Item ссылаются на общий *ItemType и никогда его не изменяют.
type ItemType struct {
	ID   uint16 `yaml:"id"`
	Name string `yaml:"name"`

	Group Group `yaml:"group"`

	// AlwaysOnTop предметы всегда кладутся в начало верхнего диапазона клетки.
	AlwaysOnTop bool `yaml:"always_on_top"`
	// Top декоративные слои поверх существ; добавляются в конец верхнего диапазона.
	Top bool `yaml:"top"`

	Stackable  bool `yaml:"stackable"`
	Pickupable bool `yaml:"pickupable"`
	// Immovable инвертированный флаг, чтобы в YAML по умолчанию предметы были перемещаемыми.
	Immovable bool `yaml:"immovable"`

	BlockSolid      bool `yaml:"block_solid"`
	BlockPath       bool `yaml:"block_path"`
	BlockProjectile bool `yaml:"block_projectile"`
	HasHeight       bool `yaml:"has_height"`
	AllowPickupable bool `yaml:"allow_pickupable"`

	Hangable   bool `yaml:"hangable"`
	Horizontal bool `yaml:"horizontal"`
	Vertical   bool `yaml:"vertical"`

	FloorChange FloorChange `yaml:"floor_change"`

	// Параметры магических полей
	CombatType  string `yaml:"combat_type"`
	FieldDamage int    `yaml:"field_damage"`
	Replaceable bool   `yaml:"replaceable"`

	MaxCount uint16 `yaml:"max_count"`
}

// Moveable возвращает true, если предмет можно сдвинуть
func (it *ItemType) Moveable() bool {
	return !it.Immovable
}

// IsTop предмет рисуется поверх существ
func (it *ItemType) IsTop() bool { return it.AlwaysOnTop || it.Top }

// IsGround предмет занимает слот земли
func (it *ItemType) IsGround() bool { return it.Group == GroupGround }

// IsSplash лужа (заменяет предыдущую лужу на клетке)
func (it *ItemType) IsSplash() bool { return it.Group == GroupSplash }

// IsMagicField магическое поле
func (it *ItemType) IsMagicField() bool { return it.Group == GroupMagicField }

// IsTeleport телепорт
func (it *ItemType) IsTeleport() bool { return it.Group == GroupTeleport }

// IsMailbox почтовый ящик
func (it *ItemType) IsMailbox() bool { return it.Group == GroupMailbox }

// IsTrashHolder мусорная корзина
func (it *ItemType) IsTrashHolder() bool { return it.Group == GroupTrashHolder }

// IsBed кровать
func (it *ItemType) IsBed() bool { return it.Group == GroupBed }

// IsDepot шкаф депо
func (it *ItemType) IsDepot() bool { return it.Group == GroupDepot }

// IsContainer контейнер
func (it *ItemType) IsContainer() bool { return it.Group == GroupContainer || it.Group == GroupDepot }

// StackLimit максимальный размер стопки
func (it *ItemType) StackLimit() uint16 {
	if !it.Stackable {
		return 1
	}
	if it.MaxCount == 0 {
		return MaxStackCount
	}
	return it.MaxCount
}

func (it *ItemType) validate() error {
	if it.ID == 0 {
		return fmt.Errorf("предмет %q: id должен быть больше нуля", it.Name)
	}
	if it.IsGround() && it.IsTop() {
		return fmt.Errorf("предмет %d: земля не может быть always_on_top", it.ID)
	}
	if it.Stackable && it.MaxCount > MaxStackCount {
		return fmt.Errorf("предмет %d: max_count %d больше %d", it.ID, it.MaxCount, MaxStackCount)
	}
	return nil
}
