package tile

import (
	"github.com/annel0/mmo-tiles/internal/vec"
	"github.com/annel0/mmo-tiles/internal/world/item"
)

// Flag бит состояния клетки
type Flag uint32

const (
	FlagProtectionZone Flag = 1 << iota
	FlagDeprecatedHouse
	FlagNoPvpZone
	FlagNoLogout
	FlagPvpZone
	FlagRefresh
	FlagHouse

	FlagFloorChange
	FlagFloorChangeDown
	FlagFloorChangeNorth
	FlagFloorChangeSouth
	FlagFloorChangeEast
	FlagFloorChangeWest

	FlagTeleport
	FlagMagicField
	FlagMailbox
	FlagTrashHolder
	FlagBed
	FlagDepot

	FlagBlockSolid
	FlagBlockPath
	FlagImmovableBlockSolid
	FlagImmovableBlockPath
	FlagImmovableNoFieldBlockPath
	FlagNoFieldBlockPath

	// FlagDynamicTile выбирает вариант хранения; задаётся только конструктором.
	FlagDynamicTile

	FlagFloorChangeSouthAlt
	FlagFloorChangeEastAlt
	FlagSupportsHangable
)

// ZoneFlags биты, которые выставляет загрузчик карты
const ZoneFlags = FlagProtectionZone | FlagNoPvpZone | FlagNoLogout | FlagPvpZone |
	FlagRefresh | FlagHouse | FlagDeprecatedHouse

// itemFlags биты, которые выводятся из содержимого клетки
const itemFlags = FlagFloorChange | FlagFloorChangeDown | FlagFloorChangeNorth |
	FlagFloorChangeSouth | FlagFloorChangeEast | FlagFloorChangeWest |
	FlagFloorChangeSouthAlt | FlagFloorChangeEastAlt |
	FlagTeleport | FlagMagicField | FlagMailbox | FlagTrashHolder | FlagBed | FlagDepot |
	FlagBlockSolid | FlagBlockPath | FlagImmovableBlockSolid | FlagImmovableBlockPath |
	FlagImmovableNoFieldBlockPath | FlagNoFieldBlockPath | FlagSupportsHangable

// Zone классификация клетки
type Zone uint8

const (
	ZoneNormal Zone = iota
	ZoneProtection
	ZoneNoPvp
	ZonePvp
	ZoneNoLogout
)

// String имя зоны
func (z Zone) String() string {
	switch z {
	case ZoneProtection:
		return "protection"
	case ZoneNoPvp:
		return "no_pvp"
	case ZonePvp:
		return "pvp"
	case ZoneNoLogout:
		return "no_logout"
	default:
		return "normal"
	}
}

// zoneOf проверяет биты в фиксированном порядке приоритета
func zoneOf(f Flag) Zone {
	switch {
	case f&FlagProtectionZone != 0:
		return ZoneProtection
	case f&FlagNoPvpZone != 0:
		return ZoneNoPvp
	case f&FlagPvpZone != 0:
		return ZonePvp
	case f&FlagNoLogout != 0:
		return ZoneNoLogout
	default:
		return ZoneNormal
	}
}

var floorChangeBits = []struct {
	src item.FloorChange
	dst Flag
}{
	{item.FloorChangeDown, FlagFloorChangeDown},
	{item.FloorChangeNorth, FlagFloorChangeNorth},
	{item.FloorChangeSouth, FlagFloorChangeSouth},
	{item.FloorChangeEast, FlagFloorChangeEast},
	{item.FloorChangeWest, FlagFloorChangeWest},
	{item.FloorChangeSouthAlt, FlagFloorChangeSouthAlt},
	{item.FloorChangeEastAlt, FlagFloorChangeEastAlt},
}

// flagsOf вычисляет биты, которые вносит один предмет
func flagsOf(it *item.Item) Flag {
	var f Flag
	typ := it.Type()

	if typ.FloorChange != 0 {
		f |= FlagFloorChange
		for _, b := range floorChangeBits {
			if typ.FloorChange&b.src != 0 {
				f |= b.dst
			}
		}
	}

	if it.HasProperty(item.PropImmovableBlockSolid) {
		f |= FlagImmovableBlockSolid
	}
	if it.HasProperty(item.PropBlockPath) {
		f |= FlagBlockPath
	}
	if it.HasProperty(item.PropNoFieldBlockPath) {
		f |= FlagNoFieldBlockPath
	}
	if it.HasProperty(item.PropImmovableNoFieldBlockPath) {
		f |= FlagImmovableNoFieldBlockPath
	}
	if it.HasProperty(item.PropImmovableBlockPath) {
		f |= FlagImmovableBlockPath
	}
	if it.HasProperty(item.PropBlockSolid) {
		f |= FlagBlockSolid
	}
	if it.HasProperty(item.PropSupportHangable) {
		f |= FlagSupportsHangable
	}

	switch {
	case typ.IsTeleport():
		f |= FlagTeleport
	case typ.IsMagicField():
		f |= FlagMagicField
	case typ.IsMailbox():
		f |= FlagMailbox
	case typ.IsTrashHolder():
		f |= FlagTrashHolder
	case typ.IsBed():
		f |= FlagBed
	case typ.IsDepot():
		f |= FlagDepot
	}
	return f
}

// floorChangeFlag соответствие направления биту смены этажа
func floorChangeFlag(dir vec.Direction) Flag {
	switch dir {
	case vec.North:
		return FlagFloorChangeNorth
	case vec.South:
		return FlagFloorChangeSouth
	case vec.East:
		return FlagFloorChangeEast
	case vec.West:
		return FlagFloorChangeWest
	case vec.SouthAlt:
		return FlagFloorChangeSouthAlt
	case vec.EastAlt:
		return FlagFloorChangeEastAlt
	default:
		return 0
	}
}
