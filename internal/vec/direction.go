package vec

import "strings"

// Direction направление шага или смены этажа
type Direction uint8

const (
	North Direction = iota
	East
	South
	West
	SouthWest
	SouthEast
	NorthWest
	NorthEast

	// Альтернативные направления используются только пандусами смены этажа:
	// они сдвигают существо на две клетки вместо одной.
	SouthAlt
	EastAlt

	NoDirection Direction = 0xFF
)

// Delta возвращает смещение клетки для направления
func (d Direction) Delta() (dx, dy int) {
	switch d {
	case North:
		return 0, -1
	case East:
		return 1, 0
	case South:
		return 0, 1
	case West:
		return -1, 0
	case SouthWest:
		return -1, 1
	case SouthEast:
		return 1, 1
	case NorthWest:
		return -1, -1
	case NorthEast:
		return 1, -1
	case SouthAlt:
		return 0, 2
	case EastAlt:
		return 2, 0
	default:
		return 0, 0
	}
}

// IsDiagonal возвращает true для диагональных направлений
func (d Direction) IsDiagonal() bool {
	return d >= SouthWest && d <= NorthEast
}

// String возвращает имя направления
func (d Direction) String() string {
	switch d {
	case North:
		return "north"
	case East:
		return "east"
	case South:
		return "south"
	case West:
		return "west"
	case SouthWest:
		return "southwest"
	case SouthEast:
		return "southeast"
	case NorthWest:
		return "northwest"
	case NorthEast:
		return "northeast"
	case SouthAlt:
		return "south-alt"
	case EastAlt:
		return "east-alt"
	default:
		return "none"
	}
}

// DirectionTo возвращает направление от from к to на плоскости.
// Для совпадающих клеток возвращает NoDirection.
func DirectionTo(from, to Position) Direction {
	dx := int(to.X) - int(from.X)
	dy := int(to.Y) - int(from.Y)

	switch {
	case dx == 0 && dy == 0:
		return NoDirection
	case dx == 0 && dy < 0:
		return North
	case dx == 0 && dy > 0:
		return South
	case dy == 0 && dx > 0:
		return East
	case dy == 0 && dx < 0:
		return West
	case dx < 0 && dy > 0:
		return SouthWest
	case dx > 0 && dy > 0:
		return SouthEast
	case dx < 0 && dy < 0:
		return NorthWest
	default:
		return NorthEast
	}
}

// ParseDirection разбирает имя направления (north, e, sw ...)
func ParseDirection(name string) (Direction, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "north", "n":
		return North, true
	case "east", "e":
		return East, true
	case "south", "s":
		return South, true
	case "west", "w":
		return West, true
	case "southwest", "sw":
		return SouthWest, true
	case "southeast", "se":
		return SouthEast, true
	case "northwest", "nw":
		return NorthWest, true
	case "northeast", "ne":
		return NorthEast, true
	}
	return NoDirection, false
}

// CardinalDirections четыре основных направления в порядке обхода NPC
var CardinalDirections = []Direction{North, East, South, West}
