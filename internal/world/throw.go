package world

import (
	"github.com/annel0/mmo-tiles/internal/vec"
	"github.com/annel0/mmo-tiles/internal/world/item"
	"github.com/annel0/mmo-tiles/internal/world/thing"
)

// CanThrow проверяет бросок с from на to в пределах одного этажа: расстояние
// по каждой оси не больше throwRange, а клетки между концами не задерживают снаряды.
func (w *World) CanThrow(from, to vec.Position, throwRange int) thing.ReturnValue {
	if from.Z != to.Z {
		return thing.CannotThrow
	}
	if from.DistanceX(to) > throwRange || from.DistanceY(to) > throwRange {
		return thing.DestinationOutOfReach
	}
	if !w.clearLine(from, to) {
		return thing.CannotThrow
	}
	return thing.NoError
}

// clearLine идёт по линии Брезенхэма; клетки на концах не проверяются
func (w *World) clearLine(from, to vec.Position) bool {
	x, y := int(from.X), int(from.Y)
	x1, y1 := int(to.X), int(to.Y)
	dx, sx := absStep(x1 - x)
	dy, sy := absStep(y1 - y)
	e := dx - dy

	for {
		if x == x1 && y == y1 {
			return true
		}
		e2 := 2 * e
		if e2 > -dy {
			e -= dy
			x += sx
		}
		if e2 < dx {
			e += dx
			y += sy
		}
		if x == x1 && y == y1 {
			return true
		}
		t := w.m.TileAt(vec.NewPosition(uint16(x), uint16(y), from.Z))
		if t != nil && t.HasProperty(item.PropBlockProjectile) {
			return false
		}
	}
}

func absStep(d int) (int, int) {
	switch {
	case d < 0:
		return -d, -1
	case d > 0:
		return d, 1
	default:
		return 0, 0
	}
}
