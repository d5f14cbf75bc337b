package world

import (
	"fmt"
	"sort"
	"sync"

	"github.com/annel0/mmo-tiles/internal/vec"
	"github.com/annel0/mmo-tiles/internal/world/creature"
)

// Размер области видимости клиента: 8 клеток по X и 6 по Y от центра
const (
	MaxViewportX = 8
	MaxViewportY = 6
)

// SpectatorIndex пространственный индекс существ для поиска зрителей события
type SpectatorIndex struct {
	cellSize int
	cells    map[cellKey]*cellData
	entries  map[uint32]*indexedCreature
	mu       sync.RWMutex
}

// cellKey ячейка сетки индекса на конкретном этаже
type cellKey struct {
	x, y int
	z    uint8
}

type cellData struct {
	creatures map[uint32]*indexedCreature
}

type indexedCreature struct {
	creature *creature.Creature
	pos      vec.Position
	cell     cellKey
}

// NewSpectatorIndex создаёт индекс с указанным размером ячейки
func NewSpectatorIndex(cellSize int) *SpectatorIndex {
	if cellSize <= 0 {
		cellSize = ChunkSize
	}
	return &SpectatorIndex{
		cellSize: cellSize,
		cells:    make(map[cellKey]*cellData),
		entries:  make(map[uint32]*indexedCreature),
	}
}

func (si *SpectatorIndex) keyOf(pos vec.Position) cellKey {
	return cellKey{x: int(pos.X) / si.cellSize, y: int(pos.Y) / si.cellSize, z: pos.Z}
}

// Insert добавляет существо в индекс или переносит его на новую позицию
func (si *SpectatorIndex) Insert(c *creature.Creature, pos vec.Position) {
	si.mu.Lock()
	defer si.mu.Unlock()

	if indexed, exists := si.entries[c.ID()]; exists {
		si.moveLocked(indexed, pos)
		return
	}

	indexed := &indexedCreature{creature: c, pos: pos, cell: si.keyOf(pos)}
	si.entries[c.ID()] = indexed
	si.cellFor(indexed.cell).creatures[c.ID()] = indexed
}

// Update переносит существо на новую позицию
func (si *SpectatorIndex) Update(c *creature.Creature, pos vec.Position) {
	si.Insert(c, pos)
}

func (si *SpectatorIndex) moveLocked(indexed *indexedCreature, pos vec.Position) {
	indexed.pos = pos
	key := si.keyOf(pos)
	if key == indexed.cell {
		return
	}
	si.leaveCell(indexed)
	indexed.cell = key
	si.cellFor(key).creatures[indexed.creature.ID()] = indexed
}

// Remove удаляет существо из индекса
func (si *SpectatorIndex) Remove(id uint32) {
	si.mu.Lock()
	defer si.mu.Unlock()

	indexed, exists := si.entries[id]
	if !exists {
		return
	}
	delete(si.entries, id)
	si.leaveCell(indexed)
}

func (si *SpectatorIndex) leaveCell(indexed *indexedCreature) {
	cell, exists := si.cells[indexed.cell]
	if !exists {
		return
	}
	delete(cell.creatures, indexed.creature.ID())
	if len(cell.creatures) == 0 {
		delete(si.cells, indexed.cell)
	}
}

func (si *SpectatorIndex) cellFor(key cellKey) *cellData {
	cell, exists := si.cells[key]
	if !exists {
		cell = &cellData{creatures: make(map[uint32]*indexedCreature)}
		si.cells[key] = cell
	}
	return cell
}

// Spectators возвращает существ, которые видят клетку center, в порядке ID.
// При multiFloor учитываются соседние этажи: над землёй видны этажи 0..7
// (с 6 и 7 ещё один-два подземных), под землёй ±2 этажа.
func (si *SpectatorIndex) Spectators(center vec.Position, multiFloor bool) []*creature.Creature {
	minZ, maxZ := int(center.Z), int(center.Z)
	if multiFloor {
		minZ, maxZ = floorRange(center.Z)
	}

	// Этажи смещают видимую область на dz клеток, поэтому рамка шире вьюпорта
	spread := maxZ - minZ
	minX := int(center.X) - MaxViewportX - spread
	maxX := int(center.X) + MaxViewportX + 1 + spread
	minY := int(center.Y) - MaxViewportY - spread
	maxY := int(center.Y) + MaxViewportY + 1 + spread

	si.mu.RLock()
	defer si.mu.RUnlock()

	result := make([]*creature.Creature, 0)
	for z := minZ; z <= maxZ; z++ {
		for cx := floorDiv(minX, si.cellSize); cx <= floorDiv(maxX, si.cellSize); cx++ {
			for cy := floorDiv(minY, si.cellSize); cy <= floorDiv(maxY, si.cellSize); cy++ {
				cell, exists := si.cells[cellKey{x: cx, y: cy, z: uint8(z)}]
				if !exists {
					continue
				}
				for _, indexed := range cell.creatures {
					if CanSeePosition(indexed.pos, center) {
						result = append(result, indexed.creature)
					}
				}
			}
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID() < result[j].ID() })
	return result
}

// Count количество существ в индексе
func (si *SpectatorIndex) Count() int {
	si.mu.RLock()
	defer si.mu.RUnlock()
	return len(si.entries)
}

// Stats строка для логов
func (si *SpectatorIndex) Stats() string {
	si.mu.RLock()
	defer si.mu.RUnlock()

	maxPerCell := 0
	for _, cell := range si.cells {
		if n := len(cell.creatures); n > maxPerCell {
			maxPerCell = n
		}
	}
	return fmt.Sprintf("SpectatorIndex: %d существ, %d ячеек, максимум %d в ячейке",
		len(si.entries), len(si.cells), maxPerCell)
}

// CanSeePosition видит ли наблюдатель из viewer клетку pos.
// Над землёй подземные этажи не видны, под землёй видно на два этажа вверх и вниз.
func CanSeePosition(viewer, pos vec.Position) bool {
	if viewer.Z <= vec.SeaFloor {
		if pos.Z > vec.SeaFloor {
			return false
		}
	} else if viewer.DistanceZ(pos) > 2 {
		return false
	}

	offsetZ := int(viewer.Z) - int(pos.Z)
	x, y := int(pos.X), int(pos.Y)
	vx, vy := int(viewer.X), int(viewer.Y)
	return x >= vx-MaxViewportX+offsetZ && x <= vx+MaxViewportX+1+offsetZ &&
		y >= vy-MaxViewportY+offsetZ && y <= vy+MaxViewportY+1+offsetZ
}

func floorRange(z uint8) (int, int) {
	switch {
	case z > vec.SeaFloor:
		minZ := int(z) - 2
		if minZ < 0 {
			minZ = 0
		}
		maxZ := int(z) + 2
		if maxZ > vec.MaxFloor {
			maxZ = vec.MaxFloor
		}
		return minZ, maxZ
	case z == vec.SeaFloor-1:
		return 0, vec.SeaFloor + 1
	case z == vec.SeaFloor:
		return 0, vec.SeaFloor + 2
	default:
		return 0, vec.SeaFloor
	}
}

func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && a < 0 {
		q--
	}
	return q
}
