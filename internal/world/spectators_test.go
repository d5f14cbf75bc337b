package world

import (
	"testing"

	"github.com/annel0/mmo-tiles/internal/vec"
	"github.com/annel0/mmo-tiles/internal/world/creature"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanSeePosition(t *testing.T) {
	viewer := vec.NewPosition(100, 100, 7)

	tests := []struct {
		name string
		pos  vec.Position
		want bool
	}{
		{"в центре", vec.NewPosition(100, 100, 7), true},
		{"правый край", vec.NewPosition(109, 100, 7), true},
		{"за правым краем", vec.NewPosition(110, 100, 7), false},
		{"левый край", vec.NewPosition(92, 100, 7), true},
		{"за левым краем", vec.NewPosition(91, 100, 7), false},
		{"нижний край", vec.NewPosition(100, 107, 7), true},
		{"за нижним краем", vec.NewPosition(100, 108, 7), false},
		{"подземный этаж", vec.NewPosition(100, 100, 8), false},
		{"этаж выше со сдвигом", vec.NewPosition(93, 100, 6), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanSeePosition(viewer, tt.pos))
		})
	}

	under := vec.NewPosition(50, 50, 10)
	assert.True(t, CanSeePosition(under, vec.NewPosition(50, 50, 12)), "Под землёй видно на два этажа")
	assert.False(t, CanSeePosition(under, vec.NewPosition(50, 50, 13)))
	assert.False(t, CanSeePosition(under, vec.NewPosition(50, 50, 7)))
}

func TestFloorRange(t *testing.T) {
	cases := map[uint8][2]int{
		0:  {0, 7},
		5:  {0, 7},
		6:  {0, 8},
		7:  {0, 9},
		8:  {6, 10},
		14: {12, 15},
		15: {13, 15},
	}
	for z, want := range cases {
		minZ, maxZ := floorRange(z)
		assert.Equal(t, want, [2]int{minZ, maxZ}, "этаж %d", z)
	}
}

func TestSpectatorIndex(t *testing.T) {
	reg := creature.NewRegistry()
	index := NewSpectatorIndex(ChunkSize)

	add := func(name string, pos vec.Position) *creature.Creature {
		c := newPlayer(name)
		_, err := reg.Add(c)
		require.NoError(t, err)
		index.Insert(c, pos)
		return c
	}

	a := add("A", vec.NewPosition(15, 15, 7))
	b := add("B", vec.NewPosition(17, 16, 7))
	c := add("C", vec.NewPosition(16, 16, 6))
	add("D", vec.NewPosition(60, 60, 7))

	center := vec.NewPosition(16, 16, 7)
	assert.Equal(t, []*creature.Creature{a, b}, index.Spectators(center, false), "Без соседних этажей видны только свои")
	assert.Equal(t, []*creature.Creature{a, b, c}, index.Spectators(center, true))
	assert.Equal(t, 4, index.Count())

	index.Update(a, vec.NewPosition(40, 40, 7))
	assert.Equal(t, []*creature.Creature{b}, index.Spectators(center, false), "Индекс следует за перемещением между ячейками")

	index.Remove(b.ID())
	assert.Empty(t, index.Spectators(center, false))
	assert.Equal(t, 3, index.Count())
	assert.Contains(t, index.Stats(), "3 существ")

	index.Remove(b.ID())
	assert.Equal(t, 3, index.Count(), "Повторное удаление ничего не меняет")
}

func TestFloorDiv(t *testing.T) {
	assert.Equal(t, 0, floorDiv(5, 16))
	assert.Equal(t, -1, floorDiv(-1, 16))
	assert.Equal(t, -1, floorDiv(-16, 16))
	assert.Equal(t, -2, floorDiv(-17, 16))
}
