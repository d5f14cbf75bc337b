package world

import (
	"testing"

	"github.com/annel0/mmo-tiles/internal/vec"
	"github.com/annel0/mmo-tiles/internal/world/item"
	"github.com/annel0/mmo-tiles/internal/world/thing"
	"github.com/stretchr/testify/assert"
)

func TestCanThrow(t *testing.T) {
	w, m := newTestWorld()
	area(m, 0, 0, 20, 6, 7)
	put(m, m.TileAt(vec.NewPosition(5, 3, 7)), item.StoneWallID, 1)

	from := vec.NewPosition(2, 3, 7)
	assert.Equal(t, thing.NoError, w.CanThrow(from, from, 0), "Своя клетка всегда досягаема")
	assert.Equal(t, thing.NoError, w.CanThrow(from, vec.NewPosition(4, 1, 7), 2))
	assert.Equal(t, thing.DestinationOutOfReach, w.CanThrow(from, vec.NewPosition(5, 1, 7), 2))
	assert.Equal(t, thing.CannotThrow, w.CanThrow(from, vec.NewPosition(8, 3, 7), 15), "Стена на линии броска")
	assert.Equal(t, thing.NoError, w.CanThrow(from, vec.NewPosition(5, 3, 7), 15), "Клетка назначения не проверяется")
	assert.Equal(t, thing.NoError, w.CanThrow(from, vec.NewPosition(8, 6, 7), 15), "Обход стены по диагонали")
	assert.Equal(t, thing.CannotThrow, w.CanThrow(from, vec.NewPosition(2, 3, 6), 15), "Бросок на другой этаж")
}
