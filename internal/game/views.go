package game

import (
	"github.com/annel0/mmo-tiles/internal/vec"
	"github.com/annel0/mmo-tiles/internal/world"
	"github.com/annel0/mmo-tiles/internal/world/tile"
)

// TileView снимок клетки для REST
type TileView struct {
	Position vec.Position      `json:"position"`
	Zone     string            `json:"zone"`
	Flags    uint32            `json:"flags"`
	Dynamic  bool              `json:"dynamic"`
	Ground   *world.ThingInfo  `json:"ground,omitempty"`
	Things   []world.ThingInfo `json:"things"`
}

// NewTileView описывает содержимое клетки в порядке индексов
// (пол, нижние предметы, существа, верхние предметы)
func NewTileView(t *tile.Tile) TileView {
	view := TileView{
		Position: t.Position(),
		Zone:     t.Zone().String(),
		Flags:    uint32(t.Flags()),
		Dynamic:  t.HasFlag(tile.FlagDynamicTile),
		Things:   make([]world.ThingInfo, 0, t.ThingCount()),
	}
	if g := t.Ground(); g != nil {
		info := world.DescribeThing(g)
		view.Ground = &info
	}
	for i := t.FirstIndex(); i < t.LastIndex(); i++ {
		if th := t.ThingAt(i); th != nil {
			view.Things = append(view.Things, world.DescribeThing(th))
		}
	}
	return view
}

// PlayerView игрок в игре
type PlayerView struct {
	ID        uint32       `json:"id"`
	Name      string       `json:"name"`
	AccountID uint64       `json:"account_id"`
	Position  vec.Position `json:"position"`
	Direction string       `json:"direction"`
}
