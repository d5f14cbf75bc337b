package npc

import (
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/annel0/mmo-tiles/internal/vec"
	"github.com/annel0/mmo-tiles/internal/world"
	"github.com/annel0/mmo-tiles/internal/world/creature"
	"github.com/annel0/mmo-tiles/internal/world/thing"
	"github.com/annel0/mmo-tiles/internal/world/tile"
)

// Дальность разговора NPC по каждой оси
const (
	talkRangeX = 3
	talkRangeY = 3
)

// Npc неигровой персонаж на карте
type Npc struct {
	c   *creature.Creature
	def *Definition
	m   *Manager

	// точка появления и её зона ограничивают ходьбу
	master     vec.Position
	masterZone tile.Zone

	focus    uint32
	lastMove time.Time
	lastTalk time.Time
}

// Creature существо NPC
func (n *Npc) Creature() *creature.Creature { return n.c }

// Definition текущее описание
func (n *Npc) Definition() *Definition { return n.def }

// Master точка появления
func (n *Npc) Master() vec.Position { return n.master }

// Focus ID собеседника или 0
func (n *Npc) Focus() uint32 { return n.focus }

// SetFocus начинает разговор с c (nil завершает) и поворачивает NPC к нему
func (n *Npc) SetFocus(c *creature.Creature) {
	if c == nil {
		n.focus = 0
		return
	}
	n.focus = c.ID()
	n.touch()
	n.TurnTo(c)
}

func (n *Npc) touch() { n.lastTalk = n.m.now() }

// CanSee слышит ли NPC клетку: тот же этаж и не дальше трёх клеток
func (n *Npc) CanSee(pos vec.Position) bool {
	own := n.c.Position()
	return pos.Z == own.Z && own.DistanceX(pos) <= talkRangeX && own.DistanceY(pos) <= talkRangeY
}

// TurnTo поворачивает NPC лицом к существу
func (n *Npc) TurnTo(c *creature.Creature) {
	own, other := n.c.Position(), c.Position()
	dx := int(own.X) - int(other.X)
	dy := int(own.Y) - int(other.Y)

	tan := float64(10)
	if dx != 0 {
		tan = float64(dy) / float64(dx)
	}

	var dir vec.Direction
	if tan < 1 && tan > -1 {
		if dx > 0 {
			dir = vec.West
		} else {
			dir = vec.East
		}
	} else if dy > 0 {
		dir = vec.North
	} else {
		dir = vec.South
	}
	n.c.SetDirection(dir)
}

// Say говорит всем вокруг
func (n *Npc) Say(text string) {
	n.m.emit(Speech{NpcID: n.c.ID(), Npc: n.c.Name(), Position: n.c.Position(), Text: text})
}

// SayTo говорит лично игроку
func (n *Npc) SayTo(player *creature.Creature, text string) {
	n.m.emit(Speech{
		NpcID:    n.c.ID(),
		Npc:      n.c.Name(),
		TargetID: player.ID(),
		Position: n.c.Position(),
		Text:     text,
	})
}

func (n *Npc) personalize(text string, player *creature.Creature) string {
	return strings.ReplaceAll(text, "|PLAYERNAME|", player.Name())
}

// inZone клетка pos в радиусе от центра; -1 означает без ограничений
func inZone(center vec.Position, radius int, pos vec.Position) bool {
	if radius == -1 {
		return true
	}
	return center.DistanceX(pos) <= radius && center.DistanceY(pos) <= radius
}

// canWalkTo может ли NPC шагнуть из from в направлении dir
func (n *Npc) canWalkTo(w *world.World, from vec.Position, dir vec.Direction) bool {
	if n.def.WalkRadius == 0 {
		return false
	}

	to := from.Step(dir)
	if !inZone(n.master, n.def.WalkRadius, to) {
		return false
	}

	t := w.TileAt(to)
	if t == nil || t.QueryAdd(0, n.c, 1, 0, nil) != thing.NoError {
		return false
	}
	if !n.def.FloorChange && (t.FloorChange() || t.TeleportItem() != nil) {
		return false
	}
	if !n.def.IgnoresHeight() && t.HasHeight(1) {
		return false
	}
	// NPC не заходят в PvP зону, если появились вне её
	if t.Zone() == tile.ZonePvp && n.masterZone != tile.ZonePvp {
		return false
	}
	return true
}

// randomStep выбирает случайное доступное направление
func (n *Npc) randomStep(w *world.World, rng *rand.Rand) (vec.Direction, bool) {
	pos := n.c.Position()
	var dirs []vec.Direction
	for _, dir := range []vec.Direction{vec.North, vec.South, vec.East, vec.West} {
		if n.canWalkTo(w, pos, dir) {
			dirs = append(dirs, dir)
		}
	}
	if len(dirs) == 0 {
		return vec.NoDirection, false
	}
	return dirs[rng.Intn(len(dirs))], true
}

// wantsStep пора ли делать шаг
func (n *Npc) wantsStep(now time.Time) bool {
	walk := n.def.Walk()
	if walk <= 0 || n.focus != 0 {
		return false
	}
	return now.Sub(n.lastMove) >= walk
}

// sortedKeywords ключевые слова от длинных к коротким
func sortedKeywords(replies map[string]string) []string {
	keys := make([]string, 0, len(replies))
	for k := range replies {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return keys
}
