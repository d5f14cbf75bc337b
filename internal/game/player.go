package game

import (
	"sync"

	"github.com/annel0/mmo-tiles/internal/auth"
	"github.com/annel0/mmo-tiles/internal/world"
	"github.com/annel0/mmo-tiles/internal/world/creature"
	"github.com/annel0/mmo-tiles/internal/world/tile"
)

// maxPendingEvents сколько видимых событий копится до чтения клиентом
const maxPendingEvents = 256

// Player персонаж в игре. События видимых клеток копятся до чтения
// через Events; при переполнении старые отбрасываются.
type Player struct {
	character auth.Character
	creature  *creature.Creature

	mu      sync.Mutex
	events  []world.TileEventPayload
	dropped uint64
}

func newPlayer(ch *auth.Character, c *creature.Creature) *Player {
	return &Player{character: *ch, creature: c}
}

// Name имя персонажа
func (p *Player) Name() string { return p.character.Name }

// AccountID учётная запись владельца
func (p *Player) AccountID() uint64 { return p.character.AccountID }

// CharacterID идентификатор персонажа в хранилище
func (p *Player) CharacterID() uint64 { return p.character.ID }

// Creature существо персонажа; читать только из потока диспетчера
func (p *Player) Creature() *creature.Creature { return p.creature }

// OnTileEvent реализует world.Observer (вызывается диспетчером)
func (p *Player) OnTileEvent(ev tile.Event) {
	payload := world.NewTileEventPayload(ev)
	p.mu.Lock()
	if len(p.events) >= maxPendingEvents {
		n := copy(p.events, p.events[1:])
		p.events = p.events[:n]
		p.dropped++
	}
	p.events = append(p.events, payload)
	p.mu.Unlock()
}

// Events забирает накопленные события и число отброшенных
func (p *Player) Events() ([]world.TileEventPayload, uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out, dropped := p.events, p.dropped
	p.events, p.dropped = nil, 0
	return out, dropped
}
