package npc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/annel0/mmo-tiles/internal/eventbus"
	"github.com/annel0/mmo-tiles/internal/logging"
	"github.com/annel0/mmo-tiles/internal/vec"
	"github.com/annel0/mmo-tiles/internal/world"
	"github.com/annel0/mmo-tiles/internal/world/creature"
	"github.com/annel0/mmo-tiles/internal/world/thing"
	"github.com/annel0/mmo-tiles/internal/world/tile"
	"github.com/google/uuid"
)

var logger = logging.Component(logging.ComponentNpc)

// EventTypeSpeech тип события реплики NPC в шине
const EventTypeSpeech = "NpcSpeech"

// DefaultThinkInterval период обработки NPC
const DefaultThinkInterval = time.Second

// ErrUnknownNpc описания с таким именем нет
var ErrUnknownNpc = errors.New("неизвестный NPC")

// Speech реплика NPC
type Speech struct {
	NpcID uint32 `json:"npc_id"`
	Npc   string `json:"npc"`
	// TargetID адресат личной реплики, 0 для всех вокруг
	TargetID uint32       `json:"target_id,omitempty"`
	Position vec.Position `json:"position"`
	Text     string       `json:"text"`
}

// Scheduler отложенные события (scheduler.Scheduler)
type Scheduler interface {
	AddEvent(delay time.Duration, task func()) uint32
	StopEvent(id uint32) bool
}

// Options параметры менеджера
type Options struct {
	// Dir каталог описаний; нужен для Reload
	Dir string
	// Definitions готовые описания (используются, если Dir пуст)
	Definitions map[string]*Definition
	// Script обработчик событий; по умолчанию DialogScript
	Script ScriptInterface
	Seed   int64
	// ThinkInterval период Think при запуске через Start
	ThinkInterval time.Duration
	// OnSpeech получает каждую реплику
	OnSpeech func(Speech)
	// Bus шина для публикации реплик (может быть nil)
	Bus eventbus.EventBus
}

// Manager владеет NPC мира. Все методы вызываются из потока диспетчера.
type Manager struct {
	w        *world.World
	dir      string
	defs     map[string]*Definition
	npcs     map[uint32]*Npc
	script   ScriptInterface
	rng      *rand.Rand
	now      func() time.Time
	onSpeech func(Speech)
	bus      eventbus.EventBus
	outbox   []Speech

	interval   time.Duration
	sched      Scheduler
	thinkEvent uint32
}

// NewManager создаёт менеджер и загружает описания
func NewManager(w *world.World, opts Options) (*Manager, error) {
	defs := opts.Definitions
	if opts.Dir != "" {
		loaded, err := LoadDefinitions(opts.Dir)
		if err != nil {
			return nil, err
		}
		defs = loaded
	}
	if defs == nil {
		defs = make(map[string]*Definition)
	}

	script := opts.Script
	if script == nil {
		script = DialogScript{}
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	interval := opts.ThinkInterval
	if interval <= 0 {
		interval = DefaultThinkInterval
	}

	logger.Info("🧍 Загружено описаний NPC: %d", len(defs))
	return &Manager{
		w:        w,
		dir:      opts.Dir,
		defs:     defs,
		npcs:     make(map[uint32]*Npc),
		script:   script,
		rng:      rand.New(rand.NewSource(seed)),
		now:      time.Now,
		onSpeech: opts.OnSpeech,
		bus:      opts.Bus,
		interval: interval,
	}, nil
}

// Definitions имена загруженных описаний по алфавиту
func (m *Manager) Definitions() []string {
	names := make([]string, 0, len(m.defs))
	for _, def := range m.defs {
		names = append(names, def.Name)
	}
	sort.Strings(names)
	return names
}

// Spawn ставит NPC по описанию name рядом с pos
func (m *Manager) Spawn(name string, pos vec.Position) (*Npc, error) {
	def, ok := m.defs[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrUnknownNpc)
	}

	c := creature.New(creature.KindNpc, creature.Options{
		Name:      def.Name,
		Health:    def.Health,
		MaxHealth: def.MaxHealth,
		Speed:     def.Speed,
		Direction: vec.South,
	})
	if err := m.w.PlaceCreature(c, pos, false, false); err != nil {
		return nil, err
	}

	n := &Npc{c: c, def: def, m: m, master: c.Position(), lastMove: m.now()}
	if t := m.w.TileAt(n.master); t != nil {
		n.masterZone = t.Zone()
	}
	m.npcs[c.ID()] = n
	// OnCreatureAppear для самого NPC придёт с событием появления на клетке
	m.w.Attach(c.ID(), world.ObserverFunc(func(ev tile.Event) { m.onTileEvent(n, ev) }))
	logger.Debug("NPC %s появился в %s", def.Name, n.master)
	return n, nil
}

// Despawn убирает NPC с карты
func (m *Manager) Despawn(id uint32) bool {
	n, ok := m.npcs[id]
	if !ok {
		return false
	}
	m.script.OnCreatureDisappear(n, n.c)
	m.flush()

	delete(m.npcs, id)
	m.w.Detach(id)
	m.w.RemoveCreature(n.c)
	return true
}

// Get NPC по ID существа
func (m *Manager) Get(id uint32) (*Npc, bool) {
	n, ok := m.npcs[id]
	return n, ok
}

// All все NPC в порядке ID
func (m *Manager) All() []*Npc {
	list := make([]*Npc, 0, len(m.npcs))
	for _, n := range m.npcs {
		list = append(list, n)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].c.ID() < list[j].c.ID() })
	return list
}

// Think вызывает OnThink и делает шаги тех NPC, у кого подошло время.
// Возвращает количество сделанных шагов.
func (m *Manager) Think() int {
	now := m.now()
	steps := 0
	for _, n := range m.All() {
		m.script.OnThink(n, now)
		if !n.wantsStep(now) {
			continue
		}
		dir, ok := n.randomStep(m.w, m.rng)
		if !ok {
			continue
		}
		if rv := m.w.MoveCreatureDir(n.c, dir, 0); rv == thing.NoError {
			n.lastMove = now
			steps++
		}
	}
	m.flush()
	return steps
}

// Say передаёт реплику игрока NPC, которые её слышат. Возвращает ответы.
func (m *Manager) Say(speaker *creature.Creature, text string) []Speech {
	if speaker == nil || !speaker.IsPlayer() {
		return nil
	}
	pos := speaker.Position()
	for _, n := range m.All() {
		if n.c == speaker || !n.CanSee(pos) {
			continue
		}
		m.script.OnCreatureSay(n, speaker, text)
	}
	return m.flush()
}

// Reload перечитывает описания из каталога и заново запускает скрипты NPC
func (m *Manager) Reload() error {
	if m.dir == "" {
		return fmt.Errorf("каталог описаний NPC не задан")
	}
	defs, err := LoadDefinitions(m.dir)
	if err != nil {
		return err
	}
	m.defs = defs

	for _, n := range m.All() {
		def, ok := defs[strings.ToLower(n.def.Name)]
		if !ok {
			logger.Warn("NPC %s пропал из описаний, оставлено прежнее", n.def.Name)
			continue
		}
		n.def = def
		n.focus = 0
		m.script.OnCreatureAppear(n, n.c)
	}
	m.flush()
	logger.Info("🧍 Описания NPC перезагружены: %d", len(defs))
	return nil
}

// Start периодически вызывает Think через планировщик
func (m *Manager) Start(s Scheduler) {
	m.sched = s
	m.schedule()
}

// Stop отменяет периодический Think
func (m *Manager) Stop() {
	if m.sched != nil && m.thinkEvent != 0 {
		m.sched.StopEvent(m.thinkEvent)
	}
	m.sched = nil
	m.thinkEvent = 0
}

func (m *Manager) schedule() {
	if m.sched == nil {
		return
	}
	m.thinkEvent = m.sched.AddEvent(m.interval, func() {
		if m.sched == nil {
			return
		}
		m.Think()
		m.schedule()
	})
}

// onTileEvent переводит события клеток в события скрипта
func (m *Manager) onTileEvent(n *Npc, ev tile.Event) {
	c, ok := ev.Thing.(*creature.Creature)
	if !ok || (c != n.c && !c.IsPlayer()) {
		return
	}

	switch ev.Kind {
	case tile.EventAdded:
		if from, moved := ev.Other.(*tile.Tile); moved {
			m.script.OnCreatureMove(n, c, from.Position(), ev.Position)
		} else {
			m.script.OnCreatureAppear(n, c)
		}
	case tile.EventRemoved:
		if to, moved := ev.Other.(*tile.Tile); moved {
			// Added на новой клетке NPC не увидит, сообщаем о шаге сейчас
			if !world.CanSeePosition(n.c.Position(), to.Position()) {
				m.script.OnCreatureMove(n, c, ev.Position, to.Position())
			}
		} else {
			m.script.OnCreatureDisappear(n, c)
		}
	}
	m.flush()
}

func (m *Manager) emit(s Speech) {
	m.outbox = append(m.outbox, s)
}

// flush отдаёт накопленные реплики слушателю и шине
func (m *Manager) flush() []Speech {
	if len(m.outbox) == 0 {
		return nil
	}
	out := m.outbox
	m.outbox = nil

	for _, s := range out {
		if m.onSpeech != nil {
			m.onSpeech(s)
		}
		m.publish(s)
	}
	return out
}

func (m *Manager) publish(s Speech) {
	if m.bus == nil {
		return
	}
	payload, err := json.Marshal(s)
	if err != nil {
		logger.Error("Ошибка сериализации реплики NPC: %v", err)
		return
	}
	ev := &eventbus.Envelope{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Source:    "npc",
		EventType: EventTypeSpeech,
		Version:   1,
		Priority:  2,
		Payload:   payload,
		Metadata:  map[string]string{"npc": s.Npc},
	}
	if err := m.bus.Publish(context.Background(), ev); err != nil {
		logger.Warn("Ошибка публикации реплики NPC: %v", err)
	}
}
