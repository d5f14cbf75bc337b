package npc

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/annel0/mmo-tiles/internal/eventbus"
	"github.com/annel0/mmo-tiles/internal/vec"
	"github.com/annel0/mmo-tiles/internal/world"
	"github.com/annel0/mmo-tiles/internal/world/creature"
	"github.com/annel0/mmo-tiles/internal/world/item"
	"github.com/annel0/mmo-tiles/internal/world/thing"
	"github.com/annel0/mmo-tiles/internal/world/tile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const shopkeeperYAML = `
name: Alice
walk_interval: 1s
walk_radius: 2
greeting: "Hello, |PLAYERNAME|!"
farewell: "Bye, |PLAYERNAME|."
idle_timeout: 30s
replies:
  Torch: "Torch costs 5 gold."
  magic torch: "Not for sale."
`

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func (c *clock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type testEnv struct {
	w      *world.World
	m      *world.Map
	mgr    *Manager
	clock  *clock
	speech []Speech
}

func newEnv(t *testing.T, defs ...string) *testEnv {
	t.Helper()
	m := world.NewMap(item.DefaultCatalog())
	for y := uint16(0); y <= 20; y++ {
		for x := uint16(0); x <= 20; x++ {
			tl := m.CreateTile(vec.NewPosition(x, y, 7), true)
			tl.InternalAddThing(0, m.Catalog().MustCreate(item.GrassID, 1))
		}
	}
	w := world.New(m, nil, world.Options{Seed: 11})

	parsed := make(map[string]*Definition)
	for _, data := range defs {
		def, err := ParseDefinition([]byte(data))
		require.NoError(t, err)
		parsed[strings.ToLower(def.Name)] = def
	}

	env := &testEnv{w: w, m: m, clock: &clock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}}
	mgr, err := NewManager(w, Options{
		Definitions: parsed,
		Seed:        5,
		OnSpeech:    func(s Speech) { env.speech = append(env.speech, s) },
	})
	require.NoError(t, err)
	mgr.now = env.clock.Now
	env.mgr = mgr
	return env
}

func (e *testEnv) player(t *testing.T, name string, pos vec.Position) *creature.Creature {
	t.Helper()
	c := creature.New(creature.KindPlayer, creature.Options{Name: name, Health: 100})
	require.NoError(t, e.w.PlaceCreature(c, pos, false, true))
	return c
}

func (e *testEnv) put(pos vec.Position, id uint16) {
	e.m.TileAt(pos).InternalAddThing(0, e.m.Catalog().MustCreate(id, 1))
}

func TestParseDefinition(t *testing.T) {
	def, err := ParseDefinition([]byte("name: Bob\nreplies:\n  Job: Baker\n"))
	require.NoError(t, err)
	assert.Equal(t, DefaultWalkInterval, def.Walk(), "Интервал ходьбы по умолчанию")
	assert.Equal(t, uint16(100), def.Speed)
	assert.Equal(t, int32(100), def.Health)
	assert.True(t, def.IgnoresHeight())
	assert.Equal(t, "Baker", def.Replies["job"], "Ключевые слова приводятся к нижнему регистру")
	assert.Equal(t, time.Minute, def.IdleTimeout)

	still, err := ParseDefinition([]byte("name: Statue\nwalk_interval: 0s\nignore_height: false\n"))
	require.NoError(t, err)
	assert.Zero(t, still.Walk())
	assert.False(t, still.IgnoresHeight())

	_, err = ParseDefinition([]byte("speed: 10"))
	assert.Error(t, err, "Имя обязательно")
	_, err = ParseDefinition([]byte("name: X\nwalk_radius: -5"))
	assert.Error(t, err)
}

func TestLoadDefinitions(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "alice.yaml"), []byte(shopkeeperYAML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("не описание"), 0o644))

	defs, err := LoadDefinitions(dir)
	require.NoError(t, err)
	require.Contains(t, defs, "alice")
	assert.Equal(t, time.Second, defs["alice"].Walk())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "copy.yml"), []byte(shopkeeperYAML), 0o644))
	_, err = LoadDefinitions(dir)
	assert.Error(t, err, "Одинаковые имена запрещены")

	_, err = LoadDefinitions(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestSpawnAndDespawn(t *testing.T) {
	env := newEnv(t, shopkeeperYAML)

	_, err := env.mgr.Spawn("nobody", vec.NewPosition(5, 5, 7))
	assert.ErrorIs(t, err, ErrUnknownNpc)

	n, err := env.mgr.Spawn("ALICE", vec.NewPosition(5, 5, 7))
	require.NoError(t, err)
	c := n.Creature()
	assert.True(t, c.IsNpc())
	assert.GreaterOrEqual(t, c.ID(), creature.NpcIDBase, "ID NPC из своего диапазона")
	assert.Equal(t, vec.NewPosition(5, 5, 7), n.Master())
	assert.Equal(t, []string{"Alice"}, env.mgr.Definitions())

	got, ok := env.mgr.Get(c.ID())
	require.True(t, ok)
	assert.Same(t, n, got)

	assert.True(t, env.mgr.Despawn(c.ID()))
	assert.Nil(t, c.Parent())
	assert.Empty(t, env.mgr.All())
	assert.False(t, env.mgr.Despawn(c.ID()))
}

func TestCanWalkTo(t *testing.T) {
	env := newEnv(t, shopkeeperYAML)
	n, err := env.mgr.Spawn("Alice", vec.NewPosition(10, 10, 7))
	require.NoError(t, err)
	from := n.Creature().Position()

	assert.True(t, n.canWalkTo(env.w, from, vec.North))

	env.put(vec.NewPosition(10, 11, 7), item.RampID)
	assert.False(t, n.canWalkTo(env.w, from, vec.South), "Смена этажа запрещена")
	n.def.FloorChange = true
	assert.True(t, n.canWalkTo(env.w, from, vec.South))

	env.put(vec.NewPosition(11, 10, 7), item.TableID)
	assert.False(t, n.canWalkTo(env.w, from, vec.East), "Стол блокирует проход")

	env.m.TileAt(vec.NewPosition(9, 10, 7)).SetZoneFlags(tile.FlagPvpZone)
	assert.False(t, n.canWalkTo(env.w, from, vec.West), "NPC не заходит в PvP зону")

	far := vec.NewPosition(12, 10, 7)
	assert.False(t, n.canWalkTo(env.w, far, vec.East), "Шаг за радиус запрещён")

	n.def.WalkRadius = 0
	assert.False(t, n.canWalkTo(env.w, from, vec.North), "Нулевой радиус запрещает ходьбу")
}

func TestCanWalkTo_UnlimitedRadius(t *testing.T) {
	env := newEnv(t, "name: Wanderer\nwalk_radius: -1\n")
	n, err := env.mgr.Spawn("Wanderer", vec.NewPosition(2, 2, 7))
	require.NoError(t, err)

	assert.True(t, n.canWalkTo(env.w, vec.NewPosition(15, 15, 7), vec.East), "Радиус -1 не ограничивает ходьбу")
	assert.False(t, n.canWalkTo(env.w, vec.NewPosition(20, 20, 7), vec.East), "Клетки за картой нет")

	env.put(vec.NewPosition(2, 1, 7), item.BarrelID)
	assert.False(t, n.canWalkTo(env.w, n.Creature().Position(), vec.North), "Бочка блокирует проход")
}

func TestThink_WalksWithinRadius(t *testing.T) {
	env := newEnv(t, shopkeeperYAML)
	n, err := env.mgr.Spawn("Alice", vec.NewPosition(10, 10, 7))
	require.NoError(t, err)

	assert.Zero(t, env.mgr.Think(), "Интервал ходьбы ещё не прошёл")

	for i := 0; i < 30; i++ {
		env.clock.Advance(time.Second)
		assert.Equal(t, 1, env.mgr.Think())
		pos := n.Creature().Position()
		assert.LessOrEqual(t, pos.Distance(n.Master()), 2, "NPC не уходит дальше радиуса")
		assert.Equal(t, uint8(7), pos.Z)
	}
}

func TestDialog(t *testing.T) {
	env := newEnv(t, shopkeeperYAML)
	n, err := env.mgr.Spawn("Alice", vec.NewPosition(10, 10, 7))
	require.NoError(t, err)
	env.w.FlushEvents(context.Background())

	alice := n.Creature()
	bob := env.player(t, "Bob", vec.NewPosition(12, 10, 7))
	eve := env.player(t, "Eve", vec.NewPosition(10, 12, 7))
	far := env.player(t, "Far", vec.NewPosition(18, 18, 7))

	assert.Empty(t, env.mgr.Say(far, "hi"), "Далёкий игрок не слышен")

	replies := env.mgr.Say(bob, "Hi there")
	require.Len(t, replies, 1)
	assert.Equal(t, "Hello, Bob!", replies[0].Text)
	assert.Equal(t, bob.ID(), replies[0].TargetID)
	assert.Equal(t, bob.ID(), n.Focus())
	assert.Equal(t, vec.East, alice.Direction(), "NPC поворачивается к собеседнику")

	assert.Empty(t, env.mgr.Say(eve, "hello"), "NPC занят другим игроком")

	replies = env.mgr.Say(bob, "how much is a magic torch?")
	require.Len(t, replies, 1)
	assert.Equal(t, "Not for sale.", replies[0].Text, "Длинное ключевое слово важнее короткого")

	replies = env.mgr.Say(bob, "a TORCH please")
	require.Len(t, replies, 1)
	assert.Equal(t, "Torch costs 5 gold.", replies[0].Text)

	assert.Empty(t, env.mgr.Say(bob, "weather?"))

	replies = env.mgr.Say(bob, "bye")
	require.Len(t, replies, 1)
	assert.Equal(t, "Bye, Bob.", replies[0].Text)
	assert.Zero(t, n.Focus())

	assert.Len(t, env.speech, 4, "Слушатель получает все реплики")
}

func TestDialog_IdleTimeoutAndNoWalking(t *testing.T) {
	env := newEnv(t, shopkeeperYAML)
	n, err := env.mgr.Spawn("Alice", vec.NewPosition(10, 10, 7))
	require.NoError(t, err)
	bob := env.player(t, "Bob", vec.NewPosition(10, 12, 7))

	require.Len(t, env.mgr.Say(bob, "hi"), 1)
	start := n.Creature().Position()

	env.clock.Advance(10 * time.Second)
	assert.Zero(t, env.mgr.Think(), "NPC не ходит во время разговора")
	assert.Equal(t, start, n.Creature().Position())
	assert.Equal(t, bob.ID(), n.Focus())

	env.clock.Advance(30 * time.Second)
	env.mgr.Think()
	assert.Zero(t, n.Focus(), "Молчащий собеседник забыт")
}

func TestDialog_FarewellWhenPlayerWalksAway(t *testing.T) {
	env := newEnv(t, shopkeeperYAML)
	n, err := env.mgr.Spawn("Alice", vec.NewPosition(10, 10, 7))
	require.NoError(t, err)
	bob := env.player(t, "Bob", vec.NewPosition(11, 10, 7))
	env.w.FlushEvents(context.Background())

	require.Len(t, env.mgr.Say(bob, "hi"), 1)
	env.speech = nil

	require.Equal(t, thing.NoError, env.w.MoveCreature(bob, env.m.TileAt(vec.NewPosition(16, 10, 7)), 0))
	env.w.FlushEvents(context.Background())

	require.Len(t, env.speech, 1)
	assert.Equal(t, "Bye, Bob.", env.speech[0].Text)
	assert.Zero(t, n.Focus())
}

func TestReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "alice.yaml")
	require.NoError(t, os.WriteFile(path, []byte(shopkeeperYAML), 0o644))

	m := world.NewMap(item.DefaultCatalog())
	tl := m.CreateTile(vec.NewPosition(1, 1, 7), true)
	tl.InternalAddThing(0, m.Catalog().MustCreate(item.GrassID, 1))
	w := world.New(m, nil, world.Options{Seed: 1})

	mgr, err := NewManager(w, Options{Dir: dir})
	require.NoError(t, err)
	n, err := mgr.Spawn("Alice", vec.NewPosition(1, 1, 7))
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("name: Alice\ngreeting: Welcome back\n"), 0o644))
	require.NoError(t, mgr.Reload())
	assert.Equal(t, "Welcome back", n.Definition().Greeting, "NPC получает новое описание")

	noDir, err := NewManager(w, Options{})
	require.NoError(t, err)
	assert.Error(t, noDir.Reload())
}

type fakeScheduler struct {
	tasks   map[uint32]func()
	lastID  uint32
	stopped []uint32
}

func (s *fakeScheduler) AddEvent(_ time.Duration, task func()) uint32 {
	if s.tasks == nil {
		s.tasks = make(map[uint32]func())
	}
	s.lastID++
	s.tasks[s.lastID] = task
	return s.lastID
}

func (s *fakeScheduler) StopEvent(id uint32) bool {
	if _, ok := s.tasks[id]; !ok {
		return false
	}
	delete(s.tasks, id)
	s.stopped = append(s.stopped, id)
	return true
}

func TestStartSchedulesThink(t *testing.T) {
	env := newEnv(t, shopkeeperYAML)
	n, err := env.mgr.Spawn("Alice", vec.NewPosition(10, 10, 7))
	require.NoError(t, err)

	sched := &fakeScheduler{}
	env.mgr.Start(sched)
	require.Contains(t, sched.tasks, uint32(1))

	env.clock.Advance(2 * time.Second)
	task := sched.tasks[1]
	delete(sched.tasks, 1)
	task()
	assert.NotEqual(t, n.Master(), n.Creature().Position(), "Think сделал шаг")
	assert.Contains(t, sched.tasks, uint32(2), "Think перепланирован")

	env.mgr.Stop()
	assert.Equal(t, []uint32{2}, sched.stopped)
}

type recordingBus struct {
	envelopes []*eventbus.Envelope
}

func (b *recordingBus) Publish(_ context.Context, ev *eventbus.Envelope) error {
	b.envelopes = append(b.envelopes, ev)
	return nil
}

func (b *recordingBus) Subscribe(context.Context, eventbus.Filter, eventbus.Handler) (eventbus.Subscription, error) {
	return nil, nil
}

func (b *recordingBus) Metrics() eventbus.Stats {
	return eventbus.Stats{Published: uint64(len(b.envelopes))}
}

func TestSpeechPublishedToBus(t *testing.T) {
	env := newEnv(t, shopkeeperYAML)
	bus := &recordingBus{}
	env.mgr.bus = bus

	_, err := env.mgr.Spawn("Alice", vec.NewPosition(10, 10, 7))
	require.NoError(t, err)
	bob := env.player(t, "Bob", vec.NewPosition(10, 11, 7))
	env.mgr.Say(bob, "hi")

	require.Len(t, bus.envelopes, 1)
	assert.Equal(t, EventTypeSpeech, bus.envelopes[0].EventType)
	assert.Equal(t, "Alice", bus.envelopes[0].Metadata["npc"])
	assert.Contains(t, string(bus.envelopes[0].Payload), "Hello, Bob!")
}
