package creature

import (
	"errors"
	"sort"
	"strings"
	"sync"
)

// Базовые значения идентификаторов по видам существ
const (
	PlayerIDBase  uint32 = 0x10000000
	MonsterIDBase uint32 = 0x40000000
	NpcIDBase     uint32 = 0x80000000
)

// ErrAlreadyRegistered существо уже получило идентификатор
var ErrAlreadyRegistered = errors.New("существо уже зарегистрировано")

// ErrNameTaken игрок с таким именем уже в игре
var ErrNameTaken = errors.New("игрок с таким именем уже в игре")

// Registry владеет всеми существами мира и выдаёт им идентификаторы
type Registry struct {
	creatures map[uint32]*Creature
	players   map[string]*Creature
	nextIDs   map[Kind]uint32
	mu        sync.RWMutex
}

// NewRegistry создаёт пустой реестр
func NewRegistry() *Registry {
	return &Registry{
		creatures: make(map[uint32]*Creature),
		players:   make(map[string]*Creature),
		nextIDs: map[Kind]uint32{
			KindPlayer:  PlayerIDBase,
			KindMonster: MonsterIDBase,
			KindNpc:     NpcIDBase,
		},
	}
}

// Add назначает существу идентификатор и берёт его во владение
func (r *Registry) Add(c *Creature) (uint32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c.id != 0 {
		return 0, ErrAlreadyRegistered
	}

	key := strings.ToLower(c.name)
	if c.kind == KindPlayer {
		if _, exists := r.players[key]; exists {
			return 0, ErrNameTaken
		}
	}

	id := r.nextIDs[c.kind]
	r.nextIDs[c.kind] = id + 1
	c.id = id

	r.creatures[id] = c
	if c.kind == KindPlayer {
		r.players[key] = c
	}
	return id, nil
}

// Remove удаляет существо из реестра
func (r *Registry) Remove(id uint32) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, exists := r.creatures[id]
	if !exists {
		return false
	}
	delete(r.creatures, id)
	if c.kind == KindPlayer {
		delete(r.players, strings.ToLower(c.name))
	}
	return true
}

// Get возвращает существо по ID
func (r *Registry) Get(id uint32) (*Creature, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, exists := r.creatures[id]
	return c, exists
}

// PlayerByName ищет игрока без учёта регистра
func (r *Registry) PlayerByName(name string) (*Creature, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, exists := r.players[strings.ToLower(name)]
	return c, exists
}

// Count количество существ указанного вида
func (r *Registry) Count(kind Kind) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, c := range r.creatures {
		if c.kind == kind {
			n++
		}
	}
	return n
}

// All возвращает существ указанного вида, отсортированных по ID
func (r *Registry) All(kind Kind) []*Creature {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*Creature, 0)
	for _, c := range r.creatures {
		if c.kind == kind {
			result = append(result, c)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].id < result[j].id })
	return result
}
