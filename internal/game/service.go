// Package game связывает вход персонажей в мир, их действия и сохранение позиций.
// Все изменения мира выполняются задачами диспетчера.
package game

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/annel0/mmo-tiles/internal/auth"
	"github.com/annel0/mmo-tiles/internal/logging"
	"github.com/annel0/mmo-tiles/internal/scheduler"
	"github.com/annel0/mmo-tiles/internal/storage"
	"github.com/annel0/mmo-tiles/internal/vec"
	"github.com/annel0/mmo-tiles/internal/world"
	"github.com/annel0/mmo-tiles/internal/world/creature"
	"github.com/annel0/mmo-tiles/internal/world/item"
	"github.com/annel0/mmo-tiles/internal/world/npc"
	"github.com/annel0/mmo-tiles/internal/world/thing"
	"github.com/annel0/mmo-tiles/internal/world/tile"
)

var logger = logging.Component(logging.ComponentGame)

var (
	ErrNotOnline         = errors.New("персонаж не в игре")
	ErrAlreadyOnline     = errors.New("персонаж уже в игре")
	ErrCharacterNotOwned = errors.New("персонаж принадлежит другой учётной записи")
	ErrClosing           = errors.New("сервер закрывается")
	ErrCannotLogoutHere  = errors.New("здесь нельзя выйти из игры")
	ErrLogoutPzLocked    = errors.New("нельзя выйти из игры сразу после боя")
	ErrTempleUnreachable = errors.New("позиция храма недоступна")
	ErrNoTile            = errors.New("клетки нет")
	ErrThingNotFound     = errors.New("объект на клетке не найден")
	ErrNotAnItem         = errors.New("объект не является предметом")
)

// Options зависимости сервиса
type Options struct {
	World      *world.World
	Dispatcher *scheduler.Dispatcher
	Sessions   *auth.SessionIssuer
	Accounts   auth.AccountRepository
	Positions  storage.PositionRepo
	State      *State
	// Npcs получают реплики игроков (может быть nil)
	Npcs *npc.Manager
}

// Service вход и выход персонажей, их команды и сохранение позиций
type Service struct {
	w         *world.World
	d         *scheduler.Dispatcher
	sessions  *auth.SessionIssuer
	accounts  auth.AccountRepository
	positions storage.PositionRepo
	state     *State
	npcs      *npc.Manager

	mu     sync.RWMutex
	online map[string]*Player
}

// NewService создаёт сервис
func NewService(opts Options) *Service {
	state := opts.State
	if state == nil {
		state = NewState()
	}
	return &Service{
		w:         opts.World,
		d:         opts.Dispatcher,
		sessions:  opts.Sessions,
		accounts:  opts.Accounts,
		positions: opts.Positions,
		state:     state,
		npcs:      opts.Npcs,
		online:    make(map[string]*Player),
	}
}

// State состояние мира
func (s *Service) State() *State { return s.state }

// EnterGame вводит персонажа в мир по ключу сессии сервера входа.
// Персонаж появляется на сохранённой позиции или рядом с ней, иначе в храме.
func (s *Service) EnterGame(ctx context.Context, sessionKey, characterName string) (*Player, error) {
	claims, err := s.sessions.Validate(sessionKey)
	if err != nil {
		return nil, err
	}

	switch s.state.GameState() {
	case auth.GameStateStartup:
		return nil, auth.ErrStartingUp
	case auth.GameStateShutdown:
		return nil, auth.ErrServerShutdown
	case auth.GameStateMaintain:
		if !claims.IsAdmin {
			return nil, auth.ErrMaintenance
		}
	case auth.GameStateClosing:
		if !claims.IsAdmin {
			return nil, ErrClosing
		}
	}

	ch, err := s.accounts.GetCharacterByName(ctx, characterName)
	if err != nil {
		return nil, err
	}
	if ch.AccountID != claims.AccountID {
		return nil, ErrCharacterNotOwned
	}
	if _, online := s.lookup(ch.Name); online {
		return nil, fmt.Errorf("%s: %w", ch.Name, ErrAlreadyOnline)
	}

	pos, found, err := s.positions.Load(ctx, ch.ID)
	if err != nil {
		return nil, fmt.Errorf("загрузка позиции %s: %w", ch.Name, err)
	}

	c := creature.New(creature.KindPlayer, creature.Options{
		Name:         ch.Name,
		Health:       100,
		MaxHealth:    100,
		Speed:        220,
		Direction:    vec.South,
		AccountID:    int64(ch.AccountID),
		AccessPlayer: ch.IsAdmin,
	})
	p := newPlayer(ch, c)

	var placeErr error
	err = s.d.Do(ctx, func() {
		temple := s.w.Map().Temple()
		if !found {
			pos = temple
		}
		placeErr = s.w.PlaceCreature(c, pos, false, false)
		if errors.Is(placeErr, world.ErrCannotPlace) {
			logger.Debug("%s не помещается в %s, переносим в храм", ch.Name, pos)
			placeErr = s.w.PlaceCreature(c, temple, false, true)
			if errors.Is(placeErr, world.ErrCannotPlace) {
				placeErr = fmt.Errorf("%s: %w", temple, ErrTempleUnreachable)
			}
		}
		if errors.Is(placeErr, creature.ErrNameTaken) {
			placeErr = fmt.Errorf("%s: %w", ch.Name, ErrAlreadyOnline)
		}
		if placeErr != nil {
			return
		}
		s.w.Attach(c.ID(), p)
		s.mu.Lock()
		s.online[strings.ToLower(ch.Name)] = p
		s.mu.Unlock()
	})
	if err != nil {
		return nil, err
	}
	if placeErr != nil {
		return nil, placeErr
	}

	logger.Info("🚪 %s вошёл в игру в %s", ch.Name, c.Position())
	return p, nil
}

// LeaveGame выводит персонажа из мира и сохраняет его позицию.
// Без force выход запрещён на клетках NoLogout и сразу после боя.
func (s *Service) LeaveGame(ctx context.Context, characterName string, force bool) error {
	p, ok := s.lookup(characterName)
	if !ok {
		return fmt.Errorf("%s: %w", characterName, ErrNotOnline)
	}

	var (
		pos      vec.Position
		leaveErr error
	)
	err := s.d.Do(ctx, func() {
		c := p.creature
		if !force {
			if t, ok := c.Parent().(*tile.Tile); ok && t.HasFlag(tile.FlagNoLogout) {
				leaveErr = ErrCannotLogoutHere
				return
			}
			if c.IsPzLocked() {
				leaveErr = ErrLogoutPzLocked
				return
			}
		}
		pos = c.Position()
		s.w.Detach(c.ID())
		s.w.RemoveCreature(c)
		s.mu.Lock()
		delete(s.online, strings.ToLower(p.Name()))
		s.mu.Unlock()
	})
	if err != nil {
		return err
	}
	if leaveErr != nil {
		return leaveErr
	}

	if err := s.positions.Save(ctx, p.CharacterID(), pos); err != nil {
		return fmt.Errorf("сохранение позиции %s: %w", p.Name(), err)
	}
	logger.Info("🚪 %s вышел из игры в %s", p.Name(), pos)
	return nil
}

// Player игрок в игре
func (s *Service) Player(name string) (*Player, bool) {
	return s.lookup(name)
}

// Online игроки в игре по имени
func (s *Service) Online() []*Player {
	s.mu.RLock()
	list := make([]*Player, 0, len(s.online))
	for _, p := range s.online {
		list = append(list, p)
	}
	s.mu.RUnlock()
	sort.Slice(list, func(i, j int) bool { return list[i].Name() < list[j].Name() })
	return list
}

func (s *Service) lookup(name string) (*Player, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.online[strings.ToLower(strings.TrimSpace(name))]
	return p, ok
}

// View снимок игрока
func (s *Service) View(ctx context.Context, name string) (PlayerView, error) {
	p, ok := s.lookup(name)
	if !ok {
		return PlayerView{}, fmt.Errorf("%s: %w", name, ErrNotOnline)
	}
	var view PlayerView
	err := s.d.Do(ctx, func() {
		c := p.creature
		view = PlayerView{
			ID:        c.ID(),
			Name:      c.Name(),
			AccountID: p.character.AccountID,
			Position:  c.Position(),
			Direction: c.Direction().String(),
		}
	})
	return view, err
}

// Walk делает шаг персонажем
func (s *Service) Walk(ctx context.Context, name string, dir vec.Direction) (thing.ReturnValue, error) {
	p, ok := s.lookup(name)
	if !ok {
		return thing.NotPossible, fmt.Errorf("%s: %w", name, ErrNotOnline)
	}
	rv := thing.NotPossible
	err := s.d.Do(ctx, func() {
		if p.creature.IsRemoved() {
			return
		}
		rv = s.w.MoveCreatureDir(p.creature, dir, 0)
	})
	return rv, err
}

// MoveItemRequest перенос предмета персонажем
type MoveItemRequest struct {
	From  vec.Position `json:"from"`
	Index int          `json:"index"`
	To    vec.Position `json:"to"`
	Count uint32       `json:"count"`
}

// MoveItem переносит предмет с соседней клетки (или своей) на клетку назначения
// в пределах дальности броска предмета. Причина отказа возвращается как thing.ReturnValue.
func (s *Service) MoveItem(ctx context.Context, name string, req MoveItemRequest) (thing.ReturnValue, error) {
	p, ok := s.lookup(name)
	if !ok {
		return thing.NotPossible, fmt.Errorf("%s: %w", name, ErrNotOnline)
	}

	rv := thing.NotPossible
	var opErr error
	err := s.d.Do(ctx, func() {
		c := p.creature
		from, to := s.w.TileAt(req.From), s.w.TileAt(req.To)
		if from == nil || to == nil {
			opErr = ErrNoTile
			return
		}
		here := c.Position()
		if here.Z != req.From.Z || here.DistanceX(req.From) > 1 || here.DistanceY(req.From) > 1 {
			rv = thing.TooFarAway
			return
		}
		if here.Z != req.To.Z {
			if here.Z > req.To.Z {
				rv = thing.FirstGoUpstairs
			} else {
				rv = thing.FirstGoDownstairs
			}
			return
		}

		th := from.ThingAt(req.Index)
		if th == nil {
			opErr = ErrThingNotFound
			return
		}
		it, isItem := th.(*item.Item)
		if !isItem {
			opErr = ErrNotAnItem
			return
		}
		if rv = s.w.CanThrow(here, req.To, it.ThrowRange()); rv != thing.NoError {
			return
		}
		count := req.Count
		if count == 0 || count > it.Count() {
			count = it.Count()
		}
		_, rv = s.w.MoveItem(from, to, thing.IndexWherever, it, count, 0, c)
	})
	if err != nil {
		return thing.NotPossible, err
	}
	return rv, opErr
}

// Say передаёт реплику персонажа NPC вокруг и возвращает их ответы
func (s *Service) Say(ctx context.Context, name, text string) ([]npc.Speech, error) {
	p, ok := s.lookup(name)
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrNotOnline)
	}
	if s.npcs == nil {
		return nil, nil
	}
	var replies []npc.Speech
	err := s.d.Do(ctx, func() {
		replies = s.npcs.Say(p.creature, text)
	})
	return replies, err
}

// InspectTile снимок клетки
func (s *Service) InspectTile(ctx context.Context, pos vec.Position) (TileView, error) {
	var (
		view  TileView
		found bool
	)
	err := s.d.Do(ctx, func() {
		t := s.w.TileAt(pos)
		if t == nil {
			return
		}
		view, found = NewTileView(t), true
	})
	if err != nil {
		return TileView{}, err
	}
	if !found {
		return TileView{}, fmt.Errorf("%s: %w", pos, ErrNoTile)
	}
	return view, nil
}

// ReloadNpcs перечитывает описания NPC
func (s *Service) ReloadNpcs(ctx context.Context) error {
	if s.npcs == nil {
		return errors.New("NPC не загружены")
	}
	var reloadErr error
	if err := s.d.Do(ctx, func() { reloadErr = s.npcs.Reload() }); err != nil {
		return err
	}
	return reloadErr
}

// WorldStats сводка по карте
func (s *Service) WorldStats(ctx context.Context) (world.MapStats, error) {
	var stats world.MapStats
	err := s.d.Do(ctx, func() { stats = s.w.Stats() })
	return stats, err
}

// SaveAll сохраняет позиции всех игроков одним пакетом
func (s *Service) SaveAll(ctx context.Context) (int, error) {
	batch := make(map[uint64]vec.Position)
	err := s.d.Do(ctx, func() {
		s.mu.RLock()
		defer s.mu.RUnlock()
		for _, p := range s.online {
			if !p.creature.IsRemoved() {
				batch[p.CharacterID()] = p.creature.Position()
			}
		}
	})
	if err != nil {
		return 0, err
	}
	if len(batch) == 0 {
		return 0, nil
	}
	if err := s.positions.BatchSave(ctx, batch); err != nil {
		return 0, fmt.Errorf("сохранение позиций: %w", err)
	}
	return len(batch), nil
}

// RunAutosave периодически сохраняет позиции, пока ctx не отменён
func (s *Service) RunAutosave(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.SaveAll(ctx)
			if err != nil {
				logger.Warn("Автосохранение позиций: %v", err)
				continue
			}
			if n > 0 {
				logger.Debug("💾 Автосохранение: позиций %d", n)
			}
		}
	}
}

// Shutdown переводит мир в состояние выключения и выводит всех игроков
func (s *Service) Shutdown(ctx context.Context) error {
	s.state.Set(auth.GameStateShutdown)
	var errs []error
	for _, p := range s.Online() {
		if err := s.LeaveGame(ctx, p.Name(), true); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
