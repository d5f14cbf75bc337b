package game

import (
	"sync/atomic"

	"github.com/annel0/mmo-tiles/internal/auth"
)

// State текущее состояние мира; читается сервером входа из любых горутин
type State struct {
	v atomic.Uint32
}

// NewState создаёт состояние "запуск"
func NewState() *State {
	s := &State{}
	s.v.Store(uint32(auth.GameStateStartup))
	return s
}

// GameState реализует auth.StateSource
func (s *State) GameState() auth.GameState {
	return auth.GameState(s.v.Load())
}

// Set меняет состояние мира
func (s *State) Set(state auth.GameState) {
	prev := auth.GameState(s.v.Swap(uint32(state)))
	if prev != state {
		logger.Info("🌍 Состояние мира: %s -> %s", prev, state)
	}
}
