package auth

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/annel0/mmo-tiles/internal/logging"
)

var logger = logging.Component(logging.ComponentLogin)

// GameState состояние игрового мира
type GameState uint8

const (
	GameStateStartup GameState = iota
	GameStateNormal
	GameStateMaintain
	GameStateClosing
	GameStateShutdown
)

func (s GameState) String() string {
	switch s {
	case GameStateStartup:
		return "startup"
	case GameStateNormal:
		return "normal"
	case GameStateMaintain:
		return "maintain"
	case GameStateClosing:
		return "closing"
	case GameStateShutdown:
		return "shutdown"
	}
	return fmt.Sprintf("GameState(%d)", uint8(s))
}

// StateSource источник текущего состояния мира
type StateSource interface {
	GameState() GameState
}

// Ошибки входа. Текст ошибок показывается клиенту.
var (
	ErrServerShutdown     = errors.New("сервер выключается")
	ErrStartingUp         = errors.New("игровой мир запускается, подождите")
	ErrMaintenance        = errors.New("игровой мир на обслуживании, зайдите позже")
	ErrInvalidAccountName = errors.New("недопустимое имя учётной записи")
	ErrInvalidCredentials = errors.New("неверное имя учётной записи или пароль")
)

const (
	// MaxCharacters больше персонажей в ответе не помещается (один байт длины)
	MaxCharacters = math.MaxUint8
	// FreePremiumDays значение премиума при бесплатном премиуме
	FreePremiumDays uint16 = 0xFFFF
)

// WorldEntry игровой мир в списке персонажей
type WorldEntry struct {
	ID   uint8  `json:"id"`
	Name string `json:"name"`
	Host string `json:"host"`
	Port uint16 `json:"port"`
}

// CharacterEntry персонаж в списке
type CharacterEntry struct {
	WorldID uint8  `json:"world_id"`
	Name    string `json:"name"`
}

// LoginResponse ответ сервера входа
type LoginResponse struct {
	MotdNumber uint32 `json:"motd_number"`
	Motd       string `json:"motd"`
	// SessionKey предъявляется при входе в игру
	SessionKey       string           `json:"session_key"`
	SessionExpiresAt time.Time        `json:"session_expires_at"`
	Worlds           []WorldEntry     `json:"worlds"`
	Characters       []CharacterEntry `json:"characters"`
	PremiumDays      uint16           `json:"premium_days"`
}

// MotdText текст сообщения дня в формате "номер\nтекст"
func (r *LoginResponse) MotdText() string {
	return fmt.Sprintf("%d\n%s", r.MotdNumber, r.Motd)
}

// LoginOptions параметры ответа
type LoginOptions struct {
	MotdNumber  uint32
	Motd        string
	World       WorldEntry
	FreePremium bool
}

// LoginService сервер входа: проверяет учётную запись и отдаёт список персонажей
type LoginService struct {
	accounts AccountRepository
	sessions *SessionIssuer
	state    StateSource
	opts     LoginOptions
	now      func() time.Time
}

// NewLoginService создаёт сервис входа
func NewLoginService(accounts AccountRepository, sessions *SessionIssuer, state StateSource, opts LoginOptions) *LoginService {
	return &LoginService{accounts: accounts, sessions: sessions, state: state, opts: opts, now: time.Now}
}

// Login проверяет учётную запись и собирает ответ со списком персонажей
func (s *LoginService) Login(ctx context.Context, accountName, password string) (*LoginResponse, error) {
	switch s.state.GameState() {
	case GameStateShutdown:
		return nil, ErrServerShutdown
	case GameStateStartup:
		return nil, ErrStartingUp
	case GameStateMaintain:
		return nil, ErrMaintenance
	}

	if strings.TrimSpace(accountName) == "" {
		return nil, ErrInvalidAccountName
	}

	acc, err := s.accounts.GetAccountByName(ctx, accountName)
	if errors.Is(err, ErrAccountNotFound) {
		logger.Debug("Вход: учётная запись %q не найдена", accountName)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("загрузка учётной записи: %w", err)
	}
	if !CheckPassword(acc.PasswordHash, password) {
		logger.Debug("Вход: неверный пароль для %q", accountName)
		return nil, ErrInvalidCredentials
	}

	characters, err := s.accounts.Characters(ctx, acc.ID)
	if err != nil {
		return nil, fmt.Errorf("загрузка персонажей: %w", err)
	}
	key, expiresAt, err := s.sessions.Issue(acc)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.accounts.TouchLogin(ctx, acc.ID, now); err != nil {
		logger.Warn("Не удалось обновить время входа %s: %v", acc.Name, err)
	}

	resp := &LoginResponse{
		MotdNumber:       s.opts.MotdNumber,
		Motd:             s.opts.Motd,
		SessionKey:       key,
		SessionExpiresAt: expiresAt,
		Worlds:           []WorldEntry{s.opts.World},
		PremiumDays:      s.premiumDays(acc, now),
	}

	if len(characters) > MaxCharacters {
		characters = characters[:MaxCharacters]
	}
	resp.Characters = make([]CharacterEntry, 0, len(characters))
	for _, ch := range characters {
		resp.Characters = append(resp.Characters, CharacterEntry{WorldID: s.opts.World.ID, Name: ch.Name})
	}

	logger.Info("🔐 Вход %s: персонажей %d", acc.Name, len(resp.Characters))
	return resp, nil
}

// premiumDays оставшиеся дни премиума, неполный день считается целым
func (s *LoginService) premiumDays(acc *Account, now time.Time) uint16 {
	if s.opts.FreePremium {
		return FreePremiumDays
	}
	if !acc.PremiumUntil.After(now) {
		return 0
	}
	days := math.Ceil(acc.PremiumUntil.Sub(now).Hours() / 24)
	if days >= float64(FreePremiumDays) {
		return FreePremiumDays - 1
	}
	return uint16(days)
}
