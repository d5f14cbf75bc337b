package auth

import (
	"context"
	"errors"
	"time"
)

// Account учётная запись игрока
type Account struct {
	ID           uint64
	Name         string // уникальное имя (без учёта регистра)
	PasswordHash string // bcrypt
	PremiumUntil time.Time
	IsAdmin      bool
	CreatedAt    time.Time
	LastLogin    time.Time
}

// Character персонаж учётной записи
type Character struct {
	ID        uint64
	AccountID uint64
	Name      string
	// IsAdmin персонаж видит невидимых и проходит сквозь игроков
	IsAdmin bool
}

// AccountRepository хранилище учётных записей и персонажей.
// Реализации: память, MariaDB, MongoDB.
type AccountRepository interface {
	// GetAccountByName ищет учётную запись без учёта регистра.
	// Если её нет, возвращается ErrAccountNotFound.
	GetAccountByName(ctx context.Context, name string) (*Account, error)
	GetAccountByID(ctx context.Context, id uint64) (*Account, error)

	// CreateAccount создаёт учётную запись. passwordHash уже захеширован bcrypt.
	CreateAccount(ctx context.Context, name, passwordHash string, isAdmin bool) (*Account, error)

	// CreateCharacter добавляет персонажа; имена персонажей уникальны на сервере
	CreateCharacter(ctx context.Context, accountID uint64, name string) (*Character, error)

	// Characters персонажи учётной записи в порядке создания
	Characters(ctx context.Context, accountID uint64) ([]Character, error)

	// GetCharacterByName ищет персонажа без учёта регистра
	GetCharacterByName(ctx context.Context, name string) (*Character, error)

	// TouchLogin обновляет время последнего входа
	TouchLogin(ctx context.Context, accountID uint64, at time.Time) error

	Close() error
}

// Ошибки хранилища
var (
	ErrAccountNotFound   = errors.New("учётная запись не найдена")
	ErrAccountExists     = errors.New("учётная запись уже существует")
	ErrCharacterNotFound = errors.New("персонаж не найден")
	ErrCharacterExists   = errors.New("персонаж уже существует")
)
