package auth

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// MemoryAccountRepo is a threadsafe in-memory storage useful for tests & single-instance servers.
// NOT suitable for production without persistence.
// ID counters start from 1.
type MemoryAccountRepo struct {
	mu         sync.RWMutex
	accounts   map[string]*Account // key = lowercase(name)
	byID       map[uint64]*Account
	characters map[uint64][]Character // accountID -> персонажи
	charNames  map[string]Character   // lowercase(name) -> персонаж
	nextID     uint64
	nextCharID uint64
}

// NewMemoryAccountRepo returns an empty repository.
func NewMemoryAccountRepo() *MemoryAccountRepo {
	return &MemoryAccountRepo{
		accounts:   make(map[string]*Account),
		byID:       make(map[uint64]*Account),
		characters: make(map[uint64][]Character),
		charNames:  make(map[string]Character),
		nextID:     1,
		nextCharID: 1,
	}
}

// SeedDevAccounts создаёт учётную запись test/test с персонажем Tester и
// admin/admin с персонажем GM (для локальной разработки).
func SeedDevAccounts(ctx context.Context, repo AccountRepository) error {
	seeds := []struct {
		name, password, character string
		admin                     bool
	}{
		{"test", "test", "Tester", false},
		{"admin", "admin", "GM", true},
	}
	for _, s := range seeds {
		if _, err := repo.GetAccountByName(ctx, s.name); err == nil {
			continue
		}
		hash, err := HashPassword(s.password)
		if err != nil {
			return err
		}
		acc, err := repo.CreateAccount(ctx, s.name, hash, s.admin)
		if err != nil {
			return fmt.Errorf("создание %s: %w", s.name, err)
		}
		if _, err := repo.CreateCharacter(ctx, acc.ID, s.character); err != nil {
			return fmt.Errorf("создание персонажа %s: %w", s.character, err)
		}
	}
	return nil
}

func (r *MemoryAccountRepo) GetAccountByName(_ context.Context, name string) (*Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	acc, ok := r.accounts[normalize(name)]
	if !ok {
		return nil, ErrAccountNotFound
	}
	out := *acc
	return &out, nil
}

func (r *MemoryAccountRepo) GetAccountByID(_ context.Context, id uint64) (*Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	acc, ok := r.byID[id]
	if !ok {
		return nil, ErrAccountNotFound
	}
	out := *acc
	return &out, nil
}

func (r *MemoryAccountRepo) CreateAccount(_ context.Context, name, passwordHash string, isAdmin bool) (*Account, error) {
	key := normalize(name)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.accounts[key]; exists {
		return nil, ErrAccountExists
	}

	now := time.Now()
	acc := &Account{
		ID:           r.nextID,
		Name:         key,
		PasswordHash: passwordHash,
		IsAdmin:      isAdmin,
		CreatedAt:    now,
		LastLogin:    now,
	}
	r.nextID++
	r.accounts[key] = acc
	r.byID[acc.ID] = acc
	out := *acc
	return &out, nil
}

// SetPremium задаёт срок премиума (для тестов и админки)
func (r *MemoryAccountRepo) SetPremium(accountID uint64, until time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	acc, ok := r.byID[accountID]
	if !ok {
		return ErrAccountNotFound
	}
	acc.PremiumUntil = until
	return nil
}

func (r *MemoryAccountRepo) CreateCharacter(_ context.Context, accountID uint64, name string) (*Character, error) {
	name = strings.TrimSpace(name)
	key := normalize(name)
	r.mu.Lock()
	defer r.mu.Unlock()

	acc, ok := r.byID[accountID]
	if !ok {
		return nil, ErrAccountNotFound
	}
	if _, exists := r.charNames[key]; exists {
		return nil, ErrCharacterExists
	}

	ch := Character{ID: r.nextCharID, AccountID: accountID, Name: name, IsAdmin: acc.IsAdmin}
	r.nextCharID++
	r.characters[accountID] = append(r.characters[accountID], ch)
	r.charNames[key] = ch
	return &ch, nil
}

func (r *MemoryAccountRepo) Characters(_ context.Context, accountID uint64) ([]Character, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.byID[accountID]; !ok {
		return nil, ErrAccountNotFound
	}
	list := make([]Character, len(r.characters[accountID]))
	copy(list, r.characters[accountID])
	return list, nil
}

func (r *MemoryAccountRepo) GetCharacterByName(_ context.Context, name string) (*Character, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ch, ok := r.charNames[normalize(name)]
	if !ok {
		return nil, ErrCharacterNotFound
	}
	return &ch, nil
}

func (r *MemoryAccountRepo) TouchLogin(_ context.Context, accountID uint64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	acc, ok := r.byID[accountID]
	if !ok {
		return ErrAccountNotFound
	}
	acc.LastLogin = at
	return nil
}

func (r *MemoryAccountRepo) Close() error { return nil }

// Helper to normalise names.
func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
