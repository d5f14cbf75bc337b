package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
)

// MariaAccountRepo реализует AccountRepository для MariaDB
type MariaAccountRepo struct {
	db *sql.DB
}

// NewMariaAccountRepo подключается к MariaDB по DSN и создаёт таблицы, если их нет
func NewMariaAccountRepo(dsn string) (*MariaAccountRepo, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("некорректный DSN MariaDB: %w", err)
	}
	cfg.ParseTime = true

	db, err := sql.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть подключение к MariaDB: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("не удалось подключиться к MariaDB: %w", err)
	}

	repo := &MariaAccountRepo{db: db}
	if err := repo.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("не удалось создать таблицы: %w", err)
	}
	return repo, nil
}

func (m *MariaAccountRepo) createTables() error {
	createAccounts := `
	CREATE TABLE IF NOT EXISTS accounts (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(32) NOT NULL UNIQUE,
		password_hash VARCHAR(255) NOT NULL,
		is_admin BOOLEAN NOT NULL DEFAULT FALSE,
		premium_until TIMESTAMP NULL DEFAULT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		last_login TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`

	createCharacters := `
	CREATE TABLE IF NOT EXISTS characters (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		account_id BIGINT UNSIGNED NOT NULL,
		name VARCHAR(32) NOT NULL UNIQUE,
		INDEX idx_account (account_id),
		FOREIGN KEY (account_id) REFERENCES accounts(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`

	for _, query := range []string{createAccounts, createCharacters} {
		if _, err := m.db.Exec(query); err != nil {
			return err
		}
	}
	return nil
}

const selectAccount = `SELECT id, name, password_hash, is_admin, premium_until, created_at, last_login FROM accounts`

func (m *MariaAccountRepo) scanAccount(row *sql.Row) (*Account, error) {
	var (
		acc     Account
		premium sql.NullTime
	)
	err := row.Scan(&acc.ID, &acc.Name, &acc.PasswordHash, &acc.IsAdmin, &premium, &acc.CreatedAt, &acc.LastLogin)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка при получении учётной записи: %w", err)
	}
	if premium.Valid {
		acc.PremiumUntil = premium.Time
	}
	return &acc, nil
}

// GetAccountByName получает учётную запись по имени
func (m *MariaAccountRepo) GetAccountByName(ctx context.Context, name string) (*Account, error) {
	return m.scanAccount(m.db.QueryRowContext(ctx, selectAccount+` WHERE name = ?`, normalize(name)))
}

// GetAccountByID получает учётную запись по ID
func (m *MariaAccountRepo) GetAccountByID(ctx context.Context, id uint64) (*Account, error) {
	return m.scanAccount(m.db.QueryRowContext(ctx, selectAccount+` WHERE id = ?`, id))
}

// CreateAccount создаёт учётную запись
func (m *MariaAccountRepo) CreateAccount(ctx context.Context, name, passwordHash string, isAdmin bool) (*Account, error) {
	lower := normalize(name)
	now := time.Now()

	result, err := m.db.ExecContext(ctx,
		`INSERT INTO accounts (name, password_hash, is_admin, created_at, last_login) VALUES (?, ?, ?, ?, ?)`,
		lower, passwordHash, isAdmin, now, now)
	if err != nil {
		if isDuplicate(err) {
			return nil, ErrAccountExists
		}
		return nil, fmt.Errorf("ошибка при создании учётной записи: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("ошибка при получении ID учётной записи: %w", err)
	}
	return &Account{
		ID:           uint64(id),
		Name:         lower,
		PasswordHash: passwordHash,
		IsAdmin:      isAdmin,
		CreatedAt:    now,
		LastLogin:    now,
	}, nil
}

// CreateCharacter добавляет персонажа
func (m *MariaAccountRepo) CreateCharacter(ctx context.Context, accountID uint64, name string) (*Character, error) {
	acc, err := m.GetAccountByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)

	result, err := m.db.ExecContext(ctx, `INSERT INTO characters (account_id, name) VALUES (?, ?)`, accountID, name)
	if err != nil {
		if isDuplicate(err) {
			return nil, ErrCharacterExists
		}
		return nil, fmt.Errorf("ошибка при создании персонажа: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("ошибка при получении ID персонажа: %w", err)
	}
	return &Character{ID: uint64(id), AccountID: accountID, Name: name, IsAdmin: acc.IsAdmin}, nil
}

// Characters персонажи учётной записи
func (m *MariaAccountRepo) Characters(ctx context.Context, accountID uint64) ([]Character, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT c.id, c.name, a.is_admin FROM characters c
		JOIN accounts a ON a.id = c.account_id
		WHERE c.account_id = ? ORDER BY c.id`, accountID)
	if err != nil {
		return nil, fmt.Errorf("ошибка при получении персонажей: %w", err)
	}
	defer rows.Close()

	var list []Character
	for rows.Next() {
		ch := Character{AccountID: accountID}
		if err := rows.Scan(&ch.ID, &ch.Name, &ch.IsAdmin); err != nil {
			return nil, fmt.Errorf("ошибка чтения персонажа: %w", err)
		}
		list = append(list, ch)
	}
	return list, rows.Err()
}

// GetCharacterByName ищет персонажа по имени
func (m *MariaAccountRepo) GetCharacterByName(ctx context.Context, name string) (*Character, error) {
	var ch Character
	err := m.db.QueryRowContext(ctx, `
		SELECT c.id, c.account_id, c.name, a.is_admin FROM characters c
		JOIN accounts a ON a.id = c.account_id
		WHERE c.name = ?`, strings.TrimSpace(name),
	).Scan(&ch.ID, &ch.AccountID, &ch.Name, &ch.IsAdmin)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCharacterNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка при получении персонажа: %w", err)
	}
	return &ch, nil
}

// TouchLogin обновляет время последнего входа
func (m *MariaAccountRepo) TouchLogin(ctx context.Context, accountID uint64, at time.Time) error {
	if _, err := m.db.ExecContext(ctx, `UPDATE accounts SET last_login = ? WHERE id = ?`, at, accountID); err != nil {
		return fmt.Errorf("ошибка при обновлении времени входа: %w", err)
	}
	return nil
}

// Close закрывает подключение к БД
func (m *MariaAccountRepo) Close() error {
	return m.db.Close()
}

// isDuplicate ошибка уникального ключа MySQL (1062)
func isDuplicate(err error) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == 1062
}
