package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/annel0/mmo-tiles/internal/vec"
	_ "github.com/go-sql-driver/mysql"
)

// MariaPositionRepo реализует PositionRepo для базы данных MariaDB/MySQL.
// Использует таблицу character_positions.
type MariaPositionRepo struct {
	db *sql.DB
}

const upsertPositionQuery = `
	INSERT INTO character_positions (character_id, x, y, z)
	VALUES (?, ?, ?, ?)
	ON DUPLICATE KEY UPDATE
		x = VALUES(x),
		y = VALUES(y),
		z = VALUES(z),
		updated_at = CURRENT_TIMESTAMP
`

// NewMariaPositionRepo подключается к MariaDB и создает таблицу, если её нет.
//
// Параметры:
//
//	dsn - строка подключения к базе данных (user:pass@tcp(host:port)/dbname)
func NewMariaPositionRepo(dsn string) (*MariaPositionRepo, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("не удалось подключиться к MariaDB: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("не удалось проверить соединение с MariaDB: %w", err)
	}

	repo := &MariaPositionRepo{db: db}
	if err := repo.createTable(); err != nil {
		db.Close()
		return nil, err
	}
	return repo, nil
}

func (r *MariaPositionRepo) createTable() error {
	query := `
		CREATE TABLE IF NOT EXISTS character_positions (
			character_id BIGINT UNSIGNED   PRIMARY KEY,
			x            SMALLINT UNSIGNED NOT NULL,
			y            SMALLINT UNSIGNED NOT NULL,
			z            TINYINT UNSIGNED  NOT NULL DEFAULT 7,
			updated_at   TIMESTAMP         DEFAULT CURRENT_TIMESTAMP
			             ON UPDATE         CURRENT_TIMESTAMP,
			INDEX idx_updated_at (updated_at)
		) ENGINE=InnoDB
	`
	if _, err := r.db.Exec(query); err != nil {
		return fmt.Errorf("ошибка создания таблицы character_positions: %w", err)
	}
	return nil
}

// Save сохраняет позицию (INSERT ... ON DUPLICATE KEY UPDATE)
func (r *MariaPositionRepo) Save(ctx context.Context, characterID uint64, pos vec.Position) error {
	if err := validate(characterID, pos); err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, upsertPositionQuery, characterID, pos.X, pos.Y, pos.Z); err != nil {
		return fmt.Errorf("ошибка сохранения позиции персонажа %d: %w", characterID, err)
	}
	return nil
}

// Load загружает позицию персонажа
func (r *MariaPositionRepo) Load(ctx context.Context, characterID uint64) (vec.Position, bool, error) {
	if err := validateID(characterID); err != nil {
		return vec.Position{}, false, err
	}

	var pos vec.Position
	err := r.db.QueryRowContext(ctx,
		`SELECT x, y, z FROM character_positions WHERE character_id = ?`, characterID,
	).Scan(&pos.X, &pos.Y, &pos.Z)
	if errors.Is(err, sql.ErrNoRows) {
		return vec.Position{}, false, nil
	}
	if err != nil {
		return vec.Position{}, false, fmt.Errorf("ошибка загрузки позиции персонажа %d: %w", characterID, err)
	}
	return pos, true, nil
}

// Delete удаляет сохраненную позицию
func (r *MariaPositionRepo) Delete(ctx context.Context, characterID uint64) error {
	if err := validateID(characterID); err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx, `DELETE FROM character_positions WHERE character_id = ?`, characterID)
	if err != nil {
		return fmt.Errorf("ошибка удаления позиции персонажа %d: %w", characterID, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("ошибка получения количества затронутых строк: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("персонаж %d: %w", characterID, ErrPositionNotFound)
	}
	return nil
}

// BatchSave сохраняет позиции в одной транзакции
func (r *MariaPositionRepo) BatchSave(ctx context.Context, positions map[uint64]vec.Position) error {
	if len(positions) == 0 {
		return nil
	}
	for id, pos := range positions {
		if err := validate(id, pos); err != nil {
			return fmt.Errorf("batch: %w", err)
		}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertPositionQuery)
	if err != nil {
		return fmt.Errorf("ошибка подготовки запроса: %w", err)
	}
	defer stmt.Close()

	for id, pos := range positions {
		if _, err := stmt.ExecContext(ctx, id, pos.X, pos.Y, pos.Z); err != nil {
			return fmt.Errorf("ошибка сохранения позиции персонажа %d в batch: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("ошибка фиксации транзакции: %w", err)
	}
	return nil
}

// Close закрывает соединение с базой данных.
func (r *MariaPositionRepo) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}
