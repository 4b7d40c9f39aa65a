package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/annel0/stackattack/internal/inventory"
	_ "github.com/go-sql-driver/mysql"
)

// MariaInventoryRepo реализует InventoryRepo для MariaDB/MySQL.
// Снимки хранятся в таблице inventories в виде JSON.
type MariaInventoryRepo struct {
	db *sql.DB
}

// NewMariaInventoryRepo создает репозиторий и таблицу, если её нет.
//
// Параметры:
//
//	dsn - строка подключения к базе данных (user:pass@tcp(host:port)/dbname)
func NewMariaInventoryRepo(dsn string) (*MariaInventoryRepo, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("не удалось подключиться к MariaDB: %w", err)
	}

	// Проверяем соединение
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("не удалось проверить соединение с MariaDB: %w", err)
	}

	repo := &MariaInventoryRepo{db: db}

	if err := repo.createTable(); err != nil {
		db.Close()
		return nil, fmt.Errorf("не удалось создать таблицу: %w", err)
	}

	return repo, nil
}

// createTable создает таблицу inventories, если она не существует.
func (r *MariaInventoryRepo) createTable() error {
	query := `
		CREATE TABLE IF NOT EXISTS inventories (
			id         VARCHAR(128) PRIMARY KEY,
			data       MEDIUMBLOB   NOT NULL,
			updated_at TIMESTAMP    DEFAULT CURRENT_TIMESTAMP
			           ON UPDATE    CURRENT_TIMESTAMP,
			INDEX idx_updated_at (updated_at)
		) ENGINE=InnoDB
	`

	if _, err := r.db.Exec(query); err != nil {
		return fmt.Errorf("ошибка создания таблицы inventories: %w", err)
	}
	return nil
}

const upsertInventoryQuery = `
	INSERT INTO inventories (id, data)
	VALUES (?, ?)
	ON DUPLICATE KEY UPDATE data = VALUES(data)
`

// Save сохраняет снимок через INSERT ... ON DUPLICATE KEY UPDATE
func (r *MariaInventoryRepo) Save(ctx context.Context, snap *inventory.Snapshot) error {
	data, err := encodeSnapshot(snap)
	if err != nil {
		return err
	}

	if _, err := r.db.ExecContext(ctx, upsertInventoryQuery, snap.ID, data); err != nil {
		return fmt.Errorf("ошибка сохранения инвентаря %s: %w", snap.ID, err)
	}
	return nil
}

// Load загружает снимок
func (r *MariaInventoryRepo) Load(ctx context.Context, id string) (*inventory.Snapshot, bool, error) {
	var data []byte
	err := r.db.QueryRowContext(ctx, `SELECT data FROM inventories WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("ошибка загрузки инвентаря %s: %w", id, err)
	}

	snap, err := decodeSnapshot(data)
	if err != nil {
		return nil, false, err
	}
	return snap, true, nil
}

// Delete удаляет снимок
func (r *MariaInventoryRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM inventories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("ошибка удаления инвентаря %s: %w", id, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("ошибка проверки удаления: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// BatchSave сохраняет несколько снимков в одной транзакции
func (r *MariaInventoryRepo) BatchSave(ctx context.Context, snaps []*inventory.Snapshot) error {
	if len(snaps) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("не удалось начать транзакцию: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertInventoryQuery)
	if err != nil {
		return fmt.Errorf("не удалось подготовить запрос: %w", err)
	}
	defer stmt.Close()

	for _, snap := range snaps {
		data, err := encodeSnapshot(snap)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, snap.ID, data); err != nil {
			return fmt.Errorf("ошибка сохранения инвентаря %s: %w", snap.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("не удалось зафиксировать транзакцию: %w", err)
	}
	return nil
}

// Close закрывает соединение с базой данных
func (r *MariaInventoryRepo) Close() error {
	return r.db.Close()
}
