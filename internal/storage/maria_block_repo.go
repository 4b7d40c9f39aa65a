package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/annel0/stackattack/internal/vec"
	_ "github.com/go-sql-driver/mysql"
)

// MariaBlockRepo хранит расстановку блоков в таблице block_placements
type MariaBlockRepo struct {
	db *sql.DB
}

// NewMariaBlockRepo подключается к базе и создаёт таблицу, если её нет
func NewMariaBlockRepo(dsn string) (*MariaBlockRepo, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("не удалось подключиться к MariaDB: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("не удалось проверить соединение с MariaDB: %w", err)
	}

	query := `
		CREATE TABLE IF NOT EXISTS block_placements (
			x          INT               NOT NULL,
			y          INT               NOT NULL,
			z          INT               NOT NULL,
			block_id   SMALLINT UNSIGNED NOT NULL,
			updated_at TIMESTAMP         DEFAULT CURRENT_TIMESTAMP
			           ON UPDATE         CURRENT_TIMESTAMP,
			PRIMARY KEY (x, y, z)
		) ENGINE=InnoDB
	`
	if _, err := db.Exec(query); err != nil {
		db.Close()
		return nil, fmt.Errorf("ошибка создания таблицы block_placements: %w", err)
	}

	return &MariaBlockRepo{db: db}, nil
}

// Save записывает блок через INSERT ... ON DUPLICATE KEY UPDATE
func (r *MariaBlockRepo) Save(ctx context.Context, p Placement) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO block_placements (x, y, z, block_id)
		VALUES (?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE block_id = VALUES(block_id)
	`, p.Position.X, p.Position.Y, p.Position.Z, p.BlockID)
	if err != nil {
		return fmt.Errorf("ошибка сохранения блока %s: %w", p.Position, err)
	}
	return nil
}

// Delete удаляет блок
func (r *MariaBlockRepo) Delete(ctx context.Context, pos vec.Vec3) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM block_placements WHERE x = ? AND y = ? AND z = ?`, pos.X, pos.Y, pos.Z)
	if err != nil {
		return fmt.Errorf("ошибка удаления блока %s: %w", pos, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrBlockNotFound, pos)
	}
	return nil
}

// LoadAll читает всю расстановку
func (r *MariaBlockRepo) LoadAll(ctx context.Context) ([]Placement, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT x, y, z, block_id FROM block_placements ORDER BY x, y, z`)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения блоков: %w", err)
	}
	defer rows.Close()

	var out []Placement
	for rows.Next() {
		var p Placement
		if err := rows.Scan(&p.Position.X, &p.Position.Y, &p.Position.Z, &p.BlockID); err != nil {
			return nil, fmt.Errorf("ошибка чтения строки блока: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Close закрывает соединение с базой
func (r *MariaBlockRepo) Close() error {
	return r.db.Close()
}
