package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/annel0/stackattack/internal/vec"
)

// ErrBlockNotFound возвращается при удалении отсутствующей записи о блоке
var ErrBlockNotFound = errors.New("блок не найден")

// Placement - установленный в мире блок
type Placement struct {
	Position vec.Vec3 `json:"position"`
	BlockID  uint16   `json:"block_id"`
}

// BlockRepo хранит расстановку блоков мира, чтобы контейнеры
// переживали перезапуск сервера. Содержимое инвентарей хранит InventoryRepo.
type BlockRepo interface {
	// Save записывает блок на позиции, перезаписывая предыдущий.
	Save(ctx context.Context, p Placement) error

	// Delete удаляет запись; для отсутствующей возвращает ErrBlockNotFound.
	Delete(ctx context.Context, pos vec.Vec3) error

	// LoadAll возвращает все блоки, упорядоченные по позиции.
	LoadAll(ctx context.Context) ([]Placement, error)

	// Close закрывает хранилище.
	Close() error
}

func encodePlacement(p Placement) ([]byte, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("ошибка сериализации блока %s: %w", p.Position, err)
	}
	return data, nil
}

func decodePlacement(data []byte) (Placement, error) {
	var p Placement
	if err := json.Unmarshal(data, &p); err != nil {
		return Placement{}, fmt.Errorf("ошибка десериализации блока: %w", err)
	}
	return p, nil
}

// sortPlacements упорядочивает блоки по X, Y, Z
func sortPlacements(ps []Placement) {
	sort.Slice(ps, func(i, j int) bool {
		a, b := ps[i].Position, ps[j].Position
		if a.X != b.X {
			return a.X < b.X
		}
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.Z < b.Z
	})
}
