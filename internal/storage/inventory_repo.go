package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/annel0/stackattack/internal/inventory"
)

// ErrNotFound возвращается при удалении отсутствующего инвентаря
var ErrNotFound = errors.New("инвентарь не найден")

// InventoryRepo определяет интерфейс хранения снимков инвентарей.
// Ключом служит Snapshot.ID ("container:x:y:z", "player:42").
type InventoryRepo interface {
	// Save сохраняет снимок инвентаря, перезаписывая предыдущий.
	Save(ctx context.Context, snap *inventory.Snapshot) error

	// Load загружает снимок.
	// Возвращает:
	//   *inventory.Snapshot - снимок (nil, если не найден)
	//   bool - true если снимок найден
	//   error - ошибка хранилища
	Load(ctx context.Context, id string) (*inventory.Snapshot, bool, error)

	// Delete удаляет снимок; для отсутствующего возвращает ErrNotFound.
	Delete(ctx context.Context, id string) error

	// BatchSave сохраняет несколько снимков одной операцией (для сброса грязных инвентарей).
	BatchSave(ctx context.Context, snaps []*inventory.Snapshot) error

	// Close закрывает хранилище.
	Close() error
}

// encodeSnapshot сериализует снимок в JSON
func encodeSnapshot(snap *inventory.Snapshot) ([]byte, error) {
	if snap == nil || snap.ID == "" {
		return nil, fmt.Errorf("снимок без идентификатора")
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("ошибка сериализации снимка %s: %w", snap.ID, err)
	}
	return data, nil
}

// decodeSnapshot десериализует снимок из JSON
func decodeSnapshot(data []byte) (*inventory.Snapshot, error) {
	var snap inventory.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("ошибка десериализации снимка: %w", err)
	}
	return &snap, nil
}

func checkContext(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
