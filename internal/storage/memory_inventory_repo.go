package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/annel0/stackattack/internal/inventory"
)

// MemoryInventoryRepo реализует InventoryRepo в памяти.
// Используется по умолчанию и в тестах.
// ВНИМАНИЕ: Данные теряются при перезапуске сервера!
type MemoryInventoryRepo struct {
	mu   sync.RWMutex
	data map[string][]byte // id -> сериализованный снимок
}

// NewMemoryInventoryRepo создает новый репозиторий инвентарей в памяти
func NewMemoryInventoryRepo() *MemoryInventoryRepo {
	return &MemoryInventoryRepo{
		data: make(map[string][]byte),
	}
}

// Save сохраняет снимок в памяти. Хранится сериализованная копия,
// чтобы последующие изменения инвентаря не затрагивали сохранённое.
func (r *MemoryInventoryRepo) Save(ctx context.Context, snap *inventory.Snapshot) error {
	if err := checkContext(ctx); err != nil {
		return err
	}

	data, err := encodeSnapshot(snap)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[snap.ID] = data
	return nil
}

// Load загружает снимок из памяти
func (r *MemoryInventoryRepo) Load(ctx context.Context, id string) (*inventory.Snapshot, bool, error) {
	if err := checkContext(ctx); err != nil {
		return nil, false, err
	}

	r.mu.RLock()
	data, exists := r.data[id]
	r.mu.RUnlock()

	if !exists {
		return nil, false, nil
	}

	snap, err := decodeSnapshot(data)
	if err != nil {
		return nil, false, err
	}
	return snap, true, nil
}

// Delete удаляет снимок из памяти
func (r *MemoryInventoryRepo) Delete(ctx context.Context, id string) error {
	if err := checkContext(ctx); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.data[id]; !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(r.data, id)
	return nil
}

// BatchSave сохраняет несколько снимков. Сначала сериализуются все,
// чтобы ошибка в одном не оставила пакет записанным наполовину.
func (r *MemoryInventoryRepo) BatchSave(ctx context.Context, snaps []*inventory.Snapshot) error {
	if len(snaps) == 0 {
		return nil
	}
	if err := checkContext(ctx); err != nil {
		return err
	}

	encoded := make(map[string][]byte, len(snaps))
	for _, snap := range snaps {
		data, err := encodeSnapshot(snap)
		if err != nil {
			return err
		}
		encoded[snap.ID] = data
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for id, data := range encoded {
		r.data[id] = data
	}
	return nil
}

// Count возвращает количество сохранённых снимков (для отладки)
func (r *MemoryInventoryRepo) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.data)
}

// Close ничего не делает для памяти
func (r *MemoryInventoryRepo) Close() error {
	return nil
}
