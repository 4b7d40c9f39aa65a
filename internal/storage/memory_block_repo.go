package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/annel0/stackattack/internal/vec"
)

// MemoryBlockRepo хранит расстановку блоков в памяти.
// ВНИМАНИЕ: Данные теряются при перезапуске сервера!
type MemoryBlockRepo struct {
	mu   sync.RWMutex
	data map[vec.Vec3]uint16
}

// NewMemoryBlockRepo создаёт пустой репозиторий
func NewMemoryBlockRepo() *MemoryBlockRepo {
	return &MemoryBlockRepo{data: make(map[vec.Vec3]uint16)}
}

// Save записывает блок
func (r *MemoryBlockRepo) Save(ctx context.Context, p Placement) error {
	if err := checkContext(ctx); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[p.Position] = p.BlockID
	return nil
}

// Delete удаляет блок
func (r *MemoryBlockRepo) Delete(ctx context.Context, pos vec.Vec3) error {
	if err := checkContext(ctx); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.data[pos]; !exists {
		return fmt.Errorf("%w: %s", ErrBlockNotFound, pos)
	}
	delete(r.data, pos)
	return nil
}

// LoadAll возвращает копию расстановки
func (r *MemoryBlockRepo) LoadAll(ctx context.Context) ([]Placement, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	r.mu.RLock()
	out := make([]Placement, 0, len(r.data))
	for pos, id := range r.data {
		out = append(out, Placement{Position: pos, BlockID: id})
	}
	r.mu.RUnlock()

	sortPlacements(out)
	return out, nil
}

// Count возвращает количество блоков (для тестов)
func (r *MemoryBlockRepo) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.data)
}

// Close ничего не делает
func (r *MemoryBlockRepo) Close() error {
	return nil
}
