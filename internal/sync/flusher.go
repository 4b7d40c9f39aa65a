package sync

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/annel0/stackattack/internal/eventbus"
	"github.com/annel0/stackattack/internal/inventory"
	"github.com/annel0/stackattack/internal/logging"
	"github.com/annel0/stackattack/internal/storage"
)

// Guard выполняет fn с эксклюзивным доступом к инвентарям (world.Exclusive)
type Guard func(fn func() error) error

// Options настраивает Flusher
type Options struct {
	Repo       storage.InventoryRepo
	Bus        eventbus.EventBus // nil - события не публикуются
	Source     string            // имя узла в событиях
	BatchSize  int               // снимков на один BatchSave
	FlushEvery time.Duration
	Guard      Guard // nil - без блокировки (тесты)
}

// pendingInventory - инвентарь, ожидающий сохранения, и его изменённые слоты
type pendingInventory struct {
	inv   *inventory.Inventory
	slots map[int]struct{}
}

// Flusher накапливает изменённые инвентари и сохраняет их пакетами.
// После сохранения публикует InventoryChanged со списком слотов.
type Flusher struct {
	flushMu sync.Mutex // один Flush за раз; Forget ждёт текущий
	mu      sync.Mutex
	pending map[string]*pendingInventory

	repo       storage.InventoryRepo
	bus        eventbus.EventBus
	source     string
	batchSize  int
	flushEvery time.Duration
	guard      Guard
	logger     *logging.Logger

	quit    chan struct{}
	done    chan struct{}
	started bool
	once    sync.Once
}

// NewFlusher создаёт Flusher; фоновая запись начинается после Start.
func NewFlusher(opts Options) *Flusher {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 64
	}
	if opts.FlushEvery <= 0 {
		opts.FlushEvery = 500 * time.Millisecond
	}
	if opts.Source == "" {
		opts.Source = "stackattack"
	}
	if opts.Guard == nil {
		opts.Guard = func(fn func() error) error { return fn() }
	}

	return &Flusher{
		pending:    make(map[string]*pendingInventory),
		repo:       opts.Repo,
		bus:        opts.Bus,
		source:     opts.Source,
		batchSize:  opts.BatchSize,
		flushEvery: opts.FlushEvery,
		guard:      opts.Guard,
		logger:     logging.GetSyncLogger(),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Track отмечает слот инвентаря как ожидающий сохранения.
// Сигнатура совпадает с inventory.DirtyListener.
func (f *Flusher) Track(inv *inventory.Inventory, slot int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	p, exists := f.pending[inv.ID()]
	if !exists {
		p = &pendingInventory{inv: inv, slots: make(map[int]struct{})}
		f.pending[inv.ID()] = p
	}
	p.slots[slot] = struct{}{}
}

// Forget убирает инвентарь из очереди сохранения.
// Дожидается идущего Flush, поэтому после возврата запись этого
// инвентаря уже не начнётся.
func (f *Flusher) Forget(id string) {
	f.flushMu.Lock()
	defer f.flushMu.Unlock()

	f.mu.Lock()
	delete(f.pending, id)
	f.mu.Unlock()
}

// Pending возвращает число инвентарей, ожидающих сохранения
func (f *Flusher) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pending)
}

// Start запускает периодический сброс
func (f *Flusher) Start() {
	f.started = true
	go f.loop()
}

func (f *Flusher) loop() {
	defer close(f.done)

	ticker := time.NewTicker(f.flushEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if _, err := f.Flush(ctx); err != nil {
				f.logger.Warn("Ошибка сброса инвентарей: %v", err)
			}
			cancel()
		case <-f.quit:
			return
		}
	}
}

// Flush сохраняет все накопленные инвентари. Возвращает число сохранённых.
// Не сохранённые из-за ошибки инвентари остаются в очереди.
func (f *Flusher) Flush(ctx context.Context) (int, error) {
	f.flushMu.Lock()
	defer f.flushMu.Unlock()

	f.mu.Lock()
	batch := f.pending
	f.pending = make(map[string]*pendingInventory)
	f.mu.Unlock()

	if len(batch) == 0 {
		return 0, nil
	}

	ids := make([]string, 0, len(batch))
	for id := range batch {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	// Снимки снимаются под блокировкой мира, запись идёт уже без неё
	snaps := make([]*inventory.Snapshot, 0, len(ids))
	_ = f.guard(func() error {
		for _, id := range ids {
			inv := batch[id].inv
			snaps = append(snaps, inv.Snapshot())
			inv.ClearDirty()
		}
		return nil
	})

	saved := 0
	for start := 0; start < len(snaps); start += f.batchSize {
		end := start + f.batchSize
		if end > len(snaps) {
			end = len(snaps)
		}
		chunk := snaps[start:end]

		if err := f.repo.BatchSave(ctx, chunk); err != nil {
			f.requeue(batch, ids[start:])
			return saved, fmt.Errorf("ошибка пакетного сохранения: %w", err)
		}

		for _, snap := range chunk {
			f.publish(ctx, snap.ID, batch[snap.ID].slots)
		}
		saved += len(chunk)
	}

	f.logger.Debug("Сохранено инвентарей: %d", saved)
	return saved, nil
}

// requeue возвращает несохранённые инвентари в очередь, объединяя слоты
func (f *Flusher) requeue(batch map[string]*pendingInventory, ids []string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, id := range ids {
		old := batch[id]
		if cur, exists := f.pending[id]; exists {
			for slot := range old.slots {
				cur.slots[slot] = struct{}{}
			}
			continue
		}
		f.pending[id] = old
	}
}

func (f *Flusher) publish(ctx context.Context, id string, slotSet map[int]struct{}) {
	if f.bus == nil {
		return
	}

	slots := make([]int, 0, len(slotSet))
	for slot := range slotSet {
		slots = append(slots, slot)
	}
	sort.Ints(slots)

	ev, err := eventbus.NewEnvelope(eventbus.EventInventoryChanged, f.source, eventbus.InventoryChanged{
		InventoryID: id,
		Slots:       slots,
	})
	if err != nil {
		f.logger.Warn("Не удалось создать событие для %s: %v", id, err)
		return
	}
	ev.Priority = 5
	if err := f.bus.Publish(ctx, ev); err != nil {
		f.logger.Warn("Не удалось опубликовать InventoryChanged для %s: %v", id, err)
	}
}

// Stop останавливает фоновый сброс и сохраняет оставшееся.
func (f *Flusher) Stop(ctx context.Context) error {
	var err error
	f.once.Do(func() {
		close(f.quit)
		if f.started {
			<-f.done
		}
		_, err = f.Flush(ctx)
	})
	return err
}
