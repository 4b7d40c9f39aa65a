package sync

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/annel0/stackattack/internal/eventbus"
	"github.com/annel0/stackattack/internal/inventory"
	"github.com/annel0/stackattack/internal/item"
	_ "github.com/annel0/stackattack/internal/item/implementations"
	"github.com/annel0/stackattack/internal/storage"
	"github.com/annel0/stackattack/internal/vec"
	"github.com/annel0/stackattack/internal/world"
	"github.com/annel0/stackattack/internal/world/block"
	_ "github.com/annel0/stackattack/internal/world/block/implementations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyRepo отказывает в BatchSave, пока fail == true
type flakyRepo struct {
	*storage.MemoryInventoryRepo
	mu    sync.Mutex
	fail  bool
	calls [][]string
}

func (r *flakyRepo) BatchSave(ctx context.Context, snaps []*inventory.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, len(snaps))
	for i, s := range snaps {
		ids[i] = s.ID
	}
	r.calls = append(r.calls, ids)

	if r.fail {
		return errors.New("диск переполнен")
	}
	return r.MemoryInventoryRepo.BatchSave(ctx, snaps)
}

func newChest(t *testing.T, id string, f *Flusher) *inventory.Inventory {
	t.Helper()
	inv := inventory.New(id, inventory.GeneralLayout(4))
	inv.OnDirty(f.Track)
	return inv
}

func putStone(t *testing.T, inv *inventory.Inventory, slot int, q int32) {
	t.Helper()
	inv.Slot(slot).SetStack(item.NewStack(item.MustGet(item.StoneGoodID), q))
	inv.Slot(slot).MarkDirty()
}

func TestFlushPersistsDirtyInventories(t *testing.T) {
	repo := storage.NewMemoryInventoryRepo()
	f := NewFlusher(Options{Repo: repo})
	ctx := context.Background()

	a := newChest(t, "container:1:1:1", f)
	b := newChest(t, "player:5", f)
	putStone(t, a, 0, 10)
	putStone(t, a, 2, 3)
	putStone(t, b, 1, 7)

	assert.Equal(t, 2, f.Pending())

	n, err := f.Flush(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 0, f.Pending())
	assert.False(t, a.IsDirty(), "после сохранения пометки сбрасываются")

	snap, found, err := repo.Load(ctx, "container:1:1:1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, int32(10), snap.Slots[0].Quantity)
	assert.Equal(t, int32(3), snap.Slots[2].Quantity)

	// Пустой сброс ничего не делает
	n, err = f.Flush(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestFlushBatches(t *testing.T) {
	repo := &flakyRepo{MemoryInventoryRepo: storage.NewMemoryInventoryRepo()}
	f := NewFlusher(Options{Repo: repo, BatchSize: 2})

	for _, id := range []string{"c", "a", "b"} {
		putStone(t, newChest(t, id, f), 0, 1)
	}

	n, err := f.Flush(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, [][]string{{"a", "b"}, {"c"}}, repo.calls)
}

func TestFlushFailureRequeues(t *testing.T) {
	repo := &flakyRepo{MemoryInventoryRepo: storage.NewMemoryInventoryRepo(), fail: true}
	bus := eventbus.NewMemoryBus(16)
	defer bus.Close()

	var mu sync.Mutex
	var events []eventbus.InventoryChanged
	_, err := bus.Subscribe(context.Background(), eventbus.Filter{Types: []string{eventbus.EventInventoryChanged}},
		func(ctx context.Context, ev *eventbus.Envelope) {
			var p eventbus.InventoryChanged
			if ev.Decode(&p) == nil {
				mu.Lock()
				events = append(events, p)
				mu.Unlock()
			}
		})
	require.NoError(t, err)

	f := NewFlusher(Options{Repo: repo, Bus: bus})
	inv := newChest(t, "container:0:0:0", f)
	putStone(t, inv, 3, 5)

	_, err = f.Flush(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, f.Pending(), "несохранённый инвентарь остаётся в очереди")

	// Новое изменение объединяется со слотами из неудачного сброса
	putStone(t, inv, 1, 2)
	repo.mu.Lock()
	repo.fail = false
	repo.mu.Unlock()

	n, err := f.Flush(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(events) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, "container:0:0:0", events[0].InventoryID)
	assert.Equal(t, []int{1, 3}, events[0].Slots)
}

func TestFlushUsesGuard(t *testing.T) {
	repo := storage.NewMemoryInventoryRepo()
	guarded := 0
	f := NewFlusher(Options{
		Repo: repo,
		Guard: func(fn func() error) error {
			guarded++
			return fn()
		},
	})

	putStone(t, newChest(t, "x", f), 0, 1)
	_, err := f.Flush(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, guarded)
}

func TestStartStopFlushesRemainder(t *testing.T) {
	repo := storage.NewMemoryInventoryRepo()
	f := NewFlusher(Options{Repo: repo, FlushEvery: time.Hour})
	f.Start()

	putStone(t, newChest(t, "late", f), 0, 1)
	require.NoError(t, f.Stop(context.Background()))
	require.NoError(t, f.Stop(context.Background()))

	assert.Equal(t, 1, repo.Count())
}

func TestPeriodicFlush(t *testing.T) {
	repo := storage.NewMemoryInventoryRepo()
	f := NewFlusher(Options{Repo: repo, FlushEvery: 10 * time.Millisecond})
	f.Start()
	defer f.Stop(context.Background())

	putStone(t, newChest(t, "tick", f), 0, 1)
	require.Eventually(t, func() bool { return repo.Count() == 1 }, time.Second, 5*time.Millisecond)
}

func TestForgetDropsPending(t *testing.T) {
	repo := storage.NewMemoryInventoryRepo()
	f := NewFlusher(Options{Repo: repo})

	putStone(t, newChest(t, "kept", f), 0, 1)
	putStone(t, newChest(t, "gone", f), 0, 1)
	require.Equal(t, 2, f.Pending())

	f.Forget("gone")
	f.Forget("unknown")
	assert.Equal(t, 1, f.Pending())

	n, err := f.Flush(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, found, err := repo.Load(context.Background(), "gone")
	require.NoError(t, err)
	assert.False(t, found, "забытый инвентарь не должен сохраняться")
}

func TestRemovedContainerNotResurrected(t *testing.T) {
	ctx := context.Background()
	repo := storage.NewMemoryInventoryRepo()
	var w *world.World
	f := NewFlusher(Options{
		Repo:  repo,
		Guard: func(fn func() error) error { return w.Exclusive(fn) },
	})
	w = world.New(world.Options{Repo: repo, OnDirty: f.Track, OnRemove: f.Forget})

	pos := vec.Vec3{X: 3, Y: 64, Z: -2}
	barrel, err := w.PlaceBlock(ctx, pos, block.BarrelBlockID)
	require.NoError(t, err)
	putStone(t, barrel, 0, 40)
	require.Equal(t, 1, f.Pending())

	require.NoError(t, w.RemoveBlock(ctx, pos))
	assert.Equal(t, 0, f.Pending(), "удалённый контейнер должен уйти из очереди")

	_, err = f.Flush(ctx)
	require.NoError(t, err)
	_, found, err := repo.Load(ctx, world.ContainerKey(pos))
	require.NoError(t, err)
	assert.False(t, found, "сброс не должен записывать удалённый инвентарь")

	fresh, err := w.PlaceBlock(ctx, pos, block.BarrelBlockID)
	require.NoError(t, err)
	assert.True(t, fresh.Slot(0).Empty(), "новая бочка должна быть пустой")
}
