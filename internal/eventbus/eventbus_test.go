package eventbus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/annel0/stackattack/internal/vec"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type collector struct {
	mu  sync.Mutex
	evs []*Envelope
}

func (c *collector) handle(ctx context.Context, ev *Envelope) {
	c.mu.Lock()
	c.evs = append(c.evs, ev)
	c.mu.Unlock()
}

func (c *collector) snapshot() []*Envelope {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*Envelope(nil), c.evs...)
}

func mustEnvelope(t *testing.T, eventType string, payload interface{}) *Envelope {
	t.Helper()
	ev, err := NewEnvelope(eventType, "test", payload)
	require.NoError(t, err)
	return ev
}

func TestNewEnvelope(t *testing.T) {
	payload := TransferApplied{PlayerID: 7, Operation: "quickstack", Container: vec.Vec3{X: 1, Y: 2, Z: 3}, Merged: 12}
	ev := mustEnvelope(t, EventTransferApplied, payload)

	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, EventTransferApplied, ev.EventType)
	assert.Equal(t, 1, ev.Version)

	var decoded TransferApplied
	require.NoError(t, ev.Decode(&decoded))
	assert.Equal(t, payload, decoded)

	other := mustEnvelope(t, EventTransferApplied, payload)
	assert.NotEqual(t, ev.ID, other.ID, "ID событий должны быть уникальны")
}

func TestMemoryBusDeliversInOrder(t *testing.T) {
	bus := NewMemoryBus(64)
	defer bus.Close()

	var all collector
	_, err := bus.Subscribe(context.Background(), Filter{}, all.handle)
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		require.NoError(t, bus.Publish(context.Background(), mustEnvelope(t, EventInventoryChanged, InventoryChanged{Slots: []int{i}})))
	}

	require.Eventually(t, func() bool { return len(all.snapshot()) == 20 }, time.Second, 5*time.Millisecond)
	for i, ev := range all.snapshot() {
		var p InventoryChanged
		require.NoError(t, ev.Decode(&p))
		assert.Equal(t, []int{i}, p.Slots)
	}
}

func TestMemoryBusFilter(t *testing.T) {
	bus := NewMemoryBus(16)
	defer bus.Close()

	var transfers collector
	_, err := bus.Subscribe(context.Background(), Filter{Types: []string{EventTransferApplied}}, transfers.handle)
	require.NoError(t, err)

	require.NoError(t, bus.Publish(context.Background(), mustEnvelope(t, EventBlockSet, BlockChanged{})))
	require.NoError(t, bus.Publish(context.Background(), mustEnvelope(t, EventTransferApplied, TransferApplied{})))

	require.Eventually(t, func() bool { return len(transfers.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, EventTransferApplied, transfers.snapshot()[0].EventType)
}

func TestMemoryBusUnsubscribe(t *testing.T) {
	bus := NewMemoryBus(16)
	defer bus.Close()

	var c collector
	sub, err := bus.Subscribe(context.Background(), Filter{}, c.handle)
	require.NoError(t, err)
	sub.Unsubscribe()

	require.NoError(t, bus.Publish(context.Background(), mustEnvelope(t, EventBlockSet, BlockChanged{})))
	require.Eventually(t, func() bool { return bus.Metrics().InFlight == 0 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, c.snapshot())
}

func TestMemoryBusClose(t *testing.T) {
	bus := NewMemoryBus(16)

	var c collector
	_, err := bus.Subscribe(context.Background(), Filter{}, c.handle)
	require.NoError(t, err)
	require.NoError(t, bus.Publish(context.Background(), mustEnvelope(t, EventBlockSet, BlockChanged{})))

	require.NoError(t, bus.Close())
	require.NoError(t, bus.Close())

	assert.ErrorIs(t, bus.Publish(context.Background(), mustEnvelope(t, EventBlockSet, BlockChanged{})), ErrClosed)
	_, err = bus.Subscribe(context.Background(), Filter{}, c.handle)
	assert.ErrorIs(t, err, ErrClosed)

	// Принятое до закрытия событие доставлено
	require.Eventually(t, func() bool { return len(c.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
}

func TestMemoryBusDropsLowPriorityWhenFull(t *testing.T) {
	mb := &memoryBus{
		subscribers: make(map[int]subscriber),
		buffer:      make(chan *Envelope, 1),
		capacity:    1,
		quit:        make(chan struct{}),
		done:        make(chan struct{}),
	}
	// dispatchLoop не запущен: буфер не разгружается

	ctx := context.Background()
	require.NoError(t, mb.Publish(ctx, mustEnvelope(t, EventBlockSet, BlockChanged{})))
	require.NoError(t, mb.Publish(ctx, mustEnvelope(t, EventBlockSet, BlockChanged{})))

	stats := mb.Metrics()
	assert.Equal(t, uint64(1), stats.Published)
	assert.Equal(t, uint64(1), stats.Dropped)
	assert.Equal(t, 1, stats.InFlight)

	high := mustEnvelope(t, EventBlockSet, BlockChanged{})
	high.Priority = 9
	cctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, mb.Publish(cctx, high), context.DeadlineExceeded)
}

func TestMetricsExporterCollect(t *testing.T) {
	bus := NewMemoryBus(16)
	defer bus.Close()

	reg := prometheus.NewRegistry()
	exporter, err := NewMetricsExporter(bus, reg)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, bus.Publish(context.Background(), mustEnvelope(t, EventBlockSet, BlockChanged{})))
	}

	prev := exporter.Collect(Stats{})
	assert.Equal(t, float64(3), testutil.ToFloat64(exporter.published))

	// Повторный сбор без новых событий не увеличивает counter
	exporter.Collect(prev)
	assert.Equal(t, float64(3), testutil.ToFloat64(exporter.published))

	_, err = NewMetricsExporter(bus, reg)
	assert.Error(t, err, "повторная регистрация в том же регистре должна падать")

	exporter.Stop() // без Start ничего не блокирует
}

func TestGlobalPublishWithoutBus(t *testing.T) {
	Init(nil)
	assert.NoError(t, PublishEvent(context.Background(), EventBlockSet, "test", BlockChanged{}))

	bus := NewMemoryBus(4)
	defer bus.Close()
	Init(bus)
	defer Init(nil)

	var c collector
	_, err := bus.Subscribe(context.Background(), Filter{}, c.handle)
	require.NoError(t, err)
	require.NoError(t, PublishEvent(context.Background(), EventBlockRemoved, "world", BlockChanged{Name: "Chest"}))
	require.Eventually(t, func() bool { return len(c.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "world", c.snapshot()[0].Source)
}
