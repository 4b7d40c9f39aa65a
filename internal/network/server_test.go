package network

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/annel0/stackattack/internal/inventory"
	"github.com/annel0/stackattack/internal/item"
	_ "github.com/annel0/stackattack/internal/item/implementations"
	"github.com/annel0/stackattack/internal/protocol"
	"github.com/annel0/stackattack/internal/transfer"
	"github.com/annel0/stackattack/internal/vec"
	"github.com/annel0/stackattack/internal/world"
	"github.com/annel0/stackattack/internal/world/block"
	_ "github.com/annel0/stackattack/internal/world/block/implementations"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// staticAuth принимает токены вида "player-<id>" из таблицы
type staticAuth map[string]uint64

func (a staticAuth) Authenticate(token string) (uint64, error) {
	if id, ok := a[token]; ok {
		return id, nil
	}
	return 0, errors.New("неизвестный токен")
}

type call struct {
	playerID uint64
	req      protocol.Request
}

// recordingHandler запоминает запросы и проверяет, что они не выполняются параллельно
type recordingHandler struct {
	mu      sync.Mutex
	calls   []call
	running int
	overlap bool
	delay   time.Duration
}

func (h *recordingHandler) HandleRequest(ctx context.Context, playerID uint64, req protocol.Request) (transfer.Result, error) {
	h.mu.Lock()
	h.running++
	if h.running > 1 {
		h.overlap = true
	}
	h.mu.Unlock()

	time.Sleep(h.delay)

	h.mu.Lock()
	h.running--
	h.calls = append(h.calls, call{playerID: playerID, req: req})
	h.mu.Unlock()
	return transfer.Result{Applied: len(req.Positions)}, nil
}

func (h *recordingHandler) snapshot() []call {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]call(nil), h.calls...)
}

func startServer(t *testing.T, transport Transport, handler RequestHandler, tweak func(*Options)) (*Server, *Metrics) {
	t.Helper()

	d := NewDispatcher(handler, 16)
	d.Start()
	t.Cleanup(d.Stop)

	metrics, err := NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	opts := Options{
		Addr:       "127.0.0.1:0",
		Transport:  transport,
		Auth:       staticAuth{"token-a": 1, "token-b": 2},
		Dispatcher: d,
		Metrics:    metrics,
	}
	if tweak != nil {
		tweak(&opts)
	}

	srv, err := NewServer(opts)
	require.NoError(t, err)
	require.NoError(t, srv.Start())
	t.Cleanup(srv.Stop)
	return srv, metrics
}

func dial(t *testing.T, srv *Server, transport Transport, token string) net.Conn {
	t.Helper()
	conn, err := Dial(context.Background(), transport, srv.Addr().String())
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, protocol.WriteFrame(conn, protocol.MsgAuth, []byte(token)))
	return conn
}

func sendRequest(t *testing.T, conn net.Conn, req protocol.Request) {
	t.Helper()
	data, err := protocol.MarshalRequest(req)
	require.NoError(t, err)
	require.NoError(t, protocol.WriteFrame(conn, protocol.MsgInventoryOp, data))
}

func expectClosed(t *testing.T, conn net.Conn) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := protocol.ReadFrame(conn)
	if err == nil {
		t.Fatalf("Ожидалось закрытие соединения")
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		t.Fatalf("Соединение не закрыто сервером: %v", err)
	}
}

func TestParseTransport(t *testing.T) {
	tr, err := ParseTransport("")
	require.NoError(t, err)
	assert.Equal(t, TransportTCP, tr)

	tr, err = ParseTransport("KCP")
	require.NoError(t, err)
	assert.Equal(t, TransportKCP, tr)

	_, err = ParseTransport("quic")
	assert.Error(t, err)
}

func TestRequestsReachDispatcherInOrder(t *testing.T) {
	h := &recordingHandler{}
	srv, _ := startServer(t, TransportTCP, h, nil)
	conn := dial(t, srv, TransportTCP, "token-a")

	first := protocol.Request{Kind: inventory.DepositAll, Positions: []vec.Vec3{{X: 1, Y: 2, Z: 3}, {X: 4, Y: 5, Z: 6}}}
	second := protocol.Request{Kind: inventory.WithdrawAll, Positions: []vec.Vec3{{X: -1}}}
	sendRequest(t, conn, first)
	sendRequest(t, conn, second)

	require.Eventually(t, func() bool { return len(h.snapshot()) == 2 }, 2*time.Second, 10*time.Millisecond)

	calls := h.snapshot()
	assert.Equal(t, uint64(1), calls[0].playerID)
	assert.Equal(t, first, calls[0].req)
	assert.Equal(t, second, calls[1].req)
}

func TestPingPong(t *testing.T) {
	srv, _ := startServer(t, TransportTCP, &recordingHandler{}, nil)
	conn := dial(t, srv, TransportTCP, "token-b")

	require.NoError(t, protocol.WriteFrame(conn, protocol.MsgPing, []byte("42")))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	typ, payload, err := protocol.ReadFrame(conn)
	require.NoError(t, err)
	assert.Equal(t, protocol.MsgPong, typ)
	assert.Equal(t, []byte("42"), payload)
}

func TestFirstFrameMustBeAuth(t *testing.T) {
	h := &recordingHandler{}
	srv, metrics := startServer(t, TransportTCP, h, nil)

	conn, err := Dial(context.Background(), TransportTCP, srv.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	sendRequest(t, conn, protocol.Request{Kind: inventory.QuickStack, Positions: []vec.Vec3{{}}})
	expectClosed(t, conn)

	assert.Empty(t, h.snapshot())
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.authFailed))
}

func TestInvalidTokenClosesConnection(t *testing.T) {
	h := &recordingHandler{}
	srv, _ := startServer(t, TransportTCP, h, nil)
	conn := dial(t, srv, TransportTCP, "чужой")

	expectClosed(t, conn)
	assert.Empty(t, h.snapshot())
}

func TestMalformedRequestIsDropped(t *testing.T) {
	h := &recordingHandler{}
	srv, _ := startServer(t, TransportTCP, h, nil)
	conn := dial(t, srv, TransportTCP, "token-a")

	require.NoError(t, protocol.WriteFrame(conn, protocol.MsgInventoryOp, []byte{0xff}))
	sendRequest(t, conn, protocol.Request{Kind: inventory.QuickStack})

	require.Eventually(t, func() bool { return len(h.snapshot()) == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestIdleConnectionDropped(t *testing.T) {
	srv, _ := startServer(t, TransportTCP, &recordingHandler{}, func(o *Options) {
		o.IdleTimeout = 100 * time.Millisecond
	})
	conn := dial(t, srv, TransportTCP, "token-a")

	expectClosed(t, conn)
	require.Eventually(t, func() bool { return srv.ConnectionCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestConnectionLimitPerIP(t *testing.T) {
	srv, metrics := startServer(t, TransportTCP, &recordingHandler{}, func(o *Options) {
		o.MaxConnectionsPerIP = 1
	})
	dial(t, srv, TransportTCP, "token-a")
	require.Eventually(t, func() bool { return srv.ConnectionCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	conn, err := Dial(context.Background(), TransportTCP, srv.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	expectClosed(t, conn)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.accepted.WithLabelValues("rejected")))
}

func TestDispatcherSerializesConnections(t *testing.T) {
	h := &recordingHandler{delay: 5 * time.Millisecond}
	srv, _ := startServer(t, TransportTCP, h, nil)

	a := dial(t, srv, TransportTCP, "token-a")
	b := dial(t, srv, TransportTCP, "token-b")
	for i := 0; i < 5; i++ {
		sendRequest(t, a, protocol.Request{Kind: inventory.QuickStack})
		sendRequest(t, b, protocol.Request{Kind: inventory.DepositAll})
	}

	require.Eventually(t, func() bool { return len(h.snapshot()) == 10 }, 5*time.Second, 10*time.Millisecond)
	h.mu.Lock()
	defer h.mu.Unlock()
	assert.False(t, h.overlap, "запросы должны выполняться по одному")
}

func TestKCPTransport(t *testing.T) {
	h := &recordingHandler{}
	srv, _ := startServer(t, TransportKCP, h, nil)
	conn := dial(t, srv, TransportKCP, "token-b")

	req := protocol.Request{Kind: inventory.WithdrawAll, Positions: []vec.Vec3{{X: 7, Y: 8, Z: 9}}}
	sendRequest(t, conn, req)

	require.Eventually(t, func() bool { return len(h.snapshot()) == 1 }, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, uint64(2), h.snapshot()[0].playerID)
	assert.Equal(t, req, h.snapshot()[0].req)
}

func TestDispatcherSubmitAndStop(t *testing.T) {
	h := &recordingHandler{}
	d := NewDispatcher(h, 4)
	d.Start()

	res, err := d.Submit(context.Background(), 3, protocol.Request{Positions: []vec.Vec3{{}, {}}})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Applied)

	d.Stop()
	d.Stop()

	err = d.Enqueue(context.Background(), 3, protocol.Request{})
	assert.ErrorIs(t, err, ErrDispatcherStopped)
}

func TestNewServerValidatesOptions(t *testing.T) {
	_, err := NewServer(Options{})
	assert.Error(t, err)

	_, err = NewServer(Options{Auth: staticAuth{}})
	assert.Error(t, err)
}

// gatedHandler держит первый запрос, пока не откроют gate
type gatedHandler struct {
	gate    chan struct{}
	entered chan struct{}
	once    sync.Once
	next    RequestHandler
}

func (h *gatedHandler) HandleRequest(ctx context.Context, playerID uint64, req protocol.Request) (transfer.Result, error) {
	h.once.Do(func() {
		close(h.entered)
		<-h.gate
	})
	return h.next.HandleRequest(ctx, playerID, req)
}

func TestSubmittedRequestSurvivesCallerCancel(t *testing.T) {
	ctx := context.Background()
	barrel := vec.Vec3{X: 1, Y: 64, Z: 1}

	w := world.New(world.Options{PlayerBagSlots: 1, PlayerContentSlots: 3})
	_, err := w.PlaceBlock(ctx, barrel, block.BarrelBlockID)
	require.NoError(t, err)
	player, err := w.PlayerInventory(ctx, 7)
	require.NoError(t, err)
	player.Slot(1).SetStack(item.NewStack(item.MustGet(item.StoneGoodID), 10))

	h := &gatedHandler{
		gate:    make(chan struct{}),
		entered: make(chan struct{}),
		next:    transfer.NewEngine(transfer.Options{Host: w}),
	}
	d := NewDispatcher(h, 4)
	d.Start()
	defer d.Stop()

	// Первый запрос занимает диспетчер, второй ждёт в очереди
	require.NoError(t, d.Enqueue(ctx, 7, protocol.Request{Kind: inventory.QuickStack}))
	<-h.entered

	rctx, cancel := context.WithCancel(ctx)
	submitErr := make(chan error, 1)
	go func() {
		_, err := d.Submit(rctx, 7, protocol.Request{Kind: inventory.DepositAll, Positions: []vec.Vec3{barrel}})
		submitErr <- err
	}()
	require.Eventually(t, func() bool { return d.Pending() == 1 }, time.Second, time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-submitErr, context.Canceled)
	close(h.gate)

	require.Eventually(t, func() bool {
		moved := false
		_ = w.Exclusive(func() error {
			moved = player.Slot(1).Empty()
			return nil
		})
		return moved
	}, time.Second, 5*time.Millisecond, "принятый запрос должен выполниться после отмены вызывающего")

	container, err := w.Resolve(barrel)
	require.NoError(t, err)
	_ = w.Exclusive(func() error {
		if got := container.Slot(0).Quantity(); got != 10 {
			t.Errorf("В бочке ожидалось 10 камня, получено %d", got)
		}
		return nil
	})
}
