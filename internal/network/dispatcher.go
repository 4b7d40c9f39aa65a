package network

import (
	"context"
	"errors"
	"sync"

	"github.com/annel0/stackattack/internal/logging"
	"github.com/annel0/stackattack/internal/protocol"
	"github.com/annel0/stackattack/internal/transfer"
)

// ErrDispatcherStopped - очередь запросов остановлена
var ErrDispatcherStopped = errors.New("очередь запросов остановлена")

// RequestHandler обрабатывает запрос игрока
type RequestHandler interface {
	HandleRequest(ctx context.Context, playerID uint64, req protocol.Request) (transfer.Result, error)
}

type job struct {
	ctx      context.Context
	playerID uint64
	req      protocol.Request
	reply    chan jobResult // nil - результат никому не нужен
}

type jobResult struct {
	res transfer.Result
	err error
}

// Dispatcher выполняет запросы по одному в единственной горутине.
// Запросы всех соединений и REST проходят через одну очередь.
type Dispatcher struct {
	handler RequestHandler
	jobs    chan job
	quit    chan struct{}
	done    chan struct{}

	mu      sync.Mutex
	started bool
	stopped bool

	logger *logging.Logger
}

// NewDispatcher создаёт очередь заданной ёмкости
func NewDispatcher(handler RequestHandler, queueSize int) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Dispatcher{
		handler: handler,
		jobs:    make(chan job, queueSize),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
		logger:  logging.GetNetworkLogger(),
	}
}

// Start запускает горутину обработки
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.stopped {
		return
	}
	d.started = true
	go d.loop()
}

// Stop обрабатывает уже принятые запросы и останавливает очередь
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	started := d.started
	close(d.quit)
	d.mu.Unlock()

	if started {
		<-d.done
	}
}

// Enqueue ставит запрос в очередь, не дожидаясь выполнения.
// Блокируется, пока в очереди нет места.
func (d *Dispatcher) Enqueue(ctx context.Context, playerID uint64, req protocol.Request) error {
	return d.push(ctx, job{ctx: context.WithoutCancel(ctx), playerID: playerID, req: req})
}

// Submit ставит запрос в очередь и ждёт результата.
// ctx ограничивает только постановку в очередь и ожидание ответа:
// принятый запрос выполняется до конца, даже если вызывающий ушёл.
func (d *Dispatcher) Submit(ctx context.Context, playerID uint64, req protocol.Request) (transfer.Result, error) {
	reply := make(chan jobResult, 1)
	if err := d.push(ctx, job{ctx: context.WithoutCancel(ctx), playerID: playerID, req: req, reply: reply}); err != nil {
		return transfer.Result{}, err
	}

	select {
	case r := <-reply:
		return r.res, r.err
	case <-ctx.Done():
		return transfer.Result{}, ctx.Err()
	}
}

// Pending возвращает число запросов в очереди
func (d *Dispatcher) Pending() int {
	return len(d.jobs)
}

func (d *Dispatcher) push(ctx context.Context, j job) error {
	select {
	case <-d.quit:
		return ErrDispatcherStopped
	default:
	}

	select {
	case d.jobs <- j:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-d.quit:
		return ErrDispatcherStopped
	}
}

func (d *Dispatcher) loop() {
	defer close(d.done)

	for {
		select {
		case j := <-d.jobs:
			d.run(j)
		case <-d.quit:
			for {
				select {
				case j := <-d.jobs:
					d.run(j)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) run(j job) {
	res, err := d.handler.HandleRequest(j.ctx, j.playerID, j.req)
	if err != nil {
		d.logger.Warn("Запрос игрока %d (%s) завершён с ошибкой: %v", j.playerID, j.req.Kind, err)
	}
	if j.reply != nil {
		j.reply <- jobResult{res: res, err: err}
	}
}
