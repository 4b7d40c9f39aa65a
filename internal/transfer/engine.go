// Package transfer выполняет массовые переносы между инвентарём игрока и
// открытыми им контейнерами.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/annel0/stackattack/internal/eventbus"
	"github.com/annel0/stackattack/internal/inventory"
	"github.com/annel0/stackattack/internal/logging"
	"github.com/annel0/stackattack/internal/protocol"
	"github.com/annel0/stackattack/internal/vec"
	"github.com/annel0/stackattack/internal/world"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Host - сторона мира, которой пользуется движок
type Host interface {
	world.Resolver
	Exclusive(fn func() error) error
	PlayerInventory(ctx context.Context, playerID uint64) (*inventory.Inventory, error)
}

// Options настраивает движок
type Options struct {
	Host    Host
	Bus     eventbus.EventBus // nil - события не публикуются
	Source  string            // имя источника событий
	Metrics *Metrics          // nil - без метрик
	Timeout time.Duration     // 0 - без дедлайна на запрос
}

// Result - итог обработки запроса
type Result struct {
	Summary inventory.Summary // суммарно по всем контейнерам
	Applied int               // контейнеров обработано
	Skipped int               // ссылок пропущено
}

// Engine применяет запросы игроков к миру.
type Engine struct {
	host    Host
	bus     eventbus.EventBus
	source  string
	metrics *Metrics
	timeout time.Duration
	tracer  trace.Tracer
	logger  *logging.Logger
}

// NewEngine создаёт движок
func NewEngine(opts Options) *Engine {
	if opts.Source == "" {
		opts.Source = "transfer"
	}
	return &Engine{
		host:    opts.Host,
		bus:     opts.Bus,
		source:  opts.Source,
		metrics: opts.Metrics,
		timeout: opts.Timeout,
		tracer:  otel.Tracer("github.com/annel0/stackattack/internal/transfer"),
		logger:  logging.GetTransferLogger(),
	}
}

// ApplyOperation выполняет одну операцию между инвентарём игрока и контейнера.
// Вызывающий обязан обеспечить монопольный доступ к обоим инвентарям.
func (e *Engine) ApplyOperation(player, container *inventory.Inventory, kind inventory.OperationKind) (inventory.Summary, error) {
	if player == nil || container == nil {
		return inventory.Summary{}, fmt.Errorf("%w: нет инвентаря", world.ErrNoInventory)
	}
	return inventory.Apply(player, container, kind)
}

// HandleRequest применяет операцию ко всем контейнерам запроса по порядку.
//
// Неразрешимые контейнеры и неизвестная операция логируются и пропускаются,
// остальные ссылки обрабатываются. Ошибка возвращается только если не удалось
// получить инвентарь игрока или истёк дедлайн запроса.
func (e *Engine) HandleRequest(ctx context.Context, playerID uint64, req protocol.Request) (Result, error) {
	started := time.Now()
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	ctx, span := e.tracer.Start(ctx, "transfer.HandleRequest", trace.WithAttributes(
		attribute.Int64("player.id", int64(playerID)),
		attribute.String("transfer.operation", req.Kind.String()),
		attribute.Int("transfer.containers", len(req.Positions)),
	))
	defer span.End()

	var res Result

	player, err := e.host.PlayerInventory(ctx, playerID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "player inventory")
		return res, fmt.Errorf("инвентарь игрока %d недоступен: %w", playerID, err)
	}

	var applied []eventbus.TransferApplied
	err = e.host.Exclusive(func() error {
		for i, pos := range req.Positions {
			if ctxErr := ctx.Err(); ctxErr != nil {
				e.logger.Warn("Запрос игрока %d прерван: %v, пропущено контейнеров: %d", playerID, ctxErr, len(req.Positions)-i)
				res.Skipped += len(req.Positions) - i
				e.countContainers(resultExpired, len(req.Positions)-i)
				return ctxErr
			}

			sum, ok := e.applyAt(player, pos, req.Kind, playerID)
			if !ok {
				res.Skipped++
				continue
			}

			res.Applied++
			res.Summary = res.Summary.Add(sum)
			applied = append(applied, eventbus.TransferApplied{
				PlayerID:  playerID,
				Operation: req.Kind.String(),
				Container: pos,
				Merged:    sum.Merged,
				Relocated: sum.Relocated,
				Stacks:    sum.Stacks,
			})
		}
		return nil
	})

	e.observe(req.Kind, res, started)
	e.publish(ctx, applied)

	span.SetAttributes(
		attribute.Int("transfer.applied", res.Applied),
		attribute.Int("transfer.skipped", res.Skipped),
		attribute.Int64("transfer.moved", res.Summary.Moved()),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "deadline")
		return res, err
	}

	e.logger.Debug("Игрок %d: %s по %d контейнерам, перенесено %d (пропущено %d)",
		playerID, req.Kind, res.Applied, res.Summary.Moved(), res.Skipped)
	return res, nil
}

// applyAt разрешает контейнер и применяет к нему операцию.
// false означает, что ссылка пропущена.
func (e *Engine) applyAt(player *inventory.Inventory, pos vec.Vec3, kind inventory.OperationKind, playerID uint64) (inventory.Summary, bool) {
	container, err := e.host.Resolve(pos)
	if err != nil {
		e.countContainers(skipResult(err), 1)
		e.logger.Warn("Игрок %d: контейнер %s пропущен: %v", playerID, pos, err)
		return inventory.Summary{}, false
	}

	sum, err := e.ApplyOperation(player, container, kind)
	if err != nil {
		e.countContainers(skipResult(err), 1)
		e.logger.Error("Игрок %d: операция над %s не выполнена: %v", playerID, pos, err)
		return inventory.Summary{}, false
	}

	e.countContainers(resultApplied, 1)
	return sum, true
}

// skipResult переводит причину пропуска контейнера в метку метрики
func skipResult(err error) string {
	switch {
	case errors.Is(err, world.ErrNoInventory):
		return resultNoInventory
	case errors.Is(err, inventory.ErrUnknownOperation):
		return resultUnknownOp
	default:
		return resultNotContainer
	}
}

func (e *Engine) countContainers(result string, n int) {
	if e.metrics == nil || n <= 0 {
		return
	}
	e.metrics.containers.WithLabelValues(result).Add(float64(n))
}

func (e *Engine) observe(kind inventory.OperationKind, res Result, started time.Time) {
	if e.metrics == nil {
		return
	}
	op := kind.String()
	e.metrics.requests.WithLabelValues(op).Inc()
	e.metrics.items.WithLabelValues(op, "merge").Add(float64(res.Summary.Merged))
	e.metrics.items.WithLabelValues(op, "relocate").Add(float64(res.Summary.Relocated))
	e.metrics.duration.Observe(time.Since(started).Seconds())
}

// publish отправляет события после снятия мировой блокировки
func (e *Engine) publish(ctx context.Context, applied []eventbus.TransferApplied) {
	if e.bus == nil {
		return
	}
	// События о применённых изменениях публикуются и после дедлайна
	ctx = context.WithoutCancel(ctx)

	for _, payload := range applied {
		ev, err := eventbus.NewEnvelope(eventbus.EventTransferApplied, e.source, payload)
		if err != nil {
			e.logger.Error("Ошибка упаковки события: %v", err)
			continue
		}
		ev.Priority = 3
		if err := e.bus.Publish(ctx, ev); err != nil {
			e.logger.Warn("Событие %s не опубликовано: %v", ev.EventType, err)
		}
	}
}
