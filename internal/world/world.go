package world

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/annel0/stackattack/internal/inventory"
	"github.com/annel0/stackattack/internal/logging"
	"github.com/annel0/stackattack/internal/storage"
	"github.com/annel0/stackattack/internal/vec"
	"github.com/annel0/stackattack/internal/world/block"
)

var (
	// ErrNotContainer - по позиции нет блока-контейнера (блок удалён или другого типа)
	ErrNotContainer = errors.New("блок не является контейнером")
	// ErrNoInventory - контейнер найден, но инвентаря у него нет
	ErrNoInventory = errors.New("у контейнера нет инвентаря")
	// ErrOccupied - позиция уже занята блоком
	ErrOccupied = errors.New("позиция занята")
)

// Раскладка инвентаря игрока по умолчанию
const (
	DefaultPlayerBagSlots     = 4
	DefaultPlayerContentSlots = 26 // 10 слотов хотбара + 16 слотов сумок
)

// Resolver разрешает позицию контейнера в живой инвентарь
type Resolver interface {
	Resolve(pos vec.Vec3) (*inventory.Inventory, error)
}

// Options настраивает мир
type Options struct {
	Repo               storage.InventoryRepo    // nil - без загрузки сохранённых инвентарей
	Blocks             storage.BlockRepo        // nil - расстановка блоков не сохраняется
	PlayerBagSlots     int                      // 0 - DefaultPlayerBagSlots
	PlayerContentSlots int                      // 0 - DefaultPlayerContentSlots
	OnDirty            inventory.DirtyListener  // подключается к каждому инвентарю мира
	OnEvent            func(BlockEvent)         // установка и удаление блоков
	OnRemove           func(inventoryID string) // инвентарь контейнера удалён из мира
}

// blockEntity - блок на позиции вместе с его инвентарём (если есть)
type blockEntity struct {
	block Block
	inv   *inventory.Inventory
}

// World хранит блоки-контейнеры и инвентари игроков.
//
// Блокировки:
//   - opMu сериализует все изменения содержимого инвентарей (Exclusive);
//   - blocksMu и playersMu защищают только карты.
type World struct {
	opMu sync.Mutex

	blocksMu sync.RWMutex
	blocks   map[vec.Vec3]*blockEntity

	playersMu sync.Mutex
	players   map[uint64]*inventory.Inventory

	opts   Options
	logger *logging.Logger
}

// New создаёт пустой мир
func New(opts Options) *World {
	if opts.PlayerBagSlots <= 0 {
		opts.PlayerBagSlots = DefaultPlayerBagSlots
	}
	if opts.PlayerContentSlots <= 0 {
		opts.PlayerContentSlots = DefaultPlayerContentSlots
	}

	return &World{
		blocks:  make(map[vec.Vec3]*blockEntity),
		players: make(map[uint64]*inventory.Inventory),
		opts:    opts,
		logger:  logging.GetComponentLogger("world"),
	}
}

// ContainerKey возвращает ключ хранения инвентаря контейнера
func ContainerKey(pos vec.Vec3) string {
	return "container:" + pos.Key()
}

// PlayerKey возвращает ключ хранения инвентаря игрока
func PlayerKey(playerID uint64) string {
	return "player:" + strconv.FormatUint(playerID, 10)
}

// Exclusive выполняет fn под мировой блокировкой.
// Все чтения и изменения содержимого инвентарей выполняются внутри Exclusive.
func (w *World) Exclusive(fn func() error) error {
	w.opMu.Lock()
	defer w.opMu.Unlock()
	return fn()
}

// Resolve возвращает инвентарь контейнера на позиции.
// Ошибки: ErrNotContainer (нет блока или блок не контейнер), ErrNoInventory.
func (w *World) Resolve(pos vec.Vec3) (*inventory.Inventory, error) {
	w.blocksMu.RLock()
	entity, exists := w.blocks[pos]
	w.blocksMu.RUnlock()

	if !exists || !entity.block.IsContainer() {
		return nil, fmt.Errorf("%w: %s", ErrNotContainer, pos)
	}
	if entity.inv == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoInventory, pos)
	}
	return entity.inv, nil
}

// BlockAt возвращает копию блока на позиции
func (w *World) BlockAt(pos vec.Vec3) (Block, bool) {
	w.blocksMu.RLock()
	defer w.blocksMu.RUnlock()

	entity, exists := w.blocks[pos]
	if !exists {
		return Block{}, false
	}
	return entity.block.Clone(), true
}

// PlaceBlock устанавливает блок. Для контейнеров создаётся инвентарь:
// сохранённый в хранилище восстанавливается, иначе создаётся пустой.
// Возвращает инвентарь блока (nil для блоков без инвентаря).
func (w *World) PlaceBlock(ctx context.Context, pos vec.Vec3, id block.BlockID) (*inventory.Inventory, error) {
	return w.place(ctx, pos, id, true)
}

// Restore расставляет блоки, сохранённые в BlockRepo. Возвращает число восстановленных блоков.
// Неизвестные ID блоков пропускаются с предупреждением.
func (w *World) Restore(ctx context.Context) (int, error) {
	if w.opts.Blocks == nil {
		return 0, nil
	}

	placements, err := w.opts.Blocks.LoadAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("ошибка загрузки расстановки блоков: %w", err)
	}

	restored := 0
	for _, p := range placements {
		if _, err := w.place(ctx, p.Position, block.BlockID(p.BlockID), false); err != nil {
			if ctx.Err() != nil {
				return restored, ctx.Err()
			}
			w.logger.Warn("Блок %d в %s не восстановлен: %v", p.BlockID, p.Position, err)
			continue
		}
		restored++
	}

	w.logger.Info("Восстановлено блоков: %d", restored)
	return restored, nil
}

func (w *World) place(ctx context.Context, pos vec.Vec3, id block.BlockID, persist bool) (*inventory.Inventory, error) {
	behavior, exists := block.Get(id)
	if !exists {
		return nil, fmt.Errorf("неизвестный тип блока: %d", id)
	}

	w.blocksMu.Lock()
	if _, occupied := w.blocks[pos]; occupied {
		w.blocksMu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrOccupied, pos)
	}
	// Резервируем позицию до загрузки инвентаря
	entity := &blockEntity{block: NewBlock(id)}
	w.blocks[pos] = entity
	w.blocksMu.Unlock()

	if layout := behavior.InventoryLayout(); layout != nil {
		inv, err := w.loadOrCreate(ctx, ContainerKey(pos), layout)
		if err != nil {
			w.blocksMu.Lock()
			delete(w.blocks, pos)
			w.blocksMu.Unlock()
			return nil, err
		}
		// Запись под opMu: Resolve не должен видеть инвентарь посреди операции
		w.opMu.Lock()
		entity.inv = inv
		w.opMu.Unlock()
	}

	if persist && w.opts.Blocks != nil {
		if err := w.opts.Blocks.Save(ctx, storage.Placement{Position: pos, BlockID: uint16(id)}); err != nil {
			w.blocksMu.Lock()
			delete(w.blocks, pos)
			w.blocksMu.Unlock()
			return nil, fmt.Errorf("ошибка сохранения блока %s: %w", pos, err)
		}
	}

	w.logger.Debug("Блок %s установлен в %s", behavior.Name(), pos)
	w.emit(BlockEvent{EventType: EventTypeBlockSet, Position: pos, Block: entity.block.Clone()})
	return entity.inv, nil
}

// RemoveBlock удаляет блок и сохранённый инвентарь контейнера
func (w *World) RemoveBlock(ctx context.Context, pos vec.Vec3) error {
	// Под opMu: ни одна операция не держит инвентарь удаляемого блока
	w.opMu.Lock()
	w.blocksMu.Lock()
	entity, exists := w.blocks[pos]
	if !exists {
		w.blocksMu.Unlock()
		w.opMu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotContainer, pos)
	}
	delete(w.blocks, pos)
	w.blocksMu.Unlock()
	w.opMu.Unlock()

	// Очередь сохранения забывает инвентарь до удаления из хранилища,
	// иначе отложенная запись вернёт его при следующей установке блока
	if entity.inv != nil && w.opts.OnRemove != nil {
		w.opts.OnRemove(entity.inv.ID())
	}

	if w.opts.Blocks != nil {
		err := w.opts.Blocks.Delete(ctx, pos)
		if err != nil && !errors.Is(err, storage.ErrBlockNotFound) {
			return fmt.Errorf("ошибка удаления блока %s: %w", pos, err)
		}
	}

	if entity.inv != nil && w.opts.Repo != nil {
		err := w.opts.Repo.Delete(ctx, ContainerKey(pos))
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("ошибка удаления инвентаря %s: %w", ContainerKey(pos), err)
		}
	}

	w.emit(BlockEvent{EventType: EventTypeBlockRemoved, Position: pos, Block: entity.block.Clone()})
	return nil
}

// Containers возвращает позиции всех контейнеров в детерминированном порядке
func (w *World) Containers() []vec.Vec3 {
	w.blocksMu.RLock()
	positions := make([]vec.Vec3, 0, len(w.blocks))
	for pos, entity := range w.blocks {
		if entity.block.IsContainer() {
			positions = append(positions, pos)
		}
	}
	w.blocksMu.RUnlock()

	sort.Slice(positions, func(i, j int) bool {
		a, b := positions[i], positions[j]
		if a.X != b.X {
			return a.X < b.X
		}
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.Z < b.Z
	})
	return positions
}

// PlayerInventory возвращает инвентарь игрока, загружая или создавая его при первом обращении
func (w *World) PlayerInventory(ctx context.Context, playerID uint64) (*inventory.Inventory, error) {
	w.playersMu.Lock()
	defer w.playersMu.Unlock()

	if inv, exists := w.players[playerID]; exists {
		return inv, nil
	}

	layout := inventory.PlayerLayout(w.opts.PlayerBagSlots, w.opts.PlayerContentSlots)
	inv, err := w.loadOrCreate(ctx, PlayerKey(playerID), layout)
	if err != nil {
		return nil, err
	}
	w.players[playerID] = inv
	return inv, nil
}

// loadOrCreate восстанавливает инвентарь из хранилища или создаёт новый
func (w *World) loadOrCreate(ctx context.Context, id string, layout []inventory.SlotKind) (*inventory.Inventory, error) {
	var inv *inventory.Inventory

	if w.opts.Repo != nil {
		snap, found, err := w.opts.Repo.Load(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("ошибка загрузки инвентаря %s: %w", id, err)
		}
		if found {
			inv, err = inventory.Restore(snap)
			if err != nil {
				return nil, err
			}
			if inv.Len() != len(layout) {
				w.logger.Warn("Инвентарь %s: сохранено %d слотов, ожидалось %d", id, inv.Len(), len(layout))
			}
		}
	}

	if inv == nil {
		inv = inventory.New(id, layout)
	}
	if w.opts.OnDirty != nil {
		inv.OnDirty(w.opts.OnDirty)
	}
	return inv, nil
}

// Inventories возвращает все загруженные инвентари (контейнеры и игроки)
func (w *World) Inventories() []*inventory.Inventory {
	var out []*inventory.Inventory

	w.blocksMu.RLock()
	for _, entity := range w.blocks {
		if entity.inv != nil {
			out = append(out, entity.inv)
		}
	}
	w.blocksMu.RUnlock()

	w.playersMu.Lock()
	for _, inv := range w.players {
		out = append(out, inv)
	}
	w.playersMu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// SaveAll сохраняет все загруженные инвентари одним пакетом
func (w *World) SaveAll(ctx context.Context) error {
	if w.opts.Repo == nil {
		return nil
	}

	var (
		snaps []*inventory.Snapshot
		saved []*inventory.Inventory
	)
	_ = w.Exclusive(func() error {
		saved = w.Inventories()
		for _, inv := range saved {
			snaps = append(snaps, inv.Snapshot())
		}
		return nil
	})

	if err := w.opts.Repo.BatchSave(ctx, snaps); err != nil {
		return fmt.Errorf("ошибка сохранения мира: %w", err)
	}

	// Пометки снимаются только после успешной записи
	_ = w.Exclusive(func() error {
		for _, inv := range saved {
			inv.ClearDirty()
		}
		return nil
	})
	w.logger.Info("Сохранено инвентарей: %d", len(snaps))
	return nil
}

func (w *World) emit(event BlockEvent) {
	if w.opts.OnEvent != nil {
		w.opts.OnEvent(event)
	}
}
