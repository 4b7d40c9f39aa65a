package inventory

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownOperation возвращается для неизвестного вида операции
var ErrUnknownOperation = errors.New("неизвестная операция переноса")

// OperationKind определяет вид массового переноса
type OperationKind int32

const (
	QuickStack  OperationKind = 0 // Досложить в сундук то, что в нём уже есть
	DepositAll  OperationKind = 1 // Выложить всё в сундук
	WithdrawAll OperationKind = 2 // Забрать всё из сундука
)

// String возвращает имя операции
func (k OperationKind) String() string {
	switch k {
	case QuickStack:
		return "quickstack"
	case DepositAll:
		return "deposit"
	case WithdrawAll:
		return "withdraw"
	default:
		return fmt.Sprintf("unknown(%d)", int32(k))
	}
}

// ParseOperationKind разбирает имя операции
func ParseOperationKind(s string) (OperationKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "quickstack", "quick-stack", "quick_stack":
		return QuickStack, nil
	case "deposit", "depositall", "deposit-all", "deposit_all":
		return DepositAll, nil
	case "withdraw", "withdrawall", "withdraw-all", "withdraw_all":
		return WithdrawAll, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownOperation, s)
	}
}

// Plan задаёт направление и режим переноса для операции
type Plan struct {
	FromPlayer bool // true: игрок → контейнер, false: контейнер → игрок
	MoveAll    bool // переносить в пустые слоты любые товары
}

var plans = map[OperationKind]Plan{
	QuickStack:  {FromPlayer: true, MoveAll: false},
	DepositAll:  {FromPlayer: true, MoveAll: true},
	WithdrawAll: {FromPlayer: false, MoveAll: true},
}

// PlanFor возвращает план для операции
func PlanFor(kind OperationKind) (Plan, error) {
	plan, ok := plans[kind]
	if !ok {
		return Plan{}, fmt.Errorf("%w: %d", ErrUnknownOperation, int32(kind))
	}
	return plan, nil
}

// Orient возвращает пару источник/назначение для плана
func (p Plan) Orient(player, container *Inventory) (source, destination *Inventory) {
	if p.FromPlayer {
		return player, container
	}
	return container, player
}

// Apply выполняет операцию между инвентарём игрока и контейнера
func Apply(player, container *Inventory, kind OperationKind) (Summary, error) {
	plan, err := PlanFor(kind)
	if err != nil {
		return Summary{}, err
	}
	source, destination := plan.Orient(player, container)
	return Reconcile(source, destination, plan.MoveAll), nil
}
