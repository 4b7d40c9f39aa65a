package inventory_test

import (
	"math"
	"testing"
	"time"

	"github.com/annel0/stackattack/internal/inventory"
	"github.com/annel0/stackattack/internal/item"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func TestTransferItemsNilSlots(t *testing.T) {
	inv := general("inv", 1)
	assert.Equal(t, int32(0), inventory.TransferItems(nil, inv.Slot(0), true))
	assert.Equal(t, int32(0), inventory.TransferItems(inv.Slot(0), nil, false))
	assert.False(t, inv.IsDirty())
}

func TestTransferItemsWholeStackMove(t *testing.T) {
	stone := mustGood(t, item.StoneGoodID)

	src := general("src", 1)
	dst := general("dst", 1)
	stack := worked(item.NewStack(stone, 7))
	stack.Attributes["pattern"] = map[string]interface{}{"rows": 3}
	src.Slot(0).SetStack(stack)

	moved := inventory.TransferItems(src.Slot(0), dst.Slot(0), true)

	assert.Equal(t, int32(7), moved)
	assert.True(t, src.Slot(0).Empty())
	require.False(t, dst.Slot(0).Empty())

	got := dst.Slot(0).Stack()
	assert.NotSame(t, stack, got, "в назначение кладётся копия")
	assert.Equal(t, int32(7), got.Quantity)
	assert.True(t, got.IsWorked())
	assert.Equal(t, map[string]interface{}{"rows": 3}, got.Attributes["pattern"])

	assert.Equal(t, []int{0}, src.DirtySlots())
	assert.Equal(t, []int{0}, dst.DirtySlots())
}

func TestTransferItemsPartialMerge(t *testing.T) {
	log := mustGood(t, item.LogGoodID) // вместимость 32

	src := general("src", 1)
	dst := general("dst", 1)
	src.Slot(0).SetStack(item.NewStack(log, 20))
	dst.Slot(0).SetStack(item.NewStack(log, 25))

	moved := inventory.TransferItems(src.Slot(0), dst.Slot(0), false)

	assert.Equal(t, int32(7), moved)
	assert.Equal(t, int32(32), dst.Slot(0).Quantity())
	assert.Equal(t, int32(13), src.Slot(0).Quantity())
}

func TestTransferItemsEmptiesSource(t *testing.T) {
	log := mustGood(t, item.LogGoodID)

	src := general("src", 1)
	dst := general("dst", 1)
	src.Slot(0).SetStack(item.NewStack(log, 5))
	dst.Slot(0).SetStack(item.NewStack(log, 5))

	inventory.TransferItems(src.Slot(0), dst.Slot(0), false)

	assert.True(t, src.Slot(0).Empty())
	assert.Nil(t, src.Slot(0).Stack(), "пустой слот не хранит стек с нулём")
	assert.Equal(t, int32(10), dst.Slot(0).Quantity())
}

func TestTransferItemsZeroAmountStillMarksDirty(t *testing.T) {
	stone := mustGood(t, item.StoneGoodID)

	src := general("src", 1)
	dst := general("dst", 1)
	src.Slot(0).SetStack(item.NewStack(stone, 10))
	dst.Slot(0).SetStack(item.NewStack(stone, 64))

	moved := inventory.TransferItems(src.Slot(0), dst.Slot(0), false)

	assert.Equal(t, int32(0), moved)
	assert.Equal(t, int32(10), src.Slot(0).Quantity())
	assert.Equal(t, int32(64), dst.Slot(0).Quantity())
	assert.True(t, src.IsDirty())
	assert.True(t, dst.IsDirty())
}

func TestTransferItemsEmptyDestinationWithoutPermission(t *testing.T) {
	stone := mustGood(t, item.StoneGoodID)

	src := general("src", 1)
	dst := general("dst", 1)
	src.Slot(0).SetStack(item.NewStack(stone, 10))

	moved := inventory.TransferItems(src.Slot(0), dst.Slot(0), false)

	assert.Equal(t, int32(0), moved)
	assert.Equal(t, int32(10), src.Slot(0).Quantity())
	assert.True(t, dst.Slot(0).Empty())
}

// hugeGood проверяет насыщение арифметики на границах int32
type hugeGood struct{}

func (hugeGood) ID() item.GoodID     { return 9000 }
func (hugeGood) Name() string        { return "huge" }
func (hugeGood) MaxStackSize() int32 { return math.MaxInt32 }
func (hugeGood) Equals(self, other *item.Stack) bool {
	return other != nil && other.Good != nil && other.Good.ID() == 9000
}

func TestTransferItemsSaturates(t *testing.T) {
	src := general("src", 1)
	dst := general("dst", 1)
	src.Slot(0).SetStack(&item.Stack{Good: hugeGood{}, Quantity: math.MaxInt32, Attributes: item.Attributes{}})
	dst.Slot(0).SetStack(&item.Stack{Good: hugeGood{}, Quantity: math.MaxInt32 - 5, Attributes: item.Attributes{}})

	moved := inventory.TransferItems(src.Slot(0), dst.Slot(0), false)

	assert.Equal(t, int32(5), moved)
	assert.Equal(t, int32(math.MaxInt32), dst.Slot(0).Quantity())
	assert.Equal(t, int32(math.MaxInt32-5), src.Slot(0).Quantity())
}

func TestTransferItemsOverfullDestination(t *testing.T) {
	stone := mustGood(t, item.StoneGoodID)

	src := general("src", 1)
	dst := general("dst", 1)
	src.Slot(0).SetStack(item.NewStack(stone, 3))
	dst.Slot(0).SetStack(item.NewStack(stone, 70)) // больше вместимости, например после смены правил

	moved := inventory.TransferItems(src.Slot(0), dst.Slot(0), false)

	assert.Equal(t, int32(0), moved)
	assert.Equal(t, int32(3), src.Slot(0).Quantity())
	assert.Equal(t, int32(70), dst.Slot(0).Quantity())
}

func TestDirtyListenerCalled(t *testing.T) {
	stone := mustGood(t, item.StoneGoodID)

	src := general("src", 1)
	dst := general("dst", 1)
	src.Slot(0).SetStack(item.NewStack(stone, 3))

	var calls []int
	dst.OnDirty(func(inv *inventory.Inventory, idx int) {
		assert.Same(t, dst, inv)
		calls = append(calls, idx)
	})

	inventory.TransferItems(src.Slot(0), dst.Slot(0), true)
	assert.Equal(t, []int{0}, calls)

	dst.ClearDirty()
	assert.False(t, dst.IsDirty())
}
