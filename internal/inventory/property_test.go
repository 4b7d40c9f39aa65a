package inventory_test

import (
	"fmt"
	"math/rand"
	"sort"
	"testing"

	"github.com/annel0/stackattack/internal/inventory"
	"github.com/annel0/stackattack/internal/item"
	"github.com/annel0/stackattack/internal/item/implementations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// randomInventory заполняет инвентарь случайными стеками, включая
// изменённые, портящиеся, варианты материалов и слоты под сумки
func randomInventory(t *testing.T, rng *rand.Rand, id string) *inventory.Inventory {
	size := 1 + rng.Intn(12)
	layout := make([]inventory.SlotKind, size)
	for i := range layout {
		if rng.Intn(6) == 0 {
			layout[i] = inventory.SlotBackpack
		}
	}
	inv := inventory.New(id, layout)

	simple := []item.GoodID{item.StoneGoodID, item.LogGoodID, item.ClayGoodID}
	materials := []string{"copper", "iron"}

	for _, s := range inv.Slots() {
		switch rng.Intn(6) {
		case 0:
			continue
		case 1:
			g := mustGood(t, item.IngotGoodID)
			q := 1 + rng.Int31n(g.MaxStackSize())
			s.SetStack(implementations.NewMaterialStack(g, q, materials[rng.Intn(len(materials))]))
		case 2:
			bread := mustGood(t, item.BreadGoodID).(*implementations.PerishableGood)
			s.SetStack(bread.NewFreshStack(1+rng.Int31n(bread.MaxStackSize()), fixedNow))
		default:
			g := mustGood(t, simple[rng.Intn(len(simple))])
			st := item.NewStack(g, 1+rng.Int31n(g.MaxStackSize()))
			if rng.Intn(5) == 0 {
				st.Attributes[item.AttrWorked] = true
			}
			s.SetStack(st)
		}
	}
	return inv
}

func totals(invs ...*inventory.Inventory) map[item.GoodID]int64 {
	out := make(map[item.GoodID]int64)
	for _, inv := range invs {
		for _, s := range inv.Slots() {
			if g := s.Good(); g != nil {
				out[g.ID()] += int64(s.Quantity())
			}
		}
	}
	return out
}

// lockedStacks описывает неделимые стеки: они могут только переезжать целиком
func lockedStacks(invs ...*inventory.Inventory) []string {
	var out []string
	for _, inv := range invs {
		for _, s := range inv.Slots() {
			if st := s.Stack(); st != nil && st.Locked() {
				out = append(out, fmt.Sprintf("%d/%d/%v", st.Good.ID(), st.Quantity, st.Attributes[item.AttrMaterial]))
			}
		}
	}
	sort.Strings(out)
	return out
}

func backpackContents(inv *inventory.Inventory) map[int]*item.Stack {
	out := make(map[int]*item.Stack)
	for _, s := range inv.Slots() {
		if s.IsBackpack() {
			out[s.Index()] = s.Stack()
		}
	}
	return out
}

func TestReconcileProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	kinds := []inventory.OperationKind{inventory.QuickStack, inventory.DepositAll, inventory.WithdrawAll}

	for i := 0; i < 500; i++ {
		player := randomInventory(t, rng, "player")
		chest := randomInventory(t, rng, "chest")
		kind := kinds[rng.Intn(len(kinds))]

		before := totals(player, chest)
		lockedBefore := lockedStacks(player, chest)
		bagsPlayer := backpackContents(player)
		bagsChest := backpackContents(chest)

		_, err := inventory.Apply(player, chest, kind)
		require.NoError(t, err)

		require.Equal(t, before, totals(player, chest), "сохранение количества, итерация %d (%s)", i, kind)
		require.Equal(t, lockedBefore, lockedStacks(player, chest), "неделимые стеки, итерация %d", i)

		for _, inv := range []*inventory.Inventory{player, chest} {
			for _, s := range inv.Slots() {
				if st := s.Stack(); st != nil && !s.IsBackpack() {
					require.LessOrEqual(t, st.Quantity, st.MaxStackSize(), "вместимость, итерация %d", i)
					require.Greater(t, st.Quantity, int32(0))
				}
			}
		}

		for idx, st := range bagsPlayer {
			assert.Same(t, st, player.Slot(idx).Stack())
			assert.NotContains(t, player.DirtySlots(), idx)
		}
		for idx, st := range bagsChest {
			assert.Same(t, st, chest.Slot(idx).Stack())
			assert.NotContains(t, chest.DirtySlots(), idx)
		}
	}
}
