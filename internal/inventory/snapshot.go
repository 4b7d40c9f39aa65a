package inventory

import (
	"fmt"

	"github.com/annel0/stackattack/internal/item"
)

// SlotSnapshot - сериализуемое состояние слота
type SlotSnapshot struct {
	Index      int                    `json:"index"`
	Kind       SlotKind               `json:"kind"`
	Good       item.GoodID            `json:"good,omitempty"`
	Quantity   int32                  `json:"qty,omitempty"`
	Attributes map[string]interface{} `json:"attrs,omitempty"`
}

// Snapshot - сериализуемое состояние инвентаря
type Snapshot struct {
	ID    string         `json:"id"`
	Slots []SlotSnapshot `json:"slots"`
}

// Snapshot снимает копию состояния инвентаря
func (inv *Inventory) Snapshot() *Snapshot {
	snap := &Snapshot{
		ID:    inv.id,
		Slots: make([]SlotSnapshot, len(inv.slots)),
	}
	for i, s := range inv.slots {
		ss := SlotSnapshot{Index: i, Kind: s.kind}
		if !s.Empty() {
			ss.Good = s.stack.Good.ID()
			ss.Quantity = s.stack.Quantity
			ss.Attributes = s.stack.Attributes.Clone()
		}
		snap.Slots[i] = ss
	}
	return snap
}

// Restore восстанавливает инвентарь из снимка, разрешая товары через регистр
func Restore(snap *Snapshot) (*Inventory, error) {
	if snap == nil {
		return nil, fmt.Errorf("пустой снимок инвентаря")
	}

	layout := make([]SlotKind, len(snap.Slots))
	for i, ss := range snap.Slots {
		if ss.Index != i {
			return nil, fmt.Errorf("снимок %s: слот %d на позиции %d", snap.ID, ss.Index, i)
		}
		layout[i] = ss.Kind
	}

	inv := New(snap.ID, layout)
	for i, ss := range snap.Slots {
		if ss.Quantity <= 0 {
			continue
		}
		good, ok := item.Get(ss.Good)
		if !ok {
			return nil, fmt.Errorf("снимок %s: неизвестный товар %d в слоте %d", snap.ID, ss.Good, i)
		}
		inv.slots[i].stack = &item.Stack{
			Good:       good,
			Quantity:   ss.Quantity,
			Attributes: item.Attributes(ss.Attributes).Clone(),
		}
		if inv.slots[i].stack.Attributes == nil {
			inv.slots[i].stack.Attributes = item.Attributes{}
		}
	}
	return inv, nil
}
