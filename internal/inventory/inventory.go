package inventory

import (
	"sort"

	"github.com/annel0/stackattack/internal/item"
)

// DirtyListener вызывается при каждой пометке слота как изменённого
type DirtyListener func(inv *Inventory, slotIndex int)

// Inventory - упорядоченный набор слотов, принадлежащий миру (сундук, игрок).
// Инвентарь не потокобезопасен: эксклюзивный доступ обеспечивает владелец.
type Inventory struct {
	id        string
	slots     []*Slot
	dirty     map[int]struct{}
	listeners []DirtyListener
}

// New создаёт инвентарь с указанной раскладкой видов слотов
func New(id string, layout []SlotKind) *Inventory {
	inv := &Inventory{
		id:    id,
		slots: make([]*Slot, len(layout)),
		dirty: make(map[int]struct{}),
	}
	for i, kind := range layout {
		inv.slots[i] = &Slot{inv: inv, index: i, kind: kind}
	}
	return inv
}

// GeneralLayout возвращает раскладку из n обычных слотов
func GeneralLayout(n int) []SlotKind {
	return make([]SlotKind, n)
}

// PlayerLayout возвращает раскладку инвентаря игрока:
// сначала слоты под сумки, затем слоты содержимого
func PlayerLayout(bagSlots, contentSlots int) []SlotKind {
	layout := make([]SlotKind, 0, bagSlots+contentSlots)
	for i := 0; i < bagSlots; i++ {
		layout = append(layout, SlotBackpack)
	}
	for i := 0; i < contentSlots; i++ {
		layout = append(layout, SlotGeneral)
	}
	return layout
}

// ID возвращает идентификатор инвентаря
func (inv *Inventory) ID() string {
	return inv.id
}

// Len возвращает количество слотов
func (inv *Inventory) Len() int {
	return len(inv.slots)
}

// Slot возвращает слот по индексу или nil
func (inv *Inventory) Slot(index int) *Slot {
	if index < 0 || index >= len(inv.slots) {
		return nil
	}
	return inv.slots[index]
}

// Slots возвращает слоты в порядке индексов
func (inv *Inventory) Slots() []*Slot {
	out := make([]*Slot, len(inv.slots))
	copy(out, inv.slots)
	return out
}

// OnDirty регистрирует слушателя изменений
func (inv *Inventory) OnDirty(listener DirtyListener) {
	inv.listeners = append(inv.listeners, listener)
}

func (inv *Inventory) markDirty(index int) {
	inv.dirty[index] = struct{}{}
	for _, l := range inv.listeners {
		l(inv, index)
	}
}

// IsDirty сообщает, есть ли несохранённые изменения
func (inv *Inventory) IsDirty() bool {
	return len(inv.dirty) > 0
}

// DirtySlots возвращает отсортированные индексы изменённых слотов
func (inv *Inventory) DirtySlots() []int {
	out := make([]int, 0, len(inv.dirty))
	for idx := range inv.dirty {
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}

// ClearDirty сбрасывает пометки изменений
func (inv *Inventory) ClearDirty() {
	inv.dirty = make(map[int]struct{})
}

// Total возвращает суммарное количество товара во всех слотах, включая слоты сумок
func (inv *Inventory) Total(id item.GoodID) int64 {
	var total int64
	for _, s := range inv.slots {
		if g := s.Good(); g != nil && g.ID() == id {
			total += int64(s.Quantity())
		}
	}
	return total
}

// FirstEmpty возвращает первый пустой слот, доступный для переноса, или nil
func (inv *Inventory) FirstEmpty() *Slot {
	for _, s := range inv.slots {
		if !s.IsBackpack() && s.Empty() {
			return s
		}
	}
	return nil
}
