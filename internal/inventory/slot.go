package inventory

import (
	"github.com/annel0/stackattack/internal/item"
)

// SlotKind определяет вид слота
type SlotKind uint8

const (
	SlotGeneral  SlotKind = iota // Обычный слот
	SlotBackpack                 // Слот под сумку: в массовом переносе не участвует
)

// String возвращает имя вида слота
func (k SlotKind) String() string {
	switch k {
	case SlotGeneral:
		return "general"
	case SlotBackpack:
		return "backpack"
	default:
		return "unknown"
	}
}

// Slot - ячейка инвентаря. Содержит не более одного стека.
// Все изменения идут через методы слота, чтобы владелец инвентаря видел их через MarkDirty.
type Slot struct {
	inv   *Inventory
	index int
	kind  SlotKind
	stack *item.Stack
}

// Index возвращает индекс слота в инвентаре
func (s *Slot) Index() int {
	return s.index
}

// Kind возвращает вид слота
func (s *Slot) Kind() SlotKind {
	return s.kind
}

// IsBackpack сообщает, является ли слот слотом под сумку
func (s *Slot) IsBackpack() bool {
	return s.kind == SlotBackpack
}

// Empty возвращает true, если в слоте нет стека
func (s *Slot) Empty() bool {
	return s.stack == nil || s.stack.Quantity <= 0
}

// Stack возвращает стек слота (nil для пустого)
func (s *Slot) Stack() *item.Stack {
	if s.Empty() {
		return nil
	}
	return s.stack
}

// Good возвращает товар в слоте (nil для пустого)
func (s *Slot) Good() item.Good {
	if s.Empty() {
		return nil
	}
	return s.stack.Good
}

// Quantity возвращает количество в слоте
func (s *Slot) Quantity() int32 {
	if s.Empty() {
		return 0
	}
	return s.stack.Quantity
}

// SetStack кладёт стек в слот. Стек с нулевым количеством очищает слот.
func (s *Slot) SetStack(stack *item.Stack) {
	if stack == nil || stack.Quantity <= 0 {
		s.stack = nil
		return
	}
	s.stack = stack
}

// Clear очищает слот
func (s *Slot) Clear() {
	s.stack = nil
}

// MarkDirty сообщает владельцу инвентаря, что слот нужно сохранить и разослать
func (s *Slot) MarkDirty() {
	if s.inv != nil {
		s.inv.markDirty(s.index)
	}
}

// setQuantity меняет количество; ноль или меньше очищает слот
func (s *Slot) setQuantity(quantity int32) {
	if s.stack == nil {
		return
	}
	if quantity <= 0 {
		s.stack = nil
		return
	}
	s.stack.Quantity = quantity
}
