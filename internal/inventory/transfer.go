package inventory

import (
	"github.com/annel0/stackattack/internal/item"
)

// TransferItems переносит предметы из слота from в слот to и возвращает перенесённое количество.
//
// Если allowEmptyDestination == true и to пуст, в to переезжает копия всего стека
// from вместе с атрибутами, а from очищается. Иначе выполняется частичное слияние:
// вместимость берётся из товара, уже лежащего в to. Совместимость товаров здесь
// не проверяется, это задача вызывающего.
//
// Оба слота помечаются изменёнными при любом исходе, кроме отсутствующего слота.
func TransferItems(from, to *Slot, allowEmptyDestination bool) int32 {
	if from == nil || to == nil {
		return 0
	}
	defer func() {
		from.MarkDirty()
		to.MarkDirty()
	}()

	if from.Empty() {
		return 0
	}

	if allowEmptyDestination && to.Empty() {
		moved := from.stack.Quantity
		to.SetStack(from.stack.Clone())
		from.Clear()
		return moved
	}

	if to.Empty() {
		// Без товара в to неизвестна вместимость
		return 0
	}

	room := to.stack.MaxStackSize() - to.stack.Quantity
	if room <= 0 {
		return 0
	}

	amount := from.stack.Quantity
	if amount > room {
		amount = room
	}

	to.stack.Quantity = item.AddSaturating(to.stack.Quantity, amount)
	from.setQuantity(from.stack.Quantity - amount)
	return amount
}
