package inventory

import (
	"github.com/annel0/stackattack/internal/item"
)

// Summary описывает результат одного Reconcile
type Summary struct {
	Merged    int64 // Количество, слитое в существующие стеки назначения
	Relocated int64 // Количество, перенесённое целыми стеками в пустые слоты
	Stacks    int   // Сколько стеков переехало целиком
	Remaining int   // Сколько непустых слотов источника осталось после переноса
}

// Moved возвращает общее перенесённое количество
func (s Summary) Moved() int64 {
	return s.Merged + s.Relocated
}

// Add суммирует результаты нескольких переносов
func (s Summary) Add(other Summary) Summary {
	return Summary{
		Merged:    s.Merged + other.Merged,
		Relocated: s.Relocated + other.Relocated,
		Stacks:    s.Stacks + other.Stacks,
		Remaining: s.Remaining + other.Remaining,
	}
}

// Reconcile переносит предметы из source в destination.
//
// Для каждого непустого слота источника (по порядку индексов) сначала идёт
// слияние в совпадающие стеки назначения, затем остаток целиком переезжает в
// первый пустой слот назначения. Без moveAll остаток переезжает только если
// такой товар уже был в destination на момент начала переноса.
// Слоты под сумки пропускаются с обеих сторон. Изменённые или портящиеся
// стеки никогда не сливаются и не делятся.
func Reconcile(source, destination *Inventory, moveAll bool) Summary {
	var sum Summary
	if source == nil || destination == nil || source == destination {
		return sum
	}

	var acceptable map[item.GoodID]struct{}
	if !moveAll {
		acceptable = presentGoods(destination)
	}

	for _, src := range source.slots {
		if src.Empty() || src.IsBackpack() {
			continue
		}

		sum.Merged += int64(mergeInto(src, destination))

		if !src.Empty() && (moveAll || accepts(acceptable, src.stack.Good)) {
			if dst := destination.FirstEmpty(); dst != nil {
				sum.Relocated += int64(TransferItems(src, dst, true))
				sum.Stacks++
			}
		}

		if !src.Empty() {
			sum.Remaining++
		}
	}

	return sum
}

// mergeInto сливает стек src в совпадающие стеки destination и возвращает перенесённое количество
func mergeInto(src *Slot, destination *Inventory) int32 {
	if src.stack.Locked() {
		return 0
	}

	var moved int32
	for _, dst := range destination.slots {
		if dst.IsBackpack() || dst.Empty() {
			continue
		}
		if dst.stack.Locked() || !item.Matches(src.stack, dst.stack) {
			continue
		}

		moved += TransferItems(src, dst, false)
		if src.Empty() {
			break
		}
	}
	return moved
}

// presentGoods собирает товары, уже лежащие в инвентаре (без слотов сумок)
func presentGoods(inv *Inventory) map[item.GoodID]struct{} {
	goods := make(map[item.GoodID]struct{})
	for _, s := range inv.slots {
		if s.IsBackpack() || s.Empty() || s.stack.Good == nil {
			continue
		}
		goods[s.stack.Good.ID()] = struct{}{}
	}
	return goods
}

func accepts(acceptable map[item.GoodID]struct{}, good item.Good) bool {
	if good == nil {
		return false
	}
	_, ok := acceptable[good.ID()]
	return ok
}
