package item

import (
	"fmt"
	"sort"
)

var registry = make(map[GoodID]Good)

// Register добавляет товар в регистр
func Register(id GoodID, good Good) {
	registry[id] = good
}

// Get возвращает товар для указанного ID
func Get(id GoodID) (Good, bool) {
	good, exists := registry[id]
	return good, exists
}

// MustGet возвращает товар или паникует, если ID не зарегистрирован
func MustGet(id GoodID) Good {
	good, exists := registry[id]
	if !exists {
		panic(fmt.Sprintf("товар %d не зарегистрирован", id))
	}
	return good
}

// IsValidGoodID проверяет, зарегистрирован ли товар
func IsValidGoodID(id GoodID) bool {
	_, exists := registry[id]
	return exists
}

// All возвращает все зарегистрированные товары, упорядоченные по ID
func All() []Good {
	goods := make([]Good, 0, len(registry))
	for _, g := range registry {
		goods = append(goods, g)
	}
	sort.Slice(goods, func(i, j int) bool { return goods[i].ID() < goods[j].ID() })
	return goods
}

// GoodID представляет идентификатор типа предмета или блока
type GoodID uint16

// Константы ID товаров
const (
	// Сыпучие и строительные материалы (1..99)
	StoneGoodID       GoodID = 1
	CobblestoneGoodID GoodID = 2
	LogGoodID         GoodID = 3
	PlanksGoodID      GoodID = 4
	ClayGoodID        GoodID = 5
	FlintGoodID       GoodID = 6

	// Материалы с вариантом (начиная с 100): стакаются только при совпадении материала
	IngotGoodID  GoodID = 100
	NuggetGoodID GoodID = 101

	// Инструменты (начиная с 200)
	PickaxeGoodID GoodID = 200
	KnifeGoodID   GoodID = 201

	// Еда, портится со временем (начиная с 300)
	BreadGoodID   GoodID = 300
	RedMeatGoodID GoodID = 301

	// Сумки (начиная с 400)
	BackpackGoodID GoodID = 400
)
