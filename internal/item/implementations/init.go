package implementations

import (
	"time"

	"github.com/annel0/stackattack/internal/item"
)

// Регистрируем все товары при импорте пакета
func init() {
	// Строительные материалы
	item.Register(item.StoneGoodID, NewSimpleGood(item.StoneGoodID, "Stone", 64))
	item.Register(item.CobblestoneGoodID, NewSimpleGood(item.CobblestoneGoodID, "Cobblestone", 64))
	item.Register(item.LogGoodID, NewSimpleGood(item.LogGoodID, "Log", 32))
	item.Register(item.PlanksGoodID, NewSimpleGood(item.PlanksGoodID, "Planks", 64))
	item.Register(item.ClayGoodID, NewSimpleGood(item.ClayGoodID, "Clay", 64))
	item.Register(item.FlintGoodID, NewSimpleGood(item.FlintGoodID, "Flint", 64))

	// Материалы с вариантами
	item.Register(item.IngotGoodID, NewVariantGood(item.IngotGoodID, "Ingot", 16))
	item.Register(item.NuggetGoodID, NewVariantGood(item.NuggetGoodID, "Nugget", 64))

	// Инструменты не стакаются
	item.Register(item.PickaxeGoodID, NewVariantGood(item.PickaxeGoodID, "Pickaxe", 1))
	item.Register(item.KnifeGoodID, NewVariantGood(item.KnifeGoodID, "Knife", 1))

	// Еда
	item.Register(item.BreadGoodID, NewPerishableGood(item.BreadGoodID, "Bread", 32, 72*time.Hour))
	item.Register(item.RedMeatGoodID, NewPerishableGood(item.RedMeatGoodID, "Red meat", 32, 24*time.Hour))

	item.Register(item.BackpackGoodID, NewSimpleGood(item.BackpackGoodID, "Backpack", 1))
}
