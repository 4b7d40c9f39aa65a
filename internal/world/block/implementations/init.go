package implementations

import "github.com/annel0/stackattack/internal/world/block"

// Регистрируем все типы блоков при импорте пакета
func init() {
	// Базовые блоки
	block.Register(block.AirBlockID, &AirBehavior{})
	block.Register(block.StoneBlockID, &StoneBehavior{})

	// Контейнеры
	block.Register(block.ChestBlockID, &block.ContainerBehavior{BlockID: block.ChestBlockID, Title: "Chest", Slots: ChestSlots})
	block.Register(block.BarrelBlockID, &block.ContainerBehavior{BlockID: block.BarrelBlockID, Title: "Barrel", Slots: BarrelSlots})
	block.Register(block.CrateBlockID, &block.ContainerBehavior{BlockID: block.CrateBlockID, Title: "Crate", Slots: CrateSlots})
	block.Register(block.ToolRackBlockID, &ToolRackBehavior{})
}
