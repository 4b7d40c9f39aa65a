package implementations

import (
	"github.com/annel0/stackattack/internal/inventory"
	"github.com/annel0/stackattack/internal/world/block"
)

// Размеры инвентарей контейнеров
const (
	ChestSlots  = 16
	BarrelSlots = 4
	CrateSlots  = 36
)

// ToolRackBehavior - контейнерный блок, у которого нет собственного инвентаря.
// Инструменты висят на стойке как метаданные блока.
type ToolRackBehavior struct{}

func (b *ToolRackBehavior) ID() block.BlockID {
	return block.ToolRackBlockID
}

func (b *ToolRackBehavior) Name() string {
	return "Tool Rack"
}

func (b *ToolRackBehavior) IsContainer() bool {
	return true
}

func (b *ToolRackBehavior) InventoryLayout() []inventory.SlotKind {
	return nil
}

func (b *ToolRackBehavior) CreateMetadata() block.Metadata {
	return block.Metadata{"tools": []interface{}{}}
}
