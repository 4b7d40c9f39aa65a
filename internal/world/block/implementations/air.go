package implementations

import (
	"github.com/annel0/stackattack/internal/inventory"
	"github.com/annel0/stackattack/internal/world/block"
)

// AirBehavior реализует поведение пустого блока (воздуха)
type AirBehavior struct{}

// ID возвращает идентификатор блока
func (b *AirBehavior) ID() block.BlockID {
	return block.AirBlockID
}

// Name возвращает имя блока
func (b *AirBehavior) Name() string {
	return "Air"
}

func (b *AirBehavior) IsContainer() bool {
	return false
}

func (b *AirBehavior) InventoryLayout() []inventory.SlotKind {
	return nil
}

// CreateMetadata создает пустые метаданные
func (b *AirBehavior) CreateMetadata() block.Metadata {
	return block.Metadata{}
}
