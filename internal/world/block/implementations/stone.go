package implementations

import (
	"github.com/annel0/stackattack/internal/inventory"
	"github.com/annel0/stackattack/internal/world/block"
)

// StoneBehavior реализует поведение блока камня
type StoneBehavior struct{}

// ID возвращает идентификатор блока
func (b *StoneBehavior) ID() block.BlockID {
	return block.StoneBlockID
}

// Name возвращает имя блока
func (b *StoneBehavior) Name() string {
	return "Stone"
}

// IsContainer возвращает false, камень не хранит предметы
func (b *StoneBehavior) IsContainer() bool {
	return false
}

func (b *StoneBehavior) InventoryLayout() []inventory.SlotKind {
	return nil
}

// CreateMetadata создает начальные метаданные для блока
func (b *StoneBehavior) CreateMetadata() block.Metadata {
	return block.Metadata{
		"hardness": 10,
	}
}
