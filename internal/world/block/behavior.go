package block

import "github.com/annel0/stackattack/internal/inventory"

type Metadata map[string]interface{}

// BlockBehavior определяет поведение блока
type BlockBehavior interface {
	ID() BlockID
	Name() string
	// IsContainer сообщает, что у блока есть сущность-контейнер
	IsContainer() bool
	// InventoryLayout возвращает раскладку слотов инвентаря; nil - инвентаря нет
	InventoryLayout() []inventory.SlotKind
	CreateMetadata() Metadata
}

// ContainerBehavior - общее поведение блоков-контейнеров с инвентарём фиксированного размера
type ContainerBehavior struct {
	BlockID BlockID
	Title   string
	Slots   int
}

func (b *ContainerBehavior) ID() BlockID {
	return b.BlockID
}

func (b *ContainerBehavior) Name() string {
	return b.Title
}

func (b *ContainerBehavior) IsContainer() bool {
	return true
}

func (b *ContainerBehavior) InventoryLayout() []inventory.SlotKind {
	if b.Slots <= 0 {
		return nil
	}
	return inventory.GeneralLayout(b.Slots)
}

func (b *ContainerBehavior) CreateMetadata() Metadata {
	return Metadata{"label": ""}
}
