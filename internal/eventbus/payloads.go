package eventbus

import "github.com/annel0/stackattack/internal/vec"

// TransferApplied - итог операции над одним контейнером
type TransferApplied struct {
	PlayerID  uint64   `json:"player_id"`
	Operation string   `json:"operation"`
	Container vec.Vec3 `json:"container"`
	Merged    int64    `json:"merged"`
	Relocated int64    `json:"relocated"`
	Stacks    int      `json:"stacks"`
}

// InventoryChanged сообщает, какие слоты инвентаря изменились и сохранены
type InventoryChanged struct {
	InventoryID string `json:"inventory_id"`
	Slots       []int  `json:"slots"`
}

// BlockChanged - установка или удаление блока
type BlockChanged struct {
	Position vec.Vec3 `json:"position"`
	BlockID  uint16   `json:"block_id"`
	Name     string   `json:"name"`
}
