package block

import (
	"sort"
	"strings"
)

var registry = make(map[BlockID]BlockBehavior)

// Register добавляет поведение блока в регистр
func Register(id BlockID, behavior BlockBehavior) {
	registry[id] = behavior
}

// Get возвращает поведение для указанного ID
func Get(id BlockID) (BlockBehavior, bool) {
	behavior, exists := registry[id]
	return behavior, exists
}

// IsValidBlockID проверяет, является ли ID допустимым идентификатором блока
func IsValidBlockID(id BlockID) bool {
	_, exists := registry[id]
	return exists
}

// Containers возвращает ID всех зарегистрированных блоков-контейнеров по возрастанию
func Containers() []BlockID {
	ids := make([]BlockID, 0)
	for id, behavior := range registry {
		if behavior.IsContainer() {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// BlockID представляет идентификатор блока
type BlockID uint16

// Константы ID блоков
const (
	// Базовые типы блоков
	AirBlockID   BlockID = iota // 0
	StoneBlockID                // 1

	// Контейнеры (начиная с 200)
	ChestBlockID    BlockID = 200 // Сундук
	BarrelBlockID   BlockID = 202 // Бочка
	CrateBlockID    BlockID = 203 // Ящик
	ToolRackBlockID BlockID = 204 // Стойка для инструментов, без инвентаря
)

// Lookup ищет блок по имени без учёта регистра
func Lookup(name string) (BlockID, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for id, behavior := range registry {
		if strings.ToLower(behavior.Name()) == name {
			return id, true
		}
	}
	return 0, false
}
