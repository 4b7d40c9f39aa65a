package world

import (
	"github.com/annel0/stackattack/internal/vec"
)

// EventType определяет тип события
type EventType uint8

const (
	EventTypeBlockSet     EventType = iota // Установка блока
	EventTypeBlockRemoved                  // Удаление блока
)

// String возвращает имя типа события
func (t EventType) String() string {
	switch t {
	case EventTypeBlockSet:
		return "BlockSet"
	case EventTypeBlockRemoved:
		return "BlockRemoved"
	default:
		return "Unknown"
	}
}

// BlockEvent представляет событие, связанное с блоком
type BlockEvent struct {
	EventType EventType
	Position  vec.Vec3 // Мировые координаты блока
	Block     Block    // Блок
}

// GetType возвращает тип события
func (e BlockEvent) GetType() EventType {
	return e.EventType
}
