package implementations

import (
	"github.com/annel0/stackattack/internal/item"
)

// SimpleGood реализует товар без вариантов: стакается с любым стеком того же ID
type SimpleGood struct {
	id       item.GoodID
	name     string
	maxStack int32
}

// NewSimpleGood создаёт простой товар
func NewSimpleGood(id item.GoodID, name string, maxStack int32) *SimpleGood {
	return &SimpleGood{id: id, name: name, maxStack: maxStack}
}

// ID возвращает идентификатор товара
func (g *SimpleGood) ID() item.GoodID {
	return g.id
}

// Name возвращает имя товара
func (g *SimpleGood) Name() string {
	return g.name
}

// MaxStackSize возвращает максимальный размер стека
func (g *SimpleGood) MaxStackSize() int32 {
	return g.maxStack
}

// Equals сравнивает только идентичность товара
func (g *SimpleGood) Equals(self, other *item.Stack) bool {
	return sameIdentity(self, other)
}

func sameIdentity(self, other *item.Stack) bool {
	if self == nil || other == nil || self.Good == nil || other.Good == nil {
		return false
	}
	return self.Good.ID() == other.Good.ID()
}
