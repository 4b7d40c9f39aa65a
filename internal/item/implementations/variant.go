package implementations

import (
	"github.com/annel0/stackattack/internal/item"
)

// VariantGood - товар с вариантами материала (слитки, инструменты).
// Стеки одного ID стакаются только при совпадении тега материала;
// прочность и прочие атрибуты на сравнение не влияют.
type VariantGood struct {
	SimpleGood
}

// NewVariantGood создаёт товар с вариантами
func NewVariantGood(id item.GoodID, name string, maxStack int32) *VariantGood {
	return &VariantGood{SimpleGood: SimpleGood{id: id, name: name, maxStack: maxStack}}
}

// Equals сравнивает идентичность и материал
func (g *VariantGood) Equals(self, other *item.Stack) bool {
	if !sameIdentity(self, other) {
		return false
	}
	return materialOf(self) == materialOf(other)
}

func materialOf(s *item.Stack) string {
	material, _ := s.Attributes[item.AttrMaterial].(string)
	return material
}

// NewMaterialStack создаёт стек с тегом материала
func NewMaterialStack(good item.Good, quantity int32, material string) *item.Stack {
	stack := item.NewStack(good, quantity)
	stack.Attributes[item.AttrMaterial] = material
	return stack
}
