package implementations

import (
	"time"

	"github.com/annel0/stackattack/internal/item"
)

// PerishableGood - товар, который портится. Свежий стек получает состояние
// перехода, поэтому такие стеки не сливаются при переносе.
type PerishableGood struct {
	SimpleGood
	freshFor time.Duration
}

// NewPerishableGood создаёт портящийся товар
func NewPerishableGood(id item.GoodID, name string, maxStack int32, freshFor time.Duration) *PerishableGood {
	return &PerishableGood{
		SimpleGood: SimpleGood{id: id, name: name, maxStack: maxStack},
		freshFor:   freshFor,
	}
}

// FreshFor возвращает срок свежести
func (g *PerishableGood) FreshFor() time.Duration {
	return g.freshFor
}

// NewFreshStack создаёт стек с запущенным таймером порчи
func (g *PerishableGood) NewFreshStack(quantity int32, now time.Time) *item.Stack {
	stack := item.NewStack(g, quantity)
	stack.Attributes[item.AttrTransitionState] = map[string]interface{}{
		"created_at": now.Unix(),
		"fresh_for":  int64(g.freshFor / time.Second),
	}
	return stack
}
