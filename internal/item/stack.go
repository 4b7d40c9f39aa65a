package item

import "math"

// Ключи атрибутов стека, которые понимает перенос
const (
	AttrWorked          = "worked"          // bool: стек изменён игроком (выкованный инструмент, резьба)
	AttrTransitionState = "transitionstate" // состояние порчи/созревания
	AttrMaterial        = "material"        // вариант материала (медь, железо...)
)

// Good описывает тип предмета или блока.
type Good interface {
	ID() GoodID
	Name() string
	MaxStackSize() int32
	// Equals сообщает, можно ли стакать other со стеком self этого товара.
	// Сравнение всегда идёт со стороны self: реализация other не вызывается.
	Equals(self, other *Stack) bool
}

// Attributes хранит изменяемые атрибуты конкретного стека
type Attributes map[string]interface{}

// IsWorked возвращает true, если стек был изменён игроком
func (a Attributes) IsWorked() bool {
	worked, ok := a[AttrWorked].(bool)
	return ok && worked
}

// IsTransitional возвращает true, если стек находится в процессе порчи/созревания
func (a Attributes) IsTransitional() bool {
	state, ok := a[AttrTransitionState]
	return ok && state != nil
}

// Clone создаёт глубокую копию атрибутов
func (a Attributes) Clone() Attributes {
	if a == nil {
		return nil
	}
	out := make(Attributes, len(a))
	for k, v := range a {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		m := make(map[string]interface{}, len(t))
		for k, vv := range t {
			m[k] = cloneValue(vv)
		}
		return m
	case Attributes:
		return t.Clone()
	case []interface{}:
		s := make([]interface{}, len(t))
		for i, vv := range t {
			s[i] = cloneValue(vv)
		}
		return s
	default:
		return v
	}
}

// Stack представляет количество одного товара с атрибутами экземпляра
type Stack struct {
	Good       Good
	Quantity   int32
	Attributes Attributes
}

// NewStack создаёт стек с пустыми атрибутами
func NewStack(good Good, quantity int32) *Stack {
	return &Stack{
		Good:       good,
		Quantity:   quantity,
		Attributes: Attributes{},
	}
}

// Clone создаёт полную копию стека, включая атрибуты
func (s *Stack) Clone() *Stack {
	if s == nil {
		return nil
	}
	return &Stack{
		Good:       s.Good,
		Quantity:   s.Quantity,
		Attributes: s.Attributes.Clone(),
	}
}

// IsWorked сообщает, помечен ли стек как изменённый игроком
func (s *Stack) IsWorked() bool {
	return s != nil && s.Attributes.IsWorked()
}

// IsTransitional сообщает, идёт ли у стека порча/созревание
func (s *Stack) IsTransitional() bool {
	return s != nil && s.Attributes.IsTransitional()
}

// Locked возвращает true для стеков, которые нельзя сливать или делить
func (s *Stack) Locked() bool {
	return s.IsWorked() || s.IsTransitional()
}

// MaxStackSize возвращает вместимость слота для товара этого стека
func (s *Stack) MaxStackSize() int32 {
	if s == nil || s.Good == nil {
		return 0
	}
	return s.Good.MaxStackSize()
}

// Matches проверяет, можно ли слить стек from в стек to.
// Правило несимметрично: используется Equals товара источника.
func Matches(from, to *Stack) bool {
	if from == nil || to == nil || from.Good == nil || to.Good == nil {
		return false
	}
	return from.Good.Equals(from, to)
}

// AddSaturating складывает количества без переполнения int32 и без ухода в минус
func AddSaturating(a, b int32) int32 {
	sum := int64(a) + int64(b)
	switch {
	case sum > math.MaxInt32:
		return math.MaxInt32
	case sum < 0:
		return 0
	default:
		return int32(sum)
	}
}
