package vec

import (
	"fmt"
	"strconv"
	"strings"
)

// Vec3 представляет позицию блока в мире с целочисленными координатами
type Vec3 struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

// Equals проверяет равенство векторов
func (v Vec3) Equals(other Vec3) bool {
	return v.X == other.X && v.Y == other.Y && v.Z == other.Z
}

// Add складывает два вектора
func (v Vec3) Add(other Vec3) Vec3 {
	return Vec3{
		X: v.X + other.X,
		Y: v.Y + other.Y,
		Z: v.Z + other.Z,
	}
}

// Key возвращает строковый ключ позиции "x:y:z" для хранилищ
func (v Vec3) Key() string {
	return fmt.Sprintf("%d:%d:%d", v.X, v.Y, v.Z)
}

// String реализует fmt.Stringer
func (v Vec3) String() string {
	return fmt.Sprintf("(%d,%d,%d)", v.X, v.Y, v.Z)
}

// ParseVec3 разбирает позицию из строки вида "x,y,z" или "x:y:z"
func ParseVec3(s string) (Vec3, error) {
	sep := ","
	if strings.Contains(s, ":") {
		sep = ":"
	}

	parts := strings.Split(strings.TrimSpace(s), sep)
	if len(parts) != 3 {
		return Vec3{}, fmt.Errorf("неверный формат позиции %q: ожидается x,y,z", s)
	}

	var coords [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return Vec3{}, fmt.Errorf("неверная координата %q в позиции %q: %w", p, s, err)
		}
		coords[i] = n
	}

	return Vec3{X: coords[0], Y: coords[1], Z: coords[2]}, nil
}
