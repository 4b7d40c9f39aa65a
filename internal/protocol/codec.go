package protocol

import (
	"errors"
	"fmt"
	"math"

	"github.com/annel0/stackattack/internal/inventory"
	"github.com/annel0/stackattack/internal/vec"
	"google.golang.org/protobuf/encoding/protowire"
)

// Номера полей сообщения Request
const (
	fieldKind      protowire.Number = 1 // varint
	fieldPositions protowire.Number = 2 // repeated BlockPos
)

// kindOutOfRange - вид операции для значений вне int32; движок отклоняет его как неизвестный
const kindOutOfRange = inventory.OperationKind(math.MinInt32)

// Номера полей сообщения BlockPos (sint32)
const (
	fieldX protowire.Number = 1
	fieldY protowire.Number = 2
	fieldZ protowire.Number = 3
)

// ErrMalformed возвращается при разборе повреждённого сообщения
var ErrMalformed = errors.New("повреждённое сообщение")

// Request - запрос клиента на массовый перенос предметов.
// Positions - открытые контейнеры в порядке открытия.
type Request struct {
	Kind      inventory.OperationKind
	Positions []vec.Vec3
}

// MarshalRequest кодирует запрос в protobuf-совместимый формат
func MarshalRequest(req Request) ([]byte, error) {
	var b []byte
	b = protowire.AppendTag(b, fieldKind, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(req.Kind))

	for _, pos := range req.Positions {
		if !fitsInt32(pos) {
			return nil, fmt.Errorf("координаты %s вне диапазона int32", pos)
		}
		b = protowire.AppendTag(b, fieldPositions, protowire.BytesType)
		b = protowire.AppendBytes(b, marshalBlockPos(pos))
	}
	return b, nil
}

func marshalBlockPos(pos vec.Vec3) []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldX, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeZigZag(int64(pos.X)))
	b = protowire.AppendTag(b, fieldY, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeZigZag(int64(pos.Y)))
	b = protowire.AppendTag(b, fieldZ, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeZigZag(int64(pos.Z)))
	return b
}

func fitsInt32(pos vec.Vec3) bool {
	for _, c := range []int{pos.X, pos.Y, pos.Z} {
		if c < math.MinInt32 || c > math.MaxInt32 {
			return false
		}
	}
	return true
}

// UnmarshalRequest разбирает запрос. Неизвестные поля пропускаются.
// Вид операции не проверяется: неизвестный вид отклоняет движок.
func UnmarshalRequest(b []byte) (Request, error) {
	var req Request

	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return Request{}, fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case num == fieldKind && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return Request{}, fmt.Errorf("%w: kind: %v", ErrMalformed, protowire.ParseError(n))
			}
			req.Kind = decodeKind(v)
			b = b[n:]

		case num == fieldPositions && typ == protowire.BytesType:
			raw, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return Request{}, fmt.Errorf("%w: position: %v", ErrMalformed, protowire.ParseError(n))
			}
			pos, err := unmarshalBlockPos(raw)
			if err != nil {
				return Request{}, err
			}
			req.Positions = append(req.Positions, pos)
			b = b[n:]

		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return Request{}, fmt.Errorf("%w: field %d: %v", ErrMalformed, num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return req, nil
}

func unmarshalBlockPos(b []byte) (vec.Vec3, error) {
	var pos vec.Vec3

	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return vec.Vec3{}, fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
		}
		b = b[n:]

		if typ != protowire.VarintType || num < fieldX || num > fieldZ {
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return vec.Vec3{}, fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
			}
			b = b[n:]
			continue
		}

		v, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return vec.Vec3{}, fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
		}
		b = b[n:]

		c := int(int32(protowire.DecodeZigZag(v)))
		switch num {
		case fieldX:
			pos.X = c
		case fieldY:
			pos.Y = c
		case fieldZ:
			pos.Z = c
		}
	}
	return pos, nil
}

// decodeKind читает вид операции как int32 (отрицательные приходят расширенными до 64 бит).
// Значения вне диапазона не усекаются, а становятся kindOutOfRange.
func decodeKind(v uint64) inventory.OperationKind {
	x := int64(v)
	if x < math.MinInt32 || x > math.MaxInt32 {
		return kindOutOfRange
	}
	return inventory.OperationKind(x)
}
