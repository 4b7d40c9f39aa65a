package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// MessageType - тип кадра
type MessageType uint16

const (
	MsgAuth        MessageType = 1 // Клиент -> Сервер: JWT-токен
	MsgInventoryOp MessageType = 2 // Клиент -> Сервер: Request
	MsgPing        MessageType = 3 // Клиент -> Сервер: проверка соединения
	MsgPong        MessageType = 4 // Сервер -> Клиент: ответ на MsgPing
)

// String возвращает имя типа кадра
func (t MessageType) String() string {
	switch t {
	case MsgAuth:
		return "AUTH"
	case MsgInventoryOp:
		return "INVENTORY_OP"
	case MsgPing:
		return "PING"
	case MsgPong:
		return "PONG"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", uint16(t))
	}
}

const (
	// HeaderSize - 4 байта длины полезной нагрузки (big-endian) + 2 байта типа
	HeaderSize = 6
	// MaxFrameSize - максимальный размер полезной нагрузки кадра
	MaxFrameSize = 1 << 20
)

// ErrFrameTooLarge возвращается для кадров больше MaxFrameSize
var ErrFrameTooLarge = errors.New("слишком большой кадр")

// WriteFrame записывает кадр одной операцией Write
func WriteFrame(w io.Writer, t MessageType, payload []byte) error {
	if len(payload) > MaxFrameSize {
		return fmt.Errorf("%w: %d байт", ErrFrameTooLarge, len(payload))
	}

	buf := make([]byte, HeaderSize+len(payload))
	binary.BigEndian.PutUint32(buf[0:4], uint32(len(payload)))
	binary.BigEndian.PutUint16(buf[4:6], uint16(t))
	copy(buf[HeaderSize:], payload)

	_, err := w.Write(buf)
	return err
}

// ReadFrame читает один кадр
func ReadFrame(r io.Reader) (MessageType, []byte, error) {
	var header [HeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return 0, nil, err
	}

	size := binary.BigEndian.Uint32(header[0:4])
	t := MessageType(binary.BigEndian.Uint16(header[4:6]))
	if size > MaxFrameSize {
		return t, nil, fmt.Errorf("%w: %d байт", ErrFrameTooLarge, size)
	}

	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		return t, nil, fmt.Errorf("ошибка чтения тела кадра: %w", err)
	}
	return t, payload, nil
}
