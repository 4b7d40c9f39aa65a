package network

import (
	"context"
	"fmt"
	"net"
	"strings"

	"github.com/xtaci/kcp-go/v5"
)

// Transport - транспорт игрового соединения
type Transport string

const (
	TransportTCP Transport = "tcp"
	TransportKCP Transport = "kcp"
)

// ParseTransport разбирает имя транспорта, пустое имя означает TCP
func ParseTransport(s string) (Transport, error) {
	switch Transport(strings.ToLower(strings.TrimSpace(s))) {
	case "", TransportTCP:
		return TransportTCP, nil
	case TransportKCP:
		return TransportKCP, nil
	default:
		return "", fmt.Errorf("неизвестный транспорт: %q", s)
	}
}

// Listen открывает слушатель выбранного транспорта
func Listen(transport Transport, addr string) (net.Listener, error) {
	switch transport {
	case TransportTCP, "":
		return net.Listen("tcp", addr)
	case TransportKCP:
		// Без FEC: обе стороны должны использовать одинаковые параметры
		listener, err := kcp.ListenWithOptions(addr, nil, 0, 0)
		if err != nil {
			return nil, err
		}
		return &kcpListener{Listener: listener}, nil
	default:
		return nil, fmt.Errorf("неизвестный транспорт: %q", transport)
	}
}

// Dial подключается к серверу выбранным транспортом
func Dial(ctx context.Context, transport Transport, addr string) (net.Conn, error) {
	switch transport {
	case TransportTCP, "":
		var d net.Dialer
		return d.DialContext(ctx, "tcp", addr)
	case TransportKCP:
		// KCP не выполняет рукопожатие: сессия готова сразу
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sess, err := kcp.DialWithOptions(addr, nil, 0, 0)
		if err != nil {
			return nil, err
		}
		tuneKCP(sess)
		return sess, nil
	default:
		return nil, fmt.Errorf("неизвестный транспорт: %q", transport)
	}
}

// kcpListener настраивает каждую принятую KCP-сессию
type kcpListener struct {
	*kcp.Listener
}

func (l *kcpListener) Accept() (net.Conn, error) {
	sess, err := l.AcceptKCP()
	if err != nil {
		return nil, err
	}
	tuneKCP(sess)
	return sess, nil
}

// tuneKCP применяет параметры для игрового трафика
func tuneKCP(sess *kcp.UDPSession) {
	sess.SetStreamMode(true)
	sess.SetWriteDelay(false)
	sess.SetNoDelay(1, 20, 2, 1)
	sess.SetWindowSize(512, 512)
	sess.SetMtu(1400)
}
