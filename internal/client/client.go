package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/annel0/stackattack/internal/inventory"
	"github.com/annel0/stackattack/internal/logging"
	"github.com/annel0/stackattack/internal/network"
	"github.com/annel0/stackattack/internal/protocol"
)

// ErrNoOpenContainers - нечего отправлять: ни одно окно контейнера не открыто
var ErrNoOpenContainers = errors.New("нет открытых контейнеров")

// Options настраивает клиента
type Options struct {
	Addr      string
	Transport network.Transport
	Token     string // JWT игрока
}

// Client - соединение игрока с сервером
type Client struct {
	conn    net.Conn
	session *Session
	writeMu sync.Mutex
	logger  *logging.Logger
}

// Dial подключается к серверу и отправляет кадр аутентификации.
// Сервер не отвечает на аутентификацию: при неверном токене соединение закрывается.
func Dial(ctx context.Context, opts Options) (*Client, error) {
	if opts.Token == "" {
		return nil, errors.New("не задан токен")
	}

	conn, err := network.Dial(ctx, opts.Transport, opts.Addr)
	if err != nil {
		return nil, fmt.Errorf("не удалось подключиться к %s: %w", opts.Addr, err)
	}

	c := &Client{
		conn:    conn,
		session: NewSession(),
		logger:  logging.GetNetworkLogger(),
	}
	if err := c.send(protocol.MsgAuth, []byte(opts.Token)); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ошибка аутентификации: %w", err)
	}
	return c, nil
}

// Session возвращает сессию открытых окон
func (c *Client) Session() *Session {
	return c.session
}

// Perform отправляет операцию по всем открытым контейнерам сессии
func (c *Client) Perform(kind inventory.OperationKind) error {
	req, ok := c.session.Request(kind)
	if !ok {
		return ErrNoOpenContainers
	}
	return c.Send(req)
}

// Send отправляет готовый запрос. Ответа нет: результат виден по состоянию инвентарей.
func (c *Client) Send(req protocol.Request) error {
	data, err := protocol.MarshalRequest(req)
	if err != nil {
		return err
	}
	if err := c.send(protocol.MsgInventoryOp, data); err != nil {
		return err
	}
	c.logger.Debug("Отправлен запрос %s по %d контейнерам", req.Kind, len(req.Positions))
	return nil
}

// Ping отправляет PING и ждёт PONG; возвращает время ответа.
// Заодно подтверждает, что сервер принял аутентификацию.
func (c *Client) Ping(ctx context.Context) (time.Duration, error) {
	started := time.Now()
	payload := []byte(started.Format(time.RFC3339Nano))
	if err := c.send(protocol.MsgPing, payload); err != nil {
		return 0, err
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = started.Add(5 * time.Second)
	}
	_ = c.conn.SetReadDeadline(deadline)
	defer c.conn.SetReadDeadline(time.Time{})

	for {
		typ, _, err := protocol.ReadFrame(c.conn)
		if err != nil {
			return 0, fmt.Errorf("нет ответа на PING: %w", err)
		}
		if typ == protocol.MsgPong {
			return time.Since(started), nil
		}
	}
}

// Close закрывает соединение
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) send(t protocol.MessageType, payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return protocol.WriteFrame(c.conn, t, payload)
}
