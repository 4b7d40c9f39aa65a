package network

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/annel0/stackattack/internal/logging"
	"github.com/annel0/stackattack/internal/protocol"
	"github.com/google/uuid"
)

const (
	// DefaultMaxConnections - максимальное количество одновременных подключений
	DefaultMaxConnections = 1000
	// DefaultMaxConnectionsPerIP - максимальное количество подключений с одного IP
	DefaultMaxConnectionsPerIP = 5
	// DefaultIdleTimeout - таймаут для неактивных подключений
	DefaultIdleTimeout = 5 * time.Minute
	// DefaultAuthTimeout - сколько ждать кадр аутентификации
	DefaultAuthTimeout = 10 * time.Second
)

// Authenticator проверяет токен и возвращает ID игрока
type Authenticator interface {
	Authenticate(token string) (uint64, error)
}

// Options настраивает игровой сервер
type Options struct {
	Addr                string
	Transport           Transport
	Auth                Authenticator
	Dispatcher          *Dispatcher
	Metrics             *Metrics // nil - без метрик
	IdleTimeout         time.Duration
	AuthTimeout         time.Duration
	MaxConnections      int
	MaxConnectionsPerIP int
}

// Server принимает игровые соединения и передаёт запросы в очередь.
type Server struct {
	opts     Options
	listener net.Listener

	mu          sync.Mutex
	connections map[string]*connection
	byIP        map[string]int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	logger *logging.Logger
}

// connection - одно подключение клиента
type connection struct {
	id       string
	conn     net.Conn
	ip       string
	playerID uint64
	writeMu  sync.Mutex
}

// NewServer создаёт сервер, не открывая порт
func NewServer(opts Options) (*Server, error) {
	if opts.Auth == nil {
		return nil, errors.New("не задан аутентификатор")
	}
	if opts.Dispatcher == nil {
		return nil, errors.New("не задана очередь запросов")
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = DefaultIdleTimeout
	}
	if opts.AuthTimeout <= 0 {
		opts.AuthTimeout = DefaultAuthTimeout
	}
	if opts.MaxConnections <= 0 {
		opts.MaxConnections = DefaultMaxConnections
	}
	if opts.MaxConnectionsPerIP <= 0 {
		opts.MaxConnectionsPerIP = DefaultMaxConnectionsPerIP
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		opts:        opts,
		connections: make(map[string]*connection),
		byIP:        make(map[string]int),
		ctx:         ctx,
		cancel:      cancel,
		logger:      logging.GetNetworkLogger(),
	}, nil
}

// Start открывает порт и начинает принимать соединения
func (s *Server) Start() error {
	listener, err := Listen(s.opts.Transport, s.opts.Addr)
	if err != nil {
		return fmt.Errorf("не удалось открыть %s (%s): %w", s.opts.Addr, s.opts.Transport, err)
	}
	s.listener = listener

	s.wg.Add(1)
	go s.acceptLoop()

	s.logger.Info("🚀 Игровой сервер слушает %s (%s)", listener.Addr(), s.transportName())
	return nil
}

// Addr возвращает фактический адрес слушателя
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop закрывает слушатель и все соединения
func (s *Server) Stop() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}

	s.mu.Lock()
	for _, c := range s.connections {
		_ = c.conn.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info("🛑 Игровой сервер остановлен")
}

// ConnectionCount возвращает число активных соединений
func (s *Server) ConnectionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.connections)
}

func (s *Server) transportName() Transport {
	if s.opts.Transport == "" {
		return TransportTCP
	}
	return s.opts.Transport
}

// acceptLoop принимает входящие соединения
func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.ctx.Done():
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Error("Ошибка принятия соединения: %v", err)
			continue
		}

		c, ok := s.register(conn)
		if !ok {
			s.opts.Metrics.connection(false)
			s.logger.Warn("Соединение отклонено из-за лимитов: %s", conn.RemoteAddr())
			_ = conn.Close()
			continue
		}
		s.opts.Metrics.connection(true)

		s.wg.Add(1)
		go s.serve(c)
	}
}

// register проверяет лимиты и добавляет соединение
func (s *Server) register(conn net.Conn) (*connection, bool) {
	ip := ipFromAddr(conn.RemoteAddr())

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.connections) >= s.opts.MaxConnections || s.byIP[ip] >= s.opts.MaxConnectionsPerIP {
		return nil, false
	}

	c := &connection{id: uuid.NewString(), conn: conn, ip: ip}
	s.connections[c.id] = c
	s.byIP[ip]++
	return c, true
}

func (s *Server) unregister(c *connection) {
	s.mu.Lock()
	if _, exists := s.connections[c.id]; exists {
		delete(s.connections, c.id)
		if s.byIP[c.ip]--; s.byIP[c.ip] <= 0 {
			delete(s.byIP, c.ip)
		}
	}
	remaining := len(s.connections)
	s.mu.Unlock()

	s.opts.Metrics.disconnected()
	s.logger.Info("Соединение закрыто: %s игрок %d (осталось: %d)", c.conn.RemoteAddr(), c.playerID, remaining)
}

// serve обслуживает соединение: сначала аутентификация, затем запросы
func (s *Server) serve(c *connection) {
	defer s.wg.Done()
	defer s.unregister(c)
	defer c.conn.Close()

	if err := s.authenticate(c); err != nil {
		s.opts.Metrics.authFailure()
		s.logger.Warn("Аутентификация %s не пройдена: %v", c.conn.RemoteAddr(), err)
		return
	}
	s.logger.Info("🔐 Игрок %d подключился с %s", c.playerID, c.conn.RemoteAddr())

	for {
		_ = c.conn.SetReadDeadline(time.Now().Add(s.opts.IdleTimeout))
		msgType, payload, err := protocol.ReadFrame(c.conn)
		if err != nil {
			if !isClosing(err) {
				s.logger.Debug("Чтение кадра от игрока %d: %v", c.playerID, err)
			}
			return
		}
		s.opts.Metrics.frame(msgType)

		switch msgType {
		case protocol.MsgPing:
			if err := c.write(protocol.MsgPong, payload); err != nil {
				s.logger.Debug("Ошибка отправки PONG игроку %d: %v", c.playerID, err)
				return
			}

		case protocol.MsgInventoryOp:
			req, err := protocol.UnmarshalRequest(payload)
			if err != nil {
				s.logger.Warn("Игрок %d прислал повреждённый запрос: %v", c.playerID, err)
				continue
			}
			if err := s.opts.Dispatcher.Enqueue(s.ctx, c.playerID, req); err != nil {
				s.logger.Warn("Запрос игрока %d не принят: %v", c.playerID, err)
				return
			}

		case protocol.MsgAuth:
			s.logger.Debug("Повторная аутентификация игрока %d проигнорирована", c.playerID)

		default:
			s.logger.Debug("Игрок %d: неизвестный тип сообщения %s", c.playerID, msgType)
		}
	}
}

// authenticate ждёт первый кадр; он обязан быть MsgAuth с действительным токеном
func (s *Server) authenticate(c *connection) error {
	_ = c.conn.SetReadDeadline(time.Now().Add(s.opts.AuthTimeout))

	msgType, payload, err := protocol.ReadFrame(c.conn)
	if err != nil {
		return err
	}
	s.opts.Metrics.frame(msgType)

	if msgType != protocol.MsgAuth {
		return fmt.Errorf("первым ожидался %s, получен %s", protocol.MsgAuth, msgType)
	}

	playerID, err := s.opts.Auth.Authenticate(string(payload))
	if err != nil {
		return err
	}
	c.playerID = playerID
	return nil
}

func (c *connection) write(t protocol.MessageType, payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return protocol.WriteFrame(c.conn, t, payload)
}

func isClosing(err error) bool {
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// ipFromAddr извлекает IP адрес из net.Addr
func ipFromAddr(addr net.Addr) string {
	if tcpAddr, ok := addr.(*net.TCPAddr); ok {
		return tcpAddr.IP.String()
	}
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}
