// Package client собирает запросы массового переноса на стороне игрока.
package client

import (
	"sync"

	"github.com/annel0/stackattack/internal/inventory"
	"github.com/annel0/stackattack/internal/protocol"
	"github.com/annel0/stackattack/internal/vec"
)

// Session отслеживает открытые окна контейнеров в порядке открытия.
type Session struct {
	mu   sync.Mutex
	open []vec.Vec3
}

// NewSession создаёт пустую сессию
func NewSession() *Session {
	return &Session{}
}

// Open отмечает окно контейнера открытым. Повторное открытие ничего не меняет.
func (s *Session) Open(pos vec.Vec3) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.open {
		if p == pos {
			return
		}
	}
	s.open = append(s.open, pos)
}

// Close отмечает окно закрытым
func (s *Session) Close(pos vec.Vec3) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, p := range s.open {
		if p == pos {
			s.open = append(s.open[:i], s.open[i+1:]...)
			return
		}
	}
}

// CloseAll закрывает все окна
func (s *Session) CloseAll() {
	s.mu.Lock()
	s.open = nil
	s.mu.Unlock()
}

// OpenContainers возвращает копию списка открытых контейнеров
func (s *Session) OpenContainers() []vec.Vec3 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]vec.Vec3(nil), s.open...)
}

// Request собирает запрос по всем открытым контейнерам.
// ok == false, если ни одно окно не открыто.
func (s *Session) Request(kind inventory.OperationKind) (protocol.Request, bool) {
	positions := s.OpenContainers()
	if len(positions) == 0 {
		return protocol.Request{}, false
	}
	return protocol.Request{Kind: kind, Positions: positions}, true
}
