package duplex

import (
	"sync"

	"github.com/dep2p/go-msgbox/pkg/interfaces"
	"github.com/dep2p/go-msgbox/pkg/types"
)

// subscription 房间订阅
type subscription struct {
	room    string
	ch      chan *types.WireMessage
	onClose func(*subscription)

	mu     sync.Mutex
	closed bool
}

var _ interfaces.RoomSubscription = (*subscription)(nil)

func newSubscription(room string, bufferSize int, onClose func(*subscription)) *subscription {
	if bufferSize <= 0 {
		bufferSize = 32
	}
	return &subscription{
		room:    room,
		ch:      make(chan *types.WireMessage, bufferSize),
		onClose: onClose,
	}
}

func (s *subscription) Room() string { return s.room }

func (s *subscription) C() <-chan *types.WireMessage { return s.ch }

// Close 关闭订阅，可重复调用
func (s *subscription) Close() {
	if s.close() && s.onClose != nil {
		s.onClose(s)
	}
}

func (s *subscription) close() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.closed = true
	close(s.ch)
	return true
}

// push 非阻塞投递，缓冲区满或已关闭时丢弃
func (s *subscription) push(msg *types.WireMessage) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.ch <- msg:
		return true
	default:
		return false
	}
}
