package store

import (
	"context"
	"sync"

	"github.com/dep2p/go-msgbox/pkg/types"
)

// Memory 进程内存储
type Memory struct {
	mu     sync.RWMutex
	closed bool
	// recipient -> messageId -> 消息
	byRecipient map[string]map[string]*types.WireMessage
}

var _ Store = (*Memory)(nil)

// NewMemory 创建进程内存储
func NewMemory() *Memory {
	return &Memory{byRecipient: make(map[string]map[string]*types.WireMessage)}
}

// Put 实现 Store
func (m *Memory) Put(_ context.Context, msg *types.WireMessage) (bool, error) {
	if err := validate(msg); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return false, ErrClosed
	}
	box, ok := m.byRecipient[msg.Recipient]
	if !ok {
		box = make(map[string]*types.WireMessage)
		m.byRecipient[msg.Recipient] = box
	}
	if _, dup := box[msg.MessageID]; dup {
		return false, nil
	}
	cp := *msg
	box[msg.MessageID] = &cp
	return true, nil
}

// List 实现 Store
func (m *Memory) List(_ context.Context, recipient, box string) ([]*types.WireMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	out := []*types.WireMessage{}
	for _, msg := range m.byRecipient[recipient] {
		if msg.MessageBox == box {
			cp := *msg
			out = append(out, &cp)
		}
	}
	sortOldestFirst(out)
	return out, nil
}

// Acknowledge 实现 Store
func (m *Memory) Acknowledge(_ context.Context, recipient string, ids []string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, ErrClosed
	}
	box := m.byRecipient[recipient]
	n := 0
	for _, id := range ids {
		if _, ok := box[id]; ok {
			delete(box, id)
			n++
		}
	}
	return n, nil
}

// Close 实现 Store
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
