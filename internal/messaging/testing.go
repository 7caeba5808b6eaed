package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dep2p/go-msgbox/pkg/interfaces"
	"github.com/dep2p/go-msgbox/pkg/types"
)

// ============================================================================
//                              MemoryHub
// ============================================================================

// AckMode 进程内全双工通道对实时发送的应答方式
type AckMode int

const (
	// AckSuccess 保存消息并成功确认
	AckSuccess AckMode = iota
	// AckReject 否定确认
	AckReject
	// AckNever 从不确认
	AckNever
)

// MemoryHub 进程内的多主机消息存储与房间路由，用于测试
//
// 每个调用方通过 Transport / Dialer 取得绑定其身份的视图，
// 主机以此身份作为已认证的发送方与收件人。
type MemoryHub struct {
	mu       sync.Mutex
	boxes    map[string][]*types.WireMessage // host -> 消息
	down     map[string]bool
	rooms    map[string][]*memoryChannel // host|room -> 通道
	requests map[string]int
	joins    map[string]int // host|room -> joinRoom 次数
	delay    time.Duration
	ackMode  AckMode
	base     time.Time
	seq      int
}

// NewMemoryHub 创建空的进程内主机集合
func NewMemoryHub() *MemoryHub {
	return &MemoryHub{
		boxes:    make(map[string][]*types.WireMessage),
		down:     make(map[string]bool),
		rooms:    make(map[string][]*memoryChannel),
		requests: make(map[string]int),
		joins:    make(map[string]int),
		base:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// SetDown 模拟主机不可达
func (h *MemoryHub) SetDown(host string, down bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.down[host] = down
}

// SetAckMode 设置实时发送应答方式
func (h *MemoryHub) SetAckMode(mode AckMode) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ackMode = mode
}

// SetJoinDelay 每次 joinRoom 在登记前等待 d
func (h *MemoryHub) SetJoinDelay(d time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.delay = d
}

// Joins 返回 host 上 room 收到的 joinRoom 次数
func (h *MemoryHub) Joins(host, room string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.joins[host+"|"+room]
}

// Requests 返回 path 上收到的请求数
func (h *MemoryHub) Requests(path string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.requests[path]
}

// Put 直接写入一条消息，CreatedAt 为空时按写入顺序递增
func (h *MemoryHub) Put(host string, msg *types.WireMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.storeLocked(host, msg)
}

// Messages 返回主机上 recipient 的 box 中的消息
func (h *MemoryHub) Messages(host, recipient, box string) []*types.WireMessage {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []*types.WireMessage
	for _, m := range h.boxes[host] {
		if m.Recipient == recipient && m.MessageBox == box {
			cp := *m
			out = append(out, &cp)
		}
	}
	return out
}

// Publish 向房间内所有订阅者推送消息（不保存）
func (h *MemoryHub) Publish(host, room string, msg *types.WireMessage) {
	h.mu.Lock()
	channels := append([]*memoryChannel(nil), h.rooms[host+"|"+room]...)
	h.mu.Unlock()
	for _, ch := range channels {
		ch.deliver(room, msg)
	}
}

// storeLocked 同一主机上重复 ID 幂等
func (h *MemoryHub) storeLocked(host string, msg *types.WireMessage) {
	for _, m := range h.boxes[host] {
		if m.MessageID == msg.MessageID {
			return
		}
	}
	cp := *msg
	if cp.CreatedAt == nil {
		h.seq++
		ts := h.base.Add(time.Duration(h.seq) * time.Second)
		cp.CreatedAt = &ts
	}
	h.boxes[host] = append(h.boxes[host], &cp)
}

func (h *MemoryHub) hostError(host, path string, code types.ErrorCode, desc string) error {
	return &types.HostError{Host: host, Op: path, Code: code, Description: desc}
}

// Transport 返回以 identity 身份访问主机的请求通道
func (h *MemoryHub) Transport(identity string) *MemoryTransport {
	return &MemoryTransport{hub: h, identity: identity}
}

// Dialer 返回以 identity 身份连接主机的全双工拨号器
func (h *MemoryHub) Dialer(identity string) *MemoryDialer {
	return &MemoryDialer{hub: h, identity: identity}
}

// ============================================================================
//                              MemoryTransport
// ============================================================================

// MemoryTransport 绑定调用方身份的进程内请求通道
type MemoryTransport struct {
	hub      *MemoryHub
	identity string
}

var _ interfaces.RequestTransport = (*MemoryTransport)(nil)

// Post 实现 interfaces.RequestTransport
func (t *MemoryTransport) Post(ctx context.Context, host, path string, req, resp any) error {
	if err := ctx.Err(); err != nil {
		return &types.HostError{Host: host, Op: path, Code: types.CodeTransport, Err: err}
	}
	h := t.hub
	h.mu.Lock()
	defer h.mu.Unlock()
	h.requests[path]++
	if h.down[host] {
		return h.hostError(host, path, types.CodeTransport, "connection refused")
	}

	var out any
	switch r := req.(type) {
	case *types.SendMessageRequest:
		if r.Message == nil || r.Message.Recipient == "" {
			return h.hostError(host, path, types.CodeProtocol, "Message recipient is required")
		}
		msg := *r.Message
		msg.Sender = t.identity
		h.storeLocked(host, &msg)
		out = &types.SendMessageResponse{Status: types.StatusSuccess, MessageID: msg.MessageID}

	case *types.ListMessagesRequest:
		messages := []*types.WireMessage{}
		for _, m := range h.boxes[host] {
			if m.Recipient == t.identity && m.MessageBox == r.MessageBox {
				messages = append(messages, m)
			}
		}
		out = &types.ListMessagesResponse{Status: types.StatusSuccess, Messages: messages}

	case *types.AcknowledgeRequest:
		wanted := make(map[string]bool, len(r.MessageIDs))
		for _, id := range r.MessageIDs {
			wanted[id] = true
		}
		kept := h.boxes[host][:0:0]
		removed := 0
		for _, m := range h.boxes[host] {
			if m.Recipient == t.identity && wanted[m.MessageID] {
				removed++
				continue
			}
			kept = append(kept, m)
		}
		if removed == 0 {
			return h.hostError(host, path, types.CodeNotFound, "Message not found")
		}
		h.boxes[host] = kept
		out = &types.StatusResponse{Status: types.StatusSuccess}

	default:
		return h.hostError(host, path, types.CodeProtocol, fmt.Sprintf("unsupported request %T", req))
	}

	if resp == nil {
		return nil
	}
	data, err := json.Marshal(out)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, resp); err != nil {
		return &types.HostError{Host: host, Op: path, Code: types.CodeDecode, Err: err}
	}
	return nil
}

// ============================================================================
//                              MemoryDialer
// ============================================================================

// errChannelClosed 进程内通道已关闭
var errChannelClosed = errors.New("memory channel closed")

// MemoryDialer 绑定调用方身份的进程内全双工拨号器
type MemoryDialer struct {
	hub      *MemoryHub
	identity string

	mu    sync.Mutex
	fail  error
	dials int
}

var _ interfaces.DuplexDialer = (*MemoryDialer)(nil)

// FailWith 之后的拨号返回 err；nil 恢复正常
func (d *MemoryDialer) FailWith(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fail = err
}

// Dials 返回成功拨号次数
func (d *MemoryDialer) Dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

// Dial 实现 interfaces.DuplexDialer
func (d *MemoryDialer) Dial(_ context.Context, host string) (interfaces.DuplexChannel, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fail != nil {
		return nil, d.fail
	}
	d.hub.mu.Lock()
	down := d.hub.down[host]
	d.hub.mu.Unlock()
	if down {
		return nil, fmt.Errorf("dial %s: connection refused", host)
	}
	d.dials++
	return &memoryChannel{
		hub:      d.hub,
		host:     host,
		identity: d.identity,
		subs:     make(map[string][]*memorySubscription),
	}, nil
}

type memoryChannel struct {
	hub      *MemoryHub
	host     string
	identity string

	mu     sync.Mutex
	closed bool
	subs   map[string][]*memorySubscription
}

func (c *memoryChannel) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed
}

func (c *memoryChannel) JoinRoom(_ context.Context, room string) error {
	if !c.Connected() {
		return errChannelClosed
	}
	c.hub.mu.Lock()
	delay := c.hub.delay
	c.hub.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}
	c.hub.mu.Lock()
	defer c.hub.mu.Unlock()
	key := c.host + "|" + room
	c.hub.joins[key]++
	c.hub.rooms[key] = append(c.hub.rooms[key], c)
	return nil
}

func (c *memoryChannel) LeaveRoom(_ context.Context, room string) error {
	c.hub.mu.Lock()
	key := c.host + "|" + room
	channels := c.hub.rooms[key]
	for i, ch := range channels {
		if ch == c {
			c.hub.rooms[key] = append(channels[:i:i], channels[i+1:]...)
			break
		}
	}
	c.hub.mu.Unlock()

	c.mu.Lock()
	subs := c.subs[room]
	delete(c.subs, room)
	c.mu.Unlock()
	for _, s := range subs {
		s.Close()
	}
	return nil
}

func (c *memoryChannel) Subscribe(room string) interfaces.RoomSubscription {
	s := &memorySubscription{room: room, ch: make(chan *types.WireMessage, 16)}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		s.Close()
		return s
	}
	c.subs[room] = append(c.subs[room], s)
	return s
}

func (c *memoryChannel) Emit(_ context.Context, room string, msg *types.WireMessage) (<-chan *types.Ack, error) {
	if !c.Connected() {
		return nil, errChannelClosed
	}
	acks := make(chan *types.Ack, 1)

	c.hub.mu.Lock()
	mode := c.hub.ackMode
	if mode == AckSuccess {
		cp := *msg
		cp.Sender = c.identity
		c.hub.storeLocked(c.host, &cp)
	}
	c.hub.mu.Unlock()

	switch mode {
	case AckSuccess:
		cp := *msg
		cp.Sender = c.identity
		c.hub.Publish(c.host, room, &cp)
		acks <- &types.Ack{Status: types.StatusSuccess, MessageID: msg.MessageID}
	case AckReject:
		acks <- &types.Ack{Status: types.StatusError, Description: "rejected"}
	}
	return acks, nil
}

func (c *memoryChannel) deliver(room string, msg *types.WireMessage) {
	c.mu.Lock()
	subs := append([]*memorySubscription(nil), c.subs[room]...)
	c.mu.Unlock()
	for _, s := range subs {
		cp := *msg
		s.push(&cp)
	}
}

func (c *memoryChannel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	subs := c.subs
	c.subs = make(map[string][]*memorySubscription)
	c.mu.Unlock()

	c.hub.mu.Lock()
	for key, channels := range c.hub.rooms {
		kept := channels[:0:0]
		for _, ch := range channels {
			if ch != c {
				kept = append(kept, ch)
			}
		}
		c.hub.rooms[key] = kept
	}
	c.hub.mu.Unlock()

	for _, list := range subs {
		for _, s := range list {
			s.Close()
		}
	}
	return nil
}

type memorySubscription struct {
	room string
	ch   chan *types.WireMessage

	mu     sync.Mutex
	closed bool
}

func (s *memorySubscription) Room() string                 { return s.room }
func (s *memorySubscription) C() <-chan *types.WireMessage { return s.ch }

func (s *memorySubscription) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

func (s *memorySubscription) push(msg *types.WireMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- msg:
	default:
	}
}
