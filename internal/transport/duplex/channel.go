package duplex

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dep2p/go-msgbox/pkg/interfaces"
	"github.com/dep2p/go-msgbox/pkg/types"
)

// ackWaiter 等待房间确认的 Emit
type ackWaiter struct {
	messageID string
	ch        chan *types.Ack
}

// Channel 已认证的全双工通道
type Channel struct {
	conn   *websocket.Conn
	host   string
	peer   string
	config *Config

	connected atomic.Bool
	writeMu   sync.Mutex

	mu      sync.Mutex
	subs    map[string][]*subscription
	waiters map[string][]*ackWaiter
	done    chan struct{}
}

var _ interfaces.DuplexChannel = (*Channel)(nil)

func newChannel(conn *websocket.Conn, host, peer string, config *Config) *Channel {
	c := &Channel{
		conn:    conn,
		host:    host,
		peer:    peer,
		config:  config,
		subs:    make(map[string][]*subscription),
		waiters: make(map[string][]*ackWaiter),
		done:    make(chan struct{}),
	}
	c.connected.Store(true)
	return c
}

// Host 连接的主机
func (c *Channel) Host() string { return c.host }

// PeerIdentity 服务端身份公钥
func (c *Channel) PeerIdentity() string { return c.peer }

// Done 连接断开时关闭
func (c *Channel) Done() <-chan struct{} { return c.done }

// Connected 实现 interfaces.DuplexChannel
func (c *Channel) Connected() bool { return c.connected.Load() }

// JoinRoom 实现 interfaces.DuplexChannel
func (c *Channel) JoinRoom(ctx context.Context, room string) error {
	if room == "" {
		return ErrEmptyRoom
	}
	return c.write(ctx, EventJoinRoom, RoomRequest{RoomID: room})
}

// LeaveRoom 实现 interfaces.DuplexChannel
func (c *Channel) LeaveRoom(ctx context.Context, room string) error {
	if room == "" {
		return ErrEmptyRoom
	}
	c.mu.Lock()
	subs := c.subs[room]
	delete(c.subs, room)
	c.mu.Unlock()
	for _, s := range subs {
		s.close()
	}
	return c.write(ctx, EventLeaveRoom, RoomRequest{RoomID: room})
}

// Subscribe 实现 interfaces.DuplexChannel
func (c *Channel) Subscribe(room string) interfaces.RoomSubscription {
	s := newSubscription(room, c.config.SubscriptionBuffer, c.removeSubscription)
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.Connected() {
		s.close()
		return s
	}
	c.subs[room] = append(c.subs[room], s)
	return s
}

func (c *Channel) removeSubscription(s *subscription) {
	c.mu.Lock()
	defer c.mu.Unlock()
	subs := c.subs[s.room]
	for i, other := range subs {
		if other == s {
			c.subs[s.room] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(c.subs[s.room]) == 0 {
		delete(c.subs, s.room)
	}
}

// Emit 实现 interfaces.DuplexChannel
//
// 返回的通道最多收到一个确认；连接断开时被关闭。
func (c *Channel) Emit(ctx context.Context, room string, msg *types.WireMessage) (<-chan *types.Ack, error) {
	if room == "" {
		return nil, ErrEmptyRoom
	}
	if !c.Connected() {
		return nil, ErrNotConnected
	}

	w := &ackWaiter{messageID: msg.MessageID, ch: make(chan *types.Ack, 1)}
	c.mu.Lock()
	c.waiters[room] = append(c.waiters[room], w)
	c.mu.Unlock()

	if err := c.write(ctx, EventSendMessage, SendRequest{RoomID: room, Message: msg}); err != nil {
		c.mu.Lock()
		c.removeWaiterLocked(room, w)
		c.mu.Unlock()
		return nil, err
	}
	return w.ch, nil
}

func (c *Channel) removeWaiterLocked(room string, w *ackWaiter) bool {
	waiters := c.waiters[room]
	for i, other := range waiters {
		if other == w {
			c.waiters[room] = append(waiters[:i:i], waiters[i+1:]...)
			if len(c.waiters[room]) == 0 {
				delete(c.waiters, room)
			}
			return true
		}
	}
	return false
}

// Close 实现 interfaces.DuplexChannel
func (c *Channel) Close() error {
	if !c.connected.Load() {
		return nil
	}
	c.writeMu.Lock()
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	c.writeMu.Unlock()
	err := c.conn.Close()
	c.teardown()
	return err
}

func (c *Channel) write(ctx context.Context, event string, v any) error {
	if !c.Connected() {
		return ErrNotConnected
	}
	frame, err := NewFrame(event, v)
	if err != nil {
		return err
	}

	deadline := time.Now().Add(c.config.WriteTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(deadline)
	if err := c.conn.WriteJSON(frame); err != nil {
		return err
	}
	return nil
}

// readLoop 分发入站帧直到连接断开
func (c *Channel) readLoop() {
	defer c.teardown()
	for {
		var f Frame
		if err := c.conn.ReadJSON(&f); err != nil {
			if c.Connected() {
				logger.Debug("全双工通道已断开", "host", c.host, "err", err)
			}
			return
		}
		room, isAck, ok := parseRoomEvent(f.Event)
		if !ok {
			logger.Debug("忽略未知事件", "event", f.Event)
			continue
		}
		if isAck {
			var ack types.Ack
			if err := f.Decode(&ack); err != nil {
				logger.Debug("无法解析确认", "room", room, "err", err)
				continue
			}
			c.deliverAck(room, &ack)
			continue
		}

		var msg types.WireMessage
		if err := f.Decode(&msg); err != nil {
			logger.Debug("无法解析房间消息", "room", room, "err", err)
			continue
		}
		c.deliverMessage(room, &msg)
	}
}

func (c *Channel) deliverMessage(room string, msg *types.WireMessage) {
	c.mu.Lock()
	subs := append([]*subscription(nil), c.subs[room]...)
	c.mu.Unlock()
	for _, s := range subs {
		if !s.push(msg) {
			logger.Warn("房间订阅缓冲区已满，丢弃消息", "room", room, "messageId", msg.MessageID)
		}
	}
}

// deliverAck 优先按 messageId 匹配，否则交给最早的等待者
func (c *Channel) deliverAck(room string, ack *types.Ack) {
	c.mu.Lock()
	var target *ackWaiter
	for _, w := range c.waiters[room] {
		if ack.MessageID == "" || w.messageID == ack.MessageID {
			target = w
			break
		}
	}
	if target != nil {
		c.removeWaiterLocked(room, target)
	}
	c.mu.Unlock()

	if target == nil {
		logger.Debug("确认没有等待者", "room", room, "messageId", ack.MessageID)
		return
	}
	target.ch <- ack
	close(target.ch)
}

func (c *Channel) teardown() {
	if !c.connected.CompareAndSwap(true, false) {
		return
	}
	c.mu.Lock()
	subs := c.subs
	waiters := c.waiters
	c.subs = make(map[string][]*subscription)
	c.waiters = make(map[string][]*ackWaiter)
	c.mu.Unlock()

	for _, list := range subs {
		for _, s := range list {
			s.close()
		}
	}
	for _, list := range waiters {
		for _, w := range list {
			close(w.ch)
		}
	}
	close(c.done)
}
