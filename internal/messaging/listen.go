package messaging

import (
	"context"
	"errors"

	"github.com/dep2p/go-msgbox/internal/transport/duplex"
	"github.com/dep2p/go-msgbox/pkg/interfaces"
	"github.com/dep2p/go-msgbox/pkg/types"
)

// ErrNoDuplex 未配置全双工拨号器
var ErrNoDuplex = errors.New("messaging: duplex channel unavailable")

// JoinRoom 确保房间已加入，已加入时不重复发送
//
// 同一房间的并发调用共享一次 joinRoom。
func (c *Client) JoinRoom(ctx context.Context, room string) (interfaces.DuplexChannel, error) {
	ch, err := c.channelFor(ctx)
	if err != nil {
		return nil, err
	}
	if ch == nil {
		return nil, ErrNoDuplex
	}
	if c.hasRoom(ch, room) {
		return ch, nil
	}

	_, err, _ = c.group.Do("join:"+room, func() (any, error) {
		if c.hasRoom(ch, room) {
			return nil, nil
		}
		if err := ch.JoinRoom(ctx, room); err != nil {
			return nil, err
		}
		c.mu.Lock()
		if c.channel == ch {
			c.rooms[room] = struct{}{}
		}
		c.mu.Unlock()
		logger.Debug("已加入房间", "room", room)
		return nil, nil
	})
	if err != nil {
		return nil, err
	}
	return ch, nil
}

// hasRoom ch 仍是当前通道且已加入 room
func (c *Client) hasRoom(ch interfaces.DuplexChannel, room string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, joined := c.rooms[room]
	return joined && c.channel == ch
}

// Listen 订阅自身 box 的实时消息
//
// 立即返回；消费协程在 ctx 取消、LeaveRoom 或 Disconnect 时退出。
// 无法解密或解析的消息以哨兵文本作为消息体交给 onMessage。
func (c *Client) Listen(ctx context.Context, box string, onMessage func(*types.Message)) error {
	if box == "" {
		return ErrMissingBox
	}
	if err := c.assertReady(ctx); err != nil {
		return err
	}
	identity, err := c.IdentityKey(ctx)
	if err != nil {
		return err
	}
	room := duplex.RoomName(identity, box)

	ch, err := c.channelFor(ctx)
	if err != nil {
		return err
	}
	if ch == nil {
		return ErrNoDuplex
	}
	sub := ch.Subscribe(room)
	if _, err := c.JoinRoom(ctx, room); err != nil {
		sub.Close()
		return err
	}

	lctx, cancel := context.WithCancel(context.Background())
	c.mu.Lock()
	if prev, ok := c.stops[room]; ok {
		prev()
	}
	c.stops[room] = cancel
	c.mu.Unlock()

	go c.consume(ctx, lctx, sub, onMessage)
	return nil
}

func (c *Client) consume(ctx, lctx context.Context, sub interfaces.RoomSubscription, onMessage func(*types.Message)) {
	defer sub.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case <-lctx.Done():
			return
		case wire, ok := <-sub.C():
			if !ok {
				return
			}
			msg, failed := c.toMessage(lctx, wire)
			c.config.Metrics.Received(failed)
			onMessage(msg)
		}
	}
}

// LeaveRoom 离开自身 box 的房间并停止监听
func (c *Client) LeaveRoom(ctx context.Context, box string) error {
	identity, err := c.IdentityKey(ctx)
	if err != nil {
		return err
	}
	room := duplex.RoomName(identity, box)

	c.mu.Lock()
	ch := c.channel
	_, joined := c.rooms[room]
	delete(c.rooms, room)
	if stop, ok := c.stops[room]; ok {
		stop()
		delete(c.stops, room)
	}
	c.mu.Unlock()

	if ch == nil || !joined || !ch.Connected() {
		return nil
	}
	return ch.LeaveRoom(ctx, room)
}

// Disconnect 断开全双工通道并停止所有监听
func (c *Client) Disconnect() error {
	c.mu.Lock()
	ch := c.detachChannelLocked()
	c.mu.Unlock()
	if ch == nil {
		return nil
	}
	return ch.Close()
}

// detachChannelLocked 摘下当前通道并清理房间状态，调用方持有 mu
func (c *Client) detachChannelLocked() interfaces.DuplexChannel {
	ch := c.channel
	c.channel = nil
	c.rooms = make(map[string]struct{})
	for room, stop := range c.stops {
		stop()
		delete(c.stops, room)
	}
	return ch
}
