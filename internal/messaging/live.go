package messaging

import (
	"context"

	"github.com/dep2p/go-msgbox/internal/metrics"
	"github.com/dep2p/go-msgbox/internal/transport/duplex"
	"github.com/dep2p/go-msgbox/pkg/interfaces"
	"github.com/dep2p/go-msgbox/pkg/lib/log"
	"github.com/dep2p/go-msgbox/pkg/types"
)

// SendLive 优先经全双工通道投递，未确认时回退到 Send
//
// 没有可用通道时直接走 Send。确认成功则返回确认结果；
// 否定确认、发送失败或超时都以同一消息 ID 回退。
func (c *Client) SendLive(ctx context.Context, msg *types.OutboundMessage) (*types.SendResult, error) {
	if err := validate(msg); err != nil {
		return nil, err
	}
	if err := c.assertReady(ctx); err != nil {
		return nil, err
	}

	room := duplex.RoomName(msg.Recipient, msg.Box)
	ch, err := c.JoinRoom(ctx, room)
	if err != nil || ch == nil || !ch.Connected() {
		if err != nil {
			logger.Debug("全双工通道不可用，使用请求通道", "room", room, "err", err)
		}
		c.config.Metrics.Fallback(metrics.FallbackNoChannel)
		return c.Send(ctx, msg)
	}

	p, err := c.prepare(ctx, msg)
	if err != nil {
		return nil, err
	}

	acks, err := ch.Emit(ctx, room, p.wire)
	if err != nil {
		logger.Debug("实时发送失败，回退", "room", room, "err", err)
		c.config.Metrics.Fallback(metrics.FallbackEmitError)
		return c.deliver(ctx, p)
	}

	outcome := raceAck(ctx, c.config.Clock, acks, c.config.LiveAckTimeout)
	switch {
	case outcome.timedOut:
		logger.Debug("实时确认超时，回退", "room", room, "messageId", log.TruncateID(p.wire.MessageID, 16))
		c.config.Metrics.Fallback(metrics.FallbackTimeout)
	case outcome.ack.OK():
		c.config.Metrics.Sent(metrics.TransportLive, true)
		id := outcome.ack.MessageID
		if id == "" {
			id = p.wire.MessageID
		}
		return &types.SendResult{Status: types.StatusSuccess, MessageID: id}, nil
	default:
		logger.Debug("实时发送被否定确认，回退", "room", room, "messageId", log.TruncateID(p.wire.MessageID, 16))
		c.config.Metrics.Fallback(metrics.FallbackNack)
	}
	c.config.Metrics.Sent(metrics.TransportLive, false)
	return c.deliver(ctx, p)
}

// channelFor 返回已连接的全双工通道，必要时拨号
//
// 旧通道断开时清空已加入房间集合。
func (c *Client) channelFor(ctx context.Context) (interfaces.DuplexChannel, error) {
	if c.dialer == nil {
		return nil, nil
	}
	c.mu.Lock()
	if c.channel != nil && c.channel.Connected() {
		ch := c.channel
		c.mu.Unlock()
		return ch, nil
	}
	host := c.host
	c.mu.Unlock()
	if host == "" {
		host = c.config.DefaultHost
	}

	v, err, _ := c.group.Do("dial:"+host, func() (any, error) {
		return c.dialer.Dial(ctx, host)
	})
	if err != nil {
		return nil, err
	}
	ch := v.(interfaces.DuplexChannel)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel != nil && c.channel != ch && c.channel.Connected() {
		// 并发拨号已产生可用通道
		go ch.Close() //nolint:errcheck
		return c.channel, nil
	}
	if c.channel != ch {
		c.channel = ch
		c.rooms = make(map[string]struct{})
	}
	return ch, nil
}
