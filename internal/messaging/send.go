package messaging

import (
	"context"
	"fmt"
	"strings"

	"github.com/dep2p/go-msgbox/internal/metrics"
	"github.com/dep2p/go-msgbox/pkg/lib/log"
	"github.com/dep2p/go-msgbox/pkg/types"
)

// prepared 已计算 ID 并完成加密的待发消息
type prepared struct {
	wire *types.WireMessage
	host string
}

func validate(msg *types.OutboundMessage) error {
	switch {
	case msg == nil || strings.TrimSpace(msg.Recipient) == "":
		return ErrMissingRecipient
	case strings.TrimSpace(msg.Box) == "":
		return ErrMissingBox
	case msg.Body.IsZero():
		return ErrMissingBody
	}
	return nil
}

// prepare 计算消息 ID、按需加密
func (c *Client) prepare(ctx context.Context, msg *types.OutboundMessage) (*prepared, error) {
	id := msg.MessageID
	if id == "" {
		var err error
		if id, err = c.MessageID(ctx, msg.Recipient, msg.Body); err != nil {
			return nil, err
		}
	}

	body := msg.Body
	if !msg.SkipEncryption {
		var err error
		if body, err = c.encryptBody(ctx, msg.Recipient, msg.Body); err != nil {
			return nil, err
		}
	}

	identity, err := c.IdentityKey(ctx)
	if err != nil {
		return nil, err
	}
	return &prepared{
		wire: &types.WireMessage{
			MessageID:  id,
			Sender:     identity,
			Recipient:  msg.Recipient,
			MessageBox: msg.Box,
			Body:       types.WireBody(body.Text()),
		},
		host: msg.Host,
	}, nil
}

// Send 经请求/响应通道投递到接收方主机
func (c *Client) Send(ctx context.Context, msg *types.OutboundMessage) (*types.SendResult, error) {
	if err := validate(msg); err != nil {
		return nil, err
	}
	if err := c.assertReady(ctx); err != nil {
		return nil, err
	}
	p, err := c.prepare(ctx, msg)
	if err != nil {
		return nil, err
	}
	return c.deliver(ctx, p)
}

// deliver POST /sendMessage
func (c *Client) deliver(ctx context.Context, p *prepared) (*types.SendResult, error) {
	host := p.host
	if host == "" {
		host = c.registry.ResolveHost(ctx, p.wire.Recipient)
	}
	if host == "" {
		host = c.Host()
	}

	// 主机从认证身份推导发送方
	wire := *p.wire
	wire.Sender = ""

	var resp types.SendMessageResponse
	err := c.rpc.Post(ctx, host, types.PathSendMessage, &types.SendMessageRequest{Message: &wire}, &resp)
	c.config.Metrics.Sent(metrics.TransportRequest, err == nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSendFailed, err)
	}

	id := resp.MessageID
	if id == "" {
		id = p.wire.MessageID
	}
	logger.Debug("消息已投递", "host", host, "box", p.wire.MessageBox,
		"recipient", log.TruncateID(p.wire.Recipient, 16), "messageId", log.TruncateID(id, 16))
	return &types.SendResult{Status: types.StatusSuccess, MessageID: id}, nil
}
