package msgbox

import (
	"context"

	"github.com/dep2p/go-msgbox/pkg/types"
)

// 消息操作要求节点处于运行状态，直接委托给消息核心。

func (n *Node) ready() error {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.closed {
		return ErrNodeClosed
	}
	if !n.started {
		return ErrNotStarted
	}
	return nil
}

// Init 在 host（为空时为默认主机）上确保本身份已广告
func (n *Node) Init(ctx context.Context, host string) error {
	if err := n.ready(); err != nil {
		return err
	}
	return n.client.Init(ctx, host)
}

// Send 经请求/响应通道投递
func (n *Node) Send(ctx context.Context, msg *types.OutboundMessage) (*types.SendResult, error) {
	if err := n.ready(); err != nil {
		return nil, err
	}
	return n.client.Send(ctx, msg)
}

// SendLive 优先经全双工通道投递，失败时回退
func (n *Node) SendLive(ctx context.Context, msg *types.OutboundMessage) (*types.SendResult, error) {
	if err := n.ready(); err != nil {
		return nil, err
	}
	return n.client.SendLive(ctx, msg)
}

// List 在所有广告主机上列出 box 中的消息
func (n *Node) List(ctx context.Context, box string) ([]*types.Message, error) {
	if err := n.ready(); err != nil {
		return nil, err
	}
	return n.client.List(ctx, box)
}

// Acknowledge 确认并删除消息
func (n *Node) Acknowledge(ctx context.Context, ids []string) error {
	if err := n.ready(); err != nil {
		return err
	}
	return n.client.Acknowledge(ctx, ids)
}

// Listen 订阅 box 的实时消息
func (n *Node) Listen(ctx context.Context, box string, onMessage func(*types.Message)) error {
	if err := n.ready(); err != nil {
		return err
	}
	return n.client.Listen(ctx, box, onMessage)
}

// LeaveRoom 停止监听 box
func (n *Node) LeaveRoom(ctx context.Context, box string) error {
	if err := n.ready(); err != nil {
		return err
	}
	return n.client.LeaveRoom(ctx, box)
}
