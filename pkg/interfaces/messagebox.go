package interfaces

import (
	"context"

	"github.com/dep2p/go-msgbox/pkg/types"
)

// MessageBox 消息核心对上层暴露的投递、监听与确认原语
type MessageBox interface {
	IdentityKey(ctx context.Context) (string, error)
	Send(ctx context.Context, msg *types.OutboundMessage) (*types.SendResult, error)
	SendLive(ctx context.Context, msg *types.OutboundMessage) (*types.SendResult, error)
	List(ctx context.Context, box string) ([]*types.Message, error)
	Acknowledge(ctx context.Context, ids []string) error
	Listen(ctx context.Context, box string, onMessage func(*types.Message)) error
}
