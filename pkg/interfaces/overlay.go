package interfaces

import (
	"context"

	"github.com/dep2p/go-msgbox/pkg/types"
)

// LookupResolver 叠加网络查询服务
type LookupResolver interface {
	Lookup(ctx context.Context, question types.LookupQuestion) (*types.LookupAnswer, error)
}

// Broadcaster 向叠加网络主题广播交易
type Broadcaster interface {
	Broadcast(ctx context.Context, tx []byte, topics []string) (*types.BroadcastResult, error)
}
