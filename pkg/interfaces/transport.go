package interfaces

import (
	"context"

	"github.com/dep2p/go-msgbox/pkg/types"
)

// RequestTransport 经过认证的请求/响应通道
//
// 失败时返回 *types.HostError，携带结构化错误码。
type RequestTransport interface {
	Post(ctx context.Context, host, path string, req, resp any) error
}

// DuplexDialer 建立到主机的全双工通道
type DuplexDialer interface {
	Dial(ctx context.Context, host string) (DuplexChannel, error)
}

// DuplexChannel 经过认证的全双工通道（基于房间的发布订阅）
type DuplexChannel interface {
	// Connected 通道是否处于已连接且已认证状态
	Connected() bool

	// JoinRoom 加入房间
	JoinRoom(ctx context.Context, room string) error

	// LeaveRoom 离开房间并关闭该房间的订阅
	LeaveRoom(ctx context.Context, room string) error

	// Subscribe 返回房间的入站消息订阅
	Subscribe(room string) RoomSubscription

	// Emit 在房间内发送消息，返回的通道最多收到一个房间确认
	Emit(ctx context.Context, room string, msg *types.WireMessage) (<-chan *types.Ack, error)

	// Close 断开连接
	Close() error
}

// RoomSubscription 房间入站消息订阅
//
// C() 是有界通道，消费者跟不上时新消息被丢弃。
type RoomSubscription interface {
	Room() string
	C() <-chan *types.WireMessage
	Close()
}
