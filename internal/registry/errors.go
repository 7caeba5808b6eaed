package registry

import "errors"

var (
	// ErrInvalidHost 主机不是合法的 http/https/ws/wss URL
	ErrInvalidHost = errors.New("registry: invalid host url")

	// ErrNilToken 撤销时 token 为空
	ErrNilToken = errors.New("registry: token is nil")

	// ErrBroadcast 广播被叠加网络拒绝
	ErrBroadcast = errors.New("registry: broadcast rejected")
)
