package duplex

import "errors"

var (
	// ErrNotConnected 通道未连接
	ErrNotConnected = errors.New("duplex: channel not connected")

	// ErrAuthFailed 握手认证失败
	ErrAuthFailed = errors.New("duplex: authentication failed")

	// ErrHandshakeTimeout 握手超时
	ErrHandshakeTimeout = errors.New("duplex: handshake timeout")

	// ErrUnexpectedFrame 握手期间收到非预期帧
	ErrUnexpectedFrame = errors.New("duplex: unexpected frame")

	// ErrEmptyRoom 房间名为空
	ErrEmptyRoom = errors.New("duplex: room is empty")
)
