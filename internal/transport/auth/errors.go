package auth

import "errors"

var (
	// ErrMissingCredentials 缺少认证字段
	ErrMissingCredentials = errors.New("auth: missing credentials")

	// ErrStaleTimestamp 时间戳超出允许窗口
	ErrStaleTimestamp = errors.New("auth: timestamp outside allowed window")

	// ErrReplayedNonce nonce 已被使用
	ErrReplayedNonce = errors.New("auth: nonce already used")

	// ErrInvalidSignature 签名无效
	ErrInvalidSignature = errors.New("auth: invalid signature")
)
