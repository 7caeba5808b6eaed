package server

import "errors"

var (
	// ErrAlreadyStarted 服务已启动
	ErrAlreadyStarted = errors.New("server: already started")

	// ErrNotStarted 服务未启动
	ErrNotStarted = errors.New("server: not started")
)

// 响应中的错误码
const (
	codeInvalidRequest = "invalid_request"
	codeNotFound       = "not_found"
	codeUnauthorized   = "unauthorized"
	codeRateLimited    = "rate_limited"
	codeInternal       = "internal"
)
