package types

import (
	"errors"
	"fmt"
)

// ErrorCode 结构化错误码
//
// 调用方通过错误码决定吞掉还是上抛，而不是检查具体错误类型。
type ErrorCode string

const (
	// CodeTransport 网络或连接失败
	CodeTransport ErrorCode = "transport"
	// CodeUnauthorized 认证失败（401 类）
	CodeUnauthorized ErrorCode = "unauthorized"
	// CodeNotFound 主机找不到目标（如未知消息 ID）
	CodeNotFound ErrorCode = "not_found"
	// CodeProtocol 主机返回 status:"error"
	CodeProtocol ErrorCode = "protocol"
	// CodeDecode 响应无法解析
	CodeDecode ErrorCode = "decode"
)

// 与错误码对应的哨兵错误，可用于 errors.Is
var (
	ErrTransport    = errors.New("transport failure")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrProtocol     = errors.New("host reported error")
	ErrDecode       = errors.New("malformed response")
)

func sentinelFor(code ErrorCode) error {
	switch code {
	case CodeTransport:
		return ErrTransport
	case CodeUnauthorized:
		return ErrUnauthorized
	case CodeNotFound:
		return ErrNotFound
	case CodeProtocol:
		return ErrProtocol
	case CodeDecode:
		return ErrDecode
	}
	return nil
}

// HostError 单个主机上的失败
type HostError struct {
	Host        string
	Op          string
	Code        ErrorCode
	Status      int
	Description string
	Err         error
}

// Error 实现 error 接口
func (e *HostError) Error() string {
	reason := e.Description
	if reason == "" && e.Err != nil {
		reason = e.Err.Error()
	}
	if reason == "" {
		reason = string(e.Code)
	}
	return fmt.Sprintf("%s %s: %s", e.Op, e.Host, reason)
}

// Unwrap 返回底层错误
func (e *HostError) Unwrap() error { return e.Err }

// Is 按错误码匹配哨兵错误
func (e *HostError) Is(target error) bool {
	s := sentinelFor(e.Code)
	return s != nil && s == target
}

// CodeOf 提取错误链中的错误码，无 HostError 时返回空
func CodeOf(err error) ErrorCode {
	var he *HostError
	if errors.As(err, &he) {
		return he.Code
	}
	return ""
}
