package messaging

import "errors"

var (
	// ErrMissingRecipient 缺少接收方
	ErrMissingRecipient = errors.New("messaging: recipient is required")

	// ErrMissingBox 缺少消息箱
	ErrMissingBox = errors.New("messaging: message box is required")

	// ErrMissingBody 缺少消息体
	ErrMissingBody = errors.New("messaging: message body is required")

	// ErrMissingMessageIDs 确认列表为空
	ErrMissingMessageIDs = errors.New("messaging: message ids are required")

	// ErrNoHost 未配置主机
	ErrNoHost = errors.New("messaging: no host configured")

	// ErrHostChanged 初始化期间客户端被切换到其他主机
	ErrHostChanged = errors.New("messaging: host changed during initialization")

	// ErrIDGeneration 消息 ID 生成失败
	ErrIDGeneration = errors.New("messaging: failed to generate identifier")

	// ErrEncrypt 消息体加密失败
	ErrEncrypt = errors.New("messaging: failed to encrypt")

	// ErrDecrypt 消息体解密失败
	ErrDecrypt = errors.New("messaging: failed to decrypt")

	// ErrNoHostReachable 所有主机都失败
	ErrNoHostReachable = errors.New("messaging: no host reachable")

	// ErrAcknowledgeFailed 没有主机接受确认
	ErrAcknowledgeFailed = errors.New("messaging: acknowledge failed on every host")

	// ErrSendFailed 主机拒绝或无法投递
	ErrSendFailed = errors.New("messaging: send failed")
)

// DecryptFailedBody 解密或解析失败时替代消息体的哨兵文本
const DecryptFailedBody = "[Error: Failed to decrypt or parse message]"
