package types

import (
	"bytes"
	"encoding/json"
	"time"
)

// 响应状态
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Message 解密后的收件箱消息
//
// 消息归属于 Box，直到被确认（acknowledge）。ID 由消息体与对端身份确定性派生，
// 重复发送是幂等的，重复投递可被检测。
type Message struct {
	ID           string     `json:"messageId"`
	Sender       string     `json:"sender,omitempty"`
	Recipient    string     `json:"recipient,omitempty"`
	Box          string     `json:"messageBox,omitempty"`
	Body         Body       `json:"body"`
	CreatedAt    *time.Time `json:"created_at,omitempty"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`
	Acknowledged bool       `json:"acknowledged,omitempty"`
}

// Timestamp 返回尽力而为的排序时间戳（CreatedAt 优先，其次 UpdatedAt）
func (m *Message) Timestamp() (time.Time, bool) {
	switch {
	case m.CreatedAt != nil && !m.CreatedAt.IsZero():
		return *m.CreatedAt, true
	case m.UpdatedAt != nil && !m.UpdatedAt.IsZero():
		return *m.UpdatedAt, true
	default:
		return time.Time{}, false
	}
}

// WireBody 线上传输的消息体
//
// 主机始终以字符串保存消息体；解码时同时容忍对象形式，统一转为字符串。
type WireBody string

// UnmarshalJSON 接受 JSON 字符串或任意 JSON 值
func (w *WireBody) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*w = WireBody(s)
		return nil
	}
	if bytes.Equal(trimmed, []byte("null")) {
		*w = ""
		return nil
	}
	*w = WireBody(trimmed)
	return nil
}

// WireMessage 主机与客户端之间传输的消息
type WireMessage struct {
	MessageID  string     `json:"messageId"`
	Sender     string     `json:"sender,omitempty"`
	Recipient  string     `json:"recipient,omitempty"`
	MessageBox string     `json:"messageBox,omitempty"`
	Body       WireBody   `json:"body"`
	CreatedAt  *time.Time `json:"created_at,omitempty"`
	UpdatedAt  *time.Time `json:"updated_at,omitempty"`
}

// OutboundMessage 待发送的消息及发送选项
type OutboundMessage struct {
	Recipient string
	Box       string
	Body      Body

	// MessageID 调用方指定的 ID，为空时由 HMAC 派生
	MessageID string
	// SkipEncryption 以明文发送
	SkipEncryption bool
	// Host 覆盖目标主机解析
	Host string
}

// SendResult 发送结果
type SendResult struct {
	Status    string `json:"status"`
	MessageID string `json:"messageId"`
}

// Ack 实时通道房间确认事件
type Ack struct {
	Status      string `json:"status"`
	MessageID   string `json:"messageId,omitempty"`
	Description string `json:"description,omitempty"`
	Code        string `json:"code,omitempty"`
}

// OK 确认是否成功
func (a *Ack) OK() bool {
	return a != nil && a.Status == StatusSuccess
}
