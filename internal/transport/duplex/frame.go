package duplex

import (
	"encoding/json"
	"strings"

	"github.com/dep2p/go-msgbox/pkg/types"
)

// 事件名
const (
	EventAuthChallenge = "authenticationChallenge"
	EventAuthenticate  = "authenticate"
	EventAuthSuccess   = "authenticationSuccess"
	EventAuthFailed    = "authenticationFailed"
	EventJoinRoom      = "joinRoom"
	EventLeaveRoom     = "leaveRoom"
	EventSendMessage   = "sendMessage"

	messagePrefix = EventSendMessage + "-"
	ackPrefix     = EventSendMessage + "Ack-"
)

// Frame 线上帧
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NewFrame 构造帧
func NewFrame(event string, v any) (*Frame, error) {
	f := &Frame{Event: event}
	if v != nil {
		data, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		f.Data = data
	}
	return f, nil
}

// Decode 解析帧数据
func (f *Frame) Decode(v any) error {
	return json.Unmarshal(f.Data, v)
}

// Challenge 认证挑战
type Challenge struct {
	Nonce string `json:"nonce"`
}

// Failure 认证失败原因
type Failure struct {
	Description string `json:"description"`
}

// RoomRequest 加入/离开房间
type RoomRequest struct {
	RoomID string `json:"roomId"`
}

// SendRequest 房间内发送消息
type SendRequest struct {
	RoomID  string             `json:"roomId"`
	Message *types.WireMessage `json:"message"`
}

// RoomName 房间名：identity-box
func RoomName(identityKey, box string) string {
	return identityKey + "-" + box
}

// MessageEvent 房间入站消息事件名
func MessageEvent(room string) string { return messagePrefix + room }

// AckEvent 房间确认事件名
func AckEvent(room string) string { return ackPrefix + room }

// parseRoomEvent 返回 (room, isAck, ok)
func parseRoomEvent(event string) (string, bool, bool) {
	if room, ok := strings.CutPrefix(event, ackPrefix); ok {
		return room, true, true
	}
	if room, ok := strings.CutPrefix(event, messagePrefix); ok {
		return room, false, true
	}
	return "", false, false
}
