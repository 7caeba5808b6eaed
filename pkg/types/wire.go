package types

// 请求/响应通道路径
const (
	PathSendMessage        = "/sendMessage"
	PathListMessages       = "/listMessages"
	PathAcknowledgeMessage = "/acknowledgeMessage"
)

// SendMessageRequest POST /sendMessage
type SendMessageRequest struct {
	Message *WireMessage `json:"message"`
}

// SendMessageResponse POST /sendMessage 应答
type SendMessageResponse struct {
	Status      string `json:"status"`
	MessageID   string `json:"messageId,omitempty"`
	Description string `json:"description,omitempty"`
}

// ListMessagesRequest POST /listMessages
type ListMessagesRequest struct {
	MessageBox string `json:"messageBox"`
}

// ListMessagesResponse POST /listMessages 应答
type ListMessagesResponse struct {
	Status   string         `json:"status"`
	Messages []*WireMessage `json:"messages"`
}

// AcknowledgeRequest POST /acknowledgeMessage
type AcknowledgeRequest struct {
	MessageIDs []string `json:"messageIds"`
}

// StatusResponse 只携带状态的应答
type StatusResponse struct {
	Status      string `json:"status"`
	Description string `json:"description,omitempty"`
	Code        string `json:"code,omitempty"`
}
