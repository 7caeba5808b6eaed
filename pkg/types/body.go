package types

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

// EnvelopeField 加密信封的标记字段
const EnvelopeField = "encryptedMessage"

// ErrBodyNotStructured 结构化消息体必须是 JSON 对象或数组
var ErrBodyNotStructured = errors.New("types: body is not a JSON object or array")

// BodyKind 消息体类型
type BodyKind uint8

const (
	// BodyText 纯文本
	BodyText BodyKind = iota
	// BodyStructured JSON 对象或数组
	BodyStructured
)

// String 返回类型名
func (k BodyKind) String() string {
	if k == BodyStructured {
		return "structured"
	}
	return "text"
}

// Body 消息体标签联合
//
// 字符串与结构化数据的区分只在边界上做一次（ParseBody / UnmarshalJSON），
// 管道内部始终通过 Kind() 判断，不再猜测。
type Body struct {
	kind BodyKind
	text string
	raw  json.RawMessage
}

// TextBody 构造文本消息体
func TextBody(s string) Body {
	return Body{kind: BodyText, text: s}
}

// StructuredBody 将 v 序列化为结构化消息体
func StructuredBody(v any) (Body, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Body{}, fmt.Errorf("types: marshal body: %w", err)
	}
	if !isContainer(data) {
		return Body{}, ErrBodyNotStructured
	}
	return Body{kind: BodyStructured, raw: data}, nil
}

// ParseBody 解析原始字节
//
// JSON 对象或数组解析为 Structured，其余（包括 JSON 标量）一律视为文本。
func ParseBody(data []byte) Body {
	trimmed := bytes.TrimSpace(data)
	if isContainer(trimmed) && json.Valid(trimmed) {
		raw := make(json.RawMessage, len(trimmed))
		copy(raw, trimmed)
		return Body{kind: BodyStructured, raw: raw}
	}
	return TextBody(string(data))
}

func isContainer(data []byte) bool {
	return len(data) > 0 && (data[0] == '{' || data[0] == '[')
}

// Kind 返回消息体类型
func (b Body) Kind() BodyKind { return b.kind }

// IsZero 消息体是否为空
func (b Body) IsZero() bool {
	if b.kind == BodyStructured {
		return len(b.raw) == 0
	}
	return b.text == ""
}

// Text 返回文本内容；结构化消息体返回其 JSON 文本
func (b Body) Text() string {
	if b.kind == BodyStructured {
		return string(b.raw)
	}
	return b.text
}

// Raw 返回结构化 JSON，文本消息体返回 nil
func (b Body) Raw() json.RawMessage {
	if b.kind == BodyStructured {
		return b.raw
	}
	return nil
}

// Decode 将消息体反序列化到 v
func (b Body) Decode(v any) error {
	if b.kind == BodyStructured {
		return json.Unmarshal(b.raw, v)
	}
	return json.Unmarshal([]byte(b.text), v)
}

// Plaintext 返回加密与线上传输使用的字节
func (b Body) Plaintext() []byte {
	if b.kind == BodyStructured {
		return []byte(b.raw)
	}
	return []byte(b.text)
}

// Canonical 返回计算消息 ID 使用的 JSON 编码
//
// 文本编码为 JSON 字符串，结构化数据保持原始 JSON。
func (b Body) Canonical() []byte {
	data, _ := b.MarshalJSON()
	return data
}

// Envelope 若消息体是加密信封则返回其密文（base64 已解码）
func (b Body) Envelope() ([]byte, bool) {
	if b.kind != BodyStructured || len(b.raw) == 0 || b.raw[0] != '{' {
		return nil, false
	}
	var env map[string]json.RawMessage
	if err := json.Unmarshal(b.raw, &env); err != nil {
		return nil, false
	}
	field, ok := env[EnvelopeField]
	if !ok {
		return nil, false
	}
	var encoded string
	if err := json.Unmarshal(field, &encoded); err != nil || encoded == "" {
		return nil, false
	}
	ciphertext, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, false
	}
	return ciphertext, true
}

// EnvelopeBody 将密文包装为加密信封
func EnvelopeBody(ciphertext []byte) Body {
	data, _ := json.Marshal(map[string]string{
		EnvelopeField: base64.StdEncoding.EncodeToString(ciphertext),
	})
	return Body{kind: BodyStructured, raw: data}
}

// MarshalJSON 文本编码为 JSON 字符串，结构化数据原样输出
func (b Body) MarshalJSON() ([]byte, error) {
	if b.kind == BodyStructured {
		if len(b.raw) == 0 {
			return []byte("null"), nil
		}
		return b.raw, nil
	}
	return json.Marshal(b.text)
}

// UnmarshalJSON JSON 字符串解析为文本，对象/数组解析为结构化数据
func (b *Body) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	switch {
	case len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")):
		*b = Body{}
	case trimmed[0] == '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*b = TextBody(s)
	case isContainer(trimmed):
		raw := make(json.RawMessage, len(trimmed))
		copy(raw, trimmed)
		*b = Body{kind: BodyStructured, raw: raw}
	default:
		*b = TextBody(string(trimmed))
	}
	return nil
}
