package types

import (
	"fmt"
)

// Outpoint 账本输出的唯一标识
type Outpoint struct {
	Txid  string `json:"txid"`
	Index uint32 `json:"outputIndex"`
}

// String 返回 txid.index 形式
func (o Outpoint) String() string {
	return fmt.Sprintf("%s.%d", o.Txid, o.Index)
}

// AdvertisementToken 绑定身份公钥与主机 URL 的链上可花费承诺
//
// 由 (Txid, OutputIndex) 唯一标识。同一身份可以同时存在多个有效 token。
type AdvertisementToken struct {
	IdentityKey   string `json:"identityKey"`
	Host          string `json:"host"`
	Txid          string `json:"txid"`
	OutputIndex   uint32 `json:"outputIndex"`
	LockingScript []byte `json:"lockingScript"`
	Beef          []byte `json:"beef,omitempty"`
}

// Outpoint 返回 token 对应的输出
func (t *AdvertisementToken) Outpoint() Outpoint {
	return Outpoint{Txid: t.Txid, Index: t.OutputIndex}
}

// LookupQuestion 叠加网络查询
type LookupQuestion struct {
	Service string `json:"service"`
	Query   any    `json:"query"`
}

// AdvertisementQuery 广告查询条件
type AdvertisementQuery struct {
	IdentityKey string `json:"identityKey,omitempty"`
	Host        string `json:"host,omitempty"`
}

// LookupOutput 查询返回的输出引用
type LookupOutput struct {
	Beef        []byte `json:"beef"`
	OutputIndex uint32 `json:"outputIndex"`
}

// LookupAnswer 查询应答
type LookupAnswer struct {
	Type    string         `json:"type"`
	Outputs []LookupOutput `json:"outputs"`
}

// BroadcastResult 广播结果
type BroadcastResult struct {
	Txid   string   `json:"txid"`
	Topics []string `json:"topics,omitempty"`
}

// 叠加网络上广告使用的服务与主题名
const (
	// LookupServiceMessageBox 广告查询服务
	LookupServiceMessageBox = "ls_messagebox"
	// TopicMessageBox 广告广播主题
	TopicMessageBox = "tm_messagebox"
	// AnswerOutputList 输出列表类型的查询应答
	AnswerOutputList = "output-list"
)

// AdvertisementProtocol 广告锁定密钥使用的派生协议
var AdvertisementProtocol = ProtocolID{Level: 1, Name: "messagebox advertisement"}
