package types

// 特殊对端
const (
	// CounterpartySelf 对端为自身身份
	CounterpartySelf = "self"
	// CounterpartyAnyone 任何人都可推导的公共对端
	CounterpartyAnyone = "anyone"
)

// SecurityLevel 协议安全级别
type SecurityLevel int

// ProtocolID 密钥派生协议
type ProtocolID struct {
	Level SecurityLevel `json:"level"`
	Name  string        `json:"name"`
}

// KeyScope 一次密码学操作的作用域
type KeyScope struct {
	Protocol     ProtocolID
	KeyID        string
	Counterparty string
}

// PublicKeyArgs 公钥查询参数
type PublicKeyArgs struct {
	// IdentityKey 为 true 时返回身份公钥，忽略其余字段
	IdentityKey bool
	Scope       KeyScope
	// ForSelf 为 true 时返回自身派生公钥，否则返回对端派生公钥
	ForSelf bool
}

// ActionInput 交易输入
type ActionInput struct {
	Outpoint        Outpoint
	UnlockingScript []byte
	Description     string
}

// ActionOutput 交易输出
type ActionOutput struct {
	Satoshis      uint64
	LockingScript []byte
	Description   string
}

// CreateActionArgs 构建交易参数
type CreateActionArgs struct {
	Description string
	Inputs      []ActionInput
	Outputs     []ActionOutput
}

// ActionResult 构建结果
type ActionResult struct {
	Txid string
	Tx   []byte
}

// PaymentRemittance 支付派生信息
type PaymentRemittance struct {
	DerivationPrefix  string
	DerivationSuffix  string
	SenderIdentityKey string
}

// InternalizeOutput 待纳入钱包的输出
type InternalizeOutput struct {
	OutputIndex       uint32
	Protocol          string
	PaymentRemittance *PaymentRemittance
}

// InternalizeArgs 纳入钱包参数
type InternalizeArgs struct {
	Tx          []byte
	Outputs     []InternalizeOutput
	Description string
}

// InternalizeResult 纳入结果
type InternalizeResult struct {
	Accepted bool
}

// 钱包标准协议
var (
	// PaymentProtocol 支付输出的派生协议
	PaymentProtocol = ProtocolID{Level: 2, Name: "3241645161d8"}
)

// 纳入协议名称
const (
	InternalizeWalletPayment = "wallet payment"
	InternalizeBasket        = "basket insertion"
)
