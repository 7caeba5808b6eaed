package types

// PaymentToken 指向接收方派生公钥的一次性可花费输出描述
//
// 通过接受（internalize）被消费一次，或在直接拒绝时永不消费。
type PaymentToken struct {
	DerivationPrefix string `json:"derivationPrefix"`
	DerivationSuffix string `json:"derivationSuffix"`
	Transaction      []byte `json:"transaction"`
	Amount           uint64 `json:"amount"`
}

// IsZero token 是否为空（消息体无法解析时返回空 token）
func (t *PaymentToken) IsZero() bool {
	return t.DerivationPrefix == "" && t.DerivationSuffix == "" &&
		len(t.Transaction) == 0 && t.Amount == 0
}

// IncomingPayment 以支付视角看待的收件箱消息
type IncomingPayment struct {
	MessageID string       `json:"messageId"`
	Sender    string       `json:"sender"`
	Token     PaymentToken `json:"token"`
}
