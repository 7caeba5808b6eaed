package payment

// 默认值
const (
	// DefaultBox 支付消息箱
	DefaultBox = "payment_inbox"

	// DefaultRejectionFee 拒绝支付时保留的手续费
	DefaultRejectionFee uint64 = 1000

	// DefaultMinRefund 低于该金额的退款不发送
	DefaultMinRefund uint64 = 1000
)

// Config 支付扩展配置
type Config struct {
	// Box 支付消息箱名称
	Box string

	// RejectionFee 拒绝时扣除的手续费
	RejectionFee uint64

	// MinRefund 最小退款金额
	MinRefund uint64
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Box:          DefaultBox,
		RejectionFee: DefaultRejectionFee,
		MinRefund:    DefaultMinRefund,
	}
}

// Option 配置选项函数
type Option func(*Config)

// WithBox 设置支付消息箱
func WithBox(box string) Option {
	return func(c *Config) {
		c.Box = box
	}
}

// WithRejectionPolicy 设置拒绝手续费与最小退款
func WithRejectionPolicy(fee, minRefund uint64) Option {
	return func(c *Config) {
		c.RejectionFee = fee
		c.MinRefund = minRefund
	}
}
