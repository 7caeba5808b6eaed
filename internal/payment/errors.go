package payment

import "errors"

var (
	// ErrInvalidAmount 支付金额必须为正
	ErrInvalidAmount = errors.New("payment: amount must be greater than zero")

	// ErrMissingRecipient 缺少接收方
	ErrMissingRecipient = errors.New("payment: recipient is required")

	// ErrPaymentNotReceived 接受支付失败，具体原因只记录日志
	ErrPaymentNotReceived = errors.New("payment: payment not received")

	// ErrRefundFailed 拒绝支付时退款失败
	ErrRefundFailed = errors.New("payment: refund failed")

	// ErrNilPayment 支付为空
	ErrNilPayment = errors.New("payment: payment is nil")
)
