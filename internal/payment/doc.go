// Package payment 在消息核心之上实现点对点支付
//
// 支付方为接收方派生一次性公钥，构建锁定到该公钥的输出，
// 并把支付 token 作为加密消息发送到接收方的 payment_inbox。
// 接收方接受时将输出纳入钱包并确认消息；拒绝时扣除手续费后退款。
//
//	svc := payment.New(w, client)
//	res, err := svc.SendPayment(ctx, recipient, 5000)
//
//	incoming, err := svc.ListIncomingPayments(ctx)
//	for _, p := range incoming {
//	    _ = svc.AcceptPayment(ctx, p)
//	}
package payment
