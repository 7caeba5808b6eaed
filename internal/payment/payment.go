package payment

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/dep2p/go-msgbox/pkg/interfaces"
	"github.com/dep2p/go-msgbox/pkg/lib/ledger"
	"github.com/dep2p/go-msgbox/pkg/lib/log"
	"github.com/dep2p/go-msgbox/pkg/types"
)

var logger = log.Logger("payment")

// nonceSize 派生前缀/后缀的随机字节数
const nonceSize = 16

// Service 支付扩展
type Service struct {
	wallet interfaces.Wallet
	box    interfaces.MessageBox
	config *Config
}

// New 创建支付扩展
func New(w interfaces.Wallet, box interfaces.MessageBox, opts ...Option) *Service {
	config := DefaultConfig()
	for _, opt := range opts {
		opt(config)
	}
	return &Service{wallet: w, box: box, config: config}
}

// Box 支付消息箱名称
func (s *Service) Box() string { return s.config.Box }

// ============================================================================
//                              发送
// ============================================================================

// CreatePaymentToken 构建支付给 recipient 的 token
//
// 输出锁定到以 "prefix suffix" 为 keyID、recipient 为对端派生的公钥，
// 只有接收方能凭同一派生信息解锁。
func (s *Service) CreatePaymentToken(ctx context.Context, recipient string, amount uint64) (*types.PaymentToken, error) {
	if strings.TrimSpace(recipient) == "" {
		return nil, ErrMissingRecipient
	}
	if amount == 0 {
		return nil, ErrInvalidAmount
	}

	prefix, err := newNonce()
	if err != nil {
		return nil, err
	}
	suffix, err := newNonce()
	if err != nil {
		return nil, err
	}

	keyHex, err := s.wallet.GetPublicKey(ctx, types.PublicKeyArgs{
		Scope: types.KeyScope{
			Protocol:     types.PaymentProtocol,
			KeyID:        prefix + " " + suffix,
			Counterparty: recipient,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("payment: derive recipient key: %w", err)
	}
	key, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, fmt.Errorf("payment: derive recipient key: %w", err)
	}

	action, err := s.wallet.CreateAction(ctx, types.CreateActionArgs{
		Description: "message box payment",
		Outputs: []types.ActionOutput{{
			Satoshis:      amount,
			LockingScript: ledger.P2PKHLock(key),
			Description:   "payment to " + log.TruncateID(recipient, 16),
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("payment: create action: %w", err)
	}

	return &types.PaymentToken{
		DerivationPrefix: prefix,
		DerivationSuffix: suffix,
		Transaction:      action.Tx,
		Amount:           amount,
	}, nil
}

// SendPayment 经请求通道发送支付
func (s *Service) SendPayment(ctx context.Context, recipient string, amount uint64) (*types.SendResult, error) {
	msg, err := s.outbound(ctx, recipient, amount)
	if err != nil {
		return nil, err
	}
	return s.box.Send(ctx, msg)
}

// SendLivePayment 优先经全双工通道发送支付
func (s *Service) SendLivePayment(ctx context.Context, recipient string, amount uint64) (*types.SendResult, error) {
	msg, err := s.outbound(ctx, recipient, amount)
	if err != nil {
		return nil, err
	}
	return s.box.SendLive(ctx, msg)
}

func (s *Service) outbound(ctx context.Context, recipient string, amount uint64) (*types.OutboundMessage, error) {
	token, err := s.CreatePaymentToken(ctx, recipient, amount)
	if err != nil {
		return nil, err
	}
	body, err := types.StructuredBody(token)
	if err != nil {
		return nil, err
	}
	logger.Info("发送支付", "recipient", log.TruncateID(recipient, 16), "amount", amount)
	return &types.OutboundMessage{Recipient: recipient, Box: s.config.Box, Body: body}, nil
}

// ============================================================================
//                              接收
// ============================================================================

// ListIncomingPayments 列出支付消息箱中的支付
//
// 消息体无法解析为 token 时返回空 token，由调用方决定如何处理。
func (s *Service) ListIncomingPayments(ctx context.Context) ([]*types.IncomingPayment, error) {
	msgs, err := s.box.List(ctx, s.config.Box)
	if err != nil {
		return nil, err
	}
	payments := make([]*types.IncomingPayment, 0, len(msgs))
	for _, m := range msgs {
		payments = append(payments, toIncoming(m))
	}
	return payments, nil
}

// ListenForPayments 实时接收支付
func (s *Service) ListenForPayments(ctx context.Context, onPayment func(*types.IncomingPayment)) error {
	return s.box.Listen(ctx, s.config.Box, func(m *types.Message) {
		onPayment(toIncoming(m))
	})
}

func toIncoming(m *types.Message) *types.IncomingPayment {
	p := &types.IncomingPayment{MessageID: m.ID, Sender: m.Sender}
	var token types.PaymentToken
	if err := m.Body.Decode(&token); err != nil {
		logger.Debug("支付消息体无法解析", "messageId", log.TruncateID(m.ID, 16), "err", err)
		return p
	}
	p.Token = token
	return p
}

// AcceptPayment 将支付输出纳入钱包并确认消息
//
// 任何失败都只返回 ErrPaymentNotReceived，原因写入日志。
func (s *Service) AcceptPayment(ctx context.Context, p *types.IncomingPayment) error {
	if p == nil {
		return ErrNilPayment
	}
	_, err := s.wallet.InternalizeAction(ctx, types.InternalizeArgs{
		Tx: p.Token.Transaction,
		Outputs: []types.InternalizeOutput{{
			OutputIndex: 0,
			Protocol:    types.InternalizeWalletPayment,
			PaymentRemittance: &types.PaymentRemittance{
				DerivationPrefix:  p.Token.DerivationPrefix,
				DerivationSuffix:  p.Token.DerivationSuffix,
				SenderIdentityKey: p.Sender,
			},
		}},
		Description: "payment from " + log.TruncateID(p.Sender, 16),
	})
	if err != nil {
		logger.Warn("支付纳入失败", "messageId", log.TruncateID(p.MessageID, 16), "err", err)
		return ErrPaymentNotReceived
	}
	if err := s.box.Acknowledge(ctx, []string{p.MessageID}); err != nil {
		logger.Warn("支付消息确认失败", "messageId", log.TruncateID(p.MessageID, 16), "err", err)
		return ErrPaymentNotReceived
	}
	logger.Info("已接受支付", "sender", log.TruncateID(p.Sender, 16), "amount", p.Token.Amount)
	return nil
}

// RejectPayment 拒绝支付
//
// 扣除手续费后的金额低于最小退款时只确认消息；否则先接受，
// 再把扣费后的金额退还给发送方，最后再确认一次（失败只记日志）。
func (s *Service) RejectPayment(ctx context.Context, p *types.IncomingPayment) error {
	if p == nil {
		return ErrNilPayment
	}
	amount, fee := p.Token.Amount, s.config.RejectionFee
	if amount < fee || amount-fee < s.config.MinRefund {
		logger.Info("支付金额不足以退款，仅确认", "messageId", log.TruncateID(p.MessageID, 16), "amount", amount)
		return s.box.Acknowledge(ctx, []string{p.MessageID})
	}

	if err := s.AcceptPayment(ctx, p); err != nil {
		return err
	}
	refund := amount - fee
	if _, err := s.SendPayment(ctx, p.Sender, refund); err != nil {
		return fmt.Errorf("%w: %w", ErrRefundFailed, err)
	}
	if err := s.box.Acknowledge(ctx, []string{p.MessageID}); err != nil {
		logger.Debug("退款后再次确认失败", "messageId", log.TruncateID(p.MessageID, 16), "err", err)
	}
	logger.Info("已拒绝支付并退款", "sender", log.TruncateID(p.Sender, 16), "refund", refund)
	return nil
}

func newNonce() (string, error) {
	b := make([]byte, nonceSize)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("payment: nonce: %w", err)
	}
	return base64.StdEncoding.EncodeToString(b), nil
}
