package messaging

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/dep2p/go-msgbox/pkg/types"
)

// Protocol 消息 ID 与消息体加密使用的派生协议
var Protocol = types.ProtocolID{Level: 1, Name: "messagebox"}

// keyID 消息核心固定使用的 keyID
const keyID = "1"

func scope(counterparty string) types.KeyScope {
	return types.KeyScope{Protocol: Protocol, KeyID: keyID, Counterparty: counterparty}
}

// MessageID 计算确定性消息 ID：HMAC(canonical(body))，对端为 recipient（或 self）
func (c *Client) MessageID(ctx context.Context, recipient string, body types.Body) (string, error) {
	cp, err := c.counterparty(ctx, recipient)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrIDGeneration, err)
	}
	mac, err := c.wallet.CreateHMAC(ctx, scope(cp), body.Canonical())
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrIDGeneration, err)
	}
	return hex.EncodeToString(mac), nil
}

// encryptBody 将消息体加密为信封
func (c *Client) encryptBody(ctx context.Context, recipient string, body types.Body) (types.Body, error) {
	cp, err := c.counterparty(ctx, recipient)
	if err != nil {
		return types.Body{}, fmt.Errorf("%w: %v", ErrEncrypt, err)
	}
	ciphertext, err := c.wallet.Encrypt(ctx, scope(cp), body.Plaintext())
	if err != nil {
		return types.Body{}, fmt.Errorf("%w: %v", ErrEncrypt, err)
	}
	return types.EnvelopeBody(ciphertext), nil
}

// openBody 解析线上消息体，信封以 sender（或 self）为对端解密
//
// 非信封消息体原样返回。
func (c *Client) openBody(ctx context.Context, sender string, wire types.WireBody) (types.Body, error) {
	body := types.ParseBody([]byte(wire))
	ciphertext, ok := body.Envelope()
	if !ok {
		return body, nil
	}
	cp, err := c.counterparty(ctx, sender)
	if err != nil {
		return types.Body{}, fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	plaintext, err := c.wallet.Decrypt(ctx, scope(cp), ciphertext)
	if err != nil {
		return types.Body{}, fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	return types.ParseBody(plaintext), nil
}

// toMessage 将线上消息转为解密后的 Message；失败时消息体替换为哨兵文本
func (c *Client) toMessage(ctx context.Context, wire *types.WireMessage) (*types.Message, bool) {
	body, err := c.openBody(ctx, wire.Sender, wire.Body)
	failed := err != nil
	if failed {
		logger.Warn("无法解密消息", "messageId", wire.MessageID, "sender", wire.Sender, "err", err)
		body = types.TextBody(DecryptFailedBody)
	}
	return &types.Message{
		ID:        wire.MessageID,
		Sender:    wire.Sender,
		Recipient: wire.Recipient,
		Box:       wire.MessageBox,
		Body:      body,
		CreatedAt: wire.CreatedAt,
		UpdatedAt: wire.UpdatedAt,
	}, failed
}
