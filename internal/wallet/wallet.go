package wallet

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/minio/sha256-simd"
	"github.com/mr-tron/base58"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/dep2p/go-msgbox/pkg/interfaces"
	"github.com/dep2p/go-msgbox/pkg/lib/ledger"
	"github.com/dep2p/go-msgbox/pkg/lib/log"
	"github.com/dep2p/go-msgbox/pkg/types"
)

var logger = log.Logger("wallet")

// Wallet 本地开发钱包
type Wallet struct {
	keys keyDeriver

	mu           sync.Mutex
	internalized map[types.Outpoint]uint64
	balance      uint64
}

var _ interfaces.Wallet = (*Wallet)(nil)

// New 使用给定私钥创建钱包
func New(priv *secp256k1.PrivateKey) *Wallet {
	return &Wallet{
		keys:         keyDeriver{root: priv},
		internalized: make(map[types.Outpoint]uint64),
	}
}

// Generate 生成新身份
func Generate() (*Wallet, error) {
	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}
	return New(priv), nil
}

// NewAnyone 返回以 "anyone" 私钥为根的钱包，仅用于验证公开签名
func NewAnyone() *Wallet {
	return New(anyoneKey)
}

// LoadOrCreate 从文件加载私钥（base58），文件不存在时生成并保存
func LoadOrCreate(path string) (*Wallet, error) {
	data, err := os.ReadFile(path) //nolint:gosec // 用户指定的密钥文件
	if err == nil {
		raw, err := base58.Decode(strings.TrimSpace(string(data)))
		if err != nil || len(raw) != secp256k1.PrivKeyBytesLen {
			return nil, ErrInvalidKeyFile
		}
		return New(secp256k1.PrivKeyFromBytes(raw)), nil
	}
	if !os.IsNotExist(err) {
		return nil, err
	}

	w, err := Generate()
	if err != nil {
		return nil, err
	}
	encoded := base58.Encode(w.keys.root.Serialize())
	if err := os.WriteFile(path, []byte(encoded+"\n"), 0o600); err != nil {
		return nil, fmt.Errorf("wallet: save key: %w", err)
	}
	logger.Info("已生成新身份", "path", path, "identityKey", log.TruncateID(w.IdentityKey(), 16))
	return w, nil
}

// IdentityKey 身份公钥（十六进制）
func (w *Wallet) IdentityKey() string {
	return hex.EncodeToString(w.keys.identity().SerializeCompressed())
}

// GetPublicKey 实现 interfaces.Wallet
func (w *Wallet) GetPublicKey(_ context.Context, args types.PublicKeyArgs) (string, error) {
	if args.IdentityKey {
		return w.IdentityKey(), nil
	}
	pub, err := w.keys.derivePublic(args.Scope, args.ForSelf)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(pub.SerializeCompressed()), nil
}

// CreateHMAC 实现 interfaces.Wallet
func (w *Wallet) CreateHMAC(_ context.Context, scope types.KeyScope, data []byte) ([]byte, error) {
	key, err := w.keys.symmetricKey(scope)
	if err != nil {
		return nil, err
	}
	return hmacSHA256(key, data), nil
}

// Encrypt 实现 interfaces.Wallet，输出为 nonce || ciphertext
func (w *Wallet) Encrypt(_ context.Context, scope types.KeyScope, plaintext []byte) ([]byte, error) {
	key, err := w.keys.symmetricKey(scope)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt 实现 interfaces.Wallet
func (w *Wallet) Decrypt(_ context.Context, scope types.KeyScope, ciphertext []byte) ([]byte, error) {
	key, err := w.keys.symmetricKey(scope)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < aead.NonceSize()+aead.Overhead() {
		return nil, fmt.Errorf("%w: ciphertext too short", ErrDecrypt)
	}
	nonce, sealed := ciphertext[:aead.NonceSize()], ciphertext[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	return plaintext, nil
}

// CreateSignature 实现 interfaces.Wallet，返回 DER 编码签名
func (w *Wallet) CreateSignature(_ context.Context, scope types.KeyScope, data []byte) ([]byte, error) {
	priv, err := w.keys.derivePrivate(scope)
	if err != nil {
		return nil, err
	}
	digest := sha256.Sum256(data)
	return ecdsa.Sign(priv, digest[:]).Serialize(), nil
}

// VerifySignature 校验 scope 下对端（forSelf 为 true 时为自身）的签名
func (w *Wallet) VerifySignature(_ context.Context, scope types.KeyScope, data, signature []byte, forSelf bool) (bool, error) {
	pub, err := w.keys.derivePublic(scope, forSelf)
	if err != nil {
		return false, err
	}
	sig, err := ecdsa.ParseDERSignature(signature)
	if err != nil {
		return false, nil
	}
	digest := sha256.Sum256(data)
	return sig.Verify(digest[:], pub), nil
}

// CreateAction 实现 interfaces.Wallet
//
// 开发账本没有资金模型，交易附带一个随机的合成资金输入，保证每次构建的 txid 不同。
func (w *Wallet) CreateAction(_ context.Context, args types.CreateActionArgs) (*types.ActionResult, error) {
	funding := make([]byte, 32)
	if _, err := rand.Read(funding); err != nil {
		return nil, err
	}

	tx := &ledger.Transaction{Version: 1}
	for _, in := range args.Inputs {
		tx.Inputs = append(tx.Inputs, ledger.Input{
			PrevTxid:        in.Outpoint.Txid,
			PrevIndex:       in.Outpoint.Index,
			UnlockingScript: in.UnlockingScript,
			Sequence:        0xffffffff,
		})
	}
	tx.Inputs = append(tx.Inputs, ledger.Input{
		PrevTxid: hex.EncodeToString(funding),
		Sequence: 0xffffffff,
	})
	for _, out := range args.Outputs {
		tx.Outputs = append(tx.Outputs, ledger.Output{
			Satoshis:      out.Satoshis,
			LockingScript: out.LockingScript,
		})
	}

	raw, err := tx.Encode()
	if err != nil {
		return nil, err
	}
	txid := ledger.TxIDOf(raw)
	logger.Debug("已构建交易", "txid", log.TruncateID(txid, 16), "description", args.Description,
		"inputs", len(args.Inputs), "outputs", len(args.Outputs))
	return &types.ActionResult{Txid: txid, Tx: raw}, nil
}

// InternalizeAction 实现 interfaces.Wallet
func (w *Wallet) InternalizeAction(ctx context.Context, args types.InternalizeArgs) (*types.InternalizeResult, error) {
	tx, err := ledger.Decode(args.Tx)
	if err != nil {
		return nil, err
	}
	txid := ledger.TxIDOf(args.Tx)

	accepted := make(map[types.Outpoint]uint64, len(args.Outputs))
	for _, out := range args.Outputs {
		if int(out.OutputIndex) >= len(tx.Outputs) {
			return nil, ledger.ErrOutputIndex
		}
		output := tx.Outputs[out.OutputIndex]

		switch out.Protocol {
		case types.InternalizeWalletPayment:
			if out.PaymentRemittance == nil {
				return nil, ErrMissingRemittance
			}
			r := out.PaymentRemittance
			expected, err := w.GetPublicKey(ctx, types.PublicKeyArgs{
				Scope: types.KeyScope{
					Protocol:     types.PaymentProtocol,
					KeyID:        r.DerivationPrefix + " " + r.DerivationSuffix,
					Counterparty: r.SenderIdentityKey,
				},
				ForSelf: true,
			})
			if err != nil {
				return nil, err
			}
			pub, _ := hex.DecodeString(expected)
			if !ledger.IsP2PKHFor(output.LockingScript, pub) {
				return nil, ErrOutputNotOurs
			}
		case types.InternalizeBasket:
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownProtocol, out.Protocol)
		}
		accepted[types.Outpoint{Txid: txid, Index: out.OutputIndex}] = output.Satoshis
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	for op := range accepted {
		if _, ok := w.internalized[op]; ok {
			return nil, fmt.Errorf("%w: %s", ErrAlreadyInternalized, op)
		}
	}
	for op, sats := range accepted {
		w.internalized[op] = sats
		w.balance += sats
	}
	logger.Info("已纳入输出", "txid", log.TruncateID(txid, 16), "outputs", len(accepted),
		"description", args.Description)
	return &types.InternalizeResult{Accepted: true}, nil
}

// Balance 已纳入输出的总额
func (w *Wallet) Balance() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.balance
}
