package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/minio/sha256-simd"

	"github.com/dep2p/go-msgbox/pkg/interfaces"
	"github.com/dep2p/go-msgbox/pkg/types"
)

// 认证请求头
const (
	HeaderIdentityKey = "X-Msgbox-Identity-Key"
	HeaderNonce       = "X-Msgbox-Nonce"
	HeaderTimestamp   = "X-Msgbox-Timestamp"
	HeaderSignature   = "X-Msgbox-Signature"
)

// Protocol 认证签名使用的派生协议
var Protocol = types.ProtocolID{Level: 2, Name: "msgbox auth"}

// DefaultWindow 时间戳允许偏差
const DefaultWindow = 30 * time.Second

// nonceSize nonce 随机字节数（十六进制后 32 字符）
const nonceSize = 16

// Credentials 一次签名的认证信息
type Credentials struct {
	IdentityKey string `json:"identityKey"`
	Nonce       string `json:"nonce"`
	Timestamp   int64  `json:"timestamp"`
	Signature   string `json:"signature"`
}

// Apply 写入请求头
func (c *Credentials) Apply(h http.Header) {
	h.Set(HeaderIdentityKey, c.IdentityKey)
	h.Set(HeaderNonce, c.Nonce)
	h.Set(HeaderTimestamp, strconv.FormatInt(c.Timestamp, 10))
	h.Set(HeaderSignature, c.Signature)
}

// FromHeader 从请求头读取
func FromHeader(h http.Header) (*Credentials, error) {
	c := &Credentials{
		IdentityKey: h.Get(HeaderIdentityKey),
		Nonce:       h.Get(HeaderNonce),
		Signature:   h.Get(HeaderSignature),
	}
	ts := h.Get(HeaderTimestamp)
	if c.IdentityKey == "" || c.Nonce == "" || c.Signature == "" || ts == "" {
		return nil, ErrMissingCredentials
	}
	v, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: timestamp %q", ErrMissingCredentials, ts)
	}
	c.Timestamp = v
	return c, nil
}

// Payload 签名内容
func Payload(body []byte, nonce string, timestamp int64) []byte {
	digest := sha256.Sum256(body)
	return []byte(fmt.Sprintf("%s|%s|%d", hex.EncodeToString(digest[:]), nonce, timestamp))
}

// NewNonce 生成随机 nonce
func NewNonce() (string, error) {
	b := make([]byte, nonceSize)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func scopeFor(nonce, counterparty string) types.KeyScope {
	return types.KeyScope{Protocol: Protocol, KeyID: nonce, Counterparty: counterparty}
}

// ============================================================================
//                              Signer
// ============================================================================

// Signer 以钱包身份签名
type Signer struct {
	wallet interfaces.Wallet
	clock  clock.Clock
}

// NewSigner 创建签名器；clk 为 nil 时使用系统时钟
func NewSigner(w interfaces.Wallet, clk clock.Clock) *Signer {
	if clk == nil {
		clk = clock.New()
	}
	return &Signer{wallet: w, clock: clk}
}

// Sign 为 body 生成认证信息
func (s *Signer) Sign(ctx context.Context, body []byte) (*Credentials, error) {
	identity, err := s.wallet.GetPublicKey(ctx, types.PublicKeyArgs{IdentityKey: true})
	if err != nil {
		return nil, err
	}
	nonce, err := NewNonce()
	if err != nil {
		return nil, err
	}
	ts := s.clock.Now().UnixMilli()
	sig, err := s.wallet.CreateSignature(ctx, scopeFor(nonce, types.CounterpartyAnyone), Payload(body, nonce, ts))
	if err != nil {
		return nil, err
	}
	return &Credentials{
		IdentityKey: identity,
		Nonce:       nonce,
		Timestamp:   ts,
		Signature:   base64.StdEncoding.EncodeToString(sig),
	}, nil
}

// ============================================================================
//                              Verifier
// ============================================================================

// SignatureVerifier 以对端身份校验签名
//
// 由以 "anyone" 为根的钱包实现（wallet.NewAnyone）。
type SignatureVerifier interface {
	VerifySignature(ctx context.Context, scope types.KeyScope, data, signature []byte, forSelf bool) (bool, error)
}

// Verifier 校验认证信息并拒绝重放
type Verifier struct {
	verifier SignatureVerifier
	clock    clock.Clock
	window   time.Duration
	nonces   *expirable.LRU[string, struct{}]
}

// NewVerifier 创建校验器；window <= 0 时使用 DefaultWindow
func NewVerifier(v SignatureVerifier, clk clock.Clock, window time.Duration) *Verifier {
	if clk == nil {
		clk = clock.New()
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &Verifier{
		verifier: v,
		clock:    clk,
		window:   window,
		nonces:   expirable.NewLRU[string, struct{}](65536, nil, 2*window),
	}
}

// Verify 校验 body 的认证信息，返回对端身份公钥
func (v *Verifier) Verify(ctx context.Context, c *Credentials, body []byte) (string, error) {
	if c == nil || c.IdentityKey == "" || c.Nonce == "" || c.Signature == "" {
		return "", ErrMissingCredentials
	}
	now := v.clock.Now().UnixMilli()
	if d := now - c.Timestamp; d > v.window.Milliseconds() || -d > v.window.Milliseconds() {
		return "", ErrStaleTimestamp
	}
	replayKey := c.IdentityKey + "/" + c.Nonce
	if v.nonces.Contains(replayKey) {
		return "", ErrReplayedNonce
	}

	sig, err := base64.StdEncoding.DecodeString(c.Signature)
	if err != nil {
		return "", fmt.Errorf("%w: signature encoding", ErrInvalidSignature)
	}
	ok, err := v.verifier.VerifySignature(ctx, scopeFor(c.Nonce, c.IdentityKey), Payload(body, c.Nonce, c.Timestamp), sig, false)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if !ok {
		return "", ErrInvalidSignature
	}

	v.nonces.Add(replayKey, struct{}{})
	return c.IdentityKey, nil
}
