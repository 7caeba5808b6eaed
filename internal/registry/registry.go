package registry

import (
	"context"
	"encoding/hex"
	"fmt"
	"net/url"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/dep2p/go-msgbox/pkg/interfaces"
	"github.com/dep2p/go-msgbox/pkg/lib/ledger"
	"github.com/dep2p/go-msgbox/pkg/lib/log"
	"github.com/dep2p/go-msgbox/pkg/types"
)

var logger = log.Logger("registry")

// advertisementScope 广告锁定密钥作用域
var advertisementScope = types.KeyScope{
	Protocol:     types.AdvertisementProtocol,
	KeyID:        "1",
	Counterparty: types.CounterpartyAnyone,
}

// Registry 广告注册表
type Registry struct {
	wallet      interfaces.Wallet
	resolver    interfaces.LookupResolver
	broadcaster interfaces.Broadcaster
	cfg         *Config

	// hosts 身份 -> 已解析主机
	hosts *expirable.LRU[string, string]
}

// New 创建注册表
func New(w interfaces.Wallet, resolver interfaces.LookupResolver, broadcaster interfaces.Broadcaster, opts ...Option) *Registry {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	r := &Registry{
		wallet:      w,
		resolver:    resolver,
		broadcaster: broadcaster,
		cfg:         cfg,
	}
	if cfg.CacheTTL > 0 && cfg.CacheSize > 0 {
		r.hosts = expirable.NewLRU[string, string](cfg.CacheSize, nil, cfg.CacheTTL)
	}
	return r
}

// DefaultHost 返回配置的默认主机
func (r *Registry) DefaultHost() string {
	return r.cfg.DefaultHost
}

// Query 查询身份（可选按主机过滤）的有效广告
//
// 查询失败返回空列表：没有广告是可恢复的常态。无法解析的输出被跳过。
func (r *Registry) Query(ctx context.Context, identityKey, host string) []*types.AdvertisementToken {
	answer, err := r.resolver.Lookup(ctx, types.LookupQuestion{
		Service: types.LookupServiceMessageBox,
		Query:   types.AdvertisementQuery{IdentityKey: identityKey, Host: host},
	})
	if err != nil {
		logger.Warn("广告查询失败", "identityKey", log.TruncateID(identityKey, 16), "err", err)
		return nil
	}
	if answer == nil || answer.Type != types.AnswerOutputList {
		return nil
	}

	tokens := make([]*types.AdvertisementToken, 0, len(answer.Outputs))
	for _, out := range answer.Outputs {
		token, err := decodeToken(out)
		if err != nil {
			logger.Debug("跳过无法解析的广告输出", "outputIndex", out.OutputIndex, "err", err)
			continue
		}
		tokens = append(tokens, token)
	}
	return tokens
}

func decodeToken(out types.LookupOutput) (*types.AdvertisementToken, error) {
	txid, output, err := ledger.OutputAt(out.Beef, out.OutputIndex)
	if err != nil {
		return nil, err
	}
	pd, err := ledger.DecodePushDrop(output.LockingScript)
	if err != nil {
		return nil, err
	}
	if len(pd.Fields) != 2 {
		return nil, fmt.Errorf("%w: want 2 fields, got %d", ledger.ErrNotPushDrop, len(pd.Fields))
	}
	return &types.AdvertisementToken{
		IdentityKey:   hex.EncodeToString(pd.Fields[0]),
		Host:          string(pd.Fields[1]),
		Txid:          txid,
		OutputIndex:   out.OutputIndex,
		LockingScript: output.LockingScript,
		Beef:          out.Beef,
	}, nil
}

// Anoint 为自身身份广告 host，返回新 token 的 txid
//
// 每次调用都会创建新 token，不检查是否已存在。
func (r *Registry) Anoint(ctx context.Context, host string) (string, error) {
	if err := ValidateHost(host); err != nil {
		return "", err
	}

	identityHex, err := r.wallet.GetPublicKey(ctx, types.PublicKeyArgs{IdentityKey: true})
	if err != nil {
		return "", err
	}
	identity, err := hex.DecodeString(identityHex)
	if err != nil {
		return "", fmt.Errorf("registry: identity key: %w", err)
	}
	lockHex, err := r.wallet.GetPublicKey(ctx, types.PublicKeyArgs{Scope: advertisementScope, ForSelf: true})
	if err != nil {
		return "", err
	}
	lockKey, err := hex.DecodeString(lockHex)
	if err != nil {
		return "", fmt.Errorf("registry: locking key: %w", err)
	}

	action, err := r.wallet.CreateAction(ctx, types.CreateActionArgs{
		Description: "advertise message box host",
		Outputs: []types.ActionOutput{{
			Satoshis:      1,
			LockingScript: ledger.PushDropLock(lockKey, [][]byte{identity, []byte(host)}),
			Description:   "message box advertisement",
		}},
	})
	if err != nil {
		return "", err
	}
	if _, err := r.broadcaster.Broadcast(ctx, action.Tx, []string{types.TopicMessageBox}); err != nil {
		return "", fmt.Errorf("%w: %v", ErrBroadcast, err)
	}

	r.invalidate(identityHex)
	logger.Info("已广告主机", "host", host, "txid", log.TruncateID(action.Txid, 16))
	return action.Txid, nil
}

// Revoke 花费 token 对应的输出使其失效
//
// 失败时 token 保持有效。
func (r *Registry) Revoke(ctx context.Context, token *types.AdvertisementToken) (string, error) {
	if token == nil {
		return "", ErrNilToken
	}
	op := token.Outpoint()
	sig, err := r.wallet.CreateSignature(ctx, advertisementScope, ledger.SpendPreimage(op))
	if err != nil {
		return "", err
	}
	action, err := r.wallet.CreateAction(ctx, types.CreateActionArgs{
		Description: "revoke message box advertisement",
		Inputs: []types.ActionInput{{
			Outpoint:        op,
			UnlockingScript: ledger.PushDropUnlock(sig),
			Description:     "advertisement token",
		}},
	})
	if err != nil {
		return "", err
	}
	if _, err := r.broadcaster.Broadcast(ctx, action.Tx, []string{types.TopicMessageBox}); err != nil {
		return "", fmt.Errorf("%w: %v", ErrBroadcast, err)
	}

	r.invalidate(token.IdentityKey)
	logger.Info("已撤销广告", "host", token.Host, "outpoint", op.String())
	return action.Txid, nil
}

// ResolveHost 返回身份的首个广告主机，没有广告时返回默认主机
func (r *Registry) ResolveHost(ctx context.Context, identityKey string) string {
	if r.hosts != nil {
		if host, ok := r.hosts.Get(identityKey); ok {
			return host
		}
	}

	host := r.cfg.DefaultHost
	if tokens := r.Query(ctx, identityKey, ""); len(tokens) > 0 {
		host = tokens[0].Host
		if r.hosts != nil {
			r.hosts.Add(identityKey, host)
		}
	}
	return host
}

func (r *Registry) invalidate(identityKey string) {
	if r.hosts != nil {
		r.hosts.Remove(identityKey)
	}
}

// ValidateHost 检查 host 是否为带主机部分的 http/https/ws/wss URL
func ValidateHost(host string) error {
	u, err := url.Parse(host)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidHost, err)
	}
	switch u.Scheme {
	case "http", "https", "ws", "wss":
	default:
		return fmt.Errorf("%w: unsupported scheme %q", ErrInvalidHost, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: missing host in %q", ErrInvalidHost, host)
	}
	return nil
}
var _ interfaces.AdvertisementRegistry = (*Registry)(nil)
