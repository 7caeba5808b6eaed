package interfaces

import (
	"context"

	"github.com/dep2p/go-msgbox/pkg/types"
)

// AdvertisementRegistry 身份到主机的路由广告
type AdvertisementRegistry interface {
	// Query 查询有效广告，失败时返回空列表
	Query(ctx context.Context, identityKey, host string) []*types.AdvertisementToken

	// Anoint 为自身身份广告 host，返回 txid；不做去重
	Anoint(ctx context.Context, host string) (string, error)

	// Revoke 花费 token 使其失效
	Revoke(ctx context.Context, token *types.AdvertisementToken) (string, error)

	// ResolveHost 返回首个广告主机，否则默认主机
	ResolveHost(ctx context.Context, identityKey string) string
}
