package messaging

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/multierr"

	"github.com/dep2p/go-msgbox/pkg/types"
)

// candidateHosts 当前主机 ∪ 默认主机 ∪ 自身所有有效广告的主机，当前主机在前
func (c *Client) candidateHosts(ctx context.Context) ([]string, error) {
	identity, err := c.IdentityKey(ctx)
	if err != nil {
		return nil, err
	}
	hosts := []string{c.Host(), c.config.DefaultHost}
	for _, token := range c.registry.Query(ctx, identity, "") {
		hosts = append(hosts, token.Host)
	}
	hosts = dedupHosts(hosts...)
	if len(hosts) == 0 {
		return nil, ErrNoHost
	}
	return hosts, nil
}

// List 并发列出所有候选主机上 box 的消息
//
// 至少一个主机成功时返回合并结果（可能为空）；全部失败返回 ErrNoHostReachable。
// 合并时按主机顺序先到先得去重，再按时间戳新消息在前排序，无时间戳的排在最后。
func (c *Client) List(ctx context.Context, box string) ([]*types.Message, error) {
	if box == "" {
		return nil, ErrMissingBox
	}
	if err := c.assertReady(ctx); err != nil {
		return nil, err
	}
	hosts, err := c.candidateHosts(ctx)
	if err != nil {
		return nil, err
	}

	results := gather(ctx, hosts, func(ctx context.Context, host string) ([]*types.WireMessage, error) {
		var resp types.ListMessagesResponse
		if err := c.rpc.Post(ctx, host, types.PathListMessages, &types.ListMessagesRequest{MessageBox: box}, &resp); err != nil {
			return nil, err
		}
		return resp.Messages, nil
	})

	var (
		errs      error
		succeeded int
		merged    []*types.Message
		seen      = make(map[string]struct{})
	)
	for _, r := range results {
		c.config.Metrics.HostRequest("list", r.err == nil)
		if r.err != nil {
			logger.Debug("主机列出消息失败", "host", r.host, "err", r.err)
			errs = multierr.Append(errs, r.err)
			continue
		}
		succeeded++
		for _, wire := range r.value {
			if wire == nil {
				continue
			}
			if _, dup := seen[wire.MessageID]; dup {
				continue
			}
			seen[wire.MessageID] = struct{}{}
			msg, _ := c.toMessage(ctx, wire)
			merged = append(merged, msg)
		}
	}
	if succeeded == 0 {
		return nil, fmt.Errorf("%w: %w", ErrNoHostReachable, errs)
	}

	sortNewestFirst(merged)
	if merged == nil {
		merged = []*types.Message{}
	}
	logger.Debug("已列出消息", "box", box, "hosts", len(hosts), "failed", len(hosts)-succeeded, "messages", len(merged))
	return merged, nil
}

func sortNewestFirst(msgs []*types.Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		ti, oki := msgs[i].Timestamp()
		tj, okj := msgs[j].Timestamp()
		switch {
		case oki && okj:
			return ti.After(tj)
		case oki != okj:
			return oki
		default:
			return false
		}
	})
}

// Acknowledge 在所有候选主机上确认消息，任一主机成功即返回
//
// 未授权类失败只记 warn 日志，视为该主机失败，不重试。
// 其余主机的请求继续在后台完成，结果不会被撤销。
func (c *Client) Acknowledge(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return ErrMissingMessageIDs
	}
	if err := c.assertReady(ctx); err != nil {
		return err
	}
	hosts, err := c.candidateHosts(ctx)
	if err != nil {
		return err
	}

	req := &types.AcknowledgeRequest{MessageIDs: ids}
	results := scatter(context.WithoutCancel(ctx), hosts, func(ctx context.Context, host string) (struct{}, error) {
		var resp types.StatusResponse
		return struct{}{}, c.rpc.Post(ctx, host, types.PathAcknowledgeMessage, req, &resp)
	})

	var errs error
	for r := range results {
		c.config.Metrics.HostRequest("acknowledge", r.err == nil)
		if r.err == nil {
			logger.Debug("消息已确认", "host", r.host, "count", len(ids))
			return nil
		}
		if types.CodeOf(r.err) == types.CodeUnauthorized {
			logger.Warn("主机拒绝确认请求的认证", "host", r.host, "err", r.err)
		} else {
			logger.Debug("主机确认失败", "host", r.host, "err", r.err)
		}
		errs = multierr.Append(errs, r.err)
	}
	return fmt.Errorf("%w: %w", ErrAcknowledgeFailed, errs)
}
