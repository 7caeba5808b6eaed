package overlay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dep2p/go-msgbox/pkg/interfaces"
	"github.com/dep2p/go-msgbox/pkg/types"
)

// TopicsHeader 广播请求携带主题列表（JSON 数组）的请求头
const TopicsHeader = "X-Topics"

// maxResponseSize 叠加网络应答大小上限
const maxResponseSize = 8 << 20

// Client 叠加网络 HTTP 客户端
type Client struct {
	endpoint string
	http     *http.Client
}

var (
	_ interfaces.Broadcaster    = (*Client)(nil)
	_ interfaces.LookupResolver = (*Client)(nil)
)

// NewClient 创建客户端；httpClient 为 nil 时使用 10 秒超时的默认客户端
func NewClient(endpoint string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{endpoint: strings.TrimRight(endpoint, "/"), http: httpClient}
}

// Lookup 实现 interfaces.LookupResolver
func (c *Client) Lookup(ctx context.Context, q types.LookupQuestion) (*types.LookupAnswer, error) {
	body, err := json.Marshal(q)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/lookup", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	var answer types.LookupAnswer
	if err := c.do(req, &answer); err != nil {
		return nil, err
	}
	return &answer, nil
}

// Broadcast 实现 interfaces.Broadcaster
func (c *Client) Broadcast(ctx context.Context, tx []byte, topics []string) (*types.BroadcastResult, error) {
	header, err := json.Marshal(topics)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/submit", bytes.NewReader(tx))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set(TopicsHeader, string(header))

	var result types.BroadcastResult
	if err := c.do(req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("overlay: %s: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("overlay: read %s: %w", req.URL.Path, err)
	}
	if resp.StatusCode != http.StatusOK {
		var e errorResponse
		if json.Unmarshal(data, &e) == nil && e.Description != "" {
			return fmt.Errorf("overlay: %s: %s", req.URL.Path, e.Description)
		}
		return fmt.Errorf("overlay: %s: http %d", req.URL.Path, resp.StatusCode)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("overlay: decode %s: %w", req.URL.Path, err)
	}
	return nil
}
