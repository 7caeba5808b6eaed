package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dep2p/go-msgbox/internal/transport/auth"
	"github.com/dep2p/go-msgbox/pkg/interfaces"
	"github.com/dep2p/go-msgbox/pkg/lib/log"
	"github.com/dep2p/go-msgbox/pkg/types"
)

var logger = log.Logger("transport/rpc")

// status 所有响应共有的状态字段
type status struct {
	Status      string `json:"status"`
	Description string `json:"description,omitempty"`
	Code        string `json:"code,omitempty"`
}

// Client 认证请求/响应客户端
type Client struct {
	signer *auth.Signer
	http   *http.Client
	config *Config
}

var _ interfaces.RequestTransport = (*Client)(nil)

// New 创建客户端
func New(signer *auth.Signer, opts ...Option) *Client {
	config := DefaultConfig()
	for _, opt := range opts {
		opt(config)
	}
	return &Client{
		signer: signer,
		http:   &http.Client{Timeout: config.Timeout},
		config: config,
	}
}

// Post 实现 interfaces.RequestTransport
func (c *Client) Post(ctx context.Context, host, path string, req, resp any) error {
	body, err := json.Marshal(req)
	if err != nil {
		return &types.HostError{Host: host, Op: path, Code: types.CodeDecode, Err: err}
	}
	endpoint, err := Endpoint(host, path)
	if err != nil {
		return &types.HostError{Host: host, Op: path, Code: types.CodeTransport, Err: err}
	}

	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return &types.HostError{Host: host, Op: path, Code: types.CodeTransport, Err: ctx.Err()}
			case <-time.After(c.config.RetryDelay):
			}
			logger.Debug("重试请求", "host", host, "path", path, "attempt", attempt)
		}
		lastErr = c.post(ctx, host, path, endpoint, body, resp)
		if lastErr == nil || types.CodeOf(lastErr) != types.CodeTransport {
			return lastErr
		}
	}
	return lastErr
}

func (c *Client) post(ctx context.Context, host, path, endpoint string, body []byte, resp any) error {
	fail := func(code types.ErrorCode, status int, description string, err error) error {
		return &types.HostError{Host: host, Op: path, Code: code, Status: status, Description: description, Err: err}
	}

	creds, err := c.signer.Sign(ctx, body)
	if err != nil {
		return fail(types.CodeUnauthorized, 0, "", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fail(types.CodeTransport, 0, "", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	creds.Apply(httpReq.Header)

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return fail(types.CodeTransport, 0, "", err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, c.config.MaxResponseSize))
	if err != nil {
		return fail(types.CodeTransport, httpResp.StatusCode, "", err)
	}

	var st status
	jsonErr := json.Unmarshal(data, &st)

	switch {
	case httpResp.StatusCode == http.StatusUnauthorized || httpResp.StatusCode == http.StatusForbidden:
		return fail(types.CodeUnauthorized, httpResp.StatusCode, st.Description, nil)
	case jsonErr != nil && httpResp.StatusCode/100 != 2:
		return fail(types.CodeTransport, httpResp.StatusCode, http.StatusText(httpResp.StatusCode), nil)
	case jsonErr != nil:
		return fail(types.CodeDecode, httpResp.StatusCode, "", jsonErr)
	case st.Status == types.StatusError || httpResp.StatusCode/100 != 2:
		code := types.CodeProtocol
		if known := types.ErrorCode(st.Code); known == types.CodeNotFound || known == types.CodeUnauthorized {
			code = known
		} else if httpResp.StatusCode == http.StatusNotFound {
			code = types.CodeNotFound
		}
		return fail(code, httpResp.StatusCode, st.Description, nil)
	}

	if resp != nil {
		if err := json.Unmarshal(data, resp); err != nil {
			return fail(types.CodeDecode, httpResp.StatusCode, "", err)
		}
	}
	return nil
}

// Endpoint 将主机与路径拼接为 HTTP(S) URL，ws/wss 主机映射为 http/https
func Endpoint(host, path string) (string, error) {
	u, err := url.Parse(host)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http", "https":
	case "ws":
		u.Scheme = "http"
	case "wss":
		u.Scheme = "https"
	default:
		return "", errors.New("rpc: unsupported scheme " + u.Scheme)
	}
	if u.Host == "" {
		return "", errors.New("rpc: missing host")
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(path, "/")
	return u.String(), nil
}
