package duplex

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dep2p/go-msgbox/internal/transport/auth"
	"github.com/dep2p/go-msgbox/pkg/interfaces"
	"github.com/dep2p/go-msgbox/pkg/lib/log"
)

var logger = log.Logger("transport/duplex")

// Dialer 建立认证的全双工通道
type Dialer struct {
	signer   *auth.Signer
	verifier *auth.Verifier
	config   *Config
}

var _ interfaces.DuplexDialer = (*Dialer)(nil)

// NewDialer 创建拨号器
//
// signer 用于回应服务端挑战，verifier 用于校验服务端身份。
func NewDialer(signer *auth.Signer, verifier *auth.Verifier, opts ...Option) *Dialer {
	config := DefaultConfig()
	for _, opt := range opts {
		opt(config)
	}
	return &Dialer{signer: signer, verifier: verifier, config: config}
}

// Dial 实现 interfaces.DuplexDialer
func (d *Dialer) Dial(ctx context.Context, host string) (interfaces.DuplexChannel, error) {
	return d.DialChannel(ctx, host)
}

// DialChannel 连接并完成握手，返回具体通道
func (d *Dialer) DialChannel(ctx context.Context, host string) (*Channel, error) {
	endpoint, err := Endpoint(host, d.config.Path)
	if err != nil {
		return nil, err
	}

	hctx, cancel := context.WithTimeout(ctx, d.config.HandshakeTimeout)
	defer cancel()

	dialer := websocket.Dialer{HandshakeTimeout: d.config.HandshakeTimeout}
	conn, _, err := dialer.DialContext(hctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("duplex: dial %s: %w", endpoint, err)
	}

	peer, err := d.handshake(hctx, conn)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	ch := newChannel(conn, host, peer, d.config)
	go ch.readLoop()
	logger.Info("全双工通道已连接", "host", host, "server", log.TruncateID(peer, 16))
	return ch, nil
}

// handshake 回应挑战并校验服务端，返回服务端身份
func (d *Dialer) handshake(ctx context.Context, conn *websocket.Conn) (string, error) {
	deadline, _ := ctx.Deadline()
	_ = conn.SetReadDeadline(deadline)
	defer conn.SetReadDeadline(time.Time{}) //nolint:errcheck

	var challenge Challenge
	if err := expect(conn, EventAuthChallenge, &challenge); err != nil {
		return "", err
	}

	creds, err := d.signer.Sign(ctx, []byte(challenge.Nonce))
	if err != nil {
		return "", err
	}
	frame, err := NewFrame(EventAuthenticate, creds)
	if err != nil {
		return "", err
	}
	_ = conn.SetWriteDeadline(deadline)
	if err := conn.WriteJSON(frame); err != nil {
		return "", fmt.Errorf("duplex: send authenticate: %w", err)
	}
	_ = conn.SetWriteDeadline(time.Time{})

	var reply Frame
	if err := readFrame(conn, &reply); err != nil {
		return "", err
	}
	switch reply.Event {
	case EventAuthSuccess:
	case EventAuthFailed:
		var f Failure
		_ = reply.Decode(&f)
		return "", fmt.Errorf("%w: %s", ErrAuthFailed, f.Description)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnexpectedFrame, reply.Event)
	}

	var server auth.Credentials
	if err := reply.Decode(&server); err != nil {
		return "", fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}
	peer, err := d.verifier.Verify(ctx, &server, []byte(creds.Nonce))
	if err != nil {
		return "", fmt.Errorf("%w: server: %v", ErrAuthFailed, err)
	}
	return peer, nil
}

func readFrame(conn *websocket.Conn, f *Frame) error {
	if err := conn.ReadJSON(f); err != nil {
		var ne interface{ Timeout() bool }
		if errors.As(err, &ne) && ne.Timeout() {
			return ErrHandshakeTimeout
		}
		return fmt.Errorf("duplex: read: %w", err)
	}
	return nil
}

func expect(conn *websocket.Conn, event string, v any) error {
	var f Frame
	if err := readFrame(conn, &f); err != nil {
		return err
	}
	if f.Event != event {
		return fmt.Errorf("%w: want %q, got %q", ErrUnexpectedFrame, event, f.Event)
	}
	return f.Decode(v)
}

// Endpoint 将主机映射为 websocket URL，http/https 转为 ws/wss
func Endpoint(host, path string) (string, error) {
	u, err := url.Parse(host)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("duplex: unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", errors.New("duplex: missing host")
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(path, "/")
	return u.String(), nil
}
