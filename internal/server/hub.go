package server

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/dep2p/go-msgbox/internal/transport/auth"
	"github.com/dep2p/go-msgbox/internal/transport/duplex"
	"github.com/dep2p/go-msgbox/pkg/lib/log"
	"github.com/dep2p/go-msgbox/pkg/types"
)

// hub 全双工房间服务
type hub struct {
	server   *Server
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns map[*liveConn]struct{}
	rooms map[string]map[*liveConn]struct{}
}

func newHub(s *Server) *hub {
	return &hub{
		server: s,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		conns: make(map[*liveConn]struct{}),
		rooms: make(map[string]map[*liveConn]struct{}),
	}
}

// liveConn 一个已认证的全双工连接
type liveConn struct {
	id       string
	ws       *websocket.Conn
	identity string
	timeout  time.Duration

	writeMu sync.Mutex
}

func (c *liveConn) send(event string, v any) error {
	f, err := duplex.NewFrame(event, v)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(c.timeout))
	return c.ws.WriteJSON(f)
}

// owns 房间 "{identity}-{box}" 属于该连接的身份
func (c *liveConn) owns(room string) bool {
	return c.identity != "" && strings.HasPrefix(room, c.identity+"-")
}

// ServeHTTP 升级连接、完成握手并处理帧
func (h *hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Debug("websocket 升级失败", "remote", r.RemoteAddr, "err", err)
		return
	}
	c := &liveConn{id: uuid.NewString(), ws: ws, timeout: h.server.config.WriteTimeout}
	defer ws.Close()

	identity, err := h.handshake(r.Context(), c)
	if err != nil {
		h.server.config.Metrics.AuthFailure("duplex")
		logger.Debug("全双工握手失败", "conn", c.id, "remote", r.RemoteAddr, "err", err)
		return
	}
	c.identity = identity

	h.register(c)
	defer h.unregister(c)
	logger.Debug("全双工连接已认证", "conn", c.id, "identityKey", log.TruncateID(identity, 16))

	for {
		var f duplex.Frame
		if err := ws.ReadJSON(&f); err != nil {
			return
		}
		h.dispatch(r.Context(), c, &f)
	}
}

// handshake 下发挑战，校验客户端签名，并以主机身份签名客户端 nonce
func (h *hub) handshake(ctx context.Context, c *liveConn) (string, error) {
	nonce, err := auth.NewNonce()
	if err != nil {
		return "", err
	}
	if err := c.send(duplex.EventAuthChallenge, duplex.Challenge{Nonce: nonce}); err != nil {
		return "", err
	}

	_ = c.ws.SetReadDeadline(time.Now().Add(h.server.config.HandshakeTimeout))
	var f duplex.Frame
	if err := c.ws.ReadJSON(&f); err != nil {
		return "", err
	}
	_ = c.ws.SetReadDeadline(time.Time{})
	if f.Event != duplex.EventAuthenticate {
		_ = c.send(duplex.EventAuthFailed, duplex.Failure{Description: "expected " + duplex.EventAuthenticate})
		return "", duplex.ErrUnexpectedFrame
	}

	var creds auth.Credentials
	if err := f.Decode(&creds); err != nil {
		_ = c.send(duplex.EventAuthFailed, duplex.Failure{Description: "malformed credentials"})
		return "", err
	}
	identity, err := h.server.verifier.Verify(ctx, &creds, []byte(nonce))
	if err != nil {
		_ = c.send(duplex.EventAuthFailed, duplex.Failure{Description: err.Error()})
		return "", err
	}

	reply, err := h.server.signer.Sign(ctx, []byte(creds.Nonce))
	if err != nil {
		return "", err
	}
	if err := c.send(duplex.EventAuthSuccess, reply); err != nil {
		return "", err
	}
	return identity, nil
}

func (h *hub) dispatch(ctx context.Context, c *liveConn, f *duplex.Frame) {
	switch f.Event {
	case duplex.EventJoinRoom, duplex.EventLeaveRoom:
		var req duplex.RoomRequest
		if err := f.Decode(&req); err != nil || req.RoomID == "" {
			return
		}
		if f.Event == duplex.EventJoinRoom {
			h.join(c, req.RoomID)
		} else {
			h.leave(c, req.RoomID)
		}

	case duplex.EventSendMessage:
		var req duplex.SendRequest
		if err := f.Decode(&req); err != nil || req.RoomID == "" {
			return
		}
		h.handleSend(ctx, c, &req)

	default:
		logger.Debug("忽略未知事件", "conn", c.id, "event", f.Event)
	}
}

// handleSend 保存房间消息并向发送方确认
func (h *hub) handleSend(ctx context.Context, c *liveConn, req *duplex.SendRequest) {
	nack := func(description string) {
		_ = c.send(duplex.AckEvent(req.RoomID), &types.Ack{Status: types.StatusError, Description: description})
	}
	in := req.Message
	if in == nil {
		nack("message is required")
		return
	}
	if duplex.RoomName(in.Recipient, in.MessageBox) != req.RoomID {
		nack("room does not match recipient and messageBox")
		return
	}
	msg, err := h.server.accept(ctx, c.identity, in)
	if err != nil {
		nack(err.Error())
		return
	}
	h.server.config.Metrics.Request("ws:"+duplex.EventSendMessage, http.StatusText(http.StatusOK))
	_ = c.send(duplex.AckEvent(req.RoomID), &types.Ack{Status: types.StatusSuccess, MessageID: msg.MessageID})
}

// publish 推送到房间内属于房间身份的连接
func (h *hub) publish(room string, msg *types.WireMessage) {
	h.mu.Lock()
	var targets []*liveConn
	for c := range h.rooms[room] {
		if c.owns(room) {
			targets = append(targets, c)
		}
	}
	h.mu.Unlock()

	for _, c := range targets {
		if err := c.send(duplex.MessageEvent(room), msg); err != nil {
			logger.Debug("推送房间消息失败", "conn", c.id, "room", room, "err", err)
		}
	}
}

func (h *hub) register(c *liveConn) {
	h.mu.Lock()
	h.conns[c] = struct{}{}
	h.mu.Unlock()
	h.server.config.Metrics.ConnectionOpened()
}

func (h *hub) unregister(c *liveConn) {
	h.mu.Lock()
	delete(h.conns, c)
	for room, members := range h.rooms {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	h.mu.Unlock()
	h.server.config.Metrics.ConnectionClosed()
}

func (h *hub) join(c *liveConn, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*liveConn]struct{})
		h.rooms[room] = members
	}
	members[c] = struct{}{}
}

func (h *hub) leave(c *liveConn, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if members, ok := h.rooms[room]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

// closeAll 关闭所有连接，读循环随之退出
func (h *hub) closeAll() {
	h.mu.Lock()
	conns := make([]*liveConn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()
	for _, c := range conns {
		_ = c.ws.Close()
	}
}
