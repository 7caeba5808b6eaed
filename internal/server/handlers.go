package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/dep2p/go-msgbox/internal/transport/auth"
	"github.com/dep2p/go-msgbox/internal/transport/duplex"
	"github.com/dep2p/go-msgbox/pkg/lib/log"
	"github.com/dep2p/go-msgbox/pkg/types"
)

type identityKey struct{}

// identityFrom 返回认证中间件写入的调用方身份
func identityFrom(ctx context.Context) string {
	id, _ := ctx.Value(identityKey{}).(string)
	return id
}

type bodyKey struct{}

// authenticated 校验签名与限流，之后的处理器从 context 读取身份与请求体
func (s *Server) authenticated(path string, next func(http.ResponseWriter, *http.Request) int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		status := s.serveAuthenticated(path, next, w, r)
		s.config.Metrics.Request(path, http.StatusText(status))
	})
}

func (s *Server) serveAuthenticated(path string, next func(http.ResponseWriter, *http.Request) int,
	w http.ResponseWriter, r *http.Request) int {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.config.MaxBodySize))
	if err != nil {
		return writeError(w, http.StatusRequestEntityTooLarge, codeInvalidRequest, "request body too large")
	}

	creds, err := auth.FromHeader(r.Header)
	if err == nil {
		var identity string
		identity, err = s.verifier.Verify(r.Context(), creds, body)
		if err == nil {
			if !s.limiters.allow(identity) {
				s.config.Metrics.Limited()
				return writeError(w, http.StatusTooManyRequests, codeRateLimited, "rate limit exceeded")
			}
			ctx := context.WithValue(r.Context(), identityKey{}, identity)
			ctx = context.WithValue(ctx, bodyKey{}, body)
			return next(w, r.WithContext(ctx))
		}
	}
	s.config.Metrics.AuthFailure("http")
	logger.Debug("请求认证失败", "path", path, "remote", r.RemoteAddr, "err", err)
	return writeError(w, http.StatusUnauthorized, codeUnauthorized, err.Error())
}

func decodeBody(r *http.Request, v any) error {
	body, _ := r.Context().Value(bodyKey{}).([]byte)
	return json.Unmarshal(body, v)
}

// ============================================================================
//                              处理器
// ============================================================================

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) int {
	var req types.SendMessageRequest
	if err := decodeBody(r, &req); err != nil {
		return writeError(w, http.StatusBadRequest, codeInvalidRequest, "invalid JSON body")
	}
	msg, err := s.accept(r.Context(), identityFrom(r.Context()), req.Message)
	if err != nil {
		return s.writeStoreError(w, err)
	}
	return writeJSON(w, http.StatusOK, &types.SendMessageResponse{Status: types.StatusSuccess, MessageID: msg.MessageID})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) int {
	var req types.ListMessagesRequest
	if err := decodeBody(r, &req); err != nil {
		return writeError(w, http.StatusBadRequest, codeInvalidRequest, "invalid JSON body")
	}
	if strings.TrimSpace(req.MessageBox) == "" {
		return writeError(w, http.StatusBadRequest, codeInvalidRequest, "messageBox is required")
	}
	msgs, err := s.store.List(r.Context(), identityFrom(r.Context()), req.MessageBox)
	if err != nil {
		return s.writeStoreError(w, err)
	}
	return writeJSON(w, http.StatusOK, &types.ListMessagesResponse{Status: types.StatusSuccess, Messages: msgs})
}

func (s *Server) handleAcknowledge(w http.ResponseWriter, r *http.Request) int {
	var req types.AcknowledgeRequest
	if err := decodeBody(r, &req); err != nil {
		return writeError(w, http.StatusBadRequest, codeInvalidRequest, "invalid JSON body")
	}
	if len(req.MessageIDs) == 0 {
		return writeError(w, http.StatusBadRequest, codeInvalidRequest, "messageIds are required")
	}
	identity := identityFrom(r.Context())
	n, err := s.store.Acknowledge(r.Context(), identity, req.MessageIDs)
	if err != nil {
		return s.writeStoreError(w, err)
	}
	if n == 0 {
		return writeError(w, http.StatusNotFound, codeNotFound, "Message not found")
	}
	s.config.Metrics.Acknowledged(n)
	logger.Debug("消息已确认", "recipient", log.TruncateID(identity, 16), "count", n)
	return writeJSON(w, http.StatusOK, &types.StatusResponse{Status: types.StatusSuccess})
}

// errInvalidMessage 请求中的消息不完整
var errInvalidMessage = errors.New("message requires recipient, messageBox and body")

// accept 以认证身份作为发送方保存消息，并推送给房间所属身份
//
// 同一接收方下重复的 messageId 幂等成功。
func (s *Server) accept(ctx context.Context, sender string, in *types.WireMessage) (*types.WireMessage, error) {
	if in == nil || strings.TrimSpace(in.Recipient) == "" || strings.TrimSpace(in.MessageBox) == "" || in.Body == "" {
		return nil, errInvalidMessage
	}
	msg := *in
	msg.Sender = sender
	if msg.MessageID == "" {
		msg.MessageID = uuid.NewString()
	}
	now := s.config.Clock.Now().UTC()
	msg.CreatedAt, msg.UpdatedAt = &now, &now

	stored, err := s.store.Put(ctx, &msg)
	if err != nil {
		return nil, err
	}
	if stored {
		s.config.Metrics.Stored(1)
		s.hub.publish(duplex.RoomName(msg.Recipient, msg.MessageBox), &msg)
		logger.Debug("消息已保存", "recipient", log.TruncateID(msg.Recipient, 16), "box", msg.MessageBox,
			"messageId", log.TruncateID(msg.MessageID, 16))
	}
	return &msg, nil
}

func (s *Server) writeStoreError(w http.ResponseWriter, err error) int {
	if errors.Is(err, errInvalidMessage) {
		return writeError(w, http.StatusBadRequest, codeInvalidRequest, err.Error())
	}
	logger.Error("存储失败", "err", err)
	return writeError(w, http.StatusInternalServerError, codeInternal, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) int {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
	return status
}

func writeError(w http.ResponseWriter, status int, code, description string) int {
	return writeJSON(w, status, &types.StatusResponse{Status: types.StatusError, Code: code, Description: description})
}
