package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/dep2p/go-msgbox/internal/server/store"
	"github.com/dep2p/go-msgbox/internal/transport/auth"
	"github.com/dep2p/go-msgbox/internal/wallet"
	"github.com/dep2p/go-msgbox/pkg/interfaces"
	"github.com/dep2p/go-msgbox/pkg/lib/log"
	"github.com/dep2p/go-msgbox/pkg/types"
)

var logger = log.Logger("server")

// Server 参考消息主机
type Server struct {
	config   *Config
	store    store.Store
	signer   *auth.Signer
	verifier *auth.Verifier
	limiters *limiters
	hub      *hub
	identity string

	mu       sync.Mutex
	listener net.Listener
	cancel   context.CancelFunc
	done     chan error
}

// New 创建主机
//
// w 是主机自身身份，用于全双工握手中向客户端证明身份。
func New(w interfaces.Wallet, s store.Store, opts ...Option) (*Server, error) {
	config := DefaultConfig()
	for _, opt := range opts {
		opt(config)
	}
	identity, err := w.GetPublicKey(context.Background(), types.PublicKeyArgs{IdentityKey: true})
	if err != nil {
		return nil, err
	}
	srv := &Server{
		config:   config,
		store:    s,
		signer:   auth.NewSigner(w, config.Clock),
		verifier: auth.NewVerifier(wallet.NewAnyone(), config.Clock, config.AuthWindow),
		limiters: newLimiters(config.RateLimit, config.RateBurst),
		identity: identity,
	}
	srv.hub = newHub(srv)
	return srv, nil
}

// IdentityKey 主机身份公钥
func (s *Server) IdentityKey() string { return s.identity }

// Handler 返回完整的 HTTP 路由
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("POST "+types.PathSendMessage, s.authenticated(types.PathSendMessage, s.handleSend))
	mux.Handle("POST "+types.PathListMessages, s.authenticated(types.PathListMessages, s.handleList))
	mux.Handle("POST "+types.PathAcknowledgeMessage, s.authenticated(types.PathAcknowledgeMessage, s.handleAcknowledge))
	mux.Handle("GET "+s.config.WSPath, s.hub)
	if s.config.Gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.config.Gatherer, promhttp.HandlerOpts{}))
	}
	if s.config.Overlay != nil {
		mux.Handle("/overlay/", http.StripPrefix("/overlay", s.config.Overlay))
	}
	return mux
}

// Serve 在 ln 上提供服务直到 ctx 取消
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	httpServer := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("消息主机已启动", "addr", ln.Addr().String(), "identityKey", log.TruncateID(s.identity, 16))
		if err := httpServer.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()
		s.hub.closeAll()
		err := httpServer.Shutdown(sctx)
		logger.Info("消息主机已停止", "addr", ln.Addr().String())
		return err
	})
	return g.Wait()
}

// Start 在配置的地址上监听并在后台提供服务
func (s *Server) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return ErrAlreadyStarted
	}
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.listener, s.cancel, s.done = ln, cancel, make(chan error, 1)
	go func(done chan<- error) {
		done <- s.Serve(ctx, ln)
	}(s.done)
	return nil
}

// Addr 实际监听地址；未启动时返回配置地址
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.config.Addr
}

// Stop 停止服务并关闭存储
func (s *Server) Stop() error {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.listener, s.cancel, s.done = nil, nil, nil
	s.mu.Unlock()
	if cancel == nil {
		return ErrNotStarted
	}
	cancel()
	err := <-done
	if cerr := s.store.Close(); err == nil {
		err = cerr
	}
	return err
}
