package introspect

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/pprof"
	"runtime"
	"sync"
	"time"

	"github.com/dep2p/go-msgbox/internal/messaging"
	"github.com/dep2p/go-msgbox/internal/overlay"
	"github.com/dep2p/go-msgbox/internal/server"
	"github.com/dep2p/go-msgbox/pkg/lib/log"
)

var logger = log.Logger("debug/introspect")

// DefaultAddr 默认监听地址
const DefaultAddr = "127.0.0.1:6060"

// ============================================================================
//                              配置
// ============================================================================

// Config 服务配置
type Config struct {
	// Addr 监听地址，默认 "127.0.0.1:6060"
	Addr string

	// Client 可选的消息客户端
	Client *messaging.Client

	// Host 可选的内嵌主机
	Host *server.Server

	// Ledger 可选的进程内叠加网络
	Ledger *overlay.Ledger

	// CustomHandlers 自定义处理器
	CustomHandlers map[string]http.HandlerFunc
}

// ============================================================================
//                              Server
// ============================================================================

// Server 本地自省 HTTP 服务
type Server struct {
	config Config

	server   *http.Server
	listener net.Listener

	running   bool
	startTime time.Time

	mu sync.Mutex
}

// New 创建自省服务
func New(cfg Config) *Server {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	return &Server{config: cfg, startTime: time.Now()}
}

// Handler 返回自省路由
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /debug/introspect", s.handleIntrospect)
	mux.HandleFunc("GET /debug/introspect/client", s.handleClient)
	mux.HandleFunc("GET /debug/introspect/host", s.handleHost)
	mux.HandleFunc("GET /debug/introspect/runtime", s.handleRuntime)

	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	mux.HandleFunc("GET /health", s.handleHealth)

	for path, handler := range s.config.CustomHandlers {
		mux.HandleFunc(path, handler)
	}
	return mux
}

// Start 启动服务
func (s *Server) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	listener, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return err
	}
	s.listener = listener
	s.server = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("自省服务异常退出", "error", err)
		}
	}()

	s.running = true
	s.startTime = time.Now()
	logger.Info("自省服务已启动", "addr", listener.Addr().String())
	return nil
}

// Stop 停止服务
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		logger.Error("关闭自省服务失败", "error", err)
		return err
	}

	s.running = false
	logger.Info("自省服务已停止")
	return nil
}

// Addr 返回实际监听地址
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.config.Addr
}

// ============================================================================
//                              响应结构
// ============================================================================

// IntrospectResponse 完整诊断响应
type IntrospectResponse struct {
	Timestamp time.Time    `json:"timestamp"`
	Uptime    string       `json:"uptime"`
	Client    *ClientInfo  `json:"client,omitempty"`
	Host      *HostInfo    `json:"host,omitempty"`
	Runtime   *RuntimeInfo `json:"runtime,omitempty"`
}

// ClientInfo 消息客户端信息
type ClientInfo struct {
	IdentityKey   string   `json:"identity_key"`
	State         string   `json:"state"`
	Host          string   `json:"host"`
	LiveConnected bool     `json:"live_connected"`
	Rooms         []string `json:"rooms"`
}

// HostInfo 内嵌主机信息
type HostInfo struct {
	IdentityKey string `json:"identity_key"`
	Addr        string `json:"addr"`

	// UnspentAdvertisements 进程内叠加网络中的有效广告数
	UnspentAdvertisements int `json:"unspent_advertisements"`
}

// RuntimeInfo 运行时信息
type RuntimeInfo struct {
	GoVersion    string `json:"go_version"`
	NumGoroutine int    `json:"num_goroutine"`
	NumCPU       int    `json:"num_cpu"`
	MemAlloc     uint64 `json:"mem_alloc"`
	MemSys       uint64 `json:"mem_sys"`
	NumGC        uint32 `json:"num_gc"`
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Uptime    string    `json:"uptime,omitempty"`
}

// ============================================================================
//                              HTTP 处理器
// ============================================================================

func (s *Server) handleIntrospect(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, IntrospectResponse{
		Timestamp: time.Now(),
		Uptime:    s.uptime(),
		Client:    s.collectClientInfo(r.Context()),
		Host:      s.collectHostInfo(),
		Runtime:   collectRuntimeInfo(),
	})
}

func (s *Server) handleClient(w http.ResponseWriter, r *http.Request) {
	info := s.collectClientInfo(r.Context())
	if info == nil {
		http.Error(w, "Client info not available", http.StatusServiceUnavailable)
		return
	}
	s.writeJSON(w, info)
}

func (s *Server) handleHost(w http.ResponseWriter, _ *http.Request) {
	info := s.collectHostInfo()
	if info == nil {
		http.Error(w, "Embedded host not enabled", http.StatusServiceUnavailable)
		return
	}
	s.writeJSON(w, info)
}

func (s *Server) handleRuntime(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, collectRuntimeInfo())
}

// handleHealth 客户端缺失时报告 degraded
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	health := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Uptime:    s.uptime(),
	}
	if s.config.Client == nil {
		health.Status = "degraded"
	}
	s.writeJSON(w, health)
}

// ============================================================================
//                              数据收集
// ============================================================================

func (s *Server) uptime() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Since(s.startTime).Round(time.Millisecond).String()
}

func (s *Server) collectClientInfo(ctx context.Context) *ClientInfo {
	c := s.config.Client
	if c == nil {
		return nil
	}
	identity, _ := c.IdentityKey(ctx)
	return &ClientInfo{
		IdentityKey:   identity,
		State:         c.State().String(),
		Host:          c.Host(),
		LiveConnected: c.LiveConnected(),
		Rooms:         c.Rooms(),
	}
}

func (s *Server) collectHostInfo() *HostInfo {
	h := s.config.Host
	if h == nil {
		return nil
	}
	info := &HostInfo{
		IdentityKey: h.IdentityKey(),
		Addr:        h.Addr(),
	}
	if s.config.Ledger != nil {
		info.UnspentAdvertisements = s.config.Ledger.Unspent()
	}
	return info
}

func collectRuntimeInfo() *RuntimeInfo {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	return &RuntimeInfo{
		GoVersion:    runtime.Version(),
		NumGoroutine: runtime.NumGoroutine(),
		NumCPU:       runtime.NumCPU(),
		MemAlloc:     memStats.Alloc,
		MemSys:       memStats.Sys,
		NumGC:        memStats.NumGC,
	}
}

// ============================================================================
//                              辅助方法
// ============================================================================

func (s *Server) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		logger.Error("JSON 编码失败", "error", err)
	}
}
