package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "msgbox"

// 标签取值
const (
	TransportLive    = "live"
	TransportRequest = "request"

	OutcomeSuccess = "success"
	OutcomeFailure = "failure"

	FallbackNoChannel = "no_channel"
	FallbackTimeout   = "timeout"
	FallbackNack      = "nack"
	FallbackEmitError = "emit_error"
)

// Client 消息客户端指标
type Client struct {
	SentTotal      *prometheus.CounterVec
	FallbacksTotal *prometheus.CounterVec
	HostRequests   *prometheus.CounterVec
	ReceivedTotal  prometheus.Counter
	DecryptFailed  prometheus.Counter
}

// NewClient 创建并注册客户端指标；reg 为 nil 时不注册
func NewClient(reg prometheus.Registerer) *Client {
	m := &Client{
		SentTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "messages_sent_total",
			Help:      "Messages delivered, by transport and outcome.",
		}, []string{"transport", "outcome"}),
		FallbacksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "live_fallbacks_total",
			Help:      "Live sends that fell back to request/response, by reason.",
		}, []string{"reason"}),
		HostRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "host_requests_total",
			Help:      "Per-host list/acknowledge requests, by operation and outcome.",
		}, []string{"op", "outcome"}),
		ReceivedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "live_messages_received_total",
			Help:      "Messages received on live subscriptions.",
		}),
		DecryptFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "decrypt_failures_total",
			Help:      "Inbound bodies that could not be decrypted or parsed.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.SentTotal, m.FallbacksTotal, m.HostRequests, m.ReceivedTotal, m.DecryptFailed)
	}
	return m
}

// Sent 记录一次投递
func (m *Client) Sent(transport string, ok bool) {
	if m == nil {
		return
	}
	m.SentTotal.WithLabelValues(transport, outcome(ok)).Inc()
}

// Fallback 记录一次实时发送回退
func (m *Client) Fallback(reason string) {
	if m == nil {
		return
	}
	m.FallbacksTotal.WithLabelValues(reason).Inc()
}

// HostRequest 记录单个主机上的请求结果
func (m *Client) HostRequest(op string, ok bool) {
	if m == nil {
		return
	}
	m.HostRequests.WithLabelValues(op, outcome(ok)).Inc()
}

// Received 记录一条实时入站消息
func (m *Client) Received(decryptFailed bool) {
	if m == nil {
		return
	}
	m.ReceivedTotal.Inc()
	if decryptFailed {
		m.DecryptFailed.Inc()
	}
}

// ============================================================================
//                              Host
// ============================================================================

// Host 消息主机指标
type Host struct {
	RequestsTotal     *prometheus.CounterVec
	StoredTotal       prometheus.Counter
	AcknowledgedTotal prometheus.Counter
	AuthFailures      *prometheus.CounterVec
	RateLimited       prometheus.Counter
	LiveConnections   prometheus.Gauge
}

// NewHost 创建并注册主机指标；reg 为 nil 时不注册
func NewHost(reg prometheus.Registerer) *Host {
	m := &Host{
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "host",
			Name:      "requests_total",
			Help:      "Requests handled, by path and status.",
		}, []string{"path", "status"}),
		StoredTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "host",
			Name:      "messages_stored_total",
			Help:      "Messages accepted into a box.",
		}),
		AcknowledgedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "host",
			Name:      "messages_acknowledged_total",
			Help:      "Messages removed by acknowledgment.",
		}),
		AuthFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "host",
			Name:      "auth_failures_total",
			Help:      "Rejected authentication attempts, by channel.",
		}, []string{"channel"}),
		RateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "host",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the per-identity rate limiter.",
		}),
		LiveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "host",
			Name:      "live_connections",
			Help:      "Authenticated duplex connections.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.RequestsTotal, m.StoredTotal, m.AcknowledgedTotal, m.AuthFailures, m.RateLimited, m.LiveConnections)
	}
	return m
}

// Request 记录一次请求
func (m *Host) Request(path, status string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(path, status).Inc()
}

// Stored 记录存储的消息数
func (m *Host) Stored(n int) {
	if m == nil {
		return
	}
	m.StoredTotal.Add(float64(n))
}

// Acknowledged 记录确认删除的消息数
func (m *Host) Acknowledged(n int) {
	if m == nil {
		return
	}
	m.AcknowledgedTotal.Add(float64(n))
}

// AuthFailure 记录认证失败
func (m *Host) AuthFailure(channel string) {
	if m == nil {
		return
	}
	m.AuthFailures.WithLabelValues(channel).Inc()
}

// Limited 记录一次限流
func (m *Host) Limited() {
	if m == nil {
		return
	}
	m.RateLimited.Inc()
}

// ConnectionOpened 活跃连接加一
func (m *Host) ConnectionOpened() {
	if m == nil {
		return
	}
	m.LiveConnections.Inc()
}

// ConnectionClosed 活跃连接减一
func (m *Host) ConnectionClosed() {
	if m == nil {
		return
	}
	m.LiveConnections.Dec()
}

func outcome(ok bool) string {
	if ok {
		return OutcomeSuccess
	}
	return OutcomeFailure
}
