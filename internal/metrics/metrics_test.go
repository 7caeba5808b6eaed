package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gather 汇总指定指标名下所有序列的值
func gather(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	var sum float64
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, m := range f.GetMetric() {
			if c := m.GetCounter(); c != nil {
				sum += c.GetValue()
			}
			if g := m.GetGauge(); g != nil {
				sum += g.GetValue()
			}
		}
	}
	return sum
}

func TestClient_Records(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewClient(reg)

	m.Sent(TransportLive, true)
	m.Sent(TransportRequest, false)
	m.Fallback(FallbackTimeout)
	m.HostRequest("list", true)
	m.Received(true)

	assert.Equal(t, 2.0, gather(t, reg, "msgbox_client_messages_sent_total"))
	assert.Equal(t, 1.0, gather(t, reg, "msgbox_client_live_fallbacks_total"))
	assert.Equal(t, 1.0, gather(t, reg, "msgbox_client_host_requests_total"))
	assert.Equal(t, 1.0, gather(t, reg, "msgbox_client_decrypt_failures_total"))
}

func TestHost_Records(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHost(reg)
	m.Stored(2)
	m.Acknowledged(1)
	m.ConnectionOpened()
	m.ConnectionOpened()
	m.ConnectionClosed()

	assert.Equal(t, 2.0, gather(t, reg, "msgbox_host_messages_stored_total"))
	assert.Equal(t, 1.0, gather(t, reg, "msgbox_host_messages_acknowledged_total"))
	assert.Equal(t, 1.0, gather(t, reg, "msgbox_host_live_connections"))
}

func TestNilReceivers(t *testing.T) {
	var c *Client
	var h *Host
	assert.NotPanics(t, func() {
		c.Sent(TransportLive, true)
		c.Fallback(FallbackNack)
		c.HostRequest("ack", false)
		c.Received(false)
		h.Request("/sendMessage", "success")
		h.Stored(1)
		h.Acknowledged(1)
		h.AuthFailure("http")
		h.Limited()
		h.ConnectionOpened()
		h.ConnectionClosed()
	})
}
